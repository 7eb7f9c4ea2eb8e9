package shard

import (
	"context"
	"fmt"

	"gocloud.dev/blob"
)

// Clean removes a chunk set and its manifest from bucket. Chunks that are
// already gone are skipped, so Clean can also pick up after an aborted
// sharding run once a manifest has been reconstructed or re-parsed.
//
// Chunk objects are deleted before the manifest: if Clean is interrupted, the
// manifest still names whatever chunks remain.
func Clean(ctx context.Context, bucket *blob.Bucket, m *Manifest) error {
	for i, chunk := range m.Chunks {
		if err := bucket.Delete(ctx, chunk.Filename); err != nil && !isNotExist(err) {
			return fmt.Errorf("shard: delete chunk %d (%s): %w", i, chunk.Filename, err)
		}
	}

	name := ManifestName(m.OriginalFile)
	if err := bucket.Delete(ctx, name); err != nil && !isNotExist(err) {
		return fmt.Errorf("shard: delete manifest %s: %w", name, err)
	}

	return nil
}
