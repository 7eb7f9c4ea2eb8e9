package shard

import (
	"context"
	"fmt"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// ValidationResult contains the results of validating a chunk set.
type ValidationResult struct {
	Valid          bool     // true if all chunks exist and sizes match
	TotalSize      int64    // total size from the manifest
	ChunkCount     int      // number of chunks in the manifest
	MissingChunks  int      // number of chunks that don't exist
	SizeMismatches int      // number of chunks with wrong size
	Errors         []string // detailed error messages
}

// Validate checks that every chunk object named by the manifest exists in
// bucket with its declared size. It reads object metadata only, never chunk
// bytes, so it cannot detect content corruption; use Reassemble for full
// digest verification.
//
// Missing chunks and size mismatches are reported in the result with
// Valid=false, not as errors. An error is returned only when the bucket
// itself cannot be queried or the context is cancelled.
func Validate(ctx context.Context, bucket *blob.Bucket, m *Manifest) (*ValidationResult, error) {
	result := &ValidationResult{
		Valid:      true,
		TotalSize:  m.TotalSize,
		ChunkCount: len(m.Chunks),
		Errors:     make([]string, 0),
	}

	for i, chunk := range m.Chunks {
		attrs, err := bucket.Attributes(ctx, chunk.Filename)
		if err != nil {
			if isNotExist(err) {
				result.Valid = false
				result.MissingChunks++
				result.Errors = append(result.Errors,
					fmt.Sprintf("chunk %d missing: %s", i, chunk.Filename))
				continue
			}
			return nil, fmt.Errorf("shard: check chunk %d: %w", i, err)
		}

		if attrs.Size != chunk.Size {
			result.Valid = false
			result.SizeMismatches++
			result.Errors = append(result.Errors,
				fmt.Sprintf("chunk %d size mismatch: expected %d, got %d",
					i, chunk.Size, attrs.Size))
		}
	}

	return result, nil
}

// isNotExist returns true if the error indicates the object doesn't exist.
func isNotExist(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}
