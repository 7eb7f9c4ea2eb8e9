package shard

import (
	"context"
	"testing"
)

func TestCleanRemovesEverything(t *testing.T) {
	ctx := context.Background()
	bucket, m := shardSample(t, ctx)

	if err := Clean(ctx, bucket, m); err != nil {
		t.Fatalf("clean: %v", err)
	}

	for _, chunk := range m.Chunks {
		exists, err := bucket.Exists(ctx, chunk.Filename)
		if err != nil {
			t.Fatalf("exists %s: %v", chunk.Filename, err)
		}
		if exists {
			t.Errorf("chunk %s still exists after clean", chunk.Filename)
		}
	}

	exists, err := bucket.Exists(ctx, ManifestName(m.OriginalFile))
	if err != nil {
		t.Fatalf("exists manifest: %v", err)
	}
	if exists {
		t.Error("manifest still exists after clean")
	}
}

func TestCleanIdempotent(t *testing.T) {
	ctx := context.Background()
	bucket, m := shardSample(t, ctx)

	if err := Clean(ctx, bucket, m); err != nil {
		t.Fatalf("first clean: %v", err)
	}
	if err := Clean(ctx, bucket, m); err != nil {
		t.Fatalf("second clean: %v", err)
	}
}

func TestCleanPartialSet(t *testing.T) {
	ctx := context.Background()
	bucket, m := shardSample(t, ctx)

	// Simulate an aborted run: one chunk already gone.
	if err := bucket.Delete(ctx, m.Chunks[0].Filename); err != nil {
		t.Fatalf("delete chunk: %v", err)
	}

	if err := Clean(ctx, bucket, m); err != nil {
		t.Fatalf("clean: %v", err)
	}
	exists, err := bucket.Exists(ctx, m.Chunks[1].Filename)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Error("remaining chunk not removed")
	}
}
