package shard

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/memblob"
)

func openMemBucket(t *testing.T, ctx context.Context) *blob.Bucket {
	t.Helper()
	bucket, err := blob.OpenBucket(ctx, "mem://")
	if err != nil {
		t.Fatalf("open mem bucket: %v", err)
	}
	t.Cleanup(func() { bucket.Close() })
	return bucket
}

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestShardRoundTrip(t *testing.T) {
	ctx := context.Background()
	bucket := openMemBucket(t, ctx)

	data := []byte("0123456789") // 10 bytes, chunk size 4 -> 4, 4, 2
	input := writeTempFile(t, "sample.bin", data)

	m, err := Shard(ctx, bucket, input, WithChunkSize(4), WithWorkers(2))
	if err != nil {
		t.Fatalf("shard: %v", err)
	}

	if m.OriginalFile != "sample.bin" {
		t.Errorf("original file = %q, want %q", m.OriginalFile, "sample.bin")
	}
	if m.TotalSize != 10 {
		t.Errorf("total size = %d, want 10", m.TotalSize)
	}
	if m.ChunkCount != 3 || len(m.Chunks) != 3 {
		t.Fatalf("chunk count = %d (%d listed), want 3", m.ChunkCount, len(m.Chunks))
	}
	if m.CID == "" {
		t.Error("CID is empty")
	}

	wantSizes := []int64{4, 4, 2}
	for i, chunk := range m.Chunks {
		if chunk.Filename != ChunkFilename(i) {
			t.Errorf("chunk %d filename = %q, want %q", i, chunk.Filename, ChunkFilename(i))
		}
		if chunk.Size != wantSizes[i] {
			t.Errorf("chunk %d size = %d, want %d", i, chunk.Size, wantSizes[i])
		}

		stored, err := bucket.ReadAll(ctx, chunk.Filename)
		if err != nil {
			t.Fatalf("read chunk %d: %v", i, err)
		}
		if got := DigestHex(stored); got != chunk.SHA256 {
			t.Errorf("chunk %d stored digest = %s, manifest says %s", i, got, chunk.SHA256)
		}
	}

	out := filepath.Join(t.TempDir(), "restored.bin")
	if err := Reassemble(ctx, bucket, m, out, WithWorkers(2)); err != nil {
		t.Fatalf("reassemble: %v", err)
	}
	restored, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read restored file: %v", err)
	}
	if !bytes.Equal(restored, data) {
		t.Errorf("restored bytes differ from input")
	}
}

func TestShardExactMultiple(t *testing.T) {
	ctx := context.Background()
	bucket := openMemBucket(t, ctx)

	input := writeTempFile(t, "even.bin", []byte("abcdefgh")) // 8 bytes / 4

	m, err := Shard(ctx, bucket, input, WithChunkSize(4))
	if err != nil {
		t.Fatalf("shard: %v", err)
	}
	if m.ChunkCount != 2 {
		t.Fatalf("chunk count = %d, want 2", m.ChunkCount)
	}
	for i, chunk := range m.Chunks {
		if chunk.Size != 4 {
			t.Errorf("chunk %d size = %d, want 4", i, chunk.Size)
		}
	}
}

func TestShardEmptyFile(t *testing.T) {
	ctx := context.Background()
	bucket := openMemBucket(t, ctx)

	input := writeTempFile(t, "empty.bin", nil)

	m, err := Shard(ctx, bucket, input, WithChunkSize(4))
	if err != nil {
		t.Fatalf("shard: %v", err)
	}
	if m.ChunkCount != 0 || len(m.Chunks) != 0 {
		t.Errorf("chunk count = %d (%d listed), want 0", m.ChunkCount, len(m.Chunks))
	}
	if m.TotalSize != 0 {
		t.Errorf("total size = %d, want 0", m.TotalSize)
	}
	if m.CID == "" {
		t.Error("CID is empty; the identifier is defined even for empty input")
	}

	out := filepath.Join(t.TempDir(), "empty-restored.bin")
	if err := Reassemble(ctx, bucket, m, out); err != nil {
		t.Fatalf("reassemble: %v", err)
	}
	stat, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat restored file: %v", err)
	}
	if stat.Size() != 0 {
		t.Errorf("restored size = %d, want 0", stat.Size())
	}
}

func TestShardManifestWritten(t *testing.T) {
	ctx := context.Background()
	bucket := openMemBucket(t, ctx)

	input := writeTempFile(t, "doc.txt", []byte("hello world"))

	m, err := Shard(ctx, bucket, input, WithChunkSize(4))
	if err != nil {
		t.Fatalf("shard: %v", err)
	}

	raw, err := bucket.ReadAll(ctx, ManifestName(m.OriginalFile))
	if err != nil {
		t.Fatalf("read manifest object: %v", err)
	}
	parsed, err := ParseManifest(raw)
	if err != nil {
		t.Fatalf("parse stored manifest: %v", err)
	}
	if parsed.CID != m.CID {
		t.Errorf("stored CID = %s, want %s", parsed.CID, m.CID)
	}
	if parsed.ChunkCount != m.ChunkCount {
		t.Errorf("stored chunk count = %d, want %d", parsed.ChunkCount, m.ChunkCount)
	}
}

func TestShardInvalidChunkSize(t *testing.T) {
	ctx := context.Background()
	bucket := openMemBucket(t, ctx)

	input := writeTempFile(t, "x.bin", []byte("data"))

	_, err := Shard(ctx, bucket, input, WithChunkSize(0))
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
}

func TestShardMissingInput(t *testing.T) {
	ctx := context.Background()
	bucket := openMemBucket(t, ctx)

	_, err := Shard(ctx, bucket, filepath.Join(t.TempDir(), "nope.bin"))
	var ioErr *IoError
	if !errors.As(err, &ioErr) {
		t.Fatalf("err = %v, want IoError", err)
	}
	if ioErr.Op != "open" {
		t.Errorf("op = %q, want %q", ioErr.Op, "open")
	}
}

func TestShardProgress(t *testing.T) {
	ctx := context.Background()
	bucket := openMemBucket(t, ctx)

	input := writeTempFile(t, "p.bin", bytes.Repeat([]byte("z"), 10))

	var calls atomic.Int32
	var reported atomic.Int64
	_, err := Shard(ctx, bucket, input,
		WithChunkSize(3),
		WithWorkers(4),
		WithProgress(func(_ int, size int64) {
			calls.Add(1)
			reported.Add(size)
		}),
	)
	if err != nil {
		t.Fatalf("shard: %v", err)
	}
	if calls.Load() != 4 {
		t.Errorf("progress calls = %d, want 4", calls.Load())
	}
	if reported.Load() != 10 {
		t.Errorf("progress bytes = %d, want 10", reported.Load())
	}
}

func TestShardChunkSizeIndependentContent(t *testing.T) {
	ctx := context.Background()
	data := bytes.Repeat([]byte("payload-"), 50) // 400 bytes

	restoreWith := func(chunkSize int64) []byte {
		bucket := openMemBucket(t, ctx)
		input := writeTempFile(t, "same.bin", data)
		m, err := Shard(ctx, bucket, input, WithChunkSize(chunkSize))
		if err != nil {
			t.Fatalf("shard with chunk size %d: %v", chunkSize, err)
		}
		out := filepath.Join(t.TempDir(), "restored.bin")
		if err := Reassemble(ctx, bucket, m, out); err != nil {
			t.Fatalf("reassemble with chunk size %d: %v", chunkSize, err)
		}
		restored, err := os.ReadFile(out)
		if err != nil {
			t.Fatalf("read restored file: %v", err)
		}
		return restored
	}

	for _, chunkSize := range []int64{7, 64, 400, 1024} {
		if restored := restoreWith(chunkSize); !bytes.Equal(restored, data) {
			t.Errorf("chunk size %d did not reproduce the input", chunkSize)
		}
	}
}

func TestShardCIDDeterministic(t *testing.T) {
	ctx := context.Background()
	data := bytes.Repeat([]byte("abc"), 100)

	shardOnce := func(name string, chunkSize int64) string {
		bucket := openMemBucket(t, ctx)
		input := writeTempFile(t, name, data)
		m, err := Shard(ctx, bucket, input, WithChunkSize(chunkSize))
		if err != nil {
			t.Fatalf("shard: %v", err)
		}
		return m.CID
	}

	first := shardOnce("det.bin", 64)
	second := shardOnce("det.bin", 64)
	if first != second {
		t.Errorf("same input sharded twice: CIDs differ: %s vs %s", first, second)
	}

	renamed := shardOnce("other.bin", 64)
	if renamed == first {
		t.Errorf("different filename produced the same CID %s", first)
	}

	resized := shardOnce("det.bin", 32)
	if resized == first {
		t.Errorf("different chunk size produced the same CID %s; digest list should differ", first)
	}
}
