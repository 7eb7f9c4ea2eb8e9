package shard

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gocloud.dev/blob"
)

// shardSample shards a 10-byte file into chunks of 4 and returns the bucket
// and manifest for corruption scenarios.
func shardSample(t *testing.T, ctx context.Context) (*blob.Bucket, *Manifest) {
	t.Helper()
	bucket := openMemBucket(t, ctx)
	input := writeTempFile(t, "sample.bin", []byte("0123456789"))
	m, err := Shard(ctx, bucket, input, WithChunkSize(4))
	if err != nil {
		t.Fatalf("shard: %v", err)
	}
	return bucket, m
}

func TestReassembleTamperedChunk(t *testing.T) {
	ctx := context.Background()
	bucket, m := shardSample(t, ctx)

	// Same length, different bytes: only the digest check can catch this.
	if err := bucket.WriteAll(ctx, m.Chunks[1].Filename, []byte("XXXX"), nil); err != nil {
		t.Fatalf("corrupt chunk: %v", err)
	}

	out := filepath.Join(t.TempDir(), "out.bin")
	err := Reassemble(ctx, bucket, m, out)

	var intErr *IntegrityError
	if !errors.As(err, &intErr) {
		t.Fatalf("err = %v, want IntegrityError", err)
	}
	if intErr.Index != 1 {
		t.Errorf("failing index = %d, want 1", intErr.Index)
	}
	assertNoOutput(t, out)
}

func TestReassembleTruncatedChunk(t *testing.T) {
	ctx := context.Background()
	bucket, m := shardSample(t, ctx)

	if err := bucket.WriteAll(ctx, m.Chunks[0].Filename, []byte("01"), nil); err != nil {
		t.Fatalf("truncate chunk: %v", err)
	}

	out := filepath.Join(t.TempDir(), "out.bin")
	err := Reassemble(ctx, bucket, m, out)

	var sizeErr *SizeMismatchError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("err = %v, want SizeMismatchError", err)
	}
	if sizeErr.Index != 0 {
		t.Errorf("failing index = %d, want 0", sizeErr.Index)
	}
	if sizeErr.Expected != 4 || sizeErr.Actual != 2 {
		t.Errorf("sizes = expected %d actual %d, want 4 and 2", sizeErr.Expected, sizeErr.Actual)
	}
	assertNoOutput(t, out)
}

func TestReassembleMissingChunk(t *testing.T) {
	ctx := context.Background()
	bucket, m := shardSample(t, ctx)

	if err := bucket.Delete(ctx, m.Chunks[2].Filename); err != nil {
		t.Fatalf("delete chunk: %v", err)
	}

	out := filepath.Join(t.TempDir(), "out.bin")
	err := Reassemble(ctx, bucket, m, out)

	var ioErr *IoError
	if !errors.As(err, &ioErr) {
		t.Fatalf("err = %v, want IoError", err)
	}
	assertNoOutput(t, out)
}

func TestReassembleOrderWithManyWorkers(t *testing.T) {
	ctx := context.Background()
	bucket := openMemBucket(t, ctx)

	// Enough chunks that out-of-order verification is all but certain.
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i)
	}
	input := writeTempFile(t, "big.bin", data)

	m, err := Shard(ctx, bucket, input, WithChunkSize(64), WithWorkers(8))
	if err != nil {
		t.Fatalf("shard: %v", err)
	}

	out := filepath.Join(t.TempDir(), "big-restored.bin")
	if err := Reassemble(ctx, bucket, m, out, WithWorkers(8)); err != nil {
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

func TestReassembleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bucket, m := shardSample(t, ctx)
	cancel()

	out := filepath.Join(t.TempDir(), "out.bin")
	err := Reassemble(ctx, bucket, m, out)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	assertNoOutput(t, out)
}

// assertNoOutput checks that a failed reassembly left nothing behind, neither
// the final file nor the temporary.
func assertNoOutput(t *testing.T, out string) {
	t.Helper()
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output file exists after failed reassembly: %v", err)
	}
	if _, err := os.Stat(out + ".partial"); !os.IsNotExist(err) {
		t.Errorf("partial file left behind after failed reassembly: %v", err)
	}
}
