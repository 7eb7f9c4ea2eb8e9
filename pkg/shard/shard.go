package shard

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gocloud.dev/blob"
)

// DefaultChunkSize is the chunk size used when none is configured.
const DefaultChunkSize = 256 * 1024 * 1024

// Options configures sharding and reassembly.
type Options struct {
	ChunkSize int64
	Workers   int
	Progress  ProgressFunc
}

// Option is a functional option for configuring shard operations.
type Option func(*Options)

// WithChunkSize sets the maximum size of each chunk.
func WithChunkSize(size int64) Option {
	return func(o *Options) {
		o.ChunkSize = size
	}
}

// WithWorkers sets the number of parallel chunk workers.
func WithWorkers(n int) Option {
	return func(o *Options) {
		o.Workers = n
	}
}

// ProgressFunc is called after each chunk completes, with the chunk index and
// its size in bytes. Calls may arrive from multiple goroutines.
type ProgressFunc func(index int, size int64)

// WithProgress registers a per-chunk completion callback.
func WithProgress(fn ProgressFunc) Option {
	return func(o *Options) {
		o.Progress = fn
	}
}

// Shard splits the file at inputPath into chunk objects in bucket and writes a
// manifest describing them. Chunks are processed by a bounded worker pool;
// each worker reads its byte window, hashes it, and writes its chunk object
// independently. The composite CID is derived only after every worker has
// finished, then the manifest is written as the final step.
//
// On any failure no manifest is written. Chunk objects written before the
// failure are left in place; cleanup is the caller's responsibility (see
// Clean).
//
// A zero-length input produces a manifest with chunk_count == 0 and an empty
// chunk list. Its CID is still well-defined, over the name and the zero size.
func Shard(ctx context.Context, bucket *blob.Bucket, inputPath string, options ...Option) (*Manifest, error) {
	opts := Options{
		ChunkSize: DefaultChunkSize,
		Workers:   runtime.GOMAXPROCS(0),
	}
	for _, opt := range options {
		opt(&opts)
	}

	if opts.ChunkSize <= 0 {
		return nil, &ConfigError{Param: "chunk size", Reason: "must be positive"}
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return nil, &IoError{Op: "open", Path: inputPath, Err: err}
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, &IoError{Op: "stat", Path: inputPath, Err: err}
	}

	totalSize := stat.Size()
	originalFile := filepath.Base(inputPath)
	chunkCount := int((totalSize + opts.ChunkSize - 1) / opts.ChunkSize)

	// Slot array indexed by chunk number. Each worker writes only its own
	// slot, so no locking is needed; the barrier below makes the writes
	// visible before the slots are read.
	chunks := make([]ChunkInfo, chunkCount)
	digests := make([][DigestSize]byte, chunkCount)

	workers := opts.Workers
	if workers > chunkCount {
		workers = chunkCount
	}

	if chunkCount > 0 {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			firstErr error
		)
		fail := func(err error) {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
				cancel()
			}
			mu.Unlock()
		}

		jobs := make(chan int)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				buf := make([]byte, opts.ChunkSize)
				for idx := range jobs {
					offset := int64(idx) * opts.ChunkSize
					length := opts.ChunkSize
					if offset+length > totalSize {
						length = totalSize - offset
					}

					data := buf[:length]
					n, err := f.ReadAt(data, offset)
					if err != nil && err != io.EOF {
						fail(&IoError{Op: "read", Path: inputPath, Err: err})
						continue
					}
					if n != len(data) {
						// The file shrank between Stat and ReadAt.
						fail(&IoError{Op: "read", Path: inputPath, Err: io.ErrUnexpectedEOF})
						continue
					}

					sum := Digest(data)
					name := ChunkFilename(idx)
					if err := bucket.WriteAll(ctx, name, data, nil); err != nil {
						fail(&IoError{Op: "write", Path: name, Err: err})
						continue
					}

					digests[idx] = sum
					chunks[idx] = ChunkInfo{
						Filename: name,
						Size:     length,
						SHA256:   fmt.Sprintf("%x", sum),
					}
					if opts.Progress != nil {
						opts.Progress(idx, length)
					}
				}
			}()
		}

		go func() {
			defer close(jobs)
			for i := 0; i < chunkCount; i++ {
				select {
				case jobs <- i:
				case <-ctx.Done():
					return
				}
			}
		}()

		// Barrier: the CID is defined over the full ordered digest list, so
		// nothing past this point may run until every worker is done.
		wg.Wait()

		if firstErr != nil {
			return nil, firstErr
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	cidStr, err := BuildCID(originalFile, totalSize, digests)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		OriginalFile: originalFile,
		TotalSize:    totalSize,
		ChunkSize:    opts.ChunkSize,
		ChunkCount:   chunkCount,
		Chunks:       chunks,
		CID:          cidStr,
	}

	data, err := m.Encode()
	if err != nil {
		return nil, fmt.Errorf("shard: encode manifest: %w", err)
	}
	name := ManifestName(originalFile)
	if err := bucket.WriteAll(ctx, name, data, nil); err != nil {
		return nil, &IoError{Op: "write", Path: name, Err: err}
	}

	return m, nil
}
