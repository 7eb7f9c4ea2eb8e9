package shard

import (
	"context"
	"os"
	"runtime"
	"sync"

	"gocloud.dev/blob"
)

// Reassemble reconstructs the file described by m from the chunk objects in
// bucket and writes it to outputPath.
//
// Chunks are fetched and verified by a worker pool, but the output bytes are
// written strictly in index order: a lookahead window lets verification of
// chunk N+1 overlap the write of chunk N without buffering an unbounded
// number of chunks. Every chunk's length is checked against its descriptor
// (SizeMismatchError) and its digest against the manifest (IntegrityError)
// before its bytes are written. The first failing chunk aborts the run.
//
// Output goes to a temporary file next to outputPath and is renamed into
// place only after all chunks verified and the accumulated length equals
// m.TotalSize. On any failure the temporary file is removed and nothing is
// left at outputPath.
func Reassemble(ctx context.Context, bucket *blob.Bucket, m *Manifest, outputPath string, options ...Option) error {
	opts := Options{
		Workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	tmpPath := outputPath + ".partial"
	out, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return &IoError{Op: "open", Path: tmpPath, Err: err}
	}

	runErr := reassembleInto(ctx, bucket, m, out, opts)

	if closeErr := out.Close(); runErr == nil && closeErr != nil {
		runErr = &IoError{Op: "write", Path: tmpPath, Err: closeErr}
	}
	if runErr != nil {
		os.Remove(tmpPath)
		return runErr
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return &IoError{Op: "rename", Path: outputPath, Err: err}
	}
	return nil
}

type chunkResult struct {
	index int
	data  []byte
	err   error
}

func reassembleInto(ctx context.Context, bucket *blob.Bucket, m *Manifest, out *os.File, opts Options) error {
	count := len(m.Chunks)
	workers := opts.Workers
	if workers > count {
		workers = count
	}

	var written int64

	if count > 0 {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		// The window bounds how far verification may run ahead of the
		// ordered write: each in-flight or buffered chunk holds one token,
		// released when its bytes hit the file.
		window := make(chan struct{}, workers*2)
		jobs := make(chan int)
		results := make(chan chunkResult)

		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for idx := range jobs {
					r := chunkResult{index: idx}
					r.data, r.err = fetchChunk(ctx, bucket, m.Chunks[idx], idx)
					select {
					case results <- r:
					case <-ctx.Done():
						return
					}
				}
			}()
		}

		go func() {
			defer close(jobs)
			for i := 0; i < count; i++ {
				select {
				case window <- struct{}{}:
				case <-ctx.Done():
					return
				}
				select {
				case jobs <- i:
				case <-ctx.Done():
					return
				}
			}
		}()

		go func() {
			wg.Wait()
			close(results)
		}()

		var firstErr error
		pending := make(map[int][]byte, cap(window))
		next := 0

		for r := range results {
			if firstErr != nil {
				continue
			}
			if r.err != nil {
				firstErr = r.err
				cancel()
				continue
			}
			pending[r.index] = r.data

			for {
				data, ok := pending[next]
				if !ok {
					break
				}
				if _, err := out.Write(data); err != nil {
					firstErr = &IoError{Op: "write", Path: out.Name(), Err: err}
					cancel()
					break
				}
				written += int64(len(data))
				if opts.Progress != nil {
					opts.Progress(next, int64(len(data)))
				}
				delete(pending, next)
				next++
				<-window
			}
		}

		if firstErr != nil {
			return firstErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	if written != m.TotalSize {
		return &SizeMismatchError{Index: -1, Expected: m.TotalSize, Actual: written}
	}
	return nil
}

// fetchChunk reads one chunk and verifies its size and digest against the
// manifest descriptor.
func fetchChunk(ctx context.Context, bucket *blob.Bucket, c ChunkInfo, idx int) ([]byte, error) {
	data, err := bucket.ReadAll(ctx, c.Filename)
	if err != nil {
		return nil, &IoError{Op: "read", Path: c.Filename, Err: err}
	}
	if int64(len(data)) != c.Size {
		return nil, &SizeMismatchError{Index: idx, Expected: c.Size, Actual: int64(len(data))}
	}
	if sum := DigestHex(data); sum != c.SHA256 {
		return nil, &IntegrityError{Index: idx, Expected: c.SHA256, Actual: sum}
	}
	return data, nil
}
