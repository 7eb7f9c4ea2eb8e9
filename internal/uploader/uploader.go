// Package uploader pushes completed chunk sets to remote object storage.
//
// The chunk files and manifest are treated as opaque blobs: the uploader
// copies every object the manifest names from a local bucket to a destination
// bucket (S3-compatible endpoints, GCS) using a bounded worker pool. It never
// inspects chunk bytes; integrity is the core's job.
package uploader

import (
	"context"
	"fmt"
	"sync"

	"gocloud.dev/blob"

	"github.com/jayyu23/starling-store/pkg/shard"
)

// Options configures the uploader.
type Options struct {
	// Workers is the number of parallel upload workers.
	// Default: 8
	Workers int

	// Prefix is prepended to every destination object key.
	Prefix string

	// MaxConsecutiveFailures is the number of consecutive chunk failures
	// before the circuit breaker trips and stops the upload.
	// Default: 10
	MaxConsecutiveFailures int

	// Progress is called after each object uploads, with the object key and
	// its size. Calls may arrive from multiple goroutines.
	Progress func(key string, size int64)
}

// FailedObject records an object that failed to upload.
type FailedObject struct {
	Key   string
	Error error
}

// CircuitBreakerError is returned when too many consecutive failures occur.
// Use errors.As to extract it and inspect Failed for details.
type CircuitBreakerError struct {
	ConsecutiveFailures int
	Failed              []FailedObject
}

func (e *CircuitBreakerError) Error() string {
	return fmt.Sprintf("uploader: circuit breaker tripped: %d consecutive failures",
		e.ConsecutiveFailures)
}

// Upload copies every chunk object named by the manifest, plus the manifest
// itself, from src to dst. Chunks upload in parallel; the manifest uploads
// last, only after every chunk succeeded, so a manifest in the destination
// always describes a complete chunk set.
func Upload(ctx context.Context, src, dst *blob.Bucket, m *shard.Manifest, opts Options) error {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.MaxConsecutiveFailures <= 0 {
		opts.MaxConsecutiveFailures = 10
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu                  sync.Mutex
		consecutiveFailures int
		failed              []FailedObject
		tripped             bool
	)

	jobs := make(chan string)
	var wg sync.WaitGroup

	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range jobs {
				err := copyObject(ctx, src, dst, key, opts)

				mu.Lock()
				if err != nil {
					consecutiveFailures++
					failed = append(failed, FailedObject{Key: key, Error: err})
					if consecutiveFailures >= opts.MaxConsecutiveFailures {
						tripped = true
						cancel()
					}
				} else {
					consecutiveFailures = 0
				}
				done := tripped
				mu.Unlock()

				if done {
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, chunk := range m.Chunks {
			select {
			case jobs <- chunk.Filename:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if tripped {
		return &CircuitBreakerError{
			ConsecutiveFailures: consecutiveFailures,
			Failed:              failed,
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("uploader: %s: %w", failed[0].Key, failed[0].Error)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// All chunks are in place; the manifest goes last.
	return copyObject(ctx, src, dst, shard.ManifestName(m.OriginalFile), opts)
}

// copyObject streams one object from src to dst under the configured prefix.
func copyObject(ctx context.Context, src, dst *blob.Bucket, key string, opts Options) error {
	r, err := src.NewReader(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("open %s: %w", key, err)
	}
	defer r.Close()

	dstKey := opts.Prefix + key
	w, err := dst.NewWriter(ctx, dstKey, nil)
	if err != nil {
		return fmt.Errorf("create %s: %w", dstKey, err)
	}

	size, err := w.ReadFrom(r)
	if err != nil {
		w.Close()
		return fmt.Errorf("copy %s: %w", dstKey, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("commit %s: %w", dstKey, err)
	}

	if opts.Progress != nil {
		opts.Progress(dstKey, size)
	}
	return nil
}
