package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/jayyu23/starling-store/internal/config"
	"github.com/jayyu23/starling-store/internal/progress"
	"github.com/jayyu23/starling-store/internal/uploader"
)

// runUpload pushes a local chunk set and its manifest to remote object
// storage. The bucket URL selects the backend (s3://, gs://).
func runUpload(args []string) int {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)

	manifestPath := fs.String("manifest", "", "Path to the manifest file (required)")
	bucketURL := fs.String("bucket", "", "Destination bucket URL, e.g. s3://my-bucket?endpoint=...")
	prefix := fs.String("prefix", "", "Key prefix for uploaded objects")
	workers := fs.Int("workers", 0, "Number of parallel upload workers")
	configPath := fs.String("config", "", "Path to YAML config file")
	showProgress := fs.Bool("progress", false, "Show progress output")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: starling-store upload [options]

Copy every chunk a manifest names, then the manifest itself, to a remote
bucket. The manifest goes last so a remote manifest always describes a
complete chunk set. S3-compatible endpoints work via the bucket URL's
endpoint query parameter.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	cfg, code := loadConfig(*configPath)
	if code != ExitSuccess {
		return code
	}
	cfg = cfg.Merge(config.Config{
		Bucket:   *bucketURL,
		Prefix:   *prefix,
		Workers:  *workers,
		Progress: *showProgress,
	})

	if cfg.Bucket == "" {
		fmt.Fprintln(os.Stderr, "Error: -bucket is required")
		fs.Usage()
		return ExitInvalidArgs
	}

	m, code := loadManifest(*manifestPath, fs)
	if code != ExitSuccess {
		return code
	}

	ctx, cancel := signalContext()
	defer cancel()

	src, err := fileblob.OpenBucket(filepath.Dir(*manifestPath), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening chunk directory: %v\n", err)
		return ExitStorageError
	}
	defer src.Close()

	dst, err := blob.OpenBucket(ctx, cfg.Bucket)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening bucket %s: %v\n", cfg.Bucket, err)
		return ExitStorageError
	}
	defer dst.Close()

	opts := uploader.Options{
		Workers: cfg.Workers,
		Prefix:  cfg.Prefix,
	}

	var reporter *progress.Reporter
	if cfg.Progress {
		reporter = progress.NewReporter(progress.Options{
			Operation:   "Uploading",
			Target:      cfg.Bucket,
			TotalSize:   m.TotalSize,
			TotalChunks: m.ChunkCount,
			Workers:     cfg.Workers,
			ChunkSize:   m.ChunkSize,
		})
		reporter.Start()
		defer reporter.Stop()
		opts.Progress = func(_ string, size int64) {
			reporter.ChunkCompleted(size)
		}
	}

	if err := uploader.Upload(ctx, src, dst, m, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitStorageError
	}
	if reporter != nil {
		reporter.Stop()
	}

	fmt.Printf("Uploaded %d chunks and manifest to %s\n", m.ChunkCount, cfg.Bucket)
	return ExitSuccess
}
