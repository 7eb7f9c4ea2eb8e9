package main

import (
	"flag"
	"fmt"
	"os"

	"gocloud.dev/blob/fileblob"

	"github.com/jayyu23/starling-store/internal/config"
	"github.com/jayyu23/starling-store/internal/progress"
	"github.com/jayyu23/starling-store/pkg/shard"
)

// runShard splits an input file into content-addressed chunks in an output
// directory and writes the manifest with the composite CID.
func runShard(args []string) int {
	fs := flag.NewFlagSet("shard", flag.ExitOnError)

	input := fs.String("input", "", "Input file to shard (required)")
	output := fs.String("output", "", "Output directory for chunks and manifest")
	chunkSize := fs.String("chunk-size", "", "Maximum size of each chunk (default 256MB)")
	workers := fs.Int("workers", 0, "Number of parallel chunk workers")
	configPath := fs.String("config", "", "Path to YAML config file")
	showProgress := fs.Bool("progress", false, "Show progress output")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: starling-store shard [options]

Split a file into fixed-size chunks, hash each chunk, derive the composite
content identifier, and write a manifest alongside the chunks.

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

	override := config.Config{
		InputPath: *input,
		OutputDir: *output,
		Workers:   *workers,
		Progress:  *showProgress,
	}
	if *chunkSize != "" {
		size, err := progress.ParseBytes(*chunkSize)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid chunk size: %v\n", err)
			return ExitInvalidArgs
		}
		override.ChunkSize = size
	}
	cfg = cfg.Merge(override)

	if cfg.InputPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -input is required")
		fs.Usage()
		return ExitInvalidArgs
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	ctx, cancel := signalContext()
	defer cancel()

	bucket, err := fileblob.OpenBucket(cfg.OutputDir, &fileblob.Options{CreateDir: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening output directory: %v\n", err)
		return ExitStorageError
	}
	defer bucket.Close()

	opts := []shard.Option{
		shard.WithChunkSize(cfg.ChunkSize),
		shard.WithWorkers(cfg.Workers),
	}

	var reporter *progress.Reporter
	if cfg.Progress {
		stat, err := os.Stat(cfg.InputPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitStorageError
		}
		totalChunks := int((stat.Size() + cfg.ChunkSize - 1) / cfg.ChunkSize)
		reporter = progress.NewReporter(progress.Options{
			Operation:   "Sharding",
			Target:      cfg.InputPath,
			TotalSize:   stat.Size(),
			TotalChunks: totalChunks,
			Workers:     cfg.Workers,
			ChunkSize:   cfg.ChunkSize,
		})
		reporter.Start()
		defer reporter.Stop()
		opts = append(opts, shard.WithProgress(func(_ int, size int64) {
			reporter.ChunkCompleted(size)
		}))
	}

	m, err := shard.Shard(ctx, bucket, cfg.InputPath, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCodeForError(err)
	}
	if reporter != nil {
		reporter.Stop()
	}

	fmt.Printf("Original file: %s\n", m.OriginalFile)
	fmt.Printf("Total size: %d bytes\n", m.TotalSize)
	fmt.Printf("Chunks created: %d\n", m.ChunkCount)
	fmt.Printf("CID: %s\n", m.CID)
	for i, chunk := range m.Chunks {
		fmt.Printf("  %d: %s (%d bytes, sha256: %s...)\n",
			i, chunk.Filename, chunk.Size, chunk.SHA256[:8])
	}

	return ExitSuccess
}

// loadConfig builds the effective configuration from defaults, an optional
// YAML file, and the environment.
func loadConfig(path string) (config.Config, int) {
	cfg := config.Default()
	if path != "" {
		fileCfg, err := config.LoadFromFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return cfg, ExitInvalidArgs
		}
		cfg = fileCfg
	}
	if err := cfg.LoadFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cfg, ExitInvalidArgs
	}
	return cfg, ExitSuccess
}
