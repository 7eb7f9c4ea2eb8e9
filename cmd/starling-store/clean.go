package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gocloud.dev/blob/fileblob"

	"github.com/jayyu23/starling-store/pkg/shard"
)

// runClean removes a chunk set and its manifest from the directory holding
// the manifest.
func runClean(args []string) int {
	fs := flag.NewFlagSet("clean", flag.ExitOnError)

	manifestPath := fs.String("manifest", "", "Path to the manifest file (required)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: starling-store clean [options]

Delete every chunk a manifest names, then the manifest itself. Chunks that
are already gone are skipped.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	m, code := loadManifest(*manifestPath, fs)
	if code != ExitSuccess {
		return code
	}

	ctx, cancel := signalContext()
	defer cancel()

	bucket, err := fileblob.OpenBucket(filepath.Dir(*manifestPath), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening chunk directory: %v\n", err)
		return ExitStorageError
	}
	defer bucket.Close()

	if err := shard.Clean(ctx, bucket, m); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCodeForError(err)
	}

	fmt.Printf("Removed %d chunks and manifest for %s\n", m.ChunkCount, m.OriginalFile)
	return ExitSuccess
}
