package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gocloud.dev/blob/fileblob"

	"github.com/jayyu23/starling-store/pkg/shard"
)

// runValidate checks that every chunk the manifest names exists with the
// declared size. Metadata only; reassemble to verify content digests.
func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)

	manifestPath := fs.String("manifest", "", "Path to the manifest file (required)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: starling-store validate [options]

Check that every chunk named by a manifest exists next to it with the
declared size. Exits 0 when the chunk set is complete, 7 otherwise.

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

	result, err := shard.Validate(ctx, bucket, m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCodeForError(err)
	}

	fmt.Printf("Manifest: %s\n", *manifestPath)
	fmt.Printf("Original file: %s\n", m.OriginalFile)
	fmt.Printf("Total size: %d bytes\n", result.TotalSize)
	fmt.Printf("Chunks: %d\n", result.ChunkCount)

	if result.Valid {
		fmt.Println("Status: OK")
		return ExitSuccess
	}

	fmt.Printf("Status: INVALID (%d missing, %d size mismatches)\n",
		result.MissingChunks, result.SizeMismatches)
	for _, msg := range result.Errors {
		fmt.Printf("  %s\n", msg)
	}
	return ExitValidationFailed
}
