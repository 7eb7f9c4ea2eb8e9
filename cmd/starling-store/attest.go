package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/jayyu23/starling-store/internal/exifdata"
	"github.com/jayyu23/starling-store/pkg/merkle"
)

// runAttest builds a Merkle tree over the chunk digests of a manifest,
// optionally extended with EXIF tag leaves from a source image, and prints
// the root hash.
func runAttest(args []string) int {
	fs := flag.NewFlagSet("attest", flag.ExitOnError)

	manifestPath := fs.String("manifest", "", "Path to the manifest file (required)")
	imagePath := fs.String("image", "", "JPEG image whose EXIF tags extend the leaf set")
	outPath := fs.String("out", "", "Write the full attestation tree to this file as JSON")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: starling-store attest [options]

Build a Merkle attestation over the chunk digests of a manifest. With -image,
the decoded EXIF tags of a JPEG are appended as additional leaves, committing
the capture metadata alongside the content. Prints the root hash in hex.

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

	digests, err := m.Digests()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCodeForError(err)
	}

	leaves := make([][]byte, 0, len(digests))
	for i := range digests {
		d := digests[i]
		leaves = append(leaves, d[:])
	}

	if *imagePath != "" {
		tagLeaves, err := exifdata.TagLeavesFile(*imagePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitGeneralError
		}
		leaves = append(leaves, tagLeaves...)
		fmt.Printf("EXIF leaves: %d\n", len(tagLeaves))
	}

	root, err := merkle.Build(leaves)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}

	fmt.Printf("Chunk leaves: %d\n", len(digests))
	fmt.Printf("Merkle root: %s\n", hex.EncodeToString(root.Hash))

	if *outPath != "" {
		if err := root.SaveFile(*outPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing attestation: %v\n", err)
			return ExitStorageError
		}
		fmt.Printf("Attestation written: %s\n", *outPath)
	}

	return ExitSuccess
}
