package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jayyu23/starling-store/pkg/shard"
)

// Exit codes
const (
	ExitSuccess          = 0
	ExitGeneralError     = 1
	ExitInvalidArgs      = 2
	ExitFormatError      = 3
	ExitIntegrityError   = 4
	ExitSizeMismatch     = 5
	ExitStorageError     = 6
	ExitValidationFailed = 7
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "shard":
		return runShard(cmdArgs)
	case "reassemble":
		return runReassemble(cmdArgs)
	case "validate":
		return runValidate(cmdArgs)
	case "upload":
		return runUpload(cmdArgs)
	case "pin":
		return runPin(cmdArgs)
	case "attest":
		return runAttest(cmdArgs)
	case "clean":
		return runClean(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: starling-store <command> [options]

Commands:
  shard       Split a file into content-addressed chunks with a manifest and CID
  reassemble  Rebuild the original file from a manifest and its chunks
  validate    Verify all chunks exist and sizes match the manifest
  upload      Push a chunk set and manifest to remote object storage
  pin         Pin a chunk set and manifest to IPFS via Pinata
  attest      Build a Merkle attestation over chunk digests and image metadata
  clean       Remove a chunk set and its manifest

Run 'starling-store <command> -h' for command-specific help.`)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\n[starling] Received interrupt, shutting down...")
		cancel()
	}()

	return ctx, cancel
}

// exitCodeForError maps core error types to process exit codes.
func exitCodeForError(err error) int {
	var (
		configErr    *shard.ConfigError
		ioErr        *shard.IoError
		formatErr    *shard.FormatError
		integrityErr *shard.IntegrityError
		sizeErr      *shard.SizeMismatchError
	)
	switch {
	case errors.As(err, &configErr):
		return ExitInvalidArgs
	case errors.As(err, &formatErr):
		return ExitFormatError
	case errors.As(err, &integrityErr):
		return ExitIntegrityError
	case errors.As(err, &sizeErr):
		return ExitSizeMismatch
	case errors.As(err, &ioErr):
		return ExitStorageError
	default:
		return ExitGeneralError
	}
}
