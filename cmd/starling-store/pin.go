package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jayyu23/starling-store/internal/pinata"
	"github.com/jayyu23/starling-store/pkg/shard"
)

// runPin pins every chunk a manifest names, then the manifest itself, to
// IPFS via the Pinata API.
func runPin(args []string) int {
	fs := flag.NewFlagSet("pin", flag.ExitOnError)

	manifestPath := fs.String("manifest", "", "Path to the manifest file (required)")
	namePrefix := fs.String("name-prefix", "", "Prefix for pin names")
	configPath := fs.String("config", "", "Path to YAML config file")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: starling-store pin [options]

Pin a chunk set and its manifest to IPFS via Pinata. Credentials come from
PINATA_API_KEY and PINATA_API_SECRET, or the pinata section of the config
file. The manifest is pinned last.

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

	m, code := loadManifest(*manifestPath, fs)
	if code != ExitSuccess {
		return code
	}

	opts := pinata.Options{
		APIKey:    cfg.Pinata.APIKey,
		APISecret: cfg.Pinata.APISecret,
	}
	if opts.APIKey == "" || opts.APISecret == "" {
		envOpts, err := pinata.OptionsFromEnv()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitInvalidArgs
		}
		opts = envOpts
	}

	ctx, cancel := signalContext()
	defer cancel()

	client := pinata.NewClient(opts)
	if err := client.TestAuthentication(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}
	fmt.Println("Pinata authentication OK")

	dir := filepath.Dir(*manifestPath)
	var failed int

	pinOne := func(name string) {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", name, err)
			failed++
			return
		}
		defer f.Close()

		resp, err := client.PinFile(ctx, f, *namePrefix+name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", name, err)
			failed++
			return
		}
		fmt.Printf("  %s -> %s (%d bytes)\n", name, resp.IpfsHash, resp.PinSize)
	}

	fmt.Printf("Pinning %d chunks...\n", m.ChunkCount)
	for _, chunk := range m.Chunks {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "Error: pinning interrupted")
			return ExitGeneralError
		}
		pinOne(chunk.Filename)
	}
	pinOne(shard.ManifestName(m.OriginalFile))

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "Pinning finished with %d failures\n", failed)
		return ExitGeneralError
	}
	fmt.Println("All objects pinned")
	return ExitSuccess
}
