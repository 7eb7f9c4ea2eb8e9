// Package progress provides human-readable progress reporting and byte-size
// parsing/formatting for the CLI.
package progress
