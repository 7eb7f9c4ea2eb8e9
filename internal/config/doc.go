// Package config defines configuration structures for the starling-store CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (STARLING_ prefix; PINATA_ for pinning credentials)
//   - YAML configuration file
package config
