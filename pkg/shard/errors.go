package shard

import "fmt"

// ConfigError reports an invalid sharding parameter. It is returned before any
// I/O is attempted.
type ConfigError struct {
	Param  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("shard: invalid %s: %s", e.Param, e.Reason)
}

// IoError reports a failure to open, read, or write the input file, a chunk
// object, or the manifest.
type IoError struct {
	Op   string // "open", "read", "write", "rename"
	Path string
	Err  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("shard: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// FormatError reports a manifest with a missing or malformed required field,
// or with chunk entries that are not a contiguous run of indices.
type FormatError struct {
	Field  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("shard: manifest field %q: %s", e.Field, e.Reason)
}

// IntegrityError reports a chunk whose computed digest does not match the
// digest recorded in the manifest.
type IntegrityError struct {
	Index    int
	Expected string // hex digest from the manifest
	Actual   string // hex digest of the bytes read
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("shard: chunk %d digest mismatch: expected %s, got %s",
		e.Index, e.Expected, e.Actual)
}

// SizeMismatchError reports a chunk, or the reassembled output, whose byte
// length does not match the manifest. Index is -1 when the total size is the
// mismatch.
type SizeMismatchError struct {
	Index    int
	Expected int64
	Actual   int64
}

func (e *SizeMismatchError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("shard: total size mismatch: expected %d, got %d",
			e.Expected, e.Actual)
	}
	return fmt.Sprintf("shard: chunk %d size mismatch: expected %d, got %d",
		e.Index, e.Expected, e.Actual)
}
