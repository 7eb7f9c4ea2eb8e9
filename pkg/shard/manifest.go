package shard

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ipfs/go-cid"
)

// ChunkInfo describes a single chunk file.
type ChunkInfo struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	SHA256   string `json:"sha256"`
}

// Index returns the chunk ordinal encoded in the filename.
func (c ChunkInfo) Index() (int, error) {
	name := strings.TrimSuffix(c.Filename, chunkSuffix)
	name = strings.TrimPrefix(name, chunkPrefix)
	if name == c.Filename || len(name) == 0 {
		return 0, fmt.Errorf("not a chunk filename: %q", c.Filename)
	}
	idx, err := strconv.Atoi(name)
	if err != nil || idx < 0 {
		return 0, fmt.Errorf("not a chunk filename: %q", c.Filename)
	}
	return idx, nil
}

// Digest returns the decoded chunk digest.
func (c ChunkInfo) Digest() ([DigestSize]byte, error) {
	var sum [DigestSize]byte
	raw, err := hex.DecodeString(c.SHA256)
	if err != nil {
		return sum, fmt.Errorf("digest %q: %w", c.SHA256, err)
	}
	if len(raw) != DigestSize {
		return sum, fmt.Errorf("digest %q: %d bytes, want %d", c.SHA256, len(raw), DigestSize)
	}
	copy(sum[:], raw)
	return sum, nil
}

// Manifest describes a sharded file: its chunks, their digests, and its
// content identifier. A manifest is produced once per sharding run and never
// mutated afterwards.
type Manifest struct {
	OriginalFile string      `json:"original_file"`
	TotalSize    int64       `json:"total_size"`
	ChunkSize    int64       `json:"chunk_size,omitempty"`
	ChunkCount   int         `json:"chunk_count"`
	Chunks       []ChunkInfo `json:"chunks"`
	CID          string      `json:"cid"`
}

const (
	chunkPrefix = "chunk_"
	chunkSuffix = ".part"
)

// ChunkFilename returns the deterministic chunk filename for an index,
// e.g. "chunk_000.part".
func ChunkFilename(index int) string {
	return fmt.Sprintf("%s%03d%s", chunkPrefix, index, chunkSuffix)
}

// ManifestName returns the manifest filename for an original file,
// e.g. "photo_metadata.json" for "photo.raw".
func ManifestName(originalFile string) string {
	stem, _, _ := strings.Cut(originalFile, ".")
	if stem == "" {
		stem = "file"
	}
	return stem + "_metadata.json"
}

// Encode serializes the manifest as indented JSON.
func (m *Manifest) Encode() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// Digests returns the chunk digests in index order.
func (m *Manifest) Digests() ([][DigestSize]byte, error) {
	digests := make([][DigestSize]byte, len(m.Chunks))
	for i, c := range m.Chunks {
		sum, err := c.Digest()
		if err != nil {
			return nil, err
		}
		digests[i] = sum
	}
	return digests, nil
}

// manifestJSON mirrors Manifest with pointer fields so that absent required
// fields can be told apart from zero values.
type manifestJSON struct {
	OriginalFile *string     `json:"original_file"`
	TotalSize    *int64      `json:"total_size"`
	ChunkSize    int64       `json:"chunk_size"`
	ChunkCount   *int        `json:"chunk_count"`
	Chunks       []chunkJSON `json:"chunks"`
	CID          *string     `json:"cid"`
}

type chunkJSON struct {
	Filename *string `json:"filename"`
	Size     *int64  `json:"size"`
	SHA256   *string `json:"sha256"`
}

// ParseManifest decodes and fully validates a serialized manifest. It fails
// with a FormatError when a required field is absent or malformed, when the
// declared chunk count does not match the chunk list, or when the chunk
// filenames do not cover exactly the indices 0..chunk_count-1. Chunks listed
// out of index order are re-sorted; array order is never trusted.
//
// All validation happens here, before any chunk I/O: a manifest accepted by
// ParseManifest satisfies every structural invariant the reassembler relies
// on, so reassembly failures can only be integrity or size failures.
func ParseManifest(data []byte) (*Manifest, error) {
	var raw manifestJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &FormatError{Field: "manifest", Reason: err.Error()}
	}

	if raw.OriginalFile == nil || *raw.OriginalFile == "" {
		return nil, &FormatError{Field: "original_file", Reason: "missing"}
	}
	if raw.TotalSize == nil {
		return nil, &FormatError{Field: "total_size", Reason: "missing"}
	}
	if *raw.TotalSize < 0 {
		return nil, &FormatError{Field: "total_size", Reason: "negative"}
	}
	if raw.ChunkCount == nil {
		return nil, &FormatError{Field: "chunk_count", Reason: "missing"}
	}
	if raw.CID == nil || *raw.CID == "" {
		return nil, &FormatError{Field: "cid", Reason: "missing"}
	}
	if _, err := cid.Decode(*raw.CID); err != nil {
		return nil, &FormatError{Field: "cid", Reason: err.Error()}
	}
	if *raw.ChunkCount != len(raw.Chunks) {
		return nil, &FormatError{
			Field:  "chunk_count",
			Reason: fmt.Sprintf("declares %d chunks but list has %d", *raw.ChunkCount, len(raw.Chunks)),
		}
	}
	if raw.ChunkSize < 0 {
		return nil, &FormatError{Field: "chunk_size", Reason: "negative"}
	}

	m := &Manifest{
		OriginalFile: *raw.OriginalFile,
		TotalSize:    *raw.TotalSize,
		ChunkSize:    raw.ChunkSize,
		ChunkCount:   *raw.ChunkCount,
		Chunks:       make([]ChunkInfo, 0, len(raw.Chunks)),
		CID:          *raw.CID,
	}

	seen := make([]bool, len(raw.Chunks))
	indices := make([]int, 0, len(raw.Chunks))
	for i, rc := range raw.Chunks {
		field := fmt.Sprintf("chunks[%d]", i)
		if rc.Filename == nil || *rc.Filename == "" {
			return nil, &FormatError{Field: field + ".filename", Reason: "missing"}
		}
		if rc.Size == nil {
			return nil, &FormatError{Field: field + ".size", Reason: "missing"}
		}
		if *rc.Size <= 0 {
			return nil, &FormatError{Field: field + ".size", Reason: "must be positive"}
		}
		if rc.SHA256 == nil || *rc.SHA256 == "" {
			return nil, &FormatError{Field: field + ".sha256", Reason: "missing"}
		}

		c := ChunkInfo{Filename: *rc.Filename, Size: *rc.Size, SHA256: *rc.SHA256}
		if _, err := c.Digest(); err != nil {
			return nil, &FormatError{Field: field + ".sha256", Reason: err.Error()}
		}
		idx, err := c.Index()
		if err != nil {
			return nil, &FormatError{Field: field + ".filename", Reason: err.Error()}
		}
		if idx >= len(raw.Chunks) {
			return nil, &FormatError{
				Field:  field + ".filename",
				Reason: fmt.Sprintf("index %d out of range for %d chunks", idx, len(raw.Chunks)),
			}
		}
		if seen[idx] {
			return nil, &FormatError{
				Field:  field + ".filename",
				Reason: fmt.Sprintf("duplicate chunk index %d", idx),
			}
		}
		seen[idx] = true
		indices = append(indices, idx)
		m.Chunks = append(m.Chunks, c)
	}
	// seen covers exactly 0..n-1: every index was in range and unique, so a
	// full array means no gaps.

	if !sort.IntsAreSorted(indices) {
		sort.Slice(m.Chunks, func(a, b int) bool {
			ia, _ := m.Chunks[a].Index()
			ib, _ := m.Chunks[b].Index()
			return ia < ib
		})
	}

	var sum int64
	for i, c := range m.Chunks {
		sum += c.Size
		if m.ChunkSize > 0 {
			if i < len(m.Chunks)-1 && c.Size != m.ChunkSize {
				return nil, &FormatError{
					Field:  fmt.Sprintf("chunks[%d].size", i),
					Reason: fmt.Sprintf("interior chunk is %d bytes, want %d", c.Size, m.ChunkSize),
				}
			}
			if c.Size > m.ChunkSize {
				return nil, &FormatError{
					Field:  fmt.Sprintf("chunks[%d].size", i),
					Reason: fmt.Sprintf("chunk is %d bytes, exceeds chunk size %d", c.Size, m.ChunkSize),
				}
			}
		}
	}
	if sum != m.TotalSize {
		return nil, &FormatError{
			Field:  "total_size",
			Reason: fmt.Sprintf("chunk sizes sum to %d, manifest declares %d", sum, m.TotalSize),
		}
	}

	return m, nil
}
