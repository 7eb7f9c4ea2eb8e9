package shard

import (
	"errors"
	"strings"
	"testing"
)

func TestChunkFilename(t *testing.T) {
	cases := []struct {
		index int
		want  string
	}{
		{0, "chunk_000.part"},
		{7, "chunk_007.part"},
		{42, "chunk_042.part"},
		{999, "chunk_999.part"},
		{1000, "chunk_1000.part"},
	}
	for _, tc := range cases {
		if got := ChunkFilename(tc.index); got != tc.want {
			t.Errorf("ChunkFilename(%d) = %q, want %q", tc.index, got, tc.want)
		}
	}
}

func TestChunkInfoIndex(t *testing.T) {
	cases := []struct {
		filename string
		want     int
		wantErr  bool
	}{
		{"chunk_000.part", 0, false},
		{"chunk_012.part", 12, false},
		{"chunk_1000.part", 1000, false},
		{"chunk_.part", 0, true},
		{"chunk_abc.part", 0, true},
		{"notachunk", 0, true},
		{"chunk_000", 0, true},
	}
	for _, tc := range cases {
		got, err := ChunkInfo{Filename: tc.filename}.Index()
		if tc.wantErr {
			if err == nil {
				t.Errorf("Index(%q) = %d, want error", tc.filename, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Index(%q): %v", tc.filename, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Index(%q) = %d, want %d", tc.filename, got, tc.want)
		}
	}
}

func TestManifestName(t *testing.T) {
	cases := []struct {
		file string
		want string
	}{
		{"photo.raw", "photo_metadata.json"},
		{"archive.tar.gz", "archive_metadata.json"},
		{"noext", "noext_metadata.json"},
		{".hidden", "file_metadata.json"},
	}
	for _, tc := range cases {
		if got := ManifestName(tc.file); got != tc.want {
			t.Errorf("ManifestName(%q) = %q, want %q", tc.file, got, tc.want)
		}
	}
}

const validManifest = `{
  "original_file": "sample.bin",
  "total_size": 10,
  "chunk_size": 4,
  "chunk_count": 3,
  "chunks": [
    {"filename": "chunk_000.part", "size": 4, "sha256": "1be2e452b46d7a0d9656bbb1f768e8248eba1b75baed65f5d99eafa948899a6a"},
    {"filename": "chunk_001.part", "size": 4, "sha256": "db2e7f1bd5ab9968ae76199b7cc74795ca7404d5a08d78567715ce532f9d2669"},
    {"filename": "chunk_002.part", "size": 2, "sha256": "cd70bea023f752a0564abb6ed08d42c1440f2e33e29914e55e0be1595e24f45a"}
  ],
  "cid": "bafkreifdrpir6jzrycx3uzci4ljo7bvbvrny6mf2j3xlph5wohasrpv52a"
}`

func TestParseManifestValid(t *testing.T) {
	m, err := ParseManifest([]byte(validManifest))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.OriginalFile != "sample.bin" {
		t.Errorf("original file = %q", m.OriginalFile)
	}
	if m.TotalSize != 10 || m.ChunkCount != 3 || m.ChunkSize != 4 {
		t.Errorf("sizes = total %d, count %d, chunk %d", m.TotalSize, m.ChunkCount, m.ChunkSize)
	}
	if len(m.Chunks) != 3 {
		t.Fatalf("chunks listed = %d, want 3", len(m.Chunks))
	}
	for i, c := range m.Chunks {
		if c.Filename != ChunkFilename(i) {
			t.Errorf("chunk %d filename = %q, want %q", i, c.Filename, ChunkFilename(i))
		}
	}
}

func TestParseManifestReordersChunks(t *testing.T) {
	// Same manifest with the chunk list reversed; array order is untrusted.
	reordered := strings.Replace(validManifest, `    {"filename": "chunk_000.part", "size": 4, "sha256": "1be2e452b46d7a0d9656bbb1f768e8248eba1b75baed65f5d99eafa948899a6a"},
    {"filename": "chunk_001.part", "size": 4, "sha256": "db2e7f1bd5ab9968ae76199b7cc74795ca7404d5a08d78567715ce532f9d2669"},
    {"filename": "chunk_002.part", "size": 2, "sha256": "cd70bea023f752a0564abb6ed08d42c1440f2e33e29914e55e0be1595e24f45a"}`,
		`    {"filename": "chunk_002.part", "size": 2, "sha256": "cd70bea023f752a0564abb6ed08d42c1440f2e33e29914e55e0be1595e24f45a"},
    {"filename": "chunk_001.part", "size": 4, "sha256": "db2e7f1bd5ab9968ae76199b7cc74795ca7404d5a08d78567715ce532f9d2669"},
    {"filename": "chunk_000.part", "size": 4, "sha256": "1be2e452b46d7a0d9656bbb1f768e8248eba1b75baed65f5d99eafa948899a6a"}`, 1)

	m, err := ParseManifest([]byte(reordered))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for i, c := range m.Chunks {
		idx, err := c.Index()
		if err != nil {
			t.Fatalf("chunk %d index: %v", i, err)
		}
		if idx != i {
			t.Errorf("position %d holds chunk index %d after parse", i, idx)
		}
	}
}

func TestParseManifestRejects(t *testing.T) {
	mutate := func(old, new string) string {
		s := strings.Replace(validManifest, old, new, 1)
		if s == validManifest {
			t.Fatalf("mutation %q not applied", new)
		}
		return s
	}

	cases := []struct {
		name  string
		input string
		field string
	}{
		{
			name:  "not json",
			input: "{",
			field: "manifest",
		},
		{
			name:  "missing original_file",
			input: mutate(`"original_file": "sample.bin",`, ``),
			field: "original_file",
		},
		{
			name:  "missing total_size",
			input: mutate(`"total_size": 10,`, ``),
			field: "total_size",
		},
		{
			name:  "negative total_size",
			input: mutate(`"total_size": 10,`, `"total_size": -1,`),
			field: "total_size",
		},
		{
			name:  "missing chunk_count",
			input: mutate(`"chunk_count": 3,`, ``),
			field: "chunk_count",
		},
		{
			name:  "count does not match list",
			input: mutate(`"chunk_count": 3,`, `"chunk_count": 2,`),
			field: "chunk_count",
		},
		{
			name:  "missing cid",
			input: mutate(`"cid": "bafkreifdrpir6jzrycx3uzci4ljo7bvbvrny6mf2j3xlph5wohasrpv52a"`, `"cid": ""`),
			field: "cid",
		},
		{
			name:  "malformed cid",
			input: mutate(`"cid": "bafkreifdrpir6jzrycx3uzci4ljo7bvbvrny6mf2j3xlph5wohasrpv52a"`, `"cid": "not-a-cid"`),
			field: "cid",
		},
		{
			name:  "missing chunk filename",
			input: mutate(`"filename": "chunk_001.part", `, ``),
			field: "chunks[1].filename",
		},
		{
			name:  "duplicate chunk index",
			input: mutate(`"filename": "chunk_001.part"`, `"filename": "chunk_000.part"`),
			field: "chunks[1].filename",
		},
		{
			name:  "index out of range",
			input: mutate(`"filename": "chunk_002.part"`, `"filename": "chunk_007.part"`),
			field: "chunks[2].filename",
		},
		{
			name:  "non-chunk filename",
			input: mutate(`"filename": "chunk_001.part"`, `"filename": "blob.dat"`),
			field: "chunks[1].filename",
		},
		{
			name:  "bad digest hex",
			input: mutate(`"sha256": "db2e7f1bd5ab9968ae76199b7cc74795ca7404d5a08d78567715ce532f9d2669"`, `"sha256": "zzzz"`),
			field: "chunks[1].sha256",
		},
		{
			name:  "zero chunk size entry",
			input: mutate(`"size": 2,`, `"size": 0,`),
			field: "chunks[2].size",
		},
		{
			name:  "sizes do not sum to total",
			input: mutate(`"total_size": 10,`, `"total_size": 11,`),
			field: "total_size",
		},
		{
			name:  "interior chunk not full",
			input: mutate(`{"filename": "chunk_000.part", "size": 4,`, `{"filename": "chunk_000.part", "size": 3,`),
			field: "chunks[0].size",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tc.input))
			var fmtErr *FormatError
			if !errors.As(err, &fmtErr) {
				t.Fatalf("err = %v, want FormatError", err)
			}
			if fmtErr.Field != tc.field {
				t.Errorf("field = %q, want %q", fmtErr.Field, tc.field)
			}
		})
	}
}

func TestManifestEncodeParseRoundTrip(t *testing.T) {
	orig, err := ParseManifest([]byte(validManifest))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	data, err := orig.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	again, err := ParseManifest(data)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if again.CID != orig.CID || again.TotalSize != orig.TotalSize || len(again.Chunks) != len(orig.Chunks) {
		t.Errorf("round trip changed the manifest")
	}
}
