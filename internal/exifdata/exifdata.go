// Package exifdata extracts EXIF metadata from JPEG images for attestation.
//
// Two views of the metadata are provided: the raw APP1 payload, byte-exact as
// it appears in the file, and decoded tag strings suitable as Merkle leaves.
package exifdata

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// ErrNotJPEG is returned when the input does not start with a JPEG SOI marker.
var ErrNotJPEG = errors.New("exifdata: not a JPEG")

// ErrNoExif is returned when the image has no EXIF APP1 segment.
var ErrNoExif = errors.New("exifdata: no EXIF segment")

const (
	markerSOI  = 0xD8
	markerAPP1 = 0xE1
	markerSOS  = 0xDA
)

var exifHeader = []byte("Exif\x00\x00")

// ExtractBlob returns the raw EXIF payload of a JPEG stream: the APP1 segment
// body including the "Exif\0\0" header, excluding the JPEG marker bytes.
func ExtractBlob(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)

	var marker [2]byte
	if _, err := io.ReadFull(br, marker[:]); err != nil {
		return nil, fmt.Errorf("exifdata: read SOI: %w", err)
	}
	if marker[0] != 0xFF || marker[1] != markerSOI {
		return nil, ErrNotJPEG
	}

	for {
		if _, err := io.ReadFull(br, marker[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, ErrNoExif
			}
			return nil, fmt.Errorf("exifdata: read marker: %w", err)
		}
		if marker[0] != 0xFF {
			return nil, fmt.Errorf("exifdata: invalid marker byte 0x%02x", marker[0])
		}
		// Entropy-coded data follows SOS; no EXIF past that point.
		if marker[1] == markerSOS {
			return nil, ErrNoExif
		}

		var lenBuf [2]byte
		if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
			return nil, fmt.Errorf("exifdata: read segment length: %w", err)
		}
		segLen := int(binary.BigEndian.Uint16(lenBuf[:]))
		if segLen < 2 {
			return nil, fmt.Errorf("exifdata: invalid segment length %d", segLen)
		}
		body := make([]byte, segLen-2)
		if _, err := io.ReadFull(br, body); err != nil {
			return nil, fmt.Errorf("exifdata: read segment: %w", err)
		}

		if marker[1] == markerAPP1 && bytes.HasPrefix(body, exifHeader) {
			return body, nil
		}
	}
}

// ExtractBlobFile is ExtractBlob over a file path.
func ExtractBlobFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ExtractBlob(f)
}

// tagCollector accumulates decoded fields during an EXIF walk.
type tagCollector struct {
	entries []string
}

func (c *tagCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	c.entries = append(c.entries, fmt.Sprintf("%s: %s", name, tag.String()))
	return nil
}

// TagLeaves decodes the EXIF fields of an image and returns one "Name: value"
// entry per tag, sorted by tag name so the leaf order is deterministic.
func TagLeaves(r io.Reader) ([][]byte, error) {
	x, err := exif.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("exifdata: decode: %w", err)
	}

	var c tagCollector
	if err := x.Walk(&c); err != nil {
		return nil, fmt.Errorf("exifdata: walk: %w", err)
	}
	sort.Strings(c.entries)

	leaves := make([][]byte, len(c.entries))
	for i, e := range c.entries {
		leaves[i] = []byte(e)
	}
	return leaves, nil
}

// TagLeavesFile is TagLeaves over a file path.
func TagLeavesFile(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return TagLeaves(f)
}
