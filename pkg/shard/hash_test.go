package shard

import (
	"fmt"
	"testing"
)

func TestDigestHex(t *testing.T) {
	// Well-known SHA-256 vectors.
	cases := []struct {
		input string
		want  string
	}{
		{"", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}
	for _, tc := range cases {
		if got := DigestHex([]byte(tc.input)); got != tc.want {
			t.Errorf("DigestHex(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestDigestMatchesHex(t *testing.T) {
	data := []byte("chunk payload")
	sum := Digest(data)
	if got := DigestHex(data); got != fmt.Sprintf("%x", sum) {
		t.Errorf("Digest and DigestHex disagree: %x vs %s", sum, got)
	}
}
