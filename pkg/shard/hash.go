package shard

import (
	"crypto/sha256"
	"encoding/hex"
)

// DigestSize is the byte length of a chunk digest.
const DigestSize = sha256.Size

// Digest computes the SHA-256 digest of a chunk buffer.
func Digest(data []byte) [DigestSize]byte {
	return sha256.Sum256(data)
}

// DigestHex computes the SHA-256 digest of a chunk buffer and returns it
// hex-encoded, as stored in the manifest.
func DigestHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
