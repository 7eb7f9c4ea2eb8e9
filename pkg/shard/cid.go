package shard

import (
	"encoding/binary"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// BuildCID derives the composite content identifier for a sharded file: a
// CIDv1 with the raw multicodec and a sha2-256 multihash over the UTF-8 bytes
// of the original filename, the big-endian total size, and the chunk digests
// in index order.
//
// The identifier is a pure function of its inputs. Two files shard to the same
// CID exactly when they have the same name, size, and chunk digest sequence.
func BuildCID(originalFile string, totalSize int64, digests [][DigestSize]byte) (string, error) {
	buf := make([]byte, 0, len(originalFile)+8+len(digests)*DigestSize)
	buf = append(buf, originalFile...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(totalSize))
	for i := range digests {
		buf = append(buf, digests[i][:]...)
	}

	sum, err := multihash.Sum(buf, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("shard: multihash: %w", err)
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}
