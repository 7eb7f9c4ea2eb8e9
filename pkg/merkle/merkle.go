// Package merkle builds binary SHA-256 Merkle trees over ordered byte leaves
// and verifies data sets against a previously computed root.
//
// Trees are used to attest chunk digest sets and extracted image metadata: the
// root commits to every leaf in order, so any mutation, reordering, insertion,
// or removal of a leaf changes the root. A level with an odd node count pairs
// its last node with itself.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"os"
)

// Node is one node of a Merkle tree. Leaves have nil children.
type Node struct {
	Hash  []byte `json:"hash"`
	Left  *Node  `json:"left,omitempty"`
	Right *Node  `json:"right,omitempty"`
}

// ErrNoLeaves is returned by Build when the leaf set is empty.
var ErrNoLeaves = errors.New("merkle: no leaves")

// NewLeaf returns a leaf node hashing the given data.
func NewLeaf(data []byte) *Node {
	sum := sha256.Sum256(data)
	return &Node{Hash: sum[:]}
}

// NewParent returns an interior node hashing the concatenation of the child
// hashes.
func NewParent(left, right *Node) *Node {
	h := sha256.New()
	h.Write(left.Hash)
	h.Write(right.Hash)
	return &Node{Hash: h.Sum(nil), Left: left, Right: right}
}

// Build constructs a Merkle tree over the leaves in order and returns its
// root.
func Build(leaves [][]byte) (*Node, error) {
	if len(leaves) == 0 {
		return nil, ErrNoLeaves
	}

	nodes := make([]*Node, len(leaves))
	for i, data := range leaves {
		nodes[i] = NewLeaf(data)
	}

	for len(nodes) > 1 {
		next := make([]*Node, 0, (len(nodes)+1)/2)
		for i := 0; i < len(nodes); i += 2 {
			if i+1 < len(nodes) {
				next = append(next, NewParent(nodes[i], nodes[i+1]))
			} else {
				// Odd node count: pair the last node with itself.
				next = append(next, NewParent(nodes[i], nodes[i]))
			}
		}
		nodes = next
	}

	return nodes[0], nil
}

// Verify reports whether the leaves reproduce this root.
func (n *Node) Verify(leaves [][]byte) bool {
	root, err := Build(leaves)
	if err != nil {
		return false
	}
	return bytes.Equal(n.Hash, root.Hash)
}

// SaveFile writes the tree to a file as indented JSON.
func (n *Node) SaveFile(path string) error {
	data, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadFile reads a tree previously written by SaveFile.
func LoadFile(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}
