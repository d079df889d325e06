// Package merkle provides the merkle tree used to commit to the transactions
// sealed into a block and to produce inclusion proofs for them.
//
// Leaves and interior nodes are hashed with distinct one byte prefixes. A node
// without a sibling is promoted to the next level unchanged instead of being
// paired with a copy of itself. The published root also commits to the number
// of leaves, so two different transaction lists can never share a root.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/ardanlabs/chainsim/foundation/blockchain/hashing"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Set of errors returned by the package.
var (
	ErrNoContent    = errors.New("cannot construct tree with no content")
	ErrOutOfRange   = errors.New("leaf index out of range")
	ErrProofInvalid = errors.New("proof does not match root")
)

const (
	leafPrefix byte = 0x00
	nodePrefix byte = 0x01
)

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree.
type Hashable interface {
	Hash() ([]byte, error)
}

// =============================================================================

// Step is one sibling hash on the path from a leaf to the tree root. Left
// reports whether the sibling sits to the left of the running hash.
type Step struct {
	Hash string `json:"hash"`
	Left bool   `json:"left"`
}

// Proof shows that a leaf at a given index belongs to a tree of Count leaves.
type Proof struct {
	Index int    `json:"index"`
	Count int    `json:"count"`
	Steps []Step `json:"steps"`
}

// =============================================================================

// Tree holds the hashed levels of a merkle tree. Level zero holds the leaf
// hashes and the last level holds the single top node.
type Tree[T Hashable] struct {
	values []T
	levels [][][]byte
	root   []byte
}

// NewTree constructs a merkle tree over the specified values.
func NewTree[T Hashable](values []T) (*Tree[T], error) {
	if len(values) == 0 {
		return nil, ErrNoContent
	}

	leafs := make([][]byte, len(values))
	for i, value := range values {
		h, err := value.Hash()
		if err != nil {
			return nil, fmt.Errorf("hashing leaf %d: %w", i, err)
		}
		leafs[i] = leafHash(h)
	}

	levels := [][][]byte{leafs}
	for level := leafs; len(level) > 1; {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, nodeHash(level[i], level[i+1]))
		}
		levels = append(levels, next)
		level = next
	}

	top := levels[len(levels)-1][0]

	t := Tree[T]{
		values: values,
		levels: levels,
		root:   commit(len(values), top),
	}

	return &t, nil
}

// Len returns the number of leaves in the tree.
func (t *Tree[T]) Len() int {
	return len(t.values)
}

// Values returns the values the tree was built from.
func (t *Tree[T]) Values() []T {
	return t.values
}

// Root returns the root of the tree, including the leaf count commitment.
func (t *Tree[T]) Root() []byte {
	return t.root
}

// RootHex returns the hex encoded root of the tree.
func (t *Tree[T]) RootHex() string {
	return hexutil.Encode(t.root)
}

// Proof returns the sibling path for the leaf at the specified index.
func (t *Tree[T]) Proof(index int) (Proof, error) {
	if index < 0 || index >= len(t.values) {
		return Proof{}, ErrOutOfRange
	}

	steps := []Step{}
	idx := index
	for _, level := range t.levels[:len(t.levels)-1] {
		switch {
		case idx%2 == 1:
			steps = append(steps, Step{Hash: hexutil.Encode(level[idx-1]), Left: true})
		case idx+1 < len(level):
			steps = append(steps, Step{Hash: hexutil.Encode(level[idx+1]), Left: false})
		}
		idx /= 2
	}

	proof := Proof{
		Index: index,
		Count: len(t.values),
		Steps: steps,
	}

	return proof, nil
}

// =============================================================================

// RootHex returns the hex encoded root over the specified values. An empty
// list produces the empty root.
func RootHex[T Hashable](values []T) (string, error) {
	if len(values) == 0 {
		return hashing.EmptyRoot, nil
	}

	tree, err := NewTree(values)
	if err != nil {
		return "", err
	}

	return tree.RootHex(), nil
}

// Verify checks the proof shows the value is part of the tree with the
// specified hex encoded root.
func Verify(rootHex string, value Hashable, proof Proof) error {
	if proof.Count <= 0 || proof.Index < 0 || proof.Index >= proof.Count {
		return ErrOutOfRange
	}

	root, err := hexutil.Decode(rootHex)
	if err != nil {
		return fmt.Errorf("decoding root: %w", err)
	}

	h, err := value.Hash()
	if err != nil {
		return fmt.Errorf("hashing value: %w", err)
	}

	running := leafHash(h)
	for i, step := range proof.Steps {
		sibling, err := hexutil.Decode(step.Hash)
		if err != nil {
			return fmt.Errorf("decoding step %d: %w", i, err)
		}

		if step.Left {
			running = nodeHash(sibling, running)
			continue
		}
		running = nodeHash(running, sibling)
	}

	if !bytes.Equal(commit(proof.Count, running), root) {
		return ErrProofInvalid
	}

	return nil
}

// =============================================================================

func leafHash(data []byte) []byte {
	h := sha256.New()
	h.Write([]byte{leafPrefix})
	h.Write(data)
	return h.Sum(nil)
}

func nodeHash(left []byte, right []byte) []byte {
	h := sha256.New()
	h.Write([]byte{nodePrefix})
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

func commit(count int, top []byte) []byte {
	var e hashing.Encoder
	e.Uint64(uint64(count)).Bytes(top)

	sum := e.Sum()
	return sum[:]
}
