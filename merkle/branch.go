package merkle

import (
	"fmt"
	"math/big"

	"github.com/unicitylabs/mtree/datahash"
)

type branchKind uint8

const (
	pendingLeaf branchKind = iota
	pendingNode
	finalizedLeaf
	finalizedNode
)

func (k branchKind) String() string {
	switch k {
	case pendingLeaf:
		return "pending leaf"
	case pendingNode:
		return "pending node"
	case finalizedLeaf:
		return "finalized leaf"
	case finalizedNode:
		return "finalized node"
	default:
		return fmt.Sprintf("branchKind(%d)", uint8(k))
	}
}

// branch is one vertex of the trie. path holds the decisions from the parent
// down to this vertex (top-level branches include the root decision).
//
// Leaves use value; nodes use left and right, which are never nil. Once a
// branch is finalized none of its fields change again, which is what allows
// old RootNodes to keep pointing into a tree that keeps growing.
type branch[V Value] struct {
	kind  branchKind
	path  *big.Int
	value V

	left  *branch[V]
	right *branch[V]

	// set by finalize
	hash         datahash.DataHash
	childrenHash datahash.DataHash
	counter      *big.Int
}

func newPendingLeaf[V Value](path *big.Int, value V) *branch[V] {
	return &branch[V]{kind: pendingLeaf, path: path, value: value}
}

func newPendingNode[V Value](path *big.Int, left, right *branch[V]) *branch[V] {
	return &branch[V]{kind: pendingNode, path: path, left: left, right: right}
}

func (b *branch[V]) isLeaf() bool {
	return b.kind == pendingLeaf || b.kind == finalizedLeaf
}

func (b *branch[V]) isFinalized() bool {
	return b.kind == finalizedLeaf || b.kind == finalizedNode
}

// finalize returns the hashed counterpart of b. Finalized branches are
// returned as is, so repeated calls only hash what was added since.
func (b *branch[V]) finalize(cfg Config) (*branch[V], error) {
	switch b.kind {
	case finalizedLeaf, finalizedNode:
		return b, nil
	case pendingLeaf:
		var counter *big.Int
		if cfg.Summed {
			counter = new(big.Int).Set(b.value.Counter())
		}
		h, err := cfg.hashLeaf(b.path, b.value.Data(), counter)
		if err != nil {
			return nil, err
		}
		return &branch[V]{kind: finalizedLeaf, path: b.path, value: b.value, hash: h, counter: counter}, nil
	case pendingNode:
		left, err := b.left.finalize(cfg)
		if err != nil {
			return nil, err
		}
		right, err := b.right.finalize(cfg)
		if err != nil {
			return nil, err
		}
		childrenHash, err := cfg.hashChildren(left.commit(), right.commit())
		if err != nil {
			return nil, err
		}
		var counter *big.Int
		if cfg.Summed {
			counter = sumCounters(left.counter, right.counter)
		}
		h, err := cfg.hashNode(b.path, childrenHash.Imprint(), counter)
		if err != nil {
			return nil, err
		}
		return &branch[V]{kind: finalizedNode, path: b.path, left: left, right: right,
			hash: h, childrenHash: childrenHash, counter: counter}, nil
	default:
		return nil, fmt.Errorf("cannot finalize %v", b.kind)
	}
}

// commit must only be called on finalized branches. A nil branch has no
// commit.
func (b *branch[V]) commit() *commit {
	if b == nil {
		return nil
	}
	return &commit{imprint: b.hash.Imprint(), counter: b.counter}
}
