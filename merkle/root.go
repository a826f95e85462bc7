package merkle

import (
	"math/big"

	"github.com/unicitylabs/mtree/datahash"
)

// RootNode is an immutable snapshot of a Tree, returned by CalculateRoot. It
// keeps answering GetPath for the state it was taken at, no matter how the
// tree grows afterwards, and is safe for concurrent use.
type RootNode[V Value] struct {
	left  *branch[V]
	right *branch[V]

	hash    datahash.DataHash
	counter *big.Int
}

func newRootNode[V Value](c Config, left, right *branch[V]) (*RootNode[V], error) {
	h, err := c.hashChildren(left.commit(), right.commit())
	if err != nil {
		return nil, err
	}
	var counter *big.Int
	if c.Summed {
		var l, r *big.Int
		if left != nil {
			l = left.counter
		}
		if right != nil {
			r = right.counter
		}
		counter = sumCounters(l, r)
	}
	return &RootNode[V]{left: left, right: right, hash: h, counter: counter}, nil
}

func (r *RootNode[V]) RootHash() datahash.DataHash {
	return r.hash
}

// Counter is the total of all leaf counters, or nil for a plain tree.
func (r *RootNode[V]) Counter() *big.Int {
	return copyInt(r.counter)
}

func (r *RootNode[V]) root() Root {
	return Root{Hash: r.hash, Counter: r.Counter()}
}

// GetPath builds the proof for key. The proof shows inclusion when key holds
// a leaf, and otherwise shows what the tree holds where key would be.
func (r *RootNode[V]) GetPath(key *big.Int) (*Path, error) {
	if !validPath(key) {
		return nil, NewInvalidArgumentError("path must be greater than 0")
	}

	b, sibling := r.left, r.right
	if isRight(key) {
		b, sibling = r.right, r.left
	}

	var steps []PathStep
	if b == nil {
		// vacant slot: the step path is the one-decision path of the slot
		slotPath := big.NewInt(2)
		if isRight(key) {
			slotPath.SetInt64(3)
		}
		steps = []PathStep{{Path: slotPath, Sibling: r.stepCommit(sibling)}}
	} else {
		steps = r.generatePath(key, b, sibling)
	}
	return &Path{Root: r.root(), Steps: steps}, nil
}

// generatePath returns the steps below and including b, leaf-most first.
func (r *RootNode[V]) generatePath(remaining *big.Int, b, sibling *branch[V]) []PathStep {
	if b.isLeaf() {
		return []PathStep{{
			Path:    copyInt(b.path),
			Sibling: r.stepCommit(sibling),
			Branch:  &StepBranch{Value: copyBytes(b.value.Data()), Counter: copyInt(b.counter)},
		}}
	}

	cp := NewCommonPath(remaining, b.path)
	if cp.Path.Cmp(b.path) != 0 {
		// key leaves this node's segment; prove the node itself from its
		// children hash
		return []PathStep{{
			Path:    copyInt(b.path),
			Sibling: r.stepCommit(sibling),
			Branch:  &StepBranch{Value: b.childrenHash.Imprint(), Counter: copyInt(b.counter)},
		}}
	}

	// A key that is used up exactly at this node descends to the left on
	// purpose, so the proof ends at a real branch whose key is longer than
	// the query. Proving the node itself would show the key as included.
	rest := shiftPath(remaining, cp.Length)
	child, other := b.left, b.right
	if rest.Cmp(one) != 0 && isRight(rest) {
		child, other = b.right, b.left
	}

	steps := r.generatePath(rest, child, other)
	return append(steps, PathStep{Path: copyInt(b.path), Sibling: r.stepCommit(sibling)})
}

func (r *RootNode[V]) stepCommit(b *branch[V]) *StepBranch {
	if b == nil {
		return nil
	}
	return &StepBranch{Value: b.hash.Imprint(), Counter: copyInt(b.counter)}
}
