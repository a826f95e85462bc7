package merkle

import (
	"math/big"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/unicitylabs/mtree/logger"
	"golang.org/x/sync/errgroup"
)

// Tree is an insert-only sparse Merkle tree. Leaves are added with AddLeaf
// and the tree is hashed on demand by CalculateRoot, which returns an
// immutable snapshot. Only one AddLeaf or CalculateRoot runs at a time;
// snapshots can be read concurrently with both.
type Tree[V Value] struct {
	sync.Mutex

	cfg Config

	// the two subtrees under the root, selected by the lowest bit of a key
	left  *branch[V]
	right *branch[V]
}

// NewSparseMerkleTree makes an empty plain tree.
func NewSparseMerkleTree(c Config) (*Tree[Leaf], error) {
	if c.Summed {
		return nil, NewInvalidConfigError("a plain tree cannot use a summed config")
	}
	return newTree[Leaf](c)
}

// NewSparseMerkleSumTree makes an empty sum tree, in which every leaf carries
// a counter and the root commits to their total.
func NewSparseMerkleSumTree(c Config) (*Tree[SumLeaf], error) {
	if !c.Summed {
		return nil, NewInvalidConfigError("a sum tree needs a summed config")
	}
	return newTree[SumLeaf](c)
}

func newTree[V Value](c Config) (*Tree[V], error) {
	if !c.Algorithm.Valid() {
		return nil, NewInvalidConfigError("unsupported hash algorithm " + c.Algorithm.String())
	}
	return &Tree[V]{cfg: c}, nil
}

func (t *Tree[V]) Config() Config {
	return t.cfg
}

func (t *Tree[V]) checkValue(value V) error {
	if value.Data() == nil {
		return NewInvalidArgumentError("leaf data cannot be nil")
	}
	if !t.cfg.Summed {
		return nil
	}
	counter := value.Counter()
	if counter == nil {
		return NewInvalidArgumentError("sum tree leaves need a counter")
	}
	if counter.Sign() < 0 {
		return NewInvalidArgumentError("leaf counter cannot be negative")
	}
	return nil
}

// AddLeaf inserts value at path. path must be at least 1. On error the tree
// is left exactly as it was.
func (t *Tree[V]) AddLeaf(ctx logger.ContextInterface, path *big.Int, value V) error {
	if !validPath(path) {
		return NewInvalidArgumentError("path must be greater than 0")
	}
	if err := t.checkValue(value); err != nil {
		return err
	}

	t.Lock()
	defer t.Unlock()

	path = new(big.Int).Set(path)
	slot := &t.left
	if isRight(path) {
		slot = &t.right
	}

	if *slot == nil {
		*slot = newPendingLeaf(path, value)
		ctx.Debug("AddLeaf: %b into empty slot", path)
		return nil
	}

	b, err := buildTree(*slot, path, path, value)
	if err != nil {
		return errors.Wrapf(err, "cannot add leaf %b", path)
	}
	*slot = b
	ctx.Debug("AddLeaf: %b", path)
	return nil
}

// buildTree returns a replacement for b that also holds value at remaining,
// the part of key still below b. Nothing reachable from b is modified: the
// branches along the insertion route are rebuilt as pending copies and
// everything else is shared.
func buildTree[V Value](b *branch[V], remaining, key *big.Int, value V) (*branch[V], error) {
	cp := NewCommonPath(remaining, b.path)
	right := isRight(shiftPath(remaining, cp.Length))

	if cp.Path.Cmp(remaining) == 0 {
		return nil, NewBranchExistsError(key)
	}

	if b.isLeaf() {
		if cp.Path.Cmp(b.path) == 0 {
			return nil, NewLeafOutOfBoundsError(key)
		}
		oldLeaf := newPendingLeaf(shiftPath(b.path, cp.Length), b.value)
		newLeaf := newPendingLeaf(shiftPath(remaining, cp.Length), value)
		if right {
			return newPendingNode(cp.Path, oldLeaf, newLeaf), nil
		}
		return newPendingNode(cp.Path, newLeaf, oldLeaf), nil
	}

	// the new key leaves this node's segment before reaching its children
	if cp.Path.Cmp(b.path) < 0 {
		newLeaf := newPendingLeaf(shiftPath(remaining, cp.Length), value)
		oldNode := newPendingNode(shiftPath(b.path, cp.Length), b.left, b.right)
		if right {
			return newPendingNode(cp.Path, oldNode, newLeaf), nil
		}
		return newPendingNode(cp.Path, newLeaf, oldNode), nil
	}

	rest := shiftPath(remaining, cp.Length)
	if right {
		child, err := buildTree(b.right, rest, key, value)
		if err != nil {
			return nil, err
		}
		return newPendingNode(b.path, b.left, child), nil
	}
	child, err := buildTree(b.left, rest, key, value)
	if err != nil {
		return nil, err
	}
	return newPendingNode(b.path, child, b.right), nil
}

// CalculateRoot hashes every branch added since the previous call and
// returns a snapshot of the tree. Branches that were already hashed are
// reused, so calling it twice in a row returns the same top-level branches.
func (t *Tree[V]) CalculateRoot(ctx logger.ContextInterface) (*RootNode[V], error) {
	t.Lock()
	defer t.Unlock()

	start := time.Now()

	var left, right *branch[V]
	g := new(errgroup.Group)
	g.Go(func() (err error) {
		if t.left != nil {
			left, err = t.left.finalize(t.cfg)
		}
		return err
	})
	g.Go(func() (err error) {
		if t.right != nil {
			right, err = t.right.finalize(t.cfg)
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "cannot finalize tree")
	}
	t.left, t.right = left, right

	root, err := newRootNode(t.cfg, left, right)
	if err != nil {
		return nil, err
	}
	ctx.Debug("CalculateRoot: %v in %v", root.RootHash(), time.Since(start))
	return root, nil
}
