package merkle

import (
	"encoding/hex"
	"math/big"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/unicitylabs/mtree/datahash"
)

// Prover is anything that can produce paths for a fixed root, such as a
// RootNode.
type Prover interface {
	RootHash() datahash.DataHash
	GetPath(key *big.Int) (*Path, error)
}

var _ Prover = (*RootNode[Leaf])(nil)
var _ Prover = (*RootNode[SumLeaf])(nil)

// PathCache memoizes generated paths. Entries never go stale because a root
// never changes once it has been computed, so they are keyed by root hash and
// key and only ever evicted for space. Returned paths are shared between
// callers and must not be modified.
type PathCache struct {
	cache *lru.Cache[string, *Path]
}

func NewPathCache(size int) (*PathCache, error) {
	c, err := lru.New[string, *Path](size)
	if err != nil {
		return nil, errors.Wrap(err, "cannot create path cache")
	}
	return &PathCache{cache: c}, nil
}

func pathCacheKey(root datahash.DataHash, key *big.Int) string {
	return hex.EncodeToString(root.Imprint()) + ":" + key.Text(16)
}

func (c *PathCache) GetPath(p Prover, key *big.Int) (*Path, error) {
	if !validPath(key) {
		return nil, NewInvalidArgumentError("path must be greater than 0")
	}
	k := pathCacheKey(p.RootHash(), key)
	if path, ok := c.cache.Get(k); ok {
		return path, nil
	}
	path, err := p.GetPath(key)
	if err != nil {
		return nil, err
	}
	c.cache.Add(k, path)
	return path, nil
}

func (c *PathCache) Len() int {
	return c.cache.Len()
}
