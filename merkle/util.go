package merkle

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// MakeRandomPathsForTesting returns n distinct random paths that each encode
// exactly depth decisions. Paths of equal depth never prefix one another, so
// all of them can be inserted into the same tree.
func MakeRandomPathsForTesting(depth uint, n int) ([]*big.Int, error) {
	if depth < 63 && uint64(n) > uint64(1)<<depth {
		return nil, fmt.Errorf("too many paths requested !")
	}
	sentinel := new(big.Int).Lsh(one, depth)
	seen := make(map[string]bool, n)
	ret := make([]*big.Int, 0, n)
	for len(ret) < n {
		r, err := rand.Int(rand.Reader, sentinel)
		if err != nil {
			return nil, err
		}
		r.Or(r, sentinel)
		if seen[r.String()] {
			continue
		}
		seen[r.String()] = true
		ret = append(ret, r)
	}
	return ret, nil
}

// MakeRandomLeavesForTesting returns n leaves with random 10 byte payloads.
func MakeRandomLeavesForTesting(n int) ([]Leaf, error) {
	ret := make([]Leaf, n)
	buf := make([]byte, 10)
	for i := range ret {
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		ret[i] = NewLeaf(buf)
	}
	return ret, nil
}

// MakeRandomSumLeavesForTesting is like MakeRandomLeavesForTesting, with
// counters drawn from [0, maxCounter).
func MakeRandomSumLeavesForTesting(n int, maxCounter int64) ([]SumLeaf, error) {
	if maxCounter < 1 {
		return nil, fmt.Errorf("maxCounter must be positive")
	}
	ret := make([]SumLeaf, n)
	buf := make([]byte, 10)
	limit := big.NewInt(maxCounter)
	for i := range ret {
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		c, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return nil, err
		}
		ret[i] = NewSumLeaf(buf, c)
	}
	return ret, nil
}
