package merkle

import "math/big"

var one = big.NewInt(1)

// CommonPath is the longest run of low-order decisions two bit-paths share,
// re-encoded as a bit-path of its own (with its own sentinel bit), along with
// the number of decisions in the run.
type CommonPath struct {
	Path   *big.Int
	Length uint
}

// NewCommonPath compares a and b from the lowest bit upwards. The run stops
// at the first differing decision, and never consumes the sentinel of either
// path, so Length <= min(depth(a), depth(b)).
func NewCommonPath(a, b *big.Int) CommonPath {
	limit := pathDepth(a)
	if d := pathDepth(b); d < limit {
		limit = d
	}
	var n uint
	for n < limit && a.Bit(int(n)) == b.Bit(int(n)) {
		n++
	}
	return CommonPath{Path: prefixPath(a, n), Length: n}
}

// pathDepth is the number of decisions encoded below the sentinel.
func pathDepth(p *big.Int) uint {
	if p.Sign() <= 0 {
		return 0
	}
	return uint(p.BitLen() - 1)
}

// prefixPath keeps the lowest n decisions of p and puts a sentinel above
// them.
func prefixPath(p *big.Int, n uint) *big.Int {
	mask := new(big.Int).Lsh(one, n)
	ret := new(big.Int).Sub(mask, one)
	ret.And(ret, p)
	return ret.Or(ret, mask)
}

func shiftPath(p *big.Int, n uint) *big.Int {
	return new(big.Int).Rsh(p, n)
}

// isRight reports the next decision encoded in p.
func isRight(p *big.Int) bool {
	return p.Bit(0) == 1
}

func validPath(p *big.Int) bool {
	return p != nil && p.Cmp(one) >= 0
}
