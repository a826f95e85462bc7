package merkle

import "math/big"

// Value is the payload stored in a leaf. Counter returns nil for payloads of
// the plain tree and a non-negative integer for payloads of the sum tree.
// The tree reads a payload whenever it hashes or proves the leaf, so Data and
// Counter must keep returning the same contents.
type Value interface {
	Data() []byte
	Counter() *big.Int
}

// Leaf is the payload of a plain sparse Merkle tree.
type Leaf struct {
	data []byte
}

var _ Value = Leaf{}

func NewLeaf(data []byte) Leaf {
	return Leaf{data: copyBytes(data)}
}

func (l Leaf) Data() []byte      { return copyBytes(l.data) }
func (l Leaf) Counter() *big.Int { return nil }

// SumLeaf is the payload of a sparse Merkle sum tree: opaque bytes plus the
// amount this leaf contributes to every total above it.
type SumLeaf struct {
	data    []byte
	counter *big.Int
}

var _ Value = SumLeaf{}

func NewSumLeaf(data []byte, counter *big.Int) SumLeaf {
	return SumLeaf{data: copyBytes(data), counter: copyInt(counter)}
}

func (l SumLeaf) Data() []byte      { return copyBytes(l.data) }
func (l SumLeaf) Counter() *big.Int { return copyInt(l.counter) }

// copyBytes keeps nil distinguishable from empty.
func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}

func copyInt(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).Set(x)
}
