package merkle

import (
	"math/big"

	"github.com/pkg/errors"
	"github.com/unicitylabs/mtree/cbor"
	"github.com/unicitylabs/mtree/datahash"
)

// absentCommit stands in for a missing subtree in a children preimage.
var absentCommit = []byte{0}

// commit is what a parent learns about one of its children: the child's
// hash imprint, and in a sum tree the child's total.
type commit struct {
	imprint []byte
	counter *big.Int
}

func (c Config) digest(items ...interface{}) (datahash.DataHash, error) {
	enc, err := cbor.EncodeCanonical(cbor.Array(items...))
	if err != nil {
		return datahash.DataHash{}, err
	}
	h, err := datahash.Sum(c.Algorithm, enc)
	if err != nil {
		return datahash.DataHash{}, errors.Wrap(err, "digest")
	}
	return h, nil
}

// hashLeaf is H([path, data, counter]), or H([path, data]) without sums.
func (c Config) hashLeaf(path *big.Int, data []byte, counter *big.Int) (datahash.DataHash, error) {
	if c.Summed {
		return c.digest(cbor.EncodeBigInt(path), data, cbor.EncodeBigInt(counter))
	}
	return c.digest(cbor.EncodeBigInt(path), data)
}

// hashNode is H([path, childrenImprint, counter]), or H([path, childrenImprint])
// without sums.
func (c Config) hashNode(path *big.Int, childrenImprint []byte, counter *big.Int) (datahash.DataHash, error) {
	if c.Summed {
		return c.digest(cbor.EncodeBigInt(path), childrenImprint, cbor.EncodeBigInt(counter))
	}
	return c.digest(cbor.EncodeBigInt(path), childrenImprint)
}

// hashChildren combines two child commits. The root commitment is computed
// the same way over the two top-level slots. A nil commit is absent.
func (c Config) hashChildren(left, right *commit) (datahash.DataHash, error) {
	return c.digest(c.commitItem(left), c.commitItem(right))
}

func (c Config) commitItem(cm *commit) interface{} {
	if cm == nil {
		return absentCommit
	}
	if c.Summed {
		return cbor.Array(cm.imprint, cbor.EncodeBigInt(cm.counter))
	}
	return cm.imprint
}

// sumCounters adds optional counters, treating nil as zero.
func sumCounters(xs ...*big.Int) *big.Int {
	ret := new(big.Int)
	for _, x := range xs {
		if x != nil {
			ret.Add(ret, x)
		}
	}
	return ret
}
