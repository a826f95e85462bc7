package merkle

import (
	"fmt"

	"github.com/unicitylabs/mtree/datahash"
)

// Config defines the shape of a tree and of the proofs it produces.
type Config struct {
	// Algorithm hashes every branch and the root. Its identifier is embedded
	// in every imprint, so proofs carry it along.
	Algorithm datahash.Algorithm

	// Summed selects the sum tree layout, in which every branch also commits
	// to the total of the leaf counters beneath it.
	Summed bool
}

// NewConfig makes a new config object, rejecting hash algorithms this
// package cannot compute.
func NewConfig(a datahash.Algorithm, summed bool) (Config, error) {
	if !a.Valid() {
		return Config{}, NewInvalidConfigError(fmt.Sprintf("unsupported hash algorithm %v", a))
	}
	return Config{Algorithm: a, Summed: summed}, nil
}

func (c Config) String() string {
	if c.Summed {
		return fmt.Sprintf("sum tree over %s", c.Algorithm)
	}
	return fmt.Sprintf("tree over %s", c.Algorithm)
}
