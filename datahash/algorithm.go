package datahash

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	sha256simd "github.com/minio/sha256-simd"
	"golang.org/x/crypto/ripemd160"
)

// Algorithm identifies a hash function. The numeric value is the one written
// into the first two bytes of an imprint, so it must never be renumbered.
type Algorithm uint16

const (
	SHA256    Algorithm = 0
	SHA224    Algorithm = 1
	SHA384    Algorithm = 2
	SHA512    Algorithm = 3
	RIPEMD160 Algorithm = 4
)

type algorithmInfo struct {
	name    string
	size    int
	factory func() hash.Hash
}

var algorithms = map[Algorithm]algorithmInfo{
	SHA256:    {name: "SHA256", size: 32, factory: sha256simd.New},
	SHA224:    {name: "SHA224", size: 28, factory: sha256.New224},
	SHA384:    {name: "SHA384", size: 48, factory: sha512.New384},
	SHA512:    {name: "SHA512", size: 64, factory: sha512.New},
	RIPEMD160: {name: "RIPEMD160", size: 20, factory: ripemd160.New},
}

// Algorithms lists every supported algorithm in identifier order.
func Algorithms() []Algorithm {
	return []Algorithm{SHA256, SHA224, SHA384, SHA512, RIPEMD160}
}

// ParseAlgorithm maps a name such as "SHA256" back to its Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	for a, info := range algorithms {
		if info.name == name {
			return a, nil
		}
	}
	return 0, NewUnknownAlgorithmError(name)
}

func (a Algorithm) Valid() bool {
	_, ok := algorithms[a]
	return ok
}

func (a Algorithm) String() string {
	if info, ok := algorithms[a]; ok {
		return info.name
	}
	return fmt.Sprintf("Algorithm(%d)", uint16(a))
}

// Size is the digest length in bytes, or 0 for an unknown algorithm.
func (a Algorithm) Size() int {
	return algorithms[a].size
}

func (a Algorithm) newHash() (hash.Hash, error) {
	info, ok := algorithms[a]
	if !ok {
		return nil, NewUnknownAlgorithmError(a.String())
	}
	return info.factory(), nil
}
