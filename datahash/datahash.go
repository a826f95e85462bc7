package datahash

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/pkg/errors"
)

// DataHash is a digest tagged with the algorithm that produced it.
type DataHash struct {
	algorithm Algorithm
	data      []byte
}

// New wraps an existing digest. The data is copied.
func New(a Algorithm, data []byte) DataHash {
	return DataHash{algorithm: a, data: append([]byte{}, data...)}
}

// FromImprint parses the 2-byte big-endian algorithm identifier followed by
// the digest.
func FromImprint(imprint []byte) (DataHash, error) {
	if len(imprint) < 2 {
		return DataHash{}, NewInvalidImprintError(fmt.Sprintf("too short (%d bytes)", len(imprint)))
	}
	a := Algorithm(binary.BigEndian.Uint16(imprint[:2]))
	if !a.Valid() {
		return DataHash{}, NewUnknownAlgorithmError(a.String())
	}
	if len(imprint)-2 != a.Size() {
		return DataHash{}, NewInvalidImprintError(
			fmt.Sprintf("%s digest must be %d bytes, got %d", a, a.Size(), len(imprint)-2))
	}
	return New(a, imprint[2:]), nil
}

func (d DataHash) Algorithm() Algorithm { return d.algorithm }

// Data returns a copy of the raw digest.
func (d DataHash) Data() []byte {
	return append([]byte{}, d.data...)
}

// Imprint returns the algorithm identifier followed by the digest.
func (d DataHash) Imprint() []byte {
	ret := make([]byte, 2, 2+len(d.data))
	binary.BigEndian.PutUint16(ret, uint16(d.algorithm))
	return append(ret, d.data...)
}

func (d DataHash) IsZero() bool {
	return d.data == nil
}

func (d DataHash) Equal(o DataHash) bool {
	return d.algorithm == o.algorithm && bytes.Equal(d.data, o.data)
}

func (d DataHash) String() string {
	return fmt.Sprintf("[%s]%s", d.algorithm, hex.EncodeToString(d.data))
}

// Hasher accumulates input for one digest.
type Hasher struct {
	algorithm Algorithm
	h         hash.Hash
}

func NewHasher(a Algorithm) (*Hasher, error) {
	h, err := a.newHash()
	if err != nil {
		return nil, err
	}
	return &Hasher{algorithm: a, h: h}, nil
}

// Update appends data to the running digest and returns the hasher for
// chaining.
func (h *Hasher) Update(data []byte) *Hasher {
	// hash.Hash.Write never returns an error
	_, _ = h.h.Write(data)
	return h
}

func (h *Hasher) Digest() DataHash {
	return DataHash{algorithm: h.algorithm, data: h.h.Sum(nil)}
}

// Sum hashes data in one shot.
func Sum(a Algorithm, data []byte) (DataHash, error) {
	h, err := NewHasher(a)
	if err != nil {
		return DataHash{}, errors.Wrapf(err, "cannot hash with %s", a)
	}
	return h.Update(data).Digest(), nil
}
