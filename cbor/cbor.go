// Package cbor encodes the canonical preimages hashed by the tree.
package cbor

import (
	"math/big"

	"github.com/keybase/go-codec/codec"
	"github.com/pkg/errors"
)

func newHandle() *codec.CborHandle {
	var ch codec.CborHandle
	ch.Canonical = true
	return &ch
}

var handle = newHandle()

// EncodeCanonical encodes i with deterministic map ordering. Byte slices
// become CBOR byte strings and []interface{} values become definite-length
// arrays.
func EncodeCanonical(i interface{}) (out []byte, err error) {
	enc := codec.NewEncoderBytes(&out, handle)
	if err = enc.Encode(i); err != nil {
		return nil, errors.Wrap(err, "cbor encode")
	}
	return out, nil
}

func Decode(dest interface{}, src []byte) error {
	dec := codec.NewDecoderBytes(src, handle)
	return errors.Wrap(dec.Decode(dest), "cbor decode")
}

// Array is shorthand for building a CBOR array out of preimage items.
func Array(items ...interface{}) []interface{} {
	return items
}

// EncodeBigInt returns the minimal unsigned big-endian encoding of v. Zero
// encodes to an empty, non-nil slice so that it is written as an empty byte
// string rather than as null.
func EncodeBigInt(v *big.Int) []byte {
	b := v.Bytes()
	if b == nil {
		b = []byte{}
	}
	return b
}

func DecodeBigInt(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}
