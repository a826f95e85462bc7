package merkle

import (
	"fmt"
	"math/big"
)

// InvalidArgumentError is returned when a caller passes a key or payload the
// tree can never accept. The tree is not modified.
type InvalidArgumentError struct {
	reason string
}

func NewInvalidArgumentError(reason string) InvalidArgumentError {
	return InvalidArgumentError{reason: reason}
}

func (e InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument: %s", e.reason)
}

// BranchExistsError means the key ends exactly where an existing branch
// already sits, or on the route to one.
type BranchExistsError struct {
	Path *big.Int
}

func NewBranchExistsError(path *big.Int) BranchExistsError {
	return BranchExistsError{Path: new(big.Int).Set(path)}
}

func (e BranchExistsError) Error() string {
	return fmt.Sprintf("branch already exists at path %b", e.Path)
}

// LeafOutOfBoundsError means the key would have to continue below an existing
// leaf.
type LeafOutOfBoundsError struct {
	Path *big.Int
}

func NewLeafOutOfBoundsError(path *big.Int) LeafOutOfBoundsError {
	return LeafOutOfBoundsError{Path: new(big.Int).Set(path)}
}

func (e LeafOutOfBoundsError) Error() string {
	return fmt.Sprintf("path %b extends past an existing leaf", e.Path)
}

type InvalidConfigError struct {
	reason string
}

func NewInvalidConfigError(reason string) InvalidConfigError {
	return InvalidConfigError{reason: reason}
}

func (e InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s", e.reason)
}

// MalformedPathError is returned by Verify when the proof object itself
// breaks the Path contract (missing fields, impossible step paths). Proofs
// that are well formed but simply wrong never produce an error.
type MalformedPathError struct {
	reason string
}

func NewMalformedPathError(reason string) MalformedPathError {
	return MalformedPathError{reason: reason}
}

func (e MalformedPathError) Error() string {
	return fmt.Sprintf("malformed path: %s", e.reason)
}

type ProofVerificationFailedError struct {
	reason error
}

func NewProofVerificationFailedError(reason error) ProofVerificationFailedError {
	return ProofVerificationFailedError{reason: reason}
}

func (e ProofVerificationFailedError) Error() string {
	return fmt.Sprintf("proof verification failed: %v", e.reason)
}

func (e ProofVerificationFailedError) Unwrap() error {
	return e.reason
}
