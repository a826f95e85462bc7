package merkle

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/pkg/errors"
	"github.com/unicitylabs/mtree/logger"
)

// Verify recomputes the root from the steps and reconstructs the key they
// lead to. A well formed but wrong proof yields PathValid=false; an error is
// only returned when p or key break the Path contract.
func (p *Path) Verify(key *big.Int) (VerificationResult, error) {
	if key == nil {
		return VerificationResult{}, NewMalformedPathError("nil key")
	}
	if p.Root.Hash.IsZero() {
		return VerificationResult{}, NewMalformedPathError("missing root hash")
	}
	if len(p.Steps) == 0 {
		return VerificationResult{}, nil
	}
	cfg := Config{Algorithm: p.Root.Hash.Algorithm(), Summed: p.Root.Counter != nil}
	if !cfg.Algorithm.Valid() {
		// no tree hashes with it, so the proof cannot match any root
		return VerificationResult{}, nil
	}
	if err := p.checkSteps(cfg.Summed); err != nil {
		return VerificationResult{}, err
	}

	// negative counters cannot come out of a tree, so a proof holding one is
	// simply invalid
	sound := true
	counter := new(big.Int)
	current := big.NewInt(1)

	var level *commit
	first := p.Steps[0]
	if first.Branch != nil {
		if cfg.Summed {
			counter.Set(first.Branch.Counter)
			sound = counter.Sign() >= 0
		}
		h, err := cfg.hashLeaf(first.Path, first.Branch.Value, counter)
		if err != nil {
			return VerificationResult{}, errors.Wrap(err, "cannot hash first step")
		}
		level = &commit{imprint: h.Imprint(), counter: new(big.Int).Set(counter)}
	}

	for i, step := range p.Steps {
		if i > 0 {
			h, err := cfg.hashNode(step.Path, level.imprint, counter)
			if err != nil {
				return VerificationResult{}, errors.Wrapf(err, "cannot hash step %d", i)
			}
			level = &commit{imprint: h.Imprint(), counter: new(big.Int).Set(counter)}
		}

		var sibling *commit
		if step.Sibling != nil {
			sibling = &commit{imprint: step.Sibling.Value, counter: step.Sibling.Counter}
			if cfg.Summed {
				if step.Sibling.Counter.Sign() < 0 {
					sound = false
				}
				counter.Add(counter, step.Sibling.Counter)
			}
		}

		var combined *commit
		var err error
		if isRight(step.Path) {
			combined, err = combine(cfg, sibling, level, counter)
		} else {
			combined, err = combine(cfg, level, sibling, counter)
		}
		if err != nil {
			return VerificationResult{}, errors.Wrapf(err, "cannot combine step %d", i)
		}
		level = combined

		depth := pathDepth(step.Path)
		current.Lsh(current, depth)
		current.Or(current, new(big.Int).And(step.Path, new(big.Int).Sub(new(big.Int).Lsh(one, depth), one)))
	}

	valid := sound && level.imprint != nil && bytes.Equal(level.imprint, p.Root.Hash.Imprint())
	if cfg.Summed {
		valid = valid && counter.Cmp(p.Root.Counter) == 0
	}
	return VerificationResult{
		PathValid:    valid,
		PathIncluded: first.Branch != nil && current.Cmp(key) == 0,
	}, nil
}

// combine hashes two children into the children hash of their parent. The
// returned commit holds that hash; it becomes a node hash at the next step.
func combine(cfg Config, left, right *commit, counter *big.Int) (*commit, error) {
	h, err := cfg.hashChildren(left, right)
	if err != nil {
		return nil, err
	}
	return &commit{imprint: h.Imprint(), counter: new(big.Int).Set(counter)}, nil
}

func (p *Path) checkSteps(summed bool) error {
	checkBranch := func(i int, what string, b *StepBranch) error {
		if b == nil {
			return nil
		}
		if b.Value == nil {
			return NewMalformedPathError(fmt.Sprintf("step %d: %s has no value", i, what))
		}
		if summed && b.Counter == nil {
			return NewMalformedPathError(fmt.Sprintf("step %d: %s has no counter", i, what))
		}
		return nil
	}
	for i, step := range p.Steps {
		if !validPath(step.Path) {
			return NewMalformedPathError(fmt.Sprintf("step %d: path must be greater than 0", i))
		}
		if err := checkBranch(i, "sibling", step.Sibling); err != nil {
			return err
		}
		if err := checkBranch(i, "branch", step.Branch); err != nil {
			return err
		}
	}
	return nil
}

// MerkleProofVerifier checks paths against a root commitment obtained out of
// band, rather than against the root a path declares for itself.
type MerkleProofVerifier struct {
	root Root
}

func NewMerkleProofVerifier(trusted Root) MerkleProofVerifier {
	return MerkleProofVerifier{root: trusted}
}

// VerifyInclusionProof fails unless path proves that key holds a leaf under
// the trusted root.
func (m MerkleProofVerifier) VerifyInclusionProof(ctx logger.ContextInterface, key *big.Int, path *Path) error {
	res, err := m.verify(key, path)
	if err != nil {
		return err
	}
	if !res.PathIncluded {
		return NewProofVerificationFailedError(fmt.Errorf("key %b is not included", key))
	}
	ctx.Debug("VerifyInclusionProof: %b ok", key)
	return nil
}

// VerifyExclusionProof fails unless path proves that key holds no leaf under
// the trusted root.
func (m MerkleProofVerifier) VerifyExclusionProof(ctx logger.ContextInterface, key *big.Int, path *Path) error {
	res, err := m.verify(key, path)
	if err != nil {
		return err
	}
	if res.PathIncluded {
		return NewProofVerificationFailedError(fmt.Errorf("key %b is included", key))
	}
	ctx.Debug("VerifyExclusionProof: %b ok", key)
	return nil
}

func (m MerkleProofVerifier) verify(key *big.Int, path *Path) (VerificationResult, error) {
	if path == nil {
		return VerificationResult{}, NewProofVerificationFailedError(fmt.Errorf("nil proof"))
	}
	if !path.Root.Equal(m.root) {
		return VerificationResult{}, NewProofVerificationFailedError(
			fmt.Errorf("proof is for root %v, expected %v", path.Root.Hash, m.root.Hash))
	}
	res, err := path.Verify(key)
	if err != nil {
		return VerificationResult{}, NewProofVerificationFailedError(err)
	}
	if !res.PathValid {
		return VerificationResult{}, NewProofVerificationFailedError(fmt.Errorf("proof does not hash to the root"))
	}
	return res, nil
}
