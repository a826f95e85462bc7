package merkle

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/unicitylabs/mtree/datahash"
)

// Root is the commitment a path is proved against. Counter is nil for plain
// trees.
type Root struct {
	Hash    datahash.DataHash
	Counter *big.Int
}

func (r Root) Equal(o Root) bool {
	if !r.Hash.Equal(o.Hash) {
		return false
	}
	if r.Counter == nil || o.Counter == nil {
		return r.Counter == nil && o.Counter == nil
	}
	return r.Counter.Cmp(o.Counter) == 0
}

// StepBranch is either raw preimage data (a leaf payload or a node's
// children hash imprint) or a sibling's hash imprint, together with the
// matching counter in a sum tree.
type StepBranch struct {
	Value   []byte
	Counter *big.Int
}

// PathStep is one level of a proof. Path is the segment of the key consumed
// at this level; its lowest bit tells on which side of its parent the level
// sits. Branch is only set on the first step, and only when that step does
// not prove a vacancy.
type PathStep struct {
	Path    *big.Int
	Sibling *StepBranch
	Branch  *StepBranch
}

// Path is a proof for one key, ordered leaf-most step first.
type Path struct {
	Root  Root
	Steps []PathStep
}

type VerificationResult struct {
	// PathValid is true when the steps hash up to the declared root.
	PathValid bool
	// PathIncluded is true when the steps lead to a leaf stored under the
	// queried key.
	PathIncluded bool
}

func (v VerificationResult) IsSuccessful() bool {
	return v.PathValid && v.PathIncluded
}

func (p *Path) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Path{root=%v", p.Root.Hash)
	if p.Root.Counter != nil {
		fmt.Fprintf(&sb, " counter=%v", p.Root.Counter)
	}
	for i, s := range p.Steps {
		fmt.Fprintf(&sb, " step%d=%b", i, s.Path)
		if s.Branch != nil {
			sb.WriteString("+branch")
		}
		if s.Sibling == nil {
			sb.WriteString("+vacant-sibling")
		}
	}
	sb.WriteString("}")
	return sb.String()
}
