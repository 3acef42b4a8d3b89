package std

import (
	"github.com/txforge/txforge/pkg/types"
)

// Addon is the standard addon. It carries no state; all of its
// functions are pure and its actions hold no connections between runs.
type Addon struct{}

// New returns the standard addon, ready to register on a runtime.
func New() *Addon {
	return &Addon{}
}

func (a *Addon) Namespace() string { return "std" }

func (a *Addon) Documentation() string {
	return "Hashing, encoding, and assertion helpers, plus general-purpose actions."
}

func (a *Addon) Actions() []*types.CommandSpecification {
	return []*types.CommandSpecification{
		sendHTTPRequestSpecification(),
	}
}

func (a *Addon) Signers() []*types.SignerSpecification { return nil }

func (a *Addon) Functions() []*types.FunctionSpecification {
	var specs []*types.FunctionSpecification
	specs = append(specs, hashFunctions()...)
	specs = append(specs, encodingFunctions()...)
	specs = append(specs, assertionFunctions()...)
	return specs
}
