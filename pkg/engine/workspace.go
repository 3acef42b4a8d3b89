package engine

import (
	"fmt"
	"sort"

	"github.com/txforge/txforge/pkg/types"
)

// Construct is one indexed runbook block: a command-backed construct
// (variable, action, output, module, flow) or a signer.
type Construct struct {
	// Id locates the construct in its package.
	Id types.ConstructId

	// Did is the construct's digest identity.
	Did types.ConstructDid

	// DeclarationIndex is the construct's position in workspace indexing
	// order. It breaks scheduling ties deterministically.
	DeclarationIndex int

	// Command is set for command-backed constructs.
	Command *types.CommandInstance

	// Signer is set for signer constructs.
	Signer *types.SignerInstance
}

// Attributes returns the construct's attribute expressions.
func (c *Construct) Attributes() map[string]types.Expression {
	if c.Command != nil {
		return c.Command.Attributes
	}
	if c.Signer != nil {
		return c.Signer.Attributes
	}
	return nil
}

// AttributeOrder returns attribute names in declaration order.
func (c *Construct) AttributeOrder() []string {
	if c.Command != nil {
		return c.Command.AttributeOrder
	}
	if c.Signer != nil {
		return c.Signer.AttributeOrder
	}
	return nil
}

// Reference returns the construct's "type.name" reference.
func (c *Construct) Reference() string {
	return c.Id.Reference()
}

// Package groups the constructs declared in one source location and the
// imports visible to them.
type Package struct {
	// Id identifies the package within its runbook.
	Id types.PackageId

	// Did is the package's digest identity.
	Did types.PackageDid

	// byType maps construct type, then construct name, to the digest.
	byType map[string]map[string]types.ConstructDid

	// order lists the package's constructs in declaration order.
	order []types.ConstructDid

	// imports maps import aliases to the imported package.
	imports map[string]types.PackageDid
}

// WorkspaceContext indexes every construct of a runbook and resolves
// symbol references between them. It is the naming layer the dependency
// graph is built from.
type WorkspaceContext struct {
	// RunbookId identifies the runbook being indexed.
	RunbookId types.RunbookId

	packages     map[types.PackageDid]*Package
	packageOrder []types.PackageDid
	constructs   map[types.ConstructDid]*Construct

	// topLevelInputs maps input names to the synthetic constructs that
	// carry runtime-supplied values into the graph.
	topLevelInputs map[string]types.ConstructDid

	declarationCounter int
}

// NewWorkspaceContext creates an empty workspace for the given runbook.
func NewWorkspaceContext(id types.RunbookId) *WorkspaceContext {
	return &WorkspaceContext{
		RunbookId:      id,
		packages:       make(map[types.PackageDid]*Package),
		constructs:     make(map[types.ConstructDid]*Construct),
		topLevelInputs: make(map[string]types.ConstructDid),
	}
}

// AddPackage indexes a package, returning its digest. Re-adding an
// existing package is a no-op.
func (w *WorkspaceContext) AddPackage(id types.PackageId) types.PackageDid {
	did := id.ComputeDid()
	if _, exists := w.packages[did]; exists {
		return did
	}
	w.packages[did] = &Package{
		Id:      id,
		Did:     did,
		byType:  make(map[string]map[string]types.ConstructDid),
		imports: make(map[string]types.PackageDid),
	}
	w.packageOrder = append(w.packageOrder, did)
	return did
}

// AddImport records that alias inside pkg refers to target.
func (w *WorkspaceContext) AddImport(pkg types.PackageDid, alias string, target types.PackageDid) *types.Diagnostic {
	p, ok := w.packages[pkg]
	if !ok {
		return types.ErrorDiagf("unknown package %s", pkg.Did).WithCode(types.DiagCodeFatal)
	}
	if _, exists := p.imports[alias]; exists {
		return types.ErrorDiagf("duplicate import alias %q in package %q", alias, p.Id.Name).
			WithCode(types.DiagCodeDuplicate)
	}
	p.imports[alias] = target
	return nil
}

// IndexCommand indexes a command-backed construct into its package.
// Declaring two constructs of the same type and name in one package is an
// error.
func (w *WorkspaceContext) IndexCommand(instance *types.CommandInstance) (types.ConstructDid, *types.Diagnostic) {
	return w.index(instance.ConstructId, &Construct{
		Id:      instance.ConstructId,
		Command: instance,
	})
}

// IndexSigner indexes a signer construct into its package.
func (w *WorkspaceContext) IndexSigner(instance *types.SignerInstance) (types.ConstructDid, *types.Diagnostic) {
	return w.index(instance.ConstructId, &Construct{
		Id:     instance.ConstructId,
		Signer: instance,
	})
}

func (w *WorkspaceContext) index(id types.ConstructId, construct *Construct) (types.ConstructDid, *types.Diagnostic) {
	pkgDid := w.AddPackage(id.PackageId)
	pkg := w.packages[pkgDid]

	names, ok := pkg.byType[id.ConstructType]
	if !ok {
		names = make(map[string]types.ConstructDid)
		pkg.byType[id.ConstructType] = names
	}
	if _, exists := names[id.ConstructName]; exists {
		return types.ConstructDid{}, types.ErrorDiagf(
			"duplicate construct %s.%s in package %q",
			id.ConstructType, id.ConstructName, id.PackageId.Name,
		).WithCode(types.DiagCodeDuplicate)
	}

	did := id.ComputeDid()
	construct.Did = did
	construct.DeclarationIndex = w.declarationCounter
	w.declarationCounter++

	names[id.ConstructName] = did
	pkg.order = append(pkg.order, did)
	w.constructs[did] = construct
	return did, nil
}

// SeedTopLevelInput registers a synthetic construct carrying a
// runtime-supplied input, so expressions can reference input.<name>.
func (w *WorkspaceContext) SeedTopLevelInput(pkg types.PackageId, name string) types.ConstructDid {
	if did, exists := w.topLevelInputs[name]; exists {
		return did
	}
	id := types.ConstructId{
		PackageId:     pkg,
		Location:      pkg.Location,
		ConstructType: types.ConstructTypeVariable,
		ConstructName: fmt.Sprintf("input.%s", name),
	}
	did := id.ComputeDid()
	w.constructs[did] = &Construct{
		Id:               id,
		Did:              did,
		DeclarationIndex: w.declarationCounter,
	}
	w.declarationCounter++
	w.topLevelInputs[name] = did
	return did
}

// Construct returns the indexed construct with the given digest.
func (w *WorkspaceContext) Construct(did types.ConstructDid) (*Construct, bool) {
	c, ok := w.constructs[did]
	return c, ok
}

// Constructs returns every indexed construct in declaration order.
func (w *WorkspaceContext) Constructs() []*Construct {
	out := make([]*Construct, 0, len(w.constructs))
	for _, pkgDid := range w.packageOrder {
		for _, did := range w.packages[pkgDid].order {
			out = append(out, w.constructs[did])
		}
	}
	// Top-level input constructs are not package members; list them first
	// since nothing precedes them.
	inputs := make([]*Construct, 0, len(w.topLevelInputs))
	for _, did := range w.topLevelInputs {
		inputs = append(inputs, w.constructs[did])
	}
	sort.Slice(inputs, func(i, j int) bool {
		return inputs[i].DeclarationIndex < inputs[j].DeclarationIndex
	})
	return append(inputs, out...)
}

// ResolvedReference is the outcome of resolving a symbol reference: the
// construct it targets and the path segments remaining after the
// construct-selecting prefix, to be applied to the construct's outputs.
type ResolvedReference struct {
	// ConstructDid is the referenced construct.
	ConstructDid types.ConstructDid

	// Path is the remaining traversal into the construct's outputs.
	Path []string
}

// ResolveReference resolves a reference found in an expression inside pkg.
// The first segment selects a namespace (variable, action, output, signer,
// module, flow, input) or an import alias; the second selects the
// construct; the rest traverses its outputs. Returns false when the
// reference does not target a construct.
func (w *WorkspaceContext) ResolveReference(pkg types.PackageDid, ref types.Reference) (ResolvedReference, bool) {
	if len(ref.Parts) == 0 {
		return ResolvedReference{}, false
	}
	p, ok := w.packages[pkg]
	if !ok {
		return ResolvedReference{}, false
	}

	switch ref.Parts[0] {
	case "variable", "action", "output", "signer", "module", "flow":
		if len(ref.Parts) < 2 {
			return ResolvedReference{}, false
		}
		names, ok := p.byType[ref.Parts[0]]
		if !ok {
			return ResolvedReference{}, false
		}
		did, ok := names[ref.Parts[1]]
		if !ok {
			return ResolvedReference{}, false
		}
		return ResolvedReference{ConstructDid: did, Path: ref.Parts[2:]}, true

	case "input":
		if len(ref.Parts) < 2 {
			return ResolvedReference{}, false
		}
		did, ok := w.topLevelInputs[ref.Parts[1]]
		if !ok {
			return ResolvedReference{}, false
		}
		return ResolvedReference{ConstructDid: did, Path: ref.Parts[2:]}, true
	}

	// Import aliases chain resolution into the imported package.
	if target, ok := p.imports[ref.Parts[0]]; ok && len(ref.Parts) > 1 {
		return w.ResolveReference(target, types.Reference{Parts: ref.Parts[1:], Span: ref.Span})
	}

	return ResolvedReference{}, false
}

// Dependencies extracts and resolves every construct reference in the
// construct's attribute expressions, in declaration order, deduplicated.
func (w *WorkspaceContext) Dependencies(c *Construct) []types.ConstructDid {
	pkgDid := c.Id.PackageId.ComputeDid()
	seen := make(map[types.ConstructDid]bool)
	var out []types.ConstructDid
	for _, name := range c.AttributeOrder() {
		for _, ref := range types.CollectReferences(c.Attributes()[name]) {
			resolved, ok := w.ResolveReference(pkgDid, ref)
			if !ok || resolved.ConstructDid == c.Did {
				continue
			}
			if !seen[resolved.ConstructDid] {
				seen[resolved.ConstructDid] = true
				out = append(out, resolved.ConstructDid)
			}
		}
	}
	return out
}
