package types

// RunbookId identifies a runbook within a workspace.
type RunbookId struct {
	// Org is the canonical name of the org authoring the workspace.
	Org string `json:"org,omitempty"`

	// Workspace is the canonical name of the workspace holding the runbook.
	Workspace string `json:"workspace,omitempty"`

	// Name is the canonical name of the runbook.
	Name string `json:"name"`
}

// RunbookDid is the digest identity of a RunbookId.
type RunbookDid struct{ Did }

// ComputeDid computes the digest identity of the runbook.
func (id RunbookId) ComputeDid() RunbookDid {
	var comps [][]byte
	if id.Org != "" {
		comps = append(comps, []byte(id.Org))
	}
	if id.Workspace != "" {
		comps = append(comps, []byte(id.Workspace))
	}
	comps = append(comps, []byte(id.Name))
	return RunbookDid{NewDid(comps...)}
}

// PackageId identifies a package: a group of constructs loaded from one
// source unit (a single file or a multi-file runbook directory).
type PackageId struct {
	// RunbookId is the id of the enclosing runbook.
	RunbookId RunbookId `json:"runbook_id"`

	// Location is the canonical location of the package within the workspace.
	Location string `json:"location"`

	// Name is the package name.
	Name string `json:"name"`
}

// PackageDid is the digest identity of a PackageId.
type PackageDid struct{ Did }

// ComputeDid computes the digest identity of the package.
func (id PackageId) ComputeDid() PackageDid {
	return PackageDid{NewDid(
		id.RunbookId.ComputeDid().Bytes(),
		[]byte(id.Name),
		[]byte(id.Location),
	)}
}

// ConstructId identifies one named construct declared inside a package.
type ConstructId struct {
	// PackageId is the id of the enclosing package.
	PackageId PackageId `json:"package_id"`

	// Location is the location of the file enclosing the construct.
	Location string `json:"location"`

	// ConstructType is the construct namespace, e.g. "action" in "action.deploy".
	ConstructType string `json:"construct_type"`

	// ConstructName is the construct name, e.g. "deploy" in "action.deploy".
	ConstructName string `json:"construct_name"`
}

// ConstructDid is the digest identity of a ConstructId.
type ConstructDid struct{ Did }

// ComputeDid computes the digest identity of the construct.
func (id ConstructId) ComputeDid() ConstructDid {
	return ConstructDid{NewDid(
		id.PackageId.ComputeDid().Bytes(),
		[]byte(id.ConstructType),
		[]byte(id.ConstructName),
		[]byte(id.Location),
	)}
}

// Reference returns the fully-qualified reference string used inside
// expressions, e.g. "action.deploy".
func (id ConstructId) Reference() string {
	return id.ConstructType + "." + id.ConstructName
}
