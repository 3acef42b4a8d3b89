package runbooks

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/txforge/txforge/pkg/engine"
	"github.com/txforge/txforge/pkg/types"
)

// Document is one pre-parsed runbook: identity, flow definitions, and
// construct declarations in source order.
type Document struct {
	// Runbook identifies the runbook.
	Runbook RunbookHeader `json:"runbook" validate:"required"`

	// Flows lists the flows to build. Empty means a single "main" flow
	// with no inputs.
	Flows []FlowSpec `json:"flows,omitempty" validate:"dive"`

	// Constructs are the declarations in source order.
	Constructs []ConstructSpec `json:"constructs" validate:"required,min=1,dive"`
}

// RunbookHeader carries the runbook identity and default package.
type RunbookHeader struct {
	Org       string `json:"org,omitempty"`
	Workspace string `json:"workspace,omitempty"`
	Name      string `json:"name" validate:"required"`

	// Location is the default package location; "runbooks" when empty.
	Location string `json:"location,omitempty"`

	// Package is the default package name; "main" when empty.
	Package string `json:"package,omitempty"`
}

// FlowSpec names one flow and its top-level input values. Inputs are
// literal JSON values; expressions are not allowed here.
type FlowSpec struct {
	Name   string                     `json:"name" validate:"required"`
	Inputs map[string]json.RawMessage `json:"inputs,omitempty"`
}

// ConstructSpec is one declared block.
type ConstructSpec struct {
	// Type is the construct type: variable, output, module, flow,
	// action, or signer.
	Type string `json:"type" validate:"required,oneof=variable output module flow action signer"`

	// Name is the block label.
	Name string `json:"name" validate:"required"`

	// Matcher selects the specification for action and signer blocks,
	// e.g. "std::send_http_request".
	Matcher string `json:"matcher,omitempty"`

	// Location is the source file the block came from.
	Location string `json:"location,omitempty"`

	// Attributes are the block's attributes in declaration order.
	Attributes []AttributeSpec `json:"attributes,omitempty" validate:"dive"`
}

// AttributeSpec is one attribute with its encoded expression.
type AttributeSpec struct {
	Name string          `json:"name" validate:"required"`
	Expr json.RawMessage `json:"expr" validate:"required"`
}

// Loader parses and validates runbook documents.
type Loader struct {
	validator *validator.Validate
}

// NewLoader creates a document loader.
func NewLoader() *Loader {
	return &Loader{validator: validator.New()}
}

// Load reads and parses a document from disk.
func (l *Loader) Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read runbook document: %w", err)
	}
	return l.Parse(data)
}

// Parse decodes and validates a document.
func (l *Loader) Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse runbook document: %w", err)
	}
	if err := l.validator.Struct(&doc); err != nil {
		return nil, fmt.Errorf("invalid runbook document: %w", err)
	}
	return &doc, nil
}

// RunbookId returns the document's runbook identity.
func (d *Document) RunbookId() types.RunbookId {
	return types.RunbookId{
		Org:       d.Runbook.Org,
		Workspace: d.Runbook.Workspace,
		Name:      d.Runbook.Name,
	}
}

func (d *Document) packageId() types.PackageId {
	location := d.Runbook.Location
	if location == "" {
		location = "runbooks"
	}
	name := d.Runbook.Package
	if name == "" {
		name = "main"
	}
	return types.PackageId{RunbookId: d.RunbookId(), Location: location, Name: name}
}

// Declarations decodes every construct into engine declarations, in
// document order.
func (d *Document) Declarations() ([]engine.ConstructDeclaration, error) {
	pkg := d.packageId()
	decls := make([]engine.ConstructDeclaration, 0, len(d.Constructs))
	for _, spec := range d.Constructs {
		location := spec.Location
		if location == "" {
			location = "main.tx"
		}
		decl := engine.ConstructDeclaration{
			Package:  pkg,
			Location: location,
			Type:     spec.Type,
			Name:     spec.Name,
			Matcher:  spec.Matcher,
		}
		for _, attr := range spec.Attributes {
			expr, err := DecodeExpression(attr.Expr)
			if err != nil {
				return nil, fmt.Errorf("construct %s.%s, attribute %q: %w", spec.Type, spec.Name, attr.Name, err)
			}
			decl.Attributes = append(decl.Attributes, engine.AttributeDeclaration{Name: attr.Name, Expr: expr})
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

// FlowDefinitions decodes the document's flow definitions with their
// top-level input values.
func (d *Document) FlowDefinitions() ([]engine.FlowDefinition, error) {
	defs := make([]engine.FlowDefinition, 0, len(d.Flows))
	for _, flow := range d.Flows {
		def := engine.FlowDefinition{Name: flow.Name}
		if len(flow.Inputs) > 0 {
			inputs := types.NewValueStore(flow.Name)
			for _, key := range sortedKeys(flow.Inputs) {
				value, err := DecodeValue(flow.Inputs[key])
				if err != nil {
					return nil, fmt.Errorf("flow %q, input %q: %w", flow.Name, key, err)
				}
				inputs.Insert(key, value)
			}
			def.Inputs = inputs
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Assemble decodes the document into a runbook bound to the runtime.
func (d *Document) Assemble(runtime *engine.RuntimeContext) (*engine.Runbook, error) {
	decls, err := d.Declarations()
	if err != nil {
		return nil, err
	}
	rb := engine.NewRunbook(d.RunbookId(), runtime)
	for _, decl := range decls {
		rb.AddConstruct(decl)
	}
	return rb, nil
}
