package types

import (
	"strconv"
	"strings"
)

// Expression is the abstract syntax of a construct attribute value. The
// engine never parses source text itself; parsers hand it this tree.
type Expression interface {
	// CollectReferences appends every symbol reference reachable from this
	// expression. Literals contribute nothing; variables and traversals
	// rooted at a variable contribute one reference each.
	CollectReferences(refs *[]Reference)
}

// Reference is a symbol reference found inside an expression: the dotted
// path of identifiers and index steps, e.g. action.send.tx_hash.
type Reference struct {
	// Parts holds the path segments. Parts[0] is the root identifier;
	// later segments are attribute names or decimal array indexes.
	Parts []string

	// Span locates the reference in source, when known.
	Span *DiagnosticSpan
}

// String renders the reference in dotted form.
func (r Reference) String() string {
	return strings.Join(r.Parts, ".")
}

// LiteralExpr holds a fully-resolved constant.
type LiteralExpr struct {
	Value Value
	Span  *DiagnosticSpan
}

func (e *LiteralExpr) CollectReferences(refs *[]Reference) {}

// VariableExpr is a bare identifier.
type VariableExpr struct {
	Name string
	Span *DiagnosticSpan
}

func (e *VariableExpr) CollectReferences(refs *[]Reference) {
	*refs = append(*refs, Reference{Parts: []string{e.Name}, Span: e.Span})
}

// TraversalStep is one step of a traversal path.
type TraversalStep struct {
	// Attr is the attribute name for attribute steps.
	Attr string

	// Index is the array index for index steps; used when IsIndex is true.
	Index int64

	// IsIndex distinguishes index steps from attribute steps.
	IsIndex bool
}

// TraversalExpr is a dotted or indexed path rooted at an expression,
// e.g. action.send.tx_hash or outputs[0].value.
type TraversalExpr struct {
	Root  Expression
	Steps []TraversalStep
	Span  *DiagnosticSpan
}

func (e *TraversalExpr) CollectReferences(refs *[]Reference) {
	// A traversal rooted at a variable is a single reference covering the
	// whole path. Any other root is recursed into.
	root, ok := e.Root.(*VariableExpr)
	if !ok {
		e.Root.CollectReferences(refs)
		return
	}
	parts := make([]string, 0, len(e.Steps)+1)
	parts = append(parts, root.Name)
	for _, step := range e.Steps {
		if step.IsIndex {
			parts = append(parts, strconv.FormatInt(step.Index, 10))
		} else {
			parts = append(parts, step.Attr)
		}
	}
	*refs = append(*refs, Reference{Parts: parts, Span: e.Span})
}

// ArrayExpr is an array constructor.
type ArrayExpr struct {
	Elems []Expression
	Span  *DiagnosticSpan
}

func (e *ArrayExpr) CollectReferences(refs *[]Reference) {
	for _, elem := range e.Elems {
		elem.CollectReferences(refs)
	}
}

// ObjectEntry is a key/value pair of an object constructor. Keys are
// expressions since they may themselves be computed.
type ObjectEntry struct {
	Key   Expression
	Value Expression
}

// ObjectExpr is an object constructor.
type ObjectExpr struct {
	Entries []ObjectEntry
	Span    *DiagnosticSpan
}

func (e *ObjectExpr) CollectReferences(refs *[]Reference) {
	for _, entry := range e.Entries {
		entry.Key.CollectReferences(refs)
		entry.Value.CollectReferences(refs)
	}
}

// BinaryOp identifies a binary operator.
type BinaryOp string

const (
	OpAdd            BinaryOp = "+"
	OpSub            BinaryOp = "-"
	OpMul            BinaryOp = "*"
	OpDiv            BinaryOp = "/"
	OpMod            BinaryOp = "%"
	OpEq             BinaryOp = "=="
	OpNotEq          BinaryOp = "!="
	OpLess           BinaryOp = "<"
	OpLessOrEqual    BinaryOp = "<="
	OpGreater        BinaryOp = ">"
	OpGreaterOrEqual BinaryOp = ">="
	OpAnd            BinaryOp = "&&"
	OpOr             BinaryOp = "||"
)

// BinaryExpr applies a binary operator.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expression
	Right Expression
	Span  *DiagnosticSpan
}

func (e *BinaryExpr) CollectReferences(refs *[]Reference) {
	e.Left.CollectReferences(refs)
	e.Right.CollectReferences(refs)
}

// UnaryOp identifies a unary operator.
type UnaryOp string

const (
	OpNeg UnaryOp = "-"
	OpNot UnaryOp = "!"
)

// UnaryExpr applies a unary operator.
type UnaryExpr struct {
	Op      UnaryOp
	Operand Expression
	Span    *DiagnosticSpan
}

func (e *UnaryExpr) CollectReferences(refs *[]Reference) {
	e.Operand.CollectReferences(refs)
}

// ConditionalExpr is a ternary conditional.
type ConditionalExpr struct {
	Condition Expression
	TrueExpr  Expression
	FalseExpr Expression
	Span      *DiagnosticSpan
}

func (e *ConditionalExpr) CollectReferences(refs *[]Reference) {
	e.Condition.CollectReferences(refs)
	e.TrueExpr.CollectReferences(refs)
	e.FalseExpr.CollectReferences(refs)
}

// ForExpr is a comprehension over a collection.
type ForExpr struct {
	// KeyVar and ValueVar are the iteration variable names; KeyVar may be
	// empty for value-only iteration.
	KeyVar   string
	ValueVar string

	// Collection is the expression producing the iterated collection.
	Collection Expression

	// KeyExpr produces map keys when the comprehension builds an object;
	// nil for array comprehensions.
	KeyExpr Expression

	// ValueExpr produces each result element.
	ValueExpr Expression

	// Condition optionally filters elements; nil when absent.
	Condition Expression

	Span *DiagnosticSpan
}

func (e *ForExpr) CollectReferences(refs *[]Reference) {
	e.Collection.CollectReferences(refs)
	if e.KeyExpr != nil {
		e.KeyExpr.CollectReferences(refs)
	}
	e.ValueExpr.CollectReferences(refs)
	if e.Condition != nil {
		e.Condition.CollectReferences(refs)
	}
}

// FunctionCallExpr invokes a named function, optionally namespaced to an
// addon, e.g. encode_hex(...) or evm::address(...).
type FunctionCallExpr struct {
	// Namespace is the addon namespace, empty for core functions.
	Namespace string

	// Name is the function name.
	Name string

	// Args are the positional arguments.
	Args []Expression

	Span *DiagnosticSpan
}

func (e *FunctionCallExpr) CollectReferences(refs *[]Reference) {
	for _, arg := range e.Args {
		arg.CollectReferences(refs)
	}
}

// TemplatePart is one segment of a string template: either a literal chunk
// or an interpolated expression.
type TemplatePart struct {
	// Literal is the raw text for literal parts.
	Literal string

	// Interp is the interpolated expression; nil for literal parts.
	Interp Expression
}

// TemplateExpr is a string template with interpolations.
type TemplateExpr struct {
	Parts []TemplatePart
	Span  *DiagnosticSpan
}

func (e *TemplateExpr) CollectReferences(refs *[]Reference) {
	for _, part := range e.Parts {
		if part.Interp != nil {
			part.Interp.CollectReferences(refs)
		}
	}
}

// ParenExpr is a parenthesized expression.
type ParenExpr struct {
	Inner Expression
	Span  *DiagnosticSpan
}

func (e *ParenExpr) CollectReferences(refs *[]Reference) {
	e.Inner.CollectReferences(refs)
}

// CollectReferences gathers every reference in expr in source order.
func CollectReferences(expr Expression) []Reference {
	var refs []Reference
	if expr != nil {
		expr.CollectReferences(&refs)
	}
	return refs
}
