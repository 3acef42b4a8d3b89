// Package runbooks loads pre-parsed runbook documents. A document is
// the JSON form of what a configuration-language frontend produces:
// construct declarations with expression trees, plus flow definitions.
// The loader validates the document and assembles it into an engine
// runbook; it never parses source text itself.
package runbooks
