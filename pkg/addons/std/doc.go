// Package std provides the standard addon: hashing and encoding
// functions, assertion helpers, and general-purpose actions available
// under the "std" namespace in every runbook.
package std
