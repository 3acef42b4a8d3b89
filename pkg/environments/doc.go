// Package environments loads environment sets for runbook execution.
// An environment manifest is a YAML file mapping environment names to
// flat key-value sets; the selected set is resolved into engine values
// and seeded as the flow's top-level inputs.
package environments
