package commands

import (
	"fmt"

	"github.com/txforge/txforge/pkg/addons/std"
	"github.com/txforge/txforge/pkg/engine"
	"github.com/txforge/txforge/pkg/environments"
	"github.com/txforge/txforge/pkg/runbooks"
	"github.com/txforge/txforge/pkg/telemetry"
	"github.com/txforge/txforge/pkg/types"
)

// newEngineLogger builds the engine-facing structured logger honoring
// the global flags.
func newEngineLogger() (*telemetry.Logger, error) {
	format := "console"
	if jsonOutput {
		format = "json"
	}
	return telemetry.NewLogger(telemetry.LoggingConfig{
		Level:  logLevel,
		Format: format,
		Output: "stderr",
	})
}

// newTelemetryConfig maps the global flags onto a telemetry
// configuration. Tracing and the metrics endpoint stay off unless
// requested; events deliver synchronously to in-process subscribers.
func newTelemetryConfig(version, level string, json bool, trace, otlp, metrics string) *telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = version

	cfg.Logging.Level = level
	cfg.Logging.Format = "console"
	if json {
		cfg.Logging.Format = "json"
	}
	cfg.Logging.Output = "stderr"

	cfg.Tracing.Enabled = trace != "" && trace != "none"
	if cfg.Tracing.Enabled {
		cfg.Tracing.Exporter = trace
		cfg.Tracing.Endpoint = otlp
	}

	cfg.Metrics.Enabled = metrics != ""
	cfg.Metrics.ListenAddress = metrics

	cfg.Events.EnableAsync = false
	cfg.Events.FlushInterval = 0
	return cfg
}

// newTelemetry builds the run-scoped telemetry surface: logger, tracer,
// metrics registry, and event publisher.
func newTelemetry() (*telemetry.Telemetry, error) {
	cfg := newTelemetryConfig(cliVersion, logLevel, jsonOutput, traceExporter, otlpEndpoint, metricsListen)
	return telemetry.NewTelemetry(cfg)
}

// newRuntime builds a runtime context with the standard addon
// registered.
func newRuntime() (*engine.RuntimeContext, error) {
	runtime := engine.NewRuntimeContext()
	if diag := runtime.RegisterAddon(std.New()); diag != nil {
		return nil, fmt.Errorf("failed to register std addon: %s", diag.Message)
	}
	return runtime, nil
}

// loadFlows loads a runbook document and builds its flow contexts. When
// an environments manifest is given, the selected environment's values
// are merged into every flow's top-level inputs (flow-declared inputs
// win).
func loadFlows(runbookPath, envFile, envName string, runtime *engine.RuntimeContext) ([]*engine.FlowContext, *runbooks.Document, error) {
	doc, err := runbooks.NewLoader().Load(runbookPath)
	if err != nil {
		return nil, nil, err
	}

	rb, err := doc.Assemble(runtime)
	if err != nil {
		return nil, nil, err
	}

	defs, err := doc.FlowDefinitions()
	if err != nil {
		return nil, nil, err
	}

	if envFile != "" {
		envInputs, err := loadEnvironment(envFile, envName)
		if err != nil {
			return nil, nil, err
		}
		if len(defs) == 0 {
			defs = []engine.FlowDefinition{{Name: "main"}}
		}
		for i := range defs {
			defs[i].Inputs = mergeInputs(envInputs, defs[i].Inputs)
		}
	}

	flows, diags := rb.BuildFlowContexts(defs...)
	if len(diags) > 0 {
		return nil, nil, fmt.Errorf("failed to build runbook: %s", diags[0])
	}
	return flows, doc, nil
}

func loadEnvironment(envFile, envName string) (*types.ValueStore, error) {
	manifest, err := environments.NewLoader().Load(envFile)
	if err != nil {
		return nil, err
	}
	if envName == "" {
		envName = environments.DefaultEnvironment
	}
	return manifest.Select(envName)
}

// mergeInputs layers overrides on top of base without mutating either.
func mergeInputs(base, overrides *types.ValueStore) *types.ValueStore {
	if base == nil {
		return overrides
	}
	merged := base.Clone()
	if overrides != nil {
		merged.Merge(overrides)
	}
	return merged
}

// selectFlow picks one flow by name, or the only flow when name is
// empty.
func selectFlow(flows []*engine.FlowContext, name string) (*engine.FlowContext, error) {
	if name == "" {
		if len(flows) != 1 {
			names := make([]string, len(flows))
			for i, f := range flows {
				names[i] = f.Name
			}
			return nil, fmt.Errorf("runbook has %d flows %v; pick one with --flow", len(flows), names)
		}
		return flows[0], nil
	}
	for _, f := range flows {
		if f.Name == name {
			return f, nil
		}
	}
	return nil, fmt.Errorf("unknown flow %q", name)
}
