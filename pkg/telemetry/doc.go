// Package telemetry provides comprehensive observability instrumentation for txforge.
//
// The telemetry package integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry), metrics (Prometheus), and event publishing into a unified system
// for monitoring and debugging runbook execution.
//
// # Architecture
//
// The telemetry system is built on four pillars:
//
//  1. Structured Logging - Context-aware logging with zerolog
//  2. Distributed Tracing - OpenTelemetry traces with multiple exporters
//  3. Metrics Collection - Prometheus metrics for operational insights
//  4. Event Publishing - Async event system for audit and notifications
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceName = "txforge"
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	// Start metrics server
//	if err := tel.StartMetricsServer(); err != nil {
//	    log.Fatal(err)
//	}
//
// Add telemetry to context:
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
// The logger provides component-specific logging with automatic context propagation:
//
//	logger := tel.Logger.NewComponentLogger("driver")
//	logger = logger.WithRunID("run-123").WithConstruct("action.transfer")
//	logger.Info("Executing construct")
//	logger.WithError(err).Error("Construct execution failed")
//
// Log levels: trace, debug, info, warn, error, fatal
//
// # Distributed Tracing
//
// Tracing provides visibility into run execution flow and performance:
//
//	ctx, span := tel.Tracer.Start(ctx, "operation.name")
//	defer span.End()
//
//	// Add attributes
//	span.SetAttributes(
//	    telemetry.AttrConstructDid.String(did.Hex()),
//	    telemetry.AttrConstructType.String("action"),
//	)
//
//	// Record events
//	span.AddEvent("inputs.evaluated")
//
//	// Record errors
//	if err != nil {
//	    telemetry.RecordError(span, err)
//	}
//
// Supported exporters: OTLP (production), Stdout (development)
//
// # Metrics
//
// Prometheus metrics track system behavior and performance:
//
//	// Record run execution
//	tel.Metrics.RecordRunStarted("main", true)
//	tel.Metrics.RecordRunCompleted("main", "succeeded", duration)
//
//	// Record construct execution
//	tel.Metrics.ObserveConstruct("action", true)
//	tel.Metrics.ObserveConstructDuration("action", duration)
//
//	// Record addon calls
//	tel.Metrics.RecordAddonCall("evm", "send_transaction", duration)
//
//	// Record diagnostics
//	tel.Metrics.RecordDiagnostic("EXECUTION_FAILED")
//
// Metrics are exposed via HTTP at /metrics (default: :9090/metrics)
//
// # Event Publishing
//
// The event system provides async publishing with buffering and filtering:
//
//	// Publish events
//	tel.Events.PublishRunStarted(runID, flowName, supervised)
//	tel.Events.PublishConstructCompleted(runID, did.Hex(), "action.transfer", duration)
//	tel.Events.PublishActionItemEmitted(runID, did.Hex(), "review_input", "Review amount")
//
//	// Subscribe to events
//	tel.Events.Subscribe(func(event telemetry.Event) {
//	    fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
//	}, telemetry.FilterByLevel("warning"))
//
// Event filters: FilterByLevel, FilterByType, FilterByRunID, FilterByConstructDid
//
// # Configuration
//
// The package provides pre-configured setups for different environments:
//
//	// Development (verbose logging, stdout traces, full sampling)
//	cfg := telemetry.DevelopmentConfig()
//
//	// Production (JSON logs, OTLP traces, 10% sampling)
//	cfg := telemetry.ProductionConfig()
//
//	// Custom configuration
//	cfg := &telemetry.Config{
//	    ServiceName: "txforge",
//	    ServiceVersion: "1.0.0",
//	    Environment: "staging",
//	    Logging: telemetry.LoggingConfig{
//	        Level: "info",
//	        Format: "json",
//	    },
//	    Tracing: telemetry.TracingConfig{
//	        Enabled: true,
//	        Exporter: "otlp",
//	        Endpoint: "otel-collector:4317",
//	        SamplingRate: 0.1,
//	    },
//	    Metrics: telemetry.MetricsConfig{
//	        Enabled: true,
//	        ListenAddress: ":9090",
//	    },
//	}
//
// # Performance Considerations
//
// The telemetry system is designed for minimal overhead:
//
//   - Structured logging uses zerolog's zero-allocation approach
//   - Tracing uses sampling to reduce data volume in production
//   - Metrics use Prometheus's efficient storage format
//   - Events are buffered and batched to reduce I/O
//   - All operations are non-blocking when possible
//
// # Graceful Shutdown
//
// Always shut down telemetry gracefully to flush pending data:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//
//	if err := tel.Shutdown(ctx); err != nil {
//	    log.Printf("Telemetry shutdown error: %v", err)
//	}
//
// This ensures:
//   - All buffered events are published
//   - All pending traces are exported
//   - Metrics are finalized
//
// # Common Metrics
//
// Key metrics exposed:
//
//   - txforge_runs_started_total{flow,supervised}
//   - txforge_runs_completed_total{flow,status}
//   - txforge_run_duration_seconds{flow,status}
//   - txforge_constructs_executed_total{type,status}
//   - txforge_construct_duration_seconds{type}
//   - txforge_action_items_emitted_total{type}
//   - txforge_action_items_resolved_total{type,status}
//   - txforge_addon_calls_total{addon,command}
//   - txforge_addon_call_duration_seconds{addon,command}
//   - txforge_addon_errors_total{addon,command}
//   - txforge_errors_by_code_total{code}
//   - txforge_active_runs
//   - txforge_background_tasks
//   - txforge_pending_action_items
//
// # Security Considerations
//
//   - Never log sensitive input values (keys, mnemonics, credentials)
//   - Sanitize construct names if they contain PII
//   - Use secure connections (TLS) for trace exporters in production
//   - Limit metrics endpoint access via network policies
//   - Consider event data before adding to audit logs
package telemetry
