package telemetry_test

import (
	"context"
	"fmt"
	"time"

	"github.com/txforge/txforge/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Example_basicSetup demonstrates basic telemetry setup.
func Example_basicSetup() {
	// Create configuration
	cfg := telemetry.DefaultConfig()
	cfg.ServiceName = "txforge"
	cfg.ServiceVersion = "1.0.0"

	// Initialize telemetry
	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	// Start metrics server (non-blocking)
	if err := tel.StartMetricsServer(); err != nil {
		panic(err)
	}

	// Add telemetry to context
	ctx := tel.WithContext(context.Background())

	// Use telemetry
	logger := telemetry.FromContext(ctx)
	logger.Info("Application started")

	// Output can vary, so we don't specify output for this example
}

// Example_structuredLogging demonstrates structured logging features.
func Example_structuredLogging() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Logging.Output = "stdout"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Component-specific logger
	logger := tel.Logger.NewComponentLogger("driver")

	// Add context fields
	logger = logger.WithFields(map[string]interface{}{
		"run_id":    "run-123",
		"construct": "action.transfer",
	})

	// Log at different levels
	logger.Debug("Evaluating construct inputs")
	logger.Info("Construct executed successfully")
	logger.Warn("Construct awaiting operator review")

	// Log with error
	err := fmt.Errorf("rpc timeout")
	logger.WithError(err).Error("Failed to reach remote endpoint")

	// Output varies, no output specified
}

// Example_distributedTracing demonstrates distributed tracing usage.
func Example_distributedTracing() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Tracing.Exporter = "stdout"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	// Start a span
	ctx, span := tel.Tracer.Start(ctx, "run.execute")
	defer span.End()

	// Add attributes
	span.SetAttributes(
		attribute.String("flow.name", "main"),
		attribute.Int("construct.count", 5),
	)

	// Add event
	span.AddEvent("graph.sorted")

	// Nested span
	ctx, childSpan := tel.Tracer.Start(ctx, "construct.execute")
	defer childSpan.End()

	childSpan.SetAttributes(
		attribute.String("construct.type", "action"),
		attribute.String("construct.name", "transfer"),
	)

	// Simulate work
	time.Sleep(10 * time.Millisecond)

	// Record success
	telemetry.RecordSuccess(childSpan)

	// Output varies, no output specified
}

// Example_metricsCollection demonstrates metrics collection.
func Example_metricsCollection() {
	cfg := telemetry.DefaultConfig()
	cfg.Metrics.Enabled = true

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Record run metrics
	tel.Metrics.RecordRunStarted("main", true)

	// Simulate run execution
	start := time.Now()
	time.Sleep(50 * time.Millisecond)
	duration := time.Since(start)

	tel.Metrics.RecordRunCompleted("main", "succeeded", duration)

	// Record construct metrics
	tel.Metrics.ObserveConstruct("action", true)
	tel.Metrics.ObserveConstructDuration("action", 25*time.Millisecond)

	// Record addon metrics
	tel.Metrics.RecordAddonCall("evm", "send_transaction", 15*time.Millisecond)

	// Record diagnostics
	tel.Metrics.RecordDiagnostic("EXECUTION_FAILED")

	// Track background tasks
	tel.Metrics.SetBackgroundTasks(2)

	fmt.Println("Metrics recorded successfully")
	// Output: Metrics recorded successfully
}

// Example_eventPublishing demonstrates event publishing and subscription.
func Example_eventPublishing() {
	cfg := telemetry.DefaultConfig()
	cfg.Events.Enabled = true
	cfg.Events.EnableAsync = false // Synchronous for example

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Subscribe to events
	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
	}, nil) // No filter, receive all events

	// Publish events
	tel.Events.PublishRunStarted("run-123", "main", false)
	tel.Events.PublishConstructStarted("run-123", "did-456", "action.transfer")
	tel.Events.PublishConstructCompleted("run-123", "did-456", "action.transfer", 25*time.Millisecond)

	// Output varies due to async nature, no output specified
}

// Example_runInstrumentation demonstrates instrumenting a complete run.
func Example_runInstrumentation() {
	cfg := telemetry.DevelopmentConfig()
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	// Start run context
	runID := "run-123"
	ctx = telemetry.WithRunContext(ctx, runID, "main", false)

	// Execute run (simulated)
	executeRun(ctx, runID)

	// End run context
	telemetry.EndRunContext(ctx, runID, "main", "succeeded", nil)

	fmt.Println("Run instrumentation complete")
	// Output: Run instrumentation complete
}

func executeRun(ctx context.Context, runID string) {
	// Simulate construct execution
	constructDid := "did-456"
	constructType := "action"
	reference := "action.transfer"

	ctx = telemetry.WithConstructContext(ctx, runID, constructDid, constructType, reference)

	// Get logger from context
	logger := telemetry.FromContext(ctx)
	logger.Info("Executing construct")

	// Simulate work
	time.Sleep(10 * time.Millisecond)

	// End construct context
	telemetry.EndConstructContext(ctx, runID, constructDid, constructType, reference, nil)
}

// Example_addonInstrumentation demonstrates instrumenting addon calls.
func Example_addonInstrumentation() {
	cfg := telemetry.DevelopmentConfig()
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	// Add addon context
	ctx = telemetry.WithAddonContext(ctx, "evm")

	// Record addon operation
	err := telemetry.RecordAddonOperation(ctx, "evm", "send_transaction", func() error {
		// Simulate addon work
		time.Sleep(15 * time.Millisecond)
		return nil
	})

	if err == nil {
		fmt.Println("Addon operation completed successfully")
	}

	// Output: Addon operation completed successfully
}

// Example_instrumentedOperation demonstrates using the InstrumentedContext helper.
func Example_instrumentedOperation() {
	cfg := telemetry.DevelopmentConfig()
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	// Start instrumented operation
	ic := telemetry.StartOperation(ctx, "runbook.index",
		attribute.String("runbook.path", "runbooks/transfer.tx"),
	)
	defer ic.End(nil)

	// Use the instrumented context
	ic.Logger.Info("Indexing runbook constructs")

	// Simulate indexing
	time.Sleep(5 * time.Millisecond)

	ic.Logger.Debug("Runbook indexing complete")

	fmt.Println("Operation instrumentation complete")
	// Output: Operation instrumentation complete
}

// Example_eventFiltering demonstrates event filtering.
func Example_eventFiltering() {
	cfg := telemetry.DefaultConfig()
	cfg.Events.Enabled = true
	cfg.Events.EnableAsync = false

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Subscribe with level filter (only warnings and errors)
	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Important event: %s\n", event.Type)
	}, telemetry.FilterByLevel(telemetry.EventLevelWarning))

	// Subscribe with type filter (only construct failures)
	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Failure event: %s\n", event.Message)
	}, telemetry.FilterByType(telemetry.EventTypeConstructFailed))

	// Publish various events
	tel.Events.PublishRunStarted("run-123", "main", false)                            // Info - filtered by level filter
	tel.Events.PublishConstructFailed("run-123", "did-1", "action.transfer", "boom")  // Error - passes both filters
	tel.Events.PublishRunFailed("run-123", "main", "one or more constructs failed")   // Error - passes level filter

	// Output varies, no output specified
}

// Example_productionConfiguration demonstrates production-ready configuration.
func Example_productionConfiguration() {
	cfg := telemetry.ProductionConfig()

	// Customize for your environment
	cfg.ServiceName = "txforge"
	cfg.ServiceVersion = "1.2.3"
	cfg.Environment = "production"

	// Configure OTLP exporter
	cfg.Tracing.Exporter = "otlp"
	cfg.Tracing.Endpoint = "otel-collector.monitoring.svc.cluster.local:4317"
	cfg.Tracing.SamplingRate = 0.1 // 10% sampling
	cfg.Tracing.Insecure = false   // Use TLS in production

	// Configure metrics
	cfg.Metrics.ListenAddress = ":9090"
	cfg.Metrics.Namespace = "txforge"

	// Configure events
	cfg.Events.BufferSize = 10000
	cfg.Events.FlushInterval = 5 * time.Second

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	fmt.Println("Production configuration validated")
	// Output: Production configuration validated
}

// Example_errorRecording demonstrates error recording with proper classification.
func Example_errorRecording() {
	cfg := telemetry.DevelopmentConfig()
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	// Start a span
	ctx, span := tel.Tracer.Start(ctx, "risky_operation")
	defer span.End()

	// Simulate an error
	err := fmt.Errorf("connection timeout")

	if err != nil {
		// Record error on span
		telemetry.RecordError(span, err)

		// Record diagnostic metric with its code
		tel.Metrics.RecordDiagnostic("EXECUTION_FAILED")

		// Log error
		logger := telemetry.FromContext(ctx)
		logger.WithError(err).Error("Operation failed")
	}

	fmt.Println("Error recording complete")
	// Output: Error recording complete
}

// Example_multipleComponents demonstrates telemetry in a multi-component system.
func Example_multipleComponents() {
	cfg := telemetry.DevelopmentConfig()
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Component-specific loggers
	driverLogger := tel.Logger.NewComponentLogger("driver")
	evalLogger := tel.Logger.NewComponentLogger("evaluator")
	storeLogger := tel.Logger.NewComponentLogger("store")

	driverLogger.Info("Driver initialized")
	evalLogger.Info("Evaluating construct inputs")
	storeLogger.Info("Opening run store")

	fmt.Println("Multi-component logging complete")
	// Output: Multi-component logging complete
}
