package commands

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/txforge/txforge/pkg/engine"
	"github.com/txforge/txforge/pkg/stores"
	"github.com/txforge/txforge/pkg/telemetry"
	"github.com/txforge/txforge/pkg/types"
)

func newRunCommand() *cobra.Command {
	var (
		envFile    string
		envName    string
		flowName   string
		statePath  string
		actor      string
		supervised bool
	)

	cmd := &cobra.Command{
		Use:   "run <runbook.json>",
		Short: "Execute a runbook",
		Long: `Execute a pre-parsed runbook document.

This command:
  - Loads the runbook document and optional environments manifest
  - Builds the construct dependency graph
  - Executes constructs in dependency order
  - In supervised mode, stops on action items and prompts for approval
  - Optionally persists run history and construct snapshots to SQLite`,
		Example: `  # Run unsupervised
  txforge run transfer.json

  # Run against the mainnet environment
  txforge run transfer.json -e environments.yaml --environment mainnet

  # Supervised run with persisted history
  txforge run transfer.json --supervised --state txforge.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := runOptions{
				runbookPath: args[0],
				envFile:     envFile,
				envName:     envName,
				flowName:    flowName,
				statePath:   statePath,
				actor:       actor,
				supervised:  supervised,
			}
			return runRunbook(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&envFile, "environments", "e", "", "environments manifest (YAML)")
	cmd.Flags().StringVar(&envName, "environment", "", "environment to run against")
	cmd.Flags().StringVar(&flowName, "flow", "", "flow to run (required for multi-flow runbooks)")
	cmd.Flags().StringVar(&statePath, "state", "", "SQLite path for run history")
	cmd.Flags().StringVar(&actor, "actor", "operator", "actor recorded for approval decisions")
	cmd.Flags().BoolVar(&supervised, "supervised", false, "stop on action items and prompt for approval")

	return cmd
}

type runOptions struct {
	runbookPath string
	envFile     string
	envName     string
	flowName    string
	statePath   string
	actor       string
	supervised  bool
}

func runRunbook(ctx context.Context, opts runOptions) error {
	tel, err := newTelemetry()
	if err != nil {
		return err
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			tel.Logger.WithError(err).Warn("failed to shut down telemetry")
		}
	}()
	logger := tel.Logger
	ctx = tel.WithContext(ctx)
	if err := tel.StartMetricsServer(); err != nil {
		return err
	}

	runtime, err := newRuntime()
	if err != nil {
		return err
	}

	flows, doc, err := loadFlows(opts.runbookPath, opts.envFile, opts.envName, runtime)
	if err != nil {
		return err
	}
	flow, err := selectFlow(flows, opts.flowName)
	if err != nil {
		return err
	}

	recorder, closeStore, err := openRecorder(ctx, opts.statePath, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	runID := uuid.New().String()
	if recorder != nil {
		if err := recorder.StartRun(ctx, runID, doc.Runbook.Name, flow.Name, opts.envName, opts.supervised); err != nil {
			return err
		}
	}

	ctx = telemetry.WithRunContext(ctx, runID, flow.Name, opts.supervised)

	var diag *types.Diagnostic
	if opts.supervised {
		diag = runSupervised(ctx, runtime, flow, tel, recorder, runID, opts)
	} else {
		driver := engine.NewDriver(runtime, flow, logger, engine.WithTelemetry(tel, runID))
		diag = driver.RunUnsupervised(ctx)
	}

	runStatus := string(stores.RunStatusCompleted)
	var runErr error
	if diag != nil {
		runStatus = string(stores.RunStatusFailed)
		runErr = diag
	}
	telemetry.EndRunContext(ctx, runID, flow.Name, runStatus, runErr)

	if recorder != nil {
		if err := recorder.SnapshotFlow(ctx, runID, flow); err != nil {
			logger.WithError(err).Warn("failed to snapshot flow")
		}
		status := stores.RunStatusCompleted
		var errMsg *string
		if diag != nil {
			status = stores.RunStatusFailed
			msg := diag.Message
			errMsg = &msg
			if err := recorder.RecordDiagnostic(ctx, runID, diag); err != nil {
				logger.WithError(err).Warn("failed to record diagnostic")
			}
		}
		if err := recorder.FinishRun(ctx, runID, status, errMsg); err != nil {
			logger.WithError(err).Warn("failed to finish run")
		}
	}

	if diag != nil {
		renderConstructStates(os.Stdout, flow)
		return fmt.Errorf("run failed: %s", diag.Message)
	}

	return renderOutputs(os.Stdout, flow)
}

// openRecorder opens the run history store when a path is configured.
// Returns a nil recorder and a no-op closer otherwise.
func openRecorder(ctx context.Context, path string, logger *telemetry.Logger) (*stores.Recorder, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	store, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		return nil, nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	closer := func() {
		if err := store.Close(); err != nil {
			logger.WithError(err).Warn("failed to close store")
		}
	}
	return stores.NewRecorder(store, logger), closer, nil
}

// runSupervised drives the flow with a terminal operator: panels render
// as tables and each item is resolved through a prompt.
func runSupervised(ctx context.Context, runtime *engine.RuntimeContext, flow *engine.FlowContext, tel *telemetry.Telemetry, recorder *stores.Recorder, runID string, opts runOptions) *types.Diagnostic {
	logger := tel.Logger
	stdin := bufio.NewReader(os.Stdin)

	events := make(chan types.BlockEvent, 64)
	responses := make(chan types.ActionItemResponse, 16)
	driver := engine.NewDriver(runtime, flow, logger,
		engine.WithEvents(events), engine.WithTelemetry(tel, runID))

	// The genesis panel is confirmed before the first pass; declining
	// aborts the run without touching any construct.
	renderPanel(os.Stdout, driver.GenesisPanel(opts.envName))
	start, err := prompt(stdin, os.Stdout, "Start the run?")
	if err != nil {
		return types.FromError(err).WithCode(types.DiagCodeFatal)
	}
	if !start {
		return types.ErrorDiag("run declined by operator").WithCode(types.DiagCodeExecutionFailed)
	}

	go func() {
		for event := range events {
			if event.Type != types.BlockEventActionPanel {
				continue
			}
			renderPanel(os.Stdout, event.Panel)
			for _, item := range event.Panel.Items() {
				response, err := resolveItem(ctx, stdin, recorder, runID, opts.actor, item)
				if err != nil {
					logger.WithError(err).Error("failed to resolve action item")
					return
				}
				responses <- response
			}
		}
	}()

	diag := driver.RunSupervised(ctx, responses)
	close(events)
	if diag == nil {
		if panel := driver.OutputsPanel(); panel != nil {
			renderPanel(os.Stdout, panel)
		}
	}
	return diag
}

// resolveItem prompts for one action item and builds the matching
// response, recording the item and decision when a recorder is present.
func resolveItem(ctx context.Context, stdin *bufio.Reader, recorder *stores.Recorder, runID, actor string, item *types.ActionItemRequest) (types.ActionItemResponse, error) {
	if recorder != nil {
		if err := recorder.RecordActionItem(ctx, runID, item); err != nil {
			return types.ActionItemResponse{}, err
		}
	}

	response := types.ActionItemResponse{ActionItemId: item.Id}
	var approved bool
	var detail string

	switch item.Type {
	case types.ActionItemReviewInput:
		ok, err := prompt(stdin, os.Stdout, fmt.Sprintf("Approve %q?", item.Title))
		if err != nil {
			return response, err
		}
		approved = ok
		response.Payload = types.ReviewedInputResponse{InputName: item.Title, Approved: ok}

	case types.ActionItemValidateBlock:
		ok, err := prompt(stdin, os.Stdout, fmt.Sprintf("Confirm %q?", item.Title))
		if err != nil {
			return response, err
		}
		if !ok {
			approved = false
			response.Payload = types.ReviewedInputResponse{InputName: item.Title, Approved: false}
			break
		}
		approved = true
		response.Payload = types.ValidateBlockResponse{}

	case types.ActionItemProvideInput:
		fmt.Printf("Enter value for %q: ", item.Title)
		line, err := stdin.ReadString('\n')
		if err != nil {
			return response, err
		}
		value := strings.TrimSpace(line)
		approved = true
		detail = value
		response.Payload = types.ProvidedInputResponse{InputName: item.Title, Value: types.StringValue(value)}

	case types.ActionItemProvidePublicKey:
		fmt.Printf("Enter public key (hex) for %q: ", item.Title)
		line, err := stdin.ReadString('\n')
		if err != nil {
			return response, err
		}
		raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(line), "0x"))
		if err != nil {
			return response, fmt.Errorf("invalid public key: %w", err)
		}
		approved = true
		response.Payload = types.ProvidedPublicKeyResponse{PublicKey: raw}

	default:
		// Item types the terminal cannot resolve are rejected so the run
		// fails instead of hanging.
		approved = false
		response.Payload = types.ReviewedInputResponse{InputName: item.Title, Approved: false}
	}

	if recorder != nil {
		var responseDetail *string
		if detail != "" {
			responseDetail = &detail
		}
		if err := recorder.RecordDecision(ctx, item.Id.String(), actor, approved, responseDetail); err != nil {
			return response, err
		}
	}
	return response, nil
}
