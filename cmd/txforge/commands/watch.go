package commands

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/txforge/txforge/pkg/telemetry"
)

func newWatchCommand() *cobra.Command {
	var (
		envFile  string
		envName  string
		flowName string
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <runbook.json>",
		Short: "Re-run a runbook whenever its files change",
		Long: `Watch the runbook document (and the environments manifest, when given)
and re-run the flow unsupervised after every change. Failed runs are
reported and watching continues.`,
		Example: `  # Re-run on every edit
  txforge watch transfer.json

  # Watch the environment file too
  txforge watch transfer.json -e environments.yaml --environment testnet`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newEngineLogger()
			if err != nil {
				return err
			}
			opts := runOptions{
				runbookPath: args[0],
				envFile:     envFile,
				envName:     envName,
				flowName:    flowName,
			}
			return watchRunbook(cmd.Context(), logger, opts, debounce)
		},
	}

	cmd.Flags().StringVarP(&envFile, "environments", "e", "", "environments manifest (YAML)")
	cmd.Flags().StringVar(&envName, "environment", "", "environment to run against")
	cmd.Flags().StringVar(&flowName, "flow", "", "flow to run (required for multi-flow runbooks)")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "delay before re-running after a change")

	return cmd
}

func watchRunbook(ctx context.Context, logger *telemetry.Logger, opts runOptions, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(opts.runbookPath); err != nil {
		return err
	}
	if opts.envFile != "" {
		if err := watcher.Add(opts.envFile); err != nil {
			return err
		}
	}

	logger = logger.NewComponentLogger("watch")
	runOnce := func() {
		if err := runRunbook(ctx, opts); err != nil {
			logger.WithError(err).Error("run failed")
		}
	}

	// First run before any change arrives.
	runOnce()
	logger.Infof("watching %s", opts.runbookPath)

	var rerunTimer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			logger.WithField("file", event.Name).Debug("file changed")
			if rerunTimer != nil {
				rerunTimer.Stop()
			}
			rerunTimer = time.AfterFunc(debounce, runOnce)

			// Some editors replace the file on save, dropping the watch.
			_ = watcher.Add(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("watch error")
		}
	}
}
