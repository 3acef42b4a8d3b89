package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newInspectCommand() *cobra.Command {
	var (
		envFile  string
		envName  string
		flowName string
		asDOT    bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <runbook.json>",
		Short: "Show a runbook's construct graph",
		Long: `Load a runbook document, build its dependency graph, and print the
constructs in scheduling order without executing anything. With --dot
the graph is printed in Graphviz DOT format instead.`,
		Example: `  # Print the scheduling order
  txforge inspect transfer.json

  # Render the graph with Graphviz
  txforge inspect transfer.json --dot | dot -Tsvg -o transfer.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runtime, err := newRuntime()
			if err != nil {
				return err
			}
			flows, _, err := loadFlows(args[0], envFile, envName, runtime)
			if err != nil {
				return err
			}
			flow, err := selectFlow(flows, flowName)
			if err != nil {
				return err
			}

			if asDOT {
				fmt.Print(flow.Graph.ToDOT(flow.Workspace))
				return nil
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.SetTitle("%s: scheduling order", flow.Name)
			tw.AppendHeader(table.Row{"#", "Construct", "Matcher", "Depends on"})
			for i, did := range flow.Execution.Order() {
				c, ok := flow.Workspace.Construct(did)
				if !ok {
					continue
				}
				matcher := ""
				if c.Command != nil {
					matcher = c.Command.MatcherName()
				}

				var deps []string
				for _, dep := range flow.Graph.Dependencies(did) {
					if d, ok := flow.Workspace.Construct(dep); ok {
						deps = append(deps, d.Reference())
					}
				}
				tw.AppendRow(table.Row{i + 1, c.Reference(), matcher, joinOrDash(deps)})
			}
			tw.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&envFile, "environments", "e", "", "environments manifest (YAML)")
	cmd.Flags().StringVar(&envName, "environment", "", "environment to resolve inputs from")
	cmd.Flags().StringVar(&flowName, "flow", "", "flow to inspect (required for multi-flow runbooks)")
	cmd.Flags().BoolVar(&asDOT, "dot", false, "print the graph in Graphviz DOT format")

	return cmd
}

func joinOrDash(parts []string) string {
	if len(parts) == 0 {
		return "-"
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}
