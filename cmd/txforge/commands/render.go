package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/txforge/txforge/pkg/engine"
	"github.com/txforge/txforge/pkg/types"
)

// renderOutputs prints the flow's output values, as a table or JSON
// depending on the global flag.
func renderOutputs(w io.Writer, flow *engine.FlowContext) error {
	outputs := flow.Outputs()
	if outputs.Len() == 0 {
		return nil
	}

	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(outputs.ToObject().ToJSON())
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle("%s: outputs", flow.Name)
	tw.AppendHeader(table.Row{"Output", "Value"})
	outputs.Iter(func(name string, value types.Value) bool {
		tw.AppendRow(table.Row{name, value.String()})
		return true
	})
	tw.Render()
	return nil
}

// renderPanel prints an action panel as a table of items.
func renderPanel(w io.Writer, panel *types.ActionPanel) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle(panel.Title)
	tw.AppendHeader(table.Row{"#", "Group", "Item", "Type", "Detail"})
	for _, group := range panel.Groups {
		for _, item := range group.Items {
			detail := item.Description
			if item.Payload != nil {
				if value, ok := item.Payload.Get("value"); ok {
					detail = value.String()
				}
			}
			tw.AppendRow(table.Row{item.Index + 1, group.Title, item.Title, item.Type, detail})
		}
	}
	tw.Render()
}

// renderConstructStates prints every construct's final state.
func renderConstructStates(w io.Writer, flow *engine.FlowContext) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Construct", "State"})
	for _, did := range flow.Execution.Order() {
		c, ok := flow.Workspace.Construct(did)
		if !ok {
			continue
		}
		if c.Command == nil && c.Signer == nil {
			continue
		}
		tw.AppendRow(table.Row{c.Reference(), flow.Execution.State(did)})
	}
	tw.Render()
}

// prompt asks a yes/no question on the terminal.
func prompt(in *bufio.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := in.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
