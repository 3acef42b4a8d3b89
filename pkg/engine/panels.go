package engine

import (
	"fmt"

	"github.com/txforge/txforge/pkg/types"
)

// GenesisPanel builds the initial action panel shown before the first
// evaluation pass of a supervised run: one review item per top-level
// input, closed by a validate gate. Item ids derive from content, so
// re-running the same flow against the same inputs produces the same
// panel.
func (d *Driver) GenesisPanel(environment string) *types.ActionPanel {
	var items []*types.ActionItemRequest
	index := uint32(0)

	d.flow.TopLevelInputs.Iter(func(name string, value types.Value) bool {
		payload := types.NewValueStore(name)
		payload.Insert("value", value)
		item := &types.ActionItemRequest{
			Index:       index,
			Title:       name,
			Description: fmt.Sprintf("Top-level input for flow %q", d.flow.Name),
			Type:        types.ActionItemReviewInput,
			Status:      types.ActionItemTodo,
			InternalKey: "genesis:" + name,
			Payload:     payload,
		}
		item.Id = item.ComputeId()
		items = append(items, item)
		index++
		return true
	})

	gate := &types.ActionItemRequest{
		Index:       index,
		Title:       "Start " + d.flow.Name,
		Description: fmt.Sprintf("Confirm inputs for environment %q and start the run", environment),
		Type:        types.ActionItemValidateBlock,
		Status:      types.ActionItemTodo,
		InternalKey: "genesis:validate",
	}
	gate.Id = gate.ComputeId()
	items = append(items, gate)

	title := d.flow.Name
	if environment != "" {
		title = fmt.Sprintf("%s (%s)", d.flow.Name, environment)
	}
	return &types.ActionPanel{
		Title:  title,
		Groups: []*types.ActionGroup{{Title: "Inputs", Items: items}},
	}
}

// EmitGenesisPanel sends the genesis panel on the event channel. No-op
// without one.
func (d *Driver) EmitGenesisPanel(environment string) {
	d.emit(types.NewActionPanelEvent(d.GenesisPanel(environment)))
}

// OutputsPanel collects the results of every completed output construct
// into display items, one group per panel. Returns nil when the flow
// produced no outputs.
func (d *Driver) OutputsPanel() *types.ActionPanel {
	var items []*types.ActionItemRequest
	index := uint32(0)

	for _, c := range d.flow.Workspace.Constructs() {
		if c.Id.ConstructType != types.ConstructTypeOutput {
			continue
		}
		result, ok := d.flow.Execution.Result(c.Did)
		if !ok {
			continue
		}
		value, ok := result.Get("value")
		if !ok {
			continue
		}
		payload := types.NewValueStore(c.Id.ConstructName)
		payload.Insert("value", value)
		item := &types.ActionItemRequest{
			ConstructDid: c.Did,
			Index:        index,
			Title:        c.Id.ConstructName,
			Type:         types.ActionItemDisplayOutput,
			Status:       types.ActionItemSuccess,
			InternalKey:  "output:" + c.Reference(),
			Payload:      payload,
		}
		item.Id = item.ComputeId()
		items = append(items, item)
		index++
	}

	if len(items) == 0 {
		return nil
	}
	return &types.ActionPanel{
		Title:  d.flow.Name + ": outputs",
		Groups: []*types.ActionGroup{{Title: "Outputs", Items: items}},
	}
}

// EmitOutputsPanel sends the outputs panel on the event channel, if the
// flow produced outputs.
func (d *Driver) EmitOutputsPanel() {
	if panel := d.OutputsPanel(); panel != nil {
		d.emit(types.NewActionPanelEvent(panel))
	}
}
