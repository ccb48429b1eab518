package agent

import (
	"github.com/hupe1980/termagent/core"
	"github.com/hupe1980/termagent/model"
)

// toolCallAccumulator folds streamed tool-call fragments into complete
// calls. Fragments carry an id only on their first chunk; subsequent
// argument chunks attach to the most recently seen id.
type toolCallAccumulator struct {
	order     []string
	calls     map[string]*core.ToolCall
	currentID string
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{
		calls: make(map[string]*core.ToolCall),
	}
}

func (a *toolCallAccumulator) add(delta model.ToolCallDelta) {
	id := delta.ID
	if id == "" {
		id = a.currentID
	}
	if id == "" {
		// Fragment before any id-bearing chunk; nothing to attach it to.
		return
	}
	if delta.ID != "" {
		a.currentID = delta.ID
	}

	call, ok := a.calls[id]
	if !ok {
		call = &core.ToolCall{ID: id}
		a.calls[id] = call
		a.order = append(a.order, id)
	}
	if delta.Name != "" {
		call.Name = delta.Name
	}
	call.Arguments += delta.Arguments
}

// toolCalls returns the completed calls in first-seen order.
func (a *toolCallAccumulator) toolCalls() []core.ToolCall {
	if len(a.order) == 0 {
		return nil
	}
	out := make([]core.ToolCall, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, *a.calls[id])
	}

	return out
}
