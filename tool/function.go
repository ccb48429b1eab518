package tool

import (
	"context"

	"github.com/hupe1980/termagent/core"
	"github.com/hupe1980/termagent/internal/util"
)

// FunctionTool adapts a plain Go function into a Tool. It validates model
// supplied arguments against the declared schema before execution and
// resolves the function's outcome into the standard envelope: a returned
// *core.ToolError keeps its code, any other error becomes an unknown fault.
//
// A FunctionTool has no mutable state after construction and is safe for
// concurrent use.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(ctx context.Context, args map[string]any) (any, error)
}

// NewFunctionTool constructs a FunctionTool from explicit schema and function.
//
// Example:
//
//	echoTool := NewFunctionTool(
//	  "echo",
//	  "Echo the input text back",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "text": map[string]any{"type": "string"},
//	    },
//	    "required": []string{"text"},
//	  },
//	  func(ctx context.Context, args map[string]any) (any, error) {
//	    return args["text"], nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(ctx context.Context, args map[string]any) (any, error),
) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// Name returns the unique tool name used in function call declarations and routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates args against the declared schema then invokes the wrapped
// function, folding any failure into the result envelope.
func (t *FunctionTool) Call(ctx context.Context, args map[string]any) (core.ToolResult, error) {
	if err := util.ValidateParameters(args, t.parameters); err != nil {
		return core.ErrorResult(core.CodeInvalidParams, err.Error()).
			WithSuggestion("Check tool parameters and try again."), nil
	}

	result, err := t.fn(ctx, args)
	if err != nil {
		if toolErr, ok := err.(*core.ToolError); ok {
			return core.ToolResult{Success: false, Error: toolErr}, nil
		}
		return core.ErrorResult(core.CodeUnknown, err.Error()), nil
	}

	return core.SuccessResult(result), nil
}
