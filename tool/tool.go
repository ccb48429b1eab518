// Package tool implements the dispatch layer that lets the model invoke
// structured local capabilities: a registry of named tools, a per-tool
// sliding-window rate limiter, a uniform execution timeout, and
// normalization of every outcome into the core.ToolResult envelope. Dispatch
// never propagates a fault to the caller; failures travel as data.
package tool

import (
	"context"

	"github.com/hupe1980/termagent/core"
)

// Tool is one registered capability the model can call. Implementations may
// perform arbitrary I/O but should resolve their own failures into the
// ToolResult envelope; an escaping error (or panic) is reported by the
// dispatcher as an unknown fault.
//
// Tool implementations should:
//   - Provide clear, descriptive names (snake_case) and descriptions
//   - Define a JSON schema for their parameters
//   - Honor ctx cancellation: the dispatcher enforces its timeout through it
//   - Be safe for concurrent use
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns the human-readable description given to the model.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool with decoded arguments.
	Call(ctx context.Context, args map[string]any) (core.ToolResult, error)
}
