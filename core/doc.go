// Package core centralizes the domain contracts shared by the session,
// tool and agent packages: conversation roles and messages, tool call
// requests surfaced by models, and the uniform ToolResult envelope every
// tool invocation resolves to. Keeping these here prevents import cycles
// between the storage, dispatch and orchestration layers.
package core
