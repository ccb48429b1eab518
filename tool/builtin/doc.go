// Package builtin provides the standard tool set registered with the agent:
// shell execution, file and filesystem operations, text search, linter
// diagnostics, web search, git operations and vision-based image analysis.
// Every tool reports
// failures through the result envelope rather than Go errors, so a broken
// tool invocation never aborts a conversation turn.
package builtin
