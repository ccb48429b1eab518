package core

import (
	"fmt"
	"time"
)

// Error codes attached to failed tool invocations. The wire form is kept
// machine-readable so the model can branch on it.
const (
	CodeInvalidParams = "ERROR_INVALID_PARAMS"
	CodeTimeout       = "ERROR_TIMEOUT"
	CodeRateLimited   = "ERROR_RATE_LIMITED"
	CodeUnknown       = "ERROR_UNKNOWN"

	// Resource and execution codes raised by the builtin tool set.
	CodeFileNotFound     = "ERROR_FILE_NOT_FOUND"
	CodeFileTooLarge     = "ERROR_FILE_TOO_LARGE"
	CodePermissionDenied = "ERROR_PERMISSION_DENIED"
	CodeExecutionFailed  = "ERROR_EXECUTION_FAILED"
	CodeNetworkError     = "ERROR_NETWORK_ERROR"
)

// ToolError carries structured failure information for a tool invocation.
// Success and failure are mutually exclusive on ToolResult; consumers branch
// on ToolResult.Success, never on error propagation.
type ToolError struct {
	Code        string         `json:"code"`
	Message     string         `json:"message"`
	Recoverable bool           `json:"recoverable"`
	Suggestion  string         `json:"suggestion,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

// Error implements the error interface so a ToolError can be logged or
// wrapped where a plain error is expected.
func (e *ToolError) Error() string {
	return fmt.Sprintf("tool error [%s]: %s", e.Code, e.Message)
}

// ResultMeta records execution metadata attached to every ToolResult,
// on both the success and failure paths.
type ResultMeta struct {
	ToolName   string `json:"tool_name"`
	DurationMS int64  `json:"duration_ms"`
}

// ToolResult is the single envelope shape returned by every tool invocation
// and by the dispatch layer itself.
type ToolResult struct {
	Success bool       `json:"success"`
	Result  any        `json:"result,omitempty"`
	Error   *ToolError `json:"error,omitempty"`
	Meta    ResultMeta `json:"metadata"`
}

// SuccessResult wraps an arbitrary payload into a successful envelope.
func SuccessResult(result any) ToolResult {
	return ToolResult{Success: true, Result: result}
}

// ErrorResult constructs a failed envelope with the given code and message.
func ErrorResult(code, message string) ToolResult {
	return ToolResult{Success: false, Error: &ToolError{Code: code, Message: message, Recoverable: true}}
}

// WithSuggestion attaches a remediation hint to a failed envelope and
// returns it for chaining. No-op on success envelopes.
func (r ToolResult) WithSuggestion(s string) ToolResult {
	if r.Error != nil {
		r.Error.Suggestion = s
	}
	return r
}

// WithDetails attaches structured context to a failed envelope and returns
// it for chaining. No-op on success envelopes.
func (r ToolResult) WithDetails(details map[string]any) ToolResult {
	if r.Error != nil {
		r.Error.Details = details
	}
	return r
}

// WithMeta stamps execution metadata onto the envelope.
func (r ToolResult) WithMeta(toolName string, duration time.Duration) ToolResult {
	r.Meta = ResultMeta{ToolName: toolName, DurationMS: duration.Milliseconds()}
	return r
}
