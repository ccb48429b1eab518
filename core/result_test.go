package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessResult(t *testing.T) {
	res := SuccessResult(map[string]any{"answer": 42})

	assert.True(t, res.Success)
	assert.Nil(t, res.Error)
	assert.Equal(t, map[string]any{"answer": 42}, res.Result)
}

func TestErrorResultDefaults(t *testing.T) {
	res := ErrorResult(CodeTimeout, "tool timed out")

	assert.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, CodeTimeout, res.Error.Code)
	assert.True(t, res.Error.Recoverable)
}

func TestResultChaining(t *testing.T) {
	res := ErrorResult(CodeFileTooLarge, "too big").
		WithSuggestion("Use max_bytes.").
		WithDetails(map[string]any{"max_bytes": 1024}).
		WithMeta("file_read", 250*time.Millisecond)

	assert.Equal(t, "Use max_bytes.", res.Error.Suggestion)
	assert.Equal(t, 1024, res.Error.Details["max_bytes"])
	assert.Equal(t, "file_read", res.Meta.ToolName)
	assert.Equal(t, int64(250), res.Meta.DurationMS)
}

func TestChainersIgnoreSuccess(t *testing.T) {
	res := SuccessResult("ok").WithSuggestion("ignored").WithDetails(map[string]any{"x": 1})

	assert.True(t, res.Success)
	assert.Nil(t, res.Error)
}

func TestToolErrorImplementsError(t *testing.T) {
	var err error = &ToolError{Code: CodeUnknown, Message: "boom"}
	assert.Contains(t, err.Error(), CodeUnknown)
	assert.Contains(t, err.Error(), "boom")
}

func TestResultJSONShape(t *testing.T) {
	res := ErrorResult(CodeRateLimited, "slow down").WithMeta("echo", time.Second)

	raw, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, false, decoded["success"])
	assert.NotContains(t, decoded, "result")

	errObj := decoded["error"].(map[string]any)
	assert.Equal(t, "ERROR_RATE_LIMITED", errObj["code"])
	assert.Equal(t, true, errObj["recoverable"])

	meta := decoded["metadata"].(map[string]any)
	assert.Equal(t, "echo", meta["tool_name"])
	assert.Equal(t, float64(1000), meta["duration_ms"])
}
