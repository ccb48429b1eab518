package tool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/termagent/core"
)

func echoTool() *FunctionTool {
	return NewFunctionTool(
		"echo",
		"Echo the input text back",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
		func(_ context.Context, args map[string]any) (any, error) {
			return args["text"], nil
		},
	)
}

func TestFunctionToolSuccess(t *testing.T) {
	res, err := echoTool().Call(context.Background(), map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "hi", res.Result)
}

func TestFunctionToolValidation(t *testing.T) {
	res, err := echoTool().Call(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, core.CodeInvalidParams, res.Error.Code)
}

func TestFunctionToolPreservesToolError(t *testing.T) {
	failing := NewFunctionTool("fail", "Always fails", map[string]any{"type": "object"},
		func(_ context.Context, _ map[string]any) (any, error) {
			return nil, &core.ToolError{Code: core.CodeInvalidParams, Message: "bad input", Recoverable: true}
		})

	res, err := failing.Call(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, core.CodeInvalidParams, res.Error.Code)
	assert.Equal(t, "bad input", res.Error.Message)
}

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	base := time.Now()
	rl.now = func() time.Time { return base }

	assert.True(t, rl.Allow("echo"))
	assert.True(t, rl.Allow("echo"))
	assert.False(t, rl.Allow("echo"))

	// Distinct tool names have independent windows.
	assert.True(t, rl.Allow("other"))

	// Entries older than the window are evicted lazily.
	rl.now = func() time.Time { return base.Add(61 * time.Second) }
	assert.True(t, rl.Allow("echo"))
}

func TestDispatchUnknownTool(t *testing.T) {
	d := NewDispatcher()
	d.Register(echoTool())

	res := d.Dispatch(context.Background(), "missing", nil)
	assert.False(t, res.Success)
	assert.Equal(t, core.CodeInvalidParams, res.Error.Code)
	assert.Contains(t, res.Error.Suggestion, "echo")
	assert.Equal(t, "missing", res.Meta.ToolName)
}

func TestDispatchRateLimitBoundary(t *testing.T) {
	d := NewDispatcher(func(o *DispatcherOptions) { o.RatePerMinute = 3 })
	d.Register(echoTool())

	args := map[string]any{"text": "x"}
	for i := 0; i < 3; i++ {
		res := d.Dispatch(context.Background(), "echo", args)
		require.True(t, res.Success, "call %d should be admitted", i+1)
	}

	res := d.Dispatch(context.Background(), "echo", args)
	assert.False(t, res.Success)
	assert.Equal(t, core.CodeRateLimited, res.Error.Code)
	assert.True(t, res.Error.Recoverable)
}

func TestDispatchTimeout(t *testing.T) {
	slow := NewFunctionTool("slow", "Sleeps forever", map[string]any{"type": "object"},
		func(ctx context.Context, _ map[string]any) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	d := NewDispatcher(func(o *DispatcherOptions) { o.Timeout = 20 * time.Millisecond })
	d.Register(slow)

	res := d.Dispatch(context.Background(), "slow", map[string]any{})
	assert.False(t, res.Success)
	assert.Equal(t, core.CodeTimeout, res.Error.Code)
	assert.Contains(t, res.Error.Message, "20ms")
}

func TestDispatchNeverPropagatesFaults(t *testing.T) {
	boom := NewFunctionTool("boom", "Panics", map[string]any{"type": "object"},
		func(_ context.Context, _ map[string]any) (any, error) {
			panic("kaboom")
		})
	failing := NewFunctionTool("fail", "Returns a plain error", map[string]any{"type": "object"},
		func(_ context.Context, _ map[string]any) (any, error) {
			return nil, errors.New("disk on fire")
		})

	d := NewDispatcher()
	d.Register(boom, failing)

	res := d.Dispatch(context.Background(), "boom", map[string]any{})
	assert.False(t, res.Success)
	assert.Equal(t, core.CodeUnknown, res.Error.Code)

	res = d.Dispatch(context.Background(), "fail", map[string]any{})
	assert.False(t, res.Success)
	assert.Equal(t, core.CodeUnknown, res.Error.Code)
	assert.Contains(t, res.Error.Message, "disk on fire")
}

func TestDispatchAttachesMetadata(t *testing.T) {
	d := NewDispatcher()
	d.Register(echoTool())

	res := d.Dispatch(context.Background(), "echo", map[string]any{"text": "meta"})
	require.True(t, res.Success)
	assert.Equal(t, "echo", res.Meta.ToolName)
	assert.GreaterOrEqual(t, res.Meta.DurationMS, int64(0))
}

func TestDispatcherNamesSorted(t *testing.T) {
	d := NewDispatcher()
	d.Register(
		NewFunctionTool("zeta", "", map[string]any{"type": "object"}, func(_ context.Context, _ map[string]any) (any, error) { return nil, nil }),
		NewFunctionTool("alpha", "", map[string]any{"type": "object"}, func(_ context.Context, _ map[string]any) (any, error) { return nil, nil }),
	)
	assert.Equal(t, []string{"alpha", "zeta"}, d.Names())
}
