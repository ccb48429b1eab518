package tool

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/termagent/config"
	"github.com/hupe1980/termagent/core"
	"github.com/hupe1980/termagent/logging"
)

// DispatcherOptions configure a Dispatcher.
type DispatcherOptions struct {
	// Timeout is the uniform execution bound applied to every tool call,
	// independent of any tool-internal timeout.
	Timeout time.Duration
	// RatePerMinute is the per-tool-name quota within the trailing minute.
	RatePerMinute int
	// Logger receives structured dispatch events. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Dispatcher is the uniform entry point for tool execution. It validates the
// tool exists, enforces the per-tool rate limit and the uniform timeout,
// and normalizes every outcome (including panics) into a ToolResult
// envelope. It holds no session state and is safe to share across
// concurrently running turns.
type Dispatcher struct {
	tools   map[string]Tool
	names   []string // sorted, rebuilt on Register
	limiter *RateLimiter
	timeout time.Duration
	logger  logging.Logger
}

// NewDispatcher constructs a Dispatcher with optional overrides. Tools are
// added with Register; registration is expected at startup, before
// dispatching begins.
func NewDispatcher(optFns ...func(o *DispatcherOptions)) *Dispatcher {
	opts := DispatcherOptions{
		Timeout:       config.ToolTimeout,
		RatePerMinute: config.ToolRateLimitPerMinute,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Dispatcher{
		tools:   make(map[string]Tool),
		limiter: NewRateLimiter(opts.RatePerMinute, time.Minute),
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
}

// Register adds tools to the registry, replacing any prior tool with the
// same name.
func (d *Dispatcher) Register(tools ...Tool) {
	for _, t := range tools {
		if _, exists := d.tools[t.Name()]; !exists {
			d.names = append(d.names, t.Name())
		}
		d.tools[t.Name()] = t
	}
	sort.Strings(d.names)
}

// Names returns the sorted names of all registered tools.
func (d *Dispatcher) Names() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// Tools returns the registered tools sorted by name.
func (d *Dispatcher) Tools() []Tool {
	out := make([]Tool, 0, len(d.names))
	for _, name := range d.names {
		out = append(out, d.tools[name])
	}
	return out
}

// Dispatch executes one tool call. The returned envelope always carries the
// tool name and execution duration; it is never accompanied by a Go error,
// so callers branch on Success only.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, params map[string]any) core.ToolResult {
	start := time.Now()
	d.logger.Debug("tool.dispatch.start", "tool", name)

	res := d.dispatch(ctx, name, params)
	res = res.WithMeta(name, time.Since(start))

	if res.Success {
		d.logger.Info("tool.dispatch.complete", "tool", name, "duration_ms", res.Meta.DurationMS)
	} else {
		d.logger.Warn("tool.dispatch.failed",
			"tool", name, "code", res.Error.Code, "error", res.Error.Message, "duration_ms", res.Meta.DurationMS)
	}

	return res
}

func (d *Dispatcher) dispatch(ctx context.Context, name string, params map[string]any) core.ToolResult {
	impl, ok := d.tools[name]
	if !ok {
		return core.ErrorResult(core.CodeInvalidParams, fmt.Sprintf("unknown tool: %s", name)).
			WithSuggestion("Available tools: " + strings.Join(d.names, ", "))
	}

	if !d.limiter.Allow(name) {
		return core.ErrorResult(core.CodeRateLimited, fmt.Sprintf("rate limit exceeded for tool: %s", name)).
			WithSuggestion(fmt.Sprintf("Wait before retrying. Limit: %d calls/minute.", d.limiter.limit))
	}

	execCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	resCh := make(chan core.ToolResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("tool.dispatch.panic", "tool", name, "recover", fmt.Sprintf("%v", r))
				resCh <- core.ErrorResult(core.CodeUnknown, fmt.Sprintf("tool panicked: %v", r)).
					WithSuggestion("Check the termagent logs for details.")
			}
		}()
		res, err := impl.Call(execCtx, params)
		if err != nil {
			res = core.ErrorResult(core.CodeUnknown, fmt.Sprintf("unexpected error: %v", err)).
				WithSuggestion("Check the termagent logs for details.")
		}
		resCh <- res
	}()

	select {
	case res := <-resCh:
		return res
	case <-execCtx.Done():
		if execCtx.Err() == context.DeadlineExceeded {
			return core.ErrorResult(core.CodeTimeout, fmt.Sprintf("tool %s timed out after %s", name, d.timeout)).
				WithSuggestion("Try simpler input or increase the timeout.")
		}
		return core.ErrorResult(core.CodeUnknown, fmt.Sprintf("dispatch canceled: %v", execCtx.Err()))
	}
}
