package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/termagent/core"
	"github.com/hupe1980/termagent/logging"
	"github.com/hupe1980/termagent/model"
	"github.com/hupe1980/termagent/session"
	"github.com/hupe1980/termagent/tool"
)

// Options configure an Agent.
type Options struct {
	// SystemPrompt is prepended to every completion call when set.
	SystemPrompt string
	// OnToolResult, when set, receives every dispatch outcome as it
	// happens; out-of-band visibility for whatever UI renders the turn.
	OnToolResult func(toolName string, result core.ToolResult)
	// Logger receives structured turn events. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Agent orchestrates turns between the user, the completion endpoint and
// the tool dispatch layer. It holds only the session identifier; the Store
// remains the single source of truth for conversation context.
type Agent struct {
	model        model.Model
	store        *session.Store
	dispatcher   *tool.Dispatcher
	systemPrompt string
	onToolResult func(string, core.ToolResult)
	logger       logging.Logger
}

// New constructs an Agent from its three collaborators.
func New(m model.Model, store *session.Store, dispatcher *tool.Dispatcher, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Agent{
		model:        m,
		store:        store,
		dispatcher:   dispatcher,
		systemPrompt: opts.SystemPrompt,
		onToolResult: opts.OnToolResult,
		logger:       opts.Logger,
	}
}

// Initialize opens the session store and starts a fresh session.
func (a *Agent) Initialize(ctx context.Context) error {
	if err := a.store.Initialize(ctx); err != nil {
		return err
	}
	id, err := a.store.CreateSession(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("agent.initialized", "session_id", id, "model", a.model.Info().Name)

	return nil
}

// Close releases the session store.
func (a *Agent) Close() error { return a.store.Close() }

// ProcessMessage runs one turn and returns a finite, non-restartable
// sequence of text chunks. With stream set, content fragments are yielded
// as they arrive from the endpoint; otherwise each completion's full text
// is yielded at once. By the time the channel closes, all of the turn's
// side effects (persisted messages, tool executions) are final. Any
// failure is converted to a single error chunk and persisted as the
// assistant's message, so the session never ends a turn silently
// incomplete.
func (a *Agent) ProcessMessage(ctx context.Context, text string, stream bool) <-chan string {
	out := make(chan string, 16)

	go func() {
		defer close(out)

		if err := a.runTurn(ctx, text, stream, out); err != nil {
			a.logger.Error("agent.turn.error", "error", err.Error())
			errMsg := fmt.Sprintf("Error: %v", err)
			out <- errMsg
			if perr := a.store.AppendMessage(ctx, session.MessageInput{
				Role:    core.RoleAssistant,
				Content: errMsg,
			}); perr != nil {
				a.logger.Error("agent.turn.persist_failed", "error", perr.Error())
			}
		}
	}()

	return out
}

func (a *Agent) runTurn(ctx context.Context, text string, stream bool, out chan<- string) error {
	if err := a.store.AppendMessage(ctx, session.MessageInput{
		Role:    core.RoleUser,
		Content: text,
	}); err != nil {
		return err
	}

	history, err := a.store.GetMessages(ctx, "", 0)
	if err != nil {
		return err
	}
	wire := a.projectHistory(history)

	content, toolCalls, err := a.collect(ctx, model.Request{
		Contents:   wire,
		Tools:      a.toolDefinitions(),
		ToolChoice: model.ToolChoiceAuto,
		Stream:     stream,
	}, stream, out)
	if err != nil {
		return err
	}

	if len(toolCalls) == 0 {
		if !stream {
			out <- content
		}
		return a.store.AppendMessage(ctx, session.MessageInput{
			Role:    core.RoleAssistant,
			Content: content,
		})
	}

	// The assistant message that requested the tools becomes part of the
	// durable record before any tool runs.
	if err := a.store.AppendMessage(ctx, session.MessageInput{
		Role:    core.RoleAssistant,
		Content: content,
	}); err != nil {
		return err
	}
	wire = append(wire, model.ChatMessage{
		Role:      core.RoleAssistant,
		Content:   content,
		ToolCalls: toolCalls,
	})

	toolMessages, err := a.executeToolCalls(ctx, toolCalls)
	if err != nil {
		return err
	}
	wire = append(wire, toolMessages...)

	// Exactly one follow-up, without tools: no further tool rounds are
	// possible within this turn.
	finalContent, _, err := a.collect(ctx, model.Request{
		Contents: wire,
		Stream:   stream,
	}, stream, out)
	if err != nil {
		return err
	}
	if !stream {
		out <- finalContent
	}

	a.logger.Info("agent.turn.complete", "tool_calls", len(toolCalls))

	return a.store.AppendMessage(ctx, session.MessageInput{
		Role:    core.RoleAssistant,
		Content: finalContent,
	})
}

// executeToolCalls runs each accumulated call through the dispatcher,
// persists one tool message per call, and returns the wire messages to
// feed into the follow-up completion. A malformed argument payload degrades
// to a synthetic error message instead of aborting the turn, so the model
// can see what went wrong.
func (a *Agent) executeToolCalls(ctx context.Context, toolCalls []core.ToolCall) ([]model.ChatMessage, error) {
	messages := make([]model.ChatMessage, 0, len(toolCalls))
	for _, tc := range toolCalls {
		var (
			content string
			result  *core.ToolResult
		)

		args, parseErr := parseArguments(tc.Arguments)
		if parseErr != nil {
			a.logger.Warn("agent.tool.arguments_invalid", "tool", tc.Name, "error", parseErr.Error())
			content = fmt.Sprintf("Error parsing arguments: %v", parseErr)
		} else {
			res := a.dispatcher.Dispatch(ctx, tc.Name, args)
			if a.onToolResult != nil {
				a.onToolResult(tc.Name, res)
			}
			if res.Success {
				content = renderResult(res.Result)
			} else {
				content = fmt.Sprintf("Error: %s", res.Error.Message)
			}
			result = &res
		}

		if err := a.store.AppendMessage(ctx, session.MessageInput{
			Role:       core.RoleTool,
			Content:    content,
			ToolName:   tc.Name,
			ToolResult: result,
		}); err != nil {
			return nil, err
		}
		messages = append(messages, model.ChatMessage{
			Role:       core.RoleTool,
			Content:    content,
			ToolCallID: tc.ID,
		})
	}

	return messages, nil
}

// collect drains one completion call. Streamed content fragments are
// appended to the full-text buffer and, when yield is set, forwarded to out
// immediately; tool-call fragments are folded into the accumulator. The
// final response of a non-streaming call supplies content and tool calls
// directly.
func (a *Agent) collect(
	ctx context.Context,
	req model.Request,
	yield bool,
	out chan<- string,
) (string, []core.ToolCall, error) {
	respCh, errCh := a.model.Generate(ctx, req)

	var full strings.Builder
	acc := newToolCallAccumulator()
	var final *model.ChatMessage

	for resp := range respCh {
		if resp.Partial {
			if resp.Delta.Content != "" {
				full.WriteString(resp.Delta.Content)
				if yield {
					out <- resp.Delta.Content
				}
			}
			for _, tcd := range resp.Delta.ToolCalls {
				acc.add(tcd)
			}
			continue
		}
		if resp.Message.Role != "" {
			msg := resp.Message
			final = &msg
		}
	}
	if err := <-errCh; err != nil {
		return "", nil, err
	}

	content := full.String()
	toolCalls := acc.toolCalls()
	if final != nil {
		content += final.Content
		toolCalls = append(toolCalls, final.ToolCalls...)
	}

	return content, toolCalls, nil
}

// projectHistory maps stored messages into the wire shape offered to the
// completion endpoint. Only user, assistant and system roles participate;
// tool rows are historical record, already folded into the exchange of
// their original turn.
func (a *Agent) projectHistory(history []core.Message) []model.ChatMessage {
	wire := make([]model.ChatMessage, 0, len(history)+1)
	if a.systemPrompt != "" {
		wire = append(wire, model.ChatMessage{Role: core.RoleSystem, Content: a.systemPrompt})
	}
	for _, msg := range history {
		switch msg.Role {
		case core.RoleUser, core.RoleAssistant, core.RoleSystem:
			wire = append(wire, model.ChatMessage{Role: msg.Role, Content: msg.Content})
		}
	}

	return wire
}

func (a *Agent) toolDefinitions() []model.ToolDefinition {
	tools := a.dispatcher.Tools()
	if len(tools) == 0 {
		return nil
	}
	defs := make([]model.ToolDefinition, len(tools))
	for i, t := range tools {
		defs[i] = model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		}
	}

	return defs
}

func parseArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}

	return args, nil
}

// renderResult serializes a tool payload for the tool message content:
// strings pass through, everything else is JSON encoded.
func renderResult(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}
