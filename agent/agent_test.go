package agent

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/termagent/core"
	"github.com/hupe1980/termagent/model"
	"github.com/hupe1980/termagent/session"
	"github.com/hupe1980/termagent/tool"
)

func newTestAgent(t *testing.T, m model.Model, tools ...tool.Tool) *Agent {
	t.Helper()

	store := session.NewStore(filepath.Join(t.TempDir(), "agent.db"))
	dispatcher := tool.NewDispatcher()
	dispatcher.Register(tools...)

	agent := New(m, store, dispatcher, func(o *Options) {
		o.SystemPrompt = "You are a helpful assistant."
	})
	require.NoError(t, agent.Initialize(context.Background()))
	t.Cleanup(func() { _ = agent.Close() })

	return agent
}

func drain(ch <-chan string) []string {
	var chunks []string
	for chunk := range ch {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func echoTool() tool.Tool {
	return tool.NewFunctionTool(
		"echo",
		"Echo the input text back",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			return args["text"], nil
		},
	)
}

func TestProcessMessageNonStreaming(t *testing.T) {
	mock := model.NewMockModel()
	mock.Enqueue(model.Response{
		Message:      model.ChatMessage{Role: core.RoleAssistant, Content: "hello there"},
		FinishReason: "stop",
	})
	agent := newTestAgent(t, mock)

	chunks := drain(agent.ProcessMessage(context.Background(), "hi", false))
	assert.Equal(t, []string{"hello there"}, chunks)

	msgs, err := agent.store.GetMessages(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, core.RoleUser, msgs[0].Role)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, core.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "hello there", msgs[1].Content)
}

func TestProcessMessageStreaming(t *testing.T) {
	mock := model.NewMockModel()
	mock.Enqueue(
		model.Response{Partial: true, Delta: model.Delta{Content: "Hel"}},
		model.Response{Partial: true, Delta: model.Delta{Content: "lo"}},
		model.Response{FinishReason: "stop"},
	)
	agent := newTestAgent(t, mock)

	chunks := drain(agent.ProcessMessage(context.Background(), "hi", true))
	assert.Equal(t, []string{"Hel", "lo"}, chunks)

	msgs, err := agent.store.GetMessages(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hello", msgs[1].Content)
}

func TestProcessMessageSystemPromptNotPersisted(t *testing.T) {
	mock := model.NewMockModel()
	agent := newTestAgent(t, mock)

	drain(agent.ProcessMessage(context.Background(), "hi", false))

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	require.NotEmpty(t, reqs[0].Contents)
	assert.Equal(t, core.RoleSystem, reqs[0].Contents[0].Role)

	msgs, err := agent.store.GetMessages(context.Background(), "", 0)
	require.NoError(t, err)
	for _, msg := range msgs {
		assert.NotEqual(t, core.RoleSystem, msg.Role)
	}
}

func TestToolCallTurn(t *testing.T) {
	mock := model.NewMockModel()
	// First completion requests a tool call, with arguments split across
	// fragments and the id present only on the first.
	mock.Enqueue(
		model.Response{Partial: true, Delta: model.Delta{ToolCalls: []model.ToolCallDelta{
			{ID: "call_1", Name: "echo", Arguments: `{"text":`},
		}}},
		model.Response{Partial: true, Delta: model.Delta{ToolCalls: []model.ToolCallDelta{
			{Arguments: `"hi there"}`},
		}}},
		model.Response{FinishReason: "tool_calls"},
	)
	// Follow-up completion produces the final answer.
	mock.Enqueue(model.Response{
		Message:      model.ChatMessage{Role: core.RoleAssistant, Content: "The tool said: hi there"},
		FinishReason: "stop",
	})
	agent := newTestAgent(t, mock, echoTool())

	chunks := drain(agent.ProcessMessage(context.Background(), "use the tool", false))
	assert.Equal(t, []string{"The tool said: hi there"}, chunks)

	msgs, err := agent.store.GetMessages(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, core.RoleUser, msgs[0].Role)
	assert.Equal(t, core.RoleAssistant, msgs[1].Role)
	assert.Equal(t, core.RoleTool, msgs[2].Role)
	assert.Equal(t, "echo", msgs[2].ToolName)
	assert.Equal(t, "hi there", msgs[2].Content)
	require.NotNil(t, msgs[2].ToolResult)
	assert.True(t, msgs[2].ToolResult.Success)
	assert.Equal(t, core.RoleAssistant, msgs[3].Role)
	assert.Equal(t, "The tool said: hi there", msgs[3].Content)

	// Session token count is the sum over all persisted messages.
	total := 0
	for _, msg := range msgs {
		total += msg.Tokens
	}
	count, err := agent.store.GetSessionTokenCount(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, total, count)
}

func TestFollowUpCarriesNoTools(t *testing.T) {
	mock := model.NewMockModel()
	mock.Enqueue(
		model.Response{Partial: true, Delta: model.Delta{ToolCalls: []model.ToolCallDelta{
			{ID: "call_1", Name: "echo", Arguments: `{"text":"x"}`},
		}}},
		model.Response{FinishReason: "tool_calls"},
	)
	mock.Enqueue(model.Response{
		Message:      model.ChatMessage{Role: core.RoleAssistant, Content: "done"},
		FinishReason: "stop",
	})
	agent := newTestAgent(t, mock, echoTool())

	drain(agent.ProcessMessage(context.Background(), "go", false))

	reqs := mock.Requests()
	require.Len(t, reqs, 2)
	require.Len(t, reqs[0].Tools, 1)
	assert.Equal(t, "echo", reqs[0].Tools[0].Function.Name)
	assert.Equal(t, model.ToolChoiceAuto, reqs[0].ToolChoice)
	assert.Empty(t, reqs[1].Tools)

	// The follow-up request carries the tool exchange on the wire.
	last := reqs[1].Contents[len(reqs[1].Contents)-1]
	assert.Equal(t, core.RoleTool, last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)
	assert.Equal(t, "x", last.Content)
}

func TestToolArgumentsParseErrorDegrades(t *testing.T) {
	mock := model.NewMockModel()
	mock.Enqueue(
		model.Response{Partial: true, Delta: model.Delta{ToolCalls: []model.ToolCallDelta{
			{ID: "call_1", Name: "echo", Arguments: `{not json`},
		}}},
		model.Response{FinishReason: "tool_calls"},
	)
	mock.Enqueue(model.Response{
		Message:      model.ChatMessage{Role: core.RoleAssistant, Content: "could not run the tool"},
		FinishReason: "stop",
	})
	agent := newTestAgent(t, mock, echoTool())

	chunks := drain(agent.ProcessMessage(context.Background(), "go", false))
	assert.Equal(t, []string{"could not run the tool"}, chunks)

	msgs, err := agent.store.GetMessages(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, core.RoleTool, msgs[2].Role)
	assert.Contains(t, msgs[2].Content, "Error parsing arguments")
	assert.Nil(t, msgs[2].ToolResult)
}

func TestToolFailureSurfacedToModel(t *testing.T) {
	failing := tool.NewFunctionTool(
		"always_fail",
		"Always fails",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, args map[string]any) (any, error) {
			return nil, errors.New("disk on fire")
		},
	)

	mock := model.NewMockModel()
	mock.Enqueue(
		model.Response{Partial: true, Delta: model.Delta{ToolCalls: []model.ToolCallDelta{
			{ID: "call_1", Name: "always_fail", Arguments: `{}`},
		}}},
		model.Response{FinishReason: "tool_calls"},
	)
	mock.Enqueue(model.Response{
		Message:      model.ChatMessage{Role: core.RoleAssistant, Content: "the tool failed"},
		FinishReason: "stop",
	})
	agent := newTestAgent(t, mock, failing)

	drain(agent.ProcessMessage(context.Background(), "go", false))

	msgs, err := agent.store.GetMessages(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, "Error: disk on fire", msgs[2].Content)
	require.NotNil(t, msgs[2].ToolResult)
	assert.False(t, msgs[2].ToolResult.Success)
	assert.Equal(t, core.CodeUnknown, msgs[2].ToolResult.Error.Code)
}

func TestGenerateErrorYieldedAndPersisted(t *testing.T) {
	mock := model.NewMockModel()
	mock.FailWith(errors.New("boom"))
	agent := newTestAgent(t, mock)

	chunks := drain(agent.ProcessMessage(context.Background(), "hi", false))
	assert.Equal(t, []string{"Error: boom"}, chunks)

	msgs, err := agent.store.GetMessages(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, core.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Error: boom", msgs[1].Content)
}

func TestOnToolResultCallback(t *testing.T) {
	mock := model.NewMockModel()
	mock.Enqueue(
		model.Response{Partial: true, Delta: model.Delta{ToolCalls: []model.ToolCallDelta{
			{ID: "call_1", Name: "echo", Arguments: `{"text":"ping"}`},
		}}},
		model.Response{FinishReason: "tool_calls"},
	)
	mock.Enqueue(model.Response{
		Message:      model.ChatMessage{Role: core.RoleAssistant, Content: "done"},
		FinishReason: "stop",
	})

	store := session.NewStore(filepath.Join(t.TempDir(), "agent.db"))
	dispatcher := tool.NewDispatcher()
	dispatcher.Register(echoTool())

	var seenName string
	var seenResult core.ToolResult
	agent := New(mock, store, dispatcher, func(o *Options) {
		o.OnToolResult = func(name string, res core.ToolResult) {
			seenName = name
			seenResult = res
		}
	})
	require.NoError(t, agent.Initialize(context.Background()))
	t.Cleanup(func() { _ = agent.Close() })

	drain(agent.ProcessMessage(context.Background(), "go", false))

	assert.Equal(t, "echo", seenName)
	assert.True(t, seenResult.Success)
	assert.Equal(t, "echo", seenResult.Meta.ToolName)
}

func TestToolCallAccumulatorFallback(t *testing.T) {
	acc := newToolCallAccumulator()
	acc.add(model.ToolCallDelta{ID: "a", Name: "echo", Arguments: `{"p":`})
	acc.add(model.ToolCallDelta{Arguments: `1}`})
	acc.add(model.ToolCallDelta{ID: "b", Name: "grep", Arguments: `{}`})
	acc.add(model.ToolCallDelta{Arguments: ``})

	calls := acc.toolCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, core.ToolCall{ID: "a", Name: "echo", Arguments: `{"p":1}`}, calls[0])
	assert.Equal(t, core.ToolCall{ID: "b", Name: "grep", Arguments: `{}`}, calls[1])
}

func TestToolCallAccumulatorDropsOrphanFragment(t *testing.T) {
	acc := newToolCallAccumulator()
	acc.add(model.ToolCallDelta{Arguments: `{"orphan":true}`})
	assert.Empty(t, acc.toolCalls())
}
