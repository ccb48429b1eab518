package model

import (
	"context"
	"sync"

	"github.com/hupe1980/termagent/core"
)

// ToolChoiceAuto lets the model decide whether to call tools.
const ToolChoiceAuto = "auto"

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the
// model. Parameters is a JSON Schema object (minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ChatMessage is the wire shape of one conversation entry sent to or
// received from the completion endpoint.
type ChatMessage struct {
	Role       string          `json:"role"`
	Content    string          `json:"content"`
	Images     []ImagePart     `json:"images,omitempty"`       // user messages with vision input
	ToolCalls  []core.ToolCall `json:"tool_calls,omitempty"`   // assistant messages requesting tools
	ToolCallID string          `json:"tool_call_id,omitempty"` // tool messages answering a call
}

// ImagePart is inline vision input attached to a user message, carried as
// base64 data with its MIME type so each adapter can encode it natively.
type ImagePart struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"` // base64, without data: prefix
}

// Request captures a normalized completion call.
type Request struct {
	Contents   []ChatMessage    `json:"contents"`
	Tools      []ToolDefinition `json:"tools,omitempty"`
	ToolChoice string           `json:"tool_choice,omitempty"`
	Stream     bool             `json:"stream,omitempty"`
}

// ToolCallDelta is one raw streamed tool-call fragment. ID is present only
// on the first fragment of a given call; Name and Arguments are optional
// additions folded into the call identified by the last-seen ID.
type ToolCallDelta struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// Delta is one incremental fragment of a streamed completion response,
// optionally carrying a content fragment and/or tool-call fragments.
type Delta struct {
	Content   string          `json:"content,omitempty"`
	ToolCalls []ToolCallDelta `json:"tool_calls,omitempty"`
}

// Response is one event emitted by a Model. Streaming calls produce a
// sequence of Partial responses carrying Deltas followed by a final bare
// response with the finish reason; non-streaming calls produce exactly one
// final response carrying the complete Message.
type Response struct {
	Partial      bool        `json:"partial"`
	Delta        Delta       `json:"delta,omitempty"`
	Message      ChatMessage `json:"message,omitempty"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface the orchestrator requires to drive
// generation. The response channel is closed when the call completes; a
// call-level failure arrives on the error channel.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a scriptable in-memory Model for tests. Each Enqueue call
// registers the full response sequence for one Generate invocation;
// received requests are recorded for assertions.
type MockModel struct {
	mu       sync.Mutex
	scripts  [][]Response
	requests []Request
	err      error
}

// NewMockModel constructs an empty MockModel.
func NewMockModel() *MockModel {
	return &MockModel{}
}

// Enqueue registers the response sequence for the next unscripted Generate call.
func (m *MockModel) Enqueue(responses ...Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts = append(m.scripts, responses)
}

// FailWith makes every subsequent Generate call report err.
func (m *MockModel) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Requests returns a copy of all requests received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Generate implements Model by replaying the next enqueued script.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	var script []Response
	if len(m.scripts) > 0 {
		script = m.scripts[0]
		m.scripts = m.scripts[1:]
	}
	err := m.err
	m.mu.Unlock()

	out := make(chan Response, len(script)+1)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		if err != nil {
			errCh <- err
			return
		}
		if script == nil {
			out <- Response{
				Message:      ChatMessage{Role: core.RoleAssistant, Content: "mock response"},
				FinishReason: "stop",
			}
			return
		}
		for _, resp := range script {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- resp:
			}
		}
	}()

	return out, errCh
}

// Info implements Model.
func (m *MockModel) Info() Info {
	return Info{Name: "mock", Provider: "mock", SupportsTools: true}
}
