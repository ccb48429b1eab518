// Package termagent provides a high-level façade over the conversation
// agent and its services (session store, tool dispatch, completion model)
// enabling one-call construction of a fully wired terminal chat agent.
// Most applications interact with this package by:
//  1. Creating a TermAgent via New() with a completion model
//  2. Calling Chat() per user turn and draining the returned chunk channel
//  3. Closing the instance when the conversation ends
//
// The façade delegates orchestration to agent.Agent while keeping setup
// ergonomics concise. Defaults use the standard builtin tool set and a
// SQLite session store under the user's home directory.
package termagent

import (
	"context"

	"github.com/hupe1980/termagent/agent"
	"github.com/hupe1980/termagent/config"
	"github.com/hupe1980/termagent/core"
	"github.com/hupe1980/termagent/logging"
	"github.com/hupe1980/termagent/model"
	"github.com/hupe1980/termagent/session"
	"github.com/hupe1980/termagent/tool"
	"github.com/hupe1980/termagent/tool/builtin"
)

// DefaultSystemPrompt frames the assistant for terminal usage.
const DefaultSystemPrompt = "You are a helpful AI assistant running in a terminal. " +
	"You have access to tools for shell execution, file operations, text search, " +
	"web search, git operations and image analysis. Use them when they help answer " +
	"the user's request. Keep responses concise and terminal-friendly."

// Options configure the TermAgent instance.
type Options struct {
	// SystemPrompt overrides the default system framing.
	SystemPrompt string

	// DBPath locates the SQLite session database. Defaults to the
	// config package's resolved path under the user's home directory.
	DBPath string

	// ContextBudget caps the token window offered to the model per turn.
	ContextBudget int

	// Tools replaces the default builtin tool set when non-nil.
	Tools []tool.Tool

	// DisableVision skips registration of the image analysis tool.
	DisableVision bool

	// OnToolResult receives every dispatch outcome for UI rendering.
	OnToolResult func(toolName string, result core.ToolResult)

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// TermAgent is the high-level façade aggregating the agent and its services.
type TermAgent struct {
	agent *agent.Agent
	store *session.Store
}

// New creates a TermAgent around the given completion model with optional
// overrides. Any unset option falls back to the resolved configuration.
func New(m model.Model, optFns ...func(o *Options)) *TermAgent {
	cfg := config.FromEnv()

	opts := Options{
		SystemPrompt:  DefaultSystemPrompt,
		DBPath:        cfg.DBPath,
		ContextBudget: cfg.ContextBudget,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	store := session.NewStore(opts.DBPath, func(o *session.Options) {
		o.ContextBudget = opts.ContextBudget
		o.Logger = opts.Logger
	})

	dispatcher := tool.NewDispatcher(func(o *tool.DispatcherOptions) {
		o.Timeout = cfg.ToolTimeout
		o.RatePerMinute = cfg.RatePerMinute
		o.Logger = opts.Logger
	})

	tools := opts.Tools
	if tools == nil {
		tools = builtin.Default()
		if !opts.DisableVision {
			tools = append(tools, builtin.NewImageAnalyzeTool(m))
		}
	}
	dispatcher.Register(tools...)

	a := agent.New(m, store, dispatcher, func(o *agent.Options) {
		o.SystemPrompt = opts.SystemPrompt
		o.OnToolResult = opts.OnToolResult
		o.Logger = opts.Logger
	})

	return &TermAgent{agent: a, store: store}
}

// Initialize opens the session store and begins a new session.
func (t *TermAgent) Initialize(ctx context.Context) error {
	return t.agent.Initialize(ctx)
}

// Chat runs one conversation turn, returning the response as a channel of
// text chunks. The channel closes once the turn's side effects are durable.
func (t *TermAgent) Chat(ctx context.Context, text string, stream bool) <-chan string {
	return t.agent.ProcessMessage(ctx, text, stream)
}

// ChatSync is a synchronous helper that drains the chunk channel and
// returns the concatenated response.
func (t *TermAgent) ChatSync(ctx context.Context, text string) string {
	var full string
	for chunk := range t.agent.ProcessMessage(ctx, text, false) {
		full += chunk
	}
	return full
}

// Sessions lists up to limit stored sessions, most recently active first.
func (t *TermAgent) Sessions(ctx context.Context, limit int) ([]core.SessionInfo, error) {
	return t.store.ListSessions(ctx, limit)
}

// TokenCount reports the untruncated token total of the active session.
func (t *TermAgent) TokenCount(ctx context.Context) (int, error) {
	return t.store.GetSessionTokenCount(ctx, "")
}

// Close releases the underlying session store.
func (t *TermAgent) Close() error { return t.agent.Close() }
