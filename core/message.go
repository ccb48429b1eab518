package core

import "time"

// Conversation roles. RoleTool marks persisted tool results; only the other
// three are replayed to the completion endpoint.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Message is a single immutable entry in a session's conversation log.
// Messages are totally ordered by insertion within their session.
type Message struct {
	ID         int64       `json:"id"`
	SessionID  string      `json:"session_id"`
	Role       string      `json:"role"`
	Content    string      `json:"content"`
	ToolName   string      `json:"tool_name,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
	Tokens     int         `json:"tokens"`
	CreatedAt  time.Time   `json:"created_at"`
}

// SessionInfo is an administrative view of a stored session, annotated with
// its message count for listings.
type SessionInfo struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// ToolCall is a model-requested invocation of a named tool. It is transient:
// assembled from streaming fragments during a turn and discarded once its
// result has been folded into a tool message.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // serialized JSON argument payload
}
