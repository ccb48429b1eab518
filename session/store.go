package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/termagent/config"
	"github.com/hupe1980/termagent/core"
	"github.com/hupe1980/termagent/internal/util"
	"github.com/hupe1980/termagent/logging"
)

// StoreUnavailableError signals that the backing datastore could not be
// created, opened or written. There is no retry at this layer; retry policy
// belongs to the caller.
type StoreUnavailableError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("session store unavailable: %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *StoreUnavailableError) Unwrap() error { return e.Err }

func unavailable(op string, err error) error {
	return &StoreUnavailableError{Op: op, Err: err}
}

// EstimateTokens returns the fixed-ratio token estimate for content:
// ceil(len(content)/4). A heuristic proxy for context cost, not exact
// tokenization.
func EstimateTokens(content string) int {
	return (len(content) + config.TokenEstimateChars - 1) / config.TokenEstimateChars
}

// Options configure a Store.
type Options struct {
	// ContextBudget caps the cumulative token estimate GetMessages returns.
	ContextBudget int
	// Logger receives structured store events. Defaults to NoOpLogger.
	Logger logging.Logger
}

// MessageInput describes one message to append. SessionID is optional; when
// empty the store's current session is used, creating one first if none is
// active.
type MessageInput struct {
	SessionID  string
	Role       string
	Content    string
	ToolName   string
	ToolResult *core.ToolResult
}

// Store persists sessions and messages in a SQLite database reachable via a
// filesystem path. One Store exclusively owns its connection; concurrent
// appends are serialized internally to preserve total message ordering per
// session.
type Store struct {
	path   string
	budget int
	logger logging.Logger

	mu      sync.Mutex
	db      *sql.DB
	current string
}

// NewStore creates a Store for the database at path. The connection is not
// opened until Initialize.
func NewStore(path string, optFns ...func(o *Options)) *Store {
	opts := Options{
		ContextBudget: config.MaxContextTokens,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Store{path: path, budget: opts.ContextBudget, logger: opts.Logger}
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	tool_name TEXT,
	tool_result_json TEXT,
	tokens INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(id)
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
CREATE INDEX IF NOT EXISTS idx_messages_session_role ON messages(session_id, role);
`

// Initialize opens the database connection and creates the schema if
// absent. Safe to call once per process lifetime.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return unavailable("create directory", err)
		}
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return unavailable("open database", err)
	}
	// A single connection keeps appends serialized at the driver level and
	// makes in-memory databases behave.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return unavailable("ping database", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return unavailable("create schema", err)
	}

	s.db = db
	s.logger.Info("session.store.initialized", "path", s.path)

	return nil
}

// Close releases the database connection. Safe to call even if Initialize
// was never called or failed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil

	return err
}

// CurrentSession returns the identifier of the session marked current, or
// empty if none is active.
func (s *Store) CurrentSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current
}

// CreateSession inserts a new session, marks it current and returns its
// identifier.
func (s *Store) CreateSession(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createSessionLocked(ctx)
}

func (s *Store) createSessionLocked(ctx context.Context) (string, error) {
	if s.db == nil {
		return "", unavailable("create session", errNotInitialized)
	}

	id := util.NewID()
	now := time.Now().UnixNano()
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)",
		id, now, now,
	); err != nil {
		return "", unavailable("insert session", err)
	}

	s.current = id
	s.logger.Info("session.created", "session_id", id)

	return id, nil
}

// LoadSession marks an existing session current. Returns false, without
// error, if no session with the given identifier exists.
func (s *Store) LoadSession(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return false, unavailable("load session", errNotInitialized)
	}

	var found string
	err := s.db.QueryRowContext(ctx, "SELECT id FROM sessions WHERE id = ?", id).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, unavailable("query session", err)
	}

	s.current = id
	s.logger.Info("session.loaded", "session_id", id)

	return true, nil
}

// AppendMessage durably writes one message. The token estimate is computed
// here, and the session's updated_at timestamp advances in the same
// transaction. If no session is current and none is supplied, one is created
// first.
func (s *Store) AppendMessage(ctx context.Context, in MessageInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return unavailable("append message", errNotInitialized)
	}

	sid := in.SessionID
	if sid == "" {
		if s.current == "" {
			if _, err := s.createSessionLocked(ctx); err != nil {
				return err
			}
		}
		sid = s.current
	}

	var resultJSON any
	if in.ToolResult != nil {
		raw, err := json.Marshal(in.ToolResult)
		if err != nil {
			return unavailable("encode tool result", err)
		}
		resultJSON = string(raw)
	}

	tokens := EstimateTokens(in.Content)
	now := time.Now().UnixNano()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (session_id, role, content, tool_name, tool_result_json, tokens, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sid, in.Role, in.Content, nullableString(in.ToolName), resultJSON, tokens, now,
	); err != nil {
		return unavailable("insert message", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE sessions SET updated_at = ? WHERE id = ?", now, sid,
	); err != nil {
		return unavailable("update session", err)
	}
	if err := tx.Commit(); err != nil {
		return unavailable("commit", err)
	}

	s.logger.Debug("session.message.appended", "session_id", sid, "role", in.Role, "tokens", tokens)

	return nil
}

// GetMessages returns the session's messages in creation order, truncated to
// the maximal contiguous suffix whose cumulative token estimate fits the
// context budget. Older messages are dropped from the returned view only,
// never from storage. A positive limit additionally keeps only the last
// limit messages of the truncated result. An empty sessionID selects the
// current session; with no current session the result is empty.
func (s *Store) GetMessages(ctx context.Context, sessionID string, limit int) ([]core.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, unavailable("get messages", errNotInitialized)
	}

	sid := sessionID
	if sid == "" {
		sid = s.current
	}
	if sid == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, tool_name, tool_result_json, tokens, created_at
		 FROM messages WHERE session_id = ? ORDER BY id ASC`, sid)
	if err != nil {
		return nil, unavailable("query messages", err)
	}
	defer rows.Close()

	var messages []core.Message
	total := 0
	for rows.Next() {
		var (
			msg        core.Message
			toolName   sql.NullString
			resultJSON sql.NullString
			createdAt  int64
		)
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &toolName, &resultJSON, &msg.Tokens, &createdAt); err != nil {
			return nil, unavailable("scan message", err)
		}
		msg.SessionID = sid
		msg.ToolName = toolName.String
		msg.CreatedAt = time.Unix(0, createdAt)
		if resultJSON.Valid && resultJSON.String != "" {
			var tr core.ToolResult
			if err := json.Unmarshal([]byte(resultJSON.String), &tr); err == nil {
				msg.ToolResult = &tr
			}
		}
		total += msg.Tokens
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate messages", err)
	}

	if total > s.budget {
		s.logger.Warn("session.context.truncating",
			"session_id", sid, "total_tokens", total, "budget", s.budget)
		messages = truncateToBudget(messages, s.budget)
	}
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	return messages, nil
}

// truncateToBudget keeps the maximal contiguous suffix whose cumulative
// token estimate does not exceed budget, preserving order.
func truncateToBudget(messages []core.Message, budget int) []core.Message {
	used := 0
	start := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		if used+messages[i].Tokens > budget {
			break
		}
		used += messages[i].Tokens
		start = i
	}

	return messages[start:]
}

// GetSessionTokenCount returns the untruncated sum of stored token
// estimates for the session. An empty sessionID selects the current
// session.
func (s *Store) GetSessionTokenCount(ctx context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return 0, unavailable("token count", errNotInitialized)
	}

	sid := sessionID
	if sid == "" {
		sid = s.current
	}
	if sid == "" {
		return 0, nil
	}

	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT SUM(tokens) FROM messages WHERE session_id = ?", sid).Scan(&total)
	if err != nil {
		return 0, unavailable("sum tokens", err)
	}

	return int(total.Int64), nil
}

// ListSessions returns up to limit sessions ordered by last update
// descending, each annotated with its message count. A limit of zero or
// less lists all sessions. Administrative listing only; the orchestrator
// never calls this.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]core.SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, unavailable("list sessions", errNotInitialized)
	}

	// SQLite treats a negative LIMIT as no limit.
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, updated_at,
			(SELECT COUNT(*) FROM messages WHERE session_id = sessions.id)
		 FROM sessions ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, unavailable("query sessions", err)
	}
	defer rows.Close()

	var infos []core.SessionInfo
	for rows.Next() {
		var (
			info             core.SessionInfo
			created, updated int64
		)
		if err := rows.Scan(&info.ID, &created, &updated, &info.MessageCount); err != nil {
			return nil, unavailable("scan session", err)
		}
		info.CreatedAt = time.Unix(0, created)
		info.UpdatedAt = time.Unix(0, updated)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate sessions", err)
	}

	return infos, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var errNotInitialized = fmt.Errorf("store not initialized")
