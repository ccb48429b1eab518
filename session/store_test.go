package session

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/termagent/core"
)

func newTestStore(t *testing.T, optFns ...func(o *Options)) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "termagent.db"), optFns...)
	require.NoError(t, store.Initialize(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
}

func TestCloseWithoutInitialize(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "never.db"))
	assert.NoError(t, store.Close())
}

func TestInitializeIdempotent(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Initialize(context.Background()))
}

func TestAppendCreatesSessionImplicitly(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	assert.Empty(t, store.CurrentSession())
	require.NoError(t, store.AppendMessage(ctx, MessageInput{Role: core.RoleUser, Content: "hello"}))
	assert.NotEmpty(t, store.CurrentSession())

	msgs, err := store.GetMessages(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, core.RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, 2, msgs[0].Tokens)
}

func TestMessageOrdering(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	contents := []string{"first", "second", "third", "fourth", "fifth"}
	for _, c := range contents {
		require.NoError(t, store.AppendMessage(ctx, MessageInput{Role: core.RoleUser, Content: c}))
	}

	msgs, err := store.GetMessages(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, msgs, len(contents))
	for i, c := range contents {
		assert.Equal(t, c, msgs[i].Content)
	}
}

func TestLoadSession(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.CreateSession(ctx)
	require.NoError(t, err)

	ok, err := store.LoadSession(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.LoadSession(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, store.CurrentSession())
}

func TestTruncationKeepsMaximalSuffix(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, func(o *Options) { o.ContextBudget = 120 })

	// 200 bytes estimate to exactly 50 tokens each.
	for i := 0; i < 4; i++ {
		content := strings.Repeat("abcd", 50)
		require.NoError(t, store.AppendMessage(ctx, MessageInput{Role: core.RoleUser, Content: content}))
	}

	msgs, err := store.GetMessages(ctx, "", 0)
	require.NoError(t, err)
	// 4x50 tokens against a budget of 120: the maximal suffix is the last two.
	require.Len(t, msgs, 2)
	assert.Equal(t, 50, msgs[0].Tokens)
	assert.Equal(t, 50, msgs[1].Tokens)

	// Truncation is a read-time projection; storage keeps everything.
	total, err := store.GetSessionTokenCount(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 200, total)
}

func TestNoTruncationUnderBudget(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, func(o *Options) { o.ContextBudget = 1000 })

	for i := 0; i < 4; i++ {
		require.NoError(t, store.AppendMessage(ctx, MessageInput{Role: core.RoleUser, Content: "short message"}))
	}

	msgs, err := store.GetMessages(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 4)
}

func TestGetMessagesLimitAppliesAfterTruncation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, c := range []string{"a", "b", "c", "d"} {
		require.NoError(t, store.AppendMessage(ctx, MessageInput{Role: core.RoleUser, Content: c}))
	}

	msgs, err := store.GetMessages(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "c", msgs[0].Content)
	assert.Equal(t, "d", msgs[1].Content)
}

func TestGetMessagesNoCurrentSession(t *testing.T) {
	store := newTestStore(t)

	msgs, err := store.GetMessages(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestToolResultRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	result := core.SuccessResult(map[string]any{"entries": []any{"a.txt", "b.txt"}})
	require.NoError(t, store.AppendMessage(ctx, MessageInput{
		Role:       core.RoleTool,
		Content:    `{"entries":["a.txt","b.txt"]}`,
		ToolName:   "list_dir",
		ToolResult: &result,
	}))

	msgs, err := store.GetMessages(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "list_dir", msgs[0].ToolName)
	require.NotNil(t, msgs[0].ToolResult)
	assert.True(t, msgs[0].ToolResult.Success)
}

func TestListSessions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first, err := store.CreateSession(ctx)
	require.NoError(t, err)
	require.NoError(t, store.AppendMessage(ctx, MessageInput{SessionID: first, Role: core.RoleUser, Content: "one"}))

	second, err := store.CreateSession(ctx)
	require.NoError(t, err)
	require.NoError(t, store.AppendMessage(ctx, MessageInput{SessionID: second, Role: core.RoleUser, Content: "two"}))
	require.NoError(t, store.AppendMessage(ctx, MessageInput{SessionID: second, Role: core.RoleAssistant, Content: "reply"}))

	infos, err := store.ListSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	// Ordered by last update descending.
	assert.Equal(t, second, infos[0].ID)
	assert.Equal(t, 2, infos[0].MessageCount)
	assert.Equal(t, first, infos[1].ID)
	assert.Equal(t, 1, infos[1].MessageCount)
}

func TestTokenCountMatchesSum(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.AppendMessage(ctx, MessageInput{Role: core.RoleUser, Content: "12345678"}))  // 2 tokens
	require.NoError(t, store.AppendMessage(ctx, MessageInput{Role: core.RoleAssistant, Content: "1234"})) // 1 token

	total, err := store.GetSessionTokenCount(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}
