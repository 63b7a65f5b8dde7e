package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Shaswata28/studymate/internal/chat"
	"github.com/Shaswata28/studymate/internal/ent/enttest"
)

func newTestChatHistory(t *testing.T) *ChatHistory {
	t.Helper()
	db := enttest.Open(t, "sqlite", "file:ent?mode=memory&_fk=1")
	return NewChatHistory(db)
}

func TestChatHistory_AppendAndRecent_OldestFirst(t *testing.T) {
	h := newTestChatHistory(t)
	ctx := context.Background()

	require.NoError(t, h.Append(ctx,
		chat.Turn{CourseID: "c1", Role: "user", Content: "hi"},
		chat.Turn{CourseID: "c1", Role: "model", Content: "hello"},
	))
	require.NoError(t, h.Append(ctx,
		chat.Turn{CourseID: "c1", Role: "user", Content: "how are you"},
		chat.Turn{CourseID: "c1", Role: "model", Content: "good"},
	))

	turns, err := h.Recent(ctx, "c1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 4)
	require.Equal(t, []string{"hi", "hello", "how are you", "good"},
		[]string{turns[0].Content, turns[1].Content, turns[2].Content, turns[3].Content})
}

func TestChatHistory_Recent_LimitKeepsNewest(t *testing.T) {
	h := newTestChatHistory(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, h.Append(ctx,
			chat.Turn{CourseID: "c1", Role: "user", Content: "q"},
			chat.Turn{CourseID: "c1", Role: "model", Content: "a"},
		))
	}

	turns, err := h.Recent(ctx, "c1", 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
}

func TestChatHistory_Recent_ScopesToCourse(t *testing.T) {
	h := newTestChatHistory(t)
	ctx := context.Background()

	require.NoError(t, h.Append(ctx,
		chat.Turn{CourseID: "c1", Role: "user", Content: "c1 msg"},
		chat.Turn{CourseID: "c1", Role: "model", Content: "c1 reply"},
	))
	require.NoError(t, h.Append(ctx,
		chat.Turn{CourseID: "c2", Role: "user", Content: "c2 msg"},
		chat.Turn{CourseID: "c2", Role: "model", Content: "c2 reply"},
	))

	turns, err := h.Recent(ctx, "c1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)

	for _, turn := range turns {
		require.Equal(t, "c1", turn.CourseID)
	}
}

func TestChatHistory_FindByDedupToken(t *testing.T) {
	h := newTestChatHistory(t)
	ctx := context.Background()

	require.NoError(t, h.Append(ctx,
		chat.Turn{CourseID: "c1", Role: "user", Content: "hi", DedupToken: "tok-1"},
		chat.Turn{CourseID: "c1", Role: "model", Content: "hello", DedupToken: "tok-1"},
	))

	found, ok, err := h.FindByDedupToken(ctx, "c1", "tok-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hello", found.Content)

	_, ok, err = h.FindByDedupToken(ctx, "c1", "tok-missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestChatHistory_FindByDedupToken_EmptyTokenNeverMatches(t *testing.T) {
	h := newTestChatHistory(t)
	ctx := context.Background()

	require.NoError(t, h.Append(ctx,
		chat.Turn{CourseID: "c1", Role: "user", Content: "hi"},
		chat.Turn{CourseID: "c1", Role: "model", Content: "hello"},
	))

	_, ok, err := h.FindByDedupToken(ctx, "c1", "")
	require.NoError(t, err)
	require.False(t, ok, "an empty dedup token must not match rows whose own token defaulted to empty")
}
