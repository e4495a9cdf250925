package memory

import (
	"context"
	"testing"
	"time"

	"municipal-assistant-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewSessionStore(0).WithClock(func() time.Time { return now })

	session, err := s.CreateSession(ctx, "")
	require.NoError(t, err)
	assert.False(t, session.HasTitle())

	missing, err := s.GetSession(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	for i, content := range []string{"q1", "a1", "q2", "a2"} {
		now = now.Add(time.Minute)
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		msg := &entity.ChatMessage{ChatSessionId: session.Id, Role: role, Content: content}
		require.NoError(t, s.AppendMessage(ctx, msg))
		assert.NotEqual(t, uuid.Nil, msg.Id)
	}

	history, err := s.GetHistory(ctx, session.Id, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "a1", history[0].Content)
	assert.Equal(t, "a2", history[2].Content)

	since, err := s.MessagesSince(ctx, session.Id, time.Date(2026, 3, 1, 9, 3, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, since, 2)
	assert.Equal(t, "q2", since[0].Content)

	require.NoError(t, s.SetTitle(ctx, session.Id, "Road budget"))
	got, err := s.GetSession(ctx, session.Id)
	require.NoError(t, err)
	assert.Equal(t, "Road budget", got.Title)
	require.NotNil(t, got.UpdatedAt)
}

func TestSessionStore_UnknownSession(t *testing.T) {
	s := NewSessionStore(time.Hour)
	err := s.AppendMessage(context.Background(), &entity.ChatMessage{ChatSessionId: uuid.New(), Role: "user", Content: "q"})
	assert.Error(t, err)
	assert.Error(t, s.SetTitle(context.Background(), uuid.New(), "t"))
}

func TestSessionStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(0)
	session, _ := s.CreateSession(ctx, "")
	require.NoError(t, s.AppendMessage(ctx, &entity.ChatMessage{ChatSessionId: session.Id, Role: "user", Content: "original"}))

	history, _ := s.GetHistory(ctx, session.Id, 0)
	history[0].Content = "mutated"

	again, _ := s.GetHistory(ctx, session.Id, 0)
	assert.Equal(t, "original", again[0].Content)
}
