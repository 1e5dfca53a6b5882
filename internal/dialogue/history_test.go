package dialogue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consigliere-ai/consigliere/pkg/logging"
)

func newHistoryStore(t *testing.T) *HistoryStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewHistoryStore(client, time.Hour, logging.Default())
}

func TestHistoryAppendAndLoad(t *testing.T) {
	store := newHistoryStore(t)
	ctx := context.Background()

	store.Append(ctx, "telegram:42",
		ChatMessage{Role: ChatRoleUser, Content: "hi"},
		ChatMessage{Role: ChatRoleAssistant, Content: "Hello! How can I help?"},
	)
	store.Append(ctx, "telegram:42",
		ChatMessage{Role: ChatRoleUser, Content: "what's the price?"},
	)

	history := store.Load(ctx, "telegram:42")
	require.Len(t, history, 3)
	assert.Equal(t, ChatRoleUser, history[0].Role)
	assert.Equal(t, "what's the price?", history[2].Content)
}

func TestHistoryTrimsToWindow(t *testing.T) {
	store := newHistoryStore(t)
	ctx := context.Background()

	for i := 0; i < maxHistoryEntries+10; i++ {
		store.Append(ctx, "telegram:1", ChatMessage{
			Role:    ChatRoleUser,
			Content: fmt.Sprintf("message %d", i),
		})
	}

	history := store.Load(ctx, "telegram:1")
	require.Len(t, history, maxHistoryEntries)
	assert.Equal(t, fmt.Sprintf("message %d", 10), history[0].Content)
}

func TestHistoryIsolatedPerIdentity(t *testing.T) {
	store := newHistoryStore(t)
	ctx := context.Background()

	store.Append(ctx, "telegram:1", ChatMessage{Role: ChatRoleUser, Content: "one"})
	store.Append(ctx, "whatsapp:2", ChatMessage{Role: ChatRoleUser, Content: "two"})

	assert.Len(t, store.Load(ctx, "telegram:1"), 1)
	assert.Len(t, store.Load(ctx, "whatsapp:2"), 1)
	assert.Nil(t, store.Load(ctx, "telegram:3"))
}

func TestHistoryNilClientIsNoop(t *testing.T) {
	store := NewHistoryStore(nil, time.Hour, logging.Default())
	ctx := context.Background()

	store.Append(ctx, "telegram:1", ChatMessage{Role: ChatRoleUser, Content: "hi"})
	assert.Nil(t, store.Load(ctx, "telegram:1"))
}
