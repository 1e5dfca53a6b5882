package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/consigliere-ai/consigliere/pkg/logging"
)

const maxHistoryEntries = 40

// HistoryStore keeps the recent conversation transcript per identity in
// Redis. The transcript feeds LLM context and the reply generator's stage
// inference; losing it degrades reply quality but never blocks a turn.
type HistoryStore struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
	tracer trace.Tracer
}

// NewHistoryStore creates a transcript store. The Redis client may be nil,
// in which case appends are dropped and loads return nothing.
func NewHistoryStore(client *redis.Client, ttl time.Duration, logger *logging.Logger) *HistoryStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &HistoryStore{
		redis:  client,
		ttl:    ttl,
		logger: logger,
		tracer: otel.Tracer("consigliere.internal.dialogue.history"),
	}
}

func historyKey(identity string) string {
	return fmt.Sprintf("history:%s", identity)
}

// Append adds entries to the transcript, trimming to the retained window.
func (s *HistoryStore) Append(ctx context.Context, identity string, entries ...ChatMessage) {
	if s.redis == nil || len(entries) == 0 {
		return
	}
	ctx, span := s.tracer.Start(ctx, "dialogue.append_history")
	defer span.End()

	history := s.Load(ctx, identity)
	history = append(history, entries...)
	if len(history) > maxHistoryEntries {
		history = history[len(history)-maxHistoryEntries:]
	}

	data, err := json.Marshal(history)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("history marshal failed", "identity", identity, "error", err)
		return
	}
	if err := s.redis.Set(ctx, historyKey(identity), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		s.logger.Warn("history persist failed", "identity", identity, "error", err)
	}
}

// Load returns the stored transcript, oldest first. Missing or unreadable
// transcripts return nil.
func (s *HistoryStore) Load(ctx context.Context, identity string) []ChatMessage {
	if s.redis == nil {
		return nil
	}
	ctx, span := s.tracer.Start(ctx, "dialogue.load_history")
	defer span.End()

	data, err := s.redis.Get(ctx, historyKey(identity)).Bytes()
	if err != nil {
		if err != redis.Nil {
			span.RecordError(err)
			s.logger.Warn("history load failed", "identity", identity, "error", err)
		}
		return nil
	}

	var history []ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		span.RecordError(err)
		s.logger.Warn("history decode failed", "identity", identity, "error", err)
		return nil
	}
	return history
}
