package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/consigliere-ai/consigliere/pkg/logging"
)

// Store is the durable conversation state store. Reads hit an in-process
// cache first, then Redis, then synthesize a fresh idle state. Writes update
// the cache synchronously and write through to Redis best-effort: a Redis
// failure never fails the turn, the cache stays authoritative for the rest
// of the process lifetime.
type Store struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
	tracer trace.Tracer

	mu    sync.RWMutex
	cache map[string]*State
}

// NewStore creates a conversation state store. The Redis client may be nil,
// in which case the store is purely in-memory.
func NewStore(client *redis.Client, ttl time.Duration, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		redis:  client,
		ttl:    ttl,
		logger: logger,
		tracer: otel.Tracer("consigliere.internal.dialogue.store"),
		cache:  make(map[string]*State),
	}
}

func stateKey(identity string) string {
	return fmt.Sprintf("state:%s", identity)
}

// Load returns the dialogue state for an identity, never nil.
func (s *Store) Load(ctx context.Context, identity string) *State {
	ctx, span := s.tracer.Start(ctx, "dialogue.load_state")
	defer span.End()

	s.mu.RLock()
	cached, ok := s.cache[identity]
	s.mu.RUnlock()
	if ok {
		return cloneState(cached)
	}

	if s.redis != nil {
		data, err := s.redis.Get(ctx, stateKey(identity)).Bytes()
		switch {
		case err == redis.Nil:
			// First contact for this identity.
		case err != nil:
			span.RecordError(err)
			s.logger.Warn("state load from redis failed, starting fresh", "identity", identity, "error", err)
		default:
			var st State
			if err := json.Unmarshal(data, &st); err != nil {
				span.RecordError(err)
				s.logger.Warn("state decode failed, starting fresh", "identity", identity, "error", err)
			} else {
				if st.Data == nil {
					st.Data = make(map[string]string)
				}
				s.mu.Lock()
				s.cache[identity] = cloneState(&st)
				s.mu.Unlock()
				return &st
			}
		}
	}

	return NewState()
}

// Save persists the dialogue state for an identity.
func (s *Store) Save(ctx context.Context, identity string, st *State) {
	ctx, span := s.tracer.Start(ctx, "dialogue.save_state")
	defer span.End()

	if st == nil {
		return
	}
	st.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	s.cache[identity] = cloneState(st)
	s.mu.Unlock()

	if s.redis == nil {
		return
	}
	data, err := json.Marshal(st)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("state marshal failed", "identity", identity, "error", err)
		return
	}
	if err := s.redis.Set(ctx, stateKey(identity), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		s.logger.Warn("state write-through to redis failed", "identity", identity, "error", err)
	}
}

func cloneState(st *State) *State {
	copied := *st
	copied.Data = make(map[string]string, len(st.Data))
	for k, v := range st.Data {
		copied.Data[k] = v
	}
	return &copied
}
