package leads

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const leadIndexKey = "leads:index"

// RedisRepository persists leads in Redis so engagement history survives a
// process restart. Entries expire with the configured TTL to bound growth.
type RedisRepository struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisRepository creates a Redis-backed lead repository.
func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	if client == nil {
		panic("leads: redis client cannot be nil")
	}
	return &RedisRepository{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("consigliere.internal.leads"),
	}
}

var _ Repository = (*RedisRepository)(nil)

func leadKey(identity string) string {
	return fmt.Sprintf("lead:%s", identity)
}

// Record appends a message and rescores the lead.
func (r *RedisRepository) Record(ctx context.Context, channel, userID, text string, at time.Time) (*Lead, error) {
	if channel == "" || userID == "" {
		return nil, ErrMissingIdentity
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	ctx, span := r.tracer.Start(ctx, "leads.record")
	defer span.End()

	identity := Identity(channel, userID)
	lead, err := r.load(ctx, identity)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		lead = &Lead{
			ID:        uuid.New().String(),
			Channel:   channel,
			UserID:    userID,
			Phone:     userID,
			Status:    StatusNew,
			CreatedAt: at,
		}
	}

	lead.Messages = append(lead.Messages, Message{Text: text, At: at})
	lead.Score = Score(lead.Messages)
	lead.Tier = TierFor(lead.Score)
	lead.UpdatedAt = at

	if err := r.save(ctx, identity, lead); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return lead, nil
}

// Get retrieves a lead by identity.
func (r *RedisRepository) Get(ctx context.Context, channel, userID string) (*Lead, error) {
	ctx, span := r.tracer.Start(ctx, "leads.get")
	defer span.End()

	lead, err := r.load(ctx, Identity(channel, userID))
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, ErrLeadNotFound
	}
	return lead, nil
}

// List returns all known leads ordered by most recent activity. Leads whose
// entries have expired are skipped and dropped from the index.
func (r *RedisRepository) List(ctx context.Context) ([]*Lead, error) {
	ctx, span := r.tracer.Start(ctx, "leads.list")
	defer span.End()

	identities, err := r.redis.SMembers(ctx, leadIndexKey).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("leads: failed to read index: %w", err)
	}

	out := make([]*Lead, 0, len(identities))
	for _, identity := range identities {
		lead, err := r.load(ctx, identity)
		if err != nil {
			return nil, err
		}
		if lead == nil {
			r.redis.SRem(ctx, leadIndexKey, identity)
			continue
		}
		out = append(out, lead)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// SetStatus updates the lifecycle status of a lead.
func (r *RedisRepository) SetStatus(ctx context.Context, channel, userID string, status Status) error {
	ctx, span := r.tracer.Start(ctx, "leads.set_status")
	defer span.End()

	identity := Identity(channel, userID)
	lead, err := r.load(ctx, identity)
	if err != nil {
		return err
	}
	if lead == nil {
		return ErrLeadNotFound
	}
	lead.Status = status
	lead.UpdatedAt = time.Now().UTC()
	return r.save(ctx, identity, lead)
}

func (r *RedisRepository) load(ctx context.Context, identity string) (*Lead, error) {
	data, err := r.redis.Get(ctx, leadKey(identity)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("leads: failed to load %s: %w", identity, err)
	}
	var lead Lead
	if err := json.Unmarshal(data, &lead); err != nil {
		return nil, fmt.Errorf("leads: failed to decode %s: %w", identity, err)
	}
	return &lead, nil
}

func (r *RedisRepository) save(ctx context.Context, identity string, lead *Lead) error {
	data, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("leads: failed to marshal %s: %w", identity, err)
	}
	if err := r.redis.Set(ctx, leadKey(identity), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("leads: failed to persist %s: %w", identity, err)
	}
	if err := r.redis.SAdd(ctx, leadIndexKey, identity).Err(); err != nil {
		return fmt.Errorf("leads: failed to index %s: %w", identity, err)
	}
	return nil
}
