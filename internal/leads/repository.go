package leads

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for lead storage.
type Repository interface {
	// Record appends an inbound message to the lead for the identity,
	// creating the lead on first contact, and recomputes score and tier.
	Record(ctx context.Context, channel, userID, text string, at time.Time) (*Lead, error)
	Get(ctx context.Context, channel, userID string) (*Lead, error)
	List(ctx context.Context) ([]*Lead, error)
	SetStatus(ctx context.Context, channel, userID string, status Status) error
}

// InMemoryRepository keeps leads in a process-local map.
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads map[string]*Lead
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads: make(map[string]*Lead),
	}
}

// Record appends a message and rescores the lead.
func (r *InMemoryRepository) Record(ctx context.Context, channel, userID, text string, at time.Time) (*Lead, error) {
	if channel == "" || userID == "" {
		return nil, ErrMissingIdentity
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := Identity(channel, userID)
	lead, ok := r.leads[key]
	if !ok {
		lead = &Lead{
			ID:        uuid.New().String(),
			Channel:   channel,
			UserID:    userID,
			Phone:     userID,
			Status:    StatusNew,
			CreatedAt: at,
		}
		r.leads[key] = lead
	}

	lead.Messages = append(lead.Messages, Message{Text: text, At: at})
	lead.Score = Score(lead.Messages)
	lead.Tier = TierFor(lead.Score)
	lead.UpdatedAt = at

	copied := *lead
	return &copied, nil
}

// Get retrieves a lead by identity.
func (r *InMemoryRepository) Get(ctx context.Context, channel, userID string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[Identity(channel, userID)]
	if !ok {
		return nil, ErrLeadNotFound
	}
	copied := *lead
	return &copied, nil
}

// List returns all leads ordered by most recent activity.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Lead, 0, len(r.leads))
	for _, lead := range r.leads {
		copied := *lead
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// SetStatus updates the lifecycle status of a lead.
func (r *InMemoryRepository) SetStatus(ctx context.Context, channel, userID string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[Identity(channel, userID)]
	if !ok {
		return ErrLeadNotFound
	}
	lead.Status = status
	lead.UpdatedAt = time.Now().UTC()
	return nil
}
