package bookings

import (
	"context"
	"sort"
	"sync"
)

// Repository stores booking records. The list is append-only from callers'
// perspective; reschedule and cancel mutate fields of existing records.
type Repository interface {
	Add(ctx context.Context, b *Booking) error
	Update(ctx context.Context, b *Booking) error
	List(ctx context.Context) ([]*Booking, error)
	// FindActive returns the most recent confirmed booking for the phone,
	// falling back to a name+property match when the phone is unknown.
	FindActive(ctx context.Context, phone, property, name string) (*Booking, error)
}

// InMemoryRepository keeps bookings in a process-local map.
type InMemoryRepository struct {
	mu       sync.RWMutex
	bookings map[string]*Booking
}

// NewInMemoryRepository creates a new in-memory booking repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		bookings: make(map[string]*Booking),
	}
}

// Add stores a new booking.
func (r *InMemoryRepository) Add(ctx context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *b
	r.bookings[b.ID] = &copied
	return nil
}

// Update replaces the stored record for the booking's ID.
func (r *InMemoryRepository) Update(ctx context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.ID]; !ok {
		return ErrBookingNotFound
	}
	copied := *b
	r.bookings[b.ID] = &copied
	return nil
}

// List returns all bookings, newest first.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Booking, 0, len(r.bookings))
	for _, b := range r.bookings {
		copied := *b
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// FindActive locates the most recent confirmed booking for the identity.
func (r *InMemoryRepository) FindActive(ctx context.Context, phone, property, name string) (*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *Booking
	for _, b := range r.bookings {
		if b.Status != StatusConfirmed {
			continue
		}
		if !matches(b, phone, property, name) {
			continue
		}
		if best == nil || b.CreatedAt.After(best.CreatedAt) {
			best = b
		}
	}
	if best == nil {
		return nil, ErrBookingNotFound
	}
	copied := *best
	return &copied, nil
}

func matches(b *Booking, phone, property, name string) bool {
	if phone != "" && b.Phone == phone {
		return true
	}
	return property != "" && name != "" &&
		equalFold(b.Property, property) && equalFold(b.Name, name)
}
