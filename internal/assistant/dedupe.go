package assistant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/consigliere-ai/consigliere/pkg/logging"
)

const (
	dedupeTTL        = 24 * time.Hour
	localDedupeLimit = 10000
)

// Deduper drops webhook replays by provider message id. Redis SETNX is the
// source of truth; a local map covers Redis outages and single-process runs.
// On any ambiguity the message is treated as new, so delivery stays
// at-least-once.
type Deduper struct {
	redis  *redis.Client
	logger *logging.Logger

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewDeduper creates a deduper. The Redis client may be nil.
func NewDeduper(client *redis.Client, logger *logging.Logger) *Deduper {
	if logger == nil {
		logger = logging.Default()
	}
	return &Deduper{
		redis:  client,
		logger: logger,
		seen:   make(map[string]time.Time),
	}
}

// Seen records the message id and reports whether it was already recorded.
func (d *Deduper) Seen(ctx context.Context, channel, messageID string) bool {
	if messageID == "" {
		return false
	}
	key := fmt.Sprintf("seen:%s:%s", channel, messageID)

	if d.redis != nil {
		ok, err := d.redis.SetNX(ctx, key, 1, dedupeTTL).Result()
		if err == nil {
			return !ok
		}
		d.logger.Warn("dedupe redis check failed, using local fallback", "error", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, dup := d.seen[key]; dup {
		return true
	}
	if len(d.seen) >= localDedupeLimit {
		d.sweepLocked()
	}
	d.seen[key] = time.Now().Add(dedupeTTL)
	return false
}

// sweepLocked drops expired entries, then oldest-first if still over limit.
func (d *Deduper) sweepLocked() {
	now := time.Now()
	for k, exp := range d.seen {
		if exp.Before(now) {
			delete(d.seen, k)
		}
	}
	for k := range d.seen {
		if len(d.seen) < localDedupeLimit/2 {
			break
		}
		delete(d.seen, k)
	}
}
