package worker

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers processed event ids.
type Deduper interface {
	// Claim reports whether eventID was not seen before and records it.
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type RedisDeduper struct {
	Client *redis.Client
	TTL    time.Duration
}

func (d *RedisDeduper) key(eventID string) string { return "social:event:" + eventID }

func (d *RedisDeduper) Claim(ctx context.Context, eventID string) (bool, error) {
	return d.Client.SetNX(ctx, d.key(eventID), 1, d.TTL).Result()
}

func (d *RedisDeduper) Release(ctx context.Context, eventID string) error {
	return d.Client.Del(ctx, d.key(eventID)).Err()
}

// MemoryDeduper is process-local; for development and tests.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[string]struct{})}
}

func (d *MemoryDeduper) Claim(_ context.Context, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[eventID]; ok {
		return false, nil
	}
	d.seen[eventID] = struct{}{}
	return true, nil
}

func (d *MemoryDeduper) Release(_ context.Context, eventID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, eventID)
	return nil
}
