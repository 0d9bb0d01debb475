// Package bus provides the in-process transport used when the requester and
// the authority share one process.
package bus

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/lootsheet/internal/core/domain"
)

// LocalBus queues published requests for a dispatcher in the same process.
type LocalBus struct {
	queue chan domain.Request
}

func NewLocalBus(size int) *LocalBus {
	return &LocalBus{queue: make(chan domain.Request, size)}
}

// Publish enqueues req, blocking while the queue is full.
func (b *LocalBus) Publish(ctx context.Context, req domain.Request) error {
	select {
	case b.queue <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *LocalBus) Queue() <-chan domain.Request {
	return b.queue
}

func (b *LocalBus) Close() {
	close(b.queue)
}

// StaticPresence reports a fixed set of authorities as always active.
type StaticPresence struct {
	Authorities []domain.Authority
}

func (p StaticPresence) ActiveAuthorities(ctx context.Context) ([]domain.Authority, error) {
	return p.Authorities, nil
}

// MemoryGuard remembers idempotency keys for ttl.
type MemoryGuard struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	seen map[string]time.Time
}

func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{ttl: ttl, now: time.Now, seen: make(map[string]time.Time)}
}

func (g *MemoryGuard) SetIdempotency(ctx context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for k, exp := range g.seen {
		if now.After(exp) {
			delete(g.seen, k)
		}
	}
	if _, ok := g.seen[key]; ok {
		return false, nil
	}
	g.seen[key] = now.Add(g.ttl)
	return true, nil
}
