package provision

import (
	"context"
	"sync"
	"sync/atomic"
)

// Gate runs an ensure function until it succeeds once, then never again.
// Stores use it to provision their backing resource lazily on first use.
type Gate struct {
	mu   sync.Mutex
	done atomic.Bool
}

func (g *Gate) Do(ctx context.Context, fn func(context.Context) error) error {
	if g.done.Load() {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.done.Load() {
		return nil
	}
	if err := fn(ctx); err != nil {
		return err
	}
	g.done.Store(true)
	return nil
}
