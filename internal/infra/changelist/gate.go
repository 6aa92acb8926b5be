package changelist

import (
	"context"
	"sync"
)

// zoneGate serializes changelist work per zone. Each zone owns a
// one-slot semaphore; acquiring an occupied slot blocks until the
// holder releases it or the waiter's context ends.
type zoneGate struct {
	mu    sync.Mutex
	zones map[string]chan struct{}
}

func newZoneGate() *zoneGate {
	return &zoneGate{zones: make(map[string]chan struct{})}
}

func (g *zoneGate) acquire(ctx context.Context, zone string) error {
	g.mu.Lock()
	slot, ok := g.zones[zone]
	if !ok {
		slot = make(chan struct{}, 1)
		g.zones[zone] = slot
	}
	g.mu.Unlock()

	select {
	case slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *zoneGate) release(zone string) {
	g.mu.Lock()
	slot := g.zones[zone]
	g.mu.Unlock()
	if slot == nil {
		return
	}
	select {
	case <-slot:
	default:
	}
}
