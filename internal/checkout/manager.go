package checkout

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mozpaylabs/mozpay-backend/pkg/enums"
)

// Clock is the narrow time surface the checkout package depends on.
// clockz.RealClock satisfies it in production; tests inject a fake.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// Manager owns the live checkout flows for this process. Flows hold live
// cancellation handles, so they stay in memory; idle flows are evicted after
// the configured TTL.
type Manager struct {
	mu    sync.RWMutex
	flows map[uuid.UUID]*Flow
	ttl   time.Duration
	clock Clock
}

// NewManager builds an empty flow manager.
func NewManager(ttl time.Duration, clock Clock) *Manager {
	return &Manager{
		flows: make(map[uuid.UUID]*Flow),
		ttl:   ttl,
		clock: clock,
	}
}

// Put registers a flow and opportunistically evicts idle ones.
func (m *Manager) Put(f *Flow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	m.flows[f.ID] = f
}

// Get returns the live flow for the given ID.
func (m *Manager) Get(id uuid.UUID) (*Flow, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.flows[id]
	return f, ok
}

// Delete drops a flow from the manager.
func (m *Manager) Delete(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.flows, id)
}

// Len reports the number of live flows.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.flows)
}

// sweepLocked evicts flows idle past the TTL. Flows mid-processing are never
// evicted; their goroutine still owns them.
func (m *Manager) sweepLocked() {
	if m.ttl <= 0 {
		return
	}
	cutoff := m.clock.Now().Add(-m.ttl)
	for id, f := range m.flows {
		f.mu.Lock()
		idle := f.State != enums.CheckoutStateProcessing && f.UpdatedAt.Before(cutoff)
		f.mu.Unlock()
		if idle {
			delete(m.flows, id)
		}
	}
}
