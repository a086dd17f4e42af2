package executor

import (
	"sync"
	"sync/atomic"

	"github.com/codeplane/analyzer-orchestrator/internal/domain"
)

// Event is a single status transition of a process. Queued requests do not
// emit events; only running and terminal transitions are published.
type Event struct {
	Process *Process
	Status  domain.ProcessStatus
}

// Listener receives status events
type Listener func(Event)

// Subscription is a handle to a registered listener. Dispose removes the
// listener; it is idempotent and safe to call during event delivery.
type Subscription struct {
	bus      *StatusBus
	id       uint64
	disposed atomic.Bool
}

// Dispose removes the listener from the bus
func (s *Subscription) Dispose() {
	if s == nil || !s.disposed.CompareAndSwap(false, true) {
		return
	}
	s.bus.remove(s.id)
}

type busEntry struct {
	id       uint64
	listener Listener
	sub      *Subscription
}

// StatusBus broadcasts process lifecycle events to registered listeners.
// Delivery order across listeners is registration order.
type StatusBus struct {
	mu      sync.Mutex
	nextID  uint64
	entries []busEntry
}

// NewStatusBus creates an empty bus
func NewStatusBus() *StatusBus {
	return &StatusBus{}
}

// Subscribe registers a listener and returns its disposal handle
func (b *StatusBus) Subscribe(l Listener) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{bus: b, id: b.nextID}
	b.entries = append(b.entries, busEntry{id: b.nextID, listener: l, sub: sub})
	return sub
}

func (b *StatusBus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, e := range b.entries {
		if e.id == id {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return
		}
	}
}

// Emit delivers the event to all listeners registered at call time.
// Listeners run outside the bus lock so they may subscribe, dispose, or
// submit new work without deadlocking. A listener disposed mid-delivery is
// skipped.
func (b *StatusBus) Emit(ev Event) {
	b.mu.Lock()
	snapshot := make([]busEntry, len(b.entries))
	copy(snapshot, b.entries)
	b.mu.Unlock()

	for _, e := range snapshot {
		if e.sub.disposed.Load() {
			continue
		}
		e.listener(ev)
	}
}

// Len returns the number of registered listeners
func (b *StatusBus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
