package executor

import (
	"sync"

	"github.com/codeplane/analyzer-orchestrator/internal/domain"
)

// Scheduler serializes execution of analyzer requests. It owns the per-kind
// pending queues and the single active process slot; regardless of how much
// work is queued, exactly one OS process runs at a time.
//
// All queue and slot mutation happens under one mutex. Status events are
// emitted after the lock is released, in transition order, so listeners may
// call back into the scheduler freely.
type Scheduler struct {
	runner    Runner
	translate Translator
	bus       *StatusBus

	mu     sync.Mutex
	queues map[domain.ProcessKind][]domain.Request
	active *Process

	// Pending status events in transition order. Enqueued under mu so the
	// order is fixed at transition time; delivered by whichever goroutine
	// holds the emitting flag, outside both locks.
	emitMu    sync.Mutex
	emitQueue []Event
	emitting  bool
}

// NewScheduler creates a scheduler that spawns processes through runner,
// building command lines with translate.
func NewScheduler(runner Runner, translate Translator) *Scheduler {
	return &Scheduler{
		runner:    runner,
		translate: translate,
		bus:       NewStatusBus(),
		queues:    make(map[domain.ProcessKind][]domain.Request),
	}
}

// Submit enqueues a request. If a request with the same identity already
// waits in that kind's queue, the call is a no-op. If no process is active,
// dispatch happens immediately.
func (s *Scheduler) Submit(req domain.Request) {
	s.mu.Lock()
	for _, queued := range s.queues[req.Kind] {
		if queued.Identity() == req.Identity() {
			s.mu.Unlock()
			return
		}
	}
	s.queues[req.Kind] = append(s.queues[req.Kind], req)

	if s.active == nil {
		s.enqueueEventsLocked(s.dispatchLocked())
	}
	s.mu.Unlock()

	s.flushEvents()
}

// dispatchLocked picks the next request by kind priority (oldest entry within
// the winning kind), spawns it, and fills the active slot. A spawn failure
// becomes an immediate errored transition, with no running event, and
// dispatch moves on to the next pending request. Caller must hold s.mu.
func (s *Scheduler) dispatchLocked() []Event {
	var events []Event

	for s.active == nil {
		req, ok := s.nextLocked()
		if !ok {
			return events
		}

		proc := newProcess(req)
		handle, err := s.runner.Start(s.translate.Command(req))
		if err != nil {
			proc.markTerminal(domain.StatusErrored, err)
			events = append(events, Event{Process: proc, Status: domain.StatusErrored})
			continue
		}

		proc.markRunning(handle)
		s.active = proc
		events = append(events, Event{Process: proc, Status: domain.StatusRunning})

		go func() {
			s.onExit(proc, handle.Wait())
		}()
	}
	return events
}

// nextLocked removes and returns the highest-priority pending request
func (s *Scheduler) nextLocked() (domain.Request, bool) {
	for _, kind := range domain.KindsByPriority {
		queue := s.queues[kind]
		if len(queue) == 0 {
			continue
		}
		req := queue[0]
		s.queues[kind] = queue[1:]
		return req, true
	}
	return domain.Request{}, false
}

// onExit records the terminal status of the active process and drains the
// queues. A process already cancelled (or otherwise terminal) is ignored:
// its killed status has been published and the slot already moved on.
func (s *Scheduler) onExit(proc *Process, waitErr error) {
	s.mu.Lock()
	if s.active != proc || proc.terminal() {
		s.mu.Unlock()
		return
	}

	status := domain.StatusFinished
	if waitErr != nil {
		status = domain.StatusErrored
	}
	proc.markTerminal(status, waitErr)
	s.active = nil

	s.enqueueEventsLocked([]Event{{Process: proc, Status: status}})
	s.enqueueEventsLocked(s.dispatchLocked())
	s.mu.Unlock()

	s.flushEvents()
}

// CancelActive kills the running process, if any, and continues with the
// queue. The OS handle is signaled before the killed event is published, so
// listeners observing killed can assume the process has been told to stop.
// Safe to call when nothing is active.
func (s *Scheduler) CancelActive() {
	s.mu.Lock()
	proc := s.active
	if proc == nil {
		s.mu.Unlock()
		return
	}

	proc.mu.Lock()
	handle := proc.handle
	proc.mu.Unlock()
	if handle != nil {
		handle.Kill()
	}

	proc.markTerminal(domain.StatusKilled, nil)
	s.active = nil

	s.enqueueEventsLocked([]Event{{Process: proc, Status: domain.StatusKilled}})
	s.enqueueEventsLocked(s.dispatchLocked())
	s.mu.Unlock()

	s.flushEvents()
}

// ClearQueue discards all pending requests of the given kind. The active
// process is untouched and no events fire for discarded requests, since they
// were never materialized.
func (s *Scheduler) ClearQueue(kind domain.ProcessKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.queues, kind)
}

// ActiveProcess returns the currently running process, or nil
func (s *Scheduler) ActiveProcess() *Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Pending returns the number of queued requests for a kind
func (s *Scheduler) Pending(kind domain.ProcessKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues[kind])
}

// OnStatusChange registers a listener for every status transition of any
// process. Disposing the returned subscription removes the listener.
func (s *Scheduler) OnStatusChange(l Listener) *Subscription {
	return s.bus.Subscribe(l)
}

// enqueueEventsLocked appends events to the delivery queue. Caller must hold
// s.mu; that is what pins the cross-operation transition order.
func (s *Scheduler) enqueueEventsLocked(events []Event) {
	if len(events) == 0 {
		return
	}
	s.emitMu.Lock()
	s.emitQueue = append(s.emitQueue, events...)
	s.emitMu.Unlock()
}

// flushEvents delivers queued events in order. Only one goroutine drains at
// a time; a listener that re-enters the scheduler enqueues behind the
// in-flight delivery instead of deadlocking.
func (s *Scheduler) flushEvents() {
	s.emitMu.Lock()
	if s.emitting {
		s.emitMu.Unlock()
		return
	}
	s.emitting = true
	for len(s.emitQueue) > 0 {
		ev := s.emitQueue[0]
		s.emitQueue = s.emitQueue[1:]
		s.emitMu.Unlock()
		s.bus.Emit(ev)
		s.emitMu.Lock()
	}
	s.emitting = false
	s.emitMu.Unlock()
}
