package executor

import (
	"sync"
	"time"

	"github.com/codeplane/analyzer-orchestrator/internal/domain"
	"github.com/google/uuid"
)

// Process wraps a request for the duration of its run. It is created by the
// scheduler at dispatch time and never reused after reaching a terminal
// status; queued requests are not materialized as processes.
type Process struct {
	ID      string
	Request domain.Request

	mu         sync.Mutex
	status     domain.ProcessStatus
	startedAt  time.Time
	finishedAt *time.Time
	handle     Handle
	err        error
}

func newProcess(req domain.Request) *Process {
	return &Process{
		ID:      uuid.NewString(),
		Request: req,
		status:  domain.StatusQueued,
	}
}

// Status returns the current lifecycle status
func (p *Process) Status() domain.ProcessStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// StartedAt returns when the process began running
func (p *Process) StartedAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.startedAt
}

// FinishedAt returns when the process reached a terminal status, or nil
func (p *Process) FinishedAt() *time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finishedAt
}

// Err returns the runner error for an errored process
func (p *Process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// PID returns the OS process ID, or 0 before the process starts
func (p *Process) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == nil {
		return 0
	}
	return p.handle.PID()
}

func (p *Process) markRunning(h Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handle = h
	p.status = domain.StatusRunning
	p.startedAt = time.Now()
}

func (p *Process) markTerminal(status domain.ProcessStatus, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
	p.err = err
	now := time.Now()
	p.finishedAt = &now
}

func (p *Process) terminal() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status.Terminal()
}
