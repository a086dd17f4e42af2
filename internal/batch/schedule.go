package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule triggers periodic whole-project analysis from a cron expression.
// A tick that lands while the previous triggered run is still in flight is
// skipped; the analyzer never needs two queued project runs.
type Schedule struct {
	spec   cron.Schedule
	expr   string
	poll   time.Duration
	mu     sync.Mutex
	last   time.Time
	active bool
}

// ParseCron parses a standard 5-field cron expression
func ParseCron(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}

// NewSchedule creates a schedule from a cron expression
func NewSchedule(expr string) (*Schedule, error) {
	spec, err := ParseCron(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return &Schedule{
		spec: spec,
		expr: expr,
		poll: 30 * time.Second,
		last: time.Now(),
	}, nil
}

// NextRun returns the next scheduled trigger time
func (s *Schedule) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec.Next(s.last)
}

// ShouldRun returns true once the cron boundary since the last trigger has
// passed and no triggered run is marked active.
func (s *Schedule) ShouldRun(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return false
	}
	return now.After(s.spec.Next(s.last))
}

// MarkRunning marks the triggered run as in flight
func (s *Schedule) MarkRunning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = true
}

// MarkComplete records the trigger time and frees the slot
func (s *Schedule) MarkComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.last = time.Now()
}

// SetPollInterval overrides how often the loop checks the schedule
func (s *Schedule) SetPollInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.poll = d
}

// Start runs the schedule loop until the context is cancelled. runFunc is
// invoked on this goroutine; MarkComplete is called when it returns.
func (s *Schedule) Start(ctx context.Context, runFunc func() error) {
	s.mu.Lock()
	poll := s.poll
	s.mu.Unlock()

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !s.ShouldRun(now) {
				continue
			}
			s.MarkRunning()
			if err := runFunc(); err != nil {
				fmt.Printf("Warning: scheduled analysis failed: %v\n", err)
			}
			s.MarkComplete()
		}
	}
}
