package history

import (
	"fmt"
	"time"

	"github.com/codeplane/analyzer-orchestrator/internal/domain"
	"github.com/codeplane/analyzer-orchestrator/internal/executor"
)

// dbOp is a database write queued by the recorder
type dbOp struct {
	opType       string
	run          *Run
	runID        string
	status       domain.ProcessStatus
	finishedAt   time.Time
	errorMessage string
}

// Recorder persists process lifecycle events. Writes go through a single
// goroutine so status listeners never block on SQLite lock contention.
type Recorder struct {
	store *Store
	sub   *executor.Subscription

	writeChan chan dbOp
	writeDone chan struct{}
}

// NewRecorder creates a recorder writing to store
func NewRecorder(store *Store) *Recorder {
	r := &Recorder{
		store:     store,
		writeChan: make(chan dbOp, 100),
		writeDone: make(chan struct{}),
	}
	go r.writer()
	return r
}

// Attach subscribes the recorder to the scheduler's status events
func (r *Recorder) Attach(sched *executor.Scheduler) {
	r.sub = sched.OnStatusChange(r.onStatus)
}

// Close detaches the recorder and waits for queued writes to land
func (r *Recorder) Close() {
	if r.sub != nil {
		r.sub.Dispose()
	}
	close(r.writeChan)
	<-r.writeDone
}

func (r *Recorder) onStatus(ev executor.Event) {
	switch ev.Status {
	case domain.StatusRunning:
		r.queue(dbOp{
			opType: "save",
			run: &Run{
				ID:        ev.Process.ID,
				Kind:      ev.Process.Request.Kind,
				Target:    ev.Process.Request.Target,
				Status:    domain.StatusRunning,
				StartedAt: ev.Process.StartedAt(),
			},
		})
	case domain.StatusFinished, domain.StatusErrored, domain.StatusKilled:
		finishedAt := time.Now()
		if t := ev.Process.FinishedAt(); t != nil {
			finishedAt = *t
		}
		op := dbOp{
			opType:     "updateStatus",
			runID:      ev.Process.ID,
			status:     ev.Status,
			finishedAt: finishedAt,
		}
		if err := ev.Process.Err(); err != nil {
			op.errorMessage = err.Error()
		}
		if ev.Process.StartedAt().IsZero() {
			// Spawn failure: no running event was ever recorded
			now := time.Now()
			op = dbOp{
				opType: "save",
				run: &Run{
					ID:           ev.Process.ID,
					Kind:         ev.Process.Request.Kind,
					Target:       ev.Process.Request.Target,
					Status:       ev.Status,
					StartedAt:    now,
					FinishedAt:   &now,
					ErrorMessage: op.errorMessage,
				},
			}
		}
		r.queue(op)
	}
}

func (r *Recorder) queue(op dbOp) {
	select {
	case r.writeChan <- op:
	default:
		// Channel full, write synchronously as fallback
		r.apply(op)
	}
}

func (r *Recorder) writer() {
	for op := range r.writeChan {
		r.apply(op)
	}
	close(r.writeDone)
}

func (r *Recorder) apply(op dbOp) {
	var err error
	id := op.runID
	switch op.opType {
	case "save":
		id = op.run.ID
		err = r.store.SaveRun(op.run)
	case "updateStatus":
		err = r.store.UpdateRunStatus(op.runID, op.status, op.finishedAt, op.errorMessage)
	}
	if err != nil {
		fmt.Printf("Warning: failed to record run %s: %v\n", id, err)
	}
}
