package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/codeplane/analyzer-orchestrator/internal/domain"
)

// RunError reports that an awaited process ended with errored or killed
// status. Killed is distinct from errored so callers can tell "user stopped
// this" apart from "this failed".
type RunError struct {
	Request domain.Request
	Status  domain.ProcessStatus
	Cause   error
}

func (e *RunError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %v", e.Request.Kind, e.Status, e.Cause)
	}
	return fmt.Sprintf("%s %s", e.Request.Kind, e.Status)
}

func (e *RunError) Unwrap() error { return e.Cause }

// Orchestrator encodes domain policy on top of the scheduler: version-gating
// of analysis, report parsing, and stop semantics. It is the sole entry point
// for hosts.
type Orchestrator struct {
	sched        *Scheduler
	reportSource string

	mu             sync.Mutex
	versionChecked bool
}

// NewOrchestrator creates an orchestrator. reportSource is the report file a
// Parse request reads; parsing is read-only with respect to that file.
func NewOrchestrator(sched *Scheduler, reportSource string) *Orchestrator {
	return &Orchestrator{sched: sched, reportSource: reportSource}
}

// Scheduler exposes the underlying scheduler for introspection
func (o *Orchestrator) Scheduler() *Scheduler {
	return o.sched
}

// VersionChecked reports whether a version probe has finished successfully
// this session.
func (o *Orchestrator) VersionChecked() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.versionChecked
}

// CheckVersion verifies the analyzer version once per session. If the check
// already succeeded the call returns true immediately without submitting
// work. Otherwise it submits a version-check request, waits for its terminal
// status, and records success. Concurrent callers share a single probe via
// queue deduplication.
func (o *Orchestrator) CheckVersion(ctx context.Context) (bool, error) {
	o.mu.Lock()
	if o.versionChecked {
		o.mu.Unlock()
		return true, nil
	}
	o.mu.Unlock()

	req := domain.Request{Kind: domain.KindVersionCheck}
	out, err := o.submitAndAwait(ctx, req)
	if err != nil {
		return false, err
	}

	if out.status == domain.StatusFinished {
		o.mu.Lock()
		o.versionChecked = true
		o.mu.Unlock()
		return true, nil
	}
	return false, &RunError{Request: req, Status: out.status, Cause: out.cause}
}

// AnalyzeFile submits analysis of a single file. The version gate runs first;
// no analyze request is submitted until the probe resolves.
func (o *Orchestrator) AnalyzeFile(ctx context.Context, path string) error {
	if _, err := o.CheckVersion(ctx); err != nil {
		return err
	}
	o.sched.Submit(domain.Request{Kind: domain.KindAnalyze, Target: path})
	return nil
}

// AnalyzeProject submits whole-project analysis. Identity is (kind, target),
// so a project run and a single-file run never deduplicate against each
// other.
func (o *Orchestrator) AnalyzeProject(ctx context.Context) error {
	if _, err := o.CheckVersion(ctx); err != nil {
		return err
	}
	o.sched.Submit(domain.Request{Kind: domain.KindAnalyze, Target: domain.ProjectTarget})
	return nil
}

// ParseMetadata submits parsing of the analyzer report. Invoked for host
// events like a document being opened or the watched report file changing;
// the parse run reads the report and writes its rendered output elsewhere,
// so it never re-triggers the watcher feeding it.
func (o *Orchestrator) ParseMetadata() {
	o.sched.Submit(domain.Request{Kind: domain.KindParse, Target: o.reportSource})
}

// StopAnalysis clears the analyze queue and kills an in-flight analyze run.
// Other kinds keep executing; queued work of other kinds may be dispatched
// immediately after the kill.
func (o *Orchestrator) StopAnalysis() {
	o.stopKinds(domain.KindAnalyze)
}

// StopMetadataTasks tears down background parse and version-check work
// without disturbing an unrelated in-flight analyze run.
func (o *Orchestrator) StopMetadataTasks() {
	o.stopKinds(domain.KindParse, domain.KindVersionCheck)
}

func (o *Orchestrator) stopKinds(kinds ...domain.ProcessKind) {
	for _, kind := range kinds {
		o.sched.ClearQueue(kind)
	}
	active := o.sched.ActiveProcess()
	if active == nil {
		return
	}
	for _, kind := range kinds {
		if active.Request.Kind == kind {
			o.sched.CancelActive()
			return
		}
	}
}

// Run submits a request and blocks until it reaches a terminal status.
// Callers needing the version gate run CheckVersion first.
func (o *Orchestrator) Run(ctx context.Context, req domain.Request) (domain.ProcessStatus, error) {
	out, err := o.submitAndAwait(ctx, req)
	if err != nil {
		return "", err
	}
	if out.status != domain.StatusFinished {
		return out.status, &RunError{Request: req, Status: out.status, Cause: out.cause}
	}
	return out.status, nil
}

// AwaitTerminal blocks until a process with the request's identity reaches a
// terminal status, returning a RunError for errored or killed. The wait is a
// filtered one-shot subscription on the status bus, so it also resolves when
// the request deduplicated against already-pending work.
func (o *Orchestrator) AwaitTerminal(ctx context.Context, req domain.Request) (domain.ProcessStatus, error) {
	out, err := o.awaitIdentity(ctx, req, nil)
	if err != nil {
		return "", err
	}
	if out.status != domain.StatusFinished {
		return out.status, &RunError{Request: req, Status: out.status, Cause: out.cause}
	}
	return out.status, nil
}

// outcome is the terminal status of an awaited process plus the runner error
// that produced it (nil unless errored).
type outcome struct {
	status domain.ProcessStatus
	cause  error
}

// submitAndAwait subscribes before submitting so a synchronously-dispatched
// terminal transition cannot be missed.
func (o *Orchestrator) submitAndAwait(ctx context.Context, req domain.Request) (outcome, error) {
	return o.awaitIdentity(ctx, req, func() { o.sched.Submit(req) })
}

func (o *Orchestrator) awaitIdentity(ctx context.Context, req domain.Request, submit func()) (outcome, error) {
	done := make(chan outcome, 1)

	sub := o.sched.OnStatusChange(func(ev Event) {
		if ev.Process.Request.Identity() != req.Identity() || !ev.Status.Terminal() {
			return
		}
		select {
		case done <- outcome{status: ev.Status, cause: ev.Process.Err()}:
		default:
		}
	})
	defer sub.Dispose()

	if submit != nil {
		submit()
	}

	select {
	case out := <-done:
		return out, nil
	case <-ctx.Done():
		return outcome{}, ctx.Err()
	}
}
