package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/codeplane/analyzer-orchestrator/internal/domain"
)

const testReport = "/tmp/report.json"

func newTestOrchestrator() (*Orchestrator, *Scheduler, *fakeRunner) {
	sched, runner := newTestScheduler()
	return NewOrchestrator(sched, testReport), sched, runner
}

// passVersionCheck runs the version gate to completion so later calls
// short-circuit.
func passVersionCheck(t *testing.T, o *Orchestrator, runner *fakeRunner) {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		_, err := o.CheckVersion(context.Background())
		done <- err
	}()
	waitUntil(t, func() bool { return runner.startedCount() >= 1 }, "version probe start")
	runner.lastHandle().complete(nil)
	if err := <-done; err != nil {
		t.Fatalf("CheckVersion failed: %v", err)
	}
}

func TestOrchestrator_VersionGate(t *testing.T) {
	o, sched, runner := newTestOrchestrator()

	done := make(chan error, 1)
	go func() { done <- o.AnalyzeFile(context.Background(), "main.cpp") }()

	waitUntil(t, func() bool { return runner.startedCount() == 1 }, "version probe start")

	// No analyze work may exist before the probe resolves
	if got := runner.handleAt(0).spec.Path; got != string(domain.KindVersionCheck) {
		t.Fatalf("first process kind = %s, want %s", got, domain.KindVersionCheck)
	}
	if got := sched.Pending(domain.KindAnalyze); got != 0 {
		t.Errorf("Pending(analyze) = %d before version check resolved, want 0", got)
	}

	runner.handleAt(0).complete(nil)
	if err := <-done; err != nil {
		t.Fatalf("AnalyzeFile returned error: %v", err)
	}

	if !o.VersionChecked() {
		t.Error("VersionChecked = false after successful probe")
	}
	waitUntil(t, func() bool { return runner.startedCount() == 2 }, "analyze dispatch")
	if got := runner.handleAt(1).spec.Path; got != string(domain.KindAnalyze) {
		t.Errorf("second process kind = %s, want %s", got, domain.KindAnalyze)
	}
}

func TestOrchestrator_VersionGate_Failure(t *testing.T) {
	o, sched, runner := newTestOrchestrator()

	done := make(chan error, 1)
	go func() { done <- o.AnalyzeFile(context.Background(), "main.cpp") }()

	waitUntil(t, func() bool { return runner.startedCount() == 1 }, "version probe start")
	runner.handleAt(0).complete(errors.New("exit status 1"))

	err := <-done
	if err == nil {
		t.Fatal("AnalyzeFile should fail when the version check errors")
	}
	var runErr *RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("error type = %T, want *RunError", err)
	}
	if runErr.Status != domain.StatusErrored {
		t.Errorf("RunError status = %s, want %s", runErr.Status, domain.StatusErrored)
	}

	if o.VersionChecked() {
		t.Error("VersionChecked must stay false after a failed probe")
	}
	if got := sched.Pending(domain.KindAnalyze); got != 0 {
		t.Errorf("Pending(analyze) = %d, want 0 (analysis not submitted)", got)
	}
}

func TestOrchestrator_CheckVersion_Idempotent(t *testing.T) {
	o, _, runner := newTestOrchestrator()

	passVersionCheck(t, o, runner)

	// Second call resolves without spawning a second process
	ok, err := o.CheckVersion(context.Background())
	if err != nil || !ok {
		t.Fatalf("CheckVersion = (%v, %v), want (true, nil)", ok, err)
	}
	if got := runner.startedCount(); got != 1 {
		t.Errorf("processes spawned = %d, want 1", got)
	}
}

func TestOrchestrator_CheckVersion_ContextCancelled(t *testing.T) {
	o, _, runner := newTestOrchestrator()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := o.CheckVersion(ctx)
		done <- err
	}()

	waitUntil(t, func() bool { return runner.startedCount() == 1 }, "version probe start")
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestOrchestrator_ParseMetadata(t *testing.T) {
	o, sched, runner := newTestOrchestrator()

	o.ParseMetadata()

	waitUntil(t, func() bool { return runner.startedCount() == 1 }, "parse dispatch")
	h := runner.handleAt(0)
	if h.spec.Path != string(domain.KindParse) {
		t.Errorf("kind = %s, want %s", h.spec.Path, domain.KindParse)
	}
	if h.spec.Args[0] != testReport {
		t.Errorf("parse target = %s, want %s", h.spec.Args[0], testReport)
	}

	// Duplicate parse requests collapse while one is pending
	o.ParseMetadata()
	o.ParseMetadata()
	if got := sched.Pending(domain.KindParse); got > 1 {
		t.Errorf("Pending(parse) = %d, want at most 1", got)
	}
}

func TestOrchestrator_StopAnalysis(t *testing.T) {
	o, sched, runner := newTestOrchestrator()
	passVersionCheck(t, o, runner)

	ctx := context.Background()
	for _, f := range []string{"file.cpp", "file2.cpp", "file3.cpp"} {
		if err := o.AnalyzeFile(ctx, f); err != nil {
			t.Fatalf("AnalyzeFile(%s): %v", f, err)
		}
	}

	if got := sched.Pending(domain.KindAnalyze); got == 0 {
		t.Error("Pending(analyze) = 0, want > 0 before stop")
	}
	if sched.ActiveProcess() == nil {
		t.Fatal("ActiveProcess = nil, want running analyze")
	}

	o.StopAnalysis()

	if got := sched.Pending(domain.KindAnalyze); got != 0 {
		t.Errorf("Pending(analyze) = %d after StopAnalysis, want 0", got)
	}
	if sched.ActiveProcess() != nil {
		t.Error("ActiveProcess should be empty after StopAnalysis")
	}
}

func TestOrchestrator_StopAnalysis_LeavesOtherKinds(t *testing.T) {
	o, sched, runner := newTestOrchestrator()
	passVersionCheck(t, o, runner)

	if err := o.AnalyzeFile(context.Background(), "file.cpp"); err != nil {
		t.Fatal(err)
	}
	o.ParseMetadata()

	o.StopAnalysis()

	// The queued parse takes over the freed slot
	waitUntil(t, func() bool {
		active := sched.ActiveProcess()
		return active != nil && active.Request.Kind == domain.KindParse
	}, "parse dispatch after stop")
}

func TestOrchestrator_StopMetadataTasks(t *testing.T) {
	o, sched, runner := newTestOrchestrator()
	passVersionCheck(t, o, runner)

	// Active analyze run with a parse queued behind it
	if err := o.AnalyzeFile(context.Background(), "file.cpp"); err != nil {
		t.Fatal(err)
	}
	o.ParseMetadata()

	o.StopMetadataTasks()

	if got := sched.Pending(domain.KindParse); got != 0 {
		t.Errorf("Pending(parse) = %d, want 0", got)
	}
	active := sched.ActiveProcess()
	if active == nil || active.Request.Kind != domain.KindAnalyze {
		t.Error("StopMetadataTasks must not disturb an in-flight analyze run")
	}
}

func TestOrchestrator_StopMetadataTasks_KillsActiveParse(t *testing.T) {
	o, sched, runner := newTestOrchestrator()

	o.ParseMetadata()
	waitUntil(t, func() bool { return runner.startedCount() == 1 }, "parse dispatch")
	proc := sched.ActiveProcess()

	o.StopMetadataTasks()

	if got := proc.Status(); got != domain.StatusKilled {
		t.Errorf("parse status = %s, want %s", got, domain.StatusKilled)
	}
	if sched.ActiveProcess() != nil {
		t.Error("ActiveProcess should be empty")
	}
}

func TestOrchestrator_AwaitTerminal(t *testing.T) {
	o, sched, runner := newTestOrchestrator()

	req := domain.Request{Kind: domain.KindAnalyze, Target: "main.cpp"}
	done := make(chan domain.ProcessStatus, 1)
	go func() {
		status, _ := o.AwaitTerminal(context.Background(), req)
		done <- status
	}()

	// Give the waiter a moment to subscribe, then run the request
	time.Sleep(20 * time.Millisecond)
	sched.Submit(req)
	waitUntil(t, func() bool { return runner.startedCount() == 1 }, "dispatch")
	runner.handleAt(0).complete(nil)

	select {
	case status := <-done:
		if status != domain.StatusFinished {
			t.Errorf("awaited status = %s, want %s", status, domain.StatusFinished)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("AwaitTerminal did not resolve")
	}
}
