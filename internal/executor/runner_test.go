package executor

import (
	"testing"
	"time"
)

func TestExecRunner_StartAndWait(t *testing.T) {
	r := &ExecRunner{}

	h, err := r.Start(CommandSpec{Path: "true"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h.PID() == 0 {
		t.Error("PID = 0, want a real process ID")
	}
	if err := h.Wait(); err != nil {
		t.Errorf("Wait = %v, want nil for zero exit", err)
	}
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	r := &ExecRunner{}

	h, err := r.Start(CommandSpec{Path: "false"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.Wait(); err == nil {
		t.Error("Wait = nil, want error for non-zero exit")
	}
}

func TestExecRunner_SpawnFailure(t *testing.T) {
	r := &ExecRunner{}

	if _, err := r.Start(CommandSpec{Path: "/nonexistent/analyzer-binary"}); err == nil {
		t.Error("Start should fail for a missing binary")
	}
}

func TestExecRunner_Kill(t *testing.T) {
	r := &ExecRunner{}

	h, err := r.Start(CommandSpec{Path: "sleep", Args: []string{"30"}})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- h.Wait() }()

	if err := h.Kill(); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	select {
	case err := <-done:
		if err == nil {
			t.Error("Wait = nil after kill, want signal error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit after Kill")
	}
}
