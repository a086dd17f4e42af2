package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/codeplane/analyzer-orchestrator/internal/domain"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_SaveAndGetRun(t *testing.T) {
	store := testStore(t)

	run := &Run{
		ID:        "run-1",
		Kind:      domain.KindAnalyze,
		Target:    "main.cpp",
		Status:    domain.StatusRunning,
		StartedAt: time.Now(),
	}
	if err := store.SaveRun(run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := store.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Kind != domain.KindAnalyze {
		t.Errorf("Kind = %s, want %s", got.Kind, domain.KindAnalyze)
	}
	if got.Target != "main.cpp" {
		t.Errorf("Target = %s, want main.cpp", got.Target)
	}
	if got.FinishedAt != nil {
		t.Error("FinishedAt should be nil for a running run")
	}
}

func TestStore_UpdateRunStatus(t *testing.T) {
	store := testStore(t)

	run := &Run{
		ID:        "run-1",
		Kind:      domain.KindVersionCheck,
		Status:    domain.StatusRunning,
		StartedAt: time.Now(),
	}
	if err := store.SaveRun(run); err != nil {
		t.Fatal(err)
	}

	finished := time.Now()
	if err := store.UpdateRunStatus("run-1", domain.StatusErrored, finished, "exit status 2"); err != nil {
		t.Fatalf("UpdateRunStatus: %v", err)
	}

	got, err := store.GetRun("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusErrored {
		t.Errorf("Status = %s, want %s", got.Status, domain.StatusErrored)
	}
	if got.FinishedAt == nil {
		t.Error("FinishedAt should be set after update")
	}
	if got.ErrorMessage != "exit status 2" {
		t.Errorf("ErrorMessage = %q, want exit status 2", got.ErrorMessage)
	}
}

func TestStore_ListRecent(t *testing.T) {
	store := testStore(t)

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"old", "middle", "new"} {
		run := &Run{
			ID:        id,
			Kind:      domain.KindAnalyze,
			Target:    id + ".cpp",
			Status:    domain.StatusFinished,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.SaveRun(run); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := store.ListRecent(2)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0].ID != "new" || runs[1].ID != "middle" {
		t.Errorf("order = [%s %s], want [new middle]", runs[0].ID, runs[1].ID)
	}
}
