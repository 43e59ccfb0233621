package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMarkRunAndGetLastRun(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	if _, ok, err := s.GetLastRun("job-a"); err != nil || ok {
		t.Fatalf("expected no last run initially, got ok=%v err=%v", ok, err)
	}

	if err := s.MarkRun("job-a", nil); err != nil {
		t.Fatalf("MarkRun: %v", err)
	}

	last, ok, err := s.GetLastRun("job-a")
	if err != nil || !ok {
		t.Fatalf("expected last run recorded, got ok=%v err=%v", ok, err)
	}
	if time.Since(last) > 5*time.Second {
		t.Errorf("last run timestamp too old: %v", last)
	}
}

func TestMarkRunSetsNextRunOnlyWithInterval(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	if err := s.MarkRun("job-a", nil); err != nil {
		t.Fatalf("MarkRun: %v", err)
	}
	if _, ok, err := s.GetNextScheduledRun("job-a"); err != nil || ok {
		t.Fatalf("expected no nextRun without interval, got ok=%v err=%v", ok, err)
	}

	iv := 60 * time.Second
	if err := s.MarkRun("job-b", &iv); err != nil {
		t.Fatalf("MarkRun: %v", err)
	}
	next, ok, err := s.GetNextScheduledRun("job-b")
	if err != nil || !ok {
		t.Fatalf("expected nextRun recorded, got ok=%v err=%v", ok, err)
	}
	last, _, _ := s.GetLastRun("job-b")
	if diff := next.Sub(last); diff < 59*time.Second || diff > 61*time.Second {
		t.Errorf("nextRun not ~interval after lastRun: diff=%v", diff)
	}
}

func TestPauseResumeSpecificID(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	if err := s.Pause("job-a"); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if paused, _ := s.IsPaused("job-a"); !paused {
		t.Errorf("expected job-a paused")
	}
	if err := s.Resume("job-a"); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if paused, _ := s.IsPaused("job-a"); paused {
		t.Errorf("expected job-a no longer paused")
	}
	status, err := s.GetPauseStatus()
	if err != nil {
		t.Fatalf("GetPauseStatus: %v", err)
	}
	if status.All || len(status.Jobs) != 0 {
		t.Errorf("expected clean pause status, got %+v", status)
	}
}

func TestPauseResumeAll(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	if err := s.Pause("all"); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if paused, _ := s.IsPaused("anything"); !paused {
		t.Errorf("expected every qid paused under global pause")
	}
	if err := s.Resume("all"); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	status, _ := s.GetPauseStatus()
	if status.All || len(status.Jobs) != 0 {
		t.Errorf("expected pause status cleared, got %+v", status)
	}
}

func TestResumeSpecificWhileGloballyPausedIsNoOp(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	if err := s.Pause("all"); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := s.Resume("job-a"); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if paused, _ := s.IsPaused("job-a"); !paused {
		t.Errorf("expected job-a still paused: resuming a specific id under global pause is a documented no-op")
	}
}

func TestGetStateMissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	doc, err := s.GetState()
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if len(doc) != 0 {
		t.Errorf("expected empty document, got %v", doc)
	}
}

func TestCorruptStateFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := os.WriteFile(filepath.Join(dir, "state.json"), []byte("not json"), 0o600); err != nil {
		t.Fatalf("write corrupt state file: %v", err)
	}
	if _, err := s.GetState(); err == nil {
		t.Errorf("expected error reading corrupt state file")
	}
}

func TestUpdateStateReleasesLockAfterUpdate(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.MarkRun("job-a", nil); err != nil {
		t.Fatalf("MarkRun: %v", err)
	}
	// Lock file must not be left behind after a normal update.
	if _, err := os.Stat(filepath.Join(dir, "state.lock")); !os.IsNotExist(err) {
		t.Errorf("expected state.lock removed after UpdateState returns, stat err=%v", err)
	}
}
