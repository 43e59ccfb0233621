package runner

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/cronburgundy/cronburgundy/internal/jobspec"
	"github.com/cronburgundy/cronburgundy/internal/lock"
	"github.com/cronburgundy/cronburgundy/internal/rlog"
	"github.com/cronburgundy/cronburgundy/internal/state"
)

func newTestRunner(t *testing.T) (*Runner, string) {
	t.Helper()
	dir := t.TempDir()
	st := state.New(dir)
	locks := lock.NewManager(filepath.Join(dir, "locks"))
	dirs := rlog.NewDirs(dir)
	runnerLog, err := rlog.NewRunner(dirs)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	t.Cleanup(func() { _ = runnerLog.Close() })
	return New(st, locks, dirs, runnerLog, nil, nil), dir
}

// Scenario 1: never-run interval job is due.
func TestRunAllDueNeverRunIsRan(t *testing.T) {
	r, _ := newTestRunner(t)
	job := jobspec.Job{ID: "t", Command: "true", IntervalMs: 60000}

	res, err := r.RunAllDue([]JobRef{{Qid: "t", Job: job}})
	if err != nil {
		t.Fatalf("RunAllDue: %v", err)
	}
	assertPartition(t, res, "t", "ran")

	last, ok, err := r.State.GetLastRun("t")
	if err != nil || !ok {
		t.Fatalf("expected last run recorded, ok=%v err=%v", ok, err)
	}
	if time.Since(last) > 5*time.Second {
		t.Errorf("last run timestamp too old: %v", last)
	}
}

// Scenario 2: recently run job is skipped, state unchanged.
func TestRunAllDueRecentlyRunIsSkipped(t *testing.T) {
	r, _ := newTestRunner(t)
	job := jobspec.Job{ID: "t", Command: "true", IntervalMs: 60000}

	if _, err := r.RunAllDue([]JobRef{{Qid: "t", Job: job}}); err != nil {
		t.Fatalf("first RunAllDue: %v", err)
	}
	before, _, _ := r.State.GetLastRun("t")

	res, err := r.RunAllDue([]JobRef{{Qid: "t", Job: job}})
	if err != nil {
		t.Fatalf("second RunAllDue: %v", err)
	}
	assertPartition(t, res, "t", "skipped")

	after, _, _ := r.State.GetLastRun("t")
	if !before.Equal(after) {
		t.Errorf("expected state timestamp unchanged, before=%v after=%v", before, after)
	}
}

// Scenario 3: disabled job is reported disabled, state unchanged.
func TestRunAllDueDisabledJob(t *testing.T) {
	r, _ := newTestRunner(t)
	disabled := false
	job := jobspec.Job{ID: "t", Command: "true", IntervalMs: 60000, Enabled: &disabled}

	res, err := r.RunAllDue([]JobRef{{Qid: "t", Job: job}})
	if err != nil {
		t.Fatalf("RunAllDue: %v", err)
	}
	assertPartition(t, res, "t", "disabled")

	if _, ok, _ := r.State.GetLastRun("t"); ok {
		t.Errorf("expected no state entry for a disabled job")
	}
}

// Scenario 4: overdue job is caught up by checkMissed.
func TestCheckMissedOverdueRecovery(t *testing.T) {
	r, _ := newTestRunner(t)
	job := jobspec.Job{ID: "t", Command: "true", IntervalMs: 1000}

	iv := time.Second
	if err := r.State.MarkRun("t", &iv); err != nil {
		t.Fatalf("seed MarkRun: %v", err)
	}
	// Force the seeded run to look 2s old by writing directly.
	past := time.Now().Add(-2 * time.Second)
	if err := r.State.UpdateState(func(doc map[string]any) map[string]any {
		doc["t"] = past.UTC().Format(time.RFC3339)
		return doc
	}); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	res, err := r.CheckMissed([]JobRef{{Qid: "t", Job: job}})
	if err != nil {
		t.Fatalf("CheckMissed: %v", err)
	}
	assertPartition(t, res, "t", "ran")

	last, _, _ := r.State.GetLastRun("t")
	if time.Since(last) > 5*time.Second {
		t.Errorf("expected state updated to now, got %v", last)
	}
}

// A failed user operation leaves state[qid] unchanged.
func TestFailedRunDoesNotMarkState(t *testing.T) {
	r, _ := newTestRunner(t)
	job := jobspec.Job{ID: "t", Command: "/bin/sh -c 'exit 1'", IntervalMs: 60000}

	outcome, err := r.RunJobNow("t", job, false)
	if err == nil {
		t.Fatalf("expected RunJobNow to propagate the failure")
	}
	if outcome != Failed {
		t.Errorf("expected Failed outcome, got %v", outcome)
	}
	if _, ok, _ := r.State.GetLastRun("t"); ok {
		t.Errorf("expected no state entry after a failed run")
	}
}

// runAllDue's five lists partition the input jobs.
func TestRunAllDuePartitionsInput(t *testing.T) {
	r, _ := newTestRunner(t)
	disabled := false
	jobs := []JobRef{
		{Qid: "a", Job: jobspec.Job{ID: "a", Command: "true", IntervalMs: 60000}},
		{Qid: "b", Job: jobspec.Job{ID: "b", Command: "true", IntervalMs: 60000, Enabled: &disabled}},
		{Qid: "c", Job: jobspec.Job{ID: "c", Command: "/bin/sh -c 'exit 1'", IntervalMs: 60000}},
	}
	if err := r.State.Pause("d"); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	jobs = append(jobs, JobRef{Qid: "d", Job: jobspec.Job{ID: "d", Command: "true", IntervalMs: 60000}})

	res, err := r.RunAllDue(jobs)
	if err != nil {
		t.Fatalf("RunAllDue: %v", err)
	}
	total := len(res.Ran) + len(res.Skipped) + len(res.Disabled) + len(res.Paused) + len(res.Failed)
	if total != len(jobs) {
		t.Errorf("expected partition to cover all %d jobs, covered %d", len(jobs), total)
	}
	assertContains(t, res.Ran, "a")
	assertContains(t, res.Disabled, "b")
	assertContains(t, res.Failed, "c")
	assertContains(t, res.Paused, "d")
}

// Scenario: a paused scheduled run is skipped via RunJobNow's gate.
func TestRunJobNowSkipsPausedScheduledRun(t *testing.T) {
	r, _ := newTestRunner(t)
	job := jobspec.Job{ID: "t", Command: "true", IntervalMs: 60000}
	if err := r.State.Pause("t"); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	outcome, err := r.RunJobNow("t", job, true)
	if err != nil {
		t.Fatalf("RunJobNow: %v", err)
	}
	if outcome != Paused {
		t.Errorf("expected Paused outcome, got %v", outcome)
	}
}

// Mutual exclusion: a lock already held by this process
// causes a concurrent runJobNow to skip rather than execute.
func TestRunJobNowSkipsWhenLockAlreadyHeld(t *testing.T) {
	r, _ := newTestRunner(t)
	job := jobspec.Job{ID: "t", Command: "true", IntervalMs: 60000}

	if err := r.Locks.Acquire("t", time.Hour); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer r.Locks.Release("t")

	outcome, err := r.RunJobNow("t", job, false)
	if err != nil {
		t.Fatalf("RunJobNow: %v", err)
	}
	if outcome != Skipped {
		t.Errorf("expected Skipped outcome when lock already held, got %v", outcome)
	}
}

func assertPartition(t *testing.T, res Result, qid, bucket string) {
	t.Helper()
	lists := map[string][]string{
		"ran": res.Ran, "skipped": res.Skipped, "disabled": res.Disabled,
		"paused": res.Paused, "failed": res.Failed,
	}
	if !assertContainsBool(lists[bucket], qid) {
		t.Errorf("expected %q in bucket %q, got %+v", qid, bucket, res)
	}
}

func assertContains(t *testing.T, list []string, qid string) {
	t.Helper()
	if !assertContainsBool(list, qid) {
		t.Errorf("expected %q in %v", qid, list)
	}
}

func assertContainsBool(list []string, qid string) bool {
	for _, q := range list {
		if q == qid {
			return true
		}
	}
	return false
}
