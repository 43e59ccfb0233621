package cronburgundy

import (
	"testing"

	"github.com/cronburgundy/cronburgundy/internal/rlog"
	"github.com/cronburgundy/cronburgundy/internal/runner"
)

func TestFacadeWiring(t *testing.T) {
	dir := t.TempDir()
	st := NewStore(dir)
	locks := NewLockManager(dir + "/locks")
	dirs := rlog.NewDirs(dir)
	runnerLog, err := rlog.NewRunner(dirs)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	defer func() { _ = runnerLog.Close() }()

	r := NewRunner(st, locks, dirs, runnerLog, nil, nil)
	job := Job{ID: "t", IntervalMs: 60_000, Command: "/bin/true"}
	outcome, err := r.RunJobNow("t", job, false)
	if err != nil {
		t.Fatalf("RunJobNow: %v", err)
	}
	if outcome != runner.Ran {
		t.Fatalf("outcome = %v, want Ran", outcome)
	}
}

func TestFacadeQualifyRoundTrip(t *testing.T) {
	qid := QualifyJobID("tick", "pm")
	ns, id := ParseQualifiedID(qid)
	if ns != "pm" || id != "tick" {
		t.Fatalf("got {%s %s}, want {pm tick}", ns, id)
	}
}

func TestFacadeNormalizeSchedule(t *testing.T) {
	expr, err := NormalizeSchedule("every 5 minutes")
	if err != nil {
		t.Fatalf("NormalizeSchedule: %v", err)
	}
	if expr != "*/5 * * * *" {
		t.Fatalf("got %q, want */5 * * * *", expr)
	}
}
