// Package lock implements the per-job lock manager:
// advisory lock files keyed by qualified id, with liveness detection via
// a PID probe and staleness by file age. Grounded in
// internal/process.DetectAlive (syscall.Kill(pid,0) probe) and
// internal/process/pidfile.go's PIDMeta start-time guard against PID
// reuse, generalized from a single supervised process's pidfile to one
// lock file per qualified id.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/cronburgundy/cronburgundy/internal/filelock"
)

// ErrLocked is returned by Acquire (and surfaced by withLock's bool
// result) when a live lock already exists. This is a normal outcome,
// not a failure to be propagated as an error to the caller of
// runJobNow/runAllDue.
var ErrLocked = errors.New("lock: held by a live process")

// record is the on-disk lock file body.
type record struct {
	PID int `json:"pid"`
	Acquired time.Time `json:"acquired"`
}

// Manager issues and releases per-qid lock files under dir (typically
// ~/.cron-burgundy/locks).
type Manager struct {
	dir string

	mu sync.Mutex
	active map[string]struct{}
}

// NewManager returns a Manager rooted at dir. dir is created lazily on
// first Acquire.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir, active: make(map[string]struct{})}
}

// StaleThresholdForInterval computes the staleness threshold for
// interval jobs: max(3*interval, 30s).
func StaleThresholdForInterval(interval time.Duration) time.Duration {
	t := 3 * interval
	if t < 30*time.Second {
		return 30 * time.Second
	}
	return t
}

// StaleThresholdForCron is the fixed 1 hour threshold for cron-scheduled
// jobs.
const StaleThresholdForCron = time.Hour

// pathFor maps a qualified id to its lock file path. "/" in a qid (the
// namespace separator) would otherwise collide with the filesystem
// separator, so it is rendered as a reversible sentinel.
func (m *Manager) pathFor(qid string) string {
	safe := strings.ReplaceAll(qid, "/", "__ns__")
	return filepath.Join(m.dir, safe+".lock")
}

// Acquire attempts to take the lock for qid. It returns ErrLocked (not a
// fatal error) when a live lock already exists; any other non-nil error
// is an unexpected filesystem failure.
func (m *Manager) Acquire(qid string, staleThreshold time.Duration) error {
	if err := os.MkdirAll(m.dir, 0o700); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	path := m.pathFor(qid)

	if filelock.Exists(path) {
		live, err := m.isLive(path, staleThreshold)
		if err != nil {
			return err
		}
		if live {
			return ErrLocked
		}
		if err := filelock.Remove(path); err != nil {
			return fmt.Errorf("remove stale lock %s: %w", path, err)
		}
	}

	body, err := json.Marshal(record{PID: os.Getpid(), Acquired: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal lock record: %w", err)
	}
	acquired, err := filelock.TryCreate(path, body)
	if err != nil {
		return fmt.Errorf("create lock file %s: %w", path, err)
	}
	if !acquired {
		// Lost the exclusive-create race to a concurrent acquirer.
		return ErrLocked
	}

	m.mu.Lock()
	m.active[qid] = struct{}{}
	m.mu.Unlock()
	return nil
}

// isLive determines whether an existing lock file still represents a
// live holder: unparseable or past the staleness threshold means not
// live (reclaimable); otherwise probe the recorded pid.
func (m *Manager) isLive(path string, staleThreshold time.Duration) (bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read lock file %s: %w", path, err)
	}

	age, err := filelock.Age(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat lock file %s: %w", path, err)
	}

	var rec record
	if err := json.Unmarshal(b, &rec); err != nil {
		return false, nil // unparseable: reclaimable
	}
	if age > staleThreshold {
		return false, nil
	}
	if rec.PID == 0 {
		// No pid recorded, still within threshold: treat as live.
		return true, nil
	}
	return probeAlive(rec.PID, rec.Acquired)
}

// probeAlive checks whether pid names a live process that could plausibly
// be the one that wrote this lock record. A signal-0 probe alone cannot
// distinguish the original holder from a later process reusing the same
// pid; gopsutil's CreateTime closes that gap by rejecting a pid whose
// process started more than one second after the lock was acquired.
func probeAlive(pid int, acquired time.Time) (bool, error) {
	if err := signalZero(pid); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return false, nil
		}
		if isPermissionDenied(err) {
			// Owned by another user: treat as live.
			return true, nil
		}
		return false, nil // process does not exist
	}

	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return false, nil
	}
	createdMs, err := proc.CreateTime()
	if err != nil {
		// Can't confirm start time; fall back to the signal probe result.
		return true, nil
	}
	createdAt := time.UnixMilli(createdMs)
	if createdAt.After(acquired.Add(time.Second)) {
		// This pid was reused by a newer process after the lock was written.
		return false, nil
	}
	return true, nil
}

// Release removes qid from the in-memory active set and deletes its lock
// file, ignoring "not found".
func (m *Manager) Release(qid string) error {
	m.mu.Lock()
	delete(m.active, qid)
	m.mu.Unlock()
	return filelock.Remove(m.pathFor(qid))
}

// ReleaseAllHeld is the process-exit hook: it attempts synchronous
// deletion of every lock this process still holds, swallowing errors.
func (m *Manager) ReleaseAllHeld() {
	m.mu.Lock()
	qids := make([]string, 0, len(m.active))
	for qid := range m.active {
		qids = append(qids, qid)
	}
	m.mu.Unlock()
	for _, qid := range qids {
		_ = m.Release(qid)
	}
}

// WithLock acquires qid's lock, runs op if acquired, and releases on
// every exit path. held reports whether op actually ran; when held is
// false the caller treats this as a normal "skipped: locked" outcome,
// not an error. Any error returned by op propagates after release.
func (m *Manager) WithLock(qid string, staleThreshold time.Duration, op func() error) (held bool, err error) {
	acquireErr := m.Acquire(qid, staleThreshold)
	if acquireErr != nil {
		if errors.Is(acquireErr, ErrLocked) {
			return false, nil
		}
		return false, acquireErr
	}
	defer func() {
		_ = m.Release(qid)
	}()
	return true, op()
}
