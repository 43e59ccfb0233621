// Package state implements the State Store: the single
// persistent mapping of qualified id to last-run/next-run timestamps and
// pause flags, atomically updated under a cross-process sibling lock.
// Grounded in cmd/provisr/session.go's HOME-dir JSON persistence and its
// temp-file+rename write discipline.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	// LockStaleMs is the age past which a state.lock file is considered
	// abandoned and safe to delete before retrying acquisition.
	LockStaleMs = 30_000
	// LockTimeoutMs is how long acquireLock retries before giving up.
	LockTimeoutMs = 10_000
	// lockRetryMs is the sleep between failed exclusive-create attempts.
	lockRetryMs = 50

	pausedAllKey = "_paused"
	nextRunSuffix = ":nextRun"
)

// ErrLockTimeout is returned when the sibling state lock could not be
// acquired within LockTimeoutMs. This is fatal to the call, never
// swallowed.
var ErrLockTimeout = errors.New("state: lock acquisition timed out")

// ErrCorruptState is returned when state.json exists but does not parse.
// A corrupt state file is a fatal error, never silently overwritten.
var ErrCorruptState = errors.New("state: corrupt state file")

// PauseStatus is the result of GetPauseStatus: either every job is
// paused, or a specific set of qualified ids is.
type PauseStatus struct {
	All bool
	Jobs map[string]bool
}

// Store is the on-disk state mapping plus its sibling lock file.
type Store struct {
	path string
	lockPath string
}

// New returns a Store rooted at dir (typically ~/.cron-burgundy), whose
// backing file is dir/state.json and whose lock file is dir/state.lock.
func New(dir string) *Store {
	return &Store{
		path: filepath.Join(dir, "state.json"),
		lockPath: filepath.Join(dir, "state.lock"),
	}
}

// Document is the raw on-disk shape: a flat string-keyed map. Values are
// either an ISO-8601 timestamp string (for "<qid>" and "<qid>:nextRun"
// entries) or the paused marker (bool true, or []string of qids). It is
// a plain alias so callers (tests among them) can build one with an
// ordinary map literal.
type Document = map[string]any

// GetState returns the current mapping, unlocked. A missing file yields
// an empty mapping rather than an error.
func (s *Store) GetState() (Document, error) {
	return s.readUnlocked()
}

func (s *Store) readUnlocked() (Document, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}
	if len(b) == 0 {
		return Document{}, nil
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptState, s.path, err)
	}
	return doc, nil
}

func (s *Store) writeAtomic(doc Document) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	b, err := json.MarshalIndent(doc, "", " ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	tmp := fmt.Sprintf("%s.%s.tmp", s.path, uuid.NewString())
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write state temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename state temp file: %w", err)
	}
	return nil
}

// UpdateState performs a locked read-modify-write: acquire the sibling
// lock, load the current Document, apply f, write the result back, and
// release the lock on every exit path.
func (s *Store) UpdateState(f func(Document) Document) error {
	if err := s.acquireLock(); err != nil {
		return err
	}
	defer s.releaseLock()

	doc, err := s.readUnlocked()
	if err != nil {
		return err
	}
	updated := f(doc)
	return s.writeAtomic(updated)
}

func (s *Store) acquireLock() error {
	deadline := time.Now().Add(time.Duration(LockTimeoutMs) * time.Millisecond)
	for {
		if err := os.MkdirAll(filepath.Dir(s.lockPath), 0o700); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
		if info, err := os.Stat(s.lockPath); err == nil {
			if time.Since(info.ModTime()) > time.Duration(LockStaleMs)*time.Millisecond {
				_ = os.Remove(s.lockPath)
			}
		}
		f, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_, _ = f.WriteString(fmt.Sprintf(`{"pid":%d}`, os.Getpid()))
			_ = f.Close()
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("acquire state lock: %w", err)
		}
		if time.Now().After(deadline) {
			return ErrLockTimeout
		}
		time.Sleep(time.Duration(lockRetryMs) * time.Millisecond)
	}
}

func (s *Store) releaseLock() {
	_ = os.Remove(s.lockPath)
}

// MarkRun records a successful run for qid. When interval is non-nil it
// also sets the "<qid>:nextRun" entry to now+interval.
func (s *Store) MarkRun(qid string, interval *time.Duration) error {
	return s.UpdateState(func(doc Document) Document {
		now := time.Now().UTC()
		doc[qid] = now.Format(time.RFC3339)
		if interval != nil {
			doc[qid+nextRunSuffix] = now.Add(*interval).Format(time.RFC3339)
		}
		return doc
	})
}

// GetLastRun returns the last recorded run time for qid, if any.
func (s *Store) GetLastRun(qid string) (time.Time, bool, error) {
	doc, err := s.readUnlocked()
	if err != nil {
		return time.Time{}, false, err
	}
	return parseTimestampEntry(doc, qid)
}

// GetNextScheduledRun returns the recorded "<qid>:nextRun" entry, if any.
func (s *Store) GetNextScheduledRun(qid string) (time.Time, bool, error) {
	doc, err := s.readUnlocked()
	if err != nil {
		return time.Time{}, false, err
	}
	return parseTimestampEntry(doc, qid+nextRunSuffix)
}

func parseTimestampEntry(doc Document, key string) (time.Time, bool, error) {
	raw, ok := doc[key]
	if !ok {
		return time.Time{}, false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, false, fmt.Errorf("%w: entry %q is not a timestamp", ErrCorruptState, key)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: entry %q: %v", ErrCorruptState, key, err)
	}
	return t, true, nil
}

// Pause pauses target, which is either a qualified id or the literal
// "all".
func (s *Store) Pause(target string) error {
	return s.UpdateState(func(doc Document) Document {
		if target == "all" {
			doc[pausedAllKey] = true
			return doc
		}
		if all, ok := doc[pausedAllKey].(bool); ok && all {
			// Already globally paused; adding a specific id is redundant
			// but harmless, matching "pausing a specific id adds to the
			// list unless _paused === true" read literally: true stays.
			return doc
		}
		jobs := pausedJobSet(doc)
		jobs[target] = struct{}{}
		doc[pausedAllKey] = setToSlice(jobs)
		return doc
	})
}

// Resume resumes target, which is either a qualified id or the literal
// "all". Resuming a specific id while globally paused is a documented
// no-op: the caller must resume "all" first.
func (s *Store) Resume(target string) error {
	return s.UpdateState(func(doc Document) Document {
		if target == "all" {
			delete(doc, pausedAllKey)
			return doc
		}
		if all, ok := doc[pausedAllKey].(bool); ok && all {
			return doc
		}
		jobs := pausedJobSet(doc)
		delete(jobs, target)
		if len(jobs) == 0 {
			delete(doc, pausedAllKey)
		} else {
			doc[pausedAllKey] = setToSlice(jobs)
		}
		return doc
	})
}

// IsPaused reports whether qid is currently paused, either directly or
// via the global pause flag.
func (s *Store) IsPaused(qid string) (bool, error) {
	doc, err := s.readUnlocked()
	if err != nil {
		return false, err
	}
	if all, ok := doc[pausedAllKey].(bool); ok && all {
		return true, nil
	}
	jobs := pausedJobSet(doc)
	_, paused := jobs[qid]
	return paused, nil
}

// GetPauseStatus returns the full pause state.
func (s *Store) GetPauseStatus() (PauseStatus, error) {
	doc, err := s.readUnlocked()
	if err != nil {
		return PauseStatus{}, err
	}
	if all, ok := doc[pausedAllKey].(bool); ok && all {
		return PauseStatus{All: true, Jobs: map[string]bool{}}, nil
	}
	jobs := pausedJobSet(doc)
	out := make(map[string]bool, len(jobs))
	for qid := range jobs {
		out[qid] = true
	}
	return PauseStatus{All: false, Jobs: out}, nil
}

func pausedJobSet(doc Document) map[string]struct{} {
	raw, ok := doc[pausedAllKey]
	if !ok {
		return map[string]struct{}{}
	}
	list, ok := raw.([]any)
	if !ok {
		return map[string]struct{}{}
	}
	out := make(map[string]struct{}, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out[s] = struct{}{}
		}
	}
	return out
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
