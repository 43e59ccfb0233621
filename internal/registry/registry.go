// Package registry implements the Registry & Job Loader:
// the ordered map of job-source-file paths to namespaces, job loading,
// and qualified-id resolution.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/cronburgundy/cronburgundy/internal/jobconfig"
	"github.com/cronburgundy/cronburgundy/internal/jobspec"
)

// Entry is one registry record.
type Entry struct {
	Path string `json:"path"`
	Namespace string `json:"namespace,omitempty"`
}

// Outcome values for RegisterFile/UnregisterFile.
type Outcome int

const (
	Added Outcome = iota
	Updated
	Exists
	Removed
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Added:
		return "added"
	case Updated:
		return "updated"
	case Exists:
		return "exists"
	case Removed:
		return "removed"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Registry is the ordered, unique-by-path list of registered job source
// files, persisted as a single JSON document. It is mutated only by
// explicit CLI commands, so unlike the state store no cross-process
// lock guards it.
type Registry struct {
	path string
	entries []Entry
}

// Open loads the registry file at path, migrating the legacy bare-path-list
// format in memory if found. A missing file yields an empty registry.
// The migrated shape is written back on the next Save, not immediately —
// a one-shot migration on first read.
func Open(path string) (*Registry, error) {
	r := &Registry{path: path}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	if len(b) == 0 {
		return r, nil
	}

	var entries []Entry
	if err := json.Unmarshal(b, &entries); err == nil {
		r.entries = entries
		return r, nil
	}

	var legacy []string
	if err := json.Unmarshal(b, &legacy); err != nil {
		return nil, fmt.Errorf("parse registry %s: not a valid entry list or legacy path list: %w", path, err)
	}
	r.entries = make([]Entry, 0, len(legacy))
	for _, p := range legacy {
		r.entries = append(r.entries, Entry{Path: p})
	}
	return r, nil
}

// Save writes the registry back atomically (temp file + rename), the
// same discipline the state store uses for state.json — a registry write is a small,
// infrequent, single-writer operation, but atomicity is cheap insurance
// against a half-written file on a crash mid-save.
func (r *Registry) Save() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}
	b, err := json.MarshalIndent(r.entries, "", " ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}
	tmp := fmt.Sprintf("%s.%s.tmp", r.path, uuid.NewString())
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write registry temp file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename registry temp file: %w", err)
	}
	return nil
}

// Entries returns a copy of the registered entries, in registration order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// RegisterFile adds or updates a job source file registration. Idempotent:
// re-registering the same path with the same namespace reports Exists;
// with a different namespace reports Updated.
func (r *Registry) RegisterFile(path, namespace string) Outcome {
	abs := path
	if a, err := filepath.Abs(path); err == nil {
		abs = a
	}
	for i := range r.entries {
		if r.entries[i].Path == abs {
			if r.entries[i].Namespace == namespace {
				return Exists
			}
			r.entries[i].Namespace = namespace
			return Updated
		}
	}
	r.entries = append(r.entries, Entry{Path: abs, Namespace: namespace})
	return Added
}

// UnregisterFile removes a job source file registration.
func (r *Registry) UnregisterFile(path string) Outcome {
	abs := path
	if a, err := filepath.Abs(path); err == nil {
		abs = a
	}
	for i := range r.entries {
		if r.entries[i].Path == abs {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return Removed
		}
	}
	return NotFound
}

// JobSource is one loaded job source file.
type JobSource struct {
	File string
	Namespace string
	Jobs []jobspec.Job
	Err error
}

// LoadAllJobs loads every registered job source file. A file that fails
// to load contributes an entry with Err set rather than aborting the
// whole operation.
func (r *Registry) LoadAllJobs() []JobSource {
	out := make([]JobSource, 0, len(r.entries))
	for _, e := range r.entries {
		jobs, err := jobconfig.LoadJobFile(e.Path)
		src := JobSource{File: e.Path, Namespace: e.Namespace, Jobs: jobs, Err: err}
		if err == nil {
			for i := range src.Jobs {
				src.Jobs[i].SourceFile = e.Path
				src.Jobs[i].Namespace = e.Namespace
			}
		}
		out = append(out, src)
	}
	return out
}

// FindJob resolves a bare or qualified id against every loaded job source.
// Qualified lookup ("ns/id") requires an exact namespace match; bare
// lookup returns the first job whose bare id matches across all sources,
// in registration order.
func FindJob(sources []JobSource, id string) (jobspec.Job, bool) {
	namespace, bareID := ParseQualifiedID(id)
	if namespace != "" {
		for _, src := range sources {
			if src.Namespace != namespace {
				continue
			}
			for _, j := range src.Jobs {
				if j.ID == bareID {
					return j, true
				}
			}
		}
		return jobspec.Job{}, false
	}
	for _, src := range sources {
		for _, j := range src.Jobs {
			if j.ID == id {
				return j, true
			}
		}
	}
	return jobspec.Job{}, false
}

// AllJobs flattens every job from every loaded source, skipping sources
// that failed to load.
func AllJobs(sources []JobSource) []jobspec.Job {
	var out []jobspec.Job
	for _, src := range sources {
		if src.Err != nil {
			continue
		}
		out = append(out, src.Jobs...)
	}
	return out
}
