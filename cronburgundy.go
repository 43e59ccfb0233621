// Package cronburgundy re-exports the execution core's public types for
// external embedding, mirroring provisr.go's own root-package facade:
// thin aliases plus constructor functions over the internal packages
// that do the actual work.
package cronburgundy

import (
	"github.com/cronburgundy/cronburgundy/internal/history"
	"github.com/cronburgundy/cronburgundy/internal/jobspec"
	"github.com/cronburgundy/cronburgundy/internal/launchd"
	"github.com/cronburgundy/cronburgundy/internal/lock"
	"github.com/cronburgundy/cronburgundy/internal/metricspush"
	"github.com/cronburgundy/cronburgundy/internal/registry"
	"github.com/cronburgundy/cronburgundy/internal/rlog"
	"github.com/cronburgundy/cronburgundy/internal/runner"
	"github.com/cronburgundy/cronburgundy/internal/schedule"
	"github.com/cronburgundy/cronburgundy/internal/state"
)

// Job is a single job definition loaded from a job source file.
type Job = jobspec.Job

// Outcome is the five-way runner result (ran/skipped/disabled/paused/failed).
type Outcome = runner.Outcome

// JobRef pairs a qualified id with its loaded definition.
type JobRef = runner.JobRef

// Result is runAllDue/checkMissed's five-way partition of its input.
type Result = runner.Result

// Store is the state store.
type Store = state.Store

// NewStore opens the state store rooted at dir.
func NewStore(dir string) *Store { return state.New(dir) }

// LockManager is the per-job lock manager.
type LockManager = lock.Manager

// NewLockManager opens the lock manager rooted at dir.
func NewLockManager(dir string) *LockManager { return lock.NewManager(dir) }

// Registry is the job-source registry.
type Registry = registry.Registry

// OpenRegistry loads (or initializes) the registry file at path.
func OpenRegistry(path string) (*Registry, error) { return registry.Open(path) }

// Runner executes jobs.
type Runner = runner.Runner

// NewRunner builds a Runner from its collaborators. recorder and metrics
// may be nil.
func NewRunner(st *Store, locks *LockManager, dirs rlog.Dirs, runnerLog *rlog.Runner, recorder runner.Recorder, metrics runner.MetricsReporter) *Runner {
	return runner.New(st, locks, dirs, runnerLog, recorder, metrics)
}

// LaunchdAdapter translates schedules into launchd plist configs.
type LaunchdAdapter = launchd.Adapter

// HistorySink is the optional SQLite run-history sink.
type HistorySink = history.Sink

// OpenHistory opens a run-history sink at dsn.
func OpenHistory(dsn string) (*HistorySink, error) { return history.Open(dsn) }

// MetricsReporter is the optional Prometheus Pushgateway reporter.
type MetricsReporter = metricspush.Reporter

// NewMetricsReporter builds a Pushgateway reporter targeting url under
// Pushgateway job name job.
func NewMetricsReporter(url, job string) *MetricsReporter { return metricspush.New(url, job) }

// NormalizeSchedule converts a human phrase or raw five-field expression
// into canonical cron form.
func NormalizeSchedule(raw string) (string, error) { return schedule.Normalize(raw) }

// QualifyJobID and ParseQualifiedID implement the namespace qualification rule.
func QualifyJobID(id, namespace string) string { return registry.QualifyJobID(id, namespace) }

func ParseQualifiedID(qid string) (namespace, id string) { return registry.ParseQualifiedID(qid) }
