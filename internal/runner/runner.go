// Package runner implements the orchestration of a single invocation —
// gate, lock, execute, persist, report — across runJobNow, runAllDue,
// and checkMissed.
package runner

import (
	"fmt"
	"time"

	"github.com/cronburgundy/cronburgundy/internal/jobspec"
	"github.com/cronburgundy/cronburgundy/internal/lock"
	"github.com/cronburgundy/cronburgundy/internal/rlog"
	"github.com/cronburgundy/cronburgundy/internal/schedule"
	"github.com/cronburgundy/cronburgundy/internal/state"
)

// Outcome is the five-way sum type an invocation resolves to:
// ran / skipped / disabled / paused / failed.
type Outcome string

const (
	Ran Outcome = "ran"
	Skipped Outcome = "skipped"
	Disabled Outcome = "disabled"
	Paused Outcome = "paused"
	Failed Outcome = "failed"
)

// JobRef pairs a qualified id with its loaded definition, the unit the
// Runner's batch operations iterate over.
type JobRef struct {
	Qid string
	Job jobspec.Job
}

// Recorder persists a completed invocation's outcome to the optional
// run-history sink (internal/history). A nil Recorder is a no-op.
type Recorder interface {
	Record(qid string, outcome Outcome, started, finished time.Time, errText string)
}

// MetricsReporter pushes a completed invocation's outcome to the
// optional Prometheus Pushgateway sink (internal/metricspush). A nil
// MetricsReporter is a no-op.
type MetricsReporter interface {
	Report(qid string, outcome Outcome, duration time.Duration)
}

// Runner holds every collaborator an invocation needs.
type Runner struct {
	State *state.Store
	Locks *lock.Manager
	Dirs rlog.Dirs
	RunnerLog *rlog.Runner
	Recorder Recorder
	Metrics MetricsReporter
}

// New constructs a Runner. recorder and metrics may be nil.
func New(st *state.Store, locks *lock.Manager, dirs rlog.Dirs, runnerLog *rlog.Runner, recorder Recorder, metrics MetricsReporter) *Runner {
	return &Runner{State: st, Locks: locks, Dirs: dirs, RunnerLog: runnerLog, Recorder: recorder, Metrics: metrics}
}

// staleThresholdFor applies the fixed staleness policy: 3x
// interval (min 30s) for interval jobs, 1h for cron jobs.
func staleThresholdFor(job jobspec.Job) time.Duration {
	if job.HasSchedule() {
		return lock.StaleThresholdForCron
	}
	return lock.StaleThresholdForInterval(job.Interval())
}

// RunJobNow implements runJobNow(job, {scheduled}).
// A refused lock or a paused-and-scheduled job are normal outcomes
// (Skipped/Paused, nil error), not failures; only a propagated error
// from the user operation or an unexpected filesystem error returns a
// non-nil error alongside Failed.
func (r *Runner) RunJobNow(qid string, job jobspec.Job, scheduled bool) (Outcome, error) {
	if scheduled {
		paused, err := r.State.IsPaused(qid)
		if err != nil {
			return Failed, err
		}
		if paused {
			r.RunnerLog.Event(qid, "skipped: paused")
			return Paused, nil
		}
	}

	threshold := staleThresholdFor(job)
	var execErr error
	held, err := r.Locks.WithLock(qid, threshold, func() error {
		execErr = r.execute(qid, job, scheduled)
		return execErr
	})
	if err != nil && !held {
		// Acquire itself failed for a reason other than "refused" (e.g. the
		// locks directory could not be created): this is fatal to the call.
		return Failed, err
	}
	if !held {
		r.RunnerLog.Event(qid, "skipped: locked")
		return Skipped, nil
	}
	if execErr != nil {
		return Failed, execErr
	}
	return Ran, nil
}

// execute runs the job's command, capturing stdio into its per-job log,
// and persists state on success only. It never acquires or releases the
// lock; the caller does that.
func (r *Runner) execute(qid string, job jobspec.Job, scheduled bool) error {
	lastRun, hasLastRun, err := r.State.GetLastRun(qid)
	if err != nil {
		return err
	}

	jobLog, err := rlog.OpenJobLog(r.Dirs, qid)
	if err != nil {
		return err
	}
	defer jobLog.Close()

	env := []string{
		"CRONB_JOB_ID=" + job.ID,
		"CRONB_NAMESPACE=" + job.Namespace,
		fmt.Sprintf("CRONB_SCHEDULED=%v", scheduled),
	}
	if hasLastRun {
		env = append(env, "CRONB_LAST_RUN="+lastRun.Format(time.RFC3339))
	} else {
		env = append(env, "CRONB_LAST_RUN=")
	}

	workDir := job.WorkDir
	if workDir == "" {
		workDir = job.SourceDir()
	}
	cmd := buildCommand(job.Command, workDir, append(env, job.Env...))
	cmd.Stdout = jobLog.Writer()
	cmd.Stderr = jobLog.Writer()

	jobLog.Info("starting", "qid", qid, "scheduled", scheduled)
	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	if runErr != nil {
		jobLog.Error("failed", "qid", qid, "error", runErr.Error(), "duration_ms", duration.Milliseconds())
		r.RunnerLog.Event(qid, "failed", "error", runErr.Error())
		r.record(qid, Failed, start, duration, runErr.Error())
		return fmt.Errorf("job %s: %w", qid, runErr)
	}

	var interval *time.Duration
	if scheduled && job.IntervalMs != 0 {
		iv := job.Interval()
		interval = &iv
	}
	if err := r.State.MarkRun(qid, interval); err != nil {
		return err
	}

	jobLog.Info("completed", "duration_ms", duration.Milliseconds())
	r.RunnerLog.Event(qid, fmt.Sprintf("completed in %dms", duration.Milliseconds()))
	r.record(qid, Ran, start, duration, "")
	return nil
}

func (r *Runner) record(qid string, outcome Outcome, started time.Time, duration time.Duration, errText string) {
	if r.Recorder != nil {
		r.Recorder.Record(qid, outcome, started, started.Add(duration), errText)
	}
	if r.Metrics != nil {
		r.Metrics.Report(qid, outcome, duration)
	}
}

// Result is runAllDue's output: five disjoint lists of qualified ids.
type Result struct {
	Ran []string
	Skipped []string
	Disabled []string
	Paused []string
	Failed []string
}

// RunAllDue implements runAllDue(jobs).
func (r *Runner) RunAllDue(jobs []JobRef) (Result, error) {
	var res Result
	for _, jr := range jobs {
		qid, job := jr.Qid, jr.Job

		if !job.IsEnabled() {
			res.Disabled = append(res.Disabled, qid)
			continue
		}
		paused, err := r.State.IsPaused(qid)
		if err != nil {
			return res, err
		}
		if paused {
			res.Paused = append(res.Paused, qid)
			continue
		}
		lastRun, hasLastRun, err := r.State.GetLastRun(qid)
		if err != nil {
			return res, err
		}
		var lastRunPtr *time.Time
		if hasLastRun {
			lastRunPtr = &lastRun
		}
		due, err := schedule.ShouldRun(job, lastRunPtr)
		if err != nil {
			return res, err
		}
		if !due {
			res.Skipped = append(res.Skipped, qid)
			continue
		}

		threshold := staleThresholdFor(job)
		var execErr error
		held, err := r.Locks.WithLock(qid, threshold, func() error {
			execErr = r.execute(qid, job, true)
			return execErr
		})
		if err != nil && !held {
			return res, err
		}
		if !held {
			res.Skipped = append(res.Skipped, qid)
			continue
		}
		if execErr != nil {
			res.Failed = append(res.Failed, qid)
			continue
		}
		res.Ran = append(res.Ran, qid)
	}
	return res, nil
}

// CheckMissed implements checkMissed(jobs): the
// wake-check entry point invoked on login/wake by the wake trigger.
func (r *Runner) CheckMissed(jobs []JobRef) (Result, error) {
	var res Result
	for _, jr := range jobs {
		qid, job := jr.Qid, jr.Job

		if !job.IsEnabled() {
			continue
		}
		paused, err := r.State.IsPaused(qid)
		if err != nil {
			return res, err
		}
		if paused {
			continue
		}

		lastRun, hasLastRun, err := r.State.GetLastRun(qid)
		if err != nil {
			return res, err
		}
		var lastRunPtr *time.Time
		if hasLastRun {
			lastRunPtr = &lastRun
		}
		due, err := schedule.ShouldRun(job, lastRunPtr)
		if err != nil {
			return res, err
		}

		threshold := staleThresholdFor(job)
		var execErr error
		held, err := r.Locks.WithLock(qid, threshold, func() error {
			if !due {
				return nil
			}
			execErr = r.execute(qid, job, true)
			return execErr
		})
		if err != nil && !held {
			return res, err
		}
		if !held {
			res.Skipped = append(res.Skipped, qid)
			continue
		}
		if !due {
			res.Skipped = append(res.Skipped, qid)
			continue
		}
		if execErr != nil {
			res.Failed = append(res.Failed, qid)
			continue
		}
		res.Ran = append(res.Ran, qid)
	}
	return res, nil
}
