// Package rlog provides the Runner's rotated log surfaces: the global
// runner log and per-job logs, each capped at 20MB with two rotations
// retained. Grounded in internal/logger.Config/Writers, swapping the
// stdout/stderr pipe split for a single named surface per qualified id.
package rlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeMB = 20
	defaultMaxBackups = 2
)

// Dirs resolves the log-bearing paths under the state directory.
// MaxSizeMB/MaxBackups default to a 20MB/two-rotations budget but may
// be overridden from config.toml.
type Dirs struct {
	JobsDir string // <state-dir>/jobs
	RunnerLog string // <state-dir>/runner.log
	MaxSizeMB int
	MaxBackups int
}

// NewDirs returns the log directory layout rooted at stateDir with the
// default rotation budget.
func NewDirs(stateDir string) Dirs {
	return Dirs{
		JobsDir: filepath.Join(stateDir, "jobs"),
		RunnerLog: filepath.Join(stateDir, "runner.log"),
		MaxSizeMB: defaultMaxSizeMB,
		MaxBackups: defaultMaxBackups,
	}
}

// JobLogPath returns the rotated log file path for qid, replacing "/"
// with a filesystem-safe sentinel the same way the lock manager does.
func (d Dirs) JobLogPath(qid string) string {
	safe := strings.ReplaceAll(qid, "/", "__ns__")
	return filepath.Join(d.JobsDir, safe+".log")
}

// jobWriter returns a lumberjack-backed rotating writer for qid's log.
func (d Dirs) jobWriter(qid string) io.WriteCloser {
	return &lj.Logger{
		Filename: d.JobLogPath(qid),
		MaxSize: d.rotationSizeMB(),
		MaxBackups: d.rotationBackups(),
		Compress: false,
	}
}

// runnerWriter returns the rotating writer for the global runner log.
func (d Dirs) runnerWriter() io.WriteCloser {
	return &lj.Logger{
		Filename: d.RunnerLog,
		MaxSize: d.rotationSizeMB(),
		MaxBackups: d.rotationBackups(),
		Compress: false,
	}
}

func (d Dirs) rotationSizeMB() int {
	if d.MaxSizeMB > 0 {
		return d.MaxSizeMB
	}
	return defaultMaxSizeMB
}

func (d Dirs) rotationBackups() int {
	if d.MaxBackups > 0 {
		return d.MaxBackups
	}
	return defaultMaxBackups
}

// Runner is the global runner-log logger: one timestamped line per event.
type Runner struct {
	w io.WriteCloser
	logger *slog.Logger
}

// NewRunner opens the global runner log.
func NewRunner(dirs Dirs) (*Runner, error) {
	if err := os.MkdirAll(filepath.Dir(dirs.RunnerLog), 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	w := dirs.runnerWriter()
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	return &Runner{w: w, logger: logger}, nil
}

// Event logs one runner-log line identifying itself by qualified id.
func (r *Runner) Event(qid, msg string, args ...any) {
	r.logger.Info(msg, append([]any{"qid", qid}, args...)...)
}

// Close flushes and closes the runner log.
func (r *Runner) Close() error { return r.w.Close() }

// JobLog is a per-job rotated log.
type JobLog struct {
	w io.WriteCloser
	logger *slog.Logger
}

// OpenJobLog opens qid's rotated log file for append.
func OpenJobLog(dirs Dirs, qid string) (*JobLog, error) {
	if err := os.MkdirAll(dirs.JobsDir, 0o700); err != nil {
		return nil, fmt.Errorf("create jobs dir: %w", err)
	}
	w := dirs.jobWriter(qid)
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	return &JobLog{w: w, logger: logger}, nil
}

// Info writes a timestamped progress line.
func (j *JobLog) Info(msg string, args ...any) { j.logger.Info(msg, args...) }

// Error writes a timestamped failure line.
func (j *JobLog) Error(msg string, args ...any) { j.logger.Error(msg, args...) }

// Writer exposes the underlying rotating writer, used to redirect the
// user operation's stdout/stderr for the duration of the run.
func (j *JobLog) Writer() io.Writer { return j.w }

// Close flushes and closes the per-job log.
func (j *JobLog) Close() error { return j.w.Close() }
