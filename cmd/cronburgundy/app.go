// Command cronburgundy is the CLI surface over the execution core
//: run, check-missed, list, sync, clear, status, pause/
// unpause, logs. Grounded in cmd/provisr layout (one
// cobra.Command per verb, a shared struct wiring the core's pieces
// together in main()).
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cronburgundy/cronburgundy/internal/appconfig"
	"github.com/cronburgundy/cronburgundy/internal/history"
	"github.com/cronburgundy/cronburgundy/internal/launchd"
	"github.com/cronburgundy/cronburgundy/internal/lock"
	"github.com/cronburgundy/cronburgundy/internal/metricspush"
	"github.com/cronburgundy/cronburgundy/internal/registry"
	"github.com/cronburgundy/cronburgundy/internal/rlog"
	"github.com/cronburgundy/cronburgundy/internal/runner"
	"github.com/cronburgundy/cronburgundy/internal/state"
)

// app bundles every collaborator a command needs. Built once in main()
// from the resolved config, then passed to each subcommand's RunE.
type app struct {
	cfg appconfig.Config
	state *state.Store
	locks *lock.Manager
	dirs rlog.Dirs
	runnerLg *rlog.Runner
	registry *registry.Registry
	runner *runner.Runner
	launchd *launchd.Adapter
	hist *history.Sink
}

func newApp(configPath string) (*app, error) {
	cfg, err := appconfig.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	st := state.New(cfg.StateDir)
	locks := lock.NewManager(filepath.Join(cfg.StateDir, "locks"))
	dirs := rlog.NewDirs(cfg.StateDir)
	dirs.MaxSizeMB = cfg.Log.MaxSizeMB
	dirs.MaxBackups = cfg.Log.MaxBackups

	runnerLg, err := rlog.NewRunner(dirs)
	if err != nil {
		return nil, fmt.Errorf("open runner log: %w", err)
	}

	reg, err := registry.Open(filepath.Join(cfg.StateDir, "registry.json"))
	if err != nil {
		_ = runnerLg.Close()
		return nil, fmt.Errorf("open registry: %w", err)
	}

	var hist *history.Sink
	var recorder runner.Recorder
	if cfg.HistoryDSN != "" {
		hist, err = history.Open(cfg.HistoryDSN)
		if err != nil {
			_ = runnerLg.Close()
			return nil, fmt.Errorf("open history sink: %w", err)
		}
		recorder = hist
	}

	var metrics runner.MetricsReporter
	if cfg.MetricsPushURL != "" {
		job := cfg.MetricsPushJob
		if job == "" {
			job = "cronburgundy"
		}
		metrics = metricspush.New(cfg.MetricsPushURL, job)
	}

	run := runner.New(st, locks, dirs, runnerLg, recorder, metrics)

	cliPath, err := os.Executable()
	if err != nil {
		cliPath = "cronburgundy"
	}
	adapter := &launchd.Adapter{
		ConfigDir: filepath.Join(os.Getenv("HOME"), "Library", "LaunchAgents"),
		CLIPath: cliPath,
		RuntimeDir: filepath.Dir(cliPath),
		RunnerLogPath: dirs.RunnerLog,
		RunnerErrLogPath: dirs.RunnerLog,
		State: st,
		Locks: locks,
	}

	return &app{
		cfg: cfg, state: st, locks: locks, dirs: dirs,
		runnerLg: runnerLg, registry: reg, runner: run,
		launchd: adapter, hist: hist,
	}, nil
}

func (a *app) Close() {
	_ = a.runnerLg.Close()
	if a.hist != nil {
		_ = a.hist.Close()
	}
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
