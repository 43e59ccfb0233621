package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cronburgundy/cronburgundy/internal/appconfig"
	"github.com/cronburgundy/cronburgundy/internal/registry"
	"github.com/cronburgundy/cronburgundy/internal/runner"
)

func jobRefs(sources []registry.JobSource) []runner.JobRef {
	var out []runner.JobRef
	for _, job := range registry.AllJobs(sources) {
		qid := registry.QualifyJobID(job.ID, job.Namespace)
		out = append(out, runner.JobRef{Qid: qid, Job: job})
	}
	return out
}

func main() {
	var configPath string

	root := &cobra.Command{
		Use: "cronburgundy",
		Short: "Host-side cron-style job manager backed by launchd",
		SilenceUsage: true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", appconfig.DefaultConfigPath(), "path to config.toml")

	root.AddCommand(
		newRunCmd(&configPath),
		newCheckMissedCmd(&configPath),
		newListCmd(&configPath),
		newSyncCmd(&configPath),
		newClearCmd(&configPath),
		newStatusCmd(&configPath),
		newPauseCmd(&configPath),
		newUnpauseCmd(&configPath),
		newLogsCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
