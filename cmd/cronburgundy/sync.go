package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cronburgundy/cronburgundy/internal/launchd"
	"github.com/cronburgundy/cronburgundy/internal/registry"
)

func newSyncCmd(configPath *string) *cobra.Command {
	var namespace string
	cmd := &cobra.Command{
		Use: "sync [path]",
		Short: "Register a job source file, then sync native-scheduler configs",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 1 {
				outcome := a.registry.RegisterFile(args[0], namespace)
				if err := a.registry.Save(); err != nil {
					return fmt.Errorf("save registry: %w", err)
				}
				fmt.Printf("register: %s\n", outcome)
			}

			sources := a.registry.LoadAllJobs()
			var entries []launchd.SyncEntry
			for _, job := range registry.AllJobs(sources) {
				if namespace != "" && job.Namespace != namespace {
					continue
				}
				qid := registry.QualifyJobID(job.ID, job.Namespace)
				entries = append(entries, launchd.SyncEntry{Qid: qid, Job: job})
			}

			summary, err := a.launchd.Sync(namespace, entries)
			if err != nil {
				return err
			}
			if _, err := a.launchd.InstallWake(); err != nil {
				return fmt.Errorf("install wake trigger: %w", err)
			}

			fmt.Printf("installed: %v\nunchanged: %v\ndisabled: %v\norphaned: %v\n",
				summary.Installed, summary.Unchanged, summary.Disabled, summary.Orphaned)
			return nil
		},
	}
	cmd.Flags().StringVar(&namespace, "namespace", "", "namespace to assign the registered file, and to scope the sync")
	return cmd
}
