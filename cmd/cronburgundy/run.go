package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cronburgundy/cronburgundy/internal/registry"
)

func newRunCmd(configPath *string) *cobra.Command {
	var scheduled bool
	cmd := &cobra.Command{
		Use: "run <qid>",
		Short: "Run a single job now",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			qid := args[0]

			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			sources := a.registry.LoadAllJobs()
			job, ok := registry.FindJob(sources, qid)
			if !ok {
				return fmt.Errorf("job not found: %s", qid)
			}
			resolvedQid := registry.QualifyJobID(job.ID, job.Namespace)

			outcome, err := a.runner.RunJobNow(resolvedQid, job, scheduled)
			if err != nil {
				return err
			}
			fmt.Println(outcome)
			return nil
		},
	}
	cmd.Flags().BoolVar(&scheduled, "scheduled", false, "mark this invocation as native-scheduler-triggered")
	return cmd
}
