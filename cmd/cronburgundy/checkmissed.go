package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckMissedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use: "check-missed",
		Short: "Catch up every registered job whose last run is overdue",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			sources := a.registry.LoadAllJobs()
			res, err := a.runner.CheckMissed(jobRefs(sources))
			if err != nil {
				return err
			}
			fmt.Printf("ran: %v\nskipped: %v\nfailed: %v\n", res.Ran, res.Skipped, res.Failed)
			return nil
		},
	}
}
