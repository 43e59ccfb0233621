package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPauseCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use: "pause <qid|all>",
		Short: "Pause a job, or all jobs",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.state.Pause(args[0]); err != nil {
				return err
			}
			fmt.Println("paused")
			return nil
		},
	}
}

func newUnpauseCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use: "unpause <qid|all>",
		Short: "Resume a job, or all jobs",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.state.Resume(args[0]); err != nil {
				return err
			}
			fmt.Println("resumed")
			return nil
		},
	}
}
