package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cronburgundy/cronburgundy/internal/registry"
)

func newClearCmd(configPath *string) *cobra.Command {
	var namespace string
	cmd := &cobra.Command{
		Use: "clear [path|all]",
		Short: "Uninstall native-scheduler configs and unregister a source file",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]

			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			sources := a.registry.LoadAllJobs()
			for _, src := range sources {
				if target != "all" && src.File != target {
					continue
				}
				if namespace != "" && src.Namespace != namespace {
					continue
				}
				for _, job := range src.Jobs {
					qid := registry.QualifyJobID(job.ID, job.Namespace)
					if err := a.launchd.Uninstall(qid); err != nil {
						return fmt.Errorf("uninstall %s: %w", qid, err)
					}
				}
				if target != "all" {
					a.registry.UnregisterFile(src.File)
				}
			}
			if target == "all" {
				for _, src := range sources {
					if namespace != "" && src.Namespace != namespace {
						continue
					}
					a.registry.UnregisterFile(src.File)
				}
				if namespace == "" {
					if err := a.launchd.UninstallWake(); err != nil {
						return fmt.Errorf("uninstall wake trigger: %w", err)
					}
				}
			}
			if err := a.registry.Save(); err != nil {
				return fmt.Errorf("save registry: %w", err)
			}
			fmt.Println("cleared")
			return nil
		},
	}
	cmd.Flags().StringVar(&namespace, "namespace", "", "restrict to a namespace")
	return cmd
}
