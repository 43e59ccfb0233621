package main

import (
	"fmt"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/cronburgundy/cronburgundy/internal/registry"
)

func newListCmd(configPath *string) *cobra.Command {
	var namespace string
	cmd := &cobra.Command{
		Use: "list",
		Short: "List registered jobs and their current state (no mutation)",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			sources := a.registry.LoadAllJobs()
			var rows [][]string
			for _, src := range sources {
				if src.Err != nil {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %v\n", src.File, src.Err)
					continue
				}
				if namespace != "" && src.Namespace != namespace {
					continue
				}
				for _, job := range src.Jobs {
					qid := registry.QualifyJobID(job.ID, job.Namespace)
					paused, _ := a.state.IsPaused(qid)
					lastRun, hasLastRun, _ := a.state.GetLastRun(qid)
					last := "-"
					if hasLastRun {
						last = lastRun.Format("2006-01-02T15:04:05Z07:00")
					}
					rows = append(rows, []string{
						qid,
						fmt.Sprintf("%v", job.IsEnabled()),
						fmt.Sprintf("%v", paused),
						last,
					})
				}
			}
			sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Qid", "Enabled", "Paused", "Last Run"})
			table.SetBorder(false)
			table.SetAutoWrapText(false)
			table.AppendBulk(rows)
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&namespace, "namespace", "", "restrict to jobs loaded under this namespace")
	return cmd
}
