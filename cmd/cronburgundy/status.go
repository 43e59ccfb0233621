package main

import (
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/cronburgundy/cronburgundy/internal/launchd"
)

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use: "status",
		Short: "List installed native-scheduler configurations",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			names, err := a.launchd.ListInstalledPlists()
			if err != nil {
				return err
			}
			sort.Strings(names)

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Plist", "Namespace", "Id"})
			table.SetBorder(false)
			for _, name := range names {
				ns, id, ok := launchd.ParsePlistFilename(name)
				if !ok {
					continue
				}
				if ns == "" {
					ns = "-"
				}
				table.Append([]string{name, ns, id})
			}
			table.Render()
			return nil
		},
	}
}
