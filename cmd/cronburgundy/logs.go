package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// newLogsCmd implements "logs view|list|clear|prune" family.
// It is a thin wrapper over the per-job rotated log files the Runner
// already owns under <state-dir>/jobs — notes this reads
// that existing layout rather than introducing new state.
func newLogsCmd(configPath *string) *cobra.Command {
	root := &cobra.Command{
		Use: "logs",
		Short: "Inspect per-job rotated log files",
	}
	root.AddCommand(
		newLogsViewCmd(configPath),
		newLogsListCmd(configPath),
		newLogsClearCmd(configPath),
		newLogsPruneCmd(configPath),
		newLogsHistoryCmd(configPath),
	)
	return root
}

func newLogsViewCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use: "view <qid>",
		Short: "Print a job's current log file",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			body, err := os.ReadFile(a.dirs.JobLogPath(args[0]))
			if err != nil {
				return fmt.Errorf("read log for %s: %w", args[0], err)
			}
			_, _ = cmd.OutOrStdout().Write(body)
			return nil
		},
	}
}

func newLogsListCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use: "list",
		Short: "List per-job log files",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			entries, err := os.ReadDir(a.dirs.JobsDir)
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), e.Name())
			}
			return nil
		},
	}
}

func newLogsClearCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use: "clear <qid>",
		Short: "Delete a job's log files (current and rotations)",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			base := a.dirs.JobLogPath(args[0])
			paths := []string{base, base + ".1", base + ".2"}
			// lumberjack names rotated backups "<stem>-<timestamp>.log".
			stem := strings.TrimSuffix(base, ".log")
			backups, _ := filepath.Glob(stem + "-*.log")
			for _, b := range backups {
				ts := strings.TrimSuffix(strings.TrimPrefix(b, stem+"-"), ".log")
				if _, err := time.Parse("2006-01-02T15-04-05.000", ts); err == nil {
					paths = append(paths, b)
				}
			}
			for _, path := range paths {
				if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
					return err
				}
			}
			return nil
		},
	}
}

func newLogsPruneCmd(configPath *string) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use: "prune",
		Short: "Delete log files older than --older-than",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			entries, err := os.ReadDir(a.dirs.JobsDir)
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}
			cutoff := time.Now().Add(-olderThan)
			for _, e := range entries {
				if e.IsDir() || !strings.HasSuffix(e.Name(), ".log") && !strings.Contains(e.Name(), ".log.") {
					continue
				}
				info, err := e.Info()
				if err != nil {
					continue
				}
				if info.ModTime().Before(cutoff) {
					_ = os.Remove(filepath.Join(a.dirs.JobsDir, e.Name()))
				}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "delete log files whose mtime is older than this")
	return cmd
}

func newLogsHistoryCmd(configPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use: "history <qid>",
		Short: "Show recorded run outcomes for a job (requires a configured history sink)",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.hist == nil {
				return fmt.Errorf("no history sink configured (set history_dsn)")
			}
			runs, err := a.hist.Recent(args[0], limit)
			if err != nil {
				return fmt.Errorf("read run history for %s: %w", args[0], err)
			}
			for _, r := range runs {
				line := fmt.Sprintf("%s\t%s\t%s", r.Started.Format(time.RFC3339), r.Outcome, r.Finished.Sub(r.Started))
				if r.Error != "" {
					line += "\t" + r.Error
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show")
	return cmd
}
