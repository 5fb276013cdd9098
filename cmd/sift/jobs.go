package main

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/harunnryd/sift/internal/scheduler"
	"github.com/harunnryd/sift/internal/store"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Show scheduled job history",
	Long:  `Display the schedule, last outcome and next run of every job the server has recorded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir := ""
		if cfg != nil {
			dataDir = cfg.Mail.DataDir
		}
		dir, err := store.ResolveDataDir(dataDir)
		if err != nil {
			return fmt.Errorf("failed to resolve data dir: %w", err)
		}

		var list scheduler.JobList
		found, err := store.ReadJSON(store.SchedulerPath(dir), &list)
		if err != nil {
			return fmt.Errorf("failed to read job history: %w", err)
		}

		out := cmd.OutOrStdout()
		if !found || len(list.Jobs) == 0 {
			fmt.Fprintln(out, "No jobs recorded.")
			fmt.Fprintln(out, "\nJobs are scheduled by 'sift serve' when mail is enabled.")
			return nil
		}

		names := make([]string, 0, len(list.Jobs))
		for name := range list.Jobs {
			names = append(names, name)
		}
		slices.Sort(names)

		rows := make([][]string, 0, len(names))
		for _, name := range names {
			j := list.Jobs[name]
			rows = append(rows, []string{
				name,
				j.Schedule,
				string(j.Status),
				strconv.Itoa(j.Runs),
				strconv.Itoa(j.Failures),
				strconv.Itoa(j.Skipped),
				formatTime(j.LastRun),
				formatTime(j.NextRun),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Name", "Schedule", "Status", "Runs", "Failures", "Skipped", "Last Run", "Next Run"},
			rows,
		))

		fmt.Fprintf(out, "\nTotal: %d job(s)\n", len(names))
		return nil
	},
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}
