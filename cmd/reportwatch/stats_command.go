package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reportwatch/internal/ipc"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show today's execution statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				stats, err := client.Stats()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, stats)
				}
				renderStats(cmd, stats)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderStats(cmd *cobra.Command, stats *ipc.StatsResponse) {
	stdout := cmd.OutOrStdout()
	p := newPanel(stdout)
	p.section("Today " + stats.CurrentDay.Format(time.DateOnly))
	p.row("State", armedTone(stats.Running), stats.State)
	p.row("Files processed", toneNeutral, fmt.Sprintf("%d", stats.ProcessedFilesToday))
	p.row("Schedules run", toneNeutral, fmt.Sprintf("%d of %d", stats.ScheduledExecutionsToday, len(stats.ScheduledTimes)))
	p.row("Next execution", toneNeutral, formatClock(stats.NextExecution))
	if stats.NextRetry != nil {
		p.row("Next retry", toneAttention, formatClock(stats.NextRetry))
	}
	policy := "every schedule"
	switch {
	case stats.ProcessOncePerDay:
		policy = "once per day"
	case stats.ProcessOnAllSchedules:
		policy = "all schedules"
	}
	p.row("Policy", toneNeutral, policy)
	p.row("Manual", toneNeutral, fmt.Sprintf("enabled=%s multiple=%s", yesNo(stats.ManualEnabled), yesNo(stats.AllowMultipleManual)))

	if len(stats.ScheduledTimes) == 0 {
		return
	}
	lastRun := make(map[string]time.Time, len(stats.ExecutionTimes))
	for _, run := range stats.ExecutionTimes {
		lastRun[run.Schedule] = run.LastRun
	}
	rows := make([][]string, 0, len(stats.ScheduledTimes))
	for _, clock := range stats.ScheduledTimes {
		ran := "-"
		if at, ok := lastRun[clock]; ok {
			ran = at.Local().Format(time.TimeOnly)
		}
		rows = append(rows, []string{clock, ran})
	}
	fmt.Fprintln(stdout)
	fmt.Fprint(stdout, renderTable([]string{"Schedule", "Last run"}, rows, nil))
}
