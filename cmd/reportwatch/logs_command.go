package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"reportwatch/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var level string
	var attempt string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			filter := logs.Filter{AttemptID: strings.TrimSpace(attempt)}
			if level = strings.TrimSpace(level); level != "" {
				var minLevel slog.Level
				if err := minLevel.UnmarshalText([]byte(level)); err != nil {
					return fmt.Errorf("invalid --level %q", level)
				}
				filter.MinLevel = minLevel
			}

			path := filepath.Join(cfg.Paths.LogDir, "reportwatch.log")
			stdout := cmd.OutOrStdout()
			all, offset, err := logs.ReadFrom(path, 0)
			if err != nil {
				return err
			}
			matched := filter.Apply(all)
			if lines >= 0 && len(matched) > lines {
				matched = matched[len(matched)-lines:]
			}
			for _, line := range matched {
				fmt.Fprintln(stdout, line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, logs.DefaultPoll, filter, func(line string) {
				fmt.Fprintln(stdout, line)
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show (-1 for all)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().StringVar(&level, "level", "", "Only show lines at or above this level (debug, info, warn, error)")
	cmd.Flags().StringVar(&attempt, "attempt", "", "Only show lines for this attempt id (prefix match)")
	return cmd
}
