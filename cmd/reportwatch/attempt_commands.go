package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reportwatch/internal/ipc"
)

func newAttemptCommands(ctx *commandContext) []*cobra.Command {
	triggerCmd := &cobra.Command{
		Use:   "trigger",
		Short: "Signal a manual execution and return immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Trigger()
				if err != nil {
					return err
				}
				if !resp.Accepted {
					return fmt.Errorf("trigger rejected: %s", resp.Message)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Manual execution triggered")
				return nil
			})
		},
	}

	var executeJSON bool
	executeCmd := &cobra.Command{
		Use:   "execute",
		Short: "Run a manual execution and wait for the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Execute()
				if err != nil {
					return err
				}
				return printOutcome(cmd, resp.Outcome, executeJSON)
			})
		},
	}
	executeCmd.Flags().BoolVar(&executeJSON, "json", false, "Output as JSON")

	var processJSON bool
	processCmd := &cobra.Command{
		Use:   "process",
		Short: "Search and process now, ignoring the schedule skip policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ProcessNow()
				if err != nil {
					return err
				}
				return printOutcome(cmd, resp.Outcome, processJSON)
			})
		},
	}
	processCmd.Flags().BoolVar(&processJSON, "json", false, "Output as JSON")

	return []*cobra.Command{triggerCmd, executeCmd, processCmd}
}

func printOutcome(cmd *cobra.Command, out ipc.Outcome, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd, out)
	}
	p := newPanel(cmd.OutOrStdout())
	p.row("Outcome", outcomeTone(out), out.Message)
	p.row("Trigger", toneNeutral, out.Trigger)
	p.row("Files", toneNeutral, fmt.Sprintf("%d found, %d processed, %d skipped", out.FilesFound, out.FilesProcessed, out.FilesSkipped))
	if out.FilesProcessed > 0 {
		p.row("Size", toneNeutral, formatBytes(out.TotalSizeBytes))
	}
	p.row("Duration", toneNeutral, fmt.Sprintf("%dms", out.DurationMillis))
	if len(out.ProcessedFiles) > 0 {
		paths := make([]string, 0, len(out.ProcessedFiles))
		for _, f := range out.ProcessedFiles {
			paths = append(paths, f.Path)
		}
		p.row("Processed", toneNeutral, strings.Join(paths, ", "))
	}
	return nil
}
