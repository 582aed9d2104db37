package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"reportwatch/internal/ipc"
	"reportwatch/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded attempt outcomes, newest first",
		Long: "List entries from the outcome journal. The running daemon is asked first; " +
			"when it is not reachable the journal database is read directly.",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := loadHistory(cmd.Context(), ctx, limit)
			if err != nil {
				return err
			}
			if asJSON {
				if entries == nil {
					entries = []journal.Entry{}
				}
				return writeJSON(cmd, entries)
			}
			stdout := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(stdout, "No recorded attempts")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				result := "ok"
				switch {
				case !e.Success:
					result = "error"
				case e.FilesFound == 0:
					result = "not found"
				}
				rows = append(rows, []string{
					e.ProcessedAt.Local().Format(time.DateTime),
					e.Trigger,
					result,
					strconv.Itoa(e.FilesFound),
					strconv.Itoa(e.FilesProcessed),
					formatBytes(e.TotalSizeBytes),
					e.Duration.Round(time.Millisecond).String(),
				})
			}
			fmt.Fprint(stdout, renderTable(
				[]string{"Processed", "Trigger", "Result", "Found", "Processed", "Size", "Duration"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func loadHistory(cmdCtx context.Context, ctx *commandContext, limit int) ([]journal.Entry, error) {
	var entries []journal.Entry
	err := ctx.withClient(func(client *ipc.Client) error {
		resp, err := client.History(limit)
		if err != nil {
			return err
		}
		entries = resp.Entries
		return nil
	})
	if err == nil {
		return entries, nil
	}
	if _, statErr := os.Stat(ctx.socketPath()); statErr == nil {
		// The daemon answered; its error is authoritative.
		return nil, err
	}

	cfg, cfgErr := ctx.ensureConfig()
	if cfgErr != nil {
		return nil, cfgErr
	}
	path := cfg.JournalPath()
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		return nil, nil
	}
	store, openErr := journal.Open(path)
	if openErr != nil {
		return nil, fmt.Errorf("open journal: %w", openErr)
	}
	defer store.Close()
	return store.List(cmdCtx, limit)
}
