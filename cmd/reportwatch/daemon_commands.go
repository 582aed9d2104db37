package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reportwatch/internal/daemonctl"
	"reportwatch/internal/daemonrun"
	"reportwatch/internal/ipc"
	"reportwatch/internal/preflight"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var runLogLevel string
	var runQuiet bool
	var runDevelopment bool
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the reportwatch daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if socket := strings.TrimSpace(ctx.socketPath()); socket != "" {
				cfg.Paths.SocketPath = socket
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    runLogLevel,
				Development: runDevelopment,
				Stdout:      !runQuiet,
			})
		},
	}
	runCmd.Flags().StringVar(&runLogLevel, "log-level", "", "Override logging.level")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Write logs to the log file only")
	runCmd.Flags().BoolVar(&runDevelopment, "dev", false, "Include source locations in log output")

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the reportwatch daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonctl.LaunchOptions{ConfigPath: ctx.configFlagValue()},
				10*time.Second,
			)
			if err != nil {
				return err
			}
			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Daemon started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			case daemonctl.StartStateRequested:
				fmt.Fprintln(stdout, result.Message)
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the reportwatch daemon (terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if socket := strings.TrimSpace(ctx.socketPath()); socket != "" {
				cfg.Paths.SocketPath = socket
			}
			result, err := daemonctl.StopAndTerminate(cfg, 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
				return nil
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			running, _, err := daemonctl.ProcessInfo(ctx.socketPath())
			if err != nil {
				return wrapDialError(err, ctx.socketPath())
			}
			if !running {
				if statusJSON {
					return writeJSON(cmd, ipc.StatusResponse{})
				}
				p := newPanel(cmd.OutOrStdout())
				p.section("Daemon")
				p.row("Daemon", toneAttention, "not running")
				if cfg, err := ctx.ensureConfig(); err == nil {
					renderReadiness(p, preflight.RunAll(cmd.Context(), cfg))
				}
				return nil
			}
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				if statusJSON {
					return writeJSON(cmd, status)
				}
				p := newPanel(cmd.OutOrStdout())
				renderStatus(p, status)
				if cfg, err := ctx.ensureConfig(); err == nil {
					renderReadiness(p, preflight.RunAll(cmd.Context(), cfg))
				}
				return nil
			})
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")

	return []*cobra.Command{runCmd, startCmd, stopCmd, statusCmd}
}

func renderStatus(p *panel, status *ipc.StatusResponse) {
	p.section("Daemon")
	triggers := "stopped"
	if status.Running {
		triggers = "armed"
	}
	p.row("Triggers", armedTone(status.Running), fmt.Sprintf("%s (pid %d)", triggers, status.PID))
	p.row("State", toneNeutral, status.State)
	p.row("Next execution", toneNeutral, formatClock(status.NextExecution))
	if status.NextRetry != nil {
		p.row("Next retry", toneAttention, formatClock(status.NextRetry))
	}
	p.row("Processed today", toneNeutral, fmt.Sprintf("%d files, %d schedules", status.ProcessedToday, status.SchedulesToday))
	if len(status.Watching) > 0 {
		p.row("Watching", toneNeutral, strings.Join(status.Watching, ", "))
	}

	p.section("Paths")
	p.row("Lock", toneNeutral, status.LockPath)
	if status.JournalPath != "" {
		p.row("Journal", toneNeutral, status.JournalPath)
	}
	if status.LogPath != "" {
		p.row("Log", toneNeutral, status.LogPath)
	}
}

func renderReadiness(p *panel, results []preflight.Result) {
	if len(results) == 0 {
		return
	}
	p.section("Readiness")
	for _, r := range results {
		t := toneGood
		if !r.Passed {
			t = toneBad
		}
		p.row(r.Name, t, r.Detail)
	}
}
