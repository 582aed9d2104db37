package main

import (
	"github.com/spf13/cobra"

	"reportwatch/internal/ipc"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification through the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					return err
				}
				t := toneAttention
				if resp.Sent {
					t = toneGood
				}
				newPanel(cmd.OutOrStdout()).row("Notification", t, resp.Message)
				return nil
			})
		},
	}
}
