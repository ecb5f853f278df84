package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"anchorage/internal/ipc"
)

func newCycleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cycle",
		Short: "Trigger an immediate supervisory cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Cycle()
				if err != nil {
					return err
				}
				if resp != nil && resp.Triggered {
					fmt.Fprintln(cmd.OutOrStdout(), "Cycle triggered")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cycle not triggered")
				return nil
			})
		},
	}
}
