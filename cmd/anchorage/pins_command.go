package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"anchorage/internal/ipc"
	"anchorage/internal/services/kubo"
)

func newPinsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pins",
		Short: "List recursively pinned content",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withOptionalClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()

				var pins []string
				if client != nil {
					resp, err := client.PinList()
					if err != nil {
						return err
					}
					pins = resp.Pins
				} else {
					cfg := ctx.configValue()
					node, err := kubo.New(cfg.IPFS.Binary, cfg.IPFS.RepoDir)
					if err != nil {
						return err
					}
					pins, err = node.ListPins(cmd.Context())
					if err != nil {
						return err
					}
				}

				if len(pins) == 0 {
					fmt.Fprintln(out, "No pinned content")
					return nil
				}
				for _, pin := range pins {
					fmt.Fprintln(out, pin)
				}
				return nil
			})
		},
	}
}
