package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"anchorage/internal/commands"
	"anchorage/internal/ipc"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the command queue",
	}

	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))

	return queueCmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <cid> [secret]",
		Short: "Queue a content identifier for fetching",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cid := args[0]
			secret := ""
			if len(args) > 1 {
				secret = args[1]
			}

			return ctx.withOptionalClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				if client != nil {
					resp, err := client.QueueAdd(cid, secret)
					if err != nil {
						return err
					}
					if resp != nil && resp.Queued {
						fmt.Fprintf(out, "Queued %s\n", cid)
						return nil
					}
					return fmt.Errorf("agent did not accept %s", cid)
				}

				cfg := ctx.configValue()
				if err := commands.Append(cfg.CommandQueuePath(), cid, secret); err != nil {
					return err
				}
				fmt.Fprintf(out, "Queued %s (agent offline, wrote %s)\n", cid, cfg.CommandQueuePath())
				return nil
			})
		},
	}
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show pending queue entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			out := cmd.OutOrStdout()

			content, err := os.ReadFile(cfg.CommandQueuePath())
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				return fmt.Errorf("read command queue: %w", err)
			}

			entries := commands.Parse(string(content))
			if len(entries) == 0 {
				fmt.Fprintln(out, "Queue is empty")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				secret := entry.Secret
				if secret == "" {
					secret = "-"
				}
				rows = append(rows, []string{entry.CID, secret})
			}
			table := renderTable([]string{"CID", "Secret"}, rows, []columnAlignment{alignLeft, alignLeft})
			fmt.Fprintln(out, table)
			return nil
		},
	}
}
