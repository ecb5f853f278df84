package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"anchorage/internal/history"
	"anchorage/internal/ipc"
)

func newTransfersCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "transfers",
		Short: "List recent uploads and downloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withOptionalClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()

				var transfers []ipc.Transfer
				if client != nil {
					resp, err := client.TransferList(limit)
					if err != nil {
						return err
					}
					transfers = resp.Transfers
				} else {
					cfg := ctx.configValue()
					store, err := history.Open(cfg)
					if err != nil {
						return err
					}
					defer store.Close()
					rows, err := store.Transfers(cmd.Context(), limit)
					if err != nil {
						return err
					}
					for _, row := range rows {
						transfers = append(transfers, ipc.Transfer{
							ID:        row.ID,
							CID:       row.CID,
							Name:      row.Name,
							Direction: string(row.Direction),
							LocalPath: row.LocalPath,
							Secret:    row.Secret,
							CreatedAt: row.CreatedAt,
						})
					}
				}

				if len(transfers) == 0 {
					fmt.Fprintln(out, "No transfers recorded")
					return nil
				}

				rows := make([][]string, 0, len(transfers))
				for _, transfer := range transfers {
					name := transfer.Name
					if name == "" {
						name = "-"
					}
					rows = append(rows, []string{
						strconv.FormatInt(transfer.ID, 10),
						transfer.Direction,
						transfer.CID,
						name,
						transfer.CreatedAt.Local().Format(time.DateTime),
					})
				}
				table := renderTable(
					[]string{"ID", "Direction", "CID", "Name", "Created"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of transfers to show (0 for all)")
	return cmd
}
