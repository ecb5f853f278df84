package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"anchorage/internal/logging"
	"anchorage/internal/peerwatch"
)

func newPeerWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:          "peerwatch",
		Short:        "Poll the node for swarm peer counts (internal)",
		Hidden:       true,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			watcher, err := peerwatch.NewFromConfig(cfg, logger)
			if err != nil {
				return err
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return watcher.Run(runCtx)
		},
	}
}
