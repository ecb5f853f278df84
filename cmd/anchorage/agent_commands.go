package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"anchorage/internal/daemonctl"
	"anchorage/internal/preflight"
)

func newAgentCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the anchorage agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := agentExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				agentLaunchOptions(ctx),
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.Launched {
				fmt.Fprintln(stdout, "Agent not running, launching...")
			}

			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Agent started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Agent already running")
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the anchorage agent (completely terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrAgentNotRunning) {
				fmt.Fprintln(stdout, "Agent is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stop request sent")
			} else {
				fmt.Fprintln(stdout, "Stopping agent loop...")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Stopping agent process (pid %d)...\n", result.PID)
			}
			fmt.Fprintln(stdout, "Agent stopped")
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the anchorage agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := agentExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.Restart(
				ctx.socketPath(),
				ctx.configValue(),
				exe,
				agentLaunchOptions(ctx),
				5*time.Second,
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.WasRunning {
				if result.Stop.ForcedKill && result.Stop.PID > 0 {
					fmt.Fprintf(stdout, "Stopping agent process (pid %d)...\n", result.Stop.PID)
				}
				fmt.Fprintln(stdout, "Agent stopped")
			}
			fmt.Fprintln(stdout, "Agent restarted")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show agent and node status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			statusResp, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Agent Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if statusResp.Running {
				fmt.Fprintln(stdout, renderStatusLine("Anchorage", statusOK, fmt.Sprintf("Running (pid %d)", statusResp.PID), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Phase", statusInfo, fmt.Sprintf("%s (cycle %d)", statusResp.Phase, statusResp.Cycle), colorize))
				if statusResp.DaemonStarted {
					fmt.Fprintln(stdout, renderStatusLine("Node Daemon", statusOK, "Started", colorize))
				} else {
					fmt.Fprintln(stdout, renderStatusLine("Node Daemon", statusWarn, "Not started yet", colorize))
				}
				if statusResp.PeerID != "" {
					fmt.Fprintln(stdout, renderStatusLine("Peer ID", statusInfo, statusResp.PeerID, colorize))
				}
				if statusResp.Multiaddress != "" {
					fmt.Fprintln(stdout, renderStatusLine("Multiaddress", statusInfo, statusResp.Multiaddress, colorize))
				}
				if statusResp.AgentVersion != "" {
					fmt.Fprintln(stdout, renderStatusLine("Node Version", statusInfo, statusResp.AgentVersion, colorize))
				}
			} else {
				fmt.Fprintln(stdout, renderStatusLine("Anchorage", statusWarn, "Not running (run `anchorage start`)", colorize))
			}
			if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
				fmt.Fprintln(stdout, renderStatusLine("Notifications", statusOK, "Configured", colorize))
			} else {
				fmt.Fprintln(stdout, renderStatusLine("Notifications", statusWarn, "Not configured", colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Environment", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, result := range preflight.RunAll(cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusWarn
				}
				fmt.Fprintln(stdout, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("History", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := [][]string{
				{"Uploads", strconv.FormatInt(statusResp.Uploads, 10)},
				{"Downloads", strconv.FormatInt(statusResp.Downloads, 10)},
				{"Snapshots", strconv.FormatInt(statusResp.Snapshots, 10)},
			}
			table := renderTable([]string{"Metric", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
			fmt.Fprintln(stdout, table)
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

func agentExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func agentLaunchOptions(ctx *commandContext) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{}
	if ctx.configFlag != nil {
		if config := strings.TrimSpace(*ctx.configFlag); config != "" {
			opts.ConfigPath = config
		}
	}
	if level := ctx.logLevel(); level != "" {
		opts.LogLevel = level
	}
	return opts
}
