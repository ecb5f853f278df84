// Package daemonrun assembles and runs the agent process: logging, history
// store, kubo client, loop, and IPC server.
package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"anchorage/internal/commands"
	"anchorage/internal/config"
	"anchorage/internal/daemon"
	"anchorage/internal/gateway"
	"anchorage/internal/history"
	"anchorage/internal/ipc"
	"anchorage/internal/logging"
	"anchorage/internal/loop"
	"anchorage/internal/notifications"
	"anchorage/internal/preflight"
	"anchorage/internal/publisher"
	"anchorage/internal/services"
	"anchorage/internal/services/kubo"
	"anchorage/internal/supervisor"
)

// Options configures agent process runtime behavior.
type Options struct {
	LogLevel string
}

// SocketPath returns the IPC socket location for a config.
func SocketPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "anchorage.sock")
}

// PIDPath returns the pid file location for a config.
func PIDPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "anchorage.pid")
}

// Run starts the agent runtime loop and blocks until shutdown.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logPath := filepath.Join(cfg.Paths.LogDir, "anchorage.log")
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	for _, result := range preflight.RunAll(cfg) {
		if result.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail))
			continue
		}
		logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "the loop will keep retrying, but fix the environment for a healthy node"))
	}

	pidPath := PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := history.Open(cfg)
	if err != nil {
		logger.Error("open history store", logging.Error(err))
		return err
	}
	defer store.Close()

	client, err := kubo.New(cfg.IPFS.Binary, cfg.IPFS.RepoDir)
	if err != nil {
		return fmt.Errorf("create kubo client: %w", err)
	}

	gw := gateway.New(cfg, client, store, logger)
	sup := supervisor.New(cfg, client, logger)
	if err := commands.EnsureFile(cfg.CommandQueuePath()); err != nil {
		return err
	}
	queue := commands.New(cfg.CommandQueuePath(), func(ctx context.Context, entry commands.Entry) error {
		available, err := gw.IsAvailable(ctx, entry.CID)
		if err != nil {
			return err
		}
		if !available {
			return services.Wrap(services.ErrUnavailable, "commands", "fetch", "content not resolvable yet", nil)
		}
		_, err = gw.GetSecured(ctx, entry.CID, entry.Secret)
		return err
	}, logger)
	pub := publisher.New(cfg, gw, sup.State, logger)

	notifier := notifications.NewService(cfg)
	manager := loop.New(cfg, sup, queue, pub, logger,
		loop.WithNotifier(notifications.NewLoopEvents(notifier, logger)),
		loop.WithPeerWatchSpawner(spawnPeerWatcher))

	d, err := daemon.New(cfg, store, gw, manager, logger, daemon.WithShutdown(cancel))
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, SocketPath(cfg), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("agent start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "agent_start_failed"),
			logging.String(logging.FieldErrorHint, "check for another running agent holding the lock"))
		return err
	}

	<-signalCtx.Done()
	logger.Info("anchorage agent shutting down")
	return nil
}

// spawnPeerWatcher relaunches this binary in peerwatch mode, detached so the
// watcher outlives individual cycles but dies with the machine, not the
// agent.
func spawnPeerWatcher() error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	cmd := exec.Command(self, "peerwatch")
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start peer watcher: %w", err)
	}
	return cmd.Process.Release()
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
