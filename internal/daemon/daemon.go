package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"anchorage/internal/commands"
	"anchorage/internal/config"
	"anchorage/internal/gateway"
	"anchorage/internal/history"
	"anchorage/internal/ipc"
	"anchorage/internal/logging"
	"anchorage/internal/loop"
	"anchorage/internal/notifications"
)

// Daemon coordinates the background agent and enforces single-instance
// execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *history.Store
	gw      *gateway.Gateway
	manager *loop.Manager

	lockPath string
	lock     *flock.Flock

	// shutdown asks the hosting process to exit. Wired by daemonrun.
	shutdown func()

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures the daemon.
type Option func(*Daemon)

// WithShutdown wires the process-exit callback invoked on IPC stop.
func WithShutdown(shutdown func()) Option {
	return func(d *Daemon) { d.shutdown = shutdown }
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *history.Store, gw *gateway.Gateway, manager *loop.Manager, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || gw == nil || manager == nil {
		return nil, errors.New("daemon requires config, gateway, and loop manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "anchorage.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		gw:       gw,
		manager:  manager,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		shutdown: func() {},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start acquires the instance lock and launches the supervisory loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("agent already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another anchorage agent is already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		_ = d.manager.Run(loopCtx)
	}()

	d.running.Store(true)
	d.logger.Info("agent started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts the loop and releases the instance lock. The in-flight cycle
// finishes first.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release agent lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("agent stopped")
	d.shutdown()
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports the agent snapshot for IPC.
func (d *Daemon) Status(ctx context.Context) ipc.StatusResponse {
	resp := ipc.StatusFromLoop(d.manager.Status())
	resp.Running = d.running.Load()
	resp.PID = os.Getpid()
	resp.LockPath = d.lockPath
	if d.store != nil {
		resp.HistoryDBPath = d.store.Path()
		if stats, err := d.store.Stats(ctx); err == nil {
			resp.Uploads = stats.Uploads
			resp.Downloads = stats.Downloads
			resp.Snapshots = stats.Snapshots
		}
	}
	return resp
}

// TriggerCycle runs one out-of-band cycle without waiting for the ticker.
func (d *Daemon) TriggerCycle() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.manager.RunCycle(context.Background())
	}()
}

// QueueAdd appends one entry to the command queue file.
func (d *Daemon) QueueAdd(cid, secret string) error {
	return commands.Append(d.cfg.CommandQueuePath(), cid, secret)
}

// Transfers returns recent transfer history.
func (d *Daemon) Transfers(ctx context.Context, limit int) ([]history.Transfer, error) {
	if d.store == nil {
		return nil, errors.New("history store unavailable")
	}
	return d.store.Transfers(ctx, limit)
}

// Pins returns the recursively pinned CIDs.
func (d *Daemon) Pins(ctx context.Context) ([]string, error) {
	return d.gw.ListPins(ctx)
}

// TestNotification triggers a test notification using the current
// configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LockPath returns the instance lock location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}
