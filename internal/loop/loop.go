package loop

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"anchorage/internal/commands"
	"anchorage/internal/config"
	"anchorage/internal/logging"
	"anchorage/internal/services"
	"anchorage/internal/supervisor"
)

// PeerWatchEnv enables the peer watcher subprocess regardless of the config
// flag.
const PeerWatchEnv = "ANCHORAGE_PEERWATCH"

// Supervisor drives daemon bring-up.
type Supervisor interface {
	EnsureStarted(ctx context.Context) error
	State() supervisor.State
}

// QueueProcessor drains the command queue.
type QueueProcessor interface {
	ProcessFile(ctx context.Context) ([]commands.EntryResult, error)
}

// StatusPublisher publishes status snapshots when due.
type StatusPublisher interface {
	MaybePublish(ctx context.Context) (bool, error)
}

// Notifier receives lifecycle events. All methods are best effort.
type Notifier interface {
	NodeOnline(ctx context.Context, state supervisor.State)
	QueueProcessed(ctx context.Context, done, failed int)
	SnapshotPublished(ctx context.Context)
}

// Phase names the externally visible loop state.
type Phase string

const (
	PhaseWaitingForConfig Phase = "waiting-for-config"
	PhaseRunning          Phase = "running"
	PhaseStopped          Phase = "stopped"
)

// Status is the loop snapshot reported over IPC.
type Status struct {
	Phase  Phase            `json:"phase"`
	Cycle  uint64           `json:"cycle"`
	Daemon supervisor.State `json:"daemon"`
}

// Option configures the manager.
type Option func(*Manager)

// WithNotifier attaches a lifecycle notifier.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithPeerWatchSpawner replaces the peer watcher spawn hook.
func WithPeerWatchSpawner(spawn func() error) Option {
	return func(m *Manager) {
		if spawn != nil {
			m.spawnPeerWatch = spawn
		}
	}
}

// Manager owns the supervisory loop for one node.
type Manager struct {
	cfg    *config.Config
	sup    Supervisor
	queue  QueueProcessor
	pub    StatusPublisher
	logger *slog.Logger

	notifier       Notifier
	spawnPeerWatch func() error

	cycle        atomic.Uint64
	watchSpawned bool
	wasStarted   bool

	mu    sync.Mutex
	phase Phase
}

// New constructs a loop manager.
func New(cfg *config.Config, sup Supervisor, queue QueueProcessor, pub StatusPublisher, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:            cfg,
		sup:            sup,
		queue:          queue,
		pub:            pub,
		logger:         logging.NewComponentLogger(logger, "loop"),
		spawnPeerWatch: func() error { return nil },
		phase:          PhaseWaitingForConfig,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Status reports the current loop snapshot.
func (m *Manager) Status() Status {
	m.mu.Lock()
	phase := m.phase
	m.mu.Unlock()
	return Status{
		Phase:  phase,
		Cycle:  m.cycle.Load(),
		Daemon: m.sup.State(),
	}
}

func (m *Manager) setPhase(phase Phase) {
	m.mu.Lock()
	m.phase = phase
	m.mu.Unlock()
}

// Run executes cycles until ctx is cancelled. Cancellation is honored only
// between cycles; in-flight work finishes on a detached context so external
// commands are never killed mid-operation.
func (m *Manager) Run(ctx context.Context) error {
	interval := time.Duration(m.cfg.Workflow.CycleIntervalSeconds) * time.Second
	m.logger.Info("loop starting", logging.Duration("cycle_interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.RunCycle(context.WithoutCancel(ctx))
	for {
		select {
		case <-ctx.Done():
			m.setPhase(PhaseStopped)
			m.logger.Info("loop stopped", logging.Uint64(logging.FieldCycle, m.cycle.Load()))
			return nil
		case <-ticker.C:
			m.RunCycle(context.WithoutCancel(ctx))
		}
	}
}

// RunCycle executes exactly one cycle. Exposed so the daemon can trigger an
// immediate cycle over IPC.
func (m *Manager) RunCycle(ctx context.Context) {
	n := m.cycle.Add(1)
	ctx = services.WithCycle(ctx, n)

	if err := m.sup.EnsureStarted(ctx); err != nil {
		m.setPhase(PhaseWaitingForConfig)
		if services.Recoverable(err) {
			m.logger.Info("waiting for daemon",
				logging.Uint64(logging.FieldCycle, n),
				logging.String(logging.FieldErrorHint, err.Error()))
		} else {
			m.logger.Error("daemon bring-up failed",
				logging.Uint64(logging.FieldCycle, n),
				logging.Error(err))
		}
		return
	}
	m.setPhase(PhaseRunning)

	if !m.wasStarted {
		m.wasStarted = true
		if m.notifier != nil {
			m.notifier.NodeOnline(ctx, m.sup.State())
		}
	}
	m.maybeSpawnPeerWatch()

	m.drainQueue(ctx, n)
	m.publish(ctx, n)
}

func (m *Manager) drainQueue(ctx context.Context, cycle uint64) {
	results, err := m.queue.ProcessFile(ctx)
	if err != nil {
		m.logger.Error("queue drain failed", logging.Uint64(logging.FieldCycle, cycle), logging.Error(err))
		return
	}
	if len(results) == 0 {
		return
	}

	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
		}
	}
	m.logger.Info("queue drained",
		logging.Uint64(logging.FieldCycle, cycle),
		logging.Int("entries", len(results)),
		logging.Int("failed", failed))
	if m.notifier != nil {
		m.notifier.QueueProcessed(ctx, len(results)-failed, failed)
	}
}

func (m *Manager) publish(ctx context.Context, cycle uint64) {
	published, err := m.pub.MaybePublish(ctx)
	if err != nil {
		m.logger.Error("snapshot publish failed", logging.Uint64(logging.FieldCycle, cycle), logging.Error(err))
		return
	}
	if published && m.notifier != nil {
		m.notifier.SnapshotPublished(ctx)
	}
}

// maybeSpawnPeerWatch launches the peer watcher subprocess at most once per
// agent lifetime, and only when enabled by config or environment.
func (m *Manager) maybeSpawnPeerWatch() {
	if m.watchSpawned {
		return
	}
	if !m.cfg.Workflow.SpawnPeerWatcher && os.Getenv(PeerWatchEnv) == "" {
		return
	}
	m.watchSpawned = true
	if err := m.spawnPeerWatch(); err != nil {
		m.logger.Warn("peer watcher spawn failed", logging.Error(err))
		return
	}
	m.logger.Info("peer watcher spawned")
}
