package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"anchorage/internal/config"
	"anchorage/internal/logging"
	"anchorage/internal/services"
	"anchorage/internal/services/kubo"
	"anchorage/internal/swarm"
)

// NodeClient is the subset of the kubo client the supervisor drives.
type NodeClient interface {
	Identity(ctx context.Context) (kubo.Identity, error)
	InitRepo(ctx context.Context) error
	BootstrapClear(ctx context.Context) error
	SwarmConnect(ctx context.Context, addr string) (string, error)
	StartDaemon() error
	RepoDir() string
}

// State is a snapshot of the supervised daemon.
type State struct {
	Started      bool
	PeerID       string
	Multiaddress string
	AgentVersion string
	StartedAt    time.Time
}

// Option configures the supervisor.
type Option func(*Supervisor)

// WithSleep replaces the bring-up grace sleep (tests).
func WithSleep(sleep func(time.Duration)) Option {
	return func(s *Supervisor) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// Supervisor owns daemon bring-up for one node.
type Supervisor struct {
	cfg    *config.Config
	client NodeClient
	logger *slog.Logger
	sleep  func(time.Duration)

	state State
}

// New constructs a supervisor. The logger is scoped to the supervisor
// component.
func New(cfg *config.Config, client NodeClient, logger *slog.Logger, opts ...Option) *Supervisor {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Supervisor{
		cfg:    cfg,
		client: client,
		logger: logging.NewComponentLogger(logger, "supervisor"),
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current daemon snapshot.
func (s *Supervisor) State() State {
	return s.state
}

// EnsureStarted drives the daemon toward the running, swarm-connected state.
// It is idempotent: once the relay connection has succeeded, subsequent calls
// return immediately. Any failure leaves the state unchanged so the next
// cycle retries from scratch.
func (s *Supervisor) EnsureStarted(ctx context.Context) error {
	if s.state.Started {
		return nil
	}

	swarmCfg, err := swarm.Load(s.cfg.SwarmConfigPath())
	if err != nil {
		return err
	}
	if err := swarmCfg.Export(); err != nil {
		return services.Wrap(services.ErrConfiguration, "supervisor", "export", "publish swarm environment", err)
	}

	if err := s.prepareRepository(ctx, swarmCfg); err != nil {
		return err
	}

	identity, err := s.ensureDaemon(ctx)
	if err != nil {
		return err
	}

	transcript, err := s.client.SwarmConnect(ctx, swarmCfg.RelayAddress)
	if err != nil {
		return services.Wrap(services.ErrDaemonStart, "supervisor", "swarm-connect",
			fmt.Sprintf("dial relay %s", swarmCfg.RelayAddress), err)
	}
	if !kubo.ConnectSucceeded(transcript) {
		return services.Wrap(services.ErrDaemonStart, "supervisor", "swarm-connect",
			fmt.Sprintf("relay refused connection: %s", transcript), nil)
	}

	s.state = State{
		Started:      true,
		PeerID:       identity.ID,
		Multiaddress: identity.PreferredAddress(),
		AgentVersion: identity.AgentVersion,
		StartedAt:    time.Now(),
	}
	s.logger.Info("daemon online",
		logging.String(logging.FieldPeerID, identity.ID),
		logging.String("multiaddress", s.state.Multiaddress),
		logging.String("agent", identity.AgentVersion))
	return nil
}

// prepareRepository makes sure the repo exists with the swarm key in place
// and no public bootstrap peers. The key is rewritten on every bring-up
// attempt so key rotation in the swarm config takes effect without manual
// cleanup.
func (s *Supervisor) prepareRepository(ctx context.Context, swarmCfg *swarm.Config) error {
	repoDir := s.client.RepoDir()

	fresh := false
	if _, err := os.Stat(filepath.Join(repoDir, "config")); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrDaemonStart, "supervisor", "prepare-repo", "stat repository", err)
		}
		fresh = true
	}

	if err := swarmCfg.WriteKeyFile(repoDir); err != nil {
		return services.Wrap(services.ErrDaemonStart, "supervisor", "prepare-repo", "install swarm key", err)
	}

	if fresh {
		s.logger.Info("initializing repository", logging.String("repo", repoDir))
		if err := s.client.InitRepo(ctx); err != nil {
			return services.Wrap(services.ErrDaemonStart, "supervisor", "prepare-repo", "ipfs init", err)
		}
	}

	// Strip bootstrap peers unconditionally, including on repos initialized
	// by an earlier run, so the node never dials the public network.
	if err := s.client.BootstrapClear(ctx); err != nil {
		return services.Wrap(services.ErrDaemonStart, "supervisor", "prepare-repo", "remove bootstrap peers", err)
	}
	return nil
}

// ensureDaemon probes for a serving daemon and spawns one when the probe
// fails, giving the fresh process a short grace period before re-probing.
func (s *Supervisor) ensureDaemon(ctx context.Context) (kubo.Identity, error) {
	identity, err := s.client.Identity(ctx)
	if err == nil {
		return identity, nil
	}

	s.logger.Info("daemon not responding, spawning",
		logging.Int("grace_seconds", s.cfg.IPFS.DaemonGraceSeconds))
	if err := s.client.StartDaemon(); err != nil {
		return kubo.Identity{}, err
	}
	s.sleep(time.Duration(s.cfg.IPFS.DaemonGraceSeconds) * time.Second)

	identity, err = s.client.Identity(ctx)
	if err != nil {
		return kubo.Identity{}, services.Wrap(services.ErrDaemonStart, "supervisor", "probe",
			"daemon did not come up within grace period", err)
	}
	return identity, nil
}
