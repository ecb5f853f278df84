package peerwatch

import (
	"context"
	"log/slog"
	"time"

	"anchorage/internal/config"
	"anchorage/internal/logging"
	"anchorage/internal/services/kubo"
)

// Client is the subset of the kubo client the watcher polls.
type Client interface {
	SwarmPeers(ctx context.Context) ([]string, error)
}

// Watcher polls the swarm peer list on a fixed cadence.
type Watcher struct {
	client   Client
	logger   *slog.Logger
	interval time.Duration

	lastCount int
	seen      bool
}

// New constructs a watcher polling at the configured cycle interval.
func New(cfg *config.Config, client Client, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		client:   client,
		logger:   logging.NewComponentLogger(logger, "peerwatch"),
		interval: time.Duration(cfg.Workflow.CycleIntervalSeconds) * time.Second,
	}
}

// NewFromConfig builds a watcher with a real kubo client.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Watcher, error) {
	client, err := kubo.New(cfg.IPFS.Binary, cfg.IPFS.RepoDir)
	if err != nil {
		return nil, err
	}
	return New(cfg, client, logger), nil
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("peer watcher starting", logging.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("peer watcher stopped")
			return nil
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll samples the peer list once and logs count changes.
func (w *Watcher) Poll(ctx context.Context) {
	peers, err := w.client.SwarmPeers(ctx)
	if err != nil {
		w.logger.Warn("peer poll failed", logging.Error(err))
		return
	}

	count := len(peers)
	if !w.seen || count != w.lastCount {
		w.logger.Info("swarm peers", logging.Int("count", count))
	}
	w.seen = true
	w.lastCount = count
}
