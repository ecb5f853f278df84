package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/google/uuid"

	"anchorage/internal/config"
	"anchorage/internal/gateway"
	"anchorage/internal/logging"
	"anchorage/internal/serial"
	"anchorage/internal/supervisor"
)

// Document is the status snapshot a node publishes about itself.
type Document struct {
	GeneratedAt  time.Time        `yaml:"generated_at" json:"generated_at"`
	PeerID       string           `yaml:"peer_id" json:"peer_id"`
	Multiaddress string           `yaml:"multiaddress" json:"multiaddress"`
	AgentVersion string           `yaml:"agent_version" json:"agent_version"`
	Secured      bool             `yaml:"secured" json:"secured"`
	Secret       string           `yaml:"secret,omitempty" json:"secret,omitempty"`
	Pins         []string         `yaml:"pins" json:"pins"`
	Shared       []gateway.Record `yaml:"shared" json:"shared"`
	Fetched      []gateway.Record `yaml:"fetched" json:"fetched"`
}

// Gateway is the subset of the content gateway the publisher needs.
type Gateway interface {
	Add(ctx context.Context, path string) (string, error)
	ListPins(ctx context.Context) ([]string, error)
	Uploaded() []gateway.Record
	Downloaded() []gateway.Record
	RecordSecret(ctx context.Context, cid, secret, peerID string)
}

// Option configures the publisher.
type Option func(*Publisher)

// WithClock replaces the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

// WithSecureDecision replaces the coin flip that decides whether a snapshot
// gets a secret (tests).
func WithSecureDecision(decide func() bool) Option {
	return func(p *Publisher) {
		if decide != nil {
			p.secure = decide
		}
	}
}

// WithSecretSource replaces the secret generator (tests).
func WithSecretSource(secret func() string) Option {
	return func(p *Publisher) {
		if secret != nil {
			p.secret = secret
		}
	}
}

// WithSerializer replaces the snapshot serializer. Snapshots default to
// YAML.
func WithSerializer(s serial.Serializer) Option {
	return func(p *Publisher) {
		if s != nil {
			p.serializer = s
		}
	}
}

// Publisher owns snapshot generation and the published-CID ledger.
type Publisher struct {
	cfg        *config.Config
	gw         Gateway
	state      func() supervisor.State
	serializer serial.Serializer
	logger     *slog.Logger

	now    func() time.Time
	secure func() bool
	secret func() string

	lastPublished time.Time
}

// New constructs a publisher. state reports the supervised daemon snapshot.
func New(cfg *config.Config, gw Gateway, state func() supervisor.State, logger *slog.Logger, opts ...Option) *Publisher {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Publisher{
		cfg:        cfg,
		gw:         gw,
		state:      state,
		serializer: serial.YAML{},
		logger:     logging.NewComponentLogger(logger, "publisher"),
		now:        time.Now,
		secure:     func() bool { return rand.IntN(2) == 0 },
		secret:     func() string { return uuid.NewString()[:4] },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaybePublish shares a fresh snapshot when the publish interval has elapsed.
// The first call after startup publishes immediately. A failed publish leaves
// the timestamp untouched so the next cycle retries.
func (p *Publisher) MaybePublish(ctx context.Context) (bool, error) {
	state := p.state()
	if !state.Started {
		return false, nil
	}

	interval := time.Duration(p.cfg.Workflow.PublishIntervalSeconds) * time.Second
	now := p.now()
	if !p.lastPublished.IsZero() && now.Sub(p.lastPublished) < interval {
		return false, nil
	}

	cid, secret, err := p.publish(ctx, state, now)
	if err != nil {
		return false, err
	}
	p.lastPublished = now

	p.logger.Info("snapshot published",
		logging.String(logging.FieldCID, cid),
		logging.Bool("secured", secret != ""))
	return true, nil
}

func (p *Publisher) publish(ctx context.Context, state supervisor.State, now time.Time) (string, string, error) {
	pins, err := p.gw.ListPins(ctx)
	if err != nil {
		return "", "", fmt.Errorf("list pins for snapshot: %w", err)
	}

	doc := Document{
		GeneratedAt:  now.UTC(),
		PeerID:       state.PeerID,
		Multiaddress: state.Multiaddress,
		AgentVersion: state.AgentVersion,
		Pins:         pins,
		Shared:       p.gw.Uploaded(),
		Fetched:      p.gw.Downloaded(),
	}
	var secret string
	if p.secure() {
		secret = p.secret()
		doc.Secured = true
		doc.Secret = secret
	}

	payload, err := p.serializer.Marshal(doc)
	if err != nil {
		return "", "", err
	}

	file, err := os.CreateTemp(p.cfg.Paths.CacheDir, "status-*."+p.serializer.Ext())
	if err != nil {
		return "", "", fmt.Errorf("create snapshot file: %w", err)
	}
	path := file.Name()
	defer func() { _ = os.Remove(path) }()

	if _, err := file.Write(payload); err != nil {
		_ = file.Close()
		return "", "", fmt.Errorf("write snapshot file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", "", fmt.Errorf("close snapshot file: %w", err)
	}

	cid, err := p.gw.Add(ctx, path)
	if err != nil {
		return "", "", err
	}

	if err := p.appendLedger(cid, secret); err != nil {
		return "", "", err
	}
	p.gw.RecordSecret(ctx, cid, secret, state.PeerID)
	return cid, secret, nil
}

// appendLedger records a published CID. Lines are "<cid> <secret>" for
// secured snapshots and the bare CID otherwise. The ledger is append-only;
// nothing ever rewrites it.
func (p *Publisher) appendLedger(cid, secret string) error {
	file, err := os.OpenFile(p.cfg.LedgerPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer file.Close()

	line := cid
	if secret != "" {
		line += " " + secret
	}
	if _, err := fmt.Fprintln(file, line); err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}
	return nil
}
