package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"anchorage/internal/config"
	"anchorage/internal/history"
	"anchorage/internal/logging"
	"anchorage/internal/services"
	"anchorage/internal/services/kubo"
)

// Client is the subset of the kubo client the gateway drives.
type Client interface {
	Add(ctx context.Context, path string) (string, error)
	Get(ctx context.Context, cid, outDir string) error
	PinAdd(ctx context.Context, cid string) error
	ListPins(ctx context.Context) ([]string, error)
	BlockStat(ctx context.Context, cid string, timeout time.Duration) error
	Identity(ctx context.Context) (kubo.Identity, error)
}

// Record is one object the gateway moved, kept in memory for status
// snapshots.
type Record struct {
	CID       string    `yaml:"cid" json:"cid"`
	Name      string    `yaml:"name,omitempty" json:"name,omitempty"`
	LocalPath string    `yaml:"local_path,omitempty" json:"local_path,omitempty"`
	At        time.Time `yaml:"at" json:"at"`
}

// Gateway is the content transfer surface for one node.
type Gateway struct {
	cfg     *config.Config
	client  Client
	logger  *slog.Logger
	history *history.Store

	mu         sync.Mutex
	uploaded   []Record
	downloaded []Record
}

// New constructs a gateway. The history store may be nil; records are then
// kept in memory only.
func New(cfg *config.Config, client Client, store *history.Store, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Gateway{
		cfg:     cfg,
		client:  client,
		logger:  logging.NewComponentLogger(logger, "gateway"),
		history: store,
	}
}

// Add shares a file or directory with the swarm and returns the wrapping
// directory CID.
func (g *Gateway) Add(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", services.Wrap(services.ErrValidation, "gateway", "add", "path required", nil)
	}
	if _, err := os.Stat(path); err != nil {
		return "", services.Wrap(services.ErrValidation, "gateway", "add",
			fmt.Sprintf("cannot share %s", path), err)
	}

	cid, err := g.client.Add(ctx, path)
	if err != nil {
		return "", err
	}

	record := Record{CID: cid, Name: filepath.Base(path), LocalPath: path, At: time.Now()}
	g.remember(ctx, record, history.DirectionUpload, "")
	g.logger.Info("content shared",
		logging.String(logging.FieldCID, cid),
		logging.String("path", path))
	return cid, nil
}

// Get pins a CID and fetches it into a per-CID folder under the downloads
// directory, returning the path of the single fetched object. A fetched
// directory that does not hold exactly one entry is a shape error: the CID
// was not published through a wrapping gateway.
func (g *Gateway) Get(ctx context.Context, cid string) (string, error) {
	return g.GetSecured(ctx, cid, "")
}

// GetSecured is Get with an opaque decryption secret carried alongside the
// download record. The gateway does not decrypt; the secret is preserved for
// whatever consumes the fetched file.
func (g *Gateway) GetSecured(ctx context.Context, cid, secret string) (string, error) {
	if cid == "" {
		return "", services.Wrap(services.ErrValidation, "gateway", "get", "cid required", nil)
	}

	// Pin before fetching so the node keeps seeding what it consumed.
	if err := g.client.PinAdd(ctx, cid); err != nil {
		return "", err
	}

	dest := filepath.Join(g.cfg.Paths.DownloadsDir, cid)
	if err := os.MkdirAll(g.cfg.Paths.DownloadsDir, 0o755); err != nil {
		return "", fmt.Errorf("create downloads directory: %w", err)
	}

	// Bound the fetch so a CID nobody is providing cannot stall the cycle.
	fetchCtx := ctx
	timeout := time.Duration(g.cfg.IPFS.FetchTimeoutSeconds) * time.Second
	if timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := g.client.Get(fetchCtx, cid, dest); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrTimeout, "gateway", "get",
				fmt.Sprintf("fetch of %s exceeded %s", cid, timeout), err)
		}
		return "", err
	}

	entries, err := os.ReadDir(dest)
	if err != nil {
		return "", services.Wrap(services.ErrFetchShape, "gateway", "get",
			fmt.Sprintf("inspect fetched folder for %s", cid), err)
	}
	if len(entries) != 1 {
		return "", services.Wrap(services.ErrFetchShape, "gateway", "get",
			fmt.Sprintf("fetched folder for %s holds %d entries, want exactly 1", cid, len(entries)), nil)
	}

	objectPath := filepath.Join(dest, entries[0].Name())
	record := Record{CID: cid, Name: entries[0].Name(), LocalPath: objectPath, At: time.Now()}
	g.remember(ctx, record, history.DirectionDownload, secret)
	g.logPeek(cid, objectPath)
	return objectPath, nil
}

// Pin pins a CID without fetching it.
func (g *Gateway) Pin(ctx context.Context, cid string) error {
	if cid == "" {
		return services.Wrap(services.ErrValidation, "gateway", "pin", "cid required", nil)
	}
	return g.client.PinAdd(ctx, cid)
}

// ListPins returns the recursively pinned CIDs.
func (g *Gateway) ListPins(ctx context.Context) ([]string, error) {
	return g.client.ListPins(ctx)
}

// IsAvailable probes whether a CID can be resolved within the configured
// availability timeout. Unavailability is an answer, not an error.
func (g *Gateway) IsAvailable(ctx context.Context, cid string) (bool, error) {
	timeout := time.Duration(g.cfg.IPFS.AvailabilityTimeoutSec) * time.Second
	if err := g.client.BlockStat(ctx, cid, timeout); err != nil {
		if services.Recoverable(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Identity reports the node identity.
func (g *Gateway) Identity(ctx context.Context) (kubo.Identity, error) {
	return g.client.Identity(ctx)
}

// Uploaded returns a copy of the in-memory upload records.
func (g *Gateway) Uploaded() []Record {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Record(nil), g.uploaded...)
}

// Downloaded returns a copy of the in-memory download records.
func (g *Gateway) Downloaded() []Record {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Record(nil), g.downloaded...)
}

// RecordSecret attaches a snapshot secret to the history row of a published
// CID. The in-memory record set is not secret-aware; secrets only matter for
// the durable ledger mirror.
func (g *Gateway) RecordSecret(ctx context.Context, cid, secret, peerID string) {
	if g.history == nil {
		return
	}
	if _, err := g.history.RecordSnapshot(ctx, history.Snapshot{CID: cid, Secret: secret, PeerID: peerID}); err != nil {
		g.logger.Warn("record snapshot history", logging.Error(err))
	}
}

func (g *Gateway) remember(ctx context.Context, record Record, direction history.Direction, secret string) {
	g.mu.Lock()
	if direction == history.DirectionUpload {
		g.uploaded = append(g.uploaded, record)
	} else {
		g.downloaded = append(g.downloaded, record)
	}
	g.mu.Unlock()

	if g.history == nil {
		return
	}
	_, err := g.history.RecordTransfer(ctx, history.Transfer{
		CID:       record.CID,
		Name:      record.Name,
		Direction: direction,
		LocalPath: record.LocalPath,
		Secret:    secret,
	})
	if err != nil {
		g.logger.Warn("record transfer history", logging.Error(err))
	}
}

const peekLimit = 256

// logPeek logs a short preview of fetched content. Text gets its first bytes
// echoed; anything else just gets a size.
func (g *Gateway) logPeek(cid, path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.IsDir() {
		g.logger.Info("content fetched",
			logging.String(logging.FieldCID, cid),
			logging.String("kind", "directory"),
			logging.String("path", path))
		return
	}

	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	buf := make([]byte, peekLimit)
	n, _ := file.Read(buf)
	buf = buf[:n]

	if isText(buf) {
		g.logger.Info("content fetched",
			logging.String(logging.FieldCID, cid),
			logging.String("kind", "text"),
			logging.Int64("size_bytes", info.Size()),
			logging.String("preview", string(buf)))
		return
	}
	g.logger.Info("content fetched",
		logging.String(logging.FieldCID, cid),
		logging.String("kind", "binary"),
		logging.Int64("size_bytes", info.Size()))
}

func isText(sample []byte) bool {
	if len(sample) == 0 {
		return true
	}
	if !utf8.Valid(sample) {
		return false
	}
	for _, b := range sample {
		if b == 0 {
			return false
		}
	}
	return true
}
