package supervisor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"anchorage/internal/config"
	"anchorage/internal/services"
	"anchorage/internal/services/kubo"
	"anchorage/internal/supervisor"
	"anchorage/internal/testsupport"
)

type fakeNode struct {
	repoDir string

	identity     kubo.Identity
	identityErrs []error
	identityIdx  int

	initCalls      int
	bootstrapCalls int
	daemonStarts   int
	connectAddr    string
	connectOutput  string
	connectErr     error
	startErr       error
}

func (f *fakeNode) Identity(context.Context) (kubo.Identity, error) {
	var err error
	if f.identityIdx < len(f.identityErrs) {
		err = f.identityErrs[f.identityIdx]
	}
	f.identityIdx++
	if err != nil {
		return kubo.Identity{}, err
	}
	return f.identity, nil
}

func (f *fakeNode) InitRepo(context.Context) error {
	f.initCalls++
	return nil
}

func (f *fakeNode) BootstrapClear(context.Context) error {
	f.bootstrapCalls++
	return nil
}

func (f *fakeNode) SwarmConnect(_ context.Context, addr string) (string, error) {
	f.connectAddr = addr
	return f.connectOutput, f.connectErr
}

func (f *fakeNode) StartDaemon() error {
	f.daemonStarts++
	return f.startErr
}

func (f *fakeNode) RepoDir() string { return f.repoDir }

const testRelay = "/ip4/203.0.113.1/tcp/4001/p2p/12D3KooWRelay"

func testConfig(t *testing.T, opts ...testsupport.ConfigOption) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	cfg.IPFS.DaemonGraceSeconds = 1
	return cfg
}

func newSupervisor(cfg *config.Config, node *fakeNode) *supervisor.Supervisor {
	return supervisor.New(cfg, node, nil, supervisor.WithSleep(func(time.Duration) {}))
}

func TestEnsureStartedFreshRepo(t *testing.T) {
	cfg := testConfig(t, testsupport.WithSwarmConfig(testRelay))

	node := &fakeNode{
		repoDir:       cfg.IPFS.RepoDir,
		identity:      kubo.Identity{ID: "12D3KooWNode", Addresses: []string{"/a", "/b"}, AgentVersion: "kubo/0.30.0"},
		connectOutput: "connect " + testRelay + " success",
	}
	sup := newSupervisor(cfg, node)

	if err := sup.EnsureStarted(context.Background()); err != nil {
		t.Fatalf("EnsureStarted: %v", err)
	}

	state := sup.State()
	if !state.Started {
		t.Fatal("state not started")
	}
	if state.PeerID != "12D3KooWNode" || state.Multiaddress != "/b" {
		t.Fatalf("state = %+v", state)
	}
	if node.initCalls != 1 {
		t.Fatalf("init calls = %d, want 1 for fresh repo", node.initCalls)
	}
	if node.bootstrapCalls != 1 {
		t.Fatalf("bootstrap calls = %d", node.bootstrapCalls)
	}
	if node.connectAddr != testRelay {
		t.Fatalf("connect addr = %q", node.connectAddr)
	}

	info, err := os.Stat(filepath.Join(cfg.IPFS.RepoDir, "swarm.key"))
	if err != nil {
		t.Fatalf("swarm.key not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("swarm.key mode = %o", perm)
	}
}

func TestEnsureStartedIdempotent(t *testing.T) {
	cfg := testConfig(t, testsupport.WithSwarmConfig(testRelay))

	node := &fakeNode{
		repoDir:       cfg.IPFS.RepoDir,
		identity:      kubo.Identity{ID: "12D3KooWNode"},
		connectOutput: "connect success",
	}
	sup := newSupervisor(cfg, node)

	if err := sup.EnsureStarted(context.Background()); err != nil {
		t.Fatalf("first EnsureStarted: %v", err)
	}
	if err := sup.EnsureStarted(context.Background()); err != nil {
		t.Fatalf("second EnsureStarted: %v", err)
	}
	if node.bootstrapCalls != 1 {
		t.Fatalf("bootstrap ran %d times, want 1 (idempotence)", node.bootstrapCalls)
	}
}

func TestEnsureStartedMissingSwarmConfig(t *testing.T) {
	cfg := testConfig(t)
	node := &fakeNode{repoDir: cfg.IPFS.RepoDir}
	sup := newSupervisor(cfg, node)

	err := sup.EnsureStarted(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if sup.State().Started {
		t.Fatal("state must remain not-started")
	}
	if node.identityIdx != 0 {
		t.Fatal("no kubo commands should run without swarm config")
	}

	// The template must now exist for the operator to fill in.
	if _, err := os.Stat(cfg.SwarmConfigPath()); err != nil {
		t.Fatalf("template not created: %v", err)
	}
}

func TestEnsureStartedSpawnsDaemonOnProbeFailure(t *testing.T) {
	cfg := testConfig(t, testsupport.WithSwarmConfig(testRelay))

	node := &fakeNode{
		repoDir:       cfg.IPFS.RepoDir,
		identity:      kubo.Identity{ID: "12D3KooWNode"},
		identityErrs:  []error{errors.New("connection refused"), nil},
		connectOutput: "connect success",
	}
	sup := newSupervisor(cfg, node)

	if err := sup.EnsureStarted(context.Background()); err != nil {
		t.Fatalf("EnsureStarted: %v", err)
	}
	if node.daemonStarts != 1 {
		t.Fatalf("daemon starts = %d, want 1", node.daemonStarts)
	}
}

func TestEnsureStartedDaemonNeverComesUp(t *testing.T) {
	cfg := testConfig(t, testsupport.WithSwarmConfig(testRelay))

	probeErr := errors.New("connection refused")
	node := &fakeNode{
		repoDir:      cfg.IPFS.RepoDir,
		identityErrs: []error{probeErr, probeErr},
	}
	sup := newSupervisor(cfg, node)

	err := sup.EnsureStarted(context.Background())
	if !errors.Is(err, services.ErrDaemonStart) {
		t.Fatalf("expected daemon start error, got %v", err)
	}
	if sup.State().Started {
		t.Fatal("state must remain not-started")
	}
	if !services.Recoverable(err) {
		t.Fatal("bring-up failures must be recoverable")
	}
}

func TestEnsureStartedRelayRefusal(t *testing.T) {
	cfg := testConfig(t, testsupport.WithSwarmConfig(testRelay))

	node := &fakeNode{
		repoDir:       cfg.IPFS.RepoDir,
		identity:      kubo.Identity{ID: "12D3KooWNode"},
		connectOutput: "Error: connect failed: dial backoff",
	}
	sup := newSupervisor(cfg, node)

	err := sup.EnsureStarted(context.Background())
	if !errors.Is(err, services.ErrDaemonStart) {
		t.Fatalf("expected daemon start error, got %v", err)
	}
	if sup.State().Started {
		t.Fatal("relay refusal must leave state not-started")
	}
}

func TestEnsureStartedExistingRepoSkipsInit(t *testing.T) {
	cfg := testConfig(t, testsupport.WithSwarmConfig(testRelay))
	if err := os.MkdirAll(cfg.IPFS.RepoDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.IPFS.RepoDir, "config"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("seed repo config: %v", err)
	}

	node := &fakeNode{
		repoDir:       cfg.IPFS.RepoDir,
		identity:      kubo.Identity{ID: "12D3KooWNode"},
		connectOutput: "connect success",
	}
	sup := newSupervisor(cfg, node)

	if err := sup.EnsureStarted(context.Background()); err != nil {
		t.Fatalf("EnsureStarted: %v", err)
	}
	if node.initCalls != 0 {
		t.Fatalf("init calls = %d, want 0 for existing repo", node.initCalls)
	}
	if node.bootstrapCalls != 1 {
		t.Fatal("bootstrap strip must run even for existing repos")
	}
}
