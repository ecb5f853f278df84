package daemon_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"anchorage/internal/commands"
	"anchorage/internal/config"
	"anchorage/internal/daemon"
	"anchorage/internal/gateway"
	"anchorage/internal/history"
	"anchorage/internal/loop"
	"anchorage/internal/services/kubo"
	"anchorage/internal/supervisor"
	"anchorage/internal/testsupport"
)

type stubSupervisor struct{}

func (stubSupervisor) EnsureStarted(context.Context) error { return nil }
func (stubSupervisor) State() supervisor.State {
	return supervisor.State{Started: true, PeerID: "12D3KooWNode"}
}

type queueStub struct{}

func (queueStub) ProcessFile(context.Context) ([]commands.EntryResult, error) {
	return nil, nil
}

type stubPublisher struct{}

func (stubPublisher) MaybePublish(context.Context) (bool, error) { return false, nil }

type stubClient struct {
	pins []string
}

func (stubClient) Add(context.Context, string) (string, error)         { return "QmX", nil }
func (stubClient) Get(context.Context, string, string) error           { return nil }
func (stubClient) PinAdd(context.Context, string) error                { return nil }
func (s stubClient) ListPins(context.Context) ([]string, error)        { return s.pins, nil }
func (stubClient) BlockStat(context.Context, string, time.Duration) error {
	return nil
}
func (stubClient) Identity(context.Context) (kubo.Identity, error) {
	return kubo.Identity{ID: "12D3KooWNode"}, nil
}

func newDaemon(t *testing.T) (*daemon.Daemon, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)

	gw := gateway.New(cfg, stubClient{pins: []string{"QmA"}}, store, nil)
	manager := loop.New(cfg, stubSupervisor{}, queueStub{}, stubPublisher{}, nil)

	d, err := daemon.New(cfg, store, gw, manager, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, cfg
}

func TestStartEnforcesSingleInstance(t *testing.T) {
	d, cfg := newDaemon(t)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	store2, err := history.OpenPath(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	defer store2.Close()
	gw2 := gateway.New(cfg, stubClient{}, store2, nil)
	manager2 := loop.New(cfg, stubSupervisor{}, queueStub{}, stubPublisher{}, nil)
	second, err := daemon.New(cfg, store2, gw2, manager2, nil)
	if err != nil {
		t.Fatalf("New second: %v", err)
	}

	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance must not start while lock is held")
	}
}

func TestStatusReportsRuntime(t *testing.T) {
	d, _ := newDaemon(t)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	status := d.Status(context.Background())
	if !status.Running {
		t.Fatal("status not running")
	}
	if status.PID != os.Getpid() {
		t.Fatalf("pid = %d", status.PID)
	}
	if status.LockPath == "" || status.HistoryDBPath == "" {
		t.Fatalf("paths missing: %+v", status)
	}
}

func TestQueueAddWritesQueueFile(t *testing.T) {
	d, cfg := newDaemon(t)

	if err := d.QueueAdd("QmQueued", "ab12"); err != nil {
		t.Fatalf("QueueAdd: %v", err)
	}
	body, err := os.ReadFile(cfg.CommandQueuePath())
	if err != nil {
		t.Fatalf("read queue file: %v", err)
	}
	if !strings.Contains(string(body), "QmQueued ab12") {
		t.Fatalf("queue file = %q", body)
	}
}

func TestTestNotificationWithoutTopic(t *testing.T) {
	d, _ := newDaemon(t)

	sent, message, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if sent {
		t.Fatal("must not report sent without a topic")
	}
	if !strings.Contains(message, "not configured") {
		t.Fatalf("message = %q", message)
	}
}

func TestStopReleasesLockAndCallsShutdown(t *testing.T) {
	d, cfg := newDaemon(t)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	d.Stop()

	// Lock must be reacquirable after stop.
	store, err := history.OpenPath(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	defer store.Close()
	gw := gateway.New(cfg, stubClient{}, store, nil)
	manager := loop.New(cfg, stubSupervisor{}, queueStub{}, stubPublisher{}, nil)

	shutdowns := 0
	next, err := daemon.New(cfg, store, gw, manager, nil,
		daemon.WithShutdown(func() { shutdowns++ }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := next.Start(context.Background()); err != nil {
		t.Fatalf("restart after stop: %v", err)
	}
	next.Stop()
	if shutdowns != 1 {
		t.Fatalf("shutdown callbacks = %d, want 1", shutdowns)
	}
}
