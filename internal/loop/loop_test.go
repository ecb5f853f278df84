package loop_test

import (
	"context"
	"errors"
	"testing"

	"anchorage/internal/commands"
	"anchorage/internal/config"
	"anchorage/internal/loop"
	"anchorage/internal/services"
	"anchorage/internal/supervisor"
)

type fakeSupervisor struct {
	err     error
	started bool
	calls   int
}

func (f *fakeSupervisor) EnsureStarted(context.Context) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.started = true
	return nil
}

func (f *fakeSupervisor) State() supervisor.State {
	return supervisor.State{Started: f.started, PeerID: "12D3KooWNode"}
}

type fakeQueue struct {
	results []commands.EntryResult
	err     error
	calls   int
}

func (f *fakeQueue) ProcessFile(context.Context) ([]commands.EntryResult, error) {
	f.calls++
	return f.results, f.err
}

type fakePublisher struct {
	published bool
	err       error
	calls     int
}

func (f *fakePublisher) MaybePublish(context.Context) (bool, error) {
	f.calls++
	return f.published, f.err
}

type fakeNotifier struct {
	online    int
	queue     int
	snapshots int
}

func (f *fakeNotifier) NodeOnline(context.Context, supervisor.State) { f.online++ }
func (f *fakeNotifier) QueueProcessed(_ context.Context, done, failed int) {
	f.queue++
}
func (f *fakeNotifier) SnapshotPublished(context.Context) { f.snapshots++ }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.CacheDir = t.TempDir()
	return &cfg
}

func TestRunCycleHappyPath(t *testing.T) {
	sup := &fakeSupervisor{}
	queue := &fakeQueue{results: []commands.EntryResult{
		{Entry: commands.Entry{CID: "QmA"}},
		{Entry: commands.Entry{CID: "QmB"}, Err: errors.New("fetch failed")},
	}}
	pub := &fakePublisher{published: true}
	notifier := &fakeNotifier{}

	m := loop.New(testConfig(t), sup, queue, pub, nil, loop.WithNotifier(notifier))
	m.RunCycle(context.Background())

	if sup.calls != 1 || queue.calls != 1 || pub.calls != 1 {
		t.Fatalf("calls: sup=%d queue=%d pub=%d", sup.calls, queue.calls, pub.calls)
	}
	status := m.Status()
	if status.Phase != loop.PhaseRunning {
		t.Fatalf("phase = %q", status.Phase)
	}
	if status.Cycle != 1 {
		t.Fatalf("cycle = %d", status.Cycle)
	}
	if notifier.online != 1 || notifier.queue != 1 || notifier.snapshots != 1 {
		t.Fatalf("notifier = %+v", notifier)
	}
}

func TestRunCycleWaitsForConfiguration(t *testing.T) {
	sup := &fakeSupervisor{err: services.Wrap(services.ErrConfiguration, "swarm", "load", "missing", nil)}
	queue := &fakeQueue{}
	pub := &fakePublisher{}

	m := loop.New(testConfig(t), sup, queue, pub, nil)
	m.RunCycle(context.Background())

	if queue.calls != 0 || pub.calls != 0 {
		t.Fatal("queue and publisher must not run without a started daemon")
	}
	if got := m.Status().Phase; got != loop.PhaseWaitingForConfig {
		t.Fatalf("phase = %q", got)
	}
}

func TestRunCycleRetriesBringUp(t *testing.T) {
	sup := &fakeSupervisor{err: services.Wrap(services.ErrDaemonStart, "supervisor", "probe", "not up", nil)}
	m := loop.New(testConfig(t), sup, &fakeQueue{}, &fakePublisher{}, nil)

	m.RunCycle(context.Background())
	m.RunCycle(context.Background())
	if sup.calls != 2 {
		t.Fatalf("bring-up attempts = %d, want one per cycle", sup.calls)
	}

	// Once bring-up succeeds the phase flips.
	sup.err = nil
	m.RunCycle(context.Background())
	if got := m.Status().Phase; got != loop.PhaseRunning {
		t.Fatalf("phase = %q after recovery", got)
	}
	if got := m.Status().Cycle; got != 3 {
		t.Fatalf("cycle = %d", got)
	}
}

func TestNodeOnlineNotifiedOnce(t *testing.T) {
	sup := &fakeSupervisor{}
	notifier := &fakeNotifier{}
	m := loop.New(testConfig(t), sup, &fakeQueue{}, &fakePublisher{}, nil, loop.WithNotifier(notifier))

	m.RunCycle(context.Background())
	m.RunCycle(context.Background())
	if notifier.online != 1 {
		t.Fatalf("online notifications = %d, want 1", notifier.online)
	}
}

func TestPeerWatcherSpawnedOnce(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workflow.SpawnPeerWatcher = true

	spawns := 0
	m := loop.New(cfg, &fakeSupervisor{}, &fakeQueue{}, &fakePublisher{}, nil,
		loop.WithPeerWatchSpawner(func() error {
			spawns++
			return nil
		}))

	m.RunCycle(context.Background())
	m.RunCycle(context.Background())
	if spawns != 1 {
		t.Fatalf("spawns = %d, want 1", spawns)
	}
}

func TestPeerWatcherEnvOverride(t *testing.T) {
	cfg := testConfig(t)
	t.Setenv(loop.PeerWatchEnv, "1")

	spawns := 0
	m := loop.New(cfg, &fakeSupervisor{}, &fakeQueue{}, &fakePublisher{}, nil,
		loop.WithPeerWatchSpawner(func() error {
			spawns++
			return nil
		}))

	m.RunCycle(context.Background())
	if spawns != 1 {
		t.Fatalf("spawns = %d, want 1 via env override", spawns)
	}
}

func TestPeerWatcherDisabledByDefault(t *testing.T) {
	spawns := 0
	m := loop.New(testConfig(t), &fakeSupervisor{}, &fakeQueue{}, &fakePublisher{}, nil,
		loop.WithPeerWatchSpawner(func() error {
			spawns++
			return nil
		}))

	m.RunCycle(context.Background())
	if spawns != 0 {
		t.Fatal("peer watcher must not spawn unless enabled")
	}
}

func TestQueueFailureDoesNotStopPublish(t *testing.T) {
	queue := &fakeQueue{err: errors.New("lock timeout")}
	pub := &fakePublisher{published: true}
	m := loop.New(testConfig(t), &fakeSupervisor{}, queue, pub, nil)

	m.RunCycle(context.Background())
	if pub.calls != 1 {
		t.Fatal("publisher must run even when the queue drain fails")
	}
}
