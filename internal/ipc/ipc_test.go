package ipc_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"anchorage/internal/history"
	"anchorage/internal/ipc"
)

type fakeAgent struct {
	status    ipc.StatusResponse
	stopped   bool
	cycles    int
	queued    [][2]string
	queueErr  error
	transfers []history.Transfer
	pins      []string
	notifyErr error
}

func (f *fakeAgent) Status(context.Context) ipc.StatusResponse { return f.status }
func (f *fakeAgent) Stop()                                     { f.stopped = true }
func (f *fakeAgent) TriggerCycle()                             { f.cycles++ }

func (f *fakeAgent) QueueAdd(cid, secret string) error {
	if f.queueErr != nil {
		return f.queueErr
	}
	f.queued = append(f.queued, [2]string{cid, secret})
	return nil
}

func (f *fakeAgent) Transfers(_ context.Context, limit int) ([]history.Transfer, error) {
	if limit > 0 && limit < len(f.transfers) {
		return f.transfers[:limit], nil
	}
	return f.transfers, nil
}

func (f *fakeAgent) Pins(context.Context) ([]string, error) { return f.pins, nil }

func (f *fakeAgent) TestNotification(context.Context) (bool, string, error) {
	if f.notifyErr != nil {
		return false, "delivery failed", f.notifyErr
	}
	return true, "test notification sent", nil
}

func startServer(t *testing.T, agent *fakeAgent) *ipc.Client {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "anchorage.sock")

	server, err := ipc.NewServer(context.Background(), socket, agent, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	server.Serve()
	t.Cleanup(server.Close)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestStatusRoundTrip(t *testing.T) {
	agent := &fakeAgent{status: ipc.StatusResponse{
		Running:       true,
		Phase:         "running",
		Cycle:         7,
		DaemonStarted: true,
		PeerID:        "12D3KooWNode",
	}}
	client := startServer(t, agent)

	resp, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !resp.Running || resp.Cycle != 7 || resp.PeerID != "12D3KooWNode" {
		t.Fatalf("status = %+v", resp)
	}
}

func TestStopAndCycle(t *testing.T) {
	agent := &fakeAgent{}
	client := startServer(t, agent)

	stop, err := client.Stop()
	if err != nil || !stop.Stopped {
		t.Fatalf("Stop: resp=%+v err=%v", stop, err)
	}
	if !agent.stopped {
		t.Fatal("agent not stopped")
	}

	cycle, err := client.Cycle()
	if err != nil || !cycle.Triggered {
		t.Fatalf("Cycle: resp=%+v err=%v", cycle, err)
	}
	if agent.cycles != 1 {
		t.Fatalf("cycles = %d", agent.cycles)
	}
}

func TestQueueAdd(t *testing.T) {
	agent := &fakeAgent{}
	client := startServer(t, agent)

	resp, err := client.QueueAdd("QmA", "ab12")
	if err != nil || !resp.Queued {
		t.Fatalf("QueueAdd: resp=%+v err=%v", resp, err)
	}
	if len(agent.queued) != 1 || agent.queued[0] != [2]string{"QmA", "ab12"} {
		t.Fatalf("queued = %v", agent.queued)
	}
}

func TestQueueAddError(t *testing.T) {
	agent := &fakeAgent{queueErr: errors.New("cid required")}
	client := startServer(t, agent)

	if _, err := client.QueueAdd("", ""); err == nil {
		t.Fatal("expected error from agent")
	}
}

func TestTransferList(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	agent := &fakeAgent{transfers: []history.Transfer{
		{ID: 2, CID: "QmB", Direction: history.DirectionDownload, CreatedAt: now},
		{ID: 1, CID: "QmA", Direction: history.DirectionUpload, CreatedAt: now},
	}}
	client := startServer(t, agent)

	resp, err := client.TransferList(0)
	if err != nil {
		t.Fatalf("TransferList: %v", err)
	}
	if len(resp.Transfers) != 2 {
		t.Fatalf("transfers = %+v", resp.Transfers)
	}
	if resp.Transfers[0].CID != "QmB" || resp.Transfers[0].Direction != "download" {
		t.Fatalf("first transfer = %+v", resp.Transfers[0])
	}
	if !resp.Transfers[0].CreatedAt.Equal(now) {
		t.Fatalf("timestamp = %v, want %v", resp.Transfers[0].CreatedAt, now)
	}

	limited, err := client.TransferList(1)
	if err != nil {
		t.Fatalf("TransferList limited: %v", err)
	}
	if len(limited.Transfers) != 1 {
		t.Fatalf("limit ignored: %+v", limited.Transfers)
	}
}

func TestPinListAndNotification(t *testing.T) {
	agent := &fakeAgent{pins: []string{"QmA", "QmB"}}
	client := startServer(t, agent)

	pins, err := client.PinList()
	if err != nil {
		t.Fatalf("PinList: %v", err)
	}
	if len(pins.Pins) != 2 {
		t.Fatalf("pins = %v", pins.Pins)
	}

	note, err := client.TestNotification()
	if err != nil || !note.Sent {
		t.Fatalf("TestNotification: resp=%+v err=%v", note, err)
	}
}
