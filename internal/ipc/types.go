package ipc

import "time"

// StatusRequest asks for the agent snapshot.
type StatusRequest struct{}

// StatusResponse reports the running agent.
type StatusResponse struct {
	Running       bool   `json:"running"`
	PID           int    `json:"pid"`
	Phase         string `json:"phase"`
	Cycle         uint64 `json:"cycle"`
	DaemonStarted bool   `json:"daemon_started"`
	PeerID        string `json:"peer_id,omitempty"`
	Multiaddress  string `json:"multiaddress,omitempty"`
	AgentVersion  string `json:"agent_version,omitempty"`
	LockPath      string `json:"lock_path,omitempty"`
	HistoryDBPath string `json:"history_db_path,omitempty"`
	Uploads       int64  `json:"uploads"`
	Downloads     int64  `json:"downloads"`
	Snapshots     int64  `json:"snapshots"`
}

// StopRequest asks the agent to shut down.
type StopRequest struct{}

// StopResponse acknowledges shutdown.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// CycleRequest asks for an immediate out-of-band cycle.
type CycleRequest struct{}

// CycleResponse acknowledges the cycle trigger.
type CycleResponse struct {
	Triggered bool `json:"triggered"`
}

// QueueAddRequest appends one entry to the command queue.
type QueueAddRequest struct {
	CID    string `json:"cid"`
	Secret string `json:"secret,omitempty"`
}

// QueueAddResponse acknowledges the append.
type QueueAddResponse struct {
	Queued bool `json:"queued"`
}

// Transfer is the wire form of one history row.
type Transfer struct {
	ID        int64     `json:"id"`
	CID       string    `json:"cid"`
	Name      string    `json:"name,omitempty"`
	Direction string    `json:"direction"`
	LocalPath string    `json:"local_path,omitempty"`
	Secret    string    `json:"secret,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TransferListRequest asks for recent transfers.
type TransferListRequest struct {
	Limit int `json:"limit,omitempty"`
}

// TransferListResponse carries recent transfers, newest first.
type TransferListResponse struct {
	Transfers []Transfer `json:"transfers"`
}

// PinListRequest asks for the recursively pinned CIDs.
type PinListRequest struct{}

// PinListResponse carries the pinned CIDs.
type PinListResponse struct {
	Pins []string `json:"pins"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
