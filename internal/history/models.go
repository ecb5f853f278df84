package history

import "time"

// Direction of a transfer through the gateway.
type Direction string

const (
	DirectionUpload   Direction = "upload"
	DirectionDownload Direction = "download"
)

// Transfer is one object that moved through the gateway.
type Transfer struct {
	ID        int64
	CID       string
	Name      string
	Direction Direction
	LocalPath string
	Secret    string
	CreatedAt time.Time
}

// Snapshot is one published status document.
type Snapshot struct {
	ID          int64
	CID         string
	Secret      string
	PeerID      string
	PublishedAt time.Time
}

// Stats aggregates history counts for status reporting.
type Stats struct {
	Uploads   int64
	Downloads int64
	Snapshots int64
}
