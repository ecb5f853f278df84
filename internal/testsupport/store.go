package testsupport

import (
	"context"
	"testing"

	"anchorage/internal/config"
	"anchorage/internal/history"
)

// MustOpenStore opens a history.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// RecordUpload inserts an upload transfer for tests using the provided store.
func RecordUpload(t testing.TB, store *history.Store, cid, name string) history.Transfer {
	t.Helper()

	transfer, err := store.RecordTransfer(context.Background(), history.Transfer{
		CID:       cid,
		Name:      name,
		Direction: history.DirectionUpload,
	})
	if err != nil {
		t.Fatalf("store.RecordTransfer: %v", err)
	}
	return transfer
}
