package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"anchorage/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; operators clear the database after a bump.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by a different
// release.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store manages history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database under the log
// directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LogDir, "history.db"))
}

// OpenPath opens a history database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// RecordTransfer appends one transfer row and returns it with the assigned ID
// and timestamp.
func (s *Store) RecordTransfer(ctx context.Context, transfer Transfer) (Transfer, error) {
	if transfer.CID == "" {
		return Transfer{}, errors.New("transfer requires a CID")
	}
	switch transfer.Direction {
	case DirectionUpload, DirectionDownload:
	default:
		return Transfer{}, fmt.Errorf("unknown transfer direction %q", transfer.Direction)
	}
	if transfer.CreatedAt.IsZero() {
		transfer.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transfers (cid, name, direction, local_path, secret, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		transfer.CID, transfer.Name, string(transfer.Direction), transfer.LocalPath,
		transfer.Secret, transfer.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Transfer{}, fmt.Errorf("insert transfer: %w", err)
	}
	transfer.ID, err = res.LastInsertId()
	if err != nil {
		return Transfer{}, fmt.Errorf("transfer id: %w", err)
	}
	return transfer, nil
}

// RecordSnapshot appends one snapshot publication row.
func (s *Store) RecordSnapshot(ctx context.Context, snapshot Snapshot) (Snapshot, error) {
	if snapshot.CID == "" {
		return Snapshot{}, errors.New("snapshot requires a CID")
	}
	if snapshot.PublishedAt.IsZero() {
		snapshot.PublishedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (cid, secret, peer_id, published_at) VALUES (?, ?, ?, ?)`,
		snapshot.CID, snapshot.Secret, snapshot.PeerID,
		snapshot.PublishedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Snapshot{}, fmt.Errorf("insert snapshot: %w", err)
	}
	snapshot.ID, err = res.LastInsertId()
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot id: %w", err)
	}
	return snapshot, nil
}

// Transfers returns the most recent transfers, newest first. A zero or
// negative limit returns everything.
func (s *Store) Transfers(ctx context.Context, limit int) ([]Transfer, error) {
	query := `SELECT id, cid, name, direction, local_path, secret, created_at
		FROM transfers ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer rows.Close()

	var transfers []Transfer
	for rows.Next() {
		var t Transfer
		var direction, createdAt string
		if err := rows.Scan(&t.ID, &t.CID, &t.Name, &direction, &t.LocalPath, &t.Secret, &createdAt); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		t.Direction = Direction(direction)
		if t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse transfer timestamp: %w", err)
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

// Snapshots returns the most recent snapshot publications, newest first.
func (s *Store) Snapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	query := `SELECT id, cid, secret, peer_id, published_at FROM snapshots ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var snap Snapshot
		var publishedAt string
		if err := rows.Scan(&snap.ID, &snap.CID, &snap.Secret, &snap.PeerID, &publishedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		if snap.PublishedAt, err = time.Parse(time.RFC3339Nano, publishedAt); err != nil {
			return nil, fmt.Errorf("parse snapshot timestamp: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// Stats aggregates row counts for status reporting.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(1) FROM transfers WHERE direction = 'upload'),
			(SELECT COUNT(1) FROM transfers WHERE direction = 'download'),
			(SELECT COUNT(1) FROM snapshots)`,
	).Scan(&stats.Uploads, &stats.Downloads, &stats.Snapshots)
	if err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	return stats, nil
}
