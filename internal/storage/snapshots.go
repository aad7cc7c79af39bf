package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"gitnet/internal/graph"
)

// Snapshot is the last good layout of a repository.
type Snapshot struct {
	RepoPath    string                   `json:"repoPath"`
	HeadHash    string                   `json:"headHash"`
	CommitCount int                      `json:"commitCount"`
	Data        *graph.VisualizationData `json:"data"`
	CreatedAt   time.Time                `json:"createdAt"`
}

// SnapshotStore persists one snapshot per repository as zstd-compressed
// JSON.
type SnapshotStore struct {
	db  *DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewSnapshotStore wraps db.
func NewSnapshotStore(db *DB) (*SnapshotStore, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &SnapshotStore{db: db, enc: enc, dec: dec}, nil
}

// Save replaces the snapshot of snap.RepoPath.
func (s *SnapshotStore) Save(ctx context.Context, snap *Snapshot) error {
	if snap == nil || snap.Data == nil {
		return fmt.Errorf("snapshot has no data")
	}
	raw, err := json.Marshal(snap.Data)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	blob := s.enc.EncodeAll(raw, make([]byte, 0, len(raw)/4))

	createdAt := snap.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO snapshots (repo_path, head_hash, commit_count, data, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(repo_path) DO UPDATE SET
				head_hash = excluded.head_hash,
				commit_count = excluded.commit_count,
				data = excluded.data,
				created_at = excluded.created_at
		`, key(snap.RepoPath), snap.HeadHash, snap.CommitCount, blob, createdAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
		return nil
	})
}

// Load returns the snapshot of repoPath, or nil when none was saved.
func (s *SnapshotStore) Load(ctx context.Context, repoPath string) (*Snapshot, error) {
	var (
		snap      Snapshot
		blob      []byte
		createdAt string
	)
	err := s.db.conn.QueryRowContext(ctx, `
		SELECT repo_path, head_hash, commit_count, data, created_at
		FROM snapshots WHERE repo_path = ?
	`, key(repoPath)).Scan(&snap.RepoPath, &snap.HeadHash, &snap.CommitCount, &blob, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	raw, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}
	snap.Data = &graph.VisualizationData{}
	if err := json.Unmarshal(raw, snap.Data); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		snap.CreatedAt = t
	}
	return &snap, nil
}

// Delete removes the snapshot of repoPath. Deleting a missing snapshot is
// not an error.
func (s *SnapshotStore) Delete(ctx context.Context, repoPath string) error {
	if _, err := s.db.conn.ExecContext(ctx, "DELETE FROM snapshots WHERE repo_path = ?", key(repoPath)); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// Close releases the codecs. The database is closed by its owner.
func (s *SnapshotStore) Close() {
	s.enc.Close()
	s.dec.Close()
}

func key(repoPath string) string {
	if abs, err := filepath.Abs(repoPath); err == nil {
		return abs
	}
	return filepath.Clean(repoPath)
}
