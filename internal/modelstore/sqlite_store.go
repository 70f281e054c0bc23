// Package modelstore keeps exported model documents in SQLite.
package modelstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	apperrors "github.com/anime-shed/ai-detector-go/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS model_snapshots (
	snapshot_id  TEXT PRIMARY KEY,
	note         TEXT NOT NULL DEFAULT '',
	model_json   TEXT NOT NULL,
	ai_count     INTEGER NOT NULL,
	real_count   INTEGER NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshot_restores (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	snapshot_id  TEXT NOT NULL,
	restored_at  TEXT NOT NULL,
	FOREIGN KEY (snapshot_id) REFERENCES model_snapshots(snapshot_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_snapshots_created ON model_snapshots(created_at);
`

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Snapshot is one stored model. Model is empty in List results.
type Snapshot struct {
	ID        string    `json:"id"`
	Note      string    `json:"note,omitempty"`
	AICount   int       `json:"aiImagesCount"`
	RealCount int       `json:"realImagesCount"`
	CreatedAt time.Time `json:"createdAt"`
	Restores  int       `json:"restores"`
	Model     []byte    `json:"-"`
}

// Store manages model snapshots in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Pragmas are per connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores an exported model document.
func (s *Store) Save(ctx context.Context, note string, model []byte, aiCount, realCount int) (Snapshot, error) {
	snap := Snapshot{
		ID:        uuid.New().String(),
		Note:      note,
		AICount:   aiCount,
		RealCount: realCount,
		CreatedAt: s.now().UTC(),
		Model:     model,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO model_snapshots (snapshot_id, note, model_json, ai_count, real_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		snap.ID, note, string(model), aiCount, realCount, snap.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return Snapshot{}, apperrors.NewInternalError("failed to save snapshot", err)
	}
	return snap, nil
}

// List returns up to limit snapshots, newest first, without model bodies.
func (s *Store) List(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.snapshot_id, s.note, s.ai_count, s.real_count, s.created_at,
		        (SELECT COUNT(*) FROM snapshot_restores r WHERE r.snapshot_id = s.snapshot_id)
		 FROM model_snapshots s
		 ORDER BY s.created_at DESC, s.rowid DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list snapshots", err)
	}
	defer rows.Close()

	out := []Snapshot{}
	for rows.Next() {
		var snap Snapshot
		var created string
		if err := rows.Scan(&snap.ID, &snap.Note, &snap.AICount, &snap.RealCount, &created, &snap.Restores); err != nil {
			return nil, apperrors.NewInternalError("failed to read snapshot", err)
		}
		if snap.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, apperrors.NewInternalError("bad snapshot timestamp", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to list snapshots", err)
	}
	return out, nil
}

// Get returns one snapshot with its model body.
func (s *Store) Get(ctx context.Context, id string) (Snapshot, error) {
	var snap Snapshot
	var model, created string
	err := s.db.QueryRowContext(ctx,
		`SELECT s.snapshot_id, s.note, s.model_json, s.ai_count, s.real_count, s.created_at,
		        (SELECT COUNT(*) FROM snapshot_restores r WHERE r.snapshot_id = s.snapshot_id)
		 FROM model_snapshots s WHERE s.snapshot_id = ?`, id,
	).Scan(&snap.ID, &snap.Note, &model, &snap.AICount, &snap.RealCount, &created, &snap.Restores)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, apperrors.NewNotFoundError("snapshot not found: "+id, err)
	}
	if err != nil {
		return Snapshot{}, apperrors.NewInternalError("failed to read snapshot", err)
	}
	if snap.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return Snapshot{}, apperrors.NewInternalError("bad snapshot timestamp", err)
	}
	snap.Model = []byte(model)
	return snap, nil
}

// RecordRestore notes that a snapshot was applied to the live session.
func (s *Store) RecordRestore(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshot_restores (snapshot_id, restored_at) VALUES (?, ?)`,
		id, s.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return apperrors.NewInternalError("failed to record restore", err)
	}
	return nil
}

// Delete removes a snapshot and its restore history.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM model_snapshots WHERE snapshot_id = ?`, id)
	if err != nil {
		return apperrors.NewInternalError("failed to delete snapshot", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewNotFoundError("snapshot not found: "+id, nil)
	}
	return nil
}
