// Package archive is the persistence collaborator: an observer of the
// broadcast stream that records every turn and summary to sqlite, and the sink
// for generated artifacts. The core never depends on it; losing the archive
// loses history durability, not the conversation.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/orchestraai/orchestra/internal/conversation"
)

const schema = `
CREATE TABLE IF NOT EXISTS turns (
	id         TEXT PRIMARY KEY,
	role       TEXT NOT NULL,
	kind       TEXT NOT NULL,
	content    TEXT NOT NULL,
	ts_unix_ns INTEGER NOT NULL,
	metadata   TEXT
);
CREATE INDEX IF NOT EXISTS idx_turns_ts ON turns(ts_unix_ns);

CREATE TABLE IF NOT EXISTS summaries (
	seq        INTEGER PRIMARY KEY,
	content    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS artifacts (
	path       TEXT PRIMARY KEY,
	checksum   TEXT NOT NULL,
	size_bytes INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
`

// Store is the sqlite-backed archive.
type Store struct {
	db        *sql.DB
	artifacts *ArtifactStore
}

// Open opens (or creates) the archive database at path and applies the schema.
func Open(path string, artifacts *ArtifactStore) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	// Single writer; sqlite serializes the rest.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return &Store{db: db, artifacts: artifacts}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordTurn persists one turn. Duplicate ids are ignored: the broadcast
// stream is at-most-once per observer, but a catch-up burst can replay.
func (s *Store) RecordTurn(ctx context.Context, t conversation.Turn) error {
	var meta any
	if len(t.Metadata) > 0 {
		b, err := json.Marshal(t.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		meta = string(b)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO turns (id, role, kind, content, ts_unix_ns, metadata) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, string(t.Role), string(t.Kind), t.Content, t.Timestamp.UnixNano(), meta)
	if err != nil {
		return fmt.Errorf("record turn: %w", err)
	}
	return nil
}

// RecordSummary persists one summary, keyed by its sequence marker.
func (s *Store) RecordSummary(ctx context.Context, sum conversation.Summary) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO summaries (seq, content, created_at) VALUES (?, ?, ?)`,
		sum.Seq, sum.Content, sum.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("record summary: %w", err)
	}
	return nil
}

// TurnCount reports how many turns have been archived.
func (s *Store) TurnCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM turns`).Scan(&n)
	return n, err
}

// Summaries returns all archived summaries in sequence order.
func (s *Store) Summaries(ctx context.Context) ([]conversation.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seq, content, created_at FROM summaries ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []conversation.Summary
	for rows.Next() {
		var sum conversation.Summary
		var createdAt int64
		if err := rows.Scan(&sum.Seq, &sum.Content, &createdAt); err != nil {
			return nil, err
		}
		sum.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}

// SaveArtifact writes an artifact through the artifact store and records its
// checksum row.
func (s *Store) SaveArtifact(ctx context.Context, relPath string, data []byte) (Artifact, error) {
	art, err := s.artifacts.Save(relPath, data)
	if err != nil {
		return Artifact{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO artifacts (path, checksum, size_bytes, created_at) VALUES (?, ?, ?, ?)`,
		art.Path, art.Checksum, art.Size, art.CreatedAt.Unix())
	if err != nil {
		return Artifact{}, fmt.Errorf("record artifact: %w", err)
	}
	return art, nil
}
