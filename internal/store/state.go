package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/deployfin/internal/canon"
	"github.com/roach88/deployfin/internal/lifecycle"
)

// ErrChecksumMismatch is returned by Load when the stored blob does not
// match its checksum.
var ErrChecksumMismatch = errors.New("state checksum mismatch")

// Revision describes one saved state.
type Revision struct {
	Revision int64     `json:"revision"`
	Checksum string    `json:"checksum"`
	Size     int       `json:"size"`
	SavedAt  time.Time `json:"saved_at"`
}

// marshalState encodes state as canonical JSON.
func marshalState(st *lifecycle.State) ([]byte, error) {
	raw, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	data, err := canon.Canonicalize(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize state: %w", err)
	}
	return data, nil
}

// unmarshalState decodes a blob after verifying its checksum.
func unmarshalState(data []byte, checksum string) (*lifecycle.State, error) {
	if got := canon.Checksum(data); got != checksum {
		return nil, fmt.Errorf("%w: stored %s, computed %s", ErrChecksumMismatch, checksum, got)
	}
	var st lifecycle.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &st, nil
}

// Load returns the latest state, or (nil, nil) if none has been saved.
func (s *Store) Load(ctx context.Context) (*lifecycle.State, error) {
	var (
		payload  []byte
		checksum string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, checksum FROM engine_state WHERE id = 1`,
	).Scan(&payload, &checksum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	st, err := unmarshalState(payload, checksum)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	return st, nil
}

// Save replaces the stored state and logs a new revision. Both writes
// happen in one transaction.
func (s *Store) Save(ctx context.Context, st *lifecycle.State) error {
	data, err := marshalState(st)
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	checksum := canon.Checksum(data)
	savedAt := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save state: begin: %w", err)
	}
	defer tx.Rollback()

	var revision int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(revision), 0) + 1 FROM state_revisions`,
	).Scan(&revision)
	if err != nil {
		return fmt.Errorf("save state: next revision: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO engine_state (id, version, revision, payload, checksum, saved_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			revision = excluded.revision,
			payload = excluded.payload,
			checksum = excluded.checksum,
			saved_at = excluded.saved_at
	`, st.Version, revision, data, checksum, savedAt)
	if err != nil {
		return fmt.Errorf("save state: write: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO state_revisions (revision, checksum, size, saved_at)
		VALUES (?, ?, ?, ?)
	`, revision, checksum, len(data), savedAt)
	if err != nil {
		return fmt.Errorf("save state: log revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save state: commit: %w", err)
	}
	return nil
}

// Revisions returns up to limit of the most recent revisions, newest
// first. A non-positive limit returns all of them.
func (s *Store) Revisions(ctx context.Context, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT revision, checksum, size, saved_at
		FROM state_revisions
		ORDER BY revision DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		var (
			r       Revision
			savedAt string
		)
		if err := rows.Scan(&r.Revision, &r.Checksum, &r.Size, &savedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		r.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt)
		if err != nil {
			return nil, fmt.Errorf("parse saved_at %q: %w", savedAt, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}
	return out, nil
}
