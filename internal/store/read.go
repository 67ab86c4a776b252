package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const selectColumns = `SELECT id, run_id, seq, request, request_json, request_hash, status, fingerprint, spec, issues FROM resolutions`

// ListResolutions returns the entries of one run, or of all runs when runID
// is empty. Runs are ordered by ID, which for UUIDv7 run IDs is creation
// order.
func (s *Store) ListResolutions(ctx context.Context, runID string) ([]Entry, error) {
	if runID == "" {
		return s.queryEntries(ctx, selectColumns+` ORDER BY run_id COLLATE BINARY ASC, seq ASC, id COLLATE BINARY ASC`)
	}
	return s.queryEntries(ctx, selectColumns+` WHERE run_id = ? ORDER BY seq ASC, id COLLATE BINARY ASC`, runID)
}

// ResolutionsByFingerprint returns every resolved entry with the given
// fingerprint, across runs.
func (s *Store) ResolutionsByFingerprint(ctx context.Context, fingerprint string) ([]Entry, error) {
	return s.queryEntries(ctx, selectColumns+` WHERE fingerprint = ? ORDER BY seq ASC, id COLLATE BINARY ASC`, fingerprint)
}

// ResolutionsByRequestHash returns every entry whose request hashes to hash.
func (s *Store) ResolutionsByRequestHash(ctx context.Context, hash string) ([]Entry, error) {
	return s.queryEntries(ctx, selectColumns+` WHERE request_hash = ? ORDER BY seq ASC, id COLLATE BINARY ASC`, hash)
}

// GetResolution returns the entry with the given ID, or ErrNotFound.
func (s *Store) GetResolution(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("get resolution %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get resolution %s: %w", id, err)
	}
	return e, nil
}

// LastSeq returns the highest sequence number of a run, or 0 for an unknown
// run.
func (s *Store) LastSeq(ctx context.Context, runID string) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM resolutions WHERE run_id = ?`, runID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query resolutions: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolutions: %w", err)
	}
	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e                       Entry
		status                  string
		requestJSON, issuesJSON string
	)
	if err := row.Scan(&e.ID, &e.RunID, &e.Seq, &e.RequestText, &requestJSON, &e.RequestHash,
		&status, &e.Fingerprint, &e.Spec, &issuesJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan resolution: %w", err)
	}
	e.Status = Status(status)

	var err error
	if e.Request, err = unmarshalRequest(requestJSON); err != nil {
		return Entry{}, err
	}
	if e.Issues, err = unmarshalIssues(issuesJSON); err != nil {
		return Entry{}, err
	}
	return e, nil
}
