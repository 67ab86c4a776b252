package store

import (
	"context"
	"fmt"
)

// RecordResolution inserts e. Writing the same entry ID twice is a no-op;
// reusing a (run, seq) pair for a different entry is an error.
func (s *Store) RecordResolution(ctx context.Context, e Entry) error {
	issuesJSON, err := marshalIssues(e.Issues)
	if err != nil {
		return fmt.Errorf("record resolution: %w", err)
	}
	requestJSON, err := marshalRequest(e.Request)
	if err != nil {
		return fmt.Errorf("record resolution: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO resolutions
		(id, run_id, seq, name, request, request_json, request_hash, status, fingerprint, spec, issues)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		e.ID,
		e.RunID,
		e.Seq,
		e.Request.Name,
		e.RequestText,
		requestJSON,
		e.RequestHash,
		string(e.Status),
		e.Fingerprint,
		e.Spec,
		issuesJSON,
	)
	if err != nil {
		return fmt.Errorf("record resolution: %w", err)
	}
	return nil
}
