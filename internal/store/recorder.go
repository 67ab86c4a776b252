package store

import (
	"context"
	"io"
	"log/slog"

	"github.com/roach88/metricq/internal/query"
)

// Recorder writes the resolutions of one run, numbering them with its
// clock. It is safe for concurrent use.
type Recorder struct {
	store  *Store
	runID  string
	clock  *Clock
	logger *slog.Logger
}

// RecorderOption configures a Recorder.
type RecorderOption func(*recorderConfig)

type recorderConfig struct {
	runIDs RunIDGenerator
	runID  string
	logger *slog.Logger
}

// WithRunIDGenerator sets how the run ID of a new run is made.
func WithRunIDGenerator(g RunIDGenerator) RecorderOption {
	return func(c *recorderConfig) {
		c.runIDs = g
	}
}

// WithRunID appends to an existing run instead of starting a new one.
func WithRunID(id string) RecorderOption {
	return func(c *recorderConfig) {
		c.runID = id
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RecorderOption {
	return func(c *recorderConfig) {
		c.logger = l
	}
}

// NewRecorder starts a run on s, or continues one given WithRunID.
func NewRecorder(ctx context.Context, s *Store, opts ...RecorderOption) (*Recorder, error) {
	cfg := recorderConfig{
		runIDs: UUIDv7Generator{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Recorder{store: s, logger: cfg.logger}
	if cfg.runID == "" {
		r.runID = cfg.runIDs.Generate()
		r.clock = NewClock()
		return r, nil
	}

	last, err := s.LastSeq(ctx, cfg.runID)
	if err != nil {
		return nil, err
	}
	r.runID = cfg.runID
	r.clock = NewClockAt(last)
	return r, nil
}

// RunID returns the ID of the run being recorded.
func (r *Recorder) RunID() string { return r.runID }

// Record stores one resolution and returns its entry.
func (r *Recorder) Record(ctx context.Context, req query.Request, res query.Resolution, resolveErr error) (Entry, error) {
	e, err := NewEntry(r.runID, r.clock.Next(), req, res, resolveErr)
	if err != nil {
		return Entry{}, err
	}
	if err := r.store.RecordResolution(ctx, e); err != nil {
		return Entry{}, err
	}
	r.logger.Info("resolution recorded", "run_id", e.RunID, "seq", e.Seq, "status", e.Status, "fingerprint", e.Fingerprint)
	return e, nil
}
