package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/metricq/internal/ir"
	"github.com/roach88/metricq/internal/query"
	"github.com/roach88/metricq/internal/testutil"
)

var parser = query.NewParser(query.NewResolver(testutil.SimpleLookup()))

func record(t *testing.T, r *Recorder, req query.Request) Entry {
	t.Helper()
	res, err := parser.ParseAndResolve(req)
	e, err := r.Record(context.Background(), req, res, err)
	require.NoError(t, err)
	return e
}

func newRecorder(t *testing.T, s *Store, runID string) *Recorder {
	t.Helper()
	r, err := NewRecorder(context.Background(), s, WithRunIDGenerator(NewFixedGenerator(runID)))
	require.NoError(t, err)
	return r
}

func TestNewEntry_Statuses(t *testing.T) {
	testCases := []struct {
		name        string
		req         query.Request
		status      Status
		issues      int
		fingerprint bool
	}{
		{name: "resolved", req: query.Request{Metrics: []string{"bookings"}, GroupBy: []string{"metric_time"}}, status: StatusResolved, fingerprint: true},
		{name: "failed", req: query.Request{Metrics: []string{"bookingz"}}, status: StatusFailed, issues: 1},
		{name: "error", req: query.Request{SavedQuery: "nope"}, status: StatusError, issues: 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := parser.ParseAndResolve(tc.req)
			e, err := NewEntry("run", 1, tc.req, res, err)
			require.NoError(t, err)

			assert.Equal(t, tc.status, e.Status)
			assert.Len(t, e.Issues, tc.issues)
			assert.Equal(t, tc.fingerprint, e.Fingerprint != "")
			assert.Equal(t, tc.fingerprint, e.Spec != "")
			assert.Len(t, e.RequestHash, 64)
			assert.Equal(t, tc.req.String(), e.RequestText)
		})
	}
}

func TestNewEntry_FingerprintMatchesIR(t *testing.T) {
	req := query.Request{Metrics: []string{"bookings"}, GroupBy: []string{"metric_time__month"}}
	res, err := parser.ParseAndResolve(req)
	require.NoError(t, err)

	e, err := NewEntry("run", 1, req, res, nil)
	require.NoError(t, err)
	want, err := ir.FingerprintQuerySpec(res.QuerySpec)
	require.NoError(t, err)
	assert.Equal(t, want, e.Fingerprint)
}

func TestNewEntry_IssueText(t *testing.T) {
	req := query.Request{Metrics: []string{"bookings"}, Limit: intPtr(-2)}
	res, err := parser.ParseAndResolve(req)
	require.NoError(t, err)

	e, err := NewEntry("run", 1, req, res, nil)
	require.NoError(t, err)
	assert.Equal(t, []IssueRecord{{Input: "-2", Message: "The limit -2 is not >= 0."}}, e.Issues)
}

func TestRecordResolution_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	r := newRecorder(t, s, "run-a")
	ctx := context.Background()

	want := record(t, r, query.Request{
		Name:    "weekly",
		Metrics: []string{"bookings"},
		GroupBy: []string{"metric_time__week"},
		Where:   []string{"{{ Dimension('booking__is_instant') }}"},
		Limit:   intPtr(3),
	})

	got, err := s.GetResolution(ctx, want.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetResolution() mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordResolution_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	req := query.Request{Metrics: []string{"bookings"}}
	res, err := parser.ParseAndResolve(req)
	require.NoError(t, err)
	e, err := NewEntry("run", 1, req, res, nil)
	require.NoError(t, err)

	require.NoError(t, s.RecordResolution(ctx, e))
	require.NoError(t, s.RecordResolution(ctx, e))

	entries, err := s.ListResolutions(ctx, "run")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	other, err := NewEntry("run", 1, req, res, nil)
	require.NoError(t, err)
	assert.Error(t, s.RecordResolution(ctx, other), "same run and seq with a new id")
}

func TestGetResolution_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.GetResolution(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListResolutions_Empty(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	entries, err := s.ListResolutions(ctx, "")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)

	entries, err = s.ResolutionsByFingerprint(ctx, "nope")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestListResolutions_Ordering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	second := newRecorder(t, s, "run-b")
	first := newRecorder(t, s, "run-a")
	record(t, second, query.Request{Metrics: []string{"bookings"}})
	record(t, first, query.Request{Metrics: []string{"revenue"}})
	record(t, first, query.Request{Metrics: []string{"listings"}})

	all, err := s.ListResolutions(ctx, "")
	require.NoError(t, err)
	var got []string
	for _, e := range all {
		got = append(got, fmt.Sprintf("%s/%d", e.RunID, e.Seq))
	}
	assert.Equal(t, []string{"run-a/1", "run-a/2", "run-b/1"}, got)

	runA, err := s.ListResolutions(ctx, "run-a")
	require.NoError(t, err)
	require.Len(t, runA, 2)
	assert.Equal(t, "metrics=revenue", runA[0].RequestText)
}

func TestResolutionsByFingerprint(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	r := newRecorder(t, s, "run")

	a := record(t, r, query.Request{Metrics: []string{"Bookings"}, GroupBy: []string{"metric_time"}})
	record(t, r, query.Request{Metrics: []string{"revenue"}, GroupBy: []string{"metric_time"}})
	b := record(t, r, query.Request{Metrics: []string{"bookings"}, GroupBy: []string{"metric_time__day"}})
	record(t, r, query.Request{Metrics: []string{"bookingz"}})

	require.Equal(t, a.Fingerprint, b.Fingerprint)
	assert.NotEqual(t, a.RequestHash, b.RequestHash)

	entries, err := s.ResolutionsByFingerprint(ctx, a.Fingerprint)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, a.ID, entries[0].ID)
	assert.Equal(t, b.ID, entries[1].ID)

	byRequest, err := s.ResolutionsByRequestHash(ctx, b.RequestHash)
	require.NoError(t, err)
	require.Len(t, byRequest, 1)
	assert.Equal(t, b.ID, byRequest[0].ID)
}

func TestRecorder_ContinuesRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	r := newRecorder(t, s, "run")
	record(t, r, query.Request{Metrics: []string{"bookings"}})
	record(t, r, query.Request{Metrics: []string{"bookings"}})

	resumed, err := NewRecorder(ctx, s, WithRunID("run"))
	require.NoError(t, err)
	assert.Equal(t, "run", resumed.RunID())
	e := record(t, resumed, query.Request{Metrics: []string{"revenue"}})
	assert.Equal(t, int64(3), e.Seq)
}

func TestRecorder_Concurrent(t *testing.T) {
	s := createTestStore(t)
	r := newRecorder(t, s, "run")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := query.Request{Metrics: []string{"bookings"}, Limit: intPtr(i)}
			res, err := parser.ParseAndResolve(req)
			_, err = r.Record(context.Background(), req, res, err)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := s.ListResolutions(context.Background(), "run")
	require.NoError(t, err)
	require.Len(t, entries, 20)
	for i, e := range entries {
		assert.Equal(t, int64(i+1), e.Seq)
	}
}

func intPtr(n int) *int { return &n }
