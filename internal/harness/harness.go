package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/metricq/internal/compiler"
	"github.com/roach88/metricq/internal/ir"
	"github.com/roach88/metricq/internal/manifest"
	"github.com/roach88/metricq/internal/naming"
	"github.com/roach88/metricq/internal/query"
	"github.com/roach88/metricq/internal/specs"
	"github.com/roach88/metricq/internal/store"
)

// Option configures Run.
type Option func(*config)

type config struct {
	logger *slog.Logger
	lookup *manifest.Lookup
}

// WithLogger sets the logger passed to the resolver and the recorder.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithLookup resolves against l instead of compiling the scenario's
// manifest directory.
func WithLookup(l *manifest.Lookup) Option {
	return func(c *config) {
		c.lookup = l
	}
}

// Run resolves every case of scenario and checks its expectations. Failed
// expectations are reported in the result; the error is only for scenarios
// that cannot run, such as an invalid manifest.
//
// Each run uses a fresh in-memory history store.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	lookup := cfg.lookup
	if lookup == nil {
		var err error
		if lookup, err = compiler.LoadLookup(scenario.Manifest); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
	}
	parser := query.NewParser(query.NewResolver(lookup, query.WithLogger(cfg.logger)))

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	recorder, err := store.NewRecorder(ctx, st,
		store.WithRunIDGenerator(store.NewFixedGenerator(scenario.Name)),
		store.WithLogger(cfg.logger))
	if err != nil {
		return nil, err
	}

	result := &Result{Scenario: scenario.Name, RunID: recorder.RunID()}
	for _, c := range scenario.Cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cr, err := runCase(ctx, parser, recorder, c)
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", c.Name, err)
		}
		result.Cases = append(result.Cases, cr)
	}
	return result, nil
}

func runCase(ctx context.Context, parser *query.Parser, recorder *store.Recorder, c Case) (CaseResult, error) {
	res, resolveErr := parser.ParseAndResolve(c.Request)
	entry, err := recorder.Record(ctx, c.Request, res, resolveErr)
	if err != nil {
		return CaseResult{}, err
	}

	cr := CaseResult{
		Name:        c.Name,
		Seq:         entry.Seq,
		Status:      entry.Status,
		Fingerprint: entry.Fingerprint,
		Issues:      entry.Issues,
		Errors:      []string{},
	}
	if entry.Status == store.StatusResolved {
		spec := res.QuerySpec
		if cr.Spec, err = ir.QuerySpecValue(spec); err != nil {
			return CaseResult{}, err
		}
		cr.Metrics = spec.MetricNames()
		for _, s := range spec.LinkableSpecs() {
			cr.GroupBy = append(cr.GroupBy, ItemName(s))
		}
	}

	if c.Expect != nil {
		cr.Errors = append(cr.Errors, CheckExpect(*c.Expect, cr)...)
	}
	return cr, nil
}

// ItemName renders a group-by item the way a user would write it: in dunder
// form when it has one, otherwise in object form.
func ItemName(s specs.LinkableSpec) string {
	if name, ok := (naming.DunderScheme{}).InputStr(s); ok {
		return name
	}
	if name, ok := (naming.ObjectScheme{}).InputStr(s); ok {
		return name
	}
	return s.String()
}
