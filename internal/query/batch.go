package query

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds ResolveBatch when the caller passes zero.
const DefaultConcurrency = 8

// BatchResult is the outcome of one request of a batch. Err is set only for
// requests that could not be parsed, such as an unknown saved query.
type BatchResult struct {
	Request    Request
	Resolution Resolution
	Err        error
}

// ResolveBatch resolves independent requests in parallel, at most
// concurrency at a time. Results are in request order. A failed request does
// not stop the others; only cancellation of ctx does.
func ResolveBatch(ctx context.Context, parser *Parser, requests []Request, concurrency int) ([]BatchResult, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	results := make([]BatchResult, len(requests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := range requests {
		req := requests[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := parser.ParseAndResolve(req)
			results[i] = BatchResult{Request: req, Resolution: res, Err: err}
			parser.resolver.debug("batch request resolved", "index", i, "request", req.String(), "errors", res.HasErrors())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve batch: %w", err)
	}
	return results, nil
}
