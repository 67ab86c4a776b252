package harness

import (
	"github.com/roach88/metricq/internal/ir"
	"github.com/roach88/metricq/internal/store"
)

// CaseResult is the outcome of one case.
type CaseResult struct {
	Name   string
	Seq    int64
	Status store.Status
	// Spec is the encoded query spec of a resolved case.
	Spec        ir.Object
	Fingerprint string
	Metrics     []string
	GroupBy     []string
	Issues      []store.IssueRecord
	// Errors lists the failed expectations.
	Errors []string
}

// Pass reports whether every expectation held.
func (c CaseResult) Pass() bool { return len(c.Errors) == 0 }

// Result is the outcome of a scenario.
type Result struct {
	Scenario string
	RunID    string
	Cases    []CaseResult
}

// Pass reports whether every case passed.
func (r *Result) Pass() bool {
	for _, c := range r.Cases {
		if !c.Pass() {
			return false
		}
	}
	return true
}

// Errors returns the failed expectations prefixed with their case name.
func (r *Result) Errors() []string {
	out := []string{}
	for _, c := range r.Cases {
		for _, e := range c.Errors {
			out = append(out, c.Name+": "+e)
		}
	}
	return out
}
