package harness

import (
	"fmt"
	"slices"
	"strings"
)

// CheckExpect returns one message per failed expectation. It does not stop
// at the first failure.
func CheckExpect(e Expect, got CaseResult) []string {
	var errs []string

	if e.Status != "" && e.Status != got.Status {
		errs = append(errs, fmt.Sprintf("status: expected %s, got %s%s", e.Status, got.Status, issueSuffix(got)))
	}

	for _, want := range e.Issues {
		if !hasIssueContaining(got, want) {
			errs = append(errs, fmt.Sprintf("issues: no issue contains %q%s", want, issueSuffix(got)))
		}
	}

	if e.Metrics != nil && !slices.Equal(e.Metrics, got.Metrics) {
		errs = append(errs, fmt.Sprintf("metrics: expected %v, got %v", e.Metrics, got.Metrics))
	}

	if e.GroupBy != nil && !slices.Equal(e.GroupBy, got.GroupBy) {
		errs = append(errs, fmt.Sprintf("group_by: expected %v, got %v", e.GroupBy, got.GroupBy))
	}

	return errs
}

func hasIssueContaining(got CaseResult, substr string) bool {
	for _, issue := range got.Issues {
		if strings.Contains(issue.Message, substr) {
			return true
		}
	}
	return false
}

func issueSuffix(got CaseResult) string {
	if len(got.Issues) == 0 {
		return ""
	}
	msgs := make([]string, len(got.Issues))
	for i, issue := range got.Issues {
		msgs[i] = issue.Input + ": " + issue.Message
	}
	return " (" + strings.Join(msgs, "; ") + ")"
}
