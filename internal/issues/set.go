package issues

import (
	"fmt"
	"strings"

	"github.com/roach88/metricq/internal/resolution"
)

// IssueSet is an ordered, immutable collection of issues.
type IssueSet struct {
	issues []Issue
}

// NewIssueSet returns a set holding the given issues.
func NewIssueSet(issues ...Issue) IssueSet {
	return IssueSet{issues: append([]Issue(nil), issues...)}
}

// Issues returns the issues in order.
func (s IssueSet) Issues() []Issue { return append([]Issue(nil), s.issues...) }

// Len returns the number of issues.
func (s IssueSet) Len() int { return len(s.issues) }

// HasIssues reports whether the set is non-empty.
func (s IssueSet) HasIssues() bool { return len(s.issues) > 0 }

// Errors returns the issues of type error.
func (s IssueSet) Errors() []Issue {
	var out []Issue
	for _, i := range s.issues {
		if i.Type() == TypeError {
			out = append(out, i)
		}
	}
	return out
}

// HasErrors reports whether any issue is an error.
func (s IssueSet) HasErrors() bool { return len(s.Errors()) > 0 }

// Add returns a set with issue appended.
func (s IssueSet) Add(issue Issue) IssueSet {
	return s.Merge(NewIssueSet(issue))
}

// Merge concatenates the sets, s first.
func (s IssueSet) Merge(others ...IssueSet) IssueSet {
	n := len(s.issues)
	for _, o := range others {
		n += len(o.issues)
	}
	out := make([]Issue, 0, n)
	out = append(out, s.issues...)
	for _, o := range others {
		out = append(out, o.issues...)
	}
	return IssueSet{issues: out}
}

// WithPathPrefix re-roots every issue at n.
func (s IssueSet) WithPathPrefix(n *resolution.Node) IssueSet {
	out := make([]Issue, len(s.issues))
	for i, issue := range s.issues {
		out[i] = issue.WithPathPrefix(n)
	}
	return IssueSet{issues: out}
}

// MappingItem attributes an issue set to the input that caused it.
type MappingItem struct {
	Input  Input
	Issues IssueSet
}

// Mapping is an ordered list of input to issue set attributions.
type Mapping struct {
	items []MappingItem
}

// NewMapping builds a mapping, dropping items without issues.
func NewMapping(items ...MappingItem) Mapping {
	var m Mapping
	for _, it := range items {
		if it.Issues.HasIssues() {
			m.items = append(m.items, it)
		}
	}
	return m
}

// Items returns the mapping items in order.
func (m Mapping) Items() []MappingItem { return append([]MappingItem(nil), m.items...) }

// HasErrors reports whether any item has an error.
func (m Mapping) HasErrors() bool {
	for _, it := range m.items {
		if it.Issues.HasErrors() {
			return true
		}
	}
	return false
}

// HasIssues reports whether the mapping is non-empty.
func (m Mapping) HasIssues() bool { return len(m.items) > 0 }

// Merge concatenates the mappings, m first.
func (m Mapping) Merge(others ...Mapping) Mapping {
	out := Mapping{items: append([]MappingItem(nil), m.items...)}
	for _, o := range others {
		out.items = append(out.items, o.items...)
	}
	return out
}

// MergedIssueSet returns every issue of every item in order.
func (m Mapping) MergedIssueSet() IssueSet {
	var out IssueSet
	for _, it := range m.items {
		out = out.Merge(it.Issues)
	}
	return out
}

// Text renders every error for display:
//
//	Error #1:
//	  Input: bookings__nope
//	  Message:
//	    The given input does not match ...
//	  Resolution path:
//	    [Resolve Query(['bookings'])]
func (m Mapping) Text() string {
	var b strings.Builder
	n := 0
	for _, it := range m.items {
		for _, issue := range it.Issues.Errors() {
			n++
			if n > 1 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "Error #%d:\n", n)
			if it.Input != nil {
				fmt.Fprintf(&b, "  Input: %s\n", it.Input.UIDescription())
			}
			b.WriteString("  Message:\n")
			b.WriteString(indent(issue.UIDescription(it.Input), "    "))
			b.WriteString("\n")
			if !issue.Path().IsEmpty() {
				b.WriteString("  Resolution path:\n")
				b.WriteString(indent(issue.Path().UIDescription(), "    "))
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}
