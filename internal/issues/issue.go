package issues

import (
	"fmt"
	"strings"

	"github.com/roach88/metricq/internal/patterns"
	"github.com/roach88/metricq/internal/resolution"
	"github.com/roach88/metricq/internal/specs"
)

// IssueType classifies issues. Errors prevent the query from being resolved.
type IssueType string

const TypeError IssueType = "ERROR"

// Input is the resolver input an issue is attributed to.
type Input interface {
	UIDescription() string
}

// NamedInput is an input parsed from a user-supplied name. Its renderer
// spells candidate specs the way the user wrote the input.
type NamedInput interface {
	Input
	Pattern() patterns.SpecPattern
	Renderer() patterns.InputRenderer
}

// Issue is a single problem found during resolution.
type Issue interface {
	Type() IssueType
	ParentIssues() []Issue
	Path() resolution.Path
	// UIDescription explains the issue to a user. input may be nil.
	UIDescription(input Input) string
	// WithPathPrefix returns the issue re-rooted at n.
	WithPathPrefix(n *resolution.Node) Issue
}

type base struct {
	parents []Issue
	path    resolution.Path
}

func (b base) Type() IssueType       { return TypeError }
func (b base) ParentIssues() []Issue { return b.parents }
func (b base) Path() resolution.Path { return b.path }

func (b base) prefixed(n *resolution.Node) base {
	parents := make([]Issue, len(b.parents))
	for i, p := range b.parents {
		parents[i] = p.WithPathPrefix(n)
	}
	return base{parents: parents, path: b.path.WithPrefix(n)}
}

// lastNodeDescription describes the node an issue was found at.
func (b base) lastNodeDescription() string {
	if last := b.path.Last(); last != nil {
		return last.UIDescription()
	}
	return "the query"
}

// renderSpecs spells specs with the input's naming scheme when it has one.
func renderSpecs(input Input, in []specs.LinkableSpec) []string {
	var renderer patterns.InputRenderer
	if named, ok := input.(NamedInput); ok {
		renderer = named.Renderer()
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if renderer != nil {
			if name, ok := renderer.InputStr(s); ok {
				out = append(out, name)
			}
			continue
		}
		out = append(out, s.String())
	}
	return out
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteString("[\n")
	for _, it := range items {
		fmt.Fprintf(&b, "  '%s',\n", it)
	}
	b.WriteString("]")
	return b.String()
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
