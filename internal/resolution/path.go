package resolution

import "strings"

type pathCell struct {
	node *Node
	next *pathCell
}

// Path is an immutable list of nodes from the start of a resolution to the
// node it describes. The zero value is the empty path.
type Path struct {
	head *pathCell
	size int
}

// NewPath returns a path through the given nodes, first node first.
func NewPath(nodes ...*Node) Path {
	var p Path
	for i := len(nodes) - 1; i >= 0; i-- {
		p = p.WithPrefix(nodes[i])
	}
	return p
}

// WithPrefix returns a path that starts at n and continues with p.
// p itself is unchanged and shares its cells with the result.
func (p Path) WithPrefix(n *Node) Path {
	return Path{head: &pathCell{node: n, next: p.head}, size: p.size + 1}
}

// Len returns the number of nodes in the path.
func (p Path) Len() int { return p.size }

// IsEmpty reports whether the path has no nodes.
func (p Path) IsEmpty() bool { return p.size == 0 }

// Nodes returns the nodes, first to last.
func (p Path) Nodes() []*Node {
	out := make([]*Node, 0, p.size)
	for c := p.head; c != nil; c = c.next {
		out = append(out, c.node)
	}
	return out
}

// First returns the first node, or nil for the empty path.
func (p Path) First() *Node {
	if p.head == nil {
		return nil
	}
	return p.head.node
}

// Last returns the last node, or nil for the empty path.
func (p Path) Last() *Node {
	var last *Node
	for c := p.head; c != nil; c = c.next {
		last = c.node
	}
	return last
}

// UIDescription renders the path one node per line, indenting each step:
//
//	[Resolve Query(['bookings'])]
//	  -> [Resolve Metric('bookings')]
//	    -> [Resolve Measure('bookings')]
func (p Path) UIDescription() string {
	var b strings.Builder
	i := 0
	for c := p.head; c != nil; c = c.next {
		if i > 0 {
			b.WriteString("\n")
			b.WriteString(strings.Repeat("  ", i))
			b.WriteString("-> ")
		}
		b.WriteString("[Resolve ")
		b.WriteString(c.node.UIDescription())
		b.WriteString("]")
		i++
	}
	return b.String()
}

func (p Path) String() string {
	parts := make([]string, 0, p.size)
	for c := p.head; c != nil; c = c.next {
		parts = append(parts, c.node.String())
	}
	return "Path(" + strings.Join(parts, ", ") + ")"
}

// Tracker records the nodes of a depth-first traversal so that visitors can
// ask for the path from the start node at any point.
type Tracker struct {
	stack []*Node
}

// Enter pushes n and returns the path from the start node to n. Every Enter
// must be paired with a Leave.
func (t *Tracker) Enter(n *Node) Path {
	t.stack = append(t.stack, n)
	return NewPath(t.stack...)
}

// Leave pops the most recently entered node.
func (t *Tracker) Leave() {
	t.stack = t.stack[:len(t.stack)-1]
}
