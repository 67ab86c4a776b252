package resolution

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/metricq/internal/manifest"
	"github.com/roach88/metricq/internal/specs"
)

// DAG is a resolution DAG. It is immutable once built and may be read from
// several goroutines.
type DAG struct {
	nodes []*Node
	sink  NodeID
}

// Node returns the node with the given ID. It panics on an ID from another DAG.
func (d *DAG) Node(id NodeID) *Node {
	if int(id) < 0 || int(id) >= len(d.nodes) {
		panic(fmt.Sprintf("resolution: node %d is not in this DAG", id))
	}
	return d.nodes[id]
}

// Sink returns the query node.
func (d *DAG) Sink() *Node { return d.nodes[d.sink] }

// Parents returns the parent nodes of n in input order.
func (d *DAG) Parents(n *Node) []*Node {
	out := make([]*Node, len(n.Parents))
	for i, id := range n.Parents {
		out[i] = d.Node(id)
	}
	return out
}

// Len returns the number of nodes.
func (d *DAG) Len() int { return len(d.nodes) }

// Nodes returns every node in ID order.
func (d *DAG) Nodes() []*Node { return append([]*Node(nil), d.nodes...) }

// Text renders the DAG as an indented tree rooted at the sink.
func (d *DAG) Text() string {
	var b strings.Builder
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		b.WriteString(strings.Repeat("  ", depth))
		fmt.Fprintf(&b, "%d: %s", n.ID, n.UIDescription())
		if n.InputLocation != nil {
			fmt.Fprintf(&b, " <- input %d of '%s'", n.InputLocation.Index, n.InputLocation.ParentMetric)
		}
		b.WriteString("\n")
		for _, p := range d.Parents(n) {
			walk(p, depth+1)
		}
	}
	walk(d.Sink(), 0)
	return b.String()
}

// Builder builds resolution DAGs from a manifest.
type Builder struct {
	lookup *manifest.Lookup
	logger *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the logger that receives the built DAG at debug level.
func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = l
	}
}

// NewBuilder returns a Builder over lookup.
func NewBuilder(lookup *manifest.Lookup, opts ...BuilderOption) *Builder {
	b := &Builder{lookup: lookup, logger: discardLogger()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns the DAG for a query on the given metrics. Every metric name
// must exist in the manifest; unknown names are a programming error.
func (b *Builder) Build(metrics []string, filter specs.WhereFilterIntersection) *DAG {
	d := &DAG{}
	var parents []NodeID
	if len(metrics) == 0 {
		parents = append(parents, d.add(&Node{Kind: KindNoMetricsQuery}))
	}
	for _, name := range metrics {
		parents = append(parents, b.buildMetric(d, name, nil))
	}
	d.sink = d.add(&Node{
		Kind:           KindQuery,
		Parents:        parents,
		MetricsInQuery: append([]string(nil), metrics...),
		Filter:         filter,
	})
	if b.logger.Enabled(context.Background(), slog.LevelDebug) {
		b.logger.Debug("built resolution dag", "nodes", d.Len(), "dag", d.Text())
	}
	return d
}

func (b *Builder) buildMetric(d *DAG, name string, loc *MetricInputLocation) NodeID {
	metric := b.lookup.MustMetric(name)

	var parents []NodeID
	if inputs := b.lookup.InputMetrics(metric); len(inputs) > 0 {
		for i, in := range inputs {
			parents = append(parents, b.buildMetric(d, in.Name, &MetricInputLocation{ParentMetric: name, Index: i}))
		}
	} else {
		for _, in := range b.lookup.InputMeasures(metric) {
			parents = append(parents, d.add(&Node{Kind: KindMeasure, Measure: in.Name, ChildMetric: name}))
		}
	}
	return d.add(&Node{Kind: KindMetric, Metric: name, InputLocation: loc, Parents: parents})
}

func (d *DAG) add(n *Node) NodeID {
	n.ID = NodeID(len(d.nodes))
	d.nodes = append(d.nodes, n)
	return n.ID
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
