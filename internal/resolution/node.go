package resolution

import (
	"fmt"
	"strings"

	"github.com/roach88/metricq/internal/specs"
)

// NodeID is a handle to a node in a DAG's arena.
type NodeID int

// NodeKind is the closed set of resolution node kinds.
type NodeKind int

const (
	KindQuery NodeKind = iota + 1
	KindMetric
	KindMeasure
	KindNoMetricsQuery
)

func (k NodeKind) String() string {
	switch k {
	case KindQuery:
		return "query"
	case KindMetric:
		return "metric"
	case KindMeasure:
		return "measure"
	case KindNoMetricsQuery:
		return "no_metrics_query"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// MetricInputLocation identifies the input slot of a derived or ratio metric
// that a metric node fills.
type MetricInputLocation struct {
	ParentMetric string
	Index        int
}

// Node is one step of a resolution. Which fields are set depends on Kind:
//
//	KindQuery           MetricsInQuery, Filter
//	KindMetric          Metric, InputLocation (nil when queried directly)
//	KindMeasure         Measure, ChildMetric
//	KindNoMetricsQuery  none
type Node struct {
	ID      NodeID
	Kind    NodeKind
	Parents []NodeID

	MetricsInQuery []string
	Filter         specs.WhereFilterIntersection

	Metric        string
	InputLocation *MetricInputLocation

	Measure     string
	ChildMetric string
}

// DetachedID is the ID of nodes that do not belong to a DAG.
const DetachedID NodeID = -1

// NewDetachedQueryNode returns a query node outside any DAG. It roots the
// paths of issues about the query as a whole, found before a DAG exists.
func NewDetachedQueryNode(metrics []string, filter specs.WhereFilterIntersection) *Node {
	return &Node{
		ID:             DetachedID,
		Kind:           KindQuery,
		MetricsInQuery: append([]string(nil), metrics...),
		Filter:         filter,
	}
}

// UIDescription is the short form used in paths and error messages.
func (n *Node) UIDescription() string {
	switch n.Kind {
	case KindQuery:
		return "Query(" + FormatList(n.MetricsInQuery) + ")"
	case KindMetric:
		return "Metric('" + n.Metric + "')"
	case KindMeasure:
		return "Measure('" + n.Measure + "')"
	case KindNoMetricsQuery:
		return "NoMetricsQuery()"
	default:
		panic(fmt.Sprintf("resolution: unhandled node kind %v", n.Kind))
	}
}

// Description says what the node outputs.
func (n *Node) Description() string {
	switch n.Kind {
	case KindQuery:
		return "Output the valid group by items in the metric query."
	case KindMetric:
		return "Output the valid group by items for this metric."
	case KindMeasure:
		return "Output the group by items possible for a measure."
	case KindNoMetricsQuery:
		return "Output the valid group-by-items available from any semantic model."
	default:
		panic(fmt.Sprintf("resolution: unhandled node kind %v", n.Kind))
	}
}

func (n *Node) String() string {
	return fmt.Sprintf("%s#%d", n.Kind, n.ID)
}

// FormatList formats names the way error messages quote lists: ['a', 'b'].
func FormatList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "'" + s + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
