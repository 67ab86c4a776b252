package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/metricq/internal/manifest"
)

// MetricCycle describes metrics that (transitively) use themselves as inputs.
type MetricCycle struct {
	Path    []string `json:"path"`    // Cycle path: ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
}

// AnalyzeMetricCycles finds cycles among ratio and derived metric inputs.
//
// The algorithm:
//  1. Build a metric -> input metric dependency graph
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop as a cycle
//
// A manifest without cycles returns an empty list. Results are ordered by the
// first metric of each cycle so that error output is stable.
func AnalyzeMetricCycles(metrics []manifest.Metric) []MetricCycle {
	if len(metrics) == 0 {
		return []MetricCycle{}
	}

	graph := buildDependencyGraph(metrics)
	sccs := tarjanSCC(graph)

	cycles := []MetricCycle{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			sort.Strings(scc)
			cycles = append(cycles, sccToCycle(scc, graph))
		}
	}
	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i].Path[0] < cycles[j].Path[0]
	})
	return cycles
}

// dependencyGraph maps metric name -> input metric names.
type dependencyGraph map[string][]string

func buildDependencyGraph(metrics []manifest.Metric) dependencyGraph {
	graph := make(dependencyGraph, len(metrics))
	for _, m := range metrics {
		if graph[m.Name] == nil {
			graph[m.Name] = []string{}
		}
		tp := m.TypeParams
		if tp.Numerator != nil {
			graph[m.Name] = append(graph[m.Name], tp.Numerator.Name)
		}
		if tp.Denominator != nil {
			graph[m.Name] = append(graph[m.Name], tp.Denominator.Name)
		}
		for _, in := range tp.Metrics {
			graph[m.Name] = append(graph[m.Name], in.Name)
		}
	}
	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order so the output does not depend on map order.
func tarjanSCC(graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is the root of an SCC: pop it
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

func sccToCycle(scc []string, graph dependencyGraph) MetricCycle {
	if len(scc) == 1 {
		return MetricCycle{
			Path:    []string{scc[0], scc[0]},
			Message: fmt.Sprintf("metric %q uses itself as an input", scc[0]),
		}
	}
	path := reconstructCyclePath(scc, graph)
	return MetricCycle{
		Path:    path,
		Message: fmt.Sprintf("metric input cycle detected: %s", strings.Join(path, " -> ")),
	}
}

// reconstructCyclePath follows edges inside the SCC from its first member
// until it returns to the start.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool, len(scc))
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
