package registry

import (
	"fmt"
	"sort"
	"strings"
)

// Cycle describes a group of libraries that depend on each other.
//
// Cycles are legal: a library body that includes its own header is a
// self-loop, and ResolveLinkSet handles any cycle. They are reported so a
// user listing the registry can see why a link set is larger than expected.
type Cycle struct {
	Path    []string `json:"path" yaml:"path"`
	Message string   `json:"message" yaml:"message"`
}

// Cycles finds the strongly connected components of the dependency graph
// that contain a cycle, in a deterministic order.
func (r *Registry) Cycles() []Cycle {
	graph := make(map[string][]string, len(r.records))
	for _, name := range r.Names() {
		var edges []string
		for _, dep := range r.records[name].Deps() {
			if _, known := r.records[dep]; known {
				edges = append(edges, dep)
			}
		}
		graph[name] = edges
	}

	var cycles []Cycle
	for _, scc := range stronglyConnected(graph, r.Names()) {
		if len(scc) == 1 && !hasSelfLoop(scc[0], graph) {
			continue
		}
		sort.Strings(scc)
		path := cyclePath(scc, graph)
		cycles = append(cycles, Cycle{
			Path:    path,
			Message: fmt.Sprintf("dependency cycle: %s", strings.Join(path, " -> ")),
		})
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i].Path[0] < cycles[j].Path[0] })
	return cycles
}

func hasSelfLoop(node string, graph map[string][]string) bool {
	for _, n := range graph[node] {
		if n == node {
			return true
		}
	}
	return false
}

// stronglyConnected is Tarjan's algorithm, visiting roots in the given order.
func stronglyConnected(graph map[string][]string, order []string) [][]string {
	var (
		index   int
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var visit func(string)
	visit = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, seen := indices[w]; !seen {
				visit(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

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

	for _, node := range order {
		if _, seen := indices[node]; !seen {
			visit(node)
		}
	}
	return sccs
}

// cyclePath walks edges inside scc from its first member back to itself.
func cyclePath(scc []string, graph map[string][]string) []string {
	start := scc[0]
	if len(scc) == 1 {
		return []string{start, start}
	}

	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	path := []string{start}
	visited := map[string]bool{start: true}
	current := start
	for {
		next := ""
		for _, n := range graph[current] {
			if members[n] && (!visited[n] || n == start) {
				next = n
				if n != start {
					break
				}
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		visited[next] = true
		current = next
	}
	return path
}
