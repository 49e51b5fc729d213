package engine

import (
	"fmt"
	"sort"
	"strings"
)

// Dependencies is the explicit cross-job dependency map. Each key is a
// dependent task; each value lists the tasks that must complete before it.
// An empty value list leaves the key task without a forced predecessor.
type Dependencies map[*Task][]*Task

// Graph is the merged execution graph: one node per task, one edge per
// "must run before" relation. Nodes are held in declaration order (job
// list order, then task list order), which defines the tie-break for
// scheduling.
type Graph struct {
	nodes []*Task
	index map[*Task]int
	succ  map[*Task][]*Task
	pred  map[*Task]int
}

// GraphBuilder builds a validated acyclic execution graph from a job list
// and an explicit dependency map. Construction is all-or-nothing: no
// partial graphs are ever returned.
type GraphBuilder struct {
	jobs []*Job
	deps Dependencies
}

// NewGraphBuilder creates a builder over the given jobs and dependencies.
func NewGraphBuilder(jobs []*Job, deps Dependencies) *GraphBuilder {
	return &GraphBuilder{jobs: jobs, deps: deps}
}

// Build merges the implicit sequential edges of every job with the
// explicit dependency map, validates the result and returns the graph.
//
// It fails with a definition error when no jobs were supplied at all,
// when a job contributes no tasks, when the dependency map references a
// task that belongs to no job, or when the merged graph contains a cycle.
func (b *GraphBuilder) Build() (*Graph, error) {
	if len(b.jobs) == 0 {
		return nil, NewDefinitionError("workflow describes no tasks", nil).
			WithCode(ErrCodeGraphUndefined)
	}

	g := &Graph{
		index: make(map[*Task]int),
		succ:  make(map[*Task][]*Task),
		pred:  make(map[*Task]int),
	}
	edges := make(map[*Task]map[*Task]bool)

	for _, job := range b.jobs {
		if job.Len() == 0 {
			return nil, NewDefinitionError("job contributes no tasks", nil).
				WithCode(ErrCodeEmptyJob).
				WithJob(job.Name())
		}
		for _, t := range job.tasks {
			if _, ok := g.index[t]; ok {
				return nil, NewDefinitionError("task appears more than once in the graph", nil).
					WithCode(ErrCodeDuplicateTask).
					WithJob(job.Name()).
					WithTask(t.Name())
			}
			g.index[t] = len(g.nodes)
			g.nodes = append(g.nodes, t)
		}
		for i := 0; i < job.Len()-1; i++ {
			g.addEdge(edges, job.tasks[i], job.tasks[i+1])
		}
	}

	var unknown []string
	for dependent, prereqs := range b.deps {
		if _, ok := g.index[dependent]; !ok {
			unknown = append(unknown, dependent.QualifiedName())
			continue
		}
		for _, prereq := range prereqs {
			if prereq == nil {
				continue
			}
			if _, ok := g.index[prereq]; !ok {
				unknown = append(unknown, prereq.QualifiedName())
				continue
			}
			g.addEdge(edges, prereq, dependent)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, NewDefinitionError(
			fmt.Sprintf("dependency map references tasks outside the workflow: %s",
				strings.Join(unknown, ", ")), nil).
			WithCode(ErrCodeUnknownTask)
	}

	// Successor lists follow declaration order so every derived output
	// (DOT, cycle reports) is stable across runs.
	for _, lists := range g.succ {
		sort.Slice(lists, func(i, j int) bool {
			return g.index[lists[i]] < g.index[lists[j]]
		})
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, NewDefinitionError(
			fmt.Sprintf("dependency graph contains a cycle: %s", formatCycle(cycle)), nil).
			WithCode(ErrCodeGraphCycle)
	}

	return g, nil
}

// addEdge records from -> to once; duplicate declarations collapse.
func (g *Graph) addEdge(edges map[*Task]map[*Task]bool, from, to *Task) {
	if edges[from] == nil {
		edges[from] = make(map[*Task]bool)
	}
	if edges[from][to] {
		return
	}
	edges[from][to] = true
	g.succ[from] = append(g.succ[from], to)
	g.pred[to]++
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Tasks returns the graph nodes in declaration order.
func (g *Graph) Tasks() []*Task {
	out := make([]*Task, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Order returns the deterministic execution order: among all topological
// orders of the graph, the lexicographically smallest with respect to
// declaration order. Tasks with no ordering constraint between them run in
// the order they were declared, and the result is identical on every call.
func (g *Graph) Order() []*Task {
	indeg := make(map[*Task]int, len(g.nodes))
	for _, n := range g.nodes {
		indeg[n] = g.pred[n]
	}

	order := make([]*Task, 0, len(g.nodes))
	done := make(map[*Task]bool, len(g.nodes))

	for len(order) < len(g.nodes) {
		var pick *Task
		for _, n := range g.nodes {
			if !done[n] && indeg[n] == 0 {
				pick = n
				break
			}
		}
		if pick == nil {
			// Unreachable on a validated graph.
			break
		}
		done[pick] = true
		order = append(order, pick)
		for _, next := range g.succ[pick] {
			indeg[next]--
		}
	}

	return order
}

// findCycle performs a depth-first search with recursion-stack marking and
// returns one cycle path, or nil for an acyclic graph. Nodes are visited
// in declaration order so the reported cycle is stable.
func (g *Graph) findCycle() []*Task {
	const (
		unvisited = 0
		inStack   = 1
		finished  = 2
	)
	state := make(map[*Task]int, len(g.nodes))
	var path []*Task
	var cycle []*Task

	var visit func(n *Task) bool
	visit = func(n *Task) bool {
		state[n] = inStack
		path = append(path, n)
		for _, next := range g.succ[n] {
			switch state[next] {
			case inStack:
				start := 0
				for i, p := range path {
					if p == next {
						start = i
						break
					}
				}
				cycle = append(append([]*Task{}, path[start:]...), next)
				return true
			case unvisited:
				if visit(next) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		state[n] = finished
		return false
	}

	for _, n := range g.nodes {
		if state[n] == unvisited {
			if visit(n) {
				return cycle
			}
		}
	}
	return nil
}

// formatCycle formats a cycle path for error messages.
func formatCycle(cycle []*Task) string {
	names := make([]string, len(cycle))
	for i, t := range cycle {
		names[i] = t.QualifiedName()
	}
	return strings.Join(names, " -> ")
}

// ToDOT generates a DOT representation of the graph for visualization
// with Graphviz tools. Tasks are clustered by job.
func (g *Graph) ToDOT() string {
	var sb strings.Builder

	sb.WriteString("digraph Workflow {\n")
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=box, style=rounded];\n\n")

	var jobs []*Job
	seen := make(map[*Job]bool)
	for _, t := range g.nodes {
		if t.job != nil && !seen[t.job] {
			seen[t.job] = true
			jobs = append(jobs, t.job)
		}
	}

	for i, job := range jobs {
		sb.WriteString(fmt.Sprintf("  subgraph cluster_%d {\n", i))
		sb.WriteString(fmt.Sprintf("    label=%q;\n", job.Name()))
		sb.WriteString("    style=dashed;\n")
		for _, t := range job.tasks {
			sb.WriteString(fmt.Sprintf("    %q [label=%q];\n", t.QualifiedName(), t.Name()))
		}
		sb.WriteString("  }\n\n")
	}

	for _, from := range g.nodes {
		for _, to := range g.succ[from] {
			sb.WriteString(fmt.Sprintf("  %q -> %q;\n", from.QualifiedName(), to.QualifiedName()))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}
