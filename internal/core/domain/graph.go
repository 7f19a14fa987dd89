// Package domain contains the core domain model of keg: versions, constraints,
// package specs, installed records, plans and the package dependency graph.
package domain

import (
	"iter"
	"maps"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Graph is a dependency graph between package names. An edge a -> b means
// a depends on b.
type Graph struct {
	edges   map[string][]string
	order   []string
	reverse []string
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		edges: make(map[string][]string),
	}
}

// AddNode adds name to the graph without edges. Adding an existing node is a no-op.
func (g *Graph) AddNode(name string) {
	if _, exists := g.edges[name]; !exists {
		g.edges[name] = nil
	}
}

// AddEdge records that from depends on to. Both nodes are added if missing.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(to)
	deps := g.edges[from]
	if i, found := slices.BinarySearch(deps, to); !found {
		deps = slices.Insert(deps, i, to)
	}
	g.edges[from] = deps
}

// Has reports whether name is a node of the graph.
func (g *Graph) Has(name string) bool {
	_, ok := g.edges[name]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.edges)
}

// DependenciesOf returns the sorted direct dependencies of name.
func (g *Graph) DependenciesOf(name string) []string {
	return g.edges[name]
}

// Validate checks the graph for cycles and computes the topological orders.
// In the forward order every node comes after all of its dependencies; in the
// reverse order every node comes before them. Among nodes that are free to go
// next the smallest name goes first.
func (g *Graph) Validate() error {
	if err := g.detectCycle(); err != nil {
		return err
	}

	dependents := make(map[string][]string, len(g.edges))
	for name, deps := range g.edges {
		for _, dep := range deps {
			dependents[dep] = append(dependents[dep], name)
		}
	}

	g.order = kahn(g.edges, dependents)
	g.reverse = kahn(dependents, g.edges)
	return nil
}

// kahn orders the nodes of blockers so that every node follows the nodes it
// is blocked by; released lists, for each node, the nodes it unblocks. Ties
// are broken by name.
func kahn(blockers, released map[string][]string) []string {
	remaining := make(map[string]int, len(blockers))
	var ready []string
	for name := range blockers {
		remaining[name] = len(blockers[name])
		if remaining[name] == 0 {
			ready = append(ready, name)
		}
	}
	// nodes only present as edge targets have no entry in blockers
	for name := range released {
		if _, ok := remaining[name]; !ok {
			remaining[name] = 0
			ready = append(ready, name)
		}
	}
	slices.Sort(ready)

	order := make([]string, 0, len(remaining))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)

		for _, next := range released[name] {
			remaining[next]--
			if remaining[next] == 0 {
				i, _ := slices.BinarySearch(ready, next)
				ready = slices.Insert(ready, i, next)
			}
		}
	}
	return order
}

// detectCycle runs a depth-first search over the nodes in name order.
func (g *Graph) detectCycle() error {
	visited := make(map[string]int, len(g.edges)) // 0: unvisited, 1: visiting, 2: visited
	var path []string

	var visit func(u string) error
	visit = func(u string) error {
		visited[u] = 1
		path = append(path, u)

		for _, dep := range g.edges[u] {
			if visited[dep] == 1 {
				return buildCycleError(path, dep)
			}
			if visited[dep] == 0 {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		return nil
	}

	for _, name := range slices.Sorted(maps.Keys(g.edges)) {
		if visited[name] == 0 {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildCycleError constructs an error with cycle path metadata, e.g. "a -> b -> a".
func buildCycleError(path []string, dep string) error {
	start := slices.Index(path, dep)
	cycle := append(slices.Clone(path[start:]), dep)
	text := strings.Join(cycle, " -> ")
	return zerr.With(zerr.With(zerr.Wrap(ErrCyclicDependency, text), "cycle", text), "packages", cycle)
}

// Order returns the topological order computed by Validate.
func (g *Graph) Order() []string {
	return slices.Clone(g.order)
}

// Walk yields node names in topological order.
// It assumes Validate has been called and returned nil.
func (g *Graph) Walk() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, name := range g.order {
			if !yield(name) {
				return
			}
		}
	}
}

// WalkReverse yields node names dependents first.
// It assumes Validate has been called and returned nil.
func (g *Graph) WalkReverse() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, name := range g.reverse {
			if !yield(name) {
				return
			}
		}
	}
}
