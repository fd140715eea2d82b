// Package dag provides directed acyclic graph operations over field
// dependencies. It supports cycle detection, topological sorting, and
// incremental invalidation.
package dag

import (
	"fmt"
	"sort"

	"github.com/gridfire-labs/fieldkit/internal/field"
)

// Node represents a field in the dependency graph.
type Node struct {
	// Key is the unique field identifier.
	Key field.Key
	// Spec is the registered definition, nil for primitive fields.
	Spec *field.Spec
}

// Graph is a directed acyclic graph of field dependencies. An edge from A to
// B means B is computed from A.
type Graph struct {
	nodes      map[field.Key]*Node
	dependents map[field.Key][]field.Key // field -> fields computed from it
	deps       map[field.Key][]field.Key // field -> fields it reads
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:      make(map[field.Key]*Node),
		dependents: make(map[field.Key][]field.Key),
		deps:       make(map[field.Key][]field.Key),
	}
}

// Clear removes all nodes and edges from the graph.
func (g *Graph) Clear() {
	g.nodes = make(map[field.Key]*Node)
	g.dependents = make(map[field.Key][]field.Key)
	g.deps = make(map[field.Key][]field.Key)
}

// AddNode adds a field to the graph. Re-adding an existing key replaces its
// spec but keeps its edges.
func (g *Graph) AddNode(key field.Key, spec *field.Spec) {
	if _, exists := g.nodes[key]; !exists {
		g.nodes[key] = &Node{Key: key, Spec: spec}
		g.dependents[key] = []field.Key{}
		g.deps[key] = []field.Key{}
	} else {
		g.nodes[key].Spec = spec
	}
}

// AddEdge records that derived is computed from dep.
func (g *Graph) AddEdge(dep, derived field.Key) error {
	if _, exists := g.nodes[dep]; !exists {
		return fmt.Errorf("dependency %s is not in the graph", dep)
	}
	if _, exists := g.nodes[derived]; !exists {
		return fmt.Errorf("field %s is not in the graph", derived)
	}
	if dep == derived {
		return fmt.Errorf("field %s depends on itself", dep)
	}

	if !containsKey(g.dependents[dep], derived) {
		g.dependents[dep] = append(g.dependents[dep], derived)
	}
	if !containsKey(g.deps[derived], dep) {
		g.deps[derived] = append(g.deps[derived], dep)
	}
	return nil
}

// GetNode returns a node by key.
func (g *Graph) GetNode(key field.Key) (*Node, bool) {
	node, exists := g.nodes[key]
	return node, exists
}

// Dependencies returns the fields key is computed from.
func (g *Graph) Dependencies(key field.Key) []field.Key {
	return g.deps[key]
}

// Dependents returns the fields computed from key.
func (g *Graph) Dependents(key field.Key) []field.Key {
	return g.dependents[key]
}

// AllNodes returns every node, sorted by key for deterministic output.
func (g *Graph) AllNodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, node := range g.nodes {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Key.String() < nodes[j].Key.String()
	})
	return nodes
}

// NodeCount returns the number of fields in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of dependency edges.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, out := range g.dependents {
		count += len(out)
	}
	return count
}

// HasCycle reports whether the graph contains a cycle, along with the cycle
// path when one exists.
func (g *Graph) HasCycle() (bool, []field.Key) {
	visited := make(map[field.Key]bool)
	recStack := make(map[field.Key]bool)
	cameFrom := make(map[field.Key]field.Key)

	var cyclePath []field.Key

	var dfs func(key field.Key) bool
	dfs = func(key field.Key) bool {
		visited[key] = true
		recStack[key] = true

		for _, next := range g.dependents[key] {
			if !visited[next] {
				cameFrom[next] = key
				if dfs(next) {
					return true
				}
			} else if recStack[next] {
				cyclePath = []field.Key{next}
				for curr := key; curr != next; curr = cameFrom[curr] {
					cyclePath = append([]field.Key{curr}, cyclePath...)
				}
				cyclePath = append([]field.Key{next}, cyclePath...)
				return true
			}
		}

		recStack[key] = false
		return false
	}

	for _, key := range g.sortedKeys() {
		if !visited[key] {
			if dfs(key) {
				return true, cyclePath
			}
		}
	}
	return false, nil
}

// TopologicalSort returns nodes with every field after the fields it is
// computed from. Returns an error if the graph contains a cycle.
func (g *Graph) TopologicalSort() ([]*Node, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("dependency cycle: %v", formatPath(cyclePath))
	}

	visited := make(map[field.Key]bool)
	var result []*Node

	var visit func(key field.Key)
	visit = func(key field.Key) {
		if visited[key] {
			return
		}
		visited[key] = true
		for _, dep := range g.deps[key] {
			visit(dep)
		}
		result = append(result, g.nodes[key])
	}

	for _, key := range g.sortedKeys() {
		visit(key)
	}
	return result, nil
}

// ExecutionLevels groups fields by computation level. Fields at level N can
// be computed in parallel once level N-1 is done; level 0 holds the
// primitives.
func (g *Graph) ExecutionLevels() ([][]field.Key, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("dependency cycle: %v", formatPath(cyclePath))
	}

	assigned := make(map[field.Key]int)

	var levelOf func(key field.Key) int
	levelOf = func(key field.Key) int {
		if level, ok := assigned[key]; ok {
			return level
		}

		deps := g.deps[key]
		if len(deps) == 0 {
			assigned[key] = 0
			return 0
		}

		maxDep := 0
		for _, dep := range deps {
			if l := levelOf(dep); l > maxDep {
				maxDep = l
			}
		}
		assigned[key] = maxDep + 1
		return maxDep + 1
	}

	maxLevel := 0
	for key := range g.nodes {
		if l := levelOf(key); l > maxLevel {
			maxLevel = l
		}
	}

	levels := make([][]field.Key, maxLevel+1)
	for key, level := range assigned {
		levels[level] = append(levels[level], key)
	}
	for i := range levels {
		sortKeys(levels[i])
	}
	return levels, nil
}

// Affected returns every field invalidated by changes to the given fields:
// the fields themselves plus everything computed from them, transitively.
func (g *Graph) Affected(changed []field.Key) []field.Key {
	affected := make(map[field.Key]bool)

	var mark func(key field.Key)
	mark = func(key field.Key) {
		if affected[key] {
			return
		}
		affected[key] = true
		for _, next := range g.dependents[key] {
			mark(next)
		}
	}

	for _, key := range changed {
		if _, exists := g.nodes[key]; exists {
			mark(key)
		}
	}
	return setToSorted(affected)
}

// Upstream returns every field the given field transitively depends on.
func (g *Graph) Upstream(key field.Key) []field.Key {
	upstream := make(map[field.Key]bool)

	var mark func(k field.Key)
	mark = func(k field.Key) {
		for _, dep := range g.deps[k] {
			if !upstream[dep] {
				upstream[dep] = true
				mark(dep)
			}
		}
	}
	mark(key)
	return setToSorted(upstream)
}

// Roots returns fields with no dependencies, the primitives.
func (g *Graph) Roots() []field.Key {
	var roots []field.Key
	for key := range g.nodes {
		if len(g.deps[key]) == 0 {
			roots = append(roots, key)
		}
	}
	sortKeys(roots)
	return roots
}

// Leaves returns fields nothing else is computed from.
func (g *Graph) Leaves() []field.Key {
	var leaves []field.Key
	for key := range g.nodes {
		if len(g.dependents[key]) == 0 {
			leaves = append(leaves, key)
		}
	}
	sortKeys(leaves)
	return leaves
}

// Subgraph returns a new graph restricted to the given fields and the edges
// between them.
func (g *Graph) Subgraph(keys []field.Key) *Graph {
	sub := NewGraph()
	keep := make(map[field.Key]bool)

	for _, key := range keys {
		keep[key] = true
		if node, exists := g.nodes[key]; exists {
			sub.AddNode(key, node.Spec)
		}
	}
	for _, key := range keys {
		for _, next := range g.dependents[key] {
			if keep[next] {
				_ = sub.AddEdge(key, next)
			}
		}
	}
	return sub
}

func (g *Graph) sortedKeys() []field.Key {
	keys := make([]field.Key, 0, len(g.nodes))
	for key := range g.nodes {
		keys = append(keys, key)
	}
	sortKeys(keys)
	return keys
}

func sortKeys(keys []field.Key) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
}

func setToSorted(set map[field.Key]bool) []field.Key {
	result := make([]field.Key, 0, len(set))
	for key := range set {
		result = append(result, key)
	}
	sortKeys(result)
	return result
}

func formatPath(path []field.Key) []string {
	out := make([]string, len(path))
	for i, key := range path {
		out[i] = key.String()
	}
	return out
}

func containsKey(keys []field.Key, key field.Key) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
