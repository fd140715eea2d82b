package dag

import (
	"testing"

	"github.com/gridfire-labs/fieldkit/internal/field"
)

func gas(name string) field.Key { return field.NewKey("gas", name) }

func TestGraph_AddNodeAndEdge(t *testing.T) {
	g := NewGraph()

	g.AddNode(gas("Density"), nil)
	g.AddNode(gas("CellVolume"), nil)
	g.AddNode(gas("CellMass"), nil)

	if g.NodeCount() != 3 {
		t.Errorf("expected 3 nodes, got %d", g.NodeCount())
	}

	if err := g.AddEdge(gas("Density"), gas("CellMass")); err != nil {
		t.Errorf("failed to add edge: %v", err)
	}
	if err := g.AddEdge(gas("CellVolume"), gas("CellMass")); err != nil {
		t.Errorf("failed to add edge: %v", err)
	}

	if g.EdgeCount() != 2 {
		t.Errorf("expected 2 edges, got %d", g.EdgeCount())
	}

	// Duplicate edges collapse.
	if err := g.AddEdge(gas("Density"), gas("CellMass")); err != nil {
		t.Errorf("failed to re-add edge: %v", err)
	}
	if g.EdgeCount() != 2 {
		t.Errorf("expected 2 edges after duplicate add, got %d", g.EdgeCount())
	}
}

func TestGraph_AddEdge_InvalidNodes(t *testing.T) {
	g := NewGraph()
	g.AddNode(gas("Density"), nil)

	if err := g.AddEdge(gas("Density"), gas("Missing")); err == nil {
		t.Error("expected error for unknown derived field")
	}
	if err := g.AddEdge(gas("Missing"), gas("Density")); err == nil {
		t.Error("expected error for unknown dependency")
	}
}

func TestGraph_AddEdge_SelfLoop(t *testing.T) {
	g := NewGraph()
	g.AddNode(gas("Density"), nil)

	if err := g.AddEdge(gas("Density"), gas("Density")); err == nil {
		t.Error("expected error for self-dependency")
	}
}

func TestGraph_DependenciesAndDependents(t *testing.T) {
	g := NewGraph()
	g.AddNode(gas("Density"), nil)
	g.AddNode(gas("CellVolume"), nil)
	g.AddNode(gas("CellMass"), nil)

	g.AddEdge(gas("Density"), gas("CellVolume"))
	g.AddEdge(gas("Density"), gas("CellMass"))
	g.AddEdge(gas("CellVolume"), gas("CellMass"))

	if deps := g.Dependencies(gas("CellMass")); len(deps) != 2 {
		t.Errorf("expected CellMass to have 2 dependencies, got %d", len(deps))
	}
	if out := g.Dependents(gas("Density")); len(out) != 2 {
		t.Errorf("expected Density to have 2 dependents, got %d", len(out))
	}
}

func TestGraph_HasCycle_NoCycle(t *testing.T) {
	g := NewGraph()
	g.AddNode(gas("Density"), nil)
	g.AddNode(gas("Temperature"), nil)
	g.AddNode(gas("Pressure"), nil)

	g.AddEdge(gas("Density"), gas("Pressure"))
	g.AddEdge(gas("Temperature"), gas("Pressure"))

	if hasCycle, _ := g.HasCycle(); hasCycle {
		t.Error("expected no cycle")
	}
}

func TestGraph_HasCycle_Cycle(t *testing.T) {
	g := NewGraph()
	g.AddNode(gas("A"), nil)
	g.AddNode(gas("B"), nil)
	g.AddNode(gas("C"), nil)

	g.AddEdge(gas("A"), gas("B"))
	g.AddEdge(gas("B"), gas("C"))
	g.AddEdge(gas("C"), gas("A"))

	hasCycle, path := g.HasCycle()
	if !hasCycle {
		t.Fatal("expected cycle")
	}
	if len(path) < 3 {
		t.Errorf("expected cycle path with at least 3 fields, got %v", path)
	}
}

func TestGraph_TopologicalSort(t *testing.T) {
	g := NewGraph()
	g.AddNode(gas("Density"), nil)
	g.AddNode(gas("CellVolume"), nil)
	g.AddNode(gas("CellMass"), nil)

	g.AddEdge(gas("Density"), gas("CellMass"))
	g.AddEdge(gas("CellVolume"), gas("CellMass"))

	sorted, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("topological sort failed: %v", err)
	}
	if len(sorted) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(sorted))
	}

	pos := make(map[field.Key]int)
	for i, node := range sorted {
		pos[node.Key] = i
	}
	if pos[gas("Density")] > pos[gas("CellMass")] {
		t.Error("Density must come before CellMass")
	}
	if pos[gas("CellVolume")] > pos[gas("CellMass")] {
		t.Error("CellVolume must come before CellMass")
	}
}

func TestGraph_TopologicalSort_Cycle(t *testing.T) {
	g := NewGraph()
	g.AddNode(gas("A"), nil)
	g.AddNode(gas("B"), nil)
	g.AddEdge(gas("A"), gas("B"))
	g.AddEdge(gas("B"), gas("A"))

	if _, err := g.TopologicalSort(); err == nil {
		t.Error("expected error for cyclic graph")
	}
}

func TestGraph_ExecutionLevels(t *testing.T) {
	g := NewGraph()
	g.AddNode(gas("Density"), nil)
	g.AddNode(gas("dx"), nil)
	g.AddNode(gas("CellVolume"), nil)
	g.AddNode(gas("CellMass"), nil)

	g.AddEdge(gas("dx"), gas("CellVolume"))
	g.AddEdge(gas("Density"), gas("CellMass"))
	g.AddEdge(gas("CellVolume"), gas("CellMass"))

	levels, err := g.ExecutionLevels()
	if err != nil {
		t.Fatalf("execution levels failed: %v", err)
	}
	if len(levels) != 3 {
		t.Fatalf("expected 3 levels, got %d", len(levels))
	}
	if len(levels[0]) != 2 {
		t.Errorf("expected 2 primitives at level 0, got %v", levels[0])
	}
	if len(levels[1]) != 1 || levels[1][0] != gas("CellVolume") {
		t.Errorf("expected [gas/CellVolume] at level 1, got %v", levels[1])
	}
	if len(levels[2]) != 1 || levels[2][0] != gas("CellMass") {
		t.Errorf("expected [gas/CellMass] at level 2, got %v", levels[2])
	}
}

func TestGraph_Affected(t *testing.T) {
	g := NewGraph()
	g.AddNode(gas("Density"), nil)
	g.AddNode(gas("CellMass"), nil)
	g.AddNode(gas("Temperature"), nil)

	g.AddEdge(gas("Density"), gas("CellMass"))

	affected := g.Affected([]field.Key{gas("Density")})
	if len(affected) != 2 {
		t.Fatalf("expected 2 affected fields, got %v", affected)
	}
	for _, key := range affected {
		if key == gas("Temperature") {
			t.Error("Temperature should not be affected")
		}
	}
}

func TestGraph_Upstream(t *testing.T) {
	g := NewGraph()
	g.AddNode(gas("dx"), nil)
	g.AddNode(gas("CellVolume"), nil)
	g.AddNode(gas("CellMass"), nil)

	g.AddEdge(gas("dx"), gas("CellVolume"))
	g.AddEdge(gas("CellVolume"), gas("CellMass"))

	upstream := g.Upstream(gas("CellMass"))
	if len(upstream) != 2 {
		t.Fatalf("expected 2 upstream fields, got %v", upstream)
	}
}

func TestGraph_RootsAndLeaves(t *testing.T) {
	g := NewGraph()
	g.AddNode(gas("Density"), nil)
	g.AddNode(gas("CellMass"), nil)
	g.AddEdge(gas("Density"), gas("CellMass"))

	roots := g.Roots()
	if len(roots) != 1 || roots[0] != gas("Density") {
		t.Errorf("expected roots [gas/Density], got %v", roots)
	}
	leaves := g.Leaves()
	if len(leaves) != 1 || leaves[0] != gas("CellMass") {
		t.Errorf("expected leaves [gas/CellMass], got %v", leaves)
	}
}

func TestGraph_Subgraph(t *testing.T) {
	g := NewGraph()
	g.AddNode(gas("Density"), nil)
	g.AddNode(gas("CellVolume"), nil)
	g.AddNode(gas("CellMass"), nil)
	g.AddEdge(gas("Density"), gas("CellMass"))
	g.AddEdge(gas("CellVolume"), gas("CellMass"))

	sub := g.Subgraph([]field.Key{gas("Density"), gas("CellMass")})
	if sub.NodeCount() != 2 {
		t.Errorf("expected 2 nodes in subgraph, got %d", sub.NodeCount())
	}
	if sub.EdgeCount() != 1 {
		t.Errorf("expected 1 edge in subgraph, got %d", sub.EdgeCount())
	}
}
