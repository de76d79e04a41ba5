package dag

import (
	"errors"
	"slices"
	"testing"
)

func ids(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func build(t *testing.T, nodes []string, edges [][2]string) *DAG {
	t.Helper()
	g := New()
	for _, id := range nodes {
		if err := g.AddNode(Node{ID: id}); err != nil {
			t.Fatalf("AddNode(%s): %v", id, err)
		}
	}
	for _, e := range edges {
		if err := g.AddEdge(Edge{From: e[0], To: e[1]}); err != nil {
			t.Fatalf("AddEdge(%v): %v", e, err)
		}
	}
	return g
}

func TestAddNode(t *testing.T) {
	g := New()
	if err := g.AddNode(Node{ID: ""}); !errors.Is(err, ErrInvalidNodeID) {
		t.Errorf("AddNode(empty) = %v, want ErrInvalidNodeID", err)
	}
	if err := g.AddNode(Node{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := g.AddNode(Node{ID: "a"}); !errors.Is(err, ErrDuplicateNodeID) {
		t.Errorf("AddNode(dup) = %v, want ErrDuplicateNodeID", err)
	}
	n, ok := g.Node("a")
	if !ok || n.Label != "a" || n.Meta == nil {
		t.Errorf("Node(a) = %+v, %v", n, ok)
	}
}

func TestAddEdge(t *testing.T) {
	g := build(t, []string{"a", "b"}, nil)
	if err := g.AddEdge(Edge{From: "x", To: "b"}); !errors.Is(err, ErrUnknownSourceNode) {
		t.Errorf("AddEdge(unknown from) = %v", err)
	}
	if err := g.AddEdge(Edge{From: "a", To: "x"}); !errors.Is(err, ErrUnknownTargetNode) {
		t.Errorf("AddEdge(unknown to) = %v", err)
	}
	_ = g.AddEdge(Edge{From: "a", To: "b"})
	_ = g.AddEdge(Edge{From: "a", To: "b"})
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, want 1 after duplicate edge", g.EdgeCount())
	}
	if !slices.Equal(g.Parents("b"), []string{"a"}) || !slices.Equal(g.Children("a"), []string{"b"}) {
		t.Errorf("Parents/Children = %v / %v", g.Parents("b"), g.Children("a"))
	}
}

func TestSourcesAndSinks(t *testing.T) {
	g := build(t, []string{"dev", "base", "test", "lint"}, [][2]string{{"dev", "base"}, {"test", "base"}})

	if got := ids(g.Sources()); !slices.Equal(got, []string{"dev", "test", "lint"}) {
		t.Errorf("Sources() = %v", got)
	}
	if got := ids(g.Sinks()); !slices.Equal(got, []string{"base", "lint"}) {
		t.Errorf("Sinks() = %v", got)
	}
	if got := ids(g.Nodes()); !slices.Equal(got, []string{"dev", "base", "test", "lint"}) {
		t.Errorf("Nodes() = %v, want insertion order", got)
	}
}
