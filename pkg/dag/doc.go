// Package dag provides a small directed graph with deterministic traversal
// order, used to order declaration files by their include directives.
//
// # Usage
//
//	g := dag.New()
//	g.AddNode(dag.Node{ID: "requirements/dev.in"})
//	g.AddNode(dag.Node{ID: "requirements/base.in"})
//	g.AddEdge(dag.Edge{From: "requirements/dev.in", To: "requirements/base.in"})
//
//	order, cycles := g.TopoSort() // [requirements/base.in requirements/dev.in], nil
//
// [DAG.TopoSort] is a depth-first post-order walk: every node comes after
// all nodes reachable from it. Cycles are detected with white/gray/black
// coloring and reported with all of their members instead of failing the
// whole sort.
//
// # Visualization
//
// [ToDOT] converts a graph to Graphviz DOT; [RenderSVG] renders DOT
// in-process with [github.com/goccy/go-graphviz].
package dag
