package dag

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
)

// Node metadata keys understood by [ToDOT].
const (
	MetaCycle   = "cycle"   // bool, node is part of a cycle
	MetaMissing = "missing" // bool, node was referenced but not found
	MetaTooltip = "tooltip" // string
)

// ToDOT converts the graph to Graphviz DOT. Edges point from includer to
// included file; cycle members are drawn red and missing nodes dashed.
func ToDOT(g *DAG) string {
	var buf bytes.Buffer
	buf.WriteString("digraph includes {\n")
	buf.WriteString("  rankdir=BT;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\"];\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(nodeAttrs(n), ", "))
	}
	if g.EdgeCount() > 0 {
		buf.WriteString("\n")
	}
	for _, e := range g.Edges() {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n *Node) []string {
	attrs := []string{fmt.Sprintf("label=%q", n.Label)}
	if tip, ok := n.Meta[MetaTooltip].(string); ok && tip != "" {
		attrs = append(attrs, fmt.Sprintf("tooltip=%q", tip))
	}
	if missing, _ := n.Meta[MetaMissing].(bool); missing {
		attrs = append(attrs, `style="rounded,dashed"`, "fontcolor=grey40")
	}
	if cycle, _ := n.Meta[MetaCycle].(bool); cycle {
		attrs = append(attrs, "color=red", "fillcolor=mistyrose")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
