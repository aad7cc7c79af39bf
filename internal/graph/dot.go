package graph

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
)

// ToDOT converts a layout to Graphviz DOT. Nodes are pinned to their layout
// coordinates so that neato reproduces the lane grid; dot ignores the pins
// and ranks by ancestry instead.
func ToDOT(data *VisualizationData) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=BT;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [style=filled, fontsize=10, fontname=\"monospace\", fixedsize=false];\n")
	buf.WriteString("  edge [arrowhead=none, penwidth=2];\n")
	buf.WriteString("\n")

	for _, n := range data.Nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(nodeAttrs(n), ", "))
	}

	buf.WriteString("\n")
	for _, e := range data.Edges {
		attrs := []string{fmt.Sprintf("color=%q", e.Color)}
		if e.Type == EdgeMerge {
			attrs = append(attrs, "style=dashed")
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.Source, e.Target, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n GraphNode) []string {
	attrs := []string{
		fmt.Sprintf("label=%q", nodeLabel(n)),
		fmt.Sprintf("shape=%s", dotShape(n.Shape)),
		fmt.Sprintf("fillcolor=%q", n.Color),
		// Graphviz positions are in points, y grows upwards.
		fmt.Sprintf("pos=\"%.0f,%.0f!\"", n.X, -n.Y),
	}
	if n.IsHead {
		attrs = append(attrs, "penwidth=3")
	}
	return attrs
}

func nodeLabel(n GraphNode) string {
	switch {
	case n.Stash != nil:
		return n.Stash.Ref
	case n.Commit != nil:
		label := n.Commit.ShortHash
		if len(n.Commit.Tags) > 0 {
			label += "\n" + strings.Join(n.Commit.Tags, ", ")
		}
		return label
	}
	return n.ID
}

func dotShape(s Shape) string {
	switch s {
	case ShapeDiamond:
		return "diamond"
	case ShapeSquare:
		return "box"
	}
	return "circle"
}

// RenderSVG renders DOT to SVG with the embedded Graphviz.
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
