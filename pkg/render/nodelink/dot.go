package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/crisprtower/pkg/render"
	"github.com/matzehuels/crisprtower/pkg/tree"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds per-kind event counts to node labels.
	Detailed bool
	// Horizontal lays the tree out left to right.
	Horizontal bool
	// Palette colours nodes that carry events. Nil leaves them white.
	Palette render.Palette
}

// ToDOT converts a tree to Graphviz DOT format. Nodes are emitted in
// preorder so that Graphviz keeps the child order.
func ToDOT(t *tree.Tree, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	if opts.Horizontal {
		buf.WriteString("  rankdir=LR;\n")
	} else {
		buf.WriteString("  rankdir=TB;\n")
	}
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.15,0.05\"];\n")
	buf.WriteString("  edge [arrowhead=none, fontsize=10];\n")
	buf.WriteString("  ordering=out;\n")
	buf.WriteString("\n")

	order := t.Preorder()
	for _, id := range order {
		n := t.Node(id)
		attrs := []string{fmt.Sprintf("label=%q", fmtLabel(n, opts.Detailed))}
		if n.IsInner() {
			attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
		} else if opts.Palette != nil && n.Events.Any() {
			kinds := n.Events.Kinds()
			attrs = append(attrs, fmt.Sprintf("fillcolor=%q", opts.Palette.Color(kinds[0], n.Name)))
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", nodeID(id), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, id := range order {
		p := t.Parent(id)
		if p == tree.NoNode {
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", nodeID(p), nodeID(id), strconv.FormatFloat(t.Node(id).Distance, 'g', 6, 64))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(id tree.NodeID) string { return "n" + strconv.Itoa(int(id)) }

func fmtLabel(n tree.Node, detailed bool) string {
	if !detailed {
		return n.Name
	}
	parts := []string{n.Name}
	for _, k := range n.Events.Kinds() {
		parts = append(parts, fmt.Sprintf("%s: %d", k, n.Events.Get(k).Len()))
	}
	return strings.Join(parts, "\n")
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
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-sized svg tag with a pixel
// viewBox so the output scales like the scene SVG.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
