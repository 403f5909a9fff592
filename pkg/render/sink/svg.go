package sink

import (
	"bytes"
	"fmt"
	"math"

	svg "github.com/ajstarks/svgo"

	"github.com/matzehuels/crisprtower/pkg/arrays"
	"github.com/matzehuels/crisprtower/pkg/render"
	"github.com/matzehuels/crisprtower/pkg/scene"
)

// DefaultFontSize is the label size in pixels.
const DefaultFontSize = 12.0

const legendRow = 28

const sceneCSS = `
    .edge { stroke: #333; stroke-width: %[1]d; stroke-linecap: square; }
    .edge.dashed { stroke-dasharray: 4 3; }
    .label { font-family: sans-serif; font-size: %[2]dpx; dominant-baseline: middle; }
    .glyph { stroke: #222; stroke-width: 0.5; }
    .caption { font-family: sans-serif; font-size: %[3]dpx; text-anchor: middle; dominant-baseline: middle; pointer-events: none; }
    .cell { stroke: #333; stroke-width: 1; }
    .cell.duplicate { stroke-dasharray: 3 2; stroke-width: 2; }
    .cell.deleted { fill: #fff; }
    .node:hover { stroke-width: 4; }`

// SVGOption configures SVG rendering.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	palette  render.Palette
	legend   bool
	fontSize float64
	title    string
}

// WithPalette sets the event colours.
func WithPalette(p render.Palette) SVGOption { return func(r *svgRenderer) { r.palette = p } }

// WithLegend appends a legend row below the drawing.
func WithLegend() SVGOption { return func(r *svgRenderer) { r.legend = true } }

// WithFontSize sets the label size.
func WithFontSize(px float64) SVGOption {
	return func(r *svgRenderer) {
		if px > 0 {
			r.fontSize = px
		}
	}
}

// WithTitle sets the document title.
func WithTitle(t string) SVGOption { return func(r *svgRenderer) { r.title = t } }

func newSVGRenderer(opts ...SVGOption) svgRenderer {
	r := svgRenderer{palette: render.DefaultPalette(), fontSize: DefaultFontSize}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// RenderSVG draws a scene.
func RenderSVG(s *scene.Scene, opts ...SVGOption) []byte {
	r := newSVGRenderer(opts...)

	w, h := px(s.Width), px(s.Height)
	if r.legend && len(s.Legend) > 0 {
		h += legendRow
	}

	var buf bytes.Buffer
	c := svg.New(&buf)
	c.Start(w, h, fmt.Sprintf(`viewBox="0 0 %d %d"`, w, h))
	if r.title != "" {
		c.Title(r.title)
	}
	c.Style("text/css", fmt.Sprintf(sceneCSS, max(1, px(s.EdgeLineWidth)), px(r.fontSize), max(6, px(s.EventWidth*0.4))))

	r.renderEdges(c, s)
	r.renderNodes(c, s)
	r.renderGlyphs(c, s)
	r.renderArrays(c, s)
	r.renderLabels(c, s)
	if r.legend {
		r.renderLegend(c, s, px(s.Height))
	}
	c.End()
	return buf.Bytes()
}

func (r *svgRenderer) renderEdges(c *svg.SVG, s *scene.Scene) {
	c.Gid("edges")
	for _, e := range s.Edges {
		class := `class="edge"`
		if e.Dashed {
			class = `class="edge dashed"`
		}
		c.Line(px(e.From.X), px(e.From.Y), px(e.To.X), px(e.To.Y), class)
	}
	c.Gend()
}

func (r *svgRenderer) renderNodes(c *svg.SVG, s *scene.Scene) {
	c.Gid("nodes")
	rad := max(2, px(s.EdgeLineWidth))
	for _, n := range s.Nodes {
		c.Circle(px(n.X), px(n.Y), rad, fmt.Sprintf(`id="node-%d"`, n.ID), `class="node"`, "fill:#333")
	}
	c.Gend()
}

func (r *svgRenderer) renderGlyphs(c *svg.SVG, s *scene.Scene) {
	c.Gid("events")
	for _, g := range s.Glyphs {
		fill := r.palette.Color(g.Kind, first(g.Spacers))
		c.Group(fmt.Sprintf(`data-node="%d"`, g.Node), fmt.Sprintf(`data-kind="%s"`, g.Kind))
		c.Title(g.Kind.Label() + " " + g.Text())
		c.Rect(px(g.X), px(g.Y), px(g.W), px(g.H), `class="glyph"`, "fill:"+fill)
		cx, cy := px(g.X+g.W/2), px(g.Y+g.H/2)
		c.Text(cx, cy, g.Text(), `class="caption"`, "fill:"+render.TextColor(fill))
		c.Gend()
	}
	c.Gend()
}

func (r *svgRenderer) renderArrays(c *svg.SVG, s *scene.Scene) {
	c.Gid("arrays")
	r.renderRow(c, s.Template)
	for _, row := range s.Arrays {
		r.renderRow(c, row)
	}
	c.Gend()
}

func (r *svgRenderer) renderRow(c *svg.SVG, row scene.Row) {
	c.Group(fmt.Sprintf(`data-array="%s"`, row.Name))
	for _, cell := range row.Cells {
		class := "cell"
		if cell.Duplicate {
			class += " duplicate"
		}
		x, y, w, h := px(cell.X), px(cell.Y), px(cell.W), px(cell.H)
		if cell.State == arrays.Deleted {
			c.Rect(x, y, w, h, fmt.Sprintf(`class="%s deleted"`, class))
			c.Line(x, y, x+w, y+h, "stroke:#333")
			c.Line(x, y+h, x+w, y, "stroke:#333")
			continue
		}
		fill := render.SpacerColor(cell.Spacer)
		c.Rect(x, y, w, h, fmt.Sprintf(`class="%s"`, class), "fill:"+fill)
		c.Text(x+w/2, y+h/2, cell.Spacer, `class="caption"`, "fill:"+render.TextColor(fill))
	}
	c.Gend()
}

func (r *svgRenderer) renderLabels(c *svg.SVG, s *scene.Scene) {
	c.Gid("labels")
	for _, l := range s.Labels {
		anchor := "text-anchor:start"
		if l.Anchor == scene.AnchorEnd {
			anchor = "text-anchor:end"
		}
		c.Text(px(l.X), px(l.Y), l.Text, `class="label"`, anchor)
	}
	c.Gend()
}

func (r *svgRenderer) renderLegend(c *svg.SVG, s *scene.Scene, top int) {
	if len(s.Legend) == 0 {
		return
	}
	c.Gid("legend")
	x, y := px(scene.DefaultMargin), top+legendRow/2
	sw := px(s.EventWidth)
	for _, e := range s.Legend {
		fill := r.palette.Color(e.Kind, e.Kind.String())
		c.Rect(x, y-sw/2, sw, sw, `class="glyph"`, "fill:"+fill)
		c.Text(x+sw+4, y, e.Label, `class="label"`)
		x += sw + 12 + int(float64(len(e.Label))*r.fontSize*0.6)
	}
	c.Gend()
}

func first(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

func px(f float64) int { return int(math.Round(f)) }
