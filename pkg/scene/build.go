package scene

import (
	"fmt"
	"math"
	"slices"

	"github.com/matzehuels/crisprtower/pkg/arrays"
	"github.com/matzehuels/crisprtower/pkg/dataset"
	errs "github.com/matzehuels/crisprtower/pkg/errors"
	"github.com/matzehuels/crisprtower/pkg/geometry"
	"github.com/matzehuels/crisprtower/pkg/layout"
	"github.com/matzehuels/crisprtower/pkg/scaling"
	"github.com/matzehuels/crisprtower/pkg/tree"
)

// Defaults for [Config].
const (
	DefaultGap       = 40.0
	DefaultCharWidth = 7.0
	DefaultMargin    = 20.0

	// TagGap separates a node from its label.
	TagGap = 6.0
)

// Config holds the metrics used to position glyphs, labels and arrays.
type Config struct {
	Events geometry.Config
	Arrays arrays.Config
	// Gap separates the longest label from the array panel.
	Gap float64
	// CharWidth estimates the advance of one label character.
	CharWidth     float64
	Margin        float64
	ShowInnerTags bool
}

// DefaultConfig returns the default metrics.
func DefaultConfig() Config {
	return Config{
		Events:    geometry.DefaultConfig(),
		Arrays:    arrays.DefaultConfig(),
		Gap:       DefaultGap,
		CharWidth: DefaultCharWidth,
		Margin:    DefaultMargin,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Events.EventWidth <= 0 {
		c.Events = d.Events
	}
	if c.Arrays.SpacerWidth <= 0 || c.Arrays.SpacerSpacing <= 0 {
		c.Arrays = d.Arrays
	}
	if c.Gap < 0 {
		c.Gap = d.Gap
	}
	if c.CharWidth <= 0 {
		c.CharWidth = d.CharWidth
	}
	if c.Margin < 0 {
		c.Margin = d.Margin
	}
	return c
}

// Build positions everything drawn for m under the current state of v.
func Build(m *dataset.Model, v *layout.View, res scaling.Result, cfg Config) (*Scene, error) {
	if m == nil || v == nil {
		return nil, errs.New(errs.ErrCodeInvalidInput, "scene needs a model and a view")
	}
	if v.Tree() != m.Tree {
		return nil, errs.New(errs.ErrCodeInvalidInput, "view was not built from the model tree")
	}
	cfg = cfg.withDefaults()

	s := &Scene{
		Horizontal:    v.Config().Horizontal,
		Scale:         v.Scale(),
		BestScale:     v.BestScale(),
		MinScale:      v.MinScale(),
		Fallback:      res.Fallback,
		Collapsed:     v.Collapsed(),
		EventWidth:    cfg.Events.EventWidth,
		EdgeLineWidth: cfg.Events.EdgeLineWidth,
	}
	b := &builder{s: s, v: v, t: m.Tree, cfg: cfg}

	for _, id := range v.Preorder() {
		vn := v.Node(id)
		n := m.Tree.Node(id)
		s.Nodes = append(s.Nodes, Node{
			ID:              id,
			Name:            n.Name,
			X:               vn.X,
			Y:               vn.Y,
			Height:          vn.Height,
			ExtensionLength: vn.ExtensionLength,
			NonExtensionLen: vn.NonExtensionLen,
			Leaf:            n.IsLeaf(),
			Switched:        vn.Switched,
			CanSwitch:       vn.CanSwitch,
		})
		b.maxBranch = max(b.maxBranch, v.Branch(vn))

		p, err := geometry.PlaceNode(&n.Events, cfg.Events)
		if err != nil {
			return nil, fmt.Errorf("place events of %s: %w", n.Name, err)
		}
		b.glyphs(id, vn, &p)
	}
	s.Edges = v.Edges()

	b.labels()
	b.legend()
	b.arrays(m)
	b.normalize()
	return s, nil
}

type builder struct {
	s   *Scene
	v   *layout.View
	t   *tree.Tree
	cfg Config

	maxBranch float64
	labelEnd  float64
}

// rect maps a box given on the row and branch axes into screen space.
func (b *builder) rect(r0, r1, b0, b1 float64) Rect {
	if b.s.Horizontal {
		return Rect{X: b0, Y: r0, W: b1 - b0, H: r1 - r0}
	}
	return Rect{X: r0, Y: b0, W: r1 - r0, H: b1 - b0}
}

func (b *builder) point(row, branch float64) (x, y float64) {
	if b.s.Horizontal {
		return branch, row
	}
	return row, branch
}

// glyphs lays both bands of a node against the end of its branch.
func (b *builder) glyphs(id tree.NodeID, vn layout.ViewNode, p *geometry.NodePlacement) {
	row, branch := b.v.Row(vn), b.v.Branch(vn)
	ew, lw := b.cfg.Events.EventWidth, b.cfg.Events.EdgeLineWidth
	for _, band := range []geometry.Band{geometry.BandTop, geometry.BandBottom} {
		bl := p.Band(band)
		if len(bl.Items) == 0 {
			continue
		}
		r0, r1 := row-lw-ew, row-lw
		if band == geometry.BandBottom {
			r0, r1 = row+lw, row+lw+ew
		}
		start := branch - bl.Length - lw
		for _, it := range bl.Items {
			b0 := start + it.Offset
			b.s.Glyphs = append(b.s.Glyphs, Glyph{
				Rect:    b.rect(r0, r1, b0, b0+it.Width),
				Node:    id,
				Kind:    it.Kind,
				Spacers: slices.Clone(it.Spacers),
				Pool:    it.Pool,
				Bottom:  band == geometry.BandBottom,
			})
		}
	}
}

func (b *builder) labels() {
	b.labelEnd = b.maxBranch
	for _, tag := range b.t.Tags(b.cfg.ShowInnerTags) {
		vn := b.v.Node(tag.Node)
		at := b.v.Branch(vn) + TagGap
		x, y := b.point(b.v.Row(vn), at)
		b.s.Labels = append(b.s.Labels, Label{Node: tag.Node, Text: tag.Text, X: x, Y: y, Anchor: AnchorStart})
		b.labelEnd = max(b.labelEnd, at+b.textWidth(tag.Text))
	}
}

func (b *builder) textWidth(s string) float64 {
	return float64(len([]rune(s))) * b.cfg.CharWidth
}

func (b *builder) legend() {
	seen := make(map[string]bool)
	for _, k := range b.t.PresentKinds() {
		l := k.Label()
		if seen[l] {
			continue
		}
		seen[l] = true
		b.s.Legend = append(b.s.Legend, LegendEntry{Kind: k, Label: l})
	}
}

// arrays lays the template on row zero and every array on the row of its
// leaf. Arrays without a leaf are stacked below the tree.
func (b *builder) arrays(m *dataset.Model) {
	origin := b.labelEnd + b.cfg.Gap
	pitch := b.v.Config().RowPitch

	rows := make(map[string]float64)
	for _, id := range b.v.Leaves() {
		rows[b.t.Name(id)] = b.v.Row(b.v.Node(id))
	}
	next := float64(len(rows)+1) * pitch

	collapsed := b.s.Collapsed && m.Collapse != nil && !m.Collapse.Empty()
	if m.Collapse != nil && !m.Collapse.Empty() {
		b.s.Collapse = m.Collapse
	}

	column := func(row string, i int) (float64, bool) {
		if !collapsed {
			return float64(i), true
		}
		return m.Collapse.Column(row, m.Template.Spacers[i].Name, i)
	}

	b.s.Template = Row{Name: arrays.TemplateRow}
	for i := range m.Template.Spacers {
		if c, ok := b.cell(m.Template, arrays.TemplateRow, i, arrays.Present, 0, origin, column); ok {
			b.s.Template.Cells = append(b.s.Template.Cells, c)
		}
	}

	for _, a := range m.Arrays {
		row, ok := rows[a.Name]
		if !ok {
			row = next
			next += pitch
			x, y := b.point(row, origin-TagGap)
			b.s.Labels = append(b.s.Labels, Label{Node: tree.NoNode, Text: a.Name, X: x, Y: y, Anchor: AnchorEnd})
		}
		r := Row{Name: a.Name}
		for i, state := range a.Cells {
			if state == arrays.Absent {
				continue
			}
			if c, ok := b.cell(m.Template, a.Name, i, state, row, origin, column); ok {
				r.Cells = append(r.Cells, c)
			}
		}
		b.s.Arrays = append(b.s.Arrays, r)
	}
}

func (b *builder) cell(tmpl *arrays.Template, rowName string, i int, state arrays.Presence, row, origin float64,
	column func(string, int) (float64, bool)) (Cell, bool) {
	col, ok := column(rowName, i)
	if !ok {
		return Cell{}, false
	}
	sp := tmpl.Spacers[i]
	w := b.cfg.Arrays.SpacerWidth
	b0 := origin + b.cfg.Arrays.X(col)
	return Cell{
		Rect:      b.rect(row-w/2, row+w/2, b0, b0+w),
		Spacer:    sp.Name,
		Index:     i,
		Column:    col,
		State:     state,
		Duplicate: len(sp.Duplicates) > 0,
	}, true
}

// normalize moves the drawing so its bounding box starts at the margin and
// sets the scene size.
func (b *builder) normalize() {
	s := b.s
	bb := bbox{minX: math.Inf(1), minY: math.Inf(1), maxX: math.Inf(-1), maxY: math.Inf(-1)}
	for _, n := range s.Nodes {
		bb.add(n.X, n.Y)
	}
	for _, e := range s.Edges {
		bb.add(e.From.X, e.From.Y)
		bb.add(e.To.X, e.To.Y)
	}
	for _, g := range s.Glyphs {
		bb.addRect(g.Rect)
	}
	for _, c := range s.Template.Cells {
		bb.addRect(c.Rect)
	}
	for _, r := range s.Arrays {
		for _, c := range r.Cells {
			bb.addRect(c.Rect)
		}
	}
	half := b.cfg.CharWidth
	for _, l := range s.Labels {
		w := b.textWidth(l.Text)
		if l.Anchor == AnchorEnd {
			bb.add(l.X-w, l.Y-half)
		} else {
			bb.add(l.X+w, l.Y+half)
		}
		bb.add(l.X, l.Y)
	}
	if math.IsInf(bb.minX, 1) {
		return
	}

	dx, dy := b.cfg.Margin-bb.minX, b.cfg.Margin-bb.minY
	for i := range s.Nodes {
		s.Nodes[i].X += dx
		s.Nodes[i].Y += dy
	}
	for i := range s.Edges {
		s.Edges[i].From.X += dx
		s.Edges[i].From.Y += dy
		s.Edges[i].To.X += dx
		s.Edges[i].To.Y += dy
	}
	for i := range s.Glyphs {
		s.Glyphs[i].Rect = s.Glyphs[i].Rect.shift(dx, dy)
	}
	for i := range s.Template.Cells {
		s.Template.Cells[i].Rect = s.Template.Cells[i].Rect.shift(dx, dy)
	}
	for _, r := range s.Arrays {
		for i := range r.Cells {
			r.Cells[i].Rect = r.Cells[i].Rect.shift(dx, dy)
		}
	}
	for i := range s.Labels {
		s.Labels[i].X += dx
		s.Labels[i].Y += dy
	}
	s.Width = bb.maxX - bb.minX + 2*b.cfg.Margin
	s.Height = bb.maxY - bb.minY + 2*b.cfg.Margin
}

func (r Rect) shift(dx, dy float64) Rect {
	r.X += dx
	r.Y += dy
	return r
}

type bbox struct{ minX, minY, maxX, maxY float64 }

func (bb *bbox) add(x, y float64) {
	bb.minX, bb.maxX = min(bb.minX, x), max(bb.maxX, x)
	bb.minY, bb.maxY = min(bb.minY, y), max(bb.maxY, y)
}

func (bb *bbox) addRect(r Rect) {
	bb.add(r.X, r.Y)
	bb.add(r.right(), r.bottom())
}
