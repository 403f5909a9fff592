package scene

import (
	"bytes"
	"math"
	"path/filepath"
	"slices"
	"testing"

	"github.com/matzehuels/crisprtower/pkg/arrays"
	"github.com/matzehuels/crisprtower/pkg/dataset"
	errs "github.com/matzehuels/crisprtower/pkg/errors"
	"github.com/matzehuels/crisprtower/pkg/geometry"
	"github.com/matzehuels/crisprtower/pkg/layout"
	"github.com/matzehuels/crisprtower/pkg/scaling"
	"github.com/matzehuels/crisprtower/pkg/tree"
)

func testModel(t *testing.T) *dataset.Model {
	t.Helper()
	d := &dataset.Dataset{
		Newick: "((A:1,B:1)Inner1:1,C:2)Inner0;",
		RecSpacers: map[string][]int{
			"A": {0, 1, 1, 1, 0},
			"B": {0, 0, 0, 0, 1},
			"C": {1, 0, 0, 0, 0},
			"Z": {1, 1, 1, 1, 1},
		},
		TopOrder:       []string{"s5", "s10", "s11", "s12", "s13"},
		NamesToNumbers: map[string]string{"s5": "5", "s10": "10", "s11": "11", "s12": "12", "s13": "13"},
		Gains: map[string]tree.EventList{
			"Inner0": tree.Flat("5"),
			"A":      tree.Flat("10", "11", "12"),
			"B":      tree.Flat("13"),
		},
		Losses: map[string]tree.EventList{"B": tree.Flat("5")},
	}
	m, err := d.Model()
	if err != nil {
		t.Fatalf("Model: %v", err)
	}
	return m
}

func testView(t *testing.T, m *dataset.Model, cfg layout.Config) *layout.View {
	t.Helper()
	ext, err := geometry.Extensions(m.Tree, geometry.DefaultConfig())
	if err != nil {
		t.Fatalf("Extensions: %v", err)
	}
	v, err := layout.New(m.Tree, ext, scaling.Result{BestScale: 10, MinScale: 1}, cfg)
	if err != nil {
		t.Fatalf("layout.New: %v", err)
	}
	return v
}

func build(t *testing.T, m *dataset.Model, v *layout.View) *Scene {
	t.Helper()
	s, err := Build(m, v, scaling.Result{BestScale: 10}, DefaultConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return s
}

func row(s *Scene, name string) Row {
	for _, r := range s.Arrays {
		if r.Name == name {
			return r
		}
	}
	return Row{}
}

func TestBuild(t *testing.T) {
	m := testModel(t)
	s := build(t, m, testView(t, m, layout.DefaultConfig()))

	if len(s.Nodes) != 5 || s.Nodes[0].Name != "Inner0" {
		t.Fatalf("Nodes = %+v", s.Nodes)
	}
	if s.Width <= 0 || s.Height <= 0 {
		t.Errorf("size = %vx%v", s.Width, s.Height)
	}
	for _, n := range s.Nodes {
		if n.X < DefaultMargin || n.Y < DefaultMargin || n.X > s.Width || n.Y > s.Height {
			t.Errorf("node %s at (%v,%v) outside %vx%v", n.Name, n.X, n.Y, s.Width, s.Height)
		}
	}

	if len(s.Glyphs) != 4 {
		t.Fatalf("Glyphs = %d, want 4: %+v", len(s.Glyphs), s.Glyphs)
	}
	a, _ := s.Node("A")
	var pool *Glyph
	for i := range s.Glyphs {
		if s.Glyphs[i].Pool {
			pool = &s.Glyphs[i]
		}
	}
	if pool == nil || pool.Node != a.ID || pool.Text() != "10-12" {
		t.Fatalf("pool glyph = %+v", pool)
	}
	if got := pool.X + pool.W; got != a.X-geometry.DefaultEdgeLineWidth {
		t.Errorf("pool ends at %v, want %v", got, a.X-geometry.DefaultEdgeLineWidth)
	}
	if got := pool.Y + pool.H; got != a.Y-geometry.DefaultEdgeLineWidth {
		t.Errorf("pool bottom at %v, want %v", got, a.Y-geometry.DefaultEdgeLineWidth)
	}
	if pool.W != geometry.DefaultPoolWidth {
		t.Errorf("pool width = %v", pool.W)
	}

	var bottom int
	for _, g := range s.Glyphs {
		if g.Bottom {
			bottom++
			if g.Kind != tree.Losses {
				t.Errorf("bottom glyph kind = %v", g.Kind)
			}
		}
	}
	if bottom != 1 {
		t.Errorf("bottom glyphs = %d, want 1", bottom)
	}

	labels := []string{"Acquisitions", "Deletions"}
	var got []string
	for _, e := range s.Legend {
		got = append(got, e.Label)
	}
	if !slices.Equal(got, labels) {
		t.Errorf("Legend = %v, want %v", got, labels)
	}

	if len(s.Labels) != 4 {
		t.Errorf("Labels = %+v", s.Labels)
	}
	if l := s.Labels[len(s.Labels)-1]; l.Text != "Z" || l.Node != tree.NoNode || l.Anchor != AnchorEnd {
		t.Errorf("extra array label = %+v", l)
	}
}

func TestBuildArrays(t *testing.T) {
	m := testModel(t)
	s := build(t, m, testView(t, m, layout.DefaultConfig()))

	if len(s.Template.Cells) != 5 {
		t.Fatalf("template cells = %d", len(s.Template.Cells))
	}
	for i := 1; i < len(s.Template.Cells); i++ {
		prev, cur := s.Template.Cells[i-1], s.Template.Cells[i]
		if cur.X-prev.X != arrays.DefaultSpacerSpacing || cur.Y != prev.Y {
			t.Errorf("template cell %d at (%v,%v), previous (%v,%v)", i, cur.X, cur.Y, prev.X, prev.Y)
		}
	}

	names := make([]string, len(s.Arrays))
	for i, r := range s.Arrays {
		names[i] = r.Name
	}
	if !slices.Equal(names, []string{"A", "B", "C", "Z"}) {
		t.Errorf("arrays = %v", names)
	}

	b := row(s, "B")
	if len(b.Cells) != 2 || b.Cells[0].State != arrays.Deleted || b.Cells[1].Spacer != "13" {
		t.Errorf("B cells = %+v", b.Cells)
	}
	bn, _ := s.Node("B")
	for _, c := range b.Cells {
		if c.Y+c.H/2 != bn.Y {
			t.Errorf("cell %s centred at %v, leaf at %v", c.Spacer, c.Y+c.H/2, bn.Y)
		}
		if c.X <= bn.X {
			t.Errorf("cell %s should sit right of the tree", c.Spacer)
		}
	}
	if s.Collapse == nil || s.Collapse.Saved != 1 {
		t.Errorf("Collapse = %+v", s.Collapse)
	}
}

func TestBuildCollapsed(t *testing.T) {
	m := testModel(t)
	v := testView(t, m, layout.DefaultConfig())
	v.SetCollapsed(true)
	s := build(t, m, v)

	if !s.Collapsed {
		t.Error("scene should be collapsed")
	}
	if len(s.Template.Cells) != 1 || s.Template.Cells[0].Spacer != "5" {
		t.Errorf("template cells = %+v", s.Template.Cells)
	}

	columns := func(r Row) map[string]float64 {
		out := make(map[string]float64)
		for _, c := range r.Cells {
			out[c.Spacer] = c.Column
		}
		return out
	}
	if got := columns(row(s, "A")); got["10"] != 1 || got["11"] != 2 || got["12"] != 3 {
		t.Errorf("A columns = %v", got)
	}
	if got := columns(row(s, "B")); got["5"] != 0 || got["13"] != 2 {
		t.Errorf("B columns = %v", got)
	}
	if got := columns(row(s, "Z")); len(got) != 1 {
		t.Errorf("Z should only show unowned cells, got %v", got)
	}
}

func TestBuildVertical(t *testing.T) {
	m := testModel(t)
	cfg := layout.DefaultConfig()
	cfg.Horizontal = false
	s := build(t, m, testView(t, m, cfg))

	a, _ := s.Node("A")
	for _, g := range s.Glyphs {
		if g.Pool {
			if g.Y+g.H != a.Y-geometry.DefaultEdgeLineWidth || g.W != geometry.DefaultEventWidth {
				t.Errorf("vertical pool = %+v, node A at (%v,%v)", g, a.X, a.Y)
			}
		}
	}
}

func TestBuildErrors(t *testing.T) {
	m := testModel(t)
	other := testModel(t)
	v := testView(t, other, layout.DefaultConfig())

	if _, err := Build(m, v, scaling.Result{}, DefaultConfig()); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("foreign view: err = %v", err)
	}
	if _, err := Build(nil, v, scaling.Result{}, DefaultConfig()); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("nil model: err = %v", err)
	}
}

func TestMarshal(t *testing.T) {
	m := testModel(t)
	s := build(t, m, testView(t, m, layout.DefaultConfig()))

	data, err := Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Contains(data, []byte(`"kind": "gains"`)) {
		t.Error("event kinds should serialize by name")
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(got.Glyphs) != len(s.Glyphs) || got.Glyphs[0].Rect != s.Glyphs[0].Rect {
		t.Errorf("glyphs differ after JSON round trip")
	}

	raw, err := MarshalBSON(s)
	if err != nil {
		t.Fatalf("MarshalBSON: %v", err)
	}
	back, err := UnmarshalBSON(raw)
	if err != nil {
		t.Fatalf("UnmarshalBSON: %v", err)
	}
	if back.Width != s.Width || len(back.Arrays) != len(s.Arrays) || back.Glyphs[0].Rect != s.Glyphs[0].Rect {
		t.Errorf("BSON round trip lost data")
	}

	if _, err := Unmarshal([]byte(`{"nodes": []}`)); !errs.Is(err, errs.ErrCodeInvalidFormat) {
		t.Errorf("empty scene: err = %v", err)
	}
	if _, err := Unmarshal([]byte(`{`)); !errs.Is(err, errs.ErrCodeInvalidFormat) {
		t.Errorf("broken JSON: err = %v", err)
	}
}

func TestFiles(t *testing.T) {
	m := testModel(t)
	s := build(t, m, testView(t, m, layout.DefaultConfig()))
	dir := t.TempDir()

	for _, name := range []string{"scene.json", "scene.bson"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := WriteFile(s, path); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			got, err := ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if math.Abs(got.Height-s.Height) > 1e-9 || len(got.Nodes) != len(s.Nodes) {
				t.Errorf("round trip mismatch")
			}
		})
	}

	if _, err := ReadFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSwitchedNodes(t *testing.T) {
	m := testModel(t)
	v := testView(t, m, layout.DefaultConfig())
	id, _ := m.Tree.Find("Inner1")
	if err := v.Switch(id); err != nil {
		t.Fatal(err)
	}
	s := build(t, m, v)
	if got := s.SwitchedNodes(); !slices.Equal(got, []string{"Inner1"}) {
		t.Errorf("SwitchedNodes = %v", got)
	}
	names := make([]string, len(s.Arrays))
	for i, r := range s.Arrays {
		names[i] = r.Name
	}
	if names[0] != "A" {
		t.Errorf("array order follows the dataset, got %v", names)
	}
	bn, _ := s.Node("B")
	an, _ := s.Node("A")
	if bn.Y >= an.Y {
		t.Errorf("switched leaves: B at %v should be above A at %v", bn.Y, an.Y)
	}
}
