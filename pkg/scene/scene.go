// Package scene turns a placed tree and its arrays into absolute drawing
// primitives.
//
// A [Scene] is the single input of every render sink. It holds node
// positions, edge segments, event glyphs, labels, the legend and one row of
// cells per CRISPR array. Scenes serialize to JSON and BSON so that a layout
// can be cached and rendered later without the dataset.
package scene

import (
	"github.com/matzehuels/crisprtower/pkg/arrays"
	"github.com/matzehuels/crisprtower/pkg/layout"
	"github.com/matzehuels/crisprtower/pkg/tree"
)

// Scene is a fully positioned drawing. All coordinates are pixels with the
// origin in the top left corner.
type Scene struct {
	Dataset    string  `json:"dataset,omitempty" bson:"dataset,omitempty"`
	Width      float64 `json:"width" bson:"width"`
	Height     float64 `json:"height" bson:"height"`
	Horizontal bool    `json:"horizontal" bson:"horizontal"`

	Scale     float64 `json:"scale" bson:"scale"`
	BestScale float64 `json:"best_scale" bson:"best_scale"`
	MinScale  float64 `json:"min_scale" bson:"min_scale"`
	Fallback  bool    `json:"fallback,omitempty" bson:"fallback,omitempty"`
	Collapsed bool    `json:"collapsed,omitempty" bson:"collapsed,omitempty"`

	Nodes    []Node           `json:"nodes" bson:"nodes"`
	Edges    []layout.Segment `json:"edges,omitempty" bson:"edges,omitempty"`
	Glyphs   []Glyph          `json:"glyphs,omitempty" bson:"glyphs,omitempty"`
	Labels   []Label          `json:"labels,omitempty" bson:"labels,omitempty"`
	Legend   []LegendEntry    `json:"legend,omitempty" bson:"legend,omitempty"`
	Template Row              `json:"template" bson:"template"`
	Arrays   []Row            `json:"arrays,omitempty" bson:"arrays,omitempty"`
	Collapse *arrays.Collapse `json:"collapse,omitempty" bson:"collapse,omitempty"`

	// Metrics the sinks need to draw glyphs consistently.
	EventWidth    float64 `json:"event_width" bson:"event_width"`
	EdgeLineWidth float64 `json:"edge_line_width" bson:"edge_line_width"`
}

// Rect is an axis-aligned box.
type Rect struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
	W float64 `json:"w" bson:"w"`
	H float64 `json:"h" bson:"h"`
}

func (r Rect) right() float64  { return r.X + r.W }
func (r Rect) bottom() float64 { return r.Y + r.H }

// Node is the drawn state of one tree node.
type Node struct {
	ID              tree.NodeID `json:"id" bson:"id"`
	Name            string      `json:"name" bson:"name"`
	X               float64     `json:"x" bson:"x"`
	Y               float64     `json:"y" bson:"y"`
	Height          float64     `json:"height" bson:"height"`
	ExtensionLength float64     `json:"extension_length,omitempty" bson:"extension_length,omitempty"`
	NonExtensionLen float64     `json:"non_extension_len" bson:"non_extension_len"`
	Leaf            bool        `json:"leaf,omitempty" bson:"leaf,omitempty"`
	Switched        bool        `json:"switched,omitempty" bson:"switched,omitempty"`
	CanSwitch       bool        `json:"can_switch" bson:"can_switch"`
}

// Glyph is one event item or pool drawn along a branch.
type Glyph struct {
	Rect    `bson:",inline"`
	Node    tree.NodeID    `json:"node" bson:"node"`
	Kind    tree.EventKind `json:"kind" bson:"kind"`
	Spacers []string       `json:"spacers" bson:"spacers"`
	Pool    bool           `json:"pool,omitempty" bson:"pool,omitempty"`
	Bottom  bool           `json:"bottom,omitempty" bson:"bottom,omitempty"`
}

// Text returns the glyph caption: the spacer id, or "first-last" for a pool.
func (g Glyph) Text() string {
	if len(g.Spacers) == 0 {
		return ""
	}
	if g.Pool {
		return g.Spacers[0] + "-" + g.Spacers[len(g.Spacers)-1]
	}
	return g.Spacers[0]
}

// Anchor values for [Label].
const (
	AnchorStart = "start"
	AnchorEnd   = "end"
)

// Label is a piece of text anchored at a point and centred on it vertically.
type Label struct {
	Node   tree.NodeID `json:"node" bson:"node"`
	Text   string      `json:"text" bson:"text"`
	X      float64     `json:"x" bson:"x"`
	Y      float64     `json:"y" bson:"y"`
	Anchor string      `json:"anchor,omitempty" bson:"anchor,omitempty"`
}

// LegendEntry names one event kind present in the tree.
type LegendEntry struct {
	Kind  tree.EventKind `json:"kind" bson:"kind"`
	Label string         `json:"label" bson:"label"`
}

// Row is one array of the array panel.
type Row struct {
	Name  string `json:"name" bson:"name"`
	Cells []Cell `json:"cells" bson:"cells"`
}

// Cell is one drawn spacer.
type Cell struct {
	Rect      `bson:",inline"`
	Spacer    string          `json:"spacer" bson:"spacer"`
	Index     int             `json:"index" bson:"index"`
	Column    float64         `json:"column" bson:"column"`
	State     arrays.Presence `json:"state" bson:"state"`
	Duplicate bool            `json:"duplicate,omitempty" bson:"duplicate,omitempty"`
}

// SwitchedNodes returns the names of nodes whose children are reversed.
func (s *Scene) SwitchedNodes() []string {
	var out []string
	for _, n := range s.Nodes {
		if n.Switched {
			out = append(out, n.Name)
		}
	}
	return out
}

// Node returns the scene node with the given name.
func (s *Scene) Node(name string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return Node{}, false
}
