package layout

import (
	"slices"

	errs "github.com/matzehuels/crisprtower/pkg/errors"
	"github.com/matzehuels/crisprtower/pkg/scaling"
	"github.com/matzehuels/crisprtower/pkg/tree"
)

// Defaults for [Config].
const (
	// DefaultRowPitch is max(spacer height, 2 × event height + event margin).
	DefaultRowPitch = 52

	ExtendFactor = 1.05
	ReduceFactor = 0.95
)

// ExtensionPos selects where the dashed extension sits on a stretched branch.
type ExtensionPos string

const (
	ExtensionAtNode   ExtensionPos = "node"
	ExtensionAtCenter ExtensionPos = "center"
)

// Valid reports whether p is a known position.
func (p ExtensionPos) Valid() bool { return p == ExtensionAtNode || p == ExtensionAtCenter }

// Config controls placement.
type Config struct {
	RowPitch     float64      `json:"row_pitch"`
	Horizontal   bool         `json:"horizontal"`
	ExtensionPos ExtensionPos `json:"extension_pos"`
}

// DefaultConfig returns horizontal placement with extensions at the node.
func DefaultConfig() Config {
	return Config{RowPitch: DefaultRowPitch, Horizontal: true, ExtensionPos: ExtensionAtNode}
}

// ViewNode is the drawn state of one tree node.
type ViewNode struct {
	ID              tree.NodeID `json:"id" bson:"id"`
	X               float64     `json:"x" bson:"x"`
	Y               float64     `json:"y" bson:"y"`
	Height          float64     `json:"height" bson:"height"`
	ExtensionLength float64     `json:"extension_length" bson:"extension_length"`
	NonExtensionLen float64     `json:"non_extension_len" bson:"non_extension_len"`
	Switched        bool        `json:"switched,omitempty" bson:"switched,omitempty"`
	CanSwitch       bool        `json:"can_switch" bson:"can_switch"`
}

// View is the placed tree.
type View struct {
	tree     *tree.Tree
	cfg      Config
	nodes    []ViewNode
	children [][]tree.NodeID

	scale     float64
	bestScale float64
	minScale  float64
	collapsed bool
}

// New places t at the best scale of res. ext is indexed by NodeID.
func New(t *tree.Tree, ext []float64, res scaling.Result, cfg Config) (*View, error) {
	if len(ext) != t.Len() {
		return nil, errs.New(errs.ErrCodeInvalidInput, "got %d extension lengths for %d nodes", len(ext), t.Len())
	}
	if cfg.RowPitch <= 0 {
		cfg.RowPitch = DefaultRowPitch
	}
	if cfg.ExtensionPos == "" {
		cfg.ExtensionPos = ExtensionAtNode
	}
	v := &View{
		tree:      t,
		cfg:       cfg,
		nodes:     make([]ViewNode, t.Len()),
		children:  make([][]tree.NodeID, t.Len()),
		scale:     res.BestScale,
		bestScale: res.BestScale,
		minScale:  res.MinScale,
	}
	for i := range v.nodes {
		id := tree.NodeID(i)
		v.nodes[i] = ViewNode{ID: id, ExtensionLength: ext[i], CanSwitch: true}
		v.children[i] = slices.Clone(t.Children(id))
	}
	v.Relayout()
	return v, nil
}

// Tree returns the underlying tree.
func (v *View) Tree() *tree.Tree { return v.tree }

// Config returns the placement settings.
func (v *View) Config() Config { return v.cfg }

// Node returns the drawn state of id.
func (v *View) Node(id tree.NodeID) ViewNode { return v.nodes[id] }

// Nodes returns a copy of every drawn node, indexed by NodeID.
func (v *View) Nodes() []ViewNode { return slices.Clone(v.nodes) }

// Children returns the current child order of id.
func (v *View) Children(id tree.NodeID) []tree.NodeID { return v.children[id] }

// Preorder walks the tree in the current child order.
func (v *View) Preorder() []tree.NodeID { return v.tree.PreorderWith(v.Children) }

// Leaves returns the leaves in the current preorder.
func (v *View) Leaves() []tree.NodeID {
	var out []tree.NodeID
	for _, id := range v.Preorder() {
		if len(v.children[id]) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// Scale returns the current branch scale.
func (v *View) Scale() float64 { return v.scale }

// BestScale returns the optimizer's pick.
func (v *View) BestScale() float64 { return v.bestScale }

// MinScale returns the smallest useful scale.
func (v *View) MinScale() float64 { return v.minScale }

// Collapsed reports whether singular stretches are collapsed.
func (v *View) Collapsed() bool { return v.collapsed }

// SetCollapsed locks or unlocks child switching and relative rescaling.
func (v *View) SetCollapsed(on bool) {
	v.collapsed = on
	for i := range v.nodes {
		v.nodes[i].CanSwitch = !on
	}
}

// Bounds returns the largest X and Y of any node.
func (v *View) Bounds() (w, h float64) {
	for _, n := range v.nodes {
		w = max(w, n.X)
		h = max(h, n.Y)
	}
	return w, h
}

// Switch reverses the children of id and relayouts the tree.
func (v *View) Switch(id tree.NodeID) error {
	if !v.tree.Has(id) {
		return errs.Wrap(errs.ErrCodeNotFound, tree.ErrUnknownNode, "node %d", id)
	}
	if !v.nodes[id].CanSwitch {
		return errs.New(errs.ErrCodeLocked, "cannot switch %q while arrays are collapsed", v.tree.Name(id))
	}
	v.nodes[id].Switched = !v.nodes[id].Switched
	slices.Reverse(v.children[id])
	v.Relayout()
	return nil
}

// Relayout re-runs both axes at the current scale.
func (v *View) Relayout() {
	for i := range v.nodes {
		v.nodes[i].X, v.nodes[i].Y = 0, 0
	}
	v.placeRows()
	v.placeBranches(func(n *ViewNode, b float64) { n.Y = b })
	if v.cfg.Horizontal {
		v.Transpose()
	}
}

// Transpose swaps X and Y of every node.
func (v *View) Transpose() {
	for i := range v.nodes {
		v.nodes[i].X, v.nodes[i].Y = v.nodes[i].Y, v.nodes[i].X
	}
}

func (v *View) placeRows() {
	leaves := v.Leaves()
	rows := make(map[tree.NodeID]float64, len(v.nodes))
	for i := range leaves {
		rows[leaves[len(leaves)-1-i]] = float64(len(leaves) - i)
	}
	var row func(id tree.NodeID) float64
	row = func(id tree.NodeID) float64 {
		if r, ok := rows[id]; ok {
			return r
		}
		kids := v.children[id]
		r := (row(kids[0]) + row(kids[len(kids)-1])) / 2
		rows[id] = r
		return r
	}
	for i := range v.nodes {
		v.nodes[i].X = row(tree.NodeID(i)) * v.cfg.RowPitch
	}
}

func (v *View) placeBranches(set func(n *ViewNode, b float64)) {
	branch := make([]float64, len(v.nodes))
	for _, id := range v.Preorder() {
		n := &v.nodes[id]
		n.NonExtensionLen = v.tree.Node(id).Distance * v.scale
		n.Height = max(n.NonExtensionLen, n.ExtensionLength)
		branch[id] = n.Height
		if p := v.tree.Parent(id); p != tree.NoNode {
			branch[id] += branch[p]
		}
		set(n, branch[id])
	}
}

// Branch returns the branch-axis coordinate of a node in the current
// orientation.
func (v *View) Branch(n ViewNode) float64 {
	if v.cfg.Horizontal {
		return n.X
	}
	return n.Y
}

// Row returns the perpendicular coordinate of a node.
func (v *View) Row(n ViewNode) float64 {
	if v.cfg.Horizontal {
		return n.Y
	}
	return n.X
}
