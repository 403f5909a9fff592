package geometry

import (
	"slices"

	"github.com/matzehuels/crisprtower/pkg/events"
	"github.com/matzehuels/crisprtower/pkg/tree"
)

// Placement is one glyph on a band. Offset runs from the band start.
type Placement struct {
	Kind    tree.EventKind `json:"kind" bson:"kind"`
	Spacers []string       `json:"spacers" bson:"spacers"`
	Pool    bool           `json:"pool,omitempty" bson:"pool,omitempty"`
	Offset  float64        `json:"offset" bson:"offset"`
	Width   float64        `json:"width" bson:"width"`
}

// BandLayout is the ordered glyphs of one band and their total length.
type BandLayout struct {
	Items  []Placement `json:"items,omitempty" bson:"items,omitempty"`
	Length float64     `json:"length" bson:"length"`
}

// NodePlacement holds both bands of a node.
type NodePlacement struct {
	Top    BandLayout `json:"top" bson:"top"`
	Bottom BandLayout `json:"bottom" bson:"bottom"`
}

// Band returns the layout for b.
func (p *NodePlacement) Band(b Band) *BandLayout {
	if b == BandBottom {
		return &p.Bottom
	}
	return &p.Top
}

// A gain also recorded as one of these kinds is drawn only as that kind.
var gainShadowKinds = []tree.EventKind{
	tree.Duplications, tree.Contradictions, tree.DoubleGains, tree.IndependentGains,
	tree.Reacquisitions, tree.Dups, tree.Rearrangements,
}

// Gains in these kinds are left out before pooling.
var gainPoolExclusions = []tree.EventKind{tree.Duplications, tree.Contradictions, tree.DoubleGains}

// PlaceNode lays out every event of a node along its bands, kind by kind in
// table order.
func PlaceNode(ev *tree.Events, cfg Config) (NodePlacement, error) {
	var out NodePlacement
	for _, k := range tree.AllKinds() {
		list := ev.Get(k)
		if list.Empty() {
			continue
		}
		band, err := cfg.BandOf(k)
		if err != nil {
			return NodePlacement{}, err
		}
		bl := out.Band(band)
		for _, g := range list {
			ids := []string(g)
			poolSrc := g
			if k == tree.Gains {
				ids = without(g, ev, gainShadowKinds)
				poolSrc = without(g, ev, gainPoolExclusions)
			}
			var pools []events.Pool
			if cfg.Pooling {
				pools, _ = events.PoolGroup(poolSrc)
			}
			for _, item := range events.Sequence(ids, pools) {
				w := cfg.EventWidth
				if item.Pool {
					w = cfg.PoolWidth
				}
				bl.Items = append(bl.Items, Placement{
					Kind:    k,
					Spacers: item.Spacers,
					Pool:    item.Pool,
					Offset:  bl.Length,
					Width:   w,
				})
				bl.Length += w
			}
		}
	}
	return out, nil
}

func without(g tree.Group, ev *tree.Events, kinds []tree.EventKind) tree.Group {
	return slices.DeleteFunc(slices.Clone(g), func(id string) bool {
		for _, k := range kinds {
			if ev.Get(k).Contains(id) {
				return true
			}
		}
		return false
	})
}
