package layout

import "github.com/matzehuels/crisprtower/pkg/tree"

// Point is a 2D coordinate.
type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Segment is one straight piece of a tree edge.
type Segment struct {
	Node   tree.NodeID `json:"node" bson:"node"`
	From   Point       `json:"from" bson:"from"`
	To     Point       `json:"to" bson:"to"`
	Dashed bool        `json:"dashed,omitempty" bson:"dashed,omitempty"`
}

// Edges returns the segments that draw every branch. A branch whose events
// need more room than its scaled distance is drawn solid for the scaled
// part and dashed for the rest.
func (v *View) Edges() []Segment {
	var out []Segment
	for _, id := range v.Preorder() {
		n := v.nodes[id]
		row, branch := v.Row(n), v.Branch(n)

		p := v.tree.Parent(id)
		if p == tree.NoNode {
			if n.Height > 0 {
				out = v.appendSeg(out, id, row, branch-n.Height, branch, true)
			}
			continue
		}

		pn := v.nodes[p]
		pRow, pBranch := v.Row(pn), v.Branch(pn)
		out = append(out, Segment{Node: id, From: v.point(pRow, pBranch), To: v.point(row, pBranch)})

		ext := n.ExtensionLength
		switch {
		case ext == 0:
			out = v.appendSeg(out, id, row, pBranch, branch, false)
		case v.cfg.ExtensionPos == ExtensionAtCenter:
			a := min(pBranch+n.NonExtensionLen/2, branch)
			b := min(a+ext, branch)
			out = v.appendSeg(out, id, row, pBranch, a, false)
			out = v.appendSeg(out, id, row, a, b, true)
			out = v.appendSeg(out, id, row, b, branch, false)
		default:
			a := min(pBranch+n.NonExtensionLen, branch)
			out = v.appendSeg(out, id, row, pBranch, a, false)
			out = v.appendSeg(out, id, row, a, branch, true)
		}
	}
	return out
}

func (v *View) appendSeg(out []Segment, id tree.NodeID, row, from, to float64, dashed bool) []Segment {
	if to <= from {
		return out
	}
	return append(out, Segment{Node: id, From: v.point(row, from), To: v.point(row, to), Dashed: dashed})
}

func (v *View) point(row, branch float64) Point {
	if v.cfg.Horizontal {
		return Point{X: branch, Y: row}
	}
	return Point{X: row, Y: branch}
}
