package tree

import (
	"slices"
	"strings"
)

// Set is an unordered collection of spacer ids.
type Set map[string]struct{}

// Has reports whether id is in the set.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts ids.
func (s Set) Add(ids ...string) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// insertionKinds are the kinds that put a spacer into an ancestral array.
var insertionKinds = []EventKind{Gains, Contradictions, Duplications, Rearrangements, DoubleGains, IndependentGains}

// UpstreamGains collects every inserted spacer on the path from the root to
// id, both ends included.
func (t *Tree) UpstreamGains(id NodeID) Set {
	out := Set{}
	for cur := id; cur != NoNode; cur = t.nodes[cur].Parent {
		for _, k := range insertionKinds {
			out.Add(t.nodes[cur].Events[k].Flatten()...)
		}
	}
	return out
}

// UpstreamLosses collects every lost spacer on the path from the root to id.
func (t *Tree) UpstreamLosses(id NodeID) Set {
	out := Set{}
	for cur := id; cur != NoNode; cur = t.nodes[cur].Parent {
		out.Add(t.nodes[cur].Events[Losses].Flatten()...)
	}
	return out
}

// LeafLosses maps each leaf name to its upstream losses.
func (t *Tree) LeafLosses() map[string]Set {
	out := make(map[string]Set)
	for _, id := range t.LevelOrder() {
		if t.nodes[id].IsLeaf() {
			out[t.nodes[id].Name] = t.UpstreamLosses(id)
		}
	}
	return out
}

// PresentKinds returns the kinds that occur at any node, in table order.
func (t *Tree) PresentKinds() []EventKind {
	var seen [NumEventKinds]bool
	for i := range t.nodes {
		for _, k := range t.nodes[i].Events.Kinds() {
			seen[k] = true
		}
	}
	var out []EventKind
	for k, ok := range seen {
		if ok {
			out = append(out, EventKind(k))
		}
	}
	return out
}

// LegendLabels returns the distinct legend labels of [Tree.PresentKinds].
func (t *Tree) LegendLabels() []string {
	var out []string
	for _, k := range t.PresentKinds() {
		if l := k.Label(); !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	return out
}

// Tag is the text label drawn next to a node.
type Tag struct {
	Node NodeID `json:"node"`
	Text string `json:"text"`
}

// Tags returns labels in level order. Inner nodes are skipped unless
// showInner is set, in which case their label lists their children.
func (t *Tree) Tags(showInner bool) []Tag {
	var out []Tag
	for _, id := range t.LevelOrder() {
		n := &t.nodes[id]
		if n.IsInner() && !showInner {
			continue
		}
		text := n.Name
		if n.IsInner() {
			var sb strings.Builder
			sb.WriteString(n.Name)
			for _, c := range n.Children {
				sb.WriteString("  ")
				sb.WriteString(t.nodes[c].Name)
			}
			text = sb.String()
		}
		out = append(out, Tag{Node: id, Text: text})
	}
	return out
}
