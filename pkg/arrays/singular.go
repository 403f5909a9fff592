package arrays

import (
	"github.com/matzehuels/crisprtower/pkg/tree"
)

// SingularInserts are spacers gained at exactly one leaf and never touched by
// an event at an internal node.
type SingularInserts struct {
	// ByLeaf maps each leaf name to its singular insertions. Every leaf has
	// an entry, possibly empty.
	ByLeaf map[string]tree.Set
	// Owner maps each singular spacer to the leaf that gained it.
	Owner map[string]string
}

// Set returns all singular spacers.
func (s SingularInserts) Set() tree.Set {
	out := make(tree.Set, len(s.Owner))
	for id := range s.Owner {
		out.Add(id)
	}
	return out
}

// SingularLeafInserts computes the singular insertions of t.
func SingularLeafInserts(t *tree.Tree) SingularInserts {
	byLeaf := make(map[string]tree.Set)
	internal := tree.Set{}
	for _, id := range t.LevelOrder() {
		n := t.Node(id)
		if n.IsLeaf() {
			s := tree.Set{}
			s.Add(n.Events[tree.Gains].Flatten()...)
			byLeaf[n.Name] = s
			continue
		}
		internal.Add(n.Events.All()...)
	}

	counts := make(map[string]int)
	for _, s := range byLeaf {
		for id := range s {
			if internal.Has(id) {
				delete(s, id)
				continue
			}
			counts[id]++
		}
	}

	owner := make(map[string]string)
	for leaf, s := range byLeaf {
		for id := range s {
			if counts[id] != 1 {
				delete(s, id)
				continue
			}
			owner[id] = leaf
		}
	}
	return SingularInserts{ByLeaf: byLeaf, Owner: owner}
}

// StretchEntry is one template column of a stretch.
type StretchEntry struct {
	Index int    `json:"index" bson:"index"`
	Name  string `json:"name" bson:"name"`
}

// Stretch is a maximal run of adjacent template columns whose spacers are all
// singular leaf insertions.
type Stretch []StretchEntry

// First returns the leftmost column index.
func (s Stretch) First() int { return s[0].Index }

// Last returns the rightmost column index.
func (s Stretch) Last() int { return s[len(s)-1].Index }

// Contains reports whether the spacer is part of the stretch.
func (s Stretch) Contains(name string) bool {
	for _, e := range s {
		if e.Name == name {
			return true
		}
	}
	return false
}

// FindSingularStretches splits the singular columns of tmpl into runs of
// consecutive indices. Runs of any length are returned.
func FindSingularStretches(tmpl *Template, singular tree.Set) []Stretch {
	var out []Stretch
	var cur Stretch
	for _, sp := range tmpl.Spacers {
		if !singular.Has(sp.Name) {
			continue
		}
		if len(cur) > 0 && sp.Index != cur[len(cur)-1].Index+1 {
			out = append(out, cur)
			cur = nil
		}
		cur = append(cur, StretchEntry{Index: sp.Index, Name: sp.Name})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}
