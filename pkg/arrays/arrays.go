package arrays

import (
	"slices"
	"strings"

	errs "github.com/matzehuels/crisprtower/pkg/errors"
	"github.com/matzehuels/crisprtower/pkg/tree"
)

// Presence is the state of one array cell.
type Presence uint8

const (
	Absent Presence = iota
	Present
	Deleted
)

// String returns the single-character form used in exports: "0", "1" or "d".
func (p Presence) String() string {
	switch p {
	case Present:
		return "1"
	case Deleted:
		return "d"
	default:
		return "0"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Presence) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Presence) UnmarshalText(b []byte) error {
	switch string(b) {
	case "0":
		*p = Absent
	case "1":
		*p = Present
	case "d":
		*p = Deleted
	default:
		return errs.New(errs.ErrCodeInvalidFormat, "unknown presence %q", b)
	}
	return nil
}

// Array is one CRISPR array aligned to the template.
type Array struct {
	Name  string     `json:"name" bson:"name"`
	Cells []Presence `json:"cells" bson:"cells"`
}

// Count returns the number of cells in the given state.
func (a Array) Count(p Presence) int {
	n := 0
	for _, c := range a.Cells {
		if c == p {
			n++
		}
	}
	return n
}

// LeafArrays builds one array per row of recSpacers. A row value of 1 marks
// the spacer present; otherwise it is deleted when lost upstream of the leaf
// and absent when not. Rows named with the inner-node prefix are ignored.
//
// Arrays come in preorder leaf order of t; rows without a matching leaf
// follow, sorted by name.
func LeafArrays(t *tree.Tree, tmpl *Template, recSpacers map[string][]int) ([]Array, error) {
	losses := t.LeafLosses()

	var names []string
	placed := make(map[string]bool, len(recSpacers))
	for _, id := range t.Leaves() {
		name := t.Name(id)
		if _, ok := recSpacers[name]; ok && !placed[name] {
			names = append(names, name)
			placed[name] = true
		}
	}
	var rest []string
	for name := range recSpacers {
		if !placed[name] && !strings.HasPrefix(name, tree.InnerPrefix) {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	names = append(names, rest...)

	out := make([]Array, 0, len(names))
	for _, name := range names {
		row := recSpacers[name]
		if len(row) != tmpl.Len() {
			return nil, errs.New(errs.ErrCodeInvalidDataset,
				"array %q has %d cells, template has %d", name, len(row), tmpl.Len())
		}
		lost := losses[name]
		cells := make([]Presence, len(row))
		for i, v := range row {
			switch {
			case v == 1:
				cells[i] = Present
			case lost.Has(tmpl.Spacers[i].Name):
				cells[i] = Deleted
			}
		}
		out = append(out, Array{Name: name, Cells: cells})
	}
	return out, nil
}

// InnerArray reconstructs the ancestral array at id: spacers inserted on the
// root path are present unless lost on it, in which case they are deleted.
func InnerArray(t *tree.Tree, tmpl *Template, id tree.NodeID) Array {
	gained := t.UpstreamGains(id)
	lost := t.UpstreamLosses(id)
	cells := make([]Presence, tmpl.Len())
	for i, sp := range tmpl.Spacers {
		switch {
		case lost.Has(sp.Name):
			cells[i] = Deleted
		case gained.Has(sp.Name):
			cells[i] = Present
		}
	}
	return Array{Name: t.Name(id), Cells: cells}
}
