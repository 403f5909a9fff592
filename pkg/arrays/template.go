package arrays

import (
	"slices"
	"strings"
	"unicode"

	errs "github.com/matzehuels/crisprtower/pkg/errors"
)

// Metadata keys written by AddFrequencies.
const (
	MetaFrequency        = "sp_frequency"
	MetaDeletedFrequency = "sp_d_frequency"
)

// Spacer is one template column.
type Spacer struct {
	Name         string         `json:"name" bson:"name"`
	OriginalName string         `json:"original_name" bson:"original_name"`
	Index        int            `json:"index" bson:"index"`
	Duplicates   []string       `json:"duplicates,omitempty" bson:"duplicates,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// Template is the ordered list of spacers every array is aligned to.
type Template struct {
	Spacers []Spacer

	byName map[string]int
}

// NewTemplate builds the template from the dataset's top order (original
// spacer names, left to right) and the table mapping original names to
// spacer numbers. Metadata is looked up by spacer number; spacers without an
// entry get an empty map.
func NewTemplate(topOrder []string, namesToNumbers map[string]string, metadata map[string]map[string]any) (*Template, error) {
	dups := FindDuplicates(namesToNumbers)
	t := &Template{
		Spacers: make([]Spacer, 0, len(topOrder)),
		byName:  make(map[string]int, len(topOrder)),
	}
	for i, orig := range topOrder {
		name, ok := namesToNumbers[orig]
		if !ok {
			return nil, errs.New(errs.ErrCodeInvalidDataset, "top order references unknown spacer %q", orig)
		}
		if _, dup := t.byName[name]; dup {
			return nil, errs.New(errs.ErrCodeInvalidDataset, "spacer %q appears twice in the top order", name)
		}
		meta := make(map[string]any, len(metadata[name])+2)
		for k, v := range metadata[name] {
			meta[k] = v
		}
		t.Spacers = append(t.Spacers, Spacer{
			Name:         name,
			OriginalName: orig,
			Index:        i,
			Duplicates:   dups[name],
			Metadata:     meta,
		})
		t.byName[name] = i
	}
	return t, nil
}

// Len returns the number of columns.
func (t *Template) Len() int { return len(t.Spacers) }

// Index returns the column of the spacer with the given number.
func (t *Template) Index(name string) (int, bool) {
	i, ok := t.byName[name]
	return i, ok
}

// Names returns spacer numbers in column order.
func (t *Template) Names() []string {
	out := make([]string, len(t.Spacers))
	for i, sp := range t.Spacers {
		out[i] = sp.Name
	}
	return out
}

// FindDuplicates groups spacer numbers whose original names agree once every
// non-digit is stripped. Each member of a group with more than one number maps
// to the other members, sorted.
func FindDuplicates(namesToNumbers map[string]string) map[string][]string {
	groups := make(map[string][]string)
	for orig, name := range namesToNumbers {
		key := strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) {
				return r
			}
			return -1
		}, orig)
		if !slices.Contains(groups[key], name) {
			groups[key] = append(groups[key], name)
		}
	}

	out := make(map[string][]string)
	for _, names := range groups {
		if len(names) < 2 {
			continue
		}
		for _, name := range names {
			if _, seen := out[name]; seen {
				continue
			}
			others := make([]string, 0, len(names)-1)
			for _, o := range names {
				if o != name {
					others = append(others, o)
				}
			}
			slices.Sort(others)
			out[name] = others
		}
	}
	return out
}

// AddFrequencies stores, per spacer, the share of arrays where it is present
// and the share where it is present or deleted. Nothing is written when there
// are no arrays.
func AddFrequencies(t *Template, arrays []Array) {
	if len(arrays) == 0 {
		return
	}
	n := float64(len(arrays))
	for i := range t.Spacers {
		var present, seen int
		for _, a := range arrays {
			if i >= len(a.Cells) {
				continue
			}
			switch a.Cells[i] {
			case Present:
				present++
				seen++
			case Deleted:
				seen++
			}
		}
		if t.Spacers[i].Metadata == nil {
			t.Spacers[i].Metadata = make(map[string]any, 2)
		}
		t.Spacers[i].Metadata[MetaFrequency] = float64(present) / n
		t.Spacers[i].Metadata[MetaDeletedFrequency] = float64(seen) / n
	}
}
