package tree

import (
	"fmt"
	"slices"
	"strings"
)

// EventKind identifies one of the nine annotation categories a node can carry.
type EventKind int

const (
	Gains EventKind = iota
	Losses
	Contradictions
	Duplications
	Rearrangements
	DoubleGains
	IndependentGains
	Reacquisitions
	Dups

	// NumEventKinds is the size of the [Events] table.
	NumEventKinds
)

var kindNames = [NumEventKinds]string{
	"gains",
	"losses",
	"contradictions",
	"duplications",
	"rearrangements",
	"double_gains",
	"independent_gains",
	"reacquisitions",
	"dups",
}

// Legend labels shown for kinds present in a tree. Reacquisitions share the
// double gain label.
var kindLabels = [NumEventKinds]string{
	"Acquisitions",
	"Deletions",
	"Contradictions",
	"Duplications",
	"Rearrangements",
	"Reacquisition",
	"Ind. acquisition",
	"Reacquisition",
	"Other Type of Dup. Insertion",
}

// String returns the snake_case name used in dataset files and scenes.
func (k EventKind) String() string {
	if k < 0 || k >= NumEventKinds {
		return "unknown"
	}
	return kindNames[k]
}

// Label returns the legend label for k.
func (k EventKind) Label() string {
	if k < 0 || k >= NumEventKinds {
		return ""
	}
	return kindLabels[k]
}

// Valid reports whether k is one of the nine known kinds.
func (k EventKind) Valid() bool { return k >= 0 && k < NumEventKinds }

// ParseEventKind maps a snake_case name back to its kind.
func ParseEventKind(s string) (EventKind, bool) {
	i := slices.Index(kindNames[:], strings.ToLower(strings.TrimSpace(s)))
	if i < 0 {
		return 0, false
	}
	return EventKind(i), true
}

// MarshalText encodes k by name.
func (k EventKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid event kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *EventKind) UnmarshalText(b []byte) error {
	v, ok := ParseEventKind(string(b))
	if !ok {
		return fmt.Errorf("unknown event kind %q", b)
	}
	*k = v
	return nil
}

// AllKinds returns every event kind in table order.
func AllKinds() []EventKind {
	kinds := make([]EventKind, NumEventKinds)
	for i := range kinds {
		kinds[i] = EventKind(i)
	}
	return kinds
}

// Group is one contiguous sublist of spacer ids.
type Group []string

// EventList is the sequence of groups recorded for one kind at one node.
type EventList []Group

// Flat wraps a flat id list as a single-group EventList.
func Flat(ids ...string) EventList {
	if len(ids) == 0 {
		return nil
	}
	return EventList{Group(ids)}
}

// Len returns the total number of ids across all groups.
func (l EventList) Len() int {
	n := 0
	for _, g := range l {
		n += len(g)
	}
	return n
}

// Empty reports whether the list holds no ids.
func (l EventList) Empty() bool { return l.Len() == 0 }

// Flatten returns all ids in order, ignoring group boundaries.
func (l EventList) Flatten() []string {
	out := make([]string, 0, l.Len())
	for _, g := range l {
		out = append(out, g...)
	}
	return out
}

// Nested reports whether the list came from a list of lists.
func (l EventList) Nested() bool { return len(l) > 1 }

// Contains reports whether id occurs in any group.
func (l EventList) Contains(id string) bool {
	for _, g := range l {
		if slices.Contains(g, id) {
			return true
		}
	}
	return false
}

// Events is the per-node annotation table.
type Events [NumEventKinds]EventList

// Get returns the list for k.
func (e Events) Get(k EventKind) EventList {
	if !k.Valid() {
		return nil
	}
	return e[k]
}

// Any reports whether at least one kind holds an id.
func (e Events) Any() bool {
	for _, l := range e {
		if !l.Empty() {
			return true
		}
	}
	return false
}

// All returns every id of every kind, in kind order.
func (e Events) All() []string {
	var out []string
	for _, l := range e {
		out = append(out, l.Flatten()...)
	}
	return out
}

// Kinds returns the kinds that hold at least one id.
func (e Events) Kinds() []EventKind {
	var out []EventKind
	for k, l := range e {
		if !l.Empty() {
			out = append(out, EventKind(k))
		}
	}
	return out
}
