package arrays

import (
	"maps"
	"slices"
	"testing"

	errs "github.com/matzehuels/crisprtower/pkg/errors"
	"github.com/matzehuels/crisprtower/pkg/tree"
)

var testOrder = []string{"sp5", "sp10", "sp11", "sp12", "sp13", "sp42", "sp7"}

func testNames() map[string]string {
	out := make(map[string]string, len(testOrder))
	for _, o := range testOrder {
		out[o] = o[2:]
	}
	return out
}

func buildTestTree(t *testing.T) *tree.Tree {
	t.Helper()
	b, err := tree.ParseNewick("((A:1,B:1)Inner1:1,C:1)Inner0;")
	if err != nil {
		t.Fatalf("ParseNewick: %v", err)
	}
	set := func(name string, k tree.EventKind, l tree.EventList) {
		id, ok := b.Find(name)
		if !ok {
			t.Fatalf("Find(%q) failed", name)
		}
		b.SetEvents(id, k, l)
	}
	set("Inner1", tree.Gains, tree.Flat("5"))
	set("A", tree.Gains, tree.Flat("10", "11", "12", "42"))
	set("A", tree.Losses, tree.Flat("5"))
	set("B", tree.Gains, tree.Flat("13"))
	set("C", tree.Gains, tree.Flat("42"))
	tr, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return tr
}

func buildTestTemplate(t *testing.T) *Template {
	t.Helper()
	meta := map[string]map[string]any{"5": {"origin": "phage"}}
	tmpl, err := NewTemplate(testOrder, testNames(), meta)
	if err != nil {
		t.Fatalf("NewTemplate: %v", err)
	}
	return tmpl
}

func cells(s string) []Presence {
	out := make([]Presence, len(s))
	for i, r := range s {
		if err := out[i].UnmarshalText([]byte(string(r))); err != nil {
			panic(err)
		}
	}
	return out
}

func TestNewTemplate(t *testing.T) {
	tmpl := buildTestTemplate(t)
	if tmpl.Len() != 7 {
		t.Fatalf("Len() = %d, want 7", tmpl.Len())
	}
	if got := tmpl.Names(); !slices.Equal(got, []string{"5", "10", "11", "12", "13", "42", "7"}) {
		t.Errorf("Names() = %v", got)
	}
	if i, ok := tmpl.Index("42"); !ok || i != 5 {
		t.Errorf("Index(42) = %d, %v", i, ok)
	}
	sp := tmpl.Spacers[0]
	if sp.OriginalName != "sp5" || sp.Metadata["origin"] != "phage" {
		t.Errorf("spacer 0 = %+v", sp)
	}
	if tmpl.Spacers[1].Metadata == nil {
		t.Error("spacers without metadata should get an empty map")
	}
}

func TestNewTemplateErrors(t *testing.T) {
	tests := []struct {
		name  string
		order []string
		names map[string]string
	}{
		{"unknown", []string{"sp1", "sp2"}, map[string]string{"sp1": "1"}},
		{"repeated", []string{"sp1", "sp1b"}, map[string]string{"sp1": "1", "sp1b": "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTemplate(tt.order, tt.names, nil)
			if !errs.Is(err, errs.ErrCodeInvalidDataset) {
				t.Errorf("NewTemplate() error = %v, want INVALID_DATASET", err)
			}
		})
	}
}

func TestFindDuplicates(t *testing.T) {
	got := FindDuplicates(map[string]string{
		"sp1_a": "1",
		"sp1_b": "2",
		"x1":    "4",
		"sp3":   "3",
	})
	want := map[string][]string{
		"1": {"2", "4"},
		"2": {"1", "4"},
		"4": {"1", "2"},
	}
	if !maps.EqualFunc(got, want, slices.Equal[[]string]) {
		t.Errorf("FindDuplicates() = %v, want %v", got, want)
	}
}

func TestLeafArrays(t *testing.T) {
	tr := buildTestTree(t)
	tmpl := buildTestTemplate(t)
	rec := map[string][]int{
		"Z":      {0, 0, 0, 0, 0, 0, 1},
		"C":      {1, 0, 0, 0, 0, 1, 1},
		"B":      {1, 0, 0, 0, 1, 0, 0},
		"A":      {0, 1, 1, 1, 0, 1, 0},
		"Inner1": {1, 0, 0, 0, 0, 0, 0},
	}
	got, err := LeafArrays(tr, tmpl, rec)
	if err != nil {
		t.Fatalf("LeafArrays: %v", err)
	}
	want := []Array{
		{"A", cells("d111010")},
		{"B", cells("1000100")},
		{"C", cells("1000011")},
		{"Z", cells("0000001")},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d arrays, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Name != want[i].Name || !slices.Equal(got[i].Cells, want[i].Cells) {
			t.Errorf("array %d = %v %v, want %v %v", i, got[i].Name, got[i].Cells, want[i].Name, want[i].Cells)
		}
	}

	AddFrequencies(tmpl, got)
	if f := tmpl.Spacers[0].Metadata[MetaFrequency]; f != 0.5 {
		t.Errorf("sp_frequency(5) = %v, want 0.5", f)
	}
	if f := tmpl.Spacers[0].Metadata[MetaDeletedFrequency]; f != 0.75 {
		t.Errorf("sp_d_frequency(5) = %v, want 0.75", f)
	}
}

func TestLeafArraysLengthMismatch(t *testing.T) {
	tr := buildTestTree(t)
	tmpl := buildTestTemplate(t)
	_, err := LeafArrays(tr, tmpl, map[string][]int{"A": {1, 0}})
	if !errs.Is(err, errs.ErrCodeInvalidDataset) {
		t.Errorf("LeafArrays() error = %v, want INVALID_DATASET", err)
	}
}

func TestAddFrequenciesNoArrays(t *testing.T) {
	tmpl := buildTestTemplate(t)
	AddFrequencies(tmpl, nil)
	if _, ok := tmpl.Spacers[0].Metadata[MetaFrequency]; ok {
		t.Error("no frequencies should be written without arrays")
	}
}

func TestInnerArray(t *testing.T) {
	tr := buildTestTree(t)
	tmpl := buildTestTemplate(t)
	tests := []struct {
		node string
		want string
	}{
		{"Inner0", "0000000"},
		{"Inner1", "1000000"},
		{"A", "d111010"},
		{"C", "0000010"},
	}
	for _, tt := range tests {
		t.Run(tt.node, func(t *testing.T) {
			id, _ := tr.Find(tt.node)
			got := InnerArray(tr, tmpl, id)
			if !slices.Equal(got.Cells, cells(tt.want)) {
				t.Errorf("InnerArray(%s) = %v, want %s", tt.node, got.Cells, tt.want)
			}
		})
	}
}

func TestPresenceText(t *testing.T) {
	for _, p := range []Presence{Absent, Present, Deleted} {
		b, _ := p.MarshalText()
		var q Presence
		if err := q.UnmarshalText(b); err != nil || q != p {
			t.Errorf("round trip %v -> %q -> %v, %v", p, b, q, err)
		}
	}
	var p Presence
	if err := p.UnmarshalText([]byte("x")); !errs.Is(err, errs.ErrCodeInvalidFormat) {
		t.Errorf("UnmarshalText(x) error = %v", err)
	}
}
