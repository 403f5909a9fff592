package dataset

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	errs "github.com/matzehuels/crisprtower/pkg/errors"
	"github.com/matzehuels/crisprtower/pkg/tree"
)

func writeDataset(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func sampleFiles() map[string]string {
	return map[string]string{
		"g1.nwk":                          "\"((A:1,B:1)Inner1:1,C:2)Inner0;\"\n",
		"g1_rec_spacers.json":             `{"rec_spacers": {"A": [1,1,0,1], "B": [0,1,1,0], "C": [0,0,0,1], "Inner1": [0,1,0,0]}}`,
		"g1_top_order.json":               `["s4", "s3", "s2", "s1"]`,
		"g1_spacer_names_to_numbers.json": `{"s1": 1, "s2": 2, "s3": 3, "s4": "4"}`,
		"g1_rec_gains_losses.json":        `{"rec_gains": {"Inner0": [1], "A": [[4, 3], [2]]}, "rec_losses": {"A": [2], "B": [1]}}`,
		"g1_other_events.json": `{"rec_contra_dict": {"C": [4]}, "rec_duplications_dict": {}, "rec_rearrangements_dict": {},
			"rec_reacquisition_dict": {"B": [3]}, "rec_indep_gain_dict": {}, "rec_other_dup_events_dict": {}}`,
		"g1_metadata.json": `{"1": {"len": {"type": "int", "value": 33}, "gc": {"type": "float", "value": "0.5"},
			"tags": {"type": "list", "value": [{"type": "str", "value": "x"}, {"type": "int", "value": "oops"}]},
			"bad": {"type": "blob", "value": 1}}}`,
	}
}

func TestLoad(t *testing.T) {
	dir := writeDataset(t, sampleFiles())
	d, err := Load(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if d.Newick != "((A:1,B:1)Inner1:1,C:2)Inner0;" {
		t.Errorf("Newick = %q, quotes should be stripped", d.Newick)
	}
	if !slices.Equal(d.TopOrder, []string{"s4", "s3", "s2", "s1"}) {
		t.Errorf("TopOrder = %v", d.TopOrder)
	}
	if d.NamesToNumbers["s1"] != "1" || d.NamesToNumbers["s4"] != "4" {
		t.Errorf("NamesToNumbers = %v", d.NamesToNumbers)
	}
	if got := d.Gains["A"]; len(got) != 2 || !slices.Equal(got[0], tree.Group{"4", "3"}) {
		t.Errorf("Gains[A] = %v, want two groups", got)
	}
	if d.Schema != SchemaCurrent {
		t.Errorf("Schema = %v, want current", d.Schema)
	}
	if len(d.Files) != len(Suffixes) {
		t.Errorf("Files = %v", d.Files)
	}
	if len(d.Digest) != 64 {
		t.Errorf("Digest = %q", d.Digest)
	}

	meta := d.Metadata["1"]
	if meta["len"] != int64(33) || meta["gc"] != 0.5 {
		t.Errorf("metadata scalars = %v", meta)
	}
	if tags, ok := meta["tags"].([]any); !ok || len(tags) != 2 || tags[0] != "x" || tags[1] != nil {
		t.Errorf("metadata list = %#v", meta["tags"])
	}
	if v, ok := meta["bad"]; !ok || v != nil {
		t.Errorf("unknown metadata type should decode to nil, got %v", v)
	}
}

func TestLoadMissingFiles(t *testing.T) {
	t.Run("tree only", func(t *testing.T) {
		dir := writeDataset(t, map[string]string{"x.nwk": "(A:1,B:1)R;"})
		d, err := Load(context.Background(), dir, nil)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if len(d.RecSpacers) != 0 || len(d.TopOrder) != 0 || d.Schema != SchemaBase {
			t.Errorf("missing files should load as empty: %+v", d)
		}
		m, err := d.Model()
		if err != nil {
			t.Fatalf("Model: %v", err)
		}
		if m.Template.Len() != 0 || len(m.Arrays) != 0 {
			t.Errorf("Model = %+v", m)
		}
	})

	t.Run("no tree", func(t *testing.T) {
		dir := writeDataset(t, map[string]string{"x_top_order.json": "[]"})
		_, err := Load(context.Background(), dir, nil)
		if !errs.Is(err, errs.ErrCodeFileNotFound) {
			t.Errorf("Load() error = %v, want FILE_NOT_FOUND", err)
		}
	})

	t.Run("no folder", func(t *testing.T) {
		_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope"), nil)
		if !errs.Is(err, errs.ErrCodeFileNotFound) {
			t.Errorf("Load() error = %v, want FILE_NOT_FOUND", err)
		}
	})
}

func TestLoadFirstMatchWins(t *testing.T) {
	dir := writeDataset(t, map[string]string{
		"b.nwk": "(X:1,Y:1)R;",
		"a.nwk": "(A:1,B:1)R;",
	})
	d, err := Load(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if filepath.Base(d.Files[SuffixTree]) != "a.nwk" {
		t.Errorf("tree file = %s, want a.nwk", d.Files[SuffixTree])
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := writeDataset(t, map[string]string{
		"x.nwk":            "(A:1,B:1)R;",
		"x_top_order.json": "[1, 2",
	})
	_, err := Load(context.Background(), dir, nil)
	if !errs.Is(err, errs.ErrCodeInvalidDataset) {
		t.Errorf("Load() error = %v, want INVALID_DATASET", err)
	}
}

func TestLoadCanceled(t *testing.T) {
	dir := writeDataset(t, sampleFiles())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Load(ctx, dir, nil); err != context.Canceled {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestModel(t *testing.T) {
	d, err := Load(context.Background(), writeDataset(t, sampleFiles()), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	m, err := d.Model()
	if err != nil {
		t.Fatalf("Model: %v", err)
	}

	tr := m.Tree
	a, _ := tr.Find("A")
	if got := tr.Node(a).Events.Get(tree.Gains).Flatten(); !slices.Equal(got, []string{"4", "3", "2"}) {
		t.Errorf("A gains = %v", got)
	}
	b, _ := tr.Find("B")
	if tr.Node(b).Events.Get(tree.Reacquisitions).Empty() {
		t.Error("B should carry the reacquisition table")
	}
	c, _ := tr.Find("C")
	if tr.Node(c).Events.Get(tree.Contradictions).Empty() {
		t.Error("C should carry the contradiction table")
	}

	if got := m.Template.Names(); !slices.Equal(got, []string{"4", "3", "2", "1"}) {
		t.Errorf("template = %v", got)
	}
	var names []string
	for _, arr := range m.Arrays {
		names = append(names, arr.Name)
	}
	if !slices.Equal(names, []string{"A", "B", "C"}) {
		t.Errorf("arrays = %v, want A B C", names)
	}
	// A lost 2 (column 2), B lost 1 (column 3).
	if m.Arrays[0].Cells[2].String() != "d" || m.Arrays[1].Cells[3].String() != "d" {
		t.Errorf("A = %v, B = %v", m.Arrays[0].Cells, m.Arrays[1].Cells)
	}
	if _, ok := m.Template.Spacers[0].Metadata["sp_frequency"]; !ok {
		t.Error("template should carry frequencies")
	}
	// 4 and 3 are gained only at A; 4 also appears as a contradiction at C,
	// but only internal nodes disqualify.
	if m.Inserts.Owner["3"] != "A" {
		t.Errorf("Owner = %v", m.Inserts.Owner)
	}
}

func TestDetectSchema(t *testing.T) {
	tables := func(names ...string) map[string]map[string]tree.EventList {
		out := map[string]map[string]tree.EventList{}
		for _, n := range names {
			out[n] = nil
		}
		return out
	}
	tests := []struct {
		name string
		in   map[string]map[string]tree.EventList
		want Schema
	}{
		{"empty", nil, SchemaBase},
		{"legacy", tables("rec_double_gains_dict", "rec_default_or_indep_gains_dict"), SchemaLegacy},
		{"partial legacy", tables("rec_double_gains_dict"), SchemaBase},
		{"current", tables("rec_reacquisition_dict", "rec_indep_gain_dict", "rec_other_dup_events_dict"), SchemaCurrent},
		{"both", tables("rec_double_gains_dict", "rec_default_or_indep_gains_dict",
			"rec_reacquisition_dict", "rec_indep_gain_dict", "rec_other_dup_events_dict"), SchemaMixed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectSchema(tt.in); got != tt.want {
				t.Errorf("DetectSchema() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTreeAttachesEvents(t *testing.T) {
	other := map[string]map[string]tree.EventList{
		"rec_double_gains_dict":           {"A": tree.Flat("7")},
		"rec_default_or_indep_gains_dict": {"A": tree.Flat("8"), "B": tree.Flat("9")},
		"rec_reacquisition_dict":          {},
		"rec_indep_gain_dict":             {"A": tree.Flat("6")},
		"rec_other_dup_events_dict":       {},
	}
	d := &Dataset{
		Newick: "((A:1,X:1)I:1,(X:1,B:1)J:1)R;",
		Gains:  map[string]tree.EventList{"X": tree.Flat("5")},
		Other:  other,
		Schema: DetectSchema(other),
	}
	tr, err := d.Tree()
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}

	gains := 0
	for _, id := range tr.Preorder() {
		if n := tr.Node(id); n.Name == "X" && slices.Equal(n.Events.Get(tree.Gains).Flatten(), []string{"5"}) {
			gains++
		}
	}
	if gains != 2 {
		t.Errorf("gains attached to %d nodes named X, want 2", gains)
	}

	tests := []struct {
		node string
		kind tree.EventKind
		want []string
	}{
		{"A", tree.DoubleGains, []string{"7"}},
		{"A", tree.IndependentGains, []string{"6"}},
		{"B", tree.IndependentGains, []string{"9"}},
	}
	for _, tt := range tests {
		t.Run(tt.node+"/"+tt.kind.String(), func(t *testing.T) {
			id, _ := tr.Find(tt.node)
			if got := tr.Node(id).Events.Get(tt.kind).Flatten(); !slices.Equal(got, tt.want) {
				t.Errorf("%s %s = %v, want %v", tt.node, tt.kind, got, tt.want)
			}
		})
	}
}

func TestEventList(t *testing.T) {
	got, err := eventList([]any{"1", []any{"2", "3"}, "4"})
	if err != nil {
		t.Fatal(err)
	}
	want := tree.EventList{{"1"}, {"2", "3"}, {"4"}}
	if len(got) != len(want) {
		t.Fatalf("eventList() = %v, want %v", got, want)
	}
	for i := range want {
		if !slices.Equal(got[i], want[i]) {
			t.Errorf("group %d = %v, want %v", i, got[i], want[i])
		}
	}
	if _, err := eventList([]any{map[string]any{}}); err == nil {
		t.Error("objects in event lists should be rejected")
	}
}
