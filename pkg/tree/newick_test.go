package tree

import (
	"testing"

	errs "github.com/matzehuels/crisprtower/pkg/errors"
)

func TestParseNewick(t *testing.T) {
	tr, err := Parse("((A:1,B:2)Inner1:0.5,C:3)Inner0;")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tr.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", tr.Len())
	}
	root := tr.Node(tr.Root())
	if root.Name != "Inner0" {
		t.Errorf("root name = %q, want Inner0", root.Name)
	}
	if len(root.Children) != 2 {
		t.Fatalf("root children = %d, want 2", len(root.Children))
	}

	tests := []struct {
		name   string
		dist   float64
		parent string
	}{
		{"A", 1, "Inner1"},
		{"B", 2, "Inner1"},
		{"C", 3, "Inner0"},
		{"Inner1", 0.5, "Inner0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := tr.Find(tt.name)
			if !ok {
				t.Fatalf("Find(%q) not found", tt.name)
			}
			if got := tr.Node(id).Distance; got != tt.dist {
				t.Errorf("Distance = %v, want %v", got, tt.dist)
			}
			if got := tr.Name(tr.Parent(id)); got != tt.parent {
				t.Errorf("parent = %q, want %q", got, tt.parent)
			}
		})
	}
}

func TestParseNewickChildOrder(t *testing.T) {
	tr, err := Parse("(A,(B,C),D);")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var names []string
	for _, id := range tr.Leaves() {
		names = append(names, tr.Name(id))
	}
	want := []string{"A", "B", "C", "D"}
	if len(names) != len(want) {
		t.Fatalf("leaves = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("leaves[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestParseNewickMissingDistanceIsZero(t *testing.T) {
	tr, err := Parse("(A,B:2);")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	id, _ := tr.Find("A")
	if d := tr.Node(id).Distance; d != 0 {
		t.Errorf("Distance = %v, want 0", d)
	}
}

func TestParseNewickSingleNode(t *testing.T) {
	tr, err := Parse("  solo:1.5;\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tr.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tr.Len())
	}
	if n := tr.Node(tr.Root()); n.Name != "solo" || n.Distance != 1.5 {
		t.Errorf("root = %+v", n)
	}
}

func TestParseNewickScientificAndWhitespace(t *testing.T) {
	tr, err := Parse("(\tA : 1e-3 ,\nB:2.5E1 [&&NHX:S=x] );")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	a, _ := tr.Find("A")
	b, _ := tr.Find("B")
	if got := tr.Node(a).Distance; got != 0.001 {
		t.Errorf("A distance = %v, want 0.001", got)
	}
	if got := tr.Node(b).Distance; got != 25 {
		t.Errorf("B distance = %v, want 25", got)
	}
}

func TestParseNewickErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing semicolon", "(A,B)"},
		{"unbalanced", "((A,B);"},
		{"empty leaf", "(A,,B);"},
		{"bad distance", "(A:x,B);"},
		{"data after root", "(A,B),C;"},
		{"second root", "(A,B)(C,D);"},
		{"broken structure", "(A,B)C,D);("},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ParseNewick(tt.input)
			if err == nil {
				t.Fatalf("ParseNewick(%q) succeeded, want error", tt.input)
			}
			if b != nil {
				t.Error("ParseNewick should not return a partial tree")
			}
			if !errs.Is(err, errs.ErrCodeInvalidNewick) {
				t.Errorf("code = %v, want %v", errs.GetCode(err), errs.ErrCodeInvalidNewick)
			}
		})
	}
}

func TestNewickRoundTrip(t *testing.T) {
	in := "((A:1,B:2)Inner1:0.5,C:3)Inner0;"
	tr, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := tr.Newick(); got != in {
		t.Errorf("Newick() = %q, want %q", got, in)
	}
}
