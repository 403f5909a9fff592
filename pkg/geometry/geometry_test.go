package geometry

import (
	"slices"
	"testing"

	errs "github.com/matzehuels/crisprtower/pkg/errors"
	"github.com/matzehuels/crisprtower/pkg/tree"
)

func eventsOf(kv map[tree.EventKind]tree.EventList) *tree.Events {
	var ev tree.Events
	for k, l := range kv {
		ev[k] = l
	}
	return &ev
}

func TestExtensionLength(t *testing.T) {
	tests := []struct {
		name    string
		events  map[tree.EventKind]tree.EventList
		pooling bool
		want    float64
	}{
		{
			name:    "no events",
			pooling: true,
			want:    0,
		},
		{
			name:    "five consecutive gains form one pool",
			events:  map[tree.EventKind]tree.EventList{tree.Gains: tree.Flat("10", "11", "12", "13", "14")},
			pooling: true,
			want:    DefaultPoolWidth + 2*DefaultEdgeLineWidth,
		},
		{
			name:    "same gains unpooled",
			events:  map[tree.EventKind]tree.EventList{tree.Gains: tree.Flat("10", "11", "12", "13", "14")},
			pooling: false,
			want:    5*DefaultEventWidth + 2*DefaultEdgeLineWidth,
		},
		{
			name: "bottom band longer",
			events: map[tree.EventKind]tree.EventList{
				tree.Gains:  tree.Flat("1"),
				tree.Losses: tree.Flat("4", "9"),
			},
			pooling: true,
			want:    2*DefaultEventWidth + 2*DefaultEdgeLineWidth,
		},
		{
			name: "excluded kinds do not count",
			events: map[tree.EventKind]tree.EventList{
				tree.Duplications:   tree.Flat("1", "2", "3", "4"),
				tree.Contradictions: tree.Flat("8"),
				tree.Reacquisitions: tree.Flat("9"),
			},
			pooling: true,
			want:    0,
		},
		{
			name:    "short group stays unpooled",
			events:  map[tree.EventKind]tree.EventList{tree.Losses: {{"1", "2"}, {"3", "4", "5"}}},
			pooling: true,
			want:    2*DefaultEventWidth + DefaultPoolWidth + 2*DefaultEdgeLineWidth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Pooling = tt.pooling
			got, err := ExtensionLength(eventsOf(tt.events), cfg)
			if err != nil {
				t.Fatalf("ExtensionLength: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtensionLength() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtensionLengthUnknownBand(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bands = map[tree.EventKind]Band{tree.Losses: BandBottom}
	_, err := ExtensionLength(eventsOf(nil), cfg)
	if !errs.Is(err, errs.ErrCodeUnknownBand) {
		t.Fatalf("err = %v, want %s", err, errs.ErrCodeUnknownBand)
	}
}

func TestParseBand(t *testing.T) {
	if b, err := ParseBand("Bottom-Branch"); err != nil || b != BandBottom {
		t.Errorf("ParseBand(Bottom-Branch) = %v, %v", b, err)
	}
	if _, err := ParseBand("middle"); !errs.Is(err, errs.ErrCodeUnknownBand) {
		t.Errorf("ParseBand(middle) err = %v", err)
	}
}

func TestPlaceNode(t *testing.T) {
	ev := eventsOf(map[tree.EventKind]tree.EventList{
		tree.Gains:        tree.Flat("1", "2", "3", "7", "9"),
		tree.Duplications: tree.Flat("7"),
		tree.Losses:       tree.Flat("20"),
	})
	p, err := PlaceNode(ev, DefaultConfig())
	if err != nil {
		t.Fatalf("PlaceNode: %v", err)
	}

	// pool(1,2,3), gain 9, duplication 7
	if len(p.Top.Items) != 3 {
		t.Fatalf("top items = %+v", p.Top.Items)
	}
	first := p.Top.Items[0]
	if !first.Pool || !slices.Equal(first.Spacers, []string{"1", "2", "3"}) || first.Width != DefaultPoolWidth {
		t.Errorf("first = %+v", first)
	}
	if second := p.Top.Items[1]; second.Kind != tree.Gains || second.Spacers[0] != "9" || second.Offset != DefaultPoolWidth {
		t.Errorf("second = %+v", second)
	}
	if third := p.Top.Items[2]; third.Kind != tree.Duplications || third.Offset != DefaultPoolWidth+DefaultEventWidth {
		t.Errorf("third = %+v", third)
	}
	if p.Top.Length != DefaultPoolWidth+2*DefaultEventWidth {
		t.Errorf("top length = %v", p.Top.Length)
	}
	if len(p.Bottom.Items) != 1 || p.Bottom.Length != DefaultEventWidth {
		t.Errorf("bottom = %+v", p.Bottom)
	}
}

func TestExtensions(t *testing.T) {
	b, err := tree.ParseNewick("(A:1,B:1);")
	if err != nil {
		t.Fatal(err)
	}
	a, _ := b.Find("A")
	b.SetEvents(a, tree.Gains, tree.Flat("3"))
	tr, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	ext, err := Extensions(tr, DefaultConfig())
	if err != nil {
		t.Fatalf("Extensions: %v", err)
	}
	id, _ := tr.Find("A")
	if ext[id] != DefaultEventWidth+2*DefaultEdgeLineWidth {
		t.Errorf("ext[A] = %v", ext[id])
	}
	if ext[tr.Root()] != 0 {
		t.Errorf("ext[root] = %v", ext[tr.Root()])
	}
}
