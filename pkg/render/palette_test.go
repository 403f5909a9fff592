package render

import (
	"context"
	"strings"
	"testing"

	errs "github.com/matzehuels/crisprtower/pkg/errors"
	"github.com/matzehuels/crisprtower/pkg/tree"
)

func TestSpacerColor(t *testing.T) {
	a := SpacerColor("42")
	if a != SpacerColor("42") {
		t.Error("SpacerColor should be deterministic")
	}
	if a == SpacerColor("43") {
		t.Error("different spacers should differ")
	}
	if !strings.HasPrefix(a, "#") || len(a) != 7 {
		t.Errorf("SpacerColor = %q, want #rrggbb", a)
	}
}

func TestPaletteColor(t *testing.T) {
	p := DefaultPalette()
	if got := p.Color(tree.Gains, "7"); got != SpacerColor("7") {
		t.Errorf("gains colour = %s, want spacer colour", got)
	}
	if got := p.Color(tree.Contradictions, "7"); got != "#ff8c00" {
		t.Errorf("contradictions colour = %s", got)
	}
}

func TestPaletteWith(t *testing.T) {
	p, err := DefaultPalette().With(map[string]string{"gains": "red", "dups": "#abc"})
	if err != nil {
		t.Fatalf("With: %v", err)
	}
	if p.Color(tree.Gains, "1") != "red" || p.Color(tree.Dups, "1") != "#abc" {
		t.Errorf("overrides not applied: %v", p)
	}
	if _, ok := DefaultPalette()[tree.Gains]; ok {
		t.Error("With should not modify the receiver")
	}

	tests := []struct {
		name      string
		overrides map[string]string
	}{
		{"unknown kind", map[string]string{"spacers": "red"}},
		{"bad hex", map[string]string{"gains": "#zzzzzz"}},
		{"bad name", map[string]string{"gains": "url(#x)"}},
		{"empty", map[string]string{"gains": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DefaultPalette().With(tt.overrides); !errs.Is(err, errs.ErrCodeInvalidConfig) {
				t.Errorf("err = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestTextColor(t *testing.T) {
	if TextColor("#000000") != "#ffffff" {
		t.Error("black fill needs white text")
	}
	if TextColor("#ffffff") != "#000000" {
		t.Error("white fill needs black text")
	}
	if TextColor("orange") != "#000000" {
		t.Error("named colours fall back to black text")
	}
}

func TestConvertMissingTool(t *testing.T) {
	old := converter
	converter = "crisprtower-no-such-converter"
	defer func() { converter = old }()

	if Available() {
		t.Fatal("converter should not be found")
	}
	if _, err := ToPNG(context.Background(), []byte("<svg/>"), 2); !errs.Is(err, errs.ErrCodeUnsupported) {
		t.Errorf("ToPNG err = %v, want UNSUPPORTED", err)
	}
	if _, err := ToPDF(context.Background(), []byte("<svg/>")); !errs.Is(err, errs.ErrCodeUnsupported) {
		t.Errorf("ToPDF err = %v, want UNSUPPORTED", err)
	}
}
