package render

import (
	"hash/fnv"
	"maps"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	errs "github.com/matzehuels/crisprtower/pkg/errors"
	"github.com/matzehuels/crisprtower/pkg/tree"
)

// Palette maps event kinds to fill colours. A kind without an entry, gains
// by default, is filled with the colour of its spacer.
type Palette map[tree.EventKind]string

// DefaultPalette returns the standard event colours.
func DefaultPalette() Palette {
	return Palette{
		tree.Losses:           "#000000",
		tree.Contradictions:   "#ff8c00",
		tree.Duplications:     "#1e64dc",
		tree.Rearrangements:   "#8a2be2",
		tree.DoubleGains:      "#40e0d0",
		tree.IndependentGains: "#8b4513",
		tree.Dups:             "#808080",
		tree.Reacquisitions:   "#2e8b57",
	}
}

// With returns a copy of p with colours overridden by kind name. Colours are
// hex codes or plain SVG colour names.
func (p Palette) With(overrides map[string]string) (Palette, error) {
	out := maps.Clone(p)
	if out == nil {
		out = Palette{}
	}
	for name, c := range overrides {
		k, ok := tree.ParseEventKind(name)
		if !ok {
			return nil, errs.New(errs.ErrCodeInvalidConfig, "unknown event kind %q in colours", name)
		}
		if err := ValidateColor(c); err != nil {
			return nil, err
		}
		out[k] = c
	}
	return out, nil
}

// Color returns the fill of an event of kind inserting spacer.
func (p Palette) Color(kind tree.EventKind, spacer string) string {
	if c, ok := p[kind]; ok && c != "" {
		return c
	}
	return SpacerColor(spacer)
}

// ValidateColor accepts "#rgb"/"#rrggbb" hex codes and alphabetic colour
// names.
func ValidateColor(c string) error {
	if strings.HasPrefix(c, "#") {
		if _, err := colorful.Hex(expandHex(c)); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidConfig, err, "invalid colour %q", c)
		}
		return nil
	}
	if c == "" || strings.IndexFunc(c, func(r rune) bool { return (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') }) >= 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "invalid colour %q", c)
	}
	return nil
}

func expandHex(c string) string {
	if len(c) != 4 {
		return c
	}
	return string([]byte{'#', c[1], c[1], c[2], c[2], c[3], c[3]})
}

// SpacerColor derives a stable colour from a spacer name. Hues are spread
// over the wheel with fixed saturation and value so neighbouring spacers
// stay distinguishable.
func SpacerColor(name string) string {
	h := fnv.New32a()
	h.Write([]byte(name))
	sum := h.Sum32()
	hue := float64(sum%360) + float64(sum>>9%100)/100
	sat := 0.45 + float64(sum>>17%30)/100
	return colorful.Hsv(hue, sat, 0.9).Hex()
}

// TextColor picks black or white for legible text on fill. Fills that do not
// parse as hex get black.
func TextColor(fill string) string {
	c, err := colorful.Hex(expandHex(fill))
	if err != nil {
		return "#000000"
	}
	l, _, _ := c.Lab()
	if l < 0.55 {
		return "#ffffff"
	}
	return "#000000"
}
