// Package geometry sizes the event annotations drawn along tree branches.
//
// Events sit on one of two bands: above the branch (top) or below it
// (bottom). [ExtensionLength] returns how much branch length a node needs so
// its sized events fit; [PlaceNode] returns the exact offsets of every glyph
// on both bands.
package geometry

import (
	"strings"

	errs "github.com/matzehuels/crisprtower/pkg/errors"
	"github.com/matzehuels/crisprtower/pkg/events"
	"github.com/matzehuels/crisprtower/pkg/tree"
)

// Default glyph dimensions, in pixels.
const (
	DefaultEventWidth    = 20
	DefaultPoolWidth     = 3 * DefaultEventWidth
	DefaultEdgeLineWidth = 2
)

// Band is the side of the branch an event is drawn on.
type Band int

const (
	BandTop Band = iota
	BandBottom
)

func (b Band) String() string {
	switch b {
	case BandTop:
		return "top"
	case BandBottom:
		return "bottom"
	default:
		return "unknown"
	}
}

// ParseBand maps "top" or "bottom" to a Band.
func ParseBand(s string) (Band, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top", "top-branch":
		return BandTop, nil
	case "bottom", "bottom-branch":
		return BandBottom, nil
	}
	return 0, errs.New(errs.ErrCodeUnknownBand, "unknown band %q", s)
}

// DefaultBands puts losses below the branch and everything else above.
func DefaultBands() map[tree.EventKind]Band {
	bands := make(map[tree.EventKind]Band, tree.NumEventKinds)
	for _, k := range tree.AllKinds() {
		bands[k] = BandTop
	}
	bands[tree.Losses] = BandBottom
	return bands
}

// Only gains and losses reserve branch length; the remaining kinds are drawn
// but may overflow into the dashed extension.
var unsized = map[tree.EventKind]bool{
	tree.Duplications:     true,
	tree.Contradictions:   true,
	tree.DoubleGains:      true,
	tree.IndependentGains: true,
	tree.Reacquisitions:   true,
	tree.Dups:             true,
	tree.Rearrangements:   true,
}

// Sized reports whether kind contributes to [ExtensionLength].
func Sized(kind tree.EventKind) bool { return !unsized[kind] }

// Config holds glyph sizes and the band table.
type Config struct {
	EventWidth    float64
	PoolWidth     float64
	EdgeLineWidth float64
	Pooling       bool
	// Bands overrides the default band table. Nil means DefaultBands.
	Bands map[tree.EventKind]Band
}

// DefaultConfig returns pooled sizing with the default glyph widths.
func DefaultConfig() Config {
	return Config{
		EventWidth:    DefaultEventWidth,
		PoolWidth:     DefaultPoolWidth,
		EdgeLineWidth: DefaultEdgeLineWidth,
		Pooling:       true,
	}
}

// BandOf returns the band kind is drawn on.
func (c Config) BandOf(kind tree.EventKind) (Band, error) {
	bands := c.Bands
	if bands == nil {
		bands = DefaultBands()
	}
	b, ok := bands[kind]
	if !ok {
		return 0, errs.New(errs.ErrCodeUnknownBand, "no band for event kind %s", kind)
	}
	return b, nil
}

// ExtensionLength returns the branch length a node needs for its sized
// events: the longer of the two bands, each padded by two edge line widths
// when it holds anything.
func ExtensionLength(ev *tree.Events, cfg Config) (float64, error) {
	var length [2]float64
	var used [2]bool
	for _, k := range tree.AllKinds() {
		if !Sized(k) {
			continue
		}
		band, err := cfg.BandOf(k)
		if err != nil {
			return 0, err
		}
		list := ev.Get(k)
		if cfg.Pooling {
			items, pools := events.Count(list)
			length[band] += float64(items)*cfg.EventWidth + float64(pools)*cfg.PoolWidth
		} else {
			length[band] += float64(list.Len()) * cfg.EventWidth
		}
		if !list.Empty() {
			used[band] = true
		}
	}
	for b := range length {
		if used[b] {
			length[b] += 2 * cfg.EdgeLineWidth
		}
	}
	return max(length[BandTop], length[BandBottom]), nil
}

// Extensions returns the extension length of every node, indexed by NodeID.
func Extensions(t *tree.Tree, cfg Config) ([]float64, error) {
	out := make([]float64, t.Len())
	for id := range out {
		ev := t.Node(tree.NodeID(id)).Events
		ext, err := ExtensionLength(&ev, cfg)
		if err != nil {
			return nil, err
		}
		out[id] = ext
	}
	return out, nil
}
