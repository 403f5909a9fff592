// Package config loads crisprtower settings from TOML.
//
// Settings are grouped by the stage they affect:
//
//	[events]   glyph sizes, pooling and the band table
//	[scaling]  optimizer ratios and grid size
//	[layout]   row pitch, orientation, extension position, tags
//	[array]    array column metrics
//	[render]   output formats, colours and legend
//	[cache]    cache backend
//	[server]   HTTP API
//
// Every field has a default equal to the engine constants, so an empty file
// is valid. Unknown keys are rejected.
package config

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/crisprtower/pkg/arrays"
	errs "github.com/matzehuels/crisprtower/pkg/errors"
	"github.com/matzehuels/crisprtower/pkg/geometry"
	"github.com/matzehuels/crisprtower/pkg/layout"
	"github.com/matzehuels/crisprtower/pkg/scaling"
	"github.com/matzehuels/crisprtower/pkg/tree"
)

// AppName names the configuration and cache directories.
const AppName = "crisprtower"

// FileName is the configuration file looked up under the config directory.
const FileName = "config.toml"

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Config is the full settings tree.
type Config struct {
	Events  Events  `toml:"events" json:"events"`
	Scaling Scaling `toml:"scaling" json:"scaling"`
	Layout  Layout  `toml:"layout" json:"layout"`
	Array   Array   `toml:"array" json:"array"`
	Render  Render  `toml:"render" json:"render"`
	Cache   Cache   `toml:"cache" json:"cache"`
	Server  Server  `toml:"server" json:"server"`
}

// Events configures glyph sizing.
type Events struct {
	EventWidth    float64 `toml:"event_width" json:"event_width"`
	PoolWidth     float64 `toml:"pool_width" json:"pool_width"`
	EdgeLineWidth float64 `toml:"edge_line_width" json:"edge_line_width"`
	Pooling       bool    `toml:"pooling" json:"pooling"`
	// Bands maps event kind names to "top" or "bottom". Kinds not listed
	// keep their default band.
	Bands map[string]string `toml:"bands,omitempty" json:"bands,omitempty"`
}

// Scaling configures the optimizer.
type Scaling struct {
	MinRatio      float64 `toml:"min_ratio" json:"min_ratio"`
	OptimalRatio  float64 `toml:"optimal_ratio" json:"optimal_ratio"`
	MaxRatio      float64 `toml:"max_ratio" json:"max_ratio"`
	Rounds        int     `toml:"rounds" json:"rounds"`
	MinLeafDist   float64 `toml:"min_leaf_dist" json:"min_leaf_dist"`
	TopCandidates int     `toml:"top_candidates" json:"top_candidates"`
}

// Layout configures node placement.
type Layout struct {
	RowPitch      float64 `toml:"row_pitch" json:"row_pitch"`
	Horizontal    bool    `toml:"horizontal" json:"horizontal"`
	ExtensionPos  string  `toml:"extension_pos" json:"extension_pos"`
	ShowInnerTags bool    `toml:"show_inner_tags" json:"show_inner_tags"`
}

// Array configures the array panel.
type Array struct {
	SpacerWidth   float64 `toml:"spacer_width" json:"spacer_width"`
	SpacerSpacing float64 `toml:"spacer_spacing" json:"spacer_spacing"`
	// Gap separates the tree from the array panel.
	Gap float64 `toml:"gap" json:"gap"`
}

// Render configures output.
type Render struct {
	Formats []string `toml:"formats" json:"formats"`
	Legend  bool     `toml:"legend" json:"legend"`
	// Colors overrides event kind colours by kind name.
	Colors   map[string]string `toml:"colors,omitempty" json:"colors,omitempty"`
	FontSize float64           `toml:"font_size" json:"font_size"`
	PNGScale float64           `toml:"png_scale" json:"png_scale"`
}

// Cache configures the layout and artifact cache.
type Cache struct {
	Backend string   `toml:"backend" json:"backend"`
	Dir     string   `toml:"dir,omitempty" json:"dir,omitempty"`
	Redis   string   `toml:"redis_url,omitempty" json:"redis_url,omitempty"`
	TTL     Duration `toml:"ttl" json:"ttl"`
}

// Server configures the HTTP API.
type Server struct {
	Addr    string   `toml:"addr" json:"addr"`
	DataDir string   `toml:"data_dir" json:"data_dir"`
	Timeout Duration `toml:"timeout" json:"timeout"`
}

// Duration is a time.Duration written as a string such as "24h".
type Duration struct{ time.Duration }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Default returns the built-in settings.
func Default() Config {
	g := geometry.DefaultConfig()
	s := scaling.DefaultConfig()
	l := layout.DefaultConfig()
	a := arrays.DefaultConfig()
	return Config{
		Events: Events{
			EventWidth:    g.EventWidth,
			PoolWidth:     g.PoolWidth,
			EdgeLineWidth: g.EdgeLineWidth,
			Pooling:       g.Pooling,
		},
		Scaling: Scaling{
			MinRatio:      s.MinRatio,
			OptimalRatio:  s.OptimalRatio,
			MaxRatio:      s.MaxRatio,
			Rounds:        s.Rounds,
			MinLeafDist:   s.MinLeafDist,
			TopCandidates: s.TopCandidates,
		},
		Layout: Layout{
			RowPitch:     l.RowPitch,
			Horizontal:   l.Horizontal,
			ExtensionPos: string(l.ExtensionPos),
		},
		Array: Array{
			SpacerWidth:   a.SpacerWidth,
			SpacerSpacing: a.SpacerSpacing,
			Gap:           40,
		},
		Render: Render{
			Formats:  []string{"svg"},
			Legend:   true,
			FontSize: 12,
			PNGScale: 2,
		},
		Cache: Cache{
			Backend: CacheFile,
			TTL:     Duration{7 * 24 * time.Hour},
		},
		Server: Server{
			Addr:    ":8080",
			DataDir: ".",
			Timeout: Duration{30 * time.Second},
		},
	}
}

// Load reads path on top of the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, errs.Wrap(errs.ErrCodeFileNotFound, err, "config %s", path)
	}
	if err != nil {
		return Config{}, errs.Wrap(errs.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errs.New(errs.ErrCodeInvalidConfig, "unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDefault loads the file at [Path] when it exists and returns the
// defaults otherwise.
func LoadDefault() (Config, error) {
	path, err := Path()
	if err != nil {
		return Default(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// Path returns the config file location ($XDG_CONFIG_HOME/crisprtower or
// ~/.config/crisprtower).
func Path() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName, FileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName, FileName), nil
}

// Encode writes cfg as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Validate checks ranges and names.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errs.New(errs.ErrCodeInvalidConfig, format, args...)
	}

	e := c.Events
	if e.EventWidth <= 0 || e.PoolWidth <= 0 || e.EdgeLineWidth < 0 {
		return invalid("event widths must be positive")
	}
	if _, err := c.GeometryConfig(); err != nil {
		return err
	}

	s := c.Scaling
	if !(0 < s.MinRatio && s.MinRatio <= s.OptimalRatio && s.OptimalRatio <= s.MaxRatio) {
		return invalid("ratios must satisfy 0 < min <= optimal <= max, got %g %g %g",
			s.MinRatio, s.OptimalRatio, s.MaxRatio)
	}
	if s.Rounds < 4 {
		return invalid("rounds must be at least 4, got %d", s.Rounds)
	}
	if s.MinLeafDist <= 0 {
		return invalid("min_leaf_dist must be positive")
	}
	if s.TopCandidates < 1 {
		return invalid("top_candidates must be at least 1")
	}

	if c.Layout.RowPitch <= 0 {
		return invalid("row_pitch must be positive")
	}
	if !layout.ExtensionPos(c.Layout.ExtensionPos).Valid() {
		return invalid("unknown extension_pos %q (must be node or center)", c.Layout.ExtensionPos)
	}

	if c.Array.SpacerWidth <= 0 || c.Array.SpacerSpacing <= 0 || c.Array.Gap < 0 {
		return invalid("array widths must be positive")
	}

	for kind := range c.Render.Colors {
		if _, ok := tree.ParseEventKind(kind); !ok {
			return invalid("unknown event kind %q in render.colors", kind)
		}
	}
	if c.Render.PNGScale <= 0 || c.Render.FontSize <= 0 {
		return invalid("png_scale and font_size must be positive")
	}

	switch c.Cache.Backend {
	case CacheFile, CacheNone:
	case CacheRedis:
		if c.Cache.Redis == "" {
			return invalid("cache.redis_url is required for the redis backend")
		}
	default:
		return invalid("unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}

// GeometryConfig returns the sizing settings.
func (c Config) GeometryConfig() (geometry.Config, error) {
	g := geometry.Config{
		EventWidth:    c.Events.EventWidth,
		PoolWidth:     c.Events.PoolWidth,
		EdgeLineWidth: c.Events.EdgeLineWidth,
		Pooling:       c.Events.Pooling,
	}
	if len(c.Events.Bands) == 0 {
		return g, nil
	}
	g.Bands = geometry.DefaultBands()
	for name, band := range c.Events.Bands {
		kind, ok := tree.ParseEventKind(name)
		if !ok {
			return geometry.Config{}, errs.New(errs.ErrCodeInvalidConfig, "unknown event kind %q in events.bands", name)
		}
		b, err := geometry.ParseBand(band)
		if err != nil {
			return geometry.Config{}, err
		}
		g.Bands[kind] = b
	}
	return g, nil
}

// ScalingConfig returns the optimizer settings.
func (c Config) ScalingConfig() scaling.Config {
	return scaling.Config{
		MinRatio:      c.Scaling.MinRatio,
		OptimalRatio:  c.Scaling.OptimalRatio,
		MaxRatio:      c.Scaling.MaxRatio,
		Rounds:        c.Scaling.Rounds,
		MinLeafDist:   c.Scaling.MinLeafDist,
		TopCandidates: c.Scaling.TopCandidates,
	}
}

// LayoutConfig returns the placement settings.
func (c Config) LayoutConfig() layout.Config {
	return layout.Config{
		RowPitch:     c.Layout.RowPitch,
		Horizontal:   c.Layout.Horizontal,
		ExtensionPos: layout.ExtensionPos(c.Layout.ExtensionPos),
	}
}

// ArrayConfig returns the array column metrics.
func (c Config) ArrayConfig() arrays.Config {
	return arrays.Config{SpacerWidth: c.Array.SpacerWidth, SpacerSpacing: c.Array.SpacerSpacing}
}
