// Package pipeline provides the load → optimize → layout → scene → render
// pipeline shared by the CLI and the HTTP API.
//
// By centralizing this logic, every entry point produces the same drawing
// for the same dataset folder and settings, and shares one cache.
//
// # Architecture
//
// The pipeline consists of five stages:
//
//  1. Load: read the dataset folder and build the tree, template and arrays
//  2. Optimize: size every node and search the branch scale
//  3. Layout: place the nodes, then apply child switches, rescaling and
//     collapsing
//  4. Scene: position glyphs, labels, the legend and the array panel
//  5. Render: write the scene in each requested format, concurrently
//
// The scene is cached under the dataset digest and the settings that move
// coordinates; each artifact is cached under the scene hash and its render
// settings.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Dataset: "data/sample",
//	    Formats: []string{"svg", "png"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
//
// Interactive callers run the stages themselves so that they keep the
// [layout.View]:
//
//	m, err := pipeline.Load(ctx, dir, logger)
//	opt, err := pipeline.Optimize(ctx, m, cfg)
//	v, err := pipeline.Layout(m, opt, cfg, pipeline.ViewOptions{})
package pipeline

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/crisprtower/pkg/cache"
	"github.com/matzehuels/crisprtower/pkg/config"
	"github.com/matzehuels/crisprtower/pkg/dataset"
	errs "github.com/matzehuels/crisprtower/pkg/errors"
	"github.com/matzehuels/crisprtower/pkg/layout"
	"github.com/matzehuels/crisprtower/pkg/scaling"
	"github.com/matzehuels/crisprtower/pkg/scene"
)

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatJSON = "json"
	FormatBSON = "bson"
	FormatDOT  = "dot"

	// FormatTreeSVG is the Graphviz drawing of the bare tree.
	FormatTreeSVG = "tree.svg"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:     true,
	FormatPNG:     true,
	FormatPDF:     true,
	FormatJSON:    true,
	FormatBSON:    true,
	FormatDOT:     true,
	FormatTreeSVG: true,
}

// ContentTypes maps formats to their MIME types.
var ContentTypes = map[string]string{
	FormatSVG:     "image/svg+xml",
	FormatPNG:     "image/png",
	FormatPDF:     "application/pdf",
	FormatJSON:    "application/json",
	FormatBSON:    "application/bson",
	FormatDOT:     "text/vnd.graphviz",
	FormatTreeSVG: "image/svg+xml",
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// ViewOptions are the interactive operations replayed on a fresh view.
type ViewOptions struct {
	// Switched names the nodes whose children are reversed.
	Switched []string `json:"switched,omitempty"`
	// Scale is a rescale operation name (extend, reduce, reset, tiny) or a
	// positive factor such as "1.5".
	Scale string `json:"scale,omitempty"`
	// Collapsed packs singular stretches of the array panel.
	Collapsed bool `json:"collapsed,omitempty"`
}

// Options contains all configuration for the pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Dataset is the dataset folder.
	Dataset string `json:"dataset"`

	ViewOptions

	Formats []string `json:"formats,omitempty"`
	Title   string   `json:"title,omitempty"`
	Refresh bool     `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Config *config.Config `json:"-"`
	Logger *log.Logger    `json:"-"`

	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies the run in logs.
	RunID string

	Dataset *dataset.Dataset
	Model   *dataset.Model

	// Optimization is empty when the scene came from the cache.
	Optimization scaling.Result

	Scene *scene.Scene

	// SceneHash is the content hash of the serialized scene.
	SceneHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount    int
	LeafCount    int
	ArrayCount   int
	SpacerCount  int
	LoadTime     time.Duration
	OptimizeTime time.Duration
	LayoutTime   time.Duration
	RenderTime   time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	SceneHit  bool // Whether the scene came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errs.New(errs.ErrCodeInvalidFormat, "invalid format: %q (must be one of: %s)", format, strings.Join(FormatNames(), ", "))
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// FormatNames returns the supported formats sorted by name.
func FormatNames() []string {
	names := make([]string, 0, len(ValidFormats))
	for f := range ValidFormats {
		names = append(names, f)
	}
	slices.Sort(names)
	return names
}

// ParseScale turns a scale option into a rescale operation. An empty string
// means no operation.
func ParseScale(s string) (op layout.Op, ok bool, err error) {
	if s == "" {
		return layout.Op{}, false, nil
	}
	if op, ok := layout.ParseOp(s); ok {
		return op, true, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !(f > 0) {
		return layout.Op{}, false, errs.New(errs.ErrCodeInvalidInput,
			"invalid scale %q (must be extend, reduce, reset, tiny or a positive factor)", s)
	}
	return layout.Factor(f), true, nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Dataset == "" {
		return errs.New(errs.ErrCodeInvalidInput, "dataset folder is required")
	}
	if o.Config == nil {
		cfg := config.Default()
		o.Config = &cfg
	}
	if err := o.Config.Validate(); err != nil {
		return err
	}
	if len(o.Formats) == 0 {
		o.Formats = slices.Clone(o.Config.Render.Formats)
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if _, _, err := ParseScale(o.Scale); err != nil {
		return err
	}
	if o.Title == "" {
		o.Title = filepath.Base(filepath.Clean(o.Dataset))
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// LayoutKeyOpts returns cache key options for the scene. Only the config
// sections that move coordinates are hashed.
func (o *Options) LayoutKeyOpts() (cache.LayoutKeyOpts, error) {
	cfg := o.config()
	h, err := cache.HashValue(struct {
		Events  config.Events  `json:"events"`
		Scaling config.Scaling `json:"scaling"`
		Layout  config.Layout  `json:"layout"`
		Array   config.Array   `json:"array"`
	}{cfg.Events, cfg.Scaling, cfg.Layout, cfg.Array})
	if err != nil {
		return cache.LayoutKeyOpts{}, fmt.Errorf("hash config: %w", err)
	}
	return cache.LayoutKeyOpts{
		ConfigHash: h,
		Switched:   o.Switched,
		Scale:      o.Scale,
		Collapsed:  o.Collapsed,
	}, nil
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	r := o.config().Render
	k := cache.ArtifactKeyOpts{Format: format}
	switch format {
	case FormatSVG, FormatPNG, FormatPDF:
		k.Title = o.Title
		k.Legend = r.Legend
		k.Colors = r.Colors
		k.FontSize = r.FontSize
		if format == FormatPNG {
			k.PNGScale = r.PNGScale
		}
	case FormatDOT, FormatTreeSVG:
		k.Colors = r.Colors
	}
	return k
}

func (o *Options) config() config.Config {
	if o.Config == nil {
		return config.Default()
	}
	return *o.Config
}
