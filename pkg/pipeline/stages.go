package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/crisprtower/pkg/config"
	"github.com/matzehuels/crisprtower/pkg/dataset"
	errs "github.com/matzehuels/crisprtower/pkg/errors"
	"github.com/matzehuels/crisprtower/pkg/geometry"
	"github.com/matzehuels/crisprtower/pkg/layout"
	"github.com/matzehuels/crisprtower/pkg/observability"
	"github.com/matzehuels/crisprtower/pkg/render"
	"github.com/matzehuels/crisprtower/pkg/render/nodelink"
	"github.com/matzehuels/crisprtower/pkg/render/sink"
	"github.com/matzehuels/crisprtower/pkg/scaling"
	"github.com/matzehuels/crisprtower/pkg/scene"
	"github.com/matzehuels/crisprtower/pkg/tree"
)

// Optimization is the output of the optimize stage.
type Optimization struct {
	// Extensions holds the extension length of every node, by NodeID.
	Extensions []float64
	Result     scaling.Result
}

// Load reads the dataset folder and builds its model.
func Load(ctx context.Context, dir string, logger *log.Logger) (*dataset.Dataset, *dataset.Model, error) {
	d, err := dataset.Load(ctx, dir, logger)
	if err != nil {
		return nil, nil, err
	}
	m, err := d.Model()
	if err != nil {
		return nil, nil, err
	}
	return d, m, nil
}

// Optimize sizes every node and searches the branch scale. The array panel
// is measured uncollapsed.
func Optimize(ctx context.Context, m *dataset.Model, cfg config.Config) (Optimization, error) {
	g, err := cfg.GeometryConfig()
	if err != nil {
		return Optimization{}, err
	}
	ext, err := geometry.Extensions(m.Tree, g)
	if err != nil {
		return Optimization{}, fmt.Errorf("size nodes: %w", err)
	}
	width := cfg.ArrayConfig().Width(m.Template.Len())
	res, err := scaling.Optimize(ctx, m.Tree, ext, width, cfg.ScalingConfig())
	if err != nil {
		return Optimization{}, err
	}
	return Optimization{Extensions: ext, Result: res}, nil
}

// Layout places the tree at the best scale and replays vo on the view.
// Switches and rescaling run before collapsing, which locks both.
func Layout(m *dataset.Model, opt Optimization, cfg config.Config, vo ViewOptions) (*layout.View, error) {
	v, err := layout.New(m.Tree, opt.Extensions, opt.Result, cfg.LayoutConfig())
	if err != nil {
		return nil, err
	}
	if err := Apply(v, vo); err != nil {
		return nil, err
	}
	return v, nil
}

// Apply replays vo on v.
func Apply(v *layout.View, vo ViewOptions) error {
	for _, name := range vo.Switched {
		id, ok := v.Tree().Find(name)
		if !ok {
			return errs.Wrap(errs.ErrCodeNotFound, tree.ErrUnknownNode, "switch %q", name)
		}
		if err := v.Switch(id); err != nil {
			return err
		}
	}
	op, ok, err := ParseScale(vo.Scale)
	if err != nil {
		return err
	}
	if ok {
		if err := v.Rescale(op); err != nil {
			return err
		}
	}
	v.SetCollapsed(vo.Collapsed)
	return nil
}

// SceneConfig returns the scene metrics for cfg.
func SceneConfig(cfg config.Config) (scene.Config, error) {
	g, err := cfg.GeometryConfig()
	if err != nil {
		return scene.Config{}, err
	}
	sc := scene.DefaultConfig()
	sc.Events = g
	sc.Arrays = cfg.ArrayConfig()
	sc.Gap = cfg.Array.Gap
	sc.ShowInnerTags = cfg.Layout.ShowInnerTags
	return sc, nil
}

// BuildScene positions everything drawn for the current state of v.
func BuildScene(m *dataset.Model, v *layout.View, res scaling.Result, cfg config.Config) (*scene.Scene, error) {
	sc, err := SceneConfig(cfg)
	if err != nil {
		return nil, err
	}
	return scene.Build(m, v, res, sc)
}

// SVGOptions returns the sink options for cfg.
func SVGOptions(cfg config.Config, title string) ([]sink.SVGOption, error) {
	p, err := render.DefaultPalette().With(cfg.Render.Colors)
	if err != nil {
		return nil, err
	}
	opts := []sink.SVGOption{sink.WithPalette(p), sink.WithFontSize(cfg.Render.FontSize)}
	if cfg.Render.Legend {
		opts = append(opts, sink.WithLegend())
	}
	if title != "" {
		opts = append(opts, sink.WithTitle(title))
	}
	return opts, nil
}

// Render writes s in every format concurrently. The DOT and tree.svg
// exports draw m.Tree instead of the scene and fail when m is nil.
func Render(ctx context.Context, s *scene.Scene, m *dataset.Model, formats []string, cfg config.Config, title string) (map[string][]byte, error) {
	svgOpts, err := SVGOptions(cfg, title)
	if err != nil {
		return nil, err
	}

	var (
		mu        sync.Mutex
		artifacts = make(map[string][]byte, len(formats))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, format := range formats {
		g.Go(func() error {
			start := time.Now()
			data, err := renderFormat(gctx, s, m, format, cfg, svgOpts)
			observability.Pipeline().OnRenderComplete(gctx, format, len(data), time.Since(start), err)
			if err != nil {
				return fmt.Errorf("render %s: %w", format, err)
			}
			mu.Lock()
			artifacts[format] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

func renderFormat(ctx context.Context, s *scene.Scene, m *dataset.Model, format string, cfg config.Config, svgOpts []sink.SVGOption) ([]byte, error) {
	switch format {
	case FormatSVG:
		return sink.RenderSVG(s, svgOpts...), nil
	case FormatPNG:
		return sink.RenderPNG(ctx, s, sink.WithPNGSVGOptions(svgOpts...), sink.WithScale(cfg.Render.PNGScale))
	case FormatPDF:
		return sink.RenderPDF(ctx, s, sink.WithPDFSVGOptions(svgOpts...))
	case FormatJSON:
		return sink.RenderJSON(s)
	case FormatBSON:
		return sink.RenderBSON(s)
	case FormatDOT, FormatTreeSVG:
		if m == nil {
			return nil, errs.New(errs.ErrCodeInvalidInput, "dot export needs the dataset tree")
		}
		p, err := render.DefaultPalette().With(cfg.Render.Colors)
		if err != nil {
			return nil, err
		}
		dot := nodelink.ToDOT(m.Tree, nodelink.Options{
			Detailed:   true,
			Horizontal: cfg.Layout.Horizontal,
			Palette:    p,
		})
		if format == FormatTreeSVG {
			return nodelink.RenderSVG(ctx, dot)
		}
		return []byte(dot), nil
	default:
		return nil, errs.New(errs.ErrCodeInvalidFormat, "unsupported format: %s", format)
	}
}
