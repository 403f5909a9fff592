package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/crisprtower/pkg/cache"
	"github.com/matzehuels/crisprtower/pkg/dataset"
	"github.com/matzehuels/crisprtower/pkg/observability"
	"github.com/matzehuels/crisprtower/pkg/scene"
)

// Cache key types reported to [observability.CacheHooks].
const (
	keyTypeScene    = "scene"
	keyTypeArtifact = "artifact"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTL overrides the default entry lifetimes when positive.
	TTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete load → scene → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	result := &Result{
		RunID:     uuid.NewString(),
		Artifacts: make(map[string][]byte),
	}
	logger := r.Logger.With("run", result.RunID[:8])

	// Stage 1: Load
	var err error
	result.Stats.LoadTime, err = r.stage(ctx, observability.StageLoad, opts.Title, func() error {
		result.Dataset, result.Model, err = Load(ctx, opts.Dataset, logger)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	m := result.Model
	result.Stats.NodeCount = m.Tree.Len()
	result.Stats.LeafCount = len(m.Tree.Leaves())
	result.Stats.ArrayCount = len(m.Arrays)
	result.Stats.SpacerCount = m.Template.Len()

	logger.Info("loaded dataset",
		"dir", opts.Dataset,
		"schema", result.Dataset.Schema,
		"nodes", result.Stats.NodeCount,
		"arrays", result.Stats.ArrayCount,
		"spacers", result.Stats.SpacerCount,
		"duration", result.Stats.LoadTime)

	// Stages 2-4: Optimize, layout and scene
	s, hit, err := r.sceneWithCacheInfo(ctx, result, opts, logger)
	if err != nil {
		return nil, err
	}
	result.Scene = s
	result.CacheInfo.SceneHit = hit
	if hit {
		logger.Info("scene from cache", "scale", s.Scale)
	}

	// Stage 5: Render
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, result, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.CacheInfo.RenderHit = renderHit

	logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// sceneWithCacheInfo returns the cached scene or runs the optimize, layout
// and scene stages.
func (r *Runner) sceneWithCacheInfo(ctx context.Context, result *Result, opts Options, logger *log.Logger) (*scene.Scene, bool, error) {
	keyOpts, err := opts.LayoutKeyOpts()
	if err != nil {
		return nil, false, err
	}
	cacheKey := r.Keyer.LayoutKey(result.Dataset.Digest, keyOpts)

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, ok := r.lookup(ctx, cacheKey, logger); ok {
			if s, err := scene.Unmarshal(data); err == nil {
				observability.Cache().OnCacheHit(ctx, keyTypeScene)
				return s, true, nil
			}
			// If deserialization fails, fall through to recompute
		}
		observability.Cache().OnCacheMiss(ctx, keyTypeScene)
	}

	cfg := *opts.Config
	m := result.Model

	var opt Optimization
	result.Stats.OptimizeTime, err = r.stage(ctx, observability.StageOptimize, opts.Title, func() error {
		opt, err = Optimize(ctx, m, cfg)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("optimize: %w", err)
	}
	result.Optimization = opt.Result
	observability.Pipeline().OnOptimized(ctx, opts.Title, opt.Result.BestScale, opt.Result.Fallback)
	if opt.Result.Fallback {
		logger.Warn("no scale inside the target window, using the minimal scale",
			"scale", opt.Result.BestScale)
	}
	logger.Info("optimized scale",
		"best", opt.Result.BestScale,
		"min", opt.Result.MinScale,
		"extensions", opt.Result.Extensions,
		"duration", result.Stats.OptimizeTime)

	var s *scene.Scene
	result.Stats.LayoutTime, err = r.stage(ctx, observability.StageLayout, opts.Title, func() error {
		v, err := Layout(m, opt, cfg, opts.ViewOptions)
		if err != nil {
			return err
		}
		s, err = BuildScene(m, v, opt.Result, cfg)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("layout: %w", err)
	}
	logger.Info("computed layout",
		"width", s.Width,
		"height", s.Height,
		"glyphs", len(s.Glyphs),
		"collapsed", s.Collapsed,
		"duration", result.Stats.LayoutTime)

	if data, err := scene.Marshal(s); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, r.ttl(cache.TTLLayout)); err != nil {
			logger.Warn("cache write failed", "key", cacheKey, "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, keyTypeScene, len(data))
		}
	}
	return s, false, nil
}

// RenderWithCacheInfo renders result.Scene with caching and reports whether
// every artifact came from the cache. Only missing formats are rendered.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, result *Result, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	sceneData, err := scene.Marshal(result.Scene)
	if err != nil {
		return nil, false, fmt.Errorf("serialize scene for cache key: %w", err)
	}
	result.SceneHash = cache.Hash(sceneData)

	artifacts := make(map[string][]byte, len(opts.Formats))
	var missing []string
	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(result.SceneHash, opts.ArtifactKeyOpts(format))
		if opts.Refresh {
			missing = append(missing, format)
			continue
		}
		if data, ok := r.lookup(ctx, key, r.Logger); ok {
			observability.Cache().OnCacheHit(ctx, keyTypeArtifact)
			artifacts[format] = data
			continue
		}
		observability.Cache().OnCacheMiss(ctx, keyTypeArtifact)
		missing = append(missing, format)
	}
	if len(missing) == 0 {
		return artifacts, true, nil
	}

	var rendered map[string][]byte
	result.Stats.RenderTime, err = r.stage(ctx, observability.StageRender, opts.Title, func() error {
		rendered, err = Render(ctx, result.Scene, result.Model, missing, *opts.Config, opts.Title)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		artifacts[format] = data
		key := r.Keyer.ArtifactKey(result.SceneHash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, r.ttl(cache.TTLArtifact)); err == nil {
			observability.Cache().OnCacheSet(ctx, keyTypeArtifact, len(data))
		}
	}
	return artifacts, false, nil
}

// stage runs fn between the stage hooks and returns its duration.
// lookup reads key from the cache. A backend failure is logged and treated
// as a miss.
func (r *Runner) lookup(ctx context.Context, key string, logger *log.Logger) ([]byte, bool) {
	data, err := cache.Lookup(ctx, r.Cache, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn("cache read failed", "key", key, "err", err)
		}
		return nil, false
	}
	return data, true
}

func (r *Runner) stage(ctx context.Context, name, dataset string, fn func() error) (time.Duration, error) {
	observability.Pipeline().OnStageStart(ctx, name, dataset)
	start := time.Now()
	err := fn()
	d := time.Since(start)
	observability.Pipeline().OnStageComplete(ctx, name, dataset, d, err)
	return d, err
}

func (r *Runner) ttl(def time.Duration) time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return def
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// Model loads the dataset folder and builds its model without caching.
// Interactive callers use it together with [Optimize] and [Layout].
func (r *Runner) Model(ctx context.Context, dir string) (*dataset.Dataset, *dataset.Model, error) {
	var (
		d   *dataset.Dataset
		m   *dataset.Model
		err error
	)
	_, err = r.stage(ctx, observability.StageLoad, dir, func() error {
		d, m, err = Load(ctx, dir, r.Logger)
		return err
	})
	return d, m, err
}
