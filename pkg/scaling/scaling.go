package scaling

import (
	"context"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"

	errs "github.com/matzehuels/crisprtower/pkg/errors"
	"github.com/matzehuels/crisprtower/pkg/tree"
)

// Defaults for [Config].
const (
	DefaultMinRatio      = 0.33
	DefaultOptimalRatio  = 0.5
	DefaultMaxRatio      = 0.66
	DefaultRounds        = 300
	DefaultMinLeafDist   = 4
	DefaultTopCandidates = 3
)

// Config controls the search.
type Config struct {
	MinRatio     float64 `json:"min_ratio"`
	OptimalRatio float64 `json:"optimal_ratio"`
	MaxRatio     float64 `json:"max_ratio"`
	// Rounds is the total number of samples, split evenly over both grids.
	Rounds int `json:"rounds"`
	// MinLeafDist is the smallest drawn length, in pixels, of the shortest
	// branch at the start of the linear grid.
	MinLeafDist float64 `json:"min_leaf_dist"`
	// TopCandidates bounds how many distinct low extension counts survive
	// before picking by size.
	TopCandidates int `json:"top_candidates"`
}

// DefaultConfig returns the standard search parameters.
func DefaultConfig() Config {
	return Config{
		MinRatio:      DefaultMinRatio,
		OptimalRatio:  DefaultOptimalRatio,
		MaxRatio:      DefaultMaxRatio,
		Rounds:        DefaultRounds,
		MinLeafDist:   DefaultMinLeafDist,
		TopCandidates: DefaultTopCandidates,
	}
}

// Path is the root-to-leaf edge table of one leaf. Index 0 is the root's own
// entry.
type Path struct {
	Leaf       tree.NodeID `json:"leaf"`
	Distances  []float64   `json:"distances"`
	Extensions []float64   `json:"extensions"`
}

// Sample is one evaluated grid point.
type Sample struct {
	Scale      float64 `json:"scale"`
	Size       float64 `json:"size"`
	Extensions int     `json:"extensions"`
}

// Result is the outcome of [Optimize]. The caller owns the current scale and
// starts it at BestScale.
type Result struct {
	BestScale float64 `json:"best_scale"`
	// MinScale is the smallest scale that still shows the shortest branch
	// MinLeafDist pixels long.
	MinScale float64 `json:"min_scale"`
	Leaves   []Path  `json:"leaves"`
	// Fallback is set when no grid sample fell inside the target window.
	Fallback   bool     `json:"fallback"`
	Size       float64  `json:"size"`
	Extensions int      `json:"extensions"`
	Samples    []Sample `json:"samples,omitempty"`
}

// LeafPaths builds the edge table of every leaf in preorder. ext is indexed
// by NodeID.
func LeafPaths(t *tree.Tree, ext []float64) []Path {
	leaves := t.Leaves()
	out := make([]Path, 0, len(leaves))
	for _, leaf := range leaves {
		ids := t.Path(leaf)
		p := Path{
			Leaf:       leaf,
			Distances:  make([]float64, len(ids)),
			Extensions: make([]float64, len(ids)),
		}
		for i, id := range ids {
			p.Distances[i] = t.Node(id).Distance
			p.Extensions[i] = ext[id]
		}
		out = append(out, p)
	}
	return out
}

// Evaluate returns the tree size at scale x and the number of edges whose
// extension exceeds distance × x.
func Evaluate(paths []Path, x float64) (size float64, extensions int) {
	for _, p := range paths {
		s, n := evaluatePath(p, x)
		size = max(size, s)
		extensions += n
	}
	return size, extensions
}

func evaluatePath(p Path, x float64) (float64, int) {
	sum, n := 0.0, 0
	for i, d := range p.Distances {
		scaled := x * d
		if e := p.Extensions[i]; e > scaled {
			n++
			sum += e
		} else {
			sum += scaled
		}
	}
	return sum, n
}

// Minimal returns the smallest scale at which some non-root edge's distance
// exactly covers its extension, or +Inf when no edge has a distance.
func Minimal(paths []Path) float64 {
	best := math.Inf(1)
	for _, p := range paths {
		for i := 1; i < len(p.Distances); i++ {
			if d := p.Distances[i]; d != 0 {
				best = min(best, p.Extensions[i]/d)
			}
		}
	}
	return best
}

// MaximalWithoutIncrease raises prior to the largest edge-balancing scale
// that does not make the tree larger than it is at prior. When some edge on
// the longest leaf path is already longer than its extension, every increase
// grows the tree and prior is returned.
func MaximalWithoutIncrease(paths []Path, prior float64) (float64, error) {
	longest := -1
	maxLen := 0.0
	for i, p := range paths {
		if s, _ := evaluatePath(p, prior); s >= maxLen {
			maxLen = s
			longest = i
		}
	}
	if longest < 0 {
		return 0, errs.New(errs.ErrCodeInternal, "no longest leaf path found")
	}

	lp := paths[longest]
	for i := 1; i < len(lp.Distances); i++ {
		if lp.Distances[i]*prior > lp.Extensions[i] {
			return prior, nil
		}
	}

	scale := prior
	for i := 1; i < len(lp.Distances); i++ {
		d := lp.Distances[i]
		if d == 0 {
			continue
		}
		cs := lp.Extensions[i] / d
		if size, _ := Evaluate(paths, cs); size <= maxLen && cs > scale {
			scale = cs
		}
	}
	return scale, nil
}

func maxDistanceSum(paths []Path) float64 {
	best := 0.0
	for _, p := range paths {
		best = max(best, floats.Sum(p.Distances))
	}
	return best
}

func maxExtensionSum(paths []Path) float64 {
	best := 0.0
	for _, p := range paths {
		best = max(best, floats.Sum(p.Extensions))
	}
	return best
}

// Optimize searches the scale for t given per-node extension lengths and the
// pixel width of the companion array.
func Optimize(ctx context.Context, t *tree.Tree, ext []float64, arrayWidth float64, cfg Config) (Result, error) {
	if arrayWidth <= 0 || math.IsNaN(arrayWidth) || math.IsInf(arrayWidth, 0) {
		return Result{}, errs.New(errs.ErrCodeInvalidInput, "array width must be positive, got %v", arrayWidth)
	}
	if len(ext) != t.Len() {
		return Result{}, errs.New(errs.ErrCodeInvalidInput, "got %d extension lengths for %d nodes", len(ext), t.Len())
	}
	cfg = cfg.withDefaults()

	paths := LeafPaths(t, ext)
	res := Result{Leaves: paths}

	maxDist := maxDistanceSum(paths)
	if maxDist == 0 {
		// Size does not depend on the scale.
		res.BestScale, res.MinScale, res.Fallback = 1, 1, true
		res.Size, res.Extensions = Evaluate(paths, 1)
		return res, nil
	}

	var err error
	if res.MinScale, err = minScale(t, paths, cfg); err != nil {
		return Result{}, err
	}

	minSize := cfg.MinRatio * arrayWidth
	maxSize := cfg.MaxRatio * arrayWidth
	optSize := cfg.OptimalRatio * arrayWidth
	n := cfg.Rounds / 2

	xStart := 0.0
	if d, ok := t.MinDistance(); ok && d != 0 {
		xStart = finiteOr(cfg.MinLeafDist/d, 0)
	}
	xEnd := cfg.MaxRatio * arrayWidth / maxDist
	if math.IsInf(xEnd, 0) || math.IsNaN(xEnd) {
		// Every path is shorter than float resolution; no scale matters.
		res.BestScale, res.Fallback = 1, true
		res.Size, res.Extensions = Evaluate(paths, 1)
		return res, nil
	}

	res.Samples = sample(res.Samples, paths, floats.Span(make([]float64, n), xStart, xEnd))
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	lo, hi, reached := window(res.Samples, minSize, maxSize)
	if lo == hi || !reached {
		best := lo
		if m := Minimal(paths); !math.IsInf(m, 1) {
			best = max(best, m)
		}
		if res.BestScale, err = MaximalWithoutIncrease(paths, best); err != nil {
			return Result{}, err
		}
		res.Fallback = true
		res.Size, res.Extensions = Evaluate(paths, res.BestScale)
		return res, nil
	}

	lo = max(lo, 1)
	res.Samples = sample(res.Samples, paths, floats.LogSpan(make([]float64, n), lo, hi))
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	best, ok := pick(res.Samples, minSize, maxSize, optSize, cfg.TopCandidates)
	if !ok {
		return Result{}, errs.New(errs.ErrCodeNoScaleInRange,
			"no scale gives a tree size in (%.1f, %.1f)", minSize, maxSize)
	}

	scale := best.Scale
	if best.Size == maxExtensionSum(paths) {
		if m := Minimal(paths); !math.IsInf(m, 1) && m > scale {
			scale = m
		}
	}
	if res.BestScale, err = MaximalWithoutIncrease(paths, scale); err != nil {
		return Result{}, err
	}
	res.Size, res.Extensions = Evaluate(paths, res.BestScale)
	return res, nil
}

func minScale(t *tree.Tree, paths []Path, cfg Config) (float64, error) {
	d, ok := t.MinDistance()
	if ok && d == 0 {
		d, ok = t.MinPositiveDistance()
	}
	x := 0.0
	if ok && d > 0 {
		x = finiteOr(cfg.MinLeafDist/d, 0)
	}
	return MaximalWithoutIncrease(paths, x)
}

// finiteOr returns x, or def when x overflowed or is NaN.
func finiteOr(x, def float64) float64 {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return def
	}
	return x
}

func sample(dst []Sample, paths []Path, xs []float64) []Sample {
	for _, x := range xs {
		size, n := Evaluate(paths, x)
		dst = append(dst, Sample{Scale: x, Size: size, Extensions: n})
	}
	return dst
}

// window returns the first sampled scale reaching minSize and the first
// reaching maxSize. reached is false when no sample reaches minSize.
func window(samples []Sample, minSize, maxSize float64) (lo, hi float64, reached bool) {
	hi = samples[len(samples)-1].Scale
	for _, s := range samples {
		if s.Size >= minSize {
			lo, reached = s.Scale, true
			break
		}
	}
	for _, s := range samples {
		if s.Size >= maxSize {
			hi = s.Scale
			break
		}
	}
	return lo, hi, reached
}

// pick keeps samples strictly inside (minSize, maxSize), narrows them to the
// lowest topK extension counts and returns the one closest to optSize.
func pick(samples []Sample, minSize, maxSize, optSize float64, topK int) (Sample, bool) {
	var in []Sample
	for _, s := range samples {
		if s.Size > minSize && s.Size < maxSize {
			in = append(in, s)
		}
	}
	if len(in) == 0 {
		return Sample{}, false
	}

	if len(in) > topK {
		counts := make([]int, len(in))
		for i, s := range in {
			counts[i] = s.Extensions
		}
		slices.Sort(counts)
		limit := counts[topK-1]
		in = slices.DeleteFunc(in, func(s Sample) bool { return s.Extensions > limit })
	}

	best := in[0]
	for _, s := range in[1:] {
		if math.Abs(s.Size-optSize) < math.Abs(best.Size-optSize) {
			best = s
		}
	}
	return best, true
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinRatio <= 0 {
		c.MinRatio = d.MinRatio
	}
	if c.OptimalRatio <= 0 {
		c.OptimalRatio = d.OptimalRatio
	}
	if c.MaxRatio <= 0 {
		c.MaxRatio = d.MaxRatio
	}
	if c.Rounds < 4 {
		c.Rounds = d.Rounds
	}
	if c.MinLeafDist <= 0 {
		c.MinLeafDist = d.MinLeafDist
	}
	if c.TopCandidates <= 0 {
		c.TopCandidates = d.TopCandidates
	}
	return c
}
