// Package pkg holds the libraries behind crisprtower, a layout engine for
// reconstructed CRISPR array phylogenies.
//
// # Overview
//
// A dataset folder describes one reconstruction: a Newick tree whose branches
// carry spacer events (acquisitions, deletions, duplications and more), and
// the spacer arrays of the leaves aligned to a common template. crisprtower
// sizes every branch for its events, searches a branch scale that balances
// the tree against the array panel, and draws both side by side.
//
// # Architecture
//
//	dataset folder
//	     ↓
//	[dataset]   read files, detect the event schema, build the model
//	     ↓
//	[tree], [arrays]   event tree, template, leaf arrays, singular stretches
//	     ↓
//	[events], [geometry]   pool spacer runs, size each node's extension
//	     ↓
//	[scaling]   grid search for the branch scale
//	     ↓
//	[layout]    place rows and branches; switch, rescale, collapse
//	     ↓
//	[scene]     positioned glyphs, labels and array cells
//	     ↓
//	[render/sink], [render/nodelink]   SVG, PNG, PDF, JSON, BSON, DOT
//
// [pipeline] runs these stages with caching ([cache]) and reports them to
// [observability]. [config] holds every tunable, loaded from TOML.
//
// # Quick Start
//
//	d, _ := dataset.Load(ctx, "examples/sample", nil)
//	m, _ := d.Model()
//	opt, _ := pipeline.Optimize(ctx, m, config.Default())
//	v, _ := pipeline.Layout(m, opt, config.Default(), pipeline.ViewOptions{})
//	s, _ := pipeline.BuildScene(m, v, opt.Result, config.Default())
//	svg := sink.RenderSVG(s)
//
// Or, with caching and several formats at once:
//
//	r := pipeline.NewRunner(nil, nil, nil)
//	res, _ := r.Execute(ctx, pipeline.Options{Dataset: "examples/sample", Formats: []string{"svg", "json"}})
package pkg
