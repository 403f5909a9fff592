// Package sink renders a [scene.Scene] into output formats.
//
// # Overview
//
// A "sink" transforms a computed scene into a final output format:
//
//   - SVG: drawn with ajstarks/svgo, one group per layer (edges, nodes,
//     events, arrays, labels, legend)
//   - PNG: raster image (requires rsvg-convert)
//   - PDF: print-ready output (requires rsvg-convert)
//   - JSON and BSON: the scene itself, for external tools and caches
//
// Basic usage:
//
//	svg := sink.RenderSVG(s,
//	    sink.WithPalette(palette),
//	    sink.WithLegend(),
//	)
//	png, err := sink.RenderPNG(ctx, s, sink.WithScale(2), sink.WithPNGSVGOptions(sink.WithLegend()))
package sink
