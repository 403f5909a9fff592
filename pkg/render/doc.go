// Package render draws scenes.
//
// # Overview
//
// A [scene.Scene] carries absolute positions for everything on the canvas.
// Rendering is therefore a pure mapping from scene primitives to an output
// format:
//
//   - SVG, drawn with ajstarks/svgo (in the [sink] subpackage)
//   - PNG and PDF, converted from SVG by rsvg-convert ([ToPNG], [ToPDF])
//   - DOT, a node-link export of the tree rendered with Graphviz (in the
//     [nodelink] subpackage)
//
// # Colours
//
// Event kinds are coloured from a [Palette]. Gains take the colour of the
// spacer they insert, which is derived from the spacer name so that the same
// spacer has the same colour in every drawing and in every array.
//
//	p, err := render.DefaultPalette().With(map[string]string{"losses": "#444"})
//	svg := sink.RenderSVG(s, sink.WithPalette(p), sink.WithLegend())
//	png, err := render.ToPNG(svg, 2.0)
package render
