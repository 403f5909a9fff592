// Package nodelink exports the annotated tree as a node-link diagram.
//
// # Overview
//
// The main drawing places branches to scale and events along them. This
// package offers the plain topology instead: one Graphviz node per tree
// node, one edge per branch, labelled with the branch length. It is meant
// for checking a dataset's tree and for tools that consume DOT.
//
// # Usage
//
//	dot := nodelink.ToDOT(t, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # Options
//
//   - Detailed: node labels list the number of events per kind
//   - Horizontal: lay the tree out left to right (rankdir=LR)
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering.
package nodelink
