// Package arrays models the template array and the per-leaf CRISPR arrays
// aligned to it, and computes how the arrays compact when singular leaf
// insertions are collapsed.
//
// # Template
//
// The template is the shared column order of all arrays. [NewTemplate] builds
// it from the dataset's top order and spacer-number table; each [Spacer]
// carries its duplicates and free-form metadata. [AddFrequencies] annotates
// every spacer with the share of leaf arrays that contain it.
//
// # Arrays
//
// [LeafArrays] turns reconstructed presence rows into tri-state arrays: a
// spacer is [Present], [Deleted] (lost somewhere upstream of the leaf) or
// [Absent]. [InnerArray] reconstructs the ancestral array of an internal node
// from the events on its root path.
//
// # Collapse
//
// A singular leaf insertion is a spacer gained at exactly one leaf and
// nowhere else in the tree. [FindSingularStretches] finds runs of such
// spacers in template order, and [NewCollapse] computes how far each array
// shifts when those runs are packed together.
package arrays
