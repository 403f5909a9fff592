// Package layout assigns 2D coordinates to an annotated tree.
//
// A [View] holds one [ViewNode] per tree node. Placement runs in two passes:
// the perpendicular axis puts the k-th leaf in preorder on row k and every
// internal node halfway between its first and last child; the branch axis
// walks the tree in preorder and adds max(distance × scale, extension) to the
// parent's coordinate. Placement writes rows into X and branch coordinates
// into Y. Horizontal mode, the default, then swaps the two with
// [View.Transpose].
//
// Views are mutated in place by [View.Switch], [View.Relayout] and
// [View.Rescale]. A View is not safe for concurrent use.
package layout
