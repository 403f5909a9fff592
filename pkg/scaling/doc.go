// Package scaling searches for the branch scale factor of a tree layout.
//
// A node's drawn branch length is max(distance × scale, extension), where the
// extension is the room its events need (see the geometry package). The
// tree's size is the longest root-to-leaf sum of drawn lengths. [Optimize]
// picks a scale that keeps that size between MinRatio and MaxRatio of the
// companion array's width, preferring scales where few edges are stretched
// by their events and the size lands close to OptimalRatio.
//
// # Search
//
// The search samples the scale twice. A linear grid from the scale that
// gives the shortest branch MinLeafDist pixels up to the scale at which
// distances alone reach the maximum size locates the window where the size
// crosses the minimum and the maximum. A log2-spaced grid then refines that
// window. When the window collapses, usually because extensions alone
// already exceed the maximum, the result is marked as a fallback.
//
// Every pick is finally raised with [MaximalWithoutIncrease], which grows the
// scale for free while the longest leaf path stays the same length.
package scaling
