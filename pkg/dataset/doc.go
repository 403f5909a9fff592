// Package dataset reads SpacerPlacer output folders.
//
// A dataset folder holds one file per suffix (see [Suffixes]); the first file
// in sorted order matching "*<suffix>" is used. Only the tree file is
// required. Every other missing file is logged as a warning and read as
// empty.
//
// [Load] decodes the folder into a [Dataset]. [Dataset.Tree] parses the
// Newick string and attaches events using the mapping table of the detected
// [Schema]; [Dataset.Model] additionally builds the template and leaf arrays.
package dataset
