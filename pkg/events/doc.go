// Package events groups spacer events into pools.
//
// A pool is a run of at least [MinPoolSize] consecutive spacer numbers within
// one group of an event list, drawn as a single wide glyph instead of one
// glyph per spacer. [FindIncrementalSeries] finds the runs; [PoolGroup] and
// [Count] apply it to groups; [Sequence] turns items and pools into the
// left-to-right order a band draws them in.
//
// Spacer ids that do not parse as integers never join a pool.
package events
