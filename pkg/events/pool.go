package events

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/crisprtower/pkg/tree"
)

// MinPoolSize is the shortest run that forms a pool.
const MinPoolSize = 3

// FindIncrementalSeries returns every run of at least MinPoolSize values
// that increase by exactly one after a stable sort, together with the
// original positions of the run's members. Equal values break a run.
func FindIncrementalSeries(values []int) (pools [][]int, indices [][]int) {
	if len(values) == 0 {
		return nil, nil
	}

	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(values[a], values[b])
	})

	run := []int{order[0]}
	flush := func() {
		if len(run) >= MinPoolSize {
			vals := make([]int, len(run))
			for i, ix := range run {
				vals[i] = values[ix]
			}
			pools = append(pools, vals)
			indices = append(indices, slices.Clone(run))
		}
	}
	for _, ix := range order[1:] {
		if values[ix]-values[run[len(run)-1]] == 1 {
			run = append(run, ix)
			continue
		}
		flush()
		run = run[:0]
		run = append(run, ix)
	}
	flush()
	return pools, indices
}

// Pool is a run of consecutive spacer ids drawn as one glyph.
type Pool struct {
	Members []string `json:"members" bson:"members"`
	Indices []int    `json:"indices" bson:"indices"`
}

// Contains reports whether id is a member.
func (p Pool) Contains(id string) bool { return slices.Contains(p.Members, id) }

// PoolGroup splits one group into pools and the ids left unpooled. Groups
// shorter than MinPoolSize are returned unpooled. An id whose value occurs in
// any pool counts as pooled, including repeats of that value.
func PoolGroup(g tree.Group) (pools []Pool, unpooled []string) {
	if len(g) < MinPoolSize {
		return nil, slices.Clone([]string(g))
	}

	var values []int
	var origin []int
	for i, id := range g {
		v, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil {
			continue
		}
		values = append(values, v)
		origin = append(origin, i)
	}

	runs, runIdx := FindIncrementalSeries(values)
	pooled := make(map[int]bool)
	for r := range runs {
		p := Pool{
			Members: make([]string, len(runs[r])),
			Indices: make([]int, len(runs[r])),
		}
		for j, ix := range runIdx[r] {
			p.Members[j] = g[origin[ix]]
			p.Indices[j] = origin[ix]
			pooled[runs[r][j]] = true
		}
		pools = append(pools, p)
	}

	for _, id := range g {
		v, err := strconv.Atoi(strings.TrimSpace(id))
		if err == nil && pooled[v] {
			continue
		}
		unpooled = append(unpooled, id)
	}
	return pools, unpooled
}

// Count returns the number of unpooled ids and pools across all groups.
func Count(l tree.EventList) (items, pools int) {
	for _, g := range l {
		p, u := PoolGroup(g)
		items += len(u)
		pools += len(p)
	}
	return items, pools
}

// Item is one drawn glyph: a single spacer or a pool.
type Item struct {
	Spacers []string
	Pool    bool
}

// Sequence orders ids and pools for drawing. Ids are walked in order; the
// first id that belongs to a pool emits the whole pool, later members are
// skipped. Remaining ids are emitted one per item.
func Sequence(ids []string, pools []Pool) []Item {
	out := make([]Item, 0, len(ids))
	placed := make([]bool, len(pools))
	for _, id := range ids {
		pi := slices.IndexFunc(pools, func(p Pool) bool { return p.Contains(id) })
		switch {
		case pi < 0:
			out = append(out, Item{Spacers: []string{id}})
		case !placed[pi]:
			placed[pi] = true
			out = append(out, Item{Spacers: slices.Clone(pools[pi].Members), Pool: true})
		}
	}
	return out
}
