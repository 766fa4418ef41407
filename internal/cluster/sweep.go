package cluster

import (
	"cmp"
	"slices"

	"github.com/inodb/packbed/internal/bed"
)

// ownedInterval is a comparison interval tagged with the transcript it came from.
type ownedInterval struct {
	iv    bed.Interval
	owner int
}

// sweepComponents groups ts with a left-to-right sweep over every comparison
// interval. A running reach (largest end seen since the last gap) and the
// transcript owning the current run decide which owners are unioned.
func sweepComponents(ts []*bed.Transcript, p Policy) [][]int {
	var ivs []ownedInterval
	for i, t := range ts {
		for _, iv := range p.Intervals(t) {
			ivs = append(ivs, ownedInterval{iv: iv, owner: i})
		}
	}

	slices.SortFunc(ivs, func(a, b ownedInterval) int {
		return cmp.Or(
			cmp.Compare(a.iv.Start, b.iv.Start),
			cmp.Compare(a.iv.End, b.iv.End),
			cmp.Compare(a.owner, b.owner),
		)
	})

	uf := newUnionFind(len(ts))
	if len(ivs) > 0 {
		reach, owner := ivs[0].iv.End, ivs[0].owner
		for _, x := range ivs[1:] {
			if x.iv.Start < reach {
				uf.union(owner, x.owner)
				reach = max(reach, x.iv.End)
				continue
			}
			reach, owner = x.iv.End, x.owner
		}
	}
	return uf.groups()
}
