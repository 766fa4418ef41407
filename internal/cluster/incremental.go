package cluster

import (
	"slices"

	"github.com/inodb/packbed/internal/bed"
)

// group is the single open component of an incremental scan.
type group struct {
	members []int
	backup  []int
	reach   uint64
}

// scanner holds the per-call state shared by all incremental groups.
type scanner struct {
	ivs    [][]bed.Interval
	extent []bed.Interval
}

func (s *scanner) overlapsMember(g *group, i int) bool {
	for _, m := range g.members {
		if s.extent[m].Overlaps(s.extent[i]) && bed.AnyOverlap(s.ivs[m], s.ivs[i]) {
			return true
		}
	}
	return false
}

// offer tests i against g. An overlapping transcript is admitted and the
// backup list is replayed until nothing more joins; anything else is held
// back so that a later member can still pull it in.
func (s *scanner) offer(g *group, i int) {
	g.reach = max(g.reach, s.extent[i].End)
	if !s.overlapsMember(g, i) {
		g.backup = append(g.backup, i)
		return
	}
	g.members = append(g.members, i)
	for changed := true; changed; {
		changed = false
		kept := g.backup[:0]
		for _, b := range g.backup {
			if s.overlapsMember(g, b) {
				g.members = append(g.members, b)
				changed = true
				continue
			}
			kept = append(kept, b)
		}
		g.backup = kept
	}
}

// incrementalComponents groups ts by scanning transcripts in extent order
// with one open group at a time. The group closes when a transcript starts at
// or past everything seen so far; transcripts it held back but never admitted
// are re-scanned as their own sequence.
func incrementalComponents(ts []*bed.Transcript, p Policy) [][]int {
	s := &scanner{
		ivs:    make([][]bed.Interval, len(ts)),
		extent: make([]bed.Interval, len(ts)),
	}

	var comps [][]int
	order := make([]int, 0, len(ts))
	for i, t := range ts {
		s.ivs[i] = p.Intervals(t)
		ext, ok := bed.Span(s.ivs[i])
		if !ok {
			// Nothing to compare; always alone.
			comps = append(comps, []int{i})
			continue
		}
		s.extent[i] = ext
		order = append(order, i)
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case s.extent[a].Start < s.extent[b].Start:
			return -1
		case s.extent[a].Start > s.extent[b].Start:
			return 1
		}
		return 0
	})

	work := [][]int{order}
	for len(work) > 0 {
		seq := work[len(work)-1]
		work = work[:len(work)-1]

		var g *group
		closeGroup := func() {
			if g == nil {
				return
			}
			comps = append(comps, g.members)
			if len(g.backup) > 0 {
				work = append(work, g.backup)
			}
		}
		for _, i := range seq {
			if g != nil && s.extent[i].Start < g.reach {
				s.offer(g, i)
				continue
			}
			closeGroup()
			g = &group{members: []int{i}, reach: s.extent[i].End}
		}
		closeGroup()
	}

	for _, c := range comps {
		slices.Sort(c)
	}
	slices.SortFunc(comps, func(a, b []int) int { return a[0] - b[0] })
	return comps
}
