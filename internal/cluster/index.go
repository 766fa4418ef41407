package cluster

import (
	"sort"
	"strings"

	"github.com/inodb/packbed/internal/bed"
)

// Hit identifies one component containing a queried position.
type Hit struct {
	Key       string
	Index     int
	Extent    bed.Interval // genomic, forward coordinates
	Component Component
}

type extentEntry struct {
	extent bed.Interval
	index  int
}

// extentTree answers containment queries over component extents with a
// sorted slice and a running max of ends.
type extentTree struct {
	entries []extentEntry
	maxEnd  []uint64 // maxEnd[i] = max(End) for entries[:i+1]
}

func buildExtentTree(comps []Component) *extentTree {
	entries := make([]extentEntry, 0, len(comps))
	for i, c := range comps {
		if len(c) == 0 {
			continue
		}
		entries = append(entries, extentEntry{extent: c.Extent(), index: i})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].extent.Start < entries[j].extent.Start
	})

	maxEnd := make([]uint64, len(entries))
	for i, e := range entries {
		maxEnd[i] = e.extent.End
		if i > 0 && maxEnd[i-1] > maxEnd[i] {
			maxEnd[i] = maxEnd[i-1]
		}
	}
	return &extentTree{entries: entries, maxEnd: maxEnd}
}

// find returns the indices of components whose extent contains pos.
func (t *extentTree) find(pos uint64) []int {
	// Candidates are entries with start <= pos.
	hi := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].extent.Start > pos
	})

	var out []int
	for i := hi - 1; i >= 0; i-- {
		if t.maxEnd[i] <= pos {
			break
		}
		if t.entries[i].extent.End > pos {
			out = append(out, t.entries[i].index)
		}
	}
	sort.Ints(out)
	return out
}

// Index locates components by genomic position. Reverse-strand components
// live in flipped coordinates and are queried through Flip.
type Index struct {
	comps map[string][]Component
	trees map[string]*extentTree
	byKey map[string][]string // chromosome -> keys on it
}

// NewIndex builds a position index over every key of m.
func NewIndex(m *Map) *Index {
	ix := &Index{
		comps: m.ToMap(),
		trees: make(map[string]*extentTree),
		byKey: make(map[string][]string),
	}
	for _, key := range m.Keys() {
		ix.trees[key] = buildExtentTree(ix.comps[key])
		chrom, _, _ := strings.Cut(key, ":")
		ix.byKey[chrom] = append(ix.byKey[chrom], key)
	}
	return ix
}

// Locate returns the components on chrom whose extent contains the 0-based
// genomic position pos. Hits are ordered by key then component index.
func (ix *Index) Locate(chrom string, pos uint64) []Hit {
	var hits []Hit
	for _, key := range ix.byKey[chrom] {
		tree := ix.trees[key]
		comps := ix.comps[key]

		seen := make(map[int]bool)
		var idx []int
		for _, q := range []uint64{pos, bed.Scale - pos - 1} {
			for _, i := range tree.find(q) {
				if !seen[i] {
					seen[i] = true
					idx = append(idx, i)
				}
			}
		}
		sort.Ints(idx)

		for _, i := range idx {
			c := comps[i]
			if !componentContains(c, pos) {
				continue
			}
			hits = append(hits, Hit{Key: key, Index: i, Extent: genomicExtent(c), Component: c})
		}
	}
	return hits
}

// componentContains checks containment in genomic coordinates against the
// members themselves, so a forward query never matches a reverse extent by
// accident.
func componentContains(c Component, pos uint64) bool {
	for _, t := range c {
		g := t.GenomicBounds()
		if g.Start <= pos && pos < g.End {
			return true
		}
	}
	return false
}

func genomicExtent(c Component) bed.Interval {
	ext := c[0].GenomicBounds()
	for _, t := range c[1:] {
		g := t.GenomicBounds()
		ext.Start = min(ext.Start, g.Start)
		ext.End = max(ext.End, g.End)
	}
	return ext
}
