package bed

import "fmt"

// Interval is a half-open genomic range [Start, End).
type Interval struct {
	Start uint64
	End   uint64
}

// Len returns the number of bases covered by the interval.
func (iv Interval) Len() uint64 {
	if iv.End <= iv.Start {
		return 0
	}
	return iv.End - iv.Start
}

// Overlaps reports whether two half-open intervals intersect.
// Intervals that only touch at an endpoint do not overlap.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.Start < o.End && o.Start < iv.End
}

// Less orders intervals by start, then end.
func (iv Interval) Less(o Interval) bool {
	if iv.Start != o.Start {
		return iv.Start < o.Start
	}
	return iv.End < o.End
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%d,%d)", iv.Start, iv.End)
}

// AnyOverlap reports whether any interval of a intersects any interval of b.
// Both slices must be sorted ascending and pairwise disjoint.
func AnyOverlap(a, b []Interval) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].Overlaps(b[j]) {
			return true
		}
		// Advance whichever interval finishes first; it cannot overlap anything
		// further along the other list.
		if a[i].End < b[j].End {
			i++
		} else {
			j++
		}
	}
	return false
}

// Span returns the smallest interval covering all of ivs, and false if ivs is empty.
func Span(ivs []Interval) (Interval, bool) {
	if len(ivs) == 0 {
		return Interval{}, false
	}
	span := ivs[0]
	for _, iv := range ivs[1:] {
		span.Start = min(span.Start, iv.Start)
		span.End = max(span.End, iv.End)
	}
	return span, true
}
