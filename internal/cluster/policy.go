// Package cluster partitions transcripts into overlap components.
package cluster

import (
	"fmt"
	"strings"

	"github.com/inodb/packbed/internal/bed"
)

// Policy selects which sub-intervals of a transcript are compared.
type Policy uint8

const (
	// Boundary compares whole transcript windows.
	Boundary Policy = iota
	// Exon compares exon blocks.
	Exon
	// CDS compares exon blocks clipped to the coding window. The clipping is
	// done by the normalizer, so ingestion must run with CDSOnly set.
	CDS
)

func (p Policy) String() string {
	switch p {
	case Boundary:
		return "boundary"
	case Exon:
		return "exon"
	case CDS:
		return "cds"
	}
	return fmt.Sprintf("Policy(%d)", uint8(p))
}

// ParsePolicy converts a policy name to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "boundary", "bounds", "tx":
		return Boundary, nil
	case "exon", "":
		return Exon, nil
	case "cds":
		return CDS, nil
	}
	return Exon, fmt.Errorf("unknown overlap type %q (want boundary, exon or cds)", s)
}

// CDSOnly reports whether records must be clipped to their CDS at parse time.
func (p Policy) CDSOnly() bool {
	return p == CDS
}

// Intervals returns the comparison intervals of t under p, sorted and
// disjoint. Empty intervals are never returned.
func (p Policy) Intervals(t *bed.Transcript) []bed.Interval {
	if p == Boundary {
		if b := t.Bounds(); b.Len() > 0 {
			return []bed.Interval{b}
		}
		return nil
	}
	return t.Exons
}

// Overlaps reports whether a and b overlap under p.
func (p Policy) Overlaps(a, b *bed.Transcript) bool {
	return bed.AnyOverlap(p.Intervals(a), p.Intervals(b))
}
