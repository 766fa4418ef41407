// Package bed parses BED12 transcript records into a strand-normalized model.
package bed

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Scale is the pivot of the reverse-strand coordinate transform. Reverse-strand
// coordinates are stored as Scale-x, so every transcript sorts in plain
// ascending order regardless of strand. No genome coordinate may exceed it.
const Scale uint64 = 100_000_000_000

// NumFields is the number of tab-separated columns in a BED12 record.
const NumFields = 12

// Column indices of a BED12 record.
const (
	colChrom = iota
	colTxStart
	colTxEnd
	colName
	colScore
	colStrand
	colCDSStart
	colCDSEnd
	colRGB
	colBlockCount
	colBlockSizes
	colBlockStarts
)

// Strand is the orientation of a transcript.
type Strand byte

const (
	Forward Strand = '+'
	Reverse Strand = '-'
)

func (s Strand) String() string {
	return string(s)
}

// Flip maps a coordinate through the reverse-strand transform. Flip(Flip(x)) == x.
func Flip(x uint64) uint64 {
	return Scale - x
}

// Transcript is a normalized BED12 record. Reverse-strand coordinates are
// already transformed with Flip, so Start <= CDSStart <= CDSEnd <= End holds
// for both strands. A Transcript is never modified after Parse returns.
type Transcript struct {
	Name     string
	Chrom    string
	Strand   Strand
	Start    uint64
	End      uint64
	CDSStart uint64
	CDSEnd   uint64
	Exons    []Interval // sorted, pairwise disjoint
	Introns  []Interval // positive-length gaps between consecutive exons
	Line     string     // source record, rewritten only by WithColor
	Color    string     // rgb column, e.g. "255,0,0"
	Role     Role
}

// Bounds returns the transcript window [Start, End).
func (t *Transcript) Bounds() Interval {
	return Interval{Start: t.Start, End: t.End}
}

// CDS returns the coding window [CDSStart, CDSEnd).
func (t *Transcript) CDS() Interval {
	return Interval{Start: t.CDSStart, End: t.CDSEnd}
}

// IsReverse returns true if the transcript is on the reverse strand.
func (t *Transcript) IsReverse() bool {
	return t.Strand == Reverse
}

// GenomicBounds returns the transcript window in original genome coordinates.
func (t *Transcript) GenomicBounds() Interval {
	if t.IsReverse() {
		return Interval{Start: Flip(t.End), End: Flip(t.Start)}
	}
	return t.Bounds()
}

// WithColor returns a copy of t whose color and rgb column are set to color.
// The receiver is left untouched.
func (t *Transcript) WithColor(color string) *Transcript {
	c := *t
	c.Color = color
	fields := strings.Split(t.Line, "\t")
	if len(fields) == NumFields {
		fields[colRGB] = color
		c.Line = strings.Join(fields, "\t")
	}
	return &c
}

// Parse normalizes one BED12 line. When cdsOnly is set every exon is clipped to
// the coding window and a record with an exon wholly outside the window fails.
// Parse has no side effects and may be called concurrently.
func Parse(line string, cdsOnly bool) (*Transcript, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return nil, &ParseError{Reason: ErrEmptyLine}
	}

	fields := strings.Split(line, "\t")
	if len(fields) != NumFields {
		return nil, &ParseError{
			Field:  fmt.Sprintf("expected %d fields, got %d", NumFields, len(fields)),
			Reason: ErrFieldCount,
		}
	}

	txStart, err := parseCoord(fields[colTxStart], "txStart")
	if err != nil {
		return nil, err
	}
	txEnd, err := parseCoord(fields[colTxEnd], "txEnd")
	if err != nil {
		return nil, err
	}
	cdsStart, err := parseCoord(fields[colCDSStart], "cdsStart")
	if err != nil {
		return nil, err
	}
	cdsEnd, err := parseCoord(fields[colCDSEnd], "cdsEnd")
	if err != nil {
		return nil, err
	}
	if _, err := parseCoord(fields[colBlockCount], "blockCount"); err != nil {
		return nil, err
	}

	var strand Strand
	switch fields[colStrand] {
	case "+":
		strand = Forward
	case "-":
		strand = Reverse
	default:
		return nil, fieldError("strand", ErrInvalidStrand)
	}

	if txStart > txEnd || txEnd > Scale {
		return nil, fieldError("txEnd", ErrInvalidBounds)
	}
	// Non-coding records often carry an empty thick window anywhere on the
	// line (0,0 is common); pin it to the transcript start.
	if cdsStart == cdsEnd && (cdsStart < txStart || cdsStart > txEnd) {
		cdsStart, cdsEnd = txStart, txStart
	}
	if cdsStart < txStart || cdsStart > cdsEnd || cdsEnd > txEnd {
		return nil, fieldError("cdsEnd", ErrInvalidBounds)
	}

	blocks, err := parseBlocks(fields[colBlockStarts], fields[colBlockSizes], txStart, txEnd)
	if err != nil {
		return nil, err
	}

	t := &Transcript{
		Name:     fields[colName],
		Chrom:    fields[colChrom],
		Strand:   strand,
		Start:    txStart,
		End:      txEnd,
		CDSStart: cdsStart,
		CDSEnd:   cdsEnd,
		Line:     line,
		Color:    fields[colRGB],
	}
	if strand == Reverse {
		t.Start, t.End = Flip(txEnd), Flip(txStart)
		t.CDSStart, t.CDSEnd = Flip(cdsEnd), Flip(cdsStart)
		for i, b := range blocks {
			blocks[i] = Interval{Start: Flip(b.End), End: Flip(b.Start)}
		}
	}

	if cdsOnly {
		cds := t.CDS()
		for i, b := range blocks {
			if !b.Overlaps(cds) {
				return nil, fieldError("blockStarts", ErrExonOutsideCDS)
			}
			blocks[i] = Interval{Start: max(b.Start, cds.Start), End: min(b.End, cds.End)}
		}
	}

	t.Exons = normalizeExons(blocks)
	t.Introns = Gaps(t.Exons)
	return t, nil
}

// parseBlocks turns the comma lists of a BED12 record into absolute forward
// coordinates [txStart+start, txStart+start+size). Zero-length blocks are
// dropped since they cover no bases.
func parseBlocks(startsField, sizesField string, txStart, txEnd uint64) ([]Interval, error) {
	starts, err := parseList(startsField, "blockStarts")
	if err != nil {
		return nil, err
	}
	sizes, err := parseList(sizesField, "blockSizes")
	if err != nil {
		return nil, err
	}
	if len(starts) != len(sizes) || len(starts) == 0 {
		return nil, fieldError("blockSizes", ErrBlockMismatch)
	}

	blocks := make([]Interval, 0, len(starts))
	for i, s := range starts {
		b := Interval{Start: txStart + s, End: txStart + s + sizes[i]}
		if b.End > txEnd || b.End < b.Start {
			return nil, fieldError("blockStarts", ErrInvalidBounds)
		}
		if b.Len() == 0 {
			continue
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// normalizeExons sorts blocks and collapses duplicates. Overlapping blocks are
// merged so the result is pairwise disjoint; touching blocks stay separate.
func normalizeExons(blocks []Interval) []Interval {
	slices.SortFunc(blocks, func(a, b Interval) int {
		if a.Less(b) {
			return -1
		}
		if b.Less(a) {
			return 1
		}
		return 0
	})

	exons := make([]Interval, 0, len(blocks))
	for _, b := range blocks {
		if n := len(exons); n > 0 && b.Start < exons[n-1].End {
			exons[n-1].End = max(exons[n-1].End, b.End)
			continue
		}
		exons = append(exons, b)
	}
	if len(exons) == 0 {
		return nil
	}
	return exons
}

// Gaps returns the positive-length gaps between consecutive sorted intervals.
func Gaps(sorted []Interval) []Interval {
	if len(sorted) < 2 {
		return nil
	}
	gaps := make([]Interval, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		prev, next := sorted[i-1], sorted[i]
		if next.Start > prev.End {
			gaps = append(gaps, Interval{Start: prev.End, End: next.Start})
		}
	}
	if len(gaps) == 0 {
		return nil
	}
	return gaps
}

func parseCoord(s, field string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fieldError(field, ErrInvalidField)
	}
	return v, nil
}

// parseList parses a comma-separated list of integers. Empty items (the
// trailing comma UCSC writes) are skipped.
func parseList(s, field string) ([]uint64, error) {
	var out []uint64
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		v, err := strconv.ParseUint(item, 10, 64)
		if err != nil {
			return nil, fieldError(field, ErrInvalidField)
		}
		out = append(out, v)
	}
	return out, nil
}
