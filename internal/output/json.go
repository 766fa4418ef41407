package output

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/inodb/packbed/internal/bed"
	"github.com/inodb/packbed/internal/cluster"
)

// Record is the value form of a transcript, in genomic coordinates.
type Record struct {
	Name     string      `json:"name"`
	Chrom    string      `json:"chrom"`
	Strand   string      `json:"strand"`
	Start    uint64      `json:"start"`
	End      uint64      `json:"end"`
	CDSStart uint64      `json:"cds_start"`
	CDSEnd   uint64      `json:"cds_end"`
	Exons    [][2]uint64 `json:"exons"`
	Color    string      `json:"color,omitempty"`
	Role     string      `json:"role,omitempty"`
	Line     string      `json:"line"`
}

// NewRecord converts t back to forward genomic coordinates.
func NewRecord(t *bed.Transcript) Record {
	rec := Record{
		Name:   t.Name,
		Chrom:  t.Chrom,
		Strand: t.Strand.String(),
		Color:  t.Color,
		Line:   t.Line,
	}
	if t.Role != bed.RoleNone {
		rec.Role = t.Role.String()
	}

	g := t.GenomicBounds()
	rec.Start, rec.End = g.Start, g.End
	rec.CDSStart, rec.CDSEnd = t.CDSStart, t.CDSEnd
	if t.IsReverse() {
		rec.CDSStart, rec.CDSEnd = bed.Flip(t.CDSEnd), bed.Flip(t.CDSStart)
	}

	rec.Exons = make([][2]uint64, 0, len(t.Exons))
	for _, e := range t.Exons {
		if t.IsReverse() {
			rec.Exons = append(rec.Exons, [2]uint64{bed.Flip(e.End), bed.Flip(e.Start)})
		} else {
			rec.Exons = append(rec.Exons, [2]uint64{e.Start, e.End})
		}
	}
	if t.IsReverse() {
		slices.Reverse(rec.Exons)
	}
	return rec
}

// Records converts m into its nested value form: key -> components -> records.
func Records(m *cluster.Map) map[string][][]Record {
	out := make(map[string][][]Record, m.Len())
	for _, key := range m.Keys() {
		comps, _ := m.Get(key)
		recs := make([][]Record, len(comps))
		for i, c := range comps {
			recs[i] = make([]Record, len(c))
			for j, t := range c {
				recs[i][j] = NewRecord(t)
			}
		}
		out[key] = recs
	}
	return out
}

// WriteJSON writes the nested value form of m as one JSON object.
func WriteJSON(w io.Writer, m *cluster.Map, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(Records(m)); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
