// Package output writes clustered components in the supported formats.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/inodb/packbed/internal/cluster"
)

// Format selects an output kind.
type Format uint8

const (
	FormatBED    Format = iota // one flat BED stream
	FormatBinary               // snappy-compressed gob envelope
	FormatSplit                // one BED file per component
	FormatJSON                 // nested key -> components -> records
	FormatDuckDB               // components table
)

func (f Format) String() string {
	switch f {
	case FormatBED:
		return "bed"
	case FormatBinary:
		return "bin"
	case FormatSplit:
		return "comp"
	case FormatJSON:
		return "json"
	case FormatDuckDB:
		return "duckdb"
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// ParseFormat converts an output type name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bed", "":
		return FormatBED, nil
	case "bin", "binary":
		return FormatBinary, nil
	case "comp", "split":
		return FormatSplit, nil
	case "json":
		return FormatJSON, nil
	case "duckdb", "db":
		return FormatDuckDB, nil
	}
	return FormatBED, fmt.Errorf("unknown output type %q (want bed, bin, comp, json or duckdb)", s)
}

// BEDWriter writes the source lines of clustered transcripts, one component
// after another.
type BEDWriter struct {
	w *bufio.Writer
	n int
}

// NewBEDWriter creates a new BED writer.
func NewBEDWriter(w io.Writer) *BEDWriter {
	return &BEDWriter{w: bufio.NewWriter(w)}
}

// WriteComponent writes every member of c in order.
func (bw *BEDWriter) WriteComponent(c cluster.Component) error {
	for _, t := range c {
		if _, err := bw.w.WriteString(t.Line); err != nil {
			return err
		}
		if err := bw.w.WriteByte('\n'); err != nil {
			return err
		}
		bw.n++
	}
	return nil
}

// WriteMap writes all components of m, keys in sorted order.
func (bw *BEDWriter) WriteMap(m *cluster.Map) error {
	for _, key := range m.Keys() {
		comps, _ := m.Get(key)
		for _, c := range comps {
			if err := bw.WriteComponent(c); err != nil {
				return fmt.Errorf("write %s: %w", key, err)
			}
		}
	}
	return nil
}

// WriteSelected writes the selected components in order.
func (bw *BEDWriter) WriteSelected(sel []Selected) error {
	for _, s := range sel {
		if err := bw.WriteComponent(s.Component); err != nil {
			return fmt.Errorf("write %s_%d: %w", s.Key, s.Index, err)
		}
	}
	return nil
}

// Count returns the number of lines written so far.
func (bw *BEDWriter) Count() int {
	return bw.n
}

// Flush flushes any buffered data to the underlying writer.
func (bw *BEDWriter) Flush() error {
	return bw.w.Flush()
}
