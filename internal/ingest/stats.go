package ingest

import (
	"errors"
	"maps"
	"slices"

	"github.com/inodb/packbed/internal/bed"
)

// Stats counts what happened to every line read during ingestion.
type Stats struct {
	Lines    int            // lines read, comments included
	Comments int            // '#', track and browser header lines
	Parsed   int            // lines normalized into transcripts
	Dropped  int            // lines rejected by the normalizer
	Reasons  map[string]int // dropped lines per rejection reason
}

func newStats() *Stats {
	return &Stats{Reasons: make(map[string]int)}
}

func (s *Stats) drop(err error) {
	s.Dropped++
	s.Reasons[reasonOf(err)]++
}

// Merge adds the counts of o to s.
func (s *Stats) Merge(o *Stats) {
	s.Lines += o.Lines
	s.Comments += o.Comments
	s.Parsed += o.Parsed
	s.Dropped += o.Dropped
	if s.Reasons == nil {
		s.Reasons = make(map[string]int)
	}
	for k, v := range o.Reasons {
		s.Reasons[k] += v
	}
}

// ReasonNames returns the rejection reasons seen, sorted.
func (s *Stats) ReasonNames() []string {
	return slices.Sorted(maps.Keys(s.Reasons))
}

func reasonOf(err error) string {
	var pe *bed.ParseError
	if errors.As(err, &pe) {
		return pe.Reason.Error()
	}
	return err.Error()
}
