package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/inodb/packbed/internal/cluster"
)

// Hint names components of one key. No indices means every component.
type Hint struct {
	Key     string
	Indices []int
}

// Selected is one component picked by a hint.
type Selected struct {
	Key       string
	Index     int
	Component cluster.Component
}

// ParseHints parses "chr1:0,2;chr2:1;chr3". The indices follow the last ':',
// so strand keys are written "chr1:+:0".
func ParseHints(s string) ([]Hint, error) {
	var hints []Hint
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		h := Hint{Key: part}
		if i := strings.LastIndex(part, ":"); i >= 0 && isIndexList(part[i+1:]) {
			h.Key = part[:i]
			for _, item := range strings.Split(part[i+1:], ",") {
				if item == "" {
					continue
				}
				n, err := strconv.Atoi(item)
				if err != nil {
					return nil, fmt.Errorf("parse hint %q: %w", part, err)
				}
				h.Indices = append(h.Indices, n)
			}
		}
		if h.Key == "" {
			return nil, fmt.Errorf("parse hint %q: empty key", part)
		}
		hints = append(hints, h)
	}
	if len(hints) == 0 {
		return nil, fmt.Errorf("parse hints %q: no hints", s)
	}
	return hints, nil
}

func isIndexList(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != ',' {
			return false
		}
	}
	return true
}

// Select resolves hints against m. Unknown keys and out-of-range indices are
// skipped and reported as warnings.
func Select(m *cluster.Map, hints []Hint) ([]Selected, []string) {
	var (
		sel      []Selected
		warnings []string
	)
	for _, h := range hints {
		comps, ok := m.Get(h.Key)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("key %s not found", h.Key))
			continue
		}
		if len(h.Indices) == 0 {
			for i, c := range comps {
				sel = append(sel, Selected{Key: h.Key, Index: i, Component: c})
			}
			continue
		}
		for _, i := range h.Indices {
			if i < 0 || i >= len(comps) {
				warnings = append(warnings, fmt.Sprintf("component %s_%d out of range (%d components)", h.Key, i, len(comps)))
				continue
			}
			sel = append(sel, Selected{Key: h.Key, Index: i, Component: comps[i]})
		}
	}
	return sel, warnings
}

// All returns every component of m as a selection, keys in sorted order.
func All(m *cluster.Map) []Selected {
	var sel []Selected
	for _, key := range m.Keys() {
		comps, _ := m.Get(key)
		for i, c := range comps {
			sel = append(sel, Selected{Key: key, Index: i, Component: c})
		}
	}
	return sel
}
