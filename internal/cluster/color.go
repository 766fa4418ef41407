package cluster

import (
	"math/rand/v2"
	"strconv"

	farm "github.com/dgryski/go-farm"
)

// Palette is a list of BED itemRgb values ("r,g,b").
type Palette []string

// DefaultPalette is used when no palette is configured.
var DefaultPalette = Palette{
	"255,0,0",
	"0,255,0",
	"0,0,255",
	"58,134,47",
	"255,0,255",
	"0,255,255",
	"255,128,0",
	"51,153,255",
	"118,115,15",
	"172,126,0",
}

// Colorizer picks the itemRgb value written for every member of a component.
// Implementations must be safe for concurrent use; keys are clustered in
// parallel.
type Colorizer interface {
	Color(key string, index int, c Component) string
}

// ColorFunc adapts a function to a Colorizer.
type ColorFunc func(key string, index int, c Component) string

// Color calls f.
func (f ColorFunc) Color(key string, index int, c Component) string {
	return f(key, index, c)
}

// RandomColorizer draws a pseudo-random palette entry per component. The
// stream for a component depends only on the seed, the key and the component
// index, so runs with the same seed are identical regardless of scheduling.
type RandomColorizer struct {
	palette Palette
	seed    uint64
}

// NewRandomColorizer returns a seeded colorizer. An empty palette selects
// DefaultPalette.
func NewRandomColorizer(palette Palette, seed uint64) *RandomColorizer {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	return &RandomColorizer{palette: palette, seed: seed}
}

func (r *RandomColorizer) Color(key string, index int, _ Component) string {
	rng := rand.New(rand.NewPCG(farm.Hash64WithSeed([]byte(key), r.seed), uint64(index)))
	return r.palette[rng.IntN(len(r.palette))]
}

// HashColorizer derives the color from the component content, so a component
// keeps its color across runs and inputs as long as its key and first member
// do not change.
type HashColorizer struct {
	palette Palette
}

// NewHashColorizer returns a content-addressed colorizer. An empty palette
// selects DefaultPalette.
func NewHashColorizer(palette Palette) *HashColorizer {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	return &HashColorizer{palette: palette}
}

func (h *HashColorizer) Color(key string, index int, c Component) string {
	buf := []byte(key)
	buf = append(buf, 0)
	if len(c) > 0 {
		buf = append(buf, c[0].Name...)
		buf = strconv.AppendUint(append(buf, 0), c[0].Start, 10)
	} else {
		buf = strconv.AppendInt(buf, int64(index), 10)
	}
	return h.palette[farm.Fingerprint64(buf)%uint64(len(h.palette))]
}
