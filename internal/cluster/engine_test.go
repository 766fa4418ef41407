package cluster

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/packbed/internal/bed"
)

var strategies = []Strategy{Sweep, Incremental}

// bedLine builds a BED12 line on chrom with CDS equal to the transcript window.
// Blocks are absolute genomic [start, end) pairs.
func bedLine(chrom, name string, strand byte, blocks ...[2]uint64) string {
	start, end := blocks[0][0], blocks[0][1]
	for _, b := range blocks[1:] {
		start = min(start, b[0])
		end = max(end, b[1])
	}
	var sizes, starts strings.Builder
	for _, b := range blocks {
		sizes.WriteString(strconv.FormatUint(b[1]-b[0], 10) + ",")
		starts.WriteString(strconv.FormatUint(b[0]-start, 10) + ",")
	}
	return strings.Join([]string{
		chrom,
		strconv.FormatUint(start, 10),
		strconv.FormatUint(end, 10),
		name, "0", string(strand),
		strconv.FormatUint(start, 10),
		strconv.FormatUint(end, 10),
		"0",
		strconv.Itoa(len(blocks)),
		sizes.String(),
		starts.String(),
	}, "\t")
}

func mustParse(t *testing.T, line string, cdsOnly bool) *bed.Transcript {
	t.Helper()
	tx, err := bed.Parse(line, cdsOnly)
	require.NoError(t, err)
	return tx
}

// scanOrder sorts like ingestion does.
func scanOrder(ts []*bed.Transcript) []*bed.Transcript {
	out := slices.Clone(ts)
	slices.SortStableFunc(out, func(a, b *bed.Transcript) int {
		if a.Start != b.Start {
			return cmpU(a.Start, b.Start)
		}
		return cmpU(a.End, b.End)
	})
	return out
}

func cmpU(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func componentNames(comps []Component) [][]string {
	out := make([][]string, len(comps))
	for i, c := range comps {
		out[i] = c.Names()
	}
	return out
}

// bruteForce unions every overlapping pair directly.
func bruteForce(ts []*bed.Transcript, p Policy) [][]string {
	uf := newUnionFind(len(ts))
	for i := range ts {
		for j := i + 1; j < len(ts); j++ {
			if p.Overlaps(ts[i], ts[j]) {
				uf.union(i, j)
			}
		}
	}
	var out [][]string
	for _, g := range uf.groups() {
		names := make([]string, len(g))
		for k, idx := range g {
			names[k] = ts[idx].Name
		}
		out = append(out, names)
	}
	return out
}

func TestClusterKey_Scenarios(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy.String(), func(t *testing.T) {
			t.Run("boundary overlap joins", func(t *testing.T) {
				ts := []*bed.Transcript{
					mustParse(t, bedLine("chr1", "a", '+', [2]uint64{100, 120}, [2]uint64{190, 200}), false),
					mustParse(t, bedLine("chr1", "b", '+', [2]uint64{150, 170}, [2]uint64{240, 250}), false),
				}
				e := NewEngine(Options{Policy: Boundary, Strategy: strategy})
				comps, err := e.ClusterKey("chr1", ts)
				require.NoError(t, err)
				assert.Equal(t, [][]string{{"a", "b"}}, componentNames(comps))
			})

			t.Run("exon policy separates", func(t *testing.T) {
				ts := []*bed.Transcript{
					mustParse(t, bedLine("chr1", "a", '+', [2]uint64{100, 120}, [2]uint64{190, 200}), false),
					mustParse(t, bedLine("chr1", "b", '+', [2]uint64{150, 170}, [2]uint64{240, 250}), false),
				}
				e := NewEngine(Options{Policy: Exon, Strategy: strategy})
				comps, err := e.ClusterKey("chr1", ts)
				require.NoError(t, err)
				assert.Equal(t, [][]string{{"a"}, {"b"}}, componentNames(comps))
			})

			t.Run("transitive chain", func(t *testing.T) {
				ts := scanOrder([]*bed.Transcript{
					mustParse(t, bedLine("chr1", "A", '+', [2]uint64{100, 150}), false),
					mustParse(t, bedLine("chr1", "B", '+', [2]uint64{140, 160}, [2]uint64{300, 350}), false),
					mustParse(t, bedLine("chr1", "C", '+', [2]uint64{340, 400}), false),
				})
				require.False(t, Exon.Overlaps(ts[0], ts[2]))

				e := NewEngine(Options{Policy: Exon, Strategy: strategy})
				comps, err := e.ClusterKey("chr1", ts)
				require.NoError(t, err)
				assert.Equal(t, [][]string{{"A", "B", "C"}}, componentNames(comps))
			})

			t.Run("touching intervals stay apart", func(t *testing.T) {
				ts := []*bed.Transcript{
					mustParse(t, bedLine("chr1", "a", '+', [2]uint64{100, 200}), false),
					mustParse(t, bedLine("chr1", "b", '+', [2]uint64{200, 300}), false),
				}
				e := NewEngine(Options{Policy: Boundary, Strategy: strategy})
				comps, err := e.ClusterKey("chr1", ts)
				require.NoError(t, err)
				assert.Len(t, comps, 2)
			})

			t.Run("late member pulls in held-back transcript", func(t *testing.T) {
				// b lies inside a's window but only overlaps c's exon.
				ts := scanOrder([]*bed.Transcript{
					mustParse(t, bedLine("chr1", "a", '+', [2]uint64{100, 110}, [2]uint64{490, 500}), false),
					mustParse(t, bedLine("chr1", "b", '+', [2]uint64{200, 220}), false),
					mustParse(t, bedLine("chr1", "c", '+', [2]uint64{210, 230}, [2]uint64{495, 520}), false),
				})
				e := NewEngine(Options{Policy: Exon, Strategy: strategy})
				comps, err := e.ClusterKey("chr1", ts)
				require.NoError(t, err)
				assert.Equal(t, [][]string{{"a", "b", "c"}}, componentNames(comps))
			})

			t.Run("held-back transcripts form their own components", func(t *testing.T) {
				// b and c sit in a's intron and overlap each other only.
				ts := scanOrder([]*bed.Transcript{
					mustParse(t, bedLine("chr1", "a", '+', [2]uint64{100, 110}, [2]uint64{990, 1000}), false),
					mustParse(t, bedLine("chr1", "b", '+', [2]uint64{200, 300}), false),
					mustParse(t, bedLine("chr1", "c", '+', [2]uint64{250, 350}), false),
					mustParse(t, bedLine("chr1", "d", '+', [2]uint64{600, 650}), false),
				})
				e := NewEngine(Options{Policy: Exon, Strategy: strategy})
				comps, err := e.ClusterKey("chr1", ts)
				require.NoError(t, err)
				assert.Equal(t, [][]string{{"a"}, {"b", "c"}, {"d"}}, componentNames(comps))
			})
		})
	}
}

func TestClusterKey_ReverseStrand(t *testing.T) {
	// Same genomic blocks on opposite strands overlap in flipped space only
	// with each other.
	ts := scanOrder([]*bed.Transcript{
		mustParse(t, bedLine("chr1", "fwd", '+', [2]uint64{100, 200}), false),
		mustParse(t, bedLine("chr1", "rev1", '-', [2]uint64{100, 200}), false),
		mustParse(t, bedLine("chr1", "rev2", '-', [2]uint64{150, 250}), false),
	})
	for _, strategy := range strategies {
		e := NewEngine(Options{Policy: Exon, Strategy: strategy})
		comps, err := e.ClusterKey("chr1", ts)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"fwd"}, {"rev2", "rev1"}}, componentNames(comps), strategy.String())
	}
}

func TestClusterKey_CDSPolicy(t *testing.T) {
	// Exons overlap in UTR only.
	a := "chr1\t100\t400\ta\t0\t+\t150\t350\t0\t2\t100,100,\t0,200,"
	b := "chr1\t360\t450\tb\t0\t+\t370\t450\t0\t2\t20,30,\t0,60,"
	ts := []*bed.Transcript{mustParse(t, a, true), mustParse(t, b, true)}

	e := NewEngine(Options{Policy: CDS})
	comps, err := e.ClusterKey("chr1", ts)
	require.NoError(t, err)
	assert.Len(t, comps, 2)

	ts = []*bed.Transcript{mustParse(t, a, false), mustParse(t, b, false)}
	e = NewEngine(Options{Policy: Exon})
	comps, err = e.ClusterKey("chr1", ts)
	require.NoError(t, err)
	assert.Len(t, comps, 1)
}

func TestClusterKey_Empty(t *testing.T) {
	e := NewEngine(Options{})
	_, err := e.ClusterKey("chr1", nil)
	assert.ErrorIs(t, err, ErrEmptyPartition)
}

func randomTranscripts(t *testing.T, rng *rand.Rand, n int, cdsOnly bool) []*bed.Transcript {
	t.Helper()
	var ts []*bed.Transcript
	for i := range n {
		start := rng.Uint64N(5000)
		var blocks [][2]uint64
		pos := start
		for range 1 + rng.IntN(4) {
			size := 1 + rng.Uint64N(80)
			blocks = append(blocks, [2]uint64{pos, pos + size})
			pos += size + rng.Uint64N(300)
		}
		strand := byte('+')
		if rng.IntN(4) == 0 {
			strand = '-'
		}
		line := bedLine("chr1", fmt.Sprintf("t%d", i), strand, blocks...)
		tx, err := bed.Parse(line, cdsOnly)
		require.NoError(t, err)
		ts = append(ts, tx)
	}
	return scanOrder(ts)
}

func TestClusterKey_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for round := range 30 {
		ts := randomTranscripts(t, rng, 20+rng.IntN(120), false)
		for _, p := range []Policy{Boundary, Exon} {
			want := bruteForce(ts, p)
			for _, strategy := range strategies {
				e := NewEngine(Options{Policy: p, Strategy: strategy})
				comps, err := e.ClusterKey("chr1", ts)
				require.NoError(t, err)
				assert.Equal(t, want, componentNames(comps),
					"round %d policy %s strategy %s", round, p, strategy)
			}
		}
	}
}

func TestClusterKey_PartitionAndClosure(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	ts := randomTranscripts(t, rng, 200, false)

	for _, strategy := range strategies {
		e := NewEngine(Options{Policy: Exon, Strategy: strategy})
		comps, err := e.ClusterKey("chr1", ts)
		require.NoError(t, err)

		// Every transcript appears exactly once.
		seen := make(map[string]int)
		owner := make(map[string]int)
		for ci, c := range comps {
			require.NotEmpty(t, c)
			for _, tx := range c {
				seen[tx.Name]++
				owner[tx.Name] = ci
			}
		}
		assert.Len(t, seen, len(ts))
		for name, n := range seen {
			assert.Equal(t, 1, n, name)
		}

		// No overlap crosses a component boundary.
		for i := range ts {
			for j := i + 1; j < len(ts); j++ {
				if Exon.Overlaps(ts[i], ts[j]) {
					assert.Equal(t, owner[ts[i].Name], owner[ts[j].Name], "%s/%s", ts[i].Name, ts[j].Name)
				}
			}
		}

		// Every component is connected.
		for _, c := range comps {
			reached := map[int]bool{0: true}
			stack := []int{0}
			for len(stack) > 0 {
				cur := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				for k := range c {
					if !reached[k] && Exon.Overlaps(c[cur], c[k]) {
						reached[k] = true
						stack = append(stack, k)
					}
				}
			}
			assert.Len(t, reached, len(c))
		}
	}
}

func TestClusterKey_Idempotent(t *testing.T) {
	rng := rand.New(rand.NewPCG(21, 42))
	ts := randomTranscripts(t, rng, 150, false)

	for _, strategy := range strategies {
		e := NewEngine(Options{Policy: Exon, Strategy: strategy})
		comps, err := e.ClusterKey("chr1", ts)
		require.NoError(t, err)

		for _, c := range comps {
			again, err := e.ClusterKey("chr1", c)
			require.NoError(t, err)
			require.Len(t, again, 1)
			assert.Equal(t, c.Names(), again[0].Names())
		}
	}
}

func TestRun_ParallelKeys(t *testing.T) {
	part := map[string][]*bed.Transcript{
		"chr1": {
			mustParse(t, bedLine("chr1", "a", '+', [2]uint64{100, 200}), false),
			mustParse(t, bedLine("chr1", "b", '+', [2]uint64{150, 250}), false),
		},
		"chr2": {
			mustParse(t, bedLine("chr2", "c", '+', [2]uint64{100, 200}), false),
			mustParse(t, bedLine("chr2", "d", '+', [2]uint64{300, 400}), false),
		},
		"chrX": {
			mustParse(t, bedLine("chrX", "e", '-', [2]uint64{10, 20}), false),
		},
	}

	e := NewEngine(Options{Policy: Exon, Workers: 2, Colorizer: NewRandomColorizer(nil, 1)})
	m, err := e.Run(context.Background(), part)
	require.NoError(t, err)

	assert.Equal(t, []string{"chr1", "chr2", "chrX"}, m.Keys())
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, 4, m.NumComponents())
	assert.Equal(t, 5, m.NumTranscripts())

	chr1, ok := m.Get("chr1")
	require.True(t, ok)
	require.Len(t, chr1, 1)
	assert.Equal(t, chr1[0][0].Color, chr1[0][1].Color)
	assert.Contains(t, DefaultPalette, chr1[0][0].Color)

	// Input transcripts are untouched by colorization.
	assert.Equal(t, "0", part["chr1"][0].Color)

	_, err = e.Run(context.Background(), map[string][]*bed.Transcript{"chr1": nil})
	assert.ErrorIs(t, err, ErrEmptyPartition)
}

func TestRun_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	part := map[string][]*bed.Transcript{
		"chr1": randomTranscripts(t, rng, 100, false),
		"chr2": randomTranscripts(t, rng, 100, false),
	}

	run := func() map[string][]Component {
		e := NewEngine(Options{Policy: Exon, Workers: 4, Colorizer: NewRandomColorizer(nil, 99)})
		m, err := e.Run(context.Background(), part)
		require.NoError(t, err)
		return m.ToMap()
	}
	assert.Equal(t, run(), run())
}

func TestParsePolicyAndStrategy(t *testing.T) {
	for in, want := range map[string]Policy{"boundary": Boundary, "EXON": Exon, "cds": CDS, "": Exon} {
		got, err := ParsePolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParsePolicy("intron")
	assert.Error(t, err)

	s, err := ParseStrategy("incremental")
	require.NoError(t, err)
	assert.Equal(t, Incremental, s)
	_, err = ParseStrategy("greedy")
	assert.Error(t, err)

	assert.True(t, CDS.CDSOnly())
	assert.False(t, Exon.CDSOnly())
}
