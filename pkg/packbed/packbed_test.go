package packbed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `# two overlapping, one apart
chr1	100	200	a	0	+	100	200	0	1	100,	0,
chr1	150	250	b	0	+	150	250	0	1	100,	0,
chr1	100	200	seven	0	+	100
chr1	5000	5100	c	0	+	5000	5100	0	1	100,	0,
chr2	10	20	d	0	-	10	20	0	1	10,	0,
`

func TestPack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.bed")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	got, err := Pack(context.Background(), []string{path}, Options{Threads: 2})
	require.NoError(t, err)

	require.Len(t, got["chr1"], 2)
	assert.Len(t, got["chr1"][0], 2)
	assert.Equal(t, "a", got["chr1"][0][0].Name)
	assert.Equal(t, "c", got["chr1"][1][0].Name)
	require.Len(t, got["chr2"], 1)
	assert.Equal(t, uint64(10), got["chr2"][0][0].Start)

	for _, comps := range got {
		for _, c := range comps {
			for _, r := range c {
				assert.NotEqual(t, "seven", r.Name)
			}
		}
	}
}

func TestPack_Options(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.bed")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	got, err := Pack(context.Background(), []string{path}, Options{
		Roles:       []string{"query"},
		Overlap:     "boundary",
		Strategy:    "incremental",
		Colorize:    true,
		Seed:        4,
		SplitStrand: true,
	})
	require.NoError(t, err)
	require.Contains(t, got, "chr1:+")
	require.Contains(t, got, "chr2:-")

	first := got["chr1:+"][0]
	assert.Equal(t, "query", first[0].Role)
	assert.NotEmpty(t, first[0].Color)
	assert.Equal(t, first[0].Color, first[1].Color)

	_, err = Pack(context.Background(), []string{path}, Options{Overlap: "gene"})
	assert.Error(t, err)
}

func TestPack_InvalidSource(t *testing.T) {
	_, err := Pack(context.Background(), []string{filepath.Join(t.TempDir(), "missing.bed")}, Options{})
	assert.Error(t, err)

	_, err = Pack(context.Background(), nil, Options{})
	assert.Error(t, err)
}

func TestPackReader(t *testing.T) {
	got, err := PackReader(context.Background(), strings.NewReader(sample), Options{Overlap: "exon"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	empty, err := PackReader(context.Background(), strings.NewReader("# nothing\n"), Options{})
	require.NoError(t, err)
	assert.Empty(t, empty)
}
