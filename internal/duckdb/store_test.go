package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/packbed/internal/bed"
	"github.com/inodb/packbed/internal/cluster"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testMap(t *testing.T) *cluster.Map {
	t.Helper()
	lines := []string{
		"chr1\t100\t200\tENST01\t0\t+\t110\t190\t0\t2\t30,40,\t0,60,",
		"chr1\t150\t250\tENST02\t0\t+\t150\t250\t0\t1\t100,\t0,",
		"chr1\t1000\t1100\tENST03\t0\t+\t1000\t1100\t0\t1\t100,\t0,",
		"chr12\t25205246\t25250936\tKRAS\t0\t-\t25209431\t25245384\t0\t2\t4665,119,\t0,10195,",
	}
	part := make(map[string][]*bed.Transcript)
	for _, line := range lines {
		tx, err := bed.Parse(line, false)
		require.NoError(t, err)
		part[tx.Chrom] = append(part[tx.Chrom], tx)
	}
	m, err := cluster.NewEngine(cluster.Options{Policy: cluster.Exon}).Run(context.Background(), part)
	require.NoError(t, err)
	return m
}

// --- Component store tests (DuckDB) ---

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
	assert.Empty(t, s.Path())
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "packbed.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.FileExists(t, path)
}

func TestWriteAndLookupComponents(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteComponents(testMap(t)))

	rows, err := s.LookupName("ENST02")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "chr1", rows[0].Key)
	assert.Equal(t, 0, rows[0].Component)
	assert.Equal(t, 1, rows[0].Member)
	assert.Equal(t, int64(150), rows[0].Start)

	kras, err := s.LookupName("KRAS")
	require.NoError(t, err)
	require.Len(t, kras, 1)
	assert.Equal(t, "-", kras[0].Strand)
	assert.Equal(t, int64(25205246), kras[0].Start)
	assert.Equal(t, int64(25250936), kras[0].End)
	assert.Equal(t, int64(25209431), kras[0].CDSStart)
	assert.Equal(t, int64(25245384), kras[0].CDSEnd)
	assert.Equal(t, 2, kras[0].ExonCount)

	members, err := s.Members("chr1", 0)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "ENST01", members[0].Name)
	assert.Equal(t, "ENST02", members[1].Name)

	missing, err := s.LookupName("nope")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestSummarize(t *testing.T) {
	s := openInMemory(t)

	sum, err := s.Summarize()
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)

	require.NoError(t, s.WriteComponents(testMap(t)))
	sum, err = s.Summarize()
	require.NoError(t, err)
	assert.Equal(t, Summary{Keys: 2, Components: 3, Transcripts: 4}, sum)

	// A second write replaces the table.
	require.NoError(t, s.WriteComponents(testMap(t)))
	sum, err = s.Summarize()
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Transcripts)

	require.NoError(t, s.ClearComponents())
	sum, err = s.Summarize()
	require.NoError(t, err)
	assert.Zero(t, sum.Transcripts)
}

// --- Run cache tests (binary envelope) ---

func TestRunCacheWriteAndLoad(t *testing.T) {
	rc := NewRunCache(t.TempDir())
	m := testMap(t)

	fp := FileFingerprint{Path: "a.bed", Size: 1000, ModTime: time.Now()}
	require.NoError(t, rc.Write(m, []FileFingerprint{fp}, "overlap=exon"))

	got, err := rc.Load()
	require.NoError(t, err)
	assert.Equal(t, m.ToMap(), got.ToMap())
}

func TestRunCacheValidation(t *testing.T) {
	rc := NewRunCache(t.TempDir())

	now := time.Now()
	ref := FileFingerprint{Path: "ref.bed", Size: 1000, ModTime: now}
	query := FileFingerprint{Path: "query.bed", Size: 2000, ModTime: now}
	sources := []FileFingerprint{ref, query}

	// No cache yet → invalid
	assert.False(t, rc.Valid(sources, "overlap=exon"))

	require.NoError(t, rc.Write(testMap(t), sources, "overlap=exon"))

	// Same fingerprints → valid
	assert.True(t, rc.Valid(sources, "overlap=exon"))

	// Different options → stale
	assert.False(t, rc.Valid(sources, "overlap=cds"))

	// Different size → stale
	refChanged := ref
	refChanged.Size = 9999
	assert.False(t, rc.Valid([]FileFingerprint{refChanged, query}, "overlap=exon"))

	// Different modtime → stale
	queryChanged := query
	queryChanged.ModTime = now.Add(time.Hour)
	assert.False(t, rc.Valid([]FileFingerprint{ref, queryChanged}, "overlap=exon"))

	// Fewer sources → stale
	assert.False(t, rc.Valid([]FileFingerprint{ref}, "overlap=exon"))
}

func TestRunCacheClear(t *testing.T) {
	rc := NewRunCache(t.TempDir())

	fp := FileFingerprint{Path: "a.bed", Size: 100, ModTime: time.Now()}
	require.NoError(t, rc.Write(testMap(t), []FileFingerprint{fp}, ""))
	assert.True(t, rc.Valid([]FileFingerprint{fp}, ""))

	rc.Clear()
	assert.False(t, rc.Valid([]FileFingerprint{fp}, ""))
}

func TestStatFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.bed")
	require.NoError(t, os.WriteFile(path, []byte("chr1\n"), 0644))

	fps, err := StatFiles([]string{path})
	require.NoError(t, err)
	require.Len(t, fps, 1)
	assert.Equal(t, int64(5), fps[0].Size)

	_, err = StatFiles([]string{path, filepath.Join(t.TempDir(), "missing.bed")})
	assert.Error(t, err)
}
