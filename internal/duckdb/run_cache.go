package duckdb

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/inodb/packbed/internal/cluster"
	"github.com/inodb/packbed/internal/output"
)

// RunCache keeps the result of one clustering run on disk:
//
//	{dir}/components.bin       (binary envelope)
//	{dir}/components.bin.meta  (source fingerprints and run options)
//
// An entry is reused only when every source and the options match.
type RunCache struct {
	dir string
}

// NewRunCache creates a run cache for the given directory.
func NewRunCache(dir string) *RunCache {
	return &RunCache{dir: dir}
}

func (rc *RunCache) binPath() string {
	return filepath.Join(rc.dir, "components.bin")
}

func (rc *RunCache) metaPath() string {
	return filepath.Join(rc.dir, "components.bin.meta")
}

// Valid checks whether the cached run matches the current sources and options.
func (rc *RunCache) Valid(sources []FileFingerprint, options string) bool {
	meta, err := rc.readMeta()
	if err != nil {
		return false
	}

	if meta["binary_version"] != strconv.Itoa(int(output.BinaryVersion)) || meta["options"] != options {
		return false
	}
	for _, line := range metaLines(sources) {
		k, v, _ := strings.Cut(line, "=")
		if meta[k] != v {
			return false
		}
	}

	// Verify binary file exists
	if _, err := os.Stat(rc.binPath()); err != nil {
		return false
	}
	return true
}

// Load reads the cached components.
func (rc *RunCache) Load() (*cluster.Map, error) {
	m, err := output.ReadBinaryFile(rc.binPath())
	if err != nil {
		return nil, fmt.Errorf("load run cache: %w", err)
	}
	return m, nil
}

// Write stores m together with the fingerprints it was computed from.
func (rc *RunCache) Write(m *cluster.Map, sources []FileFingerprint, options string) error {
	if err := os.MkdirAll(rc.dir, 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	if err := output.WriteBinaryFile(rc.binPath(), m); err != nil {
		os.Remove(rc.binPath())
		return fmt.Errorf("write run cache: %w", err)
	}

	lines := []string{
		"binary_version=" + strconv.Itoa(int(output.BinaryVersion)),
		"options=" + options,
	}
	lines = append(lines, metaLines(sources)...)
	lines = append(lines, "created_at="+time.Now().UTC().Format(time.RFC3339), "")
	return os.WriteFile(rc.metaPath(), []byte(strings.Join(lines, "\n")), 0644)
}

// Clear removes the cached files.
func (rc *RunCache) Clear() {
	os.Remove(rc.binPath())
	os.Remove(rc.metaPath())
}

func (rc *RunCache) readMeta() (map[string]string, error) {
	data, err := os.ReadFile(rc.metaPath())
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}
