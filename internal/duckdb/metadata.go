package duckdb

import (
	"os"
	"strconv"
	"time"
)

// FileFingerprint holds stat-based identity for a source file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// StatFiles fingerprints every path in order.
func StatFiles(paths []string) ([]FileFingerprint, error) {
	fps := make([]FileFingerprint, len(paths))
	for i, p := range paths {
		fp, err := StatFile(p)
		if err != nil {
			return nil, err
		}
		fps[i] = fp
	}
	return fps, nil
}

// metaLines renders fingerprints as key=value lines, prefixed by position.
func metaLines(fps []FileFingerprint) []string {
	lines := []string{"source_count=" + strconv.Itoa(len(fps))}
	for i, fp := range fps {
		prefix := "source_" + strconv.Itoa(i) + "_"
		lines = append(lines,
			prefix+"path="+fp.Path,
			prefix+"size="+strconv.FormatInt(fp.Size, 10),
			prefix+"modtime="+fp.ModTime.UTC().Format(time.RFC3339Nano),
		)
	}
	return lines
}
