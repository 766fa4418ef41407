package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SplitWriter writes one BED file per component.
type SplitWriter struct {
	dir     string
	subdirs bool
	workers int
	logger  *zap.Logger
}

// NewSplitWriter creates a writer rooted at dir. With subdirs set, every
// component gets its own comp_<key>_<i> directory.
func NewSplitWriter(dir string, subdirs bool, workers int) *SplitWriter {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &SplitWriter{dir: dir, subdirs: subdirs, workers: workers, logger: zap.NewNop()}
}

// SetLogger sets the logger.
func (sw *SplitWriter) SetLogger(logger *zap.Logger) {
	sw.logger = logger
}

// ComponentName returns the file stem for a component, <key>_<index>.
// Strand keys become chr1_plus_0 and chr1_minus_0.
func ComponentName(key string, index int) string {
	name := key
	if chrom, strand, ok := strings.Cut(key, ":"); ok {
		switch strand {
		case "+":
			strand = "plus"
		case "-":
			strand = "minus"
		}
		name = chrom + "_" + strand
	}
	return strings.ReplaceAll(name, "/", "_") + "_" + strconv.Itoa(index)
}

// Path returns where the component is written.
func (sw *SplitWriter) Path(key string, index int) string {
	name := ComponentName(key, index)
	if sw.subdirs {
		return filepath.Join(sw.dir, "comp_"+name, name+".bed")
	}
	return filepath.Join(sw.dir, name+".bed")
}

// Write writes every selected component in parallel and returns the number
// of files written. The first failure aborts the run.
func (sw *SplitWriter) Write(ctx context.Context, sel []Selected) (int, error) {
	if err := os.MkdirAll(sw.dir, 0755); err != nil {
		return 0, fmt.Errorf("create output directory: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sw.workers)
	for _, s := range sel {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return sw.writeOne(s)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	sw.logger.Info("wrote component files", zap.String("dir", sw.dir), zap.Int("files", len(sel)))
	return len(sel), nil
}

func (sw *SplitWriter) writeOne(s Selected) error {
	path := sw.Path(s.Key, s.Index)
	if sw.subdirs {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	bw := NewBEDWriter(f)
	if err := bw.WriteComponent(s.Component); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
