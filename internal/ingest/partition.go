package ingest

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"slices"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/packbed/internal/bed"
)

// Partition groups transcripts by partition key.
type Partition map[string][]*bed.Transcript

// Key returns the partition key of t: the chromosome, or chromosome and strand
// joined by ':' when splitStrand is set.
func Key(t *bed.Transcript, splitStrand bool) string {
	if splitStrand {
		return t.Chrom + ":" + t.Strand.String()
	}
	return t.Chrom
}

// Keys returns the partition keys in sorted order.
func (p Partition) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of transcripts across all keys.
func (p Partition) Len() int {
	n := 0
	for _, ts := range p {
		n += len(ts)
	}
	return n
}

// Merge concatenates partitions key by key, in argument order.
func Merge(parts ...Partition) Partition {
	merged := make(Partition)
	for _, p := range parts {
		for k, ts := range p {
			merged[k] = append(merged[k], ts...)
		}
	}
	return merged
}

// SortByBounds orders every key ascending by (Start, End). The sort is stable,
// so equal bounds keep their ingestion order. This is the scan order the
// clustering engine depends on.
func (p Partition) SortByBounds() {
	for _, ts := range p {
		slices.SortStableFunc(ts, func(a, b *bed.Transcript) int {
			if a.Start != b.Start {
				if a.Start < b.Start {
					return -1
				}
				return 1
			}
			if a.End != b.End {
				if a.End < b.End {
					return -1
				}
				return 1
			}
			return 0
		})
	}
}

// Options configures a Loader.
type Options struct {
	CDSOnly     bool // clip exons to the CDS while parsing
	SplitStrand bool // partition by chromosome and strand
	Workers     int  // 0 means runtime.NumCPU()
}

// Loader reads and partitions BED12 sources.
type Loader struct {
	opts   Options
	logger *zap.Logger
}

// NewLoader creates a loader with the given options.
func NewLoader(opts Options) *Loader {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Loader{opts: opts, logger: zap.NewNop()}
}

// SetLogger sets the logger for dropped-line and summary messages.
func (l *Loader) SetLogger(logger *zap.Logger) {
	l.logger = logger
}

// Load reads every source concurrently and returns the merged, sorted
// partition. Malformed lines are dropped and counted; an unreadable source
// aborts the whole load.
func (l *Loader) Load(ctx context.Context, sources []Source) (Partition, *Stats, error) {
	if len(sources) == 0 {
		return nil, nil, ErrNoSources
	}

	parts := make([]Partition, len(sources))
	perSource := make([]*Stats, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Workers)
	for i, src := range sources {
		g.Go(func() error {
			f, err := openSource(src.Path)
			if err != nil {
				return fmt.Errorf("read %s: %w", src.Path, err)
			}
			defer f.Close()

			p, st, err := l.fold(gctx, f, src)
			if err != nil {
				return fmt.Errorf("read %s: %w", src.Path, err)
			}
			parts[i], perSource[i] = p, st

			l.logger.Debug("source loaded",
				zap.String("path", src.Path),
				zap.Stringer("role", src.Role),
				zap.Int("transcripts", st.Parsed),
				zap.Int("dropped", st.Dropped))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	merged := Merge(parts...)
	merged.SortByBounds()

	stats := newStats()
	for _, st := range perSource {
		stats.Merge(st)
	}
	if stats.Dropped > 0 {
		fields := []zap.Field{zap.Int("dropped", stats.Dropped)}
		for _, reason := range stats.ReasonNames() {
			fields = append(fields, zap.Int(reason, stats.Reasons[reason]))
		}
		l.logger.Info("dropped malformed lines", fields...)
	}
	return merged, stats, nil
}

// LoadReader partitions the records of a single reader. It is the in-memory
// counterpart of Load, used by callers that already hold the data.
func (l *Loader) LoadReader(ctx context.Context, r io.Reader, role bed.Role) (Partition, *Stats, error) {
	p, st, err := l.fold(ctx, r, Source{Role: role})
	if err != nil {
		return nil, nil, err
	}
	p.SortByBounds()
	return p, st, nil
}

// fold normalizes every line of r on a worker pool and groups the results by
// key in line order.
func (l *Loader) fold(ctx context.Context, r io.Reader, src Source) (Partition, *Stats, error) {
	stats := newStats()
	batches := make(chan lineBatch, l.opts.Workers)

	var scanErr error
	go func() {
		defer close(batches)
		scanner := newLineScanner(r)
		b := lineBatch{}
		records := 0
		send := func() bool {
			if len(b.Lines) == 0 {
				return true
			}
			select {
			case batches <- b:
				b = lineBatch{Seq: b.Seq + 1, Record: records}
				return true
			case <-ctx.Done():
				scanErr = ctx.Err()
				return false
			}
		}
		for scanner.Scan() {
			line := scanner.Text()
			stats.Lines++
			if isComment(line) {
				stats.Comments++
				continue
			}
			b.Lines = append(b.Lines, line)
			records++
			if len(b.Lines) == batchSize && !send() {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			scanErr = fmt.Errorf("scan bed: %w", err)
			return
		}
		send()
	}()

	part := make(Partition)
	err := collectBatches(normalizeBatches(batches, l.opts.Workers, l.opts.CDSOnly), func(r parsed) error {
		if r.Err != nil {
			stats.drop(r.Err)
			l.logger.Debug("dropping malformed line",
				zap.String("path", src.Path),
				zap.Int("record", r.Record+1),
				zap.Error(r.Err))
			return nil
		}
		t := r.Transcript
		t.Role = src.Role
		key := Key(t, l.opts.SplitStrand)
		part[key] = append(part[key], t)
		stats.Parsed++
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if scanErr != nil {
		return nil, nil, scanErr
	}
	return part, stats, nil
}

// isComment reports whether line is a header rather than a record.
func isComment(line string) bool {
	return strings.HasPrefix(line, "#") ||
		strings.HasPrefix(line, "track ") || line == "track" ||
		strings.HasPrefix(line, "browser ")
}
