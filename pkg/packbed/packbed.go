// Package packbed clusters BED12 transcripts into overlap components and
// returns them as plain values, for embedding in other programs.
package packbed

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/inodb/packbed/internal/bed"
	"github.com/inodb/packbed/internal/cluster"
	"github.com/inodb/packbed/internal/ingest"
	"github.com/inodb/packbed/internal/output"
)

// Record is one transcript in genomic coordinates.
type Record = output.Record

// Components maps partition key to components, each a list of records.
type Components = map[string][][]Record

// Options controls a Pack call. The zero value clusters by exon overlap
// without colors, using every CPU.
type Options struct {
	Roles       []string // per-path provenance roles, or one for all
	Overlap     string   // boundary, exon or cds
	Strategy    string   // sweep or incremental
	Colorize    bool
	Seed        uint64 // color seed
	SplitStrand bool   // partition by chromosome and strand
	Threads     int
	Logger      *zap.Logger
}

func (o Options) engine() (*cluster.Engine, cluster.Policy, error) {
	policy, err := cluster.ParsePolicy(o.Overlap)
	if err != nil {
		return nil, 0, err
	}
	strategy, err := cluster.ParseStrategy(o.Strategy)
	if err != nil {
		return nil, 0, err
	}
	opts := cluster.Options{Policy: policy, Strategy: strategy, Workers: o.Threads}
	if o.Colorize {
		opts.Colorizer = cluster.NewRandomColorizer(cluster.DefaultPalette, o.Seed)
	}
	e := cluster.NewEngine(opts)
	if o.Logger != nil {
		e.SetLogger(o.Logger)
	}
	return e, policy, nil
}

func (o Options) loader(policy cluster.Policy) *ingest.Loader {
	l := ingest.NewLoader(ingest.Options{
		CDSOnly:     policy.CDSOnly(),
		SplitStrand: o.SplitStrand,
		Workers:     o.Threads,
	})
	if o.Logger != nil {
		l.SetLogger(o.Logger)
	}
	return l
}

// Pack reads the BED12 files at paths and returns their overlap components.
// Malformed lines are dropped; a missing or unreadable file is an error.
func Pack(ctx context.Context, paths []string, opts Options) (Components, error) {
	sources, err := ingest.NewSources(paths, opts.Roles)
	if err != nil {
		return nil, err
	}
	for _, src := range sources {
		if err := ingest.ValidateSource(src.Path); err != nil {
			return nil, err
		}
	}

	e, policy, err := opts.engine()
	if err != nil {
		return nil, err
	}
	part, _, err := opts.loader(policy).Load(ctx, sources)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}
	return run(ctx, e, part)
}

// PackReader clusters the BED12 records read from r. Roles in opts are
// ignored except for a single role, which is applied to every record.
func PackReader(ctx context.Context, r io.Reader, opts Options) (Components, error) {
	e, policy, err := opts.engine()
	if err != nil {
		return nil, err
	}
	role := bed.RoleNone
	if len(opts.Roles) == 1 {
		if role, err = bed.ParseRole(opts.Roles[0]); err != nil {
			return nil, err
		}
	}
	part, _, err := opts.loader(policy).LoadReader(ctx, r, role)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	return run(ctx, e, part)
}

func run(ctx context.Context, e *cluster.Engine, part ingest.Partition) (Components, error) {
	if len(part) == 0 {
		return Components{}, nil
	}
	m, err := e.Run(ctx, part)
	if err != nil {
		return nil, fmt.Errorf("cluster transcripts: %w", err)
	}
	return output.Records(m), nil
}
