package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/packbed/internal/cluster"
	"github.com/inodb/packbed/internal/duckdb"
	"github.com/inodb/packbed/internal/ingest"
	"github.com/inodb/packbed/internal/output"
)

// packConfig is the resolved configuration of one pack run.
type packConfig struct {
	paths       []string
	roles       []string
	threads     int
	policy      cluster.Policy
	strategy    cluster.Strategy
	colorize    bool
	hashColors  bool
	palette     cluster.Palette
	seed        uint64
	splitStrand bool
	format      output.Format
	output      string
	subdirs     bool
	hints       []output.Hint
	cacheDir    string
}

func newPackCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Cluster BED12 transcripts into overlap components",
		Long: `Read one or more BED12 files, drop malformed lines, and group the transcripts
of every chromosome into overlap components. Defaults can be set with
"packbed config set pack.<flag> <value>" or PACKBED_PACK_<FLAG>.`,
		Example: `  packbed pack --bed ref.bed,query.bed.gz --mode ref,query > components.bed
  packbed pack --bed tx.bed --overlap cds --colorize --seed 7 -o colored.bed
  packbed pack --bed tx.bed --type comp --subdirs -o components/
  packbed pack --bed tx.bed --type bed --hint "chr1:0,2;chr2:1"
  packbed pack --bed tx.bed --type bin -o tx.bin --cache ~/.cache/packbed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolvePackConfig()
			if err != nil {
				return err
			}
			return runPack(cmd.Context(), cfg, g.logger, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringP("bed", "b", "", "Comma-separated BED12 input files (.bed, .bed12, optionally .gz)")
	f.StringP("mode", "m", "", "Comma-separated provenance roles (ref, query), one per input or one for all")
	f.IntP("threads", "t", runtime.NumCPU(), "Worker count")
	f.String("overlap", "exon", "Overlap granularity: boundary, exon or cds")
	f.String("strategy", "sweep", "Clustering strategy: sweep or incremental")
	f.BoolP("colorize", "c", false, "Rewrite the rgb column with one palette color per component")
	f.Bool("hash-colors", false, "Derive colors from component content instead of a seeded stream")
	f.String("palette", "", "Semicolon-separated rgb palette (default: built-in 10 colors)")
	f.Uint64("seed", 0, "Color seed (0 draws a random seed)")
	f.Bool("split-strand", false, "Partition by chromosome and strand")
	f.String("type", "bed", "Output type: bed, bin, comp, json or duckdb")
	f.StringP("output", "o", "", "Output file or directory (default: stdout for bed and json)")
	f.Bool("subdirs", false, "With --type comp, write each component into its own directory")
	f.String("hint", "", `Only write the named components, e.g. "chr1:0,2;chr2:1"`)
	f.String("cache", "", "Reuse results cached in this directory when inputs are unchanged")

	for _, name := range []string{
		"bed", "mode", "threads", "overlap", "strategy", "colorize", "hash-colors", "palette",
		"seed", "split-strand", "type", "output", "subdirs", "hint", "cache",
	} {
		_ = viper.BindPFlag("pack."+name, f.Lookup(name))
	}

	return cmd
}

// resolvePackConfig reads flags, config file and environment through viper
// and validates them. Every problem is reported before any input is read.
func resolvePackConfig() (*packConfig, error) {
	cfg := &packConfig{
		paths:       splitList(viper.GetString("pack.bed")),
		roles:       splitList(viper.GetString("pack.mode")),
		threads:     viper.GetInt("pack.threads"),
		colorize:    viper.GetBool("pack.colorize"),
		hashColors:  viper.GetBool("pack.hash-colors"),
		seed:        viper.GetUint64("pack.seed"),
		splitStrand: viper.GetBool("pack.split-strand"),
		output:      viper.GetString("pack.output"),
		subdirs:     viper.GetBool("pack.subdirs"),
		cacheDir:    viper.GetString("pack.cache"),
	}

	if len(cfg.paths) == 0 {
		return nil, usagef("--bed is required")
	}
	if cfg.threads <= 0 {
		return nil, usagef("--threads must be positive, got %d", cfg.threads)
	}

	var err error
	if cfg.policy, err = cluster.ParsePolicy(viper.GetString("pack.overlap")); err != nil {
		return nil, usageError{err}
	}
	if cfg.strategy, err = cluster.ParseStrategy(viper.GetString("pack.strategy")); err != nil {
		return nil, usageError{err}
	}
	if cfg.format, err = output.ParseFormat(viper.GetString("pack.type")); err != nil {
		return nil, usageError{err}
	}
	if p := viper.GetString("pack.palette"); p != "" {
		cfg.palette = cluster.Palette(strings.Split(p, ";"))
	}
	if h := viper.GetString("pack.hint"); h != "" {
		if cfg.hints, err = output.ParseHints(h); err != nil {
			return nil, usageError{err}
		}
	}
	if cfg.format == output.FormatBinary && cfg.hints != nil {
		return nil, usagef("--hint cannot be combined with --type bin")
	}

	for _, p := range cfg.paths {
		if err := ingest.ValidateSource(p); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// options renders everything that affects clustering results, for the run
// cache.
func (c *packConfig) options() string {
	return fmt.Sprintf("overlap=%s;strategy=%s;split_strand=%t;roles=%s;colorize=%t;hash_colors=%t;palette=%s;seed=%d",
		c.policy, c.strategy, c.splitStrand, strings.Join(c.roles, ","),
		c.colorize, c.hashColors, strings.Join(c.palette, ";"), c.seed)
}

func (c *packConfig) colorizer(logger *zap.Logger) cluster.Colorizer {
	switch {
	case !c.colorize:
		return nil
	case c.hashColors:
		return cluster.NewHashColorizer(c.palette)
	}
	if c.seed == 0 {
		c.seed = uint64(time.Now().UnixNano())
		logger.Debug("drew color seed", zap.Uint64("seed", c.seed))
	}
	return cluster.NewRandomColorizer(c.palette, c.seed)
}

func runPack(ctx context.Context, cfg *packConfig, logger *zap.Logger, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	m, err := clusterSources(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if err := writeResult(ctx, cfg, m, logger, stdout); err != nil {
		return err
	}
	logger.Info("done",
		zap.Int("keys", m.Len()),
		zap.Int("components", m.NumComponents()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// clusterSources loads and clusters the inputs, or reuses a valid run cache.
func clusterSources(ctx context.Context, cfg *packConfig, logger *zap.Logger) (*cluster.Map, error) {
	colorizer := cfg.colorizer(logger)

	var (
		rc      *duckdb.RunCache
		sources []duckdb.FileFingerprint
	)
	if cfg.cacheDir != "" {
		var err error
		if sources, err = duckdb.StatFiles(cfg.paths); err != nil {
			return nil, fmt.Errorf("fingerprint inputs: %w", err)
		}
		rc = duckdb.NewRunCache(cfg.cacheDir)
		if rc.Valid(sources, cfg.options()) {
			m, err := rc.Load()
			if err == nil {
				logger.Info("loaded cached components", zap.String("dir", cfg.cacheDir))
				return m, nil
			}
			logger.Warn("ignoring unreadable run cache", zap.Error(err))
		}
	}

	srcs, err := ingest.NewSources(cfg.paths, cfg.roles)
	if err != nil {
		return nil, usageError{err}
	}

	loader := ingest.NewLoader(ingest.Options{
		CDSOnly:     cfg.policy.CDSOnly(),
		SplitStrand: cfg.splitStrand,
		Workers:     cfg.threads,
	})
	loader.SetLogger(logger)
	part, stats, err := loader.Load(ctx, srcs)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded transcripts",
		zap.Int("sources", len(srcs)),
		zap.Int("transcripts", stats.Parsed),
		zap.Int("dropped", stats.Dropped),
		zap.Int("keys", len(part)))

	engine := cluster.NewEngine(cluster.Options{
		Policy:    cfg.policy,
		Strategy:  cfg.strategy,
		Workers:   cfg.threads,
		Colorizer: colorizer,
	})
	engine.SetLogger(logger)
	m, err := engine.Run(ctx, part)
	if err != nil {
		return nil, err
	}

	if rc != nil {
		if err := rc.Write(m, sources, cfg.options()); err != nil {
			logger.Warn("could not write run cache", zap.Error(err))
		}
	}
	return m, nil
}

func writeResult(ctx context.Context, cfg *packConfig, m *cluster.Map, logger *zap.Logger, stdout io.Writer) error {
	sel := output.All(m)
	if cfg.hints != nil {
		var warnings []string
		sel, warnings = output.Select(m, cfg.hints)
		for _, w := range warnings {
			logger.Warn("skipping hint", zap.String("reason", w))
		}
	}
	return writeSelection(ctx, cfg.format, cfg.output, cfg.subdirs, cfg.threads, m, sel, cfg.hints != nil, logger, stdout)
}

// writeSelection writes sel (or all of m when not selective) in format.
func writeSelection(ctx context.Context, format output.Format, path string, subdirs bool, threads int,
	m *cluster.Map, sel []output.Selected, selective bool, logger *zap.Logger, stdout io.Writer) error {
	if selective {
		m = selectionMap(sel)
	}

	switch format {
	case output.FormatSplit:
		dir := path
		if dir == "" {
			dir = "components"
		}
		sw := output.NewSplitWriter(dir, subdirs, threads)
		sw.SetLogger(logger)
		_, err := sw.Write(ctx, sel)
		return err

	case output.FormatBinary:
		if path == "" {
			path = "components.bin"
		}
		if err := output.WriteBinaryFile(path, m); err != nil {
			return err
		}
		logger.Info("wrote binary envelope", zap.String("path", path))
		return nil

	case output.FormatDuckDB:
		if path == "" {
			path = "packbed.duckdb"
		}
		store, err := duckdb.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.WriteComponents(m); err != nil {
			return fmt.Errorf("write components: %w", err)
		}
		logger.Info("wrote components table", zap.String("path", path))
		return nil
	}

	w, closeFn, err := openOutput(path, stdout)
	if err != nil {
		return err
	}
	defer closeFn()

	if format == output.FormatJSON {
		if err := output.WriteJSON(w, m, path != ""); err != nil {
			return err
		}
		return closeFn()
	}

	bw := output.NewBEDWriter(w)
	if err := bw.WriteSelected(sel); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return closeFn()
}

// selectionMap rebuilds a map holding only the selected components. Indices
// are renumbered within each key.
func selectionMap(sel []output.Selected) *cluster.Map {
	comps := make(map[string][]cluster.Component)
	for _, s := range sel {
		comps[s.Key] = append(comps[s.Key], s.Component)
	}
	return cluster.MapOf(comps)
}

// openOutput returns stdout for an empty path, otherwise a created file. The
// returned close function is safe to call more than once.
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	closed := false
	return f, func() error {
		if closed {
			return nil
		}
		closed = true
		return f.Close()
	}, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
