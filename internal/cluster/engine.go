package cluster

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/packbed/internal/bed"
)

// ErrEmptyPartition is returned when an empty transcript list reaches the
// engine. Ingestion never produces one.
var ErrEmptyPartition = errors.New("empty transcript list")

// Component is one overlap component. Members are in scan order.
type Component []*bed.Transcript

// Names returns the member names in order.
func (c Component) Names() []string {
	out := make([]string, len(c))
	for i, t := range c {
		out[i] = t.Name
	}
	return out
}

// Extent returns the smallest window covering all member bounds.
func (c Component) Extent() bed.Interval {
	if len(c) == 0 {
		return bed.Interval{}
	}
	ext := c[0].Bounds()
	for _, t := range c[1:] {
		ext.Start = min(ext.Start, t.Start)
		ext.End = max(ext.End, t.End)
	}
	return ext
}

// Strategy selects the clustering algorithm.
type Strategy uint8

const (
	// Sweep unions owners of overlapping intervals in a disjoint-set.
	Sweep Strategy = iota
	// Incremental grows one group at a time with a backup queue.
	Incremental
)

func (s Strategy) String() string {
	switch s {
	case Sweep:
		return "sweep"
	case Incremental:
		return "incremental"
	}
	return fmt.Sprintf("Strategy(%d)", uint8(s))
}

// ParseStrategy converts a strategy name to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sweep", "unionfind", "union-find", "":
		return Sweep, nil
	case "incremental":
		return Incremental, nil
	}
	return Sweep, fmt.Errorf("unknown strategy %q (want sweep or incremental)", s)
}

// Options configures an Engine.
type Options struct {
	Policy    Policy
	Strategy  Strategy
	Workers   int       // 0 means runtime.NumCPU()
	Colorizer Colorizer // nil leaves colors untouched
}

// Engine clusters partitioned transcripts.
type Engine struct {
	opts   Options
	logger *zap.Logger
}

// NewEngine creates an engine with the given options.
func NewEngine(opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Engine{opts: opts, logger: zap.NewNop()}
}

// SetLogger sets the logger for per-key progress messages.
func (e *Engine) SetLogger(logger *zap.Logger) {
	e.logger = logger
}

// Policy returns the configured overlap policy.
func (e *Engine) Policy() Policy {
	return e.opts.Policy
}

// Run clusters every key of part in parallel. Each key's list must already be
// in scan order. The context only stops scheduling of further keys.
func (e *Engine) Run(ctx context.Context, part map[string][]*bed.Transcript) (*Map, error) {
	result := NewMap()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for key, ts := range part {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			comps, err := e.ClusterKey(key, ts)
			if err != nil {
				return fmt.Errorf("cluster %s: %w", key, err)
			}
			e.logger.Debug("key clustered",
				zap.String("key", key),
				zap.Int("transcripts", len(ts)),
				zap.Int("components", len(comps)))
			return result.Insert(key, comps)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Info("clustering complete",
		zap.Stringer("policy", e.opts.Policy),
		zap.Stringer("strategy", e.opts.Strategy),
		zap.Int("keys", result.Len()),
		zap.Int("components", result.NumComponents()))
	return result, nil
}

// ClusterKey partitions the scan-ordered transcripts of one key into
// components and applies the colorizer.
func (e *Engine) ClusterKey(key string, ts []*bed.Transcript) ([]Component, error) {
	if len(ts) == 0 {
		return nil, ErrEmptyPartition
	}

	var groups [][]int
	switch e.opts.Strategy {
	case Incremental:
		groups = incrementalComponents(ts, e.opts.Policy)
	default:
		groups = sweepComponents(ts, e.opts.Policy)
	}

	comps := make([]Component, len(groups))
	for gi, members := range groups {
		c := make(Component, len(members))
		for mi, idx := range members {
			c[mi] = ts[idx]
		}
		if e.opts.Colorizer != nil {
			color := e.opts.Colorizer.Color(key, gi, c)
			for mi, t := range c {
				c[mi] = t.WithColor(color)
			}
		}
		comps[gi] = c
	}
	return comps, nil
}
