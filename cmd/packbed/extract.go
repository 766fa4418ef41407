package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/packbed/internal/output"
)

func newExtractCmd(g *globalOptions) *cobra.Command {
	var (
		input   string
		hint    string
		typ     string
		out     string
		subdirs bool
		threads int
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Write components from a binary envelope",
		Long:  "Read components saved with 'packbed pack --type bin' and write all of them, or the ones named by --hint.",
		Example: `  packbed extract -i components.bin --hint "chr1:0,2" > picked.bed
  packbed extract -i components.bin --type comp --subdirs -o components/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				return usagef("--input is required")
			}
			format, err := output.ParseFormat(typ)
			if err != nil {
				return usageError{err}
			}
			if format == output.FormatBinary {
				return usagef("extract cannot write --type bin")
			}
			var hints []output.Hint
			if hint != "" {
				if hints, err = output.ParseHints(hint); err != nil {
					return usageError{err}
				}
			}

			m, err := output.ReadBinaryFile(input)
			if err != nil {
				return err
			}
			g.logger.Info("read components", zap.String("path", input),
				zap.Int("keys", m.Len()), zap.Int("components", m.NumComponents()))

			sel := output.All(m)
			if hints != nil {
				var warnings []string
				sel, warnings = output.Select(m, hints)
				for _, w := range warnings {
					g.logger.Warn("skipping hint", zap.String("reason", w))
				}
				if len(sel) == 0 {
					return fmt.Errorf("no component matched %q", hint)
				}
			}
			return writeSelection(cmd.Context(), format, out, subdirs, threads, m, sel, hints != nil, g.logger, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Binary envelope written by 'pack --type bin'")
	cmd.Flags().StringVar(&hint, "hint", "", `Components to write, e.g. "chr1:0,2;chr2:1"`)
	cmd.Flags().StringVar(&typ, "type", "bed", "Output type: bed, comp, json or duckdb")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file or directory (default: stdout for bed and json)")
	cmd.Flags().BoolVar(&subdirs, "subdirs", false, "With --type comp, write each component into its own directory")
	cmd.Flags().IntVarP(&threads, "threads", "t", runtime.NumCPU(), "Worker count for --type comp")

	return cmd
}
