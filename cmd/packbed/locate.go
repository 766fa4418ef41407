package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inodb/packbed/internal/cluster"
	"github.com/inodb/packbed/internal/duckdb"
	"github.com/inodb/packbed/internal/output"
)

func newLocateCmd(g *globalOptions) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "locate <chrom:pos>...",
		Short: "Report the components covering genomic positions",
		Long: `Find the components of a binary envelope whose extent covers each position.
Positions are 0-based.`,
		Example: `  packbed locate -i components.bin chr1:1000 chr2:52000`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				return usagef("--input is required")
			}
			type query struct {
				chrom string
				pos   uint64
			}
			queries := make([]query, len(args))
			for i, a := range args {
				chrom, pos, err := parsePosition(a)
				if err != nil {
					return usageError{err}
				}
				queries[i] = query{chrom, pos}
			}

			m, err := output.ReadBinaryFile(input)
			if err != nil {
				return err
			}
			ix := cluster.NewIndex(m)

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "#position\tkey\tcomponent\tstart\tend\tsize\tmembers")
			for _, q := range queries {
				hits := ix.Locate(q.chrom, q.pos)
				if len(hits) == 0 {
					fmt.Fprintf(w, "%s:%d\t-\t-\t-\t-\t0\t-\n", q.chrom, q.pos)
					continue
				}
				for _, h := range hits {
					writeHit(w, fmt.Sprintf("%s:%d", q.chrom, q.pos), h)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Binary envelope written by 'pack --type bin'")
	return cmd
}

func writeHit(w io.Writer, pos string, h cluster.Hit) {
	fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
		pos, h.Key, h.Index, h.Extent.Start, h.Extent.End, len(h.Component),
		strings.Join(h.Component.Names(), ","))
}

// parsePosition parses "chrom:pos". The position may use ',' or '_' as
// thousands separators.
func parsePosition(s string) (string, uint64, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 {
		return "", 0, fmt.Errorf("invalid position %q (want chrom:pos)", s)
	}
	digits := strings.NewReplacer(",", "", "_", "").Replace(s[i+1:])
	pos, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid position %q: %w", s, err)
	}
	return s[:i], pos, nil
}

func newLookupCmd(g *globalOptions) *cobra.Command {
	var db string

	cmd := &cobra.Command{
		Use:     "lookup <name>...",
		Short:   "Find the components of transcripts in a DuckDB export",
		Long:    "Query a database written by 'packbed pack --type duckdb' for transcripts by name and list their component members.",
		Example: `  packbed lookup --db packbed.duckdb ENST00000311936.8`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if db == "" {
				return usagef("--db is required")
			}
			store, err := duckdb.Open(db)
			if err != nil {
				return err
			}
			defer store.Close()

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "#name\tkey\tcomponent\tmember\tchrom\tstart\tend\tstrand\tmembers")
			for _, name := range args {
				rows, err := store.LookupName(name)
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					fmt.Fprintf(w, "%s\t-\t-\t-\t-\t-\t-\t-\t-\n", name)
					continue
				}
				for _, r := range rows {
					members, err := store.Members(r.Key, r.Component)
					if err != nil {
						return err
					}
					names := make([]string, len(members))
					for i, m := range members {
						names[i] = m.Name
					}
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%d\t%d\t%s\t%s\n",
						name, r.Key, r.Component, r.Member, r.Chrom, r.Start, r.End, r.Strand,
						strings.Join(names, ","))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&db, "db", "", "DuckDB file written by 'pack --type duckdb'")
	return cmd
}
