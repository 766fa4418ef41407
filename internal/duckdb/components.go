package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/packbed/internal/cluster"
	"github.com/inodb/packbed/internal/output"
)

// ComponentRow is one transcript of a stored component.
type ComponentRow struct {
	Key       string
	Component int
	Member    int
	Name      string
	Chrom     string
	Strand    string
	Start     int64
	End       int64
	CDSStart  int64
	CDSEnd    int64
	ExonCount int
	Color     string
	Role      string
	Line      string
}

// WriteComponents replaces the stored components with the contents of m using
// the Appender API.
func (s *Store) WriteComponents(m *cluster.Map) error {
	if err := s.ClearComponents(); err != nil {
		return fmt.Errorf("clear components: %w", err)
	}
	if m.Len() == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "components")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, key := range m.Keys() {
		comps, _ := m.Get(key)
		for ci, c := range comps {
			for mi, t := range c {
				rec := output.NewRecord(t)
				if err := appender.AppendRow(
					key, int32(ci), int32(mi),
					rec.Name, rec.Chrom, rec.Strand,
					int64(rec.Start), int64(rec.End), int64(rec.CDSStart), int64(rec.CDSEnd),
					int32(len(rec.Exons)), rec.Color, rec.Role, rec.Line,
				); err != nil {
					return fmt.Errorf("append component %s_%d: %w", key, ci, err)
				}
			}
		}
	}

	return appender.Flush()
}

// ClearComponents removes all stored components.
func (s *Store) ClearComponents() error {
	_, err := s.db.Exec("DELETE FROM components")
	return err
}

const componentColumns = `key, component, member, name, chrom, strand,
	tx_start, tx_end, cds_start, cds_end, exon_count, color, role, line`

// LookupName returns every stored row for a transcript name.
func (s *Store) LookupName(name string) ([]ComponentRow, error) {
	rows, err := s.db.Query(`SELECT `+componentColumns+`
		FROM components
		WHERE name=?
		ORDER BY key, component, member`, name)
	if err != nil {
		return nil, fmt.Errorf("query name: %w", err)
	}
	defer rows.Close()

	return scanComponentRows(rows)
}

// Members returns the transcripts of one component in order.
func (s *Store) Members(key string, component int) ([]ComponentRow, error) {
	rows, err := s.db.Query(`SELECT `+componentColumns+`
		FROM components
		WHERE key=? AND component=?
		ORDER BY member`, key, component)
	if err != nil {
		return nil, fmt.Errorf("query component: %w", err)
	}
	defer rows.Close()

	return scanComponentRows(rows)
}

// Summary holds table-wide counts.
type Summary struct {
	Keys        int
	Components  int
	Transcripts int
}

// Summarize counts keys, components and transcripts in the table.
func (s *Store) Summarize() (Summary, error) {
	var sum Summary
	err := s.db.QueryRow(`SELECT
		(SELECT COUNT(DISTINCT key) FROM components),
		(SELECT COUNT(*) FROM (SELECT DISTINCT key, component FROM components)),
		(SELECT COUNT(*) FROM components)`).Scan(&sum.Keys, &sum.Components, &sum.Transcripts)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize components: %w", err)
	}
	return sum, nil
}

// scanComponentRows scans rows into ComponentRow slices.
func scanComponentRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]ComponentRow, error) {
	var out []ComponentRow
	for rows.Next() {
		var r ComponentRow
		var component, member, exonCount int32
		if err := rows.Scan(
			&r.Key, &component, &member, &r.Name, &r.Chrom, &r.Strand,
			&r.Start, &r.End, &r.CDSStart, &r.CDSEnd, &exonCount,
			&r.Color, &r.Role, &r.Line,
		); err != nil {
			return nil, fmt.Errorf("scan component row: %w", err)
		}
		r.Component, r.Member, r.ExonCount = int(component), int(member), int(exonCount)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate component rows: %w", err)
	}
	return out, nil
}
