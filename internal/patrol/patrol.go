// Package patrol generates the missing-systems patrol report: a JSON file
// listing systems that still need an in-game survey because the dump API has
// nothing for them.
package patrol

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/canonn-science/firmament/internal/config"
	"github.com/canonn-science/firmament/internal/logger"
	"github.com/canonn-science/firmament/internal/sqlutil"
)

// instructions is the fixed survey text attached to every patrol entry.
const instructions = "There is no record of bodies in this system on Spansh. Please FSS all the bodies in the system."

// Entry is one patrol target. id64 and the coordinates are serialized as
// strings so downstream consumers never lose precision on large addresses.
type Entry struct {
	ID64         string `json:"id64"`
	System       string `json:"system"`
	X            string `json:"x"`
	Y            string `json:"y"`
	Z            string `json:"z"`
	Instructions string `json:"instructions"`
	URL          string `json:"url"`
}

// Generator builds the patrol from the store.
type Generator struct {
	db      *sql.DB
	reports []config.ReportTable
	cfg     config.PatrolConfig
	dumpURL string
	logger  *logger.Logger
}

// NewGenerator creates a patrol generator.
func NewGenerator(db *sql.DB, reports []config.ReportTable, cfg config.PatrolConfig, dumpURL string, log *logger.Logger) *Generator {
	return &Generator{
		db:      db,
		reports: reports,
		cfg:     cfg,
		dumpURL: dumpURL,
		logger:  log,
	}
}

// buildQuery assembles the patrol UNION.
//
// Two candidate populations are combined:
//   - report rows older than the minimum age whose system is absent from
//     star_systems (fresh reports are excluded: the sync run may still
//     resolve them)
//   - stored systems that have no body rows at all
//
// The age threshold is the single bound parameter, repeated once per report
// table.
func (g *Generator) buildQuery() string {
	subqueries := make([]string, 0, len(g.reports)+1)

	for _, report := range g.reports {
		table := sqlutil.QuoteIdentifier(report.Table)
		idCol := sqlutil.QuoteIdentifier(report.IDColumn)
		nameCol := sqlutil.QuoteIdentifier(report.NameColumn)

		subqueries = append(subqueries, fmt.Sprintf(
			"(SELECT DISTINCT CAST(r.%s AS CHAR) AS id64, r.%s AS name, "+
				"CAST(r.x AS CHAR) AS x, CAST(r.y AS CHAR) AS y, CAST(r.z AS CHAR) AS z "+
				"FROM %s r "+
				"WHERE NOT EXISTS (SELECT 1 FROM star_systems ss WHERE ss.id64 = r.%s) "+
				"AND r.reported_at <= NOW() - INTERVAL ? HOUR)",
			idCol, nameCol, table, idCol,
		))
	}

	subqueries = append(subqueries,
		"(SELECT DISTINCT CAST(ss.id64 AS CHAR) AS id64, ss.name AS name, "+
			"CAST(ss.x AS CHAR) AS x, CAST(ss.y AS CHAR) AS y, CAST(ss.z AS CHAR) AS z "+
			"FROM star_systems ss "+
			"WHERE NOT EXISTS (SELECT 1 FROM system_bodies sb WHERE sb.system_address = ss.id64))",
	)

	return strings.Join(subqueries, " UNION ") + " ORDER BY id64 ASC"
}

// Generate queries the store and returns the patrol entries.
func (g *Generator) Generate(ctx context.Context) ([]Entry, error) {
	query := g.buildQuery()

	args := make([]interface{}, 0, len(g.reports))
	for range g.reports {
		args = append(args, g.cfg.MinReportAgeH)
	}

	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query patrol targets: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var x, y, z sql.NullString
		if err := rows.Scan(&e.ID64, &e.System, &x, &y, &z); err != nil {
			return nil, fmt.Errorf("failed to scan patrol target: %w", err)
		}
		e.X = x.String
		e.Y = y.String
		e.Z = z.String
		e.Instructions = instructions
		e.URL = fmt.Sprintf("%s/%s", g.dumpURL, e.ID64)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patrol targets: %w", err)
	}

	g.logger.Infof("Patrol generated with %d targets", len(entries))
	return entries, nil
}

// WriteFile serializes the patrol to the configured output path. An empty
// patrol still writes a file so consumers can distinguish "nothing to do"
// from "never ran".
func (g *Generator) WriteFile(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal patrol: %w", err)
	}

	if err := os.WriteFile(g.cfg.OutputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write patrol file %s: %w", g.cfg.OutputPath, err)
	}

	g.logger.Infof("Patrol written to %s (%d targets)", g.cfg.OutputPath, len(entries))
	return nil
}
