package reconciler

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/canonn-science/firmament/internal/config"
	"github.com/canonn-science/firmament/internal/logger"
)

// storeTables are the tables the reconciler writes to. They must exist with
// their generated columns before a run starts; the reconciler never creates
// schema.
var storeTables = []string{"star_systems", "system_bodies"}

// Preflight verifies that every table a run touches exists in the store.
type Preflight struct {
	db      *sql.DB
	dbName  string
	reports []config.ReportTable
	logger  *logger.Logger
}

// NewPreflight creates a preflight checker for the configured store.
func NewPreflight(db *sql.DB, dbName string, reports []config.ReportTable, log *logger.Logger) *Preflight {
	return &Preflight{
		db:      db,
		dbName:  dbName,
		reports: reports,
		logger:  log,
	}
}

// Check queries information_schema for every required table and returns an
// error naming all that are missing.
func (p *Preflight) Check(ctx context.Context) error {
	required := make(map[string]bool, len(storeTables)+len(p.reports))
	for _, t := range storeTables {
		required[t] = false
	}
	for _, r := range p.reports {
		required[r.Table] = false
	}

	placeholders := make([]string, 0, len(required))
	args := make([]interface{}, 0, len(required)+1)
	args = append(args, p.dbName)
	for name := range required {
		placeholders = append(placeholders, "?")
		args = append(args, name)
	}

	query := fmt.Sprintf(
		"SELECT table_name FROM information_schema.tables WHERE table_schema = ? AND table_name IN (%s)",
		strings.Join(placeholders, ", "),
	)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query information_schema: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("failed to scan table name: %w", err)
		}
		required[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating table names: %w", err)
	}

	var missing []string
	for name, found := range required {
		if !found {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("required tables missing from database %q: %s",
			p.dbName, strings.Join(missing, ", "))
	}

	p.logger.Debugf("Preflight passed: %d required tables present", len(required))
	return nil
}
