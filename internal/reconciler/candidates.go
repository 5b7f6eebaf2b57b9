package reconciler

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/canonn-science/firmament/internal/config"
	"github.com/canonn-science/firmament/internal/sqlutil"
	"github.com/canonn-science/firmament/internal/types"
)

// CandidateFetcher pages through reconciliation candidates across all
// configured report tables. It supports checkpoint-based resumption and
// respects the configured fetch size.
//
// Candidates are gathered with a single UNION query over the report tables
// so that one page is globally ordered by id64; the checkpoint predicate is
// applied inside every subquery.
type CandidateFetcher struct {
	db         *sql.DB
	reports    []config.ReportTable
	mode       Mode
	fetchSize  int
	checkpoint int64 // last processed id64, 0 to start from the beginning
}

// NewCandidateFetcher creates a CandidateFetcher for the given mode.
//
// Parameters:
//   - db: Store database connection
//   - reports: Report tables to scan for system references
//   - mode: ModeMissing or ModeIncomplete
//   - fetchSize: Number of candidates to fetch per page
func NewCandidateFetcher(db *sql.DB, reports []config.ReportTable, mode Mode, fetchSize int) *CandidateFetcher {
	return &CandidateFetcher{
		db:        db,
		reports:   reports,
		mode:      mode,
		fetchSize: fetchSize,
	}
}

// buildSubqueries assembles one candidate subquery per report table.
//
// Missing mode selects distinct system references that have no row in
// star_systems. Incomplete mode selects references whose stored system has
// bodies_match != 1 (NULL counts as not matching), carrying the stored
// body_count and len_bodies so the fetch phase can compare them.
//
// Every subquery carries an `id64 > ?` predicate, so assembled queries take
// one checkpoint argument per report table.
func (f *CandidateFetcher) buildSubqueries() []string {
	subqueries := make([]string, 0, len(f.reports))

	for _, report := range f.reports {
		table := sqlutil.QuoteIdentifier(report.Table)
		idCol := sqlutil.QuoteIdentifier(report.IDColumn)
		nameCol := sqlutil.QuoteIdentifier(report.NameColumn)

		var sub string
		switch f.mode {
		case ModeIncomplete:
			sub = fmt.Sprintf(
				"SELECT DISTINCT r.%s AS id64, r.%s AS name, IFNULL(ss.body_count, 0) AS body_count, ss.len_bodies AS len_bodies "+
					"FROM %s r JOIN star_systems ss ON ss.id64 = r.%s "+
					"WHERE IFNULL(ss.bodies_match, 0) != 1 AND r.%s > ?",
				idCol, nameCol, table, idCol, idCol,
			)
		default:
			sub = fmt.Sprintf(
				"SELECT DISTINCT r.%s AS id64, r.%s AS name, 0 AS body_count, NULL AS len_bodies "+
					"FROM %s r "+
					"WHERE NOT EXISTS (SELECT 1 FROM star_systems ss WHERE ss.id64 = r.%s) AND r.%s > ?",
				idCol, nameCol, table, idCol, idCol,
			)
		}

		subqueries = append(subqueries, "("+sub+")")
	}

	return subqueries
}

// buildQuery assembles the paged UNION candidate query. It takes one
// checkpoint argument per report table followed by the LIMIT.
func (f *CandidateFetcher) buildQuery() string {
	return strings.Join(f.buildSubqueries(), " UNION ") + " ORDER BY id64 ASC LIMIT ?"
}

// buildCountQuery assembles the candidate count query. It takes one
// checkpoint argument per report table.
func (f *CandidateFetcher) buildCountQuery() string {
	return "SELECT COUNT(DISTINCT id64) FROM (" +
		strings.Join(f.buildSubqueries(), " UNION ALL ") + ") candidates"
}

// Count returns the number of distinct candidates past the checkpoint
// without fetching them. Used by status reporting.
func (f *CandidateFetcher) Count(ctx context.Context) (int64, error) {
	args := make([]interface{}, 0, len(f.reports))
	for range f.reports {
		args = append(args, f.checkpoint)
	}

	var count int64
	if err := f.db.QueryRowContext(ctx, f.buildCountQuery(), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s candidates: %w", f.mode, err)
	}
	return count, nil
}

// FetchNextPage retrieves the next page of candidates past the checkpoint.
//
// The page is ordered by id64 ascending, so resumption only needs the last
// id64 of the previous page. Duplicate references to the same system across
// report tables collapse into a single candidate; the first name seen wins.
//
// Returns an empty set when no candidates remain.
func (f *CandidateFetcher) FetchNextPage(ctx context.Context) (*types.CandidateSet, error) {
	query := f.buildQuery()

	args := make([]interface{}, 0, len(f.reports)+1)
	for range f.reports {
		args = append(args, f.checkpoint)
	}
	args = append(args, f.fetchSize)

	rows, err := f.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s candidates: %w", f.mode, err)
	}
	defer rows.Close()

	set := types.NewCandidateSet()
	for rows.Next() {
		var (
			rawID     interface{}
			name      sql.NullString
			bodyCount int64
			lenBodies sql.NullInt64
		)
		if err := rows.Scan(&rawID, &name, &bodyCount, &lenBodies); err != nil {
			return nil, fmt.Errorf("failed to scan %s candidate: %w", f.mode, err)
		}

		set.Add(&types.Candidate{
			ID64:      types.ToID64(rawID),
			Name:      name.String,
			BodyCount: bodyCount,
			LenBodies: lenBodies,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s candidates: %w", f.mode, err)
	}

	return set, nil
}

// UpdateCheckpoint records the last processed id64.
// Call this after a page has been fully processed to enable resumption.
func (f *CandidateFetcher) UpdateCheckpoint(lastID int64) {
	f.checkpoint = lastID
}

// Checkpoint returns the current checkpoint value.
func (f *CandidateFetcher) Checkpoint() int64 {
	return f.checkpoint
}
