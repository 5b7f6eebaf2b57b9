package reconciler

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonn-science/firmament/internal/config"
)

func candidateColumns() []string {
	return []string{"id64", "name", "body_count", "len_bodies"}
}

func TestCandidateFetcher_BuildQuery(t *testing.T) {
	codex := config.ReportTable{Table: "codexreport", IDColumn: "id64", NameColumn: "system"}
	organic := config.ReportTable{Table: "organic_scans", IDColumn: "SystemAddress", NameColumn: "system"}

	t.Run("missing mode single table", func(t *testing.T) {
		f := NewCandidateFetcher(nil, []config.ReportTable{codex}, ModeMissing, 200)
		query := f.buildQuery()

		assert.Contains(t, query, "FROM `codexreport` r")
		assert.Contains(t, query, "NOT EXISTS (SELECT 1 FROM star_systems ss WHERE ss.id64 = r.`id64`)")
		assert.Contains(t, query, "ORDER BY id64 ASC LIMIT ?")
		assert.NotContains(t, query, "UNION")
	})

	t.Run("incomplete mode joins star_systems", func(t *testing.T) {
		f := NewCandidateFetcher(nil, []config.ReportTable{codex}, ModeIncomplete, 200)
		query := f.buildQuery()

		assert.Contains(t, query, "JOIN star_systems ss ON ss.id64 = r.`id64`")
		assert.Contains(t, query, "IFNULL(ss.bodies_match, 0) != 1")
		assert.Contains(t, query, "IFNULL(ss.body_count, 0)")
	})

	t.Run("multiple tables are unioned", func(t *testing.T) {
		f := NewCandidateFetcher(nil, []config.ReportTable{codex, organic}, ModeMissing, 200)
		query := f.buildQuery()

		assert.Contains(t, query, "UNION")
		assert.Contains(t, query, "FROM `codexreport` r")
		assert.Contains(t, query, "FROM `organic_scans` r")
	})
}

func TestCandidateFetcher_FetchNextPage(t *testing.T) {
	codex := config.ReportTable{Table: "codexreport", IDColumn: "id64", NameColumn: "system"}
	organic := config.ReportTable{Table: "organic_scans", IDColumn: "SystemAddress", NameColumn: "system"}

	t.Run("missing mode page", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		f := NewCandidateFetcher(db, []config.ReportTable{codex}, ModeMissing, 2)

		rows := sqlmock.NewRows(candidateColumns()).
			AddRow(int64(100), "Merope", 0, nil).
			AddRow(int64(200), "Maia", 0, nil)
		mock.ExpectQuery(regexp.QuoteMeta(f.buildQuery())).
			WithArgs(int64(0), 2).
			WillReturnRows(rows)

		page, err := f.FetchNextPage(context.Background())
		require.NoError(t, err)
		require.Equal(t, 2, page.Len())

		cands := page.All()
		assert.Equal(t, int64(100), cands[0].ID64)
		assert.Equal(t, "Merope", cands[0].Name)
		assert.False(t, cands[0].LenBodies.Valid)
		assert.Equal(t, int64(200), page.Last())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("incomplete mode carries stored counts", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		f := NewCandidateFetcher(db, []config.ReportTable{codex}, ModeIncomplete, 10)

		rows := sqlmock.NewRows(candidateColumns()).
			AddRow(int64(300), "Electra", int64(12), int64(9))
		mock.ExpectQuery(regexp.QuoteMeta(f.buildQuery())).
			WithArgs(int64(0), 10).
			WillReturnRows(rows)

		page, err := f.FetchNextPage(context.Background())
		require.NoError(t, err)
		require.Equal(t, 1, page.Len())

		cand := page.All()[0]
		assert.Equal(t, int64(12), cand.BodyCount)
		require.True(t, cand.LenBodies.Valid)
		assert.Equal(t, int64(9), cand.LenBodies.Int64)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate id64 across tables collapses", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		f := NewCandidateFetcher(db, []config.ReportTable{codex, organic}, ModeMissing, 10)

		// Same system reported under different names; first name wins.
		rows := sqlmock.NewRows(candidateColumns()).
			AddRow(int64(100), "Merope", 0, nil).
			AddRow(int64(100), "MEROPE", 0, nil).
			AddRow(int64(200), "Maia", 0, nil)
		mock.ExpectQuery(regexp.QuoteMeta(f.buildQuery())).
			WithArgs(int64(0), int64(0), 10).
			WillReturnRows(rows)

		page, err := f.FetchNextPage(context.Background())
		require.NoError(t, err)
		require.Equal(t, 2, page.Len())
		assert.Equal(t, "Merope", page.All()[0].Name)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("checkpoint advances paging", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		f := NewCandidateFetcher(db, []config.ReportTable{codex}, ModeMissing, 2)
		f.UpdateCheckpoint(200)

		mock.ExpectQuery(regexp.QuoteMeta(f.buildQuery())).
			WithArgs(int64(200), 2).
			WillReturnRows(sqlmock.NewRows(candidateColumns()))

		page, err := f.FetchNextPage(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, page.Len())
		assert.Equal(t, int64(200), f.Checkpoint())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("id64 returned as bytes", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		f := NewCandidateFetcher(db, []config.ReportTable{codex}, ModeMissing, 5)

		rows := sqlmock.NewRows(candidateColumns()).
			AddRow([]byte("3238296097059"), "Merope", 0, nil)
		mock.ExpectQuery(regexp.QuoteMeta(f.buildQuery())).
			WithArgs(int64(0), 5).
			WillReturnRows(rows)

		page, err := f.FetchNextPage(context.Background())
		require.NoError(t, err)
		require.Equal(t, 1, page.Len())
		assert.Equal(t, int64(3238296097059), page.All()[0].ID64)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("count without paging", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		f := NewCandidateFetcher(db, []config.ReportTable{codex, organic}, ModeMissing, 5)

		mock.ExpectQuery(regexp.QuoteMeta(f.buildCountQuery())).
			WithArgs(int64(0), int64(0)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

		count, err := f.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(42), count)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		f := NewCandidateFetcher(db, []config.ReportTable{codex}, ModeMissing, 5)

		mock.ExpectQuery("SELECT DISTINCT").
			WillReturnError(fmt.Errorf("connection failed"))

		_, err = f.FetchNextPage(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to fetch missing candidates")
	})
}
