package patrol

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonn-science/firmament/internal/config"
	"github.com/canonn-science/firmament/internal/logger"
)

const testDumpURL = "https://spansh.co.uk/api/dump"

func testReports() []config.ReportTable {
	return []config.ReportTable{
		{Table: "codexreport", IDColumn: "id64", NameColumn: "system"},
		{Table: "organic_scans", IDColumn: "SystemAddress", NameColumn: "system"},
	}
}

func patrolColumns() []string {
	return []string{"id64", "name", "x", "y", "z"}
}

func TestGenerator_BuildQuery(t *testing.T) {
	g := NewGenerator(nil, testReports(), config.PatrolConfig{MinReportAgeH: 24}, testDumpURL, logger.NewDefault())
	query := g.buildQuery()

	assert.Contains(t, query, "FROM `codexreport` r")
	assert.Contains(t, query, "FROM `organic_scans` r")
	assert.Contains(t, query, "r.reported_at <= NOW() - INTERVAL ? HOUR")
	assert.Contains(t, query, "NOT EXISTS (SELECT 1 FROM system_bodies sb WHERE sb.system_address = ss.id64)")
	assert.Contains(t, query, "ORDER BY id64 ASC")
}

func TestGenerator_Generate(t *testing.T) {
	log := logger.NewDefault()
	cfg := config.PatrolConfig{OutputPath: "patrol.json", MinReportAgeH: 24}

	t.Run("entries carry instructions and dump URL", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		g := NewGenerator(db, testReports(), cfg, testDumpURL, log)

		rows := sqlmock.NewRows(patrolColumns()).
			AddRow("3238296097059", "Merope", "-78.59375", "-149.625", "-340.53125").
			AddRow("9470906912642", "Oevasy SG-Y d0", "-1502.15625", "-2.59375", "65630.15625")
		mock.ExpectQuery(regexp.QuoteMeta(g.buildQuery())).
			WithArgs(24, 24).
			WillReturnRows(rows)

		entries, err := g.Generate(context.Background())
		require.NoError(t, err)
		require.Len(t, entries, 2)

		assert.Equal(t, "3238296097059", entries[0].ID64)
		assert.Equal(t, "Merope", entries[0].System)
		assert.Equal(t, "-78.59375", entries[0].X)
		assert.Equal(t, instructions, entries[0].Instructions)
		assert.Equal(t, testDumpURL+"/3238296097059", entries[0].URL)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("null coordinates become empty strings", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		g := NewGenerator(db, testReports(), cfg, testDumpURL, log)

		rows := sqlmock.NewRows(patrolColumns()).
			AddRow("100", "Nowhere", nil, nil, nil)
		mock.ExpectQuery(regexp.QuoteMeta(g.buildQuery())).
			WithArgs(24, 24).
			WillReturnRows(rows)

		entries, err := g.Generate(context.Background())
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Empty(t, entries[0].X)
	})

	t.Run("query error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		g := NewGenerator(db, testReports(), cfg, testDumpURL, log)

		mock.ExpectQuery("SELECT DISTINCT").
			WillReturnError(fmt.Errorf("connection failed"))

		_, err = g.Generate(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to query patrol targets")
	})
}

func TestGenerator_WriteFile(t *testing.T) {
	log := logger.NewDefault()

	t.Run("writes JSON array", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "patrol.json")
		g := NewGenerator(nil, testReports(),
			config.PatrolConfig{OutputPath: path, MinReportAgeH: 24}, testDumpURL, log)

		entries := []Entry{{
			ID64:         "100",
			System:       "Merope",
			X:            "1",
			Y:            "2",
			Z:            "3",
			Instructions: instructions,
			URL:          testDumpURL + "/100",
		}}
		require.NoError(t, g.WriteFile(entries))

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var decoded []Entry
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, entries, decoded)
	})

	t.Run("empty patrol writes an empty array", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "patrol.json")
		g := NewGenerator(nil, testReports(),
			config.PatrolConfig{OutputPath: path, MinReportAgeH: 24}, testDumpURL, log)

		require.NoError(t, g.WriteFile(nil))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "[]", string(data))
	})
}

func TestPreview(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "patrol is empty\n", Preview(nil, 10))
	})

	t.Run("aligned columns", func(t *testing.T) {
		entries := []Entry{
			{ID64: "100", System: "Merope", X: "1", Y: "2", Z: "3"},
			{ID64: "9470906912642", System: "Oevasy SG-Y d0", X: "4", Y: "5", Z: "6"},
		}
		out := Preview(entries, 10)

		assert.Contains(t, out, "ID64")
		assert.Contains(t, out, "SYSTEM")
		assert.Contains(t, out, "Merope")
		assert.Contains(t, out, "(4, 5, 6)")
		assert.NotContains(t, out, "more")
	})

	t.Run("truncation", func(t *testing.T) {
		entries := []Entry{
			{ID64: "1", System: "Alpha"},
			{ID64: "2", System: "Beta"},
			{ID64: "3", System: "Gamma"},
		}
		out := Preview(entries, 2)

		assert.Contains(t, out, "... and 1 more")
		assert.NotContains(t, out, "Gamma")
	})
}
