package reconciler

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/canonn-science/firmament/internal/logger"
	"github.com/canonn-science/firmament/internal/spansh"
)

const (
	upsertSystemSQL = "INSERT INTO `star_systems` (raw_json) VALUES (?) " +
		"ON DUPLICATE KEY UPDATE raw_json = VALUES(raw_json)"
	upsertBodySQL = "INSERT INTO `system_bodies` (raw_json) VALUES (?) " +
		"ON DUPLICATE KEY UPDATE raw_json = VALUES(raw_json)"
)

// UpsertPhase writes accepted system documents to the store. Each call runs
// inside a single transaction so a batch lands atomically; only raw_json is
// ever written, the store derives the indexed columns from it.
type UpsertPhase struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewUpsertPhase creates an upsert phase coordinator.
func NewUpsertPhase(db *sql.DB, log *logger.Logger) (*UpsertPhase, error) {
	if db == nil {
		return nil, fmt.Errorf("store database is nil")
	}
	return &UpsertPhase{
		db:     db,
		logger: log,
	}, nil
}

// Upsert writes the given documents and their bodies in one transaction.
//
// Documents are split first; a document that cannot be split aborts the
// batch before the transaction begins. The upserts are idempotent: replaying
// a batch converges on the same rows.
func (up *UpsertPhase) Upsert(ctx context.Context, docs []*spansh.SystemDocument) (*UpsertStats, error) {
	stats := &UpsertStats{}
	if len(docs) == 0 {
		return stats, nil
	}

	systemJSONs := make([][]byte, 0, len(docs))
	var bodyJSONs [][]byte
	for _, doc := range docs {
		systemJSON, bodies, err := doc.Split()
		if err != nil {
			return nil, fmt.Errorf("failed to split system %d: %w", doc.ID64(), err)
		}
		systemJSONs = append(systemJSONs, systemJSON)
		bodyJSONs = append(bodyJSONs, bodies...)
	}
	stats.SystemsInBatch = len(systemJSONs)
	stats.BodiesInBatch = len(bodyJSONs)

	up.logger.Debug("Starting store transaction")
	tx, err := up.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin store transaction: %w", err)
	}

	// Rollback unless the transaction was committed.
	defer func() {
		if tx != nil {
			up.logger.Warn("Rolling back store transaction due to error or panic")
			if rbErr := tx.Rollback(); rbErr != nil {
				up.logger.Errorf("Failed to rollback transaction: %v", rbErr)
			}
		}
	}()

	systemsWritten, err := up.execBatch(ctx, tx, upsertSystemSQL, systemJSONs)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert systems: %w", err)
	}
	stats.SystemsWritten = systemsWritten

	bodiesWritten, err := up.execBatch(ctx, tx, upsertBodySQL, bodyJSONs)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert bodies: %w", err)
	}
	stats.BodiesWritten = bodiesWritten

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit store transaction: %w", err)
	}
	tx = nil

	up.logger.Infof("Batch committed: %d systems, %d bodies (%d/%d rows affected)",
		stats.SystemsInBatch, stats.BodiesInBatch, stats.SystemsWritten, stats.BodiesWritten)

	return stats, nil
}

// execBatch runs the given upsert statement once per document using a single
// prepared statement, returning the sum of affected rows.
func (up *UpsertPhase) execBatch(ctx context.Context, tx *sql.Tx, query string, payloads [][]byte) (int64, error) {
	if len(payloads) == 0 {
		return 0, nil
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert statement: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	var affected int64
	for _, payload := range payloads {
		if err := ctx.Err(); err != nil {
			return affected, fmt.Errorf("upsert interrupted: %w", err)
		}

		res, err := stmt.ExecContext(ctx, payload)
		if err != nil {
			return affected, err
		}

		n, err := res.RowsAffected()
		if err != nil {
			return affected, fmt.Errorf("failed to read affected rows: %w", err)
		}
		affected += n
	}

	return affected, nil
}
