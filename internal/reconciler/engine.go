package reconciler

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/canonn-science/firmament/internal/config"
	"github.com/canonn-science/firmament/internal/logger"
	"github.com/canonn-science/firmament/internal/notify"
	"github.com/canonn-science/firmament/internal/snapshot"
)

// Engine orchestrates a reconciliation run: page candidates, evaluate them
// against the dump API, and upsert accepted documents batch by batch.
type Engine struct {
	cfg      *config.Config
	db       *sql.DB
	client   SystemFetcher
	index    *snapshot.Index
	notifier notify.Notifier
	logger   *logger.Logger
	dryRun   bool
}

// NewEngine creates a reconciliation engine.
func NewEngine(cfg *config.Config, db *sql.DB, client SystemFetcher, notifier notify.Notifier, log *logger.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if db == nil {
		return nil, fmt.Errorf("store database is nil")
	}
	if client == nil {
		return nil, fmt.Errorf("dump API client is nil")
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}

	return &Engine{
		cfg:      cfg,
		db:       db,
		client:   client,
		notifier: notifier,
		logger:   log,
	}, nil
}

// SetIndex installs the weekly snapshot index used to skip incomplete-mode
// candidates the dump cannot improve. A nil index disables filtering.
func (e *Engine) SetIndex(index *snapshot.Index) {
	e.index = index
}

// SetDryRun toggles dry-run mode: candidates are paged and evaluated but
// nothing is written to the store.
func (e *Engine) SetDryRun(dryRun bool) {
	e.dryRun = dryRun
}

// Run executes one full reconciliation pass in the given mode. It pages
// candidates past a moving checkpoint until a page comes back empty, so
// systems left unresolved (unavailable, skipped, unchanged) cannot loop the
// run forever.
func (e *Engine) Run(ctx context.Context, mode Mode) (*RunResult, error) {
	result := &RunResult{
		RunID:     uuid.NewString(),
		Mode:      mode,
		DryRun:    e.dryRun,
		StartedAt: time.Now(),
	}

	log := e.logger.WithPhase(string(mode)).WithRun(result.RunID)
	log.Infof("Starting %s reconciliation run (dry_run=%v)", mode, e.dryRun)
	// Phase announcements go to every webhook, not just verbose ones.
	e.notifier.Send(ctx, fmt.Sprintf("Starting %s run", mode), true)

	fetcher := NewCandidateFetcher(e.db, e.cfg.Reports, mode, e.cfg.Processing.FetchSize)

	var index *snapshot.Index
	if mode == ModeIncomplete {
		index = e.index
	}
	fetchPhase := NewFetchPhase(e.client, index, log)

	upsertPhase, err := NewUpsertPhase(e.db, log)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case <-ctx.Done():
			log.Warnf("Run interrupted: %v (%d batches, %d candidates processed)",
				ctx.Err(), result.Batches, result.Candidates)
			return result, ctx.Err()
		default:
		}

		page, err := fetcher.FetchNextPage(ctx)
		if err != nil {
			return result, fmt.Errorf("candidate paging failed: %w", err)
		}
		if page.Len() == 0 {
			log.Info("No more candidates, run complete")
			break
		}

		result.Batches++
		batchLog := log.WithBatch(result.Batches)
		batchLog.Infof("Evaluating %d candidates (checkpoint: %d)", page.Len(), fetcher.Checkpoint())

		docs, fetchStats, err := fetchPhase.Evaluate(ctx, mode, page.All())
		if err != nil {
			return result, err
		}
		result.Candidates += page.Len()
		accumulate(&result.Fetch, fetchStats)

		if e.dryRun {
			batchLog.Infof("Dry run: would upsert %d systems", len(docs))
		} else {
			for _, chunk := range chunkDocs(docs, e.cfg.Processing.BatchSize) {
				upsertStats, err := upsertPhase.Upsert(ctx, chunk)
				if err != nil {
					return result, err
				}
				result.Upsert.SystemsInBatch += upsertStats.SystemsInBatch
				result.Upsert.BodiesInBatch += upsertStats.BodiesInBatch
				result.Upsert.SystemsWritten += upsertStats.SystemsWritten
				result.Upsert.BodiesWritten += upsertStats.BodiesWritten
			}
		}

		fetcher.UpdateCheckpoint(page.Last())

		if e.cfg.Processing.SleepSeconds > 0 {
			sleep := time.Duration(e.cfg.Processing.SleepSeconds * float64(time.Second))
			batchLog.Debugf("Sleeping %v before next page", sleep)
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(sleep):
			}
		}
	}

	result.CompletedAt = time.Now()
	result.Duration = result.CompletedAt.Sub(result.StartedAt)

	log.Infof("Run complete: %d candidates, %d accepted, %d unchanged, %d unavailable, %d skipped, %d systems written, %d bodies written (%s)",
		result.Candidates, result.Fetch.Accepted, result.Fetch.Unchanged,
		result.Fetch.Unavailable, result.Fetch.Skipped,
		result.Upsert.SystemsInBatch, result.Upsert.BodiesInBatch, result.Duration.Round(time.Millisecond))

	e.notifier.Send(ctx, fmt.Sprintf("%s run complete: %d systems and %d bodies written from %d candidates",
		mode, result.Upsert.SystemsInBatch, result.Upsert.BodiesInBatch, result.Candidates), true)

	return result, nil
}

// accumulate folds one page's fetch stats into the running totals.
func accumulate(total *FetchStats, page FetchStats) {
	total.Fetched += page.Fetched
	total.Accepted += page.Accepted
	total.Unchanged += page.Unchanged
	total.Unavailable += page.Unavailable
	total.Skipped += page.Skipped
}

// chunkDocs splits accepted documents into upsert transactions of at most
// size documents each.
func chunkDocs[T any](docs []T, size int) [][]T {
	if len(docs) == 0 {
		return nil
	}
	if size <= 0 || len(docs) <= size {
		return [][]T{docs}
	}

	chunks := make([][]T, 0, (len(docs)+size-1)/size)
	for start := 0; start < len(docs); start += size {
		end := start + size
		if end > len(docs) {
			end = len(docs)
		}
		chunks = append(chunks, docs[start:end])
	}
	return chunks
}
