package reconciler

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/canonn-science/firmament/internal/logger"
	"github.com/canonn-science/firmament/internal/snapshot"
	"github.com/canonn-science/firmament/internal/spansh"
	"github.com/canonn-science/firmament/internal/types"
)

// SystemFetcher retrieves full system documents from the dump API.
// *spansh.Client satisfies this interface.
type SystemFetcher interface {
	FetchSystem(ctx context.Context, id64 int64) (*spansh.SystemDocument, error)
}

// FetchPhase evaluates a page of candidates against the dump API and decides
// which fetched documents should be written back to the store.
type FetchPhase struct {
	client SystemFetcher
	index  *snapshot.Index // nil when snapshot filtering is disabled
	logger *logger.Logger
}

// NewFetchPhase creates a FetchPhase. The snapshot index may be nil, in
// which case every candidate is fetched.
func NewFetchPhase(client SystemFetcher, index *snapshot.Index, log *logger.Logger) *FetchPhase {
	return &FetchPhase{
		client: client,
		index:  index,
		logger: log,
	}
}

// Evaluate fetches each candidate and returns the documents accepted for
// upsert, in candidate order.
//
// Decision rules:
//   - In incomplete mode, candidates absent from the snapshot index are
//     skipped without a fetch; the dump has nothing newer for them.
//   - A non-200 response or a network failure marks the candidate
//     unavailable for this run and moves on.
//   - A document that cannot be parsed aborts the run.
//   - Missing-mode documents are always accepted. Incomplete-mode documents
//     are accepted only when the fetched body counts differ from the stored
//     summary.
func (p *FetchPhase) Evaluate(ctx context.Context, mode Mode, candidates []*types.Candidate) ([]*spansh.SystemDocument, FetchStats, error) {
	var (
		stats    FetchStats
		accepted []*spansh.SystemDocument
	)

	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, stats, fmt.Errorf("fetch interrupted: %w", err)
		}

		log := p.logger.WithSystem(cand.ID64)

		if mode == ModeIncomplete && p.index != nil && !p.index.Contains(cand.ID64) {
			log.Debugf("System %q not in weekly snapshot, skipping fetch", cand.Name)
			stats.Skipped++
			continue
		}

		doc, err := p.client.FetchSystem(ctx, cand.ID64)
		if err != nil {
			var statusErr *spansh.StatusError
			var netErr net.Error
			switch {
			case errors.As(err, &statusErr):
				log.Infof("System %q unavailable from dump API: %s", cand.Name, statusErr.Status)
				stats.Unavailable++
				continue
			case errors.As(err, &netErr):
				log.Warnf("Network error fetching system %q: %v", cand.Name, err)
				stats.Unavailable++
				continue
			default:
				return nil, stats, fmt.Errorf("failed to evaluate system %d: %w", cand.ID64, err)
			}
		}
		stats.Fetched++

		if mode == ModeIncomplete && !p.changed(cand, doc) {
			log.Debugf("System %q unchanged (bodyCount=%d lenBodies=%d)",
				cand.Name, doc.BodyCount(), doc.LenBodies())
			stats.Unchanged++
			continue
		}

		stats.Accepted++
		accepted = append(accepted, doc)
	}

	return accepted, stats, nil
}

// changed reports whether the fetched document differs from the stored
// summary. A store row without len_bodies always counts as changed.
func (p *FetchPhase) changed(cand *types.Candidate, doc *spansh.SystemDocument) bool {
	if !cand.LenBodies.Valid {
		return true
	}
	return doc.LenBodies() != cand.LenBodies.Int64 || doc.BodyCount() != cand.BodyCount
}
