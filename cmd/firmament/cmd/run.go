package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gookit/color"

	"github.com/canonn-science/firmament/internal/lock"
	"github.com/canonn-science/firmament/internal/notify"
	"github.com/canonn-science/firmament/internal/reconciler"
	"github.com/canonn-science/firmament/internal/snapshot"
	"github.com/canonn-science/firmament/internal/spansh"
)

// notifyOnSignal cancels the run context on SIGINT/SIGTERM so the current
// batch finishes and the transaction either commits or rolls back cleanly.
func notifyOnSignal(env *runEnv, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		env.log.Warn("Received shutdown signal - completing current batch...")
		cancel()
	}()
}

// acquireRunLock takes the store-wide advisory lock unless force is set.
// The returned release function is safe to defer in either case.
func acquireRunLock(ctx context.Context, env *runEnv, force bool) (func(), error) {
	if force {
		env.log.Warn("Skipping advisory lock acquisition (--force flag used)")
		return func() {}, nil
	}

	runLock := lock.NewRunLock(env.db.Store)
	if err := runLock.Acquire(ctx); err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return nil, fmt.Errorf("another reconciliation run is already active (use --force to override)")
		}
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	env.log.Info("Acquired advisory run lock")

	return func() {
		_ = runLock.Release(context.Background())
	}, nil
}

// buildEngine wires the reconciliation engine from the environment: dump API
// client, webhook notifier, and store connection.
func buildEngine(env *runEnv, dryRun bool) (*reconciler.Engine, error) {
	client := spansh.NewClient(&env.cfg.Source)
	notifier := notify.New(env.cfg.Webhooks, env.log)

	engine, err := reconciler.NewEngine(env.cfg, env.db.Store, client, notifier, env.log)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	engine.SetDryRun(dryRun)
	return engine, nil
}

// preflight verifies required store tables exist before any run.
func preflight(ctx context.Context, env *runEnv) error {
	checker := reconciler.NewPreflight(env.db.Store, env.cfg.Database.Database, env.cfg.Reports, env.log)
	if err := checker.Check(ctx); err != nil {
		return fmt.Errorf("preflight failed: %w", err)
	}
	return nil
}

// downloadSnapshot fetches the weekly snapshot index. A download failure is
// not fatal: the incomplete pass simply runs without the skip heuristic and
// fetches every candidate.
func downloadSnapshot(ctx context.Context, env *runEnv) *snapshot.Index {
	env.log.Infof("Downloading weekly snapshot from %s", env.cfg.Snapshot.URL)

	index, err := snapshot.NewDownloader(&env.cfg.Snapshot).Download(ctx)
	if err != nil {
		env.log.Warnf("Snapshot download failed, incomplete pass will fetch all candidates: %v", err)
		return nil
	}

	env.log.Infof("Snapshot index ready with %d systems", index.Len())
	return index
}

// printRunSummary renders one pass result for the console.
func printRunSummary(result *reconciler.RunResult) {
	color.Bold.Printf("\n=== %s pass ===\n", result.Mode)
	if result.DryRun {
		color.Yellow.Println("dry run: nothing was written")
	}
	fmt.Printf("Candidates:  %d\n", result.Candidates)
	fmt.Printf("Fetched:     %d\n", result.Fetch.Fetched)
	fmt.Printf("Accepted:    %d\n", result.Fetch.Accepted)
	fmt.Printf("Unchanged:   %d\n", result.Fetch.Unchanged)
	fmt.Printf("Unavailable: %d\n", result.Fetch.Unavailable)
	fmt.Printf("Skipped:     %d\n", result.Fetch.Skipped)
	color.Green.Printf("Systems written: %d\n", result.Upsert.SystemsInBatch)
	color.Green.Printf("Bodies written:  %d\n", result.Upsert.BodiesInBatch)
	fmt.Printf("Batches:     %d\n", result.Batches)
	fmt.Printf("Duration:    %s\n", result.Duration.Round(time.Millisecond))
}
