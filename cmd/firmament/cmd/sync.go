package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canonn-science/firmament/internal/patrol"
	"github.com/canonn-science/firmament/internal/reconciler"
)

var (
	syncSkipSnapshot bool
	syncDryRun       bool
	syncWithPatrol   bool
	syncForce        bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a full reconciliation: missing pass, snapshot, incomplete pass",
	Long: `Sync runs the complete reconciliation sequence:

  1. Missing pass: systems referenced in report tables but absent from the
     store are fetched and written.
  2. Snapshot: the weekly bulk snapshot is downloaded and indexed.
  3. Incomplete pass: stored systems with mismatched body records are
     re-fetched; systems absent from the snapshot are skipped without a
     fetch since the dump has nothing newer for them.

Example:
  firmament sync --config firmament.yaml --with-patrol`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncSkipSnapshot, "skip-snapshot", false,
		"Skip the snapshot download; the incomplete pass fetches every candidate")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false,
		"Evaluate candidates without writing to the store")
	syncCmd.Flags().BoolVar(&syncWithPatrol, "with-patrol", false,
		"Generate the missing-systems patrol file after the run")
	syncCmd.Flags().BoolVar(&syncForce, "force", false,
		"Run even if the advisory lock cannot be acquired (use with caution)")

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env, err := setupEnv(ctx)
	if err != nil {
		return err
	}
	defer env.close()

	notifyOnSignal(env, cancel)

	release, err := acquireRunLock(ctx, env, syncForce)
	if err != nil {
		return err
	}
	defer release()

	if err := preflight(ctx, env); err != nil {
		return err
	}

	engine, err := buildEngine(env, syncDryRun)
	if err != nil {
		return err
	}

	missingResult, err := engine.Run(ctx, reconciler.ModeMissing)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			env.log.Warn("Sync cancelled by user")
			return nil
		}
		return fmt.Errorf("missing pass failed: %w", err)
	}

	if !syncSkipSnapshot && env.cfg.Snapshot.Enabled {
		engine.SetIndex(downloadSnapshot(ctx, env))
	}

	incompleteResult, err := engine.Run(ctx, reconciler.ModeIncomplete)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			env.log.Warn("Sync cancelled by user")
			return nil
		}
		return fmt.Errorf("incomplete pass failed: %w", err)
	}

	printRunSummary(missingResult)
	printRunSummary(incompleteResult)

	if syncWithPatrol {
		gen := patrol.NewGenerator(env.db.Store, env.cfg.Reports, env.cfg.Patrol,
			env.cfg.Source.DumpURL, env.log)
		entries, err := gen.Generate(ctx)
		if err != nil {
			return fmt.Errorf("patrol generation failed: %w", err)
		}
		if err := gen.WriteFile(entries); err != nil {
			return err
		}
		fmt.Printf("\nPatrol written to %s (%d targets)\n", env.cfg.Patrol.OutputPath, len(entries))
	}

	return nil
}
