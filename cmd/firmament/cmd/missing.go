package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canonn-science/firmament/internal/reconciler"
)

var (
	missingDryRun bool
	missingForce  bool
)

var missingCmd = &cobra.Command{
	Use:   "missing",
	Short: "Reconcile systems absent from the store",
	Long: `Missing fetches every system that is referenced by a report table but has
no row in star_systems, and writes it to the store with its bodies.

Example:
  firmament missing --config firmament.yaml --dry-run`,
	RunE: runMissing,
}

func init() {
	missingCmd.Flags().BoolVar(&missingDryRun, "dry-run", false,
		"Evaluate candidates without writing to the store")
	missingCmd.Flags().BoolVar(&missingForce, "force", false,
		"Run even if the advisory lock cannot be acquired (use with caution)")

	rootCmd.AddCommand(missingCmd)
}

func runMissing(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env, err := setupEnv(ctx)
	if err != nil {
		return err
	}
	defer env.close()

	notifyOnSignal(env, cancel)

	release, err := acquireRunLock(ctx, env, missingForce)
	if err != nil {
		return err
	}
	defer release()

	if err := preflight(ctx, env); err != nil {
		return err
	}

	engine, err := buildEngine(env, missingDryRun)
	if err != nil {
		return err
	}

	result, err := engine.Run(ctx, reconciler.ModeMissing)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			env.log.Warn("Missing pass cancelled by user")
			return nil
		}
		return fmt.Errorf("missing pass failed: %w", err)
	}

	printRunSummary(result)
	return nil
}
