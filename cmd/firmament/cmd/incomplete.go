package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canonn-science/firmament/internal/reconciler"
)

var (
	incompleteSkipSnapshot bool
	incompleteDryRun       bool
	incompleteForce        bool
)

var incompleteCmd = &cobra.Command{
	Use:   "incomplete",
	Short: "Reconcile stored systems with mismatched body records",
	Long: `Incomplete re-fetches stored systems whose bodies_match flag is not set
and writes back the ones whose body counts actually changed upstream.

The weekly snapshot is downloaded first and used as a skip heuristic:
systems absent from it were not touched upstream this week, so no fetch is
made for them.

Example:
  firmament incomplete --config firmament.yaml --skip-snapshot`,
	RunE: runIncomplete,
}

func init() {
	incompleteCmd.Flags().BoolVar(&incompleteSkipSnapshot, "skip-snapshot", false,
		"Skip the snapshot download and fetch every candidate")
	incompleteCmd.Flags().BoolVar(&incompleteDryRun, "dry-run", false,
		"Evaluate candidates without writing to the store")
	incompleteCmd.Flags().BoolVar(&incompleteForce, "force", false,
		"Run even if the advisory lock cannot be acquired (use with caution)")

	rootCmd.AddCommand(incompleteCmd)
}

func runIncomplete(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env, err := setupEnv(ctx)
	if err != nil {
		return err
	}
	defer env.close()

	notifyOnSignal(env, cancel)

	release, err := acquireRunLock(ctx, env, incompleteForce)
	if err != nil {
		return err
	}
	defer release()

	if err := preflight(ctx, env); err != nil {
		return err
	}

	engine, err := buildEngine(env, incompleteDryRun)
	if err != nil {
		return err
	}

	if !incompleteSkipSnapshot && env.cfg.Snapshot.Enabled {
		engine.SetIndex(downloadSnapshot(ctx, env))
	}

	result, err := engine.Run(ctx, reconciler.ModeIncomplete)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			env.log.Warn("Incomplete pass cancelled by user")
			return nil
		}
		return fmt.Errorf("incomplete pass failed: %w", err)
	}

	printRunSummary(result)
	return nil
}
