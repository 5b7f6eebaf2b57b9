package cmd

import (
	"context"
	"fmt"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/canonn-science/firmament/internal/reconciler"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show candidate counts without writing anything",
	Long: `Status counts how many systems each reconciliation pass would consider:
missing systems referenced by report tables, and stored systems whose body
records do not match. No fetches and no writes are performed.

Example:
  firmament status --config firmament.yaml`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	env, err := setupEnv(ctx)
	if err != nil {
		return err
	}
	defer env.close()

	if err := preflight(ctx, env); err != nil {
		return err
	}

	missing, err := reconciler.NewCandidateFetcher(env.db.Store, env.cfg.Reports,
		reconciler.ModeMissing, env.cfg.Processing.FetchSize).Count(ctx)
	if err != nil {
		return err
	}

	incomplete, err := reconciler.NewCandidateFetcher(env.db.Store, env.cfg.Reports,
		reconciler.ModeIncomplete, env.cfg.Processing.FetchSize).Count(ctx)
	if err != nil {
		return err
	}

	color.Bold.Println("=== Store Status ===")
	fmt.Printf("Report tables:         %d\n", len(env.cfg.Reports))
	fmt.Printf("Missing candidates:    %d\n", missing)
	fmt.Printf("Incomplete candidates: %d\n", incomplete)

	if missing == 0 && incomplete == 0 {
		color.Green.Println("Store is fully reconciled")
	}

	return nil
}
