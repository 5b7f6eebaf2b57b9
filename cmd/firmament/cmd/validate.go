package cmd

import (
	"context"
	"fmt"

	"github.com/gookit/color"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and run preflight checks",
	Long: `Validate checks the configuration file and verifies the store is ready
for a reconciliation run.

Checks performed:
  - Configuration syntax and required fields
  - Report table identifier validation
  - Store connectivity
  - Existence of star_systems, system_bodies, and all report tables

Example:
  firmament validate --config firmament.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// setupEnv validates the config and pings the store.
	env, err := setupEnv(ctx)
	if err != nil {
		return err
	}
	defer env.close()

	color.Bold.Println("=== Configuration Validation ===")
	fmt.Printf("Config file: %s\n", GetConfigFile())
	fmt.Printf("Report tables: %d\n", len(env.cfg.Reports))
	for _, r := range env.cfg.Reports {
		fmt.Printf("  - %s (%s, %s)\n", r.Table, r.IDColumn, r.NameColumn)
	}
	color.Green.Println("Configuration OK")
	color.Green.Println("Store connection OK")

	if err := preflight(ctx, env); err != nil {
		color.Red.Printf("Preflight failed: %v\n", err)
		return err
	}
	color.Green.Println("Schema preflight OK")

	return nil
}
