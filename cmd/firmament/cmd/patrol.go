package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canonn-science/firmament/internal/patrol"
)

var (
	patrolOutput  string
	patrolPreview int
)

var patrolCmd = &cobra.Command{
	Use:   "patrol",
	Short: "Generate the missing-systems patrol file",
	Long: `Patrol writes a JSON file of systems that still need an in-game survey:
report references older than the configured age with no stored system, and
stored systems without any body rows. Each entry carries the system
coordinates, survey instructions, and its dump API URL.

Example:
  firmament patrol --config firmament.yaml --output patrol.json`,
	RunE: runPatrol,
}

func init() {
	patrolCmd.Flags().StringVarP(&patrolOutput, "output", "o", "",
		"Override the patrol output path")
	patrolCmd.Flags().IntVar(&patrolPreview, "preview", 10,
		"Number of patrol entries to print (0 disables the preview)")

	rootCmd.AddCommand(patrolCmd)
}

func runPatrol(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	env, err := setupEnv(ctx)
	if err != nil {
		return err
	}
	defer env.close()

	if err := preflight(ctx, env); err != nil {
		return err
	}

	patrolCfg := env.cfg.Patrol
	if patrolOutput != "" {
		patrolCfg.OutputPath = patrolOutput
	}

	gen := patrol.NewGenerator(env.db.Store, env.cfg.Reports, patrolCfg,
		env.cfg.Source.DumpURL, env.log)

	entries, err := gen.Generate(ctx)
	if err != nil {
		return fmt.Errorf("patrol generation failed: %w", err)
	}
	if err := gen.WriteFile(entries); err != nil {
		return err
	}

	if patrolPreview > 0 {
		fmt.Print(patrol.Preview(entries, patrolPreview))
	}
	fmt.Printf("\nPatrol written to %s (%d targets)\n", patrolCfg.OutputPath, len(entries))

	return nil
}
