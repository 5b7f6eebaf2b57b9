package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile      string
	logLevel     string
	logFormat    string
	fetchSize    int
	batchSize    int
	sleepSeconds float64
)

var rootCmd = &cobra.Command{
	Use:   "firmament",
	Short: "Star system store reconciler",
	Long: `Firmament keeps a MySQL store of star systems aligned with the Spansh
system dump API.

It detects systems that are referenced in report tables but missing from
the store, and stored systems whose body records are incomplete, then
fetches each one from the dump API and writes it back in idempotent
batches. Only raw JSON is ever written; the store derives its indexed
columns from it.`,
	Version: Version,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "firmament.yaml",
		"Path to configuration file")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Processing overrides
	rootCmd.PersistentFlags().IntVar(&fetchSize, "fetch-size", 0,
		"Override fetch size (candidates per page)")
	rootCmd.PersistentFlags().IntVar(&batchSize, "batch-size", 0,
		"Override batch size (documents per upsert transaction)")
	rootCmd.PersistentFlags().Float64Var(&sleepSeconds, "sleep", 0,
		"Override sleep seconds between pages")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel     string
	LogFormat    string
	FetchSize    int
	BatchSize    int
	SleepSeconds float64
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:     logLevel,
		LogFormat:    logFormat,
		FetchSize:    fetchSize,
		BatchSize:    batchSize,
		SleepSeconds: sleepSeconds,
	}
}
