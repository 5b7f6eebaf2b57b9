// Package config provides configuration structures and loading for Firmament.
package config

// Config represents the complete application configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database" mapstructure:"database"`
	Source     SourceConfig     `yaml:"source" mapstructure:"source"`
	Snapshot   SnapshotConfig   `yaml:"snapshot" mapstructure:"snapshot"`
	Reports    []ReportTable    `yaml:"reports" mapstructure:"reports"`
	Processing ProcessingConfig `yaml:"processing" mapstructure:"processing"`
	Patrol     PatrolConfig     `yaml:"patrol" mapstructure:"patrol"`
	Webhooks   []WebhookConfig  `yaml:"webhooks" mapstructure:"webhooks"`
	Logging    LoggingConfig    `yaml:"logging" mapstructure:"logging"`
}

// DatabaseConfig represents the MySQL store connection configuration.
type DatabaseConfig struct {
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	TLS                string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// SourceConfig represents the remote system dump API.
type SourceConfig struct {
	DumpURL        string `yaml:"dump_url" mapstructure:"dump_url"`
	UserAgent      string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// SnapshotConfig represents the weekly bulk snapshot used as a
// fetch-skipping heuristic during the incomplete pass.
type SnapshotConfig struct {
	Enabled        bool   `yaml:"enabled" mapstructure:"enabled"`
	URL            string `yaml:"url" mapstructure:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// ReportTable describes an externally-owned report table referencing star
// systems by address. These tables are only ever read.
type ReportTable struct {
	Table      string `yaml:"table" mapstructure:"table"`
	IDColumn   string `yaml:"id_column" mapstructure:"id_column"`
	NameColumn string `yaml:"name_column" mapstructure:"name_column"`
}

// ProcessingConfig represents batch processing settings.
type ProcessingConfig struct {
	FetchSize    int     `yaml:"fetch_size" mapstructure:"fetch_size"` // candidates per page
	BatchSize    int     `yaml:"batch_size" mapstructure:"batch_size"` // accepted documents per upsert transaction
	SleepSeconds float64 `yaml:"sleep_seconds" mapstructure:"sleep_seconds"`
}

// PatrolConfig represents the missing-systems patrol report settings.
type PatrolConfig struct {
	OutputPath    string `yaml:"output_path" mapstructure:"output_path"`
	MinReportAgeH int    `yaml:"min_report_age_hours" mapstructure:"min_report_age_hours"`
}

// WebhookConfig represents one outbound notification webhook.
// Non-verbose webhooks only receive messages marked important.
type WebhookConfig struct {
	URL     string `yaml:"url" mapstructure:"url"`
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Port:               3306,
			TLS:                "preferred",
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Source: SourceConfig{
			DumpURL:        "https://spansh.co.uk/api/dump",
			UserAgent:      "Canonn firmament",
			TimeoutSeconds: 30,
		},
		Snapshot: SnapshotConfig{
			Enabled:        true,
			URL:            "https://downloads.spansh.co.uk/systems_1week.json.gz",
			TimeoutSeconds: 300,
		},
		Reports: []ReportTable{
			{Table: "codexreport", IDColumn: "id64", NameColumn: "system"},
			{Table: "organic_scans", IDColumn: "SystemAddress", NameColumn: "system"},
		},
		Processing: ProcessingConfig{
			FetchSize: 200,
			BatchSize: 1000,
		},
		Patrol: PatrolConfig{
			OutputPath:    "missing_spansh_systems.json",
			MinReportAgeH: 24,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}
