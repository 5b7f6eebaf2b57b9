package config

import (
	"fmt"
	"strings"

	"github.com/canonn-science/firmament/internal/sqlutil"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateDatabase()...)
	errors = append(errors, c.validateSource()...)
	errors = append(errors, c.validateReports()...)
	errors = append(errors, c.validateProcessing()...)
	errors = append(errors, c.validateWebhooks()...)
	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateDatabase() ValidationErrors {
	var errors ValidationErrors
	db := &c.Database

	if db.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "database.host",
			Message: "host is required",
		})
	}

	if db.Port <= 0 || db.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "database.port",
			Message: "port must be between 1 and 65535",
		})
	}

	if db.User == "" {
		errors = append(errors, ValidationError{
			Field:   "database.user",
			Message: "user is required",
		})
	}

	if db.Database == "" {
		errors = append(errors, ValidationError{
			Field:   "database.database",
			Message: "database name is required",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[db.TLS] {
		errors = append(errors, ValidationError{
			Field:   "database.tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	if db.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   "database.max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if db.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   "database.max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateSource() ValidationErrors {
	var errors ValidationErrors

	if c.Source.DumpURL == "" {
		errors = append(errors, ValidationError{
			Field:   "source.dump_url",
			Message: "dump_url is required",
		})
	}

	if c.Source.TimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "source.timeout_seconds",
			Message: "timeout_seconds cannot be negative",
		})
	}

	if c.Snapshot.Enabled && c.Snapshot.URL == "" {
		errors = append(errors, ValidationError{
			Field:   "snapshot.url",
			Message: "url is required when snapshot is enabled",
		})
	}

	return errors
}

// validateReports checks that report table and column names are safe MySQL
// identifiers, since they are interpolated into candidate queries.
func (c *Config) validateReports() ValidationErrors {
	var errors ValidationErrors

	if len(c.Reports) == 0 {
		errors = append(errors, ValidationError{
			Field:   "reports",
			Message: "at least one report table must be defined",
		})
	}

	for i, r := range c.Reports {
		prefix := fmt.Sprintf("reports[%d]", i)

		if r.Table == "" || !sqlutil.IsValidIdentifier(r.Table) {
			errors = append(errors, ValidationError{
				Field:   prefix + ".table",
				Message: "table must be a valid MySQL identifier",
			})
		}
		if r.IDColumn == "" || !sqlutil.IsValidIdentifier(r.IDColumn) {
			errors = append(errors, ValidationError{
				Field:   prefix + ".id_column",
				Message: "id_column must be a valid MySQL identifier",
			})
		}
		if r.NameColumn == "" || !sqlutil.IsValidIdentifier(r.NameColumn) {
			errors = append(errors, ValidationError{
				Field:   prefix + ".name_column",
				Message: "name_column must be a valid MySQL identifier",
			})
		}
	}

	return errors
}

func (c *Config) validateProcessing() ValidationErrors {
	var errors ValidationErrors

	if c.Processing.FetchSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.fetch_size",
			Message: "fetch_size must be positive",
		})
	}

	if c.Processing.BatchSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if c.Processing.SleepSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.sleep_seconds",
			Message: "sleep_seconds cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateWebhooks() ValidationErrors {
	var errors ValidationErrors

	for i, w := range c.Webhooks {
		if w.URL == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("webhooks[%d].url", i),
				Message: "url is required",
			})
		}
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
