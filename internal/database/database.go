// Package database provides MySQL connection management for Firmament.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"github.com/canonn-science/firmament/internal/config"
)

// connectMaxTries bounds the initial dial; reconciliation operations
// themselves never retry.
const connectMaxTries = 3

// Manager handles the store database connection. All candidate queries,
// upserts, and patrol reports run against this single connection pool.
type Manager struct {
	Store  *sql.DB
	config *config.Config
}

// NewManager creates a new database manager from configuration.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		config: cfg,
	}
}

// Connect establishes the store connection, retrying the initial dial with
// exponential backoff.
func (m *Manager) Connect(ctx context.Context) error {
	db, err := backoff.Retry(ctx, func() (*sql.DB, error) {
		db, err := m.open(&m.config.Database)
		if err != nil {
			return nil, err
		}
		if pingErr := db.PingContext(ctx); pingErr != nil {
			db.Close()
			return nil, pingErr
		}
		return db, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(connectMaxTries),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to store database: %w", err)
	}

	m.Store = db
	return nil
}

// open creates a database connection pool without verifying it.
func (m *Manager) open(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dsn := BuildDSN(cfg)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConnections)
	}
	db.SetConnMaxLifetime(10 * time.Minute)

	return db, nil
}

// BuildDSN constructs a MySQL DSN from configuration.
func BuildDSN(cfg *config.DatabaseConfig) string {
	// Format: user:password@tcp(host:port)/database?params
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
	)

	if cfg.Database != "" {
		dsn += cfg.Database
	}

	params := "?parseTime=true&charset=utf8mb4"
	switch cfg.TLS {
	case "disable":
		params += "&tls=false"
	case "required":
		params += "&tls=true"
	case "preferred", "":
		params += "&tls=preferred"
	}

	return dsn + params
}

// Close closes the store connection.
func (m *Manager) Close() error {
	if m.Store == nil {
		return nil
	}
	if err := m.Store.Close(); err != nil {
		return fmt.Errorf("store close: %w", err)
	}
	return nil
}

// Ping verifies the store connection is alive.
func (m *Manager) Ping(ctx context.Context) error {
	if m.Store == nil {
		return fmt.Errorf("store not connected")
	}
	if err := m.Store.PingContext(ctx); err != nil {
		return fmt.Errorf("store ping failed: %w", err)
	}
	return nil
}
