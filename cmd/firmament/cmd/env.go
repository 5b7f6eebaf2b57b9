package cmd

import (
	"context"
	"fmt"

	"github.com/canonn-science/firmament/internal/config"
	"github.com/canonn-science/firmament/internal/database"
	"github.com/canonn-science/firmament/internal/logger"
)

// runEnv bundles the loaded configuration, logger, and store connection
// shared by every subcommand that touches the database.
type runEnv struct {
	cfg *config.Config
	log *logger.Logger
	db  *database.Manager
}

// setupEnv loads the configuration, applies CLI overrides, validates it,
// initializes the logger, and connects to the store.
func setupEnv(ctx context.Context) (*runEnv, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat,
		overrides.FetchSize, overrides.BatchSize, overrides.SleepSeconds)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	dbManager := database.NewManager(cfg)
	if err := dbManager.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to store: %w", err)
	}
	if err := dbManager.Ping(ctx); err != nil {
		_ = dbManager.Close()
		return nil, fmt.Errorf("store connection failed: %w", err)
	}

	return &runEnv{
		cfg: cfg,
		log: log,
		db:  dbManager,
	}, nil
}

func (e *runEnv) close() {
	_ = e.db.Close()
	_ = e.log.Sync()
}
