package repository

import (
	"context"
	"fmt"
	"osu-tracker/internal/config"
	"osu-tracker/internal/database"

	"github.com/rs/zerolog"
)

// Open builds the store selected by cfg.StoreDriver, applying migrations for
// the SQL backends.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (Store, error) {
	logger = logger.With().Str("store", cfg.StoreDriver).Logger()

	switch cfg.StoreDriver {
	case config.StoreSQLite:
		db, err := database.NewSQLite(cfg.DBPath, logger)
		if err != nil {
			return nil, err
		}
		return NewSQLiteRepository(db, logger), nil
	case config.StorePostgres:
		pool, err := database.NewPostgres(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		return NewPostgresRepository(pool, logger), nil
	case config.StoreBadger:
		return NewBadgerRepository(BadgerOptions{Path: cfg.BadgerPath}, logger)
	case config.StoreMemory:
		logger.Warn().Msg("using in-memory store, history is lost on restart")
		return NewMemoryRepository(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
