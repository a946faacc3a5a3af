package storage

import (
	"context"
	"fmt"

	"github.com/rohankatakam/feedbackd/internal/config"
)

// Open creates the store selected by cfg.Type
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Type {
	case "", "json":
		return OpenFileStore(cfg.Path)
	case "bolt":
		return OpenBoltStore(cfg.Path)
	case "sqlite":
		return OpenSQLiteStore(ctx, cfg.Path)
	case "postgres", "pgx":
		return OpenSQLStore(ctx, cfg.Type, cfg.DSN)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}
