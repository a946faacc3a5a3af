package storage

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rohankatakam/feedbackd/internal/config"
	"github.com/rohankatakam/feedbackd/internal/models"
	bolt "go.etcd.io/bbolt"
)

// Snapshot reads the configured log without owning it, so it can run beside the
// process that appends. A missing log is empty. A corrupt JSON log is reported
// with ErrCorruptLog and left in place.
func Snapshot(ctx context.Context, cfg config.StorageConfig) (models.FeedbackLog, error) {
	switch cfg.Type {
	case "", "json":
		log, err := ReadLog(cfg.Path)
		if stderrors.Is(err, fs.ErrNotExist) {
			return models.FeedbackLog{}, nil
		}
		return log, err

	case "bolt":
		db, err := bolt.Open(cfg.Path, 0600, &bolt.Options{ReadOnly: true, Timeout: time.Second})
		if stderrors.Is(err, fs.ErrNotExist) {
			return models.FeedbackLog{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("open bolt database %s read-only: %w", cfg.Path, err)
		}
		s := &BoltStore{db: db}
		defer s.Close()
		return s.List(ctx)

	case "sqlite":
		if _, err := os.Stat(cfg.Path); stderrors.Is(err, fs.ErrNotExist) {
			return models.FeedbackLog{}, nil
		}
		s, err := OpenSQLStore(ctx, "sqlite3", cfg.Path)
		if err != nil {
			return nil, err
		}
		defer s.Close()
		return s.List(ctx)

	case "postgres", "pgx":
		s, err := Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		defer s.Close()
		return s.List(ctx)

	case "memory":
		return models.FeedbackLog{}, nil

	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}
