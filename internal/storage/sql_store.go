package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rohankatakam/feedbackd/internal/errors"
	"github.com/rohankatakam/feedbackd/internal/models"
)

// SQLStore keeps one row per record; the autoincrement id is the arrival order.
// Works with the sqlite3, postgres (lib/pq) and pgx drivers.
type SQLStore struct {
	db     *sqlx.DB
	driver string
	logger *slog.Logger
}

type feedbackRow struct {
	ID             int64  `db:"id"`
	Feedback       string `db:"feedback"`
	RecordedAt     string `db:"recorded_at"`
	EmotionType    string `db:"emotion_type"`
	Intensity      int    `db:"intensity"`
	TriggerContext string `db:"trigger_context"`
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		feedback TEXT NOT NULL,
		recorded_at TEXT NOT NULL,
		emotion_type TEXT NOT NULL,
		intensity INTEGER NOT NULL CHECK (intensity BETWEEN 1 AND 5),
		trigger_context TEXT NOT NULL DEFAULT ''
	);
`

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS feedback (
		id BIGSERIAL PRIMARY KEY,
		feedback TEXT NOT NULL,
		recorded_at TEXT NOT NULL,
		emotion_type TEXT NOT NULL,
		intensity INTEGER NOT NULL CHECK (intensity BETWEEN 1 AND 5),
		trigger_context TEXT NOT NULL DEFAULT ''
	);
`

// OpenSQLiteStore opens a SQLite database file at path
func OpenSQLiteStore(ctx context.Context, path string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	return OpenSQLStore(ctx, "sqlite3", path)
}

// OpenSQLStore connects with the named driver and ensures the schema exists
func OpenSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", driver, err)
	}

	schema := postgresSchema
	if driver == "sqlite3" {
		// One writer at a time; WAL keeps readers off the writer's back.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
			slog.Default().Warn("store.wal.unavailable", "backend", driver, "error", err)
		}
		schema = sqliteSchema
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	s := &SQLStore{
		db:     db,
		driver: driver,
		logger: slog.Default().With("component", "store", "backend", driver),
	}
	n, err := s.Count(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.logger.Info("store.load.ok", "records", n)
	return s, nil
}

func (s *SQLStore) Append(ctx context.Context, rec models.FeedbackRecord) error {
	query := s.db.Rebind(`
		INSERT INTO feedback (feedback, recorded_at, emotion_type, intensity, trigger_context)
		VALUES (?, ?, ?, ?, ?)
	`)

	_, err := s.db.ExecContext(ctx, query,
		rec.Text, rec.Timestamp.Format(time.RFC3339Nano), rec.EmotionType,
		rec.Intensity, rec.TriggerContext)
	if err != nil {
		s.logger.Error("store.write.failed", "error", err)
		return errors.PersistenceError(err, "failed to insert feedback record")
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context) (models.FeedbackLog, error) {
	var rows []feedbackRow
	query := `SELECT id, feedback, recorded_at, emotion_type, intensity, trigger_context FROM feedback ORDER BY id`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}

	log := make(models.FeedbackLog, 0, len(rows))
	for _, row := range rows {
		ts, err := time.Parse(time.RFC3339Nano, row.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp of row %d: %w", row.ID, err)
		}
		log = append(log, models.FeedbackRecord{
			Text:           row.Feedback,
			Timestamp:      ts,
			EmotionType:    row.EmotionType,
			Intensity:      row.Intensity,
			TriggerContext: row.TriggerContext,
		})
	}
	return log, nil
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM feedback`); err != nil {
		return 0, fmt.Errorf("count feedback: %w", err)
	}
	return n, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
