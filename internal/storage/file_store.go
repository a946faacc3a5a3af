package storage

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rohankatakam/feedbackd/internal/errors"
	"github.com/rohankatakam/feedbackd/internal/models"
)

// FileStore keeps the whole log in memory and rewrites it as one JSON array on
// every append. The file is replaced atomically: a temp file in the same directory
// is written, fsynced and renamed over the target.
type FileStore struct {
	path   string
	logger *slog.Logger

	mu     sync.Mutex
	log    models.FeedbackLog
	closed bool
}

// OpenFileStore loads the log at path. A missing file is an empty log. A file that
// cannot be parsed is moved aside to <path>.corrupt-<unix nanos> and the store
// starts empty; it never fails open because of corruption.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:   path,
		logger: slog.Default().With("component", "store", "backend", "json"),
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}

	log, err := ReadLog(path)
	switch {
	case err == nil:
		s.log = log
		s.logger.Info("store.load.ok", "path", path, "records", len(log))
	case stderrors.Is(err, fs.ErrNotExist):
		s.logger.Info("store.load.absent", "path", path)
	case stderrors.Is(err, ErrCorruptLog):
		s.quarantine(err)
	default:
		return nil, fmt.Errorf("read feedback log %s: %w", path, err)
	}

	return s, nil
}

// quarantine moves a corrupt log out of the way so the next append cannot overwrite it
func (s *FileStore) quarantine(cause error) {
	aside := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().UnixNano())
	if err := os.Rename(s.path, aside); err != nil {
		s.logger.Error("store.load.corrupt",
			"path", s.path,
			"error", cause,
			"quarantine_error", err,
		)
		return
	}
	s.logger.Warn("store.load.corrupt",
		"path", s.path,
		"error", cause,
		"moved_to", aside,
	)
}

// ReadLog reads a JSON-array log without taking ownership of it. The error wraps
// fs.ErrNotExist when the file is absent and ErrCorruptLog when it cannot be parsed.
// An empty file is an empty log.
func ReadLog(path string) (models.FeedbackLog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return models.FeedbackLog{}, nil
	}

	var log models.FeedbackLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptLog, err)
	}
	if log == nil {
		log = models.FeedbackLog{}
	}
	return log, nil
}

// Path returns the location of the durable log
func (s *FileStore) Path() string {
	return s.path
}

// Append adds rec and rewrites the file. On a write failure the record stays in
// memory, so the next successful append will also persist it.
func (s *FileStore) Append(_ context.Context, rec models.FeedbackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.PersistenceError(ErrClosed, "failed to append feedback")
	}
	if err := checkEncodable(rec); err != nil {
		return errors.PersistenceError(err, "feedback record cannot be stored faithfully")
	}

	s.log = append(s.log, rec)

	if err := writeFileAtomic(s.path, s.log); err != nil {
		s.logger.Error("store.write.failed", "path", s.path, "records", len(s.log), "error", err)
		return errors.PersistenceErrorf(err, "failed to persist feedback log to %s", s.path).
			WithContext("records", len(s.log))
	}

	s.logger.Debug("store.write.ok", "path", s.path, "records", len(s.log))
	return nil
}

func (s *FileStore) List(_ context.Context) (models.FeedbackLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Clone(), nil
}

func (s *FileStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.log), nil
}

// Close stops further appends. Every append is already flushed, so there is nothing to write.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// encodeLog renders the log as an indented JSON array. HTML escaping is off so the
// feedback text is written exactly as received.
func encodeLog(log models.FeedbackLog) ([]byte, error) {
	if log == nil {
		log = models.FeedbackLog{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(log); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeFileAtomic(path string, log models.FeedbackLog) error {
	data, err := encodeLog(log)
	if err != nil {
		return fmt.Errorf("encode log: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp log file: %w", err)
	}
	tmpPath := tmpFile.Name()

	cleanup := func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}

	if _, err := tmpFile.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp log file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp log file: %w", err)
	}
	if err := tmpFile.Chmod(0644); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp log file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp log file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename log file to %s: %w", path, err)
	}

	return syncDir(filepath.Dir(path))
}

// syncDir flushes the directory entry so the rename survives a crash
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open log directory: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync log directory: %w", err)
	}
	return nil
}
