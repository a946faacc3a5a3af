package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rohankatakam/feedbackd/internal/errors"
	"github.com/rohankatakam/feedbackd/internal/models"
	bolt "go.etcd.io/bbolt"
)

const bucketName = "feedback"

// BoltStore keeps each record under a big-endian sequence key, so a cursor walk
// returns the log in arrival order. Every Update commit is fsynced by bbolt.
type BoltStore struct {
	db     *bolt.DB
	logger *slog.Logger
}

// OpenBoltStore opens (or creates) a bbolt database at path
func OpenBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create %s bucket: %w", bucketName, err)
	}

	s := &BoltStore{
		db:     db,
		logger: slog.Default().With("component", "store", "backend", "bolt"),
	}
	n, err := s.Count(context.Background())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("count records in %s: %w", path, err)
	}
	s.logger.Info("store.load.ok", "path", path, "records", n)
	return s, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func (s *BoltStore) Append(_ context.Context, rec models.FeedbackRecord) error {
	if err := checkEncodable(rec); err != nil {
		return errors.PersistenceError(err, "feedback record cannot be stored faithfully")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return errors.PersistenceError(err, "failed to encode feedback record")
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return bolt.ErrBucketNotFound
		}
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		return bucket.Put(itob(seq), data)
	})
	if err != nil {
		s.logger.Error("store.write.failed", "error", err)
		return errors.PersistenceError(err, "failed to persist feedback record")
	}
	return nil
}

func (s *BoltStore) List(_ context.Context) (models.FeedbackLog, error) {
	log := models.FeedbackLog{}
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return bolt.ErrBucketNotFound
		}
		return bucket.ForEach(func(k, v []byte) error {
			var rec models.FeedbackRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record %d: %w", binary.BigEndian.Uint64(k), err)
			}
			log = append(log, rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return log, nil
}

func (s *BoltStore) Count(_ context.Context) (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return bolt.ErrBucketNotFound
		}
		n = bucket.Stats().KeyN
		return nil
	})
	return n, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
