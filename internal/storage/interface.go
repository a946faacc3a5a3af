package storage

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/rohankatakam/feedbackd/internal/models"
)

// Common errors
var (
	ErrClosed      = errors.New("store is closed")
	ErrCorruptLog  = errors.New("feedback log is corrupt")
	ErrInvalidUTF8 = errors.New("record contains invalid UTF-8")
)

// Store is an append-only, ordered feedback log. Implementations are safe for
// concurrent use, but callers that need arrival order to match timestamp order
// must serialize Append themselves.
type Store interface {
	// Append adds rec to the end of the log and makes it durable before returning.
	// A returned error is a persistence error: the record may or may not be on disk.
	Append(ctx context.Context, rec models.FeedbackRecord) error

	// List returns a copy of the whole log in insertion order
	List(ctx context.Context) (models.FeedbackLog, error)

	// Count returns the number of records in the log
	Count(ctx context.Context) (int, error)

	Close() error
}

// checkEncodable reports the first string field of rec that JSON encoding would
// rewrite. encoding/json replaces invalid UTF-8 with U+FFFD, so such a record
// cannot be stored byte for byte.
func checkEncodable(rec models.FeedbackRecord) error {
	fields := []struct {
		name, value string
	}{
		{"feedback", rec.Text},
		{"emotion_type", rec.EmotionType},
		{"trigger_context", rec.TriggerContext},
	}
	for _, f := range fields {
		if !utf8.ValidString(f.value) {
			return fmt.Errorf("%w in field %s", ErrInvalidUTF8, f.name)
		}
	}
	return nil
}
