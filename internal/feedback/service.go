package feedback

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/rohankatakam/feedbackd/internal/errors"
	"github.com/rohankatakam/feedbackd/internal/forward"
	"github.com/rohankatakam/feedbackd/internal/models"
	"github.com/rohankatakam/feedbackd/internal/storage"
)

// Outcome is the terminal state of one submission
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeRejectedEmpty
	OutcomePersistenceFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejectedEmpty:
		return "rejected_empty"
	case OutcomePersistenceFailed:
		return "persistence_failed"
	default:
		return "unknown"
	}
}

// Result is what Submit reports back. Record is set for Accepted and
// PersistenceFailed; Err is set for RejectedEmpty and PersistenceFailed.
type Result struct {
	ID           string
	Outcome      Outcome
	Record       models.FeedbackRecord
	Forwarded    bool
	ForwardError string
	Err          error
}

// Service is the single ingestion entry point: build, persist, then forward.
type Service struct {
	store     storage.Store
	forwarder forward.Forwarder
	builder   *Builder
	stats     *Stats
	logger    *slog.Logger

	// mu serializes build+append so log order matches timestamp order
	mu sync.Mutex
}

// NewService wires a service. A nil forwarder means no forwarding.
func NewService(store storage.Store, forwarder forward.Forwarder, builder *Builder) *Service {
	if forwarder == nil {
		forwarder = forward.Nop{}
	}
	if builder == nil {
		builder = NewBuilder(models.Unclassified)
	}
	return &Service{
		store:     store,
		forwarder: forwarder,
		builder:   builder,
		stats:     &Stats{},
		logger:    slog.Default().With("component", "ingest"),
	}
}

// Stats exposes the outcome counters
func (s *Service) Stats() *Stats {
	return s.stats
}

// Store returns the log the service appends to
func (s *Service) Store() storage.Store {
	return s.store
}

// Submit runs one submission to completion. Once started it is not cancelled by
// ctx: persistence and forwarding run on a context detached from the caller's.
func (s *Service) Submit(ctx context.Context, in Input) Result {
	ctx = context.WithoutCancel(ctx)
	result := Result{ID: uuid.New().String()}
	logger := s.logger.With("submission_id", result.ID)

	s.mu.Lock()
	rec, err := s.builder.Build(in)
	if err != nil {
		s.mu.Unlock()
		result.Outcome = OutcomeRejectedEmpty
		result.Err = err
		logger.Info("ingest.rejected", "reason", err.Error())
		s.stats.record(result)
		return result
	}
	result.Record = rec

	err = s.store.Append(ctx, rec)
	s.mu.Unlock()

	if err != nil {
		result.Outcome = OutcomePersistenceFailed
		if !errors.IsPersistence(err) {
			err = errors.PersistenceError(err, "failed to persist feedback")
		}
		result.Err = err
		logger.Error("ingest.persist.failed", "error", err, "emotion_type", rec.EmotionType)
		s.stats.record(result)
		return result
	}

	result.Outcome = OutcomeAccepted
	fwd := s.forwarder.Forward(ctx, rec)
	result.Forwarded = fwd.Delivered
	result.ForwardError = fwd.Message()
	if fwd.Failed() {
		logger.Warn("ingest.forward.failed", "sink", fwd.Sink, "error", result.ForwardError)
	}

	logger.Info("ingest.accepted",
		"emotion_type", rec.EmotionType,
		"intensity", rec.Intensity,
		"text_len", len(rec.Text),
		"forwarded", result.Forwarded,
	)
	s.stats.record(result)
	return result
}
