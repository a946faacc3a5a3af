package forward

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/rohankatakam/feedbackd/internal/models"
	"golang.org/x/sync/errgroup"
)

// Fanout forwards every record to all of its sinks concurrently. The combined
// result is delivered only when every sink delivered.
type Fanout struct {
	sinks []Forwarder
}

func NewFanout(sinks ...Forwarder) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Name() string {
	names := make([]string, len(f.sinks))
	for i, s := range f.sinks {
		names[i] = s.Name()
	}
	return strings.Join(names, "+")
}

func (f *Fanout) Forward(ctx context.Context, rec models.FeedbackRecord) Result {
	results := make([]Result, len(f.sinks))

	var g errgroup.Group
	for i, sink := range f.sinks {
		g.Go(func() error {
			results[i] = sink.Forward(ctx, rec)
			return nil
		})
	}
	g.Wait()

	return Combine(f.Name(), results)
}

// Combine folds per-sink results into one
func Combine(name string, results []Result) Result {
	combined := Result{Sink: name, Skipped: true, Delivered: true}

	var errs []error
	for _, r := range results {
		if r.Skipped {
			continue
		}
		combined.Skipped = false
		if !r.Delivered {
			combined.Delivered = false
			if r.Err != nil {
				errs = append(errs, r.Err)
			}
		}
		if r.StatusCode != 0 {
			combined.StatusCode = r.StatusCode
		}
	}

	if combined.Skipped {
		combined.Delivered = false
	}
	combined.Err = stderrors.Join(errs...)
	return combined
}

func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
