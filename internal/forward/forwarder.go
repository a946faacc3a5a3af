package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/rohankatakam/feedbackd/internal/config"
	"github.com/rohankatakam/feedbackd/internal/models"
)

// Forwarder pushes a copy of a persisted record to a downstream sink.
// Forward never returns an error: every failure is reported in the Result.
type Forwarder interface {
	Forward(ctx context.Context, rec models.FeedbackRecord) Result
	Name() string
	Close() error
}

// Result describes one forward attempt
type Result struct {
	Sink       string
	Delivered  bool
	Skipped    bool // no sink configured, nothing was attempted
	StatusCode int  // HTTP sinks only
	Err        error
}

// Failed reports whether a delivery was attempted and did not succeed
func (r Result) Failed() bool {
	return !r.Skipped && !r.Delivered
}

// Message returns the diagnostic text of a failed attempt, or "" otherwise
func (r Result) Message() string {
	if !r.Failed() {
		return ""
	}
	if r.Err == nil {
		return fmt.Sprintf("%s: not delivered", r.Sink)
	}
	return r.Err.Error()
}

// Nop is the forwarder used when no sink is configured
type Nop struct{}

func (Nop) Forward(context.Context, models.FeedbackRecord) Result {
	return Result{Sink: "none", Skipped: true}
}

func (Nop) Name() string { return "none" }

func (Nop) Close() error { return nil }

// New builds the forwarder for cfg.Sinks. No sinks (or only "none") gives Nop;
// several sinks are fanned out.
func New(cfg config.ForwardConfig) (Forwarder, error) {
	var sinks []Forwarder
	for _, name := range cfg.Sinks {
		var (
			f   Forwarder
			err error
		)
		switch name {
		case "", "none":
			continue
		case "http":
			f, err = NewHTTPForwarder(cfg.HTTP.URL, cfg.HTTP.Payload, cfg.Timeout, cfg.HTTP.RateLimit)
		case "redis":
			f, err = NewRedisForwarder(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.Channel, cfg.Timeout)
		case "kafka":
			f, err = NewKafkaForwarder(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Timeout)
		default:
			err = fmt.Errorf("unknown forward sink %q", name)
		}
		if err != nil {
			for _, s := range sinks {
				s.Close()
			}
			return nil, err
		}
		sinks = append(sinks, f)
	}

	switch len(sinks) {
	case 0:
		return Nop{}, nil
	case 1:
		return sinks[0], nil
	default:
		return NewFanout(sinks...), nil
	}
}

// encodeRecord renders rec the way the durable log does, without HTML escaping
func encodeRecord(rec models.FeedbackRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
