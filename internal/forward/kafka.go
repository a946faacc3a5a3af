package forward

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rohankatakam/feedbackd/internal/errors"
	"github.com/rohankatakam/feedbackd/internal/models"
	"github.com/segmentio/kafka-go"
)

// KafkaForwarder produces each record as one message on a Kafka topic, keyed by
// the record timestamp.
type KafkaForwarder struct {
	writer  *kafka.Writer
	topic   string
	timeout time.Duration
	logger  *slog.Logger
}

func NewKafkaForwarder(brokers []string, topic string, timeout time.Duration) (*KafkaForwarder, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, errors.ConfigError("forward.kafka.brokers and forward.kafka.topic are required for the kafka sink")
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	return &KafkaForwarder{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: timeout,
			MaxAttempts:  1,
		},
		topic:   topic,
		timeout: timeout,
		logger: slog.Default().With("component", "forward", "sink", "kafka",
			"brokers", strings.Join(brokers, ",")),
	}, nil
}

func (f *KafkaForwarder) Name() string { return "kafka" }

func (f *KafkaForwarder) Forward(ctx context.Context, rec models.FeedbackRecord) Result {
	result := Result{Sink: f.Name()}

	value, err := encodeRecord(rec)
	if err != nil {
		result.Err = errors.ForwardError(err, "failed to encode push payload")
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	err = f.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(rec.Timestamp.Format(time.RFC3339Nano)),
		Value: value,
		Time:  rec.Timestamp,
	})
	if err != nil {
		f.logger.Warn("forward.failed", "topic", f.topic, "error", err)
		result.Err = errors.ForwardError(err, fmt.Sprintf("produce to kafka topic %s failed", f.topic))
		return result
	}

	result.Delivered = true
	return result
}

func (f *KafkaForwarder) Close() error {
	return f.writer.Close()
}
