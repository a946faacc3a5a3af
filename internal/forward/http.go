package forward

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rohankatakam/feedbackd/internal/errors"
	"github.com/rohankatakam/feedbackd/internal/models"
	"golang.org/x/time/rate"
)

// Payload modes for the HTTP sink
const (
	PayloadRecord = "record"
	PayloadText   = "text"
)

// HTTPForwarder POSTs each record to a fixed push-sink URL. Only a 200 response
// counts as delivered.
type HTTPForwarder struct {
	url     string
	payload string
	timeout time.Duration
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewHTTPForwarder creates an HTTP sink. ratePerSec <= 0 disables throttling;
// otherwise pushes beyond the rate are dropped and reported as failures.
func NewHTTPForwarder(url, payload string, timeout time.Duration, ratePerSec float64) (*HTTPForwarder, error) {
	if url == "" {
		return nil, errors.ConfigError("forward.http.url is required for the http sink")
	}
	if payload == "" {
		payload = PayloadRecord
	}
	if payload != PayloadRecord && payload != PayloadText {
		return nil, errors.ConfigErrorf("unknown http payload mode %q", payload)
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	f := &HTTPForwarder{
		url:     url,
		payload: payload,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  slog.Default().With("component", "forward", "sink", "http"),
	}
	if ratePerSec > 0 {
		burst := int(ratePerSec)
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(ratePerSec), burst)
	}
	return f, nil
}

func (f *HTTPForwarder) Name() string { return "http" }

func (f *HTTPForwarder) Forward(ctx context.Context, rec models.FeedbackRecord) Result {
	result := Result{Sink: f.Name()}

	if f.limiter != nil && !f.limiter.Allow() {
		result.Err = errors.ForwardErrorf("push to %s dropped: rate limit exceeded", f.url)
		return result
	}

	body, contentType, err := f.body(rec)
	if err != nil {
		result.Err = errors.ForwardError(err, "failed to encode push payload")
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		result.Err = errors.ForwardError(err, "failed to build push request")
		return result
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("forward.failed", "url", f.url, "error", err)
		result.Err = errors.ForwardError(err, fmt.Sprintf("push to %s failed", f.url))
		return result
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	result.StatusCode = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		f.logger.Warn("forward.rejected", "url", f.url, "status", resp.StatusCode)
		result.Err = errors.ForwardErrorf("push to %s returned status %d", f.url, resp.StatusCode)
		return result
	}

	result.Delivered = true
	return result
}

func (f *HTTPForwarder) body(rec models.FeedbackRecord) ([]byte, string, error) {
	if f.payload == PayloadText {
		return []byte(rec.Text), "text/plain; charset=utf-8", nil
	}
	data, err := encodeRecord(rec)
	return data, "application/json", err
}

func (f *HTTPForwarder) Close() error {
	f.client.CloseIdleConnections()
	return nil
}
