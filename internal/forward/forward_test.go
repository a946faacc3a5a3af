package forward

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rohankatakam/feedbackd/internal/config"
	"github.com/rohankatakam/feedbackd/internal/errors"
	"github.com/rohankatakam/feedbackd/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() models.FeedbackRecord {
	return models.FeedbackRecord{
		Text:           "<b>broken</b> & 坏了",
		Timestamp:      time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC),
		EmotionType:    "anger",
		Intensity:      5,
		TriggerContext: "deploy",
	}
}

type capturedPush struct {
	mu          sync.Mutex
	bodies      []string
	contentType string
}

func (c *capturedPush) snapshot() ([]string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.bodies...), c.contentType
}

func sink(t *testing.T, status int) (*httptest.Server, *capturedPush) {
	t.Helper()
	captured := &capturedPush{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		captured.mu.Lock()
		captured.bodies = append(captured.bodies, string(body))
		captured.contentType = r.Header.Get("Content-Type")
		captured.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func TestHTTPForwarder_RecordPayload(t *testing.T) {
	srv, captured := sink(t, http.StatusOK)

	f, err := NewHTTPForwarder(srv.URL, PayloadRecord, time.Second, 0)
	require.NoError(t, err)

	result := f.Forward(context.Background(), testRecord())
	assert.True(t, result.Delivered)
	assert.False(t, result.Failed())
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Empty(t, result.Message())

	bodies, contentType := captured.snapshot()
	require.Len(t, bodies, 1)
	assert.Equal(t, "application/json", contentType)

	var got models.FeedbackRecord
	require.NoError(t, json.Unmarshal([]byte(bodies[0]), &got))
	assert.Equal(t, testRecord(), got)
	assert.Contains(t, bodies[0], "<b>broken</b> & 坏了")
}

func TestHTTPForwarder_TextPayload(t *testing.T) {
	srv, captured := sink(t, http.StatusOK)

	f, err := NewHTTPForwarder(srv.URL, PayloadText, time.Second, 0)
	require.NoError(t, err)

	result := f.Forward(context.Background(), testRecord())
	require.True(t, result.Delivered)
	bodies, contentType := captured.snapshot()
	assert.Equal(t, []string{"<b>broken</b> & 坏了"}, bodies)
	assert.Contains(t, contentType, "text/plain")
}

func TestHTTPForwarder_Failures(t *testing.T) {
	tests := []struct {
		name       string
		url        func(t *testing.T) string
		timeout    time.Duration
		wantStatus int
	}{
		{
			name:       "non-200 status",
			url:        func(t *testing.T) string { srv, _ := sink(t, http.StatusAccepted); return srv.URL },
			timeout:    time.Second,
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "server error",
			url:        func(t *testing.T) string { srv, _ := sink(t, http.StatusInternalServerError); return srv.URL },
			timeout:    time.Second,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "unreachable",
			url: func(t *testing.T) string {
				srv := httptest.NewServer(http.NotFoundHandler())
				url := srv.URL
				srv.Close()
				return url
			},
			timeout: time.Second,
		},
		{
			name: "timeout",
			url: func(t *testing.T) string {
				release := make(chan struct{})
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					select {
					case <-release:
					case <-r.Context().Done():
					}
				}))
				t.Cleanup(func() { close(release); srv.Close() })
				return srv.URL
			},
			timeout: 100 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewHTTPForwarder(tt.url(t), PayloadRecord, tt.timeout, 0)
			require.NoError(t, err)

			start := time.Now()
			result := f.Forward(context.Background(), testRecord())

			assert.False(t, result.Delivered)
			assert.True(t, result.Failed())
			assert.Equal(t, tt.wantStatus, result.StatusCode)
			assert.True(t, errors.IsForward(result.Err))
			assert.NotEmpty(t, result.Message())
			assert.Less(t, time.Since(start), 5*time.Second)
		})
	}
}

func TestHTTPForwarder_RateLimit(t *testing.T) {
	srv, captured := sink(t, http.StatusOK)

	f, err := NewHTTPForwarder(srv.URL, PayloadRecord, time.Second, 1)
	require.NoError(t, err)

	first := f.Forward(context.Background(), testRecord())
	second := f.Forward(context.Background(), testRecord())

	assert.True(t, first.Delivered)
	assert.True(t, second.Failed())
	assert.Contains(t, second.Message(), "rate limit")
	bodies, _ := captured.snapshot()
	assert.Len(t, bodies, 1)
}

func TestNewHTTPForwarder_Invalid(t *testing.T) {
	_, err := NewHTTPForwarder("", PayloadRecord, time.Second, 0)
	assert.Error(t, err)

	_, err = NewHTTPForwarder("http://localhost:3001/push", "xml", time.Second, 0)
	assert.Error(t, err)
}

func TestRedisForwarder_Unreachable(t *testing.T) {
	f, err := NewRedisForwarder("127.0.0.1:1", "", "feedback", 200*time.Millisecond)
	require.NoError(t, err, "an unreachable redis must not fail construction")
	defer f.Close()

	result := f.Forward(context.Background(), testRecord())
	assert.True(t, result.Failed())
	assert.True(t, errors.IsForward(result.Err))
}

func TestKafkaForwarder_Unreachable(t *testing.T) {
	f, err := NewKafkaForwarder([]string{"127.0.0.1:1"}, "feedback", 300*time.Millisecond)
	require.NoError(t, err)
	defer f.Close()

	result := f.Forward(context.Background(), testRecord())
	assert.True(t, result.Failed())
	assert.True(t, errors.IsForward(result.Err))
}

type stubForwarder struct {
	name   string
	result Result
	calls  int
	mu     sync.Mutex
}

func (s *stubForwarder) Forward(context.Context, models.FeedbackRecord) Result {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	r := s.result
	r.Sink = s.name
	return r
}

func (s *stubForwarder) Name() string { return s.name }
func (s *stubForwarder) Close() error { return nil }

func TestFanout(t *testing.T) {
	ok := Result{Delivered: true}
	failed := Result{Err: errors.ForwardErrorf("sink down")}
	skipped := Result{Skipped: true}

	tests := []struct {
		name          string
		results       []Result
		wantDelivered bool
		wantSkipped   bool
	}{
		{"all delivered", []Result{ok, ok}, true, false},
		{"one failed", []Result{ok, failed}, false, false},
		{"all skipped", []Result{skipped, skipped}, false, true},
		{"skipped and delivered", []Result{skipped, ok}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sinks []Forwarder
			var stubs []*stubForwarder
			for i, r := range tt.results {
				s := &stubForwarder{name: string(rune('a' + i)), result: r}
				stubs = append(stubs, s)
				sinks = append(sinks, s)
			}

			fan := NewFanout(sinks...)
			result := fan.Forward(context.Background(), testRecord())

			assert.Equal(t, tt.wantDelivered, result.Delivered)
			assert.Equal(t, tt.wantSkipped, result.Skipped)
			assert.Equal(t, "a+b", fan.Name())
			for _, s := range stubs {
				assert.Equal(t, 1, s.calls)
			}
			if result.Failed() {
				assert.Contains(t, result.Message(), "sink down")
			}
		})
	}
}

func TestNew(t *testing.T) {
	cfg := config.Default().Forward

	f, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, Nop{}, f)
	assert.True(t, f.Forward(context.Background(), testRecord()).Skipped)

	cfg.Sinks = []string{"none"}
	f, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, Nop{}, f)

	cfg.Sinks = []string{"http"}
	f, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &HTTPForwarder{}, f)

	cfg.Sinks = []string{"http", "kafka"}
	cfg.Kafka.Brokers = []string{"127.0.0.1:1"}
	f, err = New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "http+kafka", f.Name())
	require.NoError(t, f.Close())

	cfg.Sinks = []string{"carrier-pigeon"}
	_, err = New(cfg)
	assert.Error(t, err)
}
