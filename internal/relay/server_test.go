package relay

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rohankatakam/feedbackd/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const origin = "http://localhost:3000"

func newRelay(t *testing.T, keepAlive time.Duration, source LogSource) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(Config{AllowedOrigin: origin, KeepAlive: keepAlive}, source)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

// subscribe opens an SSE stream and consumes the initial blank line
func subscribe(t *testing.T, url string) (*bufio.Reader, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/sse", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	assert.Equal(t, origin, resp.Header.Get("Access-Control-Allow-Origin"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "\n", line)

	return reader, func() {
		cancel()
		resp.Body.Close()
	}
}

func readEvent(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	var sb strings.Builder
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if line == "\n" {
			return sb.String()
		}
		sb.WriteString(line)
	}
}

func push(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/push", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRelay_PushReachesEverySubscriber(t *testing.T) {
	s, srv := newRelay(t, time.Minute, nil)

	first, closeFirst := subscribe(t, srv.URL)
	defer closeFirst()
	second, closeSecond := subscribe(t, srv.URL)
	defer closeSecond()
	require.Equal(t, 2, s.Hub().Len())

	payload := `{"feedback":"坏了 <b>&</b>","intensity":5}`
	resp := push(t, srv.URL, payload)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, origin, resp.Header.Get("Access-Control-Allow-Origin"))
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(body))

	assert.Equal(t, "data: "+payload+"\n", readEvent(t, first))
	assert.Equal(t, "data: "+payload+"\n", readEvent(t, second))
}

func TestRelay_PushWithoutSubscribers(t *testing.T) {
	_, srv := newRelay(t, time.Minute, nil)

	resp := push(t, srv.URL, "plain text")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRelay_KeepAlive(t *testing.T) {
	_, srv := newRelay(t, 20*time.Millisecond, nil)

	stream, closeStream := subscribe(t, srv.URL)
	defer closeStream()

	assert.Equal(t, ":\n", readEvent(t, stream))
}

func TestRelay_UnsubscribeOnDisconnect(t *testing.T) {
	s, srv := newRelay(t, time.Minute, nil)

	_, closeStream := subscribe(t, srv.URL)
	require.Equal(t, 1, s.Hub().Len())
	closeStream()

	assert.Eventually(t, func() bool { return s.Hub().Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRelay_Routes(t *testing.T) {
	_, srv := newRelay(t, time.Minute, nil)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantCORS   bool
	}{
		{"preflight push", http.MethodOptions, "/push", http.StatusNoContent, true},
		{"preflight sse", http.MethodOptions, "/sse", http.StatusNoContent, true},
		{"preflight elsewhere", http.MethodOptions, "/anything", http.StatusNoContent, true},
		{"get push", http.MethodGet, "/push", http.StatusNotFound, true},
		{"unknown path", http.MethodGet, "/nope", http.StatusNotFound, false},
		{"health", http.MethodGet, "/healthz", http.StatusOK, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantCORS {
				assert.Equal(t, origin, resp.Header.Get("Access-Control-Allow-Origin"))
				assert.Equal(t, "Content-Type", resp.Header.Get("Access-Control-Allow-Headers"))
			}
		})
	}
}

func TestRelay_Feedback(t *testing.T) {
	rec := models.FeedbackRecord{
		Text:        "slow again",
		Timestamp:   time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		EmotionType: "impatience",
		Intensity:   2,
	}

	tests := []struct {
		name   string
		source LogSource
		want   int
	}{
		{"no source", nil, 0},
		{"records", func(context.Context) (models.FeedbackLog, error) {
			return models.FeedbackLog{rec, rec}, nil
		}, 2},
		{"unreadable log", func(context.Context) (models.FeedbackLog, error) {
			return nil, io.ErrUnexpectedEOF
		}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := newRelay(t, time.Minute, tt.source)

			resp, err := http.Get(srv.URL + "/feedback")
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, origin, resp.Header.Get("Access-Control-Allow-Origin"))

			var body struct {
				Feedback []models.FeedbackRecord `json:"feedback"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotNil(t, body.Feedback, "feedback is always a list, never null")
			assert.Len(t, body.Feedback, tt.want)
		})
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub()
	_, unsubscribe := h.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			h.Broadcast([]byte("x"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a subscriber that never reads")
	}

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, h.Len())
}
