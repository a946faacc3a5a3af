package relay

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/rohankatakam/feedbackd/internal/models"
)

// maxPushBytes bounds a single pushed payload
const maxPushBytes = 1 << 20

// LogSource returns the current feedback log for GET /feedback
type LogSource func(ctx context.Context) (models.FeedbackLog, error)

// Config holds the relay settings
type Config struct {
	AllowedOrigin string
	KeepAlive     time.Duration
}

// Server is the push sink: POST /push is broadcast to every GET /sse stream
type Server struct {
	hub    *Hub
	source LogSource
	cfg    Config
	logger *slog.Logger
}

// NewServer creates a relay. source may be nil, in which case /feedback is always empty.
func NewServer(cfg Config, source LogSource) *Server {
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 15 * time.Second
	}
	return &Server{
		hub:    NewHub(),
		source: source,
		cfg:    cfg,
		logger: slog.Default().With("component", "relay"),
	}
}

// Hub returns the subscriber hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler routes the relay endpoints; anything else is 404
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			s.preflight(w)
			return
		}
		http.NotFound(w, r)
	})
	mux.HandleFunc("/push", s.cors(http.MethodPost, s.handlePush))
	mux.HandleFunc("/sse", s.cors(http.MethodGet, s.handleSSE))
	mux.HandleFunc("/feedback", s.cors(http.MethodGet, s.handleFeedback))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

func (s *Server) preflight(w http.ResponseWriter) {
	s.setCORS(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setCORS(w http.ResponseWriter) {
	if s.cfg.AllowedOrigin != "" {
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.AllowedOrigin)
	}
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// cors answers preflights, sets CORS headers and restricts the route to method
func (s *Server) cors(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			s.preflight(w)
			return
		}
		s.setCORS(w)
		if r.Method != method {
			http.NotFound(w, r)
			return
		}
		next(w, r)
	}
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPushBytes))
	if err != nil {
		s.logger.Warn("relay.push.read_failed", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	n := s.hub.Broadcast(body)
	s.logger.Debug("relay.push", "bytes", len(body), "subscribers", n)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "ok")
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	events, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "\n")
	flusher.Flush()

	s.logger.Info("relay.subscriber.connected", "remote", r.RemoteAddr, "subscribers", s.hub.Len())
	defer s.logger.Info("relay.subscriber.disconnected", "remote", r.RemoteAddr)

	ticker := time.NewTicker(s.cfg.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case payload := <-events:
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := io.WriteString(w, ":\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

type feedbackList struct {
	Feedback models.FeedbackLog `json:"feedback"`
}

// handleFeedback returns the whole log. A log that cannot be read is served as
// an empty list so the page still renders.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	log := models.FeedbackLog{}
	if s.source != nil {
		current, err := s.source(r.Context())
		if err != nil {
			s.logger.Warn("relay.feedback.read_failed", "error", err)
		} else if current != nil {
			log = current
		}
	}

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(feedbackList{Feedback: log})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"subscribers": s.hub.Len(),
	})
}

// ListenAndServe runs the relay on addr until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("relay.start", "addr", ln.Addr().String(), "allowed_origin", s.cfg.AllowedOrigin)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("relay server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("relay.shutdown")
	return srv.Shutdown(shutdownCtx)
}
