package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rohankatakam/feedbackd/internal/feedback"
	"github.com/rohankatakam/feedbackd/internal/mcp/tools"
)

// Server exposes the ingestion service as an MCP server with one tool
// (add_feedback) and one resource (feedback://log).
type Server struct {
	service *feedback.Service
	server  *mcp.Server
	logger  *slog.Logger
}

// NewServer registers the feedback tool and resource on a fresh MCP server
func NewServer(service *feedback.Service, name, version string) *Server {
	server := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)

	addFeedback := tools.NewAddFeedbackTool(service)
	mcp.AddTool(server, addFeedback.Definition(), addFeedback.Handle)

	feedbackLog := tools.NewFeedbackLogResource(service.Store())
	server.AddResource(feedbackLog.Definition(), feedbackLog.Read)

	return &Server{
		service: service,
		server:  server,
		logger:  slog.Default().With("component", "mcp"),
	}
}

// MCP returns the underlying protocol server
func (s *Server) MCP() *mcp.Server {
	return s.server
}

// Handler serves the streamable HTTP transport at path plus GET /healthz
func (s *Server) Handler(path string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(path, mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

type healthResponse struct {
	Status  string                 `json:"status"`
	Records int                    `json:"records"`
	Stats   feedback.StatsSnapshot `json:"stats"`
	Error   string                 `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Stats: s.service.Stats().Snapshot()}
	status := http.StatusOK

	n, err := s.service.Store().Count(r.Context())
	if err != nil {
		resp.Status = "degraded"
		resp.Error = err.Error()
		status = http.StatusServiceUnavailable
	}
	resp.Records = n

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// Connect attaches the server to a single transport, e.g. one half of an
// in-memory pair.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}
