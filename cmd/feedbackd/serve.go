package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rohankatakam/feedbackd/internal/config"
	"github.com/rohankatakam/feedbackd/internal/feedback"
	"github.com/rohankatakam/feedbackd/internal/forward"
	"github.com/rohankatakam/feedbackd/internal/mcp"
	"github.com/rohankatakam/feedbackd/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	serveTransport string
	serveHost      string
	servePort      int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server exposing add_feedback",
	Long: `Run the MCP server. With --transport http (default) the streamable HTTP endpoint
is served at server.path (default /mcp) on server.host:server.port (default 0.0.0.0:10086),
with a health check at /healthz. With --transport stdio the server speaks MCP over
stdin/stdout for a single client.

Examples:
  feedbackd serve
  feedbackd serve --port 8080
  feedbackd serve --transport stdio`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveTransport, "transport", "", "MCP transport: http or stdio (default from config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host for the http transport (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port for the http transport (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveTransport != "" {
		cfg.Server.Transport = serveTransport
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if err := validate(config.ValidationContextServe); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	server := mcp.NewServer(svc, cfg.Server.Name, Version)

	switch cfg.Server.Transport {
	case "stdio":
		logger.Info("Serving MCP over stdio")
		err = server.RunStdio(ctx)
	default:
		logger.Infof("Serving MCP on http://%s%s", cfg.Server.Addr(), cfg.Server.Path)
		err = server.ListenAndServe(ctx, cfg.Server.Addr(), cfg.Server.Path)
	}
	if err != nil {
		return err
	}

	logger.Info("Shut down gracefully")
	return nil
}

// buildService opens the configured store and forwarder and wires them together
func buildService(ctx context.Context) (*feedback.Service, func(), error) {
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.Storage.Type, err)
	}

	fwd, err := forward.New(cfg.Forward)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("configure forwarding: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"storage": cfg.Storage.Type,
		"path":    cfg.Storage.Path,
		"forward": fwd.Name(),
	}).Info("Ingestion pipeline ready")

	svc := feedback.NewService(store, fwd, feedback.NewBuilder(cfg.Record.Unclassified))
	cleanup := func() {
		if err := fwd.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close forwarder")
		}
		if err := store.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close store")
		}
	}
	return svc, cleanup, nil
}
