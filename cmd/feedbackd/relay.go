package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rohankatakam/feedbackd/internal/config"
	"github.com/rohankatakam/feedbackd/internal/models"
	"github.com/rohankatakam/feedbackd/internal/relay"
	"github.com/rohankatakam/feedbackd/internal/storage"
	"github.com/spf13/cobra"
)

var relayAddr string

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the SSE relay that acts as the HTTP push sink",
	Long: `Run the server-sent-events relay. Every body POSTed to /push is broadcast as
"data: <body>" to each client subscribed on /sse. GET /feedback returns the
durable log read from the configured storage.

Point the MCP server at it with forward.sinks: [http] and
forward.http.url: http://localhost:3001/push (or PUSH_SINK_URL).`,
	RunE: runRelay,
}

func init() {
	relayCmd.Flags().StringVar(&relayAddr, "addr", "", "listen address (default from config, :3001)")
}

func runRelay(cmd *cobra.Command, args []string) error {
	if relayAddr != "" {
		cfg.Relay.Addr = relayAddr
	}
	if err := validate(config.ValidationContextRelay); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storageCfg := cfg.Storage
	source := func(ctx context.Context) (models.FeedbackLog, error) {
		return storage.Snapshot(ctx, storageCfg)
	}

	server := relay.NewServer(relay.Config{
		AllowedOrigin: cfg.Relay.AllowedOrigin,
		KeepAlive:     cfg.Relay.KeepAlive,
	}, source)

	logger.Infof("SSE relay listening on %s", cfg.Relay.Addr)
	if err := server.ListenAndServe(ctx, cfg.Relay.Addr); err != nil {
		return err
	}
	logger.Info("Relay stopped")
	return nil
}
