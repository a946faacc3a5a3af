package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rohankatakam/feedbackd/internal/config"
	"github.com/rohankatakam/feedbackd/internal/mcp"
	"github.com/rohankatakam/feedbackd/internal/mcp/tools"
	"github.com/spf13/cobra"
)

var (
	sendServer    string
	sendText      string
	sendEmotion   string
	sendIntensity int
	sendContext   string
	sendTimeout   time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Call add_feedback on a running server",
	Long: `Connect to a feedbackd MCP server over streamable HTTP, call add_feedback once
and print the tool response. Exits non-zero when the tool reports an error.

Examples:
  feedbackd send --text "this is broken" --intensity 9
  feedbackd send --server http://localhost:10086/mcp --text "太慢了" --emotion 烦躁`,
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendServer, "server", "", "MCP endpoint (default $FEEDBACKD_SERVER_URL or http://localhost:<port><path>)")
	sendCmd.Flags().StringVarP(&sendText, "text", "t", "", "feedback text (required)")
	sendCmd.Flags().StringVarP(&sendEmotion, "emotion", "e", "", "emotion tag")
	sendCmd.Flags().IntVarP(&sendIntensity, "intensity", "i", 3, "intensity 1-5")
	sendCmd.Flags().StringVarP(&sendContext, "context", "c", "", "what triggered the feedback")
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 10*time.Second, "overall timeout")
	sendCmd.MarkFlagRequired("text")
}

func runSend(cmd *cobra.Command, args []string) error {
	endpoint := sendServer
	if endpoint == "" {
		endpoint = config.GetString("FEEDBACKD_SERVER_URL",
			fmt.Sprintf("http://localhost:%d%s", cfg.Server.Port, cfg.Server.Path))
	}

	toolArgs := tools.AddFeedbackArgs{
		Text:           sendText,
		EmotionType:    sendEmotion,
		TriggerContext: sendContext,
	}
	if cmd.Flags().Changed("intensity") {
		toolArgs.Intensity = &sendIntensity
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), sendTimeout)
	defer cancel()

	logger.Debugf("Calling %s on %s", tools.AddFeedbackToolName, endpoint)
	resp, err := mcp.SendFeedback(ctx, endpoint, toolArgs)
	if err != nil {
		return err
	}

	out := json.NewEncoder(cmd.OutOrStdout())
	out.SetEscapeHTML(false)
	out.SetIndent("", "  ")
	if err := out.Encode(resp); err != nil {
		return err
	}

	if resp.IsError() {
		return fmt.Errorf("add_feedback failed: %s", resp.Error)
	}
	if resp.ForwardError != "" {
		logger.Warnf("Saved, but not forwarded: %s", resp.ForwardError)
	}
	return nil
}
