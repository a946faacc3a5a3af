package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rohankatakam/feedbackd/internal/feedback"
)

// AddFeedbackToolName is the name agents call
const AddFeedbackToolName = "add_feedback"

// Submitter is the ingestion entry point the tool delegates to
type Submitter interface {
	Submit(ctx context.Context, in feedback.Input) feedback.Result
}

// AddFeedbackTool records one piece of user feedback
type AddFeedbackTool struct {
	submitter Submitter
}

func NewAddFeedbackTool(submitter Submitter) *AddFeedbackTool {
	return &AddFeedbackTool{submitter: submitter}
}

// Definition returns the tool metadata; the input schema is inferred from AddFeedbackArgs
func (t *AddFeedbackTool) Definition() *mcp.Tool {
	return &mcp.Tool{
		Name: AddFeedbackToolName,
		Description: "Record a piece of user feedback, typically a complaint or an emotional reaction, " +
			"exactly as the user wrote it. Pass the user's words unmodified in text; " +
			"optionally tag the emotion, its intensity (1-5) and what triggered it.",
	}
}

// Handle runs one submission. Rejected and unpersisted feedback come back as tool
// errors; a failed push is reported in forward_error but is not an error.
func (t *AddFeedbackTool) Handle(ctx context.Context, _ *mcp.CallToolRequest, args AddFeedbackArgs) (*mcp.CallToolResult, any, error) {
	result := t.submitter.Submit(ctx, feedback.Input{
		Text:           args.Text,
		EmotionType:    args.EmotionType,
		Intensity:      args.Intensity,
		TriggerContext: args.TriggerContext,
	})

	resp := result.Response()
	res, err := jsonResult(resp, resp.IsError())
	if err != nil {
		return nil, nil, err
	}
	return res, nil, nil
}
