package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rohankatakam/feedbackd/internal/feedback"
	"github.com/rohankatakam/feedbackd/internal/mcp/tools"
)

// SendFeedback connects to a feedbackd server at endpoint over streamable HTTP,
// calls add_feedback once and decodes the tool's response.
func SendFeedback(ctx context.Context, endpoint string, args tools.AddFeedbackArgs) (feedback.Response, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: "feedbackd-send", Version: "dev"}, nil)

	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: endpoint}, nil)
	if err != nil {
		return feedback.Response{}, fmt.Errorf("connect to %s: %w", endpoint, err)
	}
	defer session.Close()

	return CallAddFeedback(ctx, session, args)
}

// CallAddFeedback calls add_feedback on an established session
func CallAddFeedback(ctx context.Context, session *mcp.ClientSession, args tools.AddFeedbackArgs) (feedback.Response, error) {
	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      tools.AddFeedbackToolName,
		Arguments: args,
	})
	if err != nil {
		return feedback.Response{}, fmt.Errorf("call %s: %w", tools.AddFeedbackToolName, err)
	}

	for _, c := range res.Content {
		text, ok := c.(*mcp.TextContent)
		if !ok {
			continue
		}
		var resp feedback.Response
		if err := json.Unmarshal([]byte(text.Text), &resp); err != nil {
			if res.IsError {
				return feedback.Response{Error: text.Text}, nil
			}
			return feedback.Response{}, fmt.Errorf("decode %s response: %w", tools.AddFeedbackToolName, err)
		}
		return resp, nil
	}

	if res.IsError {
		return feedback.Response{Error: "tool reported an error without content"}, nil
	}
	return feedback.Response{}, fmt.Errorf("%s returned no text content", tools.AddFeedbackToolName)
}
