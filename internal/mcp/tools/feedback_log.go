package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rohankatakam/feedbackd/internal/models"
)

// FeedbackLogURI identifies the full feedback log resource
const FeedbackLogURI = "feedback://log"

// LogReader lists the durable log
type LogReader interface {
	List(ctx context.Context) (models.FeedbackLog, error)
}

// FeedbackLogResource exposes the ordered log as a read-only JSON resource
type FeedbackLogResource struct {
	reader LogReader
}

func NewFeedbackLogResource(reader LogReader) *FeedbackLogResource {
	return &FeedbackLogResource{reader: reader}
}

func (r *FeedbackLogResource) Definition() *mcp.Resource {
	return &mcp.Resource{
		URI:         FeedbackLogURI,
		Name:        "feedback-log",
		Description: "Every recorded feedback entry, oldest first",
		MIMEType:    "application/json",
	}
}

func (r *FeedbackLogResource) Read(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	log, err := r.reader.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("read feedback log: %w", err)
	}
	if log == nil {
		log = models.FeedbackLog{}
	}

	data, err := marshalJSON(log)
	if err != nil {
		return nil, fmt.Errorf("encode feedback log: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      FeedbackLogURI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
