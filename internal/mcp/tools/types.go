package tools

import (
	"bytes"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AddFeedbackArgs are the add_feedback tool arguments. Only text is required.
type AddFeedbackArgs struct {
	Text           string `json:"text" jsonschema:"the feedback text exactly as the user wrote it; stored verbatim"`
	EmotionType    string `json:"emotion_type,omitempty" jsonschema:"optional emotion tag such as anger or frustration"`
	Intensity      *int   `json:"intensity,omitempty" jsonschema:"optional intensity from 1 (mild) to 5 (extreme); out-of-range values are clamped; default 3"`
	TriggerContext string `json:"trigger_context,omitempty" jsonschema:"optional description of what triggered the feedback"`
}

// marshalJSON encodes v without HTML escaping so feedback text round-trips as written
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// jsonResult wraps v as both text and structured tool content
func jsonResult(v any, isError bool) (*mcp.CallToolResult, error) {
	data, err := marshalJSON(v)
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: string(data)}},
		StructuredContent: json.RawMessage(data),
		IsError:           isError,
	}, nil
}
