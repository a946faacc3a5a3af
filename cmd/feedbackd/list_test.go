package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rohankatakam/feedbackd/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleLog() models.FeedbackLog {
	return models.FeedbackLog{
		{Text: "this is broken", Timestamp: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC), EmotionType: "unclassified", Intensity: 5},
		{Text: "多行\n反馈 <&>", Timestamp: time.Date(2025, 5, 1, 10, 1, 0, 0, time.UTC), EmotionType: "愤怒", Intensity: 3, TriggerContext: "retry"},
	}
}

func TestWriteLog_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeLog(&buf, sampleLog(), "json"))

	assert.Contains(t, buf.String(), `"多行\n反馈 <&>"`)

	var got models.FeedbackLog
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sampleLog(), got)
}

func TestWriteLog_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeLog(&buf, sampleLog(), "yaml"))

	var got []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "this is broken", got[0]["feedback"])
	assert.Equal(t, "多行\n反馈 <&>", got[1]["feedback"])
}

func TestWriteLog_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeLog(&buf, sampleLog(), "table"))

	out := buf.String()
	assert.Contains(t, out, "EMOTION")
	assert.Contains(t, out, "多行 ⏎ 反馈 <&>")
	assert.Contains(t, out, "2 entries")
}

func TestWriteLog_UnknownFormat(t *testing.T) {
	assert.Error(t, writeLog(&bytes.Buffer{}, sampleLog(), "csv"))
}
