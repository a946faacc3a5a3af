package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rohankatakam/feedbackd/internal/errors"
	"github.com/rohankatakam/feedbackd/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(text string, i int) models.FeedbackRecord {
	return models.FeedbackRecord{
		Text:           text,
		Timestamp:      time.Date(2025, 6, 1, 12, 0, i, 123456000, time.UTC),
		EmotionType:    "愤怒",
		Intensity:      (i % 5) + 1,
		TriggerContext: fmt.Sprintf("context %d", i),
	}
}

func TestFileStore_AbsentFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "feedback_data.json")

	store, err := OpenFileStore(path)
	require.NoError(t, err)
	defer store.Close()

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "opening must not create the log")
}

func TestFileStore_AppendPersistsInOrder(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "feedback_data.json")

	store, err := OpenFileStore(path)
	require.NoError(t, err)

	const n = 25
	for i := 0; i < n; i++ {
		require.NoError(t, store.Append(ctx, record(fmt.Sprintf("msg %d", i), i)))

		onDisk, err := ReadLog(path)
		require.NoError(t, err)
		require.Len(t, onDisk, i+1, "durable log must hold every appended record")
	}

	onDisk, err := ReadLog(path)
	require.NoError(t, err)
	for i, rec := range onDisk {
		assert.Equal(t, fmt.Sprintf("msg %d", i), rec.Text)
	}
}

func TestFileStore_ReopenRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "feedback_data.json")

	store, err := OpenFileStore(path)
	require.NoError(t, err)

	want := models.FeedbackLog{
		record("this is broken", 0),
		record("  leading and trailing  ", 1),
		record("<script>alert('&')</script>", 2),
		record("你这个垃圾AI 🤬", 3),
		record("line one\nline two\ttab", 4),
	}
	for _, rec := range want {
		require.NoError(t, store.Append(ctx, rec))
	}
	require.NoError(t, store.Close())

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFileStore_OnDiskLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback_data.json")
	store, err := OpenFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Append(context.Background(), record("a < b & c", 0)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"feedback": "a < b & c"`, "text must not be HTML-escaped")
	assert.Contains(t, string(data), `"emotion_type": "愤怒"`, "non-ASCII must be written as-is")

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)
	keys := make([]string, 0, len(raw[0]))
	for k := range raw[0] {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"feedback", "timestamp", "emotion_type", "intensity", "trigger_context"}, keys)
}

func TestFileStore_CorruptFileIsQuarantined(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feedback_data.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"feedback": "half a rec`), 0644))

	store, err := OpenFileStore(path)
	require.NoError(t, err, "corruption must not fail open")

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	matches, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	preserved, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, `[{"feedback": "half a rec`, string(preserved))

	require.NoError(t, store.Append(context.Background(), record("after corruption", 0)))
	onDisk, err := ReadLog(path)
	require.NoError(t, err)
	assert.Len(t, onDisk, 1)
}

func TestFileStore_EmptyFileIsEmptyLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback_data.json")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0644))

	store, err := OpenFileStore(path)
	require.NoError(t, err)

	n, _ := store.Count(context.Background())
	assert.Equal(t, 0, n)
	matches, _ := filepath.Glob(path + ".corrupt-*")
	assert.Empty(t, matches)
}

func TestFileStore_WriteFailureKeepsRecordInMemory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "feedback_data.json")

	store, err := OpenFileStore(path)
	require.NoError(t, err)

	// A directory at the target path makes the final rename fail, even as root.
	require.NoError(t, os.MkdirAll(filepath.Join(path, "blocker"), 0755))

	err = store.Append(ctx, record("lost?", 0))
	require.Error(t, err)
	assert.True(t, errors.IsPersistence(err))

	n, _ := store.Count(ctx)
	assert.Equal(t, 1, n, "in-memory append is not rolled back")

	leftovers, _ := filepath.Glob(path + ".tmp-*")
	assert.Empty(t, leftovers, "temp files are cleaned up")
}

func TestFileStore_AppendAfterClose(t *testing.T) {
	store, err := OpenFileStore(filepath.Join(t.TempDir(), "feedback_data.json"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	err = store.Append(context.Background(), record("late", 0))
	assert.True(t, errors.IsPersistence(err))
}

func TestReadLog(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadLog(filepath.Join(dir, "missing.json"))
	assert.True(t, os.IsNotExist(err))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"not": "an array"}`), 0644))
	_, err = ReadLog(bad)
	assert.ErrorIs(t, err, ErrCorruptLog)

	null := filepath.Join(dir, "null.json")
	require.NoError(t, os.WriteFile(null, []byte(`null`), 0644))
	log, err := ReadLog(null)
	require.NoError(t, err)
	assert.NotNil(t, log)
	assert.Empty(t, log)
}

func TestFileStore_RejectsInvalidUTF8(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "feedback_data.json")
	store, err := OpenFileStore(path)
	require.NoError(t, err)
	defer store.Close()

	tests := []struct {
		name   string
		mutate func(*models.FeedbackRecord)
	}{
		{"text", func(r *models.FeedbackRecord) { r.Text = "bad \xff byte" }},
		{"emotion type", func(r *models.FeedbackRecord) { r.EmotionType = "\xc3\x28" }},
		{"trigger context", func(r *models.FeedbackRecord) { r.TriggerContext = "ctx \xfe" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := record("ok", 0)
			tt.mutate(&rec)

			err := store.Append(ctx, rec)
			require.Error(t, err)
			assert.True(t, errors.IsPersistence(err))
			assert.ErrorIs(t, err, ErrInvalidUTF8)
		})
	}

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "rejected records never enter the log")
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, store.Append(ctx, record("valid 你好", 1)))
	onDisk, err := ReadLog(path)
	require.NoError(t, err)
	require.Len(t, onDisk, 1)
	assert.Equal(t, "valid 你好", onDisk[0].Text)
}

func TestSyncDir(t *testing.T) {
	assert.NoError(t, syncDir(t.TempDir()))
	assert.Error(t, syncDir(filepath.Join(t.TempDir(), "missing")))
}
