package feedback

import (
	"strings"
	"time"

	"github.com/rohankatakam/feedbackd/internal/errors"
	"github.com/rohankatakam/feedbackd/internal/models"
)

// Input is one submission as received from the caller. Intensity is nil when the
// caller did not supply one.
type Input struct {
	Text           string
	EmotionType    string
	Intensity      *int
	TriggerContext string
}

// Builder validates input and turns it into a record. It never alters Text.
type Builder struct {
	now          func() time.Time
	unclassified string
}

// NewBuilder returns a builder that tags untagged feedback with unclassified
// (models.Unclassified when empty).
func NewBuilder(unclassified string) *Builder {
	if strings.TrimSpace(unclassified) == "" {
		unclassified = models.Unclassified
	}
	return &Builder{now: time.Now, unclassified: unclassified}
}

// WithClock replaces the time source
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build rejects whitespace-only text with a validation error; everything else
// becomes a record stamped with the current UTC time.
func (b *Builder) Build(in Input) (models.FeedbackRecord, error) {
	if strings.TrimSpace(in.Text) == "" {
		return models.FeedbackRecord{}, errors.ValidationError("feedback text is empty")
	}

	emotion := in.EmotionType
	if strings.TrimSpace(emotion) == "" {
		emotion = b.unclassified
	}

	intensity := models.DefaultIntensity
	if in.Intensity != nil {
		intensity = ClampIntensity(*in.Intensity)
	}

	return models.FeedbackRecord{
		Text:           in.Text,
		Timestamp:      b.now().UTC(),
		EmotionType:    emotion,
		Intensity:      intensity,
		TriggerContext: in.TriggerContext,
	}, nil
}

// ClampIntensity forces v into [MinIntensity, MaxIntensity]
func ClampIntensity(v int) int {
	return max(models.MinIntensity, min(models.MaxIntensity, v))
}
