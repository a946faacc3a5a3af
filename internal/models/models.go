package models

import (
	"time"
)

// Intensity bounds and default for a feedback record
const (
	MinIntensity     = 1
	MaxIntensity     = 5
	DefaultIntensity = 3
)

// Unclassified is the emotion tag used when the caller supplies none
const Unclassified = "unclassified"

// FeedbackRecord represents one submitted piece of feedback plus its metadata.
// Field names are the on-disk layout of the durable log.
type FeedbackRecord struct {
	Text           string    `json:"feedback" yaml:"feedback" db:"feedback"`
	Timestamp      time.Time `json:"timestamp" yaml:"timestamp" db:"-"`
	EmotionType    string    `json:"emotion_type" yaml:"emotion_type" db:"emotion_type"`
	Intensity      int       `json:"intensity" yaml:"intensity" db:"intensity"`
	TriggerContext string    `json:"trigger_context" yaml:"trigger_context" db:"trigger_context"`
}

// FeedbackLog is the ordered sequence of records, oldest first
type FeedbackLog []FeedbackRecord

// Clone returns a copy that shares no backing array with l
func (l FeedbackLog) Clone() FeedbackLog {
	out := make(FeedbackLog, len(l))
	copy(out, l)
	return out
}
