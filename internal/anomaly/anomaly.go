package anomaly

import (
	"fmt"
	"time"

	"sentio/internal/classify"
	"sentio/internal/pipeline"
)

// Kind identifies a class of flagged condition.
type Kind string

const (
	KindMultipleFaces        Kind = "multiple_faces"
	KindNegativeEmotion      Kind = "negative_emotion"
	KindUnidentifiedActivity Kind = "unidentified_activity"
)

// Record is one flagged condition in a frame's result. Records are
// appended to the session log and never mutated.
type Record struct {
	Kind        Kind      `json:"kind"`
	Description string    `json:"description"`
	Frame       int       `json:"frame"`
	Timestamp   time.Time `json:"timestamp"`
}

// Rules configure the detector.
type Rules struct {
	// MaxFaces is the largest face count that is not flagged.
	MaxFaces int
	// NegativeEmotions lists the emotion labels flagged as negative.
	NegativeEmotions []classify.Emotion
	// UnknownActivityEvery throttles unidentified-activity records to at
	// most one per this many frames.
	UnknownActivityEvery int
}

// DefaultRules returns the stock rule set.
func DefaultRules() Rules {
	return Rules{
		MaxFaces:             3,
		NegativeEmotions:     []classify.Emotion{classify.EmotionSad},
		UnknownActivityEvery: 100,
	}
}

// Detector evaluates frame results against the configured rules. It is
// stateless across frames; the frame index carries all throttling state.
type Detector struct {
	rules Rules
	now   func() time.Time
}

// NewDetector creates a detector for the given rules.
func NewDetector(rules Rules) *Detector {
	return &Detector{rules: rules, now: time.Now}
}

// Inspect returns zero or more anomaly records for one frame result.
func (d *Detector) Inspect(result *pipeline.FrameResult) []Record {
	var records []Record

	if result.FaceCount > d.rules.MaxFaces {
		records = append(records, Record{
			Kind:        KindMultipleFaces,
			Description: fmt.Sprintf("%d faces detected simultaneously", result.FaceCount),
			Frame:       result.Index,
			Timestamp:   d.now(),
		})
	}

	if result.Emotion != nil && d.isNegative(*result.Emotion) {
		records = append(records, Record{
			Kind:        KindNegativeEmotion,
			Description: fmt.Sprintf("emotion %s detected", *result.Emotion),
			Frame:       result.Index,
			Timestamp:   d.now(),
		})
	}

	if result.Activity != nil && *result.Activity == classify.ActivityUnknown &&
		d.rules.UnknownActivityEvery > 0 && result.Index%d.rules.UnknownActivityEvery == 0 {
		records = append(records, Record{
			Kind:        KindUnidentifiedActivity,
			Description: "could not identify the activity",
			Frame:       result.Index,
			Timestamp:   d.now(),
		})
	}

	return records
}

func (d *Detector) isNegative(emotion classify.Emotion) bool {
	for _, e := range d.rules.NegativeEmotions {
		if e == emotion {
			return true
		}
	}
	return false
}
