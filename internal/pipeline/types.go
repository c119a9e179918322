package pipeline

import (
	"time"

	"sentio/internal/classify"
)

// FrameData is one captured video frame.
type FrameData struct {
	Source    string    // Source identifier (file path, device, directory)
	Data      []byte    // JPEG frame data
	Seq       uint64    // Capture sequence number, assigned by the source
	Timestamp time.Time // Capture timestamp
}

// FrameResult is the classification outcome for one processed frame.
// It is created once by the frame pipeline and never mutated afterwards.
type FrameResult struct {
	// Index is 1-based and strictly increasing across a session. Frames
	// skipped for decode failures do not consume an index.
	Index          int                `json:"index"`
	FaceCount      int                `json:"face_count"`
	FaceConfidence *float64           `json:"face_confidence,omitempty"`
	Emotion        *classify.Emotion  `json:"emotion,omitempty"`
	Activity       *classify.Activity `json:"activity,omitempty"`
	Timestamp      time.Time          `json:"timestamp"`
}

// HasFace reports whether at least one face was detected in the frame.
func (r *FrameResult) HasFace() bool {
	return r.FaceCount > 0
}

// AnalysisConfig bundles the tunables of the per-frame analysis.
type AnalysisConfig struct {
	Emotion  classify.EmotionThresholds
	Activity classify.ActivityThresholds
}

// DefaultAnalysisConfig returns the stock analysis configuration.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Emotion:  classify.DefaultEmotionThresholds(),
		Activity: classify.DefaultActivityThresholds(),
	}
}
