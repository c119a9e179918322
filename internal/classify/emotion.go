package classify

import (
	"math"

	"sentio/internal/landmark"
)

// EmotionClassifier maps face mesh landmarks to an emotion label using a
// fixed mouth-height heuristic. It is pure: identical input always yields
// the same label, and missing landmarks yield nil rather than an error.
type EmotionClassifier struct {
	thresholds EmotionThresholds
}

// NewEmotionClassifier creates a classifier with the given band boundaries.
func NewEmotionClassifier(thresholds EmotionThresholds) *EmotionClassifier {
	return &EmotionClassifier{thresholds: thresholds}
}

// Classify returns the emotion for a face mesh, or nil if the mesh is
// absent or missing any of the required points.
func (c *EmotionClassifier) Classify(mesh landmark.Mesh) *Emotion {
	if mesh == nil {
		return nil
	}

	mouthLeft, ok := mesh.Point(landmark.MeshMouthLeft)
	if !ok {
		return nil
	}
	mouthRight, ok := mesh.Point(landmark.MeshMouthRight)
	if !ok {
		return nil
	}
	noseTip, ok := mesh.Point(landmark.MeshNoseTip)
	if !ok {
		return nil
	}

	mouthY := (mouthLeft.Y + mouthRight.Y) / 2
	mouthHeight := math.Abs(mouthY - noseTip.Y)

	var label Emotion
	switch {
	case mouthHeight < c.thresholds.Neutral:
		label = EmotionNeutral
	case mouthHeight < c.thresholds.Happy:
		label = EmotionHappy
	case mouthHeight < c.thresholds.Surprised:
		label = EmotionSurprised
	default:
		label = EmotionSad
	}
	return &label
}
