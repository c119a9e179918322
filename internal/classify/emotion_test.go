package classify

import (
	"testing"

	"sentio/internal/landmark"
)

// meshWithMouthHeight builds a mesh whose computed mouth height equals h.
func meshWithMouthHeight(h float64) landmark.Mesh {
	return landmark.Mesh{
		landmark.MeshMouthLeft:  {X: 0.4, Y: h},
		landmark.MeshMouthRight: {X: 0.6, Y: h},
		landmark.MeshNoseTip:    {X: 0.5, Y: 0},
	}
}

func TestEmotionBands(t *testing.T) {
	c := NewEmotionClassifier(DefaultEmotionThresholds())

	cases := []struct {
		name        string
		mouthHeight float64
		want        Emotion
	}{
		{"closed mouth", 0.0, EmotionNeutral},
		{"just under neutral bound", 0.019, EmotionNeutral},
		{"neutral bound goes to happy", 0.02, EmotionHappy},
		{"mid happy", 0.03, EmotionHappy},
		{"happy bound goes to surprised", 0.04, EmotionSurprised},
		{"mid surprised", 0.05, EmotionSurprised},
		{"surprised bound goes to sad", 0.06, EmotionSad},
		{"wide open", 0.12, EmotionSad},
	}

	for _, tc := range cases {
		got := c.Classify(meshWithMouthHeight(tc.mouthHeight))
		if got == nil {
			t.Fatalf("%s: got nil, want %s", tc.name, tc.want)
		}
		if *got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, *got, tc.want)
		}
	}
}

func TestEmotionMissingLandmarks(t *testing.T) {
	c := NewEmotionClassifier(DefaultEmotionThresholds())

	if got := c.Classify(nil); got != nil {
		t.Errorf("nil mesh: got %v, want nil", *got)
	}

	mesh := meshWithMouthHeight(0.03)
	delete(mesh, landmark.MeshNoseTip)
	if got := c.Classify(mesh); got != nil {
		t.Errorf("missing nose tip: got %v, want nil", *got)
	}

	mesh = meshWithMouthHeight(0.03)
	delete(mesh, landmark.MeshMouthLeft)
	if got := c.Classify(mesh); got != nil {
		t.Errorf("missing mouth corner: got %v, want nil", *got)
	}
}

func TestEmotionDeterministic(t *testing.T) {
	c := NewEmotionClassifier(DefaultEmotionThresholds())
	mesh := meshWithMouthHeight(0.045)

	first := c.Classify(mesh)
	for i := 0; i < 10; i++ {
		got := c.Classify(mesh)
		if got == nil || *got != *first {
			t.Fatalf("classification changed between identical calls: %v vs %v", got, first)
		}
	}
}
