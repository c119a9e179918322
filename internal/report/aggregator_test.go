package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"sentio/internal/anomaly"
	"sentio/internal/classify"
	"sentio/internal/pipeline"
)

func frameWith(index int, emotion *classify.Emotion, activity *classify.Activity, faces int) *pipeline.FrameResult {
	return &pipeline.FrameResult{
		Index:     index,
		FaceCount: faces,
		Emotion:   emotion,
		Activity:  activity,
		Timestamp: time.Now(),
	}
}

func emo(e classify.Emotion) *classify.Emotion   { return &e }
func act(a classify.Activity) *classify.Activity { return &a }

func TestZeroFrameSession(t *testing.T) {
	a := NewAggregator("empty.mp4")
	a.Finalize()

	rep := a.Structured()
	if rep.FrameStats.DetectionPct != 0 {
		t.Errorf("detection_pct = %v, want 0", rep.FrameStats.DetectionPct)
	}
	if rep.EmotionStats.Predominant != nil {
		t.Errorf("emotion predominant = %v, want nil", *rep.EmotionStats.Predominant)
	}
	if rep.ActivityStats.Predominant != nil {
		t.Errorf("activity predominant = %v, want nil", *rep.ActivityStats.Predominant)
	}

	text := a.RenderText()
	if !strings.Contains(text, "No emotions detected") || !strings.Contains(text, "No activities detected") {
		t.Errorf("empty distributions missing none-markers:\n%s", text)
	}
	if !strings.Contains(text, "No anomalies detected in the video") {
		t.Errorf("missing anomaly none-marker:\n%s", text)
	}
}

func TestThreeFrameDistribution(t *testing.T) {
	a := NewAggregator("clip.mp4")
	a.Record(frameWith(1, emo(classify.EmotionHappy), act(classify.ActivityStanding), 1))
	a.Record(frameWith(2, emo(classify.EmotionHappy), act(classify.ActivityStanding), 1))
	a.Record(frameWith(3, emo(classify.EmotionSad), act(classify.ActivitySitting), 1))
	a.Finalize()

	rep := a.Structured()
	if rep.FrameStats.TotalFrames != 3 {
		t.Errorf("total_frames = %d, want 3", rep.FrameStats.TotalFrames)
	}
	if rep.EmotionStats.Total != 3 {
		t.Errorf("emotion total = %d, want 3", rep.EmotionStats.Total)
	}
	if got := rep.EmotionStats.Distribution; len(got) != 2 ||
		got[0].Label != "happy" || got[0].Count != 2 || got[0].Pct != 66.67 ||
		got[1].Label != "sad" || got[1].Count != 1 || got[1].Pct != 33.33 {
		t.Errorf("emotion distribution = %+v", got)
	}
	if rep.EmotionStats.Predominant == nil || *rep.EmotionStats.Predominant != "happy" {
		t.Errorf("predominant = %v, want happy", rep.EmotionStats.Predominant)
	}

	text := a.RenderText()
	if !strings.Contains(text, "happy") || !strings.Contains(text, "66.67%") || !strings.Contains(text, "33.33%") {
		t.Errorf("text rendering does not match structured percentages:\n%s", text)
	}
}

func TestDistributionSumInvariant(t *testing.T) {
	a := NewAggregator("clip.mp4")
	withEmotion := 0
	for i := 1; i <= 10; i++ {
		var e *classify.Emotion
		if i%3 != 0 {
			e = emo(classify.EmotionNeutral)
			withEmotion++
		}
		a.Record(frameWith(i, e, nil, 0))
	}
	a.Finalize()

	rep := a.Structured()
	sum := 0
	for _, lc := range rep.EmotionStats.Distribution {
		sum += lc.Count
	}
	if sum != withEmotion || rep.EmotionStats.Total != withEmotion {
		t.Errorf("sum = %d, total = %d, want %d (non-nil labels only)", sum, rep.EmotionStats.Total, withEmotion)
	}
	if rep.ActivityStats.Total != 0 {
		t.Errorf("activity total = %d, want 0", rep.ActivityStats.Total)
	}
}

func TestTieBrokenByFirstSeen(t *testing.T) {
	a := NewAggregator("clip.mp4")
	a.Record(frameWith(1, emo(classify.EmotionSurprised), nil, 1))
	a.Record(frameWith(2, emo(classify.EmotionNeutral), nil, 1))
	a.Record(frameWith(3, emo(classify.EmotionNeutral), nil, 1))
	a.Record(frameWith(4, emo(classify.EmotionSurprised), nil, 1))
	a.Finalize()

	rep := a.Structured()
	if got := rep.EmotionStats.Distribution; got[0].Label != "surprised" || got[1].Label != "neutral" {
		t.Errorf("tie not broken by first-seen order: %+v", got)
	}
	if *rep.EmotionStats.Predominant != "surprised" {
		t.Errorf("predominant = %s, want surprised", *rep.EmotionStats.Predominant)
	}
}

func TestPartialSession(t *testing.T) {
	a := NewAggregator("cancelled.mp4")
	for i := 1; i <= 5; i++ {
		a.Record(frameWith(i, emo(classify.EmotionHappy), act(classify.ActivityStanding), 1))
	}
	// Finalize early, as after a cancelled run.
	a.Finalize()

	rep := a.Structured()
	if rep.FrameStats.TotalFrames != 5 || rep.FrameStats.FramesWithFace != 5 {
		t.Errorf("frame stats = %+v, want 5/5", rep.FrameStats)
	}
	if rep.FrameStats.DetectionPct != 100 {
		t.Errorf("detection_pct = %v, want 100", rep.FrameStats.DetectionPct)
	}

	// Repeated finalize keeps the original end time.
	ended := a.EndedAt()
	a.Finalize()
	if !a.EndedAt().Equal(ended) {
		t.Error("second Finalize moved the end time")
	}

	if _, err := json.Marshal(rep); err != nil {
		t.Fatalf("structured report not serializable: %v", err)
	}
}

func TestAnomalyLogOrdering(t *testing.T) {
	a := NewAggregator("clip.mp4")
	a.RecordAnomaly(anomaly.Record{Kind: anomaly.KindMultipleFaces, Description: "4 faces detected simultaneously", Frame: 10, Timestamp: time.Now()})
	a.RecordAnomaly(anomaly.Record{Kind: anomaly.KindNegativeEmotion, Description: "emotion sad detected", Frame: 25, Timestamp: time.Now()})
	a.Finalize()

	rep := a.Structured()
	if rep.Anomalies.Count != 2 {
		t.Fatalf("anomaly count = %d, want 2", rep.Anomalies.Count)
	}
	if rep.Anomalies.Records[0].Frame != 10 || rep.Anomalies.Records[1].Frame != 25 {
		t.Errorf("anomaly log out of order: %+v", rep.Anomalies.Records)
	}

	text := a.RenderText()
	if !strings.Contains(text, "Anomaly Count:  2") || !strings.Contains(text, "multiple_faces") {
		t.Errorf("anomaly section incomplete:\n%s", text)
	}
}

func TestStructuredJSONGroups(t *testing.T) {
	a := NewAggregator("clip.mp4")
	a.Record(frameWith(1, emo(classify.EmotionHappy), nil, 1))
	a.Finalize()

	raw, err := json.Marshal(a.Structured())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"general", "frame_stats", "emotion_stats", "activity_stats", "anomalies"} {
		if _, ok := top[key]; !ok {
			t.Errorf("missing top-level group %q", key)
		}
	}
}
