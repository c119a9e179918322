package session

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"io"
	"testing"
	"time"

	"sentio/internal/anomaly"
	"sentio/internal/classify"
	"sentio/internal/landmark"
	"sentio/internal/pipeline"
	"sentio/internal/report"
)

func frameJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 32, 32)), nil); err != nil {
		t.Fatalf("encode test frame: %v", err)
	}
	return buf.Bytes()
}

// sliceSource replays fixed frame payloads and then returns io.EOF.
type sliceSource struct {
	frames [][]byte
	pos    int
}

func (s *sliceSource) Next(ctx context.Context) (*pipeline.FrameData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	data := s.frames[s.pos]
	s.pos++
	return &pipeline.FrameData{Source: "test", Data: data, Seq: uint64(s.pos), Timestamp: time.Now()}, nil
}

func (s *sliceSource) Close() error { return nil }

// scriptEngine returns a scripted mesh per frame and nothing else.
type scriptEngine struct {
	meshes []landmark.Mesh
	calls  int
}

func (e *scriptEngine) DetectFaces(ctx context.Context, f *pipeline.FrameData) ([]landmark.FaceBox, error) {
	return []landmark.FaceBox{{XMin: 0.1, YMin: 0.1, Width: 0.2, Height: 0.2, Confidence: 0.9}}, nil
}

func (e *scriptEngine) DetectFaceMesh(ctx context.Context, f *pipeline.FrameData) (landmark.Mesh, error) {
	if e.calls >= len(e.meshes) {
		return nil, nil
	}
	mesh := e.meshes[e.calls]
	e.calls++
	return mesh, nil
}

func (e *scriptEngine) DetectPose(ctx context.Context, f *pipeline.FrameData) (landmark.Pose, error) {
	return nil, nil
}

func (e *scriptEngine) IsHealthy() bool { return true }
func (e *scriptEngine) Close() error    { return nil }

func meshFor(mouthHeight float64) landmark.Mesh {
	return landmark.Mesh{
		landmark.MeshMouthLeft:  {Y: 0.6 + mouthHeight},
		landmark.MeshMouthRight: {Y: 0.6 + mouthHeight},
		landmark.MeshNoseTip:    {Y: 0.6},
	}
}

func TestRunEndToEnd(t *testing.T) {
	frame := frameJPEG(t)
	source := &sliceSource{frames: [][]byte{frame, frame, frame}}
	engine := &scriptEngine{meshes: []landmark.Mesh{
		meshFor(0.03), // happy
		meshFor(0.03), // happy
		meshFor(0.08), // sad
	}}

	agg := report.NewAggregator("test")
	runner := NewRunner(RunnerConfig{
		Source:     source,
		Pipeline:   pipeline.NewFramePipeline(engine, pipeline.DefaultAnalysisConfig()),
		Detector:   anomaly.NewDetector(anomaly.DefaultRules()),
		Aggregator: agg,
		Bus:        NewBus(),
	})

	processed, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if processed != 3 {
		t.Fatalf("processed %d frames, want 3", processed)
	}

	rep := agg.Structured()
	if rep.FrameStats.TotalFrames != 3 || rep.FrameStats.FramesWithFace != 3 {
		t.Errorf("frame stats = %+v", rep.FrameStats)
	}
	dist := rep.EmotionStats.Distribution
	if len(dist) != 2 || dist[0].Label != string(classify.EmotionHappy) || dist[0].Count != 2 ||
		dist[1].Label != string(classify.EmotionSad) || dist[1].Count != 1 {
		t.Errorf("distribution = %+v", dist)
	}
	// The sad frame trips the default negative-emotion rule.
	if rep.Anomalies.Count != 1 || rep.Anomalies.Records[0].Frame != 3 {
		t.Errorf("anomalies = %+v", rep.Anomalies)
	}
}

func TestRunSkipsUndecodableFrames(t *testing.T) {
	frame := frameJPEG(t)
	source := &sliceSource{frames: [][]byte{frame, []byte("garbage"), frame}}

	agg := report.NewAggregator("test")
	runner := NewRunner(RunnerConfig{
		Source:     source,
		Pipeline:   pipeline.NewFramePipeline(&scriptEngine{}, pipeline.DefaultAnalysisConfig()),
		Detector:   anomaly.NewDetector(anomaly.DefaultRules()),
		Aggregator: agg,
	})

	processed, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if processed != 2 {
		t.Fatalf("processed %d frames, want 2 (bad frame skipped)", processed)
	}
	if agg.TotalFrames() != 2 {
		t.Errorf("aggregator saw %d frames, want 2", agg.TotalFrames())
	}
}

func TestRunCancellation(t *testing.T) {
	frame := frameJPEG(t)
	// Enough frames that cancellation lands mid-stream.
	frames := make([][]byte, 10000)
	for i := range frames {
		frames[i] = frame
	}
	source := &sliceSource{frames: frames}

	agg := report.NewAggregator("test")
	bus := NewBus()
	events, unsubscribe := bus.SubscribeChannel(1)
	defer unsubscribe()

	runner := NewRunner(RunnerConfig{
		Source:     source,
		Pipeline:   pipeline.NewFramePipeline(&scriptEngine{}, pipeline.DefaultAnalysisConfig()),
		Detector:   anomaly.NewDetector(anomaly.DefaultRules()),
		Aggregator: agg,
		Bus:        bus,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var processed int
	var runErr error
	go func() {
		processed, runErr = runner.Run(ctx)
		close(done)
	}()

	// Wait for at least one frame, then cancel.
	select {
	case <-events:
	case <-time.After(5 * time.Second):
		t.Fatal("no event before timeout")
	}
	cancel()
	<-done

	if runErr != nil {
		t.Fatalf("cancellation returned error: %v", runErr)
	}
	if processed == 0 {
		t.Fatal("no frames processed before cancellation")
	}
	if agg.TotalFrames() != processed {
		t.Errorf("aggregator saw %d frames, runner reports %d", agg.TotalFrames(), processed)
	}
	if agg.EndedAt().IsZero() {
		t.Error("session not finalized after cancellation")
	}
	// The partial report must still render.
	rep := agg.Structured()
	if rep.FrameStats.TotalFrames != processed {
		t.Errorf("report total = %d, want %d", rep.FrameStats.TotalFrames, processed)
	}
	if agg.RenderText() == "" {
		t.Error("empty text report after cancellation")
	}
}
