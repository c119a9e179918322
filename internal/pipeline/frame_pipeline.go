package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"log"

	"sentio/internal/annotate"
	"sentio/internal/classify"
)

// FramePipeline drives one frame through detection, classification and
// annotation. It holds no mutable state of its own; all session state
// lives in the report aggregator.
type FramePipeline struct {
	engine    LandmarkEngine
	emotion   *classify.EmotionClassifier
	activity  *classify.ActivityClassifier
	annotator *annotate.Annotator
}

// NewFramePipeline creates a pipeline over the given engine.
func NewFramePipeline(engine LandmarkEngine, config AnalysisConfig) *FramePipeline {
	return &FramePipeline{
		engine:    engine,
		emotion:   classify.NewEmotionClassifier(config.Emotion),
		activity:  classify.NewActivityClassifier(config.Activity),
		annotator: annotate.New(),
	}
}

// Process analyzes a single frame and returns its result plus the
// annotated JPEG. index is the 1-based frame index assigned by the
// session loop.
//
// A failing modality is logged and treated as "no detection" for that
// modality only; the other modalities still run. The only error returned
// is an undecodable frame, which callers skip.
func (p *FramePipeline) Process(ctx context.Context, index int, frame *FrameData) (*FrameResult, []byte, error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(frame.Data))
	if err != nil {
		return nil, nil, fmt.Errorf("undecodable frame: %w", err)
	}

	result := &FrameResult{
		Index:     index,
		Timestamp: frame.Timestamp,
	}
	overlay := annotate.Overlay{FrameIndex: index}

	faces, err := p.engine.DetectFaces(ctx, frame)
	if err != nil {
		log.Printf("[Pipeline] Face detection failed for frame %d: %v", index, err)
	} else {
		result.FaceCount = len(faces)
		for _, box := range faces {
			overlay.Faces = append(overlay.Faces, annotate.ForFace(box, cfg.Width, cfg.Height))
			if result.FaceConfidence == nil || box.Confidence > *result.FaceConfidence {
				conf := box.Confidence
				result.FaceConfidence = &conf
			}
		}
	}

	mesh, err := p.engine.DetectFaceMesh(ctx, frame)
	if err != nil {
		log.Printf("[Pipeline] Face mesh failed for frame %d: %v", index, err)
	} else if emotion := p.emotion.Classify(mesh); emotion != nil {
		result.Emotion = emotion
		overlay.EmotionText = fmt.Sprintf("Emotion: %s", *emotion)
	}

	pose, err := p.engine.DetectPose(ctx, frame)
	if err != nil {
		log.Printf("[Pipeline] Pose estimation failed for frame %d: %v", index, err)
	} else if activity := p.activity.Classify(pose); activity != nil {
		result.Activity = activity
		overlay.ActivityText = fmt.Sprintf("Activity: %s", *activity)
	}

	annotated, err := p.annotator.Render(frame.Data, overlay)
	if err != nil {
		// Keep the session going with the raw frame.
		log.Printf("[Pipeline] Overlay render failed for frame %d: %v", index, err)
		annotated = frame.Data
	}

	return result, annotated, nil
}
