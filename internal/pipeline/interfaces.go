package pipeline

import (
	"context"

	"sentio/internal/landmark"
)

// LandmarkEngine is the boundary to the external landmark-detection
// service. Each method covers one modality and may legitimately return
// nothing: an empty slice or nil set is a normal outcome, not an error.
// Errors indicate the call itself failed (service down, transport error)
// and are isolated per modality by the frame pipeline.
type LandmarkEngine interface {
	// DetectFaces returns zero or more face bounding boxes with confidences.
	DetectFaces(ctx context.Context, frame *FrameData) ([]landmark.FaceBox, error)

	// DetectFaceMesh returns the face mesh landmark set for the most
	// prominent face, or nil if no face is found.
	DetectFaceMesh(ctx context.Context, frame *FrameData) (landmark.Mesh, error)

	// DetectPose returns the body pose landmark set, or nil if no body
	// is found.
	DetectPose(ctx context.Context, frame *FrameData) (landmark.Pose, error)

	// IsHealthy returns the last known health state of the engine.
	IsHealthy() bool

	// Close releases the underlying engine resources.
	Close() error
}

// FrameSource delivers frames sequentially. Next returns io.EOF when the
// stream ends. No random access is ever required.
type FrameSource interface {
	// Next blocks until the next frame is available or the context is done.
	Next(ctx context.Context) (*FrameData, error)

	// Close releases the source.
	Close() error
}
