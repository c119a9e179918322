package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"sentio/internal/landmark"
	"sentio/internal/pipeline"
)

// Engine is the client for the external landmark-detection service. The
// service hosts the pretrained models (face boxes, face mesh, body pose)
// and exposes one HTTP endpoint per modality. Empty detections are normal
// responses; errors mean the call itself failed and are isolated upstream.
type Engine struct {
	endpoint string
	client   *http.Client

	enabled    bool
	healthy    bool
	lastHealth time.Time
	mu         sync.RWMutex

	grpcHealth *healthProbe
}

// EngineConfig holds configuration for the engine client.
type EngineConfig struct {
	Enabled  bool
	Endpoint string
	Timeout  time.Duration
	// GRPCHealthAddr, when set, switches health checks to the service's
	// gRPC health endpoint instead of GET /health.
	GRPCHealthAddr string
}

type faceBoxResponse struct {
	Faces []struct {
		BBox       []float64 `json:"bbox"` // [xmin, ymin, width, height] normalized
		Confidence float64   `json:"confidence"`
	} `json:"faces"`
	Count int `json:"count"`
}

type meshResponse struct {
	Detected bool `json:"detected"`
	Points   []struct {
		Index int     `json:"index"`
		X     float64 `json:"x"`
		Y     float64 `json:"y"`
		Z     float64 `json:"z"`
	} `json:"points"`
}

type poseResponse struct {
	Detected bool `json:"detected"`
	Joints   []struct {
		Name       string  `json:"name"`
		X          float64 `json:"x"`
		Y          float64 `json:"y"`
		Z          float64 `json:"z"`
		Visibility float64 `json:"visibility"`
	} `json:"joints"`
}

type healthResponse struct {
	Status       string `json:"status"`
	ModelsLoaded bool   `json:"models_loaded"`
}

// NewEngine creates a landmark engine client.
func NewEngine(config EngineConfig) (*Engine, error) {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	e := &Engine{
		endpoint: config.Endpoint,
		enabled:  config.Enabled,
		client:   &http.Client{Timeout: timeout},
	}

	if config.GRPCHealthAddr != "" {
		probe, err := newHealthProbe(config.GRPCHealthAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to set up gRPC health probe: %w", err)
		}
		e.grpcHealth = probe
		log.Printf("[Engine] Using gRPC health checks against %s", config.GRPCHealthAddr)
	}

	return e, nil
}

// IsEnabled returns whether the engine client is enabled.
func (e *Engine) IsEnabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.enabled
}

// IsHealthy returns the last known health state.
func (e *Engine) IsHealthy() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.healthy
}

// CheckHealth probes the service and caches the result.
func (e *Engine) CheckHealth(ctx context.Context) error {
	if !e.IsEnabled() {
		return fmt.Errorf("landmark engine is disabled")
	}

	var err error
	if e.grpcHealth != nil {
		err = e.grpcHealth.check(ctx)
	} else {
		err = e.checkHTTPHealth(ctx)
	}

	e.mu.Lock()
	e.healthy = err == nil
	e.lastHealth = time.Now()
	e.mu.Unlock()

	if err != nil {
		return fmt.Errorf("landmark engine health check failed: %w", err)
	}
	return nil
}

func (e *Engine) checkHTTPHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint returned status %d", resp.StatusCode)
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("failed to decode health response: %w", err)
	}
	if !health.ModelsLoaded {
		return fmt.Errorf("landmark models not loaded (status: %s)", health.Status)
	}
	return nil
}

// DetectFaces returns zero or more face bounding boxes for the frame.
func (e *Engine) DetectFaces(ctx context.Context, frame *pipeline.FrameData) ([]landmark.FaceBox, error) {
	var result faceBoxResponse
	if err := e.post(ctx, "/detect/faces", frame.Data, &result); err != nil {
		return nil, err
	}

	boxes := make([]landmark.FaceBox, 0, len(result.Faces))
	for _, f := range result.Faces {
		if len(f.BBox) != 4 {
			continue
		}
		boxes = append(boxes, landmark.FaceBox{
			XMin:       f.BBox[0],
			YMin:       f.BBox[1],
			Width:      f.BBox[2],
			Height:     f.BBox[3],
			Confidence: f.Confidence,
		})
	}
	return boxes, nil
}

// DetectFaceMesh returns the face mesh landmark set, or nil when the
// service found no face.
func (e *Engine) DetectFaceMesh(ctx context.Context, frame *pipeline.FrameData) (landmark.Mesh, error) {
	var result meshResponse
	if err := e.post(ctx, "/detect/mesh", frame.Data, &result); err != nil {
		return nil, err
	}
	if !result.Detected {
		return nil, nil
	}

	mesh := make(landmark.Mesh, len(result.Points))
	for _, p := range result.Points {
		mesh[p.Index] = landmark.Point{X: p.X, Y: p.Y, Z: p.Z}
	}
	return mesh, nil
}

// DetectPose returns the body pose landmark set, or nil when the service
// found no body.
func (e *Engine) DetectPose(ctx context.Context, frame *pipeline.FrameData) (landmark.Pose, error) {
	var result poseResponse
	if err := e.post(ctx, "/detect/pose", frame.Data, &result); err != nil {
		return nil, err
	}
	if !result.Detected {
		return nil, nil
	}

	pose := make(landmark.Pose, len(result.Joints))
	for _, j := range result.Joints {
		pose[landmark.Joint(j.Name)] = landmark.Point{X: j.X, Y: j.Y, Z: j.Z, Visibility: j.Visibility}
	}
	return pose, nil
}

// post uploads a JPEG frame as multipart form data and decodes the JSON
// response into out.
func (e *Engine) post(ctx context.Context, path string, frame []byte, out interface{}) error {
	if !e.IsEnabled() {
		return fmt.Errorf("landmark engine is disabled")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "frame.jpg")
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+path, &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("landmark request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("landmark service returned status %d: %s", resp.StatusCode, data)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode landmark response: %w", err)
	}
	return nil
}

// Close releases the underlying connections.
func (e *Engine) Close() error {
	e.client.CloseIdleConnections()
	if e.grpcHealth != nil {
		return e.grpcHealth.close()
	}
	return nil
}

var _ pipeline.LandmarkEngine = (*Engine)(nil)
