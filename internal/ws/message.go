package ws

import (
	"time"

	"sentio/internal/anomaly"
	"sentio/internal/pipeline"
	"sentio/internal/report"
)

// FrameMessage broadcasts one processed frame result.
type FrameMessage struct {
	Type      string                `json:"type"` // "frame_result"
	SessionID string                `json:"session_id"`
	Timestamp time.Time             `json:"timestamp"`
	Result    *pipeline.FrameResult `json:"result"`
}

// AnomalyMessage broadcasts a flagged anomaly.
type AnomalyMessage struct {
	Type      string         `json:"type"` // "anomaly"
	SessionID string         `json:"session_id"`
	Record    anomaly.Record `json:"record"`
}

// ReportMessage broadcasts the final report when a session ends.
type ReportMessage struct {
	Type      string         `json:"type"` // "report"
	SessionID string         `json:"session_id"`
	Report    *report.Report `json:"report"`
}

// NewFrameMessage creates a frame result message.
func NewFrameMessage(sessionID string, result *pipeline.FrameResult) *FrameMessage {
	return &FrameMessage{
		Type:      "frame_result",
		SessionID: sessionID,
		Timestamp: time.Now(),
		Result:    result,
	}
}
