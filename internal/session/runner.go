package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"sentio/internal/anomaly"
	"sentio/internal/pipeline"
	"sentio/internal/report"
)

// Runner drives one analysis session: it pulls frames sequentially,
// runs each through the frame pipeline, feeds genuine classifier output
// to the anomaly detector and the aggregator, and publishes events.
//
// Processing is strictly sequential: frame N+1 is never touched before
// frame N has been recorded. The aggregator is the only mutable session
// state and needs no locking.
type Runner struct {
	id       string
	source   pipeline.FrameSource
	pipe     *pipeline.FramePipeline
	detector *anomaly.Detector
	agg      *report.Aggregator
	bus      *Bus
	frameDir string
}

// RunnerConfig wires a session together. Aggregator may be nil to run
// annotation-only sessions without a report.
type RunnerConfig struct {
	Source     pipeline.FrameSource
	Pipeline   *pipeline.FramePipeline
	Detector   *anomaly.Detector
	Aggregator *report.Aggregator
	Bus        *Bus
	// FrameDir, when set, receives the annotated frames as JPEG files.
	FrameDir string
}

// NewRunner creates a session runner with a fresh session ID.
func NewRunner(config RunnerConfig) *Runner {
	return &Runner{
		id:       uuid.NewString(),
		source:   config.Source,
		pipe:     config.Pipeline,
		detector: config.Detector,
		agg:      config.Aggregator,
		bus:      config.Bus,
		frameDir: config.FrameDir,
	}
}

// ID returns the session identifier.
func (r *Runner) ID() string {
	return r.id
}

// Run processes the source until end-of-stream or cancellation and
// returns the number of processed frames. Cancellation is a graceful
// partial completion: the aggregator is finalized over whatever was
// recorded and the returned error is nil.
func (r *Runner) Run(ctx context.Context) (int, error) {
	log.Printf("[Session] Started session %s", r.id)

	index := 0
	for {
		frame, err := r.source.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				log.Printf("[Session] End of stream after %d frames", index)
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				log.Printf("[Session] Cancelled after %d frames", index)
			default:
				r.finish()
				return index, fmt.Errorf("frame source failed: %w", err)
			}
			r.finish()
			return index, nil
		}

		result, annotated, err := r.pipe.Process(ctx, index+1, frame)
		if err != nil {
			// Undecodable frame: skip it, the index is not consumed.
			log.Printf("[Session] Skipping frame (seq %d): %v", frame.Seq, err)
			continue
		}
		index++

		var records []anomaly.Record
		if r.detector != nil {
			records = r.detector.Inspect(result)
		}

		if r.agg != nil {
			r.agg.Record(result)
			for _, rec := range records {
				r.agg.RecordAnomaly(rec)
			}
		}

		if r.bus != nil {
			r.bus.Publish(&Event{
				SessionID:      r.id,
				Result:         result,
				Anomalies:      records,
				AnnotatedFrame: annotated,
			})
		}

		if r.frameDir != "" {
			r.writeFrame(index, annotated)
		}
	}
}

func (r *Runner) finish() {
	if r.agg != nil {
		r.agg.Finalize()
	}
}

// writeFrame persists an annotated frame. Failures are logged only; the
// analysis itself is unaffected.
func (r *Runner) writeFrame(index int, data []byte) {
	path := filepath.Join(r.frameDir, fmt.Sprintf("frame_%06d.jpg", index))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Printf("[Session] Failed to write annotated frame %d: %v", index, err)
	}
}
