package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"sentio/internal/anomaly"
	"sentio/internal/database"
	"sentio/internal/detection"
	"sentio/internal/pipeline"
	"sentio/internal/report"
	"sentio/internal/session"
	"sentio/internal/ws"
)

func main() {
	// Define command line flags, add any other flag required to configure the
	// analysis run.
	var (
		videoF    = flag.String("video", "", "Video source: file path, rtsp:// URL or /dev/video* device")
		imagesF   = flag.String("images", "", "Directory of JPEG frames to analyze instead of a video")
		fpsF      = flag.Int("fps", 15, "Capture frame rate for video sources")
		widthF    = flag.Int("width", 1280, "Capture width for video sources")
		heightF   = flag.Int("height", 720, "Capture height for video sources")
		engineF   = flag.String("engine", "http://localhost:8500", "Landmark engine base URL")
		grpcF     = flag.String("engine-grpc-health", "", "Landmark engine gRPC health address (overrides HTTP health checks)")
		outputF   = flag.String("output", "reports", "Directory for generated reports")
		framesF   = flag.String("frames", "", "Optional directory for annotated frames")
		dbF       = flag.String("db", "", "Optional SQLite database path for the session archive")
		monitorF  = flag.String("monitor", "", "Optional listen address for the live monitor server (e.g. :8080)")
		noReportF = flag.Bool("no-report", false, "Skip report generation")
	)
	flag.Parse()

	// Setup logger. Replace logger with your own log package of choice.
	var (
		logger *log.Logger
	)
	{
		logger = log.New(os.Stderr, "[sentio] ", log.Ltime)
	}

	source, sourceName, err := buildSource(*videoF, *imagesF, *fpsF, *widthF, *heightF)
	if err != nil {
		logger.Fatalf("failed to open frame source: %v", err)
	}
	defer source.Close()

	engine, err := detection.NewEngine(detection.EngineConfig{
		Enabled:        true,
		Endpoint:       *engineF,
		GRPCHealthAddr: *grpcF,
	})
	if err != nil {
		logger.Fatalf("failed to create landmark engine client: %v", err)
	}
	defer engine.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := engine.CheckHealth(ctx); err != nil {
		logger.Printf("landmark engine not ready: %v", err)
	}

	if *framesF != "" {
		if err := os.MkdirAll(*framesF, 0o755); err != nil {
			logger.Fatalf("failed to create frames directory: %v", err)
		}
	}

	var db *database.Database
	if *dbF != "" {
		db, err = database.New(*dbF)
		if err != nil {
			logger.Fatalf("failed to open session archive: %v", err)
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			logger.Fatalf("failed to migrate session archive: %v", err)
		}
	}

	var agg *report.Aggregator
	if !*noReportF {
		agg = report.NewAggregator(sourceName)
	}

	bus := session.NewBus()
	runner := session.NewRunner(session.RunnerConfig{
		Source:     source,
		Pipeline:   pipeline.NewFramePipeline(engine, pipeline.DefaultAnalysisConfig()),
		Detector:   anomaly.NewDetector(anomaly.DefaultRules()),
		Aggregator: agg,
		Bus:        bus,
		FrameDir:   *framesF,
	})

	var monitor *monitorServer
	if *monitorF != "" {
		hub := ws.NewHub()
		unsubscribe := bus.Subscribe(hub)
		defer unsubscribe()

		monitor = newMonitorServer(*monitorF, runner.ID(), hub, db, logger)
		monitor.start()
	}

	// Setup interrupt handler so that SIGINT and SIGTERM end the session
	// gracefully: the partial report is still produced.
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		sig := <-c
		logger.Printf("received %s, finishing session", sig)
		cancel()
	}()

	processed, err := runner.Run(ctx)
	if err != nil {
		logger.Fatalf("session %s failed: %v", runner.ID(), err)
	}
	logger.Printf("session %s processed %d frames", runner.ID(), processed)

	if agg != nil {
		rep := agg.Structured()
		text := agg.RenderText()
		fmt.Println(text)

		txtPath, jsonPath, err := writeReports(*outputF, text, rep)
		if err != nil {
			logger.Fatalf("failed to write reports: %v", err)
		}
		logger.Printf("reports written to %s and %s", txtPath, jsonPath)

		if db != nil {
			if err := db.SaveSession(runner.ID(), agg, rep); err != nil {
				logger.Printf("failed to archive session: %v", err)
			} else {
				logger.Printf("session archived to %s", *dbF)
			}
		}

		if monitor != nil {
			monitor.setLatestReport(rep)
			monitor.hub.PublishReport(runner.ID(), rep)
		}
	}

	if monitor != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer shutdownCancel()
		if err := monitor.shutdown(shutdownCtx); err != nil {
			logger.Printf("monitor server shutdown: %v", err)
		}
	}

	logger.Println("exited")
}

// buildSource picks the frame source from the command line flags. Exactly
// one of video and images must be set.
func buildSource(video, images string, fps, width, height int) (pipeline.FrameSource, string, error) {
	switch {
	case video != "" && images != "":
		return nil, "", fmt.Errorf("specify either -video or -images, not both")
	case images != "":
		src, err := pipeline.NewDirSource(images)
		if err != nil {
			return nil, "", err
		}
		return src, images, nil
	case video != "":
		src, err := pipeline.NewFFmpegSource(pipeline.FFmpegSourceConfig{
			Source: video,
			FPS:    fps,
			Width:  width,
			Height: height,
		})
		if err != nil {
			return nil, "", err
		}
		return src, video, nil
	default:
		return nil, "", fmt.Errorf("a frame source is required (-video or -images)")
	}
}

// writeReports persists the text and structured renderings side by side
// and returns both paths.
func writeReports(dir, text string, rep *report.Report) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create output directory: %w", err)
	}

	stamp := time.Now().Format("20060102_150405")
	txtPath := filepath.Join(dir, "analysis_report_"+stamp+".txt")
	jsonPath := filepath.Join(dir, "analysis_report_"+stamp+".json")

	if err := os.WriteFile(txtPath, []byte(text), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write text report: %w", err)
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(jsonPath, append(data, '\n'), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write JSON report: %w", err)
	}

	return txtPath, jsonPath, nil
}
