package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"
	"time"
)

// FFmpegSource pulls frames from a video file, RTSP stream or V4L2 device
// by running ffmpeg in image2pipe/mjpeg mode and scanning complete JPEGs
// out of its stdout.
type FFmpegSource struct {
	source string
	cmd    *exec.Cmd
	stdout io.ReadCloser
	buf    []byte
	chunk  []byte
	seq    uint64
	closed bool
}

// FFmpegSourceConfig configures frame capture.
type FFmpegSourceConfig struct {
	// Source is a video file path, an rtsp:// URL or a /dev/video* device.
	Source string
	FPS    int
	Width  int
	Height int
}

// NewFFmpegSource starts ffmpeg for the given source.
func NewFFmpegSource(config FFmpegSourceConfig) (*FFmpegSource, error) {
	fps := config.FPS
	if fps <= 0 {
		fps = 15
	}

	var args []string
	switch {
	case strings.HasPrefix(config.Source, "rtsp://"):
		args = []string{
			"-rtsp_transport", "tcp",
			"-i", config.Source,
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-r", fmt.Sprintf("%d", fps),
			"-q:v", "5",
			"-",
		}
	case strings.HasPrefix(config.Source, "/dev/video"):
		width, height := config.Width, config.Height
		if width <= 0 || height <= 0 {
			width, height = 1280, 720
		}
		args = []string{
			"-f", "v4l2",
			"-video_size", fmt.Sprintf("%dx%d", width, height),
			"-framerate", fmt.Sprintf("%d", fps),
			"-i", config.Source,
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-q:v", "5",
			"-",
		}
	default:
		// Video file. No -r: every source frame is analyzed.
		args = []string{
			"-i", config.Source,
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-q:v", "5",
			"-",
		}
	}

	cmd := exec.Command("ffmpeg", args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg for %s: %w", config.Source, err)
	}

	// Consume stderr silently
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
		}
	}()

	log.Printf("[FrameSource] Started ffmpeg capture for %s (fps: %d)", config.Source, fps)

	return &FFmpegSource{
		source: config.Source,
		cmd:    cmd,
		stdout: stdout,
		buf:    make([]byte, 0, 1024*1024),
		chunk:  make([]byte, 8192),
	}, nil
}

// Next returns the next complete frame. io.EOF means the video ended.
func (s *FFmpegSource) Next(ctx context.Context) (*FrameData, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if frame := extractJPEGFrame(&s.buf); frame != nil {
			s.seq++
			return &FrameData{
				Source:    s.source,
				Data:      frame,
				Seq:       s.seq,
				Timestamp: time.Now(),
			}, nil
		}

		n, err := s.stdout.Read(s.chunk)
		if n > 0 {
			s.buf = append(s.buf, s.chunk[:n]...)
			continue
		}
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed to read frame from ffmpeg: %w", err)
		}
	}
}

// Close stops ffmpeg and releases the pipe.
func (s *FFmpegSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
	}
	return nil
}

// extractJPEGFrame extracts one complete JPEG (SOI..EOI) from the buffer.
func extractJPEGFrame(buffer *[]byte) []byte {
	if len(*buffer) < 4 {
		return nil
	}

	startIdx := -1
	for i := 0; i < len(*buffer)-1; i++ {
		if (*buffer)[i] == 0xFF && (*buffer)[i+1] == 0xD8 {
			startIdx = i
			break
		}
	}
	if startIdx == -1 {
		return nil
	}

	endIdx := -1
	for i := startIdx + 2; i < len(*buffer)-1; i++ {
		if (*buffer)[i] == 0xFF && (*buffer)[i+1] == 0xD9 {
			endIdx = i + 2
			break
		}
	}
	if endIdx == -1 {
		return nil
	}

	frame := make([]byte, endIdx-startIdx)
	copy(frame, (*buffer)[startIdx:endIdx])
	*buffer = (*buffer)[endIdx:]

	return frame
}

var _ FrameSource = (*FFmpegSource)(nil)
