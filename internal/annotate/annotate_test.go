package annotate

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"sentio/internal/landmark"
)

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{40, 40, 40, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode test frame: %v", err)
	}
	return buf.Bytes()
}

func TestForFace(t *testing.T) {
	box := landmark.FaceBox{XMin: 0.25, YMin: 0.5, Width: 0.5, Height: 0.25, Confidence: 0.87}
	label := ForFace(box, 640, 480)

	want := image.Rect(160, 240, 480, 360)
	if label.Box != want {
		t.Errorf("box = %v, want %v", label.Box, want)
	}
	if label.Text != "Face 87%" {
		t.Errorf("text = %q, want %q", label.Text, "Face 87%")
	}
}

func TestRenderKeepsDimensions(t *testing.T) {
	a := New()
	frame := testJPEG(t, 320, 240)

	out, err := a.Render(frame, Overlay{
		FrameIndex:   7,
		Faces:        []FaceLabel{ForFace(landmark.FaceBox{XMin: 0.1, YMin: 0.1, Width: 0.3, Height: 0.3, Confidence: 0.9}, 320, 240)},
		EmotionText:  "Emotion: happy",
		ActivityText: "Activity: standing",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode rendered frame: %v", err)
	}
	if cfg.Width != 320 || cfg.Height != 240 {
		t.Errorf("rendered frame is %dx%d, want 320x240", cfg.Width, cfg.Height)
	}
}

func TestRenderRejectsGarbage(t *testing.T) {
	a := New()
	if _, err := a.Render([]byte("not a jpeg"), Overlay{FrameIndex: 1}); err == nil {
		t.Fatal("expected error for undecodable frame")
	}
}
