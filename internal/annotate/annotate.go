package annotate

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"sentio/internal/landmark"
)

var (
	faceColor     = color.RGBA{0, 255, 0, 255}
	emotionColor  = color.RGBA{255, 0, 255, 255}
	activityColor = color.RGBA{0, 255, 255, 255}
	counterColor  = color.RGBA{0, 255, 0, 255}
)

// FaceLabel is a single face annotation: an absolute pixel box plus its
// display text. Each detection in a frame gets its own label.
type FaceLabel struct {
	Box  image.Rectangle
	Text string
}

// ForFace converts a normalized face box into a pixel-space annotation
// for a frame of the given dimensions. Formatting only, no decision logic.
func ForFace(box landmark.FaceBox, width, height int) FaceLabel {
	x := int(box.XMin * float64(width))
	y := int(box.YMin * float64(height))
	w := int(box.Width * float64(width))
	h := int(box.Height * float64(height))
	return FaceLabel{
		Box:  image.Rect(x, y, x+w, y+h),
		Text: fmt.Sprintf("Face %.0f%%", box.Confidence*100),
	}
}

// Overlay describes everything to draw onto one frame.
type Overlay struct {
	FrameIndex   int
	Faces        []FaceLabel
	EmotionText  string
	ActivityText string
}

// Annotator draws overlays onto JPEG frames.
type Annotator struct {
	quality int
}

// New creates an annotator. Frames are re-encoded at JPEG quality 85.
func New() *Annotator {
	return &Annotator{quality: 85}
}

// Render decodes a JPEG frame, draws the overlay and encodes it back.
// The input buffer is never modified.
func (a *Annotator) Render(jpegData []byte, overlay Overlay) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(jpegData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	for _, face := range overlay.Faces {
		drawBox(rgba, face.Box, faceColor, 2)
		drawLabel(rgba, face.Box.Min.X, face.Box.Min.Y-5, face.Text, faceColor)
	}

	h := bounds.Dy()
	if overlay.EmotionText != "" {
		drawLabel(rgba, 10, h-50, overlay.EmotionText, emotionColor)
	}
	if overlay.ActivityText != "" {
		drawLabel(rgba, 10, h-20, overlay.ActivityText, activityColor)
	}
	if overlay.FrameIndex > 0 {
		drawLabel(rgba, 10, 20, fmt.Sprintf("Frame: %d", overlay.FrameIndex), counterColor)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgba, &jpeg.Options{Quality: a.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// drawBox draws a rectangle outline on the image.
func drawBox(img *image.RGBA, r image.Rectangle, c color.RGBA, thickness int) {
	bounds := img.Bounds()
	x, y := r.Min.X, r.Min.Y
	w, h := r.Dx(), r.Dy()

	for t := 0; t < thickness; t++ {
		for i := x; i < x+w && i < bounds.Max.X; i++ {
			if y+t >= 0 && y+t < bounds.Max.Y && i >= 0 {
				img.Set(i, y+t, c)
			}
			if y+h-t >= 0 && y+h-t < bounds.Max.Y && i >= 0 {
				img.Set(i, y+h-t, c)
			}
		}
		for j := y; j < y+h && j < bounds.Max.Y; j++ {
			if x+t >= 0 && x+t < bounds.Max.X && j >= 0 {
				img.Set(x+t, j, c)
			}
			if x+w-t >= 0 && x+w-t < bounds.Max.X && j >= 0 {
				img.Set(x+w-t, j, c)
			}
		}
	}
}

// drawLabel draws text with a dark background strip.
func drawLabel(img *image.RGBA, x, y int, label string, c color.RGBA) {
	if y < 10 {
		y = 10
	}
	if x < 0 {
		x = 0
	}

	bgColor := color.RGBA{0, 0, 0, 180}
	textWidth := len(label) * 7
	for dy := -2; dy < 12; dy++ {
		for dx := -2; dx < textWidth+2; dx++ {
			px, py := x+dx, y+dy
			if px >= 0 && px < img.Bounds().Max.X && py >= 0 && py < img.Bounds().Max.Y {
				img.Set(px, py, bgColor)
			}
		}
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y + 10)},
	}
	d.DrawString(label)
}
