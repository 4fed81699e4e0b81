package debug

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

// ScreenshotCapture writes frames to timestamped PNG files.
type ScreenshotCapture struct {
	outputDir string
	prefix    string
	now       func() time.Time
}

// NewScreenshotCapture creates a new screenshot capture handler.
func NewScreenshotCapture(outputDir, prefix string) *ScreenshotCapture {
	return &ScreenshotCapture{
		outputDir: outputDir,
		prefix:    prefix,
		now:       time.Now,
	}
}

// CaptureFromPixels saves RGBA pixel rows, top row first, pitch bytes apart.
func (sc *ScreenshotCapture) CaptureFromPixels(pixels []byte, width, height, pitch int) (string, error) {
	rowSize := width * 4
	if pitch < rowSize || len(pixels) < pitch*(height-1)+rowSize {
		return "", fmt.Errorf("pixel data size mismatch: %d bytes for %dx%d with pitch %d", len(pixels), width, height, pitch)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+rowSize], pixels[y*pitch:y*pitch+rowSize])
	}
	return sc.CaptureFromImage(img)
}

// CaptureFromImage saves an image and returns the file name.
func (sc *ScreenshotCapture) CaptureFromImage(img image.Image) (string, error) {
	if sc.outputDir != "" {
		if err := os.MkdirAll(sc.outputDir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	timestamp := sc.now().Format("2006-01-02_15-04-05.000")
	filename := filepath.Join(sc.outputDir, fmt.Sprintf("%s_%s.png", sc.prefix, timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("encoding PNG: %w", err)
	}
	return filename, nil
}
