// Package renderer presents tile placements through an SDL2 renderer.
package renderer

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-iso/internal/engine/camera"
	"github.com/Faultbox/midgard-iso/internal/engine/debug"
	"github.com/Faultbox/midgard-iso/internal/engine/scene"
	"github.com/Faultbox/midgard-iso/internal/engine/texture"
	"github.com/Faultbox/midgard-iso/internal/logger"
	"github.com/Faultbox/midgard-iso/pkg/math"
)

// Config holds renderer configuration.
type Config struct {
	Width      int
	Height     int
	Background [3]uint8
}

// Renderer draws atlas slots at camera-transformed placements.
type Renderer struct {
	config Config
	sdl    *sdl.Renderer

	atlas   *sdl.Texture
	slots   []image.Rectangle
	drawn   int
	skipped int
}

// New creates a renderer drawing into r.
func New(r *sdl.Renderer, cfg Config) *Renderer {
	return &Renderer{
		config: cfg,
		sdl:    r,
	}
}

// Close cleans up renderer resources.
func (r *Renderer) Close() {
	logger.Info("closing renderer")
	r.releaseAtlas()
}

func (r *Renderer) releaseAtlas() {
	if r.atlas != nil {
		r.atlas.Destroy()
		r.atlas = nil
	}
	r.slots = nil
}

// SetAtlas uploads a packed atlas, replacing the previous one.
func (r *Renderer) SetAtlas(a *texture.Atlas) error {
	r.releaseAtlas()
	if a == nil || a.Image == nil {
		return nil
	}

	img := a.Image
	size := img.Bounds().Size()
	if size.X == 0 || size.Y == 0 {
		return nil
	}

	surface, err := sdl.CreateRGBSurfaceWithFormatFrom(
		unsafe.Pointer(&img.Pix[0]),
		int32(size.X), int32(size.Y), 32, int32(img.Stride),
		uint32(sdl.PIXELFORMAT_ABGR8888),
	)
	if err != nil {
		return fmt.Errorf("creating atlas surface: %w", err)
	}
	defer surface.Free()

	tex, err := r.sdl.CreateTextureFromSurface(surface)
	if err != nil {
		return fmt.Errorf("uploading atlas texture: %w", err)
	}
	if err := tex.SetBlendMode(sdl.BLENDMODE_BLEND); err != nil {
		tex.Destroy()
		return fmt.Errorf("setting atlas blend mode: %w", err)
	}

	r.atlas = tex
	r.slots = a.Slots
	logger.Info("atlas uploaded",
		zap.Int("width", size.X),
		zap.Int("height", size.Y),
		zap.Int("slots", len(a.Slots)),
	)
	return nil
}

// HasAtlas reports whether an atlas is uploaded.
func (r *Renderer) HasAtlas() bool {
	return r.atlas != nil
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	logger.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// Begin starts a new frame.
func (r *Renderer) Begin() {
	bg := r.config.Background
	_ = r.sdl.SetDrawColor(bg[0], bg[1], bg[2], 255)
	_ = r.sdl.Clear()
	r.drawn, r.skipped = 0, 0
}

// Draw copies each placement's slot to the screen. Placements must already
// be in paint order.
func (r *Renderer) Draw(placements []scene.Placement, cam *camera.PanCamera) {
	if r.atlas == nil {
		return
	}
	scale := cam.Scale()
	view := image.Rect(0, 0, r.config.Width, r.config.Height)

	for _, p := range placements {
		if int(p.Slot) >= len(r.slots) {
			r.skipped++
			continue
		}
		src := r.slots[p.Slot]
		dst := destRect(p.Bounds(src.Size()), cam, scale)
		if !dst.Overlaps(view) {
			r.skipped++
			continue
		}

		_ = r.sdl.Copy(r.atlas,
			&sdl.Rect{X: int32(src.Min.X), Y: int32(src.Min.Y), W: int32(src.Dx()), H: int32(src.Dy())},
			&sdl.Rect{X: int32(dst.Min.X), Y: int32(dst.Min.Y), W: int32(dst.Dx()), H: int32(dst.Dy())},
		)
		r.drawn++
	}
}

// DrawLines draws debug segments in placement space.
func (r *Renderer) DrawLines(lines []debug.Segment, cam *camera.PanCamera, color [4]uint8) {
	_ = r.sdl.SetDrawBlendMode(sdl.BLENDMODE_BLEND)
	_ = r.sdl.SetDrawColor(color[0], color[1], color[2], color[3])
	for _, l := range lines {
		a := cam.WorldToScreen(l.A)
		b := cam.WorldToScreen(l.B)
		_ = r.sdl.DrawLine(int32(a.X), int32(a.Y), int32(b.X), int32(b.Y))
	}
}

// ReadPixels copies the frame drawn so far as RGBA rows, top row first.
func (r *Renderer) ReadPixels() (pixels []byte, width, height, pitch int, err error) {
	width, height = r.config.Width, r.config.Height
	pitch = width * 4
	pixels = make([]byte, pitch*height)
	if len(pixels) == 0 {
		return nil, 0, 0, 0, fmt.Errorf("empty viewport %dx%d", width, height)
	}
	if err := r.sdl.ReadPixels(nil, uint32(sdl.PIXELFORMAT_ABGR8888), unsafe.Pointer(&pixels[0]), pitch); err != nil {
		return nil, 0, 0, 0, fmt.Errorf("reading frame pixels: %w", err)
	}
	return pixels, width, height, pitch, nil
}

// End finishes the current frame.
func (r *Renderer) End() {
	logger.Log.Debug("frame drawn", zap.Int("drawn", r.drawn), zap.Int("culled", r.skipped))
}

// Stats returns the sprites drawn and culled in the last frame.
func (r *Renderer) Stats() (drawn, culled int) {
	return r.drawn, r.skipped
}

// destRect maps a sprite's placement-space bounds to the viewport.
// The extra pixel hides seams between neighbours at fractional zoom.
func destRect(bounds image.Rectangle, cam *camera.PanCamera, scale float32) image.Rectangle {
	at := cam.WorldToScreen(math.Vec2{X: float32(bounds.Min.X), Y: float32(bounds.Min.Y)}).Floor()
	w := int(float32(bounds.Dx())*scale) + 1
	h := int(float32(bounds.Dy())*scale) + 1
	return image.Rect(int(at.X), int(at.Y), int(at.X)+w, int(at.Y)+h)
}
