// Package camera provides the 2D pan/zoom camera used to view isometric maps.
package camera

import (
	gomath "math"

	"github.com/Faultbox/midgard-iso/pkg/math"
)

// Controls is the camera input gathered over one tick.
type Controls struct {
	Drag     math.Vec2 // pan drag in screen pixels
	ZoomDrag float32   // vertical zoom drag in screen pixels

	Left, Right, Up, Down bool
	ZoomIn, ZoomOut       bool
}

// PanCamera looks at a point of screen space from above. Screen space is the
// projector's output: y grows downward.
type PanCamera struct {
	// World point shown at the middle of the viewport
	Offset math.Vec2

	// World pixels per screen pixel; larger shows more of the map
	Zoom float32

	// Viewport size in screen pixels
	ViewWidth, ViewHeight float32

	// Constraints
	MinZoom float32
	MaxZoom float32 // zero means unbounded

	// Sensitivity
	KeyPanSpeed     float32 // world pixels per tick
	KeyZoomStep     float32 // zoom change per tick
	DragZoomDivisor float32 // drag pixels per unit of zoom
}

// New creates a camera with default settings.
func New(viewWidth, viewHeight float32) *PanCamera {
	return &PanCamera{
		Zoom:            1,
		ViewWidth:       viewWidth,
		ViewHeight:      viewHeight,
		MinZoom:         1,
		KeyPanSpeed:     10,
		KeyZoomStep:     0.1,
		DragZoomDivisor: 500,
	}
}

// SetOffset moves the camera to look at (x, y).
func (c *PanCamera) SetOffset(x, y float32) {
	c.Offset = math.Vec2{X: x, Y: y}
}

// SetViewport updates the viewport size after a resize.
func (c *PanCamera) SetViewport(width, height float32) {
	c.ViewWidth = width
	c.ViewHeight = height
}

// HandleDrag pans so the map follows the cursor.
func (c *PanCamera) HandleDrag(deltaX, deltaY float32) {
	c.Offset.X -= deltaX * c.Zoom
	c.Offset.Y -= deltaY * c.Zoom
}

// HandleZoom changes the zoom by delta, clamped to the zoom limits.
func (c *PanCamera) HandleZoom(delta float32) {
	c.Zoom += delta
	if c.Zoom < c.MinZoom {
		c.Zoom = c.MinZoom
	}
	if c.MaxZoom > 0 && c.Zoom > c.MaxZoom {
		c.Zoom = c.MaxZoom
	}
}

// Apply updates the camera from one tick of input.
func (c *PanCamera) Apply(in Controls) {
	if !in.Drag.IsZero() {
		c.HandleDrag(in.Drag.X, in.Drag.Y)
	}

	var pan math.Vec2
	if in.Left {
		pan.X -= c.KeyPanSpeed
	}
	if in.Right {
		pan.X += c.KeyPanSpeed
	}
	if in.Up {
		pan.Y -= c.KeyPanSpeed
	}
	if in.Down {
		pan.Y += c.KeyPanSpeed
	}
	c.Offset = c.Offset.Add(pan)

	var zoom float32
	if in.ZoomDrag != 0 && c.DragZoomDivisor != 0 {
		zoom += in.ZoomDrag / c.DragZoomDivisor
	}
	if in.ZoomIn {
		zoom -= c.KeyZoomStep
	}
	if in.ZoomOut {
		zoom += c.KeyZoomStep
	}
	// Ignore jitter from tiny drags.
	if gomath.Abs(float64(zoom)) > 0.01 {
		c.HandleZoom(zoom)
	}
}

// WorldToScreen converts a screen-space map point to viewport pixels.
func (c *PanCamera) WorldToScreen(p math.Vec2) math.Vec2 {
	return math.Vec2{
		X: (p.X-c.Offset.X)/c.Zoom + c.ViewWidth/2,
		Y: (p.Y-c.Offset.Y)/c.Zoom + c.ViewHeight/2,
	}
}

// ScreenToWorld converts viewport pixels to a screen-space map point.
func (c *PanCamera) ScreenToWorld(p math.Vec2) math.Vec2 {
	return math.Vec2{
		X: (p.X-c.ViewWidth/2)*c.Zoom + c.Offset.X,
		Y: (p.Y-c.ViewHeight/2)*c.Zoom + c.Offset.Y,
	}
}

// Scale returns the size on screen of one world pixel.
func (c *PanCamera) Scale() float32 {
	return 1 / c.Zoom
}
