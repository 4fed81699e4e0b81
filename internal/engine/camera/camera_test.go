package camera

import (
	"testing"

	"github.com/Faultbox/midgard-iso/pkg/math"
)

func TestNewDefaults(t *testing.T) {
	c := New(1280, 720)

	if c.Zoom != 1 {
		t.Errorf("expected zoom 1, got %v", c.Zoom)
	}
	if c.MinZoom != 1 {
		t.Errorf("expected min zoom 1, got %v", c.MinZoom)
	}
	if !c.Offset.IsZero() {
		t.Errorf("expected zero offset, got %v", c.Offset)
	}
}

func TestHandleDragFollowsCursor(t *testing.T) {
	c := New(800, 600)
	c.Zoom = 2

	c.HandleDrag(10, -5)
	if c.Offset.X != -20 || c.Offset.Y != 10 {
		t.Errorf("expected offset (-20, 10), got %v", c.Offset)
	}
}

func TestZoomClamped(t *testing.T) {
	c := New(800, 600)

	c.HandleZoom(-0.5)
	if c.Zoom != 1 {
		t.Errorf("expected zoom clamped to 1, got %v", c.Zoom)
	}

	c.MaxZoom = 3
	c.HandleZoom(5)
	if c.Zoom != 3 {
		t.Errorf("expected zoom clamped to 3, got %v", c.Zoom)
	}
}

func TestApplyKeys(t *testing.T) {
	c := New(800, 600)

	c.Apply(Controls{Left: true, Down: true})
	if c.Offset.X != -10 || c.Offset.Y != 10 {
		t.Errorf("expected offset (-10, 10), got %v", c.Offset)
	}

	c.Apply(Controls{Right: true, Up: true})
	if !c.Offset.IsZero() {
		t.Errorf("expected offset back at origin, got %v", c.Offset)
	}

	c.Apply(Controls{ZoomOut: true})
	c.Apply(Controls{ZoomOut: true})
	if c.Zoom < 1.19 || c.Zoom > 1.21 {
		t.Errorf("expected zoom 1.2, got %v", c.Zoom)
	}

	c.Apply(Controls{ZoomIn: true})
	if c.Zoom < 1.09 || c.Zoom > 1.11 {
		t.Errorf("expected zoom 1.1, got %v", c.Zoom)
	}
}

func TestApplyZoomDrag(t *testing.T) {
	c := New(800, 600)

	// 4 pixels is below the jitter threshold.
	c.Apply(Controls{ZoomDrag: 4})
	if c.Zoom != 1 {
		t.Errorf("expected zoom unchanged, got %v", c.Zoom)
	}

	c.Apply(Controls{ZoomDrag: 250})
	if c.Zoom != 1.5 {
		t.Errorf("expected zoom 1.5, got %v", c.Zoom)
	}
}

func TestScreenWorldRoundTrip(t *testing.T) {
	c := New(800, 600)
	c.SetOffset(100, -50)
	c.Zoom = 2

	center := c.WorldToScreen(math.Vec2{X: 100, Y: -50})
	if center.X != 400 || center.Y != 300 {
		t.Errorf("expected offset at viewport middle, got %v", center)
	}

	p := math.Vec2{X: 37, Y: 412}
	back := c.WorldToScreen(c.ScreenToWorld(p))
	if back != p {
		t.Errorf("expected %v, got %v", p, back)
	}
}
