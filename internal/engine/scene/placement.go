// Package scene turns the current map into ordered sprite placements.
package scene

import (
	"image"
	"sort"

	"github.com/Faultbox/midgard-iso/pkg/math"
)

// Placement says where one tile sprite goes on screen.
type Placement struct {
	Position math.Vec2 // centre of the sprite, y down
	Depth    float32   // larger is further back
	Slot     uint32    // atlas slot
}

// Bounds returns the pixel rectangle covered by a sprite of the given size
// drawn at the placement.
func (p Placement) Bounds(size image.Point) image.Rectangle {
	corner := p.Position.Sub(math.Vec2{X: float32(size.X) / 2, Y: float32(size.Y) / 2}).Floor()
	at := image.Pt(int(corner.X), int(corner.Y))
	return image.Rectangle{Min: at, Max: at.Add(size)}
}

// Sink receives placements from a render pass. ClearPlacements is called
// once before the first AddPlacement of every pass.
type Sink interface {
	ClearPlacements()
	AddPlacement(p Placement)
}

// SortForPaint orders placements back to front: descending depth, with
// equal depths kept in emission order.
func SortForPaint(ps []Placement) {
	sort.SliceStable(ps, func(i, j int) bool {
		return ps[i].Depth > ps[j].Depth
	})
}

// RecordSink collects placements in a slice.
type RecordSink struct {
	Placements []Placement
	Clears     int
}

// ClearPlacements drops the collected placements.
func (s *RecordSink) ClearPlacements() {
	s.Placements = s.Placements[:0]
	s.Clears++
}

// AddPlacement appends a placement.
func (s *RecordSink) AddPlacement(p Placement) {
	s.Placements = append(s.Placements, p)
}
