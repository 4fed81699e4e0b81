// Package debug provides debug visualization utilities.
package debug

import (
	"github.com/Faultbox/midgard-iso/pkg/math"
)

// Segment is a line between two points in placement space.
type Segment struct {
	A, B math.Vec2
}

// TileGrid outlines the cell footprints of a map.
type TileGrid struct {
	proj math.IsoProjector
}

// NewTileGrid creates a grid generator for the given projector.
func NewTileGrid(proj math.IsoProjector) *TileGrid {
	return &TileGrid{proj: proj}
}

// Lines returns the grid lines of a width x height map. Lines are moved left
// half a tile so they trace the diamonds of sprites centred on their
// projected cell.
func (g *TileGrid) Lines(width, height int) []Segment {
	if width <= 0 || height <= 0 {
		return nil
	}

	shift := math.Vec2{X: -g.proj.TileWidth / 2}
	at := func(x, y int) math.Vec2 {
		return g.proj.ToIsometric(math.Vec2{X: float32(x), Y: float32(y)}).Add(shift)
	}

	lines := make([]Segment, 0, width+height+2)
	for x := 0; x <= width; x++ {
		lines = append(lines, Segment{A: at(x, 0), B: at(x, height)})
	}
	for y := 0; y <= height; y++ {
		lines = append(lines, Segment{A: at(0, y), B: at(width, y)})
	}
	return lines
}
