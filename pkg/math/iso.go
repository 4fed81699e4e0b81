package math

import "math"

// Canonical isometric tile footprint in pixels (2:1 diamond).
const (
	DefaultTileWidth  = 128
	DefaultTileHeight = 64
)

// IsoProjector converts between grid space and isometric screen space for a
// diamond tile of TileWidth x TileHeight pixels.
//
// Screen space is y-down: a larger Y is lower on screen. The grid origin
// projects to the screen origin, +X runs down-right and +Y runs up-right.
type IsoProjector struct {
	TileWidth  float32
	TileHeight float32
}

// DefaultIsoProjector returns a projector for 128x64 tiles.
func DefaultIsoProjector() IsoProjector {
	return IsoProjector{TileWidth: DefaultTileWidth, TileHeight: DefaultTileHeight}
}

// ToIsometric projects a grid point to screen space.
func (p IsoProjector) ToIsometric(grid Vec2) Vec2 {
	halfW := p.TileWidth / 2
	halfH := p.TileHeight / 2
	return Vec2{
		X: (grid.Y + grid.X) * halfW,
		Y: (grid.X - grid.Y) * halfH,
	}
}

// FromIsometric maps a screen point back to the grid cell whose footprint
// contains it. For integer grid points FromIsometric(ToIsometric(g)) == g.
func (p IsoProjector) FromIsometric(screen Vec2) Vec2 {
	u := float64(screen.X / (p.TileWidth / 2))
	v := float64(screen.Y / (p.TileHeight / 2))
	return Vec2{
		X: float32(math.Floor(0.5 * (u + v))),
		Y: float32(math.Floor(0.5 * (u - v))),
	}
}

// CellAt is FromIsometric with integer results.
func (p IsoProjector) CellAt(screen Vec2) (x, y int) {
	g := p.FromIsometric(screen)
	return int(g.X), int(g.Y)
}
