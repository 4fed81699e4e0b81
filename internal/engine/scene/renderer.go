package scene

import (
	"image"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-iso/internal/game/world"
	"github.com/Faultbox/midgard-iso/internal/logger"
	"github.com/Faultbox/midgard-iso/pkg/formats"
	"github.com/Faultbox/midgard-iso/pkg/math"
)

// SpriteLookup resolves tile ids to atlas slots.
type SpriteLookup interface {
	IsReady() bool
	Len() int
	TileSpriteSlot(id uint32) (uint32, error)
	TileSpriteSize(id uint32) (image.Point, error)
}

// MapSource yields the current map. A zero handle means no map.
type MapSource interface {
	Current() (world.Handle, *formats.Map)
}

// CameraTarget is positioned over a freshly rendered map.
type CameraTarget interface {
	SetOffset(x, y float32)
}

// MapRenderer emits placements for the current map whenever it changes.
type MapRenderer struct {
	proj    math.IsoProjector
	maps    MapSource
	sprites SpriteLookup
	sink    Sink
	camera  CameraTarget
	log     *zap.Logger

	last world.Handle
}

// NewMapRenderer creates a renderer. camera may be nil.
func NewMapRenderer(proj math.IsoProjector, maps MapSource, sprites SpriteLookup, sink Sink, camera CameraTarget) *MapRenderer {
	return &MapRenderer{
		proj:    proj,
		maps:    maps,
		sprites: sprites,
		sink:    sink,
		camera:  camera,
		log:     logger.Named("scene"),
	}
}

// LastRendered returns the handle of the last map a pass was attempted for.
func (r *MapRenderer) LastRendered() world.Handle {
	return r.last
}

// Invalidate forces the next Tick to render the current map again.
func (r *MapRenderer) Invalidate() {
	r.last = 0
}

// Tick runs a render pass if the sprites are ready and the current map
// differs from the last one rendered. It reports whether placements were
// emitted.
//
// A map holding a tile id the sprite table cannot resolve is rejected with
// formats.ErrTileIDOutOfRange before the sink is touched. Its handle is still
// recorded so the failure is reported once.
func (r *MapRenderer) Tick() (bool, error) {
	if !r.sprites.IsReady() {
		return false, nil
	}
	h, m := r.maps.Current()
	if h == 0 || m == nil || h == r.last {
		return false, nil
	}
	r.last = h

	if err := m.Validate(r.sprites.Len()); err != nil {
		r.log.Error("map not rendered", zap.Uint64("handle", uint64(h)), zap.Error(err))
		return false, err
	}

	r.sink.ClearPlacements()

	w, ht := int(m.Width), int(m.Height)
	_, yMin, yMax := Extents(r.proj, m)
	for x := 0; x < w; x++ {
		for y := ht - 1; y >= 0; y-- {
			id := m.Tiles[y*w+x]
			slot, err := r.sprites.TileSpriteSlot(id)
			if err != nil {
				return false, err
			}
			size, err := r.sprites.TileSpriteSize(id)
			if err != nil {
				return false, err
			}

			pos := r.proj.ToIsometric(math.Vec2{X: float32(x), Y: float32(y)})
			depth := (yMax - pos.Y - yMin) / yMax

			// Tall sprites (trees, buildings) rise above their footprint.
			if excess := float32(size.Y) - r.proj.TileHeight; excess > 0 {
				pos.Y -= excess / 2
			}

			r.sink.AddPlacement(Placement{Position: pos, Depth: depth, Slot: slot})
		}
	}

	if r.camera != nil {
		r.camera.SetOffset(CenterOffset(r.proj, m))
	}

	r.log.Debug("map rendered",
		zap.Uint64("handle", uint64(h)),
		zap.Int("placements", w*ht),
	)
	return true, nil
}

// Extents returns the projected bounds of a map: the right edge xMax and the
// vertical range [yMin, yMax] of footprint origins.
func Extents(proj math.IsoProjector, m *formats.Map) (xMax, yMin, yMax float32) {
	halfW, halfH := proj.TileWidth/2, proj.TileHeight/2
	xMax = float32(m.Width+m.Height) * halfW
	yMin = -float32(m.Height) * halfH
	yMax = float32(m.Width) * halfH
	return xMax, yMin, yMax
}

// CenterOffset returns the camera offset that puts the map's middle at the
// view origin.
func CenterOffset(proj math.IsoProjector, m *formats.Map) (x, y float32) {
	xMax, yMin, yMax := Extents(proj, m)
	return xMax/2 - proj.TileWidth/2, (yMax+yMin)/2 - proj.TileHeight/2
}

// CellAt returns the map cell whose footprint contains a placement-space
// point. Footprints are centred on the projected grid points.
func CellAt(proj math.IsoProjector, p math.Vec2) (x, y int) {
	return proj.CellAt(p.Add(math.Vec2{X: proj.TileWidth / 2}))
}
