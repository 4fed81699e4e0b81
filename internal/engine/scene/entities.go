package scene

import (
	"github.com/yohamta/donburi"
)

// PlacementComponent holds one rendered tile's placement.
var PlacementComponent = donburi.NewComponentType[Placement]()

// RenderedTile tags entities created by EntitySink.
var RenderedTile = donburi.NewTag().SetName("RenderedTile")

// EntitySink stores placements as entities of a donburi world so a
// presenter can draw them alongside other entities.
type EntitySink struct {
	world donburi.World
}

// NewEntitySink creates a sink writing into w.
func NewEntitySink(w donburi.World) *EntitySink {
	return &EntitySink{world: w}
}

// World returns the backing world.
func (s *EntitySink) World() donburi.World {
	return s.world
}

// ClearPlacements removes every entity created by this sink.
func (s *EntitySink) ClearPlacements() {
	var stale []donburi.Entity
	RenderedTile.Each(s.world, func(entry *donburi.Entry) {
		stale = append(stale, entry.Entity())
	})
	for _, e := range stale {
		if s.world.Valid(e) {
			s.world.Remove(e)
		}
	}
}

// AddPlacement creates one tile entity.
func (s *EntitySink) AddPlacement(p Placement) {
	e := s.world.Create(RenderedTile, PlacementComponent)
	PlacementComponent.SetValue(s.world.Entry(e), p)
}

// Placements returns all stored placements in paint order.
func (s *EntitySink) Placements() []Placement {
	var out []Placement
	PlacementComponent.Each(s.world, func(entry *donburi.Entry) {
		out = append(out, *PlacementComponent.Get(entry))
	})
	SortForPaint(out)
	return out
}
