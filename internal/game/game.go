// Package game owns the map viewer's state and advances it one tick at a time.
package game

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/yohamta/donburi"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-iso/internal/assets"
	"github.com/Faultbox/midgard-iso/internal/config"
	"github.com/Faultbox/midgard-iso/internal/engine/camera"
	"github.com/Faultbox/midgard-iso/internal/engine/scene"
	"github.com/Faultbox/midgard-iso/internal/engine/sprite"
	"github.com/Faultbox/midgard-iso/internal/engine/texture"
	"github.com/Faultbox/midgard-iso/internal/game/world"
	"github.com/Faultbox/midgard-iso/internal/logger"
	"github.com/Faultbox/midgard-iso/pkg/encoding"
	"github.com/Faultbox/midgard-iso/pkg/formats"
	"github.com/Faultbox/midgard-iso/pkg/math"
)

// Game is the viewer context. Nothing in it blocks: asset decoding runs in
// the background and is observed by polling from Tick.
type Game struct {
	config *config.Config
	log    *zap.Logger

	Projector math.IsoProjector
	Assets    *assets.Manager
	Maps      *world.Manager
	Sprites   *sprite.Sprites
	Sink      *scene.EntitySink
	Renderer  *scene.MapRenderer
	Camera    *camera.PanCamera

	atlasVersion int
	mapErr       error
}

// New builds the context over fsys, starts loading the tile sprites and
// opens the configured map.
func New(cfg *config.Config, fsys fs.FS) (*Game, error) {
	g := &Game{
		config: cfg,
		log:    logger.Named("game"),
		Projector: math.IsoProjector{
			TileWidth:  cfg.Tiles.Width,
			TileHeight: cfg.Tiles.Height,
		},
	}

	g.Assets = assets.NewManager(fsys, cfg.Assets.DecodeWorkers)
	g.Maps = world.NewManager(fsys, cfg.Map.Layer)
	g.Sprites = sprite.New(g.Assets, sprite.Config{
		Dir:    encoding.NormalizePath(cfg.Sprites.Dir),
		Prefix: cfg.Sprites.Prefix,
		Ext:    cfg.Sprites.Ext,
		Digits: cfg.Sprites.Digits,
		Packer: texture.Packer{
			MaxSize: cfg.Sprites.MaxAtlasSize,
			Padding: cfg.Sprites.Padding,
		},
	})
	g.Sink = scene.NewEntitySink(donburi.NewWorld())

	g.Camera = camera.New(float32(cfg.Window.Width), float32(cfg.Window.Height))
	g.Camera.MinZoom = cfg.Camera.MinZoom
	g.Camera.KeyPanSpeed = cfg.Camera.KeyPanSpeed
	g.Camera.KeyZoomStep = cfg.Camera.KeyZoomStep
	g.Camera.DragZoomDivisor = cfg.Camera.DragZoomDivisor

	var target scene.CameraTarget
	if cfg.Camera.CenterOnLoad {
		target = g.Camera
	}
	g.Renderer = scene.NewMapRenderer(g.Projector, g.Maps, g.Sprites, g.Sink, target)

	if err := g.Sprites.Start(); err != nil {
		g.Assets.Close()
		return nil, fmt.Errorf("starting sprite load: %w", err)
	}
	if _, err := g.Maps.Open(cfg.Map.Path); err != nil {
		g.Assets.Close()
		return nil, err
	}

	g.log.Info("viewer context ready",
		zap.String("map", cfg.Map.Path),
		zap.String("sprites", cfg.Sprites.Dir),
	)
	return g, nil
}

// Tick advances the sprite builder and the map renderer by one step.
// A map holding unknown tile ids is reported through MapErr; only sprite
// build failures are returned.
func (g *Game) Tick() error {
	wasReady := g.Sprites.IsReady()
	if err := g.Sprites.Tick(); err != nil {
		return fmt.Errorf("building sprite atlas: %w", err)
	}
	if !wasReady && g.Sprites.IsReady() {
		g.atlasVersion++
	}

	rendered, err := g.Renderer.Tick()
	switch {
	case errors.Is(err, formats.ErrTileIDOutOfRange), errors.Is(err, formats.ErrSizeMismatch):
		// The previous placements stay on screen until the map is fixed.
		g.mapErr = err
		g.log.Warn("map kept from previous render", zap.Error(err))
	case err != nil:
		return fmt.Errorf("rendering map: %w", err)
	case rendered:
		g.mapErr = nil
	}
	return nil
}

// MapErr returns why the current map could not be rendered, or nil.
func (g *Game) MapErr() error {
	return g.mapErr
}

// AtlasVersion increases every time a new atlas is built, so a presenter
// knows when to upload it again.
func (g *Game) AtlasVersion() int {
	return g.atlasVersion
}

// Placements returns the current map's placements in paint order.
func (g *Game) Placements() []scene.Placement {
	return g.Sink.Placements()
}

// ReloadMap reads the current map file again. The renderer picks up the new
// handle on the next Tick.
func (g *Game) ReloadMap() error {
	name := g.Maps.CurrentName()
	if name == "" {
		name = g.config.Map.Path
	}
	if _, err := g.Maps.Open(name); err != nil {
		return err
	}
	g.log.Info("map reloaded", zap.String("map", name))
	return nil
}

// OpenMap replaces the current map with another file under the assets root.
func (g *Game) OpenMap(name string) error {
	if _, err := g.Maps.Open(name); err != nil {
		return err
	}
	g.log.Info("map opened", zap.String("map", name))
	return nil
}

// ReloadSprites rebuilds the atlas from disk and renders the map again once
// it is ready.
func (g *Game) ReloadSprites() error {
	g.Renderer.Invalidate()
	if err := g.Sprites.Reload(); err != nil {
		return fmt.Errorf("reloading sprites: %w", err)
	}
	g.log.Info("sprite reload started")
	return nil
}

// PickCell returns the map cell under a viewport pixel. ok is false when the
// pixel is outside the current map.
func (g *Game) PickCell(screenX, screenY int) (x, y int, ok bool) {
	_, m := g.Maps.Current()
	if m == nil {
		return 0, 0, false
	}

	p := g.Camera.ScreenToWorld(math.Vec2{X: float32(screenX), Y: float32(screenY)})
	x, y = scene.CellAt(g.Projector, p)
	if _, inside := m.At(x, y); !inside {
		return x, y, false
	}
	return x, y, true
}

// Close waits for background loads and releases assets.
func (g *Game) Close() {
	g.log.Info("closing viewer context")
	g.Assets.Close()
}
