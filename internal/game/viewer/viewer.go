// Package viewer runs the interactive map viewer window.
package viewer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sqweek/dialog"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-iso/internal/config"
	"github.com/Faultbox/midgard-iso/internal/engine/debug"
	"github.com/Faultbox/midgard-iso/internal/engine/input"
	"github.com/Faultbox/midgard-iso/internal/engine/renderer"
	"github.com/Faultbox/midgard-iso/internal/engine/window"
	"github.com/Faultbox/midgard-iso/internal/game"
	"github.com/Faultbox/midgard-iso/internal/logger"
)

// Viewer is the windowed front end of a game.Game.
type Viewer struct {
	config   *config.Config
	running  bool
	game     *game.Game
	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input

	grid       *debug.TileGrid
	showGrid   bool
	screenshot *debug.ScreenshotCapture
	capture    bool

	atlasVersion int
	title        string
}

// New opens the window and builds the viewer context over the assets root.
func New(cfg *config.Config) (*Viewer, error) {
	logger.Info("initializing viewer",
		zap.String("title", cfg.Window.Title),
		zap.Int("width", cfg.Window.Width),
		zap.Int("height", cfg.Window.Height),
		zap.String("assets", cfg.Assets.Root),
	)

	v := &Viewer{
		config: cfg,
	}

	var err error
	v.game, err = game.New(cfg, os.DirFS(cfg.Assets.Root))
	if err != nil {
		return nil, fmt.Errorf("failed to create viewer context: %w", err)
	}

	v.window, err = window.New(window.Config{
		Title:      cfg.Window.Title,
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
	})
	if err != nil {
		v.game.Close()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	width, height := v.window.GetSize()
	v.renderer = renderer.New(v.window.Renderer(), renderer.Config{
		Width:      width,
		Height:     height,
		Background: [3]uint8{26, 26, 38},
	})
	v.game.Camera.SetViewport(float32(width), float32(height))

	v.input = input.New()
	v.grid = debug.NewTileGrid(v.game.Projector)
	v.screenshot = debug.NewScreenshotCapture("screenshots", "isoview")

	logger.Info("viewer initialized successfully")
	return v, nil
}

// Run starts the main loop. It returns when the window is closed or a tick
// fails.
func (v *Viewer) Run() error {
	v.running = true

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	logger.Info("starting viewer loop")

	for v.running {
		now := time.Now()
		dt := now.Sub(lastTime).Seconds()
		lastTime = now

		// 1. Process input
		if v.input.Update() {
			v.running = false
			break
		}
		if err := v.handleEvents(); err != nil {
			return err
		}
		v.game.Camera.Apply(v.input.Controls())

		// 2. Advance loading and rendering
		if err := v.game.Tick(); err != nil {
			return fmt.Errorf("tick error: %w", err)
		}
		if err := v.syncAtlas(); err != nil {
			return err
		}

		// 3. Draw
		v.renderer.Begin()
		v.renderer.Draw(v.game.Placements(), v.game.Camera)
		if v.showGrid {
			if _, m := v.game.Maps.Current(); m != nil {
				v.renderer.DrawLines(v.grid.Lines(int(m.Width), int(m.Height)), v.game.Camera, [4]uint8{255, 255, 255, 96})
			}
		}
		v.renderer.End()
		if v.capture {
			v.saveScreenshot()
			v.capture = false
		}
		v.updateTitle()

		// 4. Present
		v.window.Present()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			drawn, culled := v.renderer.Stats()
			logger.Sugar.Debugf("fps=%d dt=%.2fms drawn=%d culled=%d", frameCount, dt*1000, drawn, culled)
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

func (v *Viewer) handleEvents() error {
	for _, event := range v.input.Events() {
		switch event.Type {
		case input.EventWindowResize:
			v.renderer.Resize(event.Width, event.Height)
			v.game.Camera.SetViewport(float32(event.Width), float32(event.Height))
		case input.EventKeyDown:
			switch event.Key {
			case sdl.SCANCODE_ESCAPE:
				v.running = false
			case sdl.SCANCODE_R:
				if err := v.game.ReloadMap(); err != nil {
					// A broken edit should not close the viewer.
					logger.Warn("map reload failed", zap.Error(err))
				}
			case sdl.SCANCODE_F5:
				if err := v.game.ReloadSprites(); err != nil {
					return err
				}
			case sdl.SCANCODE_O:
				v.openMapDialog()
			case sdl.SCANCODE_G:
				v.showGrid = !v.showGrid
			case sdl.SCANCODE_F12:
				v.capture = true
			}
		}
	}
	return nil
}

// syncAtlas uploads the atlas whenever the game has built a new one.
func (v *Viewer) syncAtlas() error {
	if version := v.game.AtlasVersion(); version != v.atlasVersion {
		if err := v.renderer.SetAtlas(v.game.Sprites.Atlas()); err != nil {
			return fmt.Errorf("render error: %w", err)
		}
		v.atlasVersion = version
	}
	return nil
}

// openMapDialog lets the user pick another map under the assets root.
func (v *Viewer) openMapDialog() {
	root, err := filepath.Abs(v.config.Assets.Root)
	if err != nil {
		logger.Warn("resolving assets root", zap.Error(err))
		return
	}

	start := filepath.Join(root, filepath.FromSlash(filepath.Dir(v.game.Maps.CurrentName())))
	chosen, err := dialog.File().
		Title("Open map").
		Filter("Tile maps", "map", "tmx").
		SetStartDir(start).
		Load()
	if errors.Is(err, dialog.ErrCancelled) {
		return
	}
	if err != nil {
		logger.Warn("open dialog failed", zap.Error(err))
		return
	}

	rel, err := filepath.Rel(root, chosen)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		logger.Warn("map must be inside the assets root", zap.String("map", chosen), zap.String("root", root))
		return
	}
	if err := v.game.OpenMap(filepath.ToSlash(rel)); err != nil {
		logger.Warn("map open failed", zap.Error(err))
	}
}

func (v *Viewer) saveScreenshot() {
	pixels, w, h, pitch, err := v.renderer.ReadPixels()
	if err != nil {
		logger.Warn("screenshot failed", zap.Error(err))
		return
	}
	name, err := v.screenshot.CaptureFromPixels(pixels, w, h, pitch)
	if err != nil {
		logger.Warn("screenshot failed", zap.Error(err))
		return
	}
	logger.Info("screenshot saved", zap.String("file", name))
}

func (v *Viewer) updateTitle() {
	title := v.config.Window.Title + " - " + v.game.Maps.CurrentName()
	if !v.game.Sprites.IsReady() {
		title += " (loading sprites)"
	} else if v.game.MapErr() != nil {
		title += " (map has unknown tile ids)"
	} else if x, y, ok := v.game.PickCell(v.input.Mouse()); ok {
		title += fmt.Sprintf(" [%d, %d]", x, y)
	}
	if title != v.title {
		v.window.SetTitle(title)
		v.title = title
	}
}

// Close cleans up viewer resources.
func (v *Viewer) Close() {
	logger.Info("closing viewer")

	if v.renderer != nil {
		v.renderer.Close()
	}
	if v.window != nil {
		v.window.Close()
	}
	if v.game != nil {
		v.game.Close()
	}
}
