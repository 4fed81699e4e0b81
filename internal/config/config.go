// Package config handles viewer and tool configuration loading and management.
package config

import (
	"errors"
	"fmt"
)

// Config holds all settings.
type Config struct {
	Map     MapConfig     `yaml:"map"`
	Sprites SpritesConfig `yaml:"sprites"`
	Tiles   TilesConfig   `yaml:"tiles"`
	Assets  AssetsConfig  `yaml:"assets"`
	Window  WindowConfig  `yaml:"window"`
	Camera  CameraConfig  `yaml:"camera"`
	Logging LoggingConfig `yaml:"logging"`
}

// MapConfig selects the map shown at startup.
type MapConfig struct {
	Path  string `yaml:"path"`  // .map text file or .tmx Tiled file, relative to assets root
	Layer string `yaml:"layer"` // TMX tile layer name; empty = first layer
}

// SpritesConfig describes the tile sprite folder and its naming convention.
// Tile N is read from Dir/Prefix + N zero-padded to Digits + Ext.
type SpritesConfig struct {
	Dir          string `yaml:"dir"`
	Prefix       string `yaml:"prefix"`
	Ext          string `yaml:"ext"`
	Digits       int    `yaml:"digits"`
	Padding      int    `yaml:"padding"`        // pixels between packed sprites
	MaxAtlasSize int    `yaml:"max_atlas_size"` // atlas edge limit in pixels
}

// TilesConfig holds the isometric tile footprint in pixels.
type TilesConfig struct {
	Width  float32 `yaml:"width"`
	Height float32 `yaml:"height"`
}

// AssetsConfig holds asset loading settings.
type AssetsConfig struct {
	Root          string `yaml:"root"`
	DecodeWorkers int    `yaml:"decode_workers"`
}

// WindowConfig holds viewer window settings.
type WindowConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
}

// CameraConfig holds pan/zoom tuning.
type CameraConfig struct {
	KeyPanSpeed     float32 `yaml:"key_pan_speed"`     // pixels per tick while a pan key is held
	KeyZoomStep     float32 `yaml:"key_zoom_step"`     // zoom change per tick while +/- is held
	DragZoomDivisor float32 `yaml:"drag_zoom_divisor"` // right-drag pixels per unit of zoom
	MinZoom         float32 `yaml:"min_zoom"`
	CenterOnLoad    bool    `yaml:"center_on_load"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Map: MapConfig{
			Path: "maps/default.map",
		},
		Sprites: SpritesConfig{
			Dir:          "textures/map",
			Prefix:       "landscapeTiles_",
			Ext:          ".png",
			Digits:       3,
			Padding:      0,
			MaxAtlasSize: 8192,
		},
		Tiles: TilesConfig{
			Width:  128,
			Height: 64,
		},
		Assets: AssetsConfig{
			Root:          "assets",
			DecodeWorkers: 4,
		},
		Window: WindowConfig{
			Title:  "isoview",
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Camera: CameraConfig{
			KeyPanSpeed:     10,
			KeyZoomStep:     0.1,
			DragZoomDivisor: 500,
			MinZoom:         1,
			CenterOnLoad:    true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports settings that would make the core misbehave.
func (c *Config) Validate() error {
	var errs []error
	if c.Tiles.Width <= 0 || c.Tiles.Height <= 0 {
		errs = append(errs, fmt.Errorf("tiles: size must be positive, got %vx%v", c.Tiles.Width, c.Tiles.Height))
	}
	if c.Sprites.Digits < 1 || c.Sprites.Digits > 9 {
		errs = append(errs, fmt.Errorf("sprites: digits must be in [1,9], got %d", c.Sprites.Digits))
	}
	if c.Sprites.Padding < 0 {
		errs = append(errs, fmt.Errorf("sprites: negative padding %d", c.Sprites.Padding))
	}
	if c.Sprites.MaxAtlasSize <= 0 {
		errs = append(errs, fmt.Errorf("sprites: max_atlas_size must be positive, got %d", c.Sprites.MaxAtlasSize))
	}
	if c.Assets.DecodeWorkers < 1 {
		errs = append(errs, fmt.Errorf("assets: decode_workers must be at least 1, got %d", c.Assets.DecodeWorkers))
	}
	if c.Camera.MinZoom <= 0 {
		errs = append(errs, fmt.Errorf("camera: min_zoom must be positive, got %v", c.Camera.MinZoom))
	}
	return errors.Join(errs...)
}
