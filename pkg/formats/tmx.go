package formats

import (
	"fmt"
	"io/fs"

	"github.com/lafriks/go-tiled"
)

// ParseTMX imports one tile layer of a Tiled map as a Map.
//
// The layer is selected by name, or the first tile layer when layerName is
// empty. Tile ids are global tile ids minus one, so a map drawn with a single
// tileset whose first gid is 1 yields the tileset's local tile ids. Empty
// cells cannot be represented and are rejected.
func ParseTMX(fsys fs.FS, path string, layerName string) (*Map, error) {
	tmx, err := tiled.LoadFile(path, tiled.WithFileSystem(fsys))
	if err != nil {
		return nil, fmt.Errorf("loading TMX %s: %w", path, err)
	}

	layer := findTileLayer(tmx, layerName)
	if layer == nil {
		if layerName == "" {
			return nil, fmt.Errorf("%w: %s has no tile layer", ErrMalformedHeader, path)
		}
		return nil, fmt.Errorf("%w: %s has no tile layer %q", ErrMalformedHeader, path, layerName)
	}

	if tmx.Width < 0 || tmx.Height < 0 {
		return nil, fmt.Errorf("%w: invalid TMX dimensions %dx%d", ErrMalformedHeader, tmx.Width, tmx.Height)
	}
	width, height := uint32(tmx.Width), uint32(tmx.Height)

	expected := uint64(width) * uint64(height)
	if uint64(len(layer.Tiles)) != expected {
		return nil, &SizeMismatchError{Expected: expected, Actual: uint64(len(layer.Tiles))}
	}

	m := &Map{Width: width, Height: height, Tiles: make([]uint32, len(layer.Tiles))}
	for i, tile := range layer.Tiles {
		if tile == nil || tile.IsNil() {
			return nil, fmt.Errorf("%w: empty cell at (%d, %d) in layer %q",
				ErrMalformedValue, i%int(width), i/int(width), layer.Name)
		}
		m.Tiles[i] = tile.Tileset.FirstGID + tile.ID - 1
	}
	return m, nil
}

func findTileLayer(tmx *tiled.Map, name string) *tiled.Layer {
	for _, layer := range tmx.Layers {
		if name == "" || layer.Name == name {
			return layer
		}
	}
	return nil
}
