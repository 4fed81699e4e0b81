package game

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"

	"github.com/Faultbox/midgard-iso/internal/config"
	"github.com/Faultbox/midgard-iso/pkg/formats"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{G: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

func testSetup(t *testing.T, mapText string) (*config.Config, fstest.MapFS) {
	t.Helper()
	cfg := config.Default()
	cfg.Map.Path = "maps/test.map"
	cfg.Sprites.Dir = "tiles"
	cfg.Sprites.Prefix = "t_"

	fsys := fstest.MapFS{
		"maps/test.map":  {Data: []byte(mapText)},
		"tiles/t_000.png": {Data: encodePNG(t, 128, 64)},
		"tiles/t_001.png": {Data: encodePNG(t, 128, 96)},
	}
	return cfg, fsys
}

// tickUntilReady waits for background decoding, then ticks once.
func tickUntilReady(t *testing.T, g *Game) {
	t.Helper()
	g.Assets.Wait()
	if err := g.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if !g.Sprites.IsReady() {
		t.Fatalf("expected sprites ready, got %s", g.Sprites.State())
	}
}

func TestGameRendersMap(t *testing.T) {
	cfg, fsys := testSetup(t, "2,2\n0,1\n1,0\n")
	g, err := New(cfg, fsys)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer g.Close()

	tickUntilReady(t, g)

	if n := len(g.Placements()); n != 4 {
		t.Fatalf("expected 4 placements, got %d", n)
	}
	if g.AtlasVersion() != 1 {
		t.Errorf("expected atlas version 1, got %d", g.AtlasVersion())
	}
	if g.Camera.Offset.X != 64 || g.Camera.Offset.Y != -32 {
		t.Errorf("expected camera centred at (64, -32), got %v", g.Camera.Offset)
	}

	// Further ticks change nothing.
	if err := g.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if n := len(g.Placements()); n != 4 {
		t.Errorf("expected 4 placements, got %d", n)
	}
}

func TestGameReloadMap(t *testing.T) {
	cfg, fsys := testSetup(t, "2,2\n0,1\n1,0\n")
	g, err := New(cfg, fsys)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer g.Close()
	tickUntilReady(t, g)

	first := g.Renderer.LastRendered()
	fsys["maps/test.map"] = &fstest.MapFile{Data: []byte("1,1\n1\n")}
	if err := g.ReloadMap(); err != nil {
		t.Fatalf("ReloadMap failed: %v", err)
	}
	if err := g.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}

	if g.Renderer.LastRendered() == first {
		t.Error("expected a new handle to be rendered")
	}
	if n := len(g.Placements()); n != 1 {
		t.Errorf("expected 1 placement after reload, got %d", n)
	}
}

func TestGameOpenMap(t *testing.T) {
	cfg, fsys := testSetup(t, "2,2\n0,1\n1,0\n")
	fsys["maps/other.map"] = &fstest.MapFile{Data: []byte("3,1\n1,1,1\n")}
	g, err := New(cfg, fsys)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer g.Close()
	tickUntilReady(t, g)

	if err := g.OpenMap("maps/missing.map"); err == nil {
		t.Error("expected error for missing map")
	}
	if g.Maps.CurrentName() != "maps/test.map" {
		t.Errorf("expected failed open to keep current map, got %s", g.Maps.CurrentName())
	}

	if err := g.OpenMap("maps/other.map"); err != nil {
		t.Fatalf("OpenMap failed: %v", err)
	}
	if err := g.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if n := len(g.Placements()); n != 3 {
		t.Errorf("expected 3 placements, got %d", n)
	}
	if g.Maps.Len() != 1 {
		t.Errorf("expected previous map dropped, got %d stored", g.Maps.Len())
	}
}

func TestGameReloadSprites(t *testing.T) {
	cfg, fsys := testSetup(t, "1,1\n0\n")
	g, err := New(cfg, fsys)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer g.Close()
	tickUntilReady(t, g)

	if err := g.ReloadSprites(); err != nil {
		t.Fatalf("ReloadSprites failed: %v", err)
	}
	tickUntilReady(t, g)

	if g.AtlasVersion() != 2 {
		t.Errorf("expected atlas version 2, got %d", g.AtlasVersion())
	}
	if n := len(g.Placements()); n != 1 {
		t.Errorf("expected map rendered again, got %d placements", n)
	}
}

func TestGameRejectsUnknownTile(t *testing.T) {
	cfg, fsys := testSetup(t, "1,1\n9\n")
	g, err := New(cfg, fsys)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer g.Close()

	g.Assets.Wait()
	if err := g.Tick(); err != nil {
		t.Fatalf("expected unknown tile ids not to fail Tick, got %v", err)
	}
	if !errors.Is(g.MapErr(), formats.ErrTileIDOutOfRange) {
		t.Errorf("expected ErrTileIDOutOfRange, got %v", g.MapErr())
	}
	if n := len(g.Placements()); n != 0 {
		t.Errorf("expected no placements, got %d", n)
	}
}

func TestGameReloadBadMapKeepsPlacements(t *testing.T) {
	cfg, fsys := testSetup(t, "2,2\n0,1\n1,0\n")
	g, err := New(cfg, fsys)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer g.Close()
	tickUntilReady(t, g)
	before := g.Placements()

	fsys["maps/test.map"] = &fstest.MapFile{Data: []byte("1,1\n7\n")}
	if err := g.ReloadMap(); err != nil {
		t.Fatalf("ReloadMap failed: %v", err)
	}
	if err := g.Tick(); err != nil {
		t.Fatalf("expected Tick to survive a bad map, got %v", err)
	}
	if !errors.Is(g.MapErr(), formats.ErrTileIDOutOfRange) {
		t.Errorf("expected ErrTileIDOutOfRange, got %v", g.MapErr())
	}
	after := g.Placements()
	if len(after) != len(before) {
		t.Fatalf("expected %d placements kept, got %d", len(before), len(after))
	}
	for i := range before {
		if after[i] != before[i] {
			t.Errorf("placement %d: expected %v, got %v", i, before[i], after[i])
		}
	}

	// The failure is reported once, then the map is fixed.
	if err := g.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	fsys["maps/test.map"] = &fstest.MapFile{Data: []byte("1,1\n1\n")}
	if err := g.ReloadMap(); err != nil {
		t.Fatalf("ReloadMap failed: %v", err)
	}
	if err := g.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if g.MapErr() != nil {
		t.Errorf("expected map error cleared, got %v", g.MapErr())
	}
	if n := len(g.Placements()); n != 1 {
		t.Errorf("expected 1 placement, got %d", n)
	}
}

func TestGameMissingMap(t *testing.T) {
	cfg, fsys := testSetup(t, "1,1\n0\n")
	cfg.Map.Path = "maps/missing.map"

	if _, err := New(cfg, fsys); err == nil {
		t.Error("expected error for missing map")
	}
}

func TestGamePickCell(t *testing.T) {
	cfg, fsys := testSetup(t, "2,2\n0,1\n1,0\n")
	g, err := New(cfg, fsys)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer g.Close()
	tickUntilReady(t, g)

	tests := []struct {
		sx, sy int
		x, y   int
		ok     bool
	}{
		{sx: 586, sy: 400, x: 0, y: 0, ok: true},
		{sx: 650, sy: 430, x: 1, y: 0, ok: true},
		{sx: 700, sy: 392, x: 1, y: 1, ok: true},
		{sx: 0, sy: 0, ok: false},
	}
	for _, tt := range tests {
		x, y, ok := g.PickCell(tt.sx, tt.sy)
		if ok != tt.ok {
			t.Errorf("PickCell(%d, %d): expected ok=%v, got %v", tt.sx, tt.sy, tt.ok, ok)
			continue
		}
		if ok && (x != tt.x || y != tt.y) {
			t.Errorf("PickCell(%d, %d): expected (%d, %d), got (%d, %d)", tt.sx, tt.sy, tt.x, tt.y, x, y)
		}
	}
}
