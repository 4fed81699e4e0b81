package world

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/Faultbox/midgard-iso/pkg/formats"
)

const testTMX = `<?xml version="1.0" encoding="UTF-8"?>
<map version="1.10" orientation="isometric" renderorder="right-down" width="2" height="1" tilewidth="128" tileheight="64" infinite="0" nextlayerid="2" nextobjectid="1">
 <tileset firstgid="1" name="ground" tilewidth="128" tileheight="64" tilecount="4" columns="4">
  <image source="ground.png" width="512" height="64"/>
 </tileset>
 <layer id="1" name="ground" width="2" height="1">
  <data encoding="csv">
3,1
</data>
 </layer>
</map>
`

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"maps/small.map":  {Data: []byte("2,2\n1,2\n3,4\n")},
		"maps/broken.map": {Data: []byte("3,3\n1,2,3\n")},
		"maps/small.tmx":  {Data: []byte(testTMX)},
	}
}

func TestLoadTextMap(t *testing.T) {
	m := NewManager(testFS(), "")

	h, err := m.LoadMap("maps/small.map")
	if err != nil {
		t.Fatalf("LoadMap failed: %v", err)
	}
	if h == 0 {
		t.Fatal("expected non-zero handle")
	}

	got, ok := m.Get(h)
	if !ok {
		t.Fatal("expected stored map")
	}
	if got.Name != "maps/small.map" {
		t.Errorf("expected name maps/small.map, got %s", got.Name)
	}
	want := &formats.Map{Width: 2, Height: 2, Tiles: []uint32{1, 2, 3, 4}}
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want.Tiles, got.Tiles)
	}
}

func TestLoadTMX(t *testing.T) {
	m := NewManager(testFS(), "ground")

	h, err := m.LoadMap("maps/small.tmx")
	if err != nil {
		t.Fatalf("LoadMap failed: %v", err)
	}
	got, _ := m.Get(h)
	if got.Width != 2 || got.Height != 1 {
		t.Fatalf("expected 2x1, got %dx%d", got.Width, got.Height)
	}
	if got.Tiles[0] != 2 || got.Tiles[1] != 0 {
		t.Errorf("expected tiles [2 0], got %v", got.Tiles)
	}
}

func TestLoadErrors(t *testing.T) {
	m := NewManager(testFS(), "")

	if _, err := m.LoadMap("maps/broken.map"); !errors.Is(err, formats.ErrSizeMismatch) {
		t.Errorf("expected ErrSizeMismatch, got %v", err)
	}
	if _, err := m.LoadMap("maps/missing.map"); err == nil {
		t.Error("expected error for missing file")
	}
	if m.Len() != 0 {
		t.Errorf("expected empty store after failures, got %d", m.Len())
	}
}

func TestHandlesIncrease(t *testing.T) {
	m := NewManager(testFS(), "")

	h1, _ := m.LoadMap("maps/small.map")
	h2, _ := m.LoadMap("maps/small.map")
	if h2 <= h1 {
		t.Errorf("expected increasing handles, got %d then %d", h1, h2)
	}
}

func TestSetCurrentDropsPrevious(t *testing.T) {
	m := NewManager(testFS(), "")

	if h, mp := m.Current(); h != 0 || mp != nil {
		t.Fatalf("expected no current map, got %d", h)
	}

	h1, err := m.Open("maps/small.map")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	h2, err := m.Open("maps/small.map")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	cur, mp := m.Current()
	if cur != h2 || mp == nil {
		t.Errorf("expected current %d, got %d", h2, cur)
	}
	if _, ok := m.Get(h1); ok {
		t.Error("expected replaced map to be dropped")
	}
	if m.CurrentName() != "maps/small.map" {
		t.Errorf("expected current name maps/small.map, got %s", m.CurrentName())
	}
}

func TestSetCurrentUnknown(t *testing.T) {
	m := NewManager(testFS(), "")
	if err := m.SetCurrent(42); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("expected ErrUnknownHandle, got %v", err)
	}
}

func TestRemoveCurrent(t *testing.T) {
	m := NewManager(testFS(), "")
	h, _ := m.Open("maps/small.map")

	m.Remove(h)
	if cur, _ := m.Current(); cur != 0 {
		t.Errorf("expected no current map after remove, got %d", cur)
	}
}
