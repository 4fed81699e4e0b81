package sprite

import (
	"errors"
	"image"
	"image/color"
	"path"
	"strings"
	"testing"

	"github.com/Faultbox/midgard-iso/internal/assets"
	"github.com/Faultbox/midgard-iso/internal/engine/texture"
	"github.com/Faultbox/midgard-iso/pkg/formats"
)

type fakeImage struct {
	name  string
	img   image.Image
	state assets.LoadState
	err   error
}

// fakeSource is a synchronous ImageSource whose load states are set by hand.
type fakeSource struct {
	files     []string
	images    map[string]*fakeImage
	handles   map[assets.Handle]string
	byName    map[string]assets.Handle
	next      assets.Handle
	released  map[assets.Handle]bool
	forgotten int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		images:   make(map[string]*fakeImage),
		handles:  make(map[assets.Handle]string),
		byName:   make(map[string]assets.Handle),
		released: make(map[assets.Handle]bool),
	}
}

func (f *fakeSource) add(name string, w, h int) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: uint8(len(f.files)), A: 255})
	f.files = append(f.files, name)
	f.images[name] = &fakeImage{name: name, img: img, state: assets.Loaded}
}

func (f *fakeSource) LoadFolder(dir, pattern string) ([]assets.Handle, error) {
	var out []assets.Handle
	for _, name := range f.files {
		ok, err := path.Match(path.Join(dir, pattern), name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		h, seen := f.byName[name]
		if !seen {
			f.next++
			h = f.next
			f.byName[name] = h
			f.handles[h] = name
		}
		out = append(out, h)
	}
	return out, nil
}

func (f *fakeSource) GroupState(handles []assets.Handle) assets.LoadState {
	state := assets.Loaded
	for _, h := range handles {
		switch f.images[f.handles[h]].state {
		case assets.Failed:
			return assets.Failed
		case assets.Pending:
			state = assets.Pending
		}
	}
	return state
}

func (f *fakeSource) Err(h assets.Handle) error {
	return f.images[f.handles[h]].err
}

func (f *fakeSource) HandleOf(name string) (assets.Handle, bool) {
	h, ok := f.byName[name]
	return h, ok
}

func (f *fakeSource) Image(h assets.Handle) (image.Image, bool) {
	if f.released[h] {
		return nil, false
	}
	e, ok := f.images[f.handles[h]]
	if !ok || e.state != assets.Loaded {
		return nil, false
	}
	return e.img, true
}

func (f *fakeSource) ReleasePixels(h assets.Handle) {
	f.released[h] = true
}

func (f *fakeSource) Forget(h assets.Handle) {
	name := f.handles[h]
	delete(f.handles, h)
	delete(f.byName, name)
	delete(f.released, h)
	f.forgotten++
}

func testConfig() Config {
	return Config{
		Dir:    "textures/map",
		Prefix: "tile_",
		Ext:    ".png",
		Digits: 3,
		Packer: texture.Packer{MaxSize: 1024},
	}
}

func TestBuildsLookupTable(t *testing.T) {
	src := newFakeSource()
	src.add("textures/map/tile_000.png", 128, 64)
	src.add("textures/map/tile_001.png", 128, 96)
	src.add("textures/map/tile_002.png", 128, 64)

	s := New(src, testConfig())
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if !s.IsReady() {
		t.Fatalf("expected ready, got %s", s.State())
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", s.Len())
	}

	seen := make(map[uint32]bool)
	for id := uint32(0); id < 3; id++ {
		slot, err := s.TileSpriteSlot(id)
		if err != nil {
			t.Fatalf("TileSpriteSlot(%d) failed: %v", id, err)
		}
		if seen[slot] {
			t.Errorf("slot %d assigned twice", slot)
		}
		seen[slot] = true
	}

	size, err := s.TileSpriteSize(1)
	if err != nil {
		t.Fatalf("TileSpriteSize failed: %v", err)
	}
	if size != image.Pt(128, 96) {
		t.Errorf("expected size 128x96, got %v", size)
	}

	// Slot pixels come from the image with the same tile id.
	slot, _ := s.TileSpriteSlot(2)
	r, ok := s.Atlas().Slot(int(slot))
	if !ok {
		t.Fatalf("atlas has no slot %d", slot)
	}
	got := s.Atlas().Image.RGBAAt(r.Min.X, r.Min.Y)
	if got.R != 2 || got.A != 255 {
		t.Errorf("expected marker pixel of tile 2, got %v", got)
	}
}

func TestNotReadyWhileLoading(t *testing.T) {
	src := newFakeSource()
	src.add("textures/map/tile_000.png", 64, 32)
	src.add("textures/map/tile_001.png", 64, 32)
	src.images["textures/map/tile_001.png"].state = assets.Pending

	s := New(src, testConfig())
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := s.Tick(); err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
	}
	if s.IsReady() {
		t.Fatal("expected not ready while an image is pending")
	}
	if _, err := s.Lookup(0); !errors.Is(err, ErrAtlasNotReady) {
		t.Errorf("expected ErrAtlasNotReady, got %v", err)
	}

	src.images["textures/map/tile_001.png"].state = assets.Loaded
	if err := s.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if !s.IsReady() {
		t.Errorf("expected ready after last image loaded, got %s", s.State())
	}
}

func TestGapInNumberingIsFatal(t *testing.T) {
	src := newFakeSource()
	src.add("textures/map/tile_000.png", 64, 32)
	src.add("textures/map/tile_002.png", 64, 32)

	s := New(src, testConfig())
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	err := s.Tick()
	if !errors.Is(err, ErrAtlasResolution) {
		t.Fatalf("expected ErrAtlasResolution, got %v", err)
	}
	if !strings.Contains(err.Error(), "tile_001.png") {
		t.Errorf("expected missing name in error, got %q", err)
	}
	if s.State() != Failed {
		t.Errorf("expected failed state, got %s", s.State())
	}
	// Failure is terminal.
	if err := s.Tick(); err != nil {
		t.Errorf("expected quiet tick after failure, got %v", err)
	}
}

func TestLoadFailureIsReported(t *testing.T) {
	src := newFakeSource()
	src.add("textures/map/tile_000.png", 64, 32)
	bad := src.images["textures/map/tile_000.png"]
	bad.state = assets.Failed
	bad.err = errors.New("corrupt png")

	s := New(src, testConfig())
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	err := s.Tick()
	if err == nil || !strings.Contains(err.Error(), "corrupt png") {
		t.Errorf("expected load error, got %v", err)
	}
}

func TestEmptyFolder(t *testing.T) {
	s := New(newFakeSource(), testConfig())
	if err := s.Start(); !errors.Is(err, ErrNoSprites) {
		t.Errorf("expected ErrNoSprites, got %v", err)
	}
}

func TestLookupOutOfRange(t *testing.T) {
	src := newFakeSource()
	src.add("textures/map/tile_000.png", 64, 32)

	s := New(src, testConfig())
	_ = s.Start()
	if err := s.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if _, err := s.Lookup(1); !errors.Is(err, formats.ErrTileIDOutOfRange) {
		t.Errorf("expected ErrTileIDOutOfRange, got %v", err)
	}
}

func TestPixelsReleasedAfterBuild(t *testing.T) {
	src := newFakeSource()
	src.add("textures/map/tile_000.png", 64, 32)
	src.add("textures/map/tile_001.png", 64, 32)

	s := New(src, testConfig())
	_ = s.Start()
	_ = s.Tick()

	if len(src.released) != 2 {
		t.Errorf("expected 2 released images, got %d", len(src.released))
	}
}

func TestReload(t *testing.T) {
	src := newFakeSource()
	src.add("textures/map/tile_000.png", 64, 32)

	s := New(src, testConfig())
	_ = s.Start()
	_ = s.Tick()

	src.add("textures/map/tile_001.png", 64, 32)
	if err := s.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if s.IsReady() {
		t.Error("expected not ready right after reload")
	}
	if src.forgotten != 1 {
		t.Errorf("expected 1 forgotten handle, got %d", src.forgotten)
	}
	if err := s.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 entries after reload, got %d", s.Len())
	}
}

func TestTilePath(t *testing.T) {
	s := New(newFakeSource(), Config{Dir: "textures/map", Prefix: "landscapeTiles_", Ext: ".png"})
	if got := s.TilePath(7); got != "textures/map/landscapeTiles_007.png" {
		t.Errorf("expected textures/map/landscapeTiles_007.png, got %s", got)
	}
}
