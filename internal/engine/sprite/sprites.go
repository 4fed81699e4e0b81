// Package sprite builds the tile sprite atlas and the tile id lookup table.
package sprite

import (
	"errors"
	"fmt"
	"image"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-iso/internal/assets"
	"github.com/Faultbox/midgard-iso/internal/engine/texture"
	"github.com/Faultbox/midgard-iso/internal/logger"
	"github.com/Faultbox/midgard-iso/pkg/formats"
)

// Sprite table errors.
var (
	ErrAtlasResolution = errors.New("tile sprite could not be resolved")
	ErrAtlasNotReady   = errors.New("sprite atlas not ready")
	ErrNoSprites       = errors.New("no tile sprites found")
)

// ImageSource is the asset loader the builder polls.
type ImageSource interface {
	LoadFolder(dir, pattern string) ([]assets.Handle, error)
	GroupState(handles []assets.Handle) assets.LoadState
	Err(h assets.Handle) error
	HandleOf(name string) (assets.Handle, bool)
	Image(h assets.Handle) (image.Image, bool)
	ReleasePixels(h assets.Handle)
	Forget(h assets.Handle)
}

// Entry is the sprite of one tile id.
type Entry struct {
	Slot uint32      // atlas slot index
	Size image.Point // source image size in pixels
}

// State is the builder state.
type State int

const (
	Idle State = iota
	Loading
	Ready
	Failed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config describes where tile images live and how they are packed.
//
// Tile id N is the image named Dir/Prefix + N (zero-padded to Digits) + Ext.
// Ids are positions in that sequence, so the files must be numbered densely
// from zero.
type Config struct {
	Dir    string
	Prefix string
	Ext    string
	Digits int
	Packer texture.Packer
}

// Sprites turns a folder of tile images into one atlas and a lookup table
// indexed by tile id. It is driven by Tick and never blocks.
type Sprites struct {
	src ImageSource
	cfg Config
	log *zap.Logger

	state   State
	err     error
	started time.Time

	pending []assets.Handle // handles being loaded; nil once built
	sources []assets.Handle // handles by tile id, kept for Reload
	lookup  []Entry
	atlas   *texture.Atlas
}

// New creates a sprite builder. Call Start to begin loading.
func New(src ImageSource, cfg Config) *Sprites {
	if cfg.Digits <= 0 {
		cfg.Digits = 3
	}
	return &Sprites{
		src: src,
		cfg: cfg,
		log: logger.Named("sprites"),
	}
}

// Start scans the sprite folder and requests every matching image.
// Calling Start while loading or after the atlas is built does nothing.
func (s *Sprites) Start() error {
	if s.state == Loading || s.state == Ready {
		return nil
	}

	pattern := s.cfg.Prefix + "*" + s.cfg.Ext
	handles, err := s.src.LoadFolder(s.cfg.Dir, pattern)
	if err != nil {
		return s.fail(fmt.Errorf("loading sprite folder %s: %w", s.cfg.Dir, err))
	}
	if len(handles) == 0 {
		return s.fail(fmt.Errorf("%w: %s", ErrNoSprites, path.Join(s.cfg.Dir, pattern)))
	}

	s.pending = handles
	s.state = Loading
	s.err = nil
	s.started = time.Now()
	s.log.Info("loading tile sprites", zap.String("dir", s.cfg.Dir), zap.Int("count", len(handles)))
	return nil
}

// Tick polls the pending loads and builds the atlas once all of them have
// finished. It returns an error only when the build fails; the failure is
// terminal until Reload.
func (s *Sprites) Tick() error {
	if s.state != Loading {
		return nil
	}

	switch s.src.GroupState(s.pending) {
	case assets.Pending:
		return nil
	case assets.Failed:
		for _, h := range s.pending {
			if err := s.src.Err(h); err != nil {
				return s.fail(fmt.Errorf("loading tile sprite: %w", err))
			}
		}
		return s.fail(errors.New("loading tile sprite: unknown failure"))
	}

	return s.build()
}

func (s *Sprites) build() error {
	n := len(s.pending)
	sources := make([]assets.Handle, n)
	images := make([]image.Image, n)

	for id := 0; id < n; id++ {
		name := s.TilePath(id)
		h, ok := s.src.HandleOf(name)
		if !ok {
			return s.fail(fmt.Errorf("%w: tile %d expects %s", ErrAtlasResolution, id, name))
		}
		img, ok := s.src.Image(h)
		if !ok {
			return s.fail(fmt.Errorf("%w: %s has no pixels", ErrAtlasResolution, name))
		}
		sources[id] = h
		images[id] = img
	}

	atlas, slotOf, err := texture.BuildAtlas(images, s.cfg.Packer)
	if err != nil {
		return s.fail(fmt.Errorf("packing tile sprites: %w", err))
	}

	lookup := make([]Entry, n)
	for id, img := range images {
		lookup[id] = Entry{Slot: uint32(slotOf[id]), Size: img.Bounds().Size()}
		s.src.ReleasePixels(sources[id])
	}

	s.atlas = atlas
	s.lookup = lookup
	s.sources = sources
	s.pending = nil
	s.state = Ready

	s.log.Info("tile atlas built",
		zap.Int("tiles", n),
		zap.Stringer("size", atlas.Image.Bounds().Size()),
		zap.Duration("elapsed", time.Since(s.started)),
	)
	return nil
}

func (s *Sprites) fail(err error) error {
	s.state = Failed
	s.err = err
	s.pending = nil
	s.log.Error("tile sprites unusable", zap.Error(err))
	return err
}

// Reload drops the built atlas and every source image and starts loading
// from disk again.
func (s *Sprites) Reload() error {
	for _, h := range s.sources {
		s.src.Forget(h)
	}
	for _, h := range s.pending {
		s.src.Forget(h)
	}
	*s = Sprites{src: s.src, cfg: s.cfg, log: s.log}
	return s.Start()
}

// TilePath returns the image path that answers for a tile id.
func (s *Sprites) TilePath(id int) string {
	return path.Join(s.cfg.Dir, fmt.Sprintf("%s%0*d%s", s.cfg.Prefix, s.cfg.Digits, id, s.cfg.Ext))
}

// State returns the builder state.
func (s *Sprites) State() State {
	return s.state
}

// Err returns the error that moved the builder to Failed.
func (s *Sprites) Err() error {
	return s.err
}

// IsReady reports whether the atlas and lookup table may be queried.
func (s *Sprites) IsReady() bool {
	return s.state == Ready
}

// Len returns the number of tile ids in the lookup table.
func (s *Sprites) Len() int {
	return len(s.lookup)
}

// Atlas returns the packed atlas, or nil before it is built.
func (s *Sprites) Atlas() *texture.Atlas {
	return s.atlas
}

// Lookup returns the sprite entry of a tile id.
func (s *Sprites) Lookup(id uint32) (Entry, error) {
	if s.state != Ready {
		return Entry{}, ErrAtlasNotReady
	}
	if int64(id) >= int64(len(s.lookup)) {
		return Entry{}, fmt.Errorf("%w: %d, table has %d entries", formats.ErrTileIDOutOfRange, id, len(s.lookup))
	}
	return s.lookup[id], nil
}

// TileSpriteSlot returns the atlas slot of a tile id.
func (s *Sprites) TileSpriteSlot(id uint32) (uint32, error) {
	e, err := s.Lookup(id)
	return e.Slot, err
}

// TileSpriteSize returns the source pixel size of a tile id.
func (s *Sprites) TileSpriteSize(id uint32) (image.Point, error) {
	e, err := s.Lookup(id)
	return e.Size, err
}
