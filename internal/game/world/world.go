// Package world stores loaded maps and tracks which one is current.
package world

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-iso/internal/logger"
	"github.com/Faultbox/midgard-iso/pkg/encoding"
	"github.com/Faultbox/midgard-iso/pkg/formats"
)

// ErrUnknownHandle is returned for a handle the store does not hold.
var ErrUnknownHandle = errors.New("unknown map handle")

// Handle identifies a map in the store. The zero Handle means no map.
type Handle uint64

// Map is a stored map and the name it was loaded under.
type Map struct {
	Name string
	*formats.Map
}

// Manager owns loaded maps. Handles are never reused, so a reload of the
// same file is observed as a change by anything comparing handles.
type Manager struct {
	fsys  fs.FS
	layer string
	log   *zap.Logger

	mu      sync.RWMutex
	next    Handle
	maps    map[Handle]*Map
	current Handle
}

// NewManager creates a map store reading files from fsys. layer selects the
// tile layer of TMX maps; empty means the first one.
func NewManager(fsys fs.FS, layer string) *Manager {
	return &Manager{
		fsys:  fsys,
		layer: layer,
		log:   logger.Named("world"),
		maps:  make(map[Handle]*Map),
	}
}

// Add stores a parsed map and returns its new handle.
func (m *Manager) Add(name string, data *formats.Map) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	m.maps[m.next] = &Map{Name: name, Map: data}
	return m.next
}

// LoadMap parses a map file and stores it. Files ending in .tmx are imported
// from Tiled; anything else is read as the text map format.
func (m *Manager) LoadMap(name string) (Handle, error) {
	name = encoding.NormalizePath(name)

	var (
		data *formats.Map
		err  error
	)
	if strings.EqualFold(path.Ext(name), ".tmx") {
		data, err = formats.ParseTMX(m.fsys, name, m.layer)
	} else {
		var raw []byte
		if raw, err = fs.ReadFile(m.fsys, name); err == nil {
			data, err = formats.ParseMap(raw)
		}
	}
	if err != nil {
		m.log.Warn("map load failed", zap.String("map", name), zap.Error(err))
		return 0, fmt.Errorf("loading map %s: %w", name, err)
	}

	h := m.Add(name, data)
	m.log.Info("map loaded",
		zap.String("map", name),
		zap.Uint32("width", data.Width),
		zap.Uint32("height", data.Height),
		zap.Uint64("handle", uint64(h)),
	)
	return h, nil
}

// Open loads a map and makes it current.
func (m *Manager) Open(name string) (Handle, error) {
	h, err := m.LoadMap(name)
	if err != nil {
		return 0, err
	}
	if err := m.SetCurrent(h); err != nil {
		return 0, err
	}
	return h, nil
}

// SetCurrent makes h the current map. The previously current map is dropped
// from the store.
func (m *Manager) SetCurrent(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.maps[h]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	if m.current != 0 && m.current != h {
		delete(m.maps, m.current)
	}
	m.current = h
	return nil
}

// Current returns the current handle and its map. The handle is zero and the
// map nil when no map is current.
func (m *Manager) Current() (Handle, *formats.Map) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if e, ok := m.maps[m.current]; ok {
		return m.current, e.Map
	}
	return 0, nil
}

// CurrentName returns the name of the current map.
func (m *Manager) CurrentName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if e, ok := m.maps[m.current]; ok {
		return e.Name
	}
	return ""
}

// Get returns a stored map.
func (m *Manager) Get(h Handle) (*Map, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.maps[h]
	return e, ok
}

// Remove drops a map. Removing the current map leaves no map current.
func (m *Manager) Remove(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.maps, h)
	if m.current == h {
		m.current = 0
	}
}

// Len returns the number of stored maps.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.maps)
}
