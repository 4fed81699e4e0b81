// Package assets handles asset loading and caching.
//
// Raw files are read through an fs.FS and cached by path. Images are decoded
// asynchronously: LoadImage returns a Handle immediately and callers poll
// State or GroupState each tick until the image is Loaded or Failed.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders
	_ "image/png"
	"io/fs"
	"path"
	"sort"
	"sync"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/semaphore"

	"github.com/Faultbox/midgard-iso/internal/logger"
)

// ErrNotFound is returned when a file does not exist under the asset root.
var ErrNotFound = errors.New("asset not found")

// Handle identifies an image requested from the Manager. The zero Handle is
// never issued.
type Handle uint64

// LoadState is the state of an asynchronous image load.
type LoadState int

const (
	Pending LoadState = iota
	Loaded
	Failed
)

// String returns the state name.
func (s LoadState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("LoadState(%d)", int(s))
	}
}

type imageEntry struct {
	path  string
	state LoadState
	img   image.Image
	size  image.Point
	err   error
}

// Manager loads files and images from an fs.FS root.
type Manager struct {
	fsys  fs.FS
	cache *Cache
	sem   *semaphore.Weighted
	log   *zap.Logger

	mu     sync.RWMutex
	next   Handle
	byPath map[string]Handle
	images map[Handle]*imageEntry
	wg     sync.WaitGroup
}

// NewManager creates a new asset manager. workers bounds the number of
// images decoded concurrently.
func NewManager(fsys fs.FS, workers int) *Manager {
	if workers < 1 {
		workers = 1
	}
	return &Manager{
		fsys:   fsys,
		cache:  NewCache(),
		sem:    semaphore.NewWeighted(int64(workers)),
		log:    logger.Named("assets"),
		byPath: make(map[string]Handle),
		images: make(map[Handle]*imageEntry),
	}
}

// Load reads a file, serving repeated reads from the cache.
func (m *Manager) Load(name string) ([]byte, error) {
	if data, ok := m.cache.Get(name); ok {
		return data, nil
	}

	data, err := fs.ReadFile(m.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	m.cache.Set(name, data)
	return data, nil
}

// Invalidate drops a cached file so the next Load reads it again.
func (m *Manager) Invalidate(name string) {
	m.cache.Delete(name)
}

// FS returns the asset root.
func (m *Manager) FS() fs.FS {
	return m.fsys
}

// ScanDir lists files in dir matching the glob pattern, sorted by name.
func (m *Manager) ScanDir(dir, pattern string) ([]string, error) {
	matches, err := fs.Glob(m.fsys, path.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// LoadFolder scans dir and starts loading every matching image. Handles are
// returned in file name order.
func (m *Manager) LoadFolder(dir, pattern string) ([]Handle, error) {
	names, err := m.ScanDir(dir, pattern)
	if err != nil {
		return nil, err
	}

	handles := make([]Handle, len(names))
	for i, name := range names {
		handles[i] = m.LoadImage(name)
	}
	m.log.Debug("folder load started", zap.String("dir", dir), zap.Int("files", len(names)))
	return handles, nil
}

// LoadImage starts decoding an image and returns its handle without
// waiting. Requesting the same path again returns the existing handle.
func (m *Manager) LoadImage(name string) Handle {
	m.mu.Lock()
	if h, ok := m.byPath[name]; ok {
		m.mu.Unlock()
		return h
	}
	m.next++
	h := m.next
	m.byPath[name] = h
	m.images[h] = &imageEntry{path: name, state: Pending}
	m.wg.Add(1)
	m.mu.Unlock()

	go m.decode(h, name)
	return h
}

func (m *Manager) decode(h Handle, name string) {
	defer m.wg.Done()

	if err := m.sem.Acquire(context.Background(), 1); err != nil {
		m.finish(h, nil, err)
		return
	}
	defer m.sem.Release(1)

	data, err := m.Load(name)
	if err != nil {
		m.finish(h, nil, err)
		return
	}
	// Pixel data lives in the image from here on.
	m.cache.Delete(name)

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		m.finish(h, nil, fmt.Errorf("decoding %s: %w", name, err))
		return
	}
	m.finish(h, img, nil)
}

func (m *Manager) finish(h Handle, img image.Image, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.images[h]
	if !ok {
		return // released while decoding
	}
	if err != nil {
		e.state = Failed
		e.err = err
		m.log.Warn("image load failed", zap.String("path", e.path), zap.Error(err))
		return
	}
	e.state = Loaded
	e.img = img
	e.size = img.Bounds().Size()
}

// State returns the load state of a handle. Unknown handles report Failed.
func (m *Manager) State(h Handle) LoadState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.images[h]; ok {
		return e.state
	}
	return Failed
}

// GroupState folds the states of several handles: Failed if any failed,
// otherwise Pending if any is pending, otherwise Loaded.
func (m *Manager) GroupState(handles []Handle) LoadState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state := Loaded
	for _, h := range handles {
		e, ok := m.images[h]
		if !ok || e.state == Failed {
			return Failed
		}
		if e.state == Pending {
			state = Pending
		}
	}
	return state
}

// Err returns the error of a failed load.
func (m *Manager) Err(h Handle) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.images[h]; ok {
		return e.err
	}
	return fmt.Errorf("%w: handle %d", ErrNotFound, h)
}

// HandleOf returns the handle previously issued for a path.
func (m *Manager) HandleOf(name string) (Handle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.byPath[name]
	return h, ok
}

// Image returns a loaded image. It returns false while the image is pending,
// after a failure, or after the pixels were released.
func (m *Manager) Image(h Handle) (image.Image, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.images[h]
	if !ok || e.state != Loaded || e.img == nil {
		return nil, false
	}
	return e.img, true
}

// Size returns the pixel size of a loaded image. It stays available after
// ReleasePixels.
func (m *Manager) Size(h Handle) (image.Point, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.images[h]
	if !ok || e.state != Loaded {
		return image.Point{}, false
	}
	return e.size, true
}

// ReleasePixels drops the decoded pixels of a handle but keeps its size and
// path mapping.
func (m *Manager) ReleasePixels(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.images[h]; ok {
		e.img = nil
	}
}

// Forget removes a handle entirely. A later LoadImage of the same path
// issues a new handle and decodes again.
func (m *Manager) Forget(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.images[h]; ok {
		delete(m.byPath, e.path)
		delete(m.images, h)
	}
}

// Wait blocks until every load started so far has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close waits for outstanding loads and drops all cached data.
func (m *Manager) Close() {
	m.wg.Wait()

	m.mu.Lock()
	m.byPath = make(map[string]Handle)
	m.images = make(map[Handle]*imageEntry)
	m.mu.Unlock()

	m.cache.Clear()
}

// Cache is a simple in-memory cache for loaded files.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Delete removes an item from cache.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
