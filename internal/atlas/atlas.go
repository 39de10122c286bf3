// Package atlas packs block textures into a fixed grid of equally sized
// tiles and maps face UVs into it. Pixel data is owned by the renderer; the
// atlas only tracks which key lives in which tile.
package atlas

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"

	"voxelcore/internal/meshing"
)

var ErrFull = errors.New("atlas: no free tile")

// Rect is a tile in normalized atlas coordinates.
type Rect struct {
	Min, Max mgl32.Vec2
}

// Atlas is safe for concurrent use: QueueForLoad is called from mesh
// builds while Flush may run on a loader goroutine.
type Atlas struct {
	cols, rows int

	mu      sync.RWMutex
	tiles   map[string]int
	pending map[string]struct{}
	missing map[string]struct{}

	log logrus.FieldLogger
}

// New returns an atlas of cols×rows tiles with the error texture in tile 0.
func New(cols, rows int, log logrus.FieldLogger) *Atlas {
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}
	a := &Atlas{
		cols:    max(cols, 1),
		rows:    max(rows, 1),
		tiles:   make(map[string]int),
		pending: make(map[string]struct{}),
		missing: make(map[string]struct{}),
		log:     log,
	}
	a.tiles[meshing.ErrorTexture] = 0
	return a
}

// Capacity is the number of tiles, including the error texture.
func (a *Atlas) Capacity() int { return a.cols * a.rows }

func (a *Atlas) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.tiles)
}

// Add places key in the next free tile. Adding a resident key is a no-op.
func (a *Atlas) Add(key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.add(key)
}

func (a *Atlas) add(key string) error {
	if _, ok := a.tiles[key]; ok {
		return nil
	}
	if len(a.tiles) >= a.Capacity() {
		return fmt.Errorf("%w for %q (%d tiles)", ErrFull, key, a.Capacity())
	}
	a.tiles[key] = len(a.tiles)
	delete(a.pending, key)
	delete(a.missing, key)
	return nil
}

// Tile returns the rect of a resident key.
func (a *Atlas) Tile(key string) (Rect, bool) {
	a.mu.RLock()
	i, ok := a.tiles[key]
	a.mu.RUnlock()
	if !ok {
		return Rect{}, false
	}
	return a.rect(i), true
}

func (a *Atlas) rect(i int) Rect {
	w, h := 1/float32(a.cols), 1/float32(a.rows)
	lo := mgl32.Vec2{float32(i%a.cols) * w, float32(i/a.cols) * h}
	return Rect{Min: lo, Max: lo.Add(mgl32.Vec2{w, h})}
}

// Resolve maps a face-local uv into the key's tile.
func (a *Atlas) Resolve(key string, _ meshing.Face, uv mgl32.Vec2) (mgl32.Vec2, bool) {
	r, ok := a.Tile(key)
	if !ok {
		return mgl32.Vec2{}, false
	}
	size := r.Max.Sub(r.Min)
	return mgl32.Vec2{r.Min.X() + uv.X()*size.X(), r.Min.Y() + uv.Y()*size.Y()}, true
}

// QueueForLoad records a key for the next Flush. It never blocks on I/O.
// Keys already resident, or already found missing, are ignored.
func (a *Atlas) QueueForLoad(key string) {
	a.mu.RLock()
	_, resident := a.tiles[key]
	_, queued := a.pending[key]
	_, missing := a.missing[key]
	a.mu.RUnlock()
	if resident || queued || missing {
		return
	}
	a.mu.Lock()
	a.pending[key] = struct{}{}
	a.mu.Unlock()
}

// Pending lists queued keys in sorted order.
func (a *Atlas) Pending() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.pending))
	for k := range a.pending {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Loader reports whether a texture exists for key.
type Loader func(key string) (bool, error)

// Flush resolves every pending key through load and returns the keys that
// became resident. Keys the loader does not know are remembered as missing
// and not queued again.
func (a *Atlas) Flush(load Loader) ([]string, error) {
	keys := a.Pending()
	var added []string
	var errs []error
	for _, key := range keys {
		ok, err := load(key)
		a.mu.Lock()
		switch {
		case err != nil:
			delete(a.pending, key)
			errs = append(errs, fmt.Errorf("load %q: %w", key, err))
		case !ok:
			delete(a.pending, key)
			a.missing[key] = struct{}{}
		default:
			if err := a.add(key); err != nil {
				errs = append(errs, err)
			} else {
				added = append(added, key)
			}
		}
		a.mu.Unlock()
	}
	if len(added) > 0 || len(errs) > 0 {
		a.log.WithFields(logrus.Fields{"added": len(added), "failed": len(errs)}).Debug("atlas flush")
	}
	return added, errors.Join(errs...)
}

// FSLoader finds textures as <dir>/<key>.png in fsys.
func FSLoader(fsys fs.FS, dir string) Loader {
	return func(key string) (bool, error) {
		_, err := fs.Stat(fsys, path.Join(dir, key+".png"))
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return err == nil, err
	}
}
