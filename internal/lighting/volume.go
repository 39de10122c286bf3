// Package lighting stores per-chunk block light as packed nibbles and
// recomputes it from emissive voxels.
package lighting

import (
	"errors"
	"fmt"
)

// MaxLevel is the brightest representable light level.
const MaxLevel = 15

var (
	ErrOutOfBounds = errors.New("lighting: coordinate out of bounds")
	ErrLevel       = errors.New("lighting: level out of range")
)

// Volume is a cubic light field with two 4-bit levels per byte.
// Even linear indices live in the low nibble, odd ones in the high nibble.
type Volume struct {
	origin [3]int
	size   int
	data   []byte
}

// NewVolume allocates a dark volume of edge size at the given world origin.
func NewVolume(origin [3]int, size int) *Volume {
	n := size * size * size
	return &Volume{
		origin: origin,
		size:   size,
		data:   make([]byte, (n+1)/2),
	}
}

func (v *Volume) Origin() [3]int { return v.origin }
func (v *Volume) Size() int      { return v.size }

func (v *Volume) index(x, y, z int) int {
	return (y*v.size+z)*v.size + x
}

func (v *Volume) inside(x, y, z int) bool {
	return x >= 0 && x < v.size && y >= 0 && y < v.size && z >= 0 && z < v.size
}

// Get returns the level at local coordinates, or 0 outside the volume.
func (v *Volume) Get(x, y, z int) uint8 {
	if !v.inside(x, y, z) {
		return 0
	}
	i := v.index(x, y, z)
	b := v.data[i>>1]
	if i&1 == 1 {
		return b >> 4
	}
	return b & 0xF
}

// Set stores level at local coordinates without touching the paired nibble.
func (v *Volume) Set(x, y, z int, level uint8) error {
	if !v.inside(x, y, z) {
		return fmt.Errorf("%w: (%d,%d,%d)", ErrOutOfBounds, x, y, z)
	}
	if level > MaxLevel {
		return fmt.Errorf("%w: %d", ErrLevel, level)
	}
	i := v.index(x, y, z)
	b := &v.data[i>>1]
	if i&1 == 1 {
		*b = *b&0x0F | level<<4
	} else {
		*b = *b&0xF0 | level
	}
	return nil
}

// GetGlobal returns the level at world coordinates; anything outside the
// volume reads as dark.
func (v *Volume) GetGlobal(x, y, z int) uint8 {
	return v.Get(x-v.origin[0], y-v.origin[1], z-v.origin[2])
}

// Clear resets every level to 0.
func (v *Volume) Clear() {
	clear(v.data)
}

// Lit reports whether any voxel carries light.
func (v *Volume) Lit() bool {
	for _, b := range v.data {
		if b != 0 {
			return true
		}
	}
	return false
}
