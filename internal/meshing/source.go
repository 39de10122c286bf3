package meshing

import (
	"github.com/go-gl/mathgl/mgl32"

	"voxelcore/internal/registry"
	"voxelcore/pkg/blockmodel"
)

// Cell is the resolved content of one voxel as seen by the mesher.
type Cell struct {
	Desc *registry.Descriptor
	// Shape is the effective non-cube shape tag; empty means cube.
	Shape    string
	Rotation uint8
}

func (c Cell) Empty() bool { return c.Desc == nil }

// Shaped reports whether the voxel renders as something other than a cube.
func (c Cell) Shaped() bool { return c.Desc != nil && c.Shape != "" }

// occludes reports whether the cell darkens a neighbouring corner.
func (c Cell) occludes() bool {
	return c.Desc != nil && !c.Desc.Liquid && c.Shape == "" && c.Desc.FullyOpaque()
}

// Source answers voxel queries in world coordinates, across chunk borders.
type Source interface {
	Sample(x, y, z int) Cell
}

// Blocks is the block type table consumed by the mesher.
type Blocks interface {
	Descriptor(id uint16) *registry.Descriptor
	ShapeElements(tag string) ([]blockmodel.Element, bool)
}

// Atlas maps texture keys to atlas UVs.
type Atlas interface {
	// Resolve maps a face-local uv in [0,1]² to atlas space; ok is false
	// when the key is not resident.
	Resolve(key string, face Face, uv mgl32.Vec2) (mgl32.Vec2, bool)
	// QueueForLoad requests a key asynchronously. It must not block.
	QueueForLoad(key string)
}

// LightFunc returns the light level (0..15) of a local voxel.
type LightFunc func(x, y, z int) uint8

// Border is a bordered snapshot of one chunk: its own voxels plus a one
// voxel halo. Lookups beyond the halo go to the source.
type Border struct {
	origin [3]int
	n, w   int
	cells  []Cell
	src    Source
}

// NewBorder samples the (n+2)³ region around the chunk at origin.
func NewBorder(origin [3]int, n int, src Source) *Border {
	w := n + 2
	b := &Border{origin: origin, n: n, w: w, cells: make([]Cell, w*w*w), src: src}
	i := 0
	for y := -1; y <= n; y++ {
		for z := -1; z <= n; z++ {
			for x := -1; x <= n; x++ {
				b.cells[i] = src.Sample(origin[0]+x, origin[1]+y, origin[2]+z)
				i++
			}
		}
	}
	return b
}

func (b *Border) Origin() [3]int { return b.origin }
func (b *Border) Size() int      { return b.n }

// At returns the cell at local coordinates, which may lie outside the chunk.
func (b *Border) At(x, y, z int) Cell {
	if x < -1 || y < -1 || z < -1 || x > b.n || y > b.n || z > b.n {
		return b.src.Sample(b.origin[0]+x, b.origin[1]+y, b.origin[2]+z)
	}
	return b.cells[((y+1)*b.w+(z+1))*b.w+(x+1)]
}
