package world

import (
	"fmt"
	"math"

	"voxelcore/internal/lighting"
	"voxelcore/internal/meshing"
	"voxelcore/internal/registry"
)

// Chunk is one ChunkSize³ region of the voxel grid. Block ids are stored
// densely, one byte per voxel until an id above 255 is written. Rotations
// and shape tags are sparse and exist only for non-empty voxels.
type Chunk struct {
	origin Coord

	ids8  []uint8
	ids16 []uint16

	rotations map[int]uint8
	shapes    map[int]string
	emitters  map[int]uint8
	nonEmpty  int

	solid, translucent *meshing.Mesh
	fragments          map[int]*meshing.Fragment
	fingerprint        uint64
	built              bool
	visible            bool

	light *lighting.Volume
}

// NewChunk returns an empty chunk at origin.
func NewChunk(origin Coord) (*Chunk, error) {
	if !origin.Aligned() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrigin, origin)
	}
	return &Chunk{
		origin:    origin,
		ids8:      make([]uint8, ChunkVolume),
		rotations: make(map[int]uint8),
		shapes:    make(map[int]string),
		emitters:  make(map[int]uint8),
		visible:   true,
		light:     lighting.NewVolume([3]int{origin.X, origin.Y, origin.Z}, ChunkSize),
	}, nil
}

func (c *Chunk) Origin() Coord { return c.origin }

// NonEmpty returns the number of non-empty voxels.
func (c *Chunk) NonEmpty() int { return c.nonEmpty }

func (c *Chunk) Visible() bool { return c.visible }

// Wide reports whether storage has been upgraded to 16-bit ids.
func (c *Chunk) Wide() bool { return c.ids16 != nil }

// Meshes returns the installed geometry; either may be nil.
func (c *Chunk) Meshes() (solid, translucent *meshing.Mesh) { return c.solid, c.translucent }

// Light returns the chunk's light field.
func (c *Chunk) Light() *lighting.Volume { return c.light }

func (c *Chunk) id(i int) uint16 {
	if c.ids16 != nil {
		return c.ids16[i]
	}
	return uint16(c.ids8[i])
}

func (c *Chunk) setID(i int, id uint16) {
	if c.ids16 == nil && id > math.MaxUint8 {
		c.widen()
	}
	if c.ids16 != nil {
		c.ids16[i] = id
		return
	}
	c.ids8[i] = uint8(id)
}

func (c *Chunk) widen() {
	c.ids16 = make([]uint16, ChunkVolume)
	for i, v := range c.ids8 {
		c.ids16[i] = uint16(v)
	}
	c.ids8 = nil
}

func checkLocal(x, y, z int) error {
	if !inChunk(x, y, z) {
		return fmt.Errorf("%w: (%d,%d,%d)", ErrOutOfBounds, x, y, z)
	}
	return nil
}

// Block returns the id at a local coordinate; 0 is empty.
func (c *Chunk) Block(x, y, z int) (uint16, error) {
	if err := checkLocal(x, y, z); err != nil {
		return 0, err
	}
	return c.id(Index(x, y, z)), nil
}

// Descriptor resolves the voxel's descriptor; nil for empty voxels.
func (c *Chunk) Descriptor(x, y, z int, blocks meshing.Blocks) (*registry.Descriptor, error) {
	id, err := c.Block(x, y, z)
	if err != nil || id == 0 {
		return nil, err
	}
	return blocks.Descriptor(id), nil
}

// SetBlockID writes an id without scheduling any rebuild. Writing 0 clears
// the voxel's rotation and shape.
func (c *Chunk) SetBlockID(x, y, z int, id uint16) error {
	if err := checkLocal(x, y, z); err != nil {
		return err
	}
	i := Index(x, y, z)
	old := c.id(i)
	if old == id {
		return nil
	}
	c.setID(i, id)
	switch {
	case old == 0:
		c.nonEmpty++
	case id == 0:
		c.nonEmpty--
		delete(c.rotations, i)
		delete(c.shapes, i)
		delete(c.emitters, i)
	}
	return nil
}

func (c *Chunk) Rotation(x, y, z int) (uint8, error) {
	if err := checkLocal(x, y, z); err != nil {
		return 0, err
	}
	return c.rotations[Index(x, y, z)], nil
}

// SetRotation sets one of the 24 cube rotations; 0 removes the entry.
func (c *Chunk) SetRotation(x, y, z int, r uint8) error {
	if err := checkLocal(x, y, z); err != nil {
		return err
	}
	if r >= meshing.RotationCount {
		return fmt.Errorf("%w: rotation %d", ErrOutOfBounds, r)
	}
	i := Index(x, y, z)
	if c.id(i) == 0 {
		return fmt.Errorf("%w: rotate (%d,%d,%d)", ErrEmptyVoxel, x, y, z)
	}
	if r == 0 {
		delete(c.rotations, i)
	} else {
		c.rotations[i] = r
	}
	return nil
}

// Shape returns the voxel's shape override; empty means cube.
func (c *Chunk) Shape(x, y, z int) (string, error) {
	if err := checkLocal(x, y, z); err != nil {
		return "", err
	}
	return c.shapes[Index(x, y, z)], nil
}

// SetShape sets a shape override; "" and "cube" remove it.
func (c *Chunk) SetShape(x, y, z int, tag string) error {
	if err := checkLocal(x, y, z); err != nil {
		return err
	}
	i := Index(x, y, z)
	if c.id(i) == 0 {
		return fmt.Errorf("%w: shape (%d,%d,%d)", ErrEmptyVoxel, x, y, z)
	}
	if tag == "" || tag == "cube" {
		delete(c.shapes, i)
	} else {
		c.shapes[i] = tag
	}
	return nil
}

// MeshHost receives rebuild requests raised by chunk edits.
type MeshHost interface {
	ScheduleRemesh(origin Coord, opts RemeshOptions)
	HasChunk(origin Coord) bool
}

// SetBlock is the edit entry point. Removals and first placements always
// request a full rebuild; removals and edits on a chunk face also rebuild
// the loaded neighbour across that face.
func (c *Chunk) SetBlock(x, y, z int, id uint16, host MeshHost) error {
	old, err := c.Block(x, y, z)
	if err != nil {
		return err
	}
	if old == id {
		return nil
	}
	if err := c.SetBlockID(x, y, z, id); err != nil {
		return err
	}

	switch {
	case id == 0:
		host.ScheduleRemesh(c.origin, RemeshOptions{Force: true})
	case old == 0 && c.nonEmpty == 1:
		host.ScheduleRemesh(c.origin, RemeshOptions{Force: true, FirstPlacement: true})
	default:
		host.ScheduleRemesh(c.origin, RemeshOptions{Force: true})
	}
	c.scheduleBorderNeighbors(x, y, z, host)
	return nil
}

func (c *Chunk) scheduleBorderNeighbors(x, y, z int, host MeshHost) {
	for _, nb := range borderNeighbors(x, y, z) {
		o := c.origin.Add(nb)
		if host.HasChunk(o) {
			host.ScheduleRemesh(o, RemeshOptions{Force: true, Boundary: true})
		}
	}
}

// borderNeighbors returns the chunk offsets of every chunk face the local
// voxel touches.
func borderNeighbors(x, y, z int) []Coord {
	var out []Coord
	l := [3]int{x, y, z}
	for axis := 0; axis < 3; axis++ {
		if l[axis] == ChunkSize-1 {
			out = append(out, faceNeighbors[2*axis])
		}
		if l[axis] == 0 {
			out = append(out, faceNeighbors[2*axis+1])
		}
	}
	return out
}

// load replaces the whole voxel array.
func (c *Chunk) load(blocks []uint16) {
	c.ids8, c.ids16 = make([]uint8, ChunkVolume), nil
	clear(c.rotations)
	clear(c.shapes)
	clear(c.emitters)
	c.nonEmpty = 0
	for i, id := range blocks {
		if id == 0 {
			continue
		}
		c.setID(i, id)
		c.nonEmpty++
	}
}

// nonEmptyIndices lists non-empty voxel indices in ascending order.
func (c *Chunk) nonEmptyIndices() []int {
	out := make([]int, 0, c.nonEmpty)
	for i := 0; i < ChunkVolume; i++ {
		if c.id(i) != 0 {
			out = append(out, i)
		}
	}
	return out
}

// cell resolves a voxel for the mesher. The voxel's shape override wins
// over the descriptor's shape.
func (c *Chunk) cell(i int, blocks meshing.Blocks) meshing.Cell {
	id := c.id(i)
	if id == 0 {
		return meshing.Cell{}
	}
	d := blocks.Descriptor(id)
	if d == nil {
		return meshing.Cell{}
	}
	shape := d.Shape
	if s, ok := c.shapes[i]; ok {
		shape = s
	}
	return meshing.Cell{Desc: d, Shape: shape, Rotation: c.rotations[i]}
}

// EachEmitter reports emissive voxels in world coordinates.
func (c *Chunk) EachEmitter(fn func(x, y, z int, level uint8)) {
	for i, level := range c.emitters {
		x, y, z := Unindex(i)
		fn(c.origin.X+x, c.origin.Y+y, c.origin.Z+z, level)
	}
}

// setEmission records the emission of voxel i; 0 clears it.
func (c *Chunk) setEmission(i int, level uint8) {
	if level == 0 {
		delete(c.emitters, i)
		return
	}
	c.emitters[i] = level
}

func (c *Chunk) hasEmitters() bool { return len(c.emitters) > 0 }
