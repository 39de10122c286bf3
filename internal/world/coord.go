package world

import "fmt"

// ChunkSize is the chunk edge length in voxels.
const ChunkSize = 16

// ChunkVolume is the number of voxels in a chunk.
const ChunkVolume = ChunkSize * ChunkSize * ChunkSize

// Coord is an integer voxel coordinate. Chunk origins are Coords whose
// components are multiples of ChunkSize.
type Coord struct {
	X, Y, Z int
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z) }

func (c Coord) Add(o Coord) Coord { return Coord{c.X + o.X, c.Y + o.Y, c.Z + o.Z} }

// Aligned reports whether c is a valid chunk origin.
func (c Coord) Aligned() bool {
	return mod(c.X, ChunkSize) == 0 && mod(c.Y, ChunkSize) == 0 && mod(c.Z, ChunkSize) == 0
}

// OriginOf returns the origin of the chunk containing c.
func OriginOf(c Coord) Coord {
	return Coord{
		floorDiv(c.X, ChunkSize) * ChunkSize,
		floorDiv(c.Y, ChunkSize) * ChunkSize,
		floorDiv(c.Z, ChunkSize) * ChunkSize,
	}
}

// Local splits c into chunk-local coordinates.
func Local(c Coord) (x, y, z int) {
	return mod(c.X, ChunkSize), mod(c.Y, ChunkSize), mod(c.Z, ChunkSize)
}

// Index is the linear voxel index (y*N+z)*N+x of a local coordinate.
func Index(x, y, z int) int {
	return (y*ChunkSize+z)*ChunkSize + x
}

// Unindex inverts Index.
func Unindex(i int) (x, y, z int) {
	return i % ChunkSize, i / (ChunkSize * ChunkSize), (i / ChunkSize) % ChunkSize
}

func inChunk(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < ChunkSize && y < ChunkSize && z < ChunkSize
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// faceNeighbors are the offsets, in chunks, of the six face-adjacent chunks.
var faceNeighbors = [6]Coord{
	{ChunkSize, 0, 0}, {-ChunkSize, 0, 0},
	{0, ChunkSize, 0}, {0, -ChunkSize, 0},
	{0, 0, ChunkSize}, {0, 0, -ChunkSize},
}

func (c Coord) less(o Coord) bool {
	if c.X != o.X {
		return c.X < o.X
	}
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.Z < o.Z
}
