package meshing

import (
	"github.com/go-gl/mathgl/mgl32"

	"voxelcore/internal/registry"
)

// Face identifies one side of a voxel. The order matches registry's per-face
// arrays: +X, -X, +Y, -Y, +Z, -Z.
type Face int

const (
	FaceEast  Face = registry.East
	FaceWest  Face = registry.West
	FaceUp    Face = registry.Up
	FaceDown  Face = registry.Down
	FaceSouth Face = registry.South
	FaceNorth Face = registry.North
)

var faceNames = [6]string{"east", "west", "up", "down", "south", "north"}

func (f Face) String() string {
	if f < 0 || f > 5 {
		return "invalid"
	}
	return faceNames[f]
}

// Opposite returns the face on the other side of the shared plane.
func (f Face) Opposite() Face { return f ^ 1 }

// Normal returns the outward unit normal.
func (f Face) Normal() mgl32.Vec3 { return faceNormals[f] }

// Offset returns the integer step to the neighbouring voxel.
func (f Face) Offset() [3]int { return faceOffsets[f] }

var faceNormals = [6]mgl32.Vec3{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

var faceOffsets = [6][3]int{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

// Corner order within a face: bottom-left, bottom-right, top-left,
// top-right in the face's own (u, v) frame. Quads index as
// n, n+1, n+2, n+2, n+1, n+3.
const (
	cornerBL = iota
	cornerBR
	cornerTL
	cornerTR
)

// faceCorners holds voxel-centred corner offsets per face.
var faceCorners = [6][4]mgl32.Vec3{
	// +X: u = -z, v = +y
	{{.5, -.5, .5}, {.5, -.5, -.5}, {.5, .5, .5}, {.5, .5, -.5}},
	// -X: u = +z, v = +y
	{{-.5, -.5, -.5}, {-.5, -.5, .5}, {-.5, .5, -.5}, {-.5, .5, .5}},
	// +Y: u = +x, v = -z
	{{-.5, .5, .5}, {.5, .5, .5}, {-.5, .5, -.5}, {.5, .5, -.5}},
	// -Y: u = +x, v = +z
	{{-.5, -.5, -.5}, {.5, -.5, -.5}, {-.5, -.5, .5}, {.5, -.5, .5}},
	// +Z: u = +x, v = +y
	{{-.5, -.5, .5}, {.5, -.5, .5}, {-.5, .5, .5}, {.5, .5, .5}},
	// -Z: u = -x, v = +y
	{{.5, -.5, -.5}, {-.5, -.5, -.5}, {.5, .5, -.5}, {-.5, .5, -.5}},
}

// faceAxes holds the (u, v) texture directions of each face.
var faceAxes = [6][2]mgl32.Vec3{
	{{0, 0, -1}, {0, 1, 0}},
	{{0, 0, 1}, {0, 1, 0}},
	{{1, 0, 0}, {0, 0, -1}},
	{{1, 0, 0}, {0, 0, 1}},
	{{1, 0, 0}, {0, 1, 0}},
	{{-1, 0, 0}, {0, 1, 0}},
}

var cornerUVs = [4]mgl32.Vec2{{0, 0}, {1, 0}, {0, 1}, {1, 1}}

var quadIndices = [6]uint32{0, 1, 2, 2, 1, 3}

// faceUV projects a voxel-centred point onto a face's texture frame.
func faceUV(f Face, p mgl32.Vec3) mgl32.Vec2 {
	a := faceAxes[f]
	return mgl32.Vec2{p.Dot(a[0]) + 0.5, p.Dot(a[1]) + 0.5}
}

// FaceFromNormal returns the face whose normal is closest to n.
func FaceFromNormal(n mgl32.Vec3) Face {
	ax, ay, az := abs32(n[0]), abs32(n[1]), abs32(n[2])
	switch {
	case ax >= ay && ax >= az:
		if n[0] >= 0 {
			return FaceEast
		}
		return FaceWest
	case ay >= az:
		if n[1] >= 0 {
			return FaceUp
		}
		return FaceDown
	default:
		if n[2] >= 0 {
			return FaceSouth
		}
		return FaceNorth
	}
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
