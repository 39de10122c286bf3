package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

func floorInt(f float32) int { return int(math.Floor(float64(f))) }

// Collides reports whether the box [lo, hi) overlaps any occupied voxel.
func Collides(lo, hi mgl32.Vec3, grid Voxels) bool {
	for x := floorInt(lo.X()); float32(x) < hi.X(); x++ {
		for y := floorInt(lo.Y()); float32(y) < hi.Y(); y++ {
			for z := floorInt(lo.Z()); float32(z) < hi.Z(); z++ {
				if _, ok := grid.Get(int32(x), int32(y), int32(z)); ok {
					return true
				}
			}
		}
	}
	return false
}

// FindGroundLevel returns the top surface of the highest occupied voxel in
// column (x,z) at or below fromY, searching at most depth voxels down.
func FindGroundLevel(x, z, fromY float32, depth int, grid Voxels) (float32, bool) {
	bx, bz := int32(floorInt(x)), int32(floorInt(z))
	top := floorInt(fromY)
	for y := top; y > top-depth; y-- {
		if _, ok := grid.Get(bx, int32(y), bz); ok {
			return float32(y + 1), true
		}
	}
	return 0, false
}
