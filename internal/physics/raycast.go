package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"voxelcore/internal/profiling"
)

const (
	MinReachDistance = 0.1
	MaxReachDistance = 5.0
)

// Voxels is a point lookup over occupied voxels. spatial.Grid implements it.
// Voxel (x,y,z) occupies the unit cube [x,x+1)×[y,y+1)×[z,z+1).
type Voxels interface {
	Get(x, y, z int32) (uint16, bool)
}

// RaycastResult stores the result of a raycast operation
type RaycastResult struct {
	HitPosition      [3]int
	AdjacentPosition [3]int
	// Normal points out of the hit voxel through the face the ray entered.
	Normal   [3]int
	ID       uint16
	Distance float32
	Hit      bool
}

// Raycast walks the voxels along the ray voxel by voxel and returns the
// first occupied one entered at a distance in [minDist, maxDist].
func Raycast(start, direction mgl32.Vec3, minDist, maxDist float32, grid Voxels) RaycastResult {
	defer profiling.Track("physics.Raycast")()
	if direction.Len() == 0 {
		return RaycastResult{}
	}
	dir := direction.Normalize()

	var cell, step [3]int
	var tMax, tDelta [3]float32
	for i := 0; i < 3; i++ {
		cell[i] = int(math.Floor(float64(start[i])))
		switch {
		case dir[i] > 0:
			step[i] = 1
			tMax[i] = (float32(cell[i]+1) - start[i]) / dir[i]
			tDelta[i] = 1 / dir[i]
		case dir[i] < 0:
			step[i] = -1
			tMax[i] = (start[i] - float32(cell[i])) / -dir[i]
			tDelta[i] = -1 / dir[i]
		default:
			tMax[i] = float32(math.Inf(1))
			tDelta[i] = float32(math.Inf(1))
		}
	}

	prev := cell
	var normal [3]int
	t := float32(0)
	for t <= maxDist {
		if t >= minDist {
			if id, ok := grid.Get(int32(cell[0]), int32(cell[1]), int32(cell[2])); ok {
				return RaycastResult{
					HitPosition:      cell,
					AdjacentPosition: prev,
					Normal:           normal,
					ID:               id,
					Distance:         t,
					Hit:              true,
				}
			}
		}
		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		prev = cell
		cell[axis] += step[axis]
		normal = [3]int{}
		normal[axis] = -step[axis]
		t = tMax[axis]
		tMax[axis] += tDelta[axis]
	}
	return RaycastResult{}
}
