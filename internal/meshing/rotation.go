package meshing

import "github.com/go-gl/mathgl/mgl32"

// RotationCount is the number of axis-aligned cube orientations.
const RotationCount = 24

// Rotations holds every proper rotation of the cube as a signed permutation
// matrix. Index 0 is the identity.
var Rotations = buildRotations()

var axisPermutations = [6][3]int{
	{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
}

func buildRotations() [RotationCount]mgl32.Mat3 {
	var out [RotationCount]mgl32.Mat3
	n := 0
	for _, perm := range axisPermutations {
		for signs := 0; signs < 8; signs++ {
			var m mgl32.Mat3
			for row := 0; row < 3; row++ {
				s := float32(1)
				if signs&(1<<row) != 0 {
					s = -1
				}
				m.Set(row, perm[row], s)
			}
			if m.Det() > 0 {
				out[n] = m
				n++
			}
		}
	}
	return out
}

// RotateFace returns the face a rotated voxel presents in direction f.
func RotateFace(rotation uint8, f Face) Face {
	if rotation == 0 {
		return f
	}
	return FaceFromNormal(Rotations[rotation].Mul3x1(f.Normal()))
}

func rotate(rotation uint8, v mgl32.Vec3) mgl32.Vec3 {
	if rotation == 0 || int(rotation) >= RotationCount {
		return v
	}
	return Rotations[rotation].Mul3x1(v)
}
