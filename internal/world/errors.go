package world

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidOrigin = errors.New("world: chunk origin not aligned")
	ErrOutOfBounds   = errors.New("world: local coordinate out of bounds")
	ErrEmptyVoxel    = errors.New("world: voxel is empty")
	ErrBadChunkData  = errors.New("world: malformed chunk data")
	ErrMeshBuild     = errors.New("world: mesh build failed")
)

// MeshBuildError reports a failed chunk rebuild. The chunk keeps its last
// good geometry.
type MeshBuildError struct {
	Origin  Coord
	Partial bool
	Err     error
}

func (e *MeshBuildError) Error() string {
	kind := "full"
	if e.Partial {
		kind = "partial"
	}
	return fmt.Sprintf("%v: %s rebuild of chunk %v: %v", ErrMeshBuild, kind, e.Origin, e.Err)
}

func (e *MeshBuildError) Unwrap() []error { return []error{ErrMeshBuild, e.Err} }
