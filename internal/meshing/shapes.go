package meshing

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"voxelcore/internal/registry"
	"voxelcore/pkg/blockmodel"
)

// ErrUnknownShape is returned for shape tags that are neither built in nor
// registered through a block model.
var ErrUnknownShape = errors.New("meshing: unknown shape")

// NoCull marks shape triangles that are never hidden by a neighbour.
const NoCull Face = -1

// ShapeTri is one triangle of a non-cube shape, in voxel-centred units.
type ShapeTri struct {
	Pos    [3]mgl32.Vec3
	UV     [3]mgl32.Vec2
	Normal mgl32.Vec3
	// Face selects the texture; Cull is the side whose neighbour hides the
	// triangle, or NoCull.
	Face Face
	Cull Face
}

// Shape is a cached triangle list for a shape tag.
type Shape struct {
	Tag  string
	Tris []ShapeTri
}

type box struct{ from, to [3]float32 }

var builtinShapes = map[string][]box{
	"slab":       {{[3]float32{0, 0, 0}, [3]float32{16, 8, 16}}},
	"slab_top":   {{[3]float32{0, 8, 0}, [3]float32{16, 16, 16}}},
	"carpet":     {{[3]float32{0, 0, 0}, [3]float32{16, 1, 16}}},
	"stairs":     {{[3]float32{0, 0, 0}, [3]float32{16, 8, 16}}, {[3]float32{0, 8, 8}, [3]float32{16, 16, 16}}},
	"fence_post": {{[3]float32{6, 0, 6}, [3]float32{10, 16, 10}}},
	"pane":       {{[3]float32{0, 0, 7}, [3]float32{16, 16, 9}}},
}

var shapeCache = struct {
	sync.RWMutex
	m map[string]*Shape
}{m: make(map[string]*Shape)}

// BuiltinShape reports whether tag is provided without a block model.
func BuiltinShape(tag string) bool {
	if tag == "cross" {
		return true
	}
	_, ok := builtinShapes[tag]
	return ok
}

// LookupShape returns the triangle list for tag, computing it on first use.
// Model shapes ("model:...") are read from blocks.
func LookupShape(tag string, blocks Blocks) (*Shape, error) {
	shapeCache.RLock()
	s, ok := shapeCache.m[tag]
	shapeCache.RUnlock()
	if ok {
		return s, nil
	}

	s, err := buildShape(tag, blocks)
	if err != nil {
		return nil, err
	}
	shapeCache.Lock()
	if prev, ok := shapeCache.m[tag]; ok {
		s = prev
	} else {
		shapeCache.m[tag] = s
	}
	shapeCache.Unlock()
	return s, nil
}

// ResetShapeCache drops every cached shape. Block models reloaded under an
// existing tag are only picked up after a reset.
func ResetShapeCache() {
	shapeCache.Lock()
	shapeCache.m = make(map[string]*Shape)
	shapeCache.Unlock()
}

func buildShape(tag string, blocks Blocks) (*Shape, error) {
	s := &Shape{Tag: tag}
	switch {
	case tag == "cross":
		s.Tris = crossTris()
	case strings.HasPrefix(tag, registry.ModelShapePrefix):
		if blocks == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownShape, tag)
		}
		elems, ok := blocks.ShapeElements(tag)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownShape, tag)
		}
		for _, e := range elems {
			s.Tris = append(s.Tris, elementTris(e)...)
		}
	default:
		boxes, ok := builtinShapes[tag]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownShape, tag)
		}
		for _, b := range boxes {
			s.Tris = append(s.Tris, boxTris(b)...)
		}
	}
	return s, nil
}

func boxBounds(from, to [3]float32) (lo, hi mgl32.Vec3) {
	e := blockmodel.Element{From: from, To: to}
	l, h := e.Bounds()
	return mgl32.Vec3(l), mgl32.Vec3(h)
}

// boxTris emits all six sides of a box. Sides flush with the voxel boundary
// cull against the neighbour on that side.
func boxTris(b box) []ShapeTri {
	lo, hi := boxBounds(b.from, b.to)
	out := make([]ShapeTri, 0, 12)
	for f := Face(0); f < 6; f++ {
		cull := NoCull
		if onBoundary(f, lo, hi) {
			cull = f
		}
		out = append(out, quadTris(f, lo, hi, cull, nil)...)
	}
	return out
}

func elementTris(e blockmodel.Element) []ShapeTri {
	lo, hi := boxBounds(e.From, e.To)
	var out []ShapeTri
	for f := Face(0); f < 6; f++ {
		face, ok := e.Faces[faceNames[f]]
		if !ok {
			continue
		}
		cull := NoCull
		if c := blockmodel.FaceIndex(face.CullFace); c >= 0 {
			cull = Face(c)
		}
		out = append(out, quadTris(f, lo, hi, cull, face.UV)...)
	}
	return out
}

func onBoundary(f Face, lo, hi mgl32.Vec3) bool {
	axis := int(f) / 2
	if f%2 == 0 {
		return hi[axis] >= 0.5
	}
	return lo[axis] <= -0.5
}

// quadTris splits the f side of the box into two triangles using the cube
// corner order. uv is an optional model UV rectangle in 0..16 units.
func quadTris(f Face, lo, hi mgl32.Vec3, cull Face, uv *[4]float32) []ShapeTri {
	var pos [4]mgl32.Vec3
	var uvs [4]mgl32.Vec2
	for i, c := range faceCorners[f] {
		for a := 0; a < 3; a++ {
			if c[a] < 0 {
				pos[i][a] = lo[a]
			} else {
				pos[i][a] = hi[a]
			}
		}
		uvs[i] = faceUV(f, pos[i])
		if uv != nil {
			cu, cv := cornerUVs[i][0], cornerUVs[i][1]
			uvs[i] = mgl32.Vec2{
				(uv[0] + (uv[2]-uv[0])*cu) / 16,
				1 - (uv[3]+(uv[1]-uv[3])*cv)/16,
			}
		}
	}
	n := f.Normal()
	return []ShapeTri{
		{Pos: [3]mgl32.Vec3{pos[0], pos[1], pos[2]}, UV: [3]mgl32.Vec2{uvs[0], uvs[1], uvs[2]}, Normal: n, Face: f, Cull: cull},
		{Pos: [3]mgl32.Vec3{pos[2], pos[1], pos[3]}, UV: [3]mgl32.Vec2{uvs[2], uvs[1], uvs[3]}, Normal: n, Face: f, Cull: cull},
	}
}

// crossTris builds two diagonal planes, each visible from both sides.
func crossTris() []ShapeTri {
	planes := [2]struct {
		corners [4]mgl32.Vec3
		face    Face
	}{
		{[4]mgl32.Vec3{{-.5, -.5, -.5}, {.5, -.5, .5}, {-.5, .5, -.5}, {.5, .5, .5}}, FaceSouth},
		{[4]mgl32.Vec3{{-.5, -.5, .5}, {.5, -.5, -.5}, {-.5, .5, .5}, {.5, .5, -.5}}, FaceEast},
	}
	var out []ShapeTri
	for _, p := range planes {
		c := p.corners
		n := c[1].Sub(c[0]).Cross(c[2].Sub(c[0])).Normalize()
		out = append(out,
			ShapeTri{Pos: [3]mgl32.Vec3{c[0], c[1], c[2]}, UV: [3]mgl32.Vec2{cornerUVs[0], cornerUVs[1], cornerUVs[2]}, Normal: n, Face: p.face, Cull: NoCull},
			ShapeTri{Pos: [3]mgl32.Vec3{c[2], c[1], c[3]}, UV: [3]mgl32.Vec2{cornerUVs[2], cornerUVs[1], cornerUVs[3]}, Normal: n, Face: p.face, Cull: NoCull},
			ShapeTri{Pos: [3]mgl32.Vec3{c[0], c[2], c[1]}, UV: [3]mgl32.Vec2{cornerUVs[0], cornerUVs[2], cornerUVs[1]}, Normal: n.Mul(-1), Face: p.face, Cull: NoCull},
			ShapeTri{Pos: [3]mgl32.Vec3{c[2], c[3], c[1]}, UV: [3]mgl32.Vec2{cornerUVs[2], cornerUVs[3], cornerUVs[1]}, Normal: n.Mul(-1), Face: p.face, Cull: NoCull},
		)
	}
	return out
}
