// Package meshing turns chunk voxel data into face-culled vertex buffers.
package meshing

import (
	"fmt"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"

	"voxelcore/internal/config"
	"voxelcore/internal/profiling"
	"voxelcore/internal/registry"
)

// Mesher builds per-voxel geometry fragments. It keeps no per-chunk state
// and may be shared by every chunk.
type Mesher struct {
	blocks  Blocks
	atlas   Atlas
	shading config.ShadingTuning
	sky     []float32
	log     logrus.FieldLogger
}

// NewMesher returns a mesher. atlas may be nil, in which case UVs stay in
// face-local space and every face is keyed with ErrorTexture.
func NewMesher(blocks Blocks, atlas Atlas, shading config.ShadingTuning, log logrus.FieldLogger) *Mesher {
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}
	return &Mesher{
		blocks:  blocks,
		atlas:   atlas,
		shading: shading,
		sky:     shading.SkyLightTable(),
		log:     log,
	}
}

// Build regenerates the fragments of the listed voxels (local linear
// indices) and stores them in out. Empty results delete the entry. A panic
// while building is returned as an error; out may then be partially updated.
func (m *Mesher) Build(b *Border, light LightFunc, voxels []int, out map[int]*Fragment) (err error) {
	defer profiling.Track("meshing.Build")()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("meshing: panic while building: %v", r)
		}
	}()

	memo := newTextureMemo(m.atlas)
	n := b.Size()
	for _, idx := range voxels {
		x, z, y := idx%n, (idx/n)%n, idx/(n*n)
		cell := b.At(x, y, z)
		if cell.Empty() {
			delete(out, idx)
			continue
		}
		frag := &Fragment{}
		if cell.Shaped() {
			m.shapedVoxel(b, light, memo, x, y, z, cell, frag)
		} else {
			m.cubeVoxel(b, light, memo, x, y, z, cell, frag)
		}
		if frag.Empty() {
			delete(out, idx)
			continue
		}
		out[idx] = frag
	}
	profiling.Count("meshing.voxels", int64(len(voxels)))
	return nil
}

func kindOf(d *registry.Descriptor) Kind {
	if d.Translucent {
		return Translucent
	}
	return Solid
}

// culledBy reports whether the neighbour hides self's face pointing at it
// through side (the rotated direction from self to nb).
func culledBy(self, nb Cell, side Face) bool {
	d := nb.Desc
	if d == nil || nb.Shaped() {
		return false
	}
	if d.Liquid {
		return d.ID == self.Desc.ID
	}
	return d.SolidOn(int(side.Opposite()))
}

func (m *Mesher) cubeVoxel(b *Border, light LightFunc, memo *textureMemo, x, y, z int, cell Cell, frag *Fragment) {
	desc := cell.Desc
	kind := kindOf(desc)
	buf := &frag[kind]
	lv := m.lightAt(light, x, y, z)
	center := mgl32.Vec3{float32(x) + 0.5, float32(y) + 0.5, float32(z) + 0.5}

	for f := Face(0); f < 6; f++ {
		rf := RotateFace(cell.Rotation, f)
		off := rf.Offset()
		if culledBy(cell, b.At(x+off[0], y+off[1], z+off[2]), rf) {
			continue
		}
		normal := rf.Normal()
		shade := m.faceShade(normal)
		key := memo.key(desc, f)
		base := uint32(buf.VertexCount())
		for c := 0; c < 4; c++ {
			corner := rotate(cell.Rotation, faceCorners[f][c])
			pos := center.Add(corner)
			ao := m.aoValue(desc, m.aoCount(b, x, y, z, rf, corner))
			buf.push(vertex{
				pos:    pos,
				normal: normal,
				uv:     memo.uv(key, f, cornerUVs[c]),
				color:  shadeColor(desc.Color, ao, shade, m.skyLight(b, pos, normal)),
				light:  lv,
			}, kind == Solid)
		}
		for _, qi := range quadIndices {
			buf.Indices = append(buf.Indices, base+qi)
		}
	}
}

func (m *Mesher) shapedVoxel(b *Border, light LightFunc, memo *textureMemo, x, y, z int, cell Cell, frag *Fragment) {
	shape, err := LookupShape(cell.Shape, m.blocks)
	if err != nil {
		m.log.WithError(err).WithField("shape", cell.Shape).Debug("rendering unknown shape as cube")
		cell.Shape = ""
		m.cubeVoxel(b, light, memo, x, y, z, cell, frag)
		return
	}
	desc := cell.Desc
	kind := kindOf(desc)
	buf := &frag[kind]
	lv := m.lightAt(light, x, y, z)
	center := mgl32.Vec3{float32(x) + 0.5, float32(y) + 0.5, float32(z) + 0.5}

	for _, tri := range shape.Tris {
		if tri.Cull != NoCull {
			rc := RotateFace(cell.Rotation, tri.Cull)
			off := rc.Offset()
			if culledBy(cell, b.At(x+off[0], y+off[1], z+off[2]), rc) {
				continue
			}
		}
		normal := rotate(cell.Rotation, tri.Normal)
		shade := m.faceShade(normal)
		key := memo.key(desc, tri.Face)
		base := uint32(buf.VertexCount())
		for i := 0; i < 3; i++ {
			pos := center.Add(rotate(cell.Rotation, tri.Pos[i]))
			buf.push(vertex{
				pos:    pos,
				normal: normal,
				uv:     memo.uv(key, tri.Face, tri.UV[i]),
				color:  shadeColor(desc.Color, 0, shade, m.skyLight(b, pos, normal)),
				light:  lv,
			}, kind == Solid)
			buf.Indices = append(buf.Indices, base+uint32(i))
		}
	}
}

func (m *Mesher) lightAt(light LightFunc, x, y, z int) float32 {
	if light == nil {
		return 0
	}
	return float32(light(x, y, z))
}

func (m *Mesher) faceShade(n mgl32.Vec3) float32 {
	switch {
	case n[1] > 0.5:
		return m.shading.FaceShadeTop
	case n[1] < -0.5:
		return m.shading.FaceShadeBottom
	default:
		return m.shading.FaceShadeSide
	}
}

// aoCount counts occluders around a face corner: the two edge neighbours and
// the diagonal one, in the layer in front of the face. Two edge occluders
// fully darken the corner regardless of the diagonal.
func (m *Mesher) aoCount(b *Border, x, y, z int, f Face, corner mgl32.Vec3) int {
	off := f.Offset()
	fx, fy, fz := x+off[0], y+off[1], z+off[2]
	axis := int(f) / 2
	a1, a2 := (axis+1)%3, (axis+2)%3
	var s1, s2 [3]int
	s1[a1] = sign(corner[a1])
	s2[a2] = sign(corner[a2])

	side1 := b.At(fx+s1[0], fy+s1[1], fz+s1[2]).occludes()
	side2 := b.At(fx+s2[0], fy+s2[1], fz+s2[2]).occludes()
	if side1 && side2 {
		return 3
	}
	diag := b.At(fx+s1[0]+s2[0], fy+s1[1]+s2[1], fz+s1[2]+s2[2]).occludes()
	return btoi(side1) + btoi(side2) + btoi(diag)
}

func (m *Mesher) aoValue(d *registry.Descriptor, count int) float32 {
	if d.AO != nil {
		return d.AO[count]
	}
	return m.shading.AOTable[count]
}

// skyLight marches up from just outside the vertex until a solid non-liquid
// voxel is found. The distance indexes the precomputed brightness table.
func (m *Mesher) skyLight(b *Border, pos, normal mgl32.Vec3) float32 {
	s := pos.Add(normal.Mul(0.5))
	vx := int(math.Floor(float64(s[0])))
	vy := int(math.Floor(float64(s[1])))
	vz := int(math.Floor(float64(s[2])))
	for d := 0; d <= m.shading.SkyMaxDistance; d++ {
		if b.At(vx, vy+d, vz).occludes() {
			return m.sky[d]
		}
	}
	return m.sky[len(m.sky)-1]
}

func shadeColor(base mgl32.Vec4, ao, shade, sky float32) mgl32.Vec4 {
	k := shade * sky
	return mgl32.Vec4{
		max(base[0]-ao, 0) * k,
		max(base[1]-ao, 0) * k,
		max(base[2]-ao, 0) * k,
		base[3],
	}
}

func sign(f float32) int {
	if f < 0 {
		return -1
	}
	return 1
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
