package meshing

import "github.com/go-gl/mathgl/mgl32"

// Kind selects a buffer set.
type Kind int

const (
	Solid Kind = iota
	Translucent
	kindCount
)

func (k Kind) String() string {
	if k == Solid {
		return "solid"
	}
	return "translucent"
}

// Buffers are flat vertex attribute arrays plus a triangle index list.
// Lights is only filled for solid geometry.
type Buffers struct {
	Positions []float32
	Normals   []float32
	UVs       []float32
	Colors    []float32
	Lights    []float32
	Indices   []uint32
}

func (b *Buffers) VertexCount() int { return len(b.Positions) / 3 }

func (b *Buffers) Empty() bool { return len(b.Indices) == 0 }

func (b *Buffers) Reset() {
	b.Positions = b.Positions[:0]
	b.Normals = b.Normals[:0]
	b.UVs = b.UVs[:0]
	b.Colors = b.Colors[:0]
	b.Lights = b.Lights[:0]
	b.Indices = b.Indices[:0]
}

type vertex struct {
	pos    mgl32.Vec3
	normal mgl32.Vec3
	uv     mgl32.Vec2
	color  mgl32.Vec4
	light  float32
}

func (b *Buffers) push(v vertex, withLight bool) {
	b.Positions = append(b.Positions, v.pos[0], v.pos[1], v.pos[2])
	b.Normals = append(b.Normals, v.normal[0], v.normal[1], v.normal[2])
	b.UVs = append(b.UVs, v.uv[0], v.uv[1])
	b.Colors = append(b.Colors, v.color[0], v.color[1], v.color[2], v.color[3])
	if withLight {
		b.Lights = append(b.Lights, v.light)
	}
}

// appendBuffers appends src to dst, offsetting src's indices.
func appendBuffers(dst *Buffers, src *Buffers) {
	base := uint32(dst.VertexCount())
	dst.Positions = append(dst.Positions, src.Positions...)
	dst.Normals = append(dst.Normals, src.Normals...)
	dst.UVs = append(dst.UVs, src.UVs...)
	dst.Colors = append(dst.Colors, src.Colors...)
	dst.Lights = append(dst.Lights, src.Lights...)
	for _, i := range src.Indices {
		dst.Indices = append(dst.Indices, base+i)
	}
}

// Fragment is the geometry one voxel contributes, per kind. Indices are
// local to the fragment.
type Fragment [kindCount]Buffers

func (f *Fragment) Empty() bool {
	return f[Solid].Empty() && f[Translucent].Empty()
}

// Assemble concatenates fragments in the order given by keys.
func Assemble(kind Kind, keys []int, frags map[int]*Fragment) Buffers {
	var out Buffers
	for _, k := range keys {
		if f := frags[k]; f != nil {
			appendBuffers(&out, &f[kind])
		}
	}
	return out
}
