package meshing

import (
	"github.com/google/uuid"

	"voxelcore/internal/profiling"
)

// Mesh is a pooled geometry object handed to the renderer. Handle stays
// stable for the lifetime of the object, across reuse.
type Mesh struct {
	Handle uuid.UUID
	Kind   Kind
	Buffers
}

// Set replaces the mesh contents with a copy of b, reusing storage.
func (m *Mesh) Set(b *Buffers) {
	m.Positions = append(m.Positions[:0], b.Positions...)
	m.Normals = append(m.Normals[:0], b.Normals...)
	m.UVs = append(m.UVs[:0], b.UVs...)
	m.Colors = append(m.Colors[:0], b.Colors...)
	m.Lights = append(m.Lights[:0], b.Lights...)
	m.Indices = append(m.Indices[:0], b.Indices...)
}

// PoolStats is a snapshot of pool activity.
type PoolStats struct {
	Free     int
	Created  int
	Reused   int
	Disposed int
}

// Pool recycles Mesh objects. Released meshes are cleared; once capacity
// meshes are idle further releases are disposed instead of retained.
type Pool struct {
	capacity  int
	free      []*Mesh
	onDispose func(*Mesh)
	stats     PoolStats
}

// NewPool returns a pool retaining at most capacity idle meshes. onDispose,
// if set, is called for every mesh dropped on overflow.
func NewPool(capacity int, onDispose func(*Mesh)) *Pool {
	return &Pool{capacity: max(capacity, 0), onDispose: onDispose}
}

// Acquire returns an empty mesh of the given kind.
func (p *Pool) Acquire(kind Kind) *Mesh {
	if n := len(p.free); n > 0 {
		m := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		m.Kind = kind
		p.stats.Reused++
		return m
	}
	p.stats.Created++
	return &Mesh{Handle: uuid.New(), Kind: kind}
}

// Release returns m to the pool. A nil mesh is ignored.
func (p *Pool) Release(m *Mesh) {
	if m == nil {
		return
	}
	m.Reset()
	if len(p.free) >= p.capacity {
		p.stats.Disposed++
		profiling.Count("meshing.pool.disposed", 1)
		if p.onDispose != nil {
			p.onDispose(m)
		}
		return
	}
	p.free = append(p.free, m)
}

func (p *Pool) Stats() PoolStats {
	s := p.stats
	s.Free = len(p.free)
	return s
}
