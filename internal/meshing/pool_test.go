package meshing

import "testing"

func TestPoolReusesAndClears(t *testing.T) {
	p := NewPool(1, nil)
	m := p.Acquire(Solid)
	handle := m.Handle
	m.Set(&Buffers{Positions: []float32{1, 2, 3}, Indices: []uint32{0}})
	p.Release(m)
	if !m.Empty() || len(m.Positions) != 0 {
		t.Fatal("released mesh not cleared")
	}

	again := p.Acquire(Translucent)
	if again != m || again.Handle != handle {
		t.Fatal("pool did not reuse the released mesh")
	}
	if again.Kind != Translucent {
		t.Fatalf("kind = %v", again.Kind)
	}
	if s := p.Stats(); s.Created != 1 || s.Reused != 1 || s.Free != 0 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestPoolDisposesOnOverflow(t *testing.T) {
	var disposed []*Mesh
	p := NewPool(1, func(m *Mesh) { disposed = append(disposed, m) })
	a, b := p.Acquire(Solid), p.Acquire(Solid)
	if a.Handle == b.Handle {
		t.Fatal("handles not unique")
	}
	p.Release(a)
	p.Release(b)
	p.Release(nil)
	if len(disposed) != 1 || disposed[0] != b {
		t.Fatalf("disposed = %v", disposed)
	}
	if s := p.Stats(); s.Free != 1 || s.Disposed != 1 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestAssembleOffsetsIndices(t *testing.T) {
	quad := func() *Fragment {
		f := &Fragment{}
		for i := 0; i < 4; i++ {
			f[Solid].push(vertex{}, true)
		}
		f[Solid].Indices = append(f[Solid].Indices, quadIndices[:]...)
		return f
	}
	frags := map[int]*Fragment{3: quad(), 9: quad()}
	out := Assemble(Solid, []int{3, 5, 9}, frags)
	if out.VertexCount() != 8 || len(out.Lights) != 8 {
		t.Fatalf("vertices = %d", out.VertexCount())
	}
	if got := out.Indices[6:]; got[0] != 4 || got[5] != 7 {
		t.Fatalf("second quad indices = %v", got)
	}
	if tr := Assemble(Translucent, []int{3, 9}, frags); !tr.Empty() {
		t.Fatal("translucent assembled from solid fragments")
	}
}
