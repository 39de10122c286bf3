package lighting

import (
	"errors"
	"testing"
)

type emitterList [][4]int

func (l emitterList) EachEmitter(fn func(x, y, z int, level uint8)) {
	for _, e := range l {
		fn(e[0], e[1], e[2], uint8(e[3]))
	}
}

func TestVolumeSetGetKeepsPairedNibble(t *testing.T) {
	v := NewVolume([3]int{0, 0, 0}, 16)
	for level := uint8(0); level <= MaxLevel; level++ {
		// (2,0,0) and (3,0,0) share a byte.
		if err := v.Set(3, 0, 0, 7); err != nil {
			t.Fatal(err)
		}
		if err := v.Set(2, 0, 0, level); err != nil {
			t.Fatal(err)
		}
		if got := v.Get(2, 0, 0); got != level {
			t.Fatalf("Get = %d, want %d", got, level)
		}
		if got := v.Get(3, 0, 0); got != 7 {
			t.Fatalf("paired nibble disturbed: %d", got)
		}
		if err := v.Set(3, 0, 0, level); err != nil {
			t.Fatal(err)
		}
		if got := v.Get(2, 0, 0); got != level {
			t.Fatalf("low nibble disturbed by high write: %d", got)
		}
	}
}

func TestVolumeBounds(t *testing.T) {
	v := NewVolume([3]int{16, 0, -16}, 16)
	if err := v.Set(16, 0, 0, 1); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("err = %v, want ErrOutOfBounds", err)
	}
	if err := v.Set(0, 0, 0, 16); !errors.Is(err, ErrLevel) {
		t.Fatalf("err = %v, want ErrLevel", err)
	}
	if got := v.GetGlobal(0, 0, 0); got != 0 {
		t.Fatalf("out of range global read = %d", got)
	}
	_ = v.Set(1, 2, 3, 9)
	if got := v.GetGlobal(17, 2, -13); got != 9 {
		t.Fatalf("global read = %d, want 9", got)
	}
}

func TestRecomputeFalloff(t *testing.T) {
	v := NewVolume([3]int{0, 0, 0}, 16)
	var p Propagator
	p.Recompute(v, emitterList{{8, 8, 8, 10}}, nil)

	if got := v.Get(8, 8, 8); got != 10 {
		t.Errorf("source voxel = %d, want 10", got)
	}
	if got := v.Get(8, 9, 8); got != 9 {
		t.Errorf("distance 1 = %d, want 9", got)
	}
	if got := v.Get(9, 9, 8); got != 9 { // 10 - sqrt(2) = 8.59
		t.Errorf("diagonal = %d, want 9", got)
	}
	if got := v.Get(8, 8, 15); got != 3 {
		t.Errorf("distance 7 = %d, want 3", got)
	}
	if got := v.Get(8, 8, 0); got != 2 {
		t.Errorf("distance 8 = %d, want 2", got)
	}
	// (8,8,8) -> (0,0,0) is ~13.9 away.
	if got := v.Get(0, 0, 0); got != 0 {
		t.Errorf("far voxel = %d, want 0", got)
	}
}

func TestRecomputeCrossChunkSource(t *testing.T) {
	v := NewVolume([3]int{16, 0, 0}, 16)
	neighbor := emitterList{{15, 4, 4, 12}}
	var p Propagator
	p.Recompute(v, nil, func(origin [3]int) Emitters {
		if origin == [3]int{0, 0, 0} {
			return neighbor
		}
		return nil
	})
	if got := v.GetGlobal(16, 4, 4); got != 11 {
		t.Fatalf("light across border = %d, want 11", got)
	}
	if len(p.Sources()) != 1 {
		t.Fatalf("sources = %d, want 1", len(p.Sources()))
	}
}

func TestRecomputeClearsStaleLight(t *testing.T) {
	v := NewVolume([3]int{0, 0, 0}, 16)
	var p Propagator
	p.Recompute(v, emitterList{{1, 1, 1, 15}}, nil)
	if !v.Lit() {
		t.Fatal("expected lit volume")
	}
	p.Recompute(v, emitterList{}, nil)
	if v.Lit() {
		t.Fatal("light survived removal of its source")
	}
}

func BenchmarkRecompute(b *testing.B) {
	v := NewVolume([3]int{0, 0, 0}, 16)
	src := emitterList{{2, 2, 2, 15}, {12, 8, 3, 10}, {7, 14, 9, 12}}
	var p Propagator
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		p.Recompute(v, src, nil)
	}
}
