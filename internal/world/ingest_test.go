package world

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"voxelcore/internal/view"
)

func TestParseTerrain(t *testing.T) {
	chunks, err := ParseTerrain(map[string]uint16{
		"0,0,0":    1,
		"15,15,15": 2,
		"-1,5,17":  5,
		" 3, 3, 3": 0,
	})
	if err != nil {
		t.Fatal(err)
	}
	var origins []Coord
	for _, c := range chunks {
		origins = append(origins, c.Origin)
	}
	if diff := cmp.Diff([]Coord{{-16, 0, 16}, {0, 0, 0}}, origins); diff != "" {
		t.Fatalf("origins (-want +got):\n%s", diff)
	}
	if got := chunks[0].Blocks[Index(15, 5, 1)]; got != 5 {
		t.Errorf("(-1,5,17) = %d, want 5", got)
	}
	if got := chunks[1].Blocks[Index(0, 0, 0)]; got != 1 {
		t.Errorf("(0,0,0) = %d, want 1", got)
	}
	if got := chunks[1].Blocks[Index(15, 15, 15)]; got != 2 {
		t.Errorf("(15,15,15) = %d, want 2", got)
	}
}

func TestParseTerrainRejectsBadKeys(t *testing.T) {
	for _, key := range []string{"1,2", "a,b,c", "1,2,3,4", "", "2147483648,0,0", "0,-2147483649,0"} {
		if _, err := ParseTerrain(map[string]uint16{key: 1}); !errors.Is(err, ErrBadChunkData) {
			t.Errorf("key %q: err = %v, want ErrBadChunkData", key, err)
		}
	}
}

func TestParseTerrainAcceptsInt32Extremes(t *testing.T) {
	chunks, err := ParseTerrain(map[string]uint16{"2147483647,-2147483648,0": 1})
	if err != nil {
		t.Fatal(err)
	}
	want := Coord{2147483632, -2147483648, 0}
	if len(chunks) != 1 || chunks[0].Origin != want {
		t.Fatalf("got %d chunks, want one at %v", len(chunks), want)
	}
	var got Coord
	chunks[0].Each(func(g Coord, _ uint16) { got = g })
	if want := (Coord{2147483647, -2147483648, 0}); got != want {
		t.Fatalf("voxel at %v, want %v", got, want)
	}
}

func TestReadTerrain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terrain.json")
	if err := os.WriteFile(path, []byte(`{"1,2,3": 7, "40,0,0": 1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	chunks, err := ReadTerrain(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}

	if err := os.WriteFile(path, []byte(`{"1,2,3": -4}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadTerrain(path); !errors.Is(err, ErrBadChunkData) {
		t.Fatalf("negative id: err = %v", err)
	}
}

func TestBulkLoaderRingOrder(t *testing.T) {
	s := newTestStore(t, nil)
	s.SetViewpoint(view.Point{8, 8, 8})

	terrain := map[string]uint16{
		"40,8,8":  1, // ring 2
		"8,8,8":   1, // ring 0
		"-8,8,8":  1, // ring 1
		"8,8,100": 1, // ring 6
	}
	chunks, err := ParseTerrain(terrain)
	if err != nil {
		t.Fatal(err)
	}
	l := NewBulkLoader(s, chunks, 1)

	want := []Coord{{0, 0, 0}, {-16, 0, 0}, {32, 0, 0}, {0, 0, 96}}
	for i, o := range want {
		if n, err := l.Step(); n != 1 || err != nil {
			t.Fatalf("step %d = %d, %v", i, n, err)
		}
		if !s.HasChunk(o) {
			t.Fatalf("step %d did not load %v", i, o)
		}
		if s.Len() != i+1 {
			t.Fatalf("step %d loaded %d chunks", i, s.Len())
		}
		if last := i == len(want)-1; s.BulkLoad() == last {
			t.Fatalf("step %d: bulk load = %v", i, s.BulkLoad())
		}
	}
	if !l.Done() || l.Remaining() != 0 {
		t.Fatal("loader not done")
	}
	if n, err := l.Step(); n != 0 || err != nil {
		t.Fatalf("Step after done = %d, %v", n, err)
	}

	drain(t, s)
	for _, o := range want {
		if faceCount(s.Chunk(o)) != 6 {
			t.Fatalf("chunk %v not meshed after bulk load", o)
		}
	}
}

func TestBulkLoaderDefaultBatch(t *testing.T) {
	s := newTestStore(t, nil)
	var chunks []TerrainChunk
	for i := 0; i < 70; i++ {
		chunks = append(chunks, TerrainChunk{Origin: Coord{i * 16, 0, 0}, Blocks: empty()})
	}
	l := NewBulkLoader(s, chunks, 0)
	if n, _ := l.Step(); n != 64 {
		t.Fatalf("first batch = %d, want the configured 64", n)
	}
	if n, _ := l.Step(); n != 6 {
		t.Fatalf("second batch = %d, want 6", n)
	}
}

func TestTerrainChunkEachRoundTrip(t *testing.T) {
	voxels := map[Coord]uint16{
		{3, 4, 5}:    2,
		{-1, -1, -1}: 5,
		{17, 0, -30}: 300,
		{20, 20, 20}: 0,
	}
	got := make(map[Coord]uint16)
	for _, c := range GroupVoxels(voxels) {
		c.Each(func(g Coord, id uint16) { got[g] = id })
	}
	delete(voxels, Coord{20, 20, 20})
	if diff := cmp.Diff(voxels, got); diff != "" {
		t.Fatalf("voxels (-want +got):\n%s", diff)
	}
}
