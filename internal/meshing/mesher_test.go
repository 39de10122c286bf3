package meshing

import (
	"errors"
	"sort"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/go-cmp/cmp"

	"voxelcore/internal/config"
	"voxelcore/internal/registry"
	"voxelcore/pkg/blockmodel"
)

const testN = 16

type testBlocks map[uint16]*registry.Descriptor

func (b testBlocks) Descriptor(id uint16) *registry.Descriptor { return b[id] }

func (b testBlocks) ShapeElements(tag string) ([]blockmodel.Element, bool) {
	if tag == "model:block/post" {
		return []blockmodel.Element{{
			From:  [3]float32{4, 0, 4},
			To:    [3]float32{12, 16, 12},
			Faces: map[string]blockmodel.Face{"up": {Texture: "post", CullFace: "up"}, "north": {Texture: "post"}},
		}}, true
	}
	return nil, false
}

func opaque(id uint16, name string) *registry.Descriptor {
	return &registry.Descriptor{
		ID: id, Name: name,
		Opaque: [6]bool{true, true, true, true, true, true},
		Color:  mgl32.Vec4{1, 1, 1, 1},
	}
}

func liquid(id uint16, name string) *registry.Descriptor {
	return &registry.Descriptor{ID: id, Name: name, Liquid: true, Translucent: true, Color: mgl32.Vec4{0.2, 0.4, 1, 0.6}}
}

var blocks = testBlocks{
	1: opaque(1, "stone"),
	2: opaque(2, "dirt"),
	3: liquid(3, "water"),
	4: liquid(4, "lava"),
}

// mapWorld is a sparse voxel world used as a Source.
type mapWorld map[[3]int]Cell

func (w mapWorld) Sample(x, y, z int) Cell { return w[[3]int{x, y, z}] }

func (w mapWorld) put(x, y, z int, id uint16) { w[[3]int{x, y, z}] = Cell{Desc: blocks[id]} }

func (w mapWorld) localVoxels(origin [3]int) []int {
	var out []int
	for c := range w {
		l := [3]int{c[0] - origin[0], c[1] - origin[1], c[2] - origin[2]}
		if l[0] < 0 || l[1] < 0 || l[2] < 0 || l[0] >= testN || l[1] >= testN || l[2] >= testN {
			continue
		}
		out = append(out, (l[1]*testN+l[2])*testN+l[0])
	}
	sort.Ints(out)
	return out
}

type testAtlas struct {
	keys   map[string]bool
	queued []string
}

func (a *testAtlas) Resolve(key string, _ Face, uv mgl32.Vec2) (mgl32.Vec2, bool) {
	if !a.keys[key] {
		return mgl32.Vec2{}, false
	}
	return uv.Mul(0.5), true
}

func (a *testAtlas) QueueForLoad(key string) { a.queued = append(a.queued, key) }

func buildAll(t *testing.T, m *Mesher, w mapWorld) (solid, translucent Buffers) {
	t.Helper()
	origin := [3]int{0, 0, 0}
	voxels := w.localVoxels(origin)
	frags := make(map[int]*Fragment)
	if err := m.Build(NewBorder(origin, testN, w), nil, voxels, frags); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return Assemble(Solid, voxels, frags), Assemble(Translucent, voxels, frags)
}

func newTestMesher(atlas Atlas) *Mesher {
	return NewMesher(blocks, atlas, config.Default().Shading, nil)
}

func faces(b Buffers) int { return b.VertexCount() / 4 }

func TestSingleCube(t *testing.T) {
	w := mapWorld{}
	w.put(0, 0, 0, 1)
	solid, translucent := buildAll(t, newTestMesher(nil), w)
	if solid.VertexCount() != 24 || len(solid.Indices) != 36 {
		t.Fatalf("got %d vertices, %d indices; want 24, 36", solid.VertexCount(), len(solid.Indices))
	}
	if len(solid.Lights) != 24 || len(solid.Colors) != 96 || len(solid.UVs) != 48 {
		t.Fatalf("attribute lengths: lights %d colours %d uvs %d", len(solid.Lights), len(solid.Colors), len(solid.UVs))
	}
	if diff := cmp.Diff([]uint32{0, 1, 2, 2, 1, 3}, solid.Indices[:6]); diff != "" {
		t.Fatalf("quad indices (-want +got):\n%s", diff)
	}
	if !translucent.Empty() {
		t.Fatal("unexpected translucent geometry")
	}
}

func TestAdjacentDifferentIDsShareNoFaces(t *testing.T) {
	w := mapWorld{}
	w.put(0, 0, 0, 1)
	w.put(1, 0, 0, 2)
	solid, _ := buildAll(t, newTestMesher(nil), w)
	if got := faces(solid); got != 10 {
		t.Fatalf("faces = %d, want 10", got)
	}
}

func TestCrossChunkHaloCulls(t *testing.T) {
	w := mapWorld{}
	w.put(15, 0, 0, 1)
	w.put(16, 0, 0, 1) // next chunk
	origin := [3]int{0, 0, 0}
	frags := make(map[int]*Fragment)
	idx := (0*testN+0)*testN + 15
	if err := newTestMesher(nil).Build(NewBorder(origin, testN, w), nil, []int{idx}, frags); err != nil {
		t.Fatal(err)
	}
	if got := faces(Assemble(Solid, []int{idx}, frags)); got != 5 {
		t.Fatalf("faces = %d, want 5", got)
	}
}

func TestLiquidCulling(t *testing.T) {
	w := mapWorld{}
	w.put(0, 0, 0, 3)
	w.put(1, 0, 0, 3)
	_, tr := buildAll(t, newTestMesher(nil), w)
	if got := faces(tr); got != 10 {
		t.Fatalf("same liquid: faces = %d, want 10", got)
	}
	if len(tr.Lights) != 0 {
		t.Fatal("translucent geometry carries light values")
	}

	w = mapWorld{}
	w.put(0, 0, 0, 3)
	w.put(1, 0, 0, 4)
	_, tr = buildAll(t, newTestMesher(nil), w)
	if got := faces(tr); got != 12 {
		t.Fatalf("different liquids: faces = %d, want 12", got)
	}

	w = mapWorld{}
	w.put(0, 0, 0, 1)
	w.put(1, 0, 0, 3)
	solid, _ := buildAll(t, newTestMesher(nil), w)
	if got := faces(solid); got != 6 {
		t.Fatalf("stone next to water: faces = %d, want 6", got)
	}
}

func TestShapedNeighbourNeverCulls(t *testing.T) {
	w := mapWorld{}
	w.put(0, 0, 0, 1)
	w[[3]int{1, 0, 0}] = Cell{Desc: blocks[1], Shape: "slab"}
	m := newTestMesher(nil)
	frags := make(map[int]*Fragment)
	if err := m.Build(NewBorder([3]int{}, testN, w), nil, []int{0}, frags); err != nil {
		t.Fatal(err)
	}
	if got := faces(Assemble(Solid, []int{0}, frags)); got != 6 {
		t.Fatalf("faces = %d, want 6", got)
	}
}

func TestSlabShape(t *testing.T) {
	w := mapWorld{}
	w[[3]int{0, 1, 0}] = Cell{Desc: blocks[1], Shape: "slab"}
	idx := (1*testN + 0) * testN
	m := newTestMesher(nil)
	frags := make(map[int]*Fragment)
	if err := m.Build(NewBorder([3]int{}, testN, w), nil, []int{idx}, frags); err != nil {
		t.Fatal(err)
	}
	if got := len(frags[idx][Solid].Indices); got != 36 {
		t.Fatalf("isolated slab indices = %d, want 36", got)
	}

	w.put(0, 0, 0, 1)
	if err := m.Build(NewBorder([3]int{}, testN, w), nil, []int{idx}, frags); err != nil {
		t.Fatal(err)
	}
	if got := len(frags[idx][Solid].Indices); got != 30 {
		t.Fatalf("slab on stone indices = %d, want 30", got)
	}
	for i := 1; i < len(frags[idx][Solid].Positions); i += 3 {
		if y := frags[idx][Solid].Positions[i]; y < 1 || y > 1.5 {
			t.Fatalf("slab vertex y = %v outside [1, 1.5]", y)
		}
	}
}

func TestModelShape(t *testing.T) {
	s, err := LookupShape("model:block/post", blocks)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Tris) != 4 {
		t.Fatalf("tris = %d, want 4", len(s.Tris))
	}
	if s.Tris[0].Cull != FaceUp || s.Tris[2].Cull != NoCull {
		t.Fatalf("cull faces = %v, %v", s.Tris[0].Cull, s.Tris[2].Cull)
	}
	if _, err := LookupShape("model:block/absent", blocks); !errors.Is(err, ErrUnknownShape) {
		t.Fatalf("err = %v, want ErrUnknownShape", err)
	}
	if _, err := LookupShape("spiral", blocks); !errors.Is(err, ErrUnknownShape) {
		t.Fatalf("err = %v, want ErrUnknownShape", err)
	}
	cross, err := LookupShape("cross", nil)
	if err != nil || len(cross.Tris) != 8 {
		t.Fatalf("cross = %v, %v", cross, err)
	}
}

func TestUnknownShapeRendersAsCube(t *testing.T) {
	w := mapWorld{{0, 0, 0}: Cell{Desc: blocks[1], Shape: "spiral"}}
	solid, _ := buildAll(t, newTestMesher(nil), w)
	if got := faces(solid); got != 6 {
		t.Fatalf("faces = %d, want 6", got)
	}
}

func TestRotatedCubeKeepsFaceTextures(t *testing.T) {
	log := &registry.Descriptor{
		ID: 9, Name: "log",
		Opaque:       [6]bool{true, true, true, true, true, true},
		Color:        mgl32.Vec4{1, 1, 1, 1},
		FaceTextures: [6]string{"bark", "bark", "rings", "rings", "bark", "bark"},
	}
	atlas := &testAtlas{keys: map[string]bool{"bark": true, "rings": true}}
	m := NewMesher(testBlocks{9: log}, atlas, config.Default().Shading, nil)

	var rot uint8
	for r := uint8(1); r < RotationCount; r++ {
		if RotateFace(r, FaceUp) == FaceEast {
			rot = r
			break
		}
	}
	if rot == 0 {
		t.Fatal("no rotation maps up to east")
	}
	w := mapWorld{{0, 0, 0}: Cell{Desc: log, Rotation: rot}}
	frags := make(map[int]*Fragment)
	if err := m.Build(NewBorder([3]int{}, testN, w), nil, []int{0}, frags); err != nil {
		t.Fatal(err)
	}
	solid := frags[0][Solid]
	if faces(solid) != 6 {
		t.Fatalf("faces = %d", faces(solid))
	}
	// The +Y source face is emitted third and must now face +X.
	n := mgl32.Vec3{solid.Normals[2*12], solid.Normals[2*12+1], solid.Normals[2*12+2]}
	if !n.ApproxEqual(mgl32.Vec3{1, 0, 0}) {
		t.Fatalf("rotated top normal = %v", n)
	}
	if len(atlas.queued) != 0 {
		t.Fatalf("resident textures were queued: %v", atlas.queued)
	}
}

func TestTextureFallbackQueuesPrimaryKey(t *testing.T) {
	d := &registry.Descriptor{ID: 7, Name: "ore", BaseID: 1, FaceTextures: [6]string{2: "ore_top"}}
	atlas := &testAtlas{keys: map[string]bool{"block:1": true, ErrorTexture: true}}
	memo := newTextureMemo(atlas)
	if got := memo.key(d, FaceUp); got != "block:1" {
		t.Fatalf("up key = %q, want base id key", got)
	}
	if got := memo.key(d, FaceUp); got != "block:1" {
		t.Fatalf("memoised key = %q", got)
	}
	if diff := cmp.Diff([]string{"ore_top"}, atlas.queued); diff != "" {
		t.Fatalf("queued (-want +got):\n%s", diff)
	}

	bare := &registry.Descriptor{ID: 8, Name: "mystery"}
	if got := newTextureMemo(&testAtlas{keys: map[string]bool{}}).key(bare, FaceEast); got != ErrorTexture {
		t.Fatalf("key = %q, want %q", got, ErrorTexture)
	}

	want := []string{"ore_top", "block:7:up", "block:7", "block:1:up", "block:1", "ore/up", "ore"}
	if diff := cmp.Diff(want, candidates(d, FaceUp)); diff != "" {
		t.Fatalf("candidates (-want +got):\n%s", diff)
	}
}

func TestAmbientOcclusionDarkensCorners(t *testing.T) {
	w := mapWorld{}
	w.put(5, 5, 5, 1)
	w.put(6, 6, 5, 1) // above the +X edge
	m := newTestMesher(nil)
	origin := [3]int{}
	idx := (5*testN+5)*testN + 5
	frags := make(map[int]*Fragment)
	if err := m.Build(NewBorder(origin, testN, w), nil, []int{idx}, frags); err != nil {
		t.Fatal(err)
	}
	top := frags[idx][Solid].Colors[2*16 : 3*16] // third face is +Y
	// Top face corners: BL(-x,+z) BR(+x,+z) TL(-x,-z) TR(+x,-z).
	if !(top[4] < top[0] && top[12] < top[8]) {
		t.Fatalf("+x corners not darker: %v", top)
	}
}

func TestSkyLightOccluded(t *testing.T) {
	m := newTestMesher(nil)
	open := mapWorld{}
	open.put(0, 0, 0, 1)
	covered := mapWorld{}
	covered.put(0, 0, 0, 1)
	covered.put(0, 4, 0, 1)
	covered.put(1, 4, 0, 1)
	covered.put(0, 4, 1, 1)
	covered.put(1, 4, 1, 1)
	a, _ := buildAll(t, m, open)
	b, _ := buildAll(t, m, covered)
	if a.Colors[2*16] != 1 {
		t.Fatalf("unoccluded top colour = %v, want 1", a.Colors[2*16])
	}
	if b.Colors[2*16] >= a.Colors[2*16] {
		t.Fatalf("covered top colour %v not darker than %v", b.Colors[2*16], a.Colors[2*16])
	}
}

func TestLightAttachedPerVoxel(t *testing.T) {
	w := mapWorld{}
	w.put(2, 2, 2, 1)
	idx := (2*testN+2)*testN + 2
	frags := make(map[int]*Fragment)
	light := func(x, y, z int) uint8 { return uint8(x + y + z) }
	if err := newTestMesher(nil).Build(NewBorder([3]int{}, testN, w), light, []int{idx}, frags); err != nil {
		t.Fatal(err)
	}
	for _, l := range frags[idx][Solid].Lights {
		if l != 6 {
			t.Fatalf("light = %v, want 6", l)
		}
	}
}

// panicSource fails for lookups above the halo, which only the sky march
// performs.
type panicSource struct{ mapWorld }

func (p panicSource) Sample(x, y, z int) Cell {
	if y > testN {
		panic("corrupt chunk")
	}
	return p.mapWorld.Sample(x, y, z)
}

func TestBuildRecoversPanics(t *testing.T) {
	w := mapWorld{}
	w.put(0, 0, 0, 1)
	frags := make(map[int]*Fragment)
	err := newTestMesher(nil).Build(NewBorder([3]int{}, testN, panicSource{w}), nil, []int{0}, frags)
	if err == nil {
		t.Fatal("expected recovered panic")
	}
}

func TestBorderReachesBeyondHalo(t *testing.T) {
	w := mapWorld{}
	w.put(3, 20, 3, 2)
	b := NewBorder([3]int{}, testN, w)
	if got := b.At(3, 20, 3); got.Desc == nil || got.Desc.ID != 2 {
		t.Fatalf("At beyond halo = %+v", got)
	}
}
