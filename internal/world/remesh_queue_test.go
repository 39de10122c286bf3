package world

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/go-cmp/cmp"

	"voxelcore/internal/config"
	"voxelcore/internal/view"
)

func queueOrder(s *ChunkStore) []Coord {
	out := make([]Coord, len(s.queue))
	for i, e := range s.queue {
		out[i] = e.origin
	}
	return out
}

// loadBuilt upserts a single stone voxel into each chunk and drains the queue.
func loadBuilt(t *testing.T, s *ChunkStore, origins ...Coord) {
	t.Helper()
	for _, o := range origins {
		blocks := empty()
		blocks[Index(8, 8, 8)] = 1
		if err := s.Upsert(o, blocks); err != nil {
			t.Fatal(err)
		}
	}
	drain(t, s)
}

func TestScheduleRemeshMergesPending(t *testing.T) {
	s := newTestStore(t, nil)
	o := Coord{}
	loadBuilt(t, s, o)

	s.ScheduleRemesh(o, RemeshOptions{Touched: []int{1, 2}})
	s.ScheduleRemesh(o, RemeshOptions{Touched: []int{2, 3}, Force: true})
	if n := s.Stats().Queued; n != 1 {
		t.Fatalf("queued %d entries, want 1", n)
	}
	got, _ := s.Queued(o)
	if diff := cmp.Diff(RemeshOptions{Touched: []int{1, 2, 3}, Force: true}, got); diff != "" {
		t.Fatalf("merged options (-want +got):\n%s", diff)
	}
}

func TestScheduleRemeshIgnoresUnloaded(t *testing.T) {
	s := newTestStore(t, nil)
	s.ScheduleRemesh(Coord{64, 0, 0}, RemeshOptions{Force: true})
	if n := s.Stats().Queued; n != 0 {
		t.Fatalf("queued %d entries for an unloaded chunk", n)
	}
}

func TestBoundaryRequestsMoveToFront(t *testing.T) {
	s := newTestStore(t, nil)
	a, b, c := Coord{}, Coord{64, 0, 0}, Coord{128, 0, 0}
	loadBuilt(t, s, a, b, c)

	s.ScheduleRemesh(a, RemeshOptions{Force: true})
	s.ScheduleRemesh(b, RemeshOptions{Force: true})
	s.ScheduleRemesh(c, RemeshOptions{Force: true})
	s.ScheduleRemesh(c, RemeshOptions{Boundary: true})
	if diff := cmp.Diff([]Coord{c, a, b}, queueOrder(s)); diff != "" {
		t.Fatalf("queue order (-want +got):\n%s", diff)
	}

	d := Coord{192, 0, 0}
	loadBuilt(t, s, d)
	s.ScheduleRemesh(a, RemeshOptions{Force: true})
	s.ScheduleRemesh(d, RemeshOptions{Force: true, Boundary: true})
	if got := queueOrder(s); got[0] != d {
		t.Fatalf("new boundary request not at the front: %v", got)
	}
}

func TestProcessQueueClassOrder(t *testing.T) {
	s := newTestStore(t, func(tun *config.Tuning) { tun.Queue.MaxPerCall = 1 })
	full, partial, first := Coord{}, Coord{64, 0, 0}, Coord{128, 0, 0}
	loadBuilt(t, s, full, partial)
	if err := s.Upsert(first, empty()); err != nil {
		t.Fatal(err)
	}
	drain(t, s)

	s.ScheduleRemesh(full, RemeshOptions{Force: true})
	if err := s.SetVoxel(Coord{72, 8, 9}, 1); err != nil {
		t.Fatal(err)
	}
	s.dropQueued(partial)
	s.ScheduleRemesh(partial, RemeshOptions{Touched: []int{Index(8, 8, 9)}})
	if err := s.SetVoxel(Coord{130, 2, 2}, 1); err != nil {
		t.Fatal(err)
	}

	for _, want := range []Coord{first, partial, full} {
		if n, err := s.ProcessQueue(false); n != 1 || err != nil {
			t.Fatalf("ProcessQueue = %d, %v", n, err)
		}
		if _, ok := s.Queued(want); ok {
			t.Fatalf("%v still queued; classes processed out of order", want)
		}
	}
}

func TestProcessQueueNearestFirst(t *testing.T) {
	s := newTestStore(t, func(tun *config.Tuning) { tun.Queue.MaxPerCall = 1 })
	near, far := Coord{96, 0, 0}, Coord{}
	loadBuilt(t, s, far, near)
	s.SetViewpoint(view.Point{104, 8, 8})

	s.ScheduleRemesh(far, RemeshOptions{Force: true})
	s.ScheduleRemesh(near, RemeshOptions{Force: true})
	if _, err := s.ProcessQueue(false); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Queued(near); ok {
		t.Fatal("farther chunk built before the nearer one")
	}
	if _, ok := s.Queued(far); !ok {
		t.Fatal("far chunk processed early")
	}
}

func TestProcessQueueBoundaryBeforeNearer(t *testing.T) {
	s := newTestStore(t, func(tun *config.Tuning) { tun.Queue.MaxPerCall = 1 })
	near, far := Coord{96, 0, 0}, Coord{}
	loadBuilt(t, s, far, near)
	s.SetViewpoint(view.Point{104, 8, 8})

	s.ScheduleRemesh(near, RemeshOptions{Force: true})
	s.ScheduleRemesh(far, RemeshOptions{Force: true, Boundary: true})
	if _, err := s.ProcessQueue(false); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Queued(far); ok {
		t.Fatal("boundary rebuild waited behind a nearer full rebuild")
	}
	if _, ok := s.Queued(near); !ok {
		t.Fatal("nearer chunk built before the boundary request")
	}
}

func TestProcessQueueLimits(t *testing.T) {
	s := newTestStore(t, nil)
	var origins []Coord
	for i := 0; i < 20; i++ {
		origins = append(origins, Coord{i * 32, 0, 0})
	}
	loadBuilt(t, s, origins...)
	for _, o := range origins {
		s.ScheduleRemesh(o, RemeshOptions{Force: true})
	}
	tun := config.Default()
	if n, _ := s.ProcessQueue(true); n != tun.Queue.MaxPerCallNear {
		t.Fatalf("near batch = %d, want %d", n, tun.Queue.MaxPerCallNear)
	}
	if n, _ := s.ProcessQueue(false); n != tun.Queue.MaxPerCall {
		t.Fatalf("batch = %d, want %d", n, tun.Queue.MaxPerCall)
	}
	want := 20 - tun.Queue.MaxPerCallNear - tun.Queue.MaxPerCall
	if n, _ := s.ProcessQueue(false); n != want {
		t.Fatalf("last batch = %d, want %d", n, want)
	}
}

func TestVisibilityFollowsViewpoint(t *testing.T) {
	s := newTestStore(t, nil)
	near, far := Coord{}, Coord{400, 0, 0}
	loadBuilt(t, s, near, far)

	s.SetViewpoint(view.Point{8, 8, 8})
	if !s.Chunk(near).Visible() || s.Chunk(far).Visible() {
		t.Fatal("visibility ignores view distance")
	}

	cam := view.NewCamera(mgl32.Vec3{8, 8, 40}, 16, 9)
	s.SetViewpoint(cam)
	if !s.Chunk(near).Visible() {
		t.Fatal("chunk ahead of the camera hidden")
	}
	cam.Yaw = 180
	s.ScheduleRemesh(near, RemeshOptions{Force: true})
	drain(t, s)
	if s.Chunk(near).Visible() {
		t.Fatal("chunk behind the camera visible after rebuild")
	}

	s.SetViewpoint(nil)
	if !s.Chunk(far).Visible() {
		t.Fatal("chunks hidden without a viewpoint")
	}
}

func TestBulkLoadDefersFarChunks(t *testing.T) {
	s := newTestStore(t, nil)
	s.SetViewpoint(view.Point{8, 8, 8})
	s.SetBulkLoad(true)

	near, far := Coord{16, 0, 0}, Coord{160, 0, 0}
	for _, o := range []Coord{near, far} {
		if err := s.Upsert(o, empty()); err != nil {
			t.Fatal(err)
		}
	}
	if _, ok := s.Queued(near); !ok {
		t.Fatal("chunk inside the priority radius not queued")
	}
	if !s.Deferred(far) {
		t.Fatal("chunk beyond the priority radius not deferred")
	}
	for i := 0; i < 3; i++ {
		if _, err := s.ProcessQueue(false); err != nil {
			t.Fatal(err)
		}
	}
	if !s.Deferred(far) {
		t.Fatal("deferred chunk drained while bulk load is on")
	}

	s.SetBulkLoad(false)
	if _, err := s.ProcessQueue(false); err != nil {
		t.Fatal(err)
	}
	if s.Deferred(far) {
		t.Fatal("deferred chunk not drained after bulk load ended")
	}
	if st := s.Stats(); st.Deferred != 0 || st.Queued != 0 {
		t.Fatalf("stats after drain = %+v", st)
	}
}

func TestBulkLoadWithoutViewpointDefersNothing(t *testing.T) {
	s := newTestStore(t, nil)
	s.SetBulkLoad(true)
	if err := s.Upsert(Coord{1600, 0, 0}, empty()); err != nil {
		t.Fatal(err)
	}
	if s.Stats().Deferred != 0 {
		t.Fatal("request deferred without a viewpoint")
	}
}

func TestDrainDeferredNearestFirst(t *testing.T) {
	s := newTestStore(t, nil)
	s.SetViewpoint(view.Point{0, 0, 0})
	s.SetBulkLoad(true)
	origins := []Coord{{320, 0, 0}, {160, 0, 0}, {-240, 0, 0}}
	for _, o := range origins {
		if err := s.Upsert(o, empty()); err != nil {
			t.Fatal(err)
		}
	}
	if n := s.DrainDeferred(2); n != 2 {
		t.Fatalf("DrainDeferred = %d, want 2", n)
	}
	if diff := cmp.Diff([]Coord{{160, 0, 0}, {-240, 0, 0}}, queueOrder(s)); diff != "" {
		t.Fatalf("drained order (-want +got):\n%s", diff)
	}
	if !s.Deferred(Coord{320, 0, 0}) {
		t.Fatal("farthest chunk drained early")
	}
}

func TestRemoveDropsQueuedWork(t *testing.T) {
	s := newTestStore(t, nil)
	s.SetViewpoint(view.Point{0, 0, 0})
	s.SetBulkLoad(true)
	if err := s.Upsert(Coord{}, empty()); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(Coord{320, 0, 0}, empty()); err != nil {
		t.Fatal(err)
	}
	s.Remove(Coord{})
	s.Remove(Coord{320, 0, 0})
	if st := s.Stats(); st.Queued != 0 || st.Deferred != 0 {
		t.Fatalf("removed chunks left work behind: %+v", st)
	}
}
