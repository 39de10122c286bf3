package world

import (
	"errors"
	"slices"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"

	"voxelcore/internal/config"
	"voxelcore/internal/profiling"
	"voxelcore/internal/view"
)

// RemeshOptions describes one rebuild request. Requests for the same chunk
// merge: touched lists are unioned and flags OR-ed.
type RemeshOptions struct {
	// Touched lists local voxel indices to rebuild incrementally.
	Touched []int
	// Force requests a full rebuild even when the content is unchanged.
	Force bool
	// FirstPlacement marks the first voxel placed into an empty chunk.
	FirstPlacement bool
	// Boundary marks requests caused by an edit in a neighbouring chunk.
	Boundary bool
}

func (o RemeshOptions) merge(n RemeshOptions) RemeshOptions {
	out := RemeshOptions{
		Force:          o.Force || n.Force,
		FirstPlacement: o.FirstPlacement || n.FirstPlacement,
		Boundary:       o.Boundary || n.Boundary,
	}
	if len(o.Touched)+len(n.Touched) > 0 {
		out.Touched = append(slices.Clone(o.Touched), n.Touched...)
		slices.Sort(out.Touched)
		out.Touched = slices.Compact(out.Touched)
	}
	return out
}

const (
	classFirstPlacement = iota
	classPartial
	classFull
)

func (o RemeshOptions) class() int {
	switch {
	case o.FirstPlacement:
		return classFirstPlacement
	case len(o.Touched) > 0 && !o.Force:
		return classPartial
	default:
		return classFull
	}
}

type remeshEntry struct {
	origin Coord
	opts   RemeshOptions
}

// ScheduleRemesh enqueues a rebuild of the chunk at origin or merges into
// the pending request. Requests for unloaded chunks are dropped.
func (s *ChunkStore) ScheduleRemesh(origin Coord, opts RemeshOptions) {
	if !s.HasChunk(origin) {
		return
	}
	if e := s.pending[origin]; e != nil {
		e.opts = e.opts.merge(opts)
		if opts.Boundary {
			s.moveToFront(e)
		}
		return
	}
	if d, ok := s.deferred[origin]; ok {
		opts = d.merge(opts)
		delete(s.deferred, origin)
	}
	if s.bulkLoad && s.beyondPriority(origin) {
		s.deferred[origin] = opts
		return
	}
	s.enqueue(origin, opts)
}

func (s *ChunkStore) enqueue(origin Coord, opts RemeshOptions) {
	e := &remeshEntry{origin: origin, opts: opts}
	s.pending[origin] = e
	if opts.Boundary {
		s.queue = append([]*remeshEntry{e}, s.queue...)
		return
	}
	s.queue = append(s.queue, e)
}

func (s *ChunkStore) moveToFront(e *remeshEntry) {
	i := slices.Index(s.queue, e)
	if i <= 0 {
		return
	}
	copy(s.queue[1:i+1], s.queue[:i])
	s.queue[0] = e
}

func (s *ChunkStore) dropQueued(origin Coord) {
	e := s.pending[origin]
	if e == nil {
		return
	}
	delete(s.pending, origin)
	if i := slices.Index(s.queue, e); i >= 0 {
		s.queue = slices.Delete(s.queue, i, i+1)
	}
}

// Queued returns the pending request for origin.
func (s *ChunkStore) Queued(origin Coord) (RemeshOptions, bool) {
	if e := s.pending[origin]; e != nil {
		return e.opts, true
	}
	return RemeshOptions{}, false
}

// Deferred reports whether origin is parked by bulk-load mode.
func (s *ChunkStore) Deferred(origin Coord) bool {
	_, ok := s.deferred[origin]
	return ok
}

// ProcessQueue builds a bounded batch of queued chunks and returns how many
// were built. First placements go before partial updates, which go before
// full rebuilds. Within a class boundary requests go first, then nearer
// chunks when a viewpoint is set. Build errors are joined; the remaining
// entries are still processed.
func (s *ChunkStore) ProcessQueue(prioritizeNear bool) (int, error) {
	defer profiling.Track("world.ProcessQueue")()
	if !s.bulkLoad && len(s.deferred) > 0 {
		s.DrainDeferred(s.tuning.BulkLoad.DrainBatch)
	}
	if len(s.queue) == 0 {
		return 0, nil
	}

	limit := s.tuning.Queue.MaxPerCall
	if prioritizeNear {
		limit = s.tuning.Queue.MaxPerCallNear
	}
	limit = max(limit, 1)

	order := slices.Clone(s.queue)
	vp := s.viewpoint
	sort.SliceStable(order, func(i, j int) bool {
		ci, cj := order[i].opts.class(), order[j].opts.class()
		if ci != cj {
			return ci < cj
		}
		if bi, bj := order[i].opts.Boundary, order[j].opts.Boundary; bi != bj {
			return bi
		}
		if vp == nil {
			return false
		}
		return chunkDistSq(vp.Position(), order[i].origin) < chunkDistSq(vp.Position(), order[j].origin)
	})
	if len(order) > limit {
		order = order[:limit]
	}

	var errs []error
	for _, e := range order {
		s.dropQueued(e.origin)
		c := s.chunks[e.origin]
		if c == nil {
			continue
		}
		var err error
		if e.opts.class() == classPartial {
			err = c.BuildPartialMeshes(&s.env, e.opts.Touched)
		} else {
			err = c.BuildMeshes(&s.env, e.opts)
		}
		if err != nil {
			s.log.WithFields(logrus.Fields{"origin": e.origin, "queued": len(s.queue)}).WithError(err).Warn("chunk rebuild failed")
			errs = append(errs, err)
		}
		c.visible = s.visibleAt(e.origin)
	}
	return len(order), errors.Join(errs...)
}

// SetViewpoint sets the position used for ordering and visibility and
// re-derives the visibility of every loaded chunk. nil clears it.
func (s *ChunkStore) SetViewpoint(vp view.Viewpoint) {
	s.viewpoint = vp
	for o, c := range s.chunks {
		c.visible = s.visibleAt(o)
	}
}

func chunkCenter(origin Coord) mgl32.Vec3 {
	const h = ChunkSize / 2
	return mgl32.Vec3{float32(origin.X + h), float32(origin.Y + h), float32(origin.Z + h)}
}

func chunkDistSq(p mgl32.Vec3, origin Coord) float32 {
	d := chunkCenter(origin).Sub(p)
	return d.Dot(d)
}

// visibleAt is true within the view radius and, when the viewpoint has
// one, inside its frustum. Without a viewpoint every chunk is visible.
func (s *ChunkStore) visibleAt(origin Coord) bool {
	vp := s.viewpoint
	if vp == nil {
		return true
	}
	r := config.GetViewRadiusBlocks(ChunkSize)
	if chunkDistSq(vp.Position(), origin) > r*r {
		return false
	}
	if f := vp.Frustum(); f != nil {
		lo := mgl32.Vec3{float32(origin.X), float32(origin.Y), float32(origin.Z)}
		return f.IntersectsAABB(lo, lo.Add(mgl32.Vec3{ChunkSize, ChunkSize, ChunkSize}))
	}
	return true
}

func (s *ChunkStore) beyondPriority(origin Coord) bool {
	if s.viewpoint == nil {
		return false
	}
	r := float32(s.tuning.BulkLoad.PriorityRadius * ChunkSize)
	return chunkDistSq(s.viewpoint.Position(), origin) > r*r
}

// SetBulkLoad toggles bulk-load mode. While enabled, requests for chunks
// beyond the priority radius are deferred. After it is disabled each
// ProcessQueue call moves one batch of deferred chunks back to the queue.
func (s *ChunkStore) SetBulkLoad(enabled bool) {
	if s.bulkLoad == enabled {
		return
	}
	s.bulkLoad = enabled
	s.log.WithFields(logrus.Fields{"enabled": enabled, "deferred": len(s.deferred)}).Debug("bulk load")
}

func (s *ChunkStore) BulkLoad() bool { return s.bulkLoad }

// DrainDeferred moves up to n deferred chunks, nearest first, into the
// queue and returns how many moved.
func (s *ChunkStore) DrainDeferred(n int) int {
	if n <= 0 || len(s.deferred) == 0 {
		return 0
	}
	origins := make([]Coord, 0, len(s.deferred))
	for o := range s.deferred {
		origins = append(origins, o)
	}
	vp := s.viewpoint
	sort.Slice(origins, func(i, j int) bool {
		if vp != nil {
			di, dj := chunkDistSq(vp.Position(), origins[i]), chunkDistSq(vp.Position(), origins[j])
			if di != dj {
				return di < dj
			}
		}
		return origins[i].less(origins[j])
	})
	if len(origins) > n {
		origins = origins[:n]
	}
	for _, o := range origins {
		opts := s.deferred[o]
		delete(s.deferred, o)
		if e := s.pending[o]; e != nil {
			e.opts = e.opts.merge(opts)
			continue
		}
		s.enqueue(o, opts)
	}
	s.log.WithFields(logrus.Fields{"drained": len(origins), "deferred": len(s.deferred)}).Debug("drained deferred chunks")
	return len(origins)
}
