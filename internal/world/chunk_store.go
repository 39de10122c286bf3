package world

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"voxelcore/internal/config"
	"voxelcore/internal/lighting"
	"voxelcore/internal/meshing"
	"voxelcore/internal/profiling"
	"voxelcore/internal/registry"
	"voxelcore/internal/view"
)

// Options configures a ChunkStore.
type Options struct {
	Blocks meshing.Blocks
	// Atlas may be nil; faces then carry the error texture key.
	Atlas  meshing.Atlas
	Tuning config.Tuning
	Logger logrus.FieldLogger
	// OnDispose is called for meshes dropped by the pool on overflow.
	OnDispose func(*meshing.Mesh)
}

// ChunkStore owns every loaded chunk together with the remesh queue, the
// descriptor cache and the bulk-load policy. It is not safe for concurrent
// use; all calls are expected from one scheduling goroutine.
type ChunkStore struct {
	chunks map[Coord]*Chunk

	blocks meshing.Blocks
	tuning config.Tuning
	log    logrus.FieldLogger
	env    BuildEnv
	pool   *meshing.Pool

	queue    []*remeshEntry
	pending  map[Coord]*remeshEntry
	deferred map[Coord]RemeshOptions
	bulkLoad bool

	cache map[Coord]meshing.Cell

	viewpoint  view.Viewpoint
	propagator lighting.Propagator
}

// NewChunkStore returns an empty store.
func NewChunkStore(opts Options) *ChunkStore {
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}
	s := &ChunkStore{
		chunks:   make(map[Coord]*Chunk),
		blocks:   opts.Blocks,
		tuning:   opts.Tuning,
		log:      log,
		pool:     meshing.NewPool(opts.Tuning.Pool.Capacity, opts.OnDispose),
		pending:  make(map[Coord]*remeshEntry),
		deferred: make(map[Coord]RemeshOptions),
		cache:    make(map[Coord]meshing.Cell),
	}
	s.env = BuildEnv{
		Blocks:           opts.Blocks,
		Mesher:           meshing.NewMesher(opts.Blocks, opts.Atlas, opts.Tuning.Shading, log),
		Pool:             s.pool,
		Sampler:          s,
		PartialThreshold: opts.Tuning.Queue.PartialThreshold,
		Log:              log,
	}
	return s
}

// Chunk returns the chunk at origin, or nil.
func (s *ChunkStore) Chunk(origin Coord) *Chunk { return s.chunks[origin] }

func (s *ChunkStore) HasChunk(origin Coord) bool {
	_, ok := s.chunks[origin]
	return ok
}

// Len returns the number of loaded chunks.
func (s *ChunkStore) Len() int { return len(s.chunks) }

// Each calls fn for every loaded chunk in unspecified order.
func (s *ChunkStore) Each(fn func(*Chunk)) {
	for _, c := range s.chunks {
		fn(c)
	}
}

func (s *ChunkStore) emission(id uint16) uint8 {
	if d := s.blocks.Descriptor(id); d != nil {
		return d.Emission
	}
	return 0
}

func (s *ChunkStore) newChunk(origin Coord) (*Chunk, error) {
	c, err := NewChunk(origin)
	if err != nil {
		return nil, err
	}
	s.chunks[origin] = c
	return c, nil
}

// Upsert creates or replaces the chunk at origin with a dense id array in
// linear index order.
func (s *ChunkStore) Upsert(origin Coord, blocks []uint16) error {
	if !origin.Aligned() {
		return fmt.Errorf("%w: %v", ErrInvalidOrigin, origin)
	}
	if len(blocks) != ChunkVolume {
		return fmt.Errorf("%w: %d ids for chunk %v, want %d", ErrBadChunkData, len(blocks), origin, ChunkVolume)
	}
	c := s.chunks[origin]
	if c == nil {
		var err error
		if c, err = s.newChunk(origin); err != nil {
			return err
		}
	}
	hadEmitters := c.hasEmitters()
	c.load(blocks)
	for i, id := range blocks {
		if id != 0 {
			c.setEmission(i, s.emission(id))
		}
	}
	s.invalidateChunk(origin)

	if hadEmitters || c.hasEmitters() {
		s.relight(origin)
	} else {
		s.lightFromNeighbors(c)
	}
	s.ScheduleRemesh(origin, RemeshOptions{Force: true})
	s.scheduleNeighbors(origin)
	return nil
}

// Remove evicts a chunk and returns its geometry to the pool.
func (s *ChunkStore) Remove(origin Coord) bool {
	c := s.chunks[origin]
	if c == nil {
		return false
	}
	c.releaseMeshes(s.pool)
	c.fragments = nil
	delete(s.chunks, origin)
	s.dropQueued(origin)
	delete(s.deferred, origin)
	s.invalidateChunk(origin)

	if c.hasEmitters() {
		s.relight(origin)
	}
	s.scheduleNeighbors(origin)
	return true
}

func (s *ChunkStore) scheduleNeighbors(origin Coord) {
	for _, off := range faceNeighbors {
		if o := origin.Add(off); s.HasChunk(o) {
			s.ScheduleRemesh(o, RemeshOptions{Force: true, Boundary: true})
		}
	}
}

// Voxel returns the id at a global coordinate; 0 when empty or unloaded.
func (s *ChunkStore) Voxel(g Coord) uint16 {
	c := s.chunks[OriginOf(g)]
	if c == nil {
		return 0
	}
	x, y, z := Local(g)
	return c.id(Index(x, y, z))
}

// SetVoxel edits one voxel, creating its chunk on the first non-empty
// write.
func (s *ChunkStore) SetVoxel(g Coord, id uint16) error {
	origin := OriginOf(g)
	c := s.chunks[origin]
	if c == nil {
		if id == 0 {
			return nil
		}
		var err error
		if c, err = s.newChunk(origin); err != nil {
			return err
		}
		s.lightFromNeighbors(c)
	}
	x, y, z := Local(g)
	i := Index(x, y, z)
	old := c.id(i)
	if old == id {
		return nil
	}

	radius := s.tuning.Cache.InvalidateRadiusPlace
	if id == 0 {
		radius = s.tuning.Cache.InvalidateRadiusRemove
	}
	s.invalidateAround(g, radius)

	if err := c.SetBlock(x, y, z, id, s); err != nil {
		return err
	}
	oldEmit, newEmit := s.emission(old), s.emission(id)
	if id != 0 {
		c.setEmission(i, newEmit)
	}
	if oldEmit > 0 || newEmit > 0 {
		s.relight(origin)
	}
	return nil
}

// SetVoxelRotation sets the rotation of a non-empty voxel.
func (s *ChunkStore) SetVoxelRotation(g Coord, r uint8) error {
	c := s.chunks[OriginOf(g)]
	if c == nil {
		return fmt.Errorf("%w: %v not loaded", ErrEmptyVoxel, g)
	}
	x, y, z := Local(g)
	if err := c.SetRotation(x, y, z, r); err != nil {
		return err
	}
	s.invalidateAround(g, 0)
	s.ScheduleRemesh(c.origin, RemeshOptions{Force: true})
	return nil
}

// SetVoxelShape sets the shape override of a non-empty voxel. Unknown tags
// are rejected with meshing.ErrUnknownShape.
func (s *ChunkStore) SetVoxelShape(g Coord, tag string) error {
	c := s.chunks[OriginOf(g)]
	if c == nil {
		return fmt.Errorf("%w: %v not loaded", ErrEmptyVoxel, g)
	}
	if tag != "" && tag != "cube" {
		if _, err := meshing.LookupShape(tag, s.blocks); err != nil {
			return err
		}
	}
	x, y, z := Local(g)
	if err := c.SetShape(x, y, z, tag); err != nil {
		return err
	}
	s.invalidateAround(g, s.tuning.Cache.InvalidateRadiusPlace)
	s.ScheduleRemesh(c.origin, RemeshOptions{Force: true})
	c.scheduleBorderNeighbors(x, y, z, s)
	return nil
}

// Resolve returns the descriptor at a global coordinate, nil when empty.
func (s *ChunkStore) Resolve(g Coord) *registry.Descriptor {
	return s.Sample(g.X, g.Y, g.Z).Desc
}

// Sample is the cached cross-chunk voxel lookup used by meshing. Empty
// results are never cached.
func (s *ChunkStore) Sample(x, y, z int) meshing.Cell {
	g := Coord{x, y, z}
	if cell, ok := s.cache[g]; ok {
		profiling.Count("world.cache.hit", 1)
		return cell
	}
	c := s.chunks[OriginOf(g)]
	if c == nil {
		return meshing.Cell{}
	}
	lx, ly, lz := Local(g)
	cell := c.cell(Index(lx, ly, lz), s.blocks)
	if cell.Empty() || s.tuning.Cache.MaxEntries <= 0 {
		return cell
	}
	if len(s.cache) >= s.tuning.Cache.MaxEntries {
		clear(s.cache)
		profiling.Count("world.cache.cleared", 1)
	}
	s.cache[g] = cell
	return cell
}

func (s *ChunkStore) invalidateAround(g Coord, r int) {
	for dy := -r; dy <= r; dy++ {
		for dz := -r; dz <= r; dz++ {
			for dx := -r; dx <= r; dx++ {
				delete(s.cache, Coord{g.X + dx, g.Y + dy, g.Z + dz})
			}
		}
	}
}

func (s *ChunkStore) invalidateChunk(origin Coord) {
	if len(s.cache) < ChunkVolume {
		for g := range s.cache {
			if OriginOf(g) == origin {
				delete(s.cache, g)
			}
		}
		return
	}
	for i := 0; i < ChunkVolume; i++ {
		x, y, z := Unindex(i)
		delete(s.cache, Coord{origin.X + x, origin.Y + y, origin.Z + z})
	}
}

func (s *ChunkStore) emitterLookup(o [3]int) lighting.Emitters {
	if c := s.chunks[Coord{o[0], o[1], o[2]}]; c != nil && c.hasEmitters() {
		return c
	}
	return nil
}

// relight recomputes the light of every loaded chunk within reach of a
// source in the chunk at origin and schedules their rebuild.
func (s *ChunkStore) relight(origin Coord) {
	defer profiling.Track("world.relight")()
	r := lighting.ChunkRadius(ChunkSize)
	for dy := -r; dy <= r; dy++ {
		for dz := -r; dz <= r; dz++ {
			for dx := -r; dx <= r; dx++ {
				o := Coord{origin.X + dx*ChunkSize, origin.Y + dy*ChunkSize, origin.Z + dz*ChunkSize}
				c := s.chunks[o]
				if c == nil {
					continue
				}
				wasLit := c.light.Lit()
				s.propagator.Recompute(c.light, c, s.emitterLookup)
				if wasLit || c.light.Lit() {
					s.ScheduleRemesh(o, RemeshOptions{Force: true})
				}
			}
		}
	}
}

// lightFromNeighbors recomputes the light of a chunk without sources of its
// own when a loaded chunk in reach has some.
func (s *ChunkStore) lightFromNeighbors(c *Chunk) {
	r := lighting.ChunkRadius(ChunkSize)
	for dy := -r; dy <= r; dy++ {
		for dz := -r; dz <= r; dz++ {
			for dx := -r; dx <= r; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				o := c.origin
				if s.emitterLookup([3]int{o.X + dx*ChunkSize, o.Y + dy*ChunkSize, o.Z + dz*ChunkSize}) != nil {
					defer profiling.Track("world.relight")()
					s.propagator.Recompute(c.light, c, s.emitterLookup)
					return
				}
			}
		}
	}
	c.light.Clear()
}

// Stats summarises store state.
type Stats struct {
	Chunks       int
	Visible      int
	Queued       int
	Deferred     int
	CacheEntries int
	BulkLoad     bool
	Pool         meshing.PoolStats
}

func (s *ChunkStore) Stats() Stats {
	st := Stats{
		Chunks:       len(s.chunks),
		Queued:       len(s.queue),
		Deferred:     len(s.deferred),
		CacheEntries: len(s.cache),
		BulkLoad:     s.bulkLoad,
		Pool:         s.pool.Stats(),
	}
	for _, c := range s.chunks {
		if c.visible {
			st.Visible++
		}
	}
	return st
}
