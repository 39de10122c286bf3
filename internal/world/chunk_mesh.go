package world

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"voxelcore/internal/meshing"
	"voxelcore/internal/profiling"
)

// BuildEnv is what a chunk needs from its owner to build geometry.
type BuildEnv struct {
	Blocks meshing.Blocks
	Mesher *meshing.Mesher
	Pool   *meshing.Pool
	// Sampler answers lookups outside the chunk.
	Sampler meshing.Source
	// PartialThreshold is the largest touched set rebuilt incrementally.
	PartialThreshold int
	Log              logrus.FieldLogger
}

// chunkSource reads the chunk itself directly and defers everything else to
// the environment.
type chunkSource struct {
	c   *Chunk
	env *BuildEnv
}

func (s chunkSource) Sample(x, y, z int) meshing.Cell {
	lx, ly, lz := x-s.c.origin.X, y-s.c.origin.Y, z-s.c.origin.Z
	if inChunk(lx, ly, lz) {
		return s.c.cell(Index(lx, ly, lz), s.env.Blocks)
	}
	if s.env.Sampler == nil {
		return meshing.Cell{}
	}
	return s.env.Sampler.Sample(x, y, z)
}

func (c *Chunk) border(env *BuildEnv) *meshing.Border {
	return meshing.NewBorder([3]int{c.origin.X, c.origin.Y, c.origin.Z}, ChunkSize, chunkSource{c, env})
}

// mesh samples the bordered neighbourhood and runs the mesher. Panics while
// sampling are reported like mesher failures.
func (c *Chunk) mesh(env *BuildEnv, voxels []int, out map[int]*meshing.Fragment) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sampling chunk %v: %v", c.origin, r)
		}
	}()
	return env.Mesher.Build(c.border(env), c.lightFunc(), voxels, out)
}

func (c *Chunk) lightFunc() meshing.LightFunc {
	if c.light == nil || !c.light.Lit() {
		return nil
	}
	return c.light.Get
}

// Fingerprint hashes the voxel content: (index, id) pairs in index order,
// then rotation and shape entries sorted by index.
func (c *Chunk) Fingerprint() uint64 {
	const (
		offset = 14695981039346656037
		prime  = 1099511628211
	)
	h := uint64(offset)
	mix := func(v uint64) {
		h ^= v
		h *= prime
	}
	for i := 0; i < ChunkVolume; i++ {
		if id := c.id(i); id != 0 {
			mix(uint64(i))
			mix(uint64(id))
		}
	}
	for _, i := range sortedKeys(c.rotations) {
		mix(uint64(i) | 1<<32)
		mix(uint64(c.rotations[i]))
	}
	for _, i := range sortedKeys(c.shapes) {
		mix(uint64(i) | 2<<32)
		for _, b := range []byte(c.shapes[i]) {
			mix(uint64(b))
		}
	}
	return h
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// BuildMeshes rebuilds all geometry. It does nothing when the content is
// unchanged since the last build and neither Touched nor Force is set.
func (c *Chunk) BuildMeshes(env *BuildEnv, opts RemeshOptions) error {
	fp := c.Fingerprint()
	if c.built && fp == c.fingerprint && len(opts.Touched) == 0 && !opts.Force {
		profiling.Count("world.rebuild.skipped", 1)
		return nil
	}
	defer profiling.Track("world.BuildMeshes")()

	if c.nonEmpty == 0 {
		c.releaseMeshes(env.Pool)
		c.fragments = nil
		c.fingerprint, c.built = fp, true
		return nil
	}

	voxels := c.nonEmptyIndices()
	frags := make(map[int]*meshing.Fragment, len(voxels))
	if err := c.mesh(env, voxels, frags); err != nil {
		return &MeshBuildError{Origin: c.origin, Err: err}
	}
	keys := sortedKeys(frags)
	c.install(meshing.Solid, meshing.Assemble(meshing.Solid, keys, frags), env.Pool)
	c.install(meshing.Translucent, meshing.Assemble(meshing.Translucent, keys, frags), env.Pool)
	c.fragments = frags
	c.fingerprint, c.built = fp, true
	profiling.Count("world.rebuild.full", 1)
	return nil
}

// BuildPartialMeshes regenerates geometry around the touched voxels only.
// It falls back to BuildMeshes when there is no baseline, the touched set
// is too large, or the incremental build fails.
func (c *Chunk) BuildPartialMeshes(env *BuildEnv, touched []int) error {
	if !c.built || c.fragments == nil || len(touched) > env.PartialThreshold {
		return c.BuildMeshes(env, RemeshOptions{Force: true})
	}
	if err := c.buildPartial(env, touched); err != nil {
		if env.Log != nil {
			env.Log.WithFields(logrus.Fields{"origin": c.origin, "partial": true}).WithError(err).Warn("partial rebuild failed, rebuilding chunk")
		}
		return c.BuildMeshes(env, RemeshOptions{Force: true})
	}
	return nil
}

func (c *Chunk) buildPartial(env *BuildEnv, touched []int) error {
	defer profiling.Track("world.BuildPartialMeshes")()
	voxels := expandTouched(touched)

	work := make(map[int]*meshing.Fragment, len(c.fragments)+len(voxels))
	for k, v := range c.fragments {
		work[k] = v
	}
	var changed [2]bool
	mark := func() {
		for _, i := range voxels {
			if f := work[i]; f != nil {
				changed[meshing.Solid] = changed[meshing.Solid] || !f[meshing.Solid].Empty()
				changed[meshing.Translucent] = changed[meshing.Translucent] || !f[meshing.Translucent].Empty()
			}
		}
	}
	mark()
	if err := c.mesh(env, voxels, work); err != nil {
		return &MeshBuildError{Origin: c.origin, Partial: true, Err: err}
	}
	mark()

	keys := sortedKeys(work)
	for _, kind := range []meshing.Kind{meshing.Solid, meshing.Translucent} {
		if changed[kind] {
			c.install(kind, meshing.Assemble(kind, keys, work), env.Pool)
		}
	}
	c.fragments = work
	c.fingerprint, c.built = c.Fingerprint(), true
	profiling.Count("world.rebuild.partial", 1)
	return nil
}

// expandTouched adds the 26-neighbourhood of every touched voxel, clipped
// to the chunk, and returns the indices in ascending order.
func expandTouched(touched []int) []int {
	set := make(map[int]struct{}, len(touched)*27)
	for _, i := range touched {
		if i < 0 || i >= ChunkVolume {
			continue
		}
		x, y, z := Unindex(i)
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				for dx := -1; dx <= 1; dx++ {
					if inChunk(x+dx, y+dy, z+dz) {
						set[Index(x+dx, y+dy, z+dz)] = struct{}{}
					}
				}
			}
		}
	}
	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func (c *Chunk) install(kind meshing.Kind, b meshing.Buffers, pool *meshing.Pool) {
	slot := &c.solid
	if kind == meshing.Translucent {
		slot = &c.translucent
	}
	if b.Empty() {
		pool.Release(*slot)
		*slot = nil
		return
	}
	if *slot == nil {
		*slot = pool.Acquire(kind)
	}
	(*slot).Set(&b)
}

func (c *Chunk) releaseMeshes(pool *meshing.Pool) {
	pool.Release(c.solid)
	pool.Release(c.translucent)
	c.solid, c.translucent = nil, nil
}
