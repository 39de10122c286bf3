package lighting

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Source is an emissive voxel: its world-space centre and level.
type Source struct {
	Pos   mgl32.Vec3
	Level uint8
}

// Emitters enumerates the emissive voxels of one chunk in world coordinates.
type Emitters interface {
	EachEmitter(fn func(x, y, z int, level uint8))
}

// NeighborLookup returns the emitters of the chunk at origin, or nil when
// that chunk is not loaded.
type NeighborLookup func(origin [3]int) Emitters

// Propagator recomputes a chunk's light field with straight-line falloff.
type Propagator struct {
	sources []Source
}

// ChunkRadius is how many chunks away a source of MaxLevel can still reach.
func ChunkRadius(size int) int {
	return (MaxLevel + size - 1) / size
}

// Recompute overwrites vol from the sources of own and of every chunk within
// ChunkRadius. A voxel gets round(max(level - distance)) clamped to [0,15].
func (p *Propagator) Recompute(vol *Volume, own Emitters, neighbors NeighborLookup) {
	p.sources = p.sources[:0]
	collect := func(x, y, z int, level uint8) {
		if level == 0 {
			return
		}
		p.sources = append(p.sources, Source{
			Pos:   mgl32.Vec3{float32(x) + 0.5, float32(y) + 0.5, float32(z) + 0.5},
			Level: min(level, MaxLevel),
		})
	}
	if own != nil {
		own.EachEmitter(collect)
	}
	o, n := vol.origin, vol.size
	if neighbors != nil {
		r := ChunkRadius(n)
		for dx := -r; dx <= r; dx++ {
			for dy := -r; dy <= r; dy++ {
				for dz := -r; dz <= r; dz++ {
					if dx == 0 && dy == 0 && dz == 0 {
						continue
					}
					if e := neighbors([3]int{o[0] + dx*n, o[1] + dy*n, o[2] + dz*n}); e != nil {
						e.EachEmitter(collect)
					}
				}
			}
		}
	}

	vol.Clear()
	if len(p.sources) == 0 {
		return
	}
	for y := 0; y < n; y++ {
		for z := 0; z < n; z++ {
			for x := 0; x < n; x++ {
				c := mgl32.Vec3{float32(o[0]+x) + 0.5, float32(o[1]+y) + 0.5, float32(o[2]+z) + 0.5}
				if level := p.levelAt(c); level > 0 {
					_ = vol.Set(x, y, z, level)
				}
			}
		}
	}
}

// Sources returns the sources gathered by the last Recompute.
func (p *Propagator) Sources() []Source { return p.sources }

func (p *Propagator) levelAt(c mgl32.Vec3) uint8 {
	best := float32(0)
	for _, s := range p.sources {
		reach := float32(s.Level)
		if reach <= best {
			continue
		}
		d := c.Sub(s.Pos)
		if abs32(d[0]) >= reach || abs32(d[1]) >= reach || abs32(d[2]) >= reach {
			continue
		}
		if v := reach - d.Len(); v > best {
			best = v
		}
	}
	level := math.Round(float64(best))
	return uint8(max(0, min(level, MaxLevel)))
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
