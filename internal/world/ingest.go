package world

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// TerrainChunk is one chunk worth of ingested terrain.
type TerrainChunk struct {
	Origin Coord
	Blocks []uint16
}

// ParseTerrain converts a {"x,y,z": id} terrain map into dense per-chunk
// arrays, sorted by origin. Zero ids are skipped. Coordinates must fit in
// int32.
func ParseTerrain(terrain map[string]uint16) ([]TerrainChunk, error) {
	voxels := make(map[Coord]uint16, len(terrain))
	for key, id := range terrain {
		g, err := parseTerrainKey(key)
		if err != nil {
			return nil, err
		}
		voxels[g] = id
	}
	return GroupVoxels(voxels), nil
}

// GroupVoxels buckets global voxels into dense per-chunk arrays, sorted by
// origin. Zero ids are skipped.
func GroupVoxels(voxels map[Coord]uint16) []TerrainChunk {
	chunks := make(map[Coord][]uint16)
	for g, id := range voxels {
		if id == 0 {
			continue
		}
		o := OriginOf(g)
		blocks := chunks[o]
		if blocks == nil {
			blocks = make([]uint16, ChunkVolume)
			chunks[o] = blocks
		}
		x, y, z := Local(g)
		blocks[Index(x, y, z)] = id
	}

	out := make([]TerrainChunk, 0, len(chunks))
	for o, blocks := range chunks {
		out = append(out, TerrainChunk{Origin: o, Blocks: blocks})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Origin.less(out[j].Origin) })
	return out
}

// Each calls fn for every non-empty voxel of the chunk in global coordinates.
func (t TerrainChunk) Each(fn func(g Coord, id uint16)) {
	for i, id := range t.Blocks {
		if id == 0 {
			continue
		}
		x, y, z := Unindex(i)
		fn(Coord{t.Origin.X + x, t.Origin.Y + y, t.Origin.Z + z}, id)
	}
}

func parseTerrainKey(key string) (Coord, error) {
	parts := strings.Split(key, ",")
	if len(parts) != 3 {
		return Coord{}, fmt.Errorf("%w: terrain key %q", ErrBadChunkData, key)
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return Coord{}, fmt.Errorf("%w: terrain key %q: %v", ErrBadChunkData, key, err)
		}
		v[i] = int(n)
	}
	return Coord{v[0], v[1], v[2]}, nil
}

// ReadTerrain loads a JSON terrain map from path.
func ReadTerrain(path string) ([]TerrainChunk, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var terrain map[string]uint16
	if err := json.Unmarshal(raw, &terrain); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadChunkData, path, err)
	}
	return ParseTerrain(terrain)
}
