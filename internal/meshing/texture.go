package meshing

import (
	"strconv"

	"github.com/go-gl/mathgl/mgl32"

	"voxelcore/internal/registry"
)

// ErrorTexture is the reserved key used when no candidate resolves.
const ErrorTexture = "__error__"

type textureKey struct {
	id   uint16
	face Face
}

// textureMemo remembers the resolved key per (block, face) for one build
// so the fallback chain is walked once.
type textureMemo struct {
	atlas  Atlas
	keys   map[textureKey]string
	queued map[string]bool
}

func newTextureMemo(atlas Atlas) *textureMemo {
	return &textureMemo{atlas: atlas, keys: make(map[textureKey]string), queued: make(map[string]bool)}
}

// candidates lists texture keys for a face in lookup order: explicit face
// key, id keys, base-id keys, name keys, the direct URI.
func candidates(d *registry.Descriptor, f Face) []string {
	out := make([]string, 0, 9)
	if k := d.FaceTextures[f]; k != "" {
		out = append(out, k)
	}
	id := strconv.Itoa(int(d.ID))
	out = append(out, "block:"+id+":"+f.String(), "block:"+id)
	if d.BaseID != 0 {
		base := strconv.Itoa(int(d.BaseID))
		out = append(out, "block:"+base+":"+f.String(), "block:"+base)
	}
	if d.Name != "" {
		out = append(out, d.Name+"/"+f.String())
		if f != FaceUp && f != FaceDown {
			out = append(out, d.Name+"/sides")
		}
		out = append(out, d.Name)
	}
	if d.TextureURI != "" {
		out = append(out, d.TextureURI)
	}
	return out
}

// primaryKey is the key worth loading when nothing is resident.
func primaryKey(d *registry.Descriptor, f Face) string {
	switch {
	case d.FaceTextures[f] != "":
		return d.FaceTextures[f]
	case d.TextureURI != "":
		return d.TextureURI
	default:
		return d.Name
	}
}

// key resolves the texture key for a face, queueing the primary key for
// loading when the atlas does not have it.
func (m *textureMemo) key(d *registry.Descriptor, f Face) string {
	k := textureKey{d.ID, f}
	if key, ok := m.keys[k]; ok {
		return key
	}
	resolved := ErrorTexture
	if m.atlas != nil {
		for _, c := range candidates(d, f) {
			if _, ok := m.atlas.Resolve(c, f, mgl32.Vec2{}); ok {
				resolved = c
				break
			}
		}
		if primary := primaryKey(d, f); resolved != primary {
			m.queue(primary)
		}
	}
	m.keys[k] = resolved
	return resolved
}

func (m *textureMemo) queue(key string) {
	if key == "" || m.queued[key] {
		return
	}
	m.queued[key] = true
	m.atlas.QueueForLoad(key)
}

// uv maps a face-local uv through the atlas.
func (m *textureMemo) uv(key string, f Face, local mgl32.Vec2) mgl32.Vec2 {
	if m.atlas == nil {
		return local
	}
	if out, ok := m.atlas.Resolve(key, f, local); ok {
		return out
	}
	return local
}
