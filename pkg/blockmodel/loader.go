package blockmodel

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
)

// maxParentDepth bounds parent chains so cyclic documents fail instead of
// recursing forever.
const maxParentDepth = 16

// Loader reads models from a file system rooted at an assets directory
// ("models/<name>.json"). Loaded models are cached by name and never mutated
// after they are returned.
type Loader struct {
	fsys fs.FS

	mu    sync.Mutex
	cache map[string]*Model
}

func NewLoader(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys, cache: make(map[string]*Model)}
}

func normalizeName(name string) string {
	name = strings.TrimPrefix(name, "minecraft:")
	if !strings.Contains(name, "/") {
		name = "block/" + name
	}
	return name
}

// LoadModel returns the named model with parent data merged in and "#key"
// texture references resolved.
func (l *Loader) LoadModel(name string) (*Model, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(normalizeName(name), 0)
}

func (l *Loader) load(name string, depth int) (*Model, error) {
	if m, ok := l.cache[name]; ok {
		return m, nil
	}
	if depth > maxParentDepth {
		return nil, fmt.Errorf("model %q: parent chain too deep", name)
	}

	data, err := fs.ReadFile(l.fsys, path.Join("models", name+".json"))
	if err != nil {
		return nil, fmt.Errorf("could not read model file: %w", err)
	}
	var model Model
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("could not unmarshal model %q: %w", name, err)
	}
	if model.Textures == nil {
		model.Textures = make(map[string]string)
	}

	if model.Parent != "" && !strings.HasPrefix(model.Parent, "builtin/") {
		parentName := normalizeName(model.Parent)
		parent, err := l.load(parentName, depth+1)
		if err != nil {
			return nil, fmt.Errorf("could not load parent model %q: %w", parentName, err)
		}
		if model.AmbientOcclusion == nil {
			model.AmbientOcclusion = parent.AmbientOcclusion
		}
		if len(model.Elements) == 0 {
			// Copy so texture resolution below cannot leak into the cached parent.
			model.Elements = make([]Element, len(parent.Elements))
			for i, e := range parent.Elements {
				model.Elements[i] = e.clone()
			}
		}
		for key, val := range parent.Textures {
			if _, ok := model.Textures[key]; !ok {
				model.Textures[key] = val
			}
		}
	}

	resolveTextures(&model)
	l.cache[name] = &model
	return &model, nil
}

func resolveTextures(m *Model) {
	for i := range m.Elements {
		for faceName, face := range m.Elements[i].Faces {
			if resolved := ResolveTexture(face.Texture, m); resolved != face.Texture {
				face.Texture = resolved
				m.Elements[i].Faces[faceName] = face
			}
		}
	}
}

// ResolveTexture follows "#key" references through the model's texture map.
// Unresolvable references are returned as-is.
func ResolveTexture(textureName string, m *Model) string {
	for i := 0; i < 10 && strings.HasPrefix(textureName, "#"); i++ {
		resolved, ok := m.Textures[strings.TrimPrefix(textureName, "#")]
		if !ok {
			break
		}
		textureName = resolved
	}
	return textureName
}
