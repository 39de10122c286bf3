// Package blockmodel reads block model JSON documents: axis-aligned element
// boxes in 0..16 model units with per-face textures and cull faces.
package blockmodel

// Model is one block model document. Elements and textures are inherited
// from Parent when absent.
type Model struct {
	Parent           string            `json:"parent"`
	AmbientOcclusion *bool             `json:"ambientocclusion"`
	Textures         map[string]string `json:"textures"`
	Elements         []Element         `json:"elements"`
}

// Element is an axis-aligned box.
type Element struct {
	From  [3]float32      `json:"from"`
	To    [3]float32      `json:"to"`
	Shade *bool           `json:"shade"`
	Faces map[string]Face `json:"faces"`
}

type Face struct {
	UV        *[4]float32 `json:"uv"`
	Texture   string      `json:"texture"`
	CullFace  string      `json:"cullface"`
	TintIndex *int        `json:"tintindex"`
}

// FaceNames lists face keys in the order east, west, up, down, south, north
// (+X, -X, +Y, -Y, +Z, -Z).
var FaceNames = [6]string{"east", "west", "up", "down", "south", "north"}

// FaceIndex maps a face key to its position in FaceNames, or -1.
func FaceIndex(name string) int {
	for i, n := range FaceNames {
		if n == name {
			return i
		}
	}
	return -1
}

// Bounds returns the element box in voxel-centred units, [-0.5, 0.5] per axis.
func (e Element) Bounds() (min, max [3]float32) {
	for i := 0; i < 3; i++ {
		a, b := e.From[i], e.To[i]
		if a > b {
			a, b = b, a
		}
		min[i] = a/16 - 0.5
		max[i] = b/16 - 0.5
	}
	return min, max
}

// FullCube reports whether the element covers the whole voxel.
func (e Element) FullCube() bool {
	lo, hi := e.Bounds()
	return lo == [3]float32{-0.5, -0.5, -0.5} && hi == [3]float32{0.5, 0.5, 0.5}
}

func (e Element) clone() Element {
	c := e
	if e.Faces != nil {
		c.Faces = make(map[string]Face, len(e.Faces))
		for k, v := range e.Faces {
			c.Faces[k] = v
		}
	}
	return c
}
