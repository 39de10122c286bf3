// Package registry holds the block type table: per-id rendering and light
// metadata consumed by the mesher and the chunk store.
package registry

import (
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"

	"voxelcore/pkg/blockmodel"
)

var (
	ErrInvalidDefinition = errors.New("registry: invalid block definition")
	ErrDuplicateID       = errors.New("registry: duplicate block id")
)

// Face order used by every per-face array: +X, -X, +Y, -Y, +Z, -Z.
const (
	East = iota
	West
	Up
	Down
	South
	North
)

// ModelShapePrefix prefixes shape tags that come from a block model.
const ModelShapePrefix = "model:"

// Descriptor is the resolved metadata of one block id.
type Descriptor struct {
	ID   uint16
	Name string

	// Opaque reports, per face, whether the block fully covers that side.
	Opaque      [6]bool
	Liquid      bool
	Translucent bool

	// Shape is a non-cube render shape tag, empty for the default cube.
	Shape string

	Color mgl32.Vec4
	// AO overrides the ambient occlusion table when set.
	AO *[4]float32

	// FaceTextures are explicit per-face texture keys; empty entries fall
	// through to the derived keys.
	FaceTextures [6]string
	TextureURI   string
	// BaseID links a variant to the block whose textures it reuses.
	BaseID uint16

	Emission uint8
}

// SolidOn reports whether the block fully covers face f.
func (d *Descriptor) SolidOn(f int) bool {
	return d != nil && d.Opaque[f]
}

// FullyOpaque reports whether every face is opaque.
func (d *Descriptor) FullyOpaque() bool {
	if d == nil {
		return false
	}
	for _, o := range d.Opaque {
		if !o {
			return false
		}
	}
	return true
}

// Registry maps block ids to descriptors. It is filled at startup and read
// only afterwards.
type Registry struct {
	byID   map[uint16]*Descriptor
	byName map[string]*Descriptor
	shapes map[string][]blockmodel.Element
	models *blockmodel.Loader
	log    logrus.FieldLogger
}

// New returns an empty registry. models may be nil when no definition uses a
// block model.
func New(models *blockmodel.Loader, log logrus.FieldLogger) *Registry {
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}
	return &Registry{
		byID:   make(map[uint16]*Descriptor),
		byName: make(map[string]*Descriptor),
		shapes: make(map[string][]blockmodel.Element),
		models: models,
		log:    log,
	}
}

// Descriptor returns the descriptor for id; nil for 0 and unknown ids.
func (r *Registry) Descriptor(id uint16) *Descriptor {
	if id == 0 {
		return nil
	}
	return r.byID[id]
}

// Lookup finds a descriptor by name.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// ShapeElements returns the element boxes registered for a model shape tag.
func (r *Registry) ShapeElements(tag string) ([]blockmodel.Element, bool) {
	e, ok := r.shapes[tag]
	return e, ok
}

// IDs returns the registered ids in ascending order.
func (r *Registry) IDs() []uint16 {
	ids := make([]uint16, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *Registry) Len() int { return len(r.byID) }

// Register converts a definition into a descriptor and stores it.
func (r *Registry) Register(def Definition) (*Descriptor, error) {
	if def.ID == 0 {
		return nil, fmt.Errorf("%w: id 0 is reserved for empty", ErrInvalidDefinition)
	}
	if def.Name == "" {
		return nil, fmt.Errorf("%w: block %d has no name", ErrInvalidDefinition, def.ID)
	}
	if _, ok := r.byID[def.ID]; ok {
		return nil, fmt.Errorf("%w: %d (%s)", ErrDuplicateID, def.ID, def.Name)
	}
	if def.Emission > 15 {
		return nil, fmt.Errorf("%w: %s emission %d exceeds 15", ErrInvalidDefinition, def.Name, def.Emission)
	}

	d := &Descriptor{
		ID:          def.ID,
		Name:        def.Name,
		Liquid:      def.Liquid,
		Translucent: def.Translucent || def.Liquid,
		Shape:       def.Shape,
		TextureURI:  def.TextureURI,
		BaseID:      def.BaseID,
		Emission:    def.Emission,
		AO:          def.AO,
	}
	col, err := def.color()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, def.Name, err)
	}
	d.Color = col

	opaque := !def.Liquid && !def.Translucent && def.Shape == ""
	if def.Opaque != nil {
		opaque = *def.Opaque
	}
	for f := range d.Opaque {
		d.Opaque[f] = opaque
	}
	d.FaceTextures = def.faceTextures()

	if def.Model != "" {
		if err := r.applyModel(d, def.Model); err != nil {
			// A broken model degrades to a textured cube.
			r.log.WithError(err).WithField("block", def.Name).Warn("block model unavailable")
		}
	}

	r.byID[d.ID] = d
	r.byName[d.Name] = d
	return d, nil
}

func (r *Registry) applyModel(d *Descriptor, name string) error {
	if r.models == nil {
		return fmt.Errorf("no model loader for %q", name)
	}
	model, err := r.models.LoadModel(name)
	if err != nil {
		return err
	}

	full := false
	for _, e := range model.Elements {
		if e.FullCube() {
			full = true
			break
		}
	}
	if !full && len(model.Elements) > 0 {
		tag := ModelShapePrefix + strings.TrimPrefix(name, "minecraft:")
		r.shapes[tag] = model.Elements
		if d.Shape == "" {
			d.Shape = tag
		}
		for f := range d.Opaque {
			d.Opaque[f] = false
		}
		d.Translucent = true
	}

	for _, e := range model.Elements {
		for faceName, face := range e.Faces {
			f := blockmodel.FaceIndex(faceName)
			if f < 0 || d.FaceTextures[f] != "" {
				continue
			}
			if key := textureKey(face.Texture); key != "" {
				d.FaceTextures[f] = key
			}
		}
	}
	return nil
}

// textureKey turns a model texture path ("block/stone") into an atlas key.
func textureKey(ref string) string {
	if ref == "" || strings.HasPrefix(ref, "#") {
		return ""
	}
	base := path.Base(strings.TrimPrefix(ref, "minecraft:"))
	if base == "." || base == "/" {
		return ""
	}
	return base
}
