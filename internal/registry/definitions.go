package registry

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

// Definition is one block entry of a definitions file.
type Definition struct {
	ID          uint16      `yaml:"id"`
	Name        string      `yaml:"name"`
	Color       string      `yaml:"color"`
	Alpha       *float32    `yaml:"alpha"`
	Opaque      *bool       `yaml:"opaque"`
	Liquid      bool        `yaml:"liquid"`
	Translucent bool        `yaml:"translucent"`
	Shape       string      `yaml:"shape"`
	Model       string      `yaml:"model"`
	Emission    uint8       `yaml:"emission"`
	BaseID      uint16      `yaml:"base_id"`
	TextureURI  string      `yaml:"texture_uri"`
	AO          *[4]float32 `yaml:"ao"`

	// Textures accepts "all", "side", "top", "bottom" and the six face names.
	Textures map[string]string `yaml:"textures"`
}

type definitionsFile struct {
	Blocks []Definition `yaml:"blocks"`
}

// ParseDefinitions decodes a YAML definitions document.
func ParseDefinitions(data []byte) ([]Definition, error) {
	var f definitionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse block definitions: %w", err)
	}
	return f.Blocks, nil
}

// LoadDefinitions reads a definitions file and registers every entry.
func (r *Registry) LoadDefinitions(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	defs, err := ParseDefinitions(data)
	if err != nil {
		return err
	}
	var errs []error
	for _, def := range defs {
		if _, err := r.Register(def); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	r.log.WithField("blocks", r.Len()).Debug("block definitions loaded")
	return nil
}

func (d Definition) color() (mgl32.Vec4, error) {
	alpha := float32(1)
	if d.Alpha != nil {
		alpha = mgl32.Clamp(*d.Alpha, 0, 1)
	}
	if d.Color == "" {
		return mgl32.Vec4{1, 1, 1, alpha}, nil
	}
	c, err := colorful.Hex(d.Color)
	if err != nil {
		return mgl32.Vec4{}, err
	}
	return mgl32.Vec4{float32(c.R), float32(c.G), float32(c.B), alpha}, nil
}

var faceKeys = [6]string{"east", "west", "up", "down", "south", "north"}

func (d Definition) faceTextures() [6]string {
	var out [6]string
	if len(d.Textures) == 0 {
		return out
	}
	for f, name := range faceKeys {
		if t, ok := d.Textures[name]; ok {
			out[f] = t
			continue
		}
		switch f {
		case Up:
			out[f] = d.Textures["top"]
		case Down:
			out[f] = d.Textures["bottom"]
		default:
			out[f] = d.Textures["side"]
		}
		if out[f] == "" {
			out[f] = d.Textures["all"]
		}
	}
	return out
}
