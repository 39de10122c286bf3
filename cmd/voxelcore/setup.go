package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"voxelcore/internal/atlas"
	"voxelcore/internal/config"
	"voxelcore/internal/meshing"
	"voxelcore/internal/registry"
	"voxelcore/internal/spatial"
	"voxelcore/internal/world"
	"voxelcore/pkg/blockmodel"
)

const (
	atlasCols = 16
	atlasRows = 16
)

// Components holds everything a run wires together.
type Components struct {
	Tuning   config.Tuning
	Registry *registry.Registry
	Atlas    *atlas.Atlas
	Textures atlas.Loader
	Store    *world.ChunkStore
	Grid     *spatial.Grid
}

func setup(o options, log logrus.FieldLogger) (*Components, error) {
	c := &Components{Tuning: config.Default()}
	if o.TuningFile != "" {
		t, err := config.Load(o.TuningFile)
		if err != nil {
			return nil, err
		}
		c.Tuning = t
	}
	config.SetViewDistance(c.Tuning.ViewDistance)

	var models *blockmodel.Loader
	if o.ModelsDir != "" {
		models = blockmodel.NewLoader(os.DirFS(o.ModelsDir))
	}
	c.Registry = registry.New(models, log.WithField("component", "registry"))
	if err := c.Registry.LoadDefinitions(o.BlocksFile); err != nil {
		return nil, fmt.Errorf("block definitions: %w", err)
	}

	c.Atlas = atlas.New(atlasCols, atlasRows, log.WithField("component", "atlas"))
	if o.TexturesDir != "" {
		c.Textures = atlas.FSLoader(os.DirFS(o.TexturesDir), ".")
	}

	c.Store = world.NewChunkStore(world.Options{
		Blocks: c.Registry,
		Atlas:  c.Atlas,
		Tuning: c.Tuning,
		Logger: log.WithField("component", "world"),
		OnDispose: func(m *meshing.Mesh) {
			log.WithField("handle", m.Handle).Debug("mesh disposed")
		},
	})
	c.Grid = spatial.NewGrid(4096)

	log.WithFields(logrus.Fields{
		"blocks":        c.Registry.Len(),
		"view_distance": config.GetViewDistance(),
	}).Info("engine ready")
	return c, nil
}
