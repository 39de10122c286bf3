package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"voxelcore/internal/physics"
	"voxelcore/internal/profiling"
	"voxelcore/internal/spatial"
	"voxelcore/internal/view"
	"voxelcore/internal/world"
)

// groundDepth bounds the column scan below the viewpoint.
const groundDepth = 256

func run(o options, log logrus.FieldLogger, out io.Writer) error {
	c, err := setup(o, log)
	if err != nil {
		return err
	}

	chunks, err := loadTerrain(o, c.Grid)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"chunks": len(chunks), "voxels": c.Grid.Len()}).Info("terrain loaded")

	c.Store.SetViewpoint(view.Point(o.View))
	ingest(c, chunks, log)
	drain(c.Store, log)

	if c.Textures != nil {
		added, err := c.Atlas.Flush(c.Textures)
		if err != nil {
			log.WithError(err).Warn("texture flush")
		}
		if len(added) > 0 {
			c.Store.Each(func(ch *world.Chunk) {
				c.Store.ScheduleRemesh(ch.Origin(), world.RemeshOptions{Force: true})
			})
			drain(c.Store, log)
		}
	}

	if o.Export != "" {
		if err := c.Grid.WriteSnapshot(o.Export); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		log.WithField("path", o.Export).Info("snapshot written")
	}

	printSummary(out, c, o)
	return nil
}

// loadTerrain fills grid from the configured source and returns the
// per-chunk arrays to ingest.
func loadTerrain(o options, grid *spatial.Grid) ([]world.TerrainChunk, error) {
	switch {
	case o.Import != "":
		if err := grid.ReadSnapshot(o.Import); err != nil {
			return nil, fmt.Errorf("import: %w", err)
		}
		voxels := make(map[world.Coord]uint16, grid.Len())
		grid.Each(func(x, y, z int32, id uint16) {
			voxels[world.Coord{X: int(x), Y: int(y), Z: int(z)}] = id
		})
		return world.GroupVoxels(voxels), nil
	case o.Terrain != "":
		chunks, err := world.ReadTerrain(o.Terrain)
		if err != nil {
			return nil, err
		}
		for _, ch := range chunks {
			ch.Each(func(g world.Coord, id uint16) {
				grid.Set(int32(g.X), int32(g.Y), int32(g.Z), id)
			})
		}
		return chunks, nil
	}
	return nil, nil
}

// ingest streams chunks in ring order, building the nearest ones between
// batches.
func ingest(c *Components, chunks []world.TerrainChunk, log logrus.FieldLogger) {
	loader := world.NewBulkLoader(c.Store, chunks, 0)
	for !loader.Done() {
		if _, err := loader.Step(); err != nil {
			log.WithError(err).Warn("ingest")
		}
		if _, err := c.Store.ProcessQueue(true); err != nil {
			log.WithError(err).Debug("near rebuild")
		}
	}
}

// drain processes the queue, including deferred work, until it is empty.
func drain(s *world.ChunkStore, log logrus.FieldLogger) {
	for {
		st := s.Stats()
		if st.Queued == 0 && st.Deferred == 0 {
			return
		}
		n, err := s.ProcessQueue(false)
		if err != nil {
			log.WithError(err).Debug("rebuild")
		}
		if n == 0 && s.Stats().Queued == st.Queued {
			return
		}
	}
}

func printSummary(out io.Writer, c *Components, o options) {
	head := color.New(color.FgGreen, color.Bold)
	warn := color.New(color.FgYellow)

	st := c.Store.Stats()
	var vertices, translucent int
	c.Store.Each(func(ch *world.Chunk) {
		solid, trans := ch.Meshes()
		if solid != nil {
			vertices += solid.VertexCount()
		}
		if trans != nil {
			translucent += trans.VertexCount()
		}
	})

	head.Fprintln(out, "World")
	fmt.Fprintf(out, "  chunks:    %d (%d visible)\n", st.Chunks, st.Visible)
	fmt.Fprintf(out, "  voxels:    %d\n", c.Grid.Len())
	fmt.Fprintf(out, "  vertices:  %d solid, %d translucent\n", vertices, translucent)
	fmt.Fprintf(out, "  pool:      %d created, %d reused, %d free, %d disposed\n",
		st.Pool.Created, st.Pool.Reused, st.Pool.Free, st.Pool.Disposed)
	if st.Queued > 0 || st.Deferred > 0 {
		warn.Fprintf(out, "  pending:   %d queued, %d deferred\n", st.Queued, st.Deferred)
	}

	head.Fprintln(out, "Textures")
	fmt.Fprintf(out, "  resident:  %d/%d\n", c.Atlas.Len(), c.Atlas.Capacity())
	if p := c.Atlas.Pending(); len(p) > 0 {
		warn.Fprintf(out, "  unloaded:  %v\n", p)
	}

	if ground, ok := physics.FindGroundLevel(o.View.X(), o.View.Z(), o.View.Y(), groundDepth, c.Grid); ok {
		head.Fprintln(out, "Ground")
		fmt.Fprintf(out, "  below viewpoint at y=%.0f\n", ground)
	}

	if o.Ray != nil {
		head.Fprintln(out, "Raycast")
		hit := physics.Raycast(o.Ray.From, o.Ray.Dir, 0, groundDepth, c.Grid)
		if hit.Hit {
			name := "?"
			if d := c.Registry.Descriptor(hit.ID); d != nil {
				name = d.Name
			}
			fmt.Fprintf(out, "  hit %s %v at %.2f, normal %v\n", name, hit.HitPosition, hit.Distance, hit.Normal)
		} else {
			fmt.Fprintln(out, "  miss")
		}
	}

	head.Fprintln(out, "Profile")
	if top := profiling.TopN(5); top != "" {
		fmt.Fprintf(out, "  %s\n", top)
	}
	counters := profiling.Counters()
	names := make([]string, 0, len(counters))
	for k := range counters {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(out, "  %-24s %d\n", k, counters[k])
	}
}
