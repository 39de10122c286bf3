package world

import (
	"errors"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"voxelcore/internal/profiling"
)

// BulkLoader feeds ingested terrain into a store in bounded batches. Chunks
// are ordered in rings of increasing distance around the viewpoint so the
// nearest terrain arrives first. The store stays in bulk-load mode until the
// last batch is in.
type BulkLoader struct {
	store   *ChunkStore
	batch   int
	pending []TerrainChunk
	started bool
}

// NewBulkLoader prepares chunks for ingestion. batch <= 0 uses the store's
// bulk_load.ingest_batch.
func NewBulkLoader(store *ChunkStore, chunks []TerrainChunk, batch int) *BulkLoader {
	if batch <= 0 {
		batch = store.tuning.BulkLoad.IngestBatch
	}
	l := &BulkLoader{store: store, batch: max(batch, 1), pending: chunks}
	l.order()
	return l
}

// order sorts pending chunks by ring (Chebyshev distance in chunks from the
// viewpoint's chunk), then by Euclidean distance within the ring.
func (l *BulkLoader) order() {
	var center Coord
	var pos mgl32.Vec3
	if vp := l.store.viewpoint; vp != nil {
		pos = vp.Position()
		center = OriginOf(Coord{floorInt(pos.X()), floorInt(pos.Y()), floorInt(pos.Z())})
	}
	ring := func(o Coord) int {
		dx := abs((o.X - center.X) / ChunkSize)
		dy := abs((o.Y - center.Y) / ChunkSize)
		dz := abs((o.Z - center.Z) / ChunkSize)
		return max(dx, dy, dz)
	}
	sort.SliceStable(l.pending, func(i, j int) bool {
		a, b := l.pending[i].Origin, l.pending[j].Origin
		if ra, rb := ring(a), ring(b); ra != rb {
			return ra < rb
		}
		return chunkDistSq(pos, a) < chunkDistSq(pos, b)
	})
}

// Remaining returns the number of chunks not yet upserted.
func (l *BulkLoader) Remaining() int { return len(l.pending) }

func (l *BulkLoader) Done() bool { return len(l.pending) == 0 }

// Step upserts the next batch and returns how many chunks went in. The
// store leaves bulk-load mode after the final batch.
func (l *BulkLoader) Step() (int, error) {
	if l.Done() {
		return 0, nil
	}
	defer profiling.Track("world.BulkLoader.Step")()
	if !l.started {
		l.store.SetBulkLoad(true)
		l.started = true
	}
	n := min(l.batch, len(l.pending))
	var errs []error
	for _, tc := range l.pending[:n] {
		if err := l.store.Upsert(tc.Origin, tc.Blocks); err != nil {
			errs = append(errs, err)
		}
	}
	l.pending = l.pending[n:]
	profiling.Count("world.ingest.chunks", int64(n-len(errs)))
	if l.Done() {
		l.store.SetBulkLoad(false)
	}
	return n - len(errs), errors.Join(errs...)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func floorInt(f float32) int { return int(math.Floor(float64(f))) }
