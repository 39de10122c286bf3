package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning collects the engine knobs that are loaded from a YAML file.
type Tuning struct {
	ViewDistance int `yaml:"view_distance"`

	Queue    QueueTuning    `yaml:"queue"`
	BulkLoad BulkLoadTuning `yaml:"bulk_load"`
	Cache    CacheTuning    `yaml:"cache"`
	Pool     PoolTuning     `yaml:"pool"`
	Shading  ShadingTuning  `yaml:"shading"`
}

type QueueTuning struct {
	MaxPerCall       int `yaml:"max_per_call"`
	MaxPerCallNear   int `yaml:"max_per_call_near"`
	PartialThreshold int `yaml:"partial_threshold"`
}

type BulkLoadTuning struct {
	PriorityRadius int `yaml:"priority_radius"` // chunks
	DrainBatch     int `yaml:"drain_batch"`
	IngestBatch    int `yaml:"ingest_batch"`
}

type CacheTuning struct {
	MaxEntries             int `yaml:"max_entries"`
	InvalidateRadiusPlace  int `yaml:"invalidate_radius_place"`
	InvalidateRadiusRemove int `yaml:"invalidate_radius_remove"`
}

type PoolTuning struct {
	Capacity int `yaml:"capacity"`
}

// ShadingTuning holds the visual constants multiplied into vertex colours.
type ShadingTuning struct {
	AOTable          [4]float32 `yaml:"ao_table"`
	FaceShadeTop     float32    `yaml:"face_shade_top"`
	FaceShadeSide    float32    `yaml:"face_shade_side"`
	FaceShadeBottom  float32    `yaml:"face_shade_bottom"`
	SkyMaxDistance   int        `yaml:"sky_max_distance"`
	SkyMinBrightness float32    `yaml:"sky_min_brightness"`
}

// Default returns the built-in tuning.
func Default() Tuning {
	return Tuning{
		ViewDistance: 8,
		Queue: QueueTuning{
			MaxPerCall:       12,
			MaxPerCallNear:   4,
			PartialThreshold: 48,
		},
		BulkLoad: BulkLoadTuning{
			PriorityRadius: 3,
			DrainBatch:     16,
			IngestBatch:    64,
		},
		Cache: CacheTuning{
			MaxEntries:             1 << 16,
			InvalidateRadiusPlace:  1,
			InvalidateRadiusRemove: 2,
		},
		Pool: PoolTuning{
			Capacity: 256,
		},
		Shading: ShadingTuning{
			AOTable:          [4]float32{0, 0.12, 0.22, 0.34},
			FaceShadeTop:     1.0,
			FaceShadeSide:    0.8,
			FaceShadeBottom:  0.55,
			SkyMaxDistance:   16,
			SkyMinBrightness: 0.45,
		},
	}
}

// Load reads a tuning file. Keys missing from the file keep their defaults.
func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Validate reports the first inconsistent setting.
func (t Tuning) Validate() error {
	var errs []error
	if t.ViewDistance <= 0 {
		errs = append(errs, errors.New("view_distance must be positive"))
	}
	if t.Queue.MaxPerCall <= 0 || t.Queue.MaxPerCallNear <= 0 {
		errs = append(errs, errors.New("queue limits must be positive"))
	}
	if t.Queue.MaxPerCallNear > t.Queue.MaxPerCall {
		errs = append(errs, errors.New("queue.max_per_call_near must not exceed queue.max_per_call"))
	}
	if t.BulkLoad.DrainBatch <= 0 || t.BulkLoad.IngestBatch <= 0 {
		errs = append(errs, errors.New("bulk_load batches must be positive"))
	}
	if t.Cache.InvalidateRadiusRemove < t.Cache.InvalidateRadiusPlace {
		errs = append(errs, errors.New("cache.invalidate_radius_remove must be >= invalidate_radius_place"))
	}
	if t.Pool.Capacity < 0 {
		errs = append(errs, errors.New("pool.capacity must not be negative"))
	}
	s := t.Shading
	if !(s.FaceShadeTop >= s.FaceShadeSide && s.FaceShadeSide >= s.FaceShadeBottom) {
		errs = append(errs, errors.New("face shades must satisfy top >= side >= bottom"))
	}
	if s.SkyMaxDistance <= 0 {
		errs = append(errs, errors.New("shading.sky_max_distance must be positive"))
	}
	return errors.Join(errs...)
}

// SkyLightTable precomputes brightness by distance to the first occluder
// above a vertex. Index SkyMaxDistance+1 is the unoccluded value.
func (s ShadingTuning) SkyLightTable() []float32 {
	n := s.SkyMaxDistance
	table := make([]float32, n+2)
	for d := 0; d <= n; d++ {
		table[d] = s.SkyMinBrightness + (1-s.SkyMinBrightness)*float32(d)/float32(n+1)
	}
	table[n+1] = 1
	return table
}
