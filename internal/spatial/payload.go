package spatial

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidPayload is returned when a bulk payload fails validation.
var ErrInvalidPayload = errors.New("spatial: invalid bulk payload")

// Payload is the bulk exchange format: coordinates flattened as x,y,z
// triples with one id per triple.
type Payload struct {
	Version int     `json:"version"`
	Coords  []int32 `json:"coords"`
	IDs     []int32 `json:"ids"`
}

const payloadVersion = 1

// sampleCount bounds the consistency pass over large payloads.
const sampleCount = 64

const payloadSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["coords", "ids"],
  "properties": {
    "version": {"type": "integer", "minimum": 1},
    "coords": {"type": "array", "items": {"type": "integer"}},
    "ids": {"type": "array", "items": {"type": "integer"}}
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("grid-payload.schema.json", payloadSchema)
	})
	return schema, schemaErr
}

// Validate checks presence and types against the schema, then array lengths
// and a sample of entries.
func Validate(raw []byte) (Payload, error) {
	var p Payload
	s, err := compiledSchema()
	if err != nil {
		return p, err
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := s.Validate(doc); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if len(p.Coords) != 3*len(p.IDs) {
		return p, fmt.Errorf("%w: %d coordinates for %d ids", ErrInvalidPayload, len(p.Coords), len(p.IDs))
	}
	step := max(len(p.IDs)/sampleCount, 1)
	for i := 0; i < len(p.IDs); i += step {
		if id := p.IDs[i]; id < 0 || id > math.MaxUint16 {
			return p, fmt.Errorf("%w: id %d at entry %d", ErrInvalidPayload, id, i)
		}
	}
	return p, nil
}

// Load replaces the grid contents with a validated payload. On any failure
// the grid is left empty.
func (g *Grid) Load(raw []byte) error {
	p, err := Validate(raw)
	if err != nil {
		g.Reset()
		return err
	}
	g.allocate(max(len(p.IDs), defaultCapacity))
	for i, id := range p.IDs {
		if id < 0 || id > math.MaxUint16 {
			g.Reset()
			return fmt.Errorf("%w: id %d at entry %d", ErrInvalidPayload, id, i)
		}
		g.Set(p.Coords[3*i], p.Coords[3*i+1], p.Coords[3*i+2], uint16(id))
	}
	return nil
}

// Payload exports the live entries.
func (g *Grid) Payload() Payload {
	p := Payload{
		Version: payloadVersion,
		Coords:  make([]int32, 0, 3*g.count),
		IDs:     make([]int32, 0, g.count),
	}
	g.Each(func(x, y, z int32, id uint16) {
		p.Coords = append(p.Coords, x, y, z)
		p.IDs = append(p.IDs, int32(id))
	})
	return p
}

// WriteSnapshot stores the grid as a zstd-compressed JSON payload.
func (g *Grid) WriteSnapshot(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)
	if err := json.NewEncoder(bw).Encode(g.Payload()); err != nil {
		enc.Close()
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// ReadSnapshot loads a snapshot written by WriteSnapshot. Plain JSON files
// (".json") are accepted as well.
func (g *Grid) ReadSnapshot(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(path, ".json") {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return err
		}
		defer dec.Close()
		raw, err = dec.DecodeAll(raw, nil)
		if err != nil {
			g.Reset()
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	}
	return g.Load(raw)
}
