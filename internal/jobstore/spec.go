// Package jobstore publishes job descriptors so that worker processes can
// rebuild the exact renderer their coordinator expects.
package jobstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/FrancoYudica/DistributedFractals/render"
)

// JobSpec is everything a worker needs to render blocks of one job.
//
// Camera coordinates travel in the serialized form of the job's numeric
// backend, so arbitrary-precision centers and zooms arrive bit-exact.
type JobSpec struct {
	ID        string `json:"id"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Samples   int    `json:"samples"`
	BlockSize int    `json:"block_size"`
	Workers   int    `json:"workers"`

	Fractal   FractalSpec `json:"fractal"`
	ColorMode int         `json:"color_mode"`

	Backend   string                  `json:"backend"`
	Precision uint                    `json:"precision,omitempty"`
	Camera    render.SerializedCamera `json:"camera"`

	Compress  bool      `json:"compress"`
	CreatedAt time.Time `json:"created_at"`
}

// FractalSpec mirrors fractal.Params in wire form.
type FractalSpec struct {
	Kind          string  `json:"kind"`
	MaxIterations int     `json:"max_iterations"`
	JuliaCx       float64 `json:"julia_cx"`
	JuliaCy       float64 `json:"julia_cy"`
}

// Marshal encodes s as JSON.
func (s JobSpec) Marshal() ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job spec %s: %w", s.ID, err)
	}

	return b, nil
}

// Unmarshal decodes a JSON job spec.
func Unmarshal(b []byte) (JobSpec, error) {
	var s JobSpec
	if err := json.Unmarshal(b, &s); err != nil {
		return JobSpec{}, fmt.Errorf("failed to unmarshal job spec: %w", err)
	}

	return s, nil
}
