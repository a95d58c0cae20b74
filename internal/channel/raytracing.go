package channel

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/config"
	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/ris"
)

// RayTracing serves a channel matrix from a ray-tracing dataset exported as
// a complex CSV file. It is the highest-priority provider and reports
// itself unavailable when no dataset is configured or readable.
type RayTracing struct {
	Path string
}

func NewRayTracing(path string) *RayTracing {
	return &RayTracing{Path: path}
}

func (r *RayTracing) Name() string { return "ray-tracing" }

func (r *RayTracing) Acquire(p config.Params) (*mat.CDense, error) {
	if r.Path == "" {
		return nil, fmt.Errorf("no dataset configured: %w", ErrProviderUnavailable)
	}
	f, err := os.Open(r.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v: %w", r.Path, err, ErrProviderUnavailable)
	}
	defer f.Close()

	raw, err := ris.ReadCMatrixCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %v: %w", r.Path, err, ErrProviderUnavailable)
	}

	// The dataset's own shape is irrelevant as long as the element count
	// matches; this is the single permitted reshape in the system.
	rows, cols := raw.Dims()
	flat := make([]complex128, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			flat = append(flat, raw.At(i, j))
		}
	}
	return ris.CoerceCDense("channel: ray-tracing dataset", flat, p.BSAntennas, p.RISElements)
}
