package channel

import (
	"gonum.org/v1/gonum/mat"

	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/config"
)

// Static serves a fixed matrix. Used by tests and when replaying a saved
// ideal channel through the rest of the pipeline.
type Static struct {
	M *mat.CDense
}

func (s *Static) Name() string { return "static" }

func (s *Static) Acquire(p config.Params) (*mat.CDense, error) {
	if s.M == nil {
		return nil, ErrProviderUnavailable
	}
	return s.M, nil
}
