// Package dynamics evolves an impaired channel matrix over time, combining
// per-sample Doppler rotation with a Poisson blockage process.
package dynamics

import (
	"math"
	"math/cmplx"
	"math/rand/v2"
	"sync"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/config"
	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/ris"
)

// PhaseProvider is an optional external generator of per-sample Doppler
// phase terms. Returning an error for a sample hands that sample to the
// closed-form rotation; the engine never caches a failure.
type PhaseProvider interface {
	Phase(fd, t float64) (complex128, error)
}

// Engine owns the time evolution. Zero workers means sequential assembly;
// the per-slice work is independent, so any worker count yields identical
// output for identical draws.
type Engine struct {
	provider PhaseProvider
	src      *rand.Rand
	workers  int
}

type Option func(*Engine)

func WithProvider(p PhaseProvider) Option { return func(e *Engine) { e.provider = p } }
func WithRand(src *rand.Rand) Option      { return func(e *Engine) { e.src = src } }
func WithWorkers(n int) Option            { return func(e *Engine) { e.workers = n } }

func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.src == nil {
		e.src = rand.New(rand.NewPCG(0, 0))
	}
	return e
}

// Evolve produces the time axis, the M×N×T dynamic tensor and the blockage
// mask. Slice k is impaired * phase_k * (1 - mask_k): both factors are
// scalars broadcast over the whole spatial matrix.
func (e *Engine) Evolve(impaired *mat.CDense, p config.Params) ([]float64, *ris.Tensor, []float64, error) {
	steps := p.Steps()
	if steps < 1 {
		return nil, nil, nil, &config.ConfigError{
			Field:  "interval_s",
			Reason: "no samples fit in the configured duration",
		}
	}
	m, n := impaired.Dims()
	if m != p.BSAntennas || n != p.RISElements {
		return nil, nil, nil, &ris.ShapeError{
			Op: "dynamics: impaired channel", Rows: m, Cols: n,
			WantRows: p.BSAntennas, WantCols: p.RISElements,
		}
	}

	times := make([]float64, steps)
	for k := range times {
		times[k] = float64(k) * p.Interval
	}

	// Blockage counts are drawn sequentially before any fan-out so a fixed
	// seed fixes the mask regardless of worker count. Counts above one are
	// kept as-is, giving a negative attenuation factor at that sample.
	mask := e.blockageMask(steps, p)

	fd := p.DopplerShift()
	tensor := ris.NewTensor(m, n, steps)

	fill := func(k int) {
		factor := e.phaseAt(fd, times[k]) * complex(1-mask[k], 0)
		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				tensor.SetAt(i, j, k, impaired.At(i, j)*factor)
			}
		}
	}

	if e.workers > 1 {
		var wg sync.WaitGroup
		sem := make(chan struct{}, e.workers)
		for k := 0; k < steps; k++ {
			wg.Add(1)
			sem <- struct{}{}
			go func(k int) {
				defer wg.Done()
				fill(k)
				<-sem
			}(k)
		}
		wg.Wait()
	} else {
		for k := 0; k < steps; k++ {
			fill(k)
		}
	}

	return times, tensor, mask, nil
}

// phaseAt probes the external generator for one sample and falls back to
// the closed-form rotation exp(i*2*pi*fd*t).
func (e *Engine) phaseAt(fd, t float64) complex128 {
	if e.provider != nil {
		ph, err := e.provider.Phase(fd, t)
		if err == nil {
			return ph
		}
		log.WithFields(log.Fields{"t": t, "reason": err}).
			Debug("doppler provider unavailable, using closed form")
	}
	return cmplx.Exp(complex(0, 2*math.Pi*fd*t))
}

func (e *Engine) blockageMask(steps int, p config.Params) []float64 {
	mask := make([]float64, steps)
	lambda := p.BlockageRate * p.Interval
	if lambda == 0 {
		return mask
	}
	pois := distuv.Poisson{Lambda: lambda, Src: e.src}
	for k := range mask {
		mask[k] = pois.Rand()
	}
	return mask
}
