// Package impairment distorts the ideal channel with per-element hardware
// errors and mutual coupling.
//
// The operator is Theta = D + Gamma: D is the diagonal of intended
// per-element responses amplitude_k * exp(i*phase_k), and Gamma is additive
// parasitic leakage between elements. The impaired channel is the matrix
// product ideal * Theta.
package impairment

import (
	"math"
	"math/cmplx"
	"math/rand/v2"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/config"
	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/coupling"
	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/ris"
)

// Model draws the stochastic per-element errors. The random source is
// injected so a fixed seed reproduces D bit for bit.
type Model struct {
	src *rand.Rand
}

func New(src *rand.Rand) *Model {
	return &Model{src: src}
}

// Apply builds Theta from fresh random draws and gamma's leading N×N
// sub-block, and returns ideal*Theta together with Theta itself.
func (m *Model) Apply(ideal, gamma *mat.CDense, p config.Params) (impaired, theta *mat.CDense, err error) {
	n := p.RISElements
	rows, cols := ideal.Dims()
	if rows != p.BSAntennas || cols != n {
		return nil, nil, &ris.ShapeError{
			Op: "impairment: ideal channel", Rows: rows, Cols: cols,
			WantRows: p.BSAntennas, WantCols: n,
		}
	}
	gammaN, err := coupling.SubBlock(gamma, n)
	if err != nil {
		return nil, nil, err
	}

	phase := distuv.Normal{Mu: 0, Sigma: math.Sqrt(p.PhaseNoiseVar), Src: m.src}
	amp := distuv.Uniform{Min: 1 - p.AmpErrorRange, Max: 1 + p.AmpErrorRange, Src: m.src}

	theta = mat.NewCDense(n, n, nil)
	theta.Copy(gammaN)
	for k := 0; k < n; k++ {
		d := complex(amp.Rand(), 0) * cmplx.Exp(complex(0, phase.Rand()))
		theta.Set(k, k, theta.At(k, k)+d)
	}

	impaired = mat.NewCDense(p.BSAntennas, n, nil)
	cblas128.Gemm(blas.NoTrans, blas.NoTrans, 1, ideal.RawCMatrix(), theta.RawCMatrix(), 0, impaired.RawCMatrix())
	return impaired, theta, nil
}
