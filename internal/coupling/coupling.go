// Package coupling supplies the mutual-coupling matrix Gamma, normally
// exported by an electromagnetic full-wave simulation as a scattering-style
// square matrix. Only the leading N×N sub-block is consumed.
package coupling

import (
	"fmt"
	"math"
	"math/cmplx"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/ris"
)

// Source yields a coupling matrix of at least N×N entries.
type Source interface {
	Name() string
	Matrix() (*mat.CDense, error)
}

// SubBlock selects the leading n×n entries of gamma. A smaller matrix is a
// configuration fault, never padded.
func SubBlock(gamma *mat.CDense, n int) (*mat.CDense, error) {
	rows, cols := gamma.Dims()
	if rows < n || cols < n {
		return nil, &ris.ShapeError{
			Op: "coupling", Rows: rows, Cols: cols,
			WantRows: n, WantCols: n, AtLeast: true,
		}
	}
	out := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out.Set(i, j, gamma.At(i, j))
		}
	}
	return out, nil
}

// File reads Gamma from a complex CSV export.
type File struct {
	Path string
}

func (f *File) Name() string { return "scattering-file" }

func (f *File) Matrix() (*mat.CDense, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("coupling: %w", err)
	}
	defer fh.Close()
	return ris.ReadCMatrixCSV(fh)
}

// Synthetic models nearest-neighbor leakage on a uniform array: coupling
// magnitude decays exponentially with element separation and the phase
// advances a quarter turn per element. The diagonal is zero; the intended
// per-element response lives in the impairment diagonal, not here.
type Synthetic struct {
	N        int
	Strength float64 // magnitude at separation 1, e.g. 0.1
	Decay    float64 // per-element magnitude decay exponent
}

func (s *Synthetic) Name() string { return "synthetic-neighbor" }

func (s *Synthetic) Matrix() (*mat.CDense, error) {
	if s.N <= 0 {
		return nil, fmt.Errorf("coupling: synthetic model needs N > 0, got %d", s.N)
	}
	g := mat.NewCDense(s.N, s.N, nil)
	for i := 0; i < s.N; i++ {
		for j := 0; j < s.N; j++ {
			if i == j {
				continue
			}
			d := math.Abs(float64(i - j))
			magn := s.Strength * math.Exp(-s.Decay*(d-1))
			g.Set(i, j, complex(magn, 0)*cmplx.Exp(complex(0, -math.Pi/2*d)))
		}
	}
	return g, nil
}

// Static wraps a fixed matrix; used in tests and by callers that already
// hold Gamma.
type Static struct {
	M *mat.CDense
}

func (s *Static) Name() string { return "static" }

func (s *Static) Matrix() (*mat.CDense, error) { return s.M, nil }
