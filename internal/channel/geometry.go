package channel

import (
	"math"
	"math/cmplx"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/config"
)

// StochasticGeometry synthesizes the channel as a sum of scattering
// clusters: for each cluster a complex gain and a departure/arrival angle
// pair are drawn, and the rank-one outer product of the half-wavelength
// ULA steering vectors at those angles is accumulated.
type StochasticGeometry struct {
	Clusters int
	src      *rand.Rand
}

func NewStochasticGeometry(clusters int, src *rand.Rand) *StochasticGeometry {
	return &StochasticGeometry{Clusters: clusters, src: src}
}

func (g *StochasticGeometry) Name() string { return "stochastic-geometry" }

func (g *StochasticGeometry) Acquire(p config.Params) (*mat.CDense, error) {
	if g.src == nil || g.Clusters <= 0 {
		return nil, ErrProviderUnavailable
	}

	m, n := p.BSAntennas, p.RISElements
	gain := distuv.Normal{Mu: 0, Sigma: math.Sqrt(0.5), Src: g.src}
	h := mat.NewCDense(m, n, nil)

	norm := complex(math.Sqrt(1/float64(g.Clusters)), 0)
	for l := 0; l < g.Clusters; l++ {
		alpha := complex(gain.Rand(), gain.Rand())
		aoa := (g.src.Float64() - 0.5) * math.Pi // arrival at the array
		aod := (g.src.Float64() - 0.5) * math.Pi // departure toward the surface
		arx := steering(m, aoa)
		atx := steering(n, aod)
		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				h.Set(i, j, h.At(i, j)+norm*alpha*arx[i]*cmplx.Conj(atx[j]))
			}
		}
	}
	return h, nil
}

// steering returns the k-element uniform-linear-array response for angle
// theta at half-wavelength spacing.
func steering(k int, theta float64) []complex128 {
	a := make([]complex128, k)
	for i := range a {
		a[i] = cmplx.Exp(complex(0, math.Pi*float64(i)*math.Sin(theta)))
	}
	return a
}
