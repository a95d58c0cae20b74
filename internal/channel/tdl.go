package channel

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/config"
)

// DefaultPDP is a short three-tap power delay profile in dB, loosely after
// the 3GPP TDL tables. It is normalized to unit total power before use.
var DefaultPDP = []float64{0, -4.9, -9.7}

// TDL is the terminal fallback: a tapped-delay-line statistical model with
// Rayleigh-faded taps. With a usable random source it always succeeds.
type TDL struct {
	PDPdB []float64
	src   *rand.Rand
}

func NewTDL(pdpDB []float64, src *rand.Rand) *TDL {
	if len(pdpDB) == 0 {
		pdpDB = DefaultPDP
	}
	return &TDL{PDPdB: pdpDB, src: src}
}

func (t *TDL) Name() string { return "tdl-statistical" }

func (t *TDL) Acquire(p config.Params) (*mat.CDense, error) {
	if t.src == nil {
		return nil, ErrProviderUnavailable
	}

	// Linear tap powers, normalized so the narrowband sum has unit power.
	powers := make([]float64, len(t.PDPdB))
	total := 0.0
	for i, db := range t.PDPdB {
		powers[i] = math.Pow(10, db/10)
		total += powers[i]
	}
	for i := range powers {
		powers[i] /= total
	}

	// Mild frequency-dependent scaling keeps the fallback sensitive to the
	// configured carrier, mirroring free-space loss growth with fc.
	refHz := 1e9
	scale := math.Sqrt(refHz / p.CarrierHz)

	gauss := distuv.Normal{Mu: 0, Sigma: math.Sqrt(0.5), Src: t.src}
	m, n := p.BSAntennas, p.RISElements
	data := make([]complex128, m*n)
	for idx := range data {
		var h complex128
		for _, pw := range powers {
			amp := math.Sqrt(pw)
			h += complex(amp*gauss.Rand(), amp*gauss.Rand())
		}
		data[idx] = complex(scale, 0) * h
	}
	return mat.NewCDense(m, n, data), nil
}
