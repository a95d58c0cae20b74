package viz

import (
	"math"
	"math/cmplx"

	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/ris"
)

// spectrumFloor replaces -Inf bins so the plot stays finite.
const spectrumFloor = -160.0

// PlotSpectrum renders a power spectrum in dB as an ascii graph.
func PlotSpectrum(powerDB []float64, caption string) string {
	data := make([]float64, len(powerDB))
	for i, v := range powerDB {
		if math.IsInf(v, -1) || v < spectrumFloor {
			data[i] = spectrumFloor
			continue
		}
		data[i] = v
	}
	return asciigraph.Plot(data, asciigraph.Height(10), asciigraph.Caption(caption))
}

// fftShift rotates an FFT output so DC sits in the middle.
func fftShift(data []complex128) []complex128 {
	n := len(data)
	if n == 0 {
		return nil
	}
	// (n+1)/2 keeps DC at index n/2 for odd lengths too.
	half := (n + 1) / 2
	return append(append([]complex128{}, data[half:]...), data[:half]...)
}

// DopplerSpectrum computes the power spectrum, in dB, of one tensor
// element's time series, together with the frequency axis in Hz. The peak
// sits at the Doppler shift of the run.
func DopplerSpectrum(t *ris.Tensor, i, j int, interval float64) (freqs, powerDB []float64) {
	trace := t.Trace(i, j)
	n := len(trace)
	if n == 0 {
		return nil, nil
	}
	coeffs := fourier.NewCmplxFFT(n).Coefficients(nil, trace)
	shifted := fftShift(coeffs)

	freqs = make([]float64, n)
	powerDB = make([]float64, n)
	df := 1 / (float64(n) * interval)
	for k, v := range shifted {
		freqs[k] = (float64(k) - float64(n/2)) * df
		magn := cmplx.Abs(v) / float64(n)
		if magn == 0 {
			powerDB[k] = math.Inf(-1)
			continue
		}
		powerDB[k] = 20 * math.Log10(magn)
	}
	return freqs, powerDB
}
