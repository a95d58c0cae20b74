package viz

import (
	"math"
	"math/cmplx"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/config"
	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/pipeline"
	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/ris"
)

func TestMagnitudeRow(t *testing.T) {
	m := mat.NewCDense(2, 3, []complex128{3 + 4i, 0, 1, 2, -2i, 5})
	row := MagnitudeRow(m, 0)
	want := []float64{5, 0, 1}
	for i, v := range want {
		if math.Abs(row[i]-v) > 1e-12 {
			t.Errorf("row[%d] = %g, want %g", i, row[i], v)
		}
	}
}

func TestTraceMagnitude(t *testing.T) {
	tn := ris.NewTensor(1, 1, 3)
	for k := 0; k < 3; k++ {
		tn.SetAt(0, 0, k, complex(0, float64(k)))
	}
	trace := TraceMagnitude(tn, 0, 0)
	for k, v := range trace {
		if math.Abs(v-float64(k)) > 1e-12 {
			t.Errorf("trace[%d] = %g, want %d", k, v, k)
		}
	}
}

func TestPlotsRender(t *testing.T) {
	m := mat.NewCDense(1, 4, []complex128{1, 2, 3, 4})
	if out := PlotRow(m, 0, "test"); !strings.Contains(out, "test") {
		t.Error("caption missing from row plot")
	}
	tn := ris.NewTensor(1, 1, 8)
	for k := 0; k < 8; k++ {
		tn.SetAt(0, 0, k, cmplx.Rect(1, float64(k)))
	}
	if out := PlotTrace(tn, 0, 0, "trace"); !strings.Contains(out, "trace") {
		t.Error("caption missing from trace plot")
	}
}

func TestDopplerSpectrum(t *testing.T) {
	// A pure rotation at fd should peak at the bin closest to fd.
	const (
		n        = 64
		interval = 1e-3
		fd       = 125.0 // exactly 8 bins at df = 1/(64*1e-3) Hz
	)
	tn := ris.NewTensor(1, 1, n)
	for k := 0; k < n; k++ {
		tn.SetAt(0, 0, k, cmplx.Exp(complex(0, 2*math.Pi*fd*float64(k)*interval)))
	}
	freqs, power := DopplerSpectrum(tn, 0, 0, interval)
	if len(freqs) != n || len(power) != n {
		t.Fatalf("lengths = (%d, %d), want %d", len(freqs), len(power), n)
	}
	peak := 0
	for k := range power {
		if power[k] > power[peak] {
			peak = k
		}
	}
	if math.Abs(freqs[peak]-fd) > 1e-9 {
		t.Errorf("spectrum peak at %g Hz, want %g", freqs[peak], fd)
	}
}

func TestDopplerSpectrumOddLength(t *testing.T) {
	// A constant trace is pure DC; its peak must land on the 0 Hz bin
	// even when the series has an odd number of samples.
	const (
		n        = 31
		interval = 1e-3
	)
	tn := ris.NewTensor(1, 1, n)
	for k := 0; k < n; k++ {
		tn.SetAt(0, 0, k, 1)
	}
	freqs, power := DopplerSpectrum(tn, 0, 0, interval)
	peak := 0
	for k := range power {
		if power[k] > power[peak] {
			peak = k
		}
	}
	if peak != n/2 {
		t.Errorf("peak at index %d, want %d", peak, n/2)
	}
	if freqs[peak] != 0 {
		t.Errorf("peak at %g Hz, want 0", freqs[peak])
	}
}

func TestPlotSpectrumFloorsInf(t *testing.T) {
	out := PlotSpectrum([]float64{math.Inf(-1), -20, -10}, "spec")
	if !strings.Contains(out, "spec") {
		t.Error("caption missing")
	}
}

func TestSummary(t *testing.T) {
	p := config.Default()
	p.BSAntennas = 1
	p.RISElements = 2
	b := &pipeline.Bundle{
		Params:   p,
		Ideal:    mat.NewCDense(1, 2, nil),
		Impaired: mat.NewCDense(1, 2, nil),
		Theta:    mat.NewCDense(2, 2, nil),
		Tensor:   ris.NewTensor(1, 2, 3),
		Times:    []float64{0, 1e-3, 2e-3},
		Mask:     []float64{0, 1, 0},
	}
	out := Summary(b)
	if !strings.Contains(out, "1 / 3") {
		t.Errorf("blocked-sample count missing from summary:\n%s", out)
	}
}
