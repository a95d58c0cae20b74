package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/channel"
	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/config"
	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/coupling"
	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/dynamics"
	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/impairment"
	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/ris"
)

func testParams() config.Params {
	p := config.Default()
	p.BSAntennas = 2
	p.RISElements = 3
	p.Duration = 0.01
	p.Interval = 0.001
	p.Seed = 7
	return p
}

func testIdeal(m, n int) *mat.CDense {
	h := mat.NewCDense(m, n, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			h.Set(i, j, complex(float64(i+1), float64(j-1)))
		}
	}
	return h
}

func fixedPipeline(p config.Params, providers ...channel.Provider) *Pipeline {
	src := rand.New(rand.NewPCG(uint64(p.Seed), uint64(p.Seed)))
	return New(
		channel.NewSource(providers...),
		&coupling.Static{M: mat.NewCDense(p.RISElements, p.RISElements, nil)},
		impairment.New(src),
		dynamics.New(dynamics.WithRand(src)),
	)
}

func TestRunShapes(t *testing.T) {
	p := testParams()
	b, err := fixedPipeline(p, &channel.Static{M: testIdeal(2, 3)}).Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	check := func(name string, m *mat.CDense, wr, wc int) {
		rows, cols := m.Dims()
		if rows != wr || cols != wc {
			t.Errorf("%s dims = %dx%d, want %dx%d", name, rows, cols, wr, wc)
		}
	}
	check("ideal", b.Ideal, 2, 3)
	check("impaired", b.Impaired, 2, 3)
	check("theta", b.Theta, 3, 3)
	if b.Tensor.M != 2 || b.Tensor.N != 3 || b.Tensor.T != p.Steps() {
		t.Errorf("tensor dims = %dx%dx%d, want 2x3x%d", b.Tensor.M, b.Tensor.N, b.Tensor.T, p.Steps())
	}
	if len(b.Times) != p.Steps() || len(b.Mask) != p.Steps() {
		t.Errorf("axis lengths = (%d, %d), want %d", len(b.Times), len(b.Mask), p.Steps())
	}
}

func TestInvalidConfigAbortsBeforeAcquisition(t *testing.T) {
	p := testParams()
	p.Interval = p.Duration * 10

	counting := &countingProvider{}
	_, err := fixedPipeline(p, counting).Run(context.Background(), p)
	var cfgErr *config.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if counting.calls != 0 {
		t.Error("no provider may run before validation passes")
	}
}

type countingProvider struct{ calls int }

func (c *countingProvider) Name() string { return "counting" }
func (c *countingProvider) Acquire(config.Params) (*mat.CDense, error) {
	c.calls++
	return nil, fmt.Errorf("empty: %w", channel.ErrProviderUnavailable)
}

func TestFallbackHasNoSideEffects(t *testing.T) {
	// A failed primary must leave later stages untouched: running with
	// (failing, static) equals running with (static) alone under the same
	// seed.
	p := testParams()
	ideal := testIdeal(2, 3)

	withFallback, err := fixedPipeline(p, &countingProvider{}, &channel.Static{M: ideal}).
		Run(context.Background(), p)
	if err != nil {
		t.Fatalf("fallback run: %v", err)
	}
	direct, err := fixedPipeline(p, &channel.Static{M: ideal}).Run(context.Background(), p)
	if err != nil {
		t.Fatalf("direct run: %v", err)
	}

	a, b := withFallback.Tensor.Raw(), direct.Tensor.Raw()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("tensor element %d differs between fallback and direct runs", i)
		}
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if withFallback.Theta.At(i, j) != direct.Theta.At(i, j) {
				t.Fatalf("theta(%d,%d) differs between fallback and direct runs", i, j)
			}
		}
	}
}

func TestExhaustedChainFailsRun(t *testing.T) {
	p := testParams()
	_, err := fixedPipeline(p, &countingProvider{}, &countingProvider{}).Run(context.Background(), p)
	var acqErr *channel.AcquisitionError
	if !errors.As(err, &acqErr) {
		t.Fatalf("expected AcquisitionError, got %v", err)
	}
}

func TestSmallCouplingFailsRun(t *testing.T) {
	p := testParams()
	src := rand.New(rand.NewPCG(1, 1))
	pl := New(
		channel.NewSource(&channel.Static{M: testIdeal(2, 3)}),
		&coupling.Static{M: mat.NewCDense(2, 2, nil)},
		impairment.New(src),
		dynamics.New(dynamics.WithRand(src)),
	)
	b, err := pl.Run(context.Background(), p)
	var shapeErr *ris.ShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected ShapeError, got %v", err)
	}
	if b != nil {
		t.Error("no partial bundle may be returned")
	}
}

func TestDefaultWiringRuns(t *testing.T) {
	// No dataset, no coupling file: the chain must fall through to a
	// generated channel and the synthetic coupling model.
	p := testParams()
	b, err := Default(p).Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if b.Tensor.T != p.Steps() {
		t.Errorf("tensor T = %d, want %d", b.Tensor.T, p.Steps())
	}
}

func TestDefaultIsDeterministic(t *testing.T) {
	p := testParams()
	b1, err := Default(p).Run(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := Default(p).Run(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	a, b := b1.Tensor.Raw(), b2.Tensor.Raw()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("element %d differs across identically seeded default runs", i)
		}
	}
}

func TestRunEnsemble(t *testing.T) {
	p := testParams()
	bundles, err := RunEnsemble(context.Background(), p, 3)
	if err != nil {
		t.Fatalf("RunEnsemble: %v", err)
	}
	if len(bundles) != 3 {
		t.Fatalf("got %d bundles, want 3", len(bundles))
	}
	for i, b := range bundles {
		if b.Params.Seed != p.Seed+int64(i) {
			t.Errorf("run %d seed = %d, want %d", i, b.Params.Seed, p.Seed+int64(i))
		}
	}

	if _, err := RunEnsemble(context.Background(), p, 0); err == nil {
		t.Error("zero runs should fail")
	}
}

func TestCancelledContext(t *testing.T) {
	p := testParams()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fixedPipeline(p, &channel.Static{M: testIdeal(2, 3)}).Run(ctx, p)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
