package coupling

import (
	"errors"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/ris"
)

func TestSubBlock(t *testing.T) {
	g := mat.NewCDense(3, 3, []complex128{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	})
	sub, err := SubBlock(g, 2)
	if err != nil {
		t.Fatalf("SubBlock: %v", err)
	}
	want := [][]complex128{{1, 2}, {4, 5}}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if sub.At(i, j) != want[i][j] {
				t.Errorf("(%d,%d) = %v, want %v", i, j, sub.At(i, j), want[i][j])
			}
		}
	}
}

func TestSubBlockTooSmall(t *testing.T) {
	g := mat.NewCDense(2, 2, nil)
	_, err := SubBlock(g, 4)
	var shapeErr *ris.ShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected ShapeError, got %v", err)
	}
	if !shapeErr.AtLeast {
		t.Error("coupling shape contract is a lower bound")
	}
}

func TestSyntheticStructure(t *testing.T) {
	s := &Synthetic{N: 4, Strength: 0.1, Decay: 1.0}
	g, err := s.Matrix()
	if err != nil {
		t.Fatalf("Matrix: %v", err)
	}
	for i := 0; i < 4; i++ {
		if g.At(i, i) != 0 {
			t.Errorf("diagonal (%d,%d) = %v, want 0", i, i, g.At(i, i))
		}
	}
	// Magnitude decays with separation.
	near := cmplx.Abs(g.At(0, 1))
	far := cmplx.Abs(g.At(0, 3))
	if near <= far {
		t.Errorf("|g(0,1)| = %g should exceed |g(0,3)| = %g", near, far)
	}
	if math.Abs(near-0.1) > 1e-12 {
		t.Errorf("|g(0,1)| = %g, want strength 0.1", near)
	}
}

func TestFileSource(t *testing.T) {
	want := mat.NewCDense(2, 2, []complex128{0, 1i, 1i, 0})
	path := filepath.Join(t.TempDir(), "s.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := ris.WriteCMatrixCSV(f, want); err != nil {
		t.Fatal(err)
	}
	f.Close()

	got, err := (&File{Path: path}).Matrix()
	if err != nil {
		t.Fatalf("Matrix: %v", err)
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if got.At(i, j) != want.At(i, j) {
				t.Errorf("(%d,%d) = %v, want %v", i, j, got.At(i, j), want.At(i, j))
			}
		}
	}

	if _, err := (&File{Path: filepath.Join(t.TempDir(), "nope.csv")}).Matrix(); err == nil {
		t.Error("missing file should fail")
	}
}
