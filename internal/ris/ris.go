// Package ris holds the shared primitives of the STAR-RIS simulation
// environment: the complex channel tensor, shape errors, and helpers for
// coercing and (de)serializing complex matrices.
//
// All channel matrices are [mat.CDense] values of shape M×N, where M is the
// number of base-station antennas and N the number of surface elements.
package ris

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// SpeedOfLight in vacuum, m/s.
const SpeedOfLight = 299792458.0

// ShapeError reports a matrix whose dimensions violate the contract of the
// component that received it.
type ShapeError struct {
	Op         string
	Rows, Cols int
	WantRows   int
	WantCols   int
	AtLeast    bool
}

func (e *ShapeError) Error() string {
	if e.Rows == 0 {
		return fmt.Sprintf("%s: %d elements cannot form a %dx%d matrix",
			e.Op, e.Cols, e.WantRows, e.WantCols)
	}
	rel := ""
	if e.AtLeast {
		rel = "at least "
	}
	return fmt.Sprintf("%s: matrix is %dx%d, need %s%dx%d",
		e.Op, e.Rows, e.Cols, rel, e.WantRows, e.WantCols)
}

// CoerceCDense builds a rows×cols matrix from a flat row-major slice. The
// element count must match exactly; there is no truncation or padding.
func CoerceCDense(op string, data []complex128, rows, cols int) (*mat.CDense, error) {
	if len(data) != rows*cols {
		return nil, &ShapeError{Op: op, Cols: len(data), WantRows: rows, WantCols: cols}
	}
	out := make([]complex128, len(data))
	copy(out, data)
	return mat.NewCDense(rows, cols, out), nil
}

// Tensor is a dense complex M×N×T array, stored slice-major: the full M×N
// matrix for time index k is contiguous.
type Tensor struct {
	M, N, T int
	data    []complex128
}

func NewTensor(m, n, t int) *Tensor {
	return &Tensor{M: m, N: n, T: t, data: make([]complex128, m*n*t)}
}

// checkIndex panics on out-of-range indices. Without it a bad row or
// column would alias into a neighboring time slice instead of failing.
func (t *Tensor) checkIndex(i, j, k int) {
	if i < 0 || i >= t.M || j < 0 || j >= t.N || k < 0 || k >= t.T {
		panic(fmt.Sprintf("ris: index (%d,%d,%d) out of range for %dx%dx%d tensor",
			i, j, k, t.M, t.N, t.T))
	}
}

func (t *Tensor) At(i, j, k int) complex128 {
	t.checkIndex(i, j, k)
	return t.data[k*t.M*t.N+i*t.N+j]
}

func (t *Tensor) SetAt(i, j, k int, v complex128) {
	t.checkIndex(i, j, k)
	t.data[k*t.M*t.N+i*t.N+j] = v
}

// Slice returns the M×N matrix at time index k. The returned matrix shares
// storage with the tensor.
func (t *Tensor) Slice(k int) *mat.CDense {
	t.checkIndex(0, 0, k)
	mn := t.M * t.N
	return mat.NewCDense(t.M, t.N, t.data[k*mn:(k+1)*mn])
}

// Trace returns the time series of element (i, j) across all T slices.
func (t *Tensor) Trace(i, j int) []complex128 {
	t.checkIndex(i, j, 0)
	out := make([]complex128, t.T)
	for k := 0; k < t.T; k++ {
		out[k] = t.At(i, j, k)
	}
	return out
}

// Raw exposes the backing slice, slice-major. Used by the storage
// collaborator; callers must not resize it.
func (t *Tensor) Raw() []complex128 { return t.data }

// WriteCMatrixCSV writes m as CSV, one matrix row per record, each entry a
// Go complex literal such as (1.5-0.25i).
func WriteCMatrixCSV(w io.Writer, m *mat.CDense) error {
	cw := csv.NewWriter(w)
	rows, cols := m.Dims()
	rec := make([]string, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			rec[j] = strconv.FormatComplex(m.At(i, j), 'g', -1, 128)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCMatrixCSV parses a complex matrix written by WriteCMatrixCSV. All
// records must have the same number of fields.
func ReadCMatrixCSV(r io.Reader) (*mat.CDense, error) {
	cr := csv.NewReader(r)
	var data []complex128
	rows, cols := 0, 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if cols == 0 {
			cols = len(rec)
		} else if len(rec) != cols {
			return nil, fmt.Errorf("ris: ragged CSV row %d: %d fields, want %d", rows, len(rec), cols)
		}
		for _, f := range rec {
			v, err := strconv.ParseComplex(f, 128)
			if err != nil {
				return nil, fmt.Errorf("ris: row %d: %w", rows, err)
			}
			data = append(data, v)
		}
		rows++
	}
	if rows == 0 {
		return nil, fmt.Errorf("ris: empty matrix")
	}
	return mat.NewCDense(rows, cols, data), nil
}
