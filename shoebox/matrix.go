package shoebox

import "github.com/cwbudde/algo-dsp/dsp/core"

// Matrix is a row-major 2-D buffer. Resizing reuses the backing array when
// its capacity allows, so shrinking or keeping the shape never allocates.
type Matrix struct {
	rows int
	cols int
	data []float64
}

// NewMatrix allocates a zeroed rows x cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	m := &Matrix{}
	m.Resize(rows, cols)
	return m
}

// Resize changes the logical shape and reports whether it differed from the
// previous one. Contents are unspecified after a shape change.
func (m *Matrix) Resize(rows, cols int) bool {
	if rows < 0 {
		rows = 0
	}
	if cols < 0 {
		cols = 0
	}
	if rows == m.rows && cols == m.cols && len(m.data) == rows*cols {
		return false
	}
	m.rows = rows
	m.cols = cols
	m.data = core.EnsureLen(m.data, rows*cols)
	return true
}

func (m *Matrix) Rows() int { return m.rows }

func (m *Matrix) Cols() int { return m.cols }

// Row returns a view of row i.
func (m *Matrix) Row(i int) []float64 {
	return m.data[i*m.cols : (i+1)*m.cols : (i+1)*m.cols]
}

// Data returns the flat row-major backing slice.
func (m *Matrix) Data() []float64 { return m.data }

// Zero clears every element.
func (m *Matrix) Zero() { core.Zero(m.data) }

// CopyFrom resizes m to src's shape and copies its contents.
func (m *Matrix) CopyFrom(src *Matrix) {
	m.Resize(src.rows, src.cols)
	copy(m.data, src.data)
}
