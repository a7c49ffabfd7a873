package utils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a dense row-major matrix used for local element contributions.
type Matrix struct {
	M        *mat.Dense
	readOnly bool
	name     string
}

func NewMatrix(nr, nc int, dataO ...[]float64) (R Matrix) {
	var m *mat.Dense
	if len(dataO) != 0 {
		if len(dataO[0]) != nr*nc {
			err := fmt.Errorf("mismatch in allocation: NewMatrix nr,nc = %v,%v, len(data[0]) = %v", nr, nc, len(dataO[0]))
			panic(err)
		}
		m = mat.NewDense(nr, nc, dataO[0])
	} else {
		m = mat.NewDense(nr, nc, make([]float64, nr*nc))
	}
	R = Matrix{
		m,
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m Matrix) Dims() (r, c int)          { return m.M.Dims() }
func (m Matrix) At(i, j int) float64       { return m.M.At(i, j) }
func (m Matrix) T() mat.Matrix             { return m.M.T() }
func (m Matrix) RawMatrix() blas64.General { return m.M.RawMatrix() }
func (m Matrix) Data() []float64           { return m.M.RawMatrix().Data }

// Chainable methods (extended)
func (m *Matrix) SetReadOnly(name ...string) Matrix {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
	return *m
}

func (m Matrix) Mul(A Matrix) (R Matrix) { // Does not change receiver
	var (
		nrM, _ = m.M.Dims()
		_, ncA = A.M.Dims()
	)
	R = NewMatrix(nrM, ncA)
	R.M.Mul(m.M, A.M)
	return R
}

func (m Matrix) Set(i, j int, val float64) Matrix { // Changes receiver
	m.checkWritable()
	m.M.Set(i, j, val)
	return m
}

func (m Matrix) Add(A Matrix) Matrix { // Changes receiver
	var (
		dataM = m.Data()
		dataA = A.Data()
	)
	m.checkWritable()
	m.checkSameShape(A)
	for i, val := range dataA {
		dataM[i] += val
	}
	return m
}

// AddOuter accumulates a * u v^T, the usual shape of a quadrature point contribution.
func (m Matrix) AddOuter(a float64, u, v []float64) Matrix { // Changes receiver
	var (
		nr, nc = m.Dims()
		data   = m.Data()
	)
	m.checkWritable()
	if len(u) != nr || len(v) != nc {
		panic(fmt.Errorf("outer product dimension mismatch: matrix is %dx%d, len(u) = %d, len(v) = %d",
			nr, nc, len(u), len(v)))
	}
	for i := 0; i < nr; i++ {
		aui := a * u[i]
		if aui == 0 {
			continue
		}
		row := data[i*nc : (i+1)*nc]
		for j, vj := range v {
			row[j] += aui * vj
		}
	}
	return m
}

// IsFinite reports whether every entry is neither NaN nor Inf.
func (m Matrix) IsFinite() bool {
	for _, val := range m.Data() {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return false
		}
	}
	return true
}

func (m Matrix) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}

func (m Matrix) checkSameShape(A Matrix) {
	nr, nc := m.Dims()
	nrA, ncA := A.Dims()
	if nr != nrA || nc != ncA {
		panic(fmt.Errorf("dimension mismatch: %dx%d and %dx%d", nr, nc, nrA, ncA))
	}
}
