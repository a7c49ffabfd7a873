package utils

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSparseMatrix(t *testing.T) {
	{ // Tagged contributions are summed in tag order, whatever the arrival order
		var (
			vals = []float64{1.e16, 1, -1.e16, 1}
			A    = NewSparseMatrix(2, 2).SetName("A")
			B    = NewSparseMatrix(2, 2).SetName("B")
		)
		for k, v := range vals {
			A.AddTagged(0, 1, v, uint64(k))
		}
		for k := len(vals) - 1; k >= 0; k-- {
			B.AddTagged(0, 1, vals[k], uint64(k))
		}
		require.NoError(t, A.Finalize(false))
		require.NoError(t, B.Finalize(false))
		assert.True(t, A.Equal(B))
		assert.Equal(t, "A", A.Name())
	}
	{ // Finalize keeps the diagonal and drops zero off-diagonals with skipZeros
		A := NewSparseMatrix(3, 3)
		A.Add(0, 1, 2)
		A.Add(0, 1, -2)
		A.Add(2, 0, 5)
		assert.False(t, A.IsFinalized())
		assert.Equal(t, 5., A.At(2, 0))
		require.NoError(t, A.Finalize(true))
		assert.True(t, A.IsFinalized())
		assert.Equal(t, 4, A.NNZ())
		for i := 0; i < 3; i++ {
			assert.Equal(t, 0., A.At(i, i))
		}
		assert.Equal(t, 0., A.At(0, 1))
		// finalizing twice is harmless
		require.NoError(t, A.Finalize(false))
		assert.Equal(t, 4, A.NNZ())
	}
	{ // Non-finite values are reported
		A := NewSparseMatrix(2, 2).SetName("bad")
		A.Add(0, 0, math.Inf(1))
		err := A.Finalize(false)
		assert.True(t, errors.Is(err, ErrNonFinite))
		assert.True(t, IsNan(A))
		assert.True(t, A.IsFinalized())
		assert.True(t, errors.Is(A.Finalize(false), ErrNonFinite))
	}
	{ // Set discards earlier contributions
		A := NewSparseMatrix(2, 3)
		A.Add(1, 2, 4)
		A.Set(1, 2, 1)
		A.Add(1, 2, 0.5)
		require.NoError(t, A.Finalize(false))
		assert.Equal(t, 1.5, A.At(1, 2))
		assert.Equal(t, 1, A.NNZ())
	}
	{ // Precomputed patterns accept writes inside the pattern only
		P := NewSparsePattern(2, 2, [][]int{{1}, {}})
		assert.True(t, P.IsCompact())
		assert.False(t, P.IsFinalized())
		P.Add(0, 1, 3)
		P.Add(1, 1, 2)
		assert.Panics(t, func() { P.Add(1, 0, 1) })
		require.NoError(t, P.Finalize(false))
		assert.Equal(t, 3, P.NNZ())
		assert.Equal(t, 3., P.At(0, 1))
		assert.Panics(t, func() { NewSparsePattern(2, 2, [][]int{{2}, {}}) })
	}
	{ // Read only
		A := NewSparseMatrix(2, 2)
		A.SetReadOnly("frozen")
		assert.Panics(t, func() { A.Add(0, 0, 1) })
		assert.Panics(t, func() { A.At(2, 0) })
	}
}

func newTestMatrix(t *testing.T) (A *SparseMatrix) {
	// [ 4 1 0 ]
	// [ 1 3 2 ]
	// [ 0 2 5 ]
	A = NewSparseMatrix(3, 3).SetName("A")
	for _, e := range [][3]float64{{0, 0, 4}, {0, 1, 1}, {1, 0, 1}, {1, 1, 3}, {1, 2, 2}, {2, 1, 2}, {2, 2, 5}} {
		A.Add(int(e[0]), int(e[1]), e[2])
	}
	require.NoError(t, A.Finalize(false))
	return
}

func TestSparseProducts(t *testing.T) {
	var (
		A = newTestMatrix(t)
		x = []float64{1, -1, 2}
		y = make([]float64, 3)
	)
	A.Mult(x, y)
	assert.Equal(t, []float64{3, 2, 8}, y)
	A.AddMult(x, y, -1)
	assert.Equal(t, []float64{0, 0, 0}, y)
	A.MultTranspose(x, y)
	assert.Equal(t, []float64{3, 2, 8}, y)
	A.AddMultTranspose(x, y, 1)
	assert.Equal(t, []float64{6, 4, 16}, y)
	assert.Equal(t, 3.-2.+16., A.InnerProduct(x, x))
	z := []float64{7, 7, 7}
	A.PartMult(Index{1}, x, z)
	assert.Equal(t, []float64{7, 2, 7}, z)
	assert.Panics(t, func() { A.Mult(x, make([]float64, 2)) })

	AT := A.Transpose()
	assert.True(t, A.Equal(AT.SetName("A")))
	C := A.Mul(A)
	var Cd mat.Dense
	Cd.Mul(A.ToDense(), A.ToDense())
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, Cd.At(i, j), C.At(i, j), 1.e-14)
		}
	}
	S := A.Plus(A)
	assert.Equal(t, 10., S.At(2, 2))
	assert.Equal(t, A.NNZ(), S.NNZ())

	D := A.Clone()
	D.SetAll(1)
	assert.Equal(t, 1., D.At(0, 1))
	assert.Equal(t, 4., A.At(0, 0))
	var count int
	A.RowNonZeros(1, func(j int, v float64) { count++ })
	assert.Equal(t, 3, count)
}

func TestSparseElimination(t *testing.T) {
	{ // Immediate elimination of DOF 2 to the value 1
		var (
			A      = newTestMatrix(t)
			Ae     = NewSparseMatrix(3, 3)
			sol    = []float64{0, 0, 1}
			rhs    = []float64{1, 1, 1}
			marked = []bool{false, false, true}
		)
		A.EliminateRowsCols(marked, true, 1, sol, rhs, Ae)
		require.NoError(t, Ae.Finalize(false))
		assert.Equal(t, []float64{1, -1, 1}, rhs)
		assert.Equal(t, 0., A.At(1, 2))
		assert.Equal(t, 0., A.At(2, 1))
		assert.Equal(t, 1., A.At(2, 2))
		// A_before = A_after + Ae
		assert.Equal(t, 2., Ae.At(1, 2))
		assert.Equal(t, 2., Ae.At(2, 1))
		assert.Equal(t, 4., Ae.At(2, 2))
		S := A.Plus(Ae)
		B := newTestMatrix(t)
		B.DoNonZero(func(i, j int, v float64) { assert.Equal(t, v, S.At(i, j)) })
	}
	{ // Keep the diagonal
		var (
			A   = newTestMatrix(t)
			sol = []float64{2, 0, 0}
			rhs = []float64{0, 0, 0}
		)
		A.EliminateRowsCols([]bool{true, false, false}, false, 0, sol, rhs, nil)
		assert.Equal(t, []float64{8, -2, 0}, rhs)
		assert.Equal(t, 4., A.At(0, 0))
		assert.Panics(t, func() { A.EliminateRowsCols([]bool{true, false, false}, false, 0, sol, nil, nil) })
	}
	{ // Columns and rows alone
		var (
			A   = newTestMatrix(t)
			sol = []float64{0, 1, 0}
			rhs = []float64{0, 0, 0}
		)
		A.EliminateCols([]bool{false, true, false}, sol, rhs)
		assert.Equal(t, []float64{-1, -3, -2}, rhs)
		assert.Equal(t, 0., A.At(1, 1))
		A.EliminateRow(0)
		assert.Equal(t, 0., A.At(0, 0))
		assert.Equal(t, 5., A.At(2, 2))
	}
}

func TestDOK(t *testing.T) {
	D := NewDOK(3, 2)
	D.Set(2, 1, 0.5)
	D.Set(0, 0, 1)
	r, c := D.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 0.5, D.At(2, 1))
	S := D.ToSparseMatrix("P")
	assert.True(t, S.IsFinalized())
	assert.Equal(t, "P", S.Name())
	assert.Equal(t, 2, S.NNZ())
	assert.Equal(t, 0.5, S.At(2, 1))
	assert.Equal(t, 0., S.At(1, 1))
}
