package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatrix(t *testing.T) {
	{
		A := NewMatrix(2, 3, []float64{1, 2, 3, 4, 5, 6})
		nr, nc := A.Dims()
		assert.Equal(t, 2, nr)
		assert.Equal(t, 3, nc)
		B := NewMatrix(3, 2, []float64{1, 4, 2, 5, 3, 6})
		C := A.Mul(B)
		assert.Equal(t, []float64{14, 32, 32, 77}, C.Data())
		A.Add(NewMatrix(2, 3, []float64{1, 1, 1, 1, 1, 1})).Set(0, 0, 0)
		assert.Equal(t, []float64{0, 3, 4, 5, 6, 7}, A.Data())
		assert.Panics(t, func() { A.Add(B) })
		assert.Panics(t, func() { NewMatrix(2, 2, []float64{1}) })
	}
	{ // Outer products accumulate a u v^T
		M := NewMatrix(2, 2)
		M.AddOuter(2, []float64{1, 0}, []float64{3, 4})
		M.AddOuter(1, []float64{0, 1}, []float64{1, 1})
		assert.Equal(t, []float64{6, 8, 1, 1}, M.Data())
		assert.Panics(t, func() { M.AddOuter(1, []float64{1}, []float64{1, 1}) })
		assert.True(t, M.IsFinite())
		M.Set(1, 1, math.NaN())
		assert.False(t, M.IsFinite())
		assert.True(t, IsNan(M))
	}
	{ // Read only
		M := NewMatrix(2, 2)
		M.SetReadOnly("M")
		assert.Panics(t, func() { M.Set(0, 0, 1) })
		assert.Panics(t, func() { M.Add(NewMatrix(2, 2)) })
		assert.Panics(t, func() { M.AddOuter(1, []float64{1, 1}, []float64{1, 1}) })
	}
}

func TestIndex(t *testing.T) {
	assert.Equal(t, Index{2, 3, 4}, NewRange(2, 4))
	assert.Equal(t, Index{}, NewRange(3, 2))
	assert.Equal(t, Index{1, 2, 5}, Index{5, 1, 2, 1, 5}.Unique())
	assert.Equal(t, Index{}, Index{}.Unique())
	marker, err := ListToMarker(Index{0, 3, 3}, 4)
	assert.NoError(t, err)
	assert.Equal(t, []int{-1, 0, 0, -1}, marker)
	assert.Equal(t, Index{0, 3}, MarkerToList(marker))
	_, err = ListToMarker(Index{4}, 4)
	assert.Error(t, err)
	_, err = ListToMarker(Index{-1}, 4)
	assert.Error(t, err)
}
