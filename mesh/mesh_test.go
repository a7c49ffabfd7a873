package mesh

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoTriangles = `        CONTROL INFO 2.0.0
** GAMBIT NEUTRAL FILE
square
PROGRAM:                Gambit     VERSION:  2.0.0
Jan 1 2020
     NUMNP     NELEM     NGRPS    NBSETS     NDFCD     NDFVL
         4         2         1         2         2         2
ENDOFSECTION
   NODAL COORDINATES 2.0.0
         1   0.0   0.0
         2   1.0   0.0
         3   1.0   1.0
         4   0.0   1.0
ENDOFSECTION
      ELEMENTS/CELLS 2.0.0
       1  3  3        1       2       3
       2  3  3        1       3       4
ENDOFSECTION
       ELEMENT GROUP 2.0.0
GROUP:           1 ELEMENTS:          2 MATERIAL:          2 NFLAGS:          1
                           fluid
       0
       1       2
ENDOFSECTION
 BOUNDARY CONDITIONS 2.0.0
                 Wall       1       2       0       6
       1       3       1
       1       3       2
ENDOFSECTION
 BOUNDARY CONDITIONS 2.0.0
                 Out       1       2       0       6
       2       3       2
       2       3       3
ENDOFSECTION
`

func TestLineMesh(t *testing.T) {
	m := NewLine(4, 0, 2)
	assert.Equal(t, 1, m.Dim)
	assert.Equal(t, 4, m.NumElements())
	assert.Equal(t, 5, m.NumFaces())
	assert.Equal(t, 3, len(m.InteriorFaces()))
	assert.Equal(t, 2, len(m.BoundaryFaces()))
	assert.Equal(t, []int{LineLeft, LineRight}, m.BdrAttributes)
	{ // Element geometry
		T := m.GetElementTransformation(1)
		assert.InDelta(t, 0.25, T.Weight(), 1.e-14)
		x := T.Transform([]float64{-1})
		assert.InDelta(t, 0.5, x[0], 1.e-14)
		Jinv := T.InverseJacobian()
		assert.InDelta(t, 4., Jinv.At(0, 0), 1.e-14)
	}
	{ // Interior face between elements 0 and 1 at x = 0.5
		f := m.InteriorFaces()[0]
		T := m.GetFaceTransformation(f)
		assert.False(t, T.IsBoundary())
		assert.Equal(t, []float64{1}, T.Loc1([]float64{}))
		assert.Equal(t, []float64{-1}, T.Loc2([]float64{}))
		assert.InDelta(t, 1., T.Normal()[0], 1.e-14)
	}
	{ // Left boundary face points outward
		f := m.BdrElementFace(0)
		T := m.GetFaceTransformation(f)
		assert.True(t, T.IsBoundary())
		assert.Equal(t, LineLeft, T.Face.Attribute)
		assert.InDelta(t, -1., T.Normal()[0], 1.e-14)
		assert.Panics(t, func() { T.Loc2([]float64{}) })
	}
	{ // Touch advances the generation
		g := m.Generation()
		require.NoError(t, m.Touch())
		assert.Equal(t, g+1, m.Generation())
	}
	assert.Panics(t, func() { NewLineFromNodes([]float64{0, 1, 1}) })
}

func TestTriangleMesh(t *testing.T) {
	verts := [][]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	// The second triangle is given clockwise and gets reoriented
	m, err := NewMesh(2, verts, [][]int{{0, 1, 2}, {0, 3, 2}}, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 3}, m.Elements[1])
	assert.Equal(t, 5, m.NumFaces())
	assert.Equal(t, 1, len(m.InteriorFaces()))
	{
		T := m.GetElementTransformation(0)
		assert.InDelta(t, 0.25, T.Weight(), 1.e-14)
	}
	{ // Both neighbors map the shared edge to the same physical points
		f := m.InteriorFaces()[0]
		T := m.GetFaceTransformation(f)
		for _, tt := range []float64{-1, -0.3, 1} {
			ip := []float64{tt}
			x1 := T.Elem1Tr.Transform(T.Loc1(ip))
			x2 := T.Elem2Tr.Transform(T.Loc2(ip))
			xf := T.Face.Transform(ip)
			assert.InDeltaSlice(t, xf, x1, 1.e-14)
			assert.InDeltaSlice(t, xf, x2, 1.e-14)
		}
		assert.InDelta(t, math.Sqrt(2)/2, T.Face.Weight(), 1.e-14)
		// The normal of the diagonal points from element 0 into element 1
		n := T.Normal()
		assert.InDelta(t, -math.Sqrt(0.5), n[0], 1.e-14)
		assert.InDelta(t, math.Sqrt(0.5), n[1], 1.e-14)
	}
	_, err = NewMesh(2, verts, [][]int{{0, 1, 7}}, nil, nil, nil)
	assert.Error(t, err)
	_, err = NewMesh(2, verts, [][]int{{0, 1, 2}}, nil, [][]int{{0, 3}}, []int{1})
	assert.Error(t, err)
}

func TestRectangle(t *testing.T) {
	m, err := NewRectangle(2, 3, 0, 2, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 12, m.NumElements())
	assert.Equal(t, 2*(2+3), m.NumBdrElements())
	var area float64
	for k := 0; k < m.NumElements(); k++ {
		area += 2 * m.GetElementTransformation(k).Weight()
	}
	assert.InDelta(t, 6., area, 1.e-12)
	count := make(map[int]int)
	var perimeter float64
	for b := 0; b < m.NumBdrElements(); b++ {
		count[m.BdrAttributes[b]]++
		perimeter += 2 * m.GetBdrElementTransformation(b).Weight()
	}
	assert.Equal(t, map[int]int{RectBottom: 2, RectRight: 3, RectTop: 2, RectLeft: 3}, count)
	assert.InDelta(t, 10., perimeter, 1.e-12)
	assert.Equal(t, 4, m.MaxBdrAttribute())
	_, err = NewRectangle(0, 1, 0, 1, 0, 1)
	assert.Error(t, err)
}

func TestReadGambit(t *testing.T) {
	m := ReadGambit2DFrom(strings.NewReader(twoTriangles), false)
	assert.Equal(t, 2, m.NumElements())
	assert.Equal(t, []int{1, 1}, m.Attributes)
	assert.Equal(t, 4, m.NumBdrElements())
	assert.Equal(t, []int{1, 1, 2, 2}, m.BdrAttributes)
	assert.Equal(t, "Wall", m.BdrNames[1])
	assert.Equal(t, "Out", m.BdrNames[2])
	assert.Equal(t, []int{2, 3}, m.BdrElements[2])
	assert.Panics(t, func() { ReadGambit2DFrom(strings.NewReader(twoTriangles[:200]), false) })
}
