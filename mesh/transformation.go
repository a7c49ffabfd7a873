package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gobilinear/utils"
)

var refTriangle = [3][2]float64{{-1, -1}, {1, -1}, {-1, 1}}

/*
ElementTransformation is the affine map from a reference simplex onto an
element, boundary element or face:

	x(ip) = v0 + sum_k (ip_k + 1)/2 * (v_{k+1} - v0)

The Jacobian is constant, so it is computed once.
*/
type ElementTransformation struct {
	ElementNo int
	Attribute int
	verts     [][]float64
	refDim    int
	J         utils.Matrix
	weight    float64
}

func newElementTransformation(no, attr int, verts [][]float64) (T *ElementTransformation) {
	var (
		spaceDim = len(verts[0])
		refDim   = len(verts) - 1
	)
	T = &ElementTransformation{
		ElementNo: no,
		Attribute: attr,
		verts:     verts,
		refDim:    refDim,
		weight:    1,
	}
	if refDim == 0 {
		return
	}
	T.J = utils.NewMatrix(spaceDim, refDim)
	for k := 0; k < refDim; k++ {
		for d := 0; d < spaceDim; d++ {
			T.J.Set(d, k, 0.5*(verts[k+1][d]-verts[0][d]))
		}
	}
	if refDim == spaceDim {
		T.weight = math.Abs(mat.Det(T.J))
	} else {
		var JtJ mat.Dense
		JtJ.Mul(T.J.T(), T.J)
		T.weight = math.Sqrt(mat.Det(&JtJ))
	}
	return
}

func (T *ElementTransformation) RefDim() int   { return T.refDim }
func (T *ElementTransformation) SpaceDim() int { return len(T.verts[0]) }

// Weight is the measure scaling |det J|, or sqrt(det J^T J) for embedded entities.
func (T *ElementTransformation) Weight() float64 { return T.weight }

func (T *ElementTransformation) Transform(ip []float64) (x []float64) {
	x = make([]float64, T.SpaceDim())
	copy(x, T.verts[0])
	for k := 0; k < T.refDim; k++ {
		for d := range x {
			x[d] += T.J.At(d, k) * (ip[k] + 1)
		}
	}
	return
}

// InverseJacobian maps reference gradients to physical ones; square maps only.
func (T *ElementTransformation) InverseJacobian() (Jinv utils.Matrix) {
	if T.refDim == 0 || T.refDim != T.SpaceDim() {
		panic(fmt.Errorf("inverse Jacobian undefined for a %d-dimensional entity in %d dimensions",
			T.refDim, T.SpaceDim()))
	}
	Jinv = utils.NewMatrix(T.refDim, T.refDim)
	if err := Jinv.M.Inverse(T.J); err != nil {
		panic(fmt.Errorf("element %d: singular Jacobian: %w", T.ElementNo, err))
	}
	return
}

// FaceTransformation carries the face geometry together with the maps from
// face reference coordinates to the reference coordinates of each neighbor.
type FaceTransformation struct {
	FaceNo           int
	Elem1, Elem2     int
	Face             *ElementTransformation
	Elem1Tr, Elem2Tr *ElementTransformation
	loc1, loc2       func(ip []float64) []float64
	normal           []float64
}

func (T *FaceTransformation) IsBoundary() bool { return T.Elem2 < 0 }

// Loc1 maps a face reference point into the reference element of Elem1.
func (T *FaceTransformation) Loc1(ip []float64) []float64 { return T.loc1(ip) }

// Loc2 maps a face reference point into the reference element of Elem2.
func (T *FaceTransformation) Loc2(ip []float64) []float64 {
	if T.loc2 == nil {
		panic(fmt.Errorf("face %d is on the boundary and has no second element", T.FaceNo))
	}
	return T.loc2(ip)
}

// Normal is the unit normal pointing out of Elem1.
func (T *FaceTransformation) Normal() []float64 { return T.normal }

func (m *Mesh) vertexCoords(verts []int) (X [][]float64) {
	X = make([][]float64, len(verts))
	for i, v := range verts {
		X[i] = m.Vertices[v]
	}
	return
}

func (m *Mesh) GetElementTransformation(k int) *ElementTransformation {
	return newElementTransformation(k, m.Attributes[k], m.vertexCoords(m.Elements[k]))
}

func (m *Mesh) GetBdrElementTransformation(b int) *ElementTransformation {
	return newElementTransformation(b, m.BdrAttributes[b], m.vertexCoords(m.BdrElements[b]))
}

func (m *Mesh) GetFaceTransformation(f int) (T *FaceTransformation) {
	var (
		face = m.Faces[f]
	)
	T = &FaceTransformation{
		FaceNo:  f,
		Elem1:   face.Elem1,
		Elem2:   face.Elem2,
		Face:    newElementTransformation(f, 0, m.vertexCoords(face.Verts)),
		Elem1Tr: m.GetElementTransformation(face.Elem1),
		loc1:    m.sideMap(face.Elem1, face.Side1, face.Verts),
	}
	if !face.IsBoundary() {
		T.Elem2Tr = m.GetElementTransformation(face.Elem2)
		T.loc2 = m.sideMap(face.Elem2, face.Side2, face.Verts)
	}
	for b, bf := range m.bdrFace {
		if bf == f {
			T.Face.Attribute = m.BdrAttributes[b]
			break
		}
	}
	T.normal = m.outwardNormal(face)
	return
}

func (m *Mesh) sideMap(k, side int, faceVerts []int) func(ip []float64) []float64 {
	if m.Dim == 1 {
		r := -1.
		if side == 1 {
			r = 1
		}
		return func(ip []float64) []float64 { return []float64{r} }
	}
	var (
		el   = m.Elements[k]
		a, b = side, (side+1)%3
	)
	if el[a] != faceVerts[0] {
		a, b = b, a
	}
	ra, rb := refTriangle[a], refTriangle[b]
	return func(ip []float64) []float64 {
		t := 0.5 * (ip[0] + 1)
		return []float64{ra[0] + t*(rb[0]-ra[0]), ra[1] + t*(rb[1]-ra[1])}
	}
}

func (m *Mesh) outwardNormal(face Face) (n []float64) {
	var (
		el       = m.Elements[face.Elem1]
		centroid = make([]float64, m.Dim)
		mid      = make([]float64, m.Dim)
	)
	for _, v := range el {
		for d := 0; d < m.Dim; d++ {
			centroid[d] += m.Vertices[v][d] / float64(len(el))
		}
	}
	for _, v := range face.Verts {
		for d := 0; d < m.Dim; d++ {
			mid[d] += m.Vertices[v][d] / float64(len(face.Verts))
		}
	}
	n = make([]float64, m.Dim)
	if m.Dim == 1 {
		n[0] = 1
	} else {
		a, b := m.Vertices[face.Verts[0]], m.Vertices[face.Verts[1]]
		tx, ty := b[0]-a[0], b[1]-a[1]
		l := math.Hypot(tx, ty)
		n[0], n[1] = ty/l, -tx/l
	}
	var dot float64
	for d := range n {
		dot += n[d] * (mid[d] - centroid[d])
	}
	if dot < 0 {
		for d := range n {
			n[d] = -n[d]
		}
	}
	return
}
