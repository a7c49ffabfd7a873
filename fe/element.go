package fe

import (
	"fmt"

	"github.com/notargets/gobilinear/utils"
)

// FiniteElement evaluates nodal shape functions on a reference entity.
// Reference segment is [-1,1]; reference triangle is (-1,-1), (1,-1), (-1,1).
type FiniteElement interface {
	Dim() int
	Dof() int
	Order() int
	Nodes() [][]float64
	// CalcShape fills shape (len Dof) at reference point ip.
	CalcShape(ip []float64, shape []float64)
	// CalcDShape fills dshape (Dof x Dim) with reference gradients at ip.
	CalcDShape(ip []float64, dshape utils.Matrix)
}

// PointElement is the single unit shape function on a vertex.
type PointElement struct{}

func (PointElement) Dim() int           { return 0 }
func (PointElement) Dof() int           { return 1 }
func (PointElement) Order() int         { return 0 }
func (PointElement) Nodes() [][]float64 { return [][]float64{{}} }

func (PointElement) CalcShape(ip []float64, shape []float64) { shape[0] = 1 }

func (PointElement) CalcDShape(ip []float64, dshape utils.Matrix) {}

/*
SegmentElement is the Lagrange element of order P on Gauss-Lobatto nodes.

Node ordering is vertices first, then interior nodes in increasing r:

	r = -1, r = +1, r_1 < r_2 < ... < r_{P-1}

so that the vertex nodes can be shared by neighbors in a continuous space.
Order 0 has a single node at the midpoint.
*/
type SegmentElement struct {
	order int
	r     []float64
}

func NewSegmentElement(order int) (el *SegmentElement) {
	if order < 0 {
		panic(fmt.Errorf("segment element order must be >= 0, have %d", order))
	}
	el = &SegmentElement{order: order}
	gl := JacobiGL(0, 0, order)
	if order == 0 {
		el.r = gl
		return
	}
	el.r = append(el.r, gl[0], gl[order])
	el.r = append(el.r, gl[1:order]...)
	return
}

func (el *SegmentElement) Dim() int   { return 1 }
func (el *SegmentElement) Dof() int   { return el.order + 1 }
func (el *SegmentElement) Order() int { return el.order }

func (el *SegmentElement) Nodes() (X [][]float64) {
	X = make([][]float64, len(el.r))
	for i, r := range el.r {
		X[i] = []float64{r}
	}
	return
}

func (el *SegmentElement) CalcShape(ip []float64, shape []float64) {
	var (
		x = ip[0]
	)
	for i, ri := range el.r {
		val := 1.
		for j, rj := range el.r {
			if j != i {
				val *= (x - rj) / (ri - rj)
			}
		}
		shape[i] = val
	}
}

func (el *SegmentElement) CalcDShape(ip []float64, dshape utils.Matrix) {
	var (
		x = ip[0]
	)
	for i, ri := range el.r {
		var sum float64
		for k, rk := range el.r {
			if k == i {
				continue
			}
			term := 1. / (ri - rk)
			for j, rj := range el.r {
				if j != i && j != k {
					term *= (x - rj) / (ri - rj)
				}
			}
			sum += term
		}
		dshape.Set(i, 0, sum)
	}
}

// TriangleElement is the P0 or P1 Lagrange triangle; P1 nodes follow the vertices.
type TriangleElement struct {
	order int
}

func NewTriangleElement(order int) *TriangleElement {
	if order < 0 || order > 1 {
		panic(fmt.Errorf("triangle element supports order 0 and 1, have %d", order))
	}
	return &TriangleElement{order: order}
}

func (el *TriangleElement) Dim() int   { return 2 }
func (el *TriangleElement) Order() int { return el.order }

func (el *TriangleElement) Dof() int {
	if el.order == 0 {
		return 1
	}
	return 3
}

func (el *TriangleElement) Nodes() [][]float64 {
	if el.order == 0 {
		return [][]float64{{-1. / 3, -1. / 3}}
	}
	return [][]float64{{-1, -1}, {1, -1}, {-1, 1}}
}

func (el *TriangleElement) CalcShape(ip []float64, shape []float64) {
	if el.order == 0 {
		shape[0] = 1
		return
	}
	r, s := ip[0], ip[1]
	shape[0] = -0.5 * (r + s)
	shape[1] = 0.5 * (1 + r)
	shape[2] = 0.5 * (1 + s)
}

func (el *TriangleElement) CalcDShape(ip []float64, dshape utils.Matrix) {
	if el.order == 0 {
		dshape.Set(0, 0, 0).Set(0, 1, 0)
		return
	}
	dshape.Set(0, 0, -0.5).Set(0, 1, -0.5)
	dshape.Set(1, 0, 0.5).Set(1, 1, 0)
	dshape.Set(2, 0, 0).Set(2, 1, 0.5)
}
