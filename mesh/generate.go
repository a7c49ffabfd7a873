package mesh

import (
	"fmt"
	"math"

	"github.com/pradeep-pyro/triangle"
)

// Boundary attributes assigned by the generators.
const (
	LineLeft  = 1
	LineRight = 2

	RectBottom = 1
	RectRight  = 2
	RectTop    = 3
	RectLeft   = 4
)

// NewLine splits [xmin, xmax] into K equal segments.
func NewLine(K int, xmin, xmax float64) (m *Mesh) {
	if K < 1 {
		panic(fmt.Errorf("line mesh needs at least one element, have %d", K))
	}
	x := make([]float64, K+1)
	for i := range x {
		x[i] = xmin + (xmax-xmin)*float64(i)/float64(K)
	}
	return NewLineFromNodes(x)
}

// NewLineFromNodes builds segments between consecutive increasing coordinates.
func NewLineFromNodes(x []float64) (m *Mesh) {
	var (
		K     = len(x) - 1
		verts = make([][]float64, K+1)
		elems = make([][]int, K)
		err   error
	)
	for i, xi := range x {
		if i > 0 && xi <= x[i-1] {
			panic(fmt.Errorf("line nodes must increase, x[%d] = %v after %v", i, xi, x[i-1]))
		}
		verts[i] = []float64{xi}
	}
	for k := range elems {
		elems[k] = []int{k, k + 1}
	}
	m, err = NewMesh(1, verts, elems, nil,
		[][]int{{0}, {K}}, []int{LineLeft, LineRight})
	if err != nil {
		panic(err)
	}
	m.BdrNames[LineLeft], m.BdrNames[LineRight] = "left", "right"
	return
}

// NewRectangle triangulates an (nx+1) x (ny+1) point lattice with Delaunay and
// tags the four sides.
func NewRectangle(nx, ny int, xmin, xmax, ymin, ymax float64) (m *Mesh, err error) {
	if nx < 1 || ny < 1 {
		err = fmt.Errorf("rectangle needs at least one cell per direction, have %d x %d", nx, ny)
		return
	}
	var (
		pts   = make([][2]float64, 0, (nx+1)*(ny+1))
		verts = make([][]float64, 0, (nx+1)*(ny+1))
	)
	for j := 0; j <= ny; j++ {
		y := ymin + (ymax-ymin)*float64(j)/float64(ny)
		for i := 0; i <= nx; i++ {
			x := xmin + (xmax-xmin)*float64(i)/float64(nx)
			pts = append(pts, [2]float64{x, y})
			verts = append(verts, []float64{x, y})
		}
	}
	tris := triangle.Delaunay(pts)
	elems := make([][]int, len(tris))
	for k, tri := range tris {
		elems[k] = []int{int(tri[0]), int(tri[1]), int(tri[2])}
	}
	if m, err = NewMesh(2, verts, elems, nil, nil, nil); err != nil {
		return
	}
	var (
		tol = 1.e-10 * math.Max(xmax-xmin, ymax-ymin)
	)
	err = m.AddBoundaryFromFaces(func(mid []float64) int {
		switch {
		case math.Abs(mid[1]-ymin) < tol:
			return RectBottom
		case math.Abs(mid[0]-xmax) < tol:
			return RectRight
		case math.Abs(mid[1]-ymax) < tol:
			return RectTop
		default:
			return RectLeft
		}
	})
	m.BdrNames[RectBottom], m.BdrNames[RectRight] = "bottom", "right"
	m.BdrNames[RectTop], m.BdrNames[RectLeft] = "top", "left"
	return
}
