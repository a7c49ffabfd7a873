package mesh

import (
	"fmt"

	"github.com/notargets/gobilinear/types"
)

// Face is a vertex (1D) or an edge (2D) shared by one or two elements.
// Verts follow the local ordering of the side of Elem1 they came from.
type Face struct {
	Verts        []int
	Elem1, Side1 int
	Elem2, Side2 int // Elem2 = -1 on the boundary
}

func (f Face) IsBoundary() bool { return f.Elem2 < 0 }

/*
Mesh holds segments (Dim = 1) or triangles (Dim = 2) with their boundary
elements and the faces between them. Attributes are 1-based.

Element sides are numbered from the element's vertex order:

	segment:  side 0 = vertex 0, side 1 = vertex 1
	triangle: side 0 = (v0,v1), side 1 = (v1,v2), side 2 = (v2,v0)

Any change to the topology must be followed by Touch, which advances the
generation seen by spaces and forms built on this mesh.
*/
type Mesh struct {
	Dim           int
	Vertices      [][]float64
	Elements      [][]int
	Attributes    []int
	BdrElements   [][]int
	BdrAttributes []int
	BdrNames      map[int]string
	Faces         []Face

	bdrFace            []int
	interior, boundary []int
	generation         int
}

func NewMesh(dim int, verts [][]float64, elems [][]int, attrs []int,
	bdrElems [][]int, bdrAttrs []int) (m *Mesh, err error) {
	if dim < 1 || dim > 2 {
		err = fmt.Errorf("mesh dimension must be 1 or 2, have %d", dim)
		return
	}
	if attrs == nil {
		attrs = make([]int, len(elems))
		for i := range attrs {
			attrs[i] = 1
		}
	}
	if len(attrs) != len(elems) || len(bdrAttrs) != len(bdrElems) {
		err = fmt.Errorf("attribute count mismatch: %d elements with %d attributes, %d boundary elements with %d attributes",
			len(elems), len(attrs), len(bdrElems), len(bdrAttrs))
		return
	}
	m = &Mesh{
		Dim:           dim,
		Vertices:      verts,
		Elements:      elems,
		Attributes:    attrs,
		BdrElements:   bdrElems,
		BdrAttributes: bdrAttrs,
		BdrNames:      make(map[int]string),
	}
	for k, el := range elems {
		if len(el) != dim+1 {
			err = fmt.Errorf("element %d has %d vertices, need %d", k, len(el), dim+1)
			return
		}
		for _, v := range el {
			if v < 0 || v > len(verts)-1 {
				err = fmt.Errorf("element %d references vertex %d, have %d vertices", k, v, len(verts))
				return
			}
		}
		if dim == 2 && m.signedArea(k) < 0 {
			el[1], el[2] = el[2], el[1]
		}
	}
	if err = m.buildFaces(); err != nil {
		return
	}
	err = m.linkBoundary()
	return
}

func (m *Mesh) NumVertices() int    { return len(m.Vertices) }
func (m *Mesh) NumElements() int    { return len(m.Elements) }
func (m *Mesh) NumBdrElements() int { return len(m.BdrElements) }
func (m *Mesh) NumFaces() int       { return len(m.Faces) }

// InteriorFaces and BoundaryFaces list face indices in increasing order.
func (m *Mesh) InteriorFaces() []int { return m.interior }
func (m *Mesh) BoundaryFaces() []int { return m.boundary }

// BdrElementFace returns the face underlying boundary element b.
func (m *Mesh) BdrElementFace(b int) int { return m.bdrFace[b] }

func (m *Mesh) MaxBdrAttribute() (max int) {
	for _, a := range m.BdrAttributes {
		if a > max {
			max = a
		}
	}
	return
}

// Generation counts topology changes; see Touch.
func (m *Mesh) Generation() int { return m.generation }

// Touch marks the mesh as changed and rebuilds the face tables.
func (m *Mesh) Touch() (err error) { // Changes receiver
	if err = m.buildFaces(); err != nil {
		return
	}
	if err = m.linkBoundary(); err != nil {
		return
	}
	m.generation++
	return
}

// AddBoundaryFromFaces creates one boundary element per boundary face, with the
// attribute chosen by classify from the face midpoint.
func (m *Mesh) AddBoundaryFromFaces(classify func(mid []float64) int) (err error) { // Changes receiver
	for _, f := range m.boundary {
		face := m.Faces[f]
		mid := make([]float64, m.Dim)
		for _, v := range face.Verts {
			for d := 0; d < m.Dim; d++ {
				mid[d] += m.Vertices[v][d] / float64(len(face.Verts))
			}
		}
		verts := make([]int, len(face.Verts))
		copy(verts, face.Verts)
		m.BdrElements = append(m.BdrElements, verts)
		m.BdrAttributes = append(m.BdrAttributes, classify(mid))
	}
	err = m.linkBoundary()
	return
}

func (m *Mesh) sideVerts(k, side int) []int {
	el := m.Elements[k]
	if m.Dim == 1 {
		return []int{el[side]}
	}
	return []int{el[side], el[(side+1)%3]}
}

func (m *Mesh) buildFaces() (err error) {
	m.Faces = m.Faces[:0]
	m.interior, m.boundary = nil, nil
	switch m.Dim {
	case 1:
		faceOf := make(map[int]int)
		for k := range m.Elements {
			for side := 0; side < 2; side++ {
				v := m.Elements[k][side]
				f, ok := faceOf[v]
				if !ok {
					faceOf[v] = len(m.Faces)
					m.Faces = append(m.Faces, Face{Verts: []int{v}, Elem1: k, Side1: side, Elem2: -1, Side2: -1})
					continue
				}
				if m.Faces[f].Elem2 >= 0 {
					err = fmt.Errorf("vertex %d is shared by more than two segments", v)
					return
				}
				m.Faces[f].Elem2, m.Faces[f].Side2 = k, side
			}
		}
	case 2:
		em := types.NewEdgeMap()
		for k, el := range m.Elements {
			for side := 0; side < 3; side++ {
				em.AddEdge([2]int{el[side], el[(side+1)%3]}, k, side)
			}
		}
		for _, key := range em.Keys {
			use := em.Uses[key]
			if use.Count > 2 {
				verts := key.GetVertices(false)
				err = fmt.Errorf("edge %v is shared by %d triangles", verts, use.Count)
				return
			}
			m.Faces = append(m.Faces, Face{
				Verts: m.sideVerts(use.Elem[0], use.Side[0]),
				Elem1: use.Elem[0], Side1: use.Side[0],
				Elem2: use.Elem[1], Side2: use.Side[1],
			})
		}
	}
	for f, face := range m.Faces {
		if face.IsBoundary() {
			m.boundary = append(m.boundary, f)
		} else {
			m.interior = append(m.interior, f)
		}
	}
	return
}

func (m *Mesh) linkBoundary() (err error) {
	lookup := make(map[types.EdgeKey]int, len(m.boundary))
	keyOf := func(verts []int) types.EdgeKey {
		if len(verts) == 1 {
			return types.NewEdgeKey([2]int{verts[0], verts[0]})
		}
		return types.NewEdgeKey([2]int{verts[0], verts[1]})
	}
	for f, face := range m.Faces {
		lookup[keyOf(face.Verts)] = f
	}
	m.bdrFace = make([]int, len(m.BdrElements))
	for b, verts := range m.BdrElements {
		if len(verts) != m.Dim {
			err = fmt.Errorf("boundary element %d has %d vertices, need %d", b, len(verts), m.Dim)
			return
		}
		f, ok := lookup[keyOf(verts)]
		if !ok {
			err = fmt.Errorf("boundary element %d with vertices %v matches no face", b, verts)
			return
		}
		m.bdrFace[b] = f
	}
	return
}

func (m *Mesh) signedArea(k int) float64 {
	var (
		el       = m.Elements[k]
		a, b, c  = m.Vertices[el[0]], m.Vertices[el[1]], m.Vertices[el[2]]
		abx, aby = b[0] - a[0], b[1] - a[1]
		acx, acy = c[0] - a[0], c[1] - a[1]
	)
	return 0.5 * (abx*acy - aby*acx)
}
