package fespace

import (
	"fmt"
	"log"

	"github.com/notargets/gobilinear/fe"
	"github.com/notargets/gobilinear/mesh"
	"github.com/notargets/gobilinear/utils"
)

type Kind uint8

const (
	H1 Kind = iota // continuous, vertex DOFs shared between neighbors
	L2             // discontinuous, every DOF owned by one element
)

func (k Kind) String() string {
	switch k {
	case H1:
		return "H1"
	case L2:
		return "L2"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

type constraint struct {
	masters []int
	weights []float64
}

/*
Space numbers the DOFs of a Lagrange space on a mesh and answers, per entity,
which global DOFs a local matrix touches.

H1 numbering puts the vertex DOFs first (DOF v belongs to vertex v), followed
by the interior DOFs of each segment, element by element. L2 numbering is
element by element. Boundary elements and faces of an L2 space carry no DOFs.

Constraints (slave = sum of weighted masters) define the conforming
prolongation P, mapping the unconstrained DOFs onto all DOFs.
*/
type Space struct {
	mesh     *mesh.Mesh
	kind     Kind
	order    int
	elemDofs []DofList
	bdrDofs  []DofList
	faceDofs []DofList
	ndofs    int

	volFE, bdrFE, faceFE fe.FiniteElement

	constraints map[int]constraint
	P, R        *utils.SparseMatrix

	generation     int
	meshGeneration int
	Verbose        bool
}

func NewH1(m *mesh.Mesh, order int) (fes *Space, err error) {
	switch {
	case order < 1:
		err = fmt.Errorf("H1 space order must be >= 1, have %d", order)
	case m.Dim == 2 && order != 1:
		err = fmt.Errorf("H1 space on triangles supports order 1 only, have %d", order)
	}
	if err != nil {
		return
	}
	fes = newSpace(m, H1, order)
	return
}

func NewL2(m *mesh.Mesh, order int) (fes *Space, err error) {
	switch {
	case order < 0:
		err = fmt.Errorf("L2 space order must be >= 0, have %d", order)
	case m.Dim == 2 && order > 1:
		err = fmt.Errorf("L2 space on triangles supports order 0 and 1, have %d", order)
	}
	if err != nil {
		return
	}
	fes = newSpace(m, L2, order)
	return
}

func newSpace(m *mesh.Mesh, kind Kind, order int) (fes *Space) {
	fes = &Space{
		mesh:        m,
		kind:        kind,
		order:       order,
		constraints: make(map[int]constraint),
	}
	switch m.Dim {
	case 1:
		fes.volFE = fe.NewSegmentElement(order)
		if kind == H1 {
			fes.bdrFE, fes.faceFE = fe.PointElement{}, fe.PointElement{}
		}
	case 2:
		fes.volFE = fe.NewTriangleElement(order)
		if kind == H1 {
			fes.bdrFE, fes.faceFE = fe.NewSegmentElement(order), fe.NewSegmentElement(order)
		}
	}
	fes.buildDofs()
	return
}

func (fes *Space) buildDofs() {
	var (
		m    = fes.mesh
		K    = m.NumElements()
		ndof = fes.volFE.Dof()
	)
	fes.elemDofs = make([]DofList, K)
	fes.bdrDofs = make([]DofList, m.NumBdrElements())
	fes.faceDofs = make([]DofList, m.NumFaces())
	switch fes.kind {
	case L2:
		for k := 0; k < K; k++ {
			fes.elemDofs[k] = DofList(utils.NewRange(k*ndof, (k+1)*ndof-1))
		}
		for b := range fes.bdrDofs {
			fes.bdrDofs[b] = DofList{}
		}
		for f := range fes.faceDofs {
			fes.faceDofs[f] = DofList{}
		}
		fes.ndofs = K * ndof
	case H1:
		var (
			Nv       = m.NumVertices()
			nh       = len(m.Elements[0])
			interior = ndof - nh
		)
		for k, el := range m.Elements {
			dl := make(DofList, 0, ndof)
			dl = append(dl, el...)
			for i := 0; i < interior; i++ {
				dl = append(dl, Nv+k*interior+i)
			}
			fes.elemDofs[k] = dl
		}
		for b, verts := range m.BdrElements {
			fes.bdrDofs[b] = append(DofList{}, verts...)
		}
		for f, face := range m.Faces {
			fes.faceDofs[f] = append(DofList{}, face.Verts...)
		}
		fes.ndofs = Nv + K*interior
	}
	fes.meshGeneration = m.Generation()
}

func (fes *Space) GetMesh() *mesh.Mesh { return fes.mesh }
func (fes *Space) Kind() Kind          { return fes.kind }
func (fes *Space) Order() int          { return fes.order }
func (fes *Space) GetVSize() int       { return fes.ndofs }

// GetTrueVSize counts the unconstrained DOFs.
func (fes *Space) GetTrueVSize() int { return fes.ndofs - len(fes.constraints) }

func (fes *Space) GetElementDofs(k int) DofList    { return fes.elemDofs[k] }
func (fes *Space) GetBdrElementDofs(b int) DofList { return fes.bdrDofs[b] }
func (fes *Space) GetFaceDofs(f int) DofList       { return fes.faceDofs[f] }

func (fes *Space) GetFE(k int) fe.FiniteElement { return fes.volFE }

// GetBdrFE and GetFaceFE return nil for an L2 space.
func (fes *Space) GetBdrFE(b int) fe.FiniteElement  { return fes.bdrFE }
func (fes *Space) GetFaceFE(f int) fe.FiniteElement { return fes.faceFE }

// Generation advances each time Update renumbers the space.
func (fes *Space) Generation() int { return fes.generation }

// Update renumbers the DOFs after a mesh change. Constraints refer to the old
// numbering and are dropped.
func (fes *Space) Update() (changed bool) { // Changes receiver
	if fes.meshGeneration == fes.mesh.Generation() {
		return
	}
	if fes.Verbose {
		log.Printf("%s space: mesh generation %d -> %d, renumbering %d DOFs",
			fes.kind, fes.meshGeneration, fes.mesh.Generation(), fes.ndofs)
	}
	fes.buildDofs()
	fes.constraints = make(map[int]constraint)
	fes.P, fes.R = nil, nil
	fes.generation++
	changed = true
	return
}

// AddConstraint ties slave to the weighted sum of masters. Masters must be
// unconstrained and a slave may be constrained only once.
func (fes *Space) AddConstraint(slave int, masters []int, weights []float64) (err error) { // Changes receiver
	inRange := func(i int) bool { return i >= 0 && i < fes.ndofs }
	switch {
	case len(masters) != len(weights):
		err = fmt.Errorf("constraint on DOF %d: %d masters with %d weights", slave, len(masters), len(weights))
	case !inRange(slave):
		err = fmt.Errorf("constraint slave %d out of range, have %d DOFs", slave, fes.ndofs)
	case fes.isSlave(slave):
		err = fmt.Errorf("DOF %d is already constrained", slave)
	case fes.isMaster(slave):
		err = fmt.Errorf("DOF %d is a master of another constraint", slave)
	}
	if err != nil {
		return
	}
	for _, m := range masters {
		if !inRange(m) || m == slave || fes.isSlave(m) {
			err = fmt.Errorf("constraint on DOF %d: invalid master %d", slave, m)
			return
		}
	}
	fes.constraints[slave] = constraint{
		masters: append([]int{}, masters...),
		weights: append([]float64{}, weights...),
	}
	fes.P, fes.R = nil, nil
	return
}

func (fes *Space) isSlave(i int) bool {
	_, ok := fes.constraints[i]
	return ok
}

func (fes *Space) isMaster(i int) bool {
	for _, c := range fes.constraints {
		for _, m := range c.masters {
			if m == i {
				return true
			}
		}
	}
	return false
}

// trueIndex maps every DOF to its conforming index, -1 for slaves.
func (fes *Space) trueIndex() (tdof []int) {
	tdof = make([]int, fes.ndofs)
	var n int
	for i := range tdof {
		if fes.isSlave(i) {
			tdof[i] = -1
			continue
		}
		tdof[i] = n
		n++
	}
	return
}

// GetConformingProlongation returns P (VSize x TrueVSize), or nil without constraints.
func (fes *Space) GetConformingProlongation() *utils.SparseMatrix {
	if len(fes.constraints) == 0 {
		return nil
	}
	if fes.P == nil {
		fes.buildConformingOperators()
	}
	return fes.P
}

// GetConformingRestriction returns the boolean R (TrueVSize x VSize) with R P = I,
// or nil without constraints.
func (fes *Space) GetConformingRestriction() *utils.SparseMatrix {
	if len(fes.constraints) == 0 {
		return nil
	}
	if fes.R == nil {
		fes.buildConformingOperators()
	}
	return fes.R
}

func (fes *Space) buildConformingOperators() {
	var (
		tdof = fes.trueIndex()
		nt   = fes.GetTrueVSize()
		P    = utils.NewDOK(fes.ndofs, nt)
		R    = utils.NewDOK(nt, fes.ndofs)
	)
	for i, t := range tdof {
		if t < 0 {
			c := fes.constraints[i]
			for k, m := range c.masters {
				P.Set(i, tdof[m], P.At(i, tdof[m])+c.weights[k])
			}
			continue
		}
		P.Set(i, t, 1)
		R.Set(t, i, 1)
	}
	fes.P = P.ToSparseMatrix("P")
	fes.R = R.ToSparseMatrix("R")
	if fes.Verbose {
		log.Printf("%s space: conforming prolongation %d x %d with %d constraints",
			fes.kind, fes.ndofs, nt, len(fes.constraints))
	}
}

// GetEssentialVDofs marks with -1 every DOF on a boundary element whose
// attribute a has bdrAttrIsEss[a-1] set.
func (fes *Space) GetEssentialVDofs(bdrAttrIsEss []bool) (marker []int) {
	marker = make([]int, fes.ndofs)
	for b, attr := range fes.mesh.BdrAttributes {
		if attr < 1 || attr > len(bdrAttrIsEss) || !bdrAttrIsEss[attr-1] {
			continue
		}
		dl := fes.bdrDofs[b]
		for k := range dl {
			marker[dl.Index(k)] = -1
		}
	}
	return
}

// GetEssentialTrueDofs lists the essential DOFs in conforming numbering.
func (fes *Space) GetEssentialTrueDofs(bdrAttrIsEss []bool) (ess utils.Index) {
	var (
		marker = fes.GetEssentialVDofs(bdrAttrIsEss)
		tdof   = fes.trueIndex()
	)
	ess = utils.Index{}
	for i, val := range marker {
		if val < 0 && tdof[i] >= 0 {
			ess = append(ess, tdof[i])
		}
	}
	return
}
