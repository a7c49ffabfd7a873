package assembly

import (
	"github.com/notargets/gobilinear/fe"
	"github.com/notargets/gobilinear/fespace"
	"github.com/notargets/gobilinear/mesh"
	"github.com/notargets/gobilinear/types"
	"github.com/notargets/gobilinear/utils"
)

// DofProvider answers, per mesh entity, which global DOFs a local matrix maps to.
type DofProvider interface {
	GetMesh() *mesh.Mesh
	GetVSize() int
	GetElementDofs(e int) fespace.DofList
	GetBdrElementDofs(b int) fespace.DofList
	GetFaceDofs(f int) fespace.DofList
	GetFE(e int) fe.FiniteElement
	GetBdrFE(b int) fe.FiniteElement
	GetFaceFE(f int) fe.FiniteElement
	// GetConformingProlongation and GetConformingRestriction are nil for a conforming space.
	GetConformingProlongation() *utils.SparseMatrix
	GetConformingRestriction() *utils.SparseMatrix
	GetEssentialVDofs(bdrAttrIsEss []bool) (marker []int)
	Generation() int
}

// ElementIntegrator computes the square local matrix of a domain or boundary element.
type ElementIntegrator interface {
	AssembleElementMatrix(el fe.FiniteElement, T *mesh.ElementTransformation) utils.Matrix
}

// FaceIntegrator computes the local matrix of a face over the DOFs of both
// neighbors; el2 is nil on a boundary face.
type FaceIntegrator interface {
	AssembleFaceMatrix(el1, el2 fe.FiniteElement, T *mesh.FaceTransformation) utils.Matrix
}

// MixedIntegrator computes a test x trial local matrix on one element.
type MixedIntegrator interface {
	AssembleElementMatrix2(trial, test fe.FiniteElement, T *mesh.ElementTransformation) utils.Matrix
}

// TraceIntegrator couples trial DOFs on a face with the test DOFs of the
// elements on either side; test2 is nil on a boundary face.
type TraceIntegrator interface {
	AssembleFaceMatrix2(trialFace, test1, test2 fe.FiniteElement, T *mesh.FaceTransformation) utils.Matrix
}

// Operator is a linear map y = Op(x).
type Operator interface {
	Height() int
	Width() int
	Mult(x, y []float64)
}

// InverseFactory builds an (approximate) inverse of an assembled matrix.
type InverseFactory func(A *utils.SparseMatrix) (Operator, error)

// Ordering permutes the traversal of the entities of one kind. It receives the
// canonical entity numbers and returns them in the order to visit.
type Ordering func(kind types.EntityKind, ids []int) []int

type InsertMode uint8

const (
	Accumulate InsertMode = iota // entries add into the matrix
	Overwrite                    // entries replace what is already stored
)

func (m InsertMode) String() string {
	if m == Overwrite {
		return "Overwrite"
	}
	return "Accumulate"
}

func visit(order Ordering, kind types.EntityKind, ids []int) []int {
	if order == nil {
		return ids
	}
	return order(kind, append([]int{}, ids...))
}

func rangeOf(n int) []int {
	return utils.NewRange(0, n-1)
}
