package integrators

import (
	"github.com/notargets/gobilinear/fe"
	"github.com/notargets/gobilinear/mesh"
	"github.com/notargets/gobilinear/utils"
)

/*
JumpPenalty assembles Sigma * ([u], [v]) over a face, where the jump is taken
as the trace from the first element minus the trace from the second:

	[u] = u1 - u2

The local matrix is ordered by the DOFs of the first element then the second.
On a boundary face only the first element contributes.
*/
type JumpPenalty struct {
	Sigma float64
}

func (ji JumpPenalty) AssembleFaceMatrix(el1, el2 fe.FiniteElement, T *mesh.FaceTransformation) (elmat utils.Matrix) {
	var (
		n1, n2 int
		order  = el1.Order()
	)
	n1 = el1.Dof()
	if !T.IsBoundary() {
		n2 = el2.Dof()
		if el2.Order() > order {
			order = el2.Order()
		}
	}
	var (
		ir     = fe.Rule(T.Face.RefDim(), 2*order)
		weight = T.Face.Weight()
		sh1    = make([]float64, n1)
		sh2    = make([]float64, n2)
		jump   = make([]float64, n1+n2)
	)
	elmat = utils.NewMatrix(n1+n2, n1+n2)
	for q, ip := range ir.Points {
		el1.CalcShape(T.Loc1(ip), sh1)
		copy(jump, sh1)
		if n2 > 0 {
			el2.CalcShape(T.Loc2(ip), sh2)
			for i, val := range sh2 {
				jump[n1+i] = -val
			}
		}
		elmat.AddOuter(ji.Sigma*ir.Weights[q]*weight, jump, jump)
	}
	return
}

// TraceJump assembles (lambda, [v]) with lambda from a trace space living on
// the face and v from the elements on either side.
type TraceJump struct{}

func (TraceJump) AssembleFaceMatrix2(trialFace, test1, test2 fe.FiniteElement, T *mesh.FaceTransformation) (elmat utils.Matrix) {
	var (
		n1, n2 = test1.Dof(), 0
		nt     = trialFace.Dof()
		order  = trialFace.Order() + test1.Order()
	)
	if !T.IsBoundary() {
		n2 = test2.Dof()
	}
	var (
		ir     = fe.Rule(T.Face.RefDim(), order)
		weight = T.Face.Weight()
		shT    = make([]float64, nt)
		sh1    = make([]float64, n1)
		sh2    = make([]float64, n2)
		jump   = make([]float64, n1+n2)
	)
	elmat = utils.NewMatrix(n1+n2, nt)
	for q, ip := range ir.Points {
		trialFace.CalcShape(ip, shT)
		test1.CalcShape(T.Loc1(ip), sh1)
		copy(jump, sh1)
		if n2 > 0 {
			test2.CalcShape(T.Loc2(ip), sh2)
			for i, val := range sh2 {
				jump[n1+i] = -val
			}
		}
		elmat.AddOuter(ir.Weights[q]*weight, jump, shT)
	}
	return
}
