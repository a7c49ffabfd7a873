// Package integrators computes local element, face and interpolation matrices
// for the assembly engine.
package integrators

import (
	"github.com/notargets/gobilinear/fe"
	"github.com/notargets/gobilinear/mesh"
	"github.com/notargets/gobilinear/utils"
)

// Coefficient is a scalar field evaluated at physical points.
type Coefficient func(x []float64) float64

func Constant(c float64) Coefficient {
	return func(x []float64) float64 { return c }
}

func (q Coefficient) eval(x []float64) float64 {
	if q == nil {
		return 1
	}
	return q(x)
}

// physicalGradient returns the Dof x SpaceDim shape gradients at ip.
func physicalGradient(el fe.FiniteElement, ip []float64, Jinv utils.Matrix) (G utils.Matrix) {
	dshape := utils.NewMatrix(el.Dof(), el.Dim())
	el.CalcDShape(ip, dshape)
	return dshape.Mul(Jinv)
}

/*
Mass assembles (Q u, v) over an element. It serves both as a domain integrator
and, on boundary elements, as the boundary mass (Robin) term. As a mixed
integrator it couples a trial and a test space on the same element.
*/
type Mass struct {
	Q          Coefficient
	ExtraOrder int
}

func (mi Mass) AssembleElementMatrix(el fe.FiniteElement, T *mesh.ElementTransformation) (elmat utils.Matrix) {
	return mi.AssembleElementMatrix2(el, el, T)
}

func (mi Mass) AssembleElementMatrix2(trial, test fe.FiniteElement, T *mesh.ElementTransformation) (elmat utils.Matrix) {
	var (
		ir     = fe.RuleFor(test, trial.Order()+test.Order()+mi.ExtraOrder)
		shTr   = make([]float64, trial.Dof())
		shTe   = make([]float64, test.Dof())
		weight = T.Weight()
	)
	elmat = utils.NewMatrix(test.Dof(), trial.Dof())
	for q, ip := range ir.Points {
		trial.CalcShape(ip, shTr)
		test.CalcShape(ip, shTe)
		elmat.AddOuter(ir.Weights[q]*weight*mi.Q.eval(T.Transform(ip)), shTe, shTr)
	}
	return
}

// Diffusion assembles (Q grad u, grad v) over a full-dimensional element.
type Diffusion struct {
	Q Coefficient
}

func (di Diffusion) AssembleElementMatrix(el fe.FiniteElement, T *mesh.ElementTransformation) (elmat utils.Matrix) {
	var (
		order  = 2 * (el.Order() - 1)
		ir     = fe.RuleFor(el, order)
		Jinv   = T.InverseJacobian()
		weight = T.Weight()
		ndof   = el.Dof()
	)
	elmat = utils.NewMatrix(ndof, ndof)
	for q, ip := range ir.Points {
		var (
			G = physicalGradient(el, ip, Jinv)
			w = ir.Weights[q] * weight * di.Q.eval(T.Transform(ip))
		)
		for d := 0; d < T.SpaceDim(); d++ {
			col := make([]float64, ndof)
			for i := range col {
				col[i] = G.At(i, d)
			}
			elmat.AddOuter(w, col, col)
		}
	}
	return
}

// MixedDerivative assembles (Q du/dx_Direction, v) with u in the trial space.
type MixedDerivative struct {
	Q         Coefficient
	Direction int
}

func (mi MixedDerivative) AssembleElementMatrix2(trial, test fe.FiniteElement, T *mesh.ElementTransformation) (elmat utils.Matrix) {
	var (
		ir     = fe.RuleFor(test, trial.Order()+test.Order())
		Jinv   = T.InverseJacobian()
		weight = T.Weight()
		shTe   = make([]float64, test.Dof())
		dTr    = make([]float64, trial.Dof())
	)
	elmat = utils.NewMatrix(test.Dof(), trial.Dof())
	for q, ip := range ir.Points {
		G := physicalGradient(trial, ip, Jinv)
		for j := range dTr {
			dTr[j] = G.At(j, mi.Direction)
		}
		test.CalcShape(ip, shTe)
		elmat.AddOuter(ir.Weights[q]*weight*mi.Q.eval(T.Transform(ip)), shTe, dTr)
	}
	return
}
