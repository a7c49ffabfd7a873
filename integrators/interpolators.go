package integrators

import (
	"github.com/notargets/gobilinear/fe"
	"github.com/notargets/gobilinear/mesh"
	"github.com/notargets/gobilinear/utils"
)

// Identity evaluates the domain (trial) basis at the range (test) nodes, giving
// the local matrix of the nodal interpolation between two spaces.
type Identity struct{}

func (Identity) AssembleElementMatrix2(trial, test fe.FiniteElement, T *mesh.ElementTransformation) (elmat utils.Matrix) {
	var (
		shape = make([]float64, trial.Dof())
	)
	elmat = utils.NewMatrix(test.Dof(), trial.Dof())
	for i, node := range test.Nodes() {
		trial.CalcShape(node, shape)
		for j, val := range shape {
			elmat.Set(i, j, val)
		}
	}
	return
}

// Derivative interpolates du/dx_Direction of the domain basis at the range nodes.
type Derivative struct {
	Direction int
}

func (di Derivative) AssembleElementMatrix2(trial, test fe.FiniteElement, T *mesh.ElementTransformation) (elmat utils.Matrix) {
	var (
		Jinv = T.InverseJacobian()
	)
	elmat = utils.NewMatrix(test.Dof(), trial.Dof())
	for i, node := range test.Nodes() {
		G := physicalGradient(trial, node, Jinv)
		for j := 0; j < trial.Dof(); j++ {
			elmat.Set(i, j, G.At(j, di.Direction))
		}
	}
	return
}
