package assembly

import (
	"fmt"
	"log"

	"github.com/notargets/gobilinear/utils"
)

/*
ProjectOperator reduces A to the conforming bases of its test and trial spaces:

	A_c = Ptest^T A Ptrial

Square results carry an explicit diagonal, like any assembled square matrix.
*/
func ProjectOperator(A, Ptest, Ptrial *utils.SparseMatrix) (R *utils.SparseMatrix, err error) {
	var (
		nr, nc = A.Dims()
		pr, _  = Ptest.Dims()
		qr, _  = Ptrial.Dims()
	)
	if pr != nr || qr != nc {
		err = fmt.Errorf("operator \"%s\" is %dx%d, prolongations have %d and %d rows: %w",
			A.Name(), nr, nc, pr, qr, ErrProlongationShape)
		return
	}
	R = Ptest.Transpose().Mul(A.Mul(Ptrial))
	if r, c := R.Dims(); r == c {
		R = R.Plus(utils.NewSparsePattern(r, c, make([][]int, r)))
	}
	R.SetName(A.Name())
	return
}

// ConformingAssemble replaces A with P^T A P, P the conforming prolongation of
// the space; nothing happens for a conforming space. The eliminated part is
// projected too. A second call returns ErrAlreadyProjected.
func (b *BilinearForm) ConformingAssemble() (err error) {
	b.mustBeAssembled()
	if b.projected {
		return fmt.Errorf("bilinear form: %w", ErrAlreadyProjected)
	}
	P := b.fes.GetConformingProlongation()
	if P == nil {
		return
	}
	var (
		A, Ae *utils.SparseMatrix
	)
	if A, err = ProjectOperator(b.mat, P, P); err != nil {
		return
	}
	if b.matE != nil {
		if Ae, err = ProjectOperator(b.matE, P, P); err != nil {
			return
		}
	}
	b.mat, b.matE = A, Ae
	b.projected = true
	if b.verbose {
		n, _ := P.Dims()
		log.Printf("bilinear form: projected %dx%d onto %dx%d conforming DOFs", n, n, b.Height(), b.Width())
	}
	return
}

// IsProjected is true after ConformingAssemble reduced a non-conforming space.
func (b *BilinearForm) IsProjected() bool { return b.projected }

// ConformingAssembleSystem projects the matrix and returns the conforming
// system vectors X = R sol and B = P^T rhs.
func (b *BilinearForm) ConformingAssembleSystem(sol, rhs []float64) (X, B []float64, err error) {
	if err = b.ConformingAssemble(); err != nil {
		return
	}
	var (
		P = b.fes.GetConformingProlongation()
		R = b.fes.GetConformingRestriction()
	)
	if P == nil {
		X, B = append([]float64{}, sol...), append([]float64{}, rhs...)
		return
	}
	nt, _ := R.Dims()
	X, B = make([]float64, nt), make([]float64, nt)
	R.Mult(sol, X)
	P.MultTranspose(rhs, B)
	return
}

// RecoverSolution maps a conforming solution back onto every DOF, x = P X.
func (b *BilinearForm) RecoverSolution(X []float64) (x []float64) {
	P := b.fes.GetConformingProlongation()
	if P == nil {
		return append([]float64{}, X...)
	}
	n, _ := P.Dims()
	x = make([]float64, n)
	P.Mult(X, x)
	return
}
