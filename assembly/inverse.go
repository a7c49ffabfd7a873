package assembly

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gobilinear/utils"
)

// DenseLU solves with a dense LU factorization of the assembled matrix. It is
// meant for small systems and for checking results.
type DenseLU struct {
	n  int
	lu mat.LU
}

// NewDenseLU is an InverseFactory.
func NewDenseLU(A *utils.SparseMatrix) (op Operator, err error) {
	var (
		nr, nc = A.Dims()
		dlu    = &DenseLU{n: nr}
	)
	if nr != nc {
		err = fmt.Errorf("LU needs a square matrix, \"%s\" is %dx%d", A.Name(), nr, nc)
		return
	}
	dlu.lu.Factorize(A.ToDense())
	if cond := dlu.lu.Cond(); cond > 1.e15 {
		err = fmt.Errorf("matrix \"%s\" is singular to working precision, condition number %g", A.Name(), cond)
		return
	}
	op = dlu
	return
}

func (dlu *DenseLU) Height() int { return dlu.n }
func (dlu *DenseLU) Width() int  { return dlu.n }

// Mult solves A y = x.
func (dlu *DenseLU) Mult(x, y []float64) {
	if len(x) != dlu.n || len(y) != dlu.n {
		panic(fmt.Errorf("LU of size %d applied to len(x) = %d, len(y) = %d", dlu.n, len(x), len(y)))
	}
	dst := mat.NewVecDense(dlu.n, y)
	if err := dlu.lu.SolveVecTo(dst, false, mat.NewVecDense(dlu.n, append([]float64{}, x...))); err != nil {
		panic(err)
	}
}
