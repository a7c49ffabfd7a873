package assembly

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gobilinear/fespace"
	"github.com/notargets/gobilinear/integrators"
	"github.com/notargets/gobilinear/mesh"
	"github.com/notargets/gobilinear/utils"
)

func periodicLine(t *testing.T, K int) (fes *fespace.Space) {
	var err error
	fes, err = fespace.NewH1(mesh.NewLine(K, 0, 1), 1)
	require.NoError(t, err)
	require.NoError(t, fes.AddConstraint(K, []int{0}, []float64{1}))
	return
}

func identity(n int) *utils.SparseMatrix {
	I := utils.NewDOK(n, n)
	for i := 0; i < n; i++ {
		I.Set(i, i, 1)
	}
	return I.ToSparseMatrix("I")
}

func TestProjectOperator(t *testing.T) {
	fes, _ := fespace.NewH1(nonUniformLine(), 2)
	b := poissonForm(t, fes)
	A := b.SpMat()
	n := b.Height()
	{ // Identity prolongation reproduces A
		R, err := ProjectOperator(A, identity(n), identity(n))
		require.NoError(t, err)
		Ad, Rd := A.ToDense(), R.ToDense()
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				assert.InDelta(t, Ad.At(i, j), Rd.At(i, j), 1.e-15)
			}
		}
		// square results keep the diagonal
		assert.True(t, R.NNZ() >= n)
	}
	{ // Wrong number of rows
		_, err := ProjectOperator(A, identity(n-1), identity(n))
		assert.True(t, errors.Is(err, ErrProlongationShape))
		_, err = ProjectOperator(A, identity(n), identity(n+1))
		assert.True(t, errors.Is(err, ErrProlongationShape))
	}
}

func TestConformingAssemble(t *testing.T) {
	var (
		K   = 4
		h   = 1. / float64(K)
		fes = periodicLine(t, K)
		b   = NewBilinearForm(fes)
	)
	b.AddDomainIntegrator(integrators.Mass{})
	require.NoError(t, b.Assemble(false))
	assert.Equal(t, K+1, b.Height())
	require.NoError(t, b.ConformingAssemble())
	assert.True(t, b.IsProjected())
	assert.Equal(t, K, b.Height())
	assert.Equal(t, K, fes.GetTrueVSize())

	A := b.SpMat()
	assert.InDelta(t, 2*h/3, A.At(0, 0), 1.e-15)
	assert.InDelta(t, h/6, A.At(0, K-1), 1.e-15)
	assert.InDelta(t, h/6, A.At(K-1, 0), 1.e-15)
	assert.InDelta(t, h/6, A.At(0, 1), 1.e-15)
	var total float64
	A.DoNonZero(func(i, j int, v float64) { total += v })
	assert.InDelta(t, 1., total, 1.e-14)

	err := b.ConformingAssemble()
	assert.True(t, errors.Is(err, ErrAlreadyProjected))

	// after projection essential DOFs are found in conforming numbering
	b.EliminateEssentialBC([]bool{true, false}, nil, nil, SetDiagonal(1))
	assert.Equal(t, 1., A.At(0, 0))
	assert.Equal(t, 0., A.At(0, K-1))
	assert.Equal(t, 0., A.At(K-1, 0))
	assert.InDelta(t, 2*h/3, A.At(1, 1), 1.e-15)

	// a new assembly starts over on the full space
	require.NoError(t, b.Assemble(false))
	assert.False(t, b.IsProjected())
	assert.Equal(t, K+1, b.Height())
}

func TestConformingSystem(t *testing.T) {
	// periodic (u, v) + (u', v') = (1, v) has u = 1
	var (
		K   = 5
		fes = periodicLine(t, K)
		b   = NewBilinearForm(fes)
		n   = fes.GetVSize()
		sol = make([]float64, n)
		rhs = make([]float64, n)
	)
	b.SetVerbose(true)
	b.AddDomainIntegrator(integrators.Mass{})
	b.AddDomainIntegrator(integrators.Diffusion{})
	require.NoError(t, b.Assemble(true))
	// load vector of f = 1 is the row sum of the mass matrix
	mass := NewBilinearForm(fes)
	mass.AddDomainIntegrator(integrators.Mass{})
	require.NoError(t, mass.Assemble(false))
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	mass.Mult(ones, rhs)

	X, B, err := b.ConformingAssembleSystem(sol, rhs)
	require.NoError(t, err)
	assert.Equal(t, K, len(X))
	assert.Equal(t, K, len(B))
	// the slave load folds onto its master
	assert.InDelta(t, rhs[0]+rhs[K], B[0], 1.e-15)

	inv, err := b.Inverse(NewDenseLU)
	require.NoError(t, err)
	inv.Mult(B, X)
	x := b.RecoverSolution(X)
	require.Equal(t, n, len(x))
	for i := range x {
		assert.InDelta(t, 1., x[i], 1.e-12)
	}
	assert.Equal(t, x[0], x[K])

	_, _, err = b.ConformingAssembleSystem(sol, rhs)
	assert.True(t, errors.Is(err, ErrAlreadyProjected))
}

func TestConformingSpaceIsUnchanged(t *testing.T) {
	fes, _ := fespace.NewH1(mesh.NewLine(3, 0, 1), 1)
	b := poissonForm(t, fes)
	A := b.SpMat().Clone()
	X, B, err := b.ConformingAssembleSystem([]float64{1, 2, 3, 4}, []float64{5, 6, 7, 8})
	require.NoError(t, err)
	assert.False(t, b.IsProjected())
	assert.True(t, A.Equal(b.SpMat()))
	assert.Equal(t, []float64{1, 2, 3, 4}, X)
	assert.Equal(t, []float64{5, 6, 7, 8}, B)
	assert.Equal(t, X, b.RecoverSolution(X))
}
