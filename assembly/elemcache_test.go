package assembly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gobilinear/fe"
	"github.com/notargets/gobilinear/fespace"
	"github.com/notargets/gobilinear/integrators"
	"github.com/notargets/gobilinear/mesh"
	"github.com/notargets/gobilinear/utils"
)

// countingMass is a unit mass integrator that counts its invocations.
type countingMass struct {
	calls *int
}

func (cm countingMass) AssembleElementMatrix(el fe.FiniteElement, T *mesh.ElementTransformation) utils.Matrix {
	*cm.calls++
	return integrators.Mass{}.AssembleElementMatrix(el, T)
}

// coupling has a unit diagonal and *off everywhere else.
type coupling struct {
	off *float64
}

func (c coupling) AssembleElementMatrix(el fe.FiniteElement, T *mesh.ElementTransformation) utils.Matrix {
	n := el.Dof()
	elmat := utils.NewMatrix(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				elmat.Set(i, j, 1)
			} else {
				elmat.Set(i, j, *c.off)
			}
		}
	}
	return elmat
}

func rectangleForm(t *testing.T, fes *fespace.Space) (b *BilinearForm) {
	b = NewBilinearForm(fes)
	b.AddDomainIntegrator(integrators.Diffusion{Q: func(x []float64) float64 { return 1 + x[0] }})
	b.AddDomainIntegrator(integrators.Mass{})
	b.AddBoundaryIntegrator(integrators.Mass{Q: integrators.Constant(4)})
	return
}

func TestElementMatrixCache(t *testing.T) {
	m, err := mesh.NewRectangle(3, 3, 0, 1, 0, 1)
	require.NoError(t, err)
	fes, err := fespace.NewH1(m, 1)
	require.NoError(t, err)

	ref := rectangleForm(t, fes)
	require.NoError(t, ref.Assemble(false))

	b := rectangleForm(t, fes)
	b.SetVerbose(true)
	assert.False(t, b.HasElementMatrices())
	require.NoError(t, b.ComputeElementMatrices())
	assert.True(t, b.HasElementMatrices())
	require.NoError(t, b.Assemble(false))
	assert.True(t, ref.SpMat().Equal(b.SpMat()))

	// cached matrices are shared and read only
	e0, err := b.ElementMatrix(0)
	require.NoError(t, err)
	assert.Panics(t, func() { e0.Set(0, 0, 1) })
	fresh, err := ref.ElementMatrix(0)
	require.NoError(t, err)
	assert.Equal(t, fresh.RawMatrix().Data, e0.RawMatrix().Data)

	// a second assembly gives the same matrix again
	require.NoError(t, b.Assemble(false))
	assert.True(t, ref.SpMat().Equal(b.SpMat()))

	// the cache does not outlive a change of the space
	require.NoError(t, m.Touch())
	assert.True(t, fes.Update())
	assert.False(t, b.HasElementMatrices())
	require.NoError(t, b.Assemble(false))
	assert.False(t, b.HasElementMatrices())
	require.NoError(t, ref.Assemble(false))
	assert.True(t, ref.SpMat().Equal(b.SpMat()))

	b.FreeElementMatrices()
	assert.False(t, b.HasElementMatrices())

	// the split over goroutines does not change the matrices
	for _, np := range []int{1, 4, 64} {
		bp := rectangleForm(t, fes)
		bp.SetParallelDegree(np)
		require.NoError(t, bp.ComputeElementMatrices())
		require.NoError(t, bp.Assemble(false))
		assert.True(t, ref.SpMat().Equal(bp.SpMat()))
	}
}

func TestElementMatrixReuse(t *testing.T) {
	var (
		m      = mesh.NewLine(5, 0, 1)
		fes, _ = fespace.NewH1(m, 2)
		calls  int
		b      = NewBilinearForm(fes)
	)
	b.AddDomainIntegrator(countingMass{calls: &calls})
	// reading an element matrix without a cache computes it and keeps nothing
	_, err := b.ElementMatrix(2)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, b.HasElementMatrices())

	require.NoError(t, b.ComputeElementMatrices())
	assert.Equal(t, 1+m.NumElements(), calls)
	require.NoError(t, b.Assemble(false))
	require.NoError(t, b.Assemble(true))
	_, err = b.ElementMatrix(2)
	require.NoError(t, err)
	assert.Equal(t, 1+m.NumElements(), calls)

	b.FreeElementMatrices()
	require.NoError(t, b.Assemble(false))
	assert.Equal(t, 1+2*m.NumElements(), calls)
}

func TestPrecomputedSparsity(t *testing.T) {
	m, err := mesh.NewRectangle(4, 3, 0, 2, 0, 1)
	require.NoError(t, err)
	for _, build := range []func(*mesh.Mesh, int) (*fespace.Space, error){fespace.NewH1, fespace.NewL2} {
		fes, err := build(m, 1)
		require.NoError(t, err)
		var (
			ref = rectangleForm(t, fes)
			b   = rectangleForm(t, fes)
		)
		if fes.Kind() == fespace.L2 {
			ref.AddInteriorFaceIntegrator(integrators.JumpPenalty{Sigma: 2})
			b.AddInteriorFaceIntegrator(integrators.JumpPenalty{Sigma: 2})
		}
		b.UsePrecomputedSparsity(true)
		require.NoError(t, ref.Assemble(false))
		for pass := 0; pass < 2; pass++ {
			require.NoError(t, b.AssembleOrdered(reverse, false))
			A, B := ref.SpMat(), b.SpMat()
			assert.Equal(t, A.NNZ(), B.NNZ())
			A.DoNonZero(func(i, j int, v float64) {
				assert.InDelta(t, v, B.At(i, j), 1.e-14)
			})
		}
		// elimination works on the precomputed storage as well
		b.EliminateVDofs([]int{0}, nil, nil, SetDiagonal(1))
		assert.Equal(t, 1., b.Elem(0, 0))
	}
}

func TestPrecomputedAfterOrdinaryAssembly(t *testing.T) {
	var (
		m      = mesh.NewLine(2, 0, 1)
		fes, _ = fespace.NewH1(m, 1)
		off    float64
		b      = NewBilinearForm(fes)
	)
	b.AddDomainIntegrator(coupling{off: &off})
	// zero couplings are dropped by skipZeros, leaving only the diagonal
	require.NoError(t, b.Assemble(true))
	assert.Equal(t, 3, b.SpMat().NNZ())

	// the precomputed pattern comes from the DOF lists, not the previous matrix
	b.UsePrecomputedSparsity(true)
	off = 0.5
	for pass := 0; pass < 2; pass++ {
		require.NoError(t, b.Assemble(false))
		assert.Equal(t, 7, b.SpMat().NNZ())
		assert.Equal(t, 0.5, b.Elem(0, 1))
		assert.Equal(t, 0.5, b.Elem(2, 1))
		assert.Equal(t, 2., b.Elem(1, 1))
	}
	// registering another kind of integrator rebuilds the pattern
	b.AddBoundaryIntegrator(integrators.Mass{})
	require.NoError(t, b.Assemble(false))
	assert.Equal(t, 4., b.Elem(0, 0)+b.Elem(2, 2))
}

func TestUpdateRebuilds(t *testing.T) {
	m := mesh.NewLine(4, 0, 1)
	fes, _ := fespace.NewH1(m, 1)
	b := poissonForm(t, fes)
	pc := b.EliminateVDofsDeferred([]int{0}, SetDiagonal(1))
	assert.NotNil(t, pc.Coupling())
	assert.NotNil(t, b.SpMatElim())

	require.NoError(t, m.Touch())
	fes.Update()
	b.Update()
	assert.False(t, b.HasSpMat())
	assert.Nil(t, b.SpMatElim())
	assert.Equal(t, Unconstrained, b.EliminationState())
	require.NoError(t, b.Assemble(false))
	assert.Equal(t, Unconstrained, b.EliminationState())
	assert.NotEqual(t, 1., b.Elem(0, 0))
}
