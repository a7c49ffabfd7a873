package assembly

import (
	"errors"
	"fmt"
	"log"

	"github.com/notargets/gobilinear/fespace"
	"github.com/notargets/gobilinear/types"
	"github.com/notargets/gobilinear/utils"
)

/*
BilinearForm assembles the square matrix of a(u,v) over one space.

Four integrator collections contribute, each invoked in registration order:
domain elements, boundary elements, interior faces and boundary faces.
Contributions to one global entry are summed in a canonical order fixed by
(entity kind, entity number, local row, local column), so the assembled matrix
is bit-for-bit the same for any traversal order. With precomputed sparsity the
values are written straight into the compact storage and the traversal order
only affects rounding.

After elimination the assembled operator is split in two: A = A_d + A_e, with
A_d the matrix returned by SpMat and A_e the removed couplings (SpMatElim),
kept only by deferred elimination.
*/
type BilinearForm struct {
	fes        DofProvider
	mat, matE  *utils.SparseMatrix
	generation int

	domainIntegs       []ElementIntegrator
	bdrIntegs          []ElementIntegrator
	interiorFaceIntegs []FaceIntegrator
	bdrFaceIntegs      []FaceIntegrator

	cache             *elementMatrixCache
	parallelDegree    int
	precompute        bool
	pattern           [][]int
	patternGeneration int
	skipZeros         bool
	projected         bool
	state             EliminationState
	verbose           bool
}

func NewBilinearForm(fes DofProvider) (b *BilinearForm) {
	b = &BilinearForm{
		fes:        fes,
		generation: fes.Generation(),
	}
	return
}

func (b *BilinearForm) SetVerbose(verbose bool) { b.verbose = verbose }

func (b *BilinearForm) FESpace() DofProvider { return b.fes }

func (b *BilinearForm) AddDomainIntegrator(bfi ElementIntegrator) {
	b.domainIntegs = append(b.domainIntegs, bfi)
	b.pattern = nil
}

func (b *BilinearForm) AddBoundaryIntegrator(bfi ElementIntegrator) {
	b.bdrIntegs = append(b.bdrIntegs, bfi)
	b.pattern = nil
}

func (b *BilinearForm) AddInteriorFaceIntegrator(bfi FaceIntegrator) {
	b.interiorFaceIntegs = append(b.interiorFaceIntegs, bfi)
	b.pattern = nil
}

func (b *BilinearForm) AddBdrFaceIntegrator(bfi FaceIntegrator) {
	b.bdrFaceIntegs = append(b.bdrFaceIntegs, bfi)
	b.pattern = nil
}

// UsePrecomputedSparsity makes Assemble build the compact sparsity pattern up
// front from the DOF lists and write values directly into it.
func (b *BilinearForm) UsePrecomputedSparsity(use bool) { b.precompute = use }

// Height, Width and Size report the current operator size: the number of DOFs,
// or of conforming DOFs after ConformingAssemble.
func (b *BilinearForm) Height() int {
	if b.mat != nil {
		nr, _ := b.mat.Dims()
		return nr
	}
	return b.fes.GetVSize()
}

func (b *BilinearForm) Width() int { return b.Height() }
func (b *BilinearForm) Size() int  { return b.Height() }

// AllocateMatrix creates empty storage for the current space: open, or a zero
// filled compact pattern with precomputed sparsity.
func (b *BilinearForm) AllocateMatrix() {
	n := b.fes.GetVSize()
	if b.precompute {
		if b.pattern == nil || b.patternGeneration != b.generation {
			b.pattern = b.sparsityPattern()
			b.patternGeneration = b.generation
		}
		b.mat = utils.NewSparsePattern(n, n, b.pattern)
	} else {
		b.mat = utils.NewSparseMatrix(n, n)
	}
	b.mat.SetName("A")
}

func (b *BilinearForm) sparsityPattern() (rowCols [][]int) {
	var (
		m     = b.fes.GetMesh()
		cross = func(dl fespace.DofList) {
			idx := dl.Indices()
			for _, i := range idx {
				rowCols[i] = append(rowCols[i], idx...)
			}
		}
	)
	rowCols = make([][]int, b.fes.GetVSize())
	if len(b.domainIntegs) > 0 {
		for e := 0; e < m.NumElements(); e++ {
			cross(b.fes.GetElementDofs(e))
		}
	}
	if len(b.bdrIntegs) > 0 {
		for be := 0; be < m.NumBdrElements(); be++ {
			cross(b.fes.GetBdrElementDofs(be))
		}
	}
	if len(b.interiorFaceIntegs) > 0 {
		for _, f := range m.InteriorFaces() {
			face := m.Faces[f]
			cross(fespace.Concat(b.fes.GetElementDofs(face.Elem1), b.fes.GetElementDofs(face.Elem2)))
		}
	}
	if len(b.bdrFaceIntegs) > 0 {
		for _, f := range m.BoundaryFaces() {
			cross(b.fes.GetElementDofs(m.Faces[f].Elem1))
		}
	}
	for i, cols := range rowCols {
		rowCols[i] = utils.Index(cols).Unique()
	}
	return
}

// resetMatrix readies storage for a full re-assembly. Only a pattern built from
// the DOF lists of the current generation is reused, never the pattern of a
// matrix finalized by an ordinary assembly.
func (b *BilinearForm) resetMatrix() {
	b.matE = nil
	b.projected = false
	b.state = Unconstrained
	b.AllocateMatrix()
}

// Assemble computes every local matrix and adds it into the global matrix.
// Each call re-derives the matrix from scratch.
func (b *BilinearForm) Assemble(skipZeros bool) (err error) {
	return b.AssembleOrdered(nil, skipZeros)
}

// AssembleOrdered is Assemble with the entity traversal permuted by order.
func (b *BilinearForm) AssembleOrdered(order Ordering, skipZeros bool) (err error) {
	var (
		m      = b.fes.GetMesh()
		counts [4]int
	)
	if b.generation != b.fes.Generation() {
		if b.verbose {
			log.Printf("bilinear form: space generation %d -> %d, rebuilding", b.generation, b.fes.Generation())
		}
		b.Update()
	}
	b.resetMatrix()
	b.skipZeros = skipZeros
	defer func() {
		if err != nil {
			b.mat = nil
		}
	}()

	if len(b.domainIntegs) > 0 {
		for _, e := range visit(order, types.Domain, rangeOf(m.NumElements())) {
			var elmat utils.Matrix
			if elmat, err = b.elementMatrix(e); err != nil {
				return
			}
			if err = b.AssembleElementMatrix(e, elmat, b.fes.GetElementDofs(e), skipZeros); err != nil {
				return
			}
			counts[0]++
		}
	}

	if len(b.bdrIntegs) > 0 {
		for _, be := range visit(order, types.Boundary, rangeOf(m.NumBdrElements())) {
			dofs := b.fes.GetBdrElementDofs(be)
			if len(dofs) == 0 {
				continue
			}
			var (
				el    = b.fes.GetBdrFE(be)
				T     = m.GetBdrElementTransformation(be)
				elmat utils.Matrix
			)
			elmat, err = sumElementMatrices(len(b.bdrIntegs), func(k int) utils.Matrix {
				return b.bdrIntegs[k].AssembleElementMatrix(el, T)
			})
			if err != nil {
				return
			}
			if err = b.AssembleBdrElementMatrix(be, elmat, dofs, skipZeros); err != nil {
				return
			}
			counts[1]++
		}
	}

	if len(b.interiorFaceIntegs) > 0 {
		for _, f := range visit(order, types.InteriorFace, m.InteriorFaces()) {
			var (
				T     = m.GetFaceTransformation(f)
				el1   = b.fes.GetFE(T.Elem1)
				el2   = b.fes.GetFE(T.Elem2)
				dofs  = fespace.Concat(b.fes.GetElementDofs(T.Elem1), b.fes.GetElementDofs(T.Elem2))
				elmat utils.Matrix
			)
			elmat, err = sumElementMatrices(len(b.interiorFaceIntegs), func(k int) utils.Matrix {
				return b.interiorFaceIntegs[k].AssembleFaceMatrix(el1, el2, T)
			})
			if err != nil {
				return
			}
			if err = scatter(b.mat, Accumulate, types.InteriorFace, f, elmat, dofs, dofs, skipZeros); err != nil {
				return
			}
			counts[2]++
		}
	}

	if len(b.bdrFaceIntegs) > 0 {
		for _, f := range visit(order, types.BoundaryFace, m.BoundaryFaces()) {
			var (
				T     = m.GetFaceTransformation(f)
				el1   = b.fes.GetFE(T.Elem1)
				dofs  = b.fes.GetElementDofs(T.Elem1)
				elmat utils.Matrix
			)
			elmat, err = sumElementMatrices(len(b.bdrFaceIntegs), func(k int) utils.Matrix {
				return b.bdrFaceIntegs[k].AssembleFaceMatrix(el1, nil, T)
			})
			if err != nil {
				return
			}
			if err = scatter(b.mat, Accumulate, types.BoundaryFace, f, elmat, dofs, dofs, skipZeros); err != nil {
				return
			}
			counts[3]++
		}
	}
	if b.verbose {
		log.Printf("bilinear form: assembled %d domain, %d boundary, %d interior face, %d boundary face matrices into %dx%d",
			counts[0], counts[1], counts[2], counts[3], b.Height(), b.Width())
	}
	return
}

// ComputeElementMatrix sums the domain integrators on element e.
func (b *BilinearForm) ComputeElementMatrix(e int) (elmat utils.Matrix, err error) {
	var (
		el = b.fes.GetFE(e)
		T  = b.fes.GetMesh().GetElementTransformation(e)
	)
	if len(b.domainIntegs) == 0 {
		elmat = utils.NewMatrix(el.Dof(), el.Dof())
		return
	}
	elmat, err = sumElementMatrices(len(b.domainIntegs), func(k int) utils.Matrix {
		return b.domainIntegs[k].AssembleElementMatrix(el, T)
	})
	return
}

// AssembleElementMatrix adds elmat for domain element e at the given DOFs.
func (b *BilinearForm) AssembleElementMatrix(e int, elmat utils.Matrix, dofs fespace.DofList, skipZeros bool) error {
	if b.mat == nil {
		b.AllocateMatrix()
	}
	return scatter(b.mat, Accumulate, types.Domain, e, elmat, dofs, dofs, skipZeros)
}

// AssembleBdrElementMatrix adds elmat for boundary element be at the given DOFs.
func (b *BilinearForm) AssembleBdrElementMatrix(be int, elmat utils.Matrix, dofs fespace.DofList, skipZeros bool) error {
	if b.mat == nil {
		b.AllocateMatrix()
	}
	return scatter(b.mat, Accumulate, types.Boundary, be, elmat, dofs, dofs, skipZeros)
}

// Finalize compacts the matrix and the eliminated part, if any.
func (b *BilinearForm) Finalize(skipZeros bool) (err error) {
	if b.mat == nil {
		return
	}
	if err = finalizeMatrix(b.mat, skipZeros); err != nil {
		return
	}
	if b.matE != nil {
		err = finalizeMatrix(b.matE, skipZeros)
	}
	return
}

func finalizeMatrix(A *utils.SparseMatrix, skipZeros bool) (err error) {
	if err = A.Finalize(skipZeros); errors.Is(err, utils.ErrNonFinite) {
		err = fmt.Errorf("%v: %w", err, ErrMalformedAssembly)
	}
	return
}

// mustBeAssembled panics without a matrix and finalizes an open one. Non-finite
// values pass through; only an explicit Finalize reports them.
func (b *BilinearForm) mustBeAssembled() {
	if b.mat == nil {
		panic(fmt.Errorf("bilinear form: %w", ErrNotAssembled))
	}
	if !b.mat.IsFinalized() {
		if err := b.Finalize(b.skipZeros); err != nil && !errors.Is(err, ErrMalformedAssembly) {
			panic(err)
		}
	}
}

// SpMat returns the assembled matrix, finalizing it if needed.
func (b *BilinearForm) SpMat() *utils.SparseMatrix {
	b.mustBeAssembled()
	return b.mat
}

// SpMatElim returns the couplings removed by deferred elimination, or nil.
func (b *BilinearForm) SpMatElim() *utils.SparseMatrix { return b.matE }

// HasSpMat is true while the form owns an assembled matrix.
func (b *BilinearForm) HasSpMat() bool { return b.mat != nil }

// LoseMat hands the matrix to the caller; the form no longer holds it.
func (b *BilinearForm) LoseMat() (A *utils.SparseMatrix) {
	A, b.mat = b.mat, nil
	return
}

// Elem reads entry (i,j), also while the matrix is still open.
func (b *BilinearForm) Elem(i, j int) float64 {
	if b.mat == nil {
		panic(fmt.Errorf("bilinear form: %w", ErrNotAssembled))
	}
	return b.mat.At(i, j)
}

// SetAll assigns a to every stored entry, keeping the pattern.
func (b *BilinearForm) SetAll(a float64) {
	if b.mat == nil {
		panic(fmt.Errorf("bilinear form: %w", ErrNotAssembled))
	}
	b.mat.SetAll(a)
}

func (b *BilinearForm) Mult(x, y []float64) {
	b.mustBeAssembled()
	b.mat.Mult(x, y)
}

func (b *BilinearForm) AddMult(x, y []float64, a float64) {
	b.mustBeAssembled()
	b.mat.AddMult(x, y, a)
}

func (b *BilinearForm) InnerProduct(x, y []float64) float64 {
	b.mustBeAssembled()
	return b.mat.InnerProduct(x, y)
}

// FullMult computes y = (A_d + A_e) x, the operator before deferred elimination.
func (b *BilinearForm) FullMult(x, y []float64) {
	b.mustBeAssembled()
	b.mat.Mult(x, y)
	if b.matE != nil {
		b.matE.AddMult(x, y, 1)
	}
}

// FullAddMult computes y += (A_d + A_e) x.
func (b *BilinearForm) FullAddMult(x, y []float64) {
	b.mustBeAssembled()
	b.mat.AddMult(x, y, 1)
	if b.matE != nil {
		b.matE.AddMult(x, y, 1)
	}
}

// FullInnerProduct returns x^T (A_d + A_e) y.
func (b *BilinearForm) FullInnerProduct(x, y []float64) (sum float64) {
	b.mustBeAssembled()
	sum = b.mat.InnerProduct(x, y)
	if b.matE != nil {
		sum += b.matE.InnerProduct(x, y)
	}
	return
}

// Inverse hands the assembled matrix to factory.
func (b *BilinearForm) Inverse(factory InverseFactory) (Operator, error) {
	b.mustBeAssembled()
	return factory(b.mat)
}

// Update resynchronizes the form with its space after the space changed. The
// matrix, the eliminated part, the element matrix cache and any precomputed
// pattern are dropped and rebuilt by the next Assemble.
func (b *BilinearForm) Update() {
	b.FreeElementMatrices()
	b.mat, b.matE = nil, nil
	b.pattern = nil
	b.projected = false
	b.state = Unconstrained
	b.generation = b.fes.Generation()
}
