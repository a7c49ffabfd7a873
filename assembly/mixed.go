package assembly

import (
	"errors"
	"fmt"
	"log"

	"github.com/notargets/gobilinear/fe"
	"github.com/notargets/gobilinear/fespace"
	"github.com/notargets/gobilinear/types"
	"github.com/notargets/gobilinear/utils"
)

/*
MixedBilinearForm assembles the rectangular matrix of b(u,v) with u in the
trial (domain) space and v in the test (range) space: rows follow the test
DOFs, columns the trial DOFs. Both spaces must share one mesh.

Trace integrators run over every face with the trial DOFs of the face and the
test DOFs of the element or elements on either side.
*/
type MixedBilinearForm struct {
	trial, test DofProvider
	mat         *utils.SparseMatrix
	generation  [2]int

	domainIntegs []MixedIntegrator
	bdrIntegs    []MixedIntegrator
	traceIntegs  []TraceIntegrator

	mode      InsertMode
	skipZeros bool
	projected bool
	verbose   bool
}

func NewMixedBilinearForm(trial, test DofProvider) (mb *MixedBilinearForm, err error) {
	if trial.GetMesh() != test.GetMesh() {
		err = fmt.Errorf("mixed bilinear form: %w", ErrMeshMismatch)
		return
	}
	mb = &MixedBilinearForm{
		trial:      trial,
		test:       test,
		generation: [2]int{trial.Generation(), test.Generation()},
	}
	return
}

func (mb *MixedBilinearForm) SetVerbose(verbose bool) { mb.verbose = verbose }

// SetInsertMode selects whether local matrices add into or overwrite the
// global entries.
func (mb *MixedBilinearForm) SetInsertMode(mode InsertMode) { mb.mode = mode }
func (mb *MixedBilinearForm) InsertMode() InsertMode        { return mb.mode }

func (mb *MixedBilinearForm) TrialSpace() DofProvider { return mb.trial }
func (mb *MixedBilinearForm) TestSpace() DofProvider  { return mb.test }

func (mb *MixedBilinearForm) AddDomainIntegrator(bfi MixedIntegrator) {
	mb.domainIntegs = append(mb.domainIntegs, bfi)
}

func (mb *MixedBilinearForm) AddBoundaryIntegrator(bfi MixedIntegrator) {
	mb.bdrIntegs = append(mb.bdrIntegs, bfi)
}

func (mb *MixedBilinearForm) AddTraceFaceIntegrator(bfi TraceIntegrator) {
	mb.traceIntegs = append(mb.traceIntegs, bfi)
}

func (mb *MixedBilinearForm) Height() int {
	if mb.mat != nil {
		nr, _ := mb.mat.Dims()
		return nr
	}
	return mb.test.GetVSize()
}

func (mb *MixedBilinearForm) Width() int {
	if mb.mat != nil {
		_, nc := mb.mat.Dims()
		return nc
	}
	return mb.trial.GetVSize()
}

func (mb *MixedBilinearForm) Assemble(skipZeros bool) (err error) {
	return mb.AssembleOrdered(nil, skipZeros)
}

// AssembleOrdered is Assemble with the entity traversal permuted by order.
func (mb *MixedBilinearForm) AssembleOrdered(order Ordering, skipZeros bool) (err error) {
	var (
		m      = mb.test.GetMesh()
		counts [3]int
	)
	if mb.generation != [2]int{mb.trial.Generation(), mb.test.Generation()} {
		mb.Update()
	}
	mb.mat = utils.NewSparseMatrix(mb.test.GetVSize(), mb.trial.GetVSize()).SetName("B")
	mb.projected = false
	mb.skipZeros = skipZeros
	defer func() {
		if err != nil {
			mb.mat = nil
		}
	}()

	if len(mb.domainIntegs) > 0 {
		for _, e := range visit(order, types.Domain, rangeOf(m.NumElements())) {
			var (
				trialFE, testFE = mb.trial.GetFE(e), mb.test.GetFE(e)
				T               = m.GetElementTransformation(e)
				elmat           utils.Matrix
			)
			elmat, err = sumElementMatrices(len(mb.domainIntegs), func(k int) utils.Matrix {
				return mb.domainIntegs[k].AssembleElementMatrix2(trialFE, testFE, T)
			})
			if err != nil {
				return
			}
			err = scatter(mb.mat, mb.mode, types.Domain, e, elmat,
				mb.test.GetElementDofs(e), mb.trial.GetElementDofs(e), skipZeros)
			if err != nil {
				return
			}
			counts[0]++
		}
	}

	if len(mb.bdrIntegs) > 0 {
		for _, be := range visit(order, types.Boundary, rangeOf(m.NumBdrElements())) {
			var (
				trialDofs, testDofs = mb.trial.GetBdrElementDofs(be), mb.test.GetBdrElementDofs(be)
				elmat               utils.Matrix
			)
			if len(trialDofs) == 0 || len(testDofs) == 0 {
				continue
			}
			var (
				trialFE, testFE = mb.trial.GetBdrFE(be), mb.test.GetBdrFE(be)
				T               = m.GetBdrElementTransformation(be)
			)
			elmat, err = sumElementMatrices(len(mb.bdrIntegs), func(k int) utils.Matrix {
				return mb.bdrIntegs[k].AssembleElementMatrix2(trialFE, testFE, T)
			})
			if err != nil {
				return
			}
			if err = scatter(mb.mat, mb.mode, types.Boundary, be, elmat, testDofs, trialDofs, skipZeros); err != nil {
				return
			}
			counts[1]++
		}
	}

	if len(mb.traceIntegs) > 0 {
		for _, f := range visit(order, types.TraceFace, rangeOf(m.NumFaces())) {
			trialDofs := mb.trial.GetFaceDofs(f)
			if len(trialDofs) == 0 {
				continue
			}
			var (
				T        = m.GetFaceTransformation(f)
				trialFE  = mb.trial.GetFaceFE(f)
				test1    = mb.test.GetFE(T.Elem1)
				test2    fe.FiniteElement
				testDofs = mb.test.GetElementDofs(T.Elem1)
				elmat    utils.Matrix
			)
			if !T.IsBoundary() {
				test2 = mb.test.GetFE(T.Elem2)
				testDofs = fespace.Concat(testDofs, mb.test.GetElementDofs(T.Elem2))
			}
			elmat, err = sumElementMatrices(len(mb.traceIntegs), func(k int) utils.Matrix {
				return mb.traceIntegs[k].AssembleFaceMatrix2(trialFE, test1, test2, T)
			})
			if err != nil {
				return
			}
			if err = scatter(mb.mat, mb.mode, types.TraceFace, f, elmat, testDofs, trialDofs, skipZeros); err != nil {
				return
			}
			counts[2]++
		}
	}
	if mb.verbose {
		log.Printf("mixed bilinear form (%s): assembled %d domain, %d boundary, %d trace face matrices into %dx%d",
			mb.mode, counts[0], counts[1], counts[2], mb.Height(), mb.Width())
	}
	return
}

func (mb *MixedBilinearForm) Finalize(skipZeros bool) (err error) {
	if mb.mat == nil {
		return
	}
	return finalizeMatrix(mb.mat, skipZeros)
}

func (mb *MixedBilinearForm) mustBeAssembled() {
	if mb.mat == nil {
		panic(fmt.Errorf("mixed bilinear form: %w", ErrNotAssembled))
	}
	if !mb.mat.IsFinalized() {
		if err := mb.Finalize(mb.skipZeros); err != nil && !errors.Is(err, ErrMalformedAssembly) {
			panic(err)
		}
	}
}

func (mb *MixedBilinearForm) SpMat() *utils.SparseMatrix {
	mb.mustBeAssembled()
	return mb.mat
}

func (mb *MixedBilinearForm) LoseMat() (A *utils.SparseMatrix) {
	A, mb.mat = mb.mat, nil
	return
}

func (mb *MixedBilinearForm) Elem(i, j int) float64 {
	if mb.mat == nil {
		panic(fmt.Errorf("mixed bilinear form: %w", ErrNotAssembled))
	}
	return mb.mat.At(i, j)
}

func (mb *MixedBilinearForm) SetAll(a float64) {
	if mb.mat == nil {
		panic(fmt.Errorf("mixed bilinear form: %w", ErrNotAssembled))
	}
	mb.mat.SetAll(a)
}

func (mb *MixedBilinearForm) Mult(x, y []float64) {
	mb.mustBeAssembled()
	mb.mat.Mult(x, y)
}

func (mb *MixedBilinearForm) AddMult(x, y []float64, a float64) {
	mb.mustBeAssembled()
	mb.mat.AddMult(x, y, a)
}

func (mb *MixedBilinearForm) MultTranspose(x, y []float64) {
	mb.mustBeAssembled()
	mb.mat.MultTranspose(x, y)
}

func (mb *MixedBilinearForm) AddMultTranspose(x, y []float64, a float64) {
	mb.mustBeAssembled()
	mb.mat.AddMultTranspose(x, y, a)
}

func (mb *MixedBilinearForm) Inverse(factory InverseFactory) (Operator, error) {
	mb.mustBeAssembled()
	return factory(mb.mat)
}

// GetBlocks splits the matrix into vdimTest x vdimTrial equal blocks, the
// layout of a vector space ordered component by component.
func (mb *MixedBilinearForm) GetBlocks(vdimTest, vdimTrial int) (blocks [][]*utils.SparseMatrix, err error) {
	mb.mustBeAssembled()
	var (
		nr, nc = mb.mat.Dims()
	)
	if vdimTest < 1 || vdimTrial < 1 || nr%vdimTest != 0 || nc%vdimTrial != 0 {
		err = fmt.Errorf("cannot split a %dx%d matrix into %dx%d blocks", nr, nc, vdimTest, vdimTrial)
		return
	}
	var (
		bh, bw = nr / vdimTest, nc / vdimTrial
		dok    = make([][]utils.DOK, vdimTest)
	)
	for bi := range dok {
		dok[bi] = make([]utils.DOK, vdimTrial)
		for bj := range dok[bi] {
			dok[bi][bj] = utils.NewDOK(bh, bw)
		}
	}
	mb.mat.DoNonZero(func(i, j int, v float64) {
		dok[i/bh][j/bw].Set(i%bh, j%bw, v)
	})
	blocks = make([][]*utils.SparseMatrix, vdimTest)
	for bi := range dok {
		blocks[bi] = make([]*utils.SparseMatrix, vdimTrial)
		for bj := range dok[bi] {
			blocks[bi][bj] = dok[bi][bj].ToSparseMatrix(fmt.Sprintf("B(%d,%d)", bi, bj))
		}
	}
	return
}

// ConformingAssemble replaces B with Ptest^T B Ptrial, skipping the side whose
// space is conforming.
func (mb *MixedBilinearForm) ConformingAssemble() (err error) {
	mb.mustBeAssembled()
	if mb.projected {
		return fmt.Errorf("mixed bilinear form: %w", ErrAlreadyProjected)
	}
	var (
		Ptest  = mb.test.GetConformingProlongation()
		Ptrial = mb.trial.GetConformingProlongation()
		B      = mb.mat
		nr, nc = B.Dims()
	)
	if Ptest == nil && Ptrial == nil {
		return
	}
	if Ptrial != nil {
		if r, _ := Ptrial.Dims(); r != nc {
			return fmt.Errorf("trial prolongation has %d rows, operator has %d columns: %w", r, nc, ErrProlongationShape)
		}
		B = B.Mul(Ptrial)
	}
	if Ptest != nil {
		if r, _ := Ptest.Dims(); r != nr {
			return fmt.Errorf("test prolongation has %d rows, operator has %d rows: %w", r, nr, ErrProlongationShape)
		}
		B = Ptest.Transpose().Mul(B)
	}
	mb.mat = B.SetName("B")
	mb.projected = true
	return
}

// EliminateTrialDofs moves the columns of essential trial DOFs to the right
// hand side, rhs -= B[:,j] sol[j], and zeroes them.
func (mb *MixedBilinearForm) EliminateTrialDofs(bdrAttrIsEss []bool, sol, rhs []float64) {
	mb.EliminateEssentialBCFromTrialDofs(mb.trial.GetEssentialVDofs(bdrAttrIsEss), sol, rhs)
}

// EliminateEssentialBCFromTrialDofs is EliminateTrialDofs for an explicit
// trial marker, marker[j] < 0 meaning essential.
func (mb *MixedBilinearForm) EliminateEssentialBCFromTrialDofs(marker []int, sol, rhs []float64) {
	mb.mustBeAssembled()
	mb.mat.EliminateCols(markerFromInts(marker, mb.Width()), sol, rhs)
}

// EliminateTestDofs zeroes the rows of essential test DOFs.
func (mb *MixedBilinearForm) EliminateTestDofs(bdrAttrIsEss []bool) {
	mb.mustBeAssembled()
	marker := mb.test.GetEssentialVDofs(bdrAttrIsEss)
	for _, i := range utils.MarkerToList(marker) {
		mb.mat.EliminateRow(i)
	}
}

// Update drops the matrix after a change of either space.
func (mb *MixedBilinearForm) Update() {
	mb.mat = nil
	mb.projected = false
	mb.generation = [2]int{mb.trial.Generation(), mb.test.Generation()}
}

// DiscreteLinearOperator is a mixed form in Overwrite mode whose integrators
// are interpolators: entries shared by neighboring elements are set, not summed.
type DiscreteLinearOperator struct {
	*MixedBilinearForm
}

func NewDiscreteLinearOperator(domain, rangeSpace DofProvider) (dlo *DiscreteLinearOperator, err error) {
	var mb *MixedBilinearForm
	if mb, err = NewMixedBilinearForm(domain, rangeSpace); err != nil {
		return
	}
	mb.SetInsertMode(Overwrite)
	dlo = &DiscreteLinearOperator{mb}
	return
}

func (dlo *DiscreteLinearOperator) AddDomainInterpolator(di MixedIntegrator) {
	dlo.AddDomainIntegrator(di)
}

func (dlo *DiscreteLinearOperator) AddTraceFaceInterpolator(di TraceIntegrator) {
	dlo.AddTraceFaceIntegrator(di)
}
