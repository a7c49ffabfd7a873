package assembly

import (
	"fmt"
	"log"

	"github.com/notargets/gobilinear/utils"
)

type EliminationState uint8

const (
	Unconstrained        EliminationState = iota
	ConstrainedCached                     // removed couplings kept in A_e
	ConstrainedCollapsed                  // removed couplings discarded
)

func (s EliminationState) String() string {
	switch s {
	case Unconstrained:
		return "Unconstrained"
	case ConstrainedCached:
		return "ConstrainedCached"
	case ConstrainedCollapsed:
		return "ConstrainedCollapsed"
	}
	return fmt.Sprintf("EliminationState(%d)", int(s))
}

// EliminationPolicy decides what an eliminated row keeps on its diagonal.
type EliminationPolicy struct {
	preserve bool
	value    float64
}

// SetDiagonal replaces the diagonal of each eliminated row with v.
func SetDiagonal(v float64) EliminationPolicy { return EliminationPolicy{value: v} }

// PreserveDiagonal keeps the assembled diagonal of each eliminated row.
func PreserveDiagonal() EliminationPolicy { return EliminationPolicy{preserve: true} }

func (p EliminationPolicy) Preserve() bool { return p.preserve }

func (p EliminationPolicy) String() string {
	if p.preserve {
		return "PreserveDiagonal"
	}
	return fmt.Sprintf("SetDiagonal(%g)", p.value)
}

/*
PendingCorrection is the right hand side adjustment left over by a deferred
elimination. Apply performs, for any (sol, rhs) pair,

	rhs[i] -= A_e[i,j] * sol[j]   for unconstrained i, constrained j
	rhs[j]  = A[j,j] * sol[j]     for constrained j

in the same order as immediate elimination, so both give identical results.
*/
type PendingCorrection struct {
	ae     *utils.SparseMatrix
	marked []bool
	dofs   utils.Index
	diag   []float64
}

// Dofs lists the constrained DOFs, sorted.
func (pc *PendingCorrection) Dofs() utils.Index { return pc.dofs }

// Coupling returns the couplings removed by this elimination.
func (pc *PendingCorrection) Coupling() *utils.SparseMatrix { return pc.ae }

func (pc *PendingCorrection) Apply(sol, rhs []float64) {
	n := len(pc.marked)
	if len(sol) != n || len(rhs) != n {
		panic(fmt.Errorf("correction for size %d applied to len(sol) = %d, len(rhs) = %d", n, len(sol), len(rhs)))
	}
	subtractCouplings(pc.ae, pc.marked, sol, rhs)
	for k, j := range pc.dofs {
		rhs[j] = pc.diag[k] * sol[j]
	}
}

func subtractCouplings(Ae *utils.SparseMatrix, marked []bool, sol, rhs []float64) {
	for i := range marked {
		if marked[i] {
			continue
		}
		Ae.RowNonZeros(i, func(j int, a float64) {
			if marked[j] {
				rhs[i] -= a * sol[j]
			}
		})
	}
}

func (b *BilinearForm) EliminationState() EliminationState { return b.state }

// EliminateVDofs constrains dofs to sol immediately: the right hand side of the
// unconstrained rows absorbs the removed columns, rows and columns of dofs are
// zeroed except the diagonal, and rhs[i] = A[i,i] * sol[i] for each constrained i.
// sol and rhs may both be nil to only modify the matrix. Duplicates are ignored.
func (b *BilinearForm) EliminateVDofs(dofs []int, sol, rhs []float64, policy EliminationPolicy) {
	b.mustBeAssembled()
	marked := markerFromList(dofs, b.Height())
	b.mat.EliminateRowsCols(marked, !policy.preserve, policy.value, sol, rhs, nil)
	if b.state == Unconstrained {
		b.state = ConstrainedCollapsed
	}
	if b.verbose {
		log.Printf("bilinear form: eliminated %d DOFs, %s", len(utils.Index(dofs).Unique()), policy)
	}
}

// EliminateVDofsDeferred zeroes rows and columns of dofs now and keeps the
// removed couplings, so that the right hand side can be corrected later, for
// as many (sol, rhs) pairs as needed.
func (b *BilinearForm) EliminateVDofsDeferred(dofs []int, policy EliminationPolicy) (pc *PendingCorrection) {
	b.mustBeAssembled()
	var (
		n      = b.Height()
		marked = markerFromList(dofs, n)
		Ae     = utils.NewSparseMatrix(n, n).SetName("Ae")
	)
	b.mat.EliminateRowsCols(marked, !policy.preserve, policy.value, nil, nil, Ae)
	if err := Ae.Finalize(false); err != nil {
		panic(err)
	}
	if b.matE == nil {
		b.matE = Ae
	} else {
		b.matE = b.matE.Plus(Ae).SetName("Ae")
	}
	b.state = ConstrainedCached
	pc = &PendingCorrection{
		ae:     Ae,
		marked: marked,
		dofs:   utils.MarkerToList(boolMarker(marked)),
	}
	pc.diag = make([]float64, len(pc.dofs))
	for k, j := range pc.dofs {
		pc.diag[k] = b.mat.At(j, j)
	}
	if b.verbose {
		log.Printf("bilinear form: deferred elimination of %d DOFs, %s, %d removed couplings",
			len(pc.dofs), policy, Ae.NNZ())
	}
	return
}

// EliminateVDofsInRHS applies the couplings stored by earlier deferred
// eliminations: rhs -= A_e sol over the unconstrained rows, then
// rhs[i] = (A sol)[i] for i in dofs.
func (b *BilinearForm) EliminateVDofsInRHS(dofs []int, sol, rhs []float64) {
	b.mustBeAssembled()
	if b.matE == nil {
		panic(fmt.Errorf("bilinear form: no deferred elimination to apply"))
	}
	var (
		n      = b.Height()
		marked = markerFromList(dofs, n)
	)
	if len(sol) != n || len(rhs) != n {
		panic(fmt.Errorf("rhs elimination for size %d with len(sol) = %d, len(rhs) = %d", n, len(sol), len(rhs)))
	}
	subtractCouplings(b.matE, marked, sol, rhs)
	b.mat.PartMult(utils.MarkerToList(boolMarker(marked)), sol, rhs)
}

// EliminateEssentialBCFromDofs eliminates every DOF with marker[i] < 0.
func (b *BilinearForm) EliminateEssentialBCFromDofs(marker []int, sol, rhs []float64, policy EliminationPolicy) {
	b.mustBeAssembled()
	markerFromInts(marker, b.Height())
	b.EliminateVDofs(utils.MarkerToList(marker), sol, rhs, policy)
}

func (b *BilinearForm) EliminateEssentialBCFromDofsDeferred(marker []int, policy EliminationPolicy) *PendingCorrection {
	b.mustBeAssembled()
	markerFromInts(marker, b.Height())
	return b.EliminateVDofsDeferred(utils.MarkerToList(marker), policy)
}

// EliminateEssentialBC eliminates the DOFs on boundary elements whose attribute
// a has bdrAttrIsEss[a-1] set.
func (b *BilinearForm) EliminateEssentialBC(bdrAttrIsEss []bool, sol, rhs []float64, policy EliminationPolicy) {
	b.EliminateEssentialBCFromDofs(b.essentialMarker(bdrAttrIsEss), sol, rhs, policy)
}

func (b *BilinearForm) EliminateEssentialBCDeferred(bdrAttrIsEss []bool, policy EliminationPolicy) *PendingCorrection {
	return b.EliminateEssentialBCFromDofsDeferred(b.essentialMarker(bdrAttrIsEss), policy)
}

// essentialMarker returns the marker in the numbering of the current matrix,
// restricted to the conforming DOFs after ConformingAssemble.
func (b *BilinearForm) essentialMarker(bdrAttrIsEss []bool) (marker []int) {
	b.mustBeAssembled()
	marker = b.fes.GetEssentialVDofs(bdrAttrIsEss)
	R := b.fes.GetConformingRestriction()
	if !b.projected || R == nil {
		return
	}
	nt, _ := R.Dims()
	tmarker := make([]int, nt)
	R.DoNonZero(func(t, i int, v float64) {
		if v != 0 && marker[i] < 0 {
			tmarker[t] = -1
		}
	})
	return tmarker
}

func boolMarker(marked []bool) (marker []int) {
	marker = make([]int, len(marked))
	for i, m := range marked {
		if m {
			marker[i] = -1
		}
	}
	return
}
