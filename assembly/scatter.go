package assembly

import (
	"fmt"

	"github.com/notargets/gobilinear/fespace"
	"github.com/notargets/gobilinear/types"
	"github.com/notargets/gobilinear/utils"
)

/*
scatter adds (or in Overwrite mode sets) a local matrix into A over the
Cartesian product of the row and column DOF lists. Entry (li, lj) lands on
(rows[li], cols[lj]) multiplied by the two DOF signs. Accumulated entries are
tagged with (kind, entity, li, lj), which fixes their summation order.
skipZeros only applies to accumulation: an overwritten zero still replaces the
value set by an earlier entity.
*/
func scatter(A *utils.SparseMatrix, mode InsertMode, kind types.EntityKind, entity int,
	elmat utils.Matrix, rows, cols fespace.DofList, skipZeros bool) (err error) {
	nr, nc := elmat.Dims()
	if nr != len(rows) || nc != len(cols) {
		err = fmt.Errorf("%s %d: local matrix is %dx%d, DOF lists have %d rows and %d columns: %w",
			kind, entity, nr, nc, len(rows), len(cols), ErrStructuralMismatch)
		return
	}
	for li := range rows {
		var (
			i  = rows.Index(li)
			si = rows.Sign(li)
		)
		for lj := range cols {
			v := elmat.At(li, lj)
			if skipZeros && v == 0 && mode == Accumulate {
				continue
			}
			v *= si * cols.Sign(lj)
			j := cols.Index(lj)
			switch mode {
			case Overwrite:
				A.Set(i, j, v)
			default:
				A.AddTagged(i, j, v, uint64(types.NewContributionTag(kind, entity, li, lj)))
			}
		}
	}
	return
}

// sumElementMatrices adds the local matrices of every integrator in registration order.
func sumElementMatrices(n int, compute func(k int) utils.Matrix) (elmat utils.Matrix, err error) {
	for k := 0; k < n; k++ {
		m := compute(k)
		if k == 0 {
			elmat = m
			continue
		}
		r0, c0 := elmat.Dims()
		if r, c := m.Dims(); r != r0 || c != c0 {
			err = fmt.Errorf("integrator %d returned a %dx%d matrix, integrator 0 returned %dx%d: %w",
				k, r, c, r0, c0, ErrStructuralMismatch)
			return
		}
		elmat.Add(m)
	}
	return
}

func markerFromList(dofs []int, n int) (marked []bool) {
	marker, err := utils.ListToMarker(dofs, n)
	if err != nil {
		panic(fmt.Errorf("eliminated DOFs: %w", err))
	}
	return markerFromInts(marker, n)
}

func markerFromInts(marker []int, n int) (marked []bool) {
	if len(marker) != n {
		panic(fmt.Errorf("DOF marker length %d does not match size %d", len(marker), n))
	}
	marked = make([]bool, n)
	for i, val := range marker {
		marked[i] = val < 0
	}
	return
}
