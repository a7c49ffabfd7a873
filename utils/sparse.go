package utils

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// ErrNonFinite is returned by Finalize when the summed storage holds a NaN or Inf.
var ErrNonFinite = errors.New("sparse: non-finite value in finalized matrix")

// Untagged contributions sort after every tagged one, in arrival order.
const untagged = math.MaxUint64

type contribution struct {
	tag, seq uint64
	v        float64
}

type entryKey [2]int

// SparseMatrix accumulates (row, col) contributions while open and is compacted
// into CSR storage by Finalize. Contributions to the same entry are summed in tag
// order, so the finalized values do not depend on the order of arrival.
type SparseMatrix struct {
	nr, nc    int
	open      map[entryKey][]contribution
	seq       uint64
	csr       *sparse.CSR
	finalized bool
	readOnly  bool
	name      string
}

func NewSparseMatrix(nr, nc int) (R *SparseMatrix) {
	R = &SparseMatrix{
		nr:   nr,
		nc:   nc,
		open: make(map[entryKey][]contribution),
		name: "unnamed - hint: pass a variable name to SetName()",
	}
	return
}

// NewSparsePattern allocates compact storage for the given column lists per row.
// Values start at zero; Add and Set write into the existing pattern only. Square
// patterns always carry their diagonal.
func NewSparsePattern(nr, nc int, rowCols [][]int) (R *SparseMatrix) {
	if len(rowCols) != nr {
		panic(fmt.Errorf("pattern has %d rows, matrix has %d", len(rowCols), nr))
	}
	var (
		indptr = make([]int, nr+1)
		ind    []int
	)
	for i, cols := range rowCols {
		c := Index(cols)
		if nr == nc {
			c = append(c.Copy(), i)
		}
		c = c.Unique()
		for _, j := range c {
			if j < 0 || j > nc-1 {
				panic(fmt.Errorf("pattern column %d out of range in row %d, max = %d", j, i, nc-1))
			}
		}
		ind = append(ind, c...)
		indptr[i+1] = len(ind)
	}
	R = &SparseMatrix{
		nr:   nr,
		nc:   nc,
		csr:  sparse.NewCSR(nr, nc, indptr, ind, make([]float64, len(ind))),
		name: "unnamed - hint: pass a variable name to SetName()",
	}
	return
}

// NewSparseFromCSR wraps a CSR produced elsewhere (e.g. by sparse.CSR.Mul) into a
// finalized matrix with sorted, merged columns in every row.
func NewSparseFromCSR(A *sparse.CSR) (R *SparseMatrix) {
	var (
		nr, nc = A.Dims()
		raw    = A.RawMatrix()
	)
	R = newSparseFromRaw(nr, nc, raw.Indptr, raw.Ind, raw.Data)
	return
}

func newSparseFromRaw(nr, nc int, indptr, ind []int, data []float64) (R *SparseMatrix) {
	var (
		newPtr  = make([]int, nr+1)
		newInd  = make([]int, 0, len(ind))
		newData = make([]float64, 0, len(data))
	)
	type pair struct {
		j int
		v float64
	}
	var row []pair
	for i := 0; i < nr; i++ {
		row = row[:0]
		for k := indptr[i]; k < indptr[i+1]; k++ {
			row = append(row, pair{ind[k], data[k]})
		}
		sort.SliceStable(row, func(a, b int) bool { return row[a].j < row[b].j })
		for k, p := range row {
			if k > 0 && p.j == row[k-1].j {
				newData[len(newData)-1] += p.v
				continue
			}
			newInd = append(newInd, p.j)
			newData = append(newData, p.v)
		}
		newPtr[i+1] = len(newInd)
	}
	R = &SparseMatrix{
		nr:        nr,
		nc:        nc,
		csr:       sparse.NewCSR(nr, nc, newPtr, newInd, newData),
		finalized: true,
		name:      "unnamed - hint: pass a variable name to SetName()",
	}
	return
}

func (m *SparseMatrix) SetName(name string) *SparseMatrix {
	m.name = name
	return m
}

func (m *SparseMatrix) Name() string { return m.name }

func (m *SparseMatrix) SetReadOnly(name ...string) *SparseMatrix {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
	return m
}

// Dims and At minimally satisfy the mat.Matrix interface together with T.
func (m *SparseMatrix) Dims() (r, c int) { return m.nr, m.nc }

func (m *SparseMatrix) T() mat.Matrix { return mat.Transpose{Matrix: m} }

func (m *SparseMatrix) At(i, j int) float64 {
	m.checkBounds(i, j)
	if m.csr == nil {
		return sumParts(m.open[entryKey{i, j}])
	}
	if k := m.find(i, j); k >= 0 {
		return m.csr.RawMatrix().Data[k]
	}
	return 0
}

// IsFinalized is true once Finalize has compacted the storage.
func (m *SparseMatrix) IsFinalized() bool { return m.finalized }

// IsCompact is true when storage is CSR, either finalized or a precomputed pattern.
func (m *SparseMatrix) IsCompact() bool { return m.csr != nil }

// Add accumulates v into (i,j).
func (m *SparseMatrix) Add(i, j int, v float64) { // Changes receiver
	m.AddTagged(i, j, v, untagged)
}

// AddTagged accumulates v into (i,j); the tag fixes the summation order within the entry.
func (m *SparseMatrix) AddTagged(i, j int, v float64, tag uint64) { // Changes receiver
	m.checkWritable()
	m.checkBounds(i, j)
	if m.csr != nil {
		k := m.mustFind(i, j)
		m.csr.RawMatrix().Data[k] += v
		return
	}
	key := entryKey{i, j}
	m.open[key] = append(m.open[key], contribution{tag: tag, seq: m.seq, v: v})
	m.seq++
}

// Set overwrites (i,j), discarding every earlier contribution.
func (m *SparseMatrix) Set(i, j int, v float64) { // Changes receiver
	m.checkWritable()
	m.checkBounds(i, j)
	if m.csr != nil {
		k := m.mustFind(i, j)
		m.csr.RawMatrix().Data[k] = v
		return
	}
	m.open[entryKey{i, j}] = []contribution{{tag: 0, seq: m.seq, v: v}}
	m.seq++
}

// SetAll assigns a to every stored entry.
func (m *SparseMatrix) SetAll(a float64) { // Changes receiver
	m.checkWritable()
	if m.csr != nil {
		data := m.csr.RawMatrix().Data
		for k := range data {
			data[k] = a
		}
		return
	}
	for key := range m.open {
		m.open[key] = []contribution{{tag: 0, seq: m.seq, v: a}}
		m.seq++
	}
}

// Finalize compacts the open storage into CSR. With skipZeros, entries summing to
// exactly zero are dropped, except for the diagonal which square matrices always keep.
// A matrix holding NaN or Inf is still finalized, and ErrNonFinite is returned,
// also by later calls on the finalized matrix.
func (m *SparseMatrix) Finalize(skipZeros bool) (err error) { // Changes receiver
	if !m.finalized && m.csr == nil {
		var (
			rows   = make([][]int, m.nr)
			indptr = make([]int, m.nr+1)
			ind    []int
			data   []float64
		)
		for key := range m.open {
			rows[key[0]] = append(rows[key[0]], key[1])
		}
		for i := 0; i < m.nr; i++ {
			if m.nr == m.nc {
				if _, ok := m.open[entryKey{i, i}]; !ok {
					rows[i] = append(rows[i], i)
				}
			}
			sort.Ints(rows[i])
			for _, j := range rows[i] {
				v := sumParts(m.open[entryKey{i, j}])
				if skipZeros && v == 0 && i != j {
					continue
				}
				ind = append(ind, j)
				data = append(data, v)
			}
			indptr[i+1] = len(ind)
		}
		m.csr = sparse.NewCSR(m.nr, m.nc, indptr, ind, data)
		m.open = nil
	}
	m.finalized = true
	for _, v := range m.csr.RawMatrix().Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			err = fmt.Errorf("matrix \"%s\": %w", m.name, ErrNonFinite)
			return
		}
	}
	return
}

// CSR exposes the compact storage; it panics on an open matrix.
func (m *SparseMatrix) CSR() *sparse.CSR {
	m.checkCompact()
	return m.csr
}

func (m *SparseMatrix) NNZ() int {
	if m.csr == nil {
		return len(m.open)
	}
	return len(m.csr.RawMatrix().Data)
}

// RowNonZeros calls fn for every stored entry of row i, in column order.
func (m *SparseMatrix) RowNonZeros(i int, fn func(j int, v float64)) {
	m.checkCompact()
	raw := m.csr.RawMatrix()
	for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
		fn(raw.Ind[k], raw.Data[k])
	}
}

// DoNonZero calls fn for every stored entry, row by row.
func (m *SparseMatrix) DoNonZero(fn func(i, j int, v float64)) {
	m.checkCompact()
	raw := m.csr.RawMatrix()
	for i := 0; i < m.nr; i++ {
		for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
			fn(i, raw.Ind[k], raw.Data[k])
		}
	}
}

func (m *SparseMatrix) Clone() (R *SparseMatrix) { // Does not change receiver
	m.checkCompact()
	raw := m.csr.RawMatrix()
	var (
		indptr = make([]int, len(raw.Indptr))
		ind    = make([]int, len(raw.Ind))
		data   = make([]float64, len(raw.Data))
	)
	copy(indptr, raw.Indptr)
	copy(ind, raw.Ind)
	copy(data, raw.Data)
	R = &SparseMatrix{
		nr:        m.nr,
		nc:        m.nc,
		csr:       sparse.NewCSR(m.nr, m.nc, indptr, ind, data),
		finalized: m.finalized,
		name:      m.name,
	}
	return
}

func (m *SparseMatrix) Transpose() (R *SparseMatrix) { // Does not change receiver
	m.checkCompact()
	var (
		raw    = m.csr.RawMatrix()
		indptr = make([]int, m.nc+1)
		ind    = make([]int, len(raw.Ind))
		data   = make([]float64, len(raw.Data))
		next   = make([]int, m.nc)
	)
	for _, j := range raw.Ind {
		indptr[j+1]++
	}
	for j := 0; j < m.nc; j++ {
		indptr[j+1] += indptr[j]
		next[j] = indptr[j]
	}
	for i := 0; i < m.nr; i++ {
		for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
			j := raw.Ind[k]
			ind[next[j]] = i
			data[next[j]] = raw.Data[k]
			next[j]++
		}
	}
	R = &SparseMatrix{
		nr:        m.nc,
		nc:        m.nr,
		csr:       sparse.NewCSR(m.nc, m.nr, indptr, ind, data),
		finalized: true,
		name:      m.name + "^T",
	}
	return
}

// Plus returns m + B over the union of both patterns.
func (m *SparseMatrix) Plus(B *SparseMatrix) (R *SparseMatrix) { // Does not change receiver
	m.checkCompact()
	B.checkCompact()
	if m.nr != B.nr || m.nc != B.nc {
		panic(fmt.Errorf("dimension mismatch in sparse sum: %dx%d + %dx%d", m.nr, m.nc, B.nr, B.nc))
	}
	var (
		ra, rb = m.csr.RawMatrix(), B.csr.RawMatrix()
		indptr = make([]int, m.nr+1)
		ind    = make([]int, 0, len(ra.Ind)+len(rb.Ind))
		data   = make([]float64, 0, len(ra.Data)+len(rb.Data))
	)
	for i := 0; i < m.nr; i++ {
		ind = append(ind, ra.Ind[ra.Indptr[i]:ra.Indptr[i+1]]...)
		data = append(data, ra.Data[ra.Indptr[i]:ra.Indptr[i+1]]...)
		ind = append(ind, rb.Ind[rb.Indptr[i]:rb.Indptr[i+1]]...)
		data = append(data, rb.Data[rb.Indptr[i]:rb.Indptr[i+1]]...)
		indptr[i+1] = len(ind)
	}
	R = newSparseFromRaw(m.nr, m.nc, indptr, ind, data)
	R.name = m.name
	return
}

// Mul returns the sparse product m * B.
func (m *SparseMatrix) Mul(B *SparseMatrix) (R *SparseMatrix) { // Does not change receiver
	m.checkCompact()
	B.checkCompact()
	if m.nc != B.nr {
		panic(fmt.Errorf("dimension mismatch in sparse product: %dx%d * %dx%d", m.nr, m.nc, B.nr, B.nc))
	}
	C := sparse.NewCSR(m.nr, B.nc, nil, nil, nil)
	C.Mul(m.csr, B.csr)
	R = NewSparseFromCSR(C)
	return
}

// Mult computes y = A x.
func (m *SparseMatrix) Mult(x, y []float64) {
	m.checkVectors(x, y, false)
	for i := range y {
		y[i] = 0
	}
	m.addMult(x, y, 1)
}

// AddMult computes y += a A x.
func (m *SparseMatrix) AddMult(x, y []float64, a float64) {
	m.checkVectors(x, y, false)
	m.addMult(x, y, a)
}

// MultTranspose computes y = A^T x.
func (m *SparseMatrix) MultTranspose(x, y []float64) {
	m.checkVectors(x, y, true)
	for j := range y {
		y[j] = 0
	}
	m.addMultTranspose(x, y, 1)
}

// AddMultTranspose computes y += a A^T x.
func (m *SparseMatrix) AddMultTranspose(x, y []float64, a float64) {
	m.checkVectors(x, y, true)
	m.addMultTranspose(x, y, a)
}

// InnerProduct returns x^T A y.
func (m *SparseMatrix) InnerProduct(x, y []float64) (sum float64) {
	m.checkCompact()
	if len(x) != m.nr || len(y) != m.nc {
		panic(fmt.Errorf("dimension mismatch in inner product with %dx%d matrix \"%s\": len(x) = %d, len(y) = %d",
			m.nr, m.nc, m.name, len(x), len(y)))
	}
	raw := m.csr.RawMatrix()
	for i := 0; i < m.nr; i++ {
		var rowSum float64
		for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
			rowSum += raw.Data[k] * y[raw.Ind[k]]
		}
		sum += x[i] * rowSum
	}
	return
}

// PartMult computes y[i] = (A x)[i] for the listed rows only.
func (m *SparseMatrix) PartMult(rows Index, x, y []float64) {
	m.checkVectors(x, y, false)
	raw := m.csr.RawMatrix()
	for _, i := range rows {
		var val float64
		for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
			val += raw.Data[k] * x[raw.Ind[k]]
		}
		y[i] = val
	}
}

// EliminateRowsCols zeroes every marked row and column except the diagonal. When
// setDiag is true the diagonal becomes diagValue, otherwise it is kept. If sol and rhs
// are given, unmarked rows of rhs receive -A[i,j]*sol[j] for each marked column j, and
// marked rows receive rhs[i] = A[i,i]*sol[i]. If Ae is given, every removed value is
// accumulated into it so that A_before = A_after + Ae.
func (m *SparseMatrix) EliminateRowsCols(marked []bool, setDiag bool, diagValue float64,
	sol, rhs []float64, Ae *SparseMatrix) { // Changes receiver
	m.checkCompact()
	m.checkWritable()
	if m.nr != m.nc {
		panic(fmt.Errorf("row/column elimination needs a square matrix, \"%s\" is %dx%d", m.name, m.nr, m.nc))
	}
	if len(marked) != m.nr {
		panic(fmt.Errorf("marker length %d does not match matrix size %d", len(marked), m.nr))
	}
	if (sol == nil) != (rhs == nil) {
		panic(fmt.Errorf("sol and rhs must be given together"))
	}
	if sol != nil {
		m.checkVectors(sol, rhs, false)
	}
	raw := m.csr.RawMatrix()
	for i := 0; i < m.nr; i++ {
		for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
			var (
				j = raw.Ind[k]
				a = raw.Data[k]
			)
			switch {
			case marked[i] && i == j:
				if setDiag {
					if Ae != nil {
						Ae.Add(i, j, a-diagValue)
					}
					raw.Data[k] = diagValue
				}
			case marked[i] || marked[j]:
				if !marked[i] && rhs != nil {
					rhs[i] -= a * sol[j]
				}
				if Ae != nil && a != 0 {
					Ae.Add(i, j, a)
				}
				raw.Data[k] = 0
			}
		}
	}
	if rhs != nil {
		for i := 0; i < m.nr; i++ {
			if marked[i] {
				rhs[i] = m.At(i, i) * sol[i]
			}
		}
	}
}

// EliminateCols moves marked columns to the right hand side (rhs -= A[:,j]*sol[j])
// and zeroes them; sol and rhs may be nil to only zero the columns.
func (m *SparseMatrix) EliminateCols(marked []bool, sol, rhs []float64) { // Changes receiver
	m.checkCompact()
	m.checkWritable()
	if len(marked) != m.nc {
		panic(fmt.Errorf("column marker length %d does not match %d columns", len(marked), m.nc))
	}
	if sol != nil {
		m.checkVectors(sol, rhs, false)
	}
	raw := m.csr.RawMatrix()
	for i := 0; i < m.nr; i++ {
		for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
			j := raw.Ind[k]
			if !marked[j] {
				continue
			}
			if rhs != nil {
				rhs[i] -= raw.Data[k] * sol[j]
			}
			raw.Data[k] = 0
		}
	}
}

// EliminateRow zeroes row i.
func (m *SparseMatrix) EliminateRow(i int) { // Changes receiver
	m.checkCompact()
	m.checkWritable()
	raw := m.csr.RawMatrix()
	for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
		raw.Data[k] = 0
	}
}

func (m *SparseMatrix) ToDense() (R *mat.Dense) {
	R = mat.NewDense(m.nr, m.nc, nil)
	if m.csr == nil {
		for key, parts := range m.open {
			R.Set(key[0], key[1], sumParts(parts))
		}
		return
	}
	m.DoNonZero(func(i, j int, v float64) { R.Set(i, j, R.At(i, j)+v) })
	return
}

// Equal is true when both matrices store the same pattern and bit-identical values.
func (m *SparseMatrix) Equal(B *SparseMatrix) bool {
	if m.nr != B.nr || m.nc != B.nc || m.csr == nil || B.csr == nil {
		return false
	}
	ra, rb := m.csr.RawMatrix(), B.csr.RawMatrix()
	if len(ra.Ind) != len(rb.Ind) {
		return false
	}
	for i := range ra.Indptr {
		if ra.Indptr[i] != rb.Indptr[i] {
			return false
		}
	}
	for k := range ra.Ind {
		if ra.Ind[k] != rb.Ind[k] || math.Float64bits(ra.Data[k]) != math.Float64bits(rb.Data[k]) {
			return false
		}
	}
	return true
}

func (m *SparseMatrix) addMult(x, y []float64, a float64) {
	raw := m.csr.RawMatrix()
	for i := 0; i < m.nr; i++ {
		var val float64
		for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
			val += raw.Data[k] * x[raw.Ind[k]]
		}
		y[i] += a * val
	}
}

func (m *SparseMatrix) addMultTranspose(x, y []float64, a float64) {
	raw := m.csr.RawMatrix()
	for i := 0; i < m.nr; i++ {
		axi := a * x[i]
		for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
			y[raw.Ind[k]] += raw.Data[k] * axi
		}
	}
}

func (m *SparseMatrix) find(i, j int) int {
	raw := m.csr.RawMatrix()
	lo, hi := raw.Indptr[i], raw.Indptr[i+1]
	k := lo + sort.SearchInts(raw.Ind[lo:hi], j)
	if k < hi && raw.Ind[k] == j {
		return k
	}
	return -1
}

func (m *SparseMatrix) mustFind(i, j int) int {
	k := m.find(i, j)
	if k < 0 {
		panic(fmt.Errorf("entry (%d,%d) is outside the sparsity pattern of matrix \"%s\"", i, j, m.name))
	}
	return k
}

func (m *SparseMatrix) checkBounds(i, j int) {
	if i < 0 || i > m.nr-1 || j < 0 || j > m.nc-1 {
		panic(fmt.Errorf("index (%d,%d) out of range for %dx%d matrix \"%s\"", i, j, m.nr, m.nc, m.name))
	}
}

func (m *SparseMatrix) checkCompact() {
	if m.csr == nil {
		panic(fmt.Errorf("matrix \"%s\" is still open, call Finalize first", m.name))
	}
}

func (m *SparseMatrix) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}

func (m *SparseMatrix) checkVectors(x, y []float64, trans bool) {
	m.checkCompact()
	nx, ny := m.nc, m.nr
	if trans {
		nx, ny = m.nr, m.nc
	}
	if len(x) != nx || len(y) != ny {
		panic(fmt.Errorf("dimension mismatch with %dx%d matrix \"%s\": len(x) = %d, len(y) = %d",
			m.nr, m.nc, m.name, len(x), len(y)))
	}
}

func sumParts(parts []contribution) (sum float64) {
	switch len(parts) {
	case 0:
		return
	case 1:
		return parts[0].v
	}
	sorted := make([]contribution, len(parts))
	copy(sorted, parts)
	sort.Slice(sorted, func(a, b int) bool {
		if sorted[a].tag != sorted[b].tag {
			return sorted[a].tag < sorted[b].tag
		}
		return sorted[a].seq < sorted[b].seq
	})
	for _, p := range sorted {
		sum += p.v
	}
	return
}

// DOK builds small sparse operators (prolongations, restrictions) by random
// assignment before handing them to the solver side as a SparseMatrix.
type DOK struct {
	M    *sparse.DOK
	name string
}

func NewDOK(nr, nc int) (R DOK) {
	R = DOK{
		sparse.NewDOK(nr, nc),
		"unnamed",
	}
	return
}

func (m DOK) Dims() (r, c int)    { return m.M.Dims() }
func (m DOK) At(i, j int) float64 { return m.M.At(i, j) }
func (m DOK) Set(i, j int, v float64) {
	m.M.Set(i, j, v)
}

func (m DOK) ToSparseMatrix(name string) (R *SparseMatrix) {
	R = NewSparseFromCSR(m.M.ToCSR())
	R.name = name
	return
}
