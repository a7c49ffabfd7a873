package fe

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// IntegrationRule holds reference points and weights; weights sum to the reference measure.
type IntegrationRule struct {
	Points  [][]float64
	Weights []float64
}

func (ir IntegrationRule) Len() int { return len(ir.Weights) }

// JacobiGQ returns the N+1 point Gauss quadrature for the (alpha, beta) Jacobi weight on [-1,1].
func JacobiGQ(alpha, beta float64, N int) (X, W []float64) {
	var (
		h1, d0, d1 []float64
		fac        float64
	)
	if N == 0 {
		X = []float64{-(alpha - beta) / (alpha + beta + 2.)}
		W = []float64{2.}
		return
	}

	h1 = make([]float64, N+1)
	for i := 0; i < N+1; i++ {
		h1[i] = 2*float64(i) + alpha + beta
	}

	// main diagonal: diag(-1/2*(alpha^2-beta^2)./(h1+2)./h1)
	d0 = make([]float64, N+1)
	fac = -.5 * (alpha*alpha - beta*beta)
	for i := 0; i < N+1; i++ {
		val := h1[i]
		d0[i] = fac / (val * (val + 2.))
	}
	// Handle division by zero
	eps := 1.e-16
	if alpha+beta < 10*eps {
		d0[0] = 0.
	}

	// 1st upper diagonal
	var ip1 float64
	d1 = make([]float64, N)
	for i := 0; i < N; i++ {
		ip1 = float64(i + 1)
		val := h1[i]
		d1[i] = 2. / (val + 2.)
		d1[i] *= math.Sqrt(ip1 * (ip1 + alpha + beta) * (ip1 + alpha) * (ip1 + beta) / ((val + 1.) * (val + 3.)))
	}

	JJ := mat.NewSymDense(N+1, nil)
	for i := 0; i < N+1; i++ {
		JJ.SetSym(i, i, d0[i])
		if i < N {
			JJ.SetSym(i, i+1, d1[i])
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(JJ, true); !ok {
		panic("eigenvalue decomposition failed")
	}
	X = eig.Values(nil)

	VVr := mat.NewDense(N+1, N+1, nil)
	eig.VectorsTo(VVr)
	g0 := gamma0(alpha, beta)
	W = make([]float64, N+1)
	for i, v := range VVr.RawRowView(0) {
		W[i] = v * v * g0
	}
	return
}

// JacobiGL returns the N+1 Gauss-Lobatto nodes, endpoints included, in increasing order.
func JacobiGL(alpha, beta float64, N int) (X []float64) {
	X = make([]float64, N+1)
	switch N {
	case 0:
		X[0] = 0
		return
	case 1:
		X[0], X[1] = -1, 1
		return
	}
	xint, _ := JacobiGQ(alpha+1, beta+1, N-2)
	X[0], X[N] = -1, 1
	copy(X[1:N], xint)
	return
}

// GaussLegendre returns the n point Gauss-Legendre rule on [-1,1].
func GaussLegendre(n int) (X, W []float64) {
	if n < 1 {
		panic(fmt.Errorf("Gauss-Legendre rule needs at least one point, have %d", n))
	}
	return JacobiGQ(0, 0, n-1)
}

// SegmentRule integrates polynomials of degree <= order exactly on [-1,1].
func SegmentRule(order int) (ir IntegrationRule) {
	if order < 0 {
		order = 0
	}
	x, w := GaussLegendre(order/2 + 1)
	ir.Weights = w
	ir.Points = make([][]float64, len(x))
	for i, xi := range x {
		ir.Points[i] = []float64{xi}
	}
	return
}

// TriangleRule integrates on the reference triangle (-1,-1), (1,-1), (-1,1), area 2.
// Degrees above 4 are not tabulated.
func TriangleRule(order int) (ir IntegrationRule) {
	var (
		bary [][3]float64
		w    []float64
	)
	switch {
	case order <= 1:
		bary = [][3]float64{{1. / 3, 1. / 3, 1. / 3}}
		w = []float64{1}
	case order == 2:
		bary = [][3]float64{{2. / 3, 1. / 6, 1. / 6}, {1. / 6, 2. / 3, 1. / 6}, {1. / 6, 1. / 6, 2. / 3}}
		w = []float64{1. / 3, 1. / 3, 1. / 3}
	case order <= 4:
		const (
			a1, b1, w1 = 0.445948490915965, 0.108103018168070, 0.223381589678011
			a2, b2, w2 = 0.091576213509771, 0.816847572980459, 0.109951743655322
		)
		bary = [][3]float64{
			{a1, a1, b1}, {a1, b1, a1}, {b1, a1, a1},
			{a2, a2, b2}, {a2, b2, a2}, {b2, a2, a2},
		}
		w = []float64{w1, w1, w1, w2, w2, w2}
	default:
		panic(fmt.Errorf("triangle quadrature of order %d is not available", order))
	}
	ir.Points = make([][]float64, len(bary))
	ir.Weights = make([]float64, len(bary))
	for i, l := range bary {
		ir.Points[i] = []float64{2*l[1] - 1, 2*l[2] - 1}
		ir.Weights[i] = 2 * w[i]
	}
	return
}

// RuleFor picks the reference rule matching the dimension of el.
func RuleFor(el FiniteElement, order int) IntegrationRule {
	return Rule(el.Dim(), order)
}

// Rule returns the reference rule of the given dimension; dimension 0 is a
// single unit-weight point.
func Rule(dim, order int) IntegrationRule {
	switch dim {
	case 0:
		return IntegrationRule{Points: [][]float64{{}}, Weights: []float64{1}}
	case 1:
		return SegmentRule(order)
	case 2:
		return TriangleRule(order)
	}
	panic(fmt.Errorf("no integration rule for dimension %d", dim))
}

func gamma0(alpha, beta float64) float64 {
	ab1 := alpha + beta + 1.
	a1 := alpha + 1.
	b1 := beta + 1.
	return math.Gamma(a1) * math.Gamma(b1) * math.Pow(2, ab1) / ab1 / math.Gamma(ab1)
}
