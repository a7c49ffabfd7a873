package fe

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notargets/gobilinear/utils"
)

func TestQuadrature(t *testing.T) {
	{ // Gauss-Legendre weights sum to the segment length and integrate x^(2n-1) exactly
		for n := 0; n < 6; n++ {
			X, W := GaussLegendre(n + 1)
			assert.Equal(t, n+1, len(X))
			var sumW, sumP float64
			for i := range X {
				sumW += W[i]
				sumP += W[i] * math.Pow(X[i], float64(2*n))
			}
			assert.InDelta(t, 2., sumW, 1.e-12)
			assert.InDelta(t, 2./float64(2*n+1), sumP, 1.e-12)
		}
	}
	{ // Lobatto nodes include the endpoints and are symmetric
		X := JacobiGL(0, 0, 4)
		assert.Equal(t, 5, len(X))
		assert.InDelta(t, -1., X[0], 1.e-14)
		assert.InDelta(t, 1., X[4], 1.e-14)
		assert.InDelta(t, 0., X[2], 1.e-12)
		assert.InDelta(t, -X[1], X[3], 1.e-12)
		assert.InDelta(t, math.Sqrt(3./7.), X[3], 1.e-12)
	}
	{ // Triangle rules: area 2, and x^2 integrated exactly from order 2
		for _, order := range []int{1, 2, 4} {
			ir := TriangleRule(order)
			var area, xx float64
			for i, p := range ir.Points {
				area += ir.Weights[i]
				xx += ir.Weights[i] * p[0] * p[0]
			}
			assert.InDelta(t, 2., area, 1.e-12)
			if order >= 2 {
				// int_T r^2 over the reference triangle = 2/3
				assert.InDelta(t, 2./3., xx, 1.e-12)
			}
		}
		assert.Panics(t, func() { TriangleRule(7) })
	}
}

func TestSegmentElement(t *testing.T) {
	for _, order := range []int{0, 1, 2, 3} {
		el := NewSegmentElement(order)
		assert.Equal(t, order+1, el.Dof())
		shape := make([]float64, el.Dof())
		dshape := utils.NewMatrix(el.Dof(), 1)
		// Kronecker property at the nodes
		for i, node := range el.Nodes() {
			el.CalcShape(node, shape)
			for j := range shape {
				if i == j {
					assert.InDelta(t, 1., shape[j], 1.e-12)
				} else {
					assert.InDelta(t, 0., shape[j], 1.e-12)
				}
			}
		}
		// Partition of unity and zero-sum gradient anywhere
		ip := []float64{0.37}
		el.CalcShape(ip, shape)
		el.CalcDShape(ip, dshape)
		var sum, dsum float64
		for i := range shape {
			sum += shape[i]
			dsum += dshape.At(i, 0)
		}
		assert.InDelta(t, 1., sum, 1.e-12)
		assert.InDelta(t, 0., dsum, 1.e-12)
	}
	{ // Vertex nodes come first
		el := NewSegmentElement(3)
		nodes := el.Nodes()
		assert.Equal(t, -1., nodes[0][0])
		assert.Equal(t, 1., nodes[1][0])
		assert.True(t, nodes[2][0] < nodes[3][0])
	}
	{ // Derivative of the linear element
		el := NewSegmentElement(1)
		dshape := utils.NewMatrix(2, 1)
		el.CalcDShape([]float64{0.1}, dshape)
		assert.InDelta(t, -0.5, dshape.At(0, 0), 1.e-14)
		assert.InDelta(t, 0.5, dshape.At(1, 0), 1.e-14)
	}
}

func TestTriangleElement(t *testing.T) {
	el := NewTriangleElement(1)
	shape := make([]float64, 3)
	for i, node := range el.Nodes() {
		el.CalcShape(node, shape)
		for j := range shape {
			if i == j {
				assert.InDelta(t, 1., shape[j], 1.e-14)
			} else {
				assert.InDelta(t, 0., shape[j], 1.e-14)
			}
		}
	}
	el0 := NewTriangleElement(0)
	assert.Equal(t, 1, el0.Dof())
	assert.Panics(t, func() { NewTriangleElement(2) })
	ir := RuleFor(PointElement{}, 3)
	assert.Equal(t, 1, ir.Len())
}
