package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionMap(t *testing.T) {
	sizes := func(K, Np int) (s []int) {
		pm := NewPartitionMap(Np, K)
		next := 0
		for np := 0; np < pm.ParallelDegree; np++ {
			kMin, kMax := pm.GetBucketRange(np)
			assert.Equal(t, next, kMin) // contiguous
			next = kMax
			s = append(s, kMax-kMin)
		}
		assert.Equal(t, K, next)
		return
	}
	assert.Equal(t, []int{1, 1, 0, 0}, sizes(2, 4))
	assert.Equal(t, []int{0, 0, 0}, sizes(0, 3))
	assert.Equal(t, []int{3, 3, 2}, sizes(8, 3))
	assert.Equal(t, []int{5}, sizes(5, 1))
	for n := 64; n < 500; n++ {
		s := sizes(n, 32)
		for _, size := range s {
			assert.True(t, size == n/32 || size == n/32+1) // Maximum imbalance of 1
		}
	}
	assert.Panics(t, func() { NewPartitionMap(0, 10) })
}
