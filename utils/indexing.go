package utils

import (
	"fmt"
	"sort"
)

type Index []int

func NewRange(rmin, rmax int) (r Index) {
	var (
		size = rmax - rmin + 1 // INCLUSIVE RANGE
	)
	if size < 0 {
		size = 0
	}
	r = make(Index, size)
	for i := range r {
		r[i] = i + rmin
	}
	return
}

func (I Index) Copy() (r Index) {
	r = make(Index, len(I))
	copy(r, I)
	return
}

// Unique returns the sorted, de-duplicated indices of I.
func (I Index) Unique() (r Index) { // Does not change receiver
	if len(I) == 0 {
		return Index{}
	}
	r = I.Copy()
	sort.Ints(r)
	var n int
	for i, val := range r {
		if i == 0 || val != r[n-1] {
			r[n] = val
			n++
		}
	}
	return r[:n]
}

// MarkerToList returns the positions of marker that are negative, in increasing order.
func MarkerToList(marker []int) (I Index) {
	I = Index{}
	for i, val := range marker {
		if val < 0 {
			I = append(I, i)
		}
	}
	return
}

// ListToMarker flags every index of I with -1 in a marker of length N.
func ListToMarker(I Index, N int) (marker []int, err error) {
	marker = make([]int, N)
	for _, ind := range I {
		if ind < 0 || ind > N-1 {
			err = fmt.Errorf("dimension bounds error, index out of range: ind = %v, max = %v", ind, N-1)
			return
		}
		marker[ind] = -1
	}
	return
}
