package fespace

// DofList holds global DOF indices for one entity. A negative entry k stands for
// index -1-k taken with sign -1, the orientation flip of a shared DOF.
type DofList []int

// Encode returns the entry for index i with the given sign.
func Encode(i int, negative bool) int {
	if negative {
		return -1 - i
	}
	return i
}

func (dl DofList) Index(k int) int {
	if d := dl[k]; d < 0 {
		return -1 - d
	}
	return dl[k]
}

func (dl DofList) Sign(k int) float64 {
	if dl[k] < 0 {
		return -1
	}
	return 1
}

// Indices returns the decoded indices, signs dropped.
func (dl DofList) Indices() (I []int) {
	I = make([]int, len(dl))
	for k := range dl {
		I[k] = dl.Index(k)
	}
	return
}

// Concat joins the DOF lists of two neighbors, first then second.
func Concat(a, b DofList) (dl DofList) {
	dl = make(DofList, 0, len(a)+len(b))
	dl = append(dl, a...)
	dl = append(dl, b...)
	return
}
