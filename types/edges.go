package types

import (
	"fmt"
	"math"
)

/*
EdgeKey packs the two vertices of an edge into one comparable value, smaller vertex in
the low 32 bits, so that [4,0] and [0,4] share a key.
*/
type EdgeKey uint64

func NewEdgeKey(verts [2]int) (packed EdgeKey) {
	var (
		limit = math.MaxUint32
	)
	for _, vert := range verts {
		if vert < 0 || vert > limit {
			panic(fmt.Errorf("unable to pack two ints into a uint64, have %d and %d as inputs",
				verts[0], verts[1]))
		}
	}
	i1, i2 := verts[0], verts[1]
	if i1 > i2 {
		i1, i2 = i2, i1
	}
	packed = EdgeKey(uint64(i1) | uint64(i2)<<32)
	return
}

// GetVertices returns the vertices in ascending order, or descending with rev.
func (ek EdgeKey) GetVertices(rev bool) (verts [2]int) {
	verts[0] = int(ek & math.MaxUint32)
	verts[1] = int(ek >> 32)
	if rev {
		verts[0], verts[1] = verts[1], verts[0]
	}
	return
}

// EdgeUse records which element side an edge was first seen on, and the second if shared.
type EdgeUse struct {
	Elem, Side  [2]int
	Count       int
	FirstVertex int
}

// EdgeMap collects the element sides that touch each edge, in first-seen order.
type EdgeMap struct {
	Keys []EdgeKey
	Uses map[EdgeKey]*EdgeUse
}

func NewEdgeMap() *EdgeMap {
	return &EdgeMap{Uses: make(map[EdgeKey]*EdgeUse)}
}

func (em *EdgeMap) AddEdge(verts [2]int, elem, side int) {
	key := NewEdgeKey(verts)
	use, ok := em.Uses[key]
	if !ok {
		use = &EdgeUse{Elem: [2]int{elem, -1}, Side: [2]int{side, -1}, FirstVertex: verts[0]}
		em.Uses[key] = use
		em.Keys = append(em.Keys, key)
	} else if use.Count < 2 {
		use.Elem[1], use.Side[1] = elem, side
	}
	use.Count++
}
