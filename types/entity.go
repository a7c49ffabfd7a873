package types

import "fmt"

// EntityKind identifies which mesh entities an integrator collection runs over.
type EntityKind uint8

const (
	Domain EntityKind = iota
	Boundary
	InteriorFace
	BoundaryFace
	TraceFace
)

func (k EntityKind) String() string {
	switch k {
	case Domain:
		return "Domain"
	case Boundary:
		return "Boundary"
	case InteriorFace:
		return "InteriorFace"
	case BoundaryFace:
		return "BoundaryFace"
	case TraceFace:
		return "TraceFace"
	}
	return fmt.Sprintf("EntityKind(%d)", k)
}

/*
ContributionTag orders the contributions that land on one global matrix entry:
kind in the top 3 bits, the entity number in the next 29, then the local row and
column in 16 bits each. Summing in tag order makes the assembled value independent
of the traversal order of the mesh entities.
*/
type ContributionTag uint64

const (
	maxTagEntity = 1<<29 - 1
	maxTagLocal  = 1<<16 - 1
)

func NewContributionTag(kind EntityKind, entity, li, lj int) (tag ContributionTag) {
	if entity < 0 || entity > maxTagEntity || li < 0 || li > maxTagLocal || lj < 0 || lj > maxTagLocal {
		panic(fmt.Errorf("unable to pack contribution tag: kind = %s, entity = %d, local = (%d,%d)",
			kind, entity, li, lj))
	}
	tag = ContributionTag(uint64(kind)<<61 | uint64(entity)<<32 | uint64(li)<<16 | uint64(lj))
	return
}

func (t ContributionTag) Unpack() (kind EntityKind, entity, li, lj int) {
	kind = EntityKind(t >> 61)
	entity = int(t>>32) & maxTagEntity
	li = int(t>>16) & maxTagLocal
	lj = int(t) & maxTagLocal
	return
}
