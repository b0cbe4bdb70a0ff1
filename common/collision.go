package common

// CollisionGroup is a single-bit collision category. Masks are ORed groups.
type CollisionGroup uint32

const (
	CollisionGroupNone CollisionGroup = 0
	CollisionGroup01   CollisionGroup = 1 << (iota - 1)
	CollisionGroup02
	CollisionGroup03
	CollisionGroup04
	CollisionGroup05
	CollisionGroup06
	CollisionGroup07
	CollisionGroup08
	CollisionGroup09
	CollisionGroup10
	CollisionGroup11
	CollisionGroup12
	CollisionGroup13
	CollisionGroup14
	CollisionGroup15
	CollisionGroup16
)

// CollisionGroupAll collides with every named group.
const CollisionGroupAll CollisionGroup = 0xFFFF

const (
	DefaultCollisionGroup CollisionGroup = CollisionGroup01
	DefaultCollideWith    CollisionGroup = CollisionGroup01
)

// Has reports whether every bit of g is set in mask.
func (mask CollisionGroup) Has(g CollisionGroup) bool {
	return g != 0 && mask&g == g
}

// Single reports whether g has exactly one bit set.
func (g CollisionGroup) Single() bool {
	return g != 0 && g&(g-1) == 0
}

// Collides reports whether two objects with the given group/mask pairs
// should interact. Both sides must accept the other's group.
func Collides(groupA, maskA, groupB, maskB CollisionGroup) bool {
	return maskA&groupB != 0 && maskB&groupA != 0
}
