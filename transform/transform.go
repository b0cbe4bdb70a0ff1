package transform

import "github.com/go-gl/mathgl/mgl64"

// Transform is a pose with a non-uniform scale, as carried by scene nodes.
type Transform struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
	Scale       mgl64.Vec3
}

func Identity() Transform {
	return Transform{
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	}
}

// Pose drops the scale.
func (t Transform) Pose() Pose {
	return NewPose(t.Translation, t.Rotation)
}

// Combine returns the world transform of a child with local transform t under
// a parent whose world transform is parent.
func (t Transform) Combine(parent Transform) Transform {
	scaled := mulElem(parent.Scale, t.Translation)
	return Transform{
		Translation: parent.Translation.Add(parent.Rotation.Rotate(scaled)),
		Rotation:    parent.Rotation.Mul(t.Rotation).Normalize(),
		Scale:       mulElem(parent.Scale, t.Scale),
	}
}

// Apply maps a point from this transform's local space into its parent space.
func (t Transform) Apply(v mgl64.Vec3) mgl64.Vec3 {
	return t.Translation.Add(t.Rotation.Rotate(mulElem(t.Scale, v)))
}

// ToLocal converts a world pose into a pose relative to parent: subtract the
// parent translation, rotate by the inverse parent rotation, then divide by
// the parent scale. It inverts Combine for any parent scale.
func ToLocal(parent Transform, world Pose) Pose {
	inv := parent.Rotation.Inverse()
	rel := divElem(inv.Rotate(world.Translation.Sub(parent.Translation)), parent.Scale)
	return NewPose(rel, inv.Mul(world.Rotation))
}

func mulElem(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func divElem(a, b mgl64.Vec3) mgl64.Vec3 {
	out := a
	for i := range out {
		if b[i] != 0 {
			out[i] = a[i] / b[i]
		}
	}
	return out
}
