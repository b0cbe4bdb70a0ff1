// Package transform holds the rigid transform values exchanged between the
// scene graph and the physics engine.
package transform

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/physync/common"
)

// Pose is a rigid placement. Rotation and Basis always describe the same
// orientation; build poses with NewPose or FromBasis to keep them in step.
type Pose struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
	Basis       mgl64.Mat3
}

// IdentityPose is the origin with no rotation.
func IdentityPose() Pose {
	return Pose{
		Rotation: mgl64.QuatIdent(),
		Basis:    mgl64.Ident3(),
	}
}

// NewPose builds a pose from a translation and a rotation quaternion.
func NewPose(translation mgl64.Vec3, rotation mgl64.Quat) Pose {
	rotation = normalized(rotation)
	return Pose{
		Translation: translation,
		Rotation:    rotation,
		Basis:       rotation.Mat4().Mat3(),
	}
}

// FromBasis builds a pose from a translation and a rotation matrix.
func FromBasis(translation mgl64.Vec3, basis mgl64.Mat3) Pose {
	rotation := normalized(mgl64.Mat4ToQuat(basis.Mat4()))
	return Pose{
		Translation: translation,
		Rotation:    rotation,
		Basis:       basis,
	}
}

// ApproxEqual compares translation and orientation within tol. q and -q are
// the same orientation.
func (p Pose) ApproxEqual(o Pose, tol float64) bool {
	if !p.Translation.ApproxEqualThreshold(o.Translation, tol) {
		return false
	}
	return QuatApproxEqual(p.Rotation, o.Rotation, tol)
}

// QuatApproxEqual reports whether two quaternions encode the same rotation.
func QuatApproxEqual(a, b mgl64.Quat, tol float64) bool {
	dot := a.Dot(b)
	if dot < 0 {
		dot = -dot
	}
	return common.NearlyEqual(dot, 1, tol)
}

func normalized(q mgl64.Quat) mgl64.Quat {
	if q.Len() == 0 {
		return mgl64.QuatIdent()
	}
	return q.Normalize()
}
