// Package engine declares the contract between physync and a rigid-body
// physics engine.
package engine

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/physync/common"
	"github.com/milk9111/physync/shape"
	"github.com/milk9111/physync/transform"
)

var ErrUnknownHandle = errors.New("engine: unknown handle")

// BodyParams are the simulation parameters of a body.
type BodyParams struct {
	Mass           float64
	LinearDamping  float64
	AngularDamping float64
	Friction       float64
	Restitution    float64
	Group          common.CollisionGroup
	CollideWith    common.CollisionGroup
	Kinematic      bool

	// Gravity replaces the world gravity for this body when GravityOverride
	// is set.
	Gravity         mgl64.Vec3
	GravityOverride bool
}

// GravityOr returns the body's gravity, falling back to world.
func (p BodyParams) GravityOr(world mgl64.Vec3) mgl64.Vec3 {
	if p.GravityOverride {
		return p.Gravity
	}
	return world
}

// DefaultParams returns the parameters a new body starts with.
func DefaultParams(mass float64) BodyParams {
	return BodyParams{
		Mass:        mass,
		Friction:    0.5,
		Group:       common.DefaultCollisionGroup,
		CollideWith: common.DefaultCollideWith,
	}
}

// Dynamic reports whether a body with these parameters is moved by the
// simulation.
func (p BodyParams) Dynamic() bool {
	return p.Mass > 0 && !p.Kinematic
}

// Engine is one simulation world. Every method must be safe to call from the
// scene and physics goroutines; unknown handles are ignored.
type Engine interface {
	CreateBody(s shape.Shape, mass float64) Handle
	CreateGhost(s shape.Shape) Handle
	DestroyBody(h Handle)
	// RefreshShape tells the engine that the scale of h's shape changed.
	RefreshShape(h Handle)

	SetParams(h Handle, p BodyParams)
	SetWorldTransform(h Handle, p transform.Pose)
	WorldTransform(h Handle) (transform.Pose, error)
	Activate(h Handle)

	AddToWorld(h Handle)
	RemoveFromWorld(h Handle)
	InWorld(h Handle) bool
	QueryOverlaps(h Handle) []Handle

	SetLinearVelocity(h Handle, v mgl64.Vec3)
	LinearVelocity(h Handle) mgl64.Vec3
	SetAngularVelocity(h Handle, v mgl64.Vec3)
	AngularVelocity(h Handle) mgl64.Vec3
	ApplyImpulse(h Handle, impulse mgl64.Vec3)

	SetGravity(g mgl64.Vec3)
	Step(dt float64)
}
