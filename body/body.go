// Package body wraps engine objects with the shape, motion state and
// parameters physync keeps for them.
package body

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/physync/common"
	"github.com/milk9111/physync/engine"
	"github.com/milk9111/physync/motion"
	"github.com/milk9111/physync/shape"
	"github.com/milk9111/physync/transform"
)

// target adapts an engine handle to motion.BodyTarget.
type target struct {
	eng    engine.Engine
	handle engine.Handle
}

func (t target) SetWorldTransform(p transform.Pose) { t.eng.SetWorldTransform(t.handle, p) }
func (t target) Activate()                          { t.eng.Activate(t.handle) }

// RigidBody is a simulated body owning exactly one shape and one motion
// state. The zero value is not usable; use NewRigidBody.
type RigidBody struct {
	eng    engine.Engine
	handle engine.Handle
	shape  shape.Shape
	motion *motion.MotionState

	mu        sync.RWMutex
	params    engine.BodyParams
	destroyed bool
}

// NewRigidBody creates the engine body for s. A mass of 0 makes the body
// static or kinematic.
func NewRigidBody(eng engine.Engine, s shape.Shape, mass float64) *RigidBody {
	if eng == nil {
		panic("body: nil engine")
	}
	if s == nil {
		panic("body: nil shape")
	}
	if mass < 0 {
		mass = 0
	}
	return &RigidBody{
		eng:    eng,
		handle: eng.CreateBody(s, mass),
		shape:  s,
		motion: motion.NewMotionState(),
		params: engine.DefaultParams(mass),
	}
}

func (b *RigidBody) Handle() engine.Handle            { return b.handle }
func (b *RigidBody) Shape() shape.Shape               { return b.shape }
func (b *RigidBody) MotionState() *motion.MotionState { return b.motion }
func (b *RigidBody) Engine() engine.Engine            { return b.eng }

func (b *RigidBody) Params() engine.BodyParams {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.params
}

// SetParams replaces every simulation parameter at once.
func (b *RigidBody) SetParams(p engine.BodyParams) {
	if p.Mass < 0 {
		p.Mass = 0
	}
	b.mu.Lock()
	b.params = p
	dead := b.destroyed
	b.mu.Unlock()
	if !dead {
		b.eng.SetParams(b.handle, p)
	}
}

func (b *RigidBody) update(fn func(p *engine.BodyParams)) {
	p := b.Params()
	fn(&p)
	b.SetParams(p)
}

func (b *RigidBody) Mass() float64 { return b.Params().Mass }

func (b *RigidBody) SetMass(m float64) {
	b.update(func(p *engine.BodyParams) { p.Mass = m })
}

// Dynamic reports whether the simulation moves this body.
func (b *RigidBody) Dynamic() bool { return b.Params().Dynamic() }

func (b *RigidBody) Kinematic() bool { return b.Params().Kinematic }

func (b *RigidBody) SetKinematic(k bool) {
	b.update(func(p *engine.BodyParams) { p.Kinematic = k })
}

func (b *RigidBody) SetDamping(linear, angular float64) {
	b.update(func(p *engine.BodyParams) {
		p.LinearDamping = common.Clamp(linear, 0, 1)
		p.AngularDamping = common.Clamp(angular, 0, 1)
	})
}

func (b *RigidBody) SetFriction(f float64) {
	b.update(func(p *engine.BodyParams) { p.Friction = f })
}

func (b *RigidBody) SetRestitution(r float64) {
	b.update(func(p *engine.BodyParams) { p.Restitution = r })
}

// SetCollisionGroup sets the single group bit this body belongs to.
func (b *RigidBody) SetCollisionGroup(g common.CollisionGroup) {
	if !g.Single() {
		panic("body: collision group must be a single bit")
	}
	b.update(func(p *engine.BodyParams) { p.Group = g })
}

func (b *RigidBody) SetCollideWith(mask common.CollisionGroup) {
	b.update(func(p *engine.BodyParams) { p.CollideWith = mask })
}

func (b *RigidBody) AddCollideWith(g common.CollisionGroup) {
	b.update(func(p *engine.BodyParams) { p.CollideWith |= g })
}

func (b *RigidBody) RemoveCollideWith(g common.CollisionGroup) {
	b.update(func(p *engine.BodyParams) { p.CollideWith &^= g })
}

// SetGravity overrides the world gravity for this body.
func (b *RigidBody) SetGravity(g mgl64.Vec3) {
	b.update(func(p *engine.BodyParams) {
		p.Gravity = g
		p.GravityOverride = true
	})
}

// ClearGravity returns the body to world gravity.
func (b *RigidBody) ClearGravity() {
	b.update(func(p *engine.BodyParams) {
		p.Gravity = mgl64.Vec3{}
		p.GravityOverride = false
	})
}

func (b *RigidBody) LinearVelocity() mgl64.Vec3 { return b.eng.LinearVelocity(b.handle) }

func (b *RigidBody) SetLinearVelocity(v mgl64.Vec3) {
	b.eng.SetLinearVelocity(b.handle, v)
}

func (b *RigidBody) AngularVelocity() mgl64.Vec3 { return b.eng.AngularVelocity(b.handle) }

func (b *RigidBody) SetAngularVelocity(v mgl64.Vec3) {
	b.eng.SetAngularVelocity(b.handle, v)
}

func (b *RigidBody) ApplyImpulse(impulse mgl64.Vec3) {
	b.eng.ApplyImpulse(b.handle, impulse)
}

// Teleport queues p as the body's new world pose. It reaches the engine on
// the next physics pass.
func (b *RigidBody) Teleport(p transform.Pose) {
	b.motion.SetSceneTransform(p)
}

// Place moves the engine body immediately and resets the motion state.
// Only call it between passes.
func (b *RigidBody) Place(p transform.Pose) {
	b.eng.SetWorldTransform(b.handle, p)
	b.motion.Reset(p)
}

// WorldPose is the last pose committed by either side.
func (b *RigidBody) WorldPose() transform.Pose {
	return b.motion.WorldPose()
}

// RefreshShape pushes a changed shape scale to the engine.
func (b *RigidBody) RefreshShape() {
	b.eng.RefreshShape(b.handle)
}

// SyncToEngine applies a pending scene pose to the engine body.
func (b *RigidBody) SyncToEngine() {
	b.motion.ApplyToBody(target{eng: b.eng, handle: b.handle})
}

// SyncFromEngine publishes the engine pose of a dynamic body. Static and
// kinematic bodies are never moved by the simulation.
func (b *RigidBody) SyncFromEngine() {
	if !b.Dynamic() {
		return
	}
	p, err := b.eng.WorldTransform(b.handle)
	if err != nil {
		return
	}
	b.motion.SetPhysicsTransform(p)
}

// Destroy frees the engine body. It is safe to call more than once.
func (b *RigidBody) Destroy() {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return
	}
	b.destroyed = true
	b.mu.Unlock()
	b.eng.RemoveFromWorld(b.handle)
	b.eng.DestroyBody(b.handle)
}

func (b *RigidBody) Destroyed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.destroyed
}
