// Package native is a small 3D reference solver: gravity, damping, explicit
// integration and axis-aligned overlap resolution. It is meant for tests,
// tools and scenes that do not need a full collision pipeline.
package native

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/physync/common"
	"github.com/milk9111/physync/engine"
	"github.com/milk9111/physync/shape"
	"github.com/milk9111/physync/transform"
)

const (
	sleepLinearThreshold  = 0.05
	sleepAngularThreshold = 0.05
	sleepDelay            = 2.0
	// maxAngularStep caps rotation per step, as cogentcore's StepByAngVel does.
	maxAngularStep = math.Pi / 4
)

type body struct {
	shape   shape.Shape
	params  engine.BodyParams
	ghost   bool
	inWorld bool
	awake   bool
	idle    float64

	pose   transform.Pose
	linVel mgl64.Vec3
	angVel mgl64.Vec3
}

func (b *body) dynamic() bool {
	return !b.ghost && b.params.Dynamic()
}

// Engine implements engine.Engine.
type Engine struct {
	mu      sync.Mutex
	bodies  engine.Registry[*body]
	gravity mgl64.Vec3
}

// New returns an engine with gravity (0, -9.81, 0).
func New() *Engine {
	return &Engine{gravity: mgl64.Vec3{0, -9.81, 0}}
}

var _ engine.Engine = (*Engine)(nil)

func (e *Engine) CreateBody(s shape.Shape, mass float64) engine.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bodies.Create(&body{
		shape:  s,
		params: engine.DefaultParams(mass),
		pose:   transform.IdentityPose(),
		awake:  true,
	})
}

func (e *Engine) CreateGhost(s shape.Shape) engine.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bodies.Create(&body{
		shape:  s,
		params: engine.DefaultParams(0),
		ghost:  true,
		pose:   transform.IdentityPose(),
	})
}

func (e *Engine) DestroyBody(h engine.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bodies.Remove(h)
}

// RefreshShape wakes the body; bounds are read from the shape on every step.
func (e *Engine) RefreshShape(h engine.Handle) {
	e.with(h, func(b *body) {
		b.awake = true
		b.idle = 0
	})
}

func (e *Engine) SetParams(h engine.Handle, p engine.BodyParams) {
	e.with(h, func(b *body) {
		if b.ghost {
			p.Mass = 0
		}
		b.params = p
		if !b.dynamic() {
			b.linVel = mgl64.Vec3{}
			b.angVel = mgl64.Vec3{}
		}
	})
}

func (e *Engine) SetWorldTransform(h engine.Handle, p transform.Pose) {
	e.with(h, func(b *body) { b.pose = p })
}

func (e *Engine) WorldTransform(h engine.Handle) (transform.Pose, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.bodies.Get(h)
	if !ok {
		return transform.Pose{}, engine.ErrUnknownHandle
	}
	return b.pose, nil
}

func (e *Engine) Activate(h engine.Handle) {
	e.with(h, func(b *body) {
		b.awake = true
		b.idle = 0
	})
}

func (e *Engine) AddToWorld(h engine.Handle) {
	e.with(h, func(b *body) {
		b.inWorld = true
		b.awake = true
		b.idle = 0
	})
}

func (e *Engine) RemoveFromWorld(h engine.Handle) {
	e.with(h, func(b *body) { b.inWorld = false })
}

func (e *Engine) InWorld(h engine.Handle) bool {
	in := false
	e.with(h, func(b *body) { in = b.inWorld })
	return in
}

// QueryOverlaps returns every other in-world object whose bounds intersect
// h's bounds and whose collision groups accept each other.
func (e *Engine) QueryOverlaps(h engine.Handle) []engine.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	self, ok := e.bodies.Get(h)
	if !ok || !self.inWorld {
		return nil
	}
	minA, maxA := bounds(self)
	var out []engine.Handle
	e.bodies.Each(func(other engine.Handle, b *body) {
		if other == h || !b.inWorld || !filtersAccept(self, b) {
			return
		}
		minB, maxB := bounds(b)
		if overlap(minA, maxA, minB, maxB) {
			out = append(out, other)
		}
	})
	return out
}

func (e *Engine) SetLinearVelocity(h engine.Handle, v mgl64.Vec3) {
	e.with(h, func(b *body) {
		if b.dynamic() {
			b.linVel = v
			b.awake = true
		}
	})
}

func (e *Engine) LinearVelocity(h engine.Handle) mgl64.Vec3 {
	var v mgl64.Vec3
	e.with(h, func(b *body) { v = b.linVel })
	return v
}

func (e *Engine) SetAngularVelocity(h engine.Handle, v mgl64.Vec3) {
	e.with(h, func(b *body) {
		if b.dynamic() {
			b.angVel = v
			b.awake = true
		}
	})
}

func (e *Engine) AngularVelocity(h engine.Handle) mgl64.Vec3 {
	var v mgl64.Vec3
	e.with(h, func(b *body) { v = b.angVel })
	return v
}

func (e *Engine) ApplyImpulse(h engine.Handle, impulse mgl64.Vec3) {
	e.with(h, func(b *body) {
		if b.dynamic() {
			b.linVel = b.linVel.Add(impulse.Mul(1 / b.params.Mass))
			b.awake = true
			b.idle = 0
		}
	})
}

func (e *Engine) SetGravity(g mgl64.Vec3) {
	e.mu.Lock()
	e.gravity = g
	e.mu.Unlock()
}

// Step integrates every awake dynamic body in the world by dt and pushes
// overlapping bodies apart.
func (e *Engine) Step(dt float64) {
	if dt <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.bodies.Each(func(_ engine.Handle, b *body) {
		if !b.inWorld || !b.dynamic() || !b.awake {
			return
		}
		e.integrate(b, dt)
	})
	e.resolve()
}

func (e *Engine) integrate(b *body, dt float64) {
	b.linVel = b.linVel.Add(b.params.GravityOr(e.gravity).Mul(dt))
	b.linVel = b.linVel.Mul(dampingFactor(b.params.LinearDamping, dt))
	b.angVel = b.angVel.Mul(dampingFactor(b.params.AngularDamping, dt))

	pos := b.pose.Translation.Add(b.linVel.Mul(dt))
	rot := b.pose.Rotation
	if ang := b.angVel.Len(); ang > 0 {
		step := math.Min(ang*dt, maxAngularStep)
		dq := mgl64.QuatRotate(step, b.angVel.Mul(1/ang))
		rot = dq.Mul(rot)
	}
	b.pose = transform.NewPose(pos, rot)

	if b.linVel.Len() < sleepLinearThreshold && b.angVel.Len() < sleepAngularThreshold {
		b.idle += dt
		if b.idle >= sleepDelay {
			b.awake = false
			b.linVel = mgl64.Vec3{}
			b.angVel = mgl64.Vec3{}
		}
	} else {
		b.idle = 0
	}
}

// resolve separates overlapping solid pairs along the axis of least
// penetration, the way a simple AABB world does. Ghosts never move anything.
func (e *Engine) resolve() {
	var solids []*body
	e.bodies.Each(func(_ engine.Handle, b *body) {
		if b.inWorld && !b.ghost {
			solids = append(solids, b)
		}
	})
	for i := 0; i < len(solids); i++ {
		for j := i + 1; j < len(solids); j++ {
			a, b := solids[i], solids[j]
			if !a.dynamic() && !b.dynamic() {
				continue
			}
			if !filtersAccept(a, b) {
				continue
			}
			e.separate(a, b)
		}
	}
}

func (e *Engine) separate(a, b *body) {
	minA, maxA := bounds(a)
	minB, maxB := bounds(b)
	depth, axis := penetration(minA, maxA, minB, maxB)
	if axis < 0 {
		return
	}
	// push a towards negative axis when it sits on the low side
	sign := 1.0
	if a.pose.Translation[axis] < b.pose.Translation[axis] {
		sign = -1.0
	}
	var shareA, shareB float64
	switch {
	case a.dynamic() && b.dynamic():
		total := a.params.Mass + b.params.Mass
		shareA = b.params.Mass / total
		shareB = a.params.Mass / total
	case a.dynamic():
		shareA = 1
	default:
		shareB = 1
	}
	restitution := common.Clamp(math.Max(a.params.Restitution, b.params.Restitution), 0, 1)
	if shareA > 0 {
		a.pose.Translation[axis] += sign * depth * shareA
		a.pose = transform.NewPose(a.pose.Translation, a.pose.Rotation)
		a.linVel[axis] = -a.linVel[axis] * restitution
	}
	if shareB > 0 {
		b.pose.Translation[axis] -= sign * depth * shareB
		b.pose = transform.NewPose(b.pose.Translation, b.pose.Rotation)
		b.linVel[axis] = -b.linVel[axis] * restitution
	}
}

func (e *Engine) with(h engine.Handle, fn func(b *body)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.bodies.Get(h); ok {
		fn(b)
	}
}

func dampingFactor(damping, dt float64) float64 {
	return math.Pow(1-common.Clamp(damping, 0, 1), dt)
}

func filtersAccept(a, b *body) bool {
	return common.Collides(a.params.Group, a.params.CollideWith, b.params.Group, b.params.CollideWith)
}

// bounds is the world-space AABB of b's shape.
func bounds(b *body) (mgl64.Vec3, mgl64.Vec3) {
	c := b.pose.Translation
	if b.shape == nil {
		return c, c
	}
	half := b.shape.HalfExtents()
	basis := b.pose.Basis
	var ext mgl64.Vec3
	for row := range 3 {
		for col := range 3 {
			ext[row] += math.Abs(basis.At(row, col)) * half[col]
		}
	}
	return c.Sub(ext), c.Add(ext)
}

func overlap(minA, maxA, minB, maxB mgl64.Vec3) bool {
	for i := range 3 {
		if maxA[i] < minB[i] || maxB[i] < minA[i] {
			return false
		}
	}
	return true
}

// penetration returns the smallest overlap depth and its axis, or -1 when
// the boxes do not overlap.
func penetration(minA, maxA, minB, maxB mgl64.Vec3) (float64, int) {
	depth, axis := math.Inf(1), -1
	for i := range 3 {
		d := math.Min(maxA[i], maxB[i]) - math.Max(minA[i], minB[i])
		if d <= 0 {
			return 0, -1
		}
		if d < depth {
			depth, axis = d, i
		}
	}
	return depth, axis
}
