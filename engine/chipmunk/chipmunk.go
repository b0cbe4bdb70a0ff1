// Package chipmunk runs physync bodies on a Chipmunk2D space. Simulation
// happens in the XY plane: translation Z is carried through unchanged and
// only the rotation about Z is simulated.
package chipmunk

import (
	"log"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/physync/engine"
	"github.com/milk9111/physync/shape"
	"github.com/milk9111/physync/transform"
)

const (
	defaultIterations = 20
	meshSegmentRadius = 0.01
)

type object struct {
	handle  engine.Handle
	source  shape.Shape
	params  engine.BodyParams
	ghost   bool
	inWorld bool
	z       float64

	body   *cp.Body
	shapes []*cp.Shape
}

// Engine implements engine.Engine on top of a cp.Space.
type Engine struct {
	mu      sync.Mutex
	space   *cp.Space
	objects engine.Registry[*object]
	logger  *log.Logger
}

type Option func(*Engine)

// WithIterations sets the solver iteration count.
func WithIterations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.space.Iterations = uint(n)
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an engine with gravity (0, -9.81).
func New(opts ...Option) *Engine {
	space := cp.NewSpace()
	space.Iterations = defaultIterations
	space.SetGravity(cp.Vector{X: 0, Y: -9.81})
	e := &Engine{space: space, logger: log.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ engine.Engine = (*Engine)(nil)

// Draw runs fn with the underlying space while no step is in progress.
func (e *Engine) Draw(fn func(space *cp.Space)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.space)
}

func (e *Engine) CreateBody(s shape.Shape, mass float64) engine.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	obj := &object{source: s, params: engine.DefaultParams(mass)}
	obj.handle = e.objects.Create(obj)
	e.build(obj, transform.IdentityPose())
	return obj.handle
}

func (e *Engine) CreateGhost(s shape.Shape) engine.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	obj := &object{source: s, params: engine.DefaultParams(0), ghost: true}
	obj.handle = e.objects.Create(obj)
	e.build(obj, transform.IdentityPose())
	return obj.handle
}

func (e *Engine) DestroyBody(h engine.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	obj, ok := e.objects.Get(h)
	if !ok {
		return
	}
	e.detach(obj)
	e.objects.Remove(h)
}

// RefreshShape rebuilds h's Chipmunk shapes from the current shape scale.
func (e *Engine) RefreshShape(h engine.Handle) {
	e.with(h, func(obj *object) {
		if obj.inWorld {
			for _, s := range obj.shapes {
				e.space.RemoveShape(s)
			}
		}
		obj.shapes = e.shapesFor(obj, outline(obj.source))
		e.applyShapeParams(obj)
		if obj.inWorld {
			for _, s := range obj.shapes {
				e.space.AddShape(s)
			}
		}
	})
}

// SetParams applies p. Changing between dynamic and kinematic, or changing
// the mass, rebuilds the Chipmunk body in place.
func (e *Engine) SetParams(h engine.Handle, p engine.BodyParams) {
	e.with(h, func(obj *object) {
		if obj.ghost {
			p.Mass = 0
		}
		rebuild := p.Dynamic() != obj.params.Dynamic() || (p.Dynamic() && p.Mass != obj.params.Mass)
		obj.params = p
		if rebuild {
			pose := e.pose(obj)
			in := obj.inWorld
			e.detach(obj)
			e.build(obj, pose)
			if in {
				e.attach(obj)
			}
			return
		}
		e.applyShapeParams(obj)
	})
}

func (e *Engine) SetWorldTransform(h engine.Handle, p transform.Pose) {
	e.with(h, func(obj *object) {
		obj.z = p.Translation.Z()
		obj.body.SetPosition(cp.Vector{X: p.Translation.X(), Y: p.Translation.Y()})
		obj.body.SetAngle(angleOf(p.Rotation))
		for _, s := range obj.shapes {
			s.CacheBB()
		}
	})
}

func (e *Engine) WorldTransform(h engine.Handle) (transform.Pose, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	obj, ok := e.objects.Get(h)
	if !ok {
		return transform.Pose{}, engine.ErrUnknownHandle
	}
	return e.pose(obj), nil
}

func (e *Engine) Activate(h engine.Handle) {
	e.with(h, func(obj *object) {
		if obj.inWorld && obj.body.GetType() == cp.BODY_DYNAMIC {
			obj.body.Activate()
		}
	})
}

func (e *Engine) AddToWorld(h engine.Handle) {
	e.with(h, func(obj *object) {
		if obj.inWorld {
			return
		}
		e.attach(obj)
	})
}

func (e *Engine) RemoveFromWorld(h engine.Handle) {
	e.with(h, func(obj *object) {
		if !obj.inWorld {
			return
		}
		for _, s := range obj.shapes {
			e.space.RemoveShape(s)
		}
		e.space.RemoveBody(obj.body)
		obj.inWorld = false
	})
}

func (e *Engine) InWorld(h engine.Handle) bool {
	in := false
	e.with(h, func(obj *object) { in = obj.inWorld })
	return in
}

// QueryOverlaps asks the space for every shape touching one of h's shapes.
func (e *Engine) QueryOverlaps(h engine.Handle) []engine.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	obj, ok := e.objects.Get(h)
	if !ok || !obj.inWorld {
		return nil
	}
	seen := make(map[engine.Handle]struct{})
	var out []engine.Handle
	for _, s := range obj.shapes {
		e.space.ShapeQuery(s, func(other *cp.Shape, _ *cp.ContactPointSet) {
			oh, ok := other.UserData.(engine.Handle)
			if !ok || oh == h {
				return
			}
			if _, dup := seen[oh]; dup {
				return
			}
			seen[oh] = struct{}{}
			out = append(out, oh)
		})
	}
	return out
}

func (e *Engine) SetLinearVelocity(h engine.Handle, v mgl64.Vec3) {
	e.with(h, func(obj *object) {
		if obj.body.GetType() == cp.BODY_DYNAMIC {
			obj.body.SetVelocityVector(cp.Vector{X: v.X(), Y: v.Y()})
		}
	})
}

func (e *Engine) LinearVelocity(h engine.Handle) mgl64.Vec3 {
	var out mgl64.Vec3
	e.with(h, func(obj *object) {
		v := obj.body.Velocity()
		out = mgl64.Vec3{v.X, v.Y, 0}
	})
	return out
}

func (e *Engine) SetAngularVelocity(h engine.Handle, v mgl64.Vec3) {
	e.with(h, func(obj *object) {
		if obj.body.GetType() == cp.BODY_DYNAMIC {
			obj.body.SetAngularVelocity(v.Z())
		}
	})
}

func (e *Engine) AngularVelocity(h engine.Handle) mgl64.Vec3 {
	var out mgl64.Vec3
	e.with(h, func(obj *object) {
		out = mgl64.Vec3{0, 0, obj.body.AngularVelocity()}
	})
	return out
}

func (e *Engine) ApplyImpulse(h engine.Handle, impulse mgl64.Vec3) {
	e.with(h, func(obj *object) {
		if obj.body.GetType() == cp.BODY_DYNAMIC {
			obj.body.ApplyImpulseAtWorldPoint(cp.Vector{X: impulse.X(), Y: impulse.Y()}, obj.body.Position())
		}
	})
}

func (e *Engine) SetGravity(g mgl64.Vec3) {
	e.mu.Lock()
	e.space.SetGravity(cp.Vector{X: g.X(), Y: g.Y()})
	e.mu.Unlock()
}

func (e *Engine) Step(dt float64) {
	if dt <= 0 {
		return
	}
	e.mu.Lock()
	e.space.Step(dt)
	e.mu.Unlock()
}

func (e *Engine) with(h engine.Handle, fn func(obj *object)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if obj, ok := e.objects.Get(h); ok {
		fn(obj)
	}
}

func (e *Engine) pose(obj *object) transform.Pose {
	p := obj.body.Position()
	return transform.NewPose(mgl64.Vec3{p.X, p.Y, obj.z}, quatOf(obj.body.Angle()))
}

func (e *Engine) attach(obj *object) {
	e.space.AddBody(obj.body)
	for _, s := range obj.shapes {
		e.space.AddShape(s)
	}
	obj.inWorld = true
}

func (e *Engine) detach(obj *object) {
	if !obj.inWorld {
		return
	}
	for _, s := range obj.shapes {
		e.space.RemoveShape(s)
	}
	e.space.RemoveBody(obj.body)
	obj.inWorld = false
}

// build creates the Chipmunk body and shapes for obj, placed at pose.
func (e *Engine) build(obj *object, pose transform.Pose) {
	verts := outline(obj.source)
	if obj.params.Dynamic() {
		obj.body = cp.NewBody(obj.params.Mass, moment(obj.source, obj.params.Mass, verts))
		e.installDamping(obj)
	} else {
		obj.body = cp.NewKinematicBody()
	}
	obj.body.UserData = obj.handle
	obj.body.SetPosition(cp.Vector{X: pose.Translation.X(), Y: pose.Translation.Y()})
	obj.body.SetAngle(angleOf(pose.Rotation))
	obj.z = pose.Translation.Z()

	obj.shapes = e.shapesFor(obj, verts)
	e.applyShapeParams(obj)
}

func (e *Engine) shapesFor(obj *object, verts []cp.Vector) []*cp.Shape {
	body := obj.body
	switch s := obj.source.(type) {
	case *shape.Sphere:
		return []*cp.Shape{cp.NewCircle(body, s.ScaledRadius(), cp.Vector{})}
	case *shape.Box:
		he := s.HalfExtents()
		return []*cp.Shape{cp.NewBox(body, he.X()*2, he.Y()*2, 0)}
	case *shape.Capsule:
		he := s.HalfExtents()
		r := math.Min(he.X(), he.Y())
		switch s.Axis() {
		case shape.AxisX:
			return []*cp.Shape{cp.NewSegment(body, cp.Vector{X: r - he.X()}, cp.Vector{X: he.X() - r}, r)}
		case shape.AxisY:
			return []*cp.Shape{cp.NewSegment(body, cp.Vector{Y: r - he.Y()}, cp.Vector{Y: he.Y() - r}, r)}
		}
		// seen end-on
		return []*cp.Shape{cp.NewCircle(body, r, cp.Vector{})}
	case *shape.Mesh:
		sc := s.Scale()
		var out []*cp.Shape
		for _, tri := range s.Triangles() {
			for i := range 3 {
				p, q := tri[i], tri[(i+1)%3]
				a := cp.Vector{X: p.X() * sc.X(), Y: p.Y() * sc.Y()}
				b := cp.Vector{X: q.X() * sc.X(), Y: q.Y() * sc.Y()}
				if a.Distance(b) == 0 {
					continue
				}
				out = append(out, cp.NewSegment(body, a, b, meshSegmentRadius))
			}
		}
		return out
	}
	if len(verts) < 3 {
		e.logger.Printf("ChipmunkEngine: body %v has no planar outline, using a point", obj.handle)
		return []*cp.Shape{cp.NewCircle(body, meshSegmentRadius, cp.Vector{})}
	}
	return []*cp.Shape{cp.NewPolyShape(body, len(verts), verts, cp.NewTransformIdentity(), 0)}
}

func (e *Engine) applyShapeParams(obj *object) {
	filter := cp.ShapeFilter{
		Group:      cp.NO_GROUP,
		Categories: uint(obj.params.Group),
		Mask:       uint(obj.params.CollideWith),
	}
	for _, s := range obj.shapes {
		s.UserData = obj.handle
		s.SetFriction(obj.params.Friction)
		s.SetElasticity(obj.params.Restitution)
		s.SetSensor(obj.ghost)
		s.SetFilter(filter)
	}
}

// installDamping applies per-body linear and angular damping on top of the
// space damping. Bodies carry no torque, so spin is scaled directly.
func (e *Engine) installDamping(obj *object) {
	obj.body.SetVelocityUpdateFunc(func(body *cp.Body, gravity cp.Vector, damping float64, dt float64) {
		lin := math.Pow(1-clamp01(obj.params.LinearDamping), dt)
		ang := math.Pow(1-clamp01(obj.params.AngularDamping), dt)
		if obj.params.GravityOverride {
			gravity = cp.Vector{X: obj.params.Gravity.X(), Y: obj.params.Gravity.Y()}
		}
		w := body.AngularVelocity()
		cp.BodyUpdateVelocity(body, gravity, damping*lin, dt)
		if ang != lin {
			body.SetAngularVelocity(w * damping * ang)
		}
	})
}

// outline projects a shape onto the XY plane as a point cloud suitable for
// a convex polygon.
func outline(s shape.Shape) []cp.Vector {
	switch x := s.(type) {
	case *shape.Hull:
		sc := x.Scale()
		pts := x.Points()
		out := make([]cp.Vector, 0, len(pts))
		for _, p := range pts {
			out = append(out, cp.Vector{X: p.X() * sc.X(), Y: p.Y() * sc.Y()})
		}
		return out
	case nil:
		return nil
	default:
		he := s.HalfExtents()
		return []cp.Vector{{X: -he.X(), Y: -he.Y()}, {X: he.X(), Y: -he.Y()}, {X: he.X(), Y: he.Y()}, {X: -he.X(), Y: he.Y()}}
	}
}

func moment(s shape.Shape, mass float64, verts []cp.Vector) float64 {
	switch x := s.(type) {
	case *shape.Sphere:
		return cp.MomentForCircle(mass, 0, x.ScaledRadius(), cp.Vector{})
	case *shape.Hull:
		if len(verts) >= 3 {
			return cp.MomentForPoly(mass, len(verts), verts, cp.Vector{}, 0)
		}
	}
	if s == nil {
		return cp.MomentForCircle(mass, 0, meshSegmentRadius, cp.Vector{})
	}
	he := s.HalfExtents()
	return cp.MomentForBox(mass, math.Max(he.X()*2, meshSegmentRadius), math.Max(he.Y()*2, meshSegmentRadius))
}

// angleOf extracts the rotation about Z.
func angleOf(q mgl64.Quat) float64 {
	return 2 * math.Atan2(q.V.Z(), q.W)
}

func quatOf(angle float64) mgl64.Quat {
	return mgl64.QuatRotate(angle, mgl64.Vec3{0, 0, 1})
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
