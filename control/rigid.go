package control

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/physync/body"
	"github.com/milk9111/physync/common"
	"github.com/milk9111/physync/engine"
	"github.com/milk9111/physync/scene"
	"github.com/milk9111/physync/shape"
	"github.com/milk9111/physync/transform"
)

// RigidBodyControl makes a scene node a rigid body. Dynamic bodies move the
// node; kinematic bodies with kinematic spatial set follow it.
type RigidBodyControl struct {
	base

	body             *body.RigidBody
	params           engine.BodyParams
	kinematicSpatial bool

	// velocities set before the body exists
	linVel mgl64.Vec3
	angVel mgl64.Vec3
}

var _ Control = (*RigidBodyControl)(nil)

// NewRigidBodyControl returns an unbound control. The body is created when
// the control is added to a node.
func NewRigidBodyControl(eng engine.Engine, mass float64, opts ...Option) *RigidBodyControl {
	if mass < 0 {
		mass = 0
	}
	c := &RigidBodyControl{
		base:             newBase("RigidBodyControl", eng, opts),
		params:           engine.DefaultParams(mass),
		kinematicSpatial: true,
	}
	c.place = c.moveToNode
	return c
}

// Body is the underlying body, nil until bound and after unbind.
func (c *RigidBodyControl) Body() *body.RigidBody { return c.body }

// OnNodeBound derives the shape if none was supplied, creates the body and
// places it at the node's world pose.
func (c *RigidBodyControl) OnNodeBound(n *scene.Node) error {
	if err := c.checkBind(n); err != nil {
		return err
	}
	if c.shape == nil {
		s, err := shape.Derive(n, c.params.Mass)
		if err != nil {
			return fmt.Errorf("control: derive shape for %q: %w", n.Name(), err)
		}
		c.shape = s
	}
	c.node = n
	c.createBody()
	if c.debugEnabled {
		c.buildDebug()
	}
	return nil
}

func (c *RigidBodyControl) createBody() {
	c.body = body.NewRigidBody(c.eng, c.shape, c.params.Mass)
	c.body.SetParams(c.params)
	c.member = c.body
	c.moveToNode()
	if c.params.Dynamic() {
		if c.linVel != (mgl64.Vec3{}) {
			c.body.SetLinearVelocity(c.linVel)
		}
		if c.angVel != (mgl64.Vec3{}) {
			c.body.SetAngularVelocity(c.angVel)
		}
	}
	c.linVel, c.angVel = mgl64.Vec3{}, mgl64.Vec3{}
}

func (c *RigidBodyControl) moveToNode() {
	if c.body == nil || c.node == nil {
		return
	}
	c.body.Place(c.node.WorldPose())
}

// OnNodeUnbound leaves the world and frees the body and shape. Calling it
// again does nothing.
func (c *RigidBodyControl) OnNodeUnbound() {
	name := ""
	if c.node != nil {
		name = c.node.Name()
	}
	if !c.release() {
		return
	}
	if c.body != nil {
		c.body.Destroy()
		c.body = nil
	}
	c.shape = nil
	if name != "" {
		c.logf("released %q", name)
	}
}

// Unbind removes the control from its node. It is idempotent.
func (c *RigidBodyControl) Unbind() {
	c.unbind(c)
	c.OnNodeUnbound()
}

// OnUpdate runs the scene side of the hand-off: a kinematic body with
// kinematic spatial set follows the node, every other body writes its last
// simulated pose into the node.
func (c *RigidBodyControl) OnUpdate(float64) {
	if !c.enabled || !c.live() {
		return
	}
	if c.params.Kinematic && c.kinematicSpatial {
		c.body.Teleport(c.node.WorldPose())
		return
	}
	c.body.MotionState().ApplyToNode(c.node)
}

func (c *RigidBodyControl) OnRender(r scene.Renderer) {
	if c.body == nil {
		return
	}
	c.renderDebug(r, c.body.WorldPose())
}

// RebuildShape derives a new shape from the node's current geometry and
// recreates the body with it. On failure the old shape stays in use.
func (c *RigidBodyControl) RebuildShape() error {
	if c.released {
		return ErrUseAfterUnbind
	}
	if c.node == nil {
		return ErrNotBound
	}
	s, err := shape.Derive(c.node, c.params.Mass)
	if err != nil {
		return fmt.Errorf("control: rebuild shape for %q: %w", c.node.Name(), err)
	}
	c.SetShape(s)
	return nil
}

// SetShape replaces the collision shape. A bound control recreates its body
// and keeps its world membership.
func (c *RigidBodyControl) SetShape(s shape.Shape) {
	c.mustNotBeReleased()
	if s == nil {
		panic("control: nil shape")
	}
	c.shape = s
	if c.body == nil {
		return
	}
	if c.params.Dynamic() {
		c.linVel = c.body.LinearVelocity()
		c.angVel = c.body.AngularVelocity()
	}
	wasAdded := c.added
	c.deregister()
	c.body.Destroy()
	c.createBody()
	if c.debug != nil {
		c.buildDebug()
	}
	if wasAdded {
		c.register()
	}
}

// Clone copies every setting of c into a new control bound to n. The shape
// is copied, never shared, and a dynamic body keeps its velocities.
func (c *RigidBodyControl) Clone(n *scene.Node) (*RigidBodyControl, error) {
	c.mustNotBeReleased()
	var opts []Option
	if c.shape != nil {
		s, err := shape.SpecOf(c.shape).Build()
		if err != nil {
			return nil, fmt.Errorf("control: clone shape: %w", err)
		}
		opts = append(opts, WithShape(s))
	}
	opts = append(opts, WithLogger(c.logger), WithDebugShape(c.debugEnabled))
	clone := NewRigidBodyControl(c.eng, c.params.Mass, opts...)
	clone.params = c.params
	clone.kinematicSpatial = c.kinematicSpatial
	clone.enabled = c.enabled
	if c.body != nil && c.params.Dynamic() {
		clone.linVel = c.body.LinearVelocity()
		clone.angVel = c.body.AngularVelocity()
	} else {
		clone.linVel, clone.angVel = c.linVel, c.angVel
	}
	if n != nil {
		if err := n.AddControl(clone); err != nil {
			return nil, err
		}
	}
	return clone, nil
}

// SetPhysicsLocation moves the body. A warning is logged while kinematic
// spatial is set, since a kinematic body then follows the node on the next
// update.
func (c *RigidBodyControl) SetPhysicsLocation(v mgl64.Vec3) {
	c.mustHaveBody()
	c.warnStaleWrite("SetPhysicsLocation")
	p := c.body.WorldPose()
	c.body.Teleport(transform.NewPose(v, p.Rotation))
}

// SetPhysicsRotation rotates the body, with the same warning as
// SetPhysicsLocation.
func (c *RigidBodyControl) SetPhysicsRotation(q mgl64.Quat) {
	c.mustHaveBody()
	c.warnStaleWrite("SetPhysicsRotation")
	p := c.body.WorldPose()
	c.body.Teleport(transform.NewPose(p.Translation, q))
}

func (c *RigidBodyControl) PhysicsLocation() mgl64.Vec3 {
	c.mustHaveBody()
	return c.body.WorldPose().Translation
}

func (c *RigidBodyControl) PhysicsRotation() mgl64.Quat {
	c.mustHaveBody()
	return c.body.WorldPose().Rotation
}

func (c *RigidBodyControl) warnStaleWrite(op string) {
	if c.kinematicSpatial {
		c.logf("warning: %s on %q with kinematic spatial set, the node overrides it while kinematic", op, c.node.Name())
	}
}

func (c *RigidBodyControl) mustHaveBody() {
	c.mustNotBeReleased()
	if c.body == nil {
		panic(ErrNotBound)
	}
}

// setParams records p and forwards it to the body if there is one.
func (c *RigidBodyControl) setParams(fn func(p *engine.BodyParams)) {
	c.mustNotBeReleased()
	fn(&c.params)
	if c.body != nil {
		c.body.SetParams(c.params)
	}
}

func (c *RigidBodyControl) Params() engine.BodyParams { return c.params }

func (c *RigidBodyControl) Mass() float64 { return c.params.Mass }

func (c *RigidBodyControl) SetMass(m float64) {
	if m < 0 {
		m = 0
	}
	c.setParams(func(p *engine.BodyParams) { p.Mass = m })
}

func (c *RigidBodyControl) Kinematic() bool { return c.params.Kinematic }

// SetKinematic switches between a simulated body and one moved only by
// user code.
func (c *RigidBodyControl) SetKinematic(k bool) {
	c.setParams(func(p *engine.BodyParams) { p.Kinematic = k })
	if k && c.body != nil {
		// drop any pose the simulation published for the old dynamic body
		c.body.Place(c.body.WorldPose())
	}
}

func (c *RigidBodyControl) KinematicSpatial() bool { return c.kinematicSpatial }

// SetKinematicSpatial chooses whether a kinematic body follows its node.
func (c *RigidBodyControl) SetKinematicSpatial(v bool) {
	c.mustNotBeReleased()
	c.kinematicSpatial = v
}

func (c *RigidBodyControl) SetDamping(linear, angular float64) {
	c.setParams(func(p *engine.BodyParams) {
		p.LinearDamping = common.Clamp(linear, 0, 1)
		p.AngularDamping = common.Clamp(angular, 0, 1)
	})
}

func (c *RigidBodyControl) SetFriction(f float64) {
	c.setParams(func(p *engine.BodyParams) { p.Friction = f })
}

func (c *RigidBodyControl) SetRestitution(r float64) {
	c.setParams(func(p *engine.BodyParams) { p.Restitution = r })
}

func (c *RigidBodyControl) SetCollisionGroup(g common.CollisionGroup) {
	if !g.Single() {
		panic("control: collision group must be a single bit")
	}
	c.setParams(func(p *engine.BodyParams) { p.Group = g })
}

func (c *RigidBodyControl) SetCollideWith(mask common.CollisionGroup) {
	c.setParams(func(p *engine.BodyParams) { p.CollideWith = mask })
}

// SetGravity overrides world gravity for this body.
func (c *RigidBodyControl) SetGravity(g mgl64.Vec3) {
	c.setParams(func(p *engine.BodyParams) {
		p.Gravity = g
		p.GravityOverride = true
	})
}

func (c *RigidBodyControl) LinearVelocity() mgl64.Vec3 {
	c.mustNotBeReleased()
	if c.body == nil {
		return c.linVel
	}
	return c.body.LinearVelocity()
}

func (c *RigidBodyControl) SetLinearVelocity(v mgl64.Vec3) {
	c.mustNotBeReleased()
	if c.body == nil {
		c.linVel = v
		return
	}
	c.body.SetLinearVelocity(v)
}

func (c *RigidBodyControl) AngularVelocity() mgl64.Vec3 {
	c.mustNotBeReleased()
	if c.body == nil {
		return c.angVel
	}
	return c.body.AngularVelocity()
}

func (c *RigidBodyControl) SetAngularVelocity(v mgl64.Vec3) {
	c.mustNotBeReleased()
	if c.body == nil {
		c.angVel = v
		return
	}
	c.body.SetAngularVelocity(v)
}

func (c *RigidBodyControl) ApplyImpulse(impulse mgl64.Vec3) {
	c.mustHaveBody()
	c.body.ApplyImpulse(impulse)
}
