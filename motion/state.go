package motion

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/physync/transform"
)

// BodyTarget is the engine-side object a scene pose is applied to.
type BodyTarget interface {
	SetWorldTransform(p transform.Pose)
	Activate()
}

// Node is the scene-side object a physics pose is applied to.
type Node interface {
	// ParentWorldTransform returns the up to date world transform of the
	// node's parent, or false when the node has no parent.
	ParentWorldTransform() (transform.Transform, bool)
	SetLocalTranslation(v mgl64.Vec3)
	SetLocalRotation(q mgl64.Quat)
}

// MotionState is the per-body transform buffer shared by the physics step
// and the scene update. It is owned by exactly one body.
type MotionState struct {
	sync *Sync[transform.Pose]
}

func NewMotionState() *MotionState {
	return &MotionState{sync: NewSync(transform.IdentityPose())}
}

// SetSceneTransform queues a pose coming from the scene graph.
func (m *MotionState) SetSceneTransform(p transform.Pose) {
	m.sync.PushScene(p)
}

// SetPhysicsTransform queues a pose produced by a simulation step. It is
// ignored while a scene pose is still pending.
func (m *MotionState) SetPhysicsTransform(p transform.Pose) bool {
	return m.sync.PushPhysics(p)
}

// ApplyToBody moves the body to the pending scene pose and wakes it.
func (m *MotionState) ApplyToBody(b BodyTarget) bool {
	if b == nil {
		return false
	}
	return m.sync.ConsumeScene(func(p transform.Pose) {
		b.SetWorldTransform(p)
		b.Activate()
	})
}

// ApplyToNode writes the pending physics pose into the node's local
// transform, relative to its parent when it has one.
func (m *MotionState) ApplyToNode(n Node) bool {
	if n == nil {
		return false
	}
	return m.sync.ConsumePhysics(func(p transform.Pose) {
		local := p
		if parent, ok := n.ParentWorldTransform(); ok {
			local = transform.ToLocal(parent, p)
		}
		n.SetLocalTranslation(local.Translation)
		n.SetLocalRotation(local.Rotation)
	})
}

// ApplyToTransform copies the pending physics pose into out.
func (m *MotionState) ApplyToTransform(out *transform.Pose) bool {
	if out == nil {
		return false
	}
	return m.sync.ConsumePhysics(func(p transform.Pose) {
		*out = p
	})
}

// WorldPose is the last committed world pose from either side.
func (m *MotionState) WorldPose() transform.Pose {
	return m.sync.World()
}

func (m *MotionState) Phase() Phase {
	return m.sync.Phase()
}

func (m *MotionState) Dirty() (scene, physics bool) {
	return m.sync.Dirty()
}

// Reset places the state at p with no pending updates.
func (m *MotionState) Reset(p transform.Pose) {
	m.sync.Reset(p)
}
