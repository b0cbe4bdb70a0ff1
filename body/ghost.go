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

// Ghost is a sensor object with no mass and no collision response. It only
// follows the scene; the simulation never moves it.
type Ghost struct {
	eng    engine.Engine
	handle engine.Handle
	shape  shape.Shape
	motion *motion.MotionState

	mu         sync.Mutex
	params     engine.BodyParams
	scale      mgl64.Vec3
	scaleDirty bool
	destroyed  bool
}

func NewGhost(eng engine.Engine, s shape.Shape) *Ghost {
	if eng == nil {
		panic("body: nil engine")
	}
	if s == nil {
		panic("body: nil shape")
	}
	return &Ghost{
		eng:    eng,
		handle: eng.CreateGhost(s),
		shape:  s,
		motion: motion.NewMotionState(),
		params: engine.DefaultParams(0),
		scale:  s.Scale(),
	}
}

func (g *Ghost) Handle() engine.Handle            { return g.handle }
func (g *Ghost) Shape() shape.Shape               { return g.shape }
func (g *Ghost) MotionState() *motion.MotionState { return g.motion }
func (g *Ghost) Engine() engine.Engine            { return g.eng }

func (g *Ghost) Params() engine.BodyParams {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.params
}

func (g *Ghost) setParams(fn func(p *engine.BodyParams)) {
	g.mu.Lock()
	fn(&g.params)
	p := g.params
	dead := g.destroyed
	g.mu.Unlock()
	if !dead {
		g.eng.SetParams(g.handle, p)
	}
}

func (g *Ghost) SetCollisionGroup(group common.CollisionGroup) {
	if !group.Single() {
		panic("body: collision group must be a single bit")
	}
	g.setParams(func(p *engine.BodyParams) { p.Group = group })
}

func (g *Ghost) SetCollideWith(mask common.CollisionGroup) {
	g.setParams(func(p *engine.BodyParams) { p.CollideWith = mask })
}

// SetScenePose queues the pose and world scale of the followed node.
func (g *Ghost) SetScenePose(p transform.Pose, scale mgl64.Vec3) {
	g.mu.Lock()
	if scale != g.scale {
		g.scale = scale
		g.scaleDirty = true
	}
	g.mu.Unlock()
	g.motion.SetSceneTransform(p)
}

func (g *Ghost) WorldPose() transform.Pose {
	return g.motion.WorldPose()
}

// SyncToEngine applies the pending pose and, when it changed, the node
// scale to the ghost's shape.
func (g *Ghost) SyncToEngine() {
	g.mu.Lock()
	scale, dirty := g.scale, g.scaleDirty
	g.scaleDirty = false
	g.mu.Unlock()
	if dirty {
		g.shape.SetScale(scale)
		g.eng.RefreshShape(g.handle)
	}
	g.motion.ApplyToBody(target{eng: g.eng, handle: g.handle})
}

// SyncFromEngine does nothing: a ghost is always scene driven.
func (g *Ghost) SyncFromEngine() {}

// Overlaps returns the engine objects currently touching the ghost.
func (g *Ghost) Overlaps() []engine.Handle {
	return g.eng.QueryOverlaps(g.handle)
}

func (g *Ghost) Destroy() {
	g.mu.Lock()
	if g.destroyed {
		g.mu.Unlock()
		return
	}
	g.destroyed = true
	g.mu.Unlock()
	g.eng.RemoveFromWorld(g.handle)
	g.eng.DestroyBody(g.handle)
}

func (g *Ghost) Destroyed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.destroyed
}
