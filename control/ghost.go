package control

import (
	"fmt"

	"github.com/milk9111/physync/body"
	"github.com/milk9111/physync/common"
	"github.com/milk9111/physync/engine"
	"github.com/milk9111/physync/scene"
	"github.com/milk9111/physync/shape"
	"github.com/milk9111/physync/space"
)

// GhostControl attaches a sensor to a node. The ghost always follows the
// node, including its world scale, and only reports overlaps.
type GhostControl struct {
	base

	ghost       *body.Ghost
	group       common.CollisionGroup
	collideWith common.CollisionGroup
}

var _ Control = (*GhostControl)(nil)

func NewGhostControl(eng engine.Engine, opts ...Option) *GhostControl {
	c := &GhostControl{
		base:        newBase("GhostControl", eng, opts),
		group:       common.DefaultCollisionGroup,
		collideWith: common.DefaultCollideWith,
	}
	c.place = c.moveToNode
	return c
}

func (c *GhostControl) Ghost() *body.Ghost { return c.ghost }

func (c *GhostControl) OnNodeBound(n *scene.Node) error {
	if err := c.checkBind(n); err != nil {
		return err
	}
	if c.shape == nil {
		s, err := shape.Derive(n, 0)
		if err != nil {
			return fmt.Errorf("control: derive ghost shape for %q: %w", n.Name(), err)
		}
		c.shape = s
	}
	c.node = n
	c.ghost = body.NewGhost(c.eng, c.shape)
	c.ghost.SetCollisionGroup(c.group)
	c.ghost.SetCollideWith(c.collideWith)
	c.member = c.ghost
	c.moveToNode()
	if c.debugEnabled {
		c.buildDebug()
	}
	return nil
}

// moveToNode applies the node's pose and scale to the ghost immediately.
func (c *GhostControl) moveToNode() {
	if c.ghost == nil || c.node == nil {
		return
	}
	c.ghost.SetScenePose(c.node.WorldPose(), c.node.WorldScale())
	c.ghost.SyncToEngine()
}

func (c *GhostControl) OnNodeUnbound() {
	if !c.release() {
		return
	}
	if c.ghost != nil {
		c.ghost.Destroy()
		c.ghost = nil
	}
	c.shape = nil
}

// Unbind removes the control from its node. It is idempotent.
func (c *GhostControl) Unbind() {
	c.unbind(c)
	c.OnNodeUnbound()
}

// OnUpdate queues the node's pose and scale for the next physics pass.
func (c *GhostControl) OnUpdate(float64) {
	if !c.enabled || !c.live() {
		return
	}
	c.ghost.SetScenePose(c.node.WorldPose(), c.node.WorldScale())
}

func (c *GhostControl) OnRender(r scene.Renderer) {
	if c.ghost == nil {
		return
	}
	c.renderDebug(r, c.ghost.WorldPose())
}

// Overlaps returns the world members touching the ghost. It is empty while
// the control is not in a world.
func (c *GhostControl) Overlaps() []space.Member {
	if !c.added {
		return nil
	}
	return c.space.Overlaps(c.ghost)
}

func (c *GhostControl) CollisionGroup() common.CollisionGroup { return c.group }

func (c *GhostControl) SetCollisionGroup(g common.CollisionGroup) {
	c.mustNotBeReleased()
	if !g.Single() {
		panic("control: collision group must be a single bit")
	}
	c.group = g
	if c.ghost != nil {
		c.ghost.SetCollisionGroup(g)
	}
}

func (c *GhostControl) CollideWith() common.CollisionGroup { return c.collideWith }

func (c *GhostControl) SetCollideWith(mask common.CollisionGroup) {
	c.mustNotBeReleased()
	c.collideWith = mask
	if c.ghost != nil {
		c.ghost.SetCollideWith(mask)
	}
}
