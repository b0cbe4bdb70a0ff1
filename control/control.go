// Package control attaches physics bodies to scene nodes and runs their
// lifecycle: binding, world membership, enabling and per-frame transform
// hand-off.
package control

import (
	"errors"
	"fmt"
	"log"

	"github.com/milk9111/physync/engine"
	"github.com/milk9111/physync/scene"
	"github.com/milk9111/physync/shape"
	"github.com/milk9111/physync/space"
	"github.com/milk9111/physync/transform"
)

var (
	// ErrDoubleRegistration is logged, never returned, when AddToWorld runs
	// on a control that is already in a world.
	ErrDoubleRegistration = errors.New("control: already in world")
	ErrUseAfterUnbind     = errors.New("control: used after unbind")
	ErrNotBound           = errors.New("control: not bound to a node")
	ErrAlreadyBound       = errors.New("control: already bound to a node")
	ErrNilSpace           = errors.New("control: nil space")
	ErrEngineMismatch     = errors.New("control: space runs a different engine")
)

// Lifecycle is the externally visible state of a control.
type Lifecycle int

const (
	Unbound Lifecycle = iota
	Bound
	InWorld
	Released
)

func (l Lifecycle) String() string {
	switch l {
	case Unbound:
		return "unbound"
	case Bound:
		return "bound"
	case InWorld:
		return "in-world"
	case Released:
		return "released"
	default:
		return "unknown"
	}
}

// Control is implemented by RigidBodyControl and GhostControl.
type Control interface {
	scene.Control
	AddToWorld(sp *space.Space) error
	RemoveFromWorld() error
	SetEnabled(enabled bool) error
	Enabled() bool
	Lifecycle() Lifecycle
	State() State
	Node() *scene.Node
	SetDebugShape(enabled bool)
}

type Option func(*base)

// WithShape supplies the collision shape instead of deriving one from the
// node's geometry.
func WithShape(s shape.Shape) Option {
	return func(b *base) {
		b.shape = s
	}
}

func WithLogger(l *log.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithDebugShape shows the collision shape as a wireframe while rendering.
func WithDebugShape(enabled bool) Option {
	return func(b *base) {
		b.debugEnabled = enabled
	}
}

// base holds the lifecycle shared by both controls. The owner fills in
// member and place once a body exists.
type base struct {
	kind   string
	eng    engine.Engine
	logger *log.Logger
	shape  shape.Shape

	node     *scene.Node
	member   space.Member
	enabled  bool
	space    *space.Space
	added    bool
	released bool

	debugEnabled bool
	debug        *scene.Node

	// place moves the body to the node's current world pose.
	place func()
}

func newBase(kind string, eng engine.Engine, opts []Option) base {
	if eng == nil {
		panic("control: nil engine")
	}
	b := base{
		kind:    kind,
		eng:     eng,
		logger:  log.Default(),
		enabled: true,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *base) logf(format string, args ...any) {
	b.logger.Printf(b.kind+": "+format, args...)
}

func (b *base) Node() *scene.Node { return b.node }

func (b *base) Shape() shape.Shape { return b.shape }

func (b *base) Enabled() bool { return b.enabled }

func (b *base) Space() *space.Space { return b.space }

func (b *base) Lifecycle() Lifecycle {
	switch {
	case b.released:
		return Released
	case b.node == nil:
		return Unbound
	case b.added:
		return InWorld
	default:
		return Bound
	}
}

// checkBind validates a bind request.
func (b *base) checkBind(n *scene.Node) error {
	if b.released {
		return ErrUseAfterUnbind
	}
	if n == nil {
		return ErrNotBound
	}
	if b.node != nil {
		return fmt.Errorf("%w: %q", ErrAlreadyBound, b.node.Name())
	}
	return nil
}

// AddToWorld registers the body with sp. A disabled control remembers sp
// and registers when it is enabled again.
func (b *base) AddToWorld(sp *space.Space) error {
	if b.released {
		return ErrUseAfterUnbind
	}
	if b.node == nil {
		return ErrNotBound
	}
	if sp == nil {
		return ErrNilSpace
	}
	if sp.Engine() != b.eng {
		return ErrEngineMismatch
	}
	if b.added {
		b.logf("ignoring AddToWorld for %q: %v", b.node.Name(), ErrDoubleRegistration)
		return nil
	}
	b.space = sp
	if !b.enabled {
		b.logf("%q is disabled, registration deferred", b.node.Name())
		return nil
	}
	b.register()
	return nil
}

// RemoveFromWorld deregisters the body and forgets the world.
func (b *base) RemoveFromWorld() error {
	if b.released {
		return ErrUseAfterUnbind
	}
	b.deregister()
	b.space = nil
	return nil
}

// SetEnabled toggles participation in the world. Disabling keeps every body
// and shape setting; enabling moves the body to the node before it
// registers again.
func (b *base) SetEnabled(enabled bool) error {
	if b.released {
		return ErrUseAfterUnbind
	}
	if b.enabled == enabled {
		return nil
	}
	b.enabled = enabled
	if !enabled {
		b.deregister()
		return nil
	}
	if b.space == nil {
		return nil
	}
	if b.node == nil {
		return ErrNotBound
	}
	b.register()
	return nil
}

func (b *base) register() {
	if b.added || b.member == nil || b.space == nil {
		return
	}
	if b.place != nil {
		b.place()
	}
	b.space.Add(b.member)
	b.added = true
}

func (b *base) deregister() {
	if !b.added {
		return
	}
	b.space.Remove(b.member)
	b.added = false
}

// release runs the shared part of unbinding. It reports false when the
// control was already released.
func (b *base) release() bool {
	if b.released {
		return false
	}
	b.deregister()
	b.space = nil
	b.released = true
	b.node = nil
	b.member = nil
	b.debug = nil
	return true
}

// unbind removes self from its node, which calls back into OnNodeUnbound.
func (b *base) unbind(self scene.Control) {
	if b.node != nil {
		b.node.RemoveControl(self)
	}
}

func (b *base) live() bool {
	return !b.released && b.node != nil && b.member != nil
}

func (b *base) mustNotBeReleased() {
	if b.released {
		panic(ErrUseAfterUnbind)
	}
}

// SetDebugShape shows or hides the collision wireframe.
func (b *base) SetDebugShape(enabled bool) {
	b.mustNotBeReleased()
	b.debugEnabled = enabled
	if enabled && b.debug == nil && b.shape != nil {
		b.buildDebug()
	}
}

// DebugNode is the wireframe node drawn for the collision shape, if any.
func (b *base) DebugNode() *scene.Node { return b.debug }

func (b *base) buildDebug() {
	name := "collision"
	if b.node != nil {
		name = b.node.Name() + "-collision"
	}
	b.debug = scene.NewGeometry(name, shape.Wireframe(b.shape))
}

// renderDebug moves the wireframe to p and refreshes it before drawing, so
// it shows the latest committed physics pose even when the scene update has
// already run this frame.
func (b *base) renderDebug(r scene.Renderer, p transform.Pose) {
	if !b.enabled || !b.debugEnabled || b.debug == nil || r == nil || !b.live() {
		return
	}
	b.debug.SetLocalTranslation(p.Translation)
	b.debug.SetLocalRotation(p.Rotation)
	b.debug.UpdateGeometricState()
	r.Draw(b.debug)
}
