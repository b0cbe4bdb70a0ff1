// Package scene is a small hierarchical scene graph. Nodes are not safe for
// concurrent use; the scene update pass owns them.
package scene

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/physync/transform"
)

var (
	ErrNilControl      = errors.New("scene: control is nil")
	ErrControlAttached = errors.New("scene: control already attached")
)

// Node is a scene graph element with an optional mesh and any number of
// controls.
type Node struct {
	name     string
	parent   *Node
	children []*Node
	mesh     Mesh

	local   transform.Transform
	world   transform.Transform
	refresh bool

	controls []Control
}

func NewNode(name string) *Node {
	return &Node{
		name:    name,
		local:   transform.Identity(),
		world:   transform.Identity(),
		refresh: true,
	}
}

// NewGeometry returns a node carrying mesh.
func NewGeometry(name string, mesh Mesh) *Node {
	n := NewNode(name)
	n.mesh = mesh
	return n
}

func (n *Node) Name() string   { return n.name }
func (n *Node) Parent() *Node  { return n.parent }
func (n *Node) Mesh() Mesh     { return n.mesh }
func (n *Node) SetMesh(m Mesh) { n.mesh = m }
func (n *Node) Children() []*Node {
	return slices.Clone(n.children)
}

// Path is the slash separated list of names from the root to n.
func (n *Node) Path() string {
	var parts []string
	for cur := n; cur != nil; cur = cur.parent {
		parts = append(parts, cur.name)
	}
	slices.Reverse(parts)
	return strings.Join(parts, "/")
}

// Find resolves a path relative to n. The first element must be n's name.
func (n *Node) Find(path string) *Node {
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] != n.name {
		return nil
	}
	cur := n
	for _, part := range parts[1:] {
		var next *Node
		for _, c := range cur.children {
			if c.name == part {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

// AttachChild makes c a child of n, detaching it from any previous parent.
func (n *Node) AttachChild(c *Node) {
	if c == nil || c == n {
		return
	}
	if c.parent != nil {
		c.parent.DetachChild(c)
	}
	c.parent = n
	n.children = append(n.children, c)
	c.setRefresh()
}

func (n *Node) DetachChild(c *Node) bool {
	idx := slices.Index(n.children, c)
	if idx < 0 {
		return false
	}
	n.children = slices.Delete(n.children, idx, idx+1)
	c.parent = nil
	c.setRefresh()
	return true
}

// DetachFromParent removes n from its parent and returns a function that
// puts it back at the same child index.
func (n *Node) DetachFromParent() (reattach func()) {
	parent := n.parent
	if parent == nil {
		return func() {}
	}
	idx := slices.Index(parent.children, n)
	parent.DetachChild(n)
	return func() {
		if n.parent != nil {
			return
		}
		if idx > len(parent.children) {
			idx = len(parent.children)
		}
		parent.children = slices.Insert(parent.children, idx, n)
		n.parent = parent
		n.setRefresh()
	}
}

func (n *Node) LocalTransform() transform.Transform { return n.local }
func (n *Node) LocalTranslation() mgl64.Vec3        { return n.local.Translation }
func (n *Node) LocalRotation() mgl64.Quat           { return n.local.Rotation }
func (n *Node) LocalScale() mgl64.Vec3              { return n.local.Scale }

func (n *Node) SetLocalTranslation(v mgl64.Vec3) {
	n.local.Translation = v
	n.setRefresh()
}

func (n *Node) SetLocalRotation(q mgl64.Quat) {
	n.local.Rotation = q
	n.setRefresh()
}

func (n *Node) SetLocalScale(v mgl64.Vec3) {
	n.local.Scale = v
	n.setRefresh()
}

func (n *Node) SetLocalTransform(t transform.Transform) {
	n.local = t
	n.setRefresh()
}

// WorldTransform returns the node's world transform, recomputing it when an
// ancestor or the node itself changed since the last call.
func (n *Node) WorldTransform() transform.Transform {
	if n.refresh {
		if n.parent == nil {
			n.world = n.local
		} else {
			n.world = n.local.Combine(n.parent.WorldTransform())
		}
		n.refresh = false
	}
	return n.world
}

func (n *Node) WorldTranslation() mgl64.Vec3 { return n.WorldTransform().Translation }
func (n *Node) WorldRotation() mgl64.Quat    { return n.WorldTransform().Rotation }
func (n *Node) WorldScale() mgl64.Vec3       { return n.WorldTransform().Scale }

// WorldPose is the world transform without scale.
func (n *Node) WorldPose() transform.Pose {
	return n.WorldTransform().Pose()
}

// ParentWorldTransform returns the parent's world transform if n has a
// parent.
func (n *Node) ParentWorldTransform() (transform.Transform, bool) {
	if n.parent == nil {
		return transform.Transform{}, false
	}
	return n.parent.WorldTransform(), true
}

// UpdateGeometricState brings the world transforms of n and its subtree up
// to date.
func (n *Node) UpdateGeometricState() {
	n.WorldTransform()
	for _, c := range n.children {
		c.UpdateGeometricState()
	}
}

func (n *Node) setRefresh() {
	n.refresh = true
	for _, c := range n.children {
		c.setRefresh()
	}
}

// Triangles collects every triangle in the subtree, expressed in n's own
// space: descendant transforms are applied, n's transform is not.
func (n *Node) Triangles() []Triangle {
	var out []Triangle
	n.collect(transform.Identity(), &out)
	return out
}

func (n *Node) collect(rel transform.Transform, out *[]Triangle) {
	if n.mesh != nil {
		for _, tri := range n.mesh.Triangles() {
			*out = append(*out, Triangle{rel.Apply(tri[0]), rel.Apply(tri[1]), rel.Apply(tri[2])})
		}
	}
	for _, c := range n.children {
		c.collect(c.local.Combine(rel), out)
	}
}

// AddControl binds c to n. If binding fails the control is not attached.
func (n *Node) AddControl(c Control) error {
	if c == nil {
		return ErrNilControl
	}
	if slices.Contains(n.controls, c) {
		return ErrControlAttached
	}
	if err := c.OnNodeBound(n); err != nil {
		return fmt.Errorf("scene: bind control to %q: %w", n.name, err)
	}
	n.controls = append(n.controls, c)
	return nil
}

// RemoveControl unbinds c from n.
func (n *Node) RemoveControl(c Control) bool {
	idx := slices.Index(n.controls, c)
	if idx < 0 {
		return false
	}
	n.controls = slices.Delete(n.controls, idx, idx+1)
	c.OnNodeUnbound()
	return true
}

func (n *Node) Controls() []Control {
	return slices.Clone(n.controls)
}

// Release unbinds every control in the subtree and detaches n from its
// parent. It is what removing a node from the scene means.
func (n *Node) Release() {
	for _, c := range slices.Clone(n.children) {
		c.Release()
	}
	for len(n.controls) > 0 {
		n.RemoveControl(n.controls[len(n.controls)-1])
	}
	if n.parent != nil {
		n.parent.DetachChild(n)
	}
}

// Update runs the scene pass for the subtree: controls first, then world
// transforms.
func (n *Node) Update(dt float64) {
	n.updateLogicalState(dt)
	n.UpdateGeometricState()
}

func (n *Node) updateLogicalState(dt float64) {
	for _, c := range slices.Clone(n.controls) {
		c.OnUpdate(dt)
	}
	for _, c := range slices.Clone(n.children) {
		c.updateLogicalState(dt)
	}
}

// Render draws every mesh in the subtree and gives each control its render
// callback.
func (n *Node) Render(r Renderer) {
	if r == nil {
		return
	}
	if n.mesh != nil {
		r.Draw(n)
	}
	for _, c := range n.controls {
		c.OnRender(r)
	}
	for _, c := range n.children {
		c.Render(r)
	}
}

// Visit calls fn for n and every descendant, depth first.
func (n *Node) Visit(fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		c.Visit(fn)
	}
}
