package prefabs

import (
	"errors"
	"fmt"
	"log"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/physync/control"
	"github.com/milk9111/physync/scene"
	"github.com/milk9111/physync/script"
	"github.com/milk9111/physync/space"
	"github.com/milk9111/physync/transform"
)

var ErrDuplicateNode = errors.New("prefabs: duplicate node name")

// Scene is a built scene and the controls created for it.
type Scene struct {
	Root     *scene.Node
	Controls map[string]control.Control
	Drivers  map[string]*script.Driver
}

// Release unbinds every control and frees their bodies.
func (s *Scene) Release() {
	if s == nil || s.Root == nil {
		return
	}
	s.Root.Release()
}

type BuildOption func(*builder)

func WithLogger(l *log.Logger) BuildOption {
	return func(b *builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithScriptLoader replaces LoadScript, mostly for tests.
func WithScriptLoader(fn func(name string) ([]byte, error)) BuildOption {
	return func(b *builder) {
		if fn != nil {
			b.loadScript = fn
		}
	}
}

type builder struct {
	logger     *log.Logger
	loadScript func(name string) ([]byte, error)
}

// Build creates the node tree described by spec, binds physics controls
// and drivers, and adds every enabled control to sp. Physics controls are
// bound only after the whole tree exists, so their bodies start at the
// final world poses.
func Build(spec SceneSpec, sp *space.Space, opts ...BuildOption) (*Scene, error) {
	if sp == nil {
		return nil, errors.New("prefabs: nil space")
	}
	b := builder{logger: log.Default(), loadScript: LoadScript}
	for _, opt := range opts {
		opt(&b)
	}

	rootName := spec.Name
	if rootName == "" {
		rootName = "scene"
	}
	out := &Scene{
		Root:     scene.NewNode(rootName),
		Controls: make(map[string]control.Control),
		Drivers:  make(map[string]*script.Driver),
	}
	if len(spec.Gravity) > 0 {
		g, err := vec3(spec.Gravity, mgl64.Vec3{})
		if err != nil {
			return nil, fmt.Errorf("prefabs: gravity: %w", err)
		}
		sp.SetGravity(g)
	}

	nodes := map[string]*scene.Node{rootName: out.Root}
	for _, ns := range spec.Nodes {
		if _, dup := nodes[ns.Name]; dup || ns.Name == "" {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateNode, ns.Name)
		}
		n, err := buildNode(ns)
		if err != nil {
			return nil, fmt.Errorf("prefabs: node %q: %w", ns.Name, err)
		}
		parent := out.Root
		if ns.Parent != "" {
			p, ok := nodes[ns.Parent]
			if !ok {
				return nil, fmt.Errorf("prefabs: node %q: parent %q is not defined before it", ns.Name, ns.Parent)
			}
			parent = p
		}
		parent.AttachChild(n)
		nodes[ns.Name] = n
	}
	out.Root.UpdateGeometricState()

	for _, ns := range spec.Nodes {
		n := nodes[ns.Name]
		if ns.Script != "" {
			if err := b.bindScript(out, n, ns.Script); err != nil {
				out.Release()
				return nil, err
			}
		}
		if ns.Physics != nil {
			if err := b.bindPhysics(out, n, *ns.Physics, sp); err != nil {
				out.Release()
				return nil, err
			}
		}
	}
	return out, nil
}

func (b builder) bindScript(out *Scene, n *scene.Node, name string) error {
	src, err := b.loadScript(name)
	if err != nil {
		return fmt.Errorf("prefabs: load script %s: %w", name, err)
	}
	d, err := script.NewDriver(name, src, script.WithLogger(b.logger))
	if err != nil {
		return err
	}
	if err := n.AddControl(d); err != nil {
		return err
	}
	out.Drivers[n.Name()] = d
	return nil
}

func (b builder) bindPhysics(out *Scene, n *scene.Node, st control.State, sp *space.Space) error {
	c, err := control.New(sp.Engine(), st, control.WithLogger(b.logger))
	if err != nil {
		return fmt.Errorf("prefabs: node %q: %w", n.Name(), err)
	}
	if err := n.AddControl(c); err != nil {
		return err
	}
	if err := c.AddToWorld(sp); err != nil {
		return fmt.Errorf("prefabs: node %q: %w", n.Name(), err)
	}
	out.Controls[n.Name()] = c
	return nil
}

func buildNode(ns NodeSpec) (*scene.Node, error) {
	n := scene.NewNode(ns.Name)
	if ns.Mesh != nil {
		m, err := buildMesh(*ns.Mesh)
		if err != nil {
			return nil, err
		}
		n.SetMesh(m)
	}
	t, err := buildTransform(ns.Transform)
	if err != nil {
		return nil, err
	}
	n.SetLocalTransform(t)
	return n, nil
}

func buildTransform(ts TransformSpec) (transform.Transform, error) {
	t := transform.Identity()
	var err error
	if t.Translation, err = vec3(ts.Translation, mgl64.Vec3{}); err != nil {
		return t, fmt.Errorf("translation: %w", err)
	}
	if t.Scale, err = vec3(ts.Scale, mgl64.Vec3{1, 1, 1}); err != nil {
		return t, fmt.Errorf("scale: %w", err)
	}
	euler, err := vec3(ts.Rotation, mgl64.Vec3{})
	if err != nil {
		return t, fmt.Errorf("rotation: %w", err)
	}
	t.Rotation = mgl64.AnglesToQuat(
		mgl64.DegToRad(euler.X()),
		mgl64.DegToRad(euler.Y()),
		mgl64.DegToRad(euler.Z()),
		mgl64.XYZ,
	)
	return t, nil
}

func buildMesh(ms MeshSpec) (scene.Mesh, error) {
	switch ms.Type {
	case "sphere":
		if ms.Radius <= 0 {
			return nil, fmt.Errorf("sphere radius must be positive")
		}
		return scene.NewSphereMesh(ms.Radius), nil
	case "box":
		he, err := vec3(ms.HalfExtents, mgl64.Vec3{})
		if err != nil {
			return nil, fmt.Errorf("half_extents: %w", err)
		}
		return scene.NewBoxMesh(he.X(), he.Y(), he.Z()), nil
	case "trimesh":
		m := &scene.TriMesh{Indices: ms.Indices}
		for i, p := range ms.Positions {
			v, err := vec3(p, mgl64.Vec3{})
			if err != nil || len(p) == 0 {
				return nil, fmt.Errorf("position %d: want 3 components", i)
			}
			m.Positions = append(m.Positions, v)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown mesh type %q", ms.Type)
	}
}
