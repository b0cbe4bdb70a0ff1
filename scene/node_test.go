package scene

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

type recordingControl struct {
	bindErr  error
	bound    *Node
	unbound  int
	updates  int
	renders  int
	lastStep float64
}

func (c *recordingControl) OnNodeBound(n *Node) error {
	if c.bindErr != nil {
		return c.bindErr
	}
	c.bound = n
	return nil
}

func (c *recordingControl) OnNodeUnbound()    { c.unbound++ }
func (c *recordingControl) OnRender(Renderer) { c.renders++ }

func (c *recordingControl) OnUpdate(dt float64) {
	c.updates++
	c.lastStep = dt
}

type countingRenderer struct {
	drawn []string
}

func (r *countingRenderer) Draw(n *Node) { r.drawn = append(r.drawn, n.Name()) }

func TestWorldTransformFollowsParent(t *testing.T) {
	root := NewNode("root")
	child := NewNode("child")
	root.AttachChild(child)

	root.SetLocalTranslation(mgl64.Vec3{10, 0, 0})
	root.SetLocalRotation(mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}))
	child.SetLocalTranslation(mgl64.Vec3{1, 0, 0})

	got := child.WorldTranslation()
	want := mgl64.Vec3{10, 1, 0}
	if !got.ApproxEqualThreshold(want, 1e-9) {
		t.Fatalf("child world translation = %v, want %v", got, want)
	}

	root.SetLocalTranslation(mgl64.Vec3{0, 0, 0})
	got = child.WorldTranslation()
	if !got.ApproxEqualThreshold(mgl64.Vec3{0, 1, 0}, 1e-9) {
		t.Fatalf("child did not pick up parent move, got %v", got)
	}
}

func TestDetachFromParentRestoresOrder(t *testing.T) {
	root := NewNode("root")
	a, b, c := NewNode("a"), NewNode("b"), NewNode("c")
	root.AttachChild(a)
	root.AttachChild(b)
	root.AttachChild(c)

	reattach := b.DetachFromParent()
	if b.Parent() != nil || len(root.Children()) != 2 {
		t.Fatalf("b should be detached")
	}
	reattach()
	children := root.Children()
	if len(children) != 3 || children[1] != b || b.Parent() != root {
		t.Fatalf("b not restored at index 1: %v", children)
	}
}

func TestPathAndFind(t *testing.T) {
	root := NewNode("root")
	mid := NewNode("mid")
	leaf := NewNode("leaf")
	root.AttachChild(mid)
	mid.AttachChild(leaf)

	if leaf.Path() != "root/mid/leaf" {
		t.Fatalf("unexpected path %q", leaf.Path())
	}
	if root.Find("root/mid/leaf") != leaf {
		t.Fatalf("find did not resolve leaf")
	}
	if root.Find("root/nope") != nil || root.Find("other/mid") != nil {
		t.Fatalf("find should fail for unknown paths")
	}
}

func TestTrianglesUseRelativeTransforms(t *testing.T) {
	root := NewNode("root")
	root.SetLocalTranslation(mgl64.Vec3{100, 100, 100})
	child := NewGeometry("box", NewBoxMesh(1, 1, 1))
	child.SetLocalTranslation(mgl64.Vec3{5, 0, 0})
	root.AttachChild(child)

	tris := root.Triangles()
	if len(tris) != 12 {
		t.Fatalf("expected 12 triangles, got %d", len(tris))
	}
	for _, tri := range tris {
		for _, v := range tri {
			if v.X() < 4-1e-9 || v.X() > 6+1e-9 {
				t.Fatalf("vertex %v not offset by child translation only", v)
			}
		}
	}
}

func TestSphereMeshVerticesOnSurface(t *testing.T) {
	m := NewSphereMesh(2)
	tris := m.Triangles()
	if len(tris) == 0 {
		t.Fatalf("expected tessellation")
	}
	for _, tri := range tris {
		for _, v := range tri {
			if math.Abs(v.Len()-2) > 1e-9 {
				t.Fatalf("vertex %v not on radius 2", v)
			}
		}
	}
}

func TestTriMeshSkipsBadIndices(t *testing.T) {
	m := &TriMesh{
		Positions: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Indices:   []int{0, 1, 2, 0, 1, 7},
	}
	if got := len(m.Triangles()); got != 1 {
		t.Fatalf("expected 1 triangle, got %d", got)
	}
}

func TestControlLifecycle(t *testing.T) {
	n := NewGeometry("ball", NewSphereMesh(1))
	c := &recordingControl{}

	if err := n.AddControl(c); err != nil {
		t.Fatalf("add control: %v", err)
	}
	if c.bound != n {
		t.Fatalf("control was not bound")
	}
	if err := n.AddControl(c); !errors.Is(err, ErrControlAttached) {
		t.Fatalf("expected ErrControlAttached, got %v", err)
	}

	n.Update(0.5)
	if c.updates != 1 || c.lastStep != 0.5 {
		t.Fatalf("update not forwarded: %+v", c)
	}

	r := &countingRenderer{}
	n.Render(r)
	if c.renders != 1 || len(r.drawn) != 1 {
		t.Fatalf("render not forwarded: renders=%d drawn=%v", c.renders, r.drawn)
	}

	if !n.RemoveControl(c) || c.unbound != 1 {
		t.Fatalf("remove control did not unbind")
	}
	if n.RemoveControl(c) {
		t.Fatalf("second remove should report false")
	}
}

func TestAddControlBindFailure(t *testing.T) {
	n := NewNode("empty")
	boom := errors.New("boom")
	c := &recordingControl{bindErr: boom}
	if err := n.AddControl(c); !errors.Is(err, boom) {
		t.Fatalf("expected bind error, got %v", err)
	}
	if len(n.Controls()) != 0 {
		t.Fatalf("failed control should not be attached")
	}
}

func TestReleaseUnbindsSubtree(t *testing.T) {
	root := NewNode("root")
	mid := NewNode("mid")
	leaf := NewNode("leaf")
	root.AttachChild(mid)
	mid.AttachChild(leaf)
	cm, cl := &recordingControl{}, &recordingControl{}
	_ = mid.AddControl(cm)
	_ = leaf.AddControl(cl)

	mid.Release()
	if cm.unbound != 1 || cl.unbound != 1 {
		t.Fatalf("controls not unbound: mid=%d leaf=%d", cm.unbound, cl.unbound)
	}
	if mid.Parent() != nil || len(root.Children()) != 0 {
		t.Fatalf("mid should be detached from root")
	}
}
