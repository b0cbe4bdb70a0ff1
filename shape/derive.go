package shape

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/physync/scene"
)

// ErrNoGeometry is returned when a shape is derived from a node that has no
// mesh anywhere in its subtree. Callers must then supply a shape explicitly.
var ErrNoGeometry = errors.New("shape: no geometry to derive from")

// Geometry is the part of a scene node that derivation reads.
type Geometry interface {
	Mesh() scene.Mesh
	Triangles() []scene.Triangle
	WorldScale() mgl64.Vec3
	DetachFromParent() (reattach func())
}

// Derive builds a collision shape for g.
//
// Sphere and box meshes map to their analytic shapes whatever the mass.
// Otherwise a dynamic body (mass > 0) gets a hull of every vertex in the
// subtree and a static or kinematic body gets the exact triangle mesh. The
// node is detached from its parent while the geometry is read so parent
// transforms do not leak into the shape.
func Derive(g Geometry, mass float64) (Shape, error) {
	if g == nil {
		return nil, ErrNoGeometry
	}
	switch m := g.Mesh().(type) {
	case *scene.SphereMesh:
		return NewSphere(m.Radius), nil
	case *scene.BoxMesh:
		return NewBox(m.Extent), nil
	}

	reattach := g.DetachFromParent()
	defer reattach()

	tris := g.Triangles()
	if len(tris) == 0 {
		return nil, ErrNoGeometry
	}
	scale := g.WorldScale()

	var s Shape
	if mass > 0 {
		points := make([]mgl64.Vec3, 0, len(tris)*3)
		for _, tri := range tris {
			points = append(points, tri[0], tri[1], tri[2])
		}
		s = NewHull(points)
	} else {
		converted := make([]Triangle, len(tris))
		for i, tri := range tris {
			converted[i] = Triangle(tri)
		}
		s = NewMesh(converted)
	}
	s.SetScale(scale)
	return s, nil
}

// Equivalent reports whether a and b describe the same geometry within tol.
func Equivalent(a, b Shape, tol float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	if !a.Scale().ApproxEqualThreshold(b.Scale(), tol) {
		return false
	}
	switch x := a.(type) {
	case *Box:
		return x.Extents().ApproxEqualThreshold(b.(*Box).Extents(), tol)
	case *Sphere:
		return abs(x.Radius()-b.(*Sphere).Radius()) <= tol
	case *Capsule:
		y := b.(*Capsule)
		return x.Axis() == y.Axis() && abs(x.Radius()-y.Radius()) <= tol && abs(x.Height()-y.Height()) <= tol
	case *Hull:
		return sameVertices(x.Points(), b.(*Hull).Points(), tol)
	case *Mesh:
		xt, yt := x.Triangles(), b.(*Mesh).Triangles()
		if len(xt) != len(yt) {
			return false
		}
		for i := range xt {
			if !sameVertices(xt[i][:], yt[i][:], tol) {
				return false
			}
		}
		return true
	}
	return false
}

func sameVertices(a, b []mgl64.Vec3, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].ApproxEqualThreshold(b[i], tol) {
			return false
		}
	}
	return true
}
