package shape

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/physync/scene"
)

// Wireframe builds a visual mesh outlining s, with the shape's scale baked
// in. It is used for debug visuals.
func Wireframe(s Shape) scene.Mesh {
	switch x := s.(type) {
	case *Box:
		e := x.HalfExtents()
		return scene.NewBoxMesh(e[0], e[1], e[2])
	case *Sphere:
		return scene.NewSphereMesh(x.ScaledRadius())
	case *Capsule:
		return capsuleMesh(x)
	case *Mesh:
		sc := x.Scale()
		m := &scene.TriMesh{}
		for _, tri := range x.Triangles() {
			base := len(m.Positions)
			for _, v := range tri {
				m.Positions = append(m.Positions, mulElem(v, sc))
			}
			m.Indices = append(m.Indices, base, base+1, base+2)
		}
		return m
	case nil:
		return nil
	default:
		// hulls are outlined by their bounds
		e := s.HalfExtents()
		return scene.NewBoxMesh(e[0], e[1], e[2])
	}
}

func capsuleMesh(c *Capsule) scene.Mesh {
	sphere := scene.NewSphereMesh(c.Radius())
	offset := c.Axis().Unit().Mul(c.Height() / 2)
	sc := c.Scale()
	m := &scene.TriMesh{}
	for _, tri := range sphere.Triangles() {
		base := len(m.Positions)
		for _, v := range tri {
			// stretch each hemisphere away from the centre along the axis
			if v.Dot(c.Axis().Unit()) >= 0 {
				v = v.Add(offset)
			} else {
				v = v.Sub(offset)
			}
			m.Positions = append(m.Positions, mulElem(v, sc))
		}
		m.Indices = append(m.Indices, base, base+1, base+2)
	}
	return m
}

func mulElem(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}
