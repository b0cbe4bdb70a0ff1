package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Triangle is three vertices in some node's space.
type Triangle [3]mgl64.Vec3

// Mesh is a visual primitive attached to a node.
type Mesh interface {
	Triangles() []Triangle
}

const (
	defaultSphereRings    = 8
	defaultSphereSegments = 12
)

// SphereMesh is a tessellated sphere centred on the node origin.
type SphereMesh struct {
	Radius   float64
	Rings    int
	Segments int
}

func NewSphereMesh(radius float64) *SphereMesh {
	return &SphereMesh{Radius: radius, Rings: defaultSphereRings, Segments: defaultSphereSegments}
}

func (s *SphereMesh) Triangles() []Triangle {
	if s == nil || s.Radius <= 0 {
		return nil
	}
	rings := s.Rings
	if rings < 2 {
		rings = defaultSphereRings
	}
	segments := s.Segments
	if segments < 3 {
		segments = defaultSphereSegments
	}
	point := func(ring, seg int) mgl64.Vec3 {
		theta := math.Pi * float64(ring) / float64(rings)
		phi := 2 * math.Pi * float64(seg) / float64(segments)
		return mgl64.Vec3{
			s.Radius * math.Sin(theta) * math.Cos(phi),
			s.Radius * math.Cos(theta),
			s.Radius * math.Sin(theta) * math.Sin(phi),
		}
	}
	tris := make([]Triangle, 0, rings*segments*2)
	for r := 0; r < rings; r++ {
		for sg := 0; sg < segments; sg++ {
			a := point(r, sg)
			b := point(r+1, sg)
			c := point(r+1, sg+1)
			d := point(r, sg+1)
			if r > 0 {
				tris = append(tris, Triangle{a, b, d})
			}
			if r < rings-1 {
				tris = append(tris, Triangle{b, c, d})
			}
		}
	}
	return tris
}

// BoxMesh is an axis-aligned box centred on the node origin. Extent holds
// half sizes.
type BoxMesh struct {
	Extent mgl64.Vec3
}

func NewBoxMesh(x, y, z float64) *BoxMesh {
	return &BoxMesh{Extent: mgl64.Vec3{x, y, z}}
}

func (b *BoxMesh) Triangles() []Triangle {
	if b == nil {
		return nil
	}
	e := b.Extent
	v := [8]mgl64.Vec3{
		{-e[0], -e[1], -e[2]}, {e[0], -e[1], -e[2]}, {e[0], e[1], -e[2]}, {-e[0], e[1], -e[2]},
		{-e[0], -e[1], e[2]}, {e[0], -e[1], e[2]}, {e[0], e[1], e[2]}, {-e[0], e[1], e[2]},
	}
	faces := [6][4]int{
		{0, 3, 2, 1}, {4, 5, 6, 7},
		{0, 1, 5, 4}, {3, 7, 6, 2},
		{0, 4, 7, 3}, {1, 2, 6, 5},
	}
	tris := make([]Triangle, 0, 12)
	for _, f := range faces {
		tris = append(tris, Triangle{v[f[0]], v[f[1]], v[f[2]]}, Triangle{v[f[0]], v[f[2]], v[f[3]]})
	}
	return tris
}

// TriMesh is an indexed triangle list.
type TriMesh struct {
	Positions []mgl64.Vec3
	Indices   []int
}

func (m *TriMesh) Triangles() []Triangle {
	if m == nil {
		return nil
	}
	tris := make([]Triangle, 0, len(m.Indices)/3)
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a, b, c := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		if !m.valid(a) || !m.valid(b) || !m.valid(c) {
			continue
		}
		tris = append(tris, Triangle{m.Positions[a], m.Positions[b], m.Positions[c]})
	}
	return tris
}

func (m *TriMesh) valid(i int) bool {
	return i >= 0 && i < len(m.Positions)
}
