// Package shape describes collision geometry and derives it from visual
// meshes.
package shape

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

type Kind string

const (
	KindBox     Kind = "box"
	KindSphere  Kind = "sphere"
	KindCapsule Kind = "capsule"
	KindHull    Kind = "hull"
	KindMesh    Kind = "mesh"
)

// Shape is immutable collision geometry with a mutable non-uniform scale.
// Scale may be read from any goroutine; only the owning body writes it.
type Shape interface {
	Kind() Kind
	Scale() mgl64.Vec3
	SetScale(v mgl64.Vec3)
	// HalfExtents is the scaled half size of the shape's local bounding box.
	HalfExtents() mgl64.Vec3
}

type scaled struct {
	mu    sync.RWMutex
	scale mgl64.Vec3
}

func (s *scaled) init() {
	s.scale = mgl64.Vec3{1, 1, 1}
}

func (s *scaled) Scale() mgl64.Vec3 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scale
}

func (s *scaled) SetScale(v mgl64.Vec3) {
	s.mu.Lock()
	s.scale = v
	s.mu.Unlock()
}

func (s *scaled) apply(v mgl64.Vec3) mgl64.Vec3 {
	sc := s.Scale()
	return mgl64.Vec3{v[0] * abs(sc[0]), v[1] * abs(sc[1]), v[2] * abs(sc[2])}
}

// maxScale is the largest absolute scale component; round shapes cannot
// stretch so they use it for every axis.
func (s *scaled) maxScale() float64 {
	sc := s.Scale()
	return max(abs(sc[0]), abs(sc[1]), abs(sc[2]))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

type Box struct {
	scaled
	extents mgl64.Vec3
}

// NewBox returns a box with the given half extents.
func NewBox(halfExtents mgl64.Vec3) *Box {
	b := &Box{extents: halfExtents}
	b.init()
	return b
}

func (b *Box) Kind() Kind              { return KindBox }
func (b *Box) Extents() mgl64.Vec3     { return b.extents }
func (b *Box) HalfExtents() mgl64.Vec3 { return b.apply(b.extents) }

type Sphere struct {
	scaled
	radius float64
}

func NewSphere(radius float64) *Sphere {
	s := &Sphere{radius: radius}
	s.init()
	return s
}

func (s *Sphere) Kind() Kind      { return KindSphere }
func (s *Sphere) Radius() float64 { return s.radius }

// ScaledRadius is the radius after applying the largest scale component.
func (s *Sphere) ScaledRadius() float64 {
	return s.radius * s.maxScale()
}

func (s *Sphere) HalfExtents() mgl64.Vec3 {
	r := s.ScaledRadius()
	return mgl64.Vec3{r, r, r}
}

type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisZ:
		return "z"
	default:
		return "y"
	}
}

// ParseAxis maps "x", "y" or "z" to an Axis; anything else is AxisY.
func ParseAxis(s string) Axis {
	switch s {
	case "x", "X":
		return AxisX
	case "z", "Z":
		return AxisZ
	default:
		return AxisY
	}
}

// Unit is the unit vector along a.
func (a Axis) Unit() mgl64.Vec3 {
	var v mgl64.Vec3
	v[a] = 1
	return v
}

// Capsule is a cylinder of the given height capped by hemispheres.
type Capsule struct {
	scaled
	radius float64
	height float64
	axis   Axis
}

func NewCapsule(radius, height float64, axis Axis) *Capsule {
	c := &Capsule{radius: radius, height: height, axis: axis}
	c.init()
	return c
}

func (c *Capsule) Kind() Kind      { return KindCapsule }
func (c *Capsule) Radius() float64 { return c.radius }
func (c *Capsule) Height() float64 { return c.height }
func (c *Capsule) Axis() Axis      { return c.axis }

func (c *Capsule) HalfExtents() mgl64.Vec3 {
	e := mgl64.Vec3{c.radius, c.radius, c.radius}
	e[c.axis] += c.height / 2
	return c.apply(e)
}

// Hull is the convex hull of a point cloud.
type Hull struct {
	scaled
	points []mgl64.Vec3
	bounds mgl64.Vec3
}

func NewHull(points []mgl64.Vec3) *Hull {
	h := &Hull{points: dedupe(points)}
	h.init()
	for _, p := range h.points {
		for i := range 3 {
			h.bounds[i] = max(h.bounds[i], abs(p[i]))
		}
	}
	return h
}

func (h *Hull) Kind() Kind              { return KindHull }
func (h *Hull) HalfExtents() mgl64.Vec3 { return h.apply(h.bounds) }

// Points returns a copy of the hull's unscaled points.
func (h *Hull) Points() []mgl64.Vec3 {
	return append([]mgl64.Vec3(nil), h.points...)
}

// Triangle is three vertices in the shape's local space.
type Triangle [3]mgl64.Vec3

// Mesh is an exact triangle soup, intended for static bodies.
type Mesh struct {
	scaled
	triangles []Triangle
	bounds    mgl64.Vec3
}

func NewMesh(triangles []Triangle) *Mesh {
	m := &Mesh{triangles: append([]Triangle(nil), triangles...)}
	m.init()
	for _, tri := range m.triangles {
		for _, v := range tri {
			for i := range 3 {
				m.bounds[i] = max(m.bounds[i], abs(v[i]))
			}
		}
	}
	return m
}

func (m *Mesh) Kind() Kind              { return KindMesh }
func (m *Mesh) HalfExtents() mgl64.Vec3 { return m.apply(m.bounds) }

// Triangles returns a copy of the unscaled triangles.
func (m *Mesh) Triangles() []Triangle {
	return append([]Triangle(nil), m.triangles...)
}

const dedupeGrid = 1e-6

func dedupe(points []mgl64.Vec3) []mgl64.Vec3 {
	type key [3]int64
	seen := make(map[key]struct{}, len(points))
	out := make([]mgl64.Vec3, 0, len(points))
	for _, p := range points {
		k := key{int64(p[0] / dedupeGrid), int64(p[1] / dedupeGrid), int64(p[2] / dedupeGrid)}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}
