package shape

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Spec is the persisted form of a shape.
type Spec struct {
	Type        Kind          `yaml:"type"`
	HalfExtents []float64     `yaml:"half_extents,omitempty"`
	Radius      float64       `yaml:"radius,omitempty"`
	Height      float64       `yaml:"height,omitempty"`
	Axis        string        `yaml:"axis,omitempty"`
	Points      [][]float64   `yaml:"points,omitempty"`
	Triangles   [][][]float64 `yaml:"triangles,omitempty"`
	Scale       []float64     `yaml:"scale,omitempty"`
}

// SpecOf captures s for persistence.
func SpecOf(s Shape) Spec {
	spec := Spec{Type: s.Kind()}
	if sc := s.Scale(); sc != (mgl64.Vec3{1, 1, 1}) {
		spec.Scale = sc[:]
	}
	switch x := s.(type) {
	case *Box:
		e := x.Extents()
		spec.HalfExtents = e[:]
	case *Sphere:
		spec.Radius = x.Radius()
	case *Capsule:
		spec.Radius = x.Radius()
		spec.Height = x.Height()
		spec.Axis = x.Axis().String()
	case *Hull:
		for _, p := range x.Points() {
			spec.Points = append(spec.Points, []float64{p[0], p[1], p[2]})
		}
	case *Mesh:
		for _, tri := range x.Triangles() {
			spec.Triangles = append(spec.Triangles, [][]float64{
				{tri[0][0], tri[0][1], tri[0][2]},
				{tri[1][0], tri[1][1], tri[1][2]},
				{tri[2][0], tri[2][1], tri[2][2]},
			})
		}
	}
	return spec
}

// Build constructs the shape described by spec.
func (spec Spec) Build() (Shape, error) {
	var s Shape
	switch spec.Type {
	case KindBox:
		e, err := vec3(spec.HalfExtents)
		if err != nil {
			return nil, fmt.Errorf("shape: box half_extents: %w", err)
		}
		s = NewBox(e)
	case KindSphere:
		if spec.Radius <= 0 {
			return nil, fmt.Errorf("shape: sphere radius must be positive, got %v", spec.Radius)
		}
		s = NewSphere(spec.Radius)
	case KindCapsule:
		if spec.Radius <= 0 {
			return nil, fmt.Errorf("shape: capsule radius must be positive, got %v", spec.Radius)
		}
		s = NewCapsule(spec.Radius, spec.Height, ParseAxis(spec.Axis))
	case KindHull:
		points := make([]mgl64.Vec3, 0, len(spec.Points))
		for i, p := range spec.Points {
			v, err := vec3(p)
			if err != nil {
				return nil, fmt.Errorf("shape: hull point %d: %w", i, err)
			}
			points = append(points, v)
		}
		if len(points) == 0 {
			return nil, fmt.Errorf("shape: hull: %w", ErrNoGeometry)
		}
		s = NewHull(points)
	case KindMesh:
		tris := make([]Triangle, 0, len(spec.Triangles))
		for i, t := range spec.Triangles {
			if len(t) != 3 {
				return nil, fmt.Errorf("shape: mesh triangle %d has %d vertices", i, len(t))
			}
			var tri Triangle
			for j := range 3 {
				v, err := vec3(t[j])
				if err != nil {
					return nil, fmt.Errorf("shape: mesh triangle %d: %w", i, err)
				}
				tri[j] = v
			}
			tris = append(tris, tri)
		}
		if len(tris) == 0 {
			return nil, fmt.Errorf("shape: mesh: %w", ErrNoGeometry)
		}
		s = NewMesh(tris)
	default:
		return nil, fmt.Errorf("shape: unknown type %q", spec.Type)
	}
	if spec.Scale != nil {
		sc, err := vec3(spec.Scale)
		if err != nil {
			return nil, fmt.Errorf("shape: scale: %w", err)
		}
		s.SetScale(sc)
	}
	return s, nil
}

func vec3(v []float64) (mgl64.Vec3, error) {
	if len(v) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("expected 3 components, got %d", len(v))
	}
	return mgl64.Vec3{v[0], v[1], v[2]}, nil
}
