package prefabs

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/physync/control"
	"gopkg.in/yaml.v3"
)

// SceneSpec describes a scene: a flat list of nodes whose parents are named
// before them.
type SceneSpec struct {
	Name    string     `yaml:"name"`
	Gravity []float64  `yaml:"gravity,omitempty"`
	Nodes   []NodeSpec `yaml:"nodes"`
}

type NodeSpec struct {
	Name      string         `yaml:"name"`
	Parent    string         `yaml:"parent,omitempty"`
	Transform TransformSpec  `yaml:"transform"`
	Mesh      *MeshSpec      `yaml:"mesh,omitempty"`
	Physics   *control.State `yaml:"physics,omitempty"`
	Script    string         `yaml:"script,omitempty"`
}

// TransformSpec is a local transform. Rotation is XYZ Euler angles in
// degrees.
type TransformSpec struct {
	Translation []float64 `yaml:"translation,omitempty"`
	Rotation    []float64 `yaml:"rotation,omitempty"`
	Scale       []float64 `yaml:"scale,omitempty"`
}

type MeshSpec struct {
	Type        string      `yaml:"type"`
	Radius      float64     `yaml:"radius,omitempty"`
	HalfExtents []float64   `yaml:"half_extents,omitempty"`
	Positions   [][]float64 `yaml:"positions,omitempty"`
	Indices     []int       `yaml:"indices,omitempty"`
}

// LoadSpec loads and decodes any YAML file known to Load.
func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

func LoadSceneSpec(filename string) (SceneSpec, error) {
	return LoadSpec[SceneSpec](filename)
}

func vec3(v []float64, def mgl64.Vec3) (mgl64.Vec3, error) {
	switch len(v) {
	case 0:
		return def, nil
	case 3:
		return mgl64.Vec3{v[0], v[1], v[2]}, nil
	default:
		return mgl64.Vec3{}, fmt.Errorf("want 3 components, got %d", len(v))
	}
}
