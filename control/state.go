package control

import (
	"fmt"

	"github.com/milk9111/physync/common"
	"github.com/milk9111/physync/engine"
	"github.com/milk9111/physync/scene"
	"github.com/milk9111/physync/shape"
	"gopkg.in/yaml.v3"
)

const (
	KindRigid = "rigid"
	KindGhost = "ghost"
)

// State is the persisted form of a control. Missing fields decode to their
// defaults.
type State struct {
	Kind             string                `yaml:"kind"`
	Enabled          bool                  `yaml:"enabled"`
	KinematicSpatial bool                  `yaml:"kinematic_spatial"`
	Node             string                `yaml:"node,omitempty"`
	Mass             float64               `yaml:"mass"`
	LinearDamping    float64               `yaml:"linear_damping"`
	AngularDamping   float64               `yaml:"angular_damping"`
	Friction         float64               `yaml:"friction"`
	Restitution      float64               `yaml:"restitution"`
	CollisionGroup   common.CollisionGroup `yaml:"collision_group"`
	CollideWith      common.CollisionGroup `yaml:"collide_with"`
	Kinematic        bool                  `yaml:"kinematic"`
	Shape            *shape.Spec           `yaml:"shape,omitempty"`
}

// DefaultState is the state of a freshly constructed rigid body control.
func DefaultState() State {
	p := engine.DefaultParams(0)
	return State{
		Kind:             KindRigid,
		Enabled:          true,
		KinematicSpatial: true,
		Friction:         p.Friction,
		CollisionGroup:   common.DefaultCollisionGroup,
		CollideWith:      common.DefaultCollideWith,
	}
}

func (s *State) UnmarshalYAML(value *yaml.Node) error {
	type plain State
	out := plain(DefaultState())
	if err := value.Decode(&out); err != nil {
		return err
	}
	*s = State(out)
	return nil
}

func (s State) params() engine.BodyParams {
	return engine.BodyParams{
		Mass:           s.Mass,
		LinearDamping:  s.LinearDamping,
		AngularDamping: s.AngularDamping,
		Friction:       s.Friction,
		Restitution:    s.Restitution,
		Group:          s.CollisionGroup,
		CollideWith:    s.CollideWith,
		Kinematic:      s.Kinematic,
	}
}

// State captures the control for persistence.
func (c *RigidBodyControl) State() State {
	st := State{
		Kind:             KindRigid,
		Enabled:          c.enabled,
		KinematicSpatial: c.kinematicSpatial,
		Mass:             c.params.Mass,
		LinearDamping:    c.params.LinearDamping,
		AngularDamping:   c.params.AngularDamping,
		Friction:         c.params.Friction,
		Restitution:      c.params.Restitution,
		CollisionGroup:   c.params.Group,
		CollideWith:      c.params.CollideWith,
		Kinematic:        c.params.Kinematic,
	}
	if c.node != nil {
		st.Node = c.node.Path()
	}
	if c.shape != nil {
		spec := shape.SpecOf(c.shape)
		st.Shape = &spec
	}
	return st
}

func (c *GhostControl) State() State {
	st := DefaultState()
	st.Kind = KindGhost
	st.Enabled = c.enabled
	st.CollisionGroup = c.group
	st.CollideWith = c.collideWith
	if c.node != nil {
		st.Node = c.node.Path()
	}
	if c.shape != nil {
		spec := shape.SpecOf(c.shape)
		st.Shape = &spec
	}
	return st
}

// New builds an unbound control from st.
func New(eng engine.Engine, st State, opts ...Option) (Control, error) {
	if st.Shape != nil {
		s, err := st.Shape.Build()
		if err != nil {
			return nil, fmt.Errorf("control: restore shape: %w", err)
		}
		opts = append([]Option{WithShape(s)}, opts...)
	}
	if !st.CollisionGroup.Single() {
		return nil, fmt.Errorf("control: collision group %#x is not a single bit", uint32(st.CollisionGroup))
	}

	switch st.Kind {
	case KindRigid, "":
		c := NewRigidBodyControl(eng, st.Mass, opts...)
		c.params = st.params()
		if c.params.Mass < 0 {
			c.params.Mass = 0
		}
		c.kinematicSpatial = st.KinematicSpatial
		c.enabled = st.Enabled
		return c, nil
	case KindGhost:
		c := NewGhostControl(eng, opts...)
		c.group = st.CollisionGroup
		c.collideWith = st.CollideWith
		c.enabled = st.Enabled
		return c, nil
	default:
		return nil, fmt.Errorf("control: unknown kind %q", st.Kind)
	}
}

// Restore builds a control from st and binds it to the node at st.Node
// under root.
func Restore(eng engine.Engine, root *scene.Node, st State, opts ...Option) (Control, error) {
	if root == nil {
		return nil, ErrNotBound
	}
	n := root.Find(st.Node)
	if n == nil {
		return nil, fmt.Errorf("control: restore: no node at %q", st.Node)
	}
	c, err := New(eng, st, opts...)
	if err != nil {
		return nil, err
	}
	if err := n.AddControl(c); err != nil {
		return nil, err
	}
	return c, nil
}
