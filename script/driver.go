// Package script animates scene nodes with tengo scripts.
//
// A driver script runs once per scene update with these globals:
//
//	time         seconds since the driver was bound
//	dt           seconds since the previous update
//	origin       local translation of the node when it was bound
//	translation  current local translation [x, y, z]
//	rotation     current local rotation [x, y, z, w]
//	state        map kept between runs
//
// Whatever the script leaves in translation and rotation becomes the
// node's new local transform.
package script

import (
	"errors"
	"fmt"
	"log"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/physync/scene"
)

var ErrNotBound = errors.New("script: driver not bound")

// Driver is a scene.Control running a tengo script every update.
type Driver struct {
	name     string
	logger   *log.Logger
	compiled *tengo.Compiled
	state    *tengo.Map

	node   *scene.Node
	origin mgl64.Vec3
	time   float64
	err    error
}

type Option func(*Driver)

func WithLogger(l *log.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDriver compiles src. name is only used in log messages.
func NewDriver(name string, src []byte, opts ...Option) (*Driver, error) {
	d := &Driver{
		name:   name,
		logger: log.Default(),
		state:  &tengo.Map{Value: map[string]tengo.Object{}},
	}
	for _, opt := range opts {
		opt(d)
	}
	compiled, err := compile(src)
	if err != nil {
		return nil, fmt.Errorf("script: compile %s: %w", name, err)
	}
	d.compiled = compiled
	return d, nil
}

func compile(src []byte) (*tengo.Compiled, error) {
	s := tengo.NewScript(src)
	for _, name := range []string{"time", "dt"} {
		if err := s.Add(name, 0.0); err != nil {
			return nil, err
		}
	}
	for _, name := range []string{"origin", "translation"} {
		if err := s.Add(name, []any{0.0, 0.0, 0.0}); err != nil {
			return nil, err
		}
	}
	if err := s.Add("rotation", []any{0.0, 0.0, 0.0, 1.0}); err != nil {
		return nil, err
	}
	if err := s.Add("state", map[string]any{}); err != nil {
		return nil, err
	}
	s.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))
	return s.Compile()
}

// Reload swaps in a new script, keeping the elapsed time and the state map.
// On failure the old script keeps running.
func (d *Driver) Reload(src []byte) error {
	compiled, err := compile(src)
	if err != nil {
		return fmt.Errorf("script: compile %s: %w", d.name, err)
	}
	d.compiled = compiled
	d.err = nil
	return nil
}

func (d *Driver) Name() string { return d.name }

func (d *Driver) Time() float64 { return d.time }

// Err is the error that stopped the script, if any.
func (d *Driver) Err() error { return d.err }

func (d *Driver) OnNodeBound(n *scene.Node) error {
	if n == nil {
		return ErrNotBound
	}
	d.node = n
	d.origin = n.LocalTranslation()
	d.time = 0
	return nil
}

func (d *Driver) OnNodeUnbound() {
	d.node = nil
}

// OnUpdate runs the script. A failing script is logged once and then
// skipped until it is reloaded.
func (d *Driver) OnUpdate(dt float64) {
	if d.node == nil || d.err != nil {
		return
	}
	d.time += dt
	if err := d.run(dt); err != nil {
		d.err = err
		d.logger.Printf("Driver: script %s stopped: %v", d.name, err)
	}
}

func (d *Driver) OnRender(scene.Renderer) {}

func (d *Driver) run(dt float64) error {
	t := d.node.LocalTranslation()
	q := d.node.LocalRotation()
	globals := map[string]any{
		"time":        d.time,
		"dt":          dt,
		"origin":      vecObject(d.origin[:]),
		"translation": vecObject(t[:]),
		"rotation":    vecObject([]float64{q.V.X(), q.V.Y(), q.V.Z(), q.W}),
		"state":       d.state,
	}
	// unreferenced globals are compiled away
	for name, v := range globals {
		if !d.compiled.IsDefined(name) {
			continue
		}
		if err := d.compiled.Set(name, v); err != nil {
			return err
		}
	}
	if err := d.compiled.Run(); err != nil {
		return err
	}

	if d.compiled.IsDefined("translation") {
		nt, err := floats(d.compiled.Get("translation"), 3)
		if err != nil {
			return fmt.Errorf("translation: %w", err)
		}
		d.node.SetLocalTranslation(mgl64.Vec3{nt[0], nt[1], nt[2]})
	}
	if d.compiled.IsDefined("rotation") {
		nr, err := floats(d.compiled.Get("rotation"), 4)
		if err != nil {
			return fmt.Errorf("rotation: %w", err)
		}
		rot := mgl64.Quat{W: nr[3], V: mgl64.Vec3{nr[0], nr[1], nr[2]}}
		if rot.Len() > 0 {
			d.node.SetLocalRotation(rot.Normalize())
		}
	}
	if d.compiled.IsDefined("state") {
		if m, ok := d.compiled.Get("state").Object().(*tengo.Map); ok {
			d.state = m
		}
	}
	return nil
}

func vecObject(v []float64) *tengo.Array {
	out := make([]tengo.Object, 0, len(v))
	for _, f := range v {
		out = append(out, &tengo.Float{Value: f})
	}
	return &tengo.Array{Value: out}
}

func floats(v *tengo.Variable, n int) ([]float64, error) {
	var items []tengo.Object
	switch a := v.Object().(type) {
	case *tengo.Array:
		items = a.Value
	case *tengo.ImmutableArray:
		items = a.Value
	default:
		return nil, fmt.Errorf("want an array, got %s", v.ValueType())
	}
	if len(items) != n {
		return nil, fmt.Errorf("want %d numbers, got %d", n, len(items))
	}
	out := make([]float64, n)
	for i, item := range items {
		f, ok := tengo.ToFloat64(item)
		if !ok {
			return nil, fmt.Errorf("element %d is %s, not a number", i, item.TypeName())
		}
		out[i] = f
	}
	return out, nil
}
