package native

import (
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/physync/common"
	"github.com/milk9111/physync/engine"
	"github.com/milk9111/physync/shape"
	"github.com/milk9111/physync/transform"
)

func at(x, y, z float64) transform.Pose {
	return transform.NewPose(mgl64.Vec3{x, y, z}, mgl64.QuatIdent())
}

func mustPose(t *testing.T, e *Engine, h engine.Handle) transform.Pose {
	t.Helper()
	p, err := e.WorldTransform(h)
	if err != nil {
		t.Fatalf("world transform: %v", err)
	}
	return p
}

func TestStepMovesOnlyDynamicBodiesInWorld(t *testing.T) {
	cases := []struct {
		name    string
		mass    float64
		inWorld bool
		moves   bool
	}{
		{"dynamic_in_world", 1, true, true},
		{"dynamic_out_of_world", 1, false, false},
		{"static_in_world", 0, true, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e := New()
			h := e.CreateBody(shape.NewSphere(0.5), c.mass)
			e.SetWorldTransform(h, at(0, 10, 0))
			if c.inWorld {
				e.AddToWorld(h)
			}
			for range 10 {
				e.Step(1.0 / 60)
			}
			moved := !mustPose(t, e, h).ApproxEqual(at(0, 10, 0), 1e-12)
			if moved != c.moves {
				t.Fatalf("moved=%v, want %v", moved, c.moves)
			}
		})
	}
}

func TestKinematicBodyIgnoresGravity(t *testing.T) {
	e := New()
	h := e.CreateBody(shape.NewBox(mgl64.Vec3{1, 1, 1}), 2)
	p := engine.DefaultParams(2)
	p.Kinematic = true
	e.SetParams(h, p)
	e.AddToWorld(h)
	e.SetWorldTransform(h, at(1, 2, 3))
	e.Step(0.5)
	if got := mustPose(t, e, h); !got.ApproxEqual(at(1, 2, 3), 1e-12) {
		t.Fatalf("kinematic body moved to %v", got.Translation)
	}
}

func TestDynamicBodyRestsOnStatic(t *testing.T) {
	e := New()
	ground := e.CreateBody(shape.NewBox(mgl64.Vec3{10, 0.5, 10}), 0)
	e.SetWorldTransform(ground, at(0, -0.5, 0))
	e.AddToWorld(ground)

	ball := e.CreateBody(shape.NewSphere(0.5), 1)
	e.SetWorldTransform(ball, at(0, 2, 0))
	e.AddToWorld(ball)

	for range 240 {
		e.Step(1.0 / 60)
	}
	y := mustPose(t, e, ball).Translation.Y()
	if y < 0.4 || y > 0.6 {
		t.Fatalf("ball should rest on the ground near y=0.5, got %v", y)
	}
	if g := mustPose(t, e, ground); !g.ApproxEqual(at(0, -0.5, 0), 1e-12) {
		t.Fatalf("static ground moved")
	}
}

func TestQueryOverlapsRespectsGroupsAndMembership(t *testing.T) {
	e := New()
	ghost := e.CreateGhost(shape.NewSphere(1))
	e.AddToWorld(ghost)

	near := e.CreateBody(shape.NewSphere(0.5), 0)
	e.SetWorldTransform(near, at(1, 0, 0))
	e.AddToWorld(near)

	far := e.CreateBody(shape.NewSphere(0.5), 0)
	e.SetWorldTransform(far, at(10, 0, 0))
	e.AddToWorld(far)

	filtered := e.CreateBody(shape.NewSphere(0.5), 0)
	p := engine.DefaultParams(0)
	p.Group = common.CollisionGroup02
	p.CollideWith = common.CollisionGroup02
	e.SetParams(filtered, p)
	e.AddToWorld(filtered)

	outside := e.CreateBody(shape.NewSphere(0.5), 0)

	got := e.QueryOverlaps(ghost)
	if !slices.Contains(got, near) {
		t.Fatalf("expected near body in overlaps: %v", got)
	}
	for _, h := range []engine.Handle{far, filtered, outside} {
		if slices.Contains(got, h) {
			t.Fatalf("unexpected overlap with %v", h)
		}
	}

	e.RemoveFromWorld(near)
	if got := e.QueryOverlaps(ghost); len(got) != 0 {
		t.Fatalf("removed body still overlapping: %v", got)
	}
}

func TestGhostNeverMovesBodies(t *testing.T) {
	e := New()
	e.SetGravity(mgl64.Vec3{})
	ghost := e.CreateGhost(shape.NewBox(mgl64.Vec3{2, 2, 2}))
	e.AddToWorld(ghost)
	b := e.CreateBody(shape.NewSphere(0.5), 1)
	e.AddToWorld(b)
	e.Step(0.1)
	if got := mustPose(t, e, b); !got.ApproxEqual(at(0, 0, 0), 1e-12) {
		t.Fatalf("ghost pushed body to %v", got.Translation)
	}
}

func TestDestroyedHandleIsIgnored(t *testing.T) {
	e := New()
	h := e.CreateBody(shape.NewSphere(1), 1)
	e.DestroyBody(h)
	e.SetWorldTransform(h, at(1, 1, 1))
	e.AddToWorld(h)
	if e.InWorld(h) {
		t.Fatalf("destroyed handle reported in world")
	}
	if _, err := e.WorldTransform(h); err != engine.ErrUnknownHandle {
		t.Fatalf("expected ErrUnknownHandle, got %v", err)
	}
}

func TestApplyImpulseChangesVelocity(t *testing.T) {
	e := New()
	h := e.CreateBody(shape.NewSphere(1), 2)
	e.ApplyImpulse(h, mgl64.Vec3{4, 0, 0})
	if v := e.LinearVelocity(h); !v.ApproxEqualThreshold(mgl64.Vec3{2, 0, 0}, 1e-12) {
		t.Fatalf("velocity = %v, want (2,0,0)", v)
	}

	static := e.CreateBody(shape.NewSphere(1), 0)
	e.ApplyImpulse(static, mgl64.Vec3{4, 0, 0})
	if v := e.LinearVelocity(static); v != (mgl64.Vec3{}) {
		t.Fatalf("static body accepted impulse: %v", v)
	}
}
