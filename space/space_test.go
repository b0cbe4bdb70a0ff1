package space

import (
	"bytes"
	"context"
	"errors"
	"log"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/physync/body"
	"github.com/milk9111/physync/engine"
	"github.com/milk9111/physync/engine/native"
	"github.com/milk9111/physync/shape"
	"github.com/milk9111/physync/transform"
)

// recorder is an engine that only logs the calls a Space makes.
type recorder struct {
	engine.Engine
	calls    *[]string
	overlaps []engine.Handle
}

func (r recorder) AddToWorld(h engine.Handle)      { *r.calls = append(*r.calls, "add "+h.String()) }
func (r recorder) RemoveFromWorld(h engine.Handle) { *r.calls = append(*r.calls, "remove "+h.String()) }
func (r recorder) Step(dt float64)                 { *r.calls = append(*r.calls, "step") }

func (r recorder) QueryOverlaps(engine.Handle) []engine.Handle { return r.overlaps }

type member struct {
	h     engine.Handle
	calls *[]string
}

func (m member) Handle() engine.Handle { return m.h }
func (m member) SyncToEngine()         { *m.calls = append(*m.calls, "to "+m.h.String()) }
func (m member) SyncFromEngine()       { *m.calls = append(*m.calls, "from "+m.h.String()) }

func TestStepOrdering(t *testing.T) {
	var calls []string
	s := New(recorder{calls: &calls}, WithTiming(0.25, 4))
	a := member{h: 1, calls: &calls}
	b := member{h: 2, calls: &calls}
	s.Add(a)
	s.Add(b)
	calls = nil

	if n := s.Step(0.5); n != 2 {
		t.Fatalf("sub-steps = %d, want 2", n)
	}
	want := []string{
		"to " + a.h.String(), "to " + b.h.String(),
		"step", "step",
		"from " + a.h.String(), "from " + b.h.String(),
	}
	if !slices.Equal(calls, want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
}

func TestStepAccumulatesTime(t *testing.T) {
	cases := []struct {
		name  string
		dts   []float64
		steps []int
	}{
		{"exact", []float64{0.75}, []int{3}},
		{"carry_remainder", []float64{0.125, 0.125, 0.125}, []int{0, 1, 0}},
		{"clamped", []float64{2, 0.25}, []int{4, 1}},
		{"ignores_bad_dt", []float64{-1, 0}, []int{0, 0}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var calls []string
			var buf bytes.Buffer
			s := New(recorder{calls: &calls}, WithTiming(0.25, 4), WithLogger(log.New(&buf, "", 0)))
			for i, dt := range c.dts {
				if n := s.Step(dt); n != c.steps[i] {
					t.Fatalf("step %d: sub-steps = %d, want %d", i, n, c.steps[i])
				}
			}
			if c.name == "clamped" && !strings.Contains(buf.String(), "dropping") {
				t.Fatalf("expected dropped time to be logged, got %q", buf.String())
			}
		})
	}
}

func TestNoPublishWithoutStep(t *testing.T) {
	var calls []string
	s := New(recorder{calls: &calls}, WithTiming(0.25, 4))
	m := member{h: 7, calls: &calls}
	s.Add(m)
	calls = nil

	s.Step(0.1)
	if want := []string{"to " + m.h.String()}; !slices.Equal(calls, want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
}

func TestMembership(t *testing.T) {
	var calls []string
	s := New(recorder{calls: &calls})
	m := member{h: 3, calls: &calls}

	if !s.Add(m) {
		t.Fatalf("first Add should succeed")
	}
	if s.Add(m) {
		t.Fatalf("second Add should report false")
	}
	if !s.Contains(m) || s.Len() != 1 {
		t.Fatalf("member missing after Add")
	}
	if !s.Remove(m) {
		t.Fatalf("Remove should succeed")
	}
	if s.Remove(m) {
		t.Fatalf("second Remove should report false")
	}
	want := []string{"add " + m.h.String(), "remove " + m.h.String()}
	if !slices.Equal(calls, want) {
		t.Fatalf("engine calls = %v, want %v", calls, want)
	}
}

func TestOverlapsMapsHandlesToMembers(t *testing.T) {
	var calls []string
	s := New(recorder{calls: &calls, overlaps: []engine.Handle{2, 99}})
	a := member{h: 1, calls: &calls}
	b := member{h: 2, calls: &calls}
	s.Add(a)
	s.Add(b)

	got := s.Overlaps(a)
	if len(got) != 1 || got[0].Handle() != b.h {
		t.Fatalf("overlaps = %v, want [%v]", got, b.h)
	}
}

func TestSceneTransformVisibleToStep(t *testing.T) {
	eng := native.New()
	s := New(eng)
	b := body.NewRigidBody(eng, shape.NewBox(mgl64.Vec3{0.5, 0.5, 0.5}), 0)
	b.SetKinematic(true)
	s.Add(b)

	for i := range 5 {
		want := transform.NewPose(mgl64.Vec3{float64(i), 2, 3}, mgl64.QuatIdent())
		b.Teleport(want)
		s.Step(DefaultFixedStep)
		got, err := eng.WorldTransform(b.Handle())
		if err != nil {
			t.Fatalf("world transform: %v", err)
		}
		if !got.ApproxEqual(want, 1e-9) {
			t.Fatalf("frame %d: engine pose %v, want %v", i, got.Translation, want.Translation)
		}
	}
}

func TestDynamicBodyPublishesAfterStep(t *testing.T) {
	eng := native.New()
	s := New(eng)
	b := body.NewRigidBody(eng, shape.NewSphere(0.5), 1)
	b.Place(transform.NewPose(mgl64.Vec3{0, 10, 0}, mgl64.QuatIdent()))
	s.Add(b)

	s.Step(DefaultFixedStep)
	if y := b.WorldPose().Translation.Y(); y >= 10 {
		t.Fatalf("published y = %v, want below 10", y)
	}
	if _, physics := b.MotionState().Dirty(); !physics {
		t.Fatalf("physics slot should be dirty after a step")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cases := []struct {
		name     string
		interval time.Duration
	}{
		{"explicit_interval", time.Millisecond},
		{"fixed_step_interval", 0},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := New(native.New(), WithTiming(0.002, 8))
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			err := s.Run(ctx, c.interval)
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("Run error = %v, want deadline exceeded", err)
			}
			if s.Steps() == 0 {
				t.Fatalf("Run never stepped")
			}
		})
	}
}
