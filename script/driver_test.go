package script

import (
	"bytes"
	"log"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/physync/scene"
)

func bound(t *testing.T, src string, opts ...Option) (*Driver, *scene.Node) {
	t.Helper()
	d, err := NewDriver("test", []byte(src), opts...)
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	n := scene.NewNode("n")
	n.SetLocalTranslation(mgl64.Vec3{1, 2, 3})
	if err := n.AddControl(d); err != nil {
		t.Fatalf("bind: %v", err)
	}
	return d, n
}

func TestDriverWritesTranslation(t *testing.T) {
	cases := []struct {
		name  string
		src   string
		steps int
		want  mgl64.Vec3
	}{
		{"unchanged", ``, 3, mgl64.Vec3{1, 2, 3}},
		{"absolute", `translation = [1, 2, 3]`, 5, mgl64.Vec3{1, 2, 3}},
		{"velocity", `translation = [translation[0] + dt, translation[1], translation[2]]`, 4, mgl64.Vec3{2, 2, 3}},
		{"from_origin", `translation = [origin[0], origin[1] + time, origin[2]]`, 2, mgl64.Vec3{1, 2.5, 3}},
		{"state", `
state.n = (is_undefined(state.n) ? 0 : state.n) + 1
translation = [state.n, 0, 0]
`, 3, mgl64.Vec3{3, 0, 0}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d, n := bound(t, c.src)
			for range c.steps {
				n.Update(0.25)
			}
			if err := d.Err(); err != nil {
				t.Fatalf("script error: %v", err)
			}
			if got := n.LocalTranslation(); !got.ApproxEqual(c.want) {
				t.Fatalf("translation = %v, want %v", got, c.want)
			}
		})
	}
}

func TestDriverWritesRotation(t *testing.T) {
	d, n := bound(t, `
math := import("math")
half := time * 0.5
rotation = [0, 0, math.sin(half), math.cos(half)]
`)
	n.Update(math.Pi / 2)
	if err := d.Err(); err != nil {
		t.Fatalf("script error: %v", err)
	}
	want := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})
	if got := n.LocalRotation(); !got.ApproxEqual(want) {
		t.Fatalf("rotation = %v, want %v", got, want)
	}
}

func TestDriverRunsScriptsUsingFewGlobals(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want mgl64.Vec3
	}{
		{"translation_only", `translation = [5, 6, 7]`, mgl64.Vec3{5, 6, 7}},
		{"rotation_only", `rotation = [0, 0, 0, 1]`, mgl64.Vec3{1, 2, 3}},
		{"time_only", `x := time * 2`, mgl64.Vec3{1, 2, 3}},
		{"no_globals", `x := 1`, mgl64.Vec3{1, 2, 3}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d, n := bound(t, c.src)
			n.Update(0.1)
			n.Update(0.1)
			if err := d.Err(); err != nil {
				t.Fatalf("script error: %v", err)
			}
			if got := n.LocalTranslation(); !got.ApproxEqual(c.want) {
				t.Fatalf("translation = %v, want %v", got, c.want)
			}
			if got := n.LocalRotation(); !got.ApproxEqual(mgl64.QuatIdent()) {
				t.Fatalf("rotation = %v, want identity", got)
			}
		})
	}
}

func TestDriverStopsOnError(t *testing.T) {
	var buf bytes.Buffer
	d, n := bound(t, `translation = [1, 2]`, WithLogger(log.New(&buf, "", 0)))
	n.Update(0.1)
	n.Update(0.1)

	if d.Err() == nil {
		t.Fatalf("expected an error for a short translation")
	}
	if got := strings.Count(buf.String(), "stopped"); got != 1 {
		t.Fatalf("logged %d times, want once: %q", got, buf.String())
	}
	if got := n.LocalTranslation(); got != (mgl64.Vec3{1, 2, 3}) {
		t.Fatalf("failing script moved the node to %v", got)
	}

	if err := d.Reload([]byte(`translation = [0, 0, 0]`)); err != nil {
		t.Fatalf("reload: %v", err)
	}
	n.Update(0.1)
	if got := n.LocalTranslation(); got != (mgl64.Vec3{}) {
		t.Fatalf("reloaded script did not run: %v", got)
	}
}

func TestCompileErrors(t *testing.T) {
	if _, err := NewDriver("bad", []byte(`translation = [`)); err == nil {
		t.Fatalf("expected a compile error")
	}
	d, _ := bound(t, ``)
	if err := d.Reload([]byte(`)`)); err == nil {
		t.Fatalf("expected a reload compile error")
	}
}
