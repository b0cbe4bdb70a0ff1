package prefabs

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/milk9111/physync/control"
	"github.com/milk9111/physync/engine/native"
	"github.com/milk9111/physync/space"
	"gopkg.in/yaml.v3"
)

func quiet() BuildOption {
	return WithLogger(log.New(&bytes.Buffer{}, "", 0))
}

func TestDefaultSceneBuilds(t *testing.T) {
	spec, err := LoadSceneSpec("default_scene.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	eng := native.New()
	sp := space.New(eng)
	sc, err := Build(spec, sp, quiet())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if got, want := len(sc.Controls), 7; got != want {
		t.Fatalf("controls = %d, want %d", got, want)
	}
	if got := sp.Len(); got != len(sc.Controls) {
		t.Fatalf("space members = %d, want %d", got, len(sc.Controls))
	}
	if len(sc.Drivers) != 2 {
		t.Fatalf("drivers = %d, want 2", len(sc.Drivers))
	}
	if _, ok := sc.Controls["trigger"].(*control.GhostControl); !ok {
		t.Fatalf("trigger is %T, want ghost", sc.Controls["trigger"])
	}

	lift := sc.Controls["lift"].(*control.RigidBodyControl)
	ball := sc.Controls["ball"].(*control.RigidBodyControl)
	if got := lift.PhysicsLocation(); got.X() != -4 || got.Y() != 1 {
		t.Fatalf("lift starts at %v, want its world position", got)
	}

	for range 90 {
		sc.Root.Update(space.DefaultFixedStep)
		sp.Step(space.DefaultFixedStep)
	}
	liftNode := lift.Node()
	pose, err := eng.WorldTransform(lift.Body().Handle())
	if err != nil {
		t.Fatalf("lift pose: %v", err)
	}
	if !pose.Translation.ApproxEqual(liftNode.WorldTranslation()) {
		t.Fatalf("lift body %v does not follow node %v", pose.Translation, liftNode.WorldTranslation())
	}
	if liftNode.LocalTranslation().Y() <= 1 {
		t.Fatalf("lift script did not run: %v", liftNode.LocalTranslation())
	}
	if y := ball.Node().WorldTranslation().Y(); y >= 6 {
		t.Fatalf("ball did not fall: y = %v", y)
	}

	sc.Release()
	if sp.Len() != 0 {
		t.Fatalf("release left %d members", sp.Len())
	}
}

func TestBuildErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		is   error
	}{
		{"duplicate", "nodes:\n  - name: a\n  - name: a\n", ErrDuplicateNode},
		{"unnamed", "nodes:\n  - transform: {}\n", ErrDuplicateNode},
		{"forward_parent", "nodes:\n  - name: a\n    parent: b\n  - name: b\n", nil},
		{"bad_mesh", "nodes:\n  - name: a\n    mesh: {type: cone}\n", nil},
		{"bad_translation", "nodes:\n  - name: a\n    transform: {translation: [1, 2]}\n", nil},
		{"bad_group", "nodes:\n  - name: a\n    mesh: {type: sphere, radius: 1}\n    physics: {collision_group: 3}\n", nil},
		{"no_geometry", "nodes:\n  - name: a\n    physics: {mass: 1}\n", nil},
		{"missing_script", "nodes:\n  - name: a\n    script: nope.tengo\n", os.ErrNotExist},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var spec SceneSpec
			if err := yaml.Unmarshal([]byte(c.yaml), &spec); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			sp := space.New(native.New())
			loader := WithScriptLoader(func(string) ([]byte, error) { return nil, os.ErrNotExist })
			_, err := Build(spec, sp, quiet(), loader)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if c.is != nil && !errors.Is(err, c.is) {
				t.Fatalf("err = %v, want %v", err, c.is)
			}
			if sp.Len() != 0 {
				t.Fatalf("failed build left %d members", sp.Len())
			}
		})
	}
}

func TestBuildDisabledControlWaits(t *testing.T) {
	spec := SceneSpec{Nodes: []NodeSpec{{
		Name:    "a",
		Mesh:    &MeshSpec{Type: "sphere", Radius: 1},
		Physics: &control.State{Kind: control.KindRigid, Mass: 1, CollisionGroup: 1, CollideWith: 1},
	}}}
	sp := space.New(native.New())
	sc, err := Build(spec, sp, quiet())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	c := sc.Controls["a"]
	if c.Lifecycle() != control.Bound || sp.Len() != 0 {
		t.Fatalf("disabled control registered: %v", c.Lifecycle())
	}
	if err := c.SetEnabled(true); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if c.Lifecycle() != control.InWorld {
		t.Fatalf("lifecycle = %v, want in-world", c.Lifecycle())
	}
}

func TestLoadSpecMissing(t *testing.T) {
	if _, err := LoadSceneSpec("missing.yaml"); err == nil {
		t.Fatalf("expected an error")
	}
}

func TestScriptPaths(t *testing.T) {
	cases := map[string]string{
		"lift.tengo":                 "scripts/lift.tengo",
		"scripts/lift.tengo":         "scripts/lift.tengo",
		"prefabs/scripts/lift.tengo": "scripts/lift.tengo",
	}
	for in, want := range cases {
		if got := cleanScriptPath(in); got != want {
			t.Fatalf("cleanScriptPath(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := LoadScript("spinner.tengo"); err != nil {
		t.Fatalf("embedded script: %v", err)
	}
}

func TestWatcherReportsChangedFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "scripts"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer w.Close()

	next := func() string {
		t.Helper()
		select {
		case name := <-w.Events:
			return name
		case err := <-w.Errors:
			t.Fatalf("watch error: %v", err)
		case <-time.After(5 * time.Second):
			t.Fatalf("no event within deadline")
		}
		return ""
	}

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "level.yaml"), []byte("name: x\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if name := next(); name != "level.yaml" {
		t.Fatalf("event = %q, want level.yaml", name)
	}

	if err := os.WriteFile(filepath.Join(dir, "scripts", "drive.tengo"), []byte("x := 1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if name := next(); name != "drive.tengo" {
		t.Fatalf("event = %q, want drive.tengo", name)
	}
}

func TestNewWatcherMissingDir(t *testing.T) {
	if _, err := NewWatcher(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected an error")
	}
}
