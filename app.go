package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/milk9111/physync/config"
	"github.com/milk9111/physync/control"
	"github.com/milk9111/physync/engine"
	"github.com/milk9111/physync/engine/chipmunk"
	"github.com/milk9111/physync/engine/native"
	"github.com/milk9111/physync/prefabs"
	"github.com/milk9111/physync/space"
)

// app owns the engine, the space and the loaded scene. The scene pass runs
// on the caller's goroutine; the physics pass runs on its own between
// startPhysics and stopPhysics.
type app struct {
	cfg    config.Config
	logger *log.Logger

	eng   engine.Engine
	chip  *chipmunk.Engine
	space *space.Space
	scene *prefabs.Scene
	debug bool

	cancel context.CancelFunc
	done   chan error
}

func newApp(cfg config.Config, logger *log.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, debug: cfg.Viewer.Debug}
	switch cfg.Physics.Engine {
	case config.EngineChipmunk:
		a.chip = chipmunk.New(chipmunk.WithIterations(cfg.Physics.Iterations), chipmunk.WithLogger(logger))
		a.eng = a.chip
	default:
		a.eng = native.New()
	}
	a.space = space.New(a.eng,
		space.WithLogger(logger),
		space.WithTiming(cfg.Physics.FixedStep, cfg.Physics.MaxSubSteps),
	)
	a.space.SetGravity(cfg.Physics.GravityVec())
	if err := a.loadScene(cfg.Scene); err != nil {
		return nil, err
	}
	return a, nil
}

// loadScene builds name and swaps it in. The old scene stays when the new
// one fails to build. Physics must be stopped.
func (a *app) loadScene(name string) error {
	spec, err := prefabs.LoadSceneSpec(name)
	if err != nil {
		return err
	}
	sc, err := prefabs.Build(spec, a.space, prefabs.WithLogger(a.logger))
	if err != nil {
		return err
	}
	if a.scene != nil {
		a.scene.Release()
	}
	a.scene = sc
	a.cfg.Scene = name
	a.setDebug(a.debug)
	a.logger.Printf("Viewer: loaded scene %s with %d bodies", name, len(sc.Controls))
	return nil
}

func (a *app) startPhysics() {
	if a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan error, 1)
	interval := time.Duration(a.cfg.Physics.FixedStep * float64(time.Second))
	go func() {
		a.done <- a.space.Run(ctx, interval)
	}()
}

func (a *app) stopPhysics() {
	if a.cancel == nil {
		return
	}
	a.cancel()
	if err := <-a.done; err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Printf("Viewer: physics stopped: %v", err)
	}
	a.cancel = nil
}

func (a *app) update(dt float64) {
	if a.scene != nil {
		a.scene.Root.Update(dt)
	}
}

// applyConfig takes the settings that can change while running. Switching
// engines needs a restart.
func (a *app) applyConfig(cfg config.Config) {
	if cfg.Physics.Engine != a.cfg.Physics.Engine {
		a.logger.Printf("Viewer: engine change to %q needs a restart", cfg.Physics.Engine)
		cfg.Physics.Engine = a.cfg.Physics.Engine
	}
	a.space.SetTiming(cfg.Physics.FixedStep, cfg.Physics.MaxSubSteps)
	a.space.SetGravity(cfg.Physics.GravityVec())
	sceneChanged := cfg.Scene != a.cfg.Scene
	scene := cfg.Scene
	cfg.Scene = a.cfg.Scene
	a.cfg = cfg
	a.debug = cfg.Viewer.Debug
	a.setDebug(a.debug)
	if sceneChanged {
		a.reloadScene(scene)
	}
}

// fileChanged reacts to a prefab file event. Scripts are swapped in place;
// the current scene file is rebuilt.
func (a *app) fileChanged(name string) {
	if a.scene == nil {
		return
	}
	if strings.HasSuffix(name, ".tengo") {
		src, err := prefabs.LoadScript(name)
		if err != nil {
			a.logger.Printf("Viewer: reload %s: %v", name, err)
			return
		}
		for _, d := range a.scene.Drivers {
			if filepath.Base(d.Name()) != filepath.Base(name) {
				continue
			}
			if err := d.Reload(src); err != nil {
				a.logger.Printf("Viewer: %v", err)
				continue
			}
			a.logger.Printf("Viewer: reloaded script %s", d.Name())
		}
		return
	}
	if filepath.Base(name) == filepath.Base(a.cfg.Scene) {
		a.reloadScene(a.cfg.Scene)
	}
}

func (a *app) reloadScene(name string) {
	running := a.cancel != nil
	a.stopPhysics()
	if err := a.loadScene(name); err != nil {
		a.logger.Printf("Viewer: reload scene %s: %v", name, err)
	}
	if running {
		a.startPhysics()
	}
}

func (a *app) setDebug(on bool) {
	a.debug = on
	if a.scene == nil {
		return
	}
	for _, c := range a.scene.Controls {
		if c.Lifecycle() != control.Released {
			c.SetDebugShape(on)
		}
	}
}

// report describes every body's node position, sorted by name.
func (a *app) report() []string {
	if a.scene == nil {
		return nil
	}
	names := make([]string, 0, len(a.scene.Controls))
	for name := range a.scene.Controls {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		c := a.scene.Controls[name]
		p := c.Node().WorldTranslation()
		out = append(out, fmt.Sprintf("%s %s (%.3f, %.3f, %.3f)", name, c.Lifecycle(), p.X(), p.Y(), p.Z()))
	}
	return out
}

func (a *app) close() {
	a.stopPhysics()
	if a.scene != nil {
		a.scene.Release()
		a.scene = nil
	}
}
