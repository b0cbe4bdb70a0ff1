// Command scenecheck builds scene files and simulates them headless,
// reporting build errors and bodies that leave the world.
package main

import (
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"

	"github.com/milk9111/physync/config"
	"github.com/milk9111/physync/engine"
	"github.com/milk9111/physync/engine/chipmunk"
	"github.com/milk9111/physync/engine/native"
	"github.com/milk9111/physync/prefabs"
	"github.com/milk9111/physync/space"
)

type result struct {
	name   string
	bodies int
	steps  int
	lost   []string
}

func (r result) String() string {
	s := fmt.Sprintf("%s: %d bodies, %d steps", r.name, r.bodies, r.steps)
	for _, n := range r.lost {
		s += fmt.Sprintf("\n  %s fell out of the world", n)
	}
	return s
}

// check builds name on a fresh engine and runs it for seconds of simulated
// time. Bodies that drop below floor are reported as lost.
func check(name, engineName string, seconds, floor float64, logger *log.Logger) (result, error) {
	res := result{name: name}
	spec, err := prefabs.LoadSceneSpec(name)
	if err != nil {
		return res, err
	}

	var eng engine.Engine
	switch engineName {
	case config.EngineChipmunk:
		eng = chipmunk.New(chipmunk.WithLogger(logger))
	case config.EngineNative:
		eng = native.New()
	default:
		return res, fmt.Errorf("unknown engine %q", engineName)
	}
	sp := space.New(eng, space.WithLogger(logger))
	sc, err := prefabs.Build(spec, sp, prefabs.WithLogger(logger))
	if err != nil {
		return res, err
	}
	defer sc.Release()
	res.bodies = len(sc.Controls)

	for t := 0.0; t < seconds; t += space.DefaultFixedStep {
		sc.Root.Update(space.DefaultFixedStep)
		res.steps += sp.Step(space.DefaultFixedStep)
	}
	sc.Root.UpdateGeometricState()
	for _, ns := range spec.Nodes {
		c, ok := sc.Controls[ns.Name]
		if ok && c.Node().WorldTranslation().Y() < floor {
			res.lost = append(res.lost, ns.Name)
		}
	}
	return res, nil
}

func main() {
	engineName := flag.String("engine", config.EngineNative, "physics engine: native or chipmunk")
	seconds := flag.Float64("seconds", 5, "simulated time per scene")
	floor := flag.Float64("floor", -50, "height below which a body counts as lost")
	quiet := flag.Bool("q", false, "hide engine and build logs")
	flag.Parse()

	logger := log.Default()
	if *quiet {
		logger = log.New(io.Discard, "", 0)
	}

	names := flag.Args()
	if len(names) == 0 {
		embedded, err := fs.Glob(prefabs.ScenesFS, "*.yaml")
		if err != nil {
			log.Fatal(err)
		}
		names = embedded
	}

	failed := false
	for _, name := range names {
		res, err := check(name, *engineName, *seconds, *floor, logger)
		if err != nil {
			log.Printf("%s: %v", name, err)
			failed = true
			continue
		}
		fmt.Println(res)
		if len(res.lost) > 0 {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}
