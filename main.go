package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/milk9111/physync/config"
	"github.com/milk9111/physync/prefabs"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults when empty)")
	sceneName := flag.String("scene", "", "scene file in prefabs/, overrides the config")
	engineName := flag.String("engine", "", "physics engine: native or chipmunk, overrides the config")
	headless := flag.Duration("headless", 0, "run without a window for this long and print body positions")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		c, err := config.Load(*configPath)
		if err != nil {
			log.Fatal(err)
		}
		cfg = c
	}
	if *sceneName != "" {
		cfg.Scene = *sceneName
	}
	if *engineName != "" {
		cfg.Physics.Engine = *engineName
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	a, err := newApp(cfg, log.Default())
	if err != nil {
		log.Fatal(err)
	}
	defer a.close()

	if *headless > 0 {
		runHeadless(a, *headless)
		return
	}

	game := NewGame(a)
	if *configPath != "" {
		w, err := config.NewWatcher(*configPath)
		if err != nil {
			log.Printf("Viewer: config watcher disabled: %v", err)
		} else {
			game.configWatcher = w
			defer w.Close()
		}
	}
	if w, err := prefabs.NewWatcher(prefabs.Dir); err != nil {
		log.Printf("Viewer: prefab watcher disabled: %v", err)
	} else {
		game.prefabWatcher = w
		defer w.Close()
	}

	ebiten.SetWindowSize(cfg.Viewer.Width, cfg.Viewer.Height)
	ebiten.SetWindowTitle(cfg.Viewer.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	a.startPhysics()
	if err := ebiten.RunGame(game); err != nil {
		log.Print(err)
	}
}

// runHeadless drives the scene pass on a ticker while the physics pass runs
// on its own goroutine, then logs where every body ended up.
func runHeadless(a *app, d time.Duration) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	a.startPhysics()
	ticker := time.NewTicker(time.Duration(a.cfg.Physics.FixedStep * float64(time.Second)))
	defer ticker.Stop()
	last := time.Now()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case now := <-ticker.C:
			a.update(now.Sub(last).Seconds())
			last = now
		}
	}
	a.stopPhysics()

	log.Printf("Viewer: %d physics steps", a.space.Steps())
	for _, line := range a.report() {
		log.Printf("Viewer: %s", line)
	}
}
