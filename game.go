package main

import (
	"fmt"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/milk9111/physync/config"
	"github.com/milk9111/physync/debugdraw"
	"github.com/milk9111/physync/prefabs"
	"golang.org/x/image/colornames"
)

// camera centre in world units
const (
	viewX = 0.0
	viewY = 3.0
)

type Game struct {
	app    *app
	frames int

	configWatcher *config.Watcher
	prefabWatcher *prefabs.Watcher
}

func NewGame(a *app) *Game {
	return &Game{app: a}
}

func (g *Game) Update() error {
	g.frames++
	g.poll()

	if inpututil.IsKeyJustPressed(ebiten.KeyD) {
		g.app.setDebug(!g.app.debug)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.app.reloadScene(g.app.cfg.Scene)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		if g.app.cancel != nil {
			g.app.stopPhysics()
		} else {
			g.app.startPhysics()
		}
	}

	g.app.update(1 / float64(ebiten.TPS()))
	return nil
}

// poll drains pending watcher events without blocking the frame.
func (g *Game) poll() {
	if w := g.configWatcher; w != nil {
		select {
		case cfg, ok := <-w.Updates:
			if ok {
				g.app.logger.Printf("Viewer: config reloaded")
				g.app.applyConfig(cfg)
			}
		case err, ok := <-w.Errors:
			if ok {
				g.app.logger.Printf("Viewer: config: %v", err)
			}
		default:
		}
	}
	if w := g.prefabWatcher; w != nil {
	drain:
		for {
			select {
			case name, ok := <-w.Events:
				if !ok {
					break drain
				}
				g.app.fileChanged(name)
			case err := <-w.Errors:
				g.app.logger.Printf("Viewer: prefabs: %v", err)
			default:
				break drain
			}
		}
	}
}

func (g *Game) camera() debugdraw.Camera {
	v := g.app.cfg.Viewer
	return debugdraw.Camera{X: viewX, Y: viewY, Zoom: v.Zoom, Width: v.Width, Height: v.Height}
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(colornames.Black)
	canvas := debugdraw.ImageCanvas{Image: screen}
	cam := g.camera()

	if g.app.scene != nil {
		g.app.scene.Root.Render(debugdraw.NewRenderer(canvas, cam))
	}
	if g.app.debug && g.app.chip != nil {
		debugdraw.DrawSpace(canvas, cam, g.app.chip)
	}

	status := []string{
		fmt.Sprintf("FPS: %.1f  steps: %d  bodies: %d", ebiten.ActualFPS(), g.app.space.Steps(), g.app.space.Len()),
		fmt.Sprintf("engine: %s  scene: %s", g.app.cfg.Physics.Engine, g.app.cfg.Scene),
		"D debug  R reload  P pause physics",
	}
	if g.app.cancel == nil {
		status = append(status, "physics paused")
	}
	ebitenutil.DebugPrint(screen, strings.Join(status, "\n"))
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.app.cfg.Viewer.Width, g.app.cfg.Viewer.Height
}
