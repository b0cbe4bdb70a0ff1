// Package debugdraw draws scene meshes and chipmunk shapes as wireframes in
// the XY plane.
package debugdraw

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/milk9111/physync/scene"
	"golang.org/x/image/colornames"
)

// Canvas receives screen-space lines.
type Canvas interface {
	Line(x1, y1, x2, y2 float64, c color.Color)
}

// ImageCanvas strokes lines onto an ebiten image.
type ImageCanvas struct {
	Image *ebiten.Image
	Width float32
}

func (c ImageCanvas) Line(x1, y1, x2, y2 float64, col color.Color) {
	if c.Image == nil {
		return
	}
	w := c.Width
	if w <= 0 {
		w = 1
	}
	vector.StrokeLine(c.Image, float32(x1), float32(y1), float32(x2), float32(y2), w, col, true)
}

// Camera maps world XY onto a screen of Width by Height pixels centred on
// (X, Y). World +Y points up the screen.
type Camera struct {
	X, Y   float64
	Zoom   float64
	Width  int
	Height int
}

func (c Camera) Project(v mgl64.Vec3) (float64, float64) {
	zoom := c.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	sx := float64(c.Width)/2 + (v.X()-c.X)*zoom
	sy := float64(c.Height)/2 - (v.Y()-c.Y)*zoom
	return sx, sy
}

// Renderer implements scene.Renderer. Nodes without a parent are treated as
// overlays, which is how collision wireframes are handed over.
type Renderer struct {
	Canvas  Canvas
	Camera  Camera
	Mesh    color.Color
	Overlay color.Color
}

func NewRenderer(canvas Canvas, cam Camera) *Renderer {
	return &Renderer{
		Canvas:  canvas,
		Camera:  cam,
		Mesh:    colornames.Lightgrey,
		Overlay: colornames.Lime,
	}
}

var _ scene.Renderer = (*Renderer)(nil)

func (r *Renderer) Draw(n *scene.Node) {
	if r.Canvas == nil || n == nil || n.Mesh() == nil {
		return
	}
	col := r.Mesh
	if n.Parent() == nil {
		col = r.Overlay
	}
	world := n.WorldTransform()
	for _, tri := range n.Mesh().Triangles() {
		for i := range 3 {
			a := world.Apply(tri[i])
			b := world.Apply(tri[(i+1)%3])
			r.line(a, b, col)
		}
	}
}

func (r *Renderer) line(a, b mgl64.Vec3, col color.Color) {
	x1, y1 := r.Camera.Project(a)
	x2, y2 := r.Camera.Project(b)
	r.Canvas.Line(x1, y1, x2, y2, col)
}
