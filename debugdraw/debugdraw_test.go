package debugdraw

import (
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/physync/engine/chipmunk"
	"github.com/milk9111/physync/scene"
	"github.com/milk9111/physync/shape"
	"github.com/milk9111/physync/transform"
	"golang.org/x/image/colornames"
)

type line struct {
	x1, y1, x2, y2 float64
	c              color.Color
}

type recorder struct {
	lines []line
}

func (r *recorder) Line(x1, y1, x2, y2 float64, c color.Color) {
	r.lines = append(r.lines, line{x1, y1, x2, y2, c})
}

func (r *recorder) within(t *testing.T, minX, minY, maxX, maxY float64) {
	t.Helper()
	const eps = 1e-6
	for _, l := range r.lines {
		for _, p := range [][2]float64{{l.x1, l.y1}, {l.x2, l.y2}} {
			if p[0] < minX-eps || p[0] > maxX+eps || p[1] < minY-eps || p[1] > maxY+eps {
				t.Fatalf("point %v outside [%v,%v]-[%v,%v]", p, minX, minY, maxX, maxY)
			}
		}
	}
}

func TestCameraProject(t *testing.T) {
	cam := Camera{X: 1, Y: 2, Zoom: 10, Width: 200, Height: 100}
	cases := []struct {
		in     mgl64.Vec3
		sx, sy float64
	}{
		{mgl64.Vec3{1, 2, 0}, 100, 50},
		{mgl64.Vec3{2, 2, 5}, 110, 50},
		{mgl64.Vec3{1, 3, 0}, 100, 40},
	}
	for _, c := range cases {
		sx, sy := cam.Project(c.in)
		if sx != c.sx || sy != c.sy {
			t.Fatalf("Project(%v) = (%v, %v), want (%v, %v)", c.in, sx, sy, c.sx, c.sy)
		}
	}
}

func TestRendererDrawsWorldSpaceEdges(t *testing.T) {
	root := scene.NewNode("root")
	box := scene.NewGeometry("box", scene.NewBoxMesh(0.5, 0.5, 0.5))
	box.SetLocalTranslation(mgl64.Vec3{1, 0, 0})
	root.AttachChild(box)

	rec := &recorder{}
	r := NewRenderer(rec, Camera{Zoom: 10, Width: 100, Height: 100})
	root.Render(r)

	if got, want := len(rec.lines), 3*len(box.Mesh().Triangles()); got != want {
		t.Fatalf("lines = %d, want %d", got, want)
	}
	rec.within(t, 55, 45, 65, 55)
	if rec.lines[0].c != r.Mesh {
		t.Fatalf("scene mesh drawn in %v", rec.lines[0].c)
	}
}

func TestRendererOverlayColour(t *testing.T) {
	overlay := scene.NewGeometry("box-collision", shape.Wireframe(shape.NewBox(mgl64.Vec3{1, 1, 1})))
	rec := &recorder{}
	r := NewRenderer(rec, Camera{Zoom: 1, Width: 10, Height: 10})
	r.Draw(overlay)
	if len(rec.lines) == 0 {
		t.Fatalf("overlay drew nothing")
	}
	for _, l := range rec.lines {
		if l.c != r.Overlay {
			t.Fatalf("overlay line in %v", l.c)
		}
	}
	r.Draw(scene.NewNode("empty"))
}

func TestDrawSpace(t *testing.T) {
	eng := chipmunk.New()
	h := eng.CreateBody(shape.NewBox(mgl64.Vec3{1, 0.5, 0.5}), 0)
	eng.SetWorldTransform(h, transform.NewPose(mgl64.Vec3{2, 0, 0}, mgl64.QuatIdent()))
	g := eng.CreateGhost(shape.NewBox(mgl64.Vec3{0.5, 0.5, 0.5}))

	cam := Camera{Zoom: 10, Width: 100, Height: 100}
	rec := &recorder{}
	DrawSpace(rec, cam, eng)
	if len(rec.lines) != 0 {
		t.Fatalf("drew %d lines for an empty world", len(rec.lines))
	}

	eng.AddToWorld(h)
	DrawSpace(rec, cam, eng)
	if len(rec.lines) != 4 {
		t.Fatalf("box drew %d lines, want 4", len(rec.lines))
	}
	rec.within(t, 60, 45, 80, 55)
	want := toColor(toFColor(colornames.Cornflowerblue))
	if rec.lines[0].c != want {
		t.Fatalf("static box colour = %v, want %v", rec.lines[0].c, want)
	}

	eng.RemoveFromWorld(h)
	eng.AddToWorld(g)
	rec.lines = nil
	DrawSpace(rec, cam, eng)
	if len(rec.lines) != 4 {
		t.Fatalf("ghost drew %d lines, want 4", len(rec.lines))
	}
	if want := toColor(toFColor(colornames.Gold)); rec.lines[0].c != want {
		t.Fatalf("ghost colour = %v, want %v", rec.lines[0].c, want)
	}
}
