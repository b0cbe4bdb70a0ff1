package debugdraw

import (
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/physync/engine/chipmunk"
	"golang.org/x/image/colornames"
)

const (
	circleSegments = 24
	dotSize        = 4
)

// DrawSpace draws every shape in eng's space.
func DrawSpace(canvas Canvas, cam Camera, eng *chipmunk.Engine) {
	if canvas == nil || eng == nil {
		return
	}
	d := &SpaceDrawer{canvas: canvas, cam: cam}
	eng.Draw(func(space *cp.Space) {
		cp.DrawSpace(space, d)
	})
}

// SpaceDrawer implements cp.Drawer on a Canvas.
type SpaceDrawer struct {
	canvas Canvas
	cam    Camera
}

var _ cp.Drawer = (*SpaceDrawer)(nil)

func (d *SpaceDrawer) DrawCircle(pos cp.Vector, angle, radius float64, outline, fill cp.FColor, data interface{}) {
	if radius <= 0 {
		return
	}
	d.drawCircle(pos, radius, fill)
	end := cp.Vector{X: pos.X + math.Cos(angle)*radius, Y: pos.Y + math.Sin(angle)*radius}
	d.drawLine(pos, end, fill)
}

func (d *SpaceDrawer) DrawSegment(a, b cp.Vector, fill cp.FColor, data interface{}) {
	d.drawLine(a, b, fill)
}

func (d *SpaceDrawer) DrawFatSegment(a, b cp.Vector, radius float64, outline, fill cp.FColor, data interface{}) {
	d.drawLine(a, b, fill)
	if radius > 0.05 {
		d.drawCircle(a, radius, fill)
		d.drawCircle(b, radius, fill)
	}
}

func (d *SpaceDrawer) DrawPolygon(count int, verts []cp.Vector, radius float64, outline, fill cp.FColor, data interface{}) {
	if count <= 0 {
		return
	}
	d.drawPolygon(verts[:count], fill)
}

func (d *SpaceDrawer) DrawDot(size float64, pos cp.Vector, fill cp.FColor, data interface{}) {
	if size <= 0 {
		size = dotSize
	}
	x, y := d.toScreen(pos)
	half := size / 2
	c := toColor(fill)
	d.canvas.Line(x-half, y, x+half, y, c)
	d.canvas.Line(x, y-half, x, y+half, c)
}

func (d *SpaceDrawer) Flags() uint {
	return cp.DRAW_SHAPES
}

func (d *SpaceDrawer) OutlineColor() cp.FColor {
	return toFColor(colornames.Lime)
}

// ShapeColor colours sensors, bodies the solver never moves and dynamic
// bodies apart.
func (d *SpaceDrawer) ShapeColor(shape *cp.Shape, data interface{}) cp.FColor {
	switch {
	case shape == nil:
		return toFColor(colornames.White)
	case shape.Sensor():
		return toFColor(colornames.Gold)
	case shape.Body() != nil && shape.Body().GetType() != cp.BODY_DYNAMIC:
		return toFColor(colornames.Cornflowerblue)
	default:
		return toFColor(colornames.Orchid)
	}
}

func (d *SpaceDrawer) ConstraintColor() cp.FColor {
	return toFColor(colornames.Darkorange)
}

func (d *SpaceDrawer) CollisionPointColor() cp.FColor {
	return toFColor(colornames.Red)
}

func (d *SpaceDrawer) Data() interface{} {
	return nil
}

func (d *SpaceDrawer) drawLine(a, b cp.Vector, c cp.FColor) {
	x1, y1 := d.toScreen(a)
	x2, y2 := d.toScreen(b)
	d.canvas.Line(x1, y1, x2, y2, toColor(c))
}

func (d *SpaceDrawer) drawPolygon(verts []cp.Vector, c cp.FColor) {
	for i := range verts {
		d.drawLine(verts[i], verts[(i+1)%len(verts)], c)
	}
}

func (d *SpaceDrawer) drawCircle(center cp.Vector, radius float64, c cp.FColor) {
	points := make([]cp.Vector, 0, circleSegments)
	for i := 0; i < circleSegments; i++ {
		t := (2 * math.Pi) * (float64(i) / float64(circleSegments))
		points = append(points, cp.Vector{X: center.X + math.Cos(t)*radius, Y: center.Y + math.Sin(t)*radius})
	}
	d.drawPolygon(points, c)
}

func (d *SpaceDrawer) toScreen(v cp.Vector) (float64, float64) {
	return d.cam.Project(mgl64.Vec3{v.X, v.Y, 0})
}

func toFColor(c color.RGBA) cp.FColor {
	return cp.FColor{
		R: float32(c.R) / 255,
		G: float32(c.G) / 255,
		B: float32(c.B) / 255,
		A: float32(c.A) / 255,
	}
}

func toColor(c cp.FColor) color.NRGBA {
	return color.NRGBA{
		R: uint8(clamp01(c.R)*255 + 0.5),
		G: uint8(clamp01(c.G)*255 + 0.5),
		B: uint8(clamp01(c.B)*255 + 0.5),
		A: 255,
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
