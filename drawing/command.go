package drawing

import (
	"image"
	"image/draw"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// DrawCommand swaps the pixels of a backing store region between the
// states before and after a drawing step.
type DrawCommand struct {
	surface Surface
	rect    image.Rectangle
	before  *image.RGBA
	after   *image.RGBA
}

// Execute writes the pixels the region had after the step.
func (c *DrawCommand) Execute() {
	c.write(c.after)
}

// Undo writes the pixels the region had before the step.
func (c *DrawCommand) Undo() {
	c.write(c.before)
}

// Rect returns the region the command covers.
func (c *DrawCommand) Rect() image.Rectangle {
	return c.rect
}

func (c *DrawCommand) write(src *image.RGBA) {
	dst := c.surface.Backing()
	if dst == nil || !c.rect.In(dst.Bounds()) {
		return
	}
	draw.Draw(dst, c.rect, src, image.Point{}, draw.Src)
	c.surface.Invalidate(c.rect)
}

// copyRegion returns a copy of the region, anchored at the origin.
func copyRegion(src *image.RGBA, r image.Rectangle) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), src, r.Min, draw.Src)
	return dst
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}

// bounds returns the integer rectangle enclosing the points, grown by pad.
func bounds(pad float64, pts ...r2.Vec) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	lo, hi := pts[0], pts[0]
	for _, p := range pts[1:] {
		lo.X, lo.Y = math.Min(lo.X, p.X), math.Min(lo.Y, p.Y)
		hi.X, hi.Y = math.Max(hi.X, p.X), math.Max(hi.Y, p.Y)
	}
	return image.Rect(
		int(math.Floor(lo.X-pad)), int(math.Floor(lo.Y-pad)),
		int(math.Ceil(hi.X+pad)), int(math.Ceil(hi.Y+pad)),
	)
}
