package drawing

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/esimov/retouch/imop"
	"github.com/esimov/retouch/utils"
	"github.com/fogleman/gg"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	brushAlpha   = 0.1
	neonPasses   = 10
	neonSpread   = 0.5
	neonOpacity  = 0.3
	neonCore     = 0.7
	arrowHeadMin = 10.0
)

func mid(a, b r2.Vec) r2.Vec {
	return r2.Scale(0.5, r2.Add(a, b))
}

func newContext(dst *image.RGBA, st *stroke) *gg.Context {
	dc := gg.NewContextForRGBA(dst)
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	dc.SetLineWidth(st.width)
	dc.SetColor(st.color)
	return dc
}

// paintCurve paints the smoothed segment ending at the middle of the last
// two points. The curve passes through the segment midpoints, using the
// recorded points as control points. A nil pattern strokes with the solid
// stroke color.
func (e *Engine) paintCurve(st *stroke, pattern gg.Pattern) {
	n := len(st.points)
	prev, cur := st.points[n-2], st.points[n-1]
	from, ctrl, to := prev, prev, mid(prev, cur)
	if n > 2 {
		from = mid(st.points[n-3], prev)
	}
	e.curve(st, pattern, from, ctrl, to)
}

// paintTail joins the last segment midpoint to the end point of the gesture.
func (e *Engine) paintTail(st *stroke, pattern gg.Pattern) {
	n := len(st.points)
	last := st.points[n-1]
	e.curve(st, pattern, mid(st.points[n-2], last), last, last)
}

func (e *Engine) curve(st *stroke, pattern gg.Pattern, from, ctrl, to r2.Vec) {
	e.apply(bounds(st.width/2+2, from, ctrl, to), func(dst *image.RGBA) {
		dc := newContext(dst, st)
		if pattern != nil {
			dc.SetStrokeStyle(pattern)
		}
		dc.MoveTo(from.X, from.Y)
		dc.QuadraticTo(ctrl.X, ctrl.Y, to.X, to.Y)
		dc.Stroke()
	})
}

// revealPattern returns a pattern sampling the blurred or the pristine
// snapshot of the session at the same coordinates. It returns nil when the
// blurred snapshot is not available.
func (e *Engine) revealPattern(st *stroke) gg.Pattern {
	var src image.Image = e.pristine
	if st.tool == Blur {
		img, err := e.blurSource()
		if err != nil {
			if !st.warned {
				utils.Logger().Warn("blur tool skipped", "error", err)
				st.warned = true
			}
			return nil
		}
		src = img
	}
	return gg.NewSurfacePattern(src, gg.RepeatNone)
}

// brush stamps rotated ellipses at a quarter of the width along the path.
// Every stamp is mostly transparent, so that overlapping stamps build up.
func (e *Engine) brush(st *stroke) {
	cur := st.points[len(st.points)-1]
	step := math.Max(1, st.width/4)

	d := r2.Sub(cur, st.stamp)
	dist := r2.Norm(d)
	if dist < step {
		return
	}
	u := r2.Unit(d)
	angle := math.Atan2(d.Y, d.X)
	count := int(dist / step)
	from := st.stamp
	to := r2.Add(from, r2.Scale(float64(count)*step, u))

	c := st.color
	c.A = uint8(math.Round(float64(c.A) * brushAlpha))

	e.apply(bounds(st.width/2+2, from, to), func(dst *image.RGBA) {
		dc := gg.NewContextForRGBA(dst)
		dc.SetColor(c)
		for i := 1; i <= count; i++ {
			p := r2.Add(from, r2.Scale(float64(i)*step, u))
			dc.Push()
			dc.RotateAbout(angle, p.X, p.Y)
			dc.DrawEllipse(p.X, p.Y, st.width/2, st.width/4)
			dc.Fill()
			dc.Pop()
		}
	})
	st.stamp = to
}

// neon fakes a glow: wide, faint passes of the stroke color are added to
// the backdrop, then a light core line is stroked over them.
func (e *Engine) neon(st *stroke) {
	n := len(st.points)
	from, to := st.points[n-2], st.points[n-1]
	outer := st.width * (1 + neonSpread*(neonPasses-1))

	e.apply(bounds(outer/2+2, from, to), func(dst *image.RGBA) {
		r := bounds(outer/2+2, from, to).Intersect(dst.Bounds())
		backdrop := imaging.Clone(dst.SubImage(r))
		scratch := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))

		op := imop.InitOp()
		op.Set(imop.Lighter)

		for i := neonPasses - 1; i >= 0; i-- {
			for k := range scratch.Pix {
				scratch.Pix[k] = 0
			}
			c := st.color
			c.A = uint8(math.Round(float64(c.A) * neonOpacity * (1 - float64(i)/neonPasses)))

			dc := gg.NewContextForRGBA(scratch)
			dc.Translate(float64(-r.Min.X), float64(-r.Min.Y))
			dc.SetLineCapRound()
			dc.SetLineWidth(st.width * (1 + neonSpread*float64(i)))
			dc.SetColor(c)
			dc.DrawLine(from.X, from.Y, to.X, to.Y)
			dc.Stroke()

			op.Draw(imaging.Clone(scratch), backdrop)
		}
		draw.Draw(dst, r, backdrop, image.Point{}, draw.Src)

		dc := newContext(dst, st)
		dc.SetLineWidth(math.Max(1, st.width/2))
		dc.SetColor(lighten(st.color, neonCore))
		dc.DrawLine(from.X, from.Y, to.X, to.Y)
		dc.Stroke()
	})
}

// lighten mixes the color with white.
func lighten(c color.NRGBA, f float64) color.NRGBA {
	mix := func(v uint8) uint8 {
		return uint8(math.Round(float64(v) + (255-float64(v))*f))
	}
	return color.NRGBA{R: mix(c.R), G: mix(c.G), B: mix(c.B), A: c.A}
}

// arrow restores the area painted by the gesture so far and strokes the
// simplified path, with the head scaled by grow.
func (e *Engine) arrow(st *stroke, grow float64) {
	head := math.Max(arrowHeadMin, st.width*3)
	st.region = st.region.Union(bounds(st.width/2+head+2, st.points...))
	path := simplify(st.points, e.opts.tolerance)

	e.apply(st.region, func(dst *image.RGBA) {
		r := st.region.Intersect(dst.Bounds())
		draw.Draw(dst, r, st.base, r.Min, draw.Src)

		dc := newContext(dst, st)
		dc.MoveTo(path[0].X, path[0].Y)
		for _, p := range path[1:] {
			dc.LineTo(p.X, p.Y)
		}
		dc.Stroke()

		if grow <= 0 || len(path) < 2 {
			return
		}
		tip, prev := path[len(path)-1], path[len(path)-2]
		dir := r2.Unit(r2.Sub(tip, prev))
		size := head * grow
		perp := r2.Vec{X: -dir.Y, Y: dir.X}

		apex := r2.Add(tip, r2.Scale(size, dir))
		left := r2.Add(tip, r2.Scale(size*0.6, perp))
		right := r2.Sub(tip, r2.Scale(size*0.6, perp))

		dc.MoveTo(apex.X, apex.Y)
		dc.LineTo(left.X, left.Y)
		dc.LineTo(right.X, right.Y)
		dc.ClosePath()
		dc.Fill()
	})
}
