package retouch

import (
	"context"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/disintegration/imaging"
	"github.com/esimov/retouch/box"
	"github.com/esimov/retouch/utils"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	lineSpacing = 1.2
	// textPadding is the inner margin of a text box, relative to the font size.
	textPadding = 0.25
	// outlineWidth is the stroke width of the outlined text style, relative to the font size.
	outlineWidth = 0.06
)

// Export composites the layers at the native resolution of the raster: the
// backing store first, then the boxes of every container layer, in layer
// order. The editor state is left untouched.
func (e *Editor) Export(ctx context.Context) (*image.RGBA, error) {
	if e.raster == nil {
		return nil, ErrNoRaster
	}
	e.flush()

	start := time.Now()
	out := toRGBA(e.raster.backing)

	var layers []*ContainerLayer
	for _, l := range e.layers {
		if c, ok := l.(*ContainerLayer); ok {
			layers = append(layers, c)
		}
	}
	if err := e.composite(ctx, out, layers); err != nil {
		return nil, err
	}

	b := out.Bounds()
	utils.Logger().Info("export done",
		"width", b.Dx(), "height", b.Dy(),
		"layers", len(e.layers), "elapsed", time.Since(start).String())
	return out, nil
}

// ExportLayers is an alias of Export.
func (e *Editor) ExportLayers(ctx context.Context) (*image.RGBA, error) {
	return e.Export(ctx)
}

// job is a box to be rendered, with the ratio between the destination and
// its container.
type job struct {
	box    *box.Box
	sx, sy float64
}

// composite renders the boxes of the layers concurrently, then draws them
// over dst sequentially, in layer then box order.
func (e *Editor) composite(ctx context.Context, dst *image.RGBA, layers []*ContainerLayer) error {
	db := dst.Bounds()

	var jobs []job
	for _, c := range layers {
		cw, ch := c.container.Width, c.container.Height
		if cw <= 0 || ch <= 0 {
			continue
		}
		for _, b := range c.container.Boxes() {
			if b.IsEmpty() {
				continue
			}
			if _, ok := b.Content.(box.CropFrame); ok {
				continue
			}
			jobs = append(jobs, job{box: b, sx: float64(db.Dx()) / cw, sy: float64(db.Dy()) / ch})
		}
	}
	if len(jobs) == 0 {
		return nil
	}

	rendered := make([]image.Image, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := e.renderBox(j)
			if err != nil {
				return errors.Wrapf(err, "could not render box %q", j.box.ID)
			}
			rendered[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	dc := gg.NewContextForRGBA(dst)
	for i, j := range jobs {
		c := j.box.Center()
		dc.DrawImageAnchored(rendered[i],
			int(math.Round(c.X*j.sx)), int(math.Round(c.Y*j.sy)), 0.5, 0.5)
	}
	return nil
}

// renderBox renders a box at the destination resolution. A rotated box is
// rendered into an intermediate image sized to its rotated bounding box.
func (e *Editor) renderBox(j job) (image.Image, error) {
	b := j.box
	w := utils.Max(1, int(math.Round(b.Width*j.sx)))
	h := utils.Max(1, int(math.Round(b.Height*j.sy)))

	var img image.Image
	switch c := b.Content.(type) {
	case *box.Text:
		img = e.renderText(c, w, h, j.sy)
	case *box.Sticker:
		img = imaging.Resize(c.Image, w, h, imaging.Lanczos)
	default:
		return nil, errors.Errorf("unsupported box content %T", c)
	}

	if b.Rotated() {
		img = imaging.Rotate(img, -b.Rotation, color.Transparent)
	}
	return img, nil
}

// renderText draws the text at the super sampling factor and scales it
// down to w×h.
func (e *Editor) renderText(t *box.Text, w, h int, scale float64) image.Image {
	ss := e.opts.Supersample
	W, H := float64(w)*ss, float64(h)*ss
	size := t.Meta.FontSize * scale * ss
	if size <= 0 {
		size = H / 2
	}

	face := truetype.NewFace(e.font, &truetype.Options{Size: size})
	defer face.Close()

	dc := gg.NewContext(int(math.Ceil(W)), int(math.Ceil(H)))
	dc.SetFontFace(face)

	fg := t.Meta.Color
	if fg.A == 0 {
		fg = color.NRGBA{A: 0xff}
	}
	pad := size * textPadding
	x, y, width := pad, H/2, math.Max(1, W-2*pad)
	align := textAlign(t.Meta.Align)

	switch t.Meta.Style {
	case box.StyleBackground:
		dc.SetColor(fg)
		dc.DrawRoundedRectangle(0, 0, W, H, pad)
		dc.Fill()
		fg = contrast(fg)
	case box.StyleOutline:
		dc.SetColor(contrast(fg))
		o := math.Max(1, size*outlineWidth)
		for dy := -o; dy <= o; dy++ {
			for dx := -o; dx <= o; dx++ {
				if dx*dx+dy*dy > o*o {
					continue
				}
				dc.DrawStringWrapped(t.Value, x+dx, y+dy, 0, 0.5, width, lineSpacing, align)
			}
		}
	}
	dc.SetColor(fg)
	dc.DrawStringWrapped(t.Value, x, y, 0, 0.5, width, lineSpacing, align)

	return imaging.Resize(dc.Image(), w, h, imaging.Lanczos)
}

func textAlign(a box.Align) gg.Align {
	switch a {
	case box.AlignCenter:
		return gg.AlignCenter
	case box.AlignRight:
		return gg.AlignRight
	}
	return gg.AlignLeft
}

// contrast returns black or white, whichever stands out over c.
func contrast(c color.NRGBA) color.NRGBA {
	lum := 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
	if lum > 140 {
		return color.NRGBA{A: 0xff}
	}
	return color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
}
