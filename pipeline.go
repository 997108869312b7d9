package retouch

import (
	"context"
	"image"
	"io"

	"github.com/esimov/retouch/box"
	"github.com/esimov/retouch/drawing"
	"github.com/esimov/retouch/filter"
	"github.com/esimov/retouch/utils"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r2"
)

// Stroke is a freehand gesture replayed by the drawing engine.
type Stroke struct {
	Settings drawing.Settings
	Points   []r2.Vec
}

// TextBox is a text box placed over the image.
type TextBox struct {
	Value    string
	Position box.Position
	Meta     box.TextMeta
}

// StickerBox is an image box placed over the image.
type StickerBox struct {
	Image    image.Image
	Position box.Position
}

// Pipeline is a list of edits replayed over an image in a fixed order: the
// geometric transforms first, then the filters, the strokes and the boxes.
// Every coordinate is given in pixels of the image as it is when the edit
// is reached.
type Pipeline struct {
	// Rotate90 is the number of clockwise quarter turns.
	Rotate90 int
	Flip     bool
	// Rotate is an arbitrary clockwise rotation, in degrees.
	Rotate float64
	Crop   image.Rectangle
	// FaceCrop crops the image around the detected faces, unless Crop is set.
	FaceCrop bool
	Cascade  []byte
	Filters  filter.State
	Strokes  []Stroke
	Texts    []TextBox
	Stickers []StickerBox
	Options  []Option

	Spinner *utils.Spinner
}

// Process decodes the image from r, replays the edits and encodes the
// result into w, in the format given by the extension.
func (p *Pipeline) Process(ctx context.Context, r io.Reader, w io.Writer, ext string) error {
	src, err := Decode(r)
	if err != nil {
		return err
	}
	out, err := p.Run(ctx, src)
	if err != nil {
		return err
	}
	return Encode(w, out, ext)
}

// Run replays the edits over the image and returns the exported composite.
func (p *Pipeline) Run(ctx context.Context, src image.Image) (*image.RGBA, error) {
	e, err := New(src.Bounds().Size(), p.Options...)
	if err != nil {
		return nil, err
	}
	defer e.Close()

	if _, err := e.CreateCanvasLayer(src); err != nil {
		return nil, err
	}
	if err := p.transform(e); err != nil {
		return nil, err
	}

	for _, name := range filter.Order {
		if v := p.Filters[name]; v != 0 {
			if err := e.ApplyFilter(name, v, nil); err != nil {
				return nil, err
			}
		}
	}

	for i, st := range p.Strokes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.stroke(ctx, e, st); err != nil {
			return nil, errors.Wrapf(err, "stroke #%d", i+1)
		}
	}

	if err := p.boxes(e); err != nil {
		return nil, err
	}
	return e.Export(ctx)
}

// transform applies the geometric edits. The viewport follows the raster
// size so that display and image coordinates match.
func (p *Pipeline) transform(e *Editor) error {
	for i := 0; i < (p.Rotate90%4+4)%4; i++ {
		if err := e.Rotate90(); err != nil {
			return err
		}
	}
	if p.Flip {
		if err := e.Flip(); err != nil {
			return err
		}
	}
	if err := e.Rotate(p.Rotate, nil); err != nil {
		return err
	}
	e.ResizeToFit(e.Raster().Bounds().Size())

	switch {
	case !p.Crop.Empty():
		err := e.Crop(CropParams{
			X:      float64(p.Crop.Min.X),
			Y:      float64(p.Crop.Min.Y),
			Width:  float64(p.Crop.Dx()),
			Height: float64(p.Crop.Dy()),
		})
		if err != nil {
			return err
		}
	case p.FaceCrop:
		pos, err := e.SuggestCrop(p.Cascade)
		if errors.Is(err, ErrNoFaces) {
			utils.Logger().Warn("no faces detected, the image is not cropped")
			break
		}
		if err != nil {
			return err
		}
		if err := e.Crop(CropParams{X: pos.X, Y: pos.Y, Width: pos.Width, Height: pos.Height}); err != nil {
			return err
		}
	}
	e.ResizeToFit(e.Raster().Bounds().Size())
	return nil
}

func (p *Pipeline) stroke(ctx context.Context, e *Editor, st Stroke) error {
	if len(st.Points) == 0 {
		return nil
	}
	d, err := e.StartDrawing(ctx, st.Settings)
	if err != nil {
		return err
	}
	if st.Settings.Tool == drawing.Blur {
		if err := d.WaitBlur(ctx); err != nil {
			return err
		}
	}

	if err := d.Begin(st.Points[0]); err != nil {
		return err
	}
	for _, pt := range st.Points[1:] {
		d.Move(pt)
	}
	d.End()
	d.Flush()
	return nil
}

func (p *Pipeline) boxes(e *Editor) error {
	if len(p.Texts) == 0 && len(p.Stickers) == 0 {
		return nil
	}
	div, err := e.CreateDivLayer()
	if err != nil {
		return err
	}
	for _, t := range p.Texts {
		if _, err := e.AddText(div.ID(), t.Value, t.Position, t.Meta); err != nil {
			return err
		}
	}
	for _, s := range p.Stickers {
		if _, err := e.AddSticker(div.ID(), s.Image, s.Position); err != nil {
			return err
		}
	}
	_, err = e.CommitLayer(div.ID())
	return err
}
