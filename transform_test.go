package retouch

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/esimov/retouch/box"
	"github.com/esimov/retouch/filter"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestTransform_Crop(t *testing.T) {
	assert := assert.New(t)
	src := gradient(800, 600)
	e := newTestEditor(t, image.Pt(800, 600), src)
	orig := pix(e.Raster().Backing())

	var reflected []Geometry
	err := e.Crop(CropParams{
		X: 100, Y: 100, Width: 400, Height: 300,
		Reflect: func(g Geometry) { reflected = append(reflected, g) },
	})
	assert.NoError(err)

	backing := e.Raster().Backing()
	assert.Equal(image.Rect(0, 0, 400, 300), backing.Bounds())
	assert.Equal(src.RGBAAt(100, 100), backing.RGBAAt(0, 0))
	assert.Equal(src.RGBAAt(499, 399), backing.RGBAAt(399, 299))
	assert.Equal(Geometry{Width: 800, Height: 600}, e.Geometry())
	assert.Equal(0.5, e.Raster().Scale())

	e.Undo()
	assert.Equal(image.Rect(0, 0, 800, 600), e.Raster().Bounds())
	assert.Equal(orig, e.Raster().Backing().Pix)

	e.Redo()
	assert.Equal(image.Rect(0, 0, 400, 300), e.Raster().Bounds())
	assert.Len(reflected, 3)
}

func TestTransform_CropScaled(t *testing.T) {
	assert := assert.New(t)
	src := gradient(1600, 1200)
	e := newTestEditor(t, image.Pt(800, 600), src)

	assert.NoError(e.Crop(CropParams{X: 100, Y: 100, Width: 400, Height: 300}))
	backing := e.Raster().Backing()
	assert.Equal(image.Rect(0, 0, 800, 600), backing.Bounds())
	assert.Equal(src.RGBAAt(200, 200), backing.RGBAAt(0, 0))

	// A rectangle overflowing the container is clipped.
	assert.NoError(e.Crop(CropParams{X: 700, Y: 500, Width: 400, Height: 300}))
	assert.Equal(image.Rect(0, 0, 100, 100), e.Raster().Bounds())
}

func TestTransform_CropErrors(t *testing.T) {
	assert := assert.New(t)

	e := newTestEditor(t, image.Pt(100, 100), nil)
	assert.True(errors.Is(e.Crop(CropParams{Width: 10, Height: 10}), ErrNoRaster))

	_, err := e.CreateCanvasLayer(gradient(100, 100))
	assert.NoError(err)
	assert.True(errors.Is(e.Crop(CropParams{Width: 0, Height: 10}), ErrEmptyCrop))
	assert.True(errors.Is(e.Crop(CropParams{X: 200, Y: 200, Width: 10, Height: 10}), ErrEmptyCrop))
	assert.False(e.CanUndo())
}

func TestTransform_CropToFrame(t *testing.T) {
	assert := assert.New(t)
	e := newTestEditor(t, image.Pt(100, 100), gradient(200, 200))

	div, err := e.CreateDivLayer()
	assert.NoError(err)
	frame, err := e.AddCropFrame(div.ID())
	assert.NoError(err)
	frame.Position = box.Position{X: 25, Y: 25, Width: 50, Height: 25}

	assert.NoError(e.CropToFrame(frame.ID, nil))
	assert.Equal(image.Rect(0, 0, 100, 50), e.Raster().Bounds())
	assert.True(errors.Is(e.CropToFrame("missing", nil), box.ErrUnknownBox))
}

func TestTransform_FilterZeroIsIdentity(t *testing.T) {
	assert := assert.New(t)
	e := newTestEditor(t, image.Pt(64, 48), gradient(64, 48))
	orig := pix(e.Raster().Backing())

	for _, name := range filter.Order {
		assert.NoError(e.ApplyFilter(name, 0, nil))
	}
	assert.Equal(orig, e.Raster().Backing().Pix)
	assert.False(e.CanUndo())

	err := e.ApplyFilter("sepia", 10, nil)
	assert.True(errors.Is(err, filter.ErrUnknownFilter))
}

func TestTransform_FilterUndoIsExact(t *testing.T) {
	assert := assert.New(t)
	e := newTestEditor(t, image.Pt(64, 48), gradient(64, 48))
	orig := pix(e.Raster().Backing())

	var values []float64
	ui := func(name filter.Name, v float64) {
		assert.Equal(filter.Brightness, name)
		values = append(values, v)
	}
	assert.NoError(e.ApplyFilter(filter.Brightness, 20, ui))
	first := pix(e.Raster().Backing())
	assert.NotEqual(orig, first)

	assert.NoError(e.ApplyFilter(filter.Brightness, 40, ui))
	second := pix(e.Raster().Backing())

	e.Undo()
	assert.Equal(first, e.Raster().Backing().Pix)
	e.Undo()
	assert.Equal(orig, e.Raster().Backing().Pix)
	assert.True(e.Raster().State().Filters.IsZero())
	e.Redo()
	e.Redo()
	assert.Equal(second, e.Raster().Backing().Pix)
	assert.Equal([]float64{20, 40, 20, 0, 20, 40}, values)

	// Out of range values are clamped.
	assert.NoError(e.ApplyFilter(filter.Brightness, 500, nil))
	assert.Equal(100.0, e.Raster().State().Filters[filter.Brightness])
}

func TestTransform_FilterBatch(t *testing.T) {
	assert := assert.New(t)
	e := newTestEditor(t, image.Pt(64, 48), gradient(64, 48))
	orig := pix(e.Raster().Backing())

	e.History().StartBatch()
	assert.NoError(e.ApplyFilter(filter.Brightness, 20, nil))
	assert.NoError(e.ApplyFilter(filter.Contrast, 10, nil))
	e.History().EndBatch()
	applied := pix(e.Raster().Backing())
	assert.Equal([]filter.Name{filter.Brightness, filter.Contrast}, e.Raster().State().Filters.Active())

	e.Undo()
	assert.Equal(orig, e.Raster().Backing().Pix)
	assert.False(e.CanUndo())

	e.Redo()
	assert.Equal(applied, e.Raster().Backing().Pix)
}

func TestTransform_Rotate(t *testing.T) {
	assert := assert.New(t)
	e := newTestEditor(t, image.Pt(400, 300), gradient(80, 60))
	orig := pix(e.Raster().Backing())

	var rotations []float64
	ui := func(r float64) { rotations = append(rotations, r) }

	assert.NoError(e.Rotate(30, ui))
	b := e.Raster().Bounds()
	assert.Greater(b.Dx(), 80)
	assert.Greater(b.Dy(), 60)
	assert.Equal(30.0, e.Raster().State().Rotation)

	assert.NoError(e.Rotate(-30, ui))
	assert.Equal(image.Rect(0, 0, 80, 60), e.Raster().Bounds())
	assert.Equal(orig, e.Raster().Backing().Pix)

	e.Undo()
	assert.Equal(b, e.Raster().Bounds())
	e.Undo()
	assert.Equal(orig, e.Raster().Backing().Pix)
	assert.Equal([]float64{30, 0, 30, 0}, rotations)

	// A zero angle records nothing.
	assert.NoError(e.Rotate(0, nil))
	undo, _ := e.History().Len()
	assert.Zero(undo)
}

func TestTransform_RotateAndFilter(t *testing.T) {
	assert := assert.New(t)
	e := newTestEditor(t, image.Pt(400, 300), gradient(80, 60))
	orig := pix(e.Raster().Backing())

	assert.NoError(e.Rotate(15, nil))
	rotated := pix(e.Raster().Backing())
	size := e.Raster().Bounds()
	assert.NoError(e.ApplyFilter(filter.Saturation, -50, nil))
	assert.Equal(size, e.Raster().Bounds())
	assert.NoError(e.Rotate(-15, nil))
	assert.Equal(image.Rect(0, 0, 80, 60), e.Raster().Bounds())

	e.Undo()
	e.Undo()
	assert.Equal(rotated, e.Raster().Backing().Pix)
	e.Undo()
	assert.Equal(orig, e.Raster().Backing().Pix)
}

func TestTransform_Rotate90AndFlip(t *testing.T) {
	assert := assert.New(t)
	src := gradient(80, 60)
	e := newTestEditor(t, image.Pt(400, 300), src)
	orig := pix(e.Raster().Backing())

	assert.NoError(e.Rotate90())
	assert.Equal(image.Rect(0, 0, 60, 80), e.Raster().Bounds())
	assert.Equal(src.RGBAAt(0, 0), e.Raster().Backing().RGBAAt(59, 0))
	assert.Equal(Geometry{Width: 225, Height: 300, Offset: image.Pt(87, 0)}, e.Geometry())
	e.Undo()
	assert.Equal(orig, e.Raster().Backing().Pix)
	assert.Equal(Geometry{Width: 400, Height: 300}, e.Geometry())

	for i := 0; i < 4; i++ {
		assert.NoError(e.Rotate90())
	}
	assert.Equal(orig, e.Raster().Backing().Pix)

	assert.NoError(e.Flip())
	assert.Equal(src.RGBAAt(0, 10), e.Raster().Backing().RGBAAt(79, 10))
	e.Undo()
	assert.Equal(orig, e.Raster().Backing().Pix)

	e = newTestEditor(t, image.Pt(10, 10), nil)
	assert.True(errors.Is(e.Rotate90(), ErrNoRaster))
	assert.True(errors.Is(e.Flip(), ErrNoRaster))
	assert.True(errors.Is(e.Rotate(10, nil), ErrNoRaster))
	assert.True(errors.Is(e.ApplyFilter(filter.Grain, 10, nil), ErrNoRaster))
}

func TestTransform_DerivationSource(t *testing.T) {
	assert := assert.New(t)
	e := newTestEditor(t, image.Pt(64, 48), gradient(64, 48))
	orig := pix(e.Raster().Backing())

	assert.NoError(e.ApplyFilter(filter.Brightness, 20, nil))
	bright := pix(e.Raster().Backing())

	// Flipping drops the source; the next filter starts from the flipped raster.
	assert.NoError(e.Flip())
	flipped := pix(e.Raster().Backing())
	assert.NoError(e.ApplyFilter(filter.Contrast, 10, nil))
	assert.NotEqual(flipped, e.Raster().Backing().Pix)

	e.Undo()
	assert.Equal(flipped, e.Raster().Backing().Pix)
	e.Undo()
	assert.Equal(bright, e.Raster().Backing().Pix)
	e.Undo()
	assert.Equal(orig, e.Raster().Backing().Pix)
}

func TestTransform_RotateKeepsBakedFilters(t *testing.T) {
	assert := assert.New(t)
	gray := color.RGBA{R: 100, G: 100, B: 100, A: 255}
	e := newTestEditor(t, image.Pt(40, 40), filled(40, 40, gray))

	assert.NoError(e.ApplyFilter(filter.Brightness, 50, nil))
	assert.NoError(e.Flip())
	flipped := pix(e.Raster().Backing())
	want := e.Raster().Backing().RGBAAt(20, 20)
	assert.NotEqual(gray, want)

	assert.NoError(e.Rotate(90, nil))
	assert.Equal(image.Rect(0, 0, 40, 40), e.Raster().Bounds())
	assert.Equal(want, e.Raster().Backing().RGBAAt(20, 20))
	assert.Equal(want, e.Raster().Backing().RGBAAt(5, 35))

	e.Undo()
	assert.Equal(flipped, e.Raster().Backing().Pix)
}

func TestTransform_SaveCommand(t *testing.T) {
	assert := assert.New(t)
	e := newTestEditor(t, image.Pt(40, 30), gradient(40, 30))
	orig := pix(e.Raster().Backing())

	e.History().Execute(NewSaveCommand(e.Raster(), filled(20, 20, color.White)))
	assert.Equal(image.Rect(0, 0, 20, 20), e.Raster().Bounds())
	e.Undo()
	assert.Equal(orig, e.Raster().Backing().Pix)
}

func TestTransform_FlattenLayer(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	e := newTestEditor(t, image.Pt(100, 100), filled(100, 100, color.White))
	orig := pix(e.Raster().Backing())

	div, err := e.CreateDivLayer()
	assert.NoError(err)
	_, err = e.AddSticker(div.ID(), filled(20, 20, color.RGBA{R: 255, A: 255}),
		box.Position{X: 10, Y: 10, Width: 20, Height: 20})
	assert.NoError(err)

	assert.True(errors.Is(e.FlattenLayer(ctx, "missing"), ErrLayerNotFound))
	assert.NoError(e.FlattenLayer(ctx, div.ID()))
	assert.Equal([]Layer{e.Raster()}, e.Layers())
	assert.Equal(color.RGBA{R: 255, A: 255}, e.Raster().Backing().RGBAAt(20, 20))
	assert.Equal(color.RGBA{R: 255, G: 255, B: 255, A: 255}, e.Raster().Backing().RGBAAt(5, 5))
	_, err = e.Boxes().Container(div.ID())
	assert.Error(err)

	undo, _ := e.History().Len()
	assert.Equal(1, undo)
	e.Undo()
	assert.Equal(orig, e.Raster().Backing().Pix)
	assert.Len(e.Layers(), 2)
	c, err := e.Boxes().Container(div.ID())
	assert.NoError(err)
	assert.Equal(1, c.Len())
}
