package retouch

import (
	"context"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/esimov/retouch/filter"
	"github.com/esimov/retouch/utils"
	"github.com/pkg/errors"
)

// source returns the derivation source of the raster layer, snapshotting
// the backing store when the previous source was dropped by a mutation
// which is not a rotation or a filter change.
func (r *RasterLayer) source() *source {
	if r.src == nil {
		if !r.state.Filters.IsZero() {
			// The snapshot already carries the filters. A later filter change runs them again on top.
			utils.Logger().Debug("derivation source taken over a filtered raster",
				"filters", r.state.Filters.Active())
		}
		r.src = &source{
			img:     toRGBA(r.backing),
			base:    r.state.Rotation,
			filters: r.state.Filters.Clone(),
		}
		utils.Logger().Debug("derivation source reset", "layer", r.id)
	}
	return r.src
}

// derive replaces the backing store with the source transformed by the state.
func (r *RasterLayer) derive(src *source, st State) {
	r.replace(derive(src, st))
	r.state = st
	r.src = src
}

// derive rotates the source by the rotation accumulated since the snapshot.
// The filters run over the result only when they differ from the ones the
// snapshot already carries, so the state the snapshot was taken at yields
// the snapshot itself.
func derive(src *source, st State) *image.RGBA {
	angle := math.Mod(st.Rotation-src.base, 360)
	angle = math.Round(angle*1e6) / 1e6
	refilter := !st.Filters.Equal(src.filters)
	if angle == 0 && !refilter {
		return toRGBA(src.img)
	}

	var img *image.NRGBA
	if angle != 0 {
		// imaging rotates counter clockwise.
		img = imaging.Rotate(src.img, -angle, color.Transparent)
	} else {
		img = toNRGBA(src.img)
	}
	if refilter {
		if err := filter.ApplyState(img, st.Filters); err != nil {
			utils.Logger().Warn("filter derivation failed", "error", err)
		}
	}
	return toRGBA(img)
}

// RotateCanvasCommand rotates the raster by an arbitrary angle. The canvas
// grows to the bounding box of the rotated image.
type RotateCanvasCommand struct {
	layer    *RasterLayer
	src      *source
	from, to float64
	ui       func(float64)
}

// Execute applies the new rotation.
func (c *RotateCanvasCommand) Execute() { c.apply(c.to) }

// Undo restores the previous rotation.
func (c *RotateCanvasCommand) Undo() { c.apply(c.from) }

func (c *RotateCanvasCommand) apply(rotation float64) {
	st := c.layer.state.Clone()
	st.Rotation = rotation
	c.layer.derive(c.src, st)
	if c.ui != nil {
		c.ui(rotation)
	}
}

// ApplyFilterCommand changes the value of a single filter. The whole filter
// state is derived again from the source.
type ApplyFilterCommand struct {
	layer    *RasterLayer
	src      *source
	name     filter.Name
	from, to float64
	ui       func(filter.Name, float64)
}

// Execute applies the new value.
func (c *ApplyFilterCommand) Execute() { c.apply(c.to) }

// Undo restores the previous value.
func (c *ApplyFilterCommand) Undo() { c.apply(c.from) }

func (c *ApplyFilterCommand) apply(value float64) {
	st := c.layer.state.Clone()
	st.Filters = st.Filters.With(c.name, value)
	c.layer.derive(c.src, st)
	if c.ui != nil {
		c.ui(c.name, value)
	}
}

// CropCommand replaces the raster by a rectangle of itself.
type CropCommand struct {
	layer  *RasterLayer
	before *image.RGBA
	rect   image.Rectangle
	prev   *source
	notify func()
}

// Execute crops the raster.
func (c *CropCommand) Execute() {
	c.layer.replace(cropRGBA(c.before, c.rect))
	c.layer.src = nil
	c.notify()
}

// Undo restores the raster as it was before the crop.
func (c *CropCommand) Undo() {
	c.layer.replace(toRGBA(c.before))
	c.layer.src = c.prev
	c.notify()
}

// Rotate90Command rotates the raster by 90 degrees clockwise. The rotation
// is lossless, so undo needs no snapshot.
type Rotate90Command struct {
	layer *RasterLayer
	prev  *source
}

// Execute rotates the raster clockwise.
func (c *Rotate90Command) Execute() {
	c.layer.replace(rotateCW(c.layer.backing))
	c.layer.src = nil
}

// Undo rotates the raster counter clockwise.
func (c *Rotate90Command) Undo() {
	c.layer.replace(rotateCCW(c.layer.backing))
	c.layer.src = c.prev
}

// FlipCommand mirrors the raster horizontally.
type FlipCommand struct {
	layer *RasterLayer
	prev  *source
}

// Execute mirrors the raster.
func (c *FlipCommand) Execute() {
	c.layer.replace(flipH(c.layer.backing))
	c.layer.src = nil
}

// Undo mirrors the raster back.
func (c *FlipCommand) Undo() {
	c.layer.replace(flipH(c.layer.backing))
	c.layer.src = c.prev
}

// SaveCommand is a save point swapping two full snapshots of the raster.
type SaveCommand struct {
	layer         *RasterLayer
	before, after *image.RGBA
	prev          *source
}

// NewSaveCommand records the current raster as the state to undo to, and
// img as the state to apply.
func NewSaveCommand(layer *RasterLayer, img image.Image) *SaveCommand {
	return &SaveCommand{
		layer:  layer,
		before: toRGBA(layer.backing),
		after:  toRGBA(img),
		prev:   layer.src,
	}
}

// Execute applies the saved image.
func (c *SaveCommand) Execute() {
	c.layer.replace(toRGBA(c.after))
	c.layer.src = nil
}

// Undo restores the previous image.
func (c *SaveCommand) Undo() {
	c.layer.replace(toRGBA(c.before))
	c.layer.src = c.prev
}

// Rotate rotates the raster by an arbitrary angle, in degrees clockwise.
// Rotations accumulate, and each one is derived from the snapshot taken
// before the first one, so that opposite rotations restore the original
// size. The ui callback receives the accumulated rotation, after execute
// and after undo.
func (e *Editor) Rotate(angle float64, ui func(float64)) error {
	r := e.raster
	if r == nil {
		return ErrNoRaster
	}
	if angle == 0 {
		return nil
	}
	e.flush()

	cmd := &RotateCanvasCommand{
		layer: r,
		src:   r.source(),
		from:  r.state.Rotation,
		to:    r.state.Rotation + angle,
		ui:    ui,
	}
	e.history.Execute(cmd)
	utils.Logger().Debug("raster rotated", "angle", angle, "rotation", cmd.to)
	return nil
}

// Rotate90 rotates the raster by 90 degrees clockwise.
func (e *Editor) Rotate90() error {
	r := e.raster
	if r == nil {
		return ErrNoRaster
	}
	e.flush()
	e.history.Execute(&Rotate90Command{layer: r, prev: r.src})
	return nil
}

// Flip mirrors the raster horizontally.
func (e *Editor) Flip() error {
	r := e.raster
	if r == nil {
		return ErrNoRaster
	}
	e.flush()
	e.history.Execute(&FlipCommand{layer: r, prev: r.src})
	return nil
}

// CropParams describes a crop rectangle in display container coordinates.
type CropParams struct {
	X, Y          float64
	Width, Height float64
	// Reflect receives the display container geometry after the crop and after its undo.
	Reflect func(Geometry)
}

// Crop replaces the raster by the selected rectangle. The rectangle is
// scaled from the display container to the backing store.
func (e *Editor) Crop(p CropParams) error {
	r := e.raster
	if r == nil {
		return ErrNoRaster
	}
	if p.Width <= 0 || p.Height <= 0 || e.geometry.Width == 0 || e.geometry.Height == 0 {
		return ErrEmptyCrop
	}
	e.flush()

	b := r.Bounds()
	sx := float64(b.Dx()) / float64(e.geometry.Width)
	sy := float64(b.Dy()) / float64(e.geometry.Height)
	rect := image.Rect(
		int(math.Round(p.X*sx)), int(math.Round(p.Y*sy)),
		int(math.Round((p.X+p.Width)*sx)), int(math.Round((p.Y+p.Height)*sy)),
	).Intersect(b)
	if rect.Empty() {
		return errors.Wrapf(ErrEmptyCrop, "%v", rect)
	}

	e.history.Execute(&CropCommand{
		layer:  r,
		before: toRGBA(r.backing),
		rect:   rect,
		prev:   r.src,
		notify: func() {
			if p.Reflect != nil {
				p.Reflect(e.geometry)
			}
		},
	})
	utils.Logger().Debug("raster cropped", "rect", rect.String())
	return nil
}

// CropToFrame crops the raster to the rectangle of a crop frame box.
func (e *Editor) CropToFrame(boxID string, reflect func(Geometry)) error {
	b, _, err := e.boxes.Lookup(boxID)
	if err != nil {
		return err
	}
	return e.Crop(CropParams{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height, Reflect: reflect})
}

// ApplyFilter sets the value of a filter. Values out of the filter range
// are clamped; setting the current value is a no-op. The ui callback
// receives the committed value, after execute and after undo.
func (e *Editor) ApplyFilter(name filter.Name, value float64, ui func(filter.Name, float64)) error {
	r := e.raster
	if r == nil {
		return ErrNoRaster
	}
	value, err := filter.Clamp(name, value)
	if err != nil {
		return err
	}
	from := r.state.Filters[name]
	if from == value {
		return nil
	}
	e.flush()

	e.history.Execute(&ApplyFilterCommand{
		layer: r,
		src:   r.source(),
		name:  name,
		from:  from,
		to:    value,
		ui:    ui,
	})
	utils.Logger().Debug("filter applied", "filter", string(name), "value", value)
	return nil
}

// FlattenLayer renders the boxes of a container layer into the raster and
// removes the layer, as a single history entry.
func (e *Editor) FlattenLayer(ctx context.Context, id string) error {
	r := e.raster
	if r == nil {
		return ErrNoRaster
	}
	c, err := e.containerLayer(id)
	if err != nil {
		return err
	}
	e.flush()

	out := toRGBA(r.backing)
	if err := e.composite(ctx, out, []*ContainerLayer{c}); err != nil {
		return err
	}

	index := 0
	for i, l := range e.layers {
		if l == Layer(c) {
			index = i
		}
	}

	batching := e.history.Batching()
	if !batching {
		e.history.StartBatch()
	}
	e.history.Execute(NewSaveCommand(r, out))
	e.history.Execute(&detachCommand{editor: e, layer: c, index: index})
	if !batching {
		e.history.EndBatch()
	}
	return nil
}

// detachCommand removes a container layer from the stack.
type detachCommand struct {
	editor *Editor
	layer  *ContainerLayer
	index  int
}

func (c *detachCommand) Execute() {
	e := c.editor
	for i, l := range e.layers {
		if l == Layer(c.layer) {
			e.layers = append(e.layers[:i], e.layers[i+1:]...)
			break
		}
	}
	e.boxes.Unregister(c.layer.id)
}

func (c *detachCommand) Undo() {
	e := c.editor
	i := utils.Min(c.index, len(e.layers))
	e.layers = append(e.layers[:i], append([]Layer{c.layer}, e.layers[i:]...)...)
	e.boxes.Register(c.layer.container)
	if _, err := e.boxes.Resize(c.layer.id, float64(e.geometry.Width), float64(e.geometry.Height)); err != nil {
		utils.Logger().Warn("container layer not restored", "layer", c.layer.id, "error", err)
	}
}
