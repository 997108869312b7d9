package retouch

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/esimov/retouch/box"
	"github.com/esimov/retouch/filter"
)

// LayerKind tells the layer variants apart.
type LayerKind string

const (
	KindRaster    LayerKind = "raster"
	KindContainer LayerKind = "container"
)

// Layer is an element of the editor stack.
type Layer interface {
	ID() string
	Kind() LayerKind
}

// State is the derivation state of the raster layer.
type State struct {
	// Rotation is the accumulated arbitrary angle rotation, in degrees, clockwise.
	Rotation float64
	Filters  filter.State
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	return State{Rotation: s.Rotation, Filters: s.Filters.Clone()}
}

// source is an immutable snapshot of the backing store the rotation and the
// filters are derived from, together with the state in effect when it was taken.
type source struct {
	img     *image.RGBA
	base    float64
	filters filter.State
}

// RasterLayer owns the backing store, at the native resolution of the image,
// and its display bitmap, resampled to the display container.
type RasterLayer struct {
	id      string
	backing *image.RGBA
	display *image.RGBA
	size    image.Point
	stale   bool
	state   State
	src     *source

	resample imaging.ResampleFilter
	onResize func()
}

func newRasterLayer(id string, img *image.RGBA, resample imaging.ResampleFilter) *RasterLayer {
	return &RasterLayer{
		id:       id,
		backing:  img,
		stale:    true,
		state:    State{Filters: filter.State{}},
		resample: resample,
	}
}

// ID returns the layer identifier.
func (r *RasterLayer) ID() string { return r.id }

// Kind returns KindRaster.
func (r *RasterLayer) Kind() LayerKind { return KindRaster }

// Backing returns the backing store. Drawing tools write into it in place.
func (r *RasterLayer) Backing() *image.RGBA { return r.backing }

// Bounds returns the bounds of the backing store.
func (r *RasterLayer) Bounds() image.Rectangle { return r.backing.Bounds() }

// State returns a copy of the derivation state.
func (r *RasterLayer) State() State { return r.state.Clone() }

// Scale returns the ratio between the backing store and the display bitmap widths.
func (r *RasterLayer) Scale() float64 {
	if r.size.X == 0 {
		return 1
	}
	return float64(r.backing.Bounds().Dx()) / float64(r.size.X)
}

// Invalidate marks the display bitmap out of date after an in place change
// of the backing store. The derivation source is dropped, since the pixels
// no longer derive from it.
func (r *RasterLayer) Invalidate(image.Rectangle) {
	r.stale = true
	r.src = nil
}

// Display returns the display bitmap, resampling it first if the backing
// store changed since the last call.
func (r *RasterLayer) Display() *image.RGBA {
	if r.stale || r.display == nil {
		r.sync()
	}
	return r.display
}

func (r *RasterLayer) sync() {
	w, h := r.size.X, r.size.Y
	if w <= 0 || h <= 0 {
		b := r.backing.Bounds()
		w, h = b.Dx(), b.Dy()
	}
	if b := r.backing.Bounds(); b.Dx() == w && b.Dy() == h {
		r.display = toRGBA(r.backing)
	} else {
		r.display = toRGBA(imaging.Resize(r.backing, w, h, r.resample))
	}
	r.stale = false
}

// resize sets the display bitmap size.
func (r *RasterLayer) resize(size image.Point) {
	if size != r.size {
		r.size = size
		r.stale = true
	}
}

// replace swaps the backing store. The display container is refit when the
// size changed.
func (r *RasterLayer) replace(img *image.RGBA) {
	resized := !img.Bounds().Eq(r.backing.Bounds())
	r.backing = img
	r.stale = true
	if resized && r.onResize != nil {
		r.onResize()
	}
}

// ContainerLayer holds freeform boxes over the raster.
type ContainerLayer struct {
	id        string
	container *box.Container
	// rect is the bounding rectangle snapshot the box positions are relative to.
	rect image.Rectangle
}

// ID returns the layer identifier.
func (c *ContainerLayer) ID() string { return c.id }

// Kind returns KindContainer.
func (c *ContainerLayer) Kind() LayerKind { return KindContainer }

// Container returns the box container of the layer.
func (c *ContainerLayer) Container() *box.Container { return c.container }

// Rect returns the bounding rectangle of the layer, in viewport coordinates.
func (c *ContainerLayer) Rect() image.Rectangle { return c.rect }
