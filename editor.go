package retouch

import (
	"context"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/esimov/retouch/box"
	"github.com/esimov/retouch/drawing"
	"github.com/esimov/retouch/history"
	"github.com/esimov/retouch/utils"
	"github.com/esimov/retouch/worker"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
)

var (
	// ErrNoImage is returned when a raster layer is created without an image.
	ErrNoImage = errors.New("no image supplied")
	// ErrNoRaster is returned by the operations requiring the raster layer.
	ErrNoRaster = errors.New("no raster layer")
	// ErrRasterExists is returned when a second raster layer is created.
	ErrRasterExists = errors.New("the raster layer already exists")
	// ErrLayerNotFound is returned for unknown layer ids.
	ErrLayerNotFound = errors.New("layer not found")
	// ErrEmptyCrop is returned when the crop rectangle selects no pixel.
	ErrEmptyCrop = errors.New("empty crop rectangle")
	// ErrNoFaces is returned when the face detection finds nothing.
	ErrNoFaces = errors.New("no faces detected")
)

// Geometry is the placement of the display container inside the viewport.
// The display container holds the raster scaled to fit the viewport.
type Geometry struct {
	Width, Height int
	Offset        image.Point
}

// Size returns the display container size.
func (g Geometry) Size() image.Point {
	return image.Pt(g.Width, g.Height)
}

// Editor is the layer manager of an editing session. It owns the layer
// stack, the command history and the interaction engines. It is not safe
// for concurrent use.
type Editor struct {
	opts     Options
	viewport image.Point
	geometry Geometry

	layers  []Layer
	raster  *RasterLayer
	history *history.Manager
	boxes   *box.Engine
	pool    *worker.Pool
	drawing *drawing.Engine
	font    *truetype.Font
	seq     int
}

// New creates an editor bound to a viewport of the given size.
func New(viewport image.Point, opts ...Option) (*Editor, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	font, err := truetype.Parse(o.Font)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse the font")
	}

	hist := history.New(history.WithLimit(o.HistoryLimit), history.WithListener(o.OnHistoryChange))
	boxes := box.NewEngine(
		box.WithSnapThreshold(o.SnapThreshold),
		box.WithAngleThreshold(o.AngleThreshold),
	)
	boxes.SetHistory(hist)

	return &Editor{
		opts:     o,
		viewport: viewport,
		history:  hist,
		boxes:    boxes,
		pool:     worker.NewPool(worker.WithConcurrency(o.Concurrency)),
		font:     font,
	}, nil
}

func (e *Editor) nextID(prefix string) string {
	e.seq++
	return fmt.Sprintf("%s-%d", prefix, e.seq)
}

// Layers returns the layer stack, bottom first.
func (e *Editor) Layers() []Layer {
	layers := make([]Layer, len(e.layers))
	copy(layers, e.layers)
	return layers
}

// Raster returns the raster layer, or nil.
func (e *Editor) Raster() *RasterLayer {
	return e.raster
}

// Layer returns the layer with the given id.
func (e *Editor) Layer(id string) (Layer, error) {
	for _, l := range e.layers {
		if l.ID() == id {
			return l, nil
		}
	}
	return nil, errors.Wrapf(ErrLayerNotFound, "%q", id)
}

func (e *Editor) containerLayer(id string) (*ContainerLayer, error) {
	l, err := e.Layer(id)
	if err != nil {
		return nil, err
	}
	c, ok := l.(*ContainerLayer)
	if !ok {
		return nil, errors.Errorf("layer %q is not a container layer", id)
	}
	return c, nil
}

// CreateCanvasLayer creates the raster layer from the source image. The
// pixels are copied into a backing store at the native resolution.
func (e *Editor) CreateCanvasLayer(img image.Image) (*RasterLayer, error) {
	if img == nil {
		return nil, ErrNoImage
	}
	if e.raster != nil {
		return nil, ErrRasterExists
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.Wrap(ErrNoImage, "the image is empty")
	}

	r := newRasterLayer(e.nextID("raster"), toRGBA(img), e.opts.Resample)
	r.onResize = e.refit
	e.raster = r
	e.layers = append([]Layer{r}, e.layers...)
	e.refit()

	b := r.Bounds()
	utils.Logger().Info("raster layer created", "id", r.id, "width", b.Dx(), "height", b.Dy())
	return r, nil
}

// CreateDivLayer creates an empty container layer on top of the stack,
// sized to the display container.
func (e *Editor) CreateDivLayer() (*ContainerLayer, error) {
	if e.raster == nil {
		return nil, ErrNoRaster
	}
	g := e.geometry
	id := e.nextID("layer")
	c := &ContainerLayer{
		id:        id,
		container: box.NewContainer(id, float64(g.Width), float64(g.Height)),
		rect:      image.Rectangle{Min: g.Offset, Max: g.Offset.Add(g.Size())},
	}
	e.boxes.Register(c.container)
	e.layers = append(e.layers, c)

	utils.Logger().Info("container layer created", "id", c.id)
	return c, nil
}

// RemoveLayer removes a container layer and its boxes. The raster layer
// cannot be removed.
func (e *Editor) RemoveLayer(id string) error {
	for i, l := range e.layers {
		if l.ID() != id {
			continue
		}
		if l.Kind() == KindRaster {
			return errors.Errorf("the raster layer %q cannot be removed", id)
		}
		e.boxes.Unregister(id)
		e.layers = append(e.layers[:i], e.layers[i+1:]...)
		return nil
	}
	return errors.Wrapf(ErrLayerNotFound, "%q", id)
}

// ResizeToFit refits the display container into a new viewport. The display
// bitmap is resampled and the boxes are moved proportionally; the boxes
// left empty are removed.
func (e *Editor) ResizeToFit(viewport image.Point) {
	e.viewport = viewport
	e.refit()
}

// refit recomputes the display container geometry from the viewport and
// the backing store size.
func (e *Editor) refit() {
	if e.raster == nil {
		return
	}
	e.geometry = fit(e.raster.Bounds().Size(), e.viewport)
	e.raster.resize(e.geometry.Size())

	for _, l := range e.layers {
		c, ok := l.(*ContainerLayer)
		if !ok {
			continue
		}
		c.rect = image.Rectangle{Min: e.geometry.Offset, Max: e.geometry.Offset.Add(e.geometry.Size())}
		removed, err := e.boxes.Resize(c.id, float64(e.geometry.Width), float64(e.geometry.Height))
		if err != nil {
			continue
		}
		if len(removed) > 0 {
			utils.Logger().Debug("empty boxes removed", "layer", c.id, "boxes", removed)
		}
	}
}

// fit scales the image size to fit the viewport, preserving the aspect
// ratio, and centers it.
func fit(img, viewport image.Point) Geometry {
	if img.X <= 0 || img.Y <= 0 {
		return Geometry{}
	}
	if viewport.X <= 0 || viewport.Y <= 0 {
		return Geometry{Width: img.X, Height: img.Y}
	}
	s := math.Min(float64(viewport.X)/float64(img.X), float64(viewport.Y)/float64(img.Y))
	w := utils.Max(1, int(math.Round(float64(img.X)*s)))
	h := utils.Max(1, int(math.Round(float64(img.Y)*s)))
	return Geometry{
		Width:  w,
		Height: h,
		Offset: image.Pt((viewport.X-w)/2, (viewport.Y-h)/2),
	}
}

// Geometry returns the display container placement.
func (e *Editor) Geometry() Geometry {
	return e.geometry
}

// Viewport returns the viewport size.
func (e *Editor) Viewport() image.Point {
	return e.viewport
}

// Boxes returns the interaction engine of the container layers.
func (e *Editor) Boxes() *box.Engine {
	return e.boxes
}

// History returns the command manager.
func (e *Editor) History() *history.Manager {
	return e.history
}

// Undo reverts the last history entry. A pending drawing animation is
// completed first.
func (e *Editor) Undo() {
	e.flush()
	e.history.Undo()
}

// Redo replays the last reverted history entry.
func (e *Editor) Redo() {
	e.flush()
	e.history.Redo()
}

// CanUndo reports whether there is an entry to undo.
func (e *Editor) CanUndo() bool { return e.history.CanUndo() }

// CanRedo reports whether there is an entry to redo.
func (e *Editor) CanRedo() bool { return e.history.CanRedo() }

func (e *Editor) flush() {
	if e.drawing != nil {
		e.drawing.Flush()
	}
}

// StartDrawing starts a drawing session over the raster layer with the
// given tool settings. It snapshots the backing store and requests the
// blur precomputation. It must be called again after the raster changes
// size.
func (e *Editor) StartDrawing(ctx context.Context, s drawing.Settings) (*drawing.Engine, error) {
	if e.raster == nil {
		return nil, ErrNoRaster
	}
	if e.drawing == nil {
		e.drawing = drawing.New(e.raster, e.history, e.pool, drawing.WithBlurRadius(e.opts.BlurRadius))
	}
	if err := e.drawing.SetTool(s); err != nil {
		return nil, err
	}
	if err := e.drawing.Init(ctx); err != nil {
		return nil, err
	}
	utils.Logger().Info("drawing session started", "tool", string(s.Tool))
	return e.drawing, nil
}

// Frame advances the animations: the arrowhead of the drawing engine and
// the fading guides of the box engine. It reports whether any animation is
// still running.
func (e *Editor) Frame(dt time.Duration) bool {
	running := e.boxes.Frame(dt)
	if e.drawing != nil && e.drawing.Frame(dt) {
		running = true
	}
	return running
}

// Close ends the session: the worker tasks are cancelled and the history
// is dropped.
func (e *Editor) Close() {
	if e.drawing != nil {
		e.drawing.Close()
	}
	e.pool.Close()
	e.history.Clear()
}

// AddText places a text box on a container layer.
func (e *Editor) AddText(layerID, text string, pos box.Position, meta box.TextMeta) (*box.Box, error) {
	b := box.New(e.nextID("text"), pos, &box.Text{Value: text, Meta: meta}, box.WithRotation(), box.WithHorizons())
	return b, e.addBox(layerID, b)
}

// AddSticker places an image box on a container layer. Its aspect ratio is
// locked while scaling.
func (e *Editor) AddSticker(layerID string, img image.Image, pos box.Position) (*box.Box, error) {
	b := box.New(e.nextID("sticker"), pos, &box.Sticker{Image: img},
		box.WithRotation(), box.WithHorizons(), box.WithPreserveRatio())
	return b, e.addBox(layerID, b)
}

// AddCropFrame places a crop frame covering the whole container layer.
func (e *Editor) AddCropFrame(layerID string) (*box.Box, error) {
	c, err := e.containerLayer(layerID)
	if err != nil {
		return nil, err
	}
	pos := box.Position{Width: c.container.Width, Height: c.container.Height}
	b := box.New(e.nextID("crop"), pos, box.CropFrame{})
	return b, e.addBox(layerID, b)
}

func (e *Editor) addBox(layerID string, b *box.Box) error {
	if _, err := e.containerLayer(layerID); err != nil {
		return err
	}
	return e.boxes.Add(layerID, b)
}

// CommitLayer removes the empty boxes of a container layer and returns their ids.
func (e *Editor) CommitLayer(id string) ([]string, error) {
	if _, err := e.containerLayer(id); err != nil {
		return nil, err
	}
	return e.boxes.Prune(id)
}
