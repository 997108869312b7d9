package drawing

import (
	"context"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/esimov/retouch/history"
	"github.com/esimov/retouch/utils"
	"github.com/esimov/retouch/worker"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r2"
)

// stroke is the state of the gesture in progress.
type stroke struct {
	tool   Tool
	color  color.NRGBA
	width  float64
	points []r2.Vec

	// brush stamping position
	stamp r2.Vec

	// arrow state: the backing store at gesture start and the area painted so far
	base   *image.RGBA
	region image.Rectangle

	warned bool
}

type arrowAnim struct {
	stroke  *stroke
	elapsed time.Duration
}

// Engine routes pointer gestures to the active tool.
type Engine struct {
	surface  Surface
	history  *history.Manager
	pool     *worker.Pool
	opts     options
	settings Settings

	pristine *image.RGBA
	blurTask *worker.Future[worker.Message]
	blurred  *image.NRGBA

	stroke *stroke
	anim   *arrowAnim
}

// New creates a drawing engine over the surface. Gestures are recorded into
// hist; the blur precomputation is dispatched to pool. Nil values get a
// private history and pool.
func New(s Surface, hist *history.Manager, pool *worker.Pool, opts ...Option) *Engine {
	o := options{
		blurRadius:    DefaultBlurRadius,
		arrowDuration: DefaultArrowDuration,
		tolerance:     DefaultTolerance,
		session:       defaultSession,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if hist == nil {
		hist = history.New()
	}
	if pool == nil {
		pool = worker.NewPool()
	}
	return &Engine{
		surface:  s,
		history:  hist,
		pool:     pool,
		opts:     o,
		settings: DefaultSettings(),
	}
}

// Init starts a drawing session: it snapshots the current backing store,
// which the eraser reveals, and requests its blurred copy from the worker
// pool. A blur task still running for a previous session is cancelled.
func (e *Engine) Init(ctx context.Context) error {
	backing := e.surface.Backing()
	if backing == nil {
		return ErrNoSurface
	}
	e.Flush()

	e.pristine = cloneRGBA(backing)
	e.blurred = nil

	b := e.pristine.Bounds()
	e.blurTask = e.pool.Dispatch(ctx, e.opts.session, worker.Message{
		Command: worker.CommandBlur,
		Payload: worker.BlurPayload{
			Image:  e.pristine,
			Width:  b.Dx(),
			Height: b.Dy(),
			Radius: e.opts.blurRadius,
		},
	})
	utils.Logger().Debug("drawing session started", "width", b.Dx(), "height", b.Dy())
	return nil
}

// WaitBlur blocks until the blur precomputation of the session is available.
func (e *Engine) WaitBlur(ctx context.Context) error {
	if e.blurred != nil {
		return nil
	}
	if e.blurTask == nil {
		return ErrNoSession
	}
	reply, err := e.blurTask.Wait(ctx)
	if err != nil {
		return err
	}
	return e.storeBlur(reply)
}

// blurSource returns the blurred snapshot, or an error when it is not ready
// yet or when its computation failed.
func (e *Engine) blurSource() (*image.NRGBA, error) {
	if e.blurred != nil {
		return e.blurred, nil
	}
	if e.blurTask == nil {
		return nil, ErrNoSession
	}
	reply, err, ok := e.blurTask.Result()
	if !ok {
		return nil, errors.New("blur precomputation is not ready")
	}
	if err != nil {
		return nil, err
	}
	if err := e.storeBlur(reply); err != nil {
		return nil, err
	}
	return e.blurred, nil
}

func (e *Engine) storeBlur(reply worker.Message) error {
	res, ok := reply.Payload.(worker.BlurResult)
	if !ok || res.Image == nil {
		return errors.Errorf("unexpected blur reply %T", reply.Payload)
	}
	e.blurred = res.Image
	return nil
}

// Settings returns the active tool settings.
func (e *Engine) Settings() Settings {
	return e.settings
}

// SetTool changes the tool settings. They apply from the next gesture.
func (e *Engine) SetTool(s Settings) error {
	if _, err := ParseTool(string(s.Tool)); err != nil {
		return err
	}
	if s.Color == nil {
		s.Color = color.Black
	}
	if s.Width <= 0 {
		s.Width = DefaultSettings().Width
	}
	e.settings = s
	return nil
}

// Begin starts a gesture at the display point p and opens a history batch.
// A running arrowhead animation is completed first.
func (e *Engine) Begin(p r2.Vec) error {
	if e.stroke != nil {
		return ErrGestureActive
	}
	if e.anim != nil {
		e.Frame(e.opts.arrowDuration)
	}

	backing := e.surface.Backing()
	if backing == nil {
		return ErrNoSurface
	}
	if e.pristine == nil {
		return ErrNoSession
	}
	if !backing.Bounds().Eq(e.pristine.Bounds()) {
		return errors.Wrapf(ErrStaleSession, "session %v, backing store %v",
			e.pristine.Bounds().Size(), backing.Bounds().Size())
	}

	scale := e.surface.Scale()
	pt := r2.Scale(scale, p)
	st := &stroke{
		tool:   e.settings.Tool,
		color:  color.NRGBAModel.Convert(e.settings.Color).(color.NRGBA),
		width:  math.Max(1, e.settings.Width*scale),
		points: []r2.Vec{pt},
		stamp:  pt,
	}
	if st.tool == Arrow {
		st.base = cloneRGBA(backing)
	}
	e.stroke = st
	e.history.StartBatch()
	return nil
}

// Move extends the gesture to the display point p.
func (e *Engine) Move(p r2.Vec) {
	st := e.stroke
	if st == nil {
		return
	}
	pt := r2.Scale(e.surface.Scale(), p)
	if pt == st.points[len(st.points)-1] {
		return
	}
	st.points = append(st.points, pt)

	switch st.tool {
	case Pen:
		e.paintCurve(st, nil)
	case Blur, Eraser:
		if pattern := e.revealPattern(st); pattern != nil {
			e.paintCurve(st, pattern)
		}
	case Brush:
		e.brush(st)
	case Neon:
		e.neon(st)
	case Arrow:
		e.arrow(st, 0)
	}
}

// End finishes the gesture. The history batch is closed, unless the arrow
// tool starts its head animation, in which case the batch is closed by the
// last Frame. Gestures which painted nothing leave no history entry.
func (e *Engine) End() {
	st := e.stroke
	if st == nil {
		return
	}
	e.stroke = nil

	if len(st.points) > 1 {
		switch st.tool {
		case Pen:
			e.paintTail(st, nil)
		case Blur, Eraser:
			if pattern := e.revealPattern(st); pattern != nil {
				e.paintTail(st, pattern)
			}
		case Arrow:
			if e.history.BatchLen() > 0 {
				e.anim = &arrowAnim{stroke: st}
				return
			}
		}
	}

	if e.history.BatchLen() == 0 {
		e.history.DiscardBatch()
		return
	}
	e.history.EndBatch()
}

// Frame advances the arrowhead animation by dt. Each frame is recorded into
// the gesture batch, which is closed once the head reaches its full size.
// It reports whether the animation is still running.
func (e *Engine) Frame(dt time.Duration) bool {
	a := e.anim
	if a == nil {
		return false
	}
	a.elapsed += dt
	t := math.Min(1, float64(a.elapsed)/float64(e.opts.arrowDuration))
	e.arrow(a.stroke, easeOutCubic(t))

	if t < 1 {
		return true
	}
	e.anim = nil
	e.history.EndBatch()
	return false
}

// Animating reports whether an arrowhead animation is running.
func (e *Engine) Animating() bool {
	return e.anim != nil
}

// Drawing reports whether a gesture is in progress.
func (e *Engine) Drawing() bool {
	return e.stroke != nil
}

// Close completes any pending animation and gesture, and cancels the blur
// precomputation.
func (e *Engine) Close() {
	e.Flush()
	e.pool.Cancel(e.opts.session)
}

// Flush ends the gesture in progress and completes the arrowhead animation,
// so that no history batch is left open.
func (e *Engine) Flush() {
	if e.stroke != nil {
		e.End()
	}
	if e.anim != nil {
		e.Frame(e.opts.arrowDuration)
	}
}

// apply runs render over the backing store and records the change of the
// region as a DrawCommand.
func (e *Engine) apply(r image.Rectangle, render func(dst *image.RGBA)) {
	backing := e.surface.Backing()
	r = r.Intersect(backing.Bounds())
	if r.Empty() {
		return
	}
	before := copyRegion(backing, r)
	render(backing)

	e.history.Execute(&DrawCommand{
		surface: e.surface,
		rect:    r,
		before:  before,
		after:   copyRegion(backing, r),
	})
}

func easeOutCubic(t float64) float64 {
	t = utils.Clamp(t, 0, 1)
	return 1 - math.Pow(1-t, 3)
}
