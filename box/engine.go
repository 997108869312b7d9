package box

import (
	"math"
	"time"

	"github.com/esimov/retouch/history"
	"github.com/esimov/retouch/utils"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r2"
)

var (
	// ErrUnknownContainer is returned for a container id which is not registered.
	ErrUnknownContainer = errors.New("unknown container")
	// ErrUnknownBox is returned for a box id which is not registered.
	ErrUnknownBox = errors.New("unknown box")
)

// Gesture is the pointer interaction in progress.
type Gesture int

const (
	Idle Gesture = iota
	Dragging
	Scaling
	Rotating
)

func (g Gesture) String() string {
	switch g {
	case Dragging:
		return "dragging"
	case Scaling:
		return "scaling"
	case Rotating:
		return "rotating"
	}
	return "idle"
}

// GuideKind is the orientation of a horizon guide.
type GuideKind int

const (
	// Vertical guides mark the horizontal center of the container.
	Vertical GuideKind = iota
	// Horizontal guides mark the vertical center of the container.
	Horizontal
	// Angle guides mark a snapped rotation, drawn through the box center.
	Angle
)

// Guide is a transient alignment line shown while a gesture snaps.
type Guide struct {
	Kind        GuideKind
	ContainerID string
	// Offset is the x coordinate of vertical guides and the y coordinate of horizontal ones.
	Offset float64
	// Center and Degrees describe angle guides.
	Center  r2.Vec
	Degrees float64
	Opacity float64
}

// Options holds the tunables of the engine.
type Options struct {
	SnapThreshold  float64
	AngleThreshold float64
	MinSize        float64
	HandleRadius   float64
	RotateOffset   float64
	GuideFade      time.Duration
}

// Option configures the engine.
type Option func(*Options)

// WithSnapThreshold sets the distance, in pixels, within which a dragged box snaps to the center.
func WithSnapThreshold(px float64) Option {
	return func(o *Options) { o.SnapThreshold = px }
}

// WithAngleThreshold sets the distance, in degrees, within which a rotation snaps to a standard angle.
func WithAngleThreshold(deg float64) Option {
	return func(o *Options) { o.AngleThreshold = deg }
}

// WithMinSize sets the smallest width and height a box can be scaled to.
func WithMinSize(px float64) Option {
	return func(o *Options) { o.MinSize = px }
}

// WithHandleRadius sets the hit radius of the corner and rotate handles.
func WithHandleRadius(px float64) Option {
	return func(o *Options) { o.HandleRadius = px }
}

// WithGuideFade sets how long the guides take to fade out after release.
func WithGuideFade(d time.Duration) Option {
	return func(o *Options) { o.GuideFade = d }
}

// snapAngles are the rotations a horizon aware box snaps to.
var snapAngles = []float64{-180, -135, -90, -45, 0, 45, 90, 135, 180}

type gesture struct {
	kind      Gesture
	box       *Box
	container *Container
	start     Position
	pointer   r2.Vec
	offset    r2.Vec
	handle    Corner
	direction Corner
	angle     float64
}

// Engine routes pointer gestures to the boxes of the registered containers.
// It holds at most one active gesture. Boxes and containers are tracked in
// a registry keyed by their ids.
type Engine struct {
	opts       Options
	containers map[string]*Container
	owners     map[string]*Container
	history    *history.Manager

	active  *gesture
	guides  []Guide
	fading  bool
	elapsed time.Duration
}

// NewEngine creates an engine with the default thresholds.
func NewEngine(opts ...Option) *Engine {
	o := Options{
		SnapThreshold:  8,
		AngleThreshold: 7,
		MinSize:        16,
		HandleRadius:   12,
		RotateOffset:   24,
		GuideFade:      300 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{
		opts:       o,
		containers: make(map[string]*Container),
		owners:     make(map[string]*Container),
	}
}

// SetHistory makes the engine record a reversible command at the end of each gesture.
// A nil manager disables the recording.
func (e *Engine) SetHistory(m *history.Manager) {
	e.history = m
}

// Options returns the engine tunables.
func (e *Engine) Options() Options {
	return e.opts
}

// Register adds a container, together with the boxes it already holds.
func (e *Engine) Register(c *Container) {
	e.containers[c.ID] = c
	for _, b := range c.boxes {
		e.owners[b.ID] = c
	}
}

// Unregister removes a container and its boxes from the registry.
func (e *Engine) Unregister(id string) {
	c, ok := e.containers[id]
	if !ok {
		return
	}
	if e.active != nil && e.active.container == c {
		e.active = nil
	}
	for _, b := range c.boxes {
		delete(e.owners, b.ID)
	}
	delete(e.containers, id)
}

// Container returns a registered container.
func (e *Engine) Container(id string) (*Container, error) {
	c, ok := e.containers[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownContainer, "%q", id)
	}
	return c, nil
}

// Lookup returns a registered box and the container owning it.
func (e *Engine) Lookup(boxID string) (*Box, *Container, error) {
	c, ok := e.owners[boxID]
	if !ok {
		return nil, nil, errors.Wrapf(ErrUnknownBox, "%q", boxID)
	}
	return c.Box(boxID), c, nil
}

// Add places a box on top of the container.
func (e *Engine) Add(containerID string, b *Box) error {
	c, err := e.Container(containerID)
	if err != nil {
		return err
	}
	if prev, ok := e.owners[b.ID]; ok {
		prev.remove(b.ID)
	}
	c.add(b)
	e.owners[b.ID] = c
	return nil
}

// Remove deletes a box from its container.
func (e *Engine) Remove(boxID string) error {
	c, ok := e.owners[boxID]
	if !ok {
		return errors.Wrapf(ErrUnknownBox, "%q", boxID)
	}
	if e.active != nil && e.active.box.ID == boxID {
		e.active = nil
	}
	c.remove(boxID)
	delete(e.owners, boxID)
	return nil
}

// Resize changes the size of a container and moves its boxes proportionally.
// The boxes left empty are removed; their ids are returned.
func (e *Engine) Resize(containerID string, w, h float64) ([]string, error) {
	c, err := e.Container(containerID)
	if err != nil {
		return nil, err
	}
	c.resize(w, h)
	return e.prune(c), nil
}

// Prune removes the empty boxes of a container and returns their ids.
func (e *Engine) Prune(containerID string) ([]string, error) {
	c, err := e.Container(containerID)
	if err != nil {
		return nil, err
	}
	return e.prune(c), nil
}

func (e *Engine) prune(c *Container) []string {
	removed := c.removeEmpty()
	for _, id := range removed {
		delete(e.owners, id)
		if e.active != nil && e.active.box.ID == id {
			e.active = nil
		}
	}
	return removed
}

// Gesture returns the kind of the active gesture.
func (e *Engine) Gesture() Gesture {
	if e.active == nil {
		return Idle
	}
	return e.active.kind
}

// Active returns the box being manipulated, or nil.
func (e *Engine) Active() *Box {
	if e.active == nil {
		return nil
	}
	return e.active.box
}

// Guides returns the visible horizon guides.
func (e *Engine) Guides() []Guide {
	guides := make([]Guide, len(e.guides))
	copy(guides, e.guides)
	return guides
}

// PointerDown hit tests the container and starts the gesture matching the
// part of the box under the pointer. It returns false when nothing was hit
// or when a gesture is already in progress.
func (e *Engine) PointerDown(containerID string, pt r2.Vec) bool {
	if e.active != nil {
		return false
	}
	c, ok := e.containers[containerID]
	if !ok {
		return false
	}
	hit, ok := c.HitTest(pt, e.opts.HandleRadius, e.opts.RotateOffset)
	if !ok {
		return false
	}
	return e.Begin(hit.Box.ID, hit.Target, hit.Corner, pt) == nil
}

// Begin starts a gesture on a box. For Handle targets, corner is the on
// screen corner which was grabbed.
func (e *Engine) Begin(boxID string, target Target, corner Corner, pt r2.Vec) error {
	if e.active != nil {
		return errors.Errorf("a %s gesture is already in progress", e.active.kind)
	}
	b, c, err := e.Lookup(boxID)
	if err != nil {
		return err
	}

	g := &gesture{
		box:       b,
		container: c,
		start:     b.Position,
		pointer:   pt,
	}
	switch target {
	case Body:
		g.kind = Dragging
		g.offset = r2.Sub(pt, r2.Vec{X: b.X, Y: b.Y})
	case Handle:
		g.kind = Scaling
		g.direction = corner
		g.handle = b.Handle(corner)
	case RotateHandle:
		if !b.Rotatable {
			return errors.Errorf("box %q is not rotatable", boxID)
		}
		g.kind = Rotating
		d := r2.Sub(pt, b.Center())
		g.angle = math.Atan2(d.Y, d.X)
	default:
		return errors.Errorf("invalid gesture target %d", target)
	}

	e.active = g
	e.guides = nil
	e.fading = false
	return nil
}

// PointerMove updates the active gesture.
func (e *Engine) PointerMove(pt r2.Vec) {
	if e.active == nil {
		return
	}
	switch e.active.kind {
	case Dragging:
		e.drag(pt)
	case Scaling:
		e.scale(pt)
	case Rotating:
		e.rotate(pt)
	}
}

// PointerUp ends the active gesture.
func (e *Engine) PointerUp() {
	g := e.active
	if g == nil {
		return
	}
	e.active = nil

	if g.kind == Rotating {
		g.box.rederive()
	}
	if len(e.guides) > 0 {
		e.fading = true
		e.elapsed = 0
	}

	if e.history != nil && g.box.Position != g.start {
		e.history.Execute(NewMoveCommand(g.container, g.box, g.start, g.box.Position))
	}
	utils.Logger().Debug("box gesture ended", "box", g.box.ID, "gesture", g.kind.String())
}

// Frame advances the fade out of the guides. It reports whether any guide is still visible.
func (e *Engine) Frame(dt time.Duration) bool {
	if !e.fading {
		return len(e.guides) > 0
	}
	e.elapsed += dt
	if e.elapsed >= e.opts.GuideFade {
		e.guides = nil
		e.fading = false
		return false
	}
	opacity := 1 - float64(e.elapsed)/float64(e.opts.GuideFade)
	for i := range e.guides {
		e.guides[i].Opacity = opacity
	}
	return true
}

func (e *Engine) drag(pt r2.Vec) {
	g := e.active
	b, c := g.box, g.container

	pos := b.Position
	pos.X = pt.X - g.offset.X
	pos.Y = pt.Y - g.offset.Y

	// Keep the rotated bounding box inside the container.
	lo, hi := pos.Bounds()
	if lo.X < 0 {
		pos.X -= lo.X
	} else if hi.X > c.Width {
		pos.X -= hi.X - c.Width
	}
	if lo.Y < 0 {
		pos.Y -= lo.Y
	} else if hi.Y > c.Height {
		pos.Y -= hi.Y - c.Height
	}

	e.guides = e.guides[:0]
	if b.Horizons {
		center := pos.Center()
		if math.Abs(center.X-c.Width/2) <= e.opts.SnapThreshold {
			pos.X = c.Width/2 - pos.Width/2
			e.guides = append(e.guides, Guide{Kind: Vertical, ContainerID: c.ID, Offset: c.Width / 2, Opacity: 1})
		}
		if math.Abs(center.Y-c.Height/2) <= e.opts.SnapThreshold {
			pos.Y = c.Height/2 - pos.Height/2
			e.guides = append(e.guides, Guide{Kind: Horizontal, ContainerID: c.ID, Offset: c.Height / 2, Opacity: 1})
		}
	}
	b.Position = pos
}

func (e *Engine) scale(pt r2.Vec) {
	if e.active.start.Rotated() {
		e.scaleRotated(pt)
		return
	}
	e.scaleAligned(pt)
}

// scaleAligned resizes an unrotated box by moving the grabbed corner, while
// the opposite corner stays anchored.
func (e *Engine) scaleAligned(pt r2.Vec) {
	g := e.active
	b, c := g.box, g.container
	s := g.start
	d := r2.Sub(pt, g.pointer)
	minSize := e.opts.MinSize

	moveLeft := g.direction == TopLeft || g.direction == BottomLeft
	moveTop := g.direction == TopLeft || g.direction == TopRight

	// The anchor is the corner opposite to the grabbed one.
	anchorX, anchorY := s.X, s.Y
	if moveLeft {
		anchorX = s.X + s.Width
	}
	if moveTop {
		anchorY = s.Y + s.Height
	}

	// Room available between the anchor and the container edges.
	maxW, maxH := c.Width-anchorX, c.Height-anchorY
	if moveLeft {
		maxW = anchorX
	}
	if moveTop {
		maxH = anchorY
	}

	w, h := s.Width+d.X, s.Height+d.Y
	if moveLeft {
		w = s.Width - d.X
	}
	if moveTop {
		h = s.Height - d.Y
	}

	if b.PreserveRatio && s.Height > 0 {
		ratio := s.Width / s.Height
		if math.Abs(w-s.Width)/s.Width >= math.Abs(h-s.Height)/s.Height {
			h = w / ratio
		} else {
			w = h * ratio
		}
		// Shrink whichever dimension would overflow.
		if w > maxW {
			w = maxW
			h = w / ratio
		}
		if h > maxH {
			h = maxH
			w = h * ratio
		}
		if w < minSize || h < minSize {
			f := math.Max(minSize/w, minSize/h)
			w, h = w*f, h*f
		}
	} else {
		w = utils.Clamp(w, math.Min(minSize, maxW), maxW)
		h = utils.Clamp(h, math.Min(minSize, maxH), maxH)
	}

	pos := s
	pos.Width, pos.Height = w, h
	pos.X, pos.Y = anchorX, anchorY
	if moveLeft {
		pos.X = anchorX - w
	}
	if moveTop {
		pos.Y = anchorY - h
	}
	b.Position = pos
}

// scaleRotated resizes a rotated box uniformly along its diagonal. The cursor
// displacement is projected onto the direction from the anchored corner to
// the grabbed one.
func (e *Engine) scaleRotated(pt r2.Vec) {
	g := e.active
	b, c := g.box, g.container
	s := g.start

	center := s.Center()
	d := r2.Rotate(s.local(g.handle), s.Radians(), r2.Vec{})
	anchor := r2.Sub(center, d)
	diag := 2 * r2.Norm(d)
	if diag == 0 {
		return
	}

	proj := r2.Dot(r2.Sub(pt, g.pointer), r2.Unit(d))
	k := (diag + proj) / diag

	kmin := math.Max(e.opts.MinSize/s.Width, e.opts.MinSize/s.Height)
	kmax := math.Inf(1)

	// Keep the bounding box inside the container while the anchor stays put.
	ew, eh := s.Extent()
	ex, ey := ew/2, eh/2
	limit := func(a, dv, ext, size float64) {
		if ext-dv > 0 {
			kmax = math.Min(kmax, a/(ext-dv))
		}
		if dv+ext > 0 {
			kmax = math.Min(kmax, (size-a)/(dv+ext))
		}
	}
	limit(anchor.X, d.X, ex, c.Width)
	limit(anchor.Y, d.Y, ey, c.Height)

	k = math.Max(k, kmin)
	if kmax >= kmin {
		k = math.Min(k, kmax)
	}

	nc := r2.Add(anchor, r2.Scale(k, d))
	pos := s
	pos.Width, pos.Height = s.Width*k, s.Height*k
	pos.X, pos.Y = nc.X-pos.Width/2, nc.Y-pos.Height/2
	b.Position = pos
}

func (e *Engine) rotate(pt r2.Vec) {
	g := e.active
	b := g.box

	center := g.start.Center()
	d := r2.Sub(pt, center)
	angle := normalizeAngle(degrees(math.Atan2(d.Y, d.X)-g.angle) + g.start.Rotation)

	e.guides = e.guides[:0]
	if b.Horizons {
		for _, snap := range snapAngles {
			if math.Abs(angle-snap) <= e.opts.AngleThreshold {
				angle = snap
				e.guides = append(e.guides, Guide{
					Kind:        Angle,
					ContainerID: g.container.ID,
					Center:      center,
					Degrees:     snap,
					Opacity:     1,
				})
				break
			}
		}
	}
	b.Rotation = angle
}

// MoveCommand restores the geometry a box had before a gesture. The
// positions are kept relative to the container size they were recorded at,
// so they follow the container when it is resized in between.
type MoveCommand struct {
	container *Container
	box       *Box
	from, to  Position
	width     float64
	height    float64
}

// NewMoveCommand returns a command moving the box of the container between
// two positions, given in the current container coordinates.
func NewMoveCommand(c *Container, b *Box, from, to Position) *MoveCommand {
	return &MoveCommand{
		container: c,
		box:       b,
		from:      from,
		to:        to,
		width:     c.Width,
		height:    c.Height,
	}
}

// Execute applies the target geometry.
func (c *MoveCommand) Execute() { c.apply(c.to) }

// Undo restores the initial geometry.
func (c *MoveCommand) Undo() { c.apply(c.from) }

func (c *MoveCommand) apply(pos Position) {
	if c.width > 0 && c.height > 0 {
		pos = pos.Scale(c.container.Width/c.width, c.container.Height/c.height)
	}
	c.box.Position = pos
	c.box.rederive()
}
