// Package drawing implements the freehand tools painting into the backing
// store of a raster layer: pen, brush, arrow, neon, blur and eraser.
//
// Pointer coordinates are given in display pixels and converted to backing
// store pixels through the uniform scale factor of the Surface. Every gesture
// is recorded as a single history entry made of region commands.
package drawing

import (
	"image"
	"image/color"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrUnknownTool is returned for a tool name not in Tools.
	ErrUnknownTool = errors.New("unknown drawing tool")
	// ErrNoSurface is returned when the surface has no backing store.
	ErrNoSurface = errors.New("drawing surface has no backing store")
	// ErrNoSession is returned when a gesture starts before Init.
	ErrNoSession = errors.New("drawing session is not initialized")
	// ErrStaleSession is returned when the backing store changed size since Init.
	ErrStaleSession = errors.New("backing store changed since the drawing session started")
	// ErrGestureActive is returned when a gesture starts while another one is running.
	ErrGestureActive = errors.New("a drawing gesture is already in progress")
)

// Tool names a drawing tool.
type Tool string

const (
	Pen    Tool = "pen"
	Brush  Tool = "brush"
	Arrow  Tool = "arrow"
	Neon   Tool = "neon"
	Blur   Tool = "blur"
	Eraser Tool = "eraser"
)

// Tools lists the supported tools.
var Tools = []Tool{Pen, Brush, Arrow, Neon, Blur, Eraser}

// ParseTool validates a tool name.
func ParseTool(name string) (Tool, error) {
	for _, t := range Tools {
		if string(t) == name {
			return t, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownTool, "%q", name)
}

// Settings holds the active tool and its parameters. Width is given in
// display pixels.
type Settings struct {
	Tool  Tool
	Color color.Color
	Width float64
}

// DefaultSettings returns a 4px black pen.
func DefaultSettings() Settings {
	return Settings{Tool: Pen, Color: color.Black, Width: 4}
}

// Surface is the raster the engine paints into.
type Surface interface {
	// Backing returns the backing store. It is written in place.
	Backing() *image.RGBA
	// Scale returns the ratio between the backing store and the display bitmap.
	Scale() float64
	// Invalidate notifies that a region of the backing store changed.
	Invalidate(r image.Rectangle)
}

const (
	// DefaultBlurRadius is the reach, in backing store pixels, of the blur tool kernel.
	DefaultBlurRadius = 12
	// DefaultArrowDuration is the length of the arrowhead animation.
	DefaultArrowDuration = 200 * time.Millisecond
	// DefaultTolerance is the Douglas-Peucker tolerance applied to arrow paths.
	DefaultTolerance = 2

	defaultSession = "drawing"
)

type options struct {
	blurRadius    float64
	arrowDuration time.Duration
	tolerance     float64
	session       string
}

// Option configures an Engine.
type Option func(*options)

// WithBlurRadius sets the blur tool kernel radius.
func WithBlurRadius(r float64) Option {
	return func(o *options) { o.blurRadius = r }
}

// WithArrowDuration sets the length of the arrowhead animation.
func WithArrowDuration(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.arrowDuration = d
		}
	}
}

// WithTolerance sets the simplification tolerance of arrow paths.
func WithTolerance(eps float64) Option {
	return func(o *options) { o.tolerance = eps }
}

// WithSession sets the worker pool session the blur precomputation runs under.
func WithSession(id string) Option {
	return func(o *options) { o.session = id }
}
