package retouch

import (
	"log/slog"
	"runtime"

	"github.com/disintegration/imaging"
	"github.com/esimov/retouch/drawing"
	"github.com/esimov/retouch/history"
	"github.com/esimov/retouch/utils"
	"golang.org/x/image/font/gofont/goregular"
)

// Options holds the editor configuration.
type Options struct {
	// HistoryLimit bounds the undo stack depth. Zero disables the limit.
	HistoryLimit int
	// Supersample is the factor the boxes are rendered at on export before
	// being scaled down.
	Supersample float64
	// SnapThreshold is the distance, in display pixels, below which a
	// dragged box snaps to the container center.
	SnapThreshold float64
	// AngleThreshold is the distance, in degrees, below which a rotated box
	// snaps to a standard angle.
	AngleThreshold float64
	// BlurRadius is the kernel radius of the blur tool, in backing store pixels.
	BlurRadius float64
	// Concurrency bounds the parallel work of export and of the worker pool.
	Concurrency int
	// Resample is the filter used to resample the display bitmap.
	Resample imaging.ResampleFilter
	// Font is the TrueType font used by the text boxes.
	Font []byte
	// OnHistoryChange is called after every history change.
	OnHistoryChange history.Listener
}

// Option configures an Editor.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		HistoryLimit:   history.DefaultLimit,
		Supersample:    3,
		SnapThreshold:  8,
		AngleThreshold: 7,
		BlurRadius:     drawing.DefaultBlurRadius,
		Concurrency:    runtime.NumCPU(),
		Resample:       imaging.Linear,
		Font:           goregular.TTF,
	}
}

// WithHistoryLimit bounds the undo stack depth.
func WithHistoryLimit(n int) Option {
	return func(o *Options) { o.HistoryLimit = n }
}

// WithSupersample sets the box export super-sampling factor.
func WithSupersample(f float64) Option {
	return func(o *Options) {
		if f >= 1 {
			o.Supersample = f
		}
	}
}

// WithSnapThreshold sets the center snapping distance of dragged boxes.
func WithSnapThreshold(px float64) Option {
	return func(o *Options) { o.SnapThreshold = px }
}

// WithAngleThreshold sets the angle snapping distance of rotated boxes.
func WithAngleThreshold(deg float64) Option {
	return func(o *Options) { o.AngleThreshold = deg }
}

// WithBlurRadius sets the blur tool kernel radius.
func WithBlurRadius(r float64) Option {
	return func(o *Options) { o.BlurRadius = r }
}

// WithConcurrency bounds the parallel work of export and of the worker pool.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithResampleFilter sets the display bitmap resampling filter.
func WithResampleFilter(f imaging.ResampleFilter) Option {
	return func(o *Options) { o.Resample = f }
}

// WithFont sets the TrueType font of the text boxes.
func WithFont(ttf []byte) Option {
	return func(o *Options) { o.Font = ttf }
}

// WithHistoryListener registers a callback fired after every history change.
func WithHistoryListener(fn history.Listener) Option {
	return func(o *Options) { o.OnHistoryChange = fn }
}

// SetLogger sets the logger used by the editor and its packages.
// A nil logger disables logging, which is the default.
func SetLogger(l *slog.Logger) {
	utils.SetLogger(l)
}

// Logger returns the logger in use.
func Logger() *slog.Logger {
	return utils.Logger()
}
