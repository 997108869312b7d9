// Package filter implements the pixel level adjustments of the editor.
//
// Every filter is a pure function mutating an NRGBA buffer in place.
// A value of 0 means "no effect" for every filter. The pipeline is not
// composable pass by pass: changing a single value re-runs every non
// zero filter, in the fixed Order, over a fresh copy of the source.
package filter

import (
	"image"
	"sort"

	"github.com/esimov/retouch/utils"
	"github.com/pkg/errors"
)

// Name identifies a filter.
type Name string

// The supported filters.
const (
	Enhance    Name = "enhance"
	Brightness Name = "brightness"
	Contrast   Name = "contrast"
	Saturation Name = "saturation"
	Warmth     Name = "warmth"
	Fade       Name = "fade"
	Highlights Name = "highlights"
	Shadows    Name = "shadows"
	Sharpen    Name = "sharpen"
	Vignette   Name = "vignette"
	Grain      Name = "grain"
)

// ErrUnknownFilter is returned for a filter name which is not registered.
var ErrUnknownFilter = errors.New("unknown filter")

// Func applies a filter of the given strength to the image, in place.
type Func func(img *image.NRGBA, value float64)

// Order is the iteration order used when the whole state is re-applied.
var Order = []Name{
	Enhance,
	Brightness,
	Contrast,
	Saturation,
	Warmth,
	Fade,
	Highlights,
	Shadows,
	Sharpen,
	Vignette,
	Grain,
}

type entry struct {
	fn       Func
	min, max float64
}

var registry = map[Name]entry{
	Enhance:    {enhance, 0, 100},
	Brightness: {brightness, -100, 100},
	Contrast:   {contrast, -100, 100},
	Saturation: {saturation, -100, 100},
	Warmth:     {warmth, -100, 100},
	Fade:       {fade, 0, 100},
	Highlights: {highlights, -100, 100},
	Shadows:    {shadows, -100, 100},
	Sharpen:    {sharpen, 0, 100},
	Vignette:   {vignette, 0, 100},
	Grain:      {grain, 0, 100},
}

// Parse converts a string into a registered filter name.
func Parse(s string) (Name, error) {
	name := Name(s)
	if _, ok := registry[name]; !ok {
		return "", errors.Wrapf(ErrUnknownFilter, "%q", s)
	}
	return name, nil
}

// Lookup returns the function implementing the named filter.
func Lookup(name Name) (Func, error) {
	e, ok := registry[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownFilter, "%q", name)
	}
	return e.fn, nil
}

// Range returns the accepted value interval of the named filter.
func Range(name Name) (min, max float64, err error) {
	e, ok := registry[name]
	if !ok {
		return 0, 0, errors.Wrapf(ErrUnknownFilter, "%q", name)
	}
	return e.min, e.max, nil
}

// Clamp restricts the value to the range of the named filter.
func Clamp(name Name, value float64) (float64, error) {
	min, max, err := Range(name)
	if err != nil {
		return 0, err
	}
	return utils.Clamp(value, min, max), nil
}

// Apply runs a single filter over the image. The value is clamped to the filter range.
func Apply(img *image.NRGBA, name Name, value float64) error {
	e, ok := registry[name]
	if !ok {
		return errors.Wrapf(ErrUnknownFilter, "%q", name)
	}
	value = utils.Clamp(value, e.min, e.max)
	if value == 0 {
		return nil
	}
	e.fn(img, value)
	return nil
}

// State maps every filter to its current value. Missing entries are zero.
type State map[Name]float64

// Clone returns an independent copy of the state.
func (s State) Clone() State {
	c := make(State, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// With returns a copy of the state with the given filter set to value.
func (s State) With(name Name, value float64) State {
	c := s.Clone()
	if value == 0 {
		delete(c, name)
	} else {
		c[name] = value
	}
	return c
}

// Active returns the names holding a non zero value, in pipeline order.
// Names unknown to the registry are listed last, sorted.
func (s State) Active() []Name {
	var (
		names   []Name
		unknown []string
	)
	for _, name := range Order {
		if s[name] != 0 {
			names = append(names, name)
		}
	}
	for name, v := range s {
		if _, ok := registry[name]; !ok && v != 0 {
			unknown = append(unknown, string(name))
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		names = append(names, Name(name))
	}
	return names
}

// IsZero reports whether every filter is at its neutral value.
func (s State) IsZero() bool {
	for _, v := range s {
		if v != 0 {
			return false
		}
	}
	return true
}

// Equal reports whether both states hold the same value for every filter.
func (s State) Equal(o State) bool {
	for k, v := range s {
		if o[k] != v {
			return false
		}
	}
	for k, v := range o {
		if s[k] != v {
			return false
		}
	}
	return true
}

// ApplyState re-runs every non zero filter of the state, in pipeline order.
func ApplyState(img *image.NRGBA, state State) error {
	for _, name := range state.Active() {
		if err := Apply(img, name, state[name]); err != nil {
			return err
		}
	}
	return nil
}
