package box

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Corner names one of the four corners of a box, clockwise from the top left.
type Corner int

const (
	TopLeft Corner = iota
	TopRight
	BottomRight
	BottomLeft
)

func (c Corner) String() string {
	switch c {
	case TopLeft:
		return "top-left"
	case TopRight:
		return "top-right"
	case BottomRight:
		return "bottom-right"
	case BottomLeft:
		return "bottom-left"
	}
	return "unknown"
}

// Position is the geometry of a box in container local pixels. The rectangle
// is described unrotated; Rotation (degrees, clockwise) is applied around its center.
type Position struct {
	X, Y          float64
	Width, Height float64
	Rotation      float64
}

// Center returns the rotation pivot of the box.
func (p Position) Center() r2.Vec {
	return r2.Vec{X: p.X + p.Width/2, Y: p.Y + p.Height/2}
}

// Radians returns the rotation angle in radians.
func (p Position) Radians() float64 {
	return p.Rotation * math.Pi / 180
}

// Rotated reports whether the box is rotated by anything other than a full turn.
func (p Position) Rotated() bool {
	return math.Mod(p.Rotation, 360) != 0
}

// local returns the offset of a corner from the center, before rotation.
func (p Position) local(c Corner) r2.Vec {
	hw, hh := p.Width/2, p.Height/2
	switch c {
	case TopRight:
		return r2.Vec{X: hw, Y: -hh}
	case BottomRight:
		return r2.Vec{X: hw, Y: hh}
	case BottomLeft:
		return r2.Vec{X: -hw, Y: hh}
	}
	return r2.Vec{X: -hw, Y: -hh}
}

// Corner returns the container position of a local corner once rotated.
func (p Position) Corner(c Corner) r2.Vec {
	return r2.Add(p.Center(), r2.Rotate(p.local(c), p.Radians(), r2.Vec{}))
}

// Extent returns the size of the axis aligned bounding box of the rotated rectangle.
func (p Position) Extent() (w, h float64) {
	sin, cos := math.Sincos(p.Radians())
	sin, cos = math.Abs(sin), math.Abs(cos)
	return p.Width*cos + p.Height*sin, p.Width*sin + p.Height*cos
}

// Bounds returns the axis aligned bounding box of the rotated rectangle.
func (p Position) Bounds() (min, max r2.Vec) {
	w, h := p.Extent()
	c := p.Center()
	return r2.Vec{X: c.X - w/2, Y: c.Y - h/2}, r2.Vec{X: c.X + w/2, Y: c.Y + h/2}
}

// ToLocal maps a container point into the unrotated frame of the box,
// relative to its center.
func (p Position) ToLocal(pt r2.Vec) r2.Vec {
	return r2.Rotate(r2.Sub(pt, p.Center()), -p.Radians(), r2.Vec{})
}

// Contains reports whether the point lies inside the rotated rectangle.
func (p Position) Contains(pt r2.Vec) bool {
	l := p.ToLocal(pt)
	return math.Abs(l.X) <= p.Width/2 && math.Abs(l.Y) <= p.Height/2
}

// Scale multiplies every coordinate by the horizontal and vertical factors.
func (p Position) Scale(sx, sy float64) Position {
	p.X *= sx
	p.Y *= sy
	p.Width *= sx
	p.Height *= sy
	return p
}

// normalizeAngle maps an angle in degrees into [-180, 180).
func normalizeAngle(a float64) float64 {
	a = math.Mod(a+180, 360)
	if a < 0 {
		a += 360
	}
	return a - 180
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
