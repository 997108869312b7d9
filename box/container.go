package box

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Target is the part of a box a pointer landed on.
type Target int

const (
	None Target = iota
	Body
	Handle
	RotateHandle
)

// Hit is the result of a hit test.
type Hit struct {
	Box    *Box
	Target Target
	// Corner is the on screen corner of the handle, for Handle targets.
	Corner Corner
}

// Container is the surface holding an ordered set of boxes. The last box is
// the top-most one.
type Container struct {
	ID            string
	Width, Height float64

	boxes []*Box
}

// NewContainer creates an empty container of the given size.
func NewContainer(id string, w, h float64) *Container {
	return &Container{ID: id, Width: w, Height: h}
}

// Boxes returns the boxes in stacking order.
func (c *Container) Boxes() []*Box {
	boxes := make([]*Box, len(c.boxes))
	copy(boxes, c.boxes)
	return boxes
}

// Len returns the number of boxes.
func (c *Container) Len() int {
	return len(c.boxes)
}

// Box returns the box with the given id, or nil.
func (c *Container) Box(id string) *Box {
	for _, b := range c.boxes {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func (c *Container) add(b *Box) {
	c.boxes = append(c.boxes, b)
}

func (c *Container) remove(id string) bool {
	for i, b := range c.boxes {
		if b.ID == id {
			c.boxes = append(c.boxes[:i], c.boxes[i+1:]...)
			return true
		}
	}
	return false
}

// removeEmpty drops the empty boxes and returns their ids.
func (c *Container) removeEmpty() []string {
	var (
		kept    = c.boxes[:0]
		removed []string
	)
	for _, b := range c.boxes {
		if b.IsEmpty() {
			removed = append(removed, b.ID)
			continue
		}
		kept = append(kept, b)
	}
	for i := len(kept); i < len(c.boxes); i++ {
		c.boxes[i] = nil
	}
	c.boxes = kept
	return removed
}

// resize changes the container size and moves every box proportionally.
func (c *Container) resize(w, h float64) {
	if c.Width > 0 && c.Height > 0 {
		sx, sy := w/c.Width, h/c.Height
		for _, b := range c.boxes {
			b.Position = b.Position.Scale(sx, sy)
			if s, ok := b.Content.(scaler); ok {
				s.scale(math.Min(sx, sy))
			}
		}
	}
	c.Width, c.Height = w, h
}

// HitTest returns the top-most box under the point. Handles take precedence
// over the body of the same box.
func (c *Container) HitTest(pt r2.Vec, handleRadius, rotateOffset float64) (Hit, bool) {
	for i := len(c.boxes) - 1; i >= 0; i-- {
		b := c.boxes[i]

		if b.Rotatable {
			if r2.Norm(r2.Sub(pt, rotateHandle(b.Position, rotateOffset))) <= handleRadius {
				return Hit{Box: b, Target: RotateHandle}, true
			}
		}
		for _, h := range []Corner{TopLeft, TopRight, BottomRight, BottomLeft} {
			if r2.Norm(r2.Sub(pt, b.Corner(h))) <= handleRadius {
				return Hit{Box: b, Target: Handle, Corner: b.Direction(h)}, true
			}
		}
		if b.Contains(pt) {
			return Hit{Box: b, Target: Body}, true
		}
	}
	return Hit{}, false
}

// rotateHandle returns the position of the rotate handle, above the top edge center.
func rotateHandle(p Position, offset float64) r2.Vec {
	local := r2.Vec{X: 0, Y: -p.Height/2 - offset}
	return r2.Add(p.Center(), r2.Rotate(local, p.Radians(), r2.Vec{}))
}
