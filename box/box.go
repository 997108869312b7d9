// Package box implements the freeform rectangular elements placed over the
// image, such as text boxes, stickers and the crop frame, together with the
// pointer driven engine which drags, scales and rotates them.
package box

import (
	"image"
	"image/color"
	"math"
	"strings"
)

// Content is the payload of a box.
type Content interface {
	Empty() bool
}

// Align is the horizontal alignment of a text box.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Style is the decoration of a text box.
type Style string

const (
	StylePlain      Style = "plain"
	StyleOutline    Style = "outline"
	StyleBackground Style = "background"
)

// TextMeta holds the presentation attributes of a text box.
type TextMeta struct {
	Align    Align
	Style    Style
	Color    color.NRGBA
	FontSize float64
}

// Text is a text box payload.
type Text struct {
	Value string
	Meta  TextMeta
}

// Empty reports whether the text holds only white space.
func (t *Text) Empty() bool {
	return strings.TrimSpace(t.Value) == ""
}

func (t *Text) scale(f float64) {
	t.Meta.FontSize *= f
}

// Sticker is an image payload.
type Sticker struct {
	Image image.Image
}

// Empty reports whether the sticker has no image.
func (s *Sticker) Empty() bool {
	return s.Image == nil || s.Image.Bounds().Empty()
}

// CropFrame marks the box selecting the crop rectangle. It is never empty.
type CropFrame struct{}

// Empty always returns false.
func (CropFrame) Empty() bool { return false }

// scaler is implemented by the payloads with a size of their own.
type scaler interface {
	scale(f float64)
}

// Box is a positioned, resizable and rotatable element of a container.
type Box struct {
	ID string
	Position
	Content Content

	// PreserveRatio keeps the aspect ratio while scaling an unrotated box.
	PreserveRatio bool
	// Horizons enables the snapping to the container center and to the standard angles.
	Horizons bool
	// Rotatable enables the rotate handle.
	Rotatable bool

	// quarter is the number of clockwise quarter turns the corner handles
	// have moved by, as of the last rotate gesture.
	quarter int
}

// BoxOption configures a Box.
type BoxOption func(*Box)

// WithPreserveRatio enables the aspect ratio lock.
func WithPreserveRatio() BoxOption {
	return func(b *Box) { b.PreserveRatio = true }
}

// WithHorizons enables the center and angle snapping.
func WithHorizons() BoxOption {
	return func(b *Box) { b.Horizons = true }
}

// WithRotation makes the box rotatable.
func WithRotation() BoxOption {
	return func(b *Box) { b.Rotatable = true }
}

// New creates a box.
func New(id string, pos Position, content Content, opts ...BoxOption) *Box {
	b := &Box{
		ID:       id,
		Position: pos,
		Content:  content,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.rederive()
	return b
}

// IsEmpty reports whether the box holds no content worth keeping.
func (b *Box) IsEmpty() bool {
	if b.Width < 1 || b.Height < 1 {
		return true
	}
	return b.Content == nil || b.Content.Empty()
}

// Direction returns the on screen corner the given local handle is sitting at.
func (b *Box) Direction(handle Corner) Corner {
	return Corner((int(handle) + b.quarter) % 4)
}

// Handle returns the local handle currently sitting at the given on screen corner.
func (b *Box) Handle(direction Corner) Corner {
	return Corner(((int(direction)-b.quarter)%4 + 4) % 4)
}

// rederive recomputes the corner mapping from the current rotation.
func (b *Box) rederive() {
	q := int(math.Round(b.Rotation/90)) % 4
	if q < 0 {
		q += 4
	}
	b.quarter = q
}
