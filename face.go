package retouch

import (
	"image"
	"math"

	pigo "github.com/esimov/pigo/core"
	"github.com/esimov/retouch/box"
	"github.com/esimov/retouch/utils"
	"github.com/pkg/errors"
)

const (
	// faceMinSize is the smallest face, in backing store pixels, the detector looks for.
	faceMinSize = 20
	// faceQuality is the detection score a face needs to be retained.
	faceQuality = 5
	// faceMargin grows the frame enclosing the faces, relative to its larger side.
	faceMargin = 0.25
)

// SuggestCrop runs the pigo face detector over the backing store and
// returns a crop frame, in display container coordinates, enclosing every
// detected face with a margin.
func (e *Editor) SuggestCrop(cascade []byte) (box.Position, error) {
	r := e.raster
	if r == nil {
		return box.Position{}, ErrNoRaster
	}
	classifier, err := unpackCascade(cascade)
	if err != nil {
		return box.Position{}, err
	}

	b := r.Bounds()
	cols, rows := b.Dx(), b.Dy()
	params := pigo.CascadeParams{
		MinSize:     faceMinSize,
		MaxSize:     utils.Max(cols, rows),
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		ImageParams: pigo.ImageParams{
			Pixels: rgbToGrayscale(r.backing),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}
	// The result contains quadruplets of row, column, scale and detection score.
	faces := classifier.RunCascade(params, 0)
	faces = classifier.ClusterDetections(faces, 0.2)

	frame, err := faceFrame(faces, b.Size(), faceMargin)
	if err != nil {
		return box.Position{}, err
	}
	utils.Logger().Debug("faces detected", "count", len(faces), "frame", frame.String())

	g := e.geometry
	sx := float64(g.Width) / float64(cols)
	sy := float64(g.Height) / float64(rows)
	return box.Position{
		X:      float64(frame.Min.X) * sx,
		Y:      float64(frame.Min.Y) * sy,
		Width:  float64(frame.Dx()) * sx,
		Height: float64(frame.Dy()) * sy,
	}, nil
}

// unpackCascade parses a pigo cascade file. A truncated file makes the
// pigo parser panic, which is turned into an error.
func unpackCascade(cascade []byte) (p *pigo.Pigo, err error) {
	if len(cascade) < 16 {
		return nil, errors.New("the cascade file is too short")
	}
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, errors.Errorf("malformed cascade file: %v", r)
		}
	}()
	p, err = pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, errors.Wrap(err, "error unpacking the cascade file")
	}
	return p, nil
}

// faceFrame returns the rectangle enclosing the retained detections, grown
// by the margin and clipped to the image size.
func faceFrame(faces []pigo.Detection, size image.Point, margin float64) (image.Rectangle, error) {
	var frame image.Rectangle
	for _, f := range faces {
		if f.Q < faceQuality {
			continue
		}
		half := f.Scale / 2
		rect := image.Rect(f.Col-half, f.Row-half, f.Col+half, f.Row+half)
		frame = frame.Union(rect)
	}
	if frame.Empty() {
		return image.Rectangle{}, ErrNoFaces
	}

	grow := int(math.Round(float64(utils.Max(frame.Dx(), frame.Dy())) * margin))
	frame = frame.Inset(-grow).Intersect(image.Rectangle{Max: size})
	if frame.Empty() {
		return image.Rectangle{}, ErrNoFaces
	}
	return frame, nil
}

// rgbToGrayscale converts an image to grayscale mode and
// returns the pixel values as an one dimensional array.
func rgbToGrayscale(src *image.RGBA) []uint8 {
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()
	gray := make([]uint8, width*height)

	for y := 0; y < height; y++ {
		i := src.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < width; x++ {
			cr, cg, cb := src.Pix[i], src.Pix[i+1], src.Pix[i+2]
			gray[y*width+x] = uint8(0.299*float64(cr) + 0.587*float64(cg) + 0.114*float64(cb))
			i += 4
		}
	}
	return gray
}
