package retouch

import (
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/esimov/retouch/utils"
	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
)

// ErrUnsupportedFormat is returned when encoding to an unknown file extension.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Decode decodes a jpeg, png or bmp image.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "could not decode the image")
	}
	return img, nil
}

// DecodeFile opens and decodes an image file. The file content is sniffed
// before decoding.
func DecodeFile(path string) (image.Image, error) {
	ctype, err := utils.DetectContentType(path)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(ctype, "image") {
		return nil, errors.Errorf("%s is not an image file", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open the image file")
	}
	defer f.Close()

	return Decode(f)
}

// Encode encodes an image in the format given by the file extension.
// An empty extension selects jpeg.
func Encode(w io.Writer, img image.Image, ext string) error {
	switch strings.ToLower(ext) {
	case "", ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 100})
	case ".png":
		return png.Encode(w, img)
	case ".bmp":
		return bmp.Encode(w, img)
	default:
		return errors.Wrapf(ErrUnsupportedFormat, "%q", ext)
	}
}

// EncodeFile encodes an image into the named file, in the format given by
// its extension.
func EncodeFile(path string, img image.Image) error {
	ext := filepath.Ext(path)
	switch strings.ToLower(ext) {
	case "", ".jpg", ".jpeg", ".png", ".bmp":
	default:
		return errors.Wrapf(ErrUnsupportedFormat, "%q", ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "could not create the output file")
	}
	if err := Encode(f, img, ext); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// toRGBA converts any image type to a new *image.RGBA with min-point at (0, 0).
func toRGBA(img image.Image) *image.RGBA {
	srcBounds := img.Bounds()
	dst := image.NewRGBA(srcBounds.Sub(srcBounds.Min))

	switch src := img.(type) {
	case *image.RGBA:
		rowSize := srcBounds.Dx() * 4
		for y := 0; y < srcBounds.Dy(); y++ {
			di := dst.PixOffset(0, y)
			si := src.PixOffset(srcBounds.Min.X, srcBounds.Min.Y+y)
			copy(dst.Pix[di:di+rowSize], src.Pix[si:si+rowSize])
		}
	case *image.YCbCr:
		for y := 0; y < srcBounds.Dy(); y++ {
			di := dst.PixOffset(0, y)
			for x := 0; x < srcBounds.Dx(); x++ {
				siy := src.YOffset(srcBounds.Min.X+x, srcBounds.Min.Y+y)
				sic := src.COffset(srcBounds.Min.X+x, srcBounds.Min.Y+y)
				r, g, b := color.YCbCrToRGB(src.Y[siy], src.Cb[sic], src.Cr[sic])
				dst.Pix[di+0] = r
				dst.Pix[di+1] = g
				dst.Pix[di+2] = b
				dst.Pix[di+3] = 0xff
				di += 4
			}
		}
	default:
		draw.Draw(dst, dst.Bounds(), img, srcBounds.Min, draw.Src)
	}
	return dst
}

// toNRGBA converts the image to *image.NRGBA, the pixel format the filters
// work on.
func toNRGBA(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// rotateCW rotates the image by 90 degrees clockwise.
func rotateCW(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for dstY := 0; dstY < w; dstY++ {
		for dstX := 0; dstX < h; dstX++ {
			srcX := dstY
			srcY := h - dstX - 1

			srcOff := src.PixOffset(b.Min.X+srcX, b.Min.Y+srcY)
			dstOff := dstY*dst.Stride + dstX*4
			copy(dst.Pix[dstOff:dstOff+4], src.Pix[srcOff:srcOff+4])
		}
	}
	return dst
}

// rotateCCW rotates the image by 90 degrees counter clockwise.
func rotateCCW(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for dstY := 0; dstY < w; dstY++ {
		for dstX := 0; dstX < h; dstX++ {
			srcX := w - dstY - 1
			srcY := dstX

			srcOff := src.PixOffset(b.Min.X+srcX, b.Min.Y+srcY)
			dstOff := dstY*dst.Stride + dstX*4
			copy(dst.Pix[dstOff:dstOff+4], src.Pix[srcOff:srcOff+4])
		}
	}
	return dst
}

// flipH mirrors the image horizontally.
func flipH(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			srcOff := src.PixOffset(b.Min.X+w-x-1, b.Min.Y+y)
			dstOff := dst.PixOffset(x, y)
			copy(dst.Pix[dstOff:dstOff+4], src.Pix[srcOff:srcOff+4])
		}
	}
	return dst
}

// cropRGBA copies the rectangle of the source into a new image anchored at the origin.
func cropRGBA(src *image.RGBA, r image.Rectangle) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), src, r.Min, draw.Src)
	return dst
}
