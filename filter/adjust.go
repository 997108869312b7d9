package filter

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/esimov/retouch/utils"
)

// Strength of every adjustment at the end of its range.
const (
	brightnessScale = 0.5
	contrastScale   = 0.5
	warmthShift     = 30.0
	fadeMix         = 0.35
	toneShift       = 0.4 * 255
	vignetteDepth   = 0.8
	grainAmplitude  = 40.0
	sharpenSigma    = 1.0
)

// Fractions of its own value applied by the enhance macro.
const (
	enhanceContrast   = 0.25
	enhanceBrightness = 0.1
	enhanceSaturation = 0.3
	enhanceSharpen    = 0.2
)

// store copies the result of an imaging operation back into the destination buffer.
// imaging always returns images anchored at the origin with a packed stride,
// whereas dst may be a sub-image.
func store(dst, res *image.NRGBA) {
	b := dst.Bounds()
	rowSize := b.Dx() * 4
	for y := 0; y < b.Dy(); y++ {
		di := dst.PixOffset(b.Min.X, b.Min.Y+y)
		si := y * res.Stride
		copy(dst.Pix[di:di+rowSize], res.Pix[si:si+rowSize])
	}
}

func clampUint8(v float64) uint8 {
	return uint8(utils.Clamp(math.Round(v), 0, 255))
}

func smoothstep(edge0, edge1, x float64) float64 {
	t := utils.Clamp((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}

func luminance(c color.NRGBA) float64 {
	return (0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)) / 255
}

func brightness(img *image.NRGBA, value float64) {
	store(img, imaging.AdjustBrightness(img, value*brightnessScale))
}

func contrast(img *image.NRGBA, value float64) {
	store(img, imaging.AdjustContrast(img, value*contrastScale))
}

func saturation(img *image.NRGBA, value float64) {
	store(img, imaging.AdjustSaturation(img, value))
}

func warmth(img *image.NRGBA, value float64) {
	shift := value / 100 * warmthShift
	store(img, imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		c.R = clampUint8(float64(c.R) + shift)
		c.B = clampUint8(float64(c.B) - shift)
		return c
	}))
}

// fade pulls every channel towards the mid gray, lifting the blacks and
// dimming the whites.
func fade(img *image.NRGBA, value float64) {
	mix := value / 100 * fadeMix
	store(img, imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		c.R = clampUint8(float64(c.R) + (128-float64(c.R))*mix)
		c.G = clampUint8(float64(c.G) + (128-float64(c.G))*mix)
		c.B = clampUint8(float64(c.B) + (128-float64(c.B))*mix)
		return c
	}))
}

// highlights shifts the bright tones only, weighted by their luminance.
func highlights(img *image.NRGBA, value float64) {
	tone(img, value, func(lum float64) float64 {
		return smoothstep(0.5, 1, lum)
	})
}

// shadows shifts the dark tones only.
func shadows(img *image.NRGBA, value float64) {
	tone(img, value, func(lum float64) float64 {
		return 1 - smoothstep(0, 0.5, lum)
	})
}

func tone(img *image.NRGBA, value float64, weight func(lum float64) float64) {
	shift := value / 100 * toneShift
	store(img, imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		d := shift * weight(luminance(c))
		c.R = clampUint8(float64(c.R) + d)
		c.G = clampUint8(float64(c.G) + d)
		c.B = clampUint8(float64(c.B) + d)
		return c
	}))
}

// sharpen mixes an unsharp masked copy into the image proportionally to value.
func sharpen(img *image.NRGBA, value float64) {
	sharp := imaging.Sharpen(img, sharpenSigma)
	amount := value / 100

	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		di := img.PixOffset(b.Min.X, b.Min.Y+y)
		si := y * sharp.Stride
		for x := 0; x < b.Dx()*4; x += 4 {
			for k := 0; k < 3; k++ {
				o := float64(img.Pix[di+x+k])
				s := float64(sharp.Pix[si+x+k])
				img.Pix[di+x+k] = clampUint8(o + (s-o)*amount)
			}
		}
	}
}

// vignette darkens the pixels by their distance from the image center.
func vignette(img *image.NRGBA, value float64) {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	cx, cy := w/2, h/2
	depth := value / 100 * vignetteDepth

	for y := 0; y < b.Dy(); y++ {
		i := img.PixOffset(b.Min.X, b.Min.Y+y)
		dy := (float64(y) + 0.5 - cy) / cy
		for x := 0; x < b.Dx(); x++ {
			dx := (float64(x) + 0.5 - cx) / cx
			d := math.Sqrt(dx*dx+dy*dy) / math.Sqrt2
			f := 1 - depth*smoothstep(0.35, 1, d)
			img.Pix[i+0] = clampUint8(float64(img.Pix[i+0]) * f)
			img.Pix[i+1] = clampUint8(float64(img.Pix[i+1]) * f)
			img.Pix[i+2] = clampUint8(float64(img.Pix[i+2]) * f)
			i += 4
		}
	}
}

// grain adds monochromatic noise. The noise is a hash of the pixel position,
// so applying the same value twice over the same source gives identical output.
func grain(img *image.NRGBA, value float64) {
	b := img.Bounds()
	amp := value / 100 * grainAmplitude

	for y := 0; y < b.Dy(); y++ {
		i := img.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < b.Dx(); x++ {
			n := noise(x, y) * amp
			img.Pix[i+0] = clampUint8(float64(img.Pix[i+0]) + n)
			img.Pix[i+1] = clampUint8(float64(img.Pix[i+1]) + n)
			img.Pix[i+2] = clampUint8(float64(img.Pix[i+2]) + n)
			i += 4
		}
	}
}

// noise returns a pseudo random value in [-1, 1] for the given coordinates.
func noise(x, y int) float64 {
	h := uint32(x)*374761393 + uint32(y)*668265263
	h = (h ^ (h >> 13)) * 1274126177
	h ^= h >> 16
	return float64(h)/float64(math.MaxUint32)*2 - 1
}

// enhance is a macro over contrast, brightness, saturation and sharpen.
func enhance(img *image.NRGBA, value float64) {
	contrast(img, value*enhanceContrast)
	brightness(img, value*enhanceBrightness)
	saturation(img, value*enhanceSaturation)
	sharpen(img, value*enhanceSharpen)
}
