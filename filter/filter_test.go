package filter

import (
	"image"
	"image/color"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: uint8((x + y) * 127 / (w + h)),
				A: 255,
			})
		}
	}
	return img
}

func clone(img *image.NRGBA) *image.NRGBA {
	c := image.NewNRGBA(img.Bounds())
	copy(c.Pix, img.Pix)
	return c
}

func TestFilter_ZeroIsIdentity(t *testing.T) {
	for _, name := range Order {
		t.Run(string(name), func(t *testing.T) {
			img := gradient(32, 24)
			orig := clone(img)

			assert.NoError(t, Apply(img, name, 0))
			assert.Equal(t, orig.Pix, img.Pix)
		})
	}
}

func TestFilter_NonZeroChangesPixels(t *testing.T) {
	for _, name := range Order {
		t.Run(string(name), func(t *testing.T) {
			img := gradient(32, 24)
			orig := clone(img)

			assert.NoError(t, Apply(img, name, 80))
			assert.NotEqual(t, orig.Pix, img.Pix)
		})
	}
}

func TestFilter_UnknownName(t *testing.T) {
	assert := assert.New(t)

	img := gradient(4, 4)
	err := Apply(img, "sepia", 10)
	assert.True(errors.Is(err, ErrUnknownFilter))

	_, err = Lookup("sepia")
	assert.True(errors.Is(err, ErrUnknownFilter))

	_, err = Parse("sepia")
	assert.Error(err)

	name, err := Parse("warmth")
	assert.NoError(err)
	assert.Equal(Warmth, name)
}

func TestFilter_Range(t *testing.T) {
	assert := assert.New(t)

	min, max, err := Range(Brightness)
	assert.NoError(err)
	assert.Equal(-100.0, min)
	assert.Equal(100.0, max)

	v, err := Clamp(Vignette, -20)
	assert.NoError(err)
	assert.Equal(0.0, v)

	// Out of range values behave like the range boundary.
	a, b := gradient(16, 16), gradient(16, 16)
	assert.NoError(Apply(a, Brightness, 500))
	assert.NoError(Apply(b, Brightness, 100))
	assert.Equal(b.Pix, a.Pix)
}

func TestFilter_Brightness(t *testing.T) {
	assert := assert.New(t)

	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = 100
	}
	assert.NoError(Apply(img, Brightness, 40))
	assert.Greater(img.Pix[0], uint8(100))
	assert.Equal(uint8(100), img.Pix[3], "alpha must be preserved")

	assert.NoError(Apply(img, Brightness, -100))
	assert.Less(img.Pix[0], uint8(100))
}

func TestFilter_Warmth(t *testing.T) {
	assert := assert.New(t)

	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	assert.NoError(Apply(img, Warmth, 100))

	c := img.NRGBAAt(0, 0)
	assert.Equal(uint8(130), c.R)
	assert.Equal(uint8(100), c.G)
	assert.Equal(uint8(70), c.B)
}

func TestFilter_VignetteKeepsCenter(t *testing.T) {
	assert := assert.New(t)

	img := image.NewNRGBA(image.Rect(0, 0, 41, 41))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	assert.NoError(Apply(img, Vignette, 100))

	assert.Equal(uint8(200), img.NRGBAAt(20, 20).R)
	assert.Less(img.NRGBAAt(0, 0).R, uint8(200))
}

func TestFilter_GrainIsDeterministic(t *testing.T) {
	assert := assert.New(t)

	a, b := gradient(20, 20), gradient(20, 20)
	assert.NoError(Apply(a, Grain, 50))
	assert.NoError(Apply(b, Grain, 50))
	assert.Equal(a.Pix, b.Pix)
}

func TestFilter_SubImage(t *testing.T) {
	assert := assert.New(t)

	img := gradient(20, 20)
	orig := clone(img)
	sub := img.SubImage(image.Rect(5, 5, 10, 10)).(*image.NRGBA)
	assert.NoError(Apply(sub, Brightness, 60))

	// Pixels outside the sub-image are untouched.
	assert.Equal(orig.NRGBAAt(0, 0), img.NRGBAAt(0, 0))
	assert.Equal(orig.NRGBAAt(15, 15), img.NRGBAAt(15, 15))
	assert.NotEqual(orig.NRGBAAt(6, 6), img.NRGBAAt(6, 6))
}

func TestFilter_State(t *testing.T) {
	assert := assert.New(t)

	s := State{}
	assert.True(s.IsZero())

	s = s.With(Grain, 10).With(Brightness, 20).With(Contrast, 0)
	assert.Equal([]Name{Brightness, Grain}, s.Active())
	assert.False(s.IsZero())

	c := s.Clone()
	assert.True(c.Equal(s))
	c[Brightness] = 0
	assert.Equal(20.0, s[Brightness])
	assert.False(c.Equal(s))
	assert.True(State{}.Equal(State{Contrast: 0}))

	// Re-applying the same state over the same source is reproducible.
	src := gradient(24, 24)
	a, b := clone(src), clone(src)
	assert.NoError(ApplyState(a, s))
	assert.NoError(ApplyState(b, s))
	assert.Equal(a.Pix, b.Pix)

	// An all zero state leaves the buffer untouched.
	z := clone(src)
	assert.NoError(ApplyState(z, State{Brightness: 0}))
	assert.Equal(src.Pix, z.Pix)
}
