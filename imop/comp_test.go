package imop

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComp_Basic(t *testing.T) {
	assert := assert.New(t)

	op := InitOp()
	assert.Equal(SrcOver, op.Get())

	op.Set(Lighter)
	assert.Equal(Lighter, op.Get())

	op.Set("xor")
	assert.Equal(Lighter, op.Get())
}

func TestComp_Ops(t *testing.T) {
	cyan := color.NRGBA{R: 33, G: 150, B: 243, A: 255}
	magenta := color.NRGBA{R: 233, G: 30, B: 99, A: 255}

	rect := image.Rect(0, 0, 10, 10)
	source := image.NewNRGBA(rect)
	draw.Draw(source, image.Rect(0, 4, 6, 10), &image.Uniform{cyan}, image.Point{}, draw.Src)

	// Three representative pixels of the output: the backdrop only region,
	// the source only region and the overlapping region.
	testCases := []struct {
		op                           string
		topRight, bottomLeft, center color.NRGBA
	}{
		{SrcOver, magenta, cyan, cyan},
		{Lighter, magenta, cyan, color.NRGBA{R: 255, G: 180, B: 255, A: 255}},
	}

	for _, tc := range testCases {
		t.Run(tc.op, func(t *testing.T) {
			assert := assert.New(t)

			backdrop := image.NewNRGBA(rect)
			draw.Draw(backdrop, image.Rect(4, 0, 10, 6), &image.Uniform{magenta}, image.Point{}, draw.Src)

			op := InitOp()
			op.Set(tc.op)
			op.Draw(source, backdrop)

			assert.EqualValues(tc.topRight, backdrop.At(9, 0))
			assert.EqualValues(tc.bottomLeft, backdrop.At(0, 9))
			assert.EqualValues(tc.center, backdrop.At(5, 5))
		})
	}
}

func TestComp_Lighter(t *testing.T) {
	assert := assert.New(t)

	rect := image.Rect(0, 0, 2, 1)
	source := image.NewNRGBA(rect)
	backdrop := image.NewNRGBA(rect)
	source.SetNRGBA(0, 0, color.NRGBA{R: 100, G: 50, B: 200, A: 255})
	backdrop.SetNRGBA(0, 0, color.NRGBA{R: 100, G: 50, B: 100, A: 255})
	source.SetNRGBA(1, 0, color.NRGBA{R: 255, A: 128})

	op := InitOp()
	op.Set(Lighter)
	op.Draw(source, backdrop)

	assert.Equal(color.NRGBA{R: 200, G: 100, B: 255, A: 255}, backdrop.NRGBAAt(0, 0))
	assert.Equal(color.NRGBA{R: 255, A: 128}, backdrop.NRGBAAt(1, 0))
}
