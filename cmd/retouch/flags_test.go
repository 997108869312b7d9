package main

import (
	"image"
	"image/color"
	"testing"

	"github.com/esimov/retouch/box"
	"github.com/esimov/retouch/drawing"
	"github.com/esimov/retouch/filter"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestFlags_Filters(t *testing.T) {
	assert := assert.New(t)

	s, err := parseFilters("brightness=20, contrast=-10,grain=500")
	assert.NoError(err)
	assert.Equal(filter.State{filter.Brightness: 20, filter.Contrast: -10, filter.Grain: 100}, s)

	s, err = parseFilters("")
	assert.NoError(err)
	assert.True(s.IsZero())

	for _, in := range []string{"brightness", "sepia=10", "contrast=high"} {
		_, err := parseFilters(in)
		assert.Error(err, in)
	}
}

func TestFlags_Geometry(t *testing.T) {
	assert := assert.New(t)

	r, err := parseRect("10,20,30,40")
	assert.NoError(err)
	assert.Equal(image.Rect(10, 20, 40, 60), r)
	_, err = parseRect("10,20,0,40")
	assert.Error(err)
	_, err = parseRect("10,20,30")
	assert.Error(err)

	pos, err := parsePosition("1,2,3,4")
	assert.NoError(err)
	assert.Equal(box.Position{X: 1, Y: 2, Width: 3, Height: 4}, pos)
	pos, err = parsePosition("1,2,3,4,45")
	assert.NoError(err)
	assert.Equal(45.0, pos.Rotation)
}

func TestFlags_Color(t *testing.T) {
	testCases := []struct {
		in   string
		want color.NRGBA
		err  bool
	}{
		{in: "#ff8000", want: color.NRGBA{R: 255, G: 128, A: 255}},
		{in: "00ff0080", want: color.NRGBA{G: 255, A: 128}},
		{in: "#fff", err: true},
		{in: "#gggggg", err: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseColor(tc.in)
			if tc.err {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFlags_Stroke(t *testing.T) {
	assert := assert.New(t)

	settings, pts, err := parseStroke("neon:#ff0000:6:10,10 20,15 30,20")
	assert.NoError(err)
	assert.Equal(drawing.Settings{Tool: drawing.Neon, Color: color.NRGBA{R: 255, A: 255}, Width: 6}, settings)
	assert.Equal([]r2.Vec{{X: 10, Y: 10}, {X: 20, Y: 15}, {X: 30, Y: 20}}, pts)

	for _, in := range []string{
		"pen:#000000:4",
		"spray:#000000:4:1,1",
		"pen:black:4:1,1",
		"pen:#000000:-1:1,1",
		"pen:#000000:4:",
		"pen:#000000:4:1;1",
	} {
		_, _, err := parseStroke(in)
		assert.Error(err, in)
	}

	var m multiFlag
	assert.NoError(m.Set("a"))
	assert.NoError(m.Set("b"))
	assert.Equal("a | b", m.String())
}
