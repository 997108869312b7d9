package main

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/esimov/retouch/box"
	"github.com/esimov/retouch/drawing"
	"github.com/esimov/retouch/filter"
	"gonum.org/v1/gonum/spatial/r2"
)

// multiFlag collects the values of a repeatable flag.
type multiFlag []string

func (m *multiFlag) String() string {
	return strings.Join(*m, " | ")
}

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

// parseFilters parses a comma separated list of name=value pairs.
func parseFilters(s string) (filter.State, error) {
	state := filter.State{}
	if strings.TrimSpace(s) == "" {
		return state, nil
	}
	for _, pair := range strings.Split(s, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid filter %q, expected name=value", pair)
		}
		name, err := filter.Parse(strings.TrimSpace(kv[0]))
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value of filter %q: %v", name, err)
		}
		if v, err = filter.Clamp(name, v); err != nil {
			return nil, err
		}
		state[name] = v
	}
	return state, nil
}

// parseFloats parses n comma separated numbers.
func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("invalid value %q, expected %d comma separated numbers", s, n)
	}
	vals := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %v", s, err)
		}
		vals[i] = v
	}
	return vals, nil
}

// parseRect parses an x,y,w,h rectangle.
func parseRect(s string) (image.Rectangle, error) {
	v, err := parseFloats(s, 4)
	if err != nil {
		return image.Rectangle{}, err
	}
	if v[2] <= 0 || v[3] <= 0 {
		return image.Rectangle{}, fmt.Errorf("invalid rectangle %q, the size must be positive", s)
	}
	x, y := int(v[0]), int(v[1])
	return image.Rect(x, y, x+int(v[2]), y+int(v[3])), nil
}

// parsePosition parses an x,y,w,h box position, with an optional fifth rotation value.
func parsePosition(s string) (box.Position, error) {
	n := 4
	if strings.Count(s, ",") == 4 {
		n = 5
	}
	v, err := parseFloats(s, n)
	if err != nil {
		return box.Position{}, err
	}
	pos := box.Position{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	if n == 5 {
		pos.Rotation = v[4]
	}
	return pos, nil
}

// parseColor parses a #rrggbb or #rrggbbaa hex color.
func parseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %v", s, err)
	}
	if len(hex) == 6 {
		v = v<<8 | 0xff
	}
	return color.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}

// parseStroke parses a stroke given as tool:#rrggbb:width:x,y x,y ...
func parseStroke(s string) (drawing.Settings, []r2.Vec, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) != 4 {
		return drawing.Settings{}, nil, fmt.Errorf("invalid stroke %q, expected tool:color:width:points", s)
	}
	tool, err := drawing.ParseTool(parts[0])
	if err != nil {
		return drawing.Settings{}, nil, err
	}
	col, err := parseColor(parts[1])
	if err != nil {
		return drawing.Settings{}, nil, err
	}
	width, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || width <= 0 {
		return drawing.Settings{}, nil, fmt.Errorf("invalid stroke width %q", parts[2])
	}

	var pts []r2.Vec
	for _, f := range strings.Fields(parts[3]) {
		v, err := parseFloats(f, 2)
		if err != nil {
			return drawing.Settings{}, nil, err
		}
		pts = append(pts, r2.Vec{X: v[0], Y: v[1]})
	}
	if len(pts) == 0 {
		return drawing.Settings{}, nil, fmt.Errorf("the stroke %q has no points", s)
	}
	return drawing.Settings{Tool: tool, Color: col, Width: width}, pts, nil
}
