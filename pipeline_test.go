package retouch

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/esimov/retouch/box"
	"github.com/esimov/retouch/drawing"
	"github.com/esimov/retouch/filter"
	"github.com/esimov/retouch/utils"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestPipeline_Run(t *testing.T) {
	assert := assert.New(t)
	src := gradient(80, 60)

	p := &Pipeline{
		Rotate90: 1,
		Crop:     image.Rect(10, 10, 50, 40),
		Strokes: []Stroke{{
			Settings: drawing.Settings{Tool: drawing.Pen, Color: color.Black, Width: 2},
			Points:   []r2.Vec{{X: 20, Y: 15}, {X: 35, Y: 15}},
		}},
		Stickers: []StickerBox{{
			Image:    filled(10, 10, red),
			Position: box.Position{Width: 10, Height: 10},
		}},
		Texts: []TextBox{{Value: " "}},
	}
	out, err := p.Run(context.Background(), src)
	assert.NoError(err)
	assert.Equal(image.Rect(0, 0, 40, 30), out.Bounds())
	assert.Equal(src.RGBAAt(10, 39), out.RGBAAt(10, 0))
	assert.Equal(red, out.RGBAAt(5, 5))
	assert.Equal(color.RGBA{A: 255}, out.RGBAAt(28, 15))
}

func TestPipeline_Filters(t *testing.T) {
	assert := assert.New(t)
	src := gradient(40, 30)

	p := &Pipeline{Filters: filter.State{filter.Contrast: 10, filter.Brightness: 20}}
	out, err := p.Run(context.Background(), src)
	assert.NoError(err)

	want := toNRGBA(src)
	assert.NoError(filter.ApplyState(want, p.Filters))
	assert.Equal(toRGBA(want).Pix, out.Pix)
}

func TestPipeline_Errors(t *testing.T) {
	assert := assert.New(t)
	src := gradient(40, 30)

	_, err := (&Pipeline{FaceCrop: true}).Run(context.Background(), src)
	assert.Error(err)

	_, err = (&Pipeline{Crop: image.Rect(100, 100, 120, 120)}).Run(context.Background(), src)
	assert.ErrorIs(err, ErrEmptyCrop)

	_, err = (&Pipeline{Strokes: []Stroke{{
		Settings: drawing.Settings{Tool: "spray"},
		Points:   []r2.Vec{{X: 1, Y: 1}},
	}}}).Run(context.Background(), src)
	assert.ErrorIs(err, drawing.ErrUnknownTool)
}

func TestPipeline_Process(t *testing.T) {
	assert := assert.New(t)
	src := gradient(80, 60)

	var in bytes.Buffer
	assert.NoError(Encode(&in, src, ".png"))

	var out bytes.Buffer
	assert.NoError((&Pipeline{Flip: true}).Process(context.Background(), &in, &out, ".png"))

	img, err := Decode(&out)
	assert.NoError(err)
	assert.Equal(src.RGBAAt(79, 0), toRGBA(img).RGBAAt(0, 0))
}

func TestExec_WalkDir(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()

	for _, name := range []string{"a.jpg", "b.PNG", "c.txt", filepath.Join("sub", "d.bmp")} {
		path := filepath.Join(dir, name)
		assert.NoError(os.MkdirAll(filepath.Dir(path), 0755))
		assert.NoError(os.WriteFile(path, nil, 0644))
	}

	paths := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(paths)
		errc <- walkDir(context.Background(), dir, validExtensions, paths)
	}()

	var got []string
	for p := range paths {
		rel, err := filepath.Rel(dir, p)
		assert.NoError(err)
		got = append(got, rel)
	}
	assert.NoError(<-errc)
	sort.Strings(got)
	assert.Equal([]string{"a.jpg", "b.PNG", filepath.Join("sub", "d.bmp")}, got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := walkDir(ctx, dir, validExtensions, make(chan string))
	assert.ErrorIs(err, context.Canceled)
}

func TestExec_ProcessDir(t *testing.T) {
	assert := assert.New(t)
	src, dst := t.TempDir(), filepath.Join(t.TempDir(), "out")

	img := gradient(40, 30)
	for _, name := range []string{"a.png", "b.png"} {
		assert.NoError(EncodeFile(filepath.Join(src, name), img))
	}

	spinner := utils.NewSpinner("", time.Millisecond, false)
	spinner.SetWriter(io.Discard)
	p := &Pipeline{Flip: true, Spinner: spinner}
	op := &Ops{Src: src, Dst: dst, PipeName: "-", Workers: 2}
	assert.NoError(op.processDir(context.Background(), p))

	for _, name := range []string{"a.png", "b.png"} {
		out, err := DecodeFile(filepath.Join(dst, name))
		assert.NoError(err)
		assert.Equal(img.RGBAAt(39, 0), toRGBA(out).RGBAAt(0, 0))
	}

	assert.NoError(os.WriteFile(filepath.Join(src, "c.png"), []byte("not an image"), 0644))
	assert.Error(op.processDir(context.Background(), p))
	_, err := os.Stat(filepath.Join(dst, "c.png"))
	assert.True(os.IsNotExist(err))
}
