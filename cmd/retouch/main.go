package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/esimov/retouch"
	"github.com/esimov/retouch/box"
	"github.com/esimov/retouch/filter"
	"github.com/esimov/retouch/utils"
)

const helpBanner = `
┬─┐┌─┐┌┬┐┌─┐┬ ┬┌─┐┬ ┬
├┬┘├┤  │ │ ││ ││  ├─┤
┴└─└─┘ ┴ └─┘└─┘└─┘┴ ┴

Headless raster image editor.
    Version: %s

`

// pipeName is the file name that indicates stdin/stdout is being used.
const pipeName = "-"

// Version indicates the current build version.
var Version string

var (
	// Flags
	source      = flag.String("in", pipeName, "Source")
	destination = flag.String("out", pipeName, "Destination")
	filters     = flag.String("filters", "", "Comma separated filters, e.g. brightness=20,contrast=10")
	enhance     = flag.Float64("enhance", 0, "Enhance strength (0..100)")
	rotate      = flag.Float64("rotate", 0, "Rotation angle in degrees, clockwise")
	rotate90    = flag.Int("rotate90", 0, "Number of clockwise quarter turns")
	flip        = flag.Bool("flip", false, "Mirror the image horizontally")
	crop        = flag.String("crop", "", "Crop rectangle: x,y,w,h")
	faceDetect  = flag.Bool("face", false, "Crop around the detected faces")
	cascade     = flag.String("cc", "", "Cascade classifier")
	text        = flag.String("text", "", "Text to place over the image")
	textBox     = flag.String("text-box", "", "Text box: x,y,w,h[,rotation]")
	textColor   = flag.String("text-color", "#ffffff", "Text color")
	textAlign   = flag.String("text-align", string(box.AlignCenter), "Text alignment: left, center, right")
	textStyle   = flag.String("text-style", string(box.StylePlain), "Text style: plain, outline, background")
	fontSize    = flag.Float64("font-size", 32, "Font size")
	sticker     = flag.String("sticker", "", "Sticker image path")
	stickerBox  = flag.String("sticker-box", "", "Sticker box: x,y,w,h[,rotation]")
	workers     = flag.Int("conc", runtime.NumCPU(), "Number of files to process concurrently")
	historyMax  = flag.Int("history", 50, "History depth")
	debug       = flag.Bool("debug", false, "Log the editing steps")

	strokes multiFlag
)

func main() {
	log.SetFlags(0)

	flag.Var(&strokes, "stroke", "Stroke: tool:#rrggbb:width:x,y x,y ... (repeatable)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, helpBanner, Version)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *debug {
		retouch.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	p, err := pipeline()
	if err != nil {
		flag.Usage()
		log.Fatalf(utils.DecorateText("\n%v", utils.ErrorMessage), err)
	}
	if isNoop(p) {
		flag.Usage()
		log.Fatal(utils.DecorateText("\nPlease provide at least one edit to apply!", utils.ErrorMessage))
	}

	p.Execute(&retouch.Ops{
		Src:      *source,
		Dst:      *destination,
		PipeName: pipeName,
		Workers:  *workers,
	})
}

// pipeline maps the flags onto the edits of a pipeline.
func pipeline() (*retouch.Pipeline, error) {
	p := &retouch.Pipeline{
		Rotate90: *rotate90,
		Flip:     *flip,
		Rotate:   *rotate,
		FaceCrop: *faceDetect,
		Options: []retouch.Option{
			retouch.WithHistoryLimit(*historyMax),
			retouch.WithConcurrency(*workers),
		},
	}

	var err error
	if p.Filters, err = parseFilters(*filters); err != nil {
		return nil, err
	}
	if *enhance != 0 {
		if p.Filters[filter.Enhance], err = filter.Clamp(filter.Enhance, *enhance); err != nil {
			return nil, err
		}
	}

	if *crop != "" {
		if p.Crop, err = parseRect(*crop); err != nil {
			return nil, err
		}
	}
	if *faceDetect {
		if *cascade == "" {
			return nil, fmt.Errorf("please specify a face classifier in case you are using the -face flag")
		}
		if p.Cascade, err = os.ReadFile(*cascade); err != nil {
			return nil, fmt.Errorf("could not read the cascade file: %v", err)
		}
	}

	for _, s := range strokes {
		settings, pts, err := parseStroke(s)
		if err != nil {
			return nil, err
		}
		p.Strokes = append(p.Strokes, retouch.Stroke{Settings: settings, Points: pts})
	}

	if *text != "" {
		pos, err := parsePosition(*textBox)
		if err != nil {
			return nil, fmt.Errorf("-text-box: %v", err)
		}
		col, err := parseColor(*textColor)
		if err != nil {
			return nil, err
		}
		p.Texts = append(p.Texts, retouch.TextBox{
			Value:    strings.ReplaceAll(*text, `\n`, "\n"),
			Position: pos,
			Meta: box.TextMeta{
				Align:    box.Align(*textAlign),
				Style:    box.Style(*textStyle),
				Color:    col,
				FontSize: *fontSize,
			},
		})
	}

	if *sticker != "" {
		pos, err := parsePosition(*stickerBox)
		if err != nil {
			return nil, fmt.Errorf("-sticker-box: %v", err)
		}
		img, err := retouch.DecodeFile(*sticker)
		if err != nil {
			return nil, err
		}
		p.Stickers = append(p.Stickers, retouch.StickerBox{Image: img, Position: pos})
	}
	return p, nil
}

func isNoop(p *retouch.Pipeline) bool {
	return p.Rotate90 == 0 && !p.Flip && p.Rotate == 0 &&
		p.Crop.Empty() && !p.FaceCrop && p.Filters.IsZero() &&
		len(p.Strokes) == 0 && len(p.Texts) == 0 && len(p.Stickers) == 0
}
