package worker

import (
	"context"
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// CommandBlur is the command name of the Gaussian blur task.
const CommandBlur = "blur"

// BlurPayload is the request of the blur task.
type BlurPayload struct {
	Image  image.Image
	Width  int
	Height int
	Radius float64
}

// BlurResult is the reply of the blur task.
type BlurResult struct {
	Image *image.NRGBA
}

// Blur computes a Gaussian blurred copy of the payload image. The convolution
// is separable: a horizontal pass followed by a vertical one. The kernel
// reaches radius pixels on each side.
func Blur(ctx context.Context, payload any) (any, error) {
	req, ok := payload.(BlurPayload)
	if !ok {
		return nil, errors.Errorf("unexpected blur payload %T", payload)
	}
	if req.Image == nil {
		return nil, errors.New("blur payload has no image")
	}
	if b := req.Image.Bounds(); b.Dx() != req.Width || b.Dy() != req.Height {
		return nil, errors.Errorf("blur payload size %dx%d does not match the image %dx%d",
			req.Width, req.Height, b.Dx(), b.Dy())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var res *image.NRGBA
	if req.Radius <= 0 {
		res = imaging.Clone(req.Image)
	} else {
		res = imaging.Blur(req.Image, req.Radius/3)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return BlurResult{Image: res}, nil
}
