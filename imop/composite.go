// Package imop implements the composition operators used for mixing a
// graphic element with its backdrop. Beside the usual source-over operator
// it provides the additive "lighter" operator used to build glow effects,
// which the image/draw core package lacks.
package imop

import (
	"image"
	"math"

	"github.com/esimov/retouch/utils"
)

const (
	SrcOver = "src_over"
	Lighter = "lighter"
)

// Composite holds the currently active composition operator.
type Composite struct {
	current string
	ops     []string
}

// InitOp returns a Composite using the source-over operator.
func InitOp() *Composite {
	return &Composite{
		current: SrcOver,
		ops:     []string{SrcOver, Lighter},
	}
}

// Set changes the active operator. Unsupported operators are ignored.
func (op *Composite) Set(cop string) {
	if utils.Contains(op.ops, cop) {
		op.current = cop
	}
}

// Get returns the active operator.
func (op *Composite) Get() string {
	return op.current
}

// Draw composites src into dst, over the intersection of their sizes.
func (op *Composite) Draw(src, dst *image.NRGBA) {
	sb, db := src.Bounds(), dst.Bounds()
	dx := utils.Min(sb.Dx(), db.Dx())
	dy := utils.Min(sb.Dy(), db.Dy())

	var rn, gn, bn, an float64

	for y := 0; y < dy; y++ {
		si := src.PixOffset(sb.Min.X, sb.Min.Y+y)
		di := dst.PixOffset(db.Min.X, db.Min.Y+y)

		for x := 0; x < dx; x++ {
			rsn := float64(src.Pix[si+0]) / 255
			gsn := float64(src.Pix[si+1]) / 255
			bsn := float64(src.Pix[si+2]) / 255
			asn := float64(src.Pix[si+3]) / 255

			rbn := float64(dst.Pix[di+0]) / 255
			gbn := float64(dst.Pix[di+1]) / 255
			bbn := float64(dst.Pix[di+2]) / 255
			abn := float64(dst.Pix[di+3]) / 255

			// premultiplied
			switch op.current {
			case SrcOver:
				rn = asn*rsn + abn*rbn*(1-asn)
				gn = asn*gsn + abn*gbn*(1-asn)
				bn = asn*bsn + abn*bbn*(1-asn)
				an = asn + abn*(1-asn)
			case Lighter:
				rn = math.Min(1, asn*rsn+abn*rbn)
				gn = math.Min(1, asn*gsn+abn*gbn)
				bn = math.Min(1, asn*bsn+abn*bbn)
				an = math.Min(1, asn+abn)
			}

			if an > 0 {
				rn, gn, bn = rn/an, gn/an, bn/an
			}
			dst.Pix[di+0] = toUint8(rn)
			dst.Pix[di+1] = toUint8(gn)
			dst.Pix[di+2] = toUint8(bn)
			dst.Pix[di+3] = toUint8(an)

			si += 4
			di += 4
		}
	}
}

func toUint8(v float64) uint8 {
	return uint8(utils.Clamp(math.Round(v*255), 0, 255))
}
