// Package blend implements the per-pixel compositing operators used by
// tilebrush.
//
// Direct operators ([Op]) are the Porter-Duff and separable W3C blend modes a
// renderer can apply in one pass. All of them work on premultiplied 8-bit
// channels and are independent of channel order, so they run unchanged on
// B,G,R,A display pixels.
//
// The HLS blends in hls.go have no direct operator: they convert both
// operands to hue/lightness/saturation, swap channels and convert back.
//
// References:
//   - Porter-Duff: "Compositing Digital Images" (1984)
//   - W3C Compositing and Blending Level 1: https://www.w3.org/TR/compositing-1/
package blend

import (
	"image"

	"github.com/gogpu/tilebrush/pixel"
)

// Op is a direct compositing operator.
type Op uint8

const (
	OpSourceOver      Op = iota // S + D*(1-Sa)
	OpMultiply                  // S * D
	OpScreen                    // 1 - (1-S)*(1-D)
	OpOverlay                   // HardLight with swapped layers
	OpDarken                    // min(S, D)
	OpLighten                   // max(S, D)
	OpColorDodge                // D / (1 - S)
	OpColorBurn                 // 1 - (1 - D) / S
	OpHardLight                 // Multiply or Screen depending on source
	OpSoftLight                 // Soft version of HardLight
	OpDifference                // |S - D|
	OpPlus                      // S + D (clamped)
	OpDestinationIn             // D*Sa
	OpDestinationOut            // D*(1-Sa)
	OpSourceAtop                // S*Da + D*(1-Sa)
	OpDestinationAtop           // S*(1-Da) + D*Sa

	opCount
)

var opNames = [opCount]string{
	OpSourceOver:      "source-over",
	OpMultiply:        "multiply",
	OpScreen:          "screen",
	OpOverlay:         "overlay",
	OpDarken:          "darken",
	OpLighten:         "lighten",
	OpColorDodge:      "color-dodge",
	OpColorBurn:       "color-burn",
	OpHardLight:       "hard-light",
	OpSoftLight:       "soft-light",
	OpDifference:      "difference",
	OpPlus:            "plus",
	OpDestinationIn:   "destination-in",
	OpDestinationOut:  "destination-out",
	OpSourceAtop:      "source-atop",
	OpDestinationAtop: "destination-atop",
}

// String returns the CSS-style name of the operator.
func (op Op) String() string {
	if op < opCount {
		return opNames[op]
	}
	return "unknown"
}

// Valid reports whether op is a defined operator.
func (op Op) Valid() bool {
	return op < opCount
}

// Func is the signature of a per-pixel operator.
// All values are premultiplied, 0-255. Channel order is irrelevant as long
// as source and destination agree; the names follow R, G, B, A.
type Func func(sr, sg, sb, sa, dr, dg, db, da byte) (r, g, b, a byte)

// Func returns the per-pixel function for op. Unknown operators fall back
// to source-over.
func (op Op) Func() Func {
	switch op {
	case OpMultiply:
		return blendMultiply
	case OpScreen:
		return blendScreen
	case OpOverlay:
		return blendOverlay
	case OpDarken:
		return blendDarken
	case OpLighten:
		return blendLighten
	case OpColorDodge:
		return blendColorDodge
	case OpColorBurn:
		return blendColorBurn
	case OpHardLight:
		return blendHardLight
	case OpSoftLight:
		return blendSoftLight
	case OpDifference:
		return blendDifference
	case OpPlus:
		return blendPlus
	case OpDestinationIn:
		return blendDestinationIn
	case OpDestinationOut:
		return blendDestinationOut
	case OpSourceAtop:
		return blendSourceAtop
	case OpDestinationAtop:
		return blendDestinationAtop
	default:
		return blendSourceOver
	}
}

// Composite blends the src pixels starting at sp into the dst rectangle r
// using op. opacity in [0, 1] scales the source before blending.
func Composite(dst *pixel.BGRA, r image.Rectangle, src *pixel.BGRA, sp image.Point, op Op, opacity float64) {
	// src = dst + delta; clip against both images.
	delta := sp.Sub(r.Min)
	r = r.Intersect(dst.Rect).Intersect(src.Rect.Sub(delta))
	if r.Empty() {
		return
	}
	sp = r.Min.Add(delta)

	fn := op.Func()
	alpha := opacityByte(opacity)
	w := r.Dx()
	for y := 0; y < r.Dy(); y++ {
		di := dst.PixOffset(r.Min.X, r.Min.Y+y)
		si := src.PixOffset(sp.X, sp.Y+y)
		d := dst.Pix[di : di+4*w : di+4*w]
		s := src.Pix[si : si+4*w : si+4*w]
		for i := 0; i < len(d); i += 4 {
			s0, s1, s2, s3 := s[i], s[i+1], s[i+2], s[i+3]
			if alpha != 255 {
				s0, s1, s2, s3 = mulDiv255(s0, alpha), mulDiv255(s1, alpha), mulDiv255(s2, alpha), mulDiv255(s3, alpha)
			}
			d[i], d[i+1], d[i+2], d[i+3] = fn(s0, s1, s2, s3, d[i], d[i+1], d[i+2], d[i+3])
		}
	}
}

func opacityByte(opacity float64) byte {
	switch {
	case opacity <= 0:
		return 0
	case opacity >= 1:
		return 255
	default:
		return byte(opacity*255 + 0.5)
	}
}
