package blend

import (
	"image"

	"github.com/gogpu/tilebrush/pixel"
)

// HLS blends copy selected hue/lightness/saturation channels from a top
// layer into the colour of the layer beneath it and write the result back
// into the top layer. They have no direct operator.

// Channel selects hue, lightness or saturation components.
type Channel uint8

const (
	ChannelHue Channel = 1 << iota
	ChannelLightness
	ChannelSaturation
)

// DefaultAlphaThreshold is the minimum alpha, on both operands, for a pixel
// to take part in an HLS blend.
const DefaultAlphaThreshold = 50

// HLSBlend describes one HLS blend: the channels taken from the top operand.
// The remaining channels come from the bottom operand.
type HLSBlend struct {
	FromTop Channel
}

// Standard HLS blends.
var (
	// HLSColor keeps the top's hue and saturation with the bottom's lightness.
	HLSColor = HLSBlend{FromTop: ChannelHue | ChannelSaturation}
	// HLSLuminosity keeps the top's lightness with the bottom's hue and saturation.
	HLSLuminosity = HLSBlend{FromTop: ChannelLightness}
	// HLSHue takes only the top's hue.
	HLSHue = HLSBlend{FromTop: ChannelHue}
	// HLSSaturation takes only the top's saturation.
	HLSSaturation = HLSBlend{FromTop: ChannelSaturation}
)

// Mix combines two unpremultiplied RGB colours in [0, 1].
func (m HLSBlend) Mix(tr, tg, tb, br, bg, bb float64) (r, g, b float64) {
	th, tl, ts := RGBToHLS(tr, tg, tb)
	bh, bl, bs := RGBToHLS(br, bg, bb)
	h, l, s := bh, bl, bs
	if m.FromTop&ChannelHue != 0 {
		h = th
	}
	if m.FromTop&ChannelLightness != 0 {
		l = tl
	}
	if m.FromTop&ChannelSaturation != 0 {
		s = ts
	}
	return HLSToRGB(h, l, s)
}

// Sampler maps a top-image pixel to the bottom-image pixel beneath it.
type Sampler func(x, y int) (bx, by int)

// Apply blends top (inside topRect) with bottom and writes into top.
//
// A pixel is rewritten only when both operands have alpha above
// alphaThreshold; everything else is left as it was. The output keeps the
// top pixel's alpha. bottomAt maps top coordinates to bottom coordinates;
// nil means the identity mapping.
func (m HLSBlend) Apply(top *pixel.BGRA, topRect image.Rectangle, bottom *pixel.BGRA, bottomAt Sampler, alphaThreshold uint8) {
	topRect = topRect.Intersect(top.Rect)
	if topRect.Empty() || bottom.Rect.Empty() {
		return
	}
	if bottomAt == nil {
		bottomAt = func(x, y int) (int, int) { return x, y }
	}

	for y := topRect.Min.Y; y < topRect.Max.Y; y++ {
		ti := top.PixOffset(topRect.Min.X, y)
		for x := topRect.Min.X; x < topRect.Max.X; x, ti = x+1, ti+4 {
			ta := top.Pix[ti+3]
			if ta <= alphaThreshold {
				continue
			}
			bx, by := bottomAt(x, y)
			if !(image.Point{bx, by}.In(bottom.Rect)) {
				continue
			}
			bi := bottom.PixOffset(bx, by)
			ba := bottom.Pix[bi+3]
			if ba <= alphaThreshold {
				continue
			}

			// Display pixels are stored B, G, R, A.
			r, g, b := m.Mix(
				unpremulF(top.Pix[ti+2], ta), unpremulF(top.Pix[ti+1], ta), unpremulF(top.Pix[ti], ta),
				unpremulF(bottom.Pix[bi+2], ba), unpremulF(bottom.Pix[bi+1], ba), unpremulF(bottom.Pix[bi], ba),
			)
			af := float64(ta) / 255
			top.Pix[ti+0] = floatToByte(b * af)
			top.Pix[ti+1] = floatToByte(g * af)
			top.Pix[ti+2] = floatToByte(r * af)
		}
	}
}

func unpremulF(c, a byte) float64 {
	if a == 0 {
		return 0
	}
	f := float64(c) / float64(a)
	if f > 1 {
		return 1
	}
	return f
}

// RGBToHLS converts RGB in [0, 1] to hue, lightness and saturation in [0, 1].
func RGBToHLS(r, g, b float64) (h, l, s float64) {
	maxc := max(r, g, b)
	minc := min(r, g, b)
	sum := maxc + minc
	rng := maxc - minc
	l = sum / 2
	if rng == 0 {
		return 0, l, 0
	}
	if l <= 0.5 {
		s = rng / sum
	} else {
		s = rng / (2 - sum)
	}
	rc := (maxc - r) / rng
	gc := (maxc - g) / rng
	bc := (maxc - b) / rng
	switch maxc {
	case r:
		h = bc - gc
	case g:
		h = 2 + rc - bc
	default:
		h = 4 + gc - rc
	}
	h /= 6
	h -= float64(int(h))
	if h < 0 {
		h++
	}
	return h, l, s
}

// HLSToRGB converts hue, lightness and saturation in [0, 1] back to RGB.
func HLSToRGB(h, l, s float64) (r, g, b float64) {
	if s == 0 {
		return l, l, l
	}
	var m2 float64
	if l <= 0.5 {
		m2 = l * (1 + s)
	} else {
		m2 = l + s - l*s
	}
	m1 := 2*l - m2
	return hueToChannel(m1, m2, h+1.0/3), hueToChannel(m1, m2, h), hueToChannel(m1, m2, h-1.0/3)
}

func hueToChannel(m1, m2, hue float64) float64 {
	hue -= float64(int(hue))
	if hue < 0 {
		hue++
	}
	switch {
	case hue < 1.0/6:
		return m1 + (m2-m1)*hue*6
	case hue < 0.5:
		return m2
	case hue < 2.0/3:
		return m1 + (m2-m1)*(2.0/3-hue)*6
	default:
		return m1
	}
}
