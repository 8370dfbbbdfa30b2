package tilebrush

import (
	"fmt"
	"image"
	"math"

	"github.com/gogpu/tilebrush/internal/blend"
	"github.com/gogpu/tilebrush/pixel"
)

// BlendOp is a blend operation the canvas performs directly.
type BlendOp = blend.Op

// CompositeMode selects how an item is combined with what lies beneath it.
type CompositeMode uint8

// Direct modes map onto a BlendOp; the HLS modes need the rendered
// background and a custom per-pixel function.
const (
	CompositeNormal CompositeMode = iota
	CompositeMultiply
	CompositeScreen
	CompositeOverlay
	CompositeDarken
	CompositeLighten
	CompositeColorDodge
	CompositeColorBurn
	CompositeHardLight
	CompositeSoftLight
	CompositeDifference
	CompositePlus
	CompositeDestinationIn
	CompositeDestinationOut
	CompositeSourceAtop
	CompositeDestinationAtop
	CompositeColor
	CompositeLuminosity
	CompositeHue
	CompositeSaturation

	compositeModeCount
)

var compositeNames = [compositeModeCount]string{
	CompositeNormal:          "normal",
	CompositeMultiply:        "multiply",
	CompositeScreen:          "screen",
	CompositeOverlay:         "overlay",
	CompositeDarken:          "darken",
	CompositeLighten:         "lighten",
	CompositeColorDodge:      "color-dodge",
	CompositeColorBurn:       "color-burn",
	CompositeHardLight:       "hard-light",
	CompositeSoftLight:       "soft-light",
	CompositeDifference:      "difference",
	CompositePlus:            "plus",
	CompositeDestinationIn:   "destination-in",
	CompositeDestinationOut:  "destination-out",
	CompositeSourceAtop:      "source-atop",
	CompositeDestinationAtop: "destination-atop",
	CompositeColor:           "color",
	CompositeLuminosity:      "luminosity",
	CompositeHue:             "hue",
	CompositeSaturation:      "saturation",
}

var directOps = map[CompositeMode]BlendOp{
	CompositeNormal:          blend.OpSourceOver,
	CompositeMultiply:        blend.OpMultiply,
	CompositeScreen:          blend.OpScreen,
	CompositeOverlay:         blend.OpOverlay,
	CompositeDarken:          blend.OpDarken,
	CompositeLighten:         blend.OpLighten,
	CompositeColorDodge:      blend.OpColorDodge,
	CompositeColorBurn:       blend.OpColorBurn,
	CompositeHardLight:       blend.OpHardLight,
	CompositeSoftLight:       blend.OpSoftLight,
	CompositeDifference:      blend.OpDifference,
	CompositePlus:            blend.OpPlus,
	CompositeDestinationIn:   blend.OpDestinationIn,
	CompositeDestinationOut:  blend.OpDestinationOut,
	CompositeSourceAtop:      blend.OpSourceAtop,
	CompositeDestinationAtop: blend.OpDestinationAtop,
}

var customBlends = map[CompositeMode]blend.HLSBlend{
	CompositeColor:      blend.HLSColor,
	CompositeLuminosity: blend.HLSLuminosity,
	CompositeHue:        blend.HLSHue,
	CompositeSaturation: blend.HLSSaturation,
}

// CompositeModes returns every mode in declaration order.
func CompositeModes() []CompositeMode {
	out := make([]CompositeMode, compositeModeCount)
	for i := range out {
		out[i] = CompositeMode(i)
	}
	return out
}

// String returns the CSS-style mode name.
func (m CompositeMode) String() string {
	if m < compositeModeCount {
		return compositeNames[m]
	}
	return fmt.Sprintf("CompositeMode(%d)", uint8(m))
}

// ParseCompositeMode looks a mode up by its String name.
func ParseCompositeMode(name string) (CompositeMode, error) {
	for i, n := range compositeNames {
		if n == name {
			return CompositeMode(i), nil
		}
	}
	return 0, fmt.Errorf("tilebrush: unknown composite mode %q", name)
}

// Direct returns the blend op for direct modes; ok is false for the
// custom modes.
func (m CompositeMode) Direct() (op BlendOp, ok bool) {
	op, ok = directOps[m]
	return op, ok
}

// IsCustom reports whether m needs a custom blend function.
func (m CompositeMode) IsCustom() bool {
	_, ok := customBlends[m]
	return ok
}

// CustomBlendFunc blends the bottom image into the top image in place.
// topRect selects the pixels of top; bottomRect is the matching region of
// bottom, and t maps top coordinates relative to topRect.Min onto bottom
// coordinates relative to bottomRect.Min.
type CustomBlendFunc func(top, bottom *pixel.BGRA, topRect, bottomRect image.Rectangle, t Transform)

// CustomCompositeOp returns the blend function of a custom mode with the
// default alpha threshold. It panics for direct modes.
func (m CompositeMode) CustomCompositeOp() CustomBlendFunc {
	return m.CustomCompositeOpThreshold(DefaultBlendAlphaThreshold)
}

// CustomCompositeOpThreshold is CustomCompositeOp with an explicit alpha
// threshold. It panics for direct modes.
func (m CompositeMode) CustomCompositeOpThreshold(alpha uint8) CustomBlendFunc {
	hls, ok := customBlends[m]
	if !ok {
		panic(fmt.Sprintf("tilebrush: composite mode %v has no custom composite op", m))
	}
	return func(top, bottom *pixel.BGRA, topRect, bottomRect image.Rectangle, t Transform) {
		if top.IsTransparent(topRect) || bottom.IsTransparent(bottomRect) {
			return
		}
		hls.Apply(top, topRect, bottom, sampler(topRect.Min, bottomRect, t), alpha)
	}
}

// sampler maps top pixels to bottom pixels through t, sampling at pixel
// centres. Samples falling outside bottomRect map to a point outside the
// bottom image so Apply skips them.
func sampler(topMin image.Point, bottomRect image.Rectangle, t Transform) blend.Sampler {
	if p, ok := t.IntegerTranslation(); ok {
		off := bottomRect.Min.Add(p).Sub(topMin)
		return func(x, y int) (int, int) {
			bp := image.Pt(x+off.X, y+off.Y)
			if !bp.In(bottomRect) {
				return math.MinInt, math.MinInt
			}
			return bp.X, bp.Y
		}
	}
	return func(x, y int) (int, int) {
		fx, fy := t.Apply(float64(x-topMin.X)+0.5, float64(y-topMin.Y)+0.5)
		bp := image.Pt(int(math.Floor(fx))+bottomRect.Min.X, int(math.Floor(fy))+bottomRect.Min.Y)
		if !bp.In(bottomRect) {
			return math.MinInt, math.MinInt
		}
		return bp.X, bp.Y
	}
}
