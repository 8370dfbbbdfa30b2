package tilebrush

import (
	"image/color"
	"math"

	"github.com/gogpu/tilebrush/internal/engine"
)

// Setting identifies a numeric brush setting.
type Setting = engine.Setting

// Brush settings.
const (
	SettingOpaque              = engine.SettingOpaque
	SettingOpaqueMultiply      = engine.SettingOpaqueMultiply
	SettingRadiusLogarithmic   = engine.SettingRadiusLogarithmic
	SettingHardness            = engine.SettingHardness
	SettingDabsPerActualRadius = engine.SettingDabsPerActualRadius
	SettingColorH              = engine.SettingColorH
	SettingColorS              = engine.SettingColorS
	SettingColorV              = engine.SettingColorV
	SettingEraser              = engine.SettingEraser
	SettingLockAlpha           = engine.SettingLockAlpha
)

// Engines returns the names of the stroke engines compiled in.
func Engines() []string { return engine.Available() }

// DefaultEngine returns the engine a Config without WithEngine tries first.
func DefaultEngine() string { return engine.Default() }

// Brush is the settings view of a bridge's brush.
type Brush struct {
	b *NativeBridge
}

// Value returns the base value of s.
func (b Brush) Value(s Setting) float64 { return b.b.BrushValue(s) }

// SetValue sets the base value of s.
func (b Brush) SetValue(s Setting, v float64) { b.b.SetBrushValue(s, v) }

// Load replaces every setting from a brush definition (.myb JSON).
func (b Brush) Load(data []byte) error { return b.b.LoadBrush(data) }

// Radius returns the brush radius in pixels.
func (b Brush) Radius() float64 { return math.Exp(b.Value(SettingRadiusLogarithmic)) }

// SetRadius sets the brush radius in pixels.
func (b Brush) SetRadius(r float64) {
	if r > 0 {
		b.SetValue(SettingRadiusLogarithmic, math.Log(r))
	}
}

// SetEraser switches the brush between painting and erasing.
func (b Brush) SetEraser(on bool) {
	v := 0.0
	if on {
		v = 1
	}
	b.SetValue(SettingEraser, v)
}

// Color returns the brush colour.
func (b Brush) Color() color.NRGBA {
	r, g, bl := hsvToRGB(b.Value(SettingColorH), b.Value(SettingColorS), b.Value(SettingColorV))
	return color.NRGBA{R: unit8(r), G: unit8(g), B: unit8(bl), A: 0xff}
}

// SetColor sets the brush colour; alpha is ignored.
func (b Brush) SetColor(c color.Color) {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	h, s, v := rgbToHSV(float64(n.R)/255, float64(n.G)/255, float64(n.B)/255)
	b.SetValue(SettingColorH, h)
	b.SetValue(SettingColorS, s)
	b.SetValue(SettingColorV, v)
}

func unit8(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

// rgbToHSV converts RGB in [0, 1] to HSV in [0, 1].
func rgbToHSV(r, g, b float64) (h, s, v float64) {
	hi := math.Max(r, math.Max(g, b))
	lo := math.Min(r, math.Min(g, b))
	v = hi
	d := hi - lo
	if hi == 0 || d == 0 {
		return 0, 0, v
	}
	s = d / hi
	switch hi {
	case r:
		h = (g - b) / d
		if h < 0 {
			h += 6
		}
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	return h / 6, s, v
}

func hsvToRGB(h, s, v float64) (r, g, b float64) {
	h -= math.Floor(h)
	if s <= 0 {
		return v, v, v
	}
	h *= 6
	i := math.Floor(h)
	f := h - i
	p, q, t := v*(1-s), v*(1-s*f), v*(1-s*(1-f))
	switch int(i) % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}
