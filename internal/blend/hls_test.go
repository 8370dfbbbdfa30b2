package blend

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/gogpu/tilebrush/pixel"
)

func floatEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestRGBToHLS(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b float64
		h, l, s float64
	}{
		{"black", 0, 0, 0, 0, 0, 0},
		{"white", 1, 1, 1, 0, 1, 0},
		{"gray", 0.5, 0.5, 0.5, 0, 0.5, 0},
		{"red", 1, 0, 0, 0, 0.5, 1},
		{"green", 0, 1, 0, 1.0 / 3, 0.5, 1},
		{"blue", 0, 0, 1, 2.0 / 3, 0.5, 1},
		{"magenta", 1, 0, 1, 5.0 / 6, 0.5, 1},
		{"dark red", 0.5, 0, 0, 0, 0.25, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, l, s := RGBToHLS(tt.r, tt.g, tt.b)
			if !floatEqual(h, tt.h, 1e-9) || !floatEqual(l, tt.l, 1e-9) || !floatEqual(s, tt.s, 1e-9) {
				t.Errorf("RGBToHLS(%v,%v,%v) = (%v,%v,%v), want (%v,%v,%v)",
					tt.r, tt.g, tt.b, h, l, s, tt.h, tt.l, tt.s)
			}
		})
	}
}

func TestHLSRoundTrip(t *testing.T) {
	for r := 0.0; r <= 1; r += 0.125 {
		for g := 0.0; g <= 1; g += 0.125 {
			for b := 0.0; b <= 1; b += 0.125 {
				h, l, s := RGBToHLS(r, g, b)
				r2, g2, b2 := HLSToRGB(h, l, s)
				if !floatEqual(r, r2, 1e-9) || !floatEqual(g, g2, 1e-9) || !floatEqual(b, b2, 1e-9) {
					t.Fatalf("round trip (%v,%v,%v) -> (%v,%v,%v)", r, g, b, r2, g2, b2)
				}
			}
		}
	}
}

func TestHLSBlendMix(t *testing.T) {
	tests := []struct {
		name    string
		mode    HLSBlend
		top     [3]float64
		bottom  [3]float64
		want    [3]float64
	}{
		{"color takes bottom lightness", HLSColor, [3]float64{1, 0, 0}, [3]float64{0.25, 0.25, 0.25}, [3]float64{0.5, 0, 0}},
		{"luminosity takes top lightness", HLSLuminosity, [3]float64{0.25, 0.25, 0.25}, [3]float64{1, 0, 0}, [3]float64{0.5, 0, 0}},
		{"hue only", HLSHue, [3]float64{0, 0, 1}, [3]float64{1, 0, 0}, [3]float64{0, 0, 1}},
		{"saturation of gray removes colour", HLSSaturation, [3]float64{0.5, 0.5, 0.5}, [3]float64{1, 0, 0}, [3]float64{0.5, 0.5, 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b := tt.mode.Mix(tt.top[0], tt.top[1], tt.top[2], tt.bottom[0], tt.bottom[1], tt.bottom[2])
			got := [3]float64{r, g, b}
			for i := range got {
				if !floatEqual(got[i], tt.want[i], 1e-9) {
					t.Fatalf("Mix = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestHLSApplyAlphaGate(t *testing.T) {
	top := pixel.NewBGRA(image.Rect(0, 0, 3, 1))
	bottom := pixel.NewBGRA(image.Rect(0, 0, 3, 1))

	red := color.RGBA{R: 255, A: 255}
	top.SetRGBA(0, 0, red)
	top.SetRGBA(1, 0, red)
	top.SetRGBA(2, 0, color.RGBA{R: 40, A: 40}) // below threshold
	bottom.SetRGBA(0, 0, color.RGBA{R: 64, G: 64, B: 64, A: 255})
	bottom.SetRGBA(1, 0, color.RGBA{R: 30, G: 30, B: 30, A: 30}) // below threshold
	bottom.SetRGBA(2, 0, color.RGBA{R: 64, G: 64, B: 64, A: 255})

	HLSColor.Apply(top, top.Rect, bottom, nil, DefaultAlphaThreshold)

	if got := top.RGBAAt(0, 0); got.R != 128 || got.G != 0 || got.A != 255 {
		t.Errorf("blended pixel = %v, want dark red", got)
	}
	if got := top.RGBAAt(1, 0); got != red {
		t.Errorf("pixel over transparent bottom = %v, want unchanged %v", got, red)
	}
	if got := top.RGBAAt(2, 0); got != (color.RGBA{R: 40, A: 40}) {
		t.Errorf("faint top pixel = %v, want unchanged", got)
	}
}

func TestHLSApplySampler(t *testing.T) {
	top := pixel.NewBGRA(image.Rect(0, 0, 1, 1))
	top.SetRGBA(0, 0, color.RGBA{B: 255, A: 255})
	bottom := pixel.NewBGRA(image.Rect(10, 10, 11, 11))
	bottom.SetRGBA(10, 10, color.RGBA{R: 255, A: 255})

	HLSHue.Apply(top, top.Rect, bottom, func(x, y int) (int, int) { return x + 10, y + 10 }, DefaultAlphaThreshold)
	if got := top.RGBAAt(0, 0); got != (color.RGBA{B: 255, A: 255}) {
		t.Errorf("hue blend of saturated blue over red = %v, want blue", got)
	}
}
