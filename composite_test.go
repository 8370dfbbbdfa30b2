package tilebrush

import (
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/tilebrush/pixel"
)

func TestCompositeModeCompleteness(t *testing.T) {
	for _, m := range CompositeModes() {
		_, direct := m.Direct()
		custom := m.IsCustom()
		if direct == custom {
			t.Errorf("%v: direct=%v custom=%v, want exactly one", m, direct, custom)
		}
		if custom {
			if m.CustomCompositeOp() == nil {
				t.Errorf("%v: CustomCompositeOp() = nil", m)
			}
		}
	}
	if got := len(CompositeModes()); got != 20 {
		t.Errorf("len(CompositeModes()) = %d, want 20", got)
	}
}

func TestCustomCompositeOpPanicsForDirectModes(t *testing.T) {
	for _, m := range CompositeModes() {
		if m.IsCustom() {
			continue
		}
		t.Run(m.String(), func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("CustomCompositeOp() on %v did not panic", m)
				}
			}()
			m.CustomCompositeOp()
		})
	}
}

func TestParseCompositeMode(t *testing.T) {
	for _, m := range CompositeModes() {
		got, err := ParseCompositeMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseCompositeMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseCompositeMode("vivid-light"); err == nil {
		t.Error("ParseCompositeMode(vivid-light) error = nil")
	}
	if s := CompositeMode(200).String(); s != "CompositeMode(200)" {
		t.Errorf("String() = %q", s)
	}
}

func TestDirectOpNames(t *testing.T) {
	op, ok := CompositeNormal.Direct()
	if !ok || op.String() != "source-over" {
		t.Errorf("CompositeNormal.Direct() = %v, %v", op, ok)
	}
	if _, ok := CompositeHue.Direct(); ok {
		t.Error("CompositeHue.Direct() ok = true")
	}
}

func solid(r image.Rectangle, c color.RGBA) *pixel.BGRA {
	img := pixel.NewBGRA(r)
	img.Fill(r, c)
	return img
}

func TestCustomOpAlphaGate(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	gray := color.RGBA{R: 128, G: 128, B: 128, A: 255}
	faint := color.RGBA{R: 20, G: 20, B: 20, A: 40}

	tests := []struct {
		name   string
		top    color.RGBA
		bottom color.RGBA
		alpha  uint8
		change bool
	}{
		{"both opaque", red, gray, 50, true},
		{"faint bottom", red, faint, 50, false},
		{"faint top", faint, gray, 50, false},
		{"faint bottom with zero gate", red, faint, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := image.Rect(0, 0, 4, 4)
			top := solid(r, tt.top)
			bottom := solid(r, tt.bottom)
			CompositeLuminosity.CustomCompositeOpThreshold(tt.alpha)(top, bottom, r, r, Identity())
			changed := top.RGBAAt(1, 1) != tt.top
			if changed != tt.change {
				t.Errorf("changed = %v, want %v (got %v)", changed, tt.change, top.RGBAAt(1, 1))
			}
			if top.RGBAAt(1, 1).A != tt.top.A {
				t.Error("alpha of top changed")
			}
			if bottom.RGBAAt(1, 1) != tt.bottom {
				t.Error("bottom image was modified")
			}
		})
	}
}

func TestCustomOpHueFromTop(t *testing.T) {
	r := image.Rect(0, 0, 1, 1)
	top := solid(r, color.RGBA{B: 255, A: 255})        // pure blue
	bottom := solid(r, color.RGBA{R: 200, G: 40, A: 255}) // saturated red-orange
	CompositeColor.CustomCompositeOp()(top, bottom, r, r, Identity())
	got := top.RGBAAt(0, 0)
	if got.B <= got.R || got.B <= got.G {
		t.Errorf("color blend lost top hue: %v", got)
	}
}

func TestCustomOpTranslatedBottom(t *testing.T) {
	top := solid(image.Rect(0, 0, 2, 1), color.RGBA{R: 255, A: 255})
	bottom := pixel.NewBGRA(image.Rect(0, 0, 4, 1))
	bottom.SetRGBA(3, 0, color.RGBA{R: 50, G: 50, B: 50, A: 255})

	// Top pixel (1,0) lands on bottom (3,0); top (0,0) on a transparent pixel.
	CompositeLuminosity.CustomCompositeOp()(top, bottom, top.Rect, bottom.Rect, Translate(2, 0))
	if top.RGBAAt(0, 0) != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("pixel over transparent bottom changed: %v", top.RGBAAt(0, 0))
	}
	if top.RGBAAt(1, 0) == (color.RGBA{R: 255, A: 255}) {
		t.Error("pixel over opaque bottom unchanged")
	}
}
