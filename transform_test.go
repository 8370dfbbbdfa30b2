package tilebrush

import (
	"errors"
	"image"
	"math"
	"testing"
)

func TestTransformApply(t *testing.T) {
	tests := []struct {
		name   string
		tf     Transform
		x, y   float64
		wx, wy float64
	}{
		{"identity", Identity(), 3, 4, 3, 4},
		{"translate", Translate(10, -2), 3, 4, 13, 2},
		{"scale", Scale(2, 3), 3, 4, 6, 12},
		{"rotate 90", Rotate(math.Pi / 2), 1, 0, 0, 1},
		{"scale then translate", Translate(1, 1).Mul(Scale(2, 2)), 3, 4, 7, 9},
		{"translate then scale", Scale(2, 2).Mul(Translate(1, 1)), 3, 4, 8, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := tt.tf.Apply(tt.x, tt.y)
			if !near(x, tt.wx) || !near(y, tt.wy) {
				t.Errorf("Apply(%v,%v) = %v,%v, want %v,%v", tt.x, tt.y, x, y, tt.wx, tt.wy)
			}
		})
	}
}

func TestTransformInvert(t *testing.T) {
	for _, tf := range []Transform{
		Identity(),
		Translate(5, 7),
		Scale(2, 0.5),
		Rotate(0.3).Mul(Scale(3, 1)),
		Translate(-4, 9).Mul(Rotate(-1.2)),
	} {
		inv, err := tf.Invert()
		if err != nil {
			t.Fatalf("Invert(%v) error = %v", tf, err)
		}
		x, y := inv.Apply(tf.Apply(12.5, -3))
		if !near(x, 12.5) || !near(y, -3) {
			t.Errorf("Invert(%v) round trip = %v,%v", tf, x, y)
		}
	}

	if _, err := Scale(0, 1).Invert(); !errors.Is(err, ErrSingularTransform) {
		t.Errorf("Invert(singular) error = %v", err)
	}
}

func TestTransformIntegerTranslation(t *testing.T) {
	tests := []struct {
		tf   Transform
		want image.Point
		ok   bool
	}{
		{Identity(), image.Point{}, true},
		{Translate(3, -4), image.Pt(3, -4), true},
		{Translate(0.5, 0), image.Point{}, false},
		{Scale(2, 2), image.Point{}, false},
		{Rotate(math.Pi), image.Point{}, false},
	}
	for _, tt := range tests {
		p, ok := tt.tf.IntegerTranslation()
		if p != tt.want || ok != tt.ok {
			t.Errorf("IntegerTranslation(%v) = %v,%v, want %v,%v", tt.tf, p, ok, tt.want, tt.ok)
		}
	}
}

func TestTransformBounds(t *testing.T) {
	r := image.Rect(0, 0, 10, 20)
	tests := []struct {
		name string
		tf   Transform
		want image.Rectangle
	}{
		{"translate", Translate(5, 5), image.Rect(5, 5, 15, 25)},
		{"scale", Scale(0.5, 0.5), image.Rect(0, 0, 5, 10)},
		{"fractional", Translate(0.5, 0.5), image.Rect(0, 0, 11, 21)},
		{"rotate 90", Rotate(math.Pi / 2), image.Rect(-20, 0, 0, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.tf.Bounds(r)
			// Rotation leaves tiny float error on the zero edges.
			if tt.name == "rotate 90" {
				if !tt.want.In(got) || got.Dx() > 21 || got.Dy() > 11 {
					t.Errorf("Bounds() = %v, want about %v", got, tt.want)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Bounds() = %v, want %v", got, tt.want)
			}
		})
	}
	if got := Scale(2, 2).Bounds(image.Rectangle{}); !got.Empty() {
		t.Errorf("Bounds(empty) = %v", got)
	}
}
