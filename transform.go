package tilebrush

import (
	"errors"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"gonum.org/v1/gonum/mat"
)

// Transform is a 2D affine transform in row-major 2×3 form:
//
//	x' = M[0]*x + M[1]*y + M[2]
//	y' = M[3]*x + M[4]*y + M[5]
type Transform f64.Aff3

// ErrSingularTransform is returned when inverting a degenerate transform.
var ErrSingularTransform = errors.New("tilebrush: singular transform")

// Identity returns the identity transform.
func Identity() Transform { return Transform{1, 0, 0, 0, 1, 0} }

// Translate returns a translation by (dx, dy).
func Translate(dx, dy float64) Transform { return Transform{1, 0, dx, 0, 1, dy} }

// Scale returns a scale about the origin.
func Scale(sx, sy float64) Transform { return Transform{sx, 0, 0, 0, sy, 0} }

// Rotate returns a rotation by angle radians about the origin.
func Rotate(angle float64) Transform {
	s, c := math.Sincos(angle)
	return Transform{c, -s, 0, s, c, 0}
}

// Mul returns the transform that applies u, then t.
func (t Transform) Mul(u Transform) Transform {
	return Transform{
		t[0]*u[0] + t[1]*u[3],
		t[0]*u[1] + t[1]*u[4],
		t[0]*u[2] + t[1]*u[5] + t[2],
		t[3]*u[0] + t[4]*u[3],
		t[3]*u[1] + t[4]*u[4],
		t[3]*u[2] + t[4]*u[5] + t[5],
	}
}

// Apply maps (x, y).
func (t Transform) Apply(x, y float64) (float64, float64) {
	return t[0]*x + t[1]*y + t[2], t[3]*x + t[4]*y + t[5]
}

// IsIdentity reports whether t is exactly the identity.
func (t Transform) IsIdentity() bool { return t == Identity() }

// IntegerTranslation reports whether t is a pure whole-pixel translation,
// and if so by how much.
func (t Transform) IntegerTranslation() (image.Point, bool) {
	if t[0] != 1 || t[1] != 0 || t[3] != 0 || t[4] != 1 {
		return image.Point{}, false
	}
	if t[2] != math.Trunc(t[2]) || t[5] != math.Trunc(t[5]) {
		return image.Point{}, false
	}
	return image.Pt(int(t[2]), int(t[5])), true
}

// Invert returns the inverse transform.
func (t Transform) Invert() (Transform, error) {
	m := mat.NewDense(3, 3, []float64{
		t[0], t[1], t[2],
		t[3], t[4], t[5],
		0, 0, 1,
	})
	if math.Abs(mat.Det(m)) < 1e-12 {
		return Transform{}, ErrSingularTransform
	}
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return Transform{}, errors.Join(ErrSingularTransform, err)
	}
	return Transform{
		inv.At(0, 0), inv.At(0, 1), inv.At(0, 2),
		inv.At(1, 0), inv.At(1, 1), inv.At(1, 2),
	}, nil
}

// Bounds returns the smallest integer rectangle containing r mapped by t.
func (t Transform) Bounds(r image.Rectangle) image.Rectangle {
	if r.Empty() {
		return image.Rectangle{}
	}
	if p, ok := t.IntegerTranslation(); ok {
		return r.Add(p)
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range [4]image.Point{r.Min, {r.Max.X, r.Min.Y}, r.Max, {r.Min.X, r.Max.Y}} {
		x, y := t.Apply(float64(c.X), float64(c.Y))
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX)), int(math.Ceil(maxY)),
	)
}

// Aff3 returns t as an f64.Aff3.
func (t Transform) Aff3() f64.Aff3 { return f64.Aff3(t) }

// drawTransformed draws the sr part of src onto dst through t, using op and
// an optional source mask sharing src's coordinate space. Whole-pixel
// translations take the exact copy path.
func drawTransformed(dst xdraw.Image, t Transform, src image.Image, sr image.Rectangle, op xdraw.Op, mask image.Image) {
	if p, ok := t.IntegerTranslation(); ok {
		xdraw.DrawMask(dst, sr.Add(p), src, sr.Min, mask, sr.Min, op)
		return
	}
	var opts *xdraw.Options
	if mask != nil {
		opts = &xdraw.Options{SrcMask: mask}
	}
	xdraw.BiLinear.Transform(dst, t.Aff3(), src, sr, op, opts)
}
