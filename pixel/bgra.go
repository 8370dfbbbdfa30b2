package pixel

import (
	"image"
	"image/color"
	"image/draw"
)

// BGRA is an in-memory image whose At method returns color.RGBA values.
//
// Pixels are premultiplied and stored as B, G, R, A bytes. The layout mirrors
// image.RGBA (Pix, Stride, Rect) so sub-images share memory with their parent.
type BGRA struct {
	// Pix holds the image's pixels in B, G, R, A order. The pixel at
	// (x, y) starts at Pix[(y-Rect.Min.Y)*Stride + (x-Rect.Min.X)*4].
	Pix []uint8
	// Stride is the Pix stride (in bytes) between vertically adjacent pixels.
	Stride int
	// Rect is the image's bounds.
	Rect image.Rectangle
}

// NewBGRA returns a new, fully transparent BGRA image with the given bounds.
func NewBGRA(r image.Rectangle) *BGRA {
	w, h := r.Dx(), r.Dy()
	if w < 0 || h < 0 {
		w, h = 0, 0
	}
	return &BGRA{
		Pix:    make([]uint8, 4*w*h),
		Stride: 4 * w,
		Rect:   r,
	}
}

// FromImage converts any image to a premultiplied BGRA copy with the same bounds.
func FromImage(src image.Image) *BGRA {
	if b, ok := src.(*BGRA); ok {
		return b.Clone()
	}
	dst := NewBGRA(src.Bounds())
	if rgba, ok := src.(*image.RGBA); ok {
		for y := dst.Rect.Min.Y; y < dst.Rect.Max.Y; y++ {
			si := rgba.PixOffset(dst.Rect.Min.X, y)
			di := dst.PixOffset(dst.Rect.Min.X, y)
			for x := dst.Rect.Min.X; x < dst.Rect.Max.X; x++ {
				dst.Pix[di+0] = rgba.Pix[si+2]
				dst.Pix[di+1] = rgba.Pix[si+1]
				dst.Pix[di+2] = rgba.Pix[si+0]
				dst.Pix[di+3] = rgba.Pix[si+3]
				si += 4
				di += 4
			}
		}
		return dst
	}
	draw.Draw(dst, dst.Rect, src, src.Bounds().Min, draw.Src)
	return dst
}

// ColorModel returns color.RGBAModel; BGRA stores premultiplied colors.
func (p *BGRA) ColorModel() color.Model { return color.RGBAModel }

// Bounds returns the image bounds.
func (p *BGRA) Bounds() image.Rectangle { return p.Rect }

// At returns the color of the pixel at (x, y).
func (p *BGRA) At(x, y int) color.Color { return p.RGBAAt(x, y) }

// RGBAAt returns the premultiplied color at (x, y), or transparent black
// outside the bounds.
func (p *BGRA) RGBAAt(x, y int) color.RGBA {
	if !(image.Point{x, y}.In(p.Rect)) {
		return color.RGBA{}
	}
	i := p.PixOffset(x, y)
	s := p.Pix[i : i+4 : i+4]
	return color.RGBA{R: s[2], G: s[1], B: s[0], A: s[3]}
}

// PixOffset returns the index of the first element of Pix that corresponds
// to the pixel at (x, y).
func (p *BGRA) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*4
}

// Set sets the pixel at (x, y). Points outside the bounds are ignored.
func (p *BGRA) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(p.Rect)) {
		return
	}
	c1 := color.RGBAModel.Convert(c).(color.RGBA)
	p.setRGBA(p.PixOffset(x, y), c1)
}

// SetRGBA sets the pixel at (x, y) to a premultiplied color.
func (p *BGRA) SetRGBA(x, y int, c color.RGBA) {
	if !(image.Point{x, y}.In(p.Rect)) {
		return
	}
	p.setRGBA(p.PixOffset(x, y), c)
}

func (p *BGRA) setRGBA(i int, c color.RGBA) {
	s := p.Pix[i : i+4 : i+4]
	s[0] = c.B
	s[1] = c.G
	s[2] = c.R
	s[3] = c.A
}

// SubImage returns an image representing the portion of p visible through r.
// The returned value shares pixels with the original image.
func (p *BGRA) SubImage(r image.Rectangle) image.Image {
	return p.Sub(r)
}

// Sub is SubImage with a concrete return type.
func (p *BGRA) Sub(r image.Rectangle) *BGRA {
	r = r.Intersect(p.Rect)
	if r.Empty() {
		return &BGRA{}
	}
	i := p.PixOffset(r.Min.X, r.Min.Y)
	return &BGRA{
		Pix:    p.Pix[i:],
		Stride: p.Stride,
		Rect:   r,
	}
}

// Clone returns a tightly packed deep copy of p.
func (p *BGRA) Clone() *BGRA {
	c := NewBGRA(p.Rect)
	rowBytes := 4 * p.Rect.Dx()
	for y := p.Rect.Min.Y; y < p.Rect.Max.Y; y++ {
		si := p.PixOffset(p.Rect.Min.X, y)
		di := c.PixOffset(p.Rect.Min.X, y)
		copy(c.Pix[di:di+rowBytes], p.Pix[si:si+rowBytes])
	}
	return c
}

// Opaque scans the entire image and reports whether it is fully opaque.
func (p *BGRA) Opaque() bool {
	if p.Rect.Empty() {
		return true
	}
	for y := p.Rect.Min.Y; y < p.Rect.Max.Y; y++ {
		i := p.PixOffset(p.Rect.Min.X, y)
		for x := p.Rect.Min.X; x < p.Rect.Max.X; x++ {
			if p.Pix[i+3] != 0xff {
				return false
			}
			i += 4
		}
	}
	return true
}

// IsTransparent reports whether every pixel of p inside r has zero alpha.
func (p *BGRA) IsTransparent(r image.Rectangle) bool {
	r = r.Intersect(p.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := p.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x++ {
			if p.Pix[i+3] != 0 {
				return false
			}
			i += 4
		}
	}
	return true
}

// Fill sets every pixel in r to c.
func (p *BGRA) Fill(r image.Rectangle, c color.RGBA) {
	r = r.Intersect(p.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := p.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x++ {
			p.setRGBA(i, c)
			i += 4
		}
	}
}

// ToRGBA returns an image.RGBA copy of p, suitable for the standard encoders.
func (p *BGRA) ToRGBA() *image.RGBA {
	dst := image.NewRGBA(p.Rect)
	for y := p.Rect.Min.Y; y < p.Rect.Max.Y; y++ {
		si := p.PixOffset(p.Rect.Min.X, y)
		di := dst.PixOffset(p.Rect.Min.X, y)
		for x := p.Rect.Min.X; x < p.Rect.Max.X; x++ {
			dst.Pix[di+0] = p.Pix[si+2]
			dst.Pix[di+1] = p.Pix[si+1]
			dst.Pix[di+2] = p.Pix[si+0]
			dst.Pix[di+3] = p.Pix[si+3]
			si += 4
			di += 4
		}
	}
	return dst
}
