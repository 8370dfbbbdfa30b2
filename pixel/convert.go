package pixel

import "fmt"

// One is the native representation of full intensity (1.0).
const One = 1 << 15

// to16LUT maps an 8-bit channel to round(c / 255 * 32768).
var to16LUT [256]uint16

// to8LUT maps a native channel in [0, One] to round(n / 32768 * 255).
var to8LUT [One + 1]uint8

func init() {
	for c := range 256 {
		// c*32768/255 never has a fractional part of exactly one half,
		// so adding 127 before dividing is exact rounding.
		to16LUT[c] = uint16((c*One + 127) / 255) //nolint:gosec // at most One
	}
	for n := range One + 1 {
		to8LUT[n] = uint8((n*255 + One/2) >> 15) //nolint:gosec // at most 255
	}
}

// To16 converts an 8-bit channel value to the native 16-bit domain.
func To16(c uint8) uint16 {
	return to16LUT[c]
}

// To8 converts a native channel value to 8 bits. Values above One saturate.
func To8(n uint16) uint8 {
	if n > One {
		return 0xff
	}
	return to8LUT[n]
}

// NativeLen returns the number of uint16 samples a native buffer needs to
// hold w*h pixels.
func NativeLen(w, h int) int {
	return w * h * 4
}

// ToNative converts src into the native buffer dst, which must hold exactly
// NativeLen(src.Rect.Dx(), src.Rect.Dy()) samples laid out row-major without
// padding. Red and blue are swapped.
func ToNative(src *BGRA, dst []uint16) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	checkNative(dst, w, h)
	di := 0
	for y := src.Rect.Min.Y; y < src.Rect.Max.Y; y++ {
		si := src.PixOffset(src.Rect.Min.X, y)
		row := src.Pix[si : si+4*w : si+4*w]
		for i := 0; i < len(row); i += 4 {
			dst[di+0] = to16LUT[row[i+2]]
			dst[di+1] = to16LUT[row[i+1]]
			dst[di+2] = to16LUT[row[i+0]]
			dst[di+3] = to16LUT[row[i+3]]
			di += 4
		}
	}
}

// FromNative converts the native buffer src into dst. src must hold exactly
// NativeLen(dst.Rect.Dx(), dst.Rect.Dy()) samples. Red and blue are swapped.
func FromNative(src []uint16, dst *BGRA) {
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	checkNative(src, w, h)
	si := 0
	for y := dst.Rect.Min.Y; y < dst.Rect.Max.Y; y++ {
		di := dst.PixOffset(dst.Rect.Min.X, y)
		row := dst.Pix[di : di+4*w : di+4*w]
		for i := 0; i < len(row); i += 4 {
			row[i+0] = To8(src[si+2])
			row[i+1] = To8(src[si+1])
			row[i+2] = To8(src[si+0])
			row[i+3] = To8(src[si+3])
			si += 4
		}
	}
}

// NativeToBGRA is the single-pixel form of FromNative.
func NativeToBGRA(r, g, b, a uint16) (b8, g8, r8, a8 uint8) {
	return To8(b), To8(g), To8(r), To8(a)
}

// NativeIsTransparent reports whether every alpha sample in buf is zero.
func NativeIsTransparent(buf []uint16) bool {
	for i := 3; i < len(buf); i += 4 {
		if buf[i] != 0 {
			return false
		}
	}
	return true
}

func checkNative(buf []uint16, w, h int) {
	if want := NativeLen(w, h); len(buf) != want {
		panic(fmt.Sprintf("pixel: native buffer has %d samples, want %d for %dx%d", len(buf), want, w, h))
	}
}
