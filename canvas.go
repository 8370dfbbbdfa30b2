package tilebrush

import (
	"fmt"
	"image"
	"slices"
	"strings"

	"github.com/gogpu/gputypes"
	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/tilebrush/internal/blend"
	"github.com/gogpu/tilebrush/pixel"
)

// Canvas is the paint target handed to scene items.
//
// Painting always happens in premultiplied BGRA. The texture format only
// decides how Texels packs the result for upload.
type Canvas struct {
	img    *pixel.BGRA
	format gputypes.TextureFormat
}

// TexelRowAlignment is the row pitch alignment of Texels, matching the
// buffer-to-texture copy rule of WebGPU.
const TexelRowAlignment = 256

// NewCanvas creates a transparent BGRA8Unorm canvas covering r.
func NewCanvas(r image.Rectangle) *Canvas {
	return &Canvas{img: pixel.NewBGRA(r), format: gputypes.TextureFormatBGRA8Unorm}
}

// NewCanvasFormat creates a transparent canvas covering r that uploads as
// format. Only the four 8-bit RGBA and BGRA formats are accepted; the sRGB
// variants carry the same bytes and let the GPU decode on sampling.
func NewCanvasFormat(r image.Rectangle, format gputypes.TextureFormat) (*Canvas, error) {
	if !CanvasFormatSupported(format) {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
	return &Canvas{img: pixel.NewBGRA(r), format: format}, nil
}

// CanvasFor wraps an existing image; painting writes into img.
func CanvasFor(img *pixel.BGRA) *Canvas {
	return &Canvas{img: img, format: gputypes.TextureFormatBGRA8Unorm}
}

// CanvasFormatSupported reports whether a canvas can upload as format.
func CanvasFormatSupported(format gputypes.TextureFormat) bool {
	return slices.Contains(canvasFormats, format)
}

// ParseCanvasFormat looks up a supported canvas format by its name, such as
// "RGBA8UnormSrgb"; case is ignored.
func ParseCanvasFormat(name string) (gputypes.TextureFormat, error) {
	for _, f := range canvasFormats {
		if strings.EqualFold(f.String(), name) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

var canvasFormats = []gputypes.TextureFormat{
	gputypes.TextureFormatBGRA8Unorm,
	gputypes.TextureFormatBGRA8UnormSrgb,
	gputypes.TextureFormatRGBA8Unorm,
	gputypes.TextureFormatRGBA8UnormSrgb,
}

// Image returns the canvas pixels.
func (c *Canvas) Image() *pixel.BGRA { return c.img }

// Bounds returns the canvas rectangle.
func (c *Canvas) Bounds() image.Rectangle { return c.img.Rect }

// Format reports the texture format Texels packs for.
func (c *Canvas) Format() gputypes.TextureFormat { return c.format }

// Texels packs the canvas for a buffer-to-texture copy in the canvas
// format. Rows are padded to TexelRowAlignment; layout and extent describe
// the copy.
func (c *Canvas) Texels() (data []byte, layout gputypes.TextureDataLayout, extent gputypes.Extent3D) {
	w, h := c.img.Rect.Dx(), c.img.Rect.Dy()
	rowBytes := 4 * w
	pitch := (rowBytes + TexelRowAlignment - 1) / TexelRowAlignment * TexelRowAlignment
	data = make([]byte, pitch*h)
	swap := !bgraFormat(c.format)
	for y := range h {
		si := c.img.PixOffset(c.img.Rect.Min.X, c.img.Rect.Min.Y+y)
		row := data[y*pitch : y*pitch+rowBytes]
		copy(row, c.img.Pix[si:si+rowBytes])
		if swap {
			for i := 0; i < rowBytes; i += 4 {
				row[i], row[i+2] = row[i+2], row[i]
			}
		}
	}
	layout = gputypes.TextureDataLayout{BytesPerRow: uint32(pitch), RowsPerImage: uint32(h)}
	extent = gputypes.NewExtent2D(uint32(w), uint32(h))
	return data, layout, extent
}

func bgraFormat(f gputypes.TextureFormat) bool {
	return f == gputypes.TextureFormatBGRA8Unorm || f == gputypes.TextureFormatBGRA8UnormSrgb
}

// Clear makes every pixel transparent.
func (c *Canvas) Clear() { clear(c.img.Pix) }

// DrawImage blends src with its top-left corner at at, limited to clip.
func (c *Canvas) DrawImage(src *pixel.BGRA, at image.Point, op BlendOp, opacity float64, clip image.Rectangle) {
	r := src.Rect.Sub(src.Rect.Min).Add(at).Intersect(clip)
	if r.Empty() {
		return
	}
	blend.Composite(c.img, r, src, src.Rect.Min.Add(r.Min.Sub(at)), op, opacity)
}

// DrawTransformed draws src over the canvas through t, limited to clip.
func (c *Canvas) DrawTransformed(src image.Image, t Transform, clip image.Rectangle) {
	dst := c.img.Sub(clip)
	if dst.Rect.Empty() {
		return
	}
	drawTransformed(dst, t, src, src.Bounds(), xdraw.Over, nil)
}
