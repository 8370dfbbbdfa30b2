package tilebrush

import (
	"image"
	"log/slog"
	"slices"
	"time"

	"github.com/gogpu/tilebrush/internal/blend"
	"github.com/gogpu/tilebrush/pixel"
)

// Source supplies the pixels of a ComposableSurfaceItem. *Tile and
// *Surface are sources.
type Source interface {
	Image() (*pixel.BGRA, error)
	Size() image.Point
	Changed() time.Time
}

// Size returns the tile size.
func (t *Tile) Size() image.Point { return tileBounds.Size() }

// ComposableSurfaceItem paints a tile or surface into a scene with a
// composite mode.
//
// Direct modes blend the source as is. Custom modes first render
// everything beneath the item, then blend that background into a copy of
// the source. Both results are cached: the background until the set of
// items below changes, one of them changes, or the item moves; the
// composited image until the item, its source or the background changes.
type ComposableSurfaceItem struct {
	cfg   Config
	log   *slog.Logger
	scene *Scene
	src   Source

	mode    CompositeMode
	opacity float64
	pos     image.Point
	visible bool

	changed       time.Time
	boundsChanged time.Time

	bg        *pixel.BGRA
	bgStamp   time.Time
	bgItems   []Item
	bgRenders int

	out        *pixel.BGRA
	outStamp   time.Time
	outBgStamp time.Time
}

// NewComposableSurfaceItem creates a visible, fully opaque item in normal
// mode at the scene origin.
func NewComposableSurfaceItem(src Source, cfg Config) *ComposableSurfaceItem {
	cfg = cfg.withDefaults()
	now := cfg.Clock.Now()
	return &ComposableSurfaceItem{
		cfg:           cfg,
		log:           cfg.logger(),
		src:           src,
		mode:          CompositeNormal,
		opacity:       1,
		visible:       true,
		changed:       now,
		boundsChanged: now,
	}
}

// Source returns the item's pixel source.
func (it *ComposableSurfaceItem) Source() Source { return it.src }

// Mode returns the composite mode.
func (it *ComposableSurfaceItem) Mode() CompositeMode { return it.mode }

// SetMode changes the composite mode.
func (it *ComposableSurfaceItem) SetMode(m CompositeMode) {
	if m != it.mode {
		it.mode = m
		it.Touch()
	}
}

// Opacity returns the paint opacity in [0, 1].
func (it *ComposableSurfaceItem) Opacity() float64 { return it.opacity }

// SetOpacity sets the paint opacity, clamped to [0, 1].
func (it *ComposableSurfaceItem) SetOpacity(o float64) {
	o = max(0, min(1, o))
	if o != it.opacity {
		it.opacity = o
		it.Touch()
	}
}

// Position returns the scene position of the source's top-left pixel.
func (it *ComposableSurfaceItem) Position() image.Point { return it.pos }

// SetPosition moves the item.
func (it *ComposableSurfaceItem) SetPosition(p image.Point) {
	if p != it.pos {
		it.pos = p
		it.boundsChanged = it.cfg.Clock.Now()
		it.Touch()
	}
}

// Visible implements Item.
func (it *ComposableSurfaceItem) Visible() bool { return it.visible }

// SetVisible implements Item.
func (it *ComposableSurfaceItem) SetVisible(v bool) {
	if v != it.visible {
		it.visible = v
		it.Touch()
	}
}

// Touch marks the item changed.
func (it *ComposableSurfaceItem) Touch() { it.changed = it.cfg.Clock.Now() }

// Changed implements Item. It includes changes of the source.
func (it *ComposableSurfaceItem) Changed() time.Time {
	if c := it.src.Changed(); c.After(it.changed) {
		return c
	}
	return it.changed
}

// BoundsChanged returns the last time the item moved or its source was
// resized or moved.
func (it *ComposableSurfaceItem) BoundsChanged() time.Time {
	bc := it.boundsChanged
	if s, ok := it.src.(interface{ BoundsChanged() time.Time }); ok {
		if t := s.BoundsChanged(); t.After(bc) {
			bc = t
		}
	}
	return bc
}

// Bounds implements Item.
func (it *ComposableSurfaceItem) Bounds() image.Rectangle {
	return image.Rectangle{Max: it.src.Size()}.Add(it.pos)
}

// CompositedImage returns the image to paint and how to paint it. For
// direct modes it is the source image itself with direct set and op the
// blend op. For custom modes it is the source blended with the background,
// to be painted with source-over.
func (it *ComposableSurfaceItem) CompositedImage() (img *pixel.BGRA, op BlendOp, direct bool, err error) {
	if dop, ok := it.mode.Direct(); ok {
		src, err := it.src.Image()
		return src, dop, true, err
	}

	bg, err := it.RenderBackground()
	if err != nil {
		return nil, 0, false, err
	}
	stamp := it.Changed()
	if it.out != nil && it.outStamp.Equal(stamp) && it.outBgStamp.Equal(it.bgStamp) {
		return it.out, blend.OpSourceOver, false, nil
	}
	src, err := it.src.Image()
	if err != nil {
		return nil, 0, false, err
	}
	out := src.Clone()
	it.mode.CustomCompositeOpThreshold(it.cfg.BlendAlphaThreshold)(out, bg, out.Rect, bg.Rect, Identity())
	it.out, it.outStamp, it.outBgStamp = out, stamp, it.bgStamp
	return out, blend.OpSourceOver, false, nil
}

// RenderBackground returns everything painted beneath the item, cropped
// to the item's bounds. The previous rendering is reused while the items
// below are the same ones, none of them changed after it was made, and the
// item has not moved since.
func (it *ComposableSurfaceItem) RenderBackground() (*pixel.BGRA, error) {
	bounds := it.Bounds()
	var below []Item
	if it.scene != nil {
		below = it.scene.Below(it)
	}
	if it.bgValid(bounds, below) {
		return it.bg, nil
	}

	c := NewCanvas(bounds)
	if it.scene != nil {
		it.scene.renderBelow(c, bounds, len(below))
	}
	it.bg = c.Image()
	it.bgStamp = it.cfg.Clock.Now()
	it.bgItems = below
	it.bgRenders++
	it.log.Debug("tilebrush: background rendered", "bounds", bounds, "items", len(below))
	return it.bg, nil
}

func (it *ComposableSurfaceItem) bgValid(bounds image.Rectangle, below []Item) bool {
	if it.bg == nil || it.bg.Rect != bounds {
		return false
	}
	if !it.BoundsChanged().Before(it.bgStamp) {
		return false
	}
	if !slices.Equal(below, it.bgItems) {
		return false
	}
	for _, b := range below {
		if b.Changed().After(it.bgStamp) {
			return false
		}
	}
	return true
}

// Paint implements Item.
func (it *ComposableSurfaceItem) Paint(c *Canvas, clip image.Rectangle) {
	if !it.visible {
		return
	}
	img, op, _, err := it.CompositedImage()
	if err != nil {
		it.log.Warn("tilebrush: paint item", "mode", it.mode, "err", err)
		return
	}
	c.DrawImage(img, it.pos, op, it.opacity, clip)
}

// ImageItem is a plain image in a scene, painted with source-over.
type ImageItem struct {
	clock   Clock
	img     *pixel.BGRA
	pos     image.Point
	visible bool
	changed time.Time
}

// NewImageItem creates a visible item showing a copy of img at pos.
func NewImageItem(img image.Image, pos image.Point, cfg Config) *ImageItem {
	cfg = cfg.withDefaults()
	return &ImageItem{
		clock:   cfg.Clock,
		img:     pixel.FromImage(img),
		pos:     pos,
		visible: true,
		changed: cfg.Clock.Now(),
	}
}

// SetImage replaces the item's pixels with a copy of img.
func (i *ImageItem) SetImage(img image.Image) {
	i.img = pixel.FromImage(img)
	i.changed = i.clock.Now()
}

// Paint implements Item.
func (i *ImageItem) Paint(c *Canvas, clip image.Rectangle) {
	c.DrawImage(i.img, i.pos, blend.OpSourceOver, 1, clip)
}

// Visible implements Item.
func (i *ImageItem) Visible() bool { return i.visible }

// SetVisible implements Item.
func (i *ImageItem) SetVisible(v bool) {
	if v != i.visible {
		i.visible = v
		i.changed = i.clock.Now()
	}
}

// Bounds implements Item.
func (i *ImageItem) Bounds() image.Rectangle {
	return i.img.Rect.Sub(i.img.Rect.Min).Add(i.pos)
}

// Changed implements Item.
func (i *ImageItem) Changed() time.Time { return i.changed }
