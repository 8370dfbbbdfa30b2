package tilebrush

import (
	"fmt"
	"image"
	"math"
	"time"

	"github.com/gogpu/tilebrush/internal/engine"
	"github.com/gogpu/tilebrush/pixel"
)

// TileSize is the edge length of a tile in pixels.
const TileSize = engine.TileSize

// tileBounds is the local pixel rectangle of every tile.
var tileBounds = image.Rect(0, 0, TileSize, TileSize)

// Tile is a TileSize × TileSize block of pixels stored in the engine's
// native 16-bit format, with an 8-bit display cache rebuilt on demand.
//
// Once destroyed, every method returns ErrInvalidTile.
type Tile struct {
	pos    image.Point // grid coordinate
	native []uint16
	cache  *pixel.BGRA
	mask   *image.Alpha

	valid bool
	stale bool
	null  bool

	clock         Clock
	threshold     float64
	changed       time.Time
	boundsChanged time.Time
	pool          *tilePool
}

// NewTile creates a standalone zero tile at grid position (0, 0).
func NewTile(cfg Config) *Tile {
	cfg = cfg.withDefaults()
	return newTile(image.Point{}, cfg.Clock, cfg.ColorCorrectionThreshold, defaultTilePool)
}

func newTile(pos image.Point, clock Clock, threshold float64, pool *tilePool) *Tile {
	native, cache := pool.get()
	now := clock.Now()
	return &Tile{
		pos:           pos,
		native:        native,
		cache:         cache,
		valid:         true,
		clock:         clock,
		threshold:     threshold,
		changed:       now,
		boundsChanged: now,
		pool:          pool,
	}
}

// Pos returns the tile's grid coordinate.
func (t *Tile) Pos() image.Point { return t.pos }

// Rect returns the pixel rectangle the tile covers in surface space.
func (t *Tile) Rect() image.Rectangle {
	return tileBounds.Add(t.pos.Mul(TileSize))
}

// Valid reports whether the tile has not been destroyed.
func (t *Tile) Valid() bool { return t.valid }

// IsNull reports whether t is a surface's out-of-range null tile.
func (t *Tile) IsNull() bool { return t.null }

// Changed returns the time of the last pixel change.
func (t *Tile) Changed() time.Time { return t.changed }

// BoundsChanged returns the time the tile last moved in layer space.
func (t *Tile) BoundsChanged() time.Time { return t.boundsChanged }

// Mask returns the tile mask, or nil.
func (t *Tile) Mask() *image.Alpha { return t.mask }

func (t *Tile) touch() {
	t.stale = true
	t.changed = t.clock.Now()
}

func (t *Tile) touchBounds() {
	t.boundsChanged = t.clock.Now()
}

// DrawPixel stores one native pixel; r, g, b, a are premultiplied with
// 1<<15 as full intensity.
func (t *Tile) DrawPixel(x, y int, r, g, b, a uint16) error {
	if !t.valid {
		return ErrInvalidTile
	}
	if !(image.Point{x, y}.In(tileBounds)) {
		return fmt.Errorf("%w: pixel (%d,%d) outside tile", ErrGeometryMismatch, x, y)
	}
	i := (y*TileSize + x) * 4
	t.native[i], t.native[i+1], t.native[i+2], t.native[i+3] = r, g, b, a
	t.touch()
	return nil
}

// NativeBuffer returns the native pixel buffer. Unless readOnly is set the
// caller may write to it and the display cache is marked stale.
func (t *Tile) NativeBuffer(readOnly bool) ([]uint16, error) {
	if !t.valid {
		return nil, ErrInvalidTile
	}
	if !readOnly {
		t.touch()
	}
	return t.native, nil
}

// RebuildCache converts the native buffer into the display cache. With a
// mask, only pixels the mask shows are converted.
func (t *Tile) RebuildCache() error {
	if !t.valid {
		return ErrInvalidTile
	}
	if t.mask == nil {
		pixel.FromNative(t.native, t.cache)
	} else {
		for y := range TileSize {
			mi := t.mask.PixOffset(t.mask.Rect.Min.X, t.mask.Rect.Min.Y+y)
			for x := range TileSize {
				if t.mask.Pix[mi+x] == 0 {
					continue
				}
				n := (y*TileSize + x) * 4
				c := t.cache.PixOffset(x, y)
				t.cache.Pix[c], t.cache.Pix[c+1], t.cache.Pix[c+2], t.cache.Pix[c+3] =
					pixel.NativeToBGRA(t.native[n], t.native[n+1], t.native[n+2], t.native[n+3])
			}
		}
	}
	t.stale = false
	return nil
}

// Cache returns the display cache, rebuilding it if stale. The image is
// owned by the tile and valid until the next write.
func (t *Tile) Cache() (*pixel.BGRA, error) {
	if !t.valid {
		return nil, ErrInvalidTile
	}
	if t.stale {
		if err := t.RebuildCache(); err != nil {
			return nil, err
		}
	}
	return t.cache, nil
}

// Image is Cache; it lets a tile act as a composable item source.
func (t *Tile) Image() (*pixel.BGRA, error) { return t.Cache() }

// CopyInto copies the cached pixels of srcRect (tile-local) to dst, with
// srcRect.Min landing on dstRect.Min. Both rectangles are clipped.
//
// It reports false when nothing intersects or when skipIfTransparent is set
// and every visible source pixel is transparent. With colorCorrection, a
// non-transparent destination pixel is only replaced when the new value
// differs by more than the tile's colour-correction threshold. Masked-out
// pixels are never written.
func (t *Tile) CopyInto(dst *pixel.BGRA, srcRect, dstRect image.Rectangle, skipIfTransparent, colorCorrection bool) (bool, error) {
	if !t.valid {
		return false, ErrInvalidTile
	}
	delta := dstRect.Min.Sub(srcRect.Min)
	r := srcRect.Intersect(tileBounds).
		Intersect(dstRect.Sub(delta)).
		Intersect(dst.Rect.Sub(delta))
	if r.Empty() {
		return false, nil
	}
	src, err := t.Cache()
	if err != nil {
		return false, err
	}
	if skipIfTransparent && t.transparentIn(src, r) {
		return false, nil
	}

	th2 := t.threshold * t.threshold
	for y := r.Min.Y; y < r.Max.Y; y++ {
		si := src.PixOffset(r.Min.X, y)
		di := dst.PixOffset(r.Min.X+delta.X, y+delta.Y)
		for x := r.Min.X; x < r.Max.X; x, si, di = x+1, si+4, di+4 {
			if !t.visible(x, y) {
				continue
			}
			s := src.Pix[si : si+4 : si+4]
			d := dst.Pix[di : di+4 : di+4]
			if colorCorrection && d[3] != 0 && !exceeds(s, d, t.threshold, th2) {
				continue
			}
			copy(d, s)
		}
	}
	return true, nil
}

// exceeds reports whether s differs from d by more than the threshold,
// measured as Euclidean distance over B, G, R and separately over alpha.
func exceeds(s, d []uint8, th, th2 float64) bool {
	b := float64(s[0]) - float64(d[0])
	g := float64(s[1]) - float64(d[1])
	r := float64(s[2]) - float64(d[2])
	if r*r+g*g+b*b > th2 {
		return true
	}
	return math.Abs(float64(s[3])-float64(d[3])) > th
}

func (t *Tile) visible(x, y int) bool {
	if t.mask == nil {
		return true
	}
	return t.mask.Pix[t.mask.PixOffset(t.mask.Rect.Min.X+x, t.mask.Rect.Min.Y+y)] != 0
}

func (t *Tile) transparentIn(src *pixel.BGRA, r image.Rectangle) bool {
	if t.mask == nil {
		return src.IsTransparent(r)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := src.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x, i = x+1, i+4 {
			if src.Pix[i+3] != 0 && t.visible(x, y) {
				return false
			}
		}
	}
	return true
}

// IsFullyTransparent reports whether every native alpha sample is zero.
func (t *Tile) IsFullyTransparent() (bool, error) {
	if !t.valid {
		return false, ErrInvalidTile
	}
	return pixel.NativeIsTransparent(t.native), nil
}

// SetMask replaces the tile mask; nil removes it. A non-nil mask must be
// exactly TileSize × TileSize and is only read.
//
// Edits the old mask showed but the cache has not picked up yet are baked
// into the cache first, so they survive the switch.
func (t *Tile) SetMask(m *image.Alpha) error {
	if !t.valid {
		return ErrInvalidTile
	}
	if m != nil && m.Rect.Size() != tileBounds.Size() {
		return fmt.Errorf("%w: mask is %v, tile is %dx%d", ErrGeometryMismatch, m.Rect.Size(), TileSize, TileSize)
	}
	if t.stale {
		if err := t.RebuildCache(); err != nil {
			return err
		}
	}
	t.mask = m
	t.touch()
	return nil
}

// Clear zeroes the tile without destroying it.
func (t *Tile) Clear() error {
	if !t.valid {
		return ErrInvalidTile
	}
	clear(t.native)
	clear(t.cache.Pix)
	t.stale = false
	t.changed = t.clock.Now()
	return nil
}

// destroy invalidates the tile and recycles its buffers.
func (t *Tile) destroy() {
	if !t.valid {
		return
	}
	t.valid = false
	t.pool.put(t.native, t.cache)
	t.native, t.cache, t.mask = nil, nil, nil
}
