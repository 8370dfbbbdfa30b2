package tilebrush

import (
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/tilebrush/pixel"
)

// Surface is a lazily populated grid of tiles covering a w × h region.
//
// Requests from the stroke engine for tiles outside the grid are served
// from a shared null tile, which is zeroed before every request and never
// reported as changed.
type Surface struct {
	cfg Config
	log *slog.Logger

	size   image.Point
	tilesX int
	tilesY int
	tiles  []*Tile // row-major, nil until first use
	null   *Tile

	offset    image.Point
	transform Transform
	mask      *image.Alpha

	changed       time.Time
	boundsChanged time.Time

	listeners map[int]func(*Tile)
	nextID    int
	// flush writes pending tiles back before a mask change.
	flush func() error

	layer       BackingLayer
	unsubscribe []func()
	closed      bool

	// syncMu guards the fields below; layer notifications may arrive on
	// any goroutine.
	syncMu sync.Mutex
	// outOfSync is the layer-space region changed behind the tiles' back.
	outOfSync image.Rectangle
	// selfRect is the layer region the surface is writing, if any.
	selfRect image.Rectangle
}

// NewSurface creates a surface of the given size.
func NewSurface(size image.Point, cfg Config) (*Surface, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDimensions, size)
	}
	cfg = cfg.withDefaults()
	s := &Surface{
		cfg:       cfg,
		log:       cfg.logger(),
		transform: Identity(),
		listeners: make(map[int]func(*Tile)),
	}
	s.null = newTile(image.Pt(-1, -1), cfg.Clock, cfg.ColorCorrectionThreshold, defaultTilePool)
	s.null.null = true
	s.resize(size)
	return s, nil
}

// Size returns the surface size in pixels.
func (s *Surface) Size() image.Point { return s.size }

// Bounds returns the surface rectangle in surface space.
func (s *Surface) Bounds() image.Rectangle { return image.Rectangle{Max: s.size} }

// GridSize returns the tile grid dimensions.
func (s *Surface) GridSize() (tilesX, tilesY int) { return s.tilesX, s.tilesY }

// Changed returns the latest pixel change of the surface or any tile.
func (s *Surface) Changed() time.Time {
	latest := s.changed
	for _, t := range s.tiles {
		if t != nil && t.changed.After(latest) {
			latest = t.changed
		}
	}
	return latest
}

// BoundsChanged returns the time the surface last moved or resized.
func (s *Surface) BoundsChanged() time.Time { return s.boundsChanged }

func (s *Surface) inGrid(tx, ty int) bool {
	return tx >= 0 && tx < s.tilesX && ty >= 0 && ty < s.tilesY
}

// GetOrCreateTile returns the tile at grid position (tx, ty), creating a
// zero tile on first access. Out-of-grid positions return the null tile.
func (s *Surface) GetOrCreateTile(tx, ty int) *Tile {
	if !s.inGrid(tx, ty) {
		return s.null
	}
	i := ty*s.tilesX + tx
	if t := s.tiles[i]; t != nil {
		return t
	}
	t := newTile(image.Pt(tx, ty), s.cfg.Clock, s.cfg.ColorCorrectionThreshold, defaultTilePool)
	if s.mask != nil {
		_ = t.SetMask(s.tileMask(tx, ty))
	}
	s.tiles[i] = t
	return t
}

// tileAt returns the live tile at (tx, ty) without creating one.
func (s *Surface) tileAt(tx, ty int) *Tile {
	if !s.inGrid(tx, ty) {
		return nil
	}
	return s.tiles[ty*s.tilesX+tx]
}

// NullTile returns the shared out-of-range tile.
func (s *Surface) NullTile() *Tile { return s.null }

// Tiles returns the live tiles in row-major order.
func (s *Surface) Tiles() []*Tile {
	out := make([]*Tile, 0, len(s.tiles))
	for _, t := range s.tiles {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// Reset discards every tile and rebuilds the grid for size. A mask that no
// longer fits is dropped.
func (s *Surface) Reset(size image.Point) error {
	if s.closed {
		return ErrClosed
	}
	if size.X <= 0 || size.Y <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidDimensions, size)
	}
	if s.mask != nil && s.mask.Rect.Size() != size {
		s.log.Debug("tilebrush: dropping mask on reset", "mask", s.mask.Rect.Size(), "size", size)
		s.mask = nil
	}
	s.resize(size)
	s.markSynced()
	s.log.Info("tilebrush: surface reset", "size", size, "grid", image.Pt(s.tilesX, s.tilesY))
	return nil
}

func (s *Surface) resize(size image.Point) {
	for _, t := range s.tiles {
		if t != nil {
			t.destroy()
		}
	}
	s.size = size
	s.tilesX = (size.X + TileSize - 1) / TileSize
	s.tilesY = (size.Y + TileSize - 1) / TileSize
	s.tiles = make([]*Tile, s.tilesX*s.tilesY)
	now := s.cfg.Clock.Now()
	s.changed, s.boundsChanged = now, now
}

// Clear zeroes every live tile, keeping them allocated.
func (s *Surface) Clear() {
	for _, t := range s.tiles {
		if t != nil {
			_ = t.Clear()
		}
	}
	s.changed = s.cfg.Clock.Now()
}

// LoadImage replaces the surface content with img, which must be exactly
// the surface size. Tiles whose region of img is fully transparent are not
// created; existing ones are cleared.
func (s *Surface) LoadImage(img image.Image) error {
	if s.closed {
		return ErrClosed
	}
	if img.Bounds().Size() != s.size {
		return fmt.Errorf("%w: image is %v, surface is %v", ErrGeometryMismatch, img.Bounds().Size(), s.size)
	}
	src := pixel.FromImage(img)
	// Work in surface coordinates.
	src.Rect = src.Rect.Sub(src.Rect.Min)

	scratch := pixel.NewBGRA(tileBounds)
	for ty := range s.tilesY {
		for tx := range s.tilesX {
			if err := s.loadTile(tx, ty, src, scratch); err != nil {
				return err
			}
		}
	}
	s.changed = s.cfg.Clock.Now()
	return nil
}

// loadTile replaces tile (tx, ty) with the pixels of src, which is in
// surface coordinates. Pixels src does not cover load as transparent, and a
// fully transparent region clears an existing tile instead of creating one.
func (s *Surface) loadTile(tx, ty int, src, scratch *pixel.BGRA) error {
	r := s.TileRect(tx, ty).Intersect(src.Rect)
	if src.IsTransparent(r) {
		if t := s.tileAt(tx, ty); t != nil {
			return t.Clear()
		}
		return nil
	}
	clear(scratch.Pix)
	origin := image.Pt(tx*TileSize, ty*TileSize)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		si := src.PixOffset(r.Min.X, y)
		di := scratch.PixOffset(r.Min.X-origin.X, y-origin.Y)
		copy(scratch.Pix[di:di+4*r.Dx()], src.Pix[si:si+4*r.Dx()])
	}
	buf, err := s.GetOrCreateTile(tx, ty).NativeBuffer(false)
	if err != nil {
		return err
	}
	pixel.ToNative(scratch, buf)
	return nil
}

// RenderImage composes every live tile into a new surface-sized image.
func (s *Surface) RenderImage() *pixel.BGRA {
	dst := pixel.NewBGRA(s.Bounds())
	for _, t := range s.tiles {
		if t == nil {
			continue
		}
		if _, err := t.CopyInto(dst, tileBounds, t.Rect(), true, false); err != nil {
			s.log.Warn("tilebrush: render tile", "tile", t.pos, "err", err)
		}
	}
	return dst
}

// Image is RenderImage; it lets a surface act as a composable item source.
func (s *Surface) Image() (*pixel.BGRA, error) {
	if s.closed {
		return nil, ErrClosed
	}
	return s.RenderImage(), nil
}

// SetMask restricts visibility and write-back to the pixels where mask is
// non-zero; nil removes the mask. The mask must be exactly the surface size
// and is only read. Pending write-back is flushed first so edits the old
// mask allowed are committed under it.
func (s *Surface) SetMask(mask *image.Alpha) error {
	if s.closed {
		return ErrClosed
	}
	if mask != nil && mask.Rect.Size() != s.size {
		return fmt.Errorf("%w: mask is %v, surface is %v", ErrGeometryMismatch, mask.Rect.Size(), s.size)
	}
	if s.flush != nil {
		if err := s.flush(); err != nil {
			s.log.Warn("tilebrush: flush before mask change", "err", err)
		}
	}
	s.mask = mask
	for _, t := range s.tiles {
		if t == nil {
			continue
		}
		var m *image.Alpha
		if mask != nil {
			m = s.tileMask(t.pos.X, t.pos.Y)
		}
		if err := t.SetMask(m); err != nil {
			return err
		}
	}
	s.changed = s.cfg.Clock.Now()
	return nil
}

// Mask returns the surface mask, or nil.
func (s *Surface) Mask() *image.Alpha { return s.mask }

// tileMask slices the surface mask for one tile. Pixels beyond the surface
// edge are masked out.
func (s *Surface) tileMask(tx, ty int) *image.Alpha {
	m := image.NewAlpha(tileBounds)
	origin := image.Pt(tx*TileSize, ty*TileSize)
	r := s.TileRect(tx, ty).Intersect(s.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		si := s.mask.PixOffset(s.mask.Rect.Min.X+r.Min.X, s.mask.Rect.Min.Y+y)
		di := m.PixOffset(r.Min.X-origin.X, y-origin.Y)
		copy(m.Pix[di:di+r.Dx()], s.mask.Pix[si:si+r.Dx()])
	}
	return m
}

// TileRect returns the surface-space rectangle of grid cell (tx, ty).
func (s *Surface) TileRect(tx, ty int) image.Rectangle {
	return tileBounds.Add(image.Pt(tx*TileSize, ty*TileSize))
}

// SetOffset places the surface origin at p in layer space.
func (s *Surface) SetOffset(p image.Point) {
	if p == s.offset {
		return
	}
	s.offset = p
	s.touchBounds()
}

// Offset returns the surface origin in layer space.
func (s *Surface) Offset() image.Point { return s.offset }

// SetTransform sets the surface-to-layer transform applied before the
// offset.
func (s *Surface) SetTransform(t Transform) {
	if t == s.transform {
		return
	}
	s.transform = t
	s.touchBounds()
}

// Transform returns the surface-to-layer transform, offset included.
func (s *Surface) Transform() Transform {
	return Translate(float64(s.offset.X), float64(s.offset.Y)).Mul(s.transform)
}

func (s *Surface) touchBounds() {
	s.boundsChanged = s.cfg.Clock.Now()
	for _, t := range s.tiles {
		if t != nil {
			t.touchBounds()
		}
	}
}

// LayerRect maps a surface-space rectangle to the layer-space rectangle
// that contains it.
func (s *Surface) LayerRect(r image.Rectangle) image.Rectangle {
	return s.Transform().Bounds(r)
}

// SurfacePoint maps a layer-space point into surface space. A singular
// transform maps every point to the surface origin.
func (s *Surface) SurfacePoint(x, y float64) (float64, float64) {
	inv, err := s.Transform().Invert()
	if err != nil {
		return 0, 0
	}
	return inv.Apply(x, y)
}

// OnTileChanged registers fn to be called whenever the engine finishes
// writing to an in-grid tile.
func (s *Surface) OnTileChanged(fn func(*Tile)) (remove func()) {
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() { delete(s.listeners, id) }
}

// Bind loads the layer pixels under the surface and subscribes to the
// layer. Each resize resets the surface to the new size and loads it again.
// Other content changes are only recorded; Sync reloads the affected tiles.
// The subscriptions end on Close or when a new layer is bound.
func (s *Surface) Bind(layer BackingLayer) error {
	if s.closed {
		return ErrClosed
	}
	s.unbind()
	s.layer = layer
	s.unsubscribe = append(s.unsubscribe,
		layer.OnSizeChanged(func(size image.Point) {
			if err := s.Reset(size); err != nil {
				s.log.Warn("tilebrush: reset on layer resize", "size", size, "err", err)
				return
			}
			if err := s.loadFrom(layer); err != nil {
				s.log.Warn("tilebrush: reload after layer resize", "size", size, "err", err)
			}
		}),
		layer.OnContentChanged(s.layerChanged),
	)
	if err := s.loadFrom(layer); err != nil {
		return err
	}
	s.markSynced()
	return nil
}

func (s *Surface) unbind() {
	for _, fn := range s.unsubscribe {
		fn()
	}
	s.unsubscribe = nil
	s.layer = nil
}

// layerChanged records a layer change unless it is the surface's own
// write-back landing.
func (s *Surface) layerChanged(r image.Rectangle) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	if !s.selfRect.Empty() && r.In(s.selfRect) {
		return
	}
	s.outOfSync = s.outOfSync.Union(r)
}

// writingBack brackets a write-back into layer region r, so the change
// notification it triggers is not mistaken for a foreign edit.
func (s *Surface) writingBack(r image.Rectangle) (done func()) {
	s.syncMu.Lock()
	s.selfRect = r
	s.syncMu.Unlock()
	return func() {
		s.syncMu.Lock()
		s.selfRect = image.Rectangle{}
		s.syncMu.Unlock()
	}
}

func (s *Surface) markSynced() {
	s.syncMu.Lock()
	s.outOfSync = image.Rectangle{}
	s.syncMu.Unlock()
}

// OutOfSync returns the layer-space region changed since the tiles were
// last loaded, or an empty rectangle.
func (s *Surface) OutOfSync() image.Rectangle {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	return s.outOfSync
}

// Sync reloads from the bound layer every tile overlapping a region the
// layer changed since the last load, such as an undo step or another
// writer's edit. Reloaded tiles lose unsaved pixels, so Sync belongs
// between strokes, after pending write-back has been flushed.
func (s *Surface) Sync() error {
	if s.closed {
		return ErrClosed
	}
	dirty := s.OutOfSync()
	if s.layer == nil || dirty.Empty() {
		return nil
	}
	p, ok := s.Transform().IntegerTranslation()
	if !ok {
		s.log.Debug("tilebrush: surface transform not invertible pixel-exactly, not syncing", "region", dirty)
		return nil
	}
	r := dirty.Sub(p).Intersect(s.Bounds())
	if r.Empty() {
		s.markSynced()
		return nil
	}
	tx0, ty0 := r.Min.X/TileSize, r.Min.Y/TileSize
	tx1, ty1 := (r.Max.X-1)/TileSize, (r.Max.Y-1)/TileSize
	aligned := image.Rect(tx0*TileSize, ty0*TileSize, (tx1+1)*TileSize, (ty1+1)*TileSize)

	src := s.layer.Crop(aligned.Add(p))
	src.Rect = src.Rect.Sub(p)
	scratch := pixel.NewBGRA(tileBounds)
	for ty := ty0; ty <= ty1; ty++ {
		for tx := tx0; tx <= tx1; tx++ {
			if err := s.loadTile(tx, ty, src, scratch); err != nil {
				return err
			}
		}
	}
	s.markSynced()
	s.changed = s.cfg.Clock.Now()
	s.log.Debug("tilebrush: surface synced", "region", dirty, "tiles", image.Rect(tx0, ty0, tx1+1, ty1+1))
	return nil
}

// loadFrom copies the layer pixels under the surface into the tiles. Only
// whole-pixel placements can be read back; other transforms start empty.
func (s *Surface) loadFrom(layer BackingLayer) error {
	p, ok := s.Transform().IntegerTranslation()
	if !ok {
		s.log.Debug("tilebrush: surface transform not invertible pixel-exactly, not loading layer")
		return nil
	}
	crop := layer.Crop(s.Bounds().Add(p))
	img := pixel.NewBGRA(s.Bounds())
	r := crop.Rect.Sub(p)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		si := crop.PixOffset(crop.Rect.Min.X, y+p.Y)
		di := img.PixOffset(r.Min.X, y)
		copy(img.Pix[di:di+4*r.Dx()], crop.Pix[si:si+4*r.Dx()])
	}
	return s.LoadImage(img)
}

// Close destroys every tile and drops the layer subscription.
func (s *Surface) Close() {
	if s.closed {
		return
	}
	s.unbind()
	for _, t := range s.tiles {
		if t != nil {
			t.destroy()
		}
	}
	s.tiles = nil
	s.tilesX, s.tilesY = 0, 0
	s.closed = true
}

// requester serves the engine tile protocol for a surface.
type requester struct{ s *Surface }

func (r requester) TileRequestStart(tx, ty int, readOnly bool) []uint16 {
	s := r.s
	if s.closed || !s.inGrid(tx, ty) {
		clear(s.null.native)
		return s.null.native
	}
	buf, err := s.GetOrCreateTile(tx, ty).NativeBuffer(readOnly)
	if err != nil {
		clear(s.null.native)
		return s.null.native
	}
	return buf
}

func (r requester) TileRequestEnd(tx, ty int, readOnly bool) {
	s := r.s
	if readOnly || s.closed || !s.inGrid(tx, ty) {
		return
	}
	t := s.tileAt(tx, ty)
	if t == nil {
		return
	}
	for _, fn := range s.listeners {
		fn(t)
	}
}
