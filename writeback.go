package tilebrush

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/tilebrush/pixel"
)

// WriteBackScheduler batches changed tiles into the backing layer.
//
// The first notification arms a single debounce timer; every tile notified
// before it fires is written in one batch under one exclusive layer write,
// which keeps the layer's undo history to one step per batch.
type WriteBackScheduler struct {
	cfg     Config
	log     *slog.Logger
	surface *Surface
	layer   BackingLayer

	pending []*Tile
	queued  map[*Tile]struct{}
	timer   Timer
	stopped bool
}

// NewWriteBackScheduler creates a scheduler writing surface tiles into
// layer. The surface flushes through it before mask changes.
func NewWriteBackScheduler(surface *Surface, layer BackingLayer, cfg Config) *WriteBackScheduler {
	cfg = cfg.withDefaults()
	w := &WriteBackScheduler{
		cfg:     cfg,
		log:     cfg.logger(),
		surface: surface,
		layer:   layer,
		queued:  make(map[*Tile]struct{}),
	}
	surface.flush = w.Flush
	return w
}

// Notify queues t for write-back and arms the timer if it is not running.
// The null tile is ignored.
func (w *WriteBackScheduler) Notify(t *Tile) {
	if w.stopped || t == nil || t.IsNull() {
		return
	}
	if _, ok := w.queued[t]; !ok {
		w.queued[t] = struct{}{}
		w.pending = append(w.pending, t)
	}
	if w.timer == nil && w.cfg.Scheduler != nil {
		w.timer = w.cfg.Scheduler.AfterFunc(w.cfg.WriteBackInterval, w.fire)
	}
}

// Pending returns the number of queued tiles.
func (w *WriteBackScheduler) Pending() int { return len(w.pending) }

func (w *WriteBackScheduler) fire() {
	w.timer = nil
	if err := w.commit(); err != nil {
		w.log.Warn("tilebrush: deferred write-back", "err", err)
	}
}

// Flush disarms the timer and writes every queued tile now. Tiles that
// fail are reported in the joined error; the rest are still written.
func (w *WriteBackScheduler) Flush() error {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	return w.commit()
}

// Stop flushes and then ignores further notifications.
func (w *WriteBackScheduler) Stop() error {
	err := w.Flush()
	w.stopped = true
	if w.surface.flush != nil {
		w.surface.flush = nil
	}
	return err
}

func (w *WriteBackScheduler) commit() error {
	if len(w.pending) == 0 {
		return nil
	}
	batch := w.pending
	defer func() {
		w.pending = w.pending[:0]
		clear(w.queued)
	}()

	layerBounds := image.Rectangle{Max: w.layer.Size()}
	if len(batch) == 1 {
		t := batch[0]
		r, ok := w.target(t, layerBounds)
		if !ok {
			return nil
		}
		defer w.surface.writingBack(r)()
		return w.layer.Write(r, func(view *pixel.BGRA) error {
			return w.copyTile(view, t)
		})
	}

	var union image.Rectangle
	live := batch[:0:0]
	for _, t := range batch {
		if r, ok := w.target(t, layerBounds); ok {
			union = union.Union(r)
			live = append(live, t)
		}
	}
	if union.Empty() {
		return nil
	}
	var errs []error
	done := w.surface.writingBack(union)
	err := w.layer.Write(union, func(view *pixel.BGRA) error {
		for _, t := range live {
			if err := w.copyTile(view, t); err != nil {
				errs = append(errs, fmt.Errorf("tile %v: %w", t.pos, err))
			}
		}
		return nil
	})
	done()
	return errors.Join(append(errs, err)...)
}

// target returns the layer rectangle t writes to, clipped to the layer.
// Destroyed tiles and tiles outside the layer are skipped.
func (w *WriteBackScheduler) target(t *Tile, layerBounds image.Rectangle) (image.Rectangle, bool) {
	if !t.Valid() {
		w.log.Debug("tilebrush: skipping destroyed tile", "tile", t.pos)
		return image.Rectangle{}, false
	}
	src := t.Rect().Intersect(w.surface.Bounds())
	r := w.surface.LayerRect(src).Intersect(layerBounds)
	if r.Empty() {
		w.log.Debug("tilebrush: skipping tile", "tile", t.pos, "err", ErrOutOfBoundsWrite)
		return image.Rectangle{}, false
	}
	return r, true
}

// copyTile writes one tile into view, which covers at least the tile's
// clipped target rectangle.
func (w *WriteBackScheduler) copyTile(view *pixel.BGRA, t *Tile) error {
	origin := t.Rect().Min
	local := t.Rect().Intersect(w.surface.Bounds()).Sub(origin)
	tf := w.surface.Transform()

	if p, ok := tf.IntegerTranslation(); ok {
		_, err := t.CopyInto(view, local, local.Add(origin).Add(p), false, t.Mask() != nil)
		return err
	}

	cache, err := t.Cache()
	if err != nil {
		return err
	}
	// Map tile-local pixels straight to layer space.
	m := tf.Mul(Translate(float64(origin.X), float64(origin.Y)))
	var mask image.Image
	if t.Mask() != nil {
		mask = t.Mask()
	}
	drawTransformed(view, m, cache, local, xdraw.Src, mask)
	return nil
}
