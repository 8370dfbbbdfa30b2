package tilebrush

import (
	"image"
	"log/slog"
)

// StrokeSession drives one freehand stroke at a time through a bridge.
//
// While a stroke is active it records every tile the engine writes and the
// layer-space bounds of those tiles; ending the stroke flushes them to the
// backing layer. Engine failures during a stroke are logged and the sample
// is dropped.
type StrokeSession struct {
	bridge  *NativeBridge
	surface *Surface
	wb      *WriteBackScheduler
	log     *slog.Logger

	active bool
	dirty  *DirtyRegion
	bounds image.Rectangle

	remove func()
}

// NewStrokeSession creates an idle session. wb may be nil, in which case
// strokes only update the surface.
func NewStrokeSession(bridge *NativeBridge, wb *WriteBackScheduler) *StrokeSession {
	s := &StrokeSession{
		bridge:  bridge,
		surface: bridge.surface,
		wb:      wb,
		log:     bridge.log,
	}
	s.resetDirty()
	s.remove = s.surface.OnTileChanged(s.tileChanged)
	return s
}

func (s *StrokeSession) resetDirty() {
	tx, ty := s.surface.GridSize()
	if s.dirty == nil || s.dirty.TilesX() != tx || s.dirty.TilesY() != ty {
		s.dirty = NewDirtyRegion(tx, ty)
	} else {
		s.dirty.Clear()
	}
	s.bounds = image.Rectangle{}
}

// Active reports whether a stroke is in progress.
func (s *StrokeSession) Active() bool { return s.active }

// Bounds returns the layer-space bounds of the tiles changed by the current
// stroke. Within one stroke it only grows.
func (s *StrokeSession) Bounds() image.Rectangle { return s.bounds }

// DirtyTiles returns the tiles changed by the current stroke.
func (s *StrokeSession) DirtyTiles() []*Tile {
	var out []*Tile
	s.dirty.ForEachDirty(func(tx, ty int) {
		if t := s.surface.tileAt(tx, ty); t != nil {
			out = append(out, t)
		}
	})
	return out
}

// StartStroke begins a stroke, ending any stroke in progress first. Tiles
// the backing layer changed underneath since the last stroke, by an undo
// for instance, are reloaded before the engine sees them.
func (s *StrokeSession) StartStroke() {
	if s.active {
		s.EndStroke()
	}
	if err := s.surface.Sync(); err != nil {
		s.log.Warn("tilebrush: reload changed layer region", "region", s.surface.OutOfSync(), "err", err)
	}
	s.resetDirty()
	s.active = true
	s.bridge.StartStroke()
}

// StrokeTo feeds one input sample, given in layer space. A sample arriving
// while idle starts a stroke.
func (s *StrokeSession) StrokeTo(x, y, pressure, tiltX, tiltY, dt float64) {
	if !s.active {
		s.StartStroke()
	}
	sx, sy := s.surface.SurfacePoint(x, y)
	if _, err := s.bridge.StrokeTo(sx, sy, pressure, tiltX, tiltY, dt); err != nil {
		s.log.Warn("tilebrush: stroke step ignored", "x", x, "y", y, "err", err)
	}
}

// BasicStrokeTo is StrokeTo at full pressure without tilt or time delta.
func (s *StrokeSession) BasicStrokeTo(x, y float64) {
	s.StrokeTo(x, y, 1, 0, 0, 0)
}

// EndStroke finishes the stroke and writes its tiles back. It does nothing
// while idle.
func (s *StrokeSession) EndStroke() {
	if !s.active {
		return
	}
	s.active = false
	if s.wb != nil {
		if err := s.wb.Flush(); err != nil {
			s.log.Warn("tilebrush: write-back at end of stroke", "bounds", s.bounds, "err", err)
		}
	}
	s.resetDirty()
}

// Close ends any stroke and stops listening to the surface.
func (s *StrokeSession) Close() {
	s.EndStroke()
	if s.remove != nil {
		s.remove()
		s.remove = nil
	}
}

func (s *StrokeSession) tileChanged(t *Tile) {
	if !s.active || t.IsNull() {
		return
	}
	if s.dirty.TilesX() != s.surface.tilesX || s.dirty.TilesY() != s.surface.tilesY {
		// The surface was reset mid-stroke; its old tiles are gone.
		s.dirty = NewDirtyRegion(s.surface.GridSize())
	}
	s.dirty.Mark(t.pos.X, t.pos.Y)
	r := t.Rect().Intersect(s.surface.Bounds())
	s.bounds = s.bounds.Union(s.surface.LayerRect(r))
	if s.wb != nil {
		s.wb.Notify(t)
	}
}
