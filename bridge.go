package tilebrush

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/gogpu/tilebrush/internal/engine"
)

// NativeBridge connects a stroke engine to a Surface. It owns the engine,
// brush and engine surface handles; none of them escape.
//
// Every engine call is bracketed by BeginAtomic/EndAtomic. Engine errors,
// including panics raised by the engine or by tile callbacks, are returned
// as *EngineError.
type NativeBridge struct {
	cfg     Config
	log     *slog.Logger
	eng     engine.Engine
	brush   engine.Brush
	esurf   engine.Surface
	surface *Surface
	closed  bool
}

// NewNativeBridge opens the engine named by cfg.Engine, or the best one
// available, and binds it to surface. Failing to start the engine is the
// one place engine trouble surfaces as a hard error.
func NewNativeBridge(surface *Surface, cfg Config) (*NativeBridge, error) {
	cfg = cfg.withDefaults()
	log := cfg.logger()

	eng, err := engine.Open(cfg.Engine)
	if err != nil {
		if errors.Is(err, engine.ErrNotRegistered) || errors.Is(err, engine.ErrUnavailable) {
			err = errors.Join(ErrNoEngine, err)
		}
		return nil, &EngineError{Op: "open", Engine: cfg.Engine, Err: err}
	}
	brush, err := eng.NewBrush()
	if err != nil {
		_ = eng.Close()
		return nil, &EngineError{Op: "new_brush", Engine: eng.Name(), Err: err}
	}
	esurf, err := eng.NewSurface(requester{surface})
	if err != nil {
		brush.Close()
		_ = eng.Close()
		return nil, &EngineError{Op: "new_surface", Engine: eng.Name(), Err: err}
	}
	log.Info("tilebrush: stroke engine selected", "engine", eng.Name())

	return &NativeBridge{
		cfg:     cfg,
		log:     log,
		eng:     eng,
		brush:   brush,
		esurf:   esurf,
		surface: surface,
	}, nil
}

// Engine returns the name of the engine in use.
func (b *NativeBridge) Engine() string { return b.eng.Name() }

// Surface returns the surface the bridge draws on.
func (b *NativeBridge) Surface() *Surface { return b.surface }

// Brush returns the settings view of the bridge's brush.
func (b *NativeBridge) Brush() Brush { return Brush{b} }

// StartStroke resets the engine's stroke state so the next StrokeTo starts
// a new line instead of continuing the previous one.
func (b *NativeBridge) StartStroke() {
	if !b.closed {
		b.brush.NewStroke()
	}
}

// StrokeTo advances the brush to (x, y) in surface space and returns the
// surface pixels the engine reports as touched.
func (b *NativeBridge) StrokeTo(x, y, pressure, tiltX, tiltY, dt float64) (dirty image.Rectangle, err error) {
	if b.closed {
		return image.Rectangle{}, ErrClosed
	}
	err = b.atomic("stroke_to", func() error {
		return b.esurf.StrokeTo(b.brush, x, y, pressure, tiltX, tiltY, dt)
	}, &dirty)
	return dirty, err
}

// atomic runs fn inside one engine atomic operation. The operation is always
// ended, even if fn panics.
func (b *NativeBridge) atomic(op string, fn func() error, dirty *image.Rectangle) (err error) {
	b.esurf.BeginAtomic()
	defer func() {
		if p := recover(); p != nil {
			err = &EngineError{Op: op, Engine: b.eng.Name(), Err: fmt.Errorf("panic: %v", p)}
		}
		r, endErr := b.esurf.EndAtomic()
		if dirty != nil {
			*dirty = r
		}
		if err == nil && endErr != nil {
			err = engineError(op, b.eng.Name(), endErr)
		}
	}()
	return engineError(op, b.eng.Name(), fn())
}

// BrushValue returns the base value of a brush setting.
func (b *NativeBridge) BrushValue(s Setting) float64 {
	if b.closed {
		return 0
	}
	return b.brush.BaseValue(s)
}

// SetBrushValue sets the base value of a brush setting. NaN is ignored.
func (b *NativeBridge) SetBrushValue(s Setting, v float64) {
	if b.closed || math.IsNaN(v) {
		return
	}
	b.brush.SetBaseValue(s, v)
}

// LoadBrush replaces every brush setting from a brush definition.
func (b *NativeBridge) LoadBrush(data []byte) error {
	if b.closed {
		return ErrClosed
	}
	return engineError("load_brush", b.eng.Name(), b.brush.LoadJSON(data))
}

// Reset resizes the surface and clears the brush's dynamic state.
func (b *NativeBridge) Reset(size image.Point) error {
	if b.closed {
		return ErrClosed
	}
	if err := b.surface.Reset(size); err != nil {
		return err
	}
	b.brush.Reset()
	return nil
}

// Close releases the engine handles. The surface is left to its owner.
func (b *NativeBridge) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.esurf.Close()
	b.brush.Close()
	return engineError("close", b.eng.Name(), b.eng.Close())
}
