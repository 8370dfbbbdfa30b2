// Package engine defines the contract between tilebrush and a stroke
// engine, plus the engines themselves.
//
// An engine never owns pixels. During an atomic operation it asks a
// [TileRequester] for the native buffer of each tile it wants to touch and
// hands the buffer back when it is done. Buffers are 64x64 pixels of
// premultiplied 16-bit R, G, B, A samples where 1<<15 is full intensity.
//
// Two engines are provided:
//   - "mypaint": libmypaint through cgo, built with -tags mypaint.
//   - "soft": a pure Go round-dab engine, always available.
package engine

import "image"

// TileSize is the edge length of an engine tile in pixels.
const TileSize = 64

// TileSamples is the number of uint16 samples in one tile buffer.
const TileSamples = TileSize * TileSize * 4

// TileRequester serves tile buffers to an engine.
//
// TileRequestStart must always return a buffer of TileSamples samples, even
// for coordinates outside the drawable area. TileRequestEnd is called once
// per start with the same arguments.
type TileRequester interface {
	TileRequestStart(tx, ty int, readOnly bool) []uint16
	TileRequestEnd(tx, ty int, readOnly bool)
}

// Engine creates brushes and surfaces.
type Engine interface {
	// Name returns the registry name of the engine.
	Name() string

	// Init prepares the engine for use. Init is idempotent.
	Init() error

	// NewBrush creates a brush initialised with the engine defaults.
	NewBrush() (Brush, error)

	// NewSurface creates a surface that requests tiles from req.
	NewSurface(req TileRequester) (Surface, error)

	// Close releases engine-wide resources.
	Close() error
}

// Brush is an engine brush handle.
type Brush interface {
	BaseValue(s Setting) float64
	SetBaseValue(s Setting, v float64)

	// LoadJSON replaces every setting from a brush definition (.myb JSON).
	LoadJSON(data []byte) error

	// NewStroke marks the start of a new stroke; the next StrokeTo sets the
	// starting position.
	NewStroke()

	// Reset clears all dynamic state.
	Reset()

	Close()
}

// Surface is an engine surface bound to a TileRequester.
type Surface interface {
	// BeginAtomic starts an atomic operation. Every StrokeTo must happen
	// between BeginAtomic and EndAtomic.
	BeginAtomic()

	// EndAtomic finishes the operation, flushing pending dabs through the
	// tile requester, and returns the pixel region touched. A non-nil error
	// reports a failure while flushing; the region is still valid.
	EndAtomic() (image.Rectangle, error)

	// StrokeTo advances the brush to (x, y).
	StrokeTo(b Brush, x, y, pressure, xtilt, ytilt, dtime float64) error

	Close()
}
