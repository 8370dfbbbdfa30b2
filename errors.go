package tilebrush

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTile is returned by every operation on a destroyed tile.
	ErrInvalidTile = errors.New("tilebrush: invalid tile")

	// ErrGeometryMismatch is returned when a mask or source image does not
	// match the size of the tile or surface it is applied to.
	ErrGeometryMismatch = errors.New("tilebrush: geometry mismatch")

	// ErrOutOfBoundsWrite marks a write-back target outside the backing layer.
	ErrOutOfBoundsWrite = errors.New("tilebrush: write outside backing layer")

	// ErrInvalidDimensions is returned for non-positive surface sizes.
	ErrInvalidDimensions = errors.New("tilebrush: invalid dimensions")

	// ErrNoEngine is returned when no stroke engine can be initialised.
	ErrNoEngine = errors.New("tilebrush: no stroke engine available")

	// ErrClosed is returned when a closed surface or bridge is used.
	ErrClosed = errors.New("tilebrush: closed")

	// ErrUnsupportedFormat is returned for canvas texture formats other
	// than the 8-bit RGBA and BGRA ones.
	ErrUnsupportedFormat = errors.New("tilebrush: unsupported texture format")
)

// EngineError reports a failed call into the stroke engine.
type EngineError struct {
	Op     string // operation, e.g. "stroke_to"
	Engine string // engine name, empty if none was selected
	Err    error
}

func (e *EngineError) Error() string {
	if e.Engine == "" {
		return fmt.Sprintf("tilebrush: engine %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("tilebrush: engine %s %s: %v", e.Engine, e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// engineError wraps err unless it is nil or already an *EngineError.
func engineError(op, name string, err error) error {
	if err == nil {
		return nil
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return err
	}
	return &EngineError{Op: op, Engine: name, Err: err}
}
