package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRegistered is returned when no engine is registered under a name.
	ErrNotRegistered = errors.New("engine: not registered")

	// ErrUnavailable is returned when an engine cannot be loaded, for
	// example because the native library is missing.
	ErrUnavailable = errors.New("engine: unavailable")

	// ErrNotInitialized is returned when an engine is used before Init.
	ErrNotInitialized = errors.New("engine: not initialized")

	// ErrNotAtomic is returned by StrokeTo outside BeginAtomic/EndAtomic.
	ErrNotAtomic = errors.New("engine: stroke outside atomic operation")

	// ErrClosed is returned when a closed brush or surface is used.
	ErrClosed = errors.New("engine: closed")

	// ErrForeignBrush is returned when a brush from another engine is used.
	ErrForeignBrush = errors.New("engine: brush belongs to a different engine")

	// ErrInvalidBrush is returned when a brush definition cannot be parsed.
	ErrInvalidBrush = errors.New("engine: invalid brush definition")

	// ErrTileRequest is returned when serving a tile request panicked.
	ErrTileRequest = errors.New("engine: tile request failed")
)

// tileRequestError wraps a value recovered from a tile request callback.
func tileRequestError(p any) error {
	if err, ok := p.(error); ok {
		return fmt.Errorf("%w: %w", ErrTileRequest, err)
	}
	return fmt.Errorf("%w: %v", ErrTileRequest, p)
}
