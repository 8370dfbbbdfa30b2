package tilebrush

import (
	"image"

	"github.com/gogpu/tilebrush/pixel"
)

// BackingLayer is the undo-tracked image that strokes are committed into.
// See the layer package for an in-memory implementation.
type BackingLayer interface {
	// Size returns the layer size in pixels; the layer covers
	// image.Rectangle{Max: Size()}.
	Size() image.Point

	// Crop returns a copy of the pixels inside r.
	Crop(r image.Rectangle) *pixel.BGRA

	// Write grants exclusive access to the pixels inside r for the duration
	// of fn. view aliases the layer; whatever fn writes is committed as one
	// undo step when fn returns, even if fn returns an error, and fn's
	// error is returned.
	Write(r image.Rectangle, fn func(view *pixel.BGRA) error) error

	// OnSizeChanged registers fn to be called after the layer is resized.
	OnSizeChanged(fn func(size image.Point)) (unsubscribe func())

	// OnContentChanged registers fn to be called after pixels inside r may
	// have changed, whether through Write or through the layer's own
	// history. fn may run on any goroutine.
	OnContentChanged(fn func(r image.Rectangle)) (unsubscribe func())
}
