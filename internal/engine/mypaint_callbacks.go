//go:build mypaint && cgo

package engine

/*
#include <stdint.h>
#include <mypaint-tiled-surface.h>
*/
import "C"

import "runtime/cgo"

//export goTileRequestStart
func goTileRequestStart(handle C.uintptr_t, req *C.MyPaintTileRequest) {
	cgo.Handle(handle).Value().(*mypaintSurface).start(req)
}

//export goTileRequestEnd
func goTileRequestEnd(handle C.uintptr_t, req *C.MyPaintTileRequest) {
	cgo.Handle(handle).Value().(*mypaintSurface).end(req)
}
