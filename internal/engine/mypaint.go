//go:build mypaint && cgo

package engine

/*
#cgo pkg-config: libmypaint
#include <stdint.h>
#include <stdlib.h>
#include <mypaint-brush.h>
#include <mypaint-tiled-surface.h>

void goTileRequestStart(uintptr_t handle, MyPaintTileRequest *request);
void goTileRequestEnd(uintptr_t handle, MyPaintTileRequest *request);

typedef struct {
	MyPaintTiledSurface parent;
	uintptr_t handle;
} GoTiledSurface;

static void go_tile_request_start(MyPaintTiledSurface *tiled, MyPaintTileRequest *request) {
	goTileRequestStart(((GoTiledSurface *)tiled)->handle, request);
}

static void go_tile_request_end(MyPaintTiledSurface *tiled, MyPaintTileRequest *request) {
	goTileRequestEnd(((GoTiledSurface *)tiled)->handle, request);
}

static void go_surface_destroy(MyPaintSurface *surface) {
	mypaint_tiled_surface_destroy((MyPaintTiledSurface *)surface);
	free(surface);
}

// Tile requests are served serially: threadsafe_tile_requests stays FALSE.
static GoTiledSurface *go_surface_new(uintptr_t handle) {
	GoTiledSurface *s = calloc(1, sizeof(GoTiledSurface));
	if (s == NULL) {
		return NULL;
	}
	mypaint_tiled_surface_init(&s->parent, go_tile_request_start, go_tile_request_end);
	s->parent.parent.destroy = go_surface_destroy;
	s->parent.threadsafe_tile_requests = FALSE;
	s->handle = handle;
	return s;
}

static MyPaintSurface *go_surface_base(GoTiledSurface *s) {
	return (MyPaintSurface *)s;
}
*/
import "C"

import (
	"fmt"
	"image"
	"runtime"
	"runtime/cgo"
	"sync"
	"unsafe"
)

func init() {
	Register(NameMyPaint, func() Engine { return &mypaintEngine{} })
}

type mypaintEngine struct {
	initialized bool
	settingIDs  [settingCount]C.MyPaintBrushSetting
}

func (e *mypaintEngine) Name() string { return NameMyPaint }

func (e *mypaintEngine) Init() error {
	if e.initialized {
		return nil
	}
	for s := range settingCount {
		name := C.CString(s.CName())
		id := C.mypaint_brush_setting_from_cname(name)
		C.free(unsafe.Pointer(name))
		if !validSettingID(int(C.int(id))) {
			return fmt.Errorf("%w: libmypaint has no setting %q", ErrUnavailable, s.CName())
		}
		e.settingIDs[s] = id
	}
	e.initialized = true
	return nil
}

func (e *mypaintEngine) NewBrush() (Brush, error) {
	if !e.initialized {
		return nil, ErrNotInitialized
	}
	h := C.mypaint_brush_new()
	if h == nil {
		return nil, fmt.Errorf("%w: mypaint_brush_new failed", ErrUnavailable)
	}
	C.mypaint_brush_from_defaults(h)
	b := &mypaintBrush{engine: e, h: h}
	return b, nil
}

func (e *mypaintEngine) NewSurface(req TileRequester) (Surface, error) {
	if !e.initialized {
		return nil, ErrNotInitialized
	}
	s := &mypaintSurface{req: req}
	s.handle = cgo.NewHandle(s)
	s.c = C.go_surface_new(C.uintptr_t(s.handle))
	if s.c == nil {
		s.handle.Delete()
		return nil, fmt.Errorf("%w: surface allocation failed", ErrUnavailable)
	}
	s.scratch = (*C.uint16_t)(C.calloc(C.size_t(TileSamples), C.size_t(unsafe.Sizeof(C.uint16_t(0)))))
	return s, nil
}

func (e *mypaintEngine) Close() error {
	e.initialized = false
	return nil
}

type mypaintBrush struct {
	engine *mypaintEngine
	h      *C.MyPaintBrush
}

func (b *mypaintBrush) BaseValue(s Setting) float64 {
	if b.h == nil || s < 0 || s >= settingCount {
		return 0
	}
	return float64(C.mypaint_brush_get_base_value(b.h, b.engine.settingIDs[s]))
}

func (b *mypaintBrush) SetBaseValue(s Setting, v float64) {
	if b.h == nil || s < 0 || s >= settingCount {
		return
	}
	C.mypaint_brush_set_base_value(b.h, b.engine.settingIDs[s], C.float(v))
}

func (b *mypaintBrush) LoadJSON(data []byte) error {
	if b.h == nil {
		return ErrClosed
	}
	str := C.CString(string(data))
	defer C.free(unsafe.Pointer(str))
	if C.mypaint_brush_from_string(b.h, str) == 0 {
		return ErrInvalidBrush
	}
	return nil
}

func (b *mypaintBrush) NewStroke() {
	if b.h != nil {
		C.mypaint_brush_new_stroke(b.h)
	}
}

func (b *mypaintBrush) Reset() {
	if b.h != nil {
		C.mypaint_brush_reset(b.h)
	}
}

func (b *mypaintBrush) Close() {
	if b.h != nil {
		C.mypaint_brush_unref(b.h)
		b.h = nil
	}
}

// mypaintSurface routes libmypaint tile requests to a TileRequester.
//
// libmypaint keeps the buffer pointer of a request until the atomic
// operation ends, so Go buffers stay pinned from TileRequestStart until
// EndAtomic returns.
type mypaintSurface struct {
	mu      sync.Mutex
	req     TileRequester
	handle  cgo.Handle
	c       *C.GoTiledSurface
	pinner  runtime.Pinner
	scratch *C.uint16_t
	atomic  int
	panics  []any

	// reported counts panics already returned to the caller.
	reported int
}

func (s *mypaintSurface) BeginAtomic() {
	if s.c == nil {
		return
	}
	if s.atomic == 0 {
		s.panics = nil
		s.reported = 0
	}
	s.atomic++
	C.mypaint_surface_begin_atomic(C.go_surface_base(s.c))
}

// EndAtomic lets libmypaint render the queued dabs, so tile requests fail
// here as often as in StrokeTo. Failures not yet reported are returned.
func (s *mypaintSurface) EndAtomic() (image.Rectangle, error) {
	if s.c == nil || s.atomic == 0 {
		return image.Rectangle{}, nil
	}
	var roi C.MyPaintRectangle
	C.mypaint_surface_end_atomic(C.go_surface_base(s.c), &roi)
	s.atomic--
	if s.atomic == 0 {
		s.pinner.Unpin()
	}
	r := image.Rect(int(roi.x), int(roi.y), int(roi.x+roi.width), int(roi.y+roi.height))
	return r, s.takePanic()
}

// takePanic returns the first unreported tile request failure as an error.
func (s *mypaintSurface) takePanic() error {
	if s.reported >= len(s.panics) {
		return nil
	}
	p := s.panics[s.reported]
	s.reported = len(s.panics)
	return tileRequestError(p)
}

func (s *mypaintSurface) StrokeTo(br Brush, x, y, pressure, xtilt, ytilt, dtime float64) error {
	if s.c == nil {
		return ErrClosed
	}
	if s.atomic == 0 {
		return ErrNotAtomic
	}
	b, ok := br.(*mypaintBrush)
	if !ok {
		return ErrForeignBrush
	}
	if b.h == nil {
		return ErrClosed
	}
	C.mypaint_brush_stroke_to(b.h, C.go_surface_base(s.c),
		C.float(x), C.float(y), C.float(pressure), C.float(xtilt), C.float(ytilt), C.double(dtime))
	return s.takePanic()
}

func (s *mypaintSurface) Close() {
	if s.c == nil {
		return
	}
	C.mypaint_surface_unref(C.go_surface_base(s.c))
	s.c = nil
	s.pinner.Unpin()
	C.free(unsafe.Pointer(s.scratch))
	s.scratch = nil
	s.handle.Delete()
}

func (s *mypaintSurface) start(req *C.MyPaintTileRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			s.panics = append(s.panics, r)
			req.buffer = s.scratch
		}
	}()

	buf := s.req.TileRequestStart(int(req.tx), int(req.ty), req.readonly != 0)
	if len(buf) != TileSamples {
		panic(fmt.Sprintf("tile (%d,%d) has %d samples", req.tx, req.ty, len(buf)))
	}
	s.pinner.Pin(&buf[0])
	req.buffer = (*C.uint16_t)(unsafe.Pointer(&buf[0]))
}

func (s *mypaintSurface) end(req *C.MyPaintTileRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			s.panics = append(s.panics, r)
		}
	}()
	s.req.TileRequestEnd(int(req.tx), int(req.ty), req.readonly != 0)
}
