package tilebrush

import (
	"errors"
	"image"
	"image/color"
	"math/rand/v2"
	"testing"

	"github.com/gogpu/tilebrush/layer"
	"github.com/gogpu/tilebrush/pixel"
)

func newTestSurface(t *testing.T, w, h int) *Surface {
	t.Helper()
	s, err := NewSurface(image.Pt(w, h), NewConfig())
	if err != nil {
		t.Fatalf("NewSurface(%d,%d) error = %v", w, h, err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestNewSurfaceRejectsBadSize(t *testing.T) {
	for _, size := range []image.Point{{0, 10}, {10, 0}, {-1, 5}} {
		if _, err := NewSurface(size, NewConfig()); !errors.Is(err, ErrInvalidDimensions) {
			t.Errorf("NewSurface(%v) error = %v, want ErrInvalidDimensions", size, err)
		}
	}
}

func TestSurfaceGridSize(t *testing.T) {
	tests := []struct {
		w, h   int
		tx, ty int
	}{
		{1, 1, 1, 1},
		{64, 64, 1, 1},
		{65, 64, 2, 1},
		{128, 128, 2, 2},
		{129, 65, 3, 2},
	}
	for _, tt := range tests {
		s := newTestSurface(t, tt.w, tt.h)
		tx, ty := s.GridSize()
		if tx != tt.tx || ty != tt.ty {
			t.Errorf("GridSize(%dx%d) = %dx%d, want %dx%d", tt.w, tt.h, tx, ty, tt.tx, tt.ty)
		}
	}
}

func TestGetOrCreateTile(t *testing.T) {
	s := newTestSurface(t, 128, 128)
	a := s.GetOrCreateTile(1, 0)
	if a != s.GetOrCreateTile(1, 0) {
		t.Error("GetOrCreateTile returned different tiles for one cell")
	}
	if a.Pos() != image.Pt(1, 0) || a.Rect() != image.Rect(64, 0, 128, 64) {
		t.Errorf("tile pos %v rect %v", a.Pos(), a.Rect())
	}
	for _, p := range []image.Point{{-1, 0}, {2, 0}, {0, 2}, {5, -3}} {
		if got := s.GetOrCreateTile(p.X, p.Y); got != s.NullTile() {
			t.Errorf("GetOrCreateTile(%v) is not the null tile", p)
		}
	}
	if n := len(s.Tiles()); n != 1 {
		t.Errorf("len(Tiles()) = %d, want 1", n)
	}
}

func TestNullTileIsolation(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for _, size := range []image.Point{{1, 1}, {63, 1}, {64, 64}, {65, 130}} {
		s := newTestSurface(t, size.X, size.Y)
		req := requester{s}
		tx, ty := s.GridSize()

		// Give every real tile known content.
		for y := range ty {
			for x := range tx {
				_ = s.GetOrCreateTile(x, y).DrawPixel(0, 0, 1, 2, 3, 4)
			}
		}

		for range 50 {
			x := rng.IntN(tx+20) - 10
			y := rng.IntN(ty+20) - 10
			if s.inGrid(x, y) {
				continue
			}
			buf := req.TileRequestStart(x, y, false)
			if len(buf) != TileSize*TileSize*4 {
				t.Fatalf("%v: null buffer has %d samples", size, len(buf))
			}
			if !pixel.NativeIsTransparent(buf) {
				t.Fatalf("%v: null buffer not zeroed for (%d,%d)", size, x, y)
			}
			for i := range buf {
				buf[i] = 0xffff
			}
			req.TileRequestEnd(x, y, false)
		}

		for _, tile := range s.Tiles() {
			buf, _ := tile.NativeBuffer(true)
			if buf[0] != 1 || buf[1] != 2 || buf[2] != 3 || buf[3] != 4 || buf[4] != 0 {
				t.Errorf("%v: tile %v mutated by null-tile writes", size, tile.Pos())
			}
		}
	}
}

func TestRequesterNotifiesOnlyForWrites(t *testing.T) {
	s := newTestSurface(t, 128, 128)
	var got []image.Point
	remove := s.OnTileChanged(func(tile *Tile) { got = append(got, tile.Pos()) })
	req := requester{s}

	req.TileRequestStart(1, 1, true)
	req.TileRequestEnd(1, 1, true)
	req.TileRequestStart(0, 1, false)
	req.TileRequestEnd(0, 1, false)
	req.TileRequestStart(9, 9, false)
	req.TileRequestEnd(9, 9, false)

	if len(got) != 1 || got[0] != image.Pt(0, 1) {
		t.Errorf("notifications = %v, want [(0,1)]", got)
	}
	remove()
	req.TileRequestStart(0, 0, false)
	req.TileRequestEnd(0, 0, false)
	if len(got) != 1 {
		t.Error("removed listener still notified")
	}
}

func TestSurfaceReset(t *testing.T) {
	s := newTestSurface(t, 128, 128)
	old := s.GetOrCreateTile(0, 0)
	if err := s.Reset(image.Pt(200, 10)); err != nil {
		t.Fatal(err)
	}
	if old.Valid() {
		t.Error("old tile still valid after Reset")
	}
	if tx, ty := s.GridSize(); tx != 4 || ty != 1 {
		t.Errorf("GridSize() = %d,%d, want 4,1", tx, ty)
	}
	if len(s.Tiles()) != 0 {
		t.Error("Reset kept tiles")
	}
	if err := s.Reset(image.Point{}); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("Reset(0,0) = %v", err)
	}
}

func TestSurfaceLoadAndRenderImage(t *testing.T) {
	s := newTestSurface(t, 150, 70)
	src := image.NewRGBA(image.Rect(0, 0, 150, 70))
	for y := range 70 {
		for x := range 60 { // columns 60+ stay transparent
			src.SetRGBA(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 3), B: 9, A: 255})
		}
	}
	if err := s.LoadImage(src); err != nil {
		t.Fatal(err)
	}
	// Tiles (1,*) and (2,*) cover only transparent pixels.
	for _, tile := range s.Tiles() {
		if tile.Pos().X != 0 {
			t.Errorf("transparent region materialised tile %v", tile.Pos())
		}
	}
	got := s.RenderImage()
	for y := range 70 {
		for x := range 150 {
			if got.RGBAAt(x, y) != src.RGBAAt(x, y) {
				t.Fatalf("RenderImage(%d,%d) = %v, want %v", x, y, got.RGBAAt(x, y), src.RGBAAt(x, y))
			}
		}
	}

	if err := s.LoadImage(image.NewRGBA(image.Rect(0, 0, 10, 10))); !errors.Is(err, ErrGeometryMismatch) {
		t.Errorf("LoadImage(wrong size) = %v", err)
	}
}

func TestSurfaceLoadImageClearsNowTransparentTiles(t *testing.T) {
	s := newTestSurface(t, 64, 64)
	_ = s.GetOrCreateTile(0, 0).DrawPixel(1, 1, pixel.One, 0, 0, pixel.One)
	if err := s.LoadImage(image.NewRGBA(image.Rect(0, 0, 64, 64))); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.GetOrCreateTile(0, 0).IsFullyTransparent(); !ok {
		t.Error("loading a transparent image left old pixels")
	}
}

func TestSurfaceSetMask(t *testing.T) {
	s := newTestSurface(t, 100, 64)
	flushed := 0
	s.flush = func() error { flushed++; return nil }

	if err := s.SetMask(image.NewAlpha(image.Rect(0, 0, 64, 64))); !errors.Is(err, ErrGeometryMismatch) {
		t.Errorf("SetMask(wrong size) = %v", err)
	}
	existing := s.GetOrCreateTile(0, 0)
	if err := s.SetMask(leftHalfMask(image.Rect(0, 0, 100, 64))); err != nil {
		t.Fatal(err)
	}
	if flushed != 1 {
		t.Errorf("flushed %d times, want 1", flushed)
	}
	if existing.Mask() == nil {
		t.Fatal("existing tile did not get a mask")
	}
	fresh := s.GetOrCreateTile(1, 0)
	m := fresh.Mask()
	if m == nil {
		t.Fatal("new tile did not get a mask")
	}
	// Surface x=64..99 is tile-local 0..35; the mask is opaque below x=50.
	if m.AlphaAt(0, 0).A != 0 {
		t.Error("tile (1,0) mask not cleared right of the split")
	}
	if existing.Mask().AlphaAt(49, 0).A != 255 || existing.Mask().AlphaAt(50, 0).A != 0 {
		t.Error("tile (0,0) mask sliced wrongly")
	}
	if m.AlphaAt(40, 0).A != 0 {
		t.Error("pixels beyond the surface edge are not masked out")
	}
	if err := s.SetMask(nil); err != nil || existing.Mask() != nil {
		t.Errorf("SetMask(nil) = %v, mask %v", err, existing.Mask())
	}
}

func TestSurfaceCoordinateMapping(t *testing.T) {
	s := newTestSurface(t, 128, 128)
	before := s.BoundsChanged()
	s.SetOffset(image.Pt(10, 20))
	if !s.BoundsChanged().After(before) {
		t.Error("SetOffset did not advance BoundsChanged")
	}
	if got := s.LayerRect(s.TileRect(1, 1)); got != image.Rect(74, 84, 138, 148) {
		t.Errorf("LayerRect = %v", got)
	}
	x, y := s.SurfacePoint(15, 25)
	if !near(x, 5) || !near(y, 5) {
		t.Errorf("SurfacePoint(15,25) = %v,%v, want 5,5", x, y)
	}

	s.SetTransform(Scale(2, 2))
	if got := s.LayerRect(image.Rect(0, 0, 10, 10)); got != image.Rect(10, 20, 30, 40) {
		t.Errorf("scaled LayerRect = %v", got)
	}
	x, y = s.SurfacePoint(30, 40)
	if !near(x, 10) || !near(y, 10) {
		t.Errorf("scaled SurfacePoint = %v,%v, want 10,10", x, y)
	}
}

func TestSurfaceBindFollowsLayer(t *testing.T) {
	lay := layer.NewMemory(image.Pt(64, 64))
	_ = lay.Write(image.Rect(0, 0, 4, 4), func(v *pixel.BGRA) error {
		v.Fill(v.Rect, opaqueBlue)
		return nil
	})
	s := newTestSurface(t, 64, 64)
	if err := s.Bind(lay); err != nil {
		t.Fatal(err)
	}
	if got := s.RenderImage().RGBAAt(2, 2); got != opaqueBlue {
		t.Errorf("Bind did not load layer pixels: %v", got)
	}

	lay.Resize(image.Pt(200, 30))
	if s.Size() != image.Pt(200, 30) {
		t.Errorf("surface size after layer resize = %v", s.Size())
	}
	if got := s.RenderImage().RGBAAt(2, 2); got != opaqueBlue {
		t.Errorf("pixels not reloaded after resize: %v", got)
	}

	s.Close()
	lay.Resize(image.Pt(10, 10))
	if s.Size() != image.Pt(200, 30) {
		t.Error("closed surface still follows the layer")
	}
}

func TestSurfaceChangedTracksTiles(t *testing.T) {
	s := newTestSurface(t, 64, 64)
	before := s.Changed()
	_ = s.GetOrCreateTile(0, 0).DrawPixel(0, 0, 0, 0, 0, 1)
	if !s.Changed().After(before) {
		t.Error("tile write did not advance Surface.Changed")
	}
}

func TestSurfaceSyncReloadsChangedTiles(t *testing.T) {
	tests := []struct {
		name   string
		offset image.Point
		change image.Rectangle // layer space
		at     image.Point     // surface space
		tile   image.Point
	}{
		{"origin", image.Point{}, image.Rect(70, 10, 80, 20), image.Pt(75, 15), image.Pt(1, 0)},
		{"offset", image.Pt(10, 0), image.Rect(80, 10, 90, 20), image.Pt(75, 15), image.Pt(1, 0)},
		{"second row", image.Point{}, image.Rect(5, 70, 9, 74), image.Pt(6, 71), image.Pt(0, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lay := layer.NewMemory(image.Pt(200, 200))
			s := newTestSurface(t, 128, 128)
			s.SetOffset(tt.offset)
			if err := s.Bind(lay); err != nil {
				t.Fatal(err)
			}
			_ = lay.Write(tt.change, func(v *pixel.BGRA) error {
				v.Fill(v.Rect, opaqueBlue)
				return nil
			})
			if got := s.OutOfSync(); got != tt.change {
				t.Fatalf("OutOfSync() = %v, want %v", got, tt.change)
			}
			if got := s.RenderImage().RGBAAt(tt.at.X, tt.at.Y); got.A != 0 {
				t.Fatalf("surface changed before Sync: %v", got)
			}

			if err := s.Sync(); err != nil {
				t.Fatalf("Sync() error = %v", err)
			}
			if got := s.RenderImage().RGBAAt(tt.at.X, tt.at.Y); got != opaqueBlue {
				t.Errorf("after Sync %v = %v, want blue", tt.at, got)
			}
			if got := len(s.Tiles()); got != 1 {
				t.Errorf("live tiles = %d, want only %v", got, tt.tile)
			}
			if s.tileAt(tt.tile.X, tt.tile.Y) == nil {
				t.Errorf("tile %v not loaded", tt.tile)
			}
			if got := s.OutOfSync(); !got.Empty() {
				t.Errorf("OutOfSync() = %v after Sync", got)
			}
		})
	}
}

func TestSurfaceSyncClearsErasedTiles(t *testing.T) {
	lay := layer.NewMemory(image.Pt(64, 64))
	_ = lay.Write(image.Rect(0, 0, 8, 8), func(v *pixel.BGRA) error {
		v.Fill(v.Rect, opaqueBlue)
		return nil
	})
	s := newTestSurface(t, 64, 64)
	if err := s.Bind(lay); err != nil {
		t.Fatal(err)
	}
	if ok, err := lay.Undo(); !ok || err != nil {
		t.Fatalf("Undo() = %v, %v", ok, err)
	}
	if err := s.Sync(); err != nil {
		t.Fatal(err)
	}
	if got := s.RenderImage().RGBAAt(2, 2); got.A != 0 {
		t.Errorf("undone pixel still on the surface: %v", got)
	}
}

func TestSurfaceIgnoresOwnWriteBack(t *testing.T) {
	r := newRig(t, image.Pt(128, 128), image.Pt(128, 128))
	if err := r.surface.Bind(r.layer); err != nil {
		t.Fatal(err)
	}
	r.session.StartStroke()
	r.session.BasicStrokeTo(10, 10)
	r.session.BasicStrokeTo(100, 10)
	r.session.EndStroke()
	if len(r.layer.writes) == 0 {
		t.Fatal("nothing written back")
	}
	if got := r.surface.OutOfSync(); !got.Empty() {
		t.Errorf("OutOfSync() = %v after own write-back", got)
	}
}

func TestSurfaceSyncWithoutLayer(t *testing.T) {
	s := newTestSurface(t, 64, 64)
	if err := s.Sync(); err != nil {
		t.Errorf("Sync() on an unbound surface = %v", err)
	}
	s.Close()
	if err := s.Sync(); !errors.Is(err, ErrClosed) {
		t.Errorf("Sync() after Close = %v, want ErrClosed", err)
	}
}
