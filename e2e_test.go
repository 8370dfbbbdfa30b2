package tilebrush

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/gogpu/tilebrush/pixel"
)

func TestEndToEndRedDot(t *testing.T) {
	r := newRig(t, image.Pt(128, 128), image.Pt(128, 128))
	r.dot(10, 10)

	img := r.layer.Image()
	got := img.RGBAAt(10, 10)
	if got.A == 0 {
		t.Fatal("no paint at the dot")
	}
	if got.R < 250 || got.G > 5 || got.B > 5 {
		t.Errorf("dot colour = %v, want about red", got)
	}
	if got := img.RGBAAt(100, 100); got != (color.RGBA{}) {
		t.Errorf("(100,100) = %v, want transparent", got)
	}
	if r.session.Active() || r.wb.Pending() != 0 {
		t.Error("stroke left state behind")
	}
}

func TestEndToEndMaskedDraw(t *testing.T) {
	r := newRig(t, image.Pt(128, 128), image.Pt(128, 128))
	fillLayer(t, r, opaqueBlue)
	if err := r.surface.Bind(r.layer); err != nil {
		t.Fatal(err)
	}
	if err := r.surface.SetMask(leftHalfMask(image.Rect(0, 0, 128, 128))); err != nil {
		t.Fatal(err)
	}
	r.bridge.Brush().SetRadius(30)

	r.session.StartStroke()
	for x := 0.0; x <= 128; x += 4 {
		r.session.BasicStrokeTo(x, 64)
	}
	r.session.EndStroke()

	img := r.layer.Image()
	if got := img.RGBAAt(30, 64); got != opaqueRed {
		t.Errorf("left half (30,64) = %v, want red", got)
	}
	for y := range 128 {
		for x := 64; x < 128; x++ {
			if got := img.RGBAAt(x, y); got != opaqueBlue {
				t.Fatalf("right half (%d,%d) = %v, want unchanged blue", x, y, got)
			}
		}
	}
}

func TestEndToEndUndoRestoresLayer(t *testing.T) {
	r := newRig(t, image.Pt(64, 64), image.Pt(64, 64))
	r.dot(20, 20)
	if r.layer.Image().RGBAAt(20, 20).A == 0 {
		t.Fatal("dot not written")
	}
	if ok, err := r.layer.Undo(); !ok || err != nil {
		t.Fatalf("Undo() = %v, %v", ok, err)
	}
	if got := r.layer.Image().RGBAAt(20, 20); got.A != 0 {
		t.Errorf("after undo (20,20) = %v", got)
	}
}

func TestEndToEndEventLoop(t *testing.T) {
	loop := NewEventLoop()
	r := newRig(t, image.Pt(64, 64), image.Pt(64, 64), WithScheduler(loop), WithWriteBackInterval(time.Millisecond))

	r.session.StartStroke()
	r.session.BasicStrokeTo(5, 5)
	if len(r.layer.writes) != 0 {
		t.Fatal("write-back ran synchronously")
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(r.layer.writes) == 0 && time.Now().Before(deadline) {
		loop.RunPending()
		time.Sleep(time.Millisecond)
	}
	if len(r.layer.writes) != 1 {
		t.Fatalf("event loop wrote %d times, want 1", len(r.layer.writes))
	}
	r.session.EndStroke()
}

func TestEndToEndLayerChangesSurviveNextStroke(t *testing.T) {
	isRed := func(c color.RGBA) bool { return c.A == 255 && c.R >= 250 && c.B <= 5 }
	tests := []struct {
		name  string
		setup func(t *testing.T, r *rig)
		red   []image.Point
		clear []image.Point
		blue  []image.Point
	}{
		{
			name: "undo then draw in the same tile",
			setup: func(t *testing.T, r *rig) {
				r.dot(10, 10)
				if ok, err := r.layer.Undo(); !ok || err != nil {
					t.Fatalf("Undo() = %v, %v", ok, err)
				}
			},
			red:   []image.Point{{50, 50}},
			clear: []image.Point{{10, 10}},
		},
		{
			name: "undo then redo",
			setup: func(t *testing.T, r *rig) {
				r.dot(10, 10)
				_, _ = r.layer.Undo()
				if ok, err := r.layer.Redo(); !ok || err != nil {
					t.Fatalf("Redo() = %v, %v", ok, err)
				}
			},
			red: []image.Point{{10, 10}, {50, 50}},
		},
		{
			name: "another writer in the same tile",
			setup: func(t *testing.T, r *rig) {
				err := r.layer.Memory.Write(image.Rect(30, 30, 34, 34), func(v *pixel.BGRA) error {
					v.Fill(v.Rect, opaqueBlue)
					return nil
				})
				if err != nil {
					t.Fatal(err)
				}
			},
			red:  []image.Point{{50, 50}},
			blue: []image.Point{{30, 30}, {33, 33}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t, image.Pt(128, 128), image.Pt(128, 128))
			if err := r.surface.Bind(r.layer); err != nil {
				t.Fatal(err)
			}
			tt.setup(t, r)
			r.dot(50, 50)

			img := r.layer.Image()
			for _, p := range tt.red {
				if got := img.RGBAAt(p.X, p.Y); !isRed(got) {
					t.Errorf("%v = %v, want red", p, got)
				}
			}
			for _, p := range tt.clear {
				if got := img.RGBAAt(p.X, p.Y); got.A != 0 {
					t.Errorf("%v = %v, want transparent", p, got)
				}
			}
			for _, p := range tt.blue {
				if got := img.RGBAAt(p.X, p.Y); got != opaqueBlue {
					t.Errorf("%v = %v, want blue", p, got)
				}
			}
			if got := r.surface.OutOfSync(); !got.Empty() {
				t.Errorf("OutOfSync() = %v after the stroke", got)
			}
		})
	}
}
