package tilebrush

import (
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/tilebrush/internal/engine"
	"github.com/gogpu/tilebrush/layer"
	"github.com/gogpu/tilebrush/pixel"
)

var (
	opaqueRed  = color.RGBA{R: 255, A: 255}
	opaqueBlue = color.RGBA{B: 255, A: 255}
)

// recordingLayer is a layer.Memory that records every Write.
type recordingLayer struct {
	*layer.Memory
	writes []image.Rectangle
}

func newRecordingLayer(size image.Point) *recordingLayer {
	return &recordingLayer{Memory: layer.NewMemory(size)}
}

func (l *recordingLayer) Write(r image.Rectangle, fn func(*pixel.BGRA) error) error {
	l.writes = append(l.writes, r)
	return l.Memory.Write(r, fn)
}

// rig is a complete drawing stack on the soft engine.
type rig struct {
	cfg     Config
	sched   *ManualScheduler
	layer   *recordingLayer
	surface *Surface
	bridge  *NativeBridge
	wb      *WriteBackScheduler
	session *StrokeSession
}

func newRig(t *testing.T, surfaceSize, layerSize image.Point, opts ...Option) *rig {
	t.Helper()
	sched := NewManualScheduler()
	cfg := NewConfig(append([]Option{WithEngine(engine.NameSoft), WithScheduler(sched)}, opts...)...)

	lay := newRecordingLayer(layerSize)
	surf, err := NewSurface(surfaceSize, cfg)
	if err != nil {
		t.Fatalf("NewSurface() error = %v", err)
	}
	bridge, err := NewNativeBridge(surf, cfg)
	if err != nil {
		t.Fatalf("NewNativeBridge() error = %v", err)
	}
	t.Cleanup(func() {
		_ = bridge.Close()
		surf.Close()
	})
	b := bridge.Brush()
	b.SetColor(opaqueRed)
	b.SetValue(SettingHardness, 1)

	wb := NewWriteBackScheduler(surf, lay, cfg)
	return &rig{
		cfg:     cfg,
		sched:   sched,
		layer:   lay,
		surface: surf,
		bridge:  bridge,
		wb:      wb,
		session: NewStrokeSession(bridge, wb),
	}
}

// dot draws a single dab.
func (r *rig) dot(x, y float64) {
	r.session.StartStroke()
	r.session.BasicStrokeTo(x, y)
	r.session.EndStroke()
}

func newTestTile(t *testing.T) *Tile {
	t.Helper()
	tile := NewTile(NewConfig())
	t.Cleanup(tile.destroy)
	return tile
}

func leftHalfMask(r image.Rectangle) *image.Alpha {
	m := image.NewAlpha(r)
	mid := r.Min.X + r.Dx()/2
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < mid; x++ {
			m.SetAlpha(x, y, color.Alpha{A: 255})
		}
	}
	return m
}
