// Command tilebrushdemo paints a few strokes onto an in-memory layer,
// composites the result over a gradient with a chosen mode and saves it
// as PNG. The composite goes through the texture upload path of the chosen
// canvas format, and -texels also writes the raw upload buffer.
package main

import (
	"context"
	"flag"
	"image"
	"image/color"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/tilebrush"
	"github.com/gogpu/tilebrush/layer"
)

func main() {
	var (
		width   = flag.Int("width", 512, "image width")
		height  = flag.Int("height", 384, "image height")
		output  = flag.String("output", "tilebrush.png", "output file")
		mode    = flag.String("mode", "normal", "composite mode of the painted layer")
		engine  = flag.String("engine", "", "stroke engine (default: best available)")
		brush   = flag.String("brush", "", "brush definition file (.myb)")
		masked  = flag.Bool("mask", false, "restrict painting to the left half")
		format  = flag.String("format", "BGRA8Unorm", "canvas texture format")
		texels  = flag.String("texels", "", "also write the raw texture upload buffer here")
		verbose = flag.Bool("v", false, "log to stderr")
	)
	flag.Parse()

	logger := slog.New(slog.DiscardHandler)
	if *verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		tilebrush.SetLogger(logger)
	}
	m, err := tilebrush.ParseCompositeMode(*mode)
	if err != nil {
		log.Fatalf("Bad mode: %v (have %v)", err, tilebrush.CompositeModes())
	}
	tf, err := tilebrush.ParseCanvasFormat(*format)
	if err != nil {
		log.Fatalf("Bad format: %v", err)
	}

	size := image.Pt(*width, *height)
	loop := tilebrush.NewEventLoop()
	cfg := tilebrush.NewConfig(
		tilebrush.WithEngine(*engine),
		tilebrush.WithScheduler(loop),
	)

	paint := layer.NewMemory(size)
	surface, err := tilebrush.NewSurface(size, cfg)
	if err != nil {
		log.Fatalf("Failed to create surface: %v", err)
	}
	defer surface.Close()
	if err := surface.Bind(paint); err != nil {
		log.Fatalf("Failed to bind layer: %v", err)
	}

	bridge, err := tilebrush.NewNativeBridge(surface, cfg)
	if err != nil {
		log.Fatalf("Failed to start engine: %v", err)
	}
	defer bridge.Close()
	if *brush != "" {
		data, err := os.ReadFile(*brush)
		if err != nil {
			log.Fatalf("Failed to read brush: %v", err)
		}
		if err := bridge.Brush().Load(data); err != nil {
			log.Fatalf("Failed to load brush: %v", err)
		}
	}

	wb := tilebrush.NewWriteBackScheduler(surface, paint, cfg)
	session := tilebrush.NewStrokeSession(bridge, wb)
	defer session.Close()

	if *masked {
		if err := surface.SetMask(leftHalf(size)); err != nil {
			log.Fatalf("Failed to set mask: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	loop.Post(func() {
		drawStrokes(session, bridge.Brush(), size)
		// Let the debounce timer commit the last batch, then stop.
		loop.AfterFunc(2*tilebrush.DefaultWriteBackInterval, cancel)
	})
	if err := loop.Run(ctx); err != nil && ctx.Err() != context.Canceled {
		log.Fatalf("Event loop: %v", err)
	}
	if err := wb.Stop(); err != nil {
		log.Fatalf("Failed to write back: %v", err)
	}

	canvas := composite(paint, m, tf, cfg)
	data, layout, extent := canvas.Texels()
	logger.Info("tilebrushdemo: texture upload", "format", canvas.Format(),
		"bytes_per_row", layout.BytesPerRow, "rows", layout.RowsPerImage, "size", len(data))
	if *texels != "" {
		if err := os.WriteFile(*texels, data, 0o644); err != nil {
			log.Fatalf("Failed to write texels: %v", err)
		}
	}
	if err := savePNG(*output, texelImage(data, layout, extent, canvas.Format())); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	log.Printf("Demo saved to %s (%dx%d, engine %s, mode %s, format %s, %d undo steps)\n",
		*output, size.X, size.Y, bridge.Engine(), m, canvas.Format(), paint.UndoDepth())
}

func drawStrokes(s *tilebrush.StrokeSession, b tilebrush.Brush, size image.Point) {
	w, h := float64(size.X), float64(size.Y)
	colors := []color.RGBA{{R: 220, G: 40, B: 40, A: 255}, {R: 40, G: 160, B: 60, A: 255}, {R: 30, G: 60, B: 200, A: 255}}

	for i, c := range colors {
		b.SetColor(c)
		b.SetRadius(6 + 4*float64(i))
		s.StartStroke()
		for step := 0; step <= 100; step++ {
			t := float64(step) / 100
			x := w * (0.1 + 0.8*t)
			y := h * (0.3 + 0.2*float64(i) + 0.1*math.Sin(t*2*math.Pi*float64(i+1)))
			pressure := 0.4 + 0.6*math.Sin(t*math.Pi)
			s.StrokeTo(x, y, pressure, 0, 0, 0.01)
		}
		s.EndStroke()
	}
}

func leftHalf(size image.Point) *image.Alpha {
	m := image.NewAlpha(image.Rectangle{Max: size})
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X/2; x++ {
			m.SetAlpha(x, y, color.Alpha{A: 255})
		}
	}
	return m
}

// composite paints a gradient backdrop and the painted layer on top.
func composite(paint *layer.Memory, m tilebrush.CompositeMode, tf gputypes.TextureFormat, cfg tilebrush.Config) *tilebrush.Canvas {
	size := paint.Size()
	bg := image.NewRGBA(image.Rectangle{Max: size})
	for y := 0; y < size.Y; y++ {
		t := float64(y) / float64(size.Y)
		for x := 0; x < size.X; x++ {
			bg.SetRGBA(x, y, color.RGBA{
				R: uint8(40 + 150*t),
				G: uint8(90 + 100*float64(x)/float64(size.X)),
				B: uint8(200 - 120*t),
				A: 255,
			})
		}
	}

	paintSurface, err := tilebrush.NewSurface(size, cfg)
	if err != nil {
		log.Fatalf("Failed to create surface: %v", err)
	}
	defer paintSurface.Close()
	if err := paintSurface.LoadImage(paint.Image()); err != nil {
		log.Fatalf("Failed to load layer: %v", err)
	}

	scene := tilebrush.NewScene()
	scene.Add(tilebrush.NewImageItem(bg, image.Point{}, cfg))
	item := tilebrush.NewComposableSurfaceItem(paintSurface, cfg)
	item.SetMode(m)
	scene.Add(item)

	canvas, err := tilebrush.NewCanvasFormat(image.Rectangle{Max: size}, tf)
	if err != nil {
		log.Fatalf("Failed to create canvas: %v", err)
	}
	scene.Render(canvas, canvas.Bounds())
	return canvas
}

// texelImage reads an upload buffer back the way a GPU would see it.
func texelImage(data []byte, layout gputypes.TextureDataLayout, extent gputypes.Extent3D, tf gputypes.TextureFormat) *image.RGBA {
	w, h := int(extent.Width), int(extent.Height)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	bgra := tf == gputypes.TextureFormatBGRA8Unorm || tf == gputypes.TextureFormatBGRA8UnormSrgb
	for y := range h {
		src := data[y*int(layout.BytesPerRow):][:4*w]
		dst := img.Pix[y*img.Stride:][:4*w]
		copy(dst, src)
		if bgra {
			for i := 0; i < len(dst); i += 4 {
				dst[i], dst[i+2] = dst[i+2], dst[i]
			}
		}
	}
	return img
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
