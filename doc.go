// Package tilebrush is a tiled raster drawing surface driven by a stroke
// engine, with deferred write-back into an undo-tracked image layer and
// hue, saturation, colour and luminosity compositing.
//
// # Overview
//
// A [Surface] is a grid of 64×64 [Tile] values created on demand. A
// [NativeBridge] connects the surface to a stroke engine (libmypaint when
// built with -tags mypaint, otherwise the built-in "soft" engine). The
// engine writes 16-bit premultiplied pixels straight into tile buffers;
// tiles convert them to 8-bit premultiplied BGRA for display.
//
// A [StrokeSession] turns pointer input into engine calls and records the
// tiles each stroke touches. A [WriteBackScheduler] coalesces those tiles
// into one exclusive write per batch on a [BackingLayer].
//
// # Quick Start
//
//	loop := tilebrush.NewEventLoop()
//	cfg := tilebrush.NewConfig(tilebrush.WithScheduler(loop))
//
//	lay := layer.NewMemory(image.Pt(512, 512))
//	surf, _ := tilebrush.NewSurface(lay.Size(), cfg)
//	surf.Bind(lay)
//
//	bridge, err := tilebrush.NewNativeBridge(surf, cfg)
//	if err != nil {
//	    log.Fatal(err) // no engine could start
//	}
//	bridge.Brush().SetColor(color.RGBA{R: 255, A: 255})
//
//	session := tilebrush.NewStrokeSession(bridge, tilebrush.NewWriteBackScheduler(surf, lay, cfg))
//	session.StartStroke()
//	session.BasicStrokeTo(10, 10)
//	session.BasicStrokeTo(200, 120)
//	session.EndStroke()
//
// # Compositing
//
// [ComposableSurfaceItem] places a tile or surface in a [Scene]. Direct
// composite modes blend straight onto the [Canvas]; the HLS modes (color,
// luminosity, hue, saturation) blend against a cached rendering of the
// items beneath.
//
// # Threading
//
// The package is single-threaded. Deferred write-back runs through a
// [Scheduler]; [EventLoop] delivers timers on the goroutine that drives it.
//
// # Logging
//
// tilebrush is silent by default. See [SetLogger] and [WithLogger].
package tilebrush
