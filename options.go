package tilebrush

import (
	"log/slog"
	"time"

	"github.com/gogpu/tilebrush/internal/blend"
)

// Defaults used when a Config field is left zero.
const (
	DefaultWriteBackInterval        = 100 * time.Millisecond
	DefaultColorCorrectionThreshold = 3.0
	DefaultBlendAlphaThreshold      = blend.DefaultAlphaThreshold
)

// Config carries everything a surface, bridge or scene needs to know about
// its environment. There is no global configuration; build one with
// NewConfig and pass it to the constructors.
//
// Example:
//
//	loop := tilebrush.NewEventLoop()
//	cfg := tilebrush.NewConfig(
//	    tilebrush.WithEngine("soft"),
//	    tilebrush.WithScheduler(loop),
//	)
//	surf, err := tilebrush.NewSurface(image.Pt(512, 512), cfg)
type Config struct {
	// Engine names the stroke engine; empty selects the best available.
	Engine string

	// WriteBackInterval is the debounce delay between the first dirty tile
	// and the batched write into the backing layer.
	WriteBackInterval time.Duration

	// ColorCorrectionThreshold is the RGB distance (0-255 space) a masked
	// write must exceed before it replaces a non-transparent layer pixel.
	ColorCorrectionThreshold float64

	// BlendAlphaThreshold gates the HLS composite modes: pixels whose alpha
	// is not above it on both sides are left untouched.
	BlendAlphaThreshold uint8

	// Clock provides change timestamps. Configs without one share a
	// process-wide clock, so their timestamps never tie. A custom clock is
	// wrapped per Config; pass one Config's Clock to another to share it.
	Clock Clock

	// Scheduler arms write-back timers. Without one, pending tiles are
	// only written by an explicit flush or at the end of a stroke.
	Scheduler Scheduler

	// Logger overrides the package logger.
	Logger *slog.Logger

	// explicitly zero thresholds are legitimate values.
	ccSet, alphaSet bool
}

// Option configures a Config.
type Option func(*Config)

// NewConfig returns a Config with defaults applied, then opts.
func NewConfig(opts ...Option) Config {
	var c Config
	for _, opt := range opts {
		opt(&c)
	}
	return c.withDefaults()
}

// WithEngine selects the stroke engine by registry name.
func WithEngine(name string) Option {
	return func(c *Config) { c.Engine = name }
}

// WithWriteBackInterval sets the write-back debounce delay.
func WithWriteBackInterval(d time.Duration) Option {
	return func(c *Config) { c.WriteBackInterval = d }
}

// WithColorCorrectionThreshold sets the masked-write RGB distance threshold.
func WithColorCorrectionThreshold(v float64) Option {
	return func(c *Config) {
		c.ColorCorrectionThreshold = v
		c.ccSet = true
	}
}

// WithBlendAlphaThreshold sets the alpha gate of the HLS composite modes.
func WithBlendAlphaThreshold(a uint8) Option {
	return func(c *Config) {
		c.BlendAlphaThreshold = a
		c.alphaSet = true
	}
}

// WithClock sets the timestamp source.
func WithClock(clk Clock) Option {
	return func(c *Config) { c.Clock = clk }
}

// WithScheduler sets the scheduler for deferred write-back.
func WithScheduler(s Scheduler) Option {
	return func(c *Config) { c.Scheduler = s }
}

// WithLogger overrides the package logger for objects built from the config.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

func (c Config) withDefaults() Config {
	if c.WriteBackInterval <= 0 {
		c.WriteBackInterval = DefaultWriteBackInterval
	}
	if !c.ccSet && c.ColorCorrectionThreshold == 0 {
		c.ColorCorrectionThreshold = DefaultColorCorrectionThreshold
	}
	if !c.alphaSet && c.BlendAlphaThreshold == 0 {
		c.BlendAlphaThreshold = DefaultBlendAlphaThreshold
	}
	if c.Clock == nil {
		c.Clock = defaultClock
	}
	if _, ok := c.Clock.(*stampClock); !ok {
		c.Clock = newStampClock(c.Clock)
	}
	c.ccSet, c.alphaSet = true, true
	return c
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return Logger()
}
