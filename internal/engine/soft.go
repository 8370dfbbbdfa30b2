package engine

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
)

func init() {
	Register(NameSoft, func() Engine { return &softEngine{} })
}

// softOne is full intensity in the native tile format.
const softOne = 1 << 15

// softEngine paints round dabs along each stroke segment. It models none of
// libmypaint's dynamics beyond radius, hardness, opacity, colour, eraser,
// pressure and dab spacing.
type softEngine struct {
	initialized bool
}

func (e *softEngine) Name() string { return NameSoft }

func (e *softEngine) Init() error {
	e.initialized = true
	return nil
}

func (e *softEngine) NewBrush() (Brush, error) {
	if !e.initialized {
		return nil, ErrNotInitialized
	}
	b := &softBrush{}
	b.fromDefaults()
	return b, nil
}

func (e *softEngine) NewSurface(req TileRequester) (Surface, error) {
	if !e.initialized {
		return nil, ErrNotInitialized
	}
	return &softSurface{req: req}, nil
}

func (e *softEngine) Close() error {
	e.initialized = false
	return nil
}

type softBrush struct {
	values [settingCount]float64
	closed bool

	// Stroke state.
	started  bool
	x, y     float64
	pressure float64
	// partial is the fraction of a dab interval already travelled.
	partial float64
}

func (b *softBrush) fromDefaults() {
	b.values = defaultValues
}

func (b *softBrush) BaseValue(s Setting) float64 {
	if s < 0 || s >= settingCount {
		return 0
	}
	return b.values[s]
}

func (b *softBrush) SetBaseValue(s Setting, v float64) {
	if s < 0 || s >= settingCount {
		return
	}
	b.values[s] = v
}

// brushFile is the subset of the .myb format the soft engine reads.
type brushFile struct {
	Version  int `json:"version"`
	Settings map[string]struct {
		BaseValue float64 `json:"base_value"`
	} `json:"settings"`
}

func (b *softBrush) LoadJSON(data []byte) error {
	var f brushFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBrush, err)
	}
	if f.Settings == nil {
		return fmt.Errorf("%w: no settings", ErrInvalidBrush)
	}
	b.fromDefaults()
	for name, v := range f.Settings {
		if s, ok := SettingFromCName(name); ok {
			b.values[s] = v.BaseValue
		}
	}
	return nil
}

func (b *softBrush) NewStroke() {
	b.started = false
	b.partial = 0
}

func (b *softBrush) Reset() {
	b.NewStroke()
	b.x, b.y, b.pressure = 0, 0, 0
}

func (b *softBrush) Close() { b.closed = true }

func (b *softBrush) radius() float64 {
	return math.Exp(b.values[SettingRadiusLogarithmic])
}

// dab describes one round dab in native units.
type dab struct {
	x, y, radius float64
	hardness     float64
	alpha        float64
	r, g, b      uint32
	eraser       bool
	lockAlpha    bool
}

func (b *softBrush) dabAt(x, y, pressure float64) dab {
	opacity := clamp01(b.values[SettingOpaque])
	if b.values[SettingOpaqueMultiply] != 0 {
		opacity *= clamp01(b.values[SettingOpaqueMultiply])
	}
	opacity *= clamp01(pressure)
	r, g, bl := hsvToRGB(b.values[SettingColorH], b.values[SettingColorS], b.values[SettingColorV])
	return dab{
		x:         x,
		y:         y,
		radius:    b.radius(),
		hardness:  math.Max(clamp01(b.values[SettingHardness]), 0.001),
		alpha:     opacity,
		r:         uint32(r*softOne + 0.5),
		g:         uint32(g*softOne + 0.5),
		b:         uint32(bl*softOne + 0.5),
		eraser:    b.values[SettingEraser] > 0.5,
		lockAlpha: b.values[SettingLockAlpha] > 0.5,
	}
}

type softSurface struct {
	req    TileRequester
	atomic int
	closed bool
	dirty  image.Rectangle
}

func (s *softSurface) BeginAtomic() {
	if s.atomic == 0 {
		s.dirty = image.Rectangle{}
	}
	s.atomic++
}

func (s *softSurface) EndAtomic() (image.Rectangle, error) {
	if s.atomic > 0 {
		s.atomic--
	}
	return s.dirty, nil
}

func (s *softSurface) Close() { s.closed = true }

func (s *softSurface) StrokeTo(br Brush, x, y, pressure, xtilt, ytilt, dtime float64) error {
	if s.closed {
		return ErrClosed
	}
	if s.atomic == 0 {
		return ErrNotAtomic
	}
	b, ok := br.(*softBrush)
	if !ok {
		return ErrForeignBrush
	}
	if b.closed {
		return ErrClosed
	}
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return fmt.Errorf("engine: invalid stroke position (%v, %v)", x, y)
	}

	if !b.started {
		b.started = true
		b.x, b.y, b.pressure = x, y, pressure
		b.partial = 0
		if pressure > 0 {
			s.drawDab(b.dabAt(x, y, pressure))
		}
		return nil
	}

	dx, dy := x-b.x, y-b.y
	dist := math.Hypot(dx, dy)
	spacing := b.radius() / math.Max(b.values[SettingDabsPerActualRadius], 0.1)
	if spacing < 0.5 {
		spacing = 0.5
	}

	// Walk the segment placing a dab every spacing pixels, carrying the
	// remainder over to the next segment.
	travelled := (1 - b.partial) * spacing
	for travelled <= dist && dist > 0 {
		t := travelled / dist
		p := b.pressure + (pressure-b.pressure)*t
		if p > 0 {
			s.drawDab(b.dabAt(b.x+dx*t, b.y+dy*t, p))
		}
		travelled += spacing
	}
	if dist > 0 {
		b.partial = 1 - (travelled-dist)/spacing
	}
	b.x, b.y, b.pressure = x, y, pressure
	return nil
}

func (s *softSurface) drawDab(d dab) {
	if d.alpha <= 0 || d.radius <= 0 {
		return
	}
	bounds := image.Rect(
		int(math.Floor(d.x-d.radius)), int(math.Floor(d.y-d.radius)),
		int(math.Ceil(d.x+d.radius))+1, int(math.Ceil(d.y+d.radius))+1,
	)
	tx0, ty0 := floorDiv(bounds.Min.X, TileSize), floorDiv(bounds.Min.Y, TileSize)
	tx1, ty1 := floorDiv(bounds.Max.X-1, TileSize), floorDiv(bounds.Max.Y-1, TileSize)

	for ty := ty0; ty <= ty1; ty++ {
		for tx := tx0; tx <= tx1; tx++ {
			buf := s.req.TileRequestStart(tx, ty, false)
			if len(buf) == TileSamples && renderDab(buf, tx*TileSize, ty*TileSize, d) {
				s.dirty = s.dirty.Union(image.Rect(tx*TileSize, ty*TileSize, (tx+1)*TileSize, (ty+1)*TileSize).Intersect(bounds))
			}
			s.req.TileRequestEnd(tx, ty, false)
		}
	}
}

// renderDab blends d into a tile whose top-left pixel is (ox, oy). It
// reports whether any pixel was touched.
func renderDab(buf []uint16, ox, oy int, d dab) bool {
	r2 := d.radius * d.radius
	touched := false

	minX := max(0, int(math.Floor(d.x-d.radius))-ox)
	maxX := min(TileSize-1, int(math.Ceil(d.x+d.radius))-ox)
	minY := max(0, int(math.Floor(d.y-d.radius))-oy)
	maxY := min(TileSize-1, int(math.Ceil(d.y+d.radius))-oy)

	for py := minY; py <= maxY; py++ {
		cy := float64(oy+py) + 0.5 - d.y
		for px := minX; px <= maxX; px++ {
			cx := float64(ox+px) + 0.5 - d.x
			rr := (cx*cx + cy*cy) / r2
			if rr > 1 {
				continue
			}
			opa := dabFalloff(rr, d.hardness) * d.alpha
			a := uint32(opa*softOne + 0.5)
			if a == 0 {
				continue
			}
			touched = true
			i := (py*TileSize + px) * 4
			blendNormal(buf[i:i+4:i+4], a, d)
		}
	}
	return touched
}

// dabFalloff is libmypaint's two-segment linear hardness curve over the
// squared normalised distance rr.
func dabFalloff(rr, hardness float64) float64 {
	if rr <= hardness {
		return 1 + rr*(1-1/hardness)
	}
	return (1 - rr) * hardness / (1 - hardness)
}

func blendNormal(p []uint16, a uint32, d dab) {
	inv := uint32(softOne) - a
	if d.eraser {
		p[0] = uint16(uint32(p[0]) * inv >> 15)
		p[1] = uint16(uint32(p[1]) * inv >> 15)
		p[2] = uint16(uint32(p[2]) * inv >> 15)
		p[3] = uint16(uint32(p[3]) * inv >> 15)
		return
	}
	if d.lockAlpha {
		// Paint only where there already is paint, keeping coverage.
		da := uint32(p[3])
		p[0] = uint16((a*(d.r*da>>15) + inv*uint32(p[0])) >> 15)
		p[1] = uint16((a*(d.g*da>>15) + inv*uint32(p[1])) >> 15)
		p[2] = uint16((a*(d.b*da>>15) + inv*uint32(p[2])) >> 15)
		return
	}
	p[0] = uint16((a*d.r + inv*uint32(p[0])) >> 15)
	p[1] = uint16((a*d.g + inv*uint32(p[1])) >> 15)
	p[2] = uint16((a*d.b + inv*uint32(p[2])) >> 15)
	p[3] = uint16((a*softOne + inv*uint32(p[3])) >> 15)
}

// hsvToRGB converts HSV in [0, 1] to RGB in [0, 1].
func hsvToRGB(h, s, v float64) (r, g, b float64) {
	h -= math.Floor(h)
	s, v = clamp01(s), clamp01(v)
	if s == 0 {
		return v, v, v
	}
	h *= 6
	i := math.Floor(h)
	f := h - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))
	switch int(i) % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
