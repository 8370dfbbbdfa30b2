package tilebrush

import (
	"sync"

	"github.com/gogpu/tilebrush/internal/engine"
	"github.com/gogpu/tilebrush/pixel"
)

// tilePool recycles the buffers of destroyed tiles. A surface reset drops
// every tile at once and the next stroke recreates most of them, so reuse
// keeps resizes from churning the GC.
//
// tilePool is safe for concurrent use.
type tilePool struct {
	native sync.Pool // *[]uint16 of engine.TileSamples
	cache  sync.Pool // *pixel.BGRA of TileSize × TileSize
}

func newTilePool() *tilePool {
	p := &tilePool{}
	p.native.New = func() any {
		buf := make([]uint16, engine.TileSamples)
		return &buf
	}
	p.cache.New = func() any {
		return pixel.NewBGRA(tileBounds)
	}
	return p
}

// get returns a zeroed native buffer and cache image.
func (p *tilePool) get() ([]uint16, *pixel.BGRA) {
	buf := *p.native.Get().(*[]uint16)
	clear(buf)
	cache := p.cache.Get().(*pixel.BGRA)
	clear(cache.Pix)
	return buf, cache
}

// put hands buffers back. Either may be nil.
func (p *tilePool) put(native []uint16, cache *pixel.BGRA) {
	if len(native) == engine.TileSamples {
		p.native.Put(&native)
	}
	if cache != nil && cache.Rect == tileBounds && len(cache.Pix) == 4*TileSize*TileSize {
		p.cache.Put(cache)
	}
}

// defaultTilePool is shared by every surface.
var defaultTilePool = newTilePool()
