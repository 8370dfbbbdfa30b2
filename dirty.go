package tilebrush

import (
	"image"
	"math/bits"
	"sync/atomic"
)

// DirtyRegion is a bitmap of tile grid cells, one bit per tile packed into
// uint64 words. Coordinates outside the grid are ignored, so the null tile
// can never be recorded.
type DirtyRegion struct {
	// Bit index = ty*tilesX + tx.
	words  []atomic.Uint64
	tilesX int
	tilesY int
}

// NewDirtyRegion creates a clean region for a tilesX × tilesY grid.
// Non-positive dimensions yield an empty region that ignores every mark.
func NewDirtyRegion(tilesX, tilesY int) *DirtyRegion {
	if tilesX <= 0 || tilesY <= 0 {
		return &DirtyRegion{}
	}
	return &DirtyRegion{
		words:  make([]atomic.Uint64, (tilesX*tilesY+63)/64),
		tilesX: tilesX,
		tilesY: tilesY,
	}
}

func (d *DirtyRegion) index(tx, ty int) (int, bool) {
	if tx < 0 || tx >= d.tilesX || ty < 0 || ty >= d.tilesY {
		return 0, false
	}
	return ty*d.tilesX + tx, true
}

// Mark records tile (tx, ty) and reports whether it was newly marked.
func (d *DirtyRegion) Mark(tx, ty int) bool {
	idx, ok := d.index(tx, ty)
	if !ok {
		return false
	}
	bit := uint64(1) << (idx & 63)
	return d.words[idx/64].Or(bit)&bit == 0
}

// MarkRect marks every tile intersecting r, given in surface pixels.
func (d *DirtyRegion) MarkRect(r image.Rectangle) {
	r = r.Intersect(image.Rect(0, 0, d.tilesX*TileSize, d.tilesY*TileSize))
	if r.Empty() {
		return
	}
	for ty := r.Min.Y / TileSize; ty <= (r.Max.Y-1)/TileSize; ty++ {
		for tx := r.Min.X / TileSize; tx <= (r.Max.X-1)/TileSize; tx++ {
			d.Mark(tx, ty)
		}
	}
}

// IsDirty reports whether tile (tx, ty) is marked.
func (d *DirtyRegion) IsDirty(tx, ty int) bool {
	idx, ok := d.index(tx, ty)
	if !ok {
		return false
	}
	return d.words[idx/64].Load()&(1<<(idx&63)) != 0
}

// IsEmpty reports whether no tile is marked.
func (d *DirtyRegion) IsEmpty() bool {
	for i := range d.words {
		if d.words[i].Load() != 0 {
			return false
		}
	}
	return true
}

// Count returns the number of marked tiles.
func (d *DirtyRegion) Count() int {
	n := 0
	for i := range d.words {
		n += bits.OnesCount64(d.words[i].Load())
	}
	return n
}

// Clear unmarks every tile.
func (d *DirtyRegion) Clear() {
	for i := range d.words {
		d.words[i].Store(0)
	}
}

// ForEachDirty calls fn for every marked tile in row-major order.
func (d *DirtyRegion) ForEachDirty(fn func(tx, ty int)) {
	for wi := range d.words {
		d.visit(wi, d.words[wi].Load(), fn)
	}
}

// GetAndClear returns the marked tiles in row-major order and clears them.
func (d *DirtyRegion) GetAndClear() []image.Point {
	var out []image.Point
	for wi := range d.words {
		d.visit(wi, d.words[wi].Swap(0), func(tx, ty int) {
			out = append(out, image.Pt(tx, ty))
		})
	}
	return out
}

func (d *DirtyRegion) visit(wi int, word uint64, fn func(tx, ty int)) {
	for word != 0 {
		b := bits.TrailingZeros64(word)
		idx := wi*64 + b
		fn(idx%d.tilesX, idx/d.tilesX)
		word &^= 1 << b
	}
}

// TilesX returns the grid width in tiles.
func (d *DirtyRegion) TilesX() int { return d.tilesX }

// TilesY returns the grid height in tiles.
func (d *DirtyRegion) TilesY() int { return d.tilesY }
