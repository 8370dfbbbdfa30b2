package tilebrush

import (
	"image"
	"slices"
	"time"
)

// Item is anything a Scene can paint.
type Item interface {
	// Paint draws the item onto c, touching only pixels inside clip.
	Paint(c *Canvas, clip image.Rectangle)
	Visible() bool
	SetVisible(v bool)
	// Bounds returns the item's rectangle in scene space.
	Bounds() image.Rectangle
	// Changed returns the time of the item's last visible change.
	Changed() time.Time
}

// Scene is an ordered list of items painted bottom to top.
type Scene struct {
	items []Item
}

// NewScene creates an empty scene.
func NewScene() *Scene { return &Scene{} }

// Add puts it on top of the scene. Adding an item twice moves it to the top.
func (s *Scene) Add(it Item) {
	s.Remove(it)
	s.items = append(s.items, it)
	if c, ok := it.(*ComposableSurfaceItem); ok {
		c.scene = s
	}
}

// Remove takes it out of the scene and reports whether it was present.
func (s *Scene) Remove(it Item) bool {
	i := s.indexOf(it)
	if i < 0 {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	if c, ok := it.(*ComposableSurfaceItem); ok && c.scene == s {
		c.scene = nil
	}
	return true
}

// Raise moves it to the top of the paint order.
func (s *Scene) Raise(it Item) {
	if i := s.indexOf(it); i >= 0 {
		s.items = append(slices.Delete(s.items, i, i+1), it)
	}
}

// Items returns the items in paint order.
func (s *Scene) Items() []Item { return slices.Clone(s.items) }

// Below returns the items painted before it.
func (s *Scene) Below(it Item) []Item {
	i := s.indexOf(it)
	if i < 0 {
		return nil
	}
	return slices.Clone(s.items[:i])
}

func (s *Scene) indexOf(it Item) int {
	return slices.Index(s.items, it)
}

// Render paints every visible item intersecting clip onto dst.
func (s *Scene) Render(dst *Canvas, clip image.Rectangle) {
	s.renderBelow(dst, clip, len(s.items))
}

// renderBelow paints the first n items. Everything at or above position n
// is left out, which is what rendering the background of the item at n
// needs.
func (s *Scene) renderBelow(dst *Canvas, clip image.Rectangle, n int) {
	clip = clip.Intersect(dst.Bounds())
	for _, it := range s.items[:n] {
		if !it.Visible() || !it.Bounds().Overlaps(clip) {
			continue
		}
		it.Paint(dst, clip)
	}
}
