package tilebrush

import (
	"image"
	"testing"
)

func TestDirtyRegionMark(t *testing.T) {
	d := NewDirtyRegion(10, 10)
	if !d.IsEmpty() {
		t.Fatal("new region not empty")
	}
	if !d.Mark(3, 4) {
		t.Error("first Mark(3,4) = false")
	}
	if d.Mark(3, 4) {
		t.Error("second Mark(3,4) = true")
	}
	if !d.IsDirty(3, 4) || d.IsDirty(4, 3) {
		t.Error("IsDirty disagrees with Mark")
	}
	if d.Count() != 1 {
		t.Errorf("Count() = %d, want 1", d.Count())
	}
}

func TestDirtyRegionIgnoresOutOfRange(t *testing.T) {
	d := NewDirtyRegion(2, 2)
	for _, p := range []image.Point{{-1, 0}, {0, -1}, {2, 0}, {0, 2}, {100, 100}} {
		if d.Mark(p.X, p.Y) {
			t.Errorf("Mark(%v) = true", p)
		}
	}
	if !d.IsEmpty() {
		t.Error("out-of-range marks were recorded")
	}
	empty := NewDirtyRegion(0, 5)
	empty.Mark(0, 0)
	if !empty.IsEmpty() {
		t.Error("zero-sized region recorded a mark")
	}
}

func TestDirtyRegionMarkRect(t *testing.T) {
	tests := []struct {
		name string
		r    image.Rectangle
		want int
	}{
		{"single pixel", image.Rect(10, 10, 11, 11), 1},
		{"tile aligned", image.Rect(0, 0, 64, 64), 1},
		{"straddles four", image.Rect(60, 60, 70, 70), 4},
		{"clipped", image.Rect(-100, -100, 10, 10), 1},
		{"outside", image.Rect(1000, 1000, 1010, 1010), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDirtyRegion(4, 4)
			d.MarkRect(tt.r)
			if got := d.Count(); got != tt.want {
				t.Errorf("Count() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDirtyRegionGetAndClear(t *testing.T) {
	d := NewDirtyRegion(9, 9) // 81 tiles spans two words
	d.Mark(8, 8)
	d.Mark(0, 0)
	d.Mark(1, 7)

	got := d.GetAndClear()
	want := []image.Point{{0, 0}, {1, 7}, {8, 8}}
	if len(got) != len(want) {
		t.Fatalf("GetAndClear() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("GetAndClear()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if !d.IsEmpty() {
		t.Error("region not empty after GetAndClear")
	}
}

func TestDirtyRegionForEachKeepsMarks(t *testing.T) {
	d := NewDirtyRegion(3, 3)
	d.Mark(2, 1)
	n := 0
	d.ForEachDirty(func(tx, ty int) {
		n++
		if tx != 2 || ty != 1 {
			t.Errorf("visited (%d,%d)", tx, ty)
		}
	})
	if n != 1 || !d.IsDirty(2, 1) {
		t.Error("ForEachDirty changed the region")
	}
	d.Clear()
	if !d.IsEmpty() {
		t.Error("Clear() left marks")
	}
}
