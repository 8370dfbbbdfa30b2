package layer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"

	"github.com/gogpu/tilebrush/pixel"
)

var (
	// ErrOutOfBounds is returned by Write when r does not intersect the layer.
	ErrOutOfBounds = errors.New("layer: region outside layer")

	// ErrCorruptSnapshot is returned when an undo snapshot cannot be decoded.
	ErrCorruptSnapshot = errors.New("layer: corrupt undo snapshot")
)

// DefaultUndoLimit is the number of undo steps kept by NewMemory.
const DefaultUndoLimit = 64

// Memory is an in-memory image layer.
//
// Each Write is one undo step. The pixels a write is about to replace are
// saved zlib-compressed, so long histories of small strokes stay cheap.
//
// Memory is safe for concurrent use; Write holds an exclusive lock for the
// duration of its callback.
type Memory struct {
	mu        sync.Mutex
	img       *pixel.BGRA
	undo      []snapshot
	redo      []snapshot
	undoLimit int

	lmu       sync.Mutex
	listeners map[int]func(image.Point)
	content   map[int]func(image.Rectangle)
	nextID    int
}

// snapshot is the compressed content of one rectangle.
type snapshot struct {
	rect image.Rectangle
	data []byte
}

// NewMemory creates a transparent layer of the given size.
func NewMemory(size image.Point) *Memory {
	return &Memory{
		img:       pixel.NewBGRA(image.Rectangle{Max: size}),
		undoLimit: DefaultUndoLimit,
		listeners: make(map[int]func(image.Point)),
		content:   make(map[int]func(image.Rectangle)),
	}
}

// FromImage creates a layer holding a copy of img, moved to the origin.
func FromImage(img image.Image) *Memory {
	m := NewMemory(img.Bounds().Size())
	src := pixel.FromImage(img)
	src.Rect = src.Rect.Sub(src.Rect.Min)
	copy(m.img.Pix, src.Pix)
	return m
}

// SetUndoLimit sets the maximum number of undo steps; n <= 0 disables undo.
func (m *Memory) SetUndoLimit(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undoLimit = max(n, 0)
	m.trimUndo()
}

// Size returns the layer size.
func (m *Memory) Size() image.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.img.Rect.Size()
}

// Crop returns a copy of the pixels inside r, clipped to the layer.
func (m *Memory) Crop(r image.Rectangle) *pixel.BGRA {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.img.Sub(r).Clone()
}

// Image returns a copy of the whole layer.
func (m *Memory) Image() *pixel.BGRA {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.img.Clone()
}

// Write calls fn with a view of the pixels inside r, clipped to the layer,
// while holding the layer exclusively. The write is recorded as one undo
// step whatever fn returns, and content listeners are told about the
// clipped rectangle once the lock is released. fn must not call back into
// the layer.
func (m *Memory) Write(r image.Rectangle, fn func(view *pixel.BGRA) error) error {
	r, err := m.write(r, fn)
	if !r.Empty() {
		m.contentChanged(r)
	}
	return err
}

func (m *Memory) write(r image.Rectangle, fn func(view *pixel.BGRA) error) (image.Rectangle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r = r.Intersect(m.img.Rect)
	if r.Empty() {
		return image.Rectangle{}, fmt.Errorf("%w: %v", ErrOutOfBounds, r)
	}

	var snap snapshot
	var snapErr error
	if m.undoLimit > 0 {
		snap, snapErr = m.capture(r)
	}

	err := fn(m.img.Sub(r))

	if m.undoLimit > 0 && snapErr == nil {
		m.undo = append(m.undo, snap)
		m.trimUndo()
		m.redo = nil
	}
	return r, errors.Join(err, snapErr)
}

func (m *Memory) trimUndo() {
	if n := len(m.undo) - m.undoLimit; n > 0 {
		m.undo = append(m.undo[:0], m.undo[n:]...)
	}
}

// Undo reverts the most recent write and reports whether there was one.
func (m *Memory) Undo() (bool, error) {
	return m.step(&m.undo, &m.redo)
}

// Redo reapplies the most recently undone write.
func (m *Memory) Redo() (bool, error) {
	return m.step(&m.redo, &m.undo)
}

// step swaps one snapshot between the histories and notifies content
// listeners of the restored rectangle.
func (m *Memory) step(from, to *[]snapshot) (bool, error) {
	m.mu.Lock()
	r, ok, err := m.swap(from, to)
	m.mu.Unlock()
	if ok {
		m.contentChanged(r)
	}
	return ok, err
}

// UndoDepth returns the number of undo steps available.
func (m *Memory) UndoDepth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo)
}

// swap restores the top snapshot of from, pushing the pixels it replaces
// onto to.
func (m *Memory) swap(from, to *[]snapshot) (image.Rectangle, bool, error) {
	if len(*from) == 0 {
		return image.Rectangle{}, false, nil
	}
	s := (*from)[len(*from)-1]
	current, err := m.capture(s.rect)
	if err != nil {
		return image.Rectangle{}, false, err
	}
	if err := m.restore(s); err != nil {
		return image.Rectangle{}, false, err
	}
	*from = (*from)[:len(*from)-1]
	*to = append(*to, current)
	return s.rect, true, nil
}

// Resize changes the layer size, keeping the overlapping pixels, clears
// the undo history and notifies size listeners.
func (m *Memory) Resize(size image.Point) {
	m.mu.Lock()
	old := m.img
	m.img = pixel.NewBGRA(image.Rectangle{Max: size})
	keep := old.Rect.Intersect(m.img.Rect)
	for y := keep.Min.Y; y < keep.Max.Y; y++ {
		si, di := old.PixOffset(0, y), m.img.PixOffset(0, y)
		copy(m.img.Pix[di:di+4*keep.Dx()], old.Pix[si:si+4*keep.Dx()])
	}
	m.undo, m.redo = nil, nil
	m.mu.Unlock()

	m.lmu.Lock()
	fns := make([]func(image.Point), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.lmu.Unlock()
	for _, fn := range fns {
		fn(size)
	}
}

// OnSizeChanged registers fn to run after every Resize.
func (m *Memory) OnSizeChanged(fn func(size image.Point)) (unsubscribe func()) {
	m.lmu.Lock()
	defer m.lmu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.lmu.Lock()
		defer m.lmu.Unlock()
		delete(m.listeners, id)
	}
}

// OnContentChanged registers fn to run after every Write, Undo and Redo
// with the rectangle whose pixels may have changed. fn runs on the
// goroutine that made the change, after the layer lock is released.
func (m *Memory) OnContentChanged(fn func(r image.Rectangle)) (unsubscribe func()) {
	m.lmu.Lock()
	defer m.lmu.Unlock()
	id := m.nextID
	m.nextID++
	m.content[id] = fn
	return func() {
		m.lmu.Lock()
		defer m.lmu.Unlock()
		delete(m.content, id)
	}
}

func (m *Memory) contentChanged(r image.Rectangle) {
	m.lmu.Lock()
	fns := make([]func(image.Rectangle), 0, len(m.content))
	for _, fn := range m.content {
		fns = append(fns, fn)
	}
	m.lmu.Unlock()
	for _, fn := range fns {
		fn(r)
	}
}

type zlibWriterPoolItem struct {
	writer *zlib.Writer
	buf    *bytes.Buffer
}

var zlibWriterPool = sync.Pool{
	New: func() any {
		buf := new(bytes.Buffer)
		w, _ := zlib.NewWriterLevel(buf, zlib.BestSpeed)
		return &zlibWriterPoolItem{writer: w, buf: buf}
	},
}

// capture compresses the pixels of r.
func (m *Memory) capture(r image.Rectangle) (snapshot, error) {
	item := zlibWriterPool.Get().(*zlibWriterPoolItem)
	defer zlibWriterPool.Put(item)
	item.buf.Reset()
	item.writer.Reset(item.buf)

	rowBytes := 4 * r.Dx()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := m.img.PixOffset(r.Min.X, y)
		if _, err := item.writer.Write(m.img.Pix[i : i+rowBytes]); err != nil {
			return snapshot{}, err
		}
	}
	if err := item.writer.Close(); err != nil {
		return snapshot{}, err
	}
	return snapshot{rect: r, data: bytes.Clone(item.buf.Bytes())}, nil
}

// restore writes a snapshot back into the layer.
func (m *Memory) restore(s snapshot) error {
	zr, err := zlib.NewReader(bytes.NewReader(s.data))
	if err != nil {
		return errors.Join(ErrCorruptSnapshot, err)
	}
	defer zr.Close()

	rowBytes := 4 * s.rect.Dx()
	row := make([]byte, rowBytes)
	for y := s.rect.Min.Y; y < s.rect.Max.Y; y++ {
		if _, err := io.ReadFull(zr, row); err != nil {
			return errors.Join(ErrCorruptSnapshot, err)
		}
		i := m.img.PixOffset(s.rect.Min.X, y)
		copy(m.img.Pix[i:i+rowBytes], row)
	}
	return nil
}
