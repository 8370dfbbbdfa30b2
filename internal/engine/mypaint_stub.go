//go:build !(mypaint && cgo)

package engine

// init registers a nil-returning factory when the mypaint tag is not set, so
// Open(NameMyPaint) reports ErrUnavailable instead of ErrNotRegistered.
func init() {
	Register(NameMyPaint, func() Engine { return nil })
}
