// Package layer provides an in-memory backing layer for tilebrush
// surfaces: a BGRA image with scoped exclusive writes, size-change
// notifications and a compressed undo history.
package layer
