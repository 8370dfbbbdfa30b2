// Package pixel converts between the 8-bit display format and the brush
// engine's native 16-bit tile format.
//
// Two pixel layouts meet at the engine boundary:
//
//   - Display: 8 bits per channel, premultiplied alpha, stored B,G,R,A in
//     memory (the layout of [gputypes.TextureFormatBGRA8Unorm] and of most
//     window-system surfaces). [BGRA] implements image.Image and draw.Image
//     over that layout.
//   - Native: 16 bits per channel, premultiplied alpha, stored R,G,B,A with
//     1<<15 representing full intensity. Tiles hand buffers in this layout
//     directly to the brush engine.
//
// Because the channel orders differ, red and blue are swapped in both
// directions. The 8 -> 16 -> 8 round trip is exact for every 8-bit value.
//
// [gputypes.TextureFormatBGRA8Unorm]: https://pkg.go.dev/github.com/gogpu/gputypes
package pixel
