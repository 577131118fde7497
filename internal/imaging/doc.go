// Package imaging provides the pixel-level stages of roof line detection.
//
// It converts decoded images into single-channel intensity buffers, smooths
// them with an edge-preserving bilateral filter, optionally equalizes local
// contrast (CLAHE) and median-filters heavy texture, and produces a binary
// edge map with an adaptive ("auto") Canny detector followed by a
// morphological close. It also renders edge maps and labeled line overlays as
// base64 PNG, and caches decoded images.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//
// # Buffers
//
// Gray holds intensities on the 0-255 scale in row-major order. Every
// transform allocates its output; inputs are never written, so a buffer can
// be shared with later stages without copying.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. All other functions are
// stateless and can be called concurrently.
//
// # Error Handling
//
// Filters never fail; an empty buffer yields an empty result. Only file I/O,
// decoding and encoding return errors.
package imaging
