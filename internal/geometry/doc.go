// Package geometry cleans up roof outlines and hand-drawn roof line sets.
//
// Everything here works on Points in image-pixel space with Y pointing down.
// CleanupOutline refines a polygon produced by the detector; CleanupGeometry
// tidies user-traced geometry while leaving locked lines alone. The building
// blocks (RDP simplification, breakpoint straightening, axis flattening,
// edge snapping, endpoint clustering, angle snapping and auto-closing) are
// exported for callers that need a single stage.
package geometry
