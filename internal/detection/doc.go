// Package detection finds and labels roof lines in photographs.
//
// A Detector runs the pipeline in a fixed order:
//
//  1. Scene classification: a sky score on the top band of a small copy
//     decides between facade (street-level) and top-down (aerial) handling.
//  2. Preprocessing and auto-Canny edges at a bounded processing width
//     (see package imaging).
//  3. Segment extraction: orientation-gated 8-connected components, a PCA
//     line fit per component, and collinear merging.
//  4. Scene heuristics. Facades get the orientation, roof-region and
//     cross-line contrast filters, rake extension, gable peak consolidation,
//     per-direction capping with ridge/eave/rake labels and a horizon bias.
//     Top-down scenes keep the dominant directions and label lines by their
//     position relative to the endpoint hull and the image border.
//  5. Rescaling to source pixels, sorting by confidence and numbering.
//
// # Coordinate System
//
// All coordinates use the standard image convention: origin at the top-left,
// X to the right, Y down. Segment angles are undirected, in [0, π).
//
// # Confidence Scores
//
// Confidence is in [0, 1]. It starts from a length-based base score and
// accumulates small boosts from later heuristics, clamped at 1. Scores are
// meant for ranking candidates for human review, not as probabilities.
package detection
