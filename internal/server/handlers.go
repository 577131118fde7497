package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/roofline-mcp/internal/detection"
	"github.com/ironsheep/roofline-mcp/internal/geometry"
	"github.com/ironsheep/roofline-mcp/internal/imaging"
	"github.com/ironsheep/roofline-mcp/internal/suggest"
)

// errInvalidParams marks argument problems so they are reported as -32602
// rather than as tool failures.
var errInvalidParams = errors.New("invalid params")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "roof_detect_lines").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Bad arguments return -32602; any other tool failure returns -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	log := s.log.WithField("tool", params.Name)
	start := time.Now()
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		log.WithError(err).Warn("tool call failed")
		if errors.Is(err, errInvalidParams) {
			return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	log.WithField("elapsed", time.Since(start).String()).Debug("tool call complete")

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals and validates arguments
//  2. Loads the image from cache when the tool needs one
//  3. Calls into detection, geometry or suggest
//  4. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_load":
		return s.handleImageLoad(args)

	// Detection
	case "roof_classify_scene":
		return s.handleClassifyScene(args)
	case "roof_edge_map":
		return s.handleEdgeMap(args)
	case "roof_detect_lines":
		return s.handleDetectLines(args)
	case "roof_overlay":
		return s.handleOverlay(args)

	// Suggestions
	case "roof_suggest_outline":
		return s.handleSuggestOutline(ctx, args)
	case "roof_suggest_lines":
		return s.handleSuggestLines(ctx, args)

	// Refinement
	case "roof_cleanup_outline":
		return s.handleCleanupOutline(args)
	case "roof_cleanup_geometry":
		return s.handleCleanupGeometry(args)

	default:
		return nil, fmt.Errorf("%w: unknown tool: %s", errInvalidParams, name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments. Missing arguments decode as {}.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return nil
}

// loadImage resolves a required path argument through the cache.
func (s *Server) loadImage(path string) (image.Image, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: path is required", errInvalidParams)
	}
	return s.cache.Load(path)
}

type pathArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("%w: path is required", errInvalidParams)
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// === Detection Handlers ===

type detectionArgs struct {
	Path              string   `json:"path"`
	Scene             string   `json:"scene"`
	Sensitivity       *float64 `json:"sensitivity"`
	DetailSuppression *float64 `json:"detail_suppression"`
}

// detectorFor returns the server's detector, or a new one when the call
// overrides scene or tuning.
func (s *Server) detectorFor(a detectionArgs) (*detection.Detector, error) {
	if a.Scene == "" && a.Sensitivity == nil && a.DetailSuppression == nil {
		return s.detector, nil
	}
	opts := s.opts.Detection
	if a.Scene != "" {
		scene, err := detection.ParseScene(a.Scene)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidParams, err)
		}
		opts.Scene = scene
	}
	if a.Sensitivity != nil {
		if *a.Sensitivity < 0 || *a.Sensitivity > 1 {
			return nil, fmt.Errorf("%w: sensitivity must be in [0,1], got %v", errInvalidParams, *a.Sensitivity)
		}
		opts.Sensitivity = *a.Sensitivity
	}
	if a.DetailSuppression != nil {
		if *a.DetailSuppression < 0 || *a.DetailSuppression > 1 {
			return nil, fmt.Errorf("%w: detail_suppression must be in [0,1], got %v", errInvalidParams, *a.DetailSuppression)
		}
		opts.DetailSuppression = *a.DetailSuppression
	}
	return detection.NewDetector(opts, s.log), nil
}

type classifyArgs struct {
	Path  string `json:"path"`
	Scene string `json:"scene"`
}

func (s *Server) handleClassifyScene(args json.RawMessage) (interface{}, error) {
	var a classifyArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	scene, err := detection.ParseScene(a.Scene)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	c := detection.ClassifyScene(img, s.opts.Detection.SkyFacadeThreshold, scene)
	return &c, nil
}

// EdgeMapToolResult is the roof_edge_map payload.
type EdgeMapToolResult struct {
	*imaging.EdgeMapResult
	Scene detection.Scene `json:"scene"`
	// ScaleX and ScaleY map edge-map pixels to image pixels.
	ScaleX float64 `json:"scale_x"`
	ScaleY float64 `json:"scale_y"`
}

func (s *Server) handleEdgeMap(args json.RawMessage) (interface{}, error) {
	var a detectionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	d, err := s.detectorFor(a)
	if err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	analysis, err := d.Analyze(img)
	if err != nil {
		return nil, err
	}
	encoded, err := imaging.EncodeEdgeMap(analysis.Edges)
	if err != nil {
		return nil, err
	}
	return &EdgeMapToolResult{
		EdgeMapResult: encoded,
		Scene:         analysis.Classification.Scene,
		ScaleX:        analysis.ScaleX,
		ScaleY:        analysis.ScaleY,
	}, nil
}

type detectLinesArgs struct {
	detectionArgs
	Region     *imaging.Region `json:"region"`
	RegionName string          `json:"region_name"`
}

// DetectLinesToolResult is the roof_detect_lines payload. Width and Height
// describe the analyzed area; line coordinates are always full-image pixels.
type DetectLinesToolResult struct {
	*detection.Result
	Region *imaging.Region `json:"region,omitempty"`
}

func (s *Server) handleDetectLines(args json.RawMessage) (interface{}, error) {
	var a detectLinesArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	d, err := s.detectorFor(a.detectionArgs)
	if err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}

	region, err := resolveRegion(img.Bounds(), a.Region, a.RegionName)
	if err != nil {
		return nil, err
	}
	target := img
	if !region.IsZero() {
		if target, err = imaging.CropRegion(img, region); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidParams, err)
		}
	}

	res, err := d.Detect(target)
	if err != nil {
		return nil, err
	}
	if region.IsZero() {
		return &DetectLinesToolResult{Result: res}, nil
	}

	dx, dy := float64(region.X1), float64(region.Y1)
	for i, l := range res.Lines {
		res.Lines[i] = l.WithSegment(l.Segment.Translated(dx, dy))
	}
	if res.Scene == detection.SceneFacade {
		res.SkyRow += dy
		res.RoofBottom += dy
	}
	return &DetectLinesToolResult{Result: res, Region: &region}, nil
}

// resolveRegion picks an explicit region over a named one. The zero Region
// means the whole image.
func resolveRegion(bounds image.Rectangle, explicit *imaging.Region, name string) (imaging.Region, error) {
	if explicit != nil {
		return *explicit, nil
	}
	if name == "" {
		return imaging.Region{}, nil
	}
	r, err := imaging.NamedRegion(bounds.Dx(), bounds.Dy(), name)
	if err != nil {
		return imaging.Region{}, fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return r, nil
}

type overlayLineArgs struct {
	X1         float64  `json:"x1"`
	Y1         float64  `json:"y1"`
	X2         float64  `json:"x2"`
	Y2         float64  `json:"y2"`
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence"`
}

type overlayArgs struct {
	Path      string            `json:"path"`
	Lines     []overlayLineArgs `json:"lines"`
	Thickness int               `json:"thickness"`
}

func (s *Server) handleOverlay(args json.RawMessage) (interface{}, error) {
	var a overlayArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Thickness == 0 {
		a.Thickness = 3
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}

	var lines []imaging.OverlayLine
	if len(a.Lines) == 0 {
		res, err := s.detector.Detect(img)
		if err != nil {
			return nil, err
		}
		lines = overlayLines(res.Lines)
	} else {
		lines = make([]imaging.OverlayLine, len(a.Lines))
		for i, l := range a.Lines {
			confidence := 1.0
			if l.Confidence != nil {
				confidence = *l.Confidence
			}
			label := string(detection.ParseLabel(l.Label))
			lines[i] = imaging.OverlayLine{X1: l.X1, Y1: l.Y1, X2: l.X2, Y2: l.Y2, Label: label, Confidence: confidence}
			if !lines[i].Finite() {
				return nil, fmt.Errorf("%w: line %d has a non-finite coordinate", errInvalidParams, i)
			}
		}
	}
	return imaging.RenderOverlay(img, lines, a.Thickness)
}

func overlayLines(labeled []detection.LabeledSegment) []imaging.OverlayLine {
	out := make([]imaging.OverlayLine, len(labeled))
	for i, l := range labeled {
		out[i] = imaging.OverlayLine{
			X1: l.X1, Y1: l.Y1, X2: l.X2, Y2: l.Y2,
			Label:      string(l.Label),
			Confidence: l.Confidence,
		}
	}
	return out
}

// === Suggestion Handlers ===

func (s *Server) handleSuggestOutline(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	return s.suggester.SuggestOutline(ctx, img)
}

type suggestLinesArgs struct {
	Path    string           `json:"path"`
	Outline []geometry.Point `json:"outline"`
}

// SuggestLinesToolResult is the roof_suggest_lines payload.
type SuggestLinesToolResult struct {
	Source string                     `json:"source"`
	Lines  []detection.LabeledSegment `json:"lines"`
	Count  int                        `json:"count"`
}

func (s *Server) handleSuggestLines(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a suggestLinesArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	lines, err := s.suggester.SuggestLines(ctx, img, a.Outline)
	if errors.Is(err, suggest.ErrEmptySuggestion) {
		lines, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []detection.LabeledSegment{}
	}
	return &SuggestLinesToolResult{Source: s.suggester.Name(), Lines: lines, Count: len(lines)}, nil
}

// === Refinement Handlers ===

type cleanupOutlineArgs struct {
	Outline    geometry.Shape `json:"outline"`
	PointsFlat []float64      `json:"points_flat"`
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	Path       string         `json:"path"`
}

// shape returns the outline to refine, read from points_flat when no
// outline shape was given.
func (a cleanupOutlineArgs) shape() (geometry.Shape, error) {
	if len(a.Outline.Points) > 0 || len(a.PointsFlat) == 0 {
		return a.Outline, nil
	}
	if len(a.PointsFlat)%2 != 0 {
		return geometry.Shape{}, fmt.Errorf("%w: points_flat needs an even number of values", errInvalidParams)
	}
	return geometry.Shape{ID: "outline", Points: geometry.FromFlat(a.PointsFlat), Closed: true}, nil
}

// CleanupOutlineToolResult is the roof_cleanup_outline payload.
type CleanupOutlineToolResult struct {
	Outline geometry.Shape `json:"outline"`
	// PointsFlat is Outline's vertices as x1,y1,x2,y2,...
	PointsFlat []float64 `json:"points_flat"`
	Area       float64   `json:"area"`
	// EdgeSnapped reports whether an image was available to snap against.
	EdgeSnapped bool `json:"edge_snapped"`
}

func (s *Server) handleCleanupOutline(args json.RawMessage) (interface{}, error) {
	var a cleanupOutlineArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	outline, err := a.shape()
	if err != nil {
		return nil, err
	}
	if len(outline.Points) == 0 {
		return nil, fmt.Errorf("%w: outline or points_flat is required", errInvalidParams)
	}

	frame := geometry.Frame{Width: a.Width, Height: a.Height}
	var snapErr error
	if a.Path != "" {
		var f geometry.Frame
		if f, snapErr = s.snapFrame(a.Path); snapErr == nil {
			frame = f
		} else {
			s.log.WithError(snapErr).WithField("path", a.Path).Warn("edge snapping skipped")
		}
	}
	if frame.Width <= 0 || frame.Height <= 0 {
		if snapErr != nil {
			return nil, snapErr
		}
		return nil, fmt.Errorf("%w: width and height are required without path", errInvalidParams)
	}

	out := geometry.CleanupOutline(outline, frame, s.opts.Outline)
	s.log.WithFields(logrus.Fields{
		"points_in":  len(outline.Points),
		"points_out": len(out.Points),
	}).Debug("outline cleaned")
	return &CleanupOutlineToolResult{
		Outline:     out,
		PointsFlat:  geometry.ToFlat(out.Points),
		Area:        geometry.Area(out.Points),
		EdgeSnapped: frame.Gradient != nil,
	}, nil
}

// snapFrame loads the image at path and samples its edge field.
func (s *Server) snapFrame(path string) (geometry.Frame, error) {
	img, err := s.loadImage(path)
	if err != nil {
		return geometry.Frame{}, err
	}
	field, err := s.detector.SnapField(img)
	if err != nil {
		return geometry.Frame{}, err
	}
	b := img.Bounds()
	return geometry.Frame{Width: b.Dx(), Height: b.Dy(), Gradient: field}, nil
}

type cleanupGeometryArgs struct {
	Geometry geometry.Geometry `json:"geometry"`
	Width    int               `json:"width"`
	Height   int               `json:"height"`
	Locked   []string          `json:"locked"`
}

func (s *Server) handleCleanupGeometry(args json.RawMessage) (interface{}, error) {
	var a cleanupGeometryArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Width <= 0 || a.Height <= 0 {
		return nil, fmt.Errorf("%w: width and height must be positive", errInvalidParams)
	}
	locked := make(map[string]bool, len(a.Locked))
	for _, id := range a.Locked {
		locked[id] = true
	}
	frame := geometry.Frame{Width: a.Width, Height: a.Height}
	out := geometry.CleanupGeometry(a.Geometry, frame, locked, s.opts.Geometry)
	if out.Lines == nil {
		out.Lines = []geometry.Shape{}
	}
	return &out, nil
}
