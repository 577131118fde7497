package server

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/roofline-mcp/internal/detection"
	"github.com/ironsheep/roofline-mcp/internal/geometry"
	"github.com/ironsheep/roofline-mcp/internal/imaging"
	"github.com/ironsheep/roofline-mcp/internal/suggest"
)

// createTestImageFile writes img as a PNG into a temp dir and returns its path.
func createTestImageFile(t *testing.T, img image.Image) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "roof.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// createGableImage draws a 320x240 gable facade shifted right by offset,
// with plain sky filling the left offset columns.
func createGableImage(offset int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 320+offset, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 320+offset; x++ {
			v := uint8(220)
			gx := x - offset
			switch {
			case gx < 0:
			case y >= 140:
				v = 150
			case y >= 60 && gx >= 130-(y-60) && gx <= 190+(y-60):
				v = 80
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func createUniformImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}

	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	}
	resp := s.handleRequest(context.Background(), req)
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeToolResult unpacks the JSON text content of a successful call into v.
func decodeToolResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("unexpected content: %v", result["content"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("failed to decode tool result %q: %v", text, err)
	}
}

func expectErrorCode(t *testing.T, resp *MCPResponse, code int) {
	t.Helper()
	if resp.Error == nil {
		t.Fatalf("expected error %d, got result %v", code, resp.Result)
	}
	if resp.Error.Code != code {
		t.Errorf("Error code: got %d, want %d (%v)", resp.Error.Code, code, resp.Error.Data)
	}
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := newTestServer()
	imgPath := createTestImageFile(t, createUniformImage(100, 80, color.RGBA{255, 0, 0, 255}))

	var info imaging.ImageInfo
	decodeToolResult(t, callTool(t, s, "image_load", map[string]interface{}{"path": imgPath}), &info)

	if info.Width != 100 || info.Height != 80 {
		t.Errorf("dimensions: got %dx%d, want 100x80", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("format: got %s, want png", info.Format)
	}
	if s.cache.Len() != 1 {
		t.Errorf("cache holds %d images, want 1", s.cache.Len())
	}
}

func TestHandleToolsCall_NonExistentFile(t *testing.T) {
	resp := callTool(t, newTestServer(), "image_load", map[string]interface{}{"path": "/nonexistent/image.png"})
	expectErrorCode(t, resp, -32000)
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	resp := callTool(t, newTestServer(), "nonexistent_tool", map[string]interface{}{})
	expectErrorCode(t, resp, -32602)
}

func TestHandleToolsCall_InvalidArguments(t *testing.T) {
	s := newTestServer()
	gable := createTestImageFile(t, createGableImage(0))

	tests := []struct {
		name string
		tool string
		args interface{}
	}{
		{"missing path", "roof_detect_lines", map[string]interface{}{}},
		{"arguments not an object", "roof_detect_lines", "just a string"},
		{"unknown scene", "roof_classify_scene", map[string]interface{}{"path": gable, "scene": "oblique"}},
		{"sensitivity out of range", "roof_edge_map", map[string]interface{}{"path": gable, "sensitivity": 1.5}},
		{"detail suppression out of range", "roof_detect_lines", map[string]interface{}{"path": gable, "detail_suppression": -0.1}},
		{"unknown region", "roof_detect_lines", map[string]interface{}{"path": gable, "region_name": "middle"}},
		{"region outside image", "roof_detect_lines", map[string]interface{}{"path": gable, "region": map[string]int{"x1": 0, "y1": 0, "x2": 999, "y2": 10}}},
		{"outline missing", "roof_cleanup_outline", map[string]interface{}{"outline": map[string]interface{}{"points": []interface{}{}}}},
		{"outline without size", "roof_cleanup_outline", map[string]interface{}{"points_flat": []float64{0, 0, 10, 0, 10, 10}}},
		{"odd points_flat", "roof_cleanup_outline", map[string]interface{}{"points_flat": []float64{0, 0, 10, 0, 10}, "width": 20, "height": 20}},
		{"geometry without size", "roof_cleanup_geometry", map[string]interface{}{"geometry": map[string]interface{}{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectErrorCode(t, callTool(t, s, tt.tool, tt.args), -32602)
		})
	}
}

func TestHandleToolsCall_ClassifyScene(t *testing.T) {
	s := newTestServer()
	gable := createTestImageFile(t, createGableImage(0))

	var c detection.Classification
	decodeToolResult(t, callTool(t, s, "roof_classify_scene", map[string]interface{}{"path": gable}), &c)
	if c.Scene != detection.SceneFacade || c.Forced {
		t.Errorf("got %+v, want an unforced facade", c)
	}

	decodeToolResult(t, callTool(t, s, "roof_classify_scene", map[string]interface{}{"path": gable, "scene": "topdown"}), &c)
	if c.Scene != detection.SceneTopDown || !c.Forced {
		t.Errorf("got %+v, want a forced top-down scene", c)
	}
}

func TestHandleToolsCall_EdgeMap(t *testing.T) {
	s := newTestServer()
	gable := createTestImageFile(t, createGableImage(0))

	var res EdgeMapToolResult
	decodeToolResult(t, callTool(t, s, "roof_edge_map", map[string]interface{}{"path": gable}), &res)

	if res.EdgeMapResult == nil || res.MimeType != "image/png" {
		t.Fatalf("unexpected edge map: %+v", res)
	}
	if res.Width != 320 || res.Height != 240 {
		t.Errorf("edge map is %dx%d, want 320x240", res.Width, res.Height)
	}
	if res.EdgePixels == 0 {
		t.Error("no edge pixels found on the gable")
	}
	if res.Scene != detection.SceneFacade || res.ScaleX != 1 {
		t.Errorf("scene %s scale %v, want facade at scale 1", res.Scene, res.ScaleX)
	}
}

func TestHandleToolsCall_DetectLines(t *testing.T) {
	s := newTestServer()
	gable := createTestImageFile(t, createGableImage(0))

	var res DetectLinesToolResult
	decodeToolResult(t, callTool(t, s, "roof_detect_lines", map[string]interface{}{"path": gable}), &res)

	if res.Result == nil || res.Count == 0 {
		t.Fatal("no lines detected on the gable")
	}
	if res.Region != nil {
		t.Errorf("region reported without one being requested: %+v", res.Region)
	}
	var eaves int
	for _, l := range res.Lines {
		if l.Label == detection.LabelEave {
			eaves++
		}
	}
	if eaves != 1 {
		t.Errorf("got %d eaves, want 1", eaves)
	}
}

func TestHandleToolsCall_DetectLinesInRegion(t *testing.T) {
	s := newTestServer()
	// The gable fills the right half of a 640x240 image.
	path := createTestImageFile(t, createGableImage(320))

	var res DetectLinesToolResult
	decodeToolResult(t, callTool(t, s, "roof_detect_lines", map[string]interface{}{
		"path":        path,
		"region_name": "right-half",
	}), &res)

	want := imaging.Region{X1: 320, Y1: 0, X2: 640, Y2: 240}
	if res.Region == nil || *res.Region != want {
		t.Fatalf("region: got %+v, want %+v", res.Region, want)
	}
	if res.Count == 0 {
		t.Fatal("no lines detected in the region")
	}
	var eave *detection.LabeledSegment
	for i, l := range res.Lines {
		if math.Min(l.X1, l.X2) < 318 {
			t.Errorf("line %s at x=%.1f lies left of the region", l.ID, math.Min(l.X1, l.X2))
		}
		if l.Label == detection.LabelEave {
			eave = &res.Lines[i]
		}
	}
	if eave == nil {
		t.Fatal("no eave in the region")
	}
	if mid := eave.Mid(); mid.X < 400 || mid.X > 560 {
		t.Errorf("eave midpoint x = %.1f, want it centered in the right half", mid.X)
	}
}

func TestHandleToolsCall_Overlay(t *testing.T) {
	s := newTestServer()
	gable := createTestImageFile(t, createGableImage(0))

	var detected imaging.OverlayResult
	decodeToolResult(t, callTool(t, s, "roof_overlay", map[string]interface{}{"path": gable}), &detected)
	if detected.Width != 320 || detected.Height != 240 {
		t.Errorf("overlay is %dx%d, want 320x240", detected.Width, detected.Height)
	}
	if _, ok := detected.Legend["eave"]; !ok {
		t.Errorf("legend %v lacks the detected eave", detected.Legend)
	}

	var given imaging.OverlayResult
	decodeToolResult(t, callTool(t, s, "roof_overlay", map[string]interface{}{
		"path":  gable,
		"lines": []map[string]interface{}{{"x1": 10, "y1": 10, "x2": 200, "y2": 10, "label": "ridge"}},
	}), &given)
	if len(given.Legend) != 1 {
		t.Errorf("legend: got %v, want only ridge", given.Legend)
	}
	if _, ok := given.Legend["ridge"]; !ok {
		t.Errorf("legend: got %v, want ridge", given.Legend)
	}
}

func TestHandleToolsCall_OverlayFarLines(t *testing.T) {
	s := newTestServer()
	small := createTestImageFile(t, createUniformImage(64, 64, color.RGBA{255, 255, 255, 255}))

	var res imaging.OverlayResult
	decodeToolResult(t, callTool(t, s, "roof_overlay", map[string]interface{}{
		"path":      small,
		"lines":     []map[string]interface{}{{"x1": 0, "y1": 10, "x2": 2e8, "y2": 10, "label": "eave"}},
		"thickness": 100000,
	}), &res)
	if res.Width != 64 {
		t.Errorf("width: got %d, want 64", res.Width)
	}

	overflow := json.RawMessage(`{"path":"` + filepath.ToSlash(small) + `","lines":[{"x1":0,"y1":0,"x2":1e999,"y2":0}]}`)
	expectErrorCode(t, callTool(t, s, "roof_overlay", overflow), -32602)
}

// stubSuggester answers with fixed results.
type stubSuggester struct {
	outline *suggest.Outline
	lines   []detection.LabeledSegment
	err     error

	gotOutline []geometry.Point
}

func (s *stubSuggester) Name() string { return "stub" }

func (s *stubSuggester) SuggestOutline(ctx context.Context, img image.Image) (*suggest.Outline, error) {
	return s.outline, s.err
}

func (s *stubSuggester) SuggestLines(ctx context.Context, img image.Image, outline []geometry.Point) ([]detection.LabeledSegment, error) {
	s.gotOutline = outline
	return s.lines, s.err
}

func newStubServer(stub *stubSuggester) *Server {
	opts := newTestServer().opts
	opts.Suggester = stub
	return New(opts)
}

func TestHandleToolsCall_SuggestOutlineLocal(t *testing.T) {
	s := newTestServer()
	gable := createTestImageFile(t, createGableImage(0))

	var out suggest.Outline
	decodeToolResult(t, callTool(t, s, "roof_suggest_outline", map[string]interface{}{"path": gable}), &out)

	if out.Source != "local" {
		t.Errorf("source: got %q, want local", out.Source)
	}
	if !out.Outline.Closed || len(out.Outline.Points) < 3 {
		t.Errorf("outline: got %+v, want a closed polygon", out.Outline)
	}
}

func TestHandleToolsCall_SuggestLines(t *testing.T) {
	gable := createTestImageFile(t, createGableImage(0))
	ridge := detection.NewLabeled(detection.NewSegment(100, 60, 220, 60), detection.LabelRidge, 0.8, detection.OriginRemote)
	stub := &stubSuggester{lines: []detection.LabeledSegment{ridge}}
	s := newStubServer(stub)

	var res SuggestLinesToolResult
	decodeToolResult(t, callTool(t, s, "roof_suggest_lines", map[string]interface{}{
		"path":    gable,
		"outline": []map[string]float64{{"x": 0, "y": 140}, {"x": 160, "y": 60}, {"x": 320, "y": 140}},
	}), &res)

	if res.Source != "stub" || res.Count != 1 || res.Lines[0].Label != detection.LabelRidge {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(stub.gotOutline) != 3 || stub.gotOutline[1] != geometry.Pt(160, 60) {
		t.Errorf("outline passed to suggester: %v", stub.gotOutline)
	}
}

func TestHandleToolsCall_SuggestLinesEmpty(t *testing.T) {
	gable := createTestImageFile(t, createGableImage(0))
	s := newStubServer(&stubSuggester{err: suggest.ErrEmptySuggestion})

	var res SuggestLinesToolResult
	decodeToolResult(t, callTool(t, s, "roof_suggest_lines", map[string]interface{}{"path": gable}), &res)
	if res.Count != 0 || res.Lines == nil {
		t.Errorf("got %+v, want an empty, non-nil line list", res)
	}
}

func TestHandleToolsCall_SuggestFailure(t *testing.T) {
	gable := createTestImageFile(t, createGableImage(0))
	s := newStubServer(&stubSuggester{err: errors.New("quota exceeded")})

	expectErrorCode(t, callTool(t, s, "roof_suggest_outline", map[string]interface{}{"path": gable}), -32000)
	expectErrorCode(t, callTool(t, s, "roof_suggest_lines", map[string]interface{}{"path": gable}), -32000)
}

func TestHandleToolsCall_CleanupOutline(t *testing.T) {
	s := newTestServer()

	var res CleanupOutlineToolResult
	decodeToolResult(t, callTool(t, s, "roof_cleanup_outline", map[string]interface{}{
		"outline": geometry.Shape{
			ID:     "roof",
			Points: []geometry.Point{{X: 10, Y: 10}, {X: 60, Y: 10.5}, {X: 110, Y: 10}, {X: 110, Y: 110}, {X: 10, Y: 110}},
			Closed: true,
		},
		"width":  200,
		"height": 200,
	}), &res)

	want := []geometry.Point{{X: 10, Y: 10}, {X: 110, Y: 10}, {X: 110, Y: 110}, {X: 10, Y: 110}}
	if len(res.Outline.Points) != len(want) {
		t.Fatalf("got %v, want %v", res.Outline.Points, want)
	}
	for i, p := range want {
		if res.Outline.Points[i].Dist(p) > 1e-6 {
			t.Errorf("point %d: got %v, want %v", i, res.Outline.Points[i], p)
		}
	}
	if !res.Outline.Closed || res.Outline.ID != "roof" {
		t.Errorf("outline lost its identity: %+v", res.Outline)
	}
	if math.Abs(res.Area-10000) > 1e-6 {
		t.Errorf("area: got %v, want 10000", res.Area)
	}
	if res.EdgeSnapped {
		t.Error("edge snapping reported without an image")
	}
}

func TestHandleToolsCall_CleanupOutlineFlat(t *testing.T) {
	s := newTestServer()

	var res CleanupOutlineToolResult
	decodeToolResult(t, callTool(t, s, "roof_cleanup_outline", map[string]interface{}{
		"points_flat": []float64{10, 10, 60, 10.5, 110, 10, 110, 110, 10, 110},
		"width":       200,
		"height":      200,
	}), &res)

	want := []float64{10, 10, 110, 10, 110, 110, 10, 110}
	if len(res.PointsFlat) != len(want) {
		t.Fatalf("points_flat: got %v, want %v", res.PointsFlat, want)
	}
	for i, v := range want {
		if math.Abs(res.PointsFlat[i]-v) > 1e-6 {
			t.Errorf("points_flat[%d]: got %v, want %v", i, res.PointsFlat[i], v)
		}
	}
	if !res.Outline.Closed || res.Outline.ID != "outline" {
		t.Errorf("outline: got %+v, want a closed shape with id outline", res.Outline)
	}
}

func TestHandleToolsCall_CleanupOutlineUnreadableImage(t *testing.T) {
	s := newTestServer()
	missing := filepath.Join(t.TempDir(), "gone.png")

	var res CleanupOutlineToolResult
	decodeToolResult(t, callTool(t, s, "roof_cleanup_outline", map[string]interface{}{
		"outline": geometry.Shape{
			Points: []geometry.Point{{X: 10, Y: 10}, {X: 60, Y: 10.5}, {X: 110, Y: 10}, {X: 110, Y: 110}, {X: 10, Y: 110}},
			Closed: true,
		},
		"path":   missing,
		"width":  200,
		"height": 200,
	}), &res)

	if res.EdgeSnapped {
		t.Error("edge snapping reported for an unreadable image")
	}
	if len(res.Outline.Points) != 4 || math.Abs(res.Area-10000) > 1e-6 {
		t.Errorf("got %v (area %v), want the cleaned 100x100 square", res.Outline.Points, res.Area)
	}

	// Without a size to fall back on the load failure is reported.
	resp := callTool(t, s, "roof_cleanup_outline", map[string]interface{}{
		"points_flat": []float64{0, 0, 10, 0, 10, 10},
		"path":        missing,
	})
	expectErrorCode(t, resp, -32000)
}

func TestHandleToolsCall_CleanupOutlineWithImage(t *testing.T) {
	s := newTestServer()
	gable := createTestImageFile(t, createGableImage(0))

	var res CleanupOutlineToolResult
	decodeToolResult(t, callTool(t, s, "roof_cleanup_outline", map[string]interface{}{
		"outline": geometry.Shape{
			Points: []geometry.Point{{X: 52, Y: 132}, {X: 130, Y: 60}, {X: 190, Y: 60}, {X: 268, Y: 132}},
			Closed: true,
		},
		"path": gable,
	}), &res)

	if !res.EdgeSnapped {
		t.Error("edge snapping not applied with an image")
	}
	if !res.Outline.Closed || len(res.Outline.Points) < 3 {
		t.Errorf("outline: got %+v, want a closed polygon", res.Outline)
	}
}

func TestHandleToolsCall_CleanupGeometry(t *testing.T) {
	s := newTestServer()
	locked := geometry.Shape{ID: "c", Points: []geometry.Point{{X: 5, Y: 50}, {X: 7, Y: 200}}}

	var out geometry.Geometry
	decodeToolResult(t, callTool(t, s, "roof_cleanup_geometry", map[string]interface{}{
		"geometry": geometry.Geometry{
			Lines: []geometry.Shape{
				{ID: "a", Points: []geometry.Point{{X: 10, Y: 10}, {X: 100, Y: 12}}},
				{ID: "b", Points: []geometry.Point{{X: 102, Y: 14}, {X: 102, Y: 100}}},
				locked,
			},
		},
		"width":  200,
		"height": 200,
		"locked": []string{"c"},
	}), &out)

	if len(out.Lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(out.Lines))
	}
	a, b, c := out.Lines[0], out.Lines[1], out.Lines[2]

	// a snaps horizontal from its anchor.
	if a.Points[0] != geometry.Pt(10, 10) || a.Points[1].Y != 10 {
		t.Errorf("line a: got %v, want a horizontal line from (10,10)", a.Points)
	}
	// b's start joined a's end at their centroid, then b snapped vertical.
	if b.Points[0] != geometry.Pt(101, 13) {
		t.Errorf("line b start: got %v, want (101,13)", b.Points[0])
	}
	if math.Abs(b.Points[1].X-101) > 1e-9 {
		t.Errorf("line b end: got %v, want x=101", b.Points[1])
	}
	if c.Points[0] != locked.Points[0] || c.Points[1] != locked.Points[1] {
		t.Errorf("locked line moved: got %v", c.Points)
	}
}
