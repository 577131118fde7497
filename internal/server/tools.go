package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var sceneNames = []string{"auto", "facade", "topdown"}

var regionNames = []string{"top-left", "top-right", "bottom-left", "bottom-right", "top-half", "bottom-half", "left-half", "right-half", "center"}

var lineKinds = []string{"eave", "ridge", "rake", "rake-left", "rake-right", "valley", "hip", "unknown"}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func sceneProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        sceneNames,
		"description": "Force facade or top-down handling. Default auto classifies the photo.",
		"default":     "auto",
	}
}

func pointsProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type": "array",
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"x": map[string]interface{}{"type": "number"},
				"y": map[string]interface{}{"type": "number"},
			},
			"required": []string{"x", "y"},
		},
		"description": description,
	}
}

func shapeProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"id":     map[string]interface{}{"type": "string"},
			"points": pointsProperty("Vertices in image pixels"),
			"closed": map[string]interface{}{"type": "boolean", "description": "True for a polygon, false for a polyline"},
		},
		"required":    []string{"points"},
		"description": description,
	}
}

// detectionProperties are the tuning knobs shared by the edge and line tools.
func detectionProperties() map[string]interface{} {
	return map[string]interface{}{
		"path":  pathProperty(),
		"scene": sceneProperty(),
		"sensitivity": map[string]interface{}{
			"type":        "number",
			"description": "Edge sensitivity 0-1; higher finds fainter edges. Default from server configuration.",
		},
		"detail_suppression": map[string]interface{}{
			"type":        "number",
			"description": "Texture suppression 0-1; higher smooths shingles and siding more. Default from server configuration.",
		},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	lineProps := detectionProperties()
	lineProps["region"] = map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"x1": map[string]interface{}{"type": "integer"},
			"y1": map[string]interface{}{"type": "integer"},
			"x2": map[string]interface{}{"type": "integer", "description": "Exclusive"},
			"y2": map[string]interface{}{"type": "integer", "description": "Exclusive"},
		},
		"description": "Optional pixel region to analyze. Lines are still reported in full-image coordinates.",
	}
	lineProps["region_name"] = map[string]interface{}{
		"type":        "string",
		"enum":        regionNames,
		"description": "Optional named region, used when region is omitted.",
	}

	return []Tool{
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format. The decoded image is cached for subsequent roof tools.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "roof_classify_scene",
			Description: "Decide whether a roof photo is a ground-level facade view (sky above the roof) or a top-down aerial view, and report the sky score behind the decision.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":  pathProperty(),
					"scene": sceneProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "roof_edge_map",
			Description: "Return the binary edge map the line detector works from, as a base64 PNG at processing resolution, with the hysteresis thresholds that were chosen.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": detectionProperties(),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "roof_detect_lines",
			Description: "Detect the structural lines of a roof (eave, ridge, rakes, valleys) and return them labeled with confidences, in image pixels, sorted by confidence.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": lineProps,
				"required":   []string{"path"},
			},
		},
		{
			Name:        "roof_overlay",
			Description: "Draw labeled roof lines over the image and return it as a base64 PNG with a color legend. Without lines, the detector's own lines are drawn.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"lines": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x1":         map[string]interface{}{"type": "number"},
								"y1":         map[string]interface{}{"type": "number"},
								"x2":         map[string]interface{}{"type": "number"},
								"y2":         map[string]interface{}{"type": "number"},
								"label":      map[string]interface{}{"type": "string", "enum": lineKinds},
								"confidence": map[string]interface{}{"type": "number"},
							},
							"required": []string{"x1", "y1", "x2", "y2"},
						},
						"description": "Optional lines to draw, in image pixels",
					},
					"thickness": map[string]interface{}{
						"type":        "integer",
						"description": "Stroke width in pixels (default 3)",
						"default":     3,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "roof_suggest_outline",
			Description: "Propose a closed roof outline polygon in image pixels, from the local detector or the configured remote model.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "roof_suggest_lines",
			Description: "Propose labeled roof lines in image pixels, from the local detector or the configured remote model. An outline, when given, tells the model which roof to label.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":    pathProperty(),
					"outline": pointsProperty("Optional roof outline in image pixels"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "roof_cleanup_outline",
			Description: "Refine a detected roof outline: simplify, snap down onto horizontal edges, straighten, flatten near-horizontal and near-vertical edges, and close. Edge snapping needs the image path; if the image cannot be read the outline is refined without it. Give the outline either as a shape or as points_flat.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"outline": shapeProperty("The outline to refine"),
					"points_flat": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "number"},
						"description": "Alternative to outline: a closed polygon as x1,y1,x2,y2,... in image pixels",
					},
					"width":  map[string]interface{}{"type": "integer", "description": "Image width in pixels. Taken from the image when path is set and readable."},
					"height": map[string]interface{}{"type": "integer", "description": "Image height in pixels. Taken from the image when path is set and readable."},
					"path":   pathProperty(),
				},
				"required": []string{},
			},
		},
		{
			Name:        "roof_cleanup_geometry",
			Description: "Tidy hand-traced roof geometry: straighten strokes, join nearby endpoints, snap line angles to multiples of 45 degrees and close nearly-closed shapes. Locked line IDs are left untouched.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"geometry": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"outline": shapeProperty("Optional roof outline"),
							"lines": map[string]interface{}{
								"type":  "array",
								"items": shapeProperty("A structural polyline"),
							},
						},
						"description": "Outline and lines in image pixels",
					},
					"width":  map[string]interface{}{"type": "integer", "description": "Image width in pixels"},
					"height": map[string]interface{}{"type": "integer", "description": "Image height in pixels"},
					"locked": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "IDs of lines to leave unchanged",
					},
				},
				"required": []string{"geometry", "width", "height"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
