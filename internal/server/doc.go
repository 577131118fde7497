// Package server implements the MCP (Model Context Protocol) server for roof line tools.
//
// This package provides a JSON-RPC 2.0 server that exposes roof line detection and
// outline refinement through the MCP protocol, so an assistant or an editing
// front end can trace a roof from a photograph.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Image:
//   - image_load: Load image and get metadata
//
// Detection:
//   - roof_classify_scene: Facade or top-down, with the sky score
//   - roof_edge_map: The binary edge map lines are extracted from
//   - roof_detect_lines: Labeled eave, ridge, rake and valley lines, optionally within a region
//   - roof_overlay: Lines drawn over the photo
//
// Suggestions:
//   - roof_suggest_outline: Closed roof polygon from the configured suggester
//   - roof_suggest_lines: Labeled lines from the configured suggester
//
// Refinement:
//   - roof_cleanup_outline: Simplify, edge-snap, straighten and flatten a detected outline
//   - roof_cleanup_geometry: Tidy hand-traced outline and lines
//
// All coordinates in and out are source-image pixels.
//
// # Image Caching
//
// Decoded images are kept in a bounded LRU cache keyed by path, so a client can
// call several tools on one photo without decoding it again.
//
// # Error Handling
//
// Failures are returned as JSON-RPC error responses with:
//   - code: -32602 for bad arguments or unknown tools, -32000 for tool failures,
//     -32700 for unparseable requests
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(server.DefaultOptions())
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
