package imgextract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tomrobin33/docforge/audit"
	"github.com/tomrobin33/docforge/kit"
	"github.com/tomrobin33/docforge/storage"
)

// RegisterMCP registers the image-extraction tools on an MCP server. The
// store receives the ZIP archive on upload paths; pass nil to register the
// local-only tool alone.
func (x *Extractor) RegisterMCP(srv *mcp.Server, store storage.Store) {
	x.registerExtractTool(srv)
	x.registerExtractUploadTool(srv, store)
}

// instrument wraps an endpoint so every call lands one audit row.
func (x *Extractor) instrument(endpoint kit.Endpoint, filename func(req any) string) kit.Endpoint {
	if x.cfg.Audit == nil {
		return endpoint
	}
	return kit.Chain(audit.ToolMiddleware(x.cfg.Audit, filename))(endpoint)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- extract_images_from_file ---

type extractReq struct {
	Source    string `json:"source"`
	OutputDir string `json:"output_dir,omitempty"`
}

type extractResp struct {
	Message string   `json:"message"`
	Count   int      `json:"count"`
	Images  []Image  `json:"images"`
	Paths   []string `json:"paths,omitempty"`
}

func (x *Extractor) registerExtractTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: "extract_images_from_file",
		Description: "Extract all embedded images from a document (docx, xlsx, pptx, pdf) " +
			"into a local directory.",
		InputSchema: inputSchema(map[string]any{
			"source":     map[string]any{"type": "string", "description": "File path or http(s) URL"},
			"output_dir": map[string]any{"type": "string", "description": "Directory receiving the images (default: extracted_images)"},
		}, []string{"source"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*extractReq)
		res, err := x.Extract(ctx, r.Source)
		if err != nil {
			return nil, err
		}

		dir := r.OutputDir
		if dir == "" {
			dir = "extracted_images"
		}
		paths, err := res.WriteTo(dir)
		if err != nil {
			return nil, err
		}
		return &extractResp{
			Message: fmt.Sprintf("%d images extracted to %s", res.Count, dir),
			Count:   res.Count,
			Images:  res.Images,
			Paths:   paths,
		}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r extractReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	filename := func(req any) string { return req.(*extractReq).Source }
	kit.RegisterMCPTool(srv, tool, x.instrument(endpoint, filename), decode)
}

// --- extract_images_and_upload ---

type extractUploadReq struct {
	Source string `json:"source"`
}

type extractUploadResp struct {
	Message    string  `json:"message"`
	Count      int     `json:"count"`
	Images     []Image `json:"images"`
	PublicURL  string  `json:"public_url"`
	RemotePath string  `json:"remote_path"`
}

func (x *Extractor) registerExtractUploadTool(srv *mcp.Server, store storage.Store) {
	tool := &mcp.Tool{
		Name: "extract_images_and_upload",
		Description: "Extract all embedded images from a document (docx, xlsx, pptx, pdf), " +
			"pack them into a ZIP archive, and upload it, returning a public URL.",
		InputSchema: inputSchema(map[string]any{
			"source": map[string]any{"type": "string", "description": "File path or http(s) URL"},
		}, []string{"source"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		if store == nil {
			return nil, errors.New("no upload store configured")
		}
		r := req.(*extractUploadReq)
		res, err := x.Extract(ctx, r.Source)
		if err != nil {
			return nil, err
		}
		if res.Count == 0 {
			return nil, fmt.Errorf("no images found in %s", r.Source)
		}

		data, err := res.Archive()
		if err != nil {
			return nil, fmt.Errorf("pack archive: %w", err)
		}
		up, err := store.Put(ctx, archiveName(r.Source), data)
		if err != nil {
			return nil, fmt.Errorf("upload archive: %w", err)
		}
		return &extractUploadResp{
			Message:    fmt.Sprintf("%d images extracted and uploaded", res.Count),
			Count:      res.Count,
			Images:     res.Images,
			PublicURL:  up.PublicURL,
			RemotePath: up.RemotePath,
		}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r extractUploadReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	filename := func(req any) string { return req.(*extractUploadReq).Source }
	kit.RegisterMCPTool(srv, tool, x.instrument(endpoint, filename), decode)
}

// archiveName derives the uploaded ZIP name from the source file name.
func archiveName(source string) string {
	base := stripQuery(source)
	if i := strings.LastIndexAny(base, "/\\"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	if base == "" {
		base = "images"
	}
	return base + "_images.zip"
}
