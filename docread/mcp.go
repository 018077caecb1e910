package docread

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tomrobin33/docforge/audit"
	"github.com/tomrobin33/docforge/kit"
)

// RegisterMCP registers the document-processing tools on an MCP server.
func (r *Reader) RegisterMCP(srv *mcp.Server) {
	r.registerProcessTool(srv)
	r.registerDetectTool(srv)
	r.registerFormatsTool(srv)
}

// instrument wraps an endpoint so every call lands one audit row.
func (r *Reader) instrument(endpoint kit.Endpoint, filename func(req any) string) kit.Endpoint {
	if r.cfg.Audit == nil {
		return endpoint
	}
	return kit.Chain(audit.ToolMiddleware(r.cfg.Audit, filename))(endpoint)
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

// --- process_file ---

type processReq struct {
	Source      string `json:"source"`
	Filename    string `json:"filename"`
	FileURL     string `json:"file_url"`
	ProcessType string `json:"process_type"`
}

func (pr *processReq) source() string {
	if pr.FileURL != "" {
		return pr.FileURL
	}
	if pr.Filename != "" {
		return pr.Filename
	}
	return pr.Source
}

func (r *Reader) registerProcessTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: "process_file",
		Description: "Extract structured content (text, tables, outline, metadata) from a " +
			"document file or URL (docx, pdf, xlsx, md, txt, html).",
		InputSchema: inputSchema(map[string]any{
			"source":       map[string]any{"type": "string", "description": "File path or http(s) URL"},
			"filename":     map[string]any{"type": "string", "description": "Local file path (alias of source)"},
			"file_url":     map[string]any{"type": "string", "description": "http(s) URL (alias of source)"},
			"process_type": map[string]any{"type": "string", "description": "Processing mode, only \"extract\" is supported"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		pr := req.(*processReq)
		if pr.ProcessType != "" && pr.ProcessType != "extract" {
			return nil, fmt.Errorf("unsupported process_type %q", pr.ProcessType)
		}
		src := pr.source()
		if src == "" {
			return nil, errors.New("one of source, filename or file_url is required")
		}
		return r.Process(ctx, src)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var pr processReq
		if err := json.Unmarshal(req.Params.Arguments, &pr); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &pr}, nil
	}

	filename := func(req any) string { return req.(*processReq).source() }
	kit.RegisterMCPTool(srv, tool, r.instrument(endpoint, filename), decode)
}

// --- detect_format ---

type detectReq struct {
	Source string `json:"source"`
}

func (r *Reader) registerDetectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "detect_format",
		Description: "Detect the format of a document file from its extension.",
		InputSchema: inputSchema(map[string]any{
			"source": map[string]any{"type": "string", "description": "File path or URL to detect"},
		}, []string{"source"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		format, err := r.Detect(req.(*detectReq).Source)
		if err != nil {
			return nil, err
		}
		return map[string]any{"format": string(format)}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var dr detectReq
		if err := json.Unmarshal(req.Params.Arguments, &dr); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &dr}, nil
	}

	filename := func(req any) string { return req.(*detectReq).Source }
	kit.RegisterMCPTool(srv, tool, r.instrument(endpoint, filename), decode)
}

// --- supported_formats ---

func (r *Reader) registerFormatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "supported_formats",
		Description: "List all document formats the server can read.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return map[string]any{"formats": SupportedFormats()}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, r.instrument(endpoint, nil), decode)
}
