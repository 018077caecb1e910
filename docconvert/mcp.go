package docconvert

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tomrobin33/docforge/audit"
	"github.com/tomrobin33/docforge/kit"
)

// RegisterMCP registers the conversion tools on an MCP server.
func (c *Converter) RegisterMCP(srv *mcp.Server) {
	c.registerTool(srv, &mcp.Tool{
		Name:        "convert_to_pdf",
		Description: "Convert a document (docx, md, txt, html) to PDF.",
		InputSchema: sourceSchema(),
	}, c.ToPDF)

	c.registerTool(srv, &mcp.Tool{
		Name:        "word_to_excel",
		Description: "Extract the tables of a Word document into an Excel workbook, one sheet per table.",
		InputSchema: sourceSchema(),
	}, c.WordToExcel)

	c.registerTool(srv, &mcp.Tool{
		Name:        "excel_to_word",
		Description: "Render an Excel workbook as a Word document, one heading and table per sheet.",
		InputSchema: sourceSchema(),
	}, c.ExcelToWord)
}

func sourceSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"source":          map[string]any{"type": "string", "description": "File path or http(s) URL"},
			"output_filename": map[string]any{"type": "string", "description": "Optional name for the converted file"},
		},
		"required": []string{"source"},
	}
}

type convertReq struct {
	Source         string `json:"source"`
	OutputFilename string `json:"output_filename"`
}

type convertResp struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Size     int    `json:"size"`
}

func (c *Converter) registerTool(srv *mcp.Server, tool *mcp.Tool, convert func(ctx context.Context, source, output string) (*ConvertResult, error)) {
	var endpoint kit.Endpoint = func(ctx context.Context, req any) (any, error) {
		r := req.(*convertReq)
		res, err := convert(ctx, r.Source, r.OutputFilename)
		if err != nil {
			return nil, err
		}
		return &convertResp{
			Message:  fmt.Sprintf("converted %s to %s", r.Source, res.Filename),
			Filename: res.Filename,
			Path:     res.Path,
			Size:     res.Size,
		}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r convertReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	if c.cfg.Audit != nil {
		filename := func(req any) string { return req.(*convertReq).Source }
		endpoint = kit.Chain(audit.ToolMiddleware(c.cfg.Audit, filename))(endpoint)
	}
	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
