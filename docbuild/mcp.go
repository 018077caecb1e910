package docbuild

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tomrobin33/docforge/audit"
	"github.com/tomrobin33/docforge/kit"
	"github.com/tomrobin33/docforge/storage"
)

// RegisterMCP registers the document-generation tools on an MCP server.
func (e *Engine) RegisterMCP(srv *mcp.Server) {
	e.registerBatchTool(srv)
	e.registerAutoUploadTool(srv)
	e.registerCreateUploadTool(srv)
	e.registerFromHTMLTool(srv)
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

func (e *Engine) recordInvocation(ctx context.Context, tool, filename string, start time.Time, err error) {
	if e.cfg.Audit == nil {
		return
	}
	inv := audit.Invocation{
		ToolName:  tool,
		Transport: kit.GetTransport(ctx),
		Filename:  filename,
		Success:   err == nil,
		Duration:  time.Since(start),
	}
	if err != nil {
		inv.Detail = err.Error()
	}
	e.cfg.Audit.RecordInvocation(ctx, inv)
}

// --- batch_generate_word_document ---

type batchReq struct {
	Filename       string `json:"filename"`
	Content        any    `json:"content"`
	SaveAfterBatch *bool  `json:"save_after_batch,omitempty"`
}

type batchResp struct {
	Message  string          `json:"message"`
	Filename string          `json:"filename"`
	Stats    Stats           `json:"stats"`
	Results  []ElementResult `json:"results"`
	Saved    bool            `json:"saved"`
}

func (e *Engine) registerBatchTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: "batch_generate_word_document",
		Description: "Generate a Word document from a structured content spec " +
			"(title, author, headings, paragraphs, tables, images) in one batch. " +
			"All edits are applied in memory and serialized once at the end.",
		InputSchema: inputSchema(map[string]any{
			"filename": map[string]any{"type": "string", "description": "Output filename, .docx appended if missing"},
			"content":  map[string]any{"type": "object", "description": "Content spec: title, author, headings, paragraphs, tables, images, page_breaks"},
			"save_after_batch": map[string]any{"type": "boolean", "description": "Write the document after the batch (default true)"},
		}, []string{"filename", "content"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*batchReq)
		start := time.Now()

		save := true
		if r.SaveAfterBatch != nil {
			save = *r.SaveAfterBatch
		}

		filename, canonical, err := e.Normalize(ctx, r.Filename, r.Content)
		if err == nil {
			var res *BatchResult
			res, err = e.Run(ctx, filename, canonical, RunOptions{Save: save})
			if err == nil {
				e.recordInvocation(ctx, tool.Name, res.Filename, start, nil)
				return &batchResp{
					Message:  batchMessage(res),
					Filename: res.Filename,
					Stats:    res.Stats,
					Results:  res.Results,
					Saved:    res.Saved,
				}, nil
			}
		}
		e.recordInvocation(ctx, tool.Name, r.Filename, start, err)
		return nil, err
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r batchReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func batchMessage(res *BatchResult) string {
	total := res.Stats.HeadingsCount + res.Stats.ParagraphsCount + res.Stats.TablesCount +
		res.Stats.ImagesCount + res.Stats.PageBreaksCount
	if res.Stats.ErrorsCount == 0 {
		return fmt.Sprintf("document %s generated: %d elements applied", res.Filename, total)
	}
	return fmt.Sprintf("document %s generated with errors: %d elements applied, %d failed",
		res.Filename, total, res.Stats.ErrorsCount)
}

// --- auto_generate_and_upload_word ---

type autoUploadReq struct {
	Filename string `json:"filename"`
	Content  any    `json:"content"`
}

type uploadResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type autoUploadResp struct {
	Message      string          `json:"message"`
	PublicURL    string          `json:"public_url,omitempty"`
	RemotePath   string          `json:"remote_path,omitempty"`
	UploadResult uploadResult    `json:"upload_result"`
	Stats        Stats           `json:"stats"`
	Results      []ElementResult `json:"results"`
}

func (e *Engine) registerAutoUploadTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: "auto_generate_and_upload_word",
		Description: "Generate a Word document from a structured content spec and upload it, " +
			"returning a public URL. Document bytes are produced even when the upload fails.",
		InputSchema: inputSchema(map[string]any{
			"filename": map[string]any{"type": "string", "description": "Output filename, .docx appended if missing"},
			"content":  map[string]any{"type": "object", "description": "Content spec: title, author, headings, paragraphs, tables, images, page_breaks"},
		}, []string{"filename", "content"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*autoUploadReq)
		start := time.Now()

		filename, canonical, err := e.Normalize(ctx, r.Filename, r.Content)
		if err != nil {
			e.recordInvocation(ctx, tool.Name, r.Filename, start, err)
			return nil, err
		}
		res, err := e.Run(ctx, filename, canonical, RunOptions{Save: true})
		if err != nil {
			e.recordInvocation(ctx, tool.Name, filename, start, err)
			return nil, err
		}

		resp := &autoUploadResp{
			Stats:   res.Stats,
			Results: res.Results,
		}
		up, upErr := e.uploadBytes(ctx, res.Filename, res.Doc)
		if upErr != nil {
			resp.Message = fmt.Sprintf("document %s generated, upload failed", res.Filename)
			resp.UploadResult = uploadResult{Success: false, Error: upErr.Error()}
		} else {
			resp.Message = fmt.Sprintf("document %s generated and uploaded", res.Filename)
			resp.PublicURL = up.PublicURL
			resp.RemotePath = up.RemotePath
			resp.UploadResult = uploadResult{Success: true}
		}
		e.recordInvocation(ctx, tool.Name, res.Filename, start, upErr)
		return resp, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r autoUploadReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- create_document_and_upload ---

type createUploadReq struct {
	Filename string `json:"filename"`
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
}

type createUploadResp struct {
	Message      string       `json:"message"`
	PublicURL    string       `json:"public_url,omitempty"`
	RemotePath   string       `json:"remote_path,omitempty"`
	UploadResult uploadResult `json:"upload_result"`
}

func (e *Engine) registerCreateUploadTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: "create_document_and_upload",
		Description: "Create an empty Word document with optional title and author metadata " +
			"and upload it, returning a public URL.",
		InputSchema: inputSchema(map[string]any{
			"filename": map[string]any{"type": "string", "description": "Output filename, .docx appended if missing"},
			"title":    map[string]any{"type": "string", "description": "Document title metadata"},
			"author":   map[string]any{"type": "string", "description": "Document author metadata"},
		}, []string{"filename"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*createUploadReq)
		start := time.Now()
		filename := EnsureDocxExtension(r.Filename)

		b := e.NewBuilder()
		if r.Title != "" || r.Author != "" {
			b.SetMetadata(r.Title, r.Author)
		}
		data, err := b.Finalize()
		if err != nil {
			e.recordInvocation(ctx, tool.Name, filename, start, err)
			return nil, err
		}

		resp := &createUploadResp{}
		up, upErr := e.uploadBytes(ctx, filename, data)
		if upErr != nil {
			resp.Message = fmt.Sprintf("document %s created, upload failed", filename)
			resp.UploadResult = uploadResult{Success: false, Error: upErr.Error()}
		} else {
			resp.Message = fmt.Sprintf("document %s created and uploaded", filename)
			resp.PublicURL = up.PublicURL
			resp.RemotePath = up.RemotePath
			resp.UploadResult = uploadResult{Success: true}
		}
		e.recordInvocation(ctx, tool.Name, filename, start, upErr)
		return resp, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r createUploadReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- generate_word_from_html ---

type fromHTMLReq struct {
	Filename string `json:"filename"`
	HTML     string `json:"html"`
}

func (e *Engine) registerFromHTMLTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: "generate_word_from_html",
		Description: "Convert an HTML fragment into a Word document. The HTML is sanitized, " +
			"converted to structured content (headings, paragraphs, tables) and assembled in one batch.",
		InputSchema: inputSchema(map[string]any{
			"filename": map[string]any{"type": "string", "description": "Output filename, .docx appended if missing"},
			"html":     map[string]any{"type": "string", "description": "HTML fragment to convert"},
		}, []string{"filename", "html"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*fromHTMLReq)
		start := time.Now()

		spec, err := FromHTML(r.HTML)
		if err == nil {
			var res *BatchResult
			res, err = e.RunSpec(ctx, r.Filename, spec, RunOptions{Save: true})
			if err == nil {
				e.recordInvocation(ctx, tool.Name, res.Filename, start, nil)
				return &batchResp{
					Message:  batchMessage(res),
					Filename: res.Filename,
					Stats:    res.Stats,
					Results:  res.Results,
					Saved:    res.Saved,
				}, nil
			}
		}
		e.recordInvocation(ctx, tool.Name, r.Filename, start, err)
		return nil, err
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r fromHTMLReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (e *Engine) uploadBytes(ctx context.Context, filename string, data []byte) (*storage.Upload, error) {
	if e.cfg.Store == nil {
		return nil, errors.New("no upload store configured")
	}
	u, err := e.cfg.Store.Put(ctx, filename, data)
	if err != nil {
		return nil, &UploadError{Filename: filename, Err: err}
	}
	return u, nil
}
