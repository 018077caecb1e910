// Package docread extracts structured content from document files.
//
// Supported formats:
//   - .docx: Microsoft Word (archive/zip, word/document.xml, tables kept as grids)
//   - .pdf:  PDF text extraction (pdfcpu, page-aware, with quality scoring)
//   - .xlsx: Excel workbooks (one table per sheet)
//   - .md:   Markdown (heading detection)
//   - .txt:  plain text (whitespace normalization)
//   - .html: HTML (DOM walk, hidden/boilerplate nodes skipped)
//
// Sources may be local paths or http(s) URLs; remote files are downloaded to
// a temp file that is removed before Process returns.
//
// Usage:
//
//	r := docread.New(docread.Config{})
//	doc, err := r.Process(ctx, "/path/to/file.docx")
//	fmt.Println(doc.Title, len(doc.Blocks), "blocks")
package docread

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomrobin33/docforge/audit"
)

// Reader is the document processing engine.
type Reader struct {
	cfg    Config
	logger *slog.Logger
}

// Config configures the reader.
type Config struct {
	// MaxFileSize is the maximum file size to process (default: 100 MB).
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// FetchTimeout bounds a single remote download (default: 60 s).
	FetchTimeout time.Duration `json:"fetch_timeout" yaml:"fetch_timeout"`

	// HTTPClient performs remote downloads.
	HTTPClient *http.Client `json:"-" yaml:"-"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`

	// Audit records tool invocations when set.
	Audit *audit.Recorder `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 100 * 1024 * 1024
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 60 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.FetchTimeout}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// New creates a Reader with the given configuration.
func New(cfg Config) *Reader {
	cfg.defaults()
	return &Reader{
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

// Detect returns the document format based on file extension.
func (r *Reader) Detect(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(stripQuery(path)))
	switch ext {
	case ".docx":
		return FormatDocx, nil
	case ".pdf":
		return FormatPDF, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".md", ".markdown":
		return FormatMD, nil
	case ".txt", ".text":
		return FormatTXT, nil
	case ".html", ".htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported format: %q", ext)
	}
}

// Process parses a document from a local path or URL and returns its
// structured content.
func (r *Reader) Process(ctx context.Context, source string) (*Document, error) {
	format, err := r.Detect(source)
	if err != nil {
		return nil, err
	}

	path := source
	if isURL(source) {
		tmp, cleanup, err := r.download(ctx, source)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		path = tmp
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > r.cfg.MaxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), r.cfg.MaxFileSize)
	}

	r.logger.Debug("processing document", "source", source, "format", format)

	var title string
	var blocks []Block
	var tables []Table
	var images []string
	var quality *ExtractionQuality

	switch format {
	case FormatDocx:
		title, blocks, tables, images, err = readDocx(path)
	case FormatPDF:
		title, blocks, quality, err = readPDF(path)
	case FormatXLSX:
		title, blocks, tables, err = readXLSX(path)
	case FormatMD:
		title, blocks, err = readMarkdown(path)
	case FormatTXT:
		title, blocks, err = readText(path)
	case FormatHTML:
		title, blocks, err = readHTMLFile(path)
	default:
		return nil, fmt.Errorf("no parser for format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("process %s (%s): %w", source, format, err)
	}

	doc := &Document{
		Source:  source,
		Format:  format,
		Title:   title,
		Blocks:  blocks,
		Tables:  tables,
		Images:  images,
		Quality: quality,
	}
	doc.Outline = buildOutline(blocks)
	doc.RawText = joinBlocks(blocks)
	return doc, nil
}

// SupportedFormats returns all supported format extensions.
func SupportedFormats() []string {
	return []string{"docx", "pdf", "xlsx", "md", "txt", "html"}
}

func buildOutline(blocks []Block) []OutlineEntry {
	var out []OutlineEntry
	for _, b := range blocks {
		if b.Type == "heading" {
			out = append(out, OutlineEntry{Text: b.Title, Level: b.Level})
		}
	}
	return out
}

func joinBlocks(blocks []Block) string {
	var sb strings.Builder
	for i, b := range blocks {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if b.Title != "" && b.Title != b.Text {
			sb.WriteString(b.Title)
			sb.WriteByte('\n')
		}
		sb.WriteString(b.Text)
	}
	return sb.String()
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func stripQuery(source string) string {
	if !isURL(source) {
		return source
	}
	if i := strings.IndexAny(source, "?#"); i >= 0 {
		return source[:i]
	}
	return source
}

// download fetches a remote document into a temp file. The returned cleanup
// removes the file; it must run even when processing fails.
func (r *Reader) download(ctx context.Context, url string) (string, func(), error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, err
	}
	resp, err := r.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("download: status %d", resp.StatusCode)
	}

	ext := filepath.Ext(stripQuery(url))
	tmp, err := os.CreateTemp("", "docforge-dl-*"+ext)
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, r.cfg.MaxFileSize+1))
	closeErr := tmp.Close()
	switch {
	case err != nil:
		cleanup()
		return "", nil, fmt.Errorf("download: %w", err)
	case closeErr != nil:
		cleanup()
		return "", nil, closeErr
	case n > r.cfg.MaxFileSize:
		cleanup()
		return "", nil, fmt.Errorf("file too large (max %d bytes)", r.cfg.MaxFileSize)
	case n == 0:
		cleanup()
		return "", nil, fmt.Errorf("download: empty body")
	}

	return tmp.Name(), cleanup, nil
}
