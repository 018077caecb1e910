// Package imgextract pulls embedded images out of document files.
//
// OOXML containers (docx, xlsx, pptx) are opened as ZIP archives and their
// media directories scanned. PDFs go through pdfcpu image extraction into a
// temp directory that is removed before Extract returns, whatever the
// outcome.
package imgextract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/tomrobin33/docforge/audit"
)

// Image is one extracted image.
type Image struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`

	// Data holds the image bytes. Not part of the JSON payload.
	Data []byte `json:"-"`
}

// Result is the outcome of one extraction.
type Result struct {
	Source string  `json:"source"`
	Format string  `json:"format"`
	Count  int     `json:"count"`
	Images []Image `json:"images"`
}

// Extractor pulls images from documents.
type Extractor struct {
	cfg    Config
	logger *slog.Logger
}

// Config configures the extractor.
type Config struct {
	// MaxFileSize is the maximum source file size (default: 200 MB).
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// FetchTimeout bounds a single remote download (default: 60 s).
	FetchTimeout time.Duration `json:"fetch_timeout" yaml:"fetch_timeout"`

	// HTTPClient performs remote downloads.
	HTTPClient *http.Client `json:"-" yaml:"-"`

	// Logger for diagnostics.
	Logger *slog.Logger `json:"-" yaml:"-"`

	// Audit records tool invocations when set.
	Audit *audit.Recorder `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 200 * 1024 * 1024
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

// New creates an Extractor.
func New(cfg Config) *Extractor {
	cfg.defaults()
	return &Extractor{cfg: cfg, logger: cfg.Logger}
}

// mediaDirs maps OOXML extensions to their media directory inside the archive.
var mediaDirs = map[string]string{
	".docx": "word/media/",
	".xlsx": "xl/media/",
	".pptx": "ppt/media/",
}

// Extract pulls all embedded images from a document at a local path or URL.
func (x *Extractor) Extract(ctx context.Context, source string) (*Result, error) {
	path := source
	if isURL(source) {
		tmp, cleanup, err := x.download(ctx, source)
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
	if info.Size() > x.cfg.MaxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), x.cfg.MaxFileSize)
	}

	ext := strings.ToLower(filepath.Ext(stripQuery(source)))

	var images []Image
	switch {
	case mediaDirs[ext] != "":
		images, err = extractFromArchive(path, mediaDirs[ext])
	case ext == ".pdf":
		images, err = extractFromPDF(path)
	default:
		return nil, fmt.Errorf("unsupported format: %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("extract images from %s: %w", source, err)
	}

	x.logger.Info("images extracted", "source", source, "count", len(images))

	return &Result{
		Source: source,
		Format: strings.TrimPrefix(ext, "."),
		Count:  len(images),
		Images: images,
	}, nil
}

// extractFromArchive scans an OOXML ZIP for files under its media directory.
func extractFromArchive(path, mediaDir string) ([]Image, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	var images []Image
	for _, f := range r.File {
		if !strings.HasPrefix(f.Name, mediaDir) || f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		images = append(images, Image{
			Name:        filepath.Base(f.Name),
			ContentType: http.DetectContentType(data),
			Size:        len(data),
			Data:        data,
		})
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Name < images[j].Name })
	return images, nil
}

// extractFromPDF extracts image XObjects via pdfcpu into a temp directory,
// reads them back, and removes the directory on every path.
func extractFromPDF(path string) ([]Image, error) {
	dir, err := os.MkdirTemp("", "docforge-imgx-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractImagesFile(path, dir, nil, conf); err != nil {
		return nil, fmt.Errorf("pdfcpu extract: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var images []Image
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		images = append(images, Image{
			Name:        entry.Name(),
			ContentType: http.DetectContentType(data),
			Size:        len(data),
			Data:        data,
		})
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Name < images[j].Name })
	return images, nil
}

// Archive packs the extracted images into a single ZIP for download.
func (r *Result) Archive() ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, img := range r.Images {
		f, err := w.Create(img.Name)
		if err != nil {
			return nil, err
		}
		if _, err := f.Write(img.Data); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo writes each image into dir, creating it if needed. Returns the
// written paths.
func (r *Result) WriteTo(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(r.Images))
	for _, img := range r.Images {
		dest := filepath.Join(dir, filepath.Base(img.Name))
		if err := os.WriteFile(dest, img.Data, 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, dest)
	}
	return paths, nil
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

func (x *Extractor) download(ctx context.Context, url string) (string, func(), error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, err
	}
	resp, err := x.cfg.HTTPClient.Do(req)
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

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, x.cfg.MaxFileSize+1))
	closeErr := tmp.Close()
	switch {
	case err != nil:
		cleanup()
		return "", nil, fmt.Errorf("download: %w", err)
	case closeErr != nil:
		cleanup()
		return "", nil, closeErr
	case n > x.cfg.MaxFileSize:
		cleanup()
		return "", nil, fmt.Errorf("file too large (max %d bytes)", x.cfg.MaxFileSize)
	}

	return tmp.Name(), cleanup, nil
}
