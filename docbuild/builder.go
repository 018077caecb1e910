package docbuild

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	// Registered for image.DecodeConfig dimension sniffing.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Builder owns exactly one live in-memory document. Handles are never shared:
// each orchestrator run allocates its own builder via Engine.NewBuilder and
// drops it after Finalize. Appends of headings, paragraphs, tables, and page
// breaks are pure in-memory mutations; only image resolution performs I/O.
type Builder struct {
	logger        *slog.Logger
	client        *http.Client
	maxImageBytes int64

	doc       document
	finalized bool
}

// NewBuilder allocates a fresh, empty in-memory document. No disk access.
func (e *Engine) NewBuilder() *Builder {
	return &Builder{
		logger:        e.logger,
		client:        e.cfg.HTTPClient,
		maxImageBytes: e.cfg.MaxImageBytes,
	}
}

// SetMetadata sets the document title and author properties.
func (b *Builder) SetMetadata(title, author string) {
	if b.finalized {
		b.logger.Warn("append after finalize ignored", "op", "metadata")
		return
	}
	b.doc.title = title
	b.doc.author = author
}

// AppendHeading appends a heading. Levels outside [1,9] are clamped to the
// nearest bound; this operation never fails.
func (b *Builder) AppendHeading(text string, level int) {
	if b.finalized {
		b.logger.Warn("append after finalize ignored", "op", "heading")
		return
	}
	b.doc.blocks = append(b.doc.blocks, block{
		kind:  blockHeading,
		text:  text,
		level: clampLevel(level),
	})
}

// AppendParagraph appends a paragraph. The empty string produces an empty
// paragraph; this operation never fails.
func (b *Builder) AppendParagraph(text string) {
	if b.finalized {
		b.logger.Warn("append after finalize ignored", "op", "paragraph")
		return
	}
	b.doc.blocks = append(b.doc.blocks, block{kind: blockParagraph, text: text})
}

// AppendPageBreak appends an explicit page break.
func (b *Builder) AppendPageBreak() {
	if b.finalized {
		b.logger.Warn("append after finalize ignored", "op", "page_break")
		return
	}
	b.doc.blocks = append(b.doc.blocks, block{kind: blockPageBreak})
}

// AppendTable appends a table. Rows must be rectangular; a ragged table
// returns TableShapeError and leaves the document untouched.
func (b *Builder) AppendTable(t TableSpec) error {
	if b.finalized {
		return errors.New("append after finalize")
	}
	if len(t.Data) == 0 {
		return &TableShapeError{Row: 0, Got: 0, Want: 1}
	}
	want := len(t.Data[0])
	for i, row := range t.Data {
		if len(row) != want {
			return &TableShapeError{Row: i, Got: len(row), Want: want}
		}
	}
	b.doc.blocks = append(b.doc.blocks, block{kind: blockTable, rows: t.Data})
	return nil
}

// AppendImage resolves the image source (local path or URL), embeds the
// bytes, and appends an inline image with an optional caption. Unresolvable
// or undecodable sources return ImageUnavailableError; any temp file used
// during a remote fetch is removed on every exit path.
func (b *Builder) AppendImage(ctx context.Context, ref ImageRef) error {
	if b.finalized {
		return errors.New("append after finalize")
	}

	data, err := b.resolveImage(ctx, ref.Source)
	if err != nil {
		return &ImageUnavailableError{Source: ref.Source, Err: err}
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return &ImageUnavailableError{Source: ref.Source, Err: fmt.Errorf("unsupported image type %s", contentType)}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return &ImageUnavailableError{Source: ref.Source, Err: fmt.Errorf("decode: %w", err)}
	}

	cx, cy := imageExtent(cfg.Width, cfg.Height, ref.WidthInches)
	idx := len(b.doc.media)
	b.doc.media = append(b.doc.media, media{
		name:        fmt.Sprintf("image%d%s", idx+1, ext),
		contentType: contentType,
		data:        data,
		cx:          cx,
		cy:          cy,
	})
	b.doc.blocks = append(b.doc.blocks, block{kind: blockImage, mediaIdx: idx, text: ref.Caption})
	return nil
}

// Finalize serializes the full document exactly once. A second call is a
// use-after-finalize bug and fails; the document is gone.
func (b *Builder) Finalize() ([]byte, error) {
	if b.finalized {
		return nil, &SerializationError{Err: errors.New("document already finalized")}
	}
	b.finalized = true
	data, err := writeDocx(&b.doc)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	return data, nil
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 9 {
		return 9
	}
	return level
}

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpeg",
	"image/gif":  ".gif",
}

const (
	emuPerInch  = 914400
	emuPerPixel = 9525 // 96 dpi
	maxWidthIn  = 6.5  // usable width of an A4/Letter page
)

// imageExtent computes the inline extent in EMU, preserving aspect ratio.
func imageExtent(pxW, pxH int, widthInches float64) (int64, int64) {
	if pxW <= 0 || pxH <= 0 {
		pxW, pxH = 400, 300
	}
	w := float64(pxW) / 96.0
	if widthInches > 0 {
		w = widthInches
	}
	if w > maxWidthIn {
		w = maxWidthIn
	}
	h := w * float64(pxH) / float64(pxW)
	return int64(w * emuPerInch), int64(h * emuPerInch)
}

func (b *Builder) resolveImage(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return b.fetchRemote(ctx, source)
	}

	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	if info.Size() == 0 {
		return nil, errors.New("file is empty")
	}
	if info.Size() > b.maxImageBytes {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), b.maxImageBytes)
	}
	return os.ReadFile(source)
}

// fetchRemote downloads through a temp file so partial downloads never live
// in memory unbounded; the temp file is removed on every exit path.
func (b *Builder) fetchRemote(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch: status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "docforge-img-*")
	if err != nil {
		return nil, err
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, b.maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	if n > b.maxImageBytes {
		return nil, fmt.Errorf("image too large (max %d bytes)", b.maxImageBytes)
	}
	if n == 0 {
		return nil, errors.New("empty response body")
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(tmp)
}
