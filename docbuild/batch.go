package docbuild

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// RunOptions controls the tail of a batch run.
type RunOptions struct {
	// Save finalizes the document and writes it to the engine's output
	// directory. When false the document is assembled and discarded, which
	// is how callers validate a payload without paying for serialization.
	Save bool
}

// Run drives one batch assembly: decode the canonical mapping, apply every
// element to a fresh in-memory builder, and finalize at most once.
//
// Fatal conditions (malformed top-level fields, serialization failure)
// return an error and no result. Per-element failures (ragged table,
// unresolvable image) are recorded in the result and never abort the batch.
//
// Categories are applied in fixed order (metadata, headings, paragraphs,
// tables, images, page breaks) regardless of their order in the payload;
// order within each category follows the input.
func (e *Engine) Run(ctx context.Context, filename string, raw map[string]any, opts RunOptions) (*BatchResult, error) {
	filename = EnsureDocxExtension(filename)

	// All top-level shape checks happen before the builder exists, so a
	// malformed payload can never leave a half-mutated document behind.
	title, err := optString(raw, "title")
	if err != nil {
		return nil, err
	}
	author, err := optString(raw, "author")
	if err != nil {
		return nil, err
	}
	headings, err := optSeq(raw, "headings")
	if err != nil {
		return nil, err
	}
	paragraphs, err := optSeq(raw, "paragraphs")
	if err != nil {
		return nil, err
	}
	tables, err := optSeq(raw, "tables")
	if err != nil {
		return nil, err
	}
	images, err := optSeq(raw, "images")
	if err != nil {
		return nil, err
	}
	pageBreaks, err := pageBreakCount(raw)
	if err != nil {
		return nil, err
	}

	b := e.NewBuilder()
	res := &BatchResult{Filename: filename}

	if title != "" || author != "" {
		b.SetMetadata(title, author)
	}

	for i, v := range headings {
		h, err := decodeHeading(v)
		if err != nil {
			res.fail(i, KindHeading, err.Error())
			continue
		}
		b.AppendHeading(h.Text, h.Level)
		res.ok(i, KindHeading, fmt.Sprintf("heading %q added", truncate(h.Text, 50)))
		res.Stats.HeadingsCount++
	}

	for i, v := range paragraphs {
		text, err := decodeParagraph(v)
		if err != nil {
			res.fail(i, KindParagraph, err.Error())
			continue
		}
		b.AppendParagraph(text)
		res.ok(i, KindParagraph, fmt.Sprintf("paragraph added: %s", truncate(text, 50)))
		res.Stats.ParagraphsCount++
	}

	for i, v := range tables {
		t, err := decodeTable(v)
		if err != nil {
			res.fail(i, KindTable, err.Error())
			continue
		}
		if err := b.AppendTable(t); err != nil {
			res.fail(i, KindTable, err.Error())
			continue
		}
		res.ok(i, KindTable, fmt.Sprintf("table (%dx%d) added", len(t.Data), len(t.Data[0])))
		res.Stats.TablesCount++
	}

	for i, v := range images {
		ref, err := decodeImage(v)
		if err != nil {
			res.fail(i, KindImage, err.Error())
			continue
		}
		if err := b.AppendImage(ctx, ref); err != nil {
			res.fail(i, KindImage, err.Error())
			continue
		}
		res.ok(i, KindImage, fmt.Sprintf("image added: %s", ref.Source))
		res.Stats.ImagesCount++
	}

	for i := range pageBreaks {
		b.AppendPageBreak()
		res.ok(i, KindPageBreak, "page break added")
		res.Stats.PageBreaksCount++
	}

	if opts.Save {
		data, err := b.Finalize()
		if err != nil {
			return nil, err
		}
		res.Doc = data
		if err := e.writeLocal(filename, data); err != nil {
			return nil, err
		}
		res.Saved = true
	}

	e.logger.Info("batch run complete",
		"filename", filename,
		"headings", res.Stats.HeadingsCount,
		"paragraphs", res.Stats.ParagraphsCount,
		"tables", res.Stats.TablesCount,
		"images", res.Stats.ImagesCount,
		"errors", res.Stats.ErrorsCount,
		"saved", res.Saved)

	return res, nil
}

// RunSpec runs a batch from an already-typed ContentSpec. Used by ingestion
// paths (HTML, spreadsheet conversion) that build specs programmatically.
func (e *Engine) RunSpec(ctx context.Context, filename string, spec *ContentSpec, opts RunOptions) (*BatchResult, error) {
	data, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("encode spec: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode spec: %w", err)
	}
	return e.Run(ctx, filename, raw, opts)
}

func (e *Engine) writeLocal(filename string, data []byte) error {
	if err := os.MkdirAll(e.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}
	dest := filepath.Join(e.cfg.OutputDir, filepath.Base(filename))
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("save %s: %w", dest, err)
	}
	return nil
}

func (r *BatchResult) ok(index int, kind, detail string) {
	r.Results = append(r.Results, ElementResult{Index: index, Kind: kind, Status: StatusOK, Detail: detail})
}

func (r *BatchResult) fail(index int, kind, detail string) {
	r.Results = append(r.Results, ElementResult{Index: index, Kind: kind, Status: StatusFailed, Detail: detail})
	r.Stats.ErrorsCount++
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
