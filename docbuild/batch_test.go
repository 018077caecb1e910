package docbuild

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// readPart extracts one named part from serialized docx bytes.
func readPart(t *testing.T, data []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		return string(b)
	}
	t.Fatalf("part %s not found in archive", name)
	return ""
}

// writeTestPNG writes a small PNG into dir and returns its path.
func writeTestPNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	path := filepath.Join(dir, "pic.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
	return path
}

func TestRunFullBatch(t *testing.T) {
	e := newTestEngine(t)
	pic := writeTestPNG(t, t.TempDir(), 64, 48)

	raw := map[string]any{
		"title":  "Quarterly Report",
		"author": "Ops",
		"headings": []any{
			map[string]any{"text": "Overview", "level": 1.0},
			map[string]any{"text": "Details", "level": 2.0},
		},
		"paragraphs": []any{"First paragraph.", "Second paragraph."},
		"tables": []any{
			map[string]any{"data": []any{
				[]any{"k", "v"},
				[]any{"rows", 2.0},
			}},
		},
		"images":      []any{map[string]any{"source": pic, "caption": "a square"}},
		"page_breaks": 1.0,
	}

	res, err := e.Run(context.Background(), "report", raw, RunOptions{Save: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Filename != "report.docx" {
		t.Errorf("filename = %q, want report.docx", res.Filename)
	}
	if !res.Saved {
		t.Error("saved = false, want true")
	}
	want := Stats{HeadingsCount: 2, ParagraphsCount: 2, TablesCount: 1, ImagesCount: 1, PageBreaksCount: 1}
	if res.Stats != want {
		t.Errorf("stats = %+v, want %+v", res.Stats, want)
	}
	if len(res.Results) != 7 {
		t.Fatalf("results = %d entries, want 7", len(res.Results))
	}
	for _, r := range res.Results {
		if r.Status != StatusOK {
			t.Errorf("element %s[%d] failed: %s", r.Kind, r.Index, r.Detail)
		}
	}

	if _, err := os.Stat(filepath.Join(e.cfg.OutputDir, "report.docx")); err != nil {
		t.Errorf("saved file missing: %v", err)
	}

	body := readPart(t, res.Doc, "word/document.xml")
	// Categories land in fixed order: headings, paragraphs, tables, images,
	// page breaks; within a category, input order.
	marks := []string{"Overview", "Details", "First paragraph.", "Second paragraph.",
		`<w:tbl>`, `r:embed="rId100"`, `w:type="page"`}
	pos := -1
	for _, m := range marks {
		i := strings.Index(body, m)
		if i < 0 {
			t.Fatalf("document.xml missing %q", m)
		}
		if i < pos {
			t.Errorf("%q appears out of order", m)
		}
		pos = i
	}

	core := readPart(t, res.Doc, "docProps/core.xml")
	if !strings.Contains(core, "Quarterly Report") || !strings.Contains(core, "Ops") {
		t.Errorf("core.xml missing metadata: %s", core)
	}
	readPart(t, res.Doc, "word/media/image1.png")
}

func TestRunIsolatesElementFailures(t *testing.T) {
	e := newTestEngine(t)

	raw := map[string]any{
		"paragraphs": []any{"keep me"},
		"tables": []any{
			map[string]any{"data": []any{
				[]any{"a", "b"},
				[]any{"only one"},
			}},
			map[string]any{"data": []any{[]any{"x", "y"}}},
		},
		"images": []any{
			map[string]any{"source": filepath.Join(t.TempDir(), "nope.png")},
		},
	}

	res, err := e.Run(context.Background(), "partial.docx", raw, RunOptions{Save: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Stats.ErrorsCount != 2 {
		t.Errorf("errors = %d, want 2", res.Stats.ErrorsCount)
	}
	if res.Stats.TablesCount != 1 {
		t.Errorf("tables applied = %d, want 1", res.Stats.TablesCount)
	}
	if res.Stats.ParagraphsCount != 1 {
		t.Errorf("paragraphs applied = %d, want 1", res.Stats.ParagraphsCount)
	}
	if !res.Saved {
		t.Error("partial failures must not prevent the save")
	}

	var raggedSeen, imageSeen bool
	for _, r := range res.Results {
		if r.Kind == KindTable && r.Index == 0 && r.Status == StatusFailed {
			raggedSeen = true
			if !strings.Contains(r.Detail, "columns") {
				t.Errorf("ragged table detail = %q", r.Detail)
			}
		}
		if r.Kind == KindImage && r.Status == StatusFailed {
			imageSeen = true
			if !strings.Contains(r.Detail, "image unavailable") {
				t.Errorf("image detail = %q", r.Detail)
			}
		}
	}
	if !raggedSeen {
		t.Error("ragged table failure not recorded")
	}
	if !imageSeen {
		t.Error("missing image failure not recorded")
	}

	body := readPart(t, res.Doc, "word/document.xml")
	if !strings.Contains(body, "keep me") {
		t.Error("surviving paragraph missing from document")
	}
	if strings.Count(body, "<w:tbl>") != 1 {
		t.Error("failed table leaked into document")
	}
}

func TestRunFatalOnBadTopLevelField(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"tables not a sequence", map[string]any{"tables": "nope"}},
		{"title not a string", map[string]any{"title": 7.0}},
		{"headings not a sequence", map[string]any{"headings": map[string]any{}}},
		{"negative page breaks", map[string]any{"page_breaks": -2.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Run(context.Background(), "x.docx", tt.raw, RunOptions{Save: true})
			var serr *SpecError
			if !errors.As(err, &serr) {
				t.Fatalf("got %v, want SpecError", err)
			}
			if res != nil {
				t.Error("fatal spec error must not produce a result")
			}
		})
	}
}

func TestRunWithoutSave(t *testing.T) {
	e := newTestEngine(t)
	raw := map[string]any{"paragraphs": []any{"dry run"}}

	res, err := e.Run(context.Background(), "dry.docx", raw, RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Saved {
		t.Error("saved = true, want false")
	}
	if res.Doc != nil {
		t.Error("unsaved run must not serialize")
	}
	if _, err := os.Stat(filepath.Join(e.cfg.OutputDir, "dry.docx")); !os.IsNotExist(err) {
		t.Errorf("unsaved run wrote a file: %v", err)
	}
}

func TestRunSpec(t *testing.T) {
	e := newTestEngine(t)
	spec := &ContentSpec{
		Title:      "Typed",
		Headings:   []Heading{{Text: "H", Level: 1}},
		Paragraphs: []string{"p"},
	}
	res, err := e.RunSpec(context.Background(), "typed", spec, RunOptions{Save: true})
	if err != nil {
		t.Fatalf("RunSpec: %v", err)
	}
	if res.Stats.HeadingsCount != 1 || res.Stats.ParagraphsCount != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}
}

func TestEnsureDocxExtension(t *testing.T) {
	tests := []struct{ in, want string }{
		{"report", "report.docx"},
		{"report.docx", "report.docx"},
		{"report.DOCX", "report.DOCX"},
		{"archive.tar", "archive.tar.docx"},
	}
	for _, tt := range tests {
		if got := EnsureDocxExtension(tt.in); got != tt.want {
			t.Errorf("EnsureDocxExtension(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
