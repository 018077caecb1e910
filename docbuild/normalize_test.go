package docbuild

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New(Config{
		OutputDir: t.TempDir(),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestNormalizeRecoversWrappedShapes(t *testing.T) {
	spec := map[string]any{
		"title":      "Report",
		"paragraphs": []any{"hello"},
	}

	tests := []struct {
		name         string
		rawFilename  string
		payload      any
		wantFilename string
	}{
		{
			name:         "already flat",
			rawFilename:  "a.docx",
			payload:      spec,
			wantFilename: "a.docx",
		},
		{
			name:        "filename and content wrapper",
			rawFilename: "ignored.docx",
			payload: map[string]any{
				"filename": "real.docx",
				"content":  spec,
			},
			wantFilename: "real.docx",
		},
		{
			name:        "sole content key",
			rawFilename: "a.docx",
			payload: map[string]any{
				"content": spec,
			},
			wantFilename: "a.docx",
		},
		{
			name:        "stray meta keys in flat spec",
			rawFilename: "a.docx",
			payload: map[string]any{
				"file_name":  "junk.docx",
				"title":      "Report",
				"paragraphs": []any{"hello"},
			},
			wantFilename: "a.docx",
		},
		{
			name:        "double wrapped",
			rawFilename: "ignored.docx",
			payload: map[string]any{
				"filename": "real.docx",
				"content": map[string]any{
					"content": spec,
				},
			},
			wantFilename: "real.docx",
		},
	}

	e := newTestEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filename, out, err := e.Normalize(context.Background(), tt.rawFilename, tt.payload)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if filename != tt.wantFilename {
				t.Errorf("filename = %q, want %q", filename, tt.wantFilename)
			}
			if out["title"] != "Report" {
				t.Errorf("title = %v, want Report", out["title"])
			}
			if _, ok := out["file_name"]; ok {
				t.Error("meta key file_name survived normalization")
			}
			if _, ok := out["content"]; ok {
				t.Error("content wrapper survived normalization")
			}
		})
	}
}

func TestNormalizeMetaKeysInsideWrapper(t *testing.T) {
	// Rules re-apply after unwrapping, so stray meta keys inside the
	// unwrapped content still get stripped.
	e := newTestEngine(t)
	payload := map[string]any{
		"content": map[string]any{
			"name":       "junk",
			"title":      "Report",
			"paragraphs": []any{"hello"},
		},
	}
	_, out, err := e.Normalize(context.Background(), "a.docx", payload)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if _, ok := out["name"]; ok {
		t.Error("meta key name survived normalization")
	}
	if out["title"] != "Report" {
		t.Errorf("title = %v, want Report", out["title"])
	}
}

func TestNormalizeRejectsNonMapping(t *testing.T) {
	e := newTestEngine(t)
	for _, payload := range []any{"just a string", 42.0, []any{"a"}, nil} {
		_, _, err := e.Normalize(context.Background(), "a.docx", payload)
		var nerr *NormalizationError
		if !errors.As(err, &nerr) {
			t.Fatalf("payload %v: got %v, want NormalizationError", payload, err)
		}
		if nerr.Kind != TypeMismatch {
			t.Errorf("payload %v: kind = %s, want %s", payload, nerr.Kind, TypeMismatch)
		}
		if !strings.Contains(err.Error(), "paragraphs") {
			t.Error("error does not carry the expected schema")
		}
	}
}

func TestNormalizeDepthBound(t *testing.T) {
	e := newTestEngine(t)
	payload := any(map[string]any{"title": "deep"})
	for range maxUnwrapDepth + 1 {
		payload = map[string]any{"content": payload}
	}
	_, _, err := e.Normalize(context.Background(), "a.docx", payload)
	var nerr *NormalizationError
	if !errors.As(err, &nerr) {
		t.Fatalf("got %v, want NormalizationError", err)
	}
	if nerr.Kind != UnrecognizedShape {
		t.Errorf("kind = %s, want %s", nerr.Kind, UnrecognizedShape)
	}
}
