package docbuild

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func TestFinalizeExactlyOnce(t *testing.T) {
	e := newTestEngine(t)
	b := e.NewBuilder()
	b.AppendParagraph("once")

	first, err := b.Finalize()
	if err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	if len(first) == 0 {
		t.Fatal("first finalize returned no bytes")
	}

	second, err := b.Finalize()
	var serr *SerializationError
	if !errors.As(err, &serr) {
		t.Fatalf("second finalize: got %v, want SerializationError", err)
	}
	if second != nil {
		t.Error("second finalize returned bytes")
	}
}

func TestAppendsAfterFinalizeAreIgnored(t *testing.T) {
	e := newTestEngine(t)
	b := e.NewBuilder()
	if _, err := b.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	b.AppendHeading("late", 1)
	b.AppendParagraph("late")
	b.AppendPageBreak()
	if len(b.doc.blocks) != 0 {
		t.Errorf("appends after finalize mutated the document: %d blocks", len(b.doc.blocks))
	}
	if err := b.AppendTable(TableSpec{Data: [][]string{{"a"}}}); err == nil {
		t.Error("AppendTable after finalize succeeded")
	}
	if err := b.AppendImage(context.Background(), ImageRef{Source: "x.png"}); err == nil {
		t.Error("AppendImage after finalize succeeded")
	}
}

func TestAppendTableShapes(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name    string
		data    [][]string
		wantErr bool
		wantRow int
	}{
		{"rectangular", [][]string{{"a", "b"}, {"c", "d"}}, false, 0},
		{"single cell", [][]string{{"a"}}, false, 0},
		{"ragged second row", [][]string{{"a", "b"}, {"c"}}, true, 1},
		{"empty", nil, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := e.NewBuilder()
			err := b.AppendTable(TableSpec{Data: tt.data})
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("AppendTable: %v", err)
				}
				return
			}
			var terr *TableShapeError
			if !errors.As(err, &terr) {
				t.Fatalf("got %v, want TableShapeError", err)
			}
			if terr.Row != tt.wantRow {
				t.Errorf("row = %d, want %d", terr.Row, tt.wantRow)
			}
			if len(b.doc.blocks) != 0 {
				t.Error("rejected table mutated the document")
			}
		})
	}
}

func TestAppendImageFromURL(t *testing.T) {
	dir := t.TempDir()
	pic := writeTestPNG(t, dir, 32, 32)
	pngBytes, err := os.ReadFile(pic)
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			w.Write(pngBytes)
		case "/text":
			w.Write([]byte("definitely not an image, just plain prose text"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	e := newTestEngine(t)

	b := e.NewBuilder()
	if err := b.AppendImage(context.Background(), ImageRef{Source: srv.URL + "/ok.png"}); err != nil {
		t.Fatalf("AppendImage: %v", err)
	}
	if len(b.doc.media) != 1 {
		t.Fatalf("media = %d entries, want 1", len(b.doc.media))
	}
	if b.doc.media[0].contentType != "image/png" {
		t.Errorf("content type = %s", b.doc.media[0].contentType)
	}

	for _, path := range []string{"/missing.png", "/text"} {
		b := e.NewBuilder()
		err := b.AppendImage(context.Background(), ImageRef{Source: srv.URL + path})
		var ierr *ImageUnavailableError
		if !errors.As(err, &ierr) {
			t.Errorf("%s: got %v, want ImageUnavailableError", path, err)
		}
	}
}

func TestImageExtent(t *testing.T) {
	tests := []struct {
		name        string
		pxW, pxH    int
		widthInches float64
		wantCx      int64
	}{
		{"natural size", 96, 96, 0, 1 * emuPerInch},
		{"explicit width", 96, 96, 3, 3 * emuPerInch},
		{"clamped to page", 2000, 100, 0, int64(maxWidthIn * emuPerInch)},
		{"explicit width clamped", 96, 96, 40, int64(maxWidthIn * emuPerInch)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cx, cy := imageExtent(tt.pxW, tt.pxH, tt.widthInches)
			if cx != tt.wantCx {
				t.Errorf("cx = %d, want %d", cx, tt.wantCx)
			}
			wantCy := int64(float64(cx) * float64(tt.pxH) / float64(tt.pxW))
			if cy != wantCy {
				t.Errorf("cy = %d, want %d", cy, wantCy)
			}
		})
	}
}

func TestHeadingLevelClamped(t *testing.T) {
	e := newTestEngine(t)
	b := e.NewBuilder()
	b.AppendHeading("low", 0)
	b.AppendHeading("high", 42)
	if b.doc.blocks[0].level != 1 {
		t.Errorf("level = %d, want 1", b.doc.blocks[0].level)
	}
	if b.doc.blocks[1].level != 9 {
		t.Errorf("level = %d, want 9", b.doc.blocks[1].level)
	}
}

func TestWriteDocxEscapesText(t *testing.T) {
	e := newTestEngine(t)
	b := e.NewBuilder()
	b.AppendParagraph(`<script> & "quotes"`)
	data, err := b.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	body := readPart(t, data, "word/document.xml")
	if strings.Contains(body, "<script>") {
		t.Error("unescaped markup in document.xml")
	}
	if !strings.Contains(body, "&lt;script&gt; &amp;") {
		t.Errorf("expected escaped text, got: %s", body)
	}
}
