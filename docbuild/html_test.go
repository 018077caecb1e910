package docbuild

import (
	"strings"
	"testing"
)

func TestFromHTML(t *testing.T) {
	html := `
		<h1>Annual Review</h1>
		<p>Opening paragraph.</p>
		<h2>Numbers</h2>
		<p>Some context.</p>
		<table>
			<tr><th>metric</th><th>value</th></tr>
			<tr><td>uptime</td><td>99.9</td></tr>
		</table>
		<script>alert("nope")</script>
	`

	spec, err := FromHTML(html)
	if err != nil {
		t.Fatalf("FromHTML: %v", err)
	}

	if spec.Title != "Annual Review" {
		t.Errorf("title = %q, want Annual Review", spec.Title)
	}
	if len(spec.Headings) != 2 {
		t.Fatalf("headings = %d, want 2", len(spec.Headings))
	}
	if spec.Headings[0].Level != 1 || spec.Headings[1].Level != 2 {
		t.Errorf("heading levels = %d, %d", spec.Headings[0].Level, spec.Headings[1].Level)
	}
	if len(spec.Paragraphs) < 2 {
		t.Fatalf("paragraphs = %d, want at least 2", len(spec.Paragraphs))
	}
	if len(spec.Tables) != 1 {
		t.Fatalf("tables = %d, want 1", len(spec.Tables))
	}
	tbl := spec.Tables[0]
	if len(tbl.Data) != 2 || len(tbl.Data[0]) != 2 {
		t.Fatalf("table shape = %dx%d, want 2x2", len(tbl.Data), len(tbl.Data[0]))
	}
	if tbl.Data[1][0] != "uptime" {
		t.Errorf("cell = %q, want uptime", tbl.Data[1][0])
	}

	for _, p := range spec.Paragraphs {
		if strings.Contains(p, "alert") {
			t.Errorf("script content leaked into paragraphs: %q", p)
		}
	}
}

func TestFromHTMLEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "<script>only()</script>"} {
		if _, err := FromHTML(in); err == nil {
			t.Errorf("FromHTML(%q): expected error", in)
		}
	}
}

func TestParseTableRow(t *testing.T) {
	tests := []struct {
		line  string
		want  []string
		keep  bool
	}{
		{"| a | b |", []string{"a", "b"}, true},
		{"| --- | :--: |", nil, false},
		{"| only |", []string{"only"}, true},
	}
	for _, tt := range tests {
		got, keep := parseTableRow(tt.line)
		if keep != tt.keep {
			t.Errorf("parseTableRow(%q) keep = %v, want %v", tt.line, keep, tt.keep)
			continue
		}
		if !keep {
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("parseTableRow(%q) = %v, want %v", tt.line, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseTableRow(%q)[%d] = %q, want %q", tt.line, i, got[i], tt.want[i])
			}
		}
	}
}
