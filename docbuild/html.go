package docbuild

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

// FromHTML sanitizes an HTML fragment, converts it to markdown, then parses
// the markdown into a ContentSpec. Script/style payloads are stripped before
// conversion so they never leak into the document.
func FromHTML(html string) (*ContentSpec, error) {
	if strings.TrimSpace(html) == "" {
		return nil, &SpecError{Field: "html", Detail: "empty input"}
	}

	clean := bluemonday.UGCPolicy().Sanitize(html)

	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	md, err := conv.ConvertString(clean)
	if err != nil {
		return nil, fmt.Errorf("convert html: %w", err)
	}

	spec := parseMarkdown(md)
	if spec.Title == "" && len(spec.Headings) == 0 && len(spec.Paragraphs) == 0 && len(spec.Tables) == 0 {
		return nil, &SpecError{Field: "html", Detail: "no renderable content after sanitization"}
	}
	return spec, nil
}

// parseMarkdown walks markdown line by line: ATX headings become Heading
// entries (the first one also seeds the title), pipe tables become TableSpec
// rows, blank lines flush the accumulated paragraph.
func parseMarkdown(md string) *ContentSpec {
	spec := &ContentSpec{}
	lines := strings.Split(md, "\n")
	var current strings.Builder
	var tableRows [][]string

	flushParagraph := func() {
		text := strings.TrimSpace(current.String())
		if text != "" {
			spec.Paragraphs = append(spec.Paragraphs, text)
		}
		current.Reset()
	}
	flushTable := func() {
		if len(tableRows) > 0 {
			spec.Tables = append(spec.Tables, TableSpec{Data: tableRows})
			tableRows = nil
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "#") {
			flushParagraph()
			flushTable()

			level := 0
			for _, ch := range trimmed {
				if ch == '#' {
					level++
				} else {
					break
				}
			}
			if level > 6 {
				level = 6
			}
			text := strings.TrimSpace(strings.TrimRight(strings.TrimLeft(trimmed, "#"), "#"))
			if text == "" {
				continue
			}
			if spec.Title == "" {
				spec.Title = text
			}
			spec.Headings = append(spec.Headings, Heading{Text: text, Level: level})
			continue
		}

		if strings.HasPrefix(trimmed, "|") && strings.HasSuffix(trimmed, "|") {
			flushParagraph()
			if row, ok := parseTableRow(trimmed); ok {
				tableRows = append(tableRows, row)
			}
			continue
		}
		flushTable()

		if trimmed == "" {
			flushParagraph()
			continue
		}

		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(trimmed)
	}
	flushParagraph()
	flushTable()

	return spec
}

// parseTableRow splits one pipe-table line into cells. Separator rows
// (|---|---|) are recognized and dropped.
func parseTableRow(line string) ([]string, bool) {
	inner := strings.TrimSuffix(strings.TrimPrefix(line, "|"), "|")
	parts := strings.Split(inner, "|")

	cells := make([]string, 0, len(parts))
	separator := true
	for _, p := range parts {
		cell := strings.TrimSpace(p)
		if strings.Trim(cell, "-: ") != "" {
			separator = false
		}
		cells = append(cells, cell)
	}
	if separator {
		return nil, false
	}
	return cells, true
}
