package docread

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
)

// readDocx parses a .docx file by reading word/document.xml from the ZIP
// archive. Headings and paragraphs become blocks; tables keep their cell
// grid and are also summarized as a block so RawText stays complete.
// Embedded media parts are reported by name.
func readDocx(path string) (string, []Block, []Table, []string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", nil, nil, nil, fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	var docFile *zip.File
	var images []string
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
		}
		if strings.HasPrefix(f.Name, "word/media/") && f.Name != "word/media/" {
			images = append(images, strings.TrimPrefix(f.Name, "word/"))
		}
	}
	sort.Strings(images)
	if docFile == nil {
		return "", nil, nil, nil, fmt.Errorf("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", nil, nil, nil, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var blocks []Block
	var tables []Table
	var title string

	var text strings.Builder
	var inParagraph bool
	var paragraphStyle string

	// Table state. Paragraph text inside a cell accumulates into the cell,
	// not into the block list.
	var tableDepth int
	var curTable Table
	var curRow []string
	var curCell strings.Builder
	var inCell bool

	flushParagraph := func() {
		t := strings.TrimSpace(text.String())
		text.Reset()
		if t == "" {
			return
		}
		level := docxHeadingLevel(paragraphStyle)
		if level > 0 {
			if title == "" {
				title = t
			}
			blocks = append(blocks, Block{Title: t, Level: level, Text: t, Type: "heading"})
			return
		}
		blocks = append(blocks, Block{Text: t, Type: "paragraph"})
	}

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
				if tableDepth == 1 {
					curTable = Table{}
				}
			case "tr":
				if tableDepth == 1 {
					curRow = nil
				}
			case "tc":
				if tableDepth == 1 {
					inCell = true
					curCell.Reset()
				}
			case "p":
				if tableDepth == 0 {
					inParagraph = true
					text.Reset()
					paragraphStyle = ""
				}
			case "pStyle":
				if inParagraph {
					for _, attr := range t.Attr {
						if attr.Name.Local == "val" {
							paragraphStyle = attr.Value
						}
					}
				}
			}

		case xml.CharData:
			if inCell {
				curCell.Write(t)
			} else if inParagraph {
				text.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if inParagraph && tableDepth == 0 {
					inParagraph = false
					flushParagraph()
				}
			case "tc":
				if tableDepth == 1 && inCell {
					inCell = false
					curRow = append(curRow, strings.TrimSpace(curCell.String()))
				}
			case "tr":
				if tableDepth == 1 && curRow != nil {
					curTable.Rows = append(curTable.Rows, curRow)
					curRow = nil
				}
			case "tbl":
				tableDepth--
				if tableDepth == 0 && len(curTable.Rows) > 0 {
					tables = append(tables, curTable)
					blocks = append(blocks, Block{
						Text: flattenTable(curTable),
						Type: "table",
					})
				}
			}
		}
	}

	return title, blocks, tables, images, nil
}

// flattenTable renders a table grid as pipe-delimited text for RawText.
func flattenTable(t Table) string {
	var sb strings.Builder
	for i, row := range t.Rows {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("| " + strings.Join(row, " | ") + " |")
	}
	return sb.String()
}

// docxHeadingLevel extracts the heading level from a paragraph style name.
// e.g. "Heading1" → 1, "Heading2" → 2, "Title" → 1, etc.
func docxHeadingLevel(style string) int {
	lower := strings.ToLower(style)

	if lower == "title" {
		return 1
	}
	if lower == "subtitle" {
		return 2
	}

	for _, prefix := range []string{"heading", "titre", "überschrift"} {
		if strings.HasPrefix(lower, prefix) {
			rest := lower[len(prefix):]
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '9' {
				return int(rest[0] - '0')
			}
		}
	}
	return 0
}
