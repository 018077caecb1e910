package docbuild

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// In-memory document model. Nothing here touches disk; writeDocx turns the
// whole structure into OOXML bytes in one pass.

type blockKind int

const (
	blockHeading blockKind = iota
	blockParagraph
	blockTable
	blockImage
	blockPageBreak
)

type block struct {
	kind     blockKind
	text     string // heading/paragraph text, image caption
	level    int
	rows     [][]string
	mediaIdx int
}

type media struct {
	name        string
	contentType string
	data        []byte
	cx, cy      int64 // EMU
}

type document struct {
	title  string
	author string
	blocks []block
	media  []media
}

// writeDocx serializes the document as a minimal WordprocessingML package:
// content types, package rels, core properties, styles, the document part,
// and one media entry per embedded image.
func writeDocx(doc *document) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", contentTypesXML(doc)},
		{"_rels/.rels", []byte(packageRelsXML)},
		{"docProps/core.xml", corePropsXML(doc)},
		{"word/styles.xml", []byte(stylesXML)},
		{"word/_rels/document.xml.rels", documentRelsXML(doc)},
		{"word/document.xml", documentXML(doc)},
	}
	for _, p := range parts {
		f, err := w.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", p.name, err)
		}
		if _, err := f.Write(p.data); err != nil {
			return nil, fmt.Errorf("write %s: %w", p.name, err)
		}
	}

	for _, m := range doc.media {
		f, err := w.Create("word/media/" + m.name)
		if err != nil {
			return nil, fmt.Errorf("create media %s: %w", m.name, err)
		}
		if _, err := f.Write(m.data); err != nil {
			return nil, fmt.Errorf("write media %s: %w", m.name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

func contentTypesXML(doc *document) []byte {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	sb.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	sb.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)

	seen := map[string]bool{}
	for _, m := range doc.media {
		ext := strings.TrimPrefix(m.name[strings.LastIndexByte(m.name, '.'):], ".")
		if !seen[ext] {
			seen[ext] = true
			sb.WriteString(`<Default Extension="` + ext + `" ContentType="` + m.contentType + `"/>`)
		}
	}

	sb.WriteString(`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>`)
	sb.WriteString(`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>`)
	sb.WriteString(`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>`)
	sb.WriteString(`</Types>`)
	return []byte(sb.String())
}

const packageRelsXML = xmlHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>` +
	`</Relationships>`

func corePropsXML(doc *document) []byte {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">`)
	sb.WriteString(`<dc:title>` + escapeXML(doc.title) + `</dc:title>`)
	sb.WriteString(`<dc:creator>` + escapeXML(doc.author) + `</dc:creator>`)
	sb.WriteString(`</cp:coreProperties>`)
	return []byte(sb.String())
}

func documentRelsXML(doc *document) []byte {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	sb.WriteString(`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>`)
	for i, m := range doc.media {
		sb.WriteString(fmt.Sprintf(
			`<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/%s"/>`,
			mediaRelID(i), m.name))
	}
	sb.WriteString(`</Relationships>`)
	return []byte(sb.String())
}

func mediaRelID(idx int) string {
	// Image rels start at rId100 so style/numbering rels never collide.
	return fmt.Sprintf("rId%d", 100+idx)
}

func documentXML(doc *document) []byte {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<w:document` +
		` xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"` +
		` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"` +
		` xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"` +
		` xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"` +
		` xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">`)
	sb.WriteString(`<w:body>`)

	for _, b := range doc.blocks {
		switch b.kind {
		case blockHeading:
			sb.WriteString(fmt.Sprintf(`<w:p><w:pPr><w:pStyle w:val="Heading%d"/></w:pPr>`, b.level))
			writeRun(&sb, b.text)
			sb.WriteString(`</w:p>`)
		case blockParagraph:
			sb.WriteString(`<w:p>`)
			if b.text != "" {
				writeRun(&sb, b.text)
			}
			sb.WriteString(`</w:p>`)
		case blockPageBreak:
			sb.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
		case blockTable:
			writeTable(&sb, b.rows)
		case blockImage:
			writeImage(&sb, doc.media[b.mediaIdx], b.mediaIdx, b.text)
		}
	}

	sb.WriteString(`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr>`)
	sb.WriteString(`</w:body></w:document>`)
	return []byte(sb.String())
}

func writeRun(sb *strings.Builder, text string) {
	sb.WriteString(`<w:r><w:t xml:space="preserve">`)
	sb.WriteString(escapeXML(text))
	sb.WriteString(`</w:t></w:r>`)
}

func writeTable(sb *strings.Builder, rows [][]string) {
	sb.WriteString(`<w:tbl><w:tblPr><w:tblStyle w:val="TableGrid"/><w:tblW w:w="0" w:type="auto"/></w:tblPr>`)
	sb.WriteString(`<w:tblGrid>`)
	for range rows[0] {
		sb.WriteString(`<w:gridCol/>`)
	}
	sb.WriteString(`</w:tblGrid>`)
	for _, row := range rows {
		sb.WriteString(`<w:tr>`)
		for _, cell := range row {
			sb.WriteString(`<w:tc><w:p>`)
			if cell != "" {
				writeRun(sb, cell)
			}
			sb.WriteString(`</w:p></w:tc>`)
		}
		sb.WriteString(`</w:tr>`)
	}
	sb.WriteString(`</w:tbl>`)
	// Word requires a paragraph between a table and whatever follows.
	sb.WriteString(`<w:p/>`)
}

func writeImage(sb *strings.Builder, m media, idx int, caption string) {
	id := idx + 1
	sb.WriteString(`<w:p><w:r><w:drawing>`)
	sb.WriteString(fmt.Sprintf(`<wp:inline distT="0" distB="0" distL="0" distR="0">`+
		`<wp:extent cx="%d" cy="%d"/>`+
		`<wp:docPr id="%d" name="%s"/>`, m.cx, m.cy, id, m.name))
	sb.WriteString(`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`)
	sb.WriteString(`<pic:pic>`)
	sb.WriteString(fmt.Sprintf(`<pic:nvPicPr><pic:cNvPr id="%d" name="%s"/><pic:cNvPicPr/></pic:nvPicPr>`, id, m.name))
	sb.WriteString(fmt.Sprintf(`<pic:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`, mediaRelID(idx)))
	sb.WriteString(fmt.Sprintf(`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`, m.cx, m.cy))
	sb.WriteString(`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`)

	if caption != "" {
		sb.WriteString(`<w:p><w:pPr><w:pStyle w:val="Caption"/></w:pPr>`)
		writeRun(sb, caption)
		sb.WriteString(`</w:p>`)
	}
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// stylesXML carries the minimal style set the builder references: Normal,
// Heading1-9 with descending sizes, TableGrid borders, and Caption.
var stylesXML = func() string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">`)
	sb.WriteString(`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style>`)

	// Half-point sizes: Heading1 = 16 pt down to 10 pt for deep levels.
	sizes := []int{32, 28, 26, 24, 22, 22, 20, 20, 20}
	for i, sz := range sizes {
		sb.WriteString(fmt.Sprintf(
			`<w:style w:type="paragraph" w:styleId="Heading%d">`+
				`<w:name w:val="heading %d"/><w:basedOn w:val="Normal"/>`+
				`<w:pPr><w:outlineLvl w:val="%d"/></w:pPr>`+
				`<w:rPr><w:b/><w:sz w:val="%d"/></w:rPr></w:style>`,
			i+1, i+1, i, sz))
	}

	sb.WriteString(`<w:style w:type="paragraph" w:styleId="Caption">` +
		`<w:name w:val="caption"/><w:basedOn w:val="Normal"/>` +
		`<w:rPr><w:i/><w:sz w:val="18"/></w:rPr></w:style>`)

	sb.WriteString(`<w:style w:type="table" w:styleId="TableGrid"><w:name w:val="Table Grid"/>` +
		`<w:tblPr><w:tblBorders>` +
		`<w:top w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
		`<w:left w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
		`<w:bottom w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
		`<w:right w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
		`<w:insideH w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
		`<w:insideV w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
		`</w:tblBorders></w:tblPr></w:style>`)

	sb.WriteString(`</w:styles>`)
	return sb.String()
}()
