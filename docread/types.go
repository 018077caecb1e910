package docread

// Format identifies a document type.
type Format string

const (
	FormatDocx Format = "docx"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
	FormatMD   Format = "md"
	FormatTXT  Format = "txt"
	FormatHTML Format = "html"
)

// Block is a structural unit of a processed document.
type Block struct {
	Title    string            `json:"title,omitempty"`
	Level    int               `json:"level"`              // heading level 1-6, 0 for body
	Text     string            `json:"text"`               // extracted text content
	Type     string            `json:"type"`               // heading, paragraph, table, list, page
	Metadata map[string]string `json:"metadata,omitempty"` // extra attributes
}

// Table is a structured table recovered with its cell grid intact. Formats
// that cannot preserve cell boundaries (PDF) flatten tables into text blocks
// instead.
type Table struct {
	Name string     `json:"name,omitempty"` // sheet name for spreadsheets
	Rows [][]string `json:"rows"`
}

// OutlineEntry is one heading of the document outline, in reading order.
type OutlineEntry struct {
	Text  string `json:"text"`
	Level int    `json:"level"`
}

// Document is the result of processing a file or URL.
type Document struct {
	Source  string             `json:"source"`
	Format  Format             `json:"format"`
	Title   string             `json:"title"`
	Blocks  []Block            `json:"blocks"`
	Tables  []Table            `json:"tables,omitempty"`
	Images  []string           `json:"images,omitempty"` // embedded media part names (docx)
	Outline []OutlineEntry     `json:"outline,omitempty"`
	RawText string             `json:"raw_text"`
	Quality *ExtractionQuality `json:"quality,omitempty"` // PDF extraction quality metrics
}
