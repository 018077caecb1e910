package docbuild

// Heading is one heading entry of a ContentSpec.
type Heading struct {
	Text  string `json:"text"`
	Level int    `json:"level"` // 1-9, clamped by the builder
}

// TableSpec is one table of a ContentSpec. Data must be rectangular; ragged
// rows are rejected per-element by the builder.
type TableSpec struct {
	Data [][]string `json:"data"`
}

// ImageRef points at an image to embed: a local path or a remote URL.
type ImageRef struct {
	Source      string  `json:"source"`
	Caption     string  `json:"caption,omitempty"`
	WidthInches float64 `json:"width,omitempty"`
}

// ContentSpec is the canonical, post-normalization description of one
// document. Constructed once per invocation, immutable afterwards.
type ContentSpec struct {
	Title      string      `json:"title,omitempty"`
	Author     string      `json:"author,omitempty"`
	Headings   []Heading   `json:"headings,omitempty"`
	Paragraphs []string    `json:"paragraphs,omitempty"`
	Tables     []TableSpec `json:"tables,omitempty"`
	Images     []ImageRef  `json:"images,omitempty"`
	PageBreaks int         `json:"page_breaks,omitempty"`
}

// Element kinds as they appear in per-element results.
const (
	KindHeading   = "heading"
	KindParagraph = "paragraph"
	KindTable     = "table"
	KindImage     = "image"
	KindPageBreak = "page_break"
)

// Element statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// ElementResult reports the outcome of one appended element. Index is the
// element's position within its own category in the input.
type ElementResult struct {
	Index  int    `json:"index"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Stats aggregates a batch run. Counts are successful appends only; failures
// land in ErrorsCount.
type Stats struct {
	HeadingsCount   int `json:"headings_count"`
	ParagraphsCount int `json:"paragraphs_count"`
	TablesCount     int `json:"tables_count"`
	ImagesCount     int `json:"images_count"`
	PageBreaksCount int `json:"page_breaks_count"`
	ErrorsCount     int `json:"errors_count"`
}

// BatchResult is the outcome of one orchestrator run.
type BatchResult struct {
	Filename string          `json:"filename"`
	Stats    Stats           `json:"stats"`
	Results  []ElementResult `json:"results"`
	Saved    bool            `json:"saved"`

	// Doc holds the serialized document when the run finalized.
	// Not part of the JSON payload; uploads read it directly.
	Doc []byte `json:"-"`
}
