package docread

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ExtractionQuality scores how well text extraction worked for a PDF so a
// model-driven caller can decide what to do next: fall back to OCR, or pull
// the embedded images. NeedsOCR and HasVisualGap are the actionable verdicts;
// the other fields are the raw signals behind them.
type ExtractionQuality struct {
	PageCount       int     `json:"page_count"`
	CharsPerPage    float64 `json:"chars_per_page"`
	PrintableRatio  float64 `json:"printable_ratio"`
	WordlikeRatio   float64 `json:"wordlike_ratio"`
	HasImageStreams bool    `json:"has_image_streams"`
	VisualRefCount  int     `json:"visual_ref_count"`

	// NeedsOCR flags extraction that is too sparse or too garbled to
	// trust while the file carries image streams OCR could read instead.
	NeedsOCR bool `json:"needs_ocr"`

	// HasVisualGap flags text that refers to figures or tables the text
	// extraction cannot reach.
	HasVisualGap bool `json:"has_visual_gap"`
}

// scoreExtraction computes the quality verdict for pageCount pages of
// extracted text.
func scoreExtraction(text string, pageCount int, hasImages bool) *ExtractionQuality {
	q := &ExtractionQuality{
		PageCount:       pageCount,
		PrintableRatio:  printableRatio(text),
		WordlikeRatio:   wordlikeRatio(text),
		HasImageStreams: hasImages,
		VisualRefCount:  visualRefCount(text),
	}
	if pageCount > 0 {
		q.CharsPerPage = float64(utf8.RuneCountInString(text)) / float64(pageCount)
	}
	q.NeedsOCR = (q.CharsPerPage < 50 && q.HasImageStreams) || q.PrintableRatio < 0.85
	q.HasVisualGap = q.VisualRefCount > 0 && q.HasImageStreams
	return q
}

// printableRatio returns the share of printable characters in text.
// Excludes PUA U+E000-U+F8FF, control chars < U+0020 (except \n\r\t), U+FFFD.
func printableRatio(text string) float64 {
	if text == "" {
		return 1.0
	}
	total, printable := 0, 0
	for _, r := range text {
		total++
		if isGarbageRune(r) {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	return float64(printable) / float64(total)
}

func isGarbageRune(r rune) bool {
	switch {
	case r >= 0xE000 && r <= 0xF8FF: // Private Use Area
		return true
	case r == 0xFFFD: // replacement character
		return true
	case r < 0x0020 && r != '\n' && r != '\r' && r != '\t':
		return true
	}
	return false
}

// wordlikeRatio returns the share of word-like tokens (length 2-15) among
// all tokens. Character-by-character extraction collapses this toward zero.
func wordlikeRatio(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	wordlike := 0
	for _, f := range fields {
		if n := utf8.RuneCountInString(f); n >= 2 && n <= 15 {
			wordlike++
		}
	}
	return float64(wordlike) / float64(len(fields))
}

var visualRefPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(voir|cf\.?|see|refer\s+to)\s+(la\s+)?(figure|fig\.?|tableau|table|sch[eé]ma|schema|image|illustration|graphique|graph|diagramme|diagram)\s*\d`),
	regexp.MustCompile(`(?i)(figure|fig\.?|tableau|table)\s+\d+`),
}

// visualRefCount counts references to figures, tables, and diagrams.
func visualRefCount(text string) int {
	count := 0
	for _, pat := range visualRefPatterns {
		count += len(pat.FindAllString(text, -1))
	}
	return count
}
