package docread

import "testing"

func TestPrintableRatio_NormalText(t *testing.T) {
	ratio := printableRatio("This is a normal sentence with standard characters.")
	if ratio < 0.95 {
		t.Errorf("printable ratio = %f, want > 0.95", ratio)
	}
}

func TestPrintableRatio_GarbledText(t *testing.T) {
	// PUA runes and control chars are what CIDFont extraction without a
	// ToUnicode map produces.
	garbage := "abcdefghi\x01\x02\x03\x04\x05"
	ratio := printableRatio(garbage)
	if ratio >= 0.85 {
		t.Errorf("printable ratio = %f, want < 0.85", ratio)
	}
}

func TestWordlikeRatio_NormalText(t *testing.T) {
	ratio := wordlikeRatio("This is a normal sentence with standard words inside")
	if ratio < 0.70 {
		t.Errorf("wordlike ratio = %f, want > 0.70", ratio)
	}
}

func TestWordlikeRatio_SingleCharTokens(t *testing.T) {
	// Character-by-character extraction yields single-rune tokens.
	ratio := wordlikeRatio("a b c d e f g h i j k l")
	if ratio >= 0.40 {
		t.Errorf("wordlike ratio = %f, want < 0.40", ratio)
	}
}

func TestVisualRefCount(t *testing.T) {
	text := "voir figure 3, cf. tableau 2, see Figure 1"
	if count := visualRefCount(text); count < 3 {
		t.Errorf("visual refs = %d, want >= 3", count)
	}
}

func TestScoreExtraction_NeedsOCR(t *testing.T) {
	// Almost no text per page while the file carries image streams.
	q := scoreExtraction("a few words", 5, true)
	if !q.NeedsOCR {
		t.Error("expected needs_ocr for sparse text with image streams")
	}
}

func TestScoreExtraction_GarbledNeedsOCR(t *testing.T) {
	q := scoreExtraction("", 1, false)
	if !q.NeedsOCR {
		t.Error("expected needs_ocr for garbled text")
	}
}

func TestScoreExtraction_VisualGap(t *testing.T) {
	text := "The methodology is summarized below. See figure 2 for the full pipeline. " +
		"Results follow the distribution shown in table 1 across all runs measured."
	q := scoreExtraction(text, 1, true)
	if !q.HasVisualGap {
		t.Error("expected has_visual_gap for figure references with image streams")
	}
	if q.NeedsOCR {
		t.Error("dense printable text must not flag needs_ocr")
	}
}

func TestScoreExtraction_CleanDocument(t *testing.T) {
	text := "Plain prose with no references to anything visual at all, " +
		"repeated enough to be comfortably above the per page threshold. " +
		"Plain prose with no references to anything visual at all."
	q := scoreExtraction(text, 1, false)
	if q.NeedsOCR || q.HasVisualGap {
		t.Errorf("clean document flagged: needs_ocr=%v has_visual_gap=%v", q.NeedsOCR, q.HasVisualGap)
	}
	if q.CharsPerPage < 50 {
		t.Errorf("chars per page = %f", q.CharsPerPage)
	}
}
